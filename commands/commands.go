// Package commands defines the slash commands and the router that runs them.
// Handlers are transport-free: they take an Interaction and return a Reply, and the
// bot package converts both to and from the gateway types.
package commands

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/bwmarrin/discordgo"
	"go.opentelemetry.io/otel/attribute"

	"github.com/onnwee/playtime/telemetry"
)

// GenericErrorMessage is sent when a handler fails.
const GenericErrorMessage = "There was an error while executing this command!"

// User is a platform user as seen by a command.
type User struct {
	ID          string
	Username    string
	DisplayName string
	AvatarURL   string
}

// Name is the display name, falling back to the username and then the id.
func (u User) Name() string {
	switch {
	case u.DisplayName != "":
		return u.DisplayName
	case u.Username != "":
		return u.Username
	default:
		return u.ID
	}
}

// Interaction is one slash command invocation.
type Interaction struct {
	Command string
	Invoker User
	// Target is the resolved "user" option, nil when omitted.
	Target  *User
	Options map[string]string
}

// Subject is the user the command is about: the target if given, else the invoker.
func (i Interaction) Subject() User {
	if i.Target != nil {
		return *i.Target
	}
	return i.Invoker
}

// IsSelf reports whether the command is about the invoker.
func (i Interaction) IsSelf() bool {
	return i.Target == nil || i.Target.ID == i.Invoker.ID
}

// Option returns a string option or "".
func (i Interaction) Option(name string) string {
	return i.Options[name]
}

// Reply is what a handler wants sent back.
type Reply struct {
	Content   string
	Embed     *discordgo.MessageEmbed
	Ephemeral bool
}

// Handler runs a command.
type Handler func(ctx context.Context, in Interaction) (Reply, error)

// Command pairs a definition with its handler. Deferred commands are acknowledged
// immediately and answered with an edit once the handler returns.
type Command struct {
	Definition *discordgo.ApplicationCommand
	Handle     Handler
	Defer      bool

	// DeferEphemeral makes the deferred acknowledgement, and so the final reply, ephemeral.
	DeferEphemeral bool
}

// Name returns the definition name or "" when undefined.
func (c Command) Name() string {
	if c.Definition == nil {
		return ""
	}
	return c.Definition.Name
}

// OutcomeRecorder counts command outcomes.
type OutcomeRecorder interface {
	CommandExecuted(command, status string)
}

// Router looks up and runs commands by name.
type Router struct {
	commands map[string]Command
	metrics  OutcomeRecorder
	log      *slog.Logger
}

// NewRouter registers cmds. A command without definition or handler is skipped
// with a warning; later duplicates replace earlier ones.
func NewRouter(metrics OutcomeRecorder, cmds ...Command) *Router {
	r := &Router{
		commands: make(map[string]Command, len(cmds)),
		metrics:  metrics,
		log:      slog.Default().With(slog.String("component", "commands")),
	}
	for i, c := range cmds {
		if c.Definition == nil || c.Definition.Name == "" {
			r.log.Warn("command is missing a definition, skipping", slog.Int("index", i))
			continue
		}
		if c.Handle == nil {
			r.log.Warn("command is missing a handler, skipping", slog.String("command", c.Definition.Name))
			continue
		}
		r.commands[c.Definition.Name] = c
	}
	return r
}

// Lookup returns the command registered under name.
func (r *Router) Lookup(name string) (Command, bool) {
	c, ok := r.commands[name]
	return c, ok
}

// Definitions returns the registered definitions sorted by name.
func (r *Router) Definitions() []*discordgo.ApplicationCommand {
	defs := make([]*discordgo.ApplicationCommand, 0, len(r.commands))
	for _, c := range r.commands {
		defs = append(defs, c.Definition)
	}
	sort.Slice(defs, func(i, j int) bool { return defs[i].Name < defs[j].Name })
	return defs
}

// Run executes the command named by in. Unknown commands return ok=false and are
// otherwise ignored. A handler error is logged, counted and turned into the generic
// ephemeral reply.
func (r *Router) Run(ctx context.Context, in Interaction) (reply Reply, ok bool) {
	cmd, ok := r.commands[in.Command]
	if !ok {
		r.log.Debug("unknown command", slog.String("command", in.Command))
		return Reply{}, false
	}

	ctx, span := telemetry.StartSpan(ctx, telemetry.TracerCommands, "command."+in.Command,
		attribute.String("command.name", in.Command),
		attribute.String("user.id", in.Invoker.ID),
	)
	reply, err := r.call(ctx, cmd, in)
	telemetry.EndSpan(span, err)

	if err != nil {
		r.record(in.Command, telemetry.StatusError)
		telemetry.LoggerWithCorr(ctx).Error("command failed",
			slog.String("component", "commands"),
			slog.String("command", in.Command),
			slog.String("user", in.Invoker.ID),
			slog.Any("err", err))
		return Reply{Content: GenericErrorMessage, Ephemeral: true}, true
	}
	r.record(in.Command, telemetry.StatusSuccess)
	return reply, true
}

func (r *Router) record(command, status string) {
	if r.metrics != nil {
		r.metrics.CommandExecuted(command, status)
	}
}

// call runs the handler and converts a panic into an error.
func (r *Router) call(ctx context.Context, cmd Command, in Interaction) (reply Reply, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("command %s panicked: %v", in.Command, rec)
		}
	}()
	return cmd.Handle(ctx, in)
}
