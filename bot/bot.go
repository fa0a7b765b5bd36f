// Package bot connects the Discord gateway to the presence tracker and the
// command router.
package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/bwmarrin/discordgo"

	"github.com/onnwee/playtime/commands"
	"github.com/onnwee/playtime/presence"
	"github.com/onnwee/playtime/telemetry"
)

// Intents are the gateway intents the bot needs: guild state, member lookup for
// partial presence users, and presences themselves.
const Intents = discordgo.IntentsGuilds | discordgo.IntentsGuildMembers | discordgo.IntentsGuildPresences

// Options configures a Bot.
type Options struct {
	Token   string
	AppID   string
	GuildID string // empty registers commands globally
}

// Bot owns the gateway session.
type Bot struct {
	opts       Options
	session    *discordgo.Session
	dispatcher *presence.Dispatcher
	cache      *presence.SnapshotCache
	router     *commands.Router
	log        *slog.Logger

	ctx context.Context
}

// New creates the session and registers handlers. Nothing connects until Open.
func New(opts Options, dispatcher *presence.Dispatcher, cache *presence.SnapshotCache, router *commands.Router) (*Bot, error) {
	if opts.Token == "" {
		return nil, errors.New("discord token is required")
	}
	session, err := discordgo.New("Bot " + opts.Token)
	if err != nil {
		return nil, fmt.Errorf("failed to create Discord session: %w", err)
	}
	session.Identify.Intents = Intents
	// Handlers run in arrival order on the gateway goroutine; the dispatcher takes
	// over from there, which keeps one user's presences ordered.
	session.SyncEvents = true

	b := &Bot{
		opts:       opts,
		session:    session,
		dispatcher: dispatcher,
		cache:      cache,
		router:     router,
		log:        slog.Default().With(slog.String("component", "bot")),
		ctx:        context.Background(),
	}
	session.AddHandler(b.onReady)
	session.AddHandler(b.onGuildCreate)
	session.AddHandler(b.onPresenceUpdate)
	session.AddHandler(b.onInteractionCreate)
	return b, nil
}

// Open connects to the gateway and registers slash commands. ctx bounds the
// handlers' work for the lifetime of the session.
func (b *Bot) Open(ctx context.Context) error {
	b.ctx = ctx
	if err := b.session.Open(); err != nil {
		return fmt.Errorf("failed to open Discord connection: %w", err)
	}
	b.registerCommands()
	return nil
}

// Close disconnects from the gateway.
func (b *Bot) Close() error {
	return b.session.Close()
}

// Ready reports whether the gateway session has received its READY payload.
func (b *Bot) Ready() bool {
	return b.session != nil && b.session.DataReady
}

// registerCommands bulk-overwrites the application commands. Failure is logged:
// the bot still tracks presence without commands.
func (b *Bot) registerCommands() {
	appID := b.opts.AppID
	if appID == "" && b.session.State != nil && b.session.State.User != nil {
		appID = b.session.State.User.ID
	}
	defs := b.router.Definitions()
	registered, err := b.session.ApplicationCommandBulkOverwrite(appID, b.opts.GuildID, defs)
	if err != nil {
		b.log.Error("failed to register slash commands",
			slog.String("guild", b.opts.GuildID),
			slog.Any("err", err))
		return
	}
	b.log.Info("slash commands registered",
		slog.Int("count", len(registered)),
		slog.String("guild", b.opts.GuildID))
}

func (b *Bot) onReady(s *discordgo.Session, r *discordgo.Ready) {
	name := ""
	if r.User != nil {
		name = r.User.Username
	}
	b.log.Info("ready", slog.String("user", name), slog.Int("guilds", len(r.Guilds)))
}

// onGuildCreate seeds the snapshot cache with presences already active when the
// bot joins, without opening sessions for them.
func (b *Bot) onGuildCreate(s *discordgo.Session, g *discordgo.GuildCreate) {
	if g.Guild == nil {
		return
	}
	seeded := 0
	for _, p := range g.Presences {
		if p == nil || p.User == nil {
			continue
		}
		if game := presence.PlayingGame(activities(p.Activities)); game != "" {
			b.cache.Seed(p.User.ID, game)
			seeded++
		}
	}
	b.log.Debug("guild available",
		slog.String("guild", g.ID),
		slog.Int("presences", len(g.Presences)),
		slog.Int("seeded", seeded),
		slog.Int("playing", b.cache.Len()))
}

func (b *Bot) onPresenceUpdate(s *discordgo.Session, p *discordgo.PresenceUpdate) {
	if p.User == nil || p.User.ID == "" {
		b.log.Error("user not found in presence update", slog.String("guild", p.GuildID))
		return
	}
	user := p.User
	var member *discordgo.Member
	if user.Username == "" && s.State != nil {
		if m, err := s.State.Member(p.GuildID, user.ID); err == nil {
			member = m
			if m.User != nil {
				user = m.User
			}
		}
	}
	ev := presence.Event{
		User:    storageUser(commandUser(user, member)),
		Current: presence.PlayingGame(activities(p.Activities)),
	}
	if err := b.dispatcher.Submit(b.ctx, ev); err != nil {
		b.log.Warn("dropping presence update",
			slog.String("user", user.ID),
			slog.Any("err", err))
	}
}

func (b *Bot) onInteractionCreate(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if i.Type != discordgo.InteractionApplicationCommand {
		return
	}
	in := interaction(i)
	cmd, ok := b.router.Lookup(in.Command)
	if !ok {
		b.log.Debug("ignoring unknown command", slog.String("command", in.Command))
		return
	}
	// Command handlers may call slow APIs; keep them off the gateway goroutine.
	go b.runCommand(s, i, cmd, in)
}

func (b *Bot) runCommand(s *discordgo.Session, i *discordgo.InteractionCreate, cmd commands.Command, in commands.Interaction) {
	ctx := telemetry.WithCorrelation(b.ctx, i.ID)
	logger := telemetry.LoggerWithCorr(ctx).With(slog.String("component", "bot"), slog.String("command", in.Command))

	if cmd.Defer {
		if err := s.InteractionRespond(i.Interaction, deferred(cmd.DeferEphemeral)); err != nil {
			logger.Error("failed to defer interaction", slog.Any("err", err))
			return
		}
	}

	reply, _ := b.router.Run(ctx, in)

	if cmd.Defer {
		if _, err := s.InteractionResponseEdit(i.Interaction, edit(reply)); err != nil {
			logger.Error("failed to edit deferred response", slog.Any("err", err))
		}
		return
	}
	if err := s.InteractionRespond(i.Interaction, response(reply)); err != nil {
		logger.Error("failed to respond to interaction", slog.Any("err", err))
	}
}
