package bot

import (
	"github.com/bwmarrin/discordgo"

	"github.com/onnwee/playtime/commands"
	"github.com/onnwee/playtime/presence"
	"github.com/onnwee/playtime/storage"
)

// activities converts gateway activities; nil entries are dropped.
func activities(in []*discordgo.Activity) []presence.Activity {
	out := make([]presence.Activity, 0, len(in))
	for _, a := range in {
		if a == nil {
			continue
		}
		out = append(out, presence.Activity{Kind: presence.ActivityKind(a.Type), Name: a.Name})
	}
	return out
}

// commandUser merges a user with optional guild member data. The member nick wins
// over the global display name.
func commandUser(u *discordgo.User, m *discordgo.Member) commands.User {
	if u == nil && m != nil {
		u = m.User
	}
	if u == nil {
		return commands.User{}
	}
	cu := commands.User{
		ID:          u.ID,
		Username:    u.Username,
		DisplayName: u.GlobalName,
	}
	if u.Avatar != "" {
		cu.AvatarURL = u.AvatarURL("")
	}
	if m != nil && m.Nick != "" {
		cu.DisplayName = m.Nick
	}
	return cu
}

// storageUser maps a command user onto a store row. Presence events can carry a
// partial user; its empty username is left for the store to resolve.
func storageUser(u commands.User) storage.User {
	return storage.User{ID: u.ID, Name: u.Username, DisplayName: u.DisplayName, Avatar: u.AvatarURL}
}

// interaction turns a slash command event into a transport-free Interaction.
func interaction(i *discordgo.InteractionCreate) commands.Interaction {
	data := i.ApplicationCommandData()
	in := commands.Interaction{
		Command: data.Name,
		Invoker: commandUser(i.User, i.Member),
		Options: make(map[string]string, len(data.Options)),
	}
	for _, opt := range data.Options {
		switch opt.Type {
		case discordgo.ApplicationCommandOptionString:
			in.Options[opt.Name] = opt.StringValue()
		case discordgo.ApplicationCommandOptionUser:
			id, _ := opt.Value.(string)
			if id == "" {
				continue
			}
			target := resolvedUser(data.Resolved, id)
			if opt.Name == "user" {
				in.Target = &target
			}
			in.Options[opt.Name] = id
		}
	}
	return in
}

func resolvedUser(r *discordgo.ApplicationCommandInteractionDataResolved, id string) commands.User {
	if r == nil {
		return commands.User{ID: id}
	}
	var (
		u *discordgo.User
		m *discordgo.Member
	)
	if r.Users != nil {
		u = r.Users[id]
	}
	if r.Members != nil {
		m = r.Members[id]
	}
	if u == nil && m == nil {
		return commands.User{ID: id}
	}
	cu := commandUser(u, m)
	if cu.ID == "" {
		cu.ID = id
	}
	return cu
}

func flags(ephemeral bool) discordgo.MessageFlags {
	if ephemeral {
		return discordgo.MessageFlagsEphemeral
	}
	return 0
}

// response builds an immediate reply.
func response(r commands.Reply) *discordgo.InteractionResponse {
	data := &discordgo.InteractionResponseData{
		Content: r.Content,
		Flags:   flags(r.Ephemeral),
	}
	if r.Embed != nil {
		data.Embeds = []*discordgo.MessageEmbed{r.Embed}
	}
	return &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: data,
	}
}

// deferred acknowledges an interaction whose answer comes later as an edit.
func deferred(ephemeral bool) *discordgo.InteractionResponse {
	return &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{Flags: flags(ephemeral)},
	}
}

// edit fills in a deferred reply.
func edit(r commands.Reply) *discordgo.WebhookEdit {
	content := r.Content
	embeds := []*discordgo.MessageEmbed{}
	if r.Embed != nil {
		embeds = append(embeds, r.Embed)
	}
	return &discordgo.WebhookEdit{Content: &content, Embeds: &embeds}
}
