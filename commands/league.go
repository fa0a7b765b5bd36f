package commands

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/bwmarrin/discordgo"

	"github.com/onnwee/playtime/riot"
	"github.com/onnwee/playtime/storage"
)

// LeagueStore is the store surface used by account registration.
type LeagueStore interface {
	UpsertUser(ctx context.Context, u storage.User) error
	UpsertLeagueAccount(ctx context.Context, a storage.LeagueAccount) (created bool, err error)
}

// AccountValidator resolves a Riot ID.
type AccountValidator interface {
	AccountByRiotID(ctx context.Context, gameName, tagLine string) (*riot.Account, error)
}

// RegisterLeagueAccount builds "register_league_account game_name tag_line [user]".
// The Riot lookup can outlast the interaction deadline, so the command is deferred.
func RegisterLeagueAccount(store LeagueStore, validator AccountValidator) Command {
	return Command{
		Definition: &discordgo.ApplicationCommand{
			Name:        "register_league_account",
			Description: "Register your League of Legends account",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "game_name",
					Description: "Your Riot game name (e.g. PlayerName)",
					Required:    true,
				},
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "tag_line",
					Description: "Your Riot tag line, after the hash (e.g. EUW)",
					Required:    true,
				},
				{
					Type:        discordgo.ApplicationCommandOptionUser,
					Name:        "user",
					Description: "The user to register (defaults to yourself)",
					Required:    false,
				},
			},
		},
		Defer:          true,
		DeferEphemeral: true,
		Handle: func(ctx context.Context, in Interaction) (Reply, error) {
			gameName := in.Option("game_name")
			tagLine := in.Option("tag_line")
			subject := in.Subject()
			self := in.IsSelf()

			if err := store.UpsertUser(ctx, storage.User{
				ID:          subject.ID,
				Name:        subject.Username,
				DisplayName: subject.DisplayName,
				Avatar:      subject.AvatarURL,
			}); err != nil {
				return Reply{}, err
			}

			account, err := validator.AccountByRiotID(ctx, gameName, tagLine)
			if err != nil {
				slog.Warn("league account validation failed",
					slog.String("component", "commands"),
					slog.String("user", subject.ID),
					slog.String("riot_id", gameName+"#"+tagLine),
					slog.Any("err", err))
				content := fmt.Sprintf("Failed to validate your account: %v", err)
				if !self {
					content = fmt.Sprintf("%s failed to validate their account: %v", subject.Name(), err)
				}
				return Reply{Content: content, Ephemeral: true}, nil
			}

			created, err := store.UpsertLeagueAccount(ctx, storage.LeagueAccount{
				UserID:   subject.ID,
				GameName: gameName,
				TagLine:  tagLine,
				PUUID:    account.PUUID,
			})
			if err != nil {
				return Reply{}, err
			}

			riotID := gameName + "#" + tagLine
			var content string
			switch {
			case created && self:
				content = fmt.Sprintf("Registered your League account: **%s**", riotID)
			case created:
				content = fmt.Sprintf("%s registered their League account: **%s**", subject.Name(), riotID)
			case self:
				content = fmt.Sprintf("Updated your League account to **%s**", riotID)
			default:
				content = fmt.Sprintf("%s updated their League account to **%s**", subject.Name(), riotID)
			}
			return Reply{Content: content, Ephemeral: true}, nil
		},
	}
}
