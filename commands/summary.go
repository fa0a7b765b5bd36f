package commands

import (
	"context"
	"fmt"
	"strings"
	"unicode"

	"github.com/bwmarrin/discordgo"

	"github.com/onnwee/playtime/summary"
)

// SummaryColor is the embed accent colour.
const SummaryColor = 0x5865F2

// ReportSource produces a play-time report for a user.
type ReportSource interface {
	ForUser(ctx context.Context, userID string) (summary.Report, error)
	WindowLabel() string
}

// Summary builds the "summary [user]" command.
func Summary(reports ReportSource) Command {
	label := reports.WindowLabel()
	return Command{
		Definition: &discordgo.ApplicationCommand{
			Name:        "summary",
			Description: fmt.Sprintf("Replies with a summary of recent games for the last %s.", label),
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionUser,
					Name:        "user",
					Description: "The user to check the summary for (defaults to yourself)",
					Required:    false,
				},
			},
		},
		Handle: func(ctx context.Context, in Interaction) (Reply, error) {
			subject := in.Subject()
			report, err := reports.ForUser(ctx, subject.ID)
			if err != nil {
				return Reply{}, err
			}
			if report.Empty() {
				content := fmt.Sprintf("You haven't played any games in the last %s.", label)
				if !in.IsSelf() {
					content = fmt.Sprintf("%s hasn't played any games in the last %s.", subject.Name(), label)
				}
				return Reply{Content: content, Ephemeral: true}, nil
			}

			title := "Last " + titleWords(label)
			if !in.IsSelf() {
				title = subject.Name() + "'s " + title
			}
			return Reply{Embed: &discordgo.MessageEmbed{
				Title:       title,
				Color:       SummaryColor,
				Description: report.Lines(),
				Footer:      &discordgo.MessageEmbedFooter{Text: "Total: " + summary.FormatDuration(report.Total)},
			}}, nil
		},
	}
}

// titleWords upper-cases the first letter of each word: "24 hours" -> "24 Hours".
func titleWords(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		r := []rune(w)
		r[0] = unicode.ToUpper(r[0])
		words[i] = string(r)
	}
	return strings.Join(words, " ")
}
