package discord

import (
	"context"
	"fmt"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/originrp/sentryn/models"
	"github.com/originrp/sentryn/userctx"
	"go.uber.org/zap"
)

func (b *Bot) handleButton(s *discordgo.Session, i *discordgo.InteractionCreate) {
	switch i.MessageComponentData().CustomID {
	case "start_link_process":
		b.handleStartLink(s, i)
	case "check_link_process":
		b.handleCheckLink(s, i)
	}
}

// handleStartLink issues a link token and hands the member a personal URL.
// Pressing the button again while a token is active returns the same URL
// with its remaining lifetime.
func (b *Bot) handleStartLink(s *discordgo.Session, i *discordgo.InteractionCreate) {
	user := interactionUser(i)
	if user == nil {
		return
	}

	ctx := userctx.WithActor(userctx.WithDiscordID(context.Background(), user.ID), user.Username)

	result := b.links.CreateLinkToken(ctx, user.ID, user.Username)
	if !result.Success {
		switch result.Error {
		case models.ErrAlreadyLinked:
			b.respond(s, i, &discordgo.MessageEmbed{
				Color:       colorSuccess,
				Title:       "✅ Already linked",
				Description: fmt.Sprintf("Your account is already linked to **%s**.", orPlaceholder(result.Existing.SteamName)),
				Footer:      &discordgo.MessageEmbedFooter{Text: embedFooter},
			})
		default:
			b.log.Error("failed to create link token",
				zap.String("discord_id", user.ID),
				zap.String("reason", string(result.Error)))
			b.respond(s, i, errorEmbed())
		}
		return
	}

	linkURL := fmt.Sprintf("%s/auth/link?token=%s", b.cfg.WebURL, result.Token.Token)
	minutes := int(result.Token.ExpiresIn(time.Now().UTC()).Minutes())

	err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Flags: discordgo.MessageFlagsEphemeral,
			Embeds: []*discordgo.MessageEmbed{{
				Color: colorPrimary,
				Title: "🔗 Link your Steam account",
				Description: fmt.Sprintf(
					"Click the button below and sign in through Steam.\nThe link expires in **%d minutes** and can only be used once.",
					minutes),
				Footer: &discordgo.MessageEmbedFooter{Text: embedFooter},
			}},
			Components: []discordgo.MessageComponent{
				discordgo.ActionsRow{
					Components: []discordgo.MessageComponent{
						discordgo.Button{
							Style: discordgo.LinkButton,
							Label: "Open the link page",
							URL:   linkURL,
						},
					},
				},
			},
		},
	})
	if err != nil {
		b.log.Error("failed to respond with link url", zap.Error(err))
	}
}

// handleCheckLink reports the member's current link status. For linked
// members the check also re-runs role synchronization, so roles that were
// missed after the bind get applied here.
func (b *Bot) handleCheckLink(s *discordgo.Session, i *discordgo.InteractionCreate) {
	user := interactionUser(i)
	if user == nil {
		return
	}

	ctx := userctx.WithActor(context.Background(), user.Username)
	record, err := b.links.CheckLink(ctx, user.ID)
	if err != nil {
		b.log.Error("failed to check link status",
			zap.String("discord_id", user.ID),
			zap.Error(err))
		b.respond(s, i, errorEmbed())
		return
	}

	if !record.IsLinked() {
		b.respond(s, i, &discordgo.MessageEmbed{
			Color:       colorError,
			Title:       "❌ Not linked",
			Description: "Your Discord account is not linked to a Steam account yet. Use the link button on the main server to get started.",
			Footer:      &discordgo.MessageEmbedFooter{Text: embedFooter},
		})
		return
	}

	b.respond(s, i, &discordgo.MessageEmbed{
		Color: colorSuccess,
		Title: "✅ Account linked",
		Description: fmt.Sprintf("Your Discord account is linked to **%s** since <t:%d:F>.",
			orPlaceholder(record.SteamName), record.LinkedAt.Unix()),
		Footer: &discordgo.MessageEmbedFooter{Text: embedFooter},
	})
}
