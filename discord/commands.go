package discord

import (
	"context"
	"fmt"

	"github.com/bwmarrin/discordgo"
	"github.com/originrp/sentryn/models"
	"github.com/originrp/sentryn/userctx"
	"go.uber.org/zap"
)

// Embed colors
const (
	colorSuccess = 0x2ecc71
	colorError   = 0xe74c3c
	colorPrimary = 0xfac819
)

const embedFooter = "Sentryn • Account synchronization"

func (b *Bot) registerCommands() error {
	commands := []*discordgo.ApplicationCommand{
		{
			Name:        "ping",
			Description: "Check that the bot is responding",
		},
		{
			Name:        "synchronization",
			Description: "Manage the Discord & Steam link system",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "setup",
					Description: "Post the public link embed in this channel",
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "info",
					Description: "Show link information for a user",
					Options: []*discordgo.ApplicationCommandOption{
						{
							Type:        discordgo.ApplicationCommandOptionUser,
							Name:        "user",
							Description: "The user to check (defaults to yourself)",
							Required:    false,
						},
					},
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "unlink",
					Description: "Unlink a user's Steam account",
					Options: []*discordgo.ApplicationCommandOption{
						{
							Type:        discordgo.ApplicationCommandOptionUser,
							Name:        "user",
							Description: "The user to unlink",
							Required:    true,
						},
					},
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "stats",
					Description: "Show link statistics",
				},
			},
		},
	}

	_, err := b.session.ApplicationCommandBulkOverwrite(b.session.State.User.ID, "", commands)
	return err
}

func (b *Bot) handleCommand(s *discordgo.Session, i *discordgo.InteractionCreate) {
	data := i.ApplicationCommandData()

	switch data.Name {
	case "ping":
		b.respond(s, i, &discordgo.MessageEmbed{
			Color:       colorSuccess,
			Title:       "Pong",
			Description: "The bot is up.",
			Footer:      &discordgo.MessageEmbedFooter{Text: embedFooter},
		})
	case "synchronization":
		if len(data.Options) == 0 {
			return
		}
		switch data.Options[0].Name {
		case "setup":
			b.handleSetup(s, i)
		case "info":
			b.handleInfo(s, i)
		case "unlink":
			b.handleUnlink(s, i)
		case "stats":
			b.handleStats(s, i)
		}
	}
}

// handleSetup posts the public embed with the link button. ManageServer
// only.
func (b *Bot) handleSetup(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if !hasManageServer(i) {
		b.respond(s, i, deniedEmbed())
		return
	}

	isMain := b.cfg.Guilds.IsMainGuild(i.GuildID)

	description := "Verify the synchronization between your **Discord** and **Steam** accounts."
	customID := "check_link_process"
	label := "Check my account"
	if isMain {
		description = "Link your **Discord** account to **Steam** to verify your identity and unlock full server access."
		customID = "start_link_process"
		label = "Link my account"
	}

	_, err := s.ChannelMessageSendComplex(i.ChannelID, &discordgo.MessageSend{
		Embeds: []*discordgo.MessageEmbed{{
			Color:       colorPrimary,
			Title:       "🔗 Synchronization",
			Description: description,
			Footer:      &discordgo.MessageEmbedFooter{Text: embedFooter},
		}},
		Components: []discordgo.MessageComponent{
			discordgo.ActionsRow{
				Components: []discordgo.MessageComponent{
					discordgo.Button{
						Style:    discordgo.SuccessButton,
						Label:    label,
						CustomID: customID,
						Emoji:    &discordgo.ComponentEmoji{Name: "🔗"},
					},
				},
			},
		},
	})
	if err != nil {
		b.log.Error("failed to post link embed", zap.String("channel_id", i.ChannelID), zap.Error(err))
		b.respond(s, i, errorEmbed())
		return
	}

	b.respond(s, i, &discordgo.MessageEmbed{
		Color:       colorSuccess,
		Title:       "✅ Done",
		Description: "The link embed has been posted.",
		Footer:      &discordgo.MessageEmbedFooter{Text: embedFooter},
	})
}

// handleInfo shows a user's link data. Members can only inspect
// themselves; ManageServer can inspect anyone.
func (b *Bot) handleInfo(s *discordgo.Session, i *discordgo.InteractionCreate) {
	invoker := interactionUser(i)
	target := invoker

	sub := i.ApplicationCommandData().Options[0]
	for _, opt := range sub.Options {
		if opt.Name == "user" {
			target = opt.UserValue(s)
		}
	}

	isAdmin := hasManageServer(i)
	if target.ID != invoker.ID && !isAdmin {
		b.respond(s, i, deniedEmbed())
		return
	}

	ctx := userctx.WithActor(context.Background(), invoker.Username)
	record, err := b.links.GetLink(ctx, target.ID)
	if err != nil {
		b.log.Error("failed to fetch link info", zap.String("discord_id", target.ID), zap.Error(err))
		b.respond(s, i, errorEmbed())
		return
	}

	if !record.IsLinked() {
		b.respond(s, i, &discordgo.MessageEmbed{
			Color:       colorError,
			Title:       "❌ No link found",
			Description: fmt.Sprintf("**%s** has not linked a Steam account yet.", target.Username),
			Footer:      &discordgo.MessageEmbedFooter{Text: embedFooter},
		})
		return
	}

	embed := &discordgo.MessageEmbed{
		Color:  colorSuccess,
		Title:  "🔍 Link found",
		Footer: &discordgo.MessageEmbedFooter{Text: embedFooter},
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Steam name", Value: orPlaceholder(record.SteamName), Inline: true},
			{Name: "Linked", Value: fmt.Sprintf("<t:%d:F>", record.LinkedAt.Unix()), Inline: true},
			{Name: "Updated", Value: fmt.Sprintf("<t:%d:R>", record.UpdatedAt.Unix()), Inline: true},
		},
	}

	// Identifiers are admin-only; members just see names and timestamps.
	if isAdmin {
		embed.Fields = append(embed.Fields,
			&discordgo.MessageEmbedField{Name: "Discord ID", Value: fmt.Sprintf("||`%s`||", record.DiscordID), Inline: true},
			&discordgo.MessageEmbedField{Name: "Steam ID", Value: fmt.Sprintf("||`%s`||", record.SteamID), Inline: true},
		)
	}

	b.respond(s, i, embed)
}

// handleUnlink removes a user's binding. ManageServer only.
func (b *Bot) handleUnlink(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if !hasManageServer(i) {
		b.respond(s, i, deniedEmbed())
		return
	}

	var target *discordgo.User
	sub := i.ApplicationCommandData().Options[0]
	for _, opt := range sub.Options {
		if opt.Name == "user" {
			target = opt.UserValue(s)
		}
	}
	if target == nil {
		b.respond(s, i, errorEmbed())
		return
	}

	invoker := interactionUser(i)
	ctx := userctx.WithActor(context.Background(), invoker.Username)

	result := b.links.Unlink(ctx, target.ID)
	if !result.Success {
		if result.Error == models.ErrUserNotFound {
			b.respond(s, i, &discordgo.MessageEmbed{
				Color:       colorError,
				Title:       "❌ No link found",
				Description: fmt.Sprintf("**%s** has no linked account.", target.Username),
				Footer:      &discordgo.MessageEmbedFooter{Text: embedFooter},
			})
			return
		}
		b.respond(s, i, errorEmbed())
		return
	}

	b.respond(s, i, &discordgo.MessageEmbed{
		Color:       colorSuccess,
		Title:       "✅ Unlinked",
		Description: fmt.Sprintf("**%s** has been unlinked.", target.Username),
		Footer:      &discordgo.MessageEmbedFooter{Text: embedFooter},
	})
}

func (b *Bot) handleStats(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if !hasManageServer(i) {
		b.respond(s, i, deniedEmbed())
		return
	}

	stats, err := b.links.Stats(context.Background())
	if err != nil {
		b.log.Error("failed to fetch link stats", zap.Error(err))
		b.respond(s, i, errorEmbed())
		return
	}

	b.respond(s, i, &discordgo.MessageEmbed{
		Color:       colorPrimary,
		Title:       "📊 Synchronization stats",
		Description: fmt.Sprintf("**Total links:** %d\n**Verified:** %d", stats.Total, stats.Verified),
		Footer:      &discordgo.MessageEmbedFooter{Text: embedFooter},
	})
}

// respond replies ephemerally with a single embed.
func (b *Bot) respond(s *discordgo.Session, i *discordgo.InteractionCreate, embed *discordgo.MessageEmbed) {
	err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Flags:  discordgo.MessageFlagsEphemeral,
			Embeds: []*discordgo.MessageEmbed{embed},
		},
	})
	if err != nil {
		b.log.Error("failed to respond to interaction", zap.Error(err))
	}
}

func hasManageServer(i *discordgo.InteractionCreate) bool {
	return i.Member != nil && i.Member.Permissions&discordgo.PermissionManageServer != 0
}

func orPlaceholder(value string) string {
	if value == "" {
		return "N/A"
	}
	return value
}

func deniedEmbed() *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Color:       colorError,
		Title:       "🔒 Access denied",
		Description: "You do not have permission to do that.",
		Footer:      &discordgo.MessageEmbedFooter{Text: embedFooter},
	}
}

func errorEmbed() *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Color:       colorError,
		Title:       "⛔ Something went wrong",
		Description: "An unexpected error occurred. If the problem persists, contact a developer.",
		Footer:      &discordgo.MessageEmbedFooter{Text: embedFooter},
	}
}
