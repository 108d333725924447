package discord

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/originrp/sentryn/logger"
	"github.com/originrp/sentryn/models"
	"go.uber.org/zap"
)

// WebhookNotifier publishes link lifecycle events to a Discord webhook.
// All sends are best-effort; failures are logged and dropped.
type WebhookNotifier struct {
	session *discordgo.Session
	id      string
	token   string
	log     *zap.Logger
}

// NewWebhookNotifier parses a full webhook URL as copied from the Discord
// channel settings. Returns nil with an error for malformed URLs.
func NewWebhookNotifier(session *discordgo.Session, webhookURL string) (*WebhookNotifier, error) {
	id, token, err := parseWebhookURL(webhookURL)
	if err != nil {
		return nil, err
	}
	return &WebhookNotifier{
		session: session,
		id:      id,
		token:   token,
		log:     logger.Named("webhook"),
	}, nil
}

// LinkCompleted announces a freshly confirmed bind.
func (n *WebhookNotifier) LinkCompleted(ctx context.Context, record *models.LinkRecord) {
	n.send(ctx, &discordgo.MessageEmbed{
		Color: colorSuccess,
		Title: "🔗 Account linked",
		Description: fmt.Sprintf("**%s** linked their Steam account **%s**.",
			record.DiscordUsername, orPlaceholder(record.SteamName)),
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Footer:    &discordgo.MessageEmbedFooter{Text: embedFooter},
	})
}

// Unlinked announces a removed bind.
func (n *WebhookNotifier) Unlinked(ctx context.Context, record *models.LinkRecord) {
	n.send(ctx, &discordgo.MessageEmbed{
		Color: colorError,
		Title: "🔓 Account unlinked",
		Description: fmt.Sprintf("**%s** is no longer linked to **%s**.",
			record.DiscordUsername, orPlaceholder(record.SteamName)),
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Footer:    &discordgo.MessageEmbedFooter{Text: embedFooter},
	})
}

func (n *WebhookNotifier) send(ctx context.Context, embed *discordgo.MessageEmbed) {
	_, err := n.session.WebhookExecute(n.id, n.token, false, &discordgo.WebhookParams{
		Embeds: []*discordgo.MessageEmbed{embed},
	}, discordgo.WithContext(ctx))
	if err != nil {
		n.log.Warn("failed to execute webhook", zap.Error(err))
	}
}

// parseWebhookURL extracts the id and token from a Discord webhook URL of
// the form https://discord.com/api/webhooks/<id>/<token>.
func parseWebhookURL(raw string) (id, token string, err error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", "", fmt.Errorf("invalid webhook url: %w", err)
	}

	// Expected path suffix: .../webhooks/<id>/<token>
	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	for idx, part := range parts {
		if part != "webhooks" {
			continue
		}
		if idx+2 >= len(parts) || parts[idx+1] == "" || parts[idx+2] == "" {
			return "", "", fmt.Errorf("webhook url missing id or token: %s", raw)
		}
		return parts[idx+1], parts[idx+2], nil
	}

	return "", "", fmt.Errorf("not a discord webhook url: %s", raw)
}
