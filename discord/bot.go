package discord

import (
	"fmt"

	"github.com/bwmarrin/discordgo"
	"github.com/originrp/sentryn/config"
	"github.com/originrp/sentryn/logger"
	"github.com/originrp/sentryn/services"
	"go.uber.org/zap"
)

// Bot owns the Discord gateway session and routes interactions to the link
// service.
type Bot struct {
	session *discordgo.Session
	cfg     *config.Config
	links   services.LinkService
	log     *zap.Logger
}

// NewBot creates the bot without connecting. Call Start to open the
// gateway session and register commands.
func NewBot(cfg *config.Config, links services.LinkService) (*Bot, error) {
	session, err := discordgo.New("Bot " + cfg.DiscordToken)
	if err != nil {
		return nil, fmt.Errorf("failed to create discord session: %w", err)
	}

	session.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildMembers |
		discordgo.IntentsGuildMessages

	bot := &Bot{
		session: session,
		cfg:     cfg,
		links:   links,
		log:     logger.Named("discord"),
	}

	session.AddHandler(bot.onReady)
	session.AddHandler(bot.onInteraction)
	session.AddHandler(bot.onGuildMemberAdd)

	return bot, nil
}

// SetLinkService wires the link coordinator in after construction. The
// role synchronizer needs the bot's session, and the coordinator needs the
// synchronizer, so the bot is built first and completed here before Start.
func (b *Bot) SetLinkService(links services.LinkService) {
	b.links = links
}

// Start opens the gateway connection. Slash commands are registered from
// the ready handler once the session knows its application id.
func (b *Bot) Start() error {
	if err := b.session.Open(); err != nil {
		return fmt.Errorf("failed to open discord session: %w", err)
	}
	return nil
}

// Stop closes the gateway connection.
func (b *Bot) Stop() error {
	return b.session.Close()
}

// Session exposes the underlying gateway session for collaborators that
// share it (role synchronizer, webhook notifier).
func (b *Bot) Session() *discordgo.Session {
	return b.session
}

func (b *Bot) onReady(s *discordgo.Session, _ *discordgo.Ready) {
	b.log.Info("discord session ready",
		zap.String("user", s.State.User.Username),
		zap.Int("guilds", len(s.State.Guilds)))

	if err := b.registerCommands(); err != nil {
		b.log.Error("failed to register commands", zap.Error(err))
	}
}

func (b *Bot) onInteraction(s *discordgo.Session, i *discordgo.InteractionCreate) {
	switch i.Type {
	case discordgo.InteractionApplicationCommand:
		b.handleCommand(s, i)
	case discordgo.InteractionMessageComponent:
		b.handleButton(s, i)
	}
}

// onGuildMemberAdd tags newcomers with the unverified role so the link
// prompt gates them until they complete synchronization.
func (b *Bot) onGuildMemberAdd(s *discordgo.Session, m *discordgo.GuildMemberAdd) {
	roles, ok := b.cfg.Guilds.RolesFor(m.GuildID)
	if !ok || roles.UnverifiedRole == "" {
		return
	}

	if err := s.GuildMemberRoleAdd(m.GuildID, m.User.ID, roles.UnverifiedRole); err != nil {
		b.log.Error("failed to add unverified role to new member",
			zap.String("guild_id", m.GuildID),
			zap.String("user_id", m.User.ID),
			zap.Error(err))
		return
	}

	b.log.Info("unverified role added to new member",
		zap.String("guild_id", m.GuildID),
		zap.String("user", m.User.Username))
}

// interactionUser returns the invoking user for both guild and DM
// interactions.
func interactionUser(i *discordgo.InteractionCreate) *discordgo.User {
	if i.Member != nil && i.Member.User != nil {
		return i.Member.User
	}
	return i.User
}
