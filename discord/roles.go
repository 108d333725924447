package discord

import (
	"context"

	"github.com/bwmarrin/discordgo"
	"github.com/originrp/sentryn/config"
	"github.com/originrp/sentryn/logger"
	"go.uber.org/zap"
)

// RoleSynchronizer flips the verified/unverified roles on every configured
// guild after a bind. It is idempotent and never fails a bind: membership
// gaps and permission errors are logged and skipped.
type RoleSynchronizer struct {
	session *discordgo.Session
	guilds  *config.GuildConfig
	log     *zap.Logger
}

// NewRoleSynchronizer wraps an open gateway session.
func NewRoleSynchronizer(session *discordgo.Session, guilds *config.GuildConfig) *RoleSynchronizer {
	return &RoleSynchronizer{
		session: session,
		guilds:  guilds,
		log:     logger.Named("roles"),
	}
}

// Synchronize grants the verified role and removes the unverified role on
// every guild the user belongs to. Returns the last error seen so callers
// can log a partial failure, but partial application is acceptable.
func (r *RoleSynchronizer) Synchronize(ctx context.Context, discordID, discordUsername string) error {
	var lastErr error

	for guildID, roles := range r.guilds.Servers {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		member, err := r.session.GuildMember(guildID, discordID)
		if err != nil {
			if isUnknownMember(err) {
				continue
			}
			r.log.Warn("failed to fetch guild member",
				zap.String("guild_id", guildID),
				zap.String("discord_id", discordID),
				zap.Error(err))
			lastErr = err
			continue
		}

		if roles.UnverifiedRole != "" && hasRole(member, roles.UnverifiedRole) {
			if err := r.session.GuildMemberRoleRemove(guildID, discordID, roles.UnverifiedRole); err != nil {
				r.log.Warn("failed to remove unverified role",
					zap.String("guild_id", guildID),
					zap.String("discord_id", discordID),
					zap.Error(err))
				lastErr = err
			}
		}

		if roles.VerifiedRole != "" && !hasRole(member, roles.VerifiedRole) {
			if err := r.session.GuildMemberRoleAdd(guildID, discordID, roles.VerifiedRole); err != nil {
				r.log.Warn("failed to add verified role",
					zap.String("guild_id", guildID),
					zap.String("discord_id", discordID),
					zap.Error(err))
				lastErr = err
				continue
			}
			r.log.Info("verified role granted",
				zap.String("guild_id", guildID),
				zap.String("user", discordUsername))
		}
	}

	return lastErr
}

func hasRole(member *discordgo.Member, roleID string) bool {
	for _, id := range member.Roles {
		if id == roleID {
			return true
		}
	}
	return false
}

func isUnknownMember(err error) bool {
	restErr, ok := err.(*discordgo.RESTError)
	return ok && restErr.Message != nil && restErr.Message.Code == discordgo.ErrCodeUnknownMember
}
