package services

import (
	"context"
	"errors"
	"net/url"

	"github.com/originrp/sentryn/logger"
	"github.com/originrp/sentryn/metrics"
	"github.com/originrp/sentryn/models"
	"github.com/originrp/sentryn/repositories"
	"github.com/originrp/sentryn/steam"
	"go.uber.org/zap"
)

// LinkService owns the link state machine: issue token, redeem callback,
// bind, consume, synchronize. Every public operation returns a tagged
// result; unexpected faults never escape as panics.
type LinkService interface {
	CreateLinkToken(ctx context.Context, discordID, discordUsername string) *models.TokenResult
	ProcessCallback(ctx context.Context, token string, params url.Values) *models.CallbackResult
	Unlink(ctx context.Context, discordID string) *models.UnlinkResult
	GetLink(ctx context.Context, discordID string) (*models.LinkRecord, error)
	CheckLink(ctx context.Context, discordID string) (*models.LinkRecord, error)
	Stats(ctx context.Context) (*models.LinkStats, error)
	PurgeTokens(ctx context.Context) (int64, error)
}

type linkService struct {
	links    repositories.LinkRepository
	tokens   repositories.TokenRepository
	audit    repositories.AuditRepository
	verifier steam.Verifier
	roles    RoleSynchronizer
	notifier Notifier
	log      *zap.Logger
}

// NewLinkService creates the link coordinator with its collaborators.
// notifier may be nil when no webhook is configured.
func NewLinkService(
	links repositories.LinkRepository,
	tokens repositories.TokenRepository,
	audit repositories.AuditRepository,
	verifier steam.Verifier,
	roles RoleSynchronizer,
	notifier Notifier,
) LinkService {
	return &linkService{
		links:    links,
		tokens:   tokens,
		audit:    audit,
		verifier: verifier,
		roles:    roles,
		notifier: notifier,
		log:      logger.Named("link"),
	}
}

// CreateLinkToken starts a link attempt for a Discord account. Initiation
// is idempotent: while an active token exists, repeat calls return it
// instead of minting another.
func (s *linkService) CreateLinkToken(ctx context.Context, discordID, discordUsername string) *models.TokenResult {
	existing, err := s.links.GetByDiscordID(ctx, discordID)
	if err != nil {
		s.log.Error("failed to look up existing link", zap.String("discord_id", discordID), zap.Error(err))
		return &models.TokenResult{Error: models.ErrTokenCreationFailed}
	}

	if existing.IsLinked() {
		return &models.TokenResult{Error: models.ErrAlreadyLinked, Existing: existing}
	}

	active, err := s.tokens.GetActiveByDiscordID(ctx, discordID)
	if err != nil {
		s.log.Error("failed to look up active token", zap.String("discord_id", discordID), zap.Error(err))
		return &models.TokenResult{Error: models.ErrTokenCreationFailed}
	}
	if active != nil {
		return &models.TokenResult{Success: true, Token: active}
	}

	token, err := s.tokens.Create(ctx, discordID, discordUsername)
	if err != nil {
		s.log.Error("failed to create link token", zap.String("discord_id", discordID), zap.Error(err))
		return &models.TokenResult{Error: models.ErrTokenCreationFailed}
	}

	metrics.TokensIssued.Inc()
	s.recordAudit(ctx, &models.AuditLogEntry{
		EventType: models.AuditTokenIssued,
		DiscordID: discordID,
	})

	s.log.Info("link token issued",
		zap.String("discord_id", discordID),
		zap.Time("expires_at", token.ExpiresAt))

	return &models.TokenResult{Success: true, Token: token}
}

// ProcessCallback redeems a token against a Steam assertion. The token is
// consumed only on the one successful path; any refusal before that leaves
// it usable so a legitimate retry stays possible.
func (s *linkService) ProcessCallback(ctx context.Context, tokenValue string, params url.Values) *models.CallbackResult {
	tokenData, err := s.tokens.Validate(ctx, tokenValue)
	if errors.Is(err, repositories.ErrTokenNotUsable) {
		return s.refuse(ctx, models.ErrInvalidToken, "", "token not usable")
	}
	if err != nil {
		s.log.Error("token validation failed", zap.Error(err))
		return s.refuse(ctx, models.ErrLinkProcessFailed, "", "token validation error")
	}

	valid, err := s.verifier.VerifyAssertion(ctx, params)
	if err != nil {
		s.log.Error("openid verification error", zap.String("discord_id", tokenData.DiscordID), zap.Error(err))
		return s.refuse(ctx, models.ErrSteamVerificationFailed, tokenData.DiscordID, "verification round trip failed")
	}
	if !valid {
		s.log.Warn("openid assertion rejected by provider", zap.String("discord_id", tokenData.DiscordID))
		return s.refuse(ctx, models.ErrSteamVerificationFailed, tokenData.DiscordID, "provider rejected assertion")
	}

	steamID, ok := s.verifier.ExtractSteamID(params.Get("openid.claimed_id"))
	if !ok {
		return s.refuse(ctx, models.ErrInvalidSteamID, tokenData.DiscordID, "unparseable claimed id")
	}

	owner, err := s.links.GetBySteamID(ctx, steamID)
	if err != nil {
		s.log.Error("failed to check steam ownership", zap.String("steam_id", steamID), zap.Error(err))
		return s.refuse(ctx, models.ErrLinkProcessFailed, tokenData.DiscordID, "ownership lookup error")
	}
	if owner != nil && owner.DiscordID != tokenData.DiscordID {
		s.log.Warn("steam account already bound elsewhere",
			zap.String("discord_id", tokenData.DiscordID),
			zap.String("steam_id", steamID))
		return s.refuse(ctx, models.ErrSteamAlreadyLinked, tokenData.DiscordID, "steam id owned by another account")
	}

	// Best-effort enrichment: a missing profile never blocks the bind.
	var steamName string
	profile, err := s.verifier.GetPlayerSummary(ctx, steamID)
	if err != nil {
		s.log.Warn("profile fetch failed", zap.String("steam_id", steamID), zap.Error(err))
	} else if profile != nil {
		steamName = profile.Name
	}

	record := &models.LinkRecord{
		DiscordID:       tokenData.DiscordID,
		DiscordUsername: tokenData.DiscordUsername,
		SteamID:         steamID,
		SteamName:       steamName,
	}

	if err := s.links.Upsert(ctx, record); err != nil {
		if errors.Is(err, repositories.ErrSteamIDTaken) {
			return s.refuse(ctx, models.ErrSteamAlreadyLinked, tokenData.DiscordID, "steam id unique constraint")
		}
		s.log.Error("failed to write link record", zap.String("discord_id", tokenData.DiscordID), zap.Error(err))
		return s.refuse(ctx, models.ErrLinkProcessFailed, tokenData.DiscordID, "record write error")
	}

	// Atomic consume: under concurrent redemption only one caller lands
	// here with a still-unconsumed token.
	if err := s.tokens.Consume(ctx, tokenValue); err != nil {
		if errors.Is(err, repositories.ErrTokenNotUsable) {
			return s.refuse(ctx, models.ErrInvalidToken, tokenData.DiscordID, "token consumed concurrently")
		}
		s.log.Error("failed to consume token", zap.String("discord_id", tokenData.DiscordID), zap.Error(err))
		return s.refuse(ctx, models.ErrLinkProcessFailed, tokenData.DiscordID, "token consume error")
	}

	metrics.LinksCompleted.Inc()
	s.recordAudit(ctx, &models.AuditLogEntry{
		EventType: models.AuditLinkComplete,
		DiscordID: record.DiscordID,
		SteamID:   record.SteamID,
	})

	s.log.Info("link completed",
		zap.String("discord_id", record.DiscordID),
		zap.String("steam_id", record.SteamID))

	// Role propagation is decoupled from the bind: the bind above is
	// durable even when synchronization fails, and a later check re-runs
	// it idempotently.
	if err := s.roles.Synchronize(ctx, record.DiscordID, record.DiscordUsername); err != nil {
		s.log.Warn("role synchronization failed", zap.String("discord_id", record.DiscordID), zap.Error(err))
	}

	if s.notifier != nil {
		s.notifier.LinkCompleted(ctx, record)
	}

	return &models.CallbackResult{Success: true, Record: record}
}

// Unlink removes a user's binding and every token they own. Privileged
// callers only; the HTTP surface never exposes it.
func (s *linkService) Unlink(ctx context.Context, discordID string) *models.UnlinkResult {
	record, err := s.links.GetByDiscordID(ctx, discordID)
	if err != nil {
		s.log.Error("failed to look up link for unlink", zap.String("discord_id", discordID), zap.Error(err))
		return &models.UnlinkResult{Error: models.ErrUnlinkFailed}
	}
	if record == nil {
		return &models.UnlinkResult{Error: models.ErrUserNotFound}
	}

	if err := s.links.Delete(ctx, discordID); err != nil {
		s.log.Error("failed to delete link record", zap.String("discord_id", discordID), zap.Error(err))
		return &models.UnlinkResult{Error: models.ErrUnlinkFailed}
	}

	if err := s.tokens.DeleteByDiscordID(ctx, discordID); err != nil {
		s.log.Error("failed to delete tokens on unlink", zap.String("discord_id", discordID), zap.Error(err))
		return &models.UnlinkResult{Error: models.ErrUnlinkFailed}
	}

	s.recordAudit(ctx, &models.AuditLogEntry{
		EventType: models.AuditUnlink,
		DiscordID: discordID,
		SteamID:   record.SteamID,
	})

	s.log.Info("user unlinked", zap.String("discord_id", discordID))

	if s.notifier != nil {
		s.notifier.Unlinked(ctx, record)
	}

	return &models.UnlinkResult{Success: true, Removed: record}
}

// GetLink fetches the binding for a Discord account, nil when not linked.
func (s *linkService) GetLink(ctx context.Context, discordID string) (*models.LinkRecord, error) {
	return s.links.GetByDiscordID(ctx, discordID)
}

// CheckLink reports the binding for a Discord account and, when one
// exists, re-runs role synchronization. This is the retry vehicle for a
// sync that failed at bind time: the check is user-triggered, idempotent,
// and a sync failure still returns the record.
func (s *linkService) CheckLink(ctx context.Context, discordID string) (*models.LinkRecord, error) {
	record, err := s.links.GetByDiscordID(ctx, discordID)
	if err != nil || !record.IsLinked() {
		return record, err
	}

	if err := s.roles.Synchronize(ctx, record.DiscordID, record.DiscordUsername); err != nil {
		s.log.Warn("role synchronization failed on check", zap.String("discord_id", record.DiscordID), zap.Error(err))
	}

	return record, nil
}

// Stats returns link table totals.
func (s *linkService) Stats(ctx context.Context) (*models.LinkStats, error) {
	return s.links.Stats(ctx)
}

// PurgeTokens removes expired and consumed tokens. The purge predicate is
// disjoint from "active", so binds running concurrently are unaffected.
func (s *linkService) PurgeTokens(ctx context.Context) (int64, error) {
	deleted, err := s.tokens.PurgeExpiredOrConsumed(ctx)
	if err != nil {
		return 0, err
	}

	if deleted > 0 {
		metrics.TokensPurged.Add(float64(deleted))
		s.log.Info("purged dead tokens", zap.Int64("count", deleted))
	}

	return deleted, nil
}

// refuse records a failed attempt and returns the tagged result.
func (s *linkService) refuse(ctx context.Context, code models.LinkError, discordID, detail string) *models.CallbackResult {
	metrics.LinkFailures.WithLabelValues(string(code)).Inc()
	s.recordAudit(ctx, &models.AuditLogEntry{
		EventType: models.AuditLinkFailed,
		DiscordID: discordID,
		Detail:    detail,
	})
	return &models.CallbackResult{Error: code}
}

func (s *linkService) recordAudit(ctx context.Context, entry *models.AuditLogEntry) {
	if err := s.audit.Create(ctx, entry); err != nil {
		s.log.Warn("failed to write audit entry", zap.String("event", entry.EventType), zap.Error(err))
	}
}
