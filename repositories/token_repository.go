package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/originrp/sentryn/models"
)

// ErrTokenNotUsable is returned when a token is missing, expired, or
// already consumed. The causes are deliberately collapsed so a caller
// probing the endpoint cannot enumerate token states.
var ErrTokenNotUsable = errors.New("token is not usable")

// TokenRepository interface defines link token database operations
type TokenRepository interface {
	Create(ctx context.Context, discordID, discordUsername string) (*models.LinkToken, error)
	GetActiveByDiscordID(ctx context.Context, discordID string) (*models.LinkToken, error)
	Validate(ctx context.Context, token string) (*models.LinkToken, error)
	Consume(ctx context.Context, token string) error
	PurgeExpiredOrConsumed(ctx context.Context) (int64, error)
	DeleteByDiscordID(ctx context.Context, discordID string) error
}

// tokenRepository implements TokenRepository interface
type tokenRepository struct {
	db *sql.DB
}

// NewTokenRepository creates a new token repository
func NewTokenRepository(db *sql.DB) TokenRepository {
	return &tokenRepository{db: db}
}

// Create issues a fresh single-use token for the given Discord account.
func (r *tokenRepository) Create(ctx context.Context, discordID, discordUsername string) (*models.LinkToken, error) {
	query := `
		INSERT INTO synchronization_token (discord_id, discord_username, token, expires_at, used, created_at)
		VALUES (?, ?, ?, ?, 0, ?)
	`

	now := time.Now().UTC()
	token := &models.LinkToken{
		DiscordID:       discordID,
		DiscordUsername: discordUsername,
		Token:           uuid.NewString(),
		ExpiresAt:       now.Add(models.TokenTTL),
		CreatedAt:       now,
	}

	result, err := r.db.ExecContext(ctx, query,
		token.DiscordID,
		token.DiscordUsername,
		token.Token,
		token.ExpiresAt,
		token.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create link token: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to get inserted ID: %w", err)
	}

	token.ID = id
	return token, nil
}

// GetActiveByDiscordID returns the most recent unconsumed, unexpired token
// for a Discord account, or nil when none exists.
func (r *tokenRepository) GetActiveByDiscordID(ctx context.Context, discordID string) (*models.LinkToken, error) {
	query := `
		SELECT id, discord_id, discord_username, token, expires_at, used, created_at
		FROM synchronization_token
		WHERE discord_id = ? AND used = 0 AND expires_at > ?
		ORDER BY expires_at DESC
		LIMIT 1
	`

	token, err := r.scanToken(r.db.QueryRowContext(ctx, query, discordID, time.Now().UTC()))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get active token: %w", err)
	}

	return token, nil
}

// Validate returns the token only while it is unconsumed and unexpired.
// Missing, expired, and consumed tokens all surface as ErrTokenNotUsable.
func (r *tokenRepository) Validate(ctx context.Context, tokenValue string) (*models.LinkToken, error) {
	query := `
		SELECT id, discord_id, discord_username, token, expires_at, used, created_at
		FROM synchronization_token
		WHERE token = ? AND used = 0 AND expires_at > ?
		LIMIT 1
	`

	token, err := r.scanToken(r.db.QueryRowContext(ctx, query, tokenValue, time.Now().UTC()))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrTokenNotUsable
	}
	if err != nil {
		return nil, fmt.Errorf("failed to validate token: %w", err)
	}

	return token, nil
}

// Consume marks the token as used. The conditional update makes the
// check-and-mark atomic: under concurrent redemption exactly one caller
// succeeds and every other caller gets ErrTokenNotUsable.
func (r *tokenRepository) Consume(ctx context.Context, tokenValue string) error {
	query := `
		UPDATE synchronization_token
		SET used = 1
		WHERE token = ? AND used = 0 AND expires_at > ?
	`

	result, err := r.db.ExecContext(ctx, query, tokenValue, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to consume token: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return ErrTokenNotUsable
	}

	return nil
}

// PurgeExpiredOrConsumed bulk-deletes dead tokens. The predicate is
// disjoint from "active", so the purge is safe to run alongside binds.
func (r *tokenRepository) PurgeExpiredOrConsumed(ctx context.Context) (int64, error) {
	query := `DELETE FROM synchronization_token WHERE expires_at < ? OR used = 1`

	result, err := r.db.ExecContext(ctx, query, time.Now().UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to purge tokens: %w", err)
	}

	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return deleted, nil
}

// DeleteByDiscordID removes every token owned by a Discord account.
func (r *tokenRepository) DeleteByDiscordID(ctx context.Context, discordID string) error {
	query := `DELETE FROM synchronization_token WHERE discord_id = ?`

	if _, err := r.db.ExecContext(ctx, query, discordID); err != nil {
		return fmt.Errorf("failed to delete tokens for user: %w", err)
	}

	return nil
}

func (r *tokenRepository) scanToken(row *sql.Row) (*models.LinkToken, error) {
	var token models.LinkToken
	err := row.Scan(
		&token.ID,
		&token.DiscordID,
		&token.DiscordUsername,
		&token.Token,
		&token.ExpiresAt,
		&token.Used,
		&token.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &token, nil
}
