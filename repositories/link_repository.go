package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/mattn/go-sqlite3"
	"github.com/originrp/sentryn/models"
)

// ErrSteamIDTaken is returned when a bind would attach a Steam account
// that a different Discord account already owns. The unique constraint on
// steam_id is the source of truth; pre-checks are only an optimization.
var ErrSteamIDTaken = errors.New("steam id is already linked to another account")

// LinkRepository interface defines link record database operations
type LinkRepository interface {
	Upsert(ctx context.Context, record *models.LinkRecord) error
	GetByDiscordID(ctx context.Context, discordID string) (*models.LinkRecord, error)
	GetBySteamID(ctx context.Context, steamID string) (*models.LinkRecord, error)
	Delete(ctx context.Context, discordID string) error
	GetAll(ctx context.Context) ([]models.LinkRecord, error)
	Stats(ctx context.Context) (*models.LinkStats, error)
}

// linkRepository implements LinkRepository interface
type linkRepository struct {
	db *sql.DB
}

// NewLinkRepository creates a new link repository
func NewLinkRepository(db *sql.DB) LinkRepository {
	return &linkRepository{db: db}
}

// Upsert creates the link record for a Discord account or, when one
// already exists, updates it in place. A second record is never created
// for the same discord_id.
func (r *linkRepository) Upsert(ctx context.Context, record *models.LinkRecord) error {
	query := `
		INSERT INTO synchronization (discord_id, discord_username, steam_id, steam_name, linked_at, updated_at, is_verified)
		VALUES (?, ?, ?, ?, ?, ?, 1)
		ON CONFLICT(discord_id) DO UPDATE SET
			discord_username = excluded.discord_username,
			steam_id = excluded.steam_id,
			steam_name = excluded.steam_name,
			updated_at = excluded.updated_at,
			is_verified = 1
	`

	now := time.Now().UTC()
	if record.LinkedAt.IsZero() {
		record.LinkedAt = now
	}
	record.UpdatedAt = now
	record.IsVerified = true

	_, err := r.db.ExecContext(ctx, query,
		record.DiscordID,
		record.DiscordUsername,
		record.SteamID,
		record.SteamName,
		record.LinkedAt,
		record.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrSteamIDTaken
		}
		return fmt.Errorf("failed to upsert link record: %w", err)
	}

	return nil
}

// GetByDiscordID retrieves the link record for a Discord account, or nil
// when the account has never linked.
func (r *linkRepository) GetByDiscordID(ctx context.Context, discordID string) (*models.LinkRecord, error) {
	query := `
		SELECT id, discord_id, discord_username, steam_id, steam_name, linked_at, updated_at, is_verified
		FROM synchronization
		WHERE discord_id = ?
		LIMIT 1
	`

	record, err := r.scanRecord(r.db.QueryRowContext(ctx, query, discordID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get link record: %w", err)
	}

	return record, nil
}

// GetBySteamID retrieves the link record owning a Steam account, or nil.
func (r *linkRepository) GetBySteamID(ctx context.Context, steamID string) (*models.LinkRecord, error) {
	query := `
		SELECT id, discord_id, discord_username, steam_id, steam_name, linked_at, updated_at, is_verified
		FROM synchronization
		WHERE steam_id = ?
		LIMIT 1
	`

	record, err := r.scanRecord(r.db.QueryRowContext(ctx, query, steamID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get link record by steam id: %w", err)
	}

	return record, nil
}

// Delete removes the link record for a Discord account.
func (r *linkRepository) Delete(ctx context.Context, discordID string) error {
	query := `DELETE FROM synchronization WHERE discord_id = ?`

	result, err := r.db.ExecContext(ctx, query, discordID)
	if err != nil {
		return fmt.Errorf("failed to delete link record: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("link record for %s not found", discordID)
	}

	return nil
}

// GetAll retrieves every link record, newest first.
func (r *linkRepository) GetAll(ctx context.Context) ([]models.LinkRecord, error) {
	query := `
		SELECT id, discord_id, discord_username, steam_id, steam_name, linked_at, updated_at, is_verified
		FROM synchronization
		ORDER BY linked_at DESC
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query link records: %w", err)
	}
	defer rows.Close()

	var records []models.LinkRecord
	for rows.Next() {
		var record models.LinkRecord
		var steamID, steamName sql.NullString

		err := rows.Scan(
			&record.ID,
			&record.DiscordID,
			&record.DiscordUsername,
			&steamID,
			&steamName,
			&record.LinkedAt,
			&record.UpdatedAt,
			&record.IsVerified,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan link record: %w", err)
		}

		record.SteamID = steamID.String
		record.SteamName = steamName.String
		records = append(records, record)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating link records: %w", err)
	}

	return records, nil
}

// Stats returns totals for the admin surface.
func (r *linkRepository) Stats(ctx context.Context) (*models.LinkStats, error) {
	var stats models.LinkStats

	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM synchronization`).Scan(&stats.Total)
	if err != nil {
		return nil, fmt.Errorf("failed to count link records: %w", err)
	}

	err = r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM synchronization WHERE is_verified = 1`).Scan(&stats.Verified)
	if err != nil {
		return nil, fmt.Errorf("failed to count verified records: %w", err)
	}

	return &stats, nil
}

func (r *linkRepository) scanRecord(row *sql.Row) (*models.LinkRecord, error) {
	var record models.LinkRecord
	var steamID, steamName sql.NullString

	err := row.Scan(
		&record.ID,
		&record.DiscordID,
		&record.DiscordUsername,
		&steamID,
		&steamName,
		&record.LinkedAt,
		&record.UpdatedAt,
		&record.IsVerified,
	)
	if err != nil {
		return nil, err
	}

	record.SteamID = steamID.String
	record.SteamName = steamName.String
	return &record, nil
}

// isUniqueViolation reports whether err is a SQLite unique constraint error.
func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique
	}
	return false
}
