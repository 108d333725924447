package repositories

import (
	"context"
	"database/sql"
	"time"

	"github.com/originrp/sentryn/models"
	"github.com/originrp/sentryn/userctx"
)

// AuditRepository handles the link-flow operational log
type AuditRepository interface {
	Create(ctx context.Context, entry *models.AuditLogEntry) error
}

type sqliteAuditRepository struct {
	db *sql.DB
}

// NewAuditRepository creates a new audit repository
func NewAuditRepository(db *sql.DB) AuditRepository {
	return &sqliteAuditRepository{db: db}
}

// Create inserts a new audit log entry. The actor is taken from the
// context when the entry does not carry one.
func (r *sqliteAuditRepository) Create(ctx context.Context, entry *models.AuditLogEntry) error {
	query := `
		INSERT INTO audit_log (timestamp, event_type, actor, discord_id, steam_id, detail)
		VALUES (?, ?, ?, ?, ?, ?)
	`

	actor := entry.Actor
	if actor == "" {
		actor = userctx.Actor(ctx)
	}

	_, err := r.db.ExecContext(
		ctx,
		query,
		time.Now().UTC(),
		entry.EventType,
		actor,
		entry.DiscordID,
		entry.SteamID,
		entry.Detail,
	)

	return err
}
