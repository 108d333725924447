package models

import "time"

// Audit event types recorded by the link flow.
const (
	AuditTokenIssued  = "token_issued"
	AuditLinkComplete = "link_completed"
	AuditLinkFailed   = "link_failed"
	AuditUnlink       = "unlink"
)

// AuditLogEntry represents a single link-flow event in the operational log.
// User-facing surfaces only ever report generic denials; the detail lives
// here.
type AuditLogEntry struct {
	ID        int64
	Timestamp time.Time
	EventType string
	Actor     string
	DiscordID string
	SteamID   string
	Detail    string
}
