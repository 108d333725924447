package repositories

import (
	"database/sql"
)

// Repositories struct holds all repository interfaces
type Repositories struct {
	Link  LinkRepository
	Token TokenRepository
	Audit AuditRepository
}

// NewRepositories creates and initializes all repositories
func NewRepositories(db *sql.DB) *Repositories {
	return &Repositories{
		Link:  NewLinkRepository(db),
		Token: NewTokenRepository(db),
		Audit: NewAuditRepository(db),
	}
}
