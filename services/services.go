package services

import (
	"context"

	"github.com/originrp/sentryn/models"
	"github.com/originrp/sentryn/repositories"
	"github.com/originrp/sentryn/steam"
)

// RoleSynchronizer applies the access-role changes a bind implies on the
// chat platform. Implementations are idempotent and best-effort: a failure
// never invalidates an already-committed bind.
type RoleSynchronizer interface {
	Synchronize(ctx context.Context, discordID, discordUsername string) error
}

// Notifier publishes link lifecycle events to an external channel
// (a Discord webhook in production). Best-effort only.
type Notifier interface {
	LinkCompleted(ctx context.Context, record *models.LinkRecord)
	Unlinked(ctx context.Context, record *models.LinkRecord)
}

// Services holds all service instances
type Services struct {
	Link LinkService
}

// NewServices creates and initializes all service instances
func NewServices(repos *repositories.Repositories, verifier steam.Verifier, roles RoleSynchronizer, notifier Notifier) *Services {
	return &Services{
		Link: NewLinkService(repos.Link, repos.Token, repos.Audit, verifier, roles, notifier),
	}
}
