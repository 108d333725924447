package controllers

import (
	"database/sql"

	"github.com/originrp/sentryn/config"
	"github.com/originrp/sentryn/repositories"
	"github.com/originrp/sentryn/services"
	"github.com/originrp/sentryn/steam"
)

// Controllers holds all controller instances
type Controllers struct {
	Auth   *AuthController
	Health *HealthController
	Pages  *PagesController
}

// NewControllers creates and initializes all controller instances
func NewControllers(cfg *config.Config, db *sql.DB, repos *repositories.Repositories, svcs *services.Services, verifier steam.Verifier) *Controllers {
	return &Controllers{
		Auth:   NewAuthController(cfg, repos.Token, svcs.Link, verifier),
		Health: NewHealthController(db),
		Pages:  NewPagesController(),
	}
}
