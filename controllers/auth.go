package controllers

import (
	"encoding/json"
	"net/http"

	"github.com/originrp/sentryn/config"
	"github.com/originrp/sentryn/logger"
	"github.com/originrp/sentryn/repositories"
	"github.com/originrp/sentryn/services"
	"github.com/originrp/sentryn/sessions"
	"github.com/originrp/sentryn/steam"
	"go.uber.org/zap"
)

// AuthController drives the browser half of the link flow: token entry,
// redirect to Steam, assertion callback, session inspection, logout.
type AuthController struct {
	cfg      *config.Config
	tokens   repositories.TokenRepository
	links    services.LinkService
	verifier steam.Verifier
	log      *zap.Logger
}

func NewAuthController(cfg *config.Config, tokens repositories.TokenRepository, links services.LinkService, verifier steam.Verifier) *AuthController {
	return &AuthController{
		cfg:      cfg,
		tokens:   tokens,
		links:    links,
		verifier: verifier,
		log:      logger.Named("auth"),
	}
}

// InitiateLink redeems the token query parameter into session progress and
// redirects to Steam. Every token failure renders the same not-found page;
// the cause is only in the operational log.
func (ac *AuthController) InitiateLink(w http.ResponseWriter, r *http.Request) {
	tokenValue := r.URL.Query().Get("token")

	token, err := ac.tokens.Validate(r.Context(), tokenValue)
	if err != nil {
		ac.log.Warn("link initiation with unusable token", zap.Error(err))
		renderNotFound(w)
		return
	}

	state := sessions.FromRequest(r)
	if err := state.SetPending(token.Token, token.DiscordID, token.DiscordUsername); err != nil {
		ac.log.Error("failed to record session progress", zap.Error(err))
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	returnTo := ac.cfg.WebURL + "/auth/steam/callback"
	http.Redirect(w, r, ac.verifier.BuildLoginURL(ac.cfg.WebURL, returnTo), http.StatusTemporaryRedirect)
}

// SteamCallback receives the OpenID assertion. The pending token comes
// from the session, never from the query string, so a forged callback
// cannot attach someone else's token.
func (ac *AuthController) SteamCallback(w http.ResponseWriter, r *http.Request) {
	state := sessions.FromRequest(r)

	result := ac.links.ProcessCallback(r.Context(), state.Token(), r.URL.Query())
	if !result.Success {
		ac.log.Warn("link callback rejected",
			zap.String("discord_id", state.DiscordID()),
			zap.String("reason", string(result.Error)))
		renderNotFound(w)
		return
	}

	if err := state.SetSteamIdentity(result.Record.SteamID, result.Record.SteamName); err != nil {
		ac.log.Error("failed to record steam identity in session", zap.Error(err))
	}

	http.Redirect(w, r, "/success", http.StatusSeeOther)
}

// Session reports the session's link progress as JSON.
func (ac *AuthController) Session(w http.ResponseWriter, r *http.Request) {
	state := sessions.FromRequest(r)

	w.Header().Set("Content-Type", "application/json")

	if !state.HasDiscordIdentity() {
		w.WriteHeader(http.StatusUnauthorized)
		json.NewEncoder(w).Encode(map[string]any{"authenticated": false})
		return
	}

	json.NewEncoder(w).Encode(map[string]any{
		"authenticated":    true,
		"discord_id":       state.DiscordID(),
		"discord_username": state.DiscordUsername(),
		"steam_id":         state.SteamID(),
		"steam_name":       state.SteamName(),
		"linked":           state.HasCompletedLink(),
	})
}

// Logout destroys the session.
func (ac *AuthController) Logout(w http.ResponseWriter, r *http.Request) {
	if err := sessions.FromRequest(r).Destroy(w, r); err != nil {
		ac.log.Error("failed to destroy session", zap.Error(err))
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{"success": true})
}
