package models

import (
	"time"
)

// TokenTTL is how long a link token stays redeemable after issuance.
const TokenTTL = 15 * time.Minute

// LinkToken is a single-use, time-limited credential authorizing one
// linking attempt for one Discord account.
type LinkToken struct {
	ID              int64     `json:"id" db:"id"`
	DiscordID       string    `json:"discord_id" db:"discord_id"`
	DiscordUsername string    `json:"discord_username" db:"discord_username"`
	Token           string    `json:"token" db:"token"`
	ExpiresAt       time.Time `json:"expires_at" db:"expires_at"`
	Used            bool      `json:"used" db:"used"`
	CreatedAt       time.Time `json:"created_at" db:"created_at"`
}

// Usable reports whether the token can still authorize a link attempt.
func (t *LinkToken) Usable(now time.Time) bool {
	return t != nil && !t.Used && now.Before(t.ExpiresAt)
}

// ExpiresIn returns the remaining lifetime, floored at zero.
func (t *LinkToken) ExpiresIn(now time.Time) time.Duration {
	if t == nil || !now.Before(t.ExpiresAt) {
		return 0
	}
	return t.ExpiresAt.Sub(now)
}
