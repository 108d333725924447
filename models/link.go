package models

import (
	"time"
)

// LinkRecord is the durable record of a confirmed Discord↔Steam binding.
// discord_id and steam_id are both unique across the table: a Discord
// account owns at most one Steam account and vice versa.
type LinkRecord struct {
	ID              int64     `json:"id" db:"id"`
	DiscordID       string    `json:"discord_id" db:"discord_id"`
	DiscordUsername string    `json:"discord_username" db:"discord_username"`
	SteamID         string    `json:"steam_id" db:"steam_id"`
	SteamName       string    `json:"steam_name" db:"steam_name"`
	LinkedAt        time.Time `json:"linked_at" db:"linked_at"`
	UpdatedAt       time.Time `json:"updated_at" db:"updated_at"`
	IsVerified      bool      `json:"is_verified" db:"is_verified"`
}

// IsLinked reports whether the record carries a bound Steam identity.
func (r *LinkRecord) IsLinked() bool {
	return r != nil && r.SteamID != ""
}

// LinkStats summarizes the link table for the admin info surface.
type LinkStats struct {
	Total    int `json:"total"`
	Verified int `json:"verified"`
}
