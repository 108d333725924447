package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config holds all runtime settings, read from environment variables.
type Config struct {
	DiscordToken string
	SteamAPIKey  string
	WebURL       string
	WebPort      string
	DatabasePath string
	WebhookURL   string
	UseHTTPS     bool
	LogEnv       string
	LogLevel     string

	Guilds GuildConfig
}

// GuildRoles maps a guild to the role ids the synchronizer manages there.
type GuildRoles struct {
	VerifiedRole   string `yaml:"verified_role"`
	UnverifiedRole string `yaml:"unverified_role"`
}

// GuildConfig describes every guild the bot administers. MainGuild is the
// guild where the link flow is offered; the others only expose status checks.
type GuildConfig struct {
	MainGuild string                `yaml:"main_guild"`
	Servers   map[string]GuildRoles `yaml:"servers"`
}

// Load builds a Config from the environment. godotenv should already have
// populated it in main.
func Load() (*Config, error) {
	cfg := &Config{
		DiscordToken: os.Getenv("DISCORD_TOKEN"),
		SteamAPIKey:  os.Getenv("STEAM_API_KEY"),
		WebURL:       os.Getenv("WEB_URL"),
		WebPort:      os.Getenv("WEB_PORT"),
		DatabasePath: os.Getenv("DATABASE_PATH"),
		WebhookURL:   os.Getenv("WEBHOOK_URL"),
		UseHTTPS:     os.Getenv("USE_HTTPS") == "true",
		LogEnv:       os.Getenv("LOG_ENV"),
		LogLevel:     os.Getenv("LOG_LEVEL"),
	}

	if cfg.DiscordToken == "" {
		return nil, errors.New("DISCORD_TOKEN is required")
	}
	if cfg.WebPort == "" {
		cfg.WebPort = "50000"
	}
	if cfg.WebURL == "" {
		cfg.WebURL = "http://localhost:" + cfg.WebPort
	}
	if cfg.DatabasePath == "" {
		cfg.DatabasePath = "sentryn.db"
	}

	guildPath := os.Getenv("GUILD_CONFIG_PATH")
	if guildPath == "" {
		guildPath = "guilds.yaml"
	}

	guilds, err := LoadGuildConfig(guildPath)
	if err != nil {
		return nil, err
	}
	cfg.Guilds = *guilds

	return cfg, nil
}

// LoadGuildConfig reads the per-guild role configuration from a YAML file.
func LoadGuildConfig(path string) (*GuildConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read guild config %s: %w", path, err)
	}

	var gc GuildConfig
	if err := yaml.Unmarshal(data, &gc); err != nil {
		return nil, fmt.Errorf("failed to parse guild config %s: %w", path, err)
	}

	if gc.MainGuild == "" {
		return nil, errors.New("guild config: main_guild is required")
	}
	if len(gc.Servers) == 0 {
		return nil, errors.New("guild config: at least one server entry is required")
	}

	return &gc, nil
}

// RolesFor returns the role configuration for a guild, if any.
func (gc *GuildConfig) RolesFor(guildID string) (GuildRoles, bool) {
	roles, ok := gc.Servers[guildID]
	return roles, ok
}

// IsMainGuild reports whether the link flow should be offered on this guild.
func (gc *GuildConfig) IsMainGuild(guildID string) bool {
	return gc.MainGuild == guildID
}
