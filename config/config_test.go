package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeGuildConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "guilds.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadGuildConfig(t *testing.T) {
	path := writeGuildConfig(t, `
main_guild: "111111111111111111"
servers:
  "111111111111111111":
    verified_role: "222"
    unverified_role: "333"
  "444444444444444444":
    verified_role: "555"
`)

	gc, err := LoadGuildConfig(path)
	require.NoError(t, err)

	assert.True(t, gc.IsMainGuild("111111111111111111"))
	assert.False(t, gc.IsMainGuild("444444444444444444"))

	roles, ok := gc.RolesFor("111111111111111111")
	require.True(t, ok)
	assert.Equal(t, "222", roles.VerifiedRole)
	assert.Equal(t, "333", roles.UnverifiedRole)

	roles, ok = gc.RolesFor("444444444444444444")
	require.True(t, ok)
	assert.Empty(t, roles.UnverifiedRole)

	_, ok = gc.RolesFor("999")
	assert.False(t, ok)
}

func TestLoadGuildConfigMissingMainGuild(t *testing.T) {
	path := writeGuildConfig(t, `
servers:
  "111":
    verified_role: "222"
`)

	_, err := LoadGuildConfig(path)
	assert.Error(t, err)
}

func TestLoadGuildConfigMissingFile(t *testing.T) {
	_, err := LoadGuildConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoadRequiresDiscordToken(t *testing.T) {
	t.Setenv("DISCORD_TOKEN", "")

	_, err := Load()
	assert.Error(t, err)
}

func TestLoadDefaults(t *testing.T) {
	path := writeGuildConfig(t, `
main_guild: "111"
servers:
  "111":
    verified_role: "222"
`)

	t.Setenv("DISCORD_TOKEN", "bot-token")
	t.Setenv("GUILD_CONFIG_PATH", path)
	t.Setenv("WEB_PORT", "")
	t.Setenv("WEB_URL", "")
	t.Setenv("DATABASE_PATH", "")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "50000", cfg.WebPort)
	assert.Equal(t, "http://localhost:50000", cfg.WebURL)
	assert.Equal(t, "sentryn.db", cfg.DatabasePath)
	assert.Equal(t, "111", cfg.Guilds.MainGuild)
}
