package discord

import (
	"testing"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func memberWithRoles(roles ...string) *discordgo.Member {
	return &discordgo.Member{Roles: roles}
}

func TestParseWebhookURL(t *testing.T) {
	id, token, err := parseWebhookURL("https://discord.com/api/webhooks/123456789/abc-DEF_ghi")
	require.NoError(t, err)
	assert.Equal(t, "123456789", id)
	assert.Equal(t, "abc-DEF_ghi", token)
}

func TestParseWebhookURLVersionedPath(t *testing.T) {
	id, token, err := parseWebhookURL("https://discord.com/api/v10/webhooks/42/tok")
	require.NoError(t, err)
	assert.Equal(t, "42", id)
	assert.Equal(t, "tok", token)
}

func TestParseWebhookURLRejectsMalformed(t *testing.T) {
	cases := []string{
		"https://discord.com/api/webhooks/123456789",
		"https://discord.com/api/channels/1/2",
		"not a url at all %%",
		"",
	}
	for _, raw := range cases {
		_, _, err := parseWebhookURL(raw)
		assert.Error(t, err, "expected %q to be rejected", raw)
	}
}

func TestHasRole(t *testing.T) {
	member := memberWithRoles("1", "2", "3")
	assert.True(t, hasRole(member, "2"))
	assert.False(t, hasRole(member, "9"))
}
