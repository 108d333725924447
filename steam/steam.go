package steam

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"
)

const (
	defaultOpenIDURL  = "https://steamcommunity.com/openid/login"
	defaultAPIBaseURL = "https://api.steampowered.com"
	defaultTimeout    = 10 * time.Second
)

// steamIDPattern extracts the numeric identifier from an OpenID claimed-id
// URL such as https://steamcommunity.com/openid/id/76561198000000001.
var steamIDPattern = regexp.MustCompile(`/id/(\d+)$`)

// Verifier abstracts the Steam OpenID handshake and profile lookups so the
// link service can be tested against a fake provider.
type Verifier interface {
	BuildLoginURL(realm, returnTo string) string
	VerifyAssertion(ctx context.Context, params url.Values) (bool, error)
	ExtractSteamID(claimedID string) (string, bool)
	GetPlayerSummary(ctx context.Context, steamID string) (*PlayerSummary, error)
}

// Config holds Steam endpoint configuration
type Config struct {
	APIKey     string
	OpenIDURL  string
	APIBaseURL string
	Timeout    time.Duration
}

// Client implements the Verifier interface against the real Steam endpoints
type Client struct {
	apiKey     string
	openIDURL  string
	apiBaseURL string
	httpClient *http.Client
}

// PlayerSummary is the subset of the Steam profile used for display
// enrichment.
type PlayerSummary struct {
	SteamID    string `json:"steamid"`
	Name       string `json:"personaname"`
	ProfileURL string `json:"profileurl"`
	Avatar     string `json:"avatarfull"`
	CreatedAt  int64  `json:"timecreated"`
}

// NewClient creates a Steam client with the given configuration. An empty
// API key disables profile lookups but not assertion verification.
func NewClient(cfg Config) *Client {
	if cfg.OpenIDURL == "" {
		cfg.OpenIDURL = defaultOpenIDURL
	}
	if cfg.APIBaseURL == "" {
		cfg.APIBaseURL = defaultAPIBaseURL
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = defaultTimeout
	}

	return &Client{
		apiKey:     cfg.APIKey,
		openIDURL:  cfg.OpenIDURL,
		apiBaseURL: cfg.APIBaseURL,
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}
}

// BuildLoginURL returns the checkid_setup redirect that sends the browser
// to Steam's login page.
func (c *Client) BuildLoginURL(realm, returnTo string) string {
	params := url.Values{
		"openid.ns":         {"http://specs.openid.net/auth/2.0"},
		"openid.mode":       {"checkid_setup"},
		"openid.return_to":  {returnTo},
		"openid.realm":      {realm},
		"openid.identity":   {"http://specs.openid.net/auth/2.0/identifier_select"},
		"openid.claimed_id": {"http://specs.openid.net/auth/2.0/identifier_select"},
	}

	return c.openIDURL + "?" + params.Encode()
}

// VerifyAssertion re-submits the assertion parameters to Steam with a
// check_authentication directive. The redirect parameters are never
// trusted at face value: only Steam's own "is_valid:true" response counts.
func (c *Client) VerifyAssertion(ctx context.Context, params url.Values) (bool, error) {
	verification := url.Values{}
	for key, values := range params {
		verification[key] = values
	}
	verification.Set("openid.mode", "check_authentication")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.openIDURL,
		strings.NewReader(verification.Encode()))
	if err != nil {
		return false, fmt.Errorf("failed to build verification request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false, fmt.Errorf("openid verification request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return false, fmt.Errorf("failed to read verification response: %w", err)
	}

	return strings.Contains(string(body), "is_valid:true"), nil
}

// ExtractSteamID parses the canonical numeric identity from a claimed-id
// URL. There is no fallback: an unparseable value is a hard failure.
func (c *Client) ExtractSteamID(claimedID string) (string, bool) {
	return ExtractSteamID(claimedID)
}

// ExtractSteamID is the package-level form of Client.ExtractSteamID.
func ExtractSteamID(claimedID string) (string, bool) {
	if claimedID == "" {
		return "", false
	}

	match := steamIDPattern.FindStringSubmatch(claimedID)
	if match == nil {
		return "", false
	}
	return match[1], true
}

// GetPlayerSummary fetches display information for a Steam account. It is
// best-effort: a missing API key or an absent player yields (nil, nil) and
// the caller proceeds without a profile.
func (c *Client) GetPlayerSummary(ctx context.Context, steamID string) (*PlayerSummary, error) {
	if c.apiKey == "" {
		return nil, nil
	}

	endpoint := fmt.Sprintf("%s/ISteamUser/GetPlayerSummaries/v2/?key=%s&steamids=%s",
		c.apiBaseURL, url.QueryEscape(c.apiKey), url.QueryEscape(steamID))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build profile request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("profile request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("profile request returned status %d", resp.StatusCode)
	}

	var payload struct {
		Response struct {
			Players []PlayerSummary `json:"players"`
		} `json:"response"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("failed to decode profile response: %w", err)
	}

	if len(payload.Response.Players) == 0 {
		return nil, nil
	}
	return &payload.Response.Players[0], nil
}
