package sessions

import (
	"net/http"

	"gitea.com/go-chi/session"
)

// Session keys for link progress. The values live server-side; the browser
// only holds the unguessable session id cookie.
const (
	keyToken           = "token"
	keyDiscordID       = "discord_id"
	keyDiscordUsername = "discord_username"
	keySteamID         = "steam_id"
	keySteamName       = "steam_name"
)

// State is a typed view over the per-browser session that threads link
// progress across the redirect flow. Losing the session only means the
// user restarts the flow; it can never produce an incorrect binding.
type State struct {
	store session.Store
}

// FromRequest returns the link state for the request's session. The session
// middleware must already have run.
func FromRequest(r *http.Request) *State {
	return Wrap(session.GetSession(r))
}

// Wrap builds a State over an existing session store.
func Wrap(store session.Store) *State {
	return &State{store: store}
}

// SetPending records the token being redeemed and the Discord identity it
// was issued to. This is the TokenIssued step of the flow.
func (s *State) SetPending(token, discordID, discordUsername string) error {
	if err := s.store.Set(keyToken, token); err != nil {
		return err
	}
	if err := s.store.Set(keyDiscordID, discordID); err != nil {
		return err
	}
	return s.store.Set(keyDiscordUsername, discordUsername)
}

// SetSteamIdentity records the verified Steam identity, completing the
// session's view of the bind.
func (s *State) SetSteamIdentity(steamID, steamName string) error {
	if err := s.store.Set(keySteamID, steamID); err != nil {
		return err
	}
	return s.store.Set(keySteamName, steamName)
}

// Token returns the pending link token, if any.
func (s *State) Token() string {
	return s.getString(keyToken)
}

// DiscordID returns the Discord account recorded at initiation.
func (s *State) DiscordID() string {
	return s.getString(keyDiscordID)
}

// DiscordUsername returns the display name recorded at initiation.
func (s *State) DiscordUsername() string {
	return s.getString(keyDiscordUsername)
}

// SteamID returns the verified Steam account, if the bind completed.
func (s *State) SteamID() string {
	return s.getString(keySteamID)
}

// SteamName returns the Steam display name, if known.
func (s *State) SteamName() string {
	return s.getString(keySteamName)
}

// HasDiscordIdentity reports whether the session passed through initiation.
func (s *State) HasDiscordIdentity() bool {
	return s.DiscordID() != ""
}

// HasPendingToken reports whether a token is waiting to be redeemed in
// this session.
func (s *State) HasPendingToken() bool {
	return s.Token() != ""
}

// HasCompletedLink reports whether this session saw a full bind.
func (s *State) HasCompletedLink() bool {
	return s.HasDiscordIdentity() && s.SteamID() != ""
}

// Destroy drops the server-side session and its cookie.
func (s *State) Destroy(w http.ResponseWriter, r *http.Request) error {
	return s.store.Destroy(w, r)
}

func (s *State) getString(key string) string {
	if value, ok := s.store.Get(key).(string); ok {
		return value
	}
	return ""
}
