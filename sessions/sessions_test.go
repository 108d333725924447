package sessions

import (
	"net/http"
	"testing"

	"gitea.com/go-chi/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeStore is an in-memory session.Store for exercising the typed wrapper.
type fakeStore struct {
	data      map[interface{}]interface{}
	destroyed bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{data: make(map[interface{}]interface{})}
}

func (f *fakeStore) Set(key, value interface{}) error {
	f.data[key] = value
	return nil
}

func (f *fakeStore) Get(key interface{}) interface{} {
	return f.data[key]
}

func (f *fakeStore) Delete(key interface{}) error {
	delete(f.data, key)
	return nil
}

func (f *fakeStore) Count() (int, error) { return len(f.data), nil }

func (f *fakeStore) GC() {}

func (f *fakeStore) Read(string) (session.RawStore, error) { return f, nil }

func (f *fakeStore) RegenerateID(http.ResponseWriter, *http.Request) (session.RawStore, error) {
	return f, nil
}

func (f *fakeStore) ID() string     { return "test-session" }
func (f *fakeStore) Release() error { return nil }
func (f *fakeStore) Flush() error {
	f.data = make(map[interface{}]interface{})
	return nil
}

func (f *fakeStore) Destroy(w http.ResponseWriter, r *http.Request) error {
	f.destroyed = true
	return f.Flush()
}

func TestStateProgression(t *testing.T) {
	state := Wrap(newFakeStore())

	// Fresh session: nothing recorded yet
	assert.False(t, state.HasDiscordIdentity())
	assert.False(t, state.HasPendingToken())
	assert.False(t, state.HasCompletedLink())

	// TokenIssued step
	require.NoError(t, state.SetPending("tok-1", "100", "Alice"))
	assert.True(t, state.HasDiscordIdentity())
	assert.True(t, state.HasPendingToken())
	assert.False(t, state.HasCompletedLink())
	assert.Equal(t, "tok-1", state.Token())
	assert.Equal(t, "100", state.DiscordID())
	assert.Equal(t, "Alice", state.DiscordUsername())

	// Completed bind
	require.NoError(t, state.SetSteamIdentity("76561198000000001", "alice_steam"))
	assert.True(t, state.HasCompletedLink())
	assert.Equal(t, "76561198000000001", state.SteamID())
	assert.Equal(t, "alice_steam", state.SteamName())
}

func TestStateCannotCompleteWithoutIdentity(t *testing.T) {
	state := Wrap(newFakeStore())

	// A steam identity alone never counts as a completed link
	require.NoError(t, state.SetSteamIdentity("76561198000000001", "alice_steam"))
	assert.False(t, state.HasCompletedLink())
}

func TestStateDestroy(t *testing.T) {
	store := newFakeStore()
	state := Wrap(store)

	require.NoError(t, state.SetPending("tok-1", "100", "Alice"))
	require.NoError(t, state.Destroy(nil, nil))

	assert.True(t, store.destroyed)
	assert.False(t, state.HasDiscordIdentity())
}
