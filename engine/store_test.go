package engine

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFileStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")

	fs, err := OpenFileStore(path)
	assert.NoError(t, err)

	assert.NoError(t, fs.Set("sessionId", "sess-1"))
	assert.NoError(t, fs.Set("userId", "user-1"))

	// A fresh open on the same path sees the written values.
	reopened, err := OpenFileStore(path)
	assert.NoError(t, err)
	v, ok := reopened.Get("sessionId")
	assert.True(t, ok)
	assert.Equal(t, "sess-1", v)

	assert.NoError(t, reopened.Delete("sessionId"))
	reopened2, err := OpenFileStore(path)
	assert.NoError(t, err)
	_, ok = reopened2.Get("sessionId")
	assert.False(t, ok)
	v, ok = reopened2.Get("userId")
	assert.True(t, ok)
	assert.Equal(t, "user-1", v)
}

func TestFileStoreCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	assert.NoError(t, os.WriteFile(path, []byte("not json"), 0o600))

	_, err := OpenFileStore(path)
	assert.Error(t, err)
}

func TestSessionStorePersistsIdentity(t *testing.T) {
	store := NewSessionStore(NewMemStore())

	_, ok := store.Session()
	assert.False(t, ok)
	_, ok = store.LocalIdentity()
	assert.False(t, ok)

	joined := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	sess := Session{
		TableID:      7,
		SessionID:    "sess-1",
		SessionToken: "token-1",
		TableNumber:  "T7",
		CartID:       "cart-1",
	}
	self := Participant{UserID: "user-1", UserName: "Ana", IsOwner: true, JoinedAt: joined}
	assert.NoError(t, store.SaveSession(sess, self))

	got, ok := store.Session()
	assert.True(t, ok)
	assert.Equal(t, sess, got)

	identity, ok := store.LocalIdentity()
	assert.True(t, ok)
	assert.Equal(t, "user-1", identity.UserID)
	assert.Equal(t, "Ana", identity.UserName)
	assert.True(t, identity.IsOwner)
	assert.True(t, identity.JoinedAt.Equal(joined))
}

func TestSessionStoreClear(t *testing.T) {
	store := NewSessionStore(NewMemStore())
	assert.NoError(t, store.SaveSession(
		Session{TableID: 1, SessionID: "sess-1"},
		Participant{UserID: "user-1", UserName: "Ana"},
	))

	assert.NoError(t, store.Clear())

	_, ok := store.Session()
	assert.False(t, ok)
	_, ok = store.LocalIdentity()
	assert.False(t, ok)
}
