package ws

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/toro-labs/toro-assistant/src/types"
)

type fakeRegistry struct {
	entries map[string]string // user -> connection
}

func newFakeRegistry() *fakeRegistry {
	return &fakeRegistry{entries: map[string]string{}}
}

func (r *fakeRegistry) Lookup(_ context.Context, userID string) (*types.ConnectionEntry, error) {
	conn, ok := r.entries[userID]
	if !ok {
		return nil, nil
	}
	return &types.ConnectionEntry{UserID: userID, ConnectionID: conn}, nil
}

func (r *fakeRegistry) Register(_ context.Context, userID, connectionID string) error {
	r.entries[userID] = connectionID
	return nil
}

func (r *fakeRegistry) Deregister(_ context.Context, userID, connectionID string) error {
	if r.entries[userID] == connectionID {
		delete(r.entries, userID)
	}
	return nil
}

func TestSession(t *testing.T) {
	ctx := context.Background()

	t.Run("register binds the connection to the user", func(t *testing.T) {
		registry := newFakeRegistry()
		sess := NewSession(registry, "conn-1")

		assert.False(t, sess.Registered())
		require.NoError(t, sess.Register(ctx, "u1"))
		assert.True(t, sess.Registered())
		assert.Equal(t, "u1", sess.UserID())
		assert.Equal(t, "conn-1", registry.entries["u1"])
	})

	t.Run("last registration wins for a user", func(t *testing.T) {
		registry := newFakeRegistry()
		old := NewSession(registry, "conn-old")
		require.NoError(t, old.Register(ctx, "u1"))

		replacement := NewSession(registry, "conn-new")
		require.NoError(t, replacement.Register(ctx, "u1"))
		assert.Equal(t, "conn-new", registry.entries["u1"])

		// The old connection closing must not evict the new registration.
		require.NoError(t, old.Disconnect(ctx))
		assert.Equal(t, "conn-new", registry.entries["u1"])
	})

	t.Run("disconnect removes a matching entry", func(t *testing.T) {
		registry := newFakeRegistry()
		sess := NewSession(registry, "conn-1")
		require.NoError(t, sess.Register(ctx, "u1"))

		require.NoError(t, sess.Disconnect(ctx))
		_, ok := registry.entries["u1"]
		assert.False(t, ok)
	})

	t.Run("disconnect before registration touches nothing", func(t *testing.T) {
		registry := newFakeRegistry()
		other := NewSession(registry, "conn-other")
		require.NoError(t, other.Register(ctx, "u1"))

		sess := NewSession(registry, "conn-1")
		require.NoError(t, sess.Disconnect(ctx))
		assert.Equal(t, "conn-other", registry.entries["u1"])
	})

	t.Run("disconnect is idempotent", func(t *testing.T) {
		sess := NewSession(newFakeRegistry(), "conn-1")
		require.NoError(t, sess.Register(ctx, "u1"))
		require.NoError(t, sess.Disconnect(ctx))
		require.NoError(t, sess.Disconnect(ctx))
	})

	t.Run("register after disconnect is rejected", func(t *testing.T) {
		sess := NewSession(newFakeRegistry(), "conn-1")
		require.NoError(t, sess.Disconnect(ctx))
		assert.Error(t, sess.Register(ctx, "u1"))
	})

	t.Run("register without user id is rejected", func(t *testing.T) {
		sess := NewSession(newFakeRegistry(), "conn-1")
		assert.Error(t, sess.Register(ctx, ""))
	})

	t.Run("re-register on the same connection overwrites", func(t *testing.T) {
		registry := newFakeRegistry()
		sess := NewSession(registry, "conn-1")
		require.NoError(t, sess.Register(ctx, "u1"))
		require.NoError(t, sess.Register(ctx, "u2"))

		assert.Equal(t, "u2", sess.UserID())
		assert.Equal(t, "conn-1", registry.entries["u1"])
		assert.Equal(t, "conn-1", registry.entries["u2"])
	})

	t.Run("disconnect clears every user registered on the connection", func(t *testing.T) {
		registry := newFakeRegistry()
		sess := NewSession(registry, "conn-1")
		require.NoError(t, sess.Register(ctx, "u1"))
		require.NoError(t, sess.Register(ctx, "u2"))

		require.NoError(t, sess.Disconnect(ctx))
		_, ok := registry.entries["u1"]
		assert.False(t, ok, "earlier registration must not outlive the connection")
		_, ok = registry.entries["u2"]
		assert.False(t, ok)
	})

	t.Run("disconnect spares a prior user re-registered elsewhere", func(t *testing.T) {
		registry := newFakeRegistry()
		sess := NewSession(registry, "conn-1")
		require.NoError(t, sess.Register(ctx, "u1"))
		require.NoError(t, sess.Register(ctx, "u2"))

		elsewhere := NewSession(registry, "conn-2")
		require.NoError(t, elsewhere.Register(ctx, "u1"))

		require.NoError(t, sess.Disconnect(ctx))
		assert.Equal(t, "conn-2", registry.entries["u1"])
		_, ok := registry.entries["u2"]
		assert.False(t, ok)
	})
}
