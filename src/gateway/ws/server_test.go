package ws

import (
	"context"
	"testing"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingRegistry notes when Register is called so handshake ordering can
// be asserted.
type recordingRegistry struct {
	*fakeRegistry
	order *[]string
}

func (r *recordingRegistry) Register(ctx context.Context, userID, connectionID string) error {
	*r.order = append(*r.order, "register")
	return r.fakeRegistry.Register(ctx, userID, connectionID)
}

func TestConnect(t *testing.T) {
	ctx := context.Background()

	t.Run("subscribes before registering", func(t *testing.T) {
		var order []string
		registry := &recordingRegistry{fakeRegistry: newFakeRegistry(), order: &order}
		srv := NewServer(registry, redis.NewClient(&redis.Options{Addr: "127.0.0.1:1"}))
		srv.subscribe = func(ctx context.Context, channel string) *redis.PubSub {
			order = append(order, "subscribe")
			return srv.rdb.Subscribe(ctx, channel)
		}

		sess := NewSession(registry, "conn-1")
		pubsub := srv.connect(ctx, sess, "u1")
		require.NotNil(t, pubsub)
		defer pubsub.Close()

		require.Equal(t, []string{"subscribe", "register"}, order)
		assert.True(t, sess.Registered())
		assert.Equal(t, "conn-1", registry.entries["u1"])
	})

	t.Run("no query user registers nothing", func(t *testing.T) {
		var order []string
		registry := &recordingRegistry{fakeRegistry: newFakeRegistry(), order: &order}
		srv := NewServer(registry, redis.NewClient(&redis.Options{Addr: "127.0.0.1:1"}))
		srv.subscribe = func(ctx context.Context, channel string) *redis.PubSub {
			order = append(order, "subscribe")
			return srv.rdb.Subscribe(ctx, channel)
		}

		sess := NewSession(registry, "conn-2")
		pubsub := srv.connect(ctx, sess, "")
		require.NotNil(t, pubsub)
		defer pubsub.Close()

		require.Equal(t, []string{"subscribe"}, order)
		assert.False(t, sess.Registered())
	})
}
