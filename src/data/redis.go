package data

import (
	"context"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/toro-labs/toro-assistant/src/questions"
	"github.com/toro-labs/toro-assistant/src/types"
)

const userKeyPrefix = "ws:user:"

func MustRedis(url string) *redis.Client {
	opt, err := redis.ParseURL(url)
	if err != nil {
		log.Fatalf("redis: %v", err)
	}
	return redis.NewClient(opt)
}

// ConnChannel is the pubsub channel the gateway pumps into a connection's
// websocket. Publishing here with zero receivers means the handle is dead.
func ConnChannel(connectionID string) string {
	return "ws.conn." + connectionID
}

// Relay publishes work items onto redis streams.
type Relay struct {
	rdb *redis.Client
}

func NewRelay(rdb *redis.Client) *Relay {
	return &Relay{rdb: rdb}
}

func (r *Relay) Publish(ctx context.Context, stream string, item questions.WorkItem) error {
	_, err := r.rdb.XAdd(ctx, &redis.XAddArgs{
		Stream: stream,
		Values: map[string]interface{}{
			"user_id":     item.UserID,
			"question_id": item.QuestionID,
			"status":      string(item.Status),
		},
	}).Result()
	return err
}

// Registry keeps at most one connection entry per user in redis hashes.
type Registry struct {
	rdb *redis.Client
}

func NewRegistry(rdb *redis.Client) *Registry {
	return &Registry{rdb: rdb}
}

func (r *Registry) Lookup(ctx context.Context, userID string) (*types.ConnectionEntry, error) {
	vals, err := r.rdb.HGetAll(ctx, userKeyPrefix+userID).Result()
	if err != nil {
		return nil, err
	}
	if len(vals) == 0 {
		return nil, nil
	}
	entry := &types.ConnectionEntry{
		UserID:       userID,
		ConnectionID: vals["connection_id"],
	}
	if t, err := time.Parse(time.RFC3339, vals["connected_at"]); err == nil {
		entry.ConnectedAt = t
	}
	return entry, nil
}

func (r *Registry) Register(ctx context.Context, userID, connectionID string) error {
	return r.rdb.HSet(ctx, userKeyPrefix+userID,
		"connection_id", connectionID,
		"connected_at", time.Now().UTC().Format(time.RFC3339),
	).Err()
}

// Deregister deletes the user's entry only when it still points at
// connectionID, so a disconnect cannot wipe a newer registration. The
// get-compare-delete is not atomic; out-of-order connect/disconnect delivery
// can still leave a stale entry, which the push-failure cleanup catches.
func (r *Registry) Deregister(ctx context.Context, userID, connectionID string) error {
	current, err := r.rdb.HGet(ctx, userKeyPrefix+userID, "connection_id").Result()
	if err == redis.Nil {
		return nil
	}
	if err != nil {
		return err
	}
	if current != connectionID {
		return nil
	}
	return r.rdb.Del(ctx, userKeyPrefix+userID).Err()
}

// Channel pushes payloads to a gateway-held connection via pubsub.
type Channel struct {
	rdb *redis.Client
}

func NewChannel(rdb *redis.Client) *Channel {
	return &Channel{rdb: rdb}
}

func (c *Channel) Send(ctx context.Context, connectionID string, payload []byte) error {
	receivers, err := c.rdb.Publish(ctx, ConnChannel(connectionID), payload).Result()
	if err != nil {
		return &questions.ChannelError{Err: err}
	}
	if receivers == 0 {
		return &questions.ChannelError{Err: questions.ErrChannelGone}
	}
	return nil
}
