package data

import (
	"context"
	"log"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/toro-labs/toro-assistant/src/questions"
	"github.com/toro-labs/toro-assistant/src/types"
)

const (
	consumeBlock   = 5 * time.Second
	consumeBatch   = 10
	claimMinIdle   = time.Minute
	claimInterval  = time.Minute
	handleDeadline = 5 * time.Minute
)

// HandlerFunc settles one work-item delivery. A nil return acknowledges the
// item; handlers own their retry/drop policy, so errors here only mean the
// delivery stays pending for a later claim.
type HandlerFunc func(ctx context.Context, item questions.WorkItem) error

// Consume reads work items from a stream through a consumer group until ctx
// is cancelled. Delivery is at-least-once: items from crashed consumers are
// reclaimed once idle, so handlers must be idempotent.
func Consume(ctx context.Context, rdb *redis.Client, stream, group, consumer string, fn HandlerFunc) {
	if err := rdb.XGroupCreateMkStream(ctx, stream, group, "0").Err(); err != nil &&
		!strings.Contains(err.Error(), "BUSYGROUP") {
		log.Fatalf("consumer: create group %s on %s: %v", group, stream, err)
	}
	log.Printf("consumer: %s reading %s as %s", consumer, stream, group)

	go claimLoop(ctx, rdb, stream, group, consumer, fn)

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		streams, err := rdb.XReadGroup(ctx, &redis.XReadGroupArgs{
			Group:    group,
			Consumer: consumer,
			Streams:  []string{stream, ">"},
			Count:    consumeBatch,
			Block:    consumeBlock,
		}).Result()
		if err != nil {
			if err != redis.Nil && ctx.Err() == nil {
				log.Printf("consumer: read %s: %v", stream, err)
				time.Sleep(time.Second)
			}
			continue
		}

		for _, str := range streams {
			for _, msg := range str.Messages {
				handleMessage(ctx, rdb, stream, group, msg, fn)
			}
		}
	}
}

// claimLoop re-runs deliveries that another consumer read but never
// acknowledged, e.g. after a crash mid-handle.
func claimLoop(ctx context.Context, rdb *redis.Client, stream, group, consumer string, fn HandlerFunc) {
	ticker := time.NewTicker(claimInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		msgs, _, err := rdb.XAutoClaim(ctx, &redis.XAutoClaimArgs{
			Stream:   stream,
			Group:    group,
			Consumer: consumer,
			MinIdle:  claimMinIdle,
			Start:    "0-0",
			Count:    consumeBatch,
		}).Result()
		if err != nil {
			if ctx.Err() == nil {
				log.Printf("consumer: claim %s: %v", stream, err)
			}
			continue
		}
		for _, msg := range msgs {
			handleMessage(ctx, rdb, stream, group, msg, fn)
		}
	}
}

func handleMessage(ctx context.Context, rdb *redis.Client, stream, group string, msg redis.XMessage, fn HandlerFunc) {
	item := parseWorkItem(msg)
	if item.UserID == "" || item.QuestionID == "" {
		log.Printf("consumer: malformed item %s on %s, dropping", msg.ID, stream)
		_ = rdb.XAck(ctx, stream, group, msg.ID).Err()
		return
	}

	hctx, cancel := context.WithTimeout(ctx, handleDeadline)
	err := fn(hctx, item)
	cancel()
	if err != nil {
		// Leave unacked; the claim loop retries it once idle.
		log.Printf("consumer: handle %s on %s: %v", msg.ID, stream, err)
		return
	}
	if err := rdb.XAck(ctx, stream, group, msg.ID).Err(); err != nil {
		log.Printf("consumer: ack %s on %s: %v", msg.ID, stream, err)
	}
}

func parseWorkItem(msg redis.XMessage) questions.WorkItem {
	var item questions.WorkItem
	if v, ok := msg.Values["user_id"].(string); ok {
		item.UserID = v
	}
	if v, ok := msg.Values["question_id"].(string); ok {
		item.QuestionID = v
	}
	if v, ok := msg.Values["status"].(string); ok {
		item.Status = types.Status(v)
	}
	return item
}
