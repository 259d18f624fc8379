// Package notify implements the notify stage: push a question's terminal
// state to the user's live websocket, if there is one. The durable record is
// the source of truth; a user with no registered connection simply sees the
// result on next poll.
package notify

import (
	"context"
	"encoding/json"
	"errors"
	"log"

	"github.com/toro-labs/toro-assistant/src/questions"
	"github.com/toro-labs/toro-assistant/src/types"
)

type Handler struct {
	store    questions.Store
	registry questions.Registry
	channel  questions.Channel
}

func New(store questions.Store, registry questions.Registry, channel questions.Channel) *Handler {
	return &Handler{store: store, registry: registry, channel: channel}
}

// Handle processes one notify work item. Offline users and dead connection
// handles are normal outcomes, not errors; a push is never retried.
func (h *Handler) Handle(ctx context.Context, item questions.WorkItem) error {
	q, err := h.store.Get(ctx, item.UserID, item.QuestionID)
	if err != nil {
		if errors.Is(err, questions.ErrNotFound) {
			log.Printf("notify: question not found user_id=%s question_id=%s, dropping", item.UserID, item.QuestionID)
			return nil
		}
		return &questions.StorageError{Op: "get", Err: err}
	}

	entry, err := h.registry.Lookup(ctx, q.UserID)
	if err != nil {
		return &questions.StorageError{Op: "registry lookup", Err: err}
	}
	if entry == nil {
		log.Printf("notify: user %s not connected, skipping push", q.UserID)
		return nil
	}

	payload, err := json.Marshal(buildNotification(q))
	if err != nil {
		return err
	}

	if err := h.channel.Send(ctx, entry.ConnectionID, payload); err != nil {
		// The connection is presumed gone. Remove the stale entry so later
		// notifies skip straight to the offline path.
		log.Printf("notify: push to %s failed (%v), removing stale connection %s", q.UserID, err, entry.ConnectionID)
		if derr := h.registry.Deregister(ctx, q.UserID, entry.ConnectionID); derr != nil {
			log.Printf("notify: stale connection cleanup for %s: %v", q.UserID, derr)
		}
		return nil
	}
	log.Printf("notify: pushed %s update to user %s", q.Status, q.UserID)

	if err := h.store.SetNotificationSent(ctx, q.UserID, q.QuestionID); err != nil {
		log.Printf("notify: record notification_sent %s/%s: %v", q.UserID, q.QuestionID, err)
	}
	return nil
}

func buildNotification(q *types.Question) questions.Notification {
	n := questions.Notification{
		Type:       "question_update",
		QuestionID: q.QuestionID,
		Status:     q.Status,
	}
	switch q.Status {
	case types.StatusCompleted:
		n.Question = q.Question
		n.Answer = q.Answer
		n.Sources = q.Sources
	case types.StatusError:
		n.ErrorMessage = q.ErrorMessage
		if n.ErrorMessage == "" {
			n.ErrorMessage = "Unknown error"
		}
	}
	return n
}
