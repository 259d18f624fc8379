// Package process implements the answer stage: consume a work item, invoke
// the answer generator and write the terminal result. Work items are
// delivered at least once, so everything here must tolerate duplicates.
package process

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/toro-labs/toro-assistant/src/questions"
	"github.com/toro-labs/toro-assistant/src/types"
)

const (
	defaultFinishRetries = 3
	defaultRetryDelay    = 2 * time.Second
)

type Handler struct {
	store     questions.Store
	generator questions.Generator
	relay     questions.Relay
	alerter   questions.Alerter

	finishRetries int
	retryDelay    time.Duration
}

func New(store questions.Store, generator questions.Generator, relay questions.Relay, alerter questions.Alerter) *Handler {
	if alerter == nil {
		alerter = questions.NopAlerter{}
	}
	return &Handler{
		store:         store,
		generator:     generator,
		relay:         relay,
		alerter:       alerter,
		finishRetries: defaultFinishRetries,
		retryDelay:    defaultRetryDelay,
	}
}

// Handle processes one delivery of a work item. A nil return means the
// delivery is settled and must not be redelivered, including permanent
// failures that were logged and dropped.
func (h *Handler) Handle(ctx context.Context, item questions.WorkItem) error {
	q, err := h.store.Get(ctx, item.UserID, item.QuestionID)
	if err != nil {
		if errors.Is(err, questions.ErrNotFound) {
			// No record to update; nothing a redelivery could fix.
			log.Printf("process: question not found user_id=%s question_id=%s, dropping", item.UserID, item.QuestionID)
			return nil
		}
		return &questions.StorageError{Op: "get", Err: err}
	}

	if q.Status.Terminal() {
		// Duplicate delivery. Reprocessing would call the generator again and
		// notify the user twice.
		log.Printf("process: question %s/%s already %s, skipping duplicate", q.UserID, q.QuestionID, q.Status)
		return nil
	}

	// Best effort; a concurrent delivery may have won this already.
	if err := h.store.MarkProcessing(ctx, q.UserID, q.QuestionID); err != nil {
		log.Printf("process: mark processing %s/%s: %v", q.UserID, q.QuestionID, err)
	}

	res := h.generate(ctx, q)

	won, err := h.finish(ctx, item, res)
	if err != nil {
		// Record stays stuck at pending/processing. Observable through
		// monitoring; do not loop forever on redelivery.
		log.Printf("process: unrecoverable update failure %s/%s: %v", q.UserID, q.QuestionID, err)
		h.alerter.Alert(ctx, fmt.Sprintf(
			"question %s/%s answered but record update failed, stuck non-terminal: %v",
			q.UserID, q.QuestionID, err))
		return nil
	}
	if !won {
		log.Printf("process: question %s/%s finished by a concurrent delivery", q.UserID, q.QuestionID)
		return nil
	}

	notify := questions.WorkItem{
		UserID:     item.UserID,
		QuestionID: item.QuestionID,
		Status:     res.Status,
	}
	if err := h.relay.Publish(ctx, questions.StreamNotify, notify); err != nil {
		// Terminal state is durable; the user still sees it on next poll.
		log.Printf("process: notify enqueue failed %s/%s: %v", q.UserID, q.QuestionID, err)
	}
	return nil
}

func (h *Handler) generate(ctx context.Context, q *types.Question) types.Result {
	ans, err := h.generator.Generate(ctx, q.Question)
	if err != nil {
		log.Printf("process: generator failed for %s/%s: %v", q.UserID, q.QuestionID, err)
		return types.Result{
			Status:       types.StatusError,
			ErrorMessage: err.Error(),
		}
	}
	return types.Result{
		Status:         types.StatusCompleted,
		Answer:         ans.Text,
		Sources:        ans.Sources,
		InferenceModel: ans.Model,
	}
}

func (h *Handler) finish(ctx context.Context, item questions.WorkItem, res types.Result) (bool, error) {
	var lastErr error
	for attempt := 0; attempt < h.finishRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return false, ctx.Err()
			case <-time.After(h.retryDelay):
			}
		}
		won, err := h.store.Finish(ctx, item.UserID, item.QuestionID, res)
		if err == nil {
			return won, nil
		}
		lastErr = err
	}
	return false, &questions.StorageError{Op: "finish", Err: lastErr}
}
