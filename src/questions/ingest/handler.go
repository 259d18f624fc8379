// Package ingest implements the submit stage: validate the caller's input,
// create the pending question record and enqueue it for the answer stage.
package ingest

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"
	"github.com/toro-labs/toro-assistant/src/questions"
	"github.com/toro-labs/toro-assistant/src/types"
)

const maxQuestionLen = 2000

type Handler struct {
	store     questions.Store
	relay     questions.Relay
	alerter   questions.Alerter
	sanitizer *bluemonday.Policy
}

func New(store questions.Store, relay questions.Relay, alerter questions.Alerter) *Handler {
	if alerter == nil {
		alerter = questions.NopAlerter{}
	}
	return &Handler{
		store:     store,
		relay:     relay,
		alerter:   alerter,
		sanitizer: bluemonday.StrictPolicy(),
	}
}

// Submit validates and persists a new question at status pending, then
// enqueues a work item for the answer stage. The returned record carries the
// generated question id.
//
// If the enqueue fails after the record is durable the record will never be
// processed on its own; that partial failure is logged and alerted for
// reconciliation rather than rolled back.
func (h *Handler) Submit(ctx context.Context, userID, question string) (*types.Question, error) {
	userID = strings.TrimSpace(userID)
	question = strings.TrimSpace(h.sanitizer.Sanitize(question))

	if userID == "" {
		return nil, &questions.ValidationError{Reason: "user_id cannot be empty"}
	}
	if question == "" {
		return nil, &questions.ValidationError{Reason: "question cannot be empty"}
	}
	if len(question) > maxQuestionLen {
		return nil, &questions.ValidationError{
			Reason: fmt.Sprintf("question must be at most %d characters", maxQuestionLen),
		}
	}

	now := time.Now().UTC()
	q := &types.Question{
		UserID:     userID,
		QuestionID: uuid.NewString(),
		Question:   question,
		Status:     types.StatusPending,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := h.store.Create(ctx, q); err != nil {
		return nil, &questions.StorageError{Op: "create", Err: err}
	}
	log.Printf("ingest: question saved user_id=%s question_id=%s", q.UserID, q.QuestionID)

	item := questions.WorkItem{
		UserID:     q.UserID,
		QuestionID: q.QuestionID,
		Status:     types.StatusPending,
	}
	if err := h.relay.Publish(ctx, questions.StreamProcess, item); err != nil {
		// The record exists but will never be picked up. Surface for
		// reconciliation instead of attempting a rollback of durable state.
		log.Printf("ingest: enqueue failed for user_id=%s question_id=%s: %v", q.UserID, q.QuestionID, err)
		h.alerter.Alert(ctx, fmt.Sprintf(
			"question %s/%s saved but not enqueued, needs reconciliation: %v",
			q.UserID, q.QuestionID, err))
		return nil, &questions.RelayError{Stream: questions.StreamProcess, Err: err}
	}

	return q, nil
}
