// Package questions defines the capabilities the three lifecycle stages
// (ingest, process, notify) are built on. Every external service the stages
// touch is injected through one of these interfaces so the stage logic can be
// tested against fakes.
package questions

import (
	"context"
	"errors"
	"fmt"

	"github.com/toro-labs/toro-assistant/src/types"
)

// Relay stream names.
const (
	StreamProcess = "questions.process"
	StreamNotify  = "questions.notify"
)

// WorkItem is a relay message carrying a question record key. Delivery is
// at-least-once; consumers must tolerate duplicates.
type WorkItem struct {
	UserID     string
	QuestionID string
	Status     types.Status
}

// Notification is the payload pushed to a user's websocket.
type Notification struct {
	Type         string       `json:"type"`
	QuestionID   string       `json:"question_id"`
	Status       types.Status `json:"status"`
	Question     string       `json:"question,omitempty"`
	Answer       string       `json:"answer,omitempty"`
	Sources      []string     `json:"sources,omitempty"`
	ErrorMessage string       `json:"error_message,omitempty"`
}

// GeneratedAnswer is what the answer generator produces for a query.
type GeneratedAnswer struct {
	Text    string
	Sources []string
	Model   string
}

// Store is the durable question record store.
type Store interface {
	Create(ctx context.Context, q *types.Question) error
	Get(ctx context.Context, userID, questionID string) (*types.Question, error)
	List(ctx context.Context, userID string, limit, offset int) ([]types.Question, error)
	// MarkProcessing moves a pending record to processing. Losing the race is
	// not an error.
	MarkProcessing(ctx context.Context, userID, questionID string) error
	// Finish writes the terminal result only if the record is not already
	// terminal. Returns false when another writer got there first.
	Finish(ctx context.Context, userID, questionID string, res types.Result) (bool, error)
	SetNotificationSent(ctx context.Context, userID, questionID string) error
}

// Relay publishes work items for the next stage.
type Relay interface {
	Publish(ctx context.Context, stream string, item WorkItem) error
}

// Generator is the opaque answer generator: query text in, answer out.
type Generator interface {
	Generate(ctx context.Context, query string) (GeneratedAnswer, error)
}

// Registry maps users to live notification channels. A missing entry means
// the user is offline, which is a normal state, not an error.
type Registry interface {
	Lookup(ctx context.Context, userID string) (*types.ConnectionEntry, error)
	Register(ctx context.Context, userID, connectionID string) error
	// Deregister removes the user's entry only if it still points at
	// connectionID.
	Deregister(ctx context.Context, userID, connectionID string) error
}

// Channel pushes a payload to a single live connection. Send fails with
// ErrChannelGone when the handle no longer has a listener.
type Channel interface {
	Send(ctx context.Context, connectionID string, payload []byte) error
}

// Alerter surfaces reconciliation-worthy failures to operators. Fire and
// forget; implementations must not block the stage.
type Alerter interface {
	Alert(ctx context.Context, message string)
}

// NopAlerter discards alerts. Used when no ops channel is configured.
type NopAlerter struct{}

func (NopAlerter) Alert(context.Context, string) {}

var (
	// ErrNotFound is returned by Store lookups for records that do not exist.
	ErrNotFound = errors.New("question not found")
	// ErrChannelGone indicates a push landed on a dead connection handle.
	ErrChannelGone = errors.New("connection channel gone")
)

// ValidationError rejects bad caller input. Never retried.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string { return "validation: " + e.Reason }

// StorageError wraps record store I/O failures.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string { return fmt.Sprintf("storage %s: %v", e.Op, e.Err) }
func (e *StorageError) Unwrap() error { return e.Err }

// RelayError wraps publish failures to a work-item stream.
type RelayError struct {
	Stream string
	Err    error
}

func (e *RelayError) Error() string { return fmt.Sprintf("relay %s: %v", e.Stream, e.Err) }
func (e *RelayError) Unwrap() error { return e.Err }

// GeneratorError wraps answer generator failures. Mapped to a terminal error
// status on the record, never propagated to the user.
type GeneratorError struct {
	Err error
}

func (e *GeneratorError) Error() string { return fmt.Sprintf("generator: %v", e.Err) }
func (e *GeneratorError) Unwrap() error { return e.Err }

// ChannelError wraps push failures. Triggers registry cleanup, never
// propagated upward.
type ChannelError struct {
	Err error
}

func (e *ChannelError) Error() string { return fmt.Sprintf("channel: %v", e.Err) }
func (e *ChannelError) Unwrap() error { return e.Err }
