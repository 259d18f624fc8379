package types

import "time"

// Question statuses. Transitions only move forward; completed and error are
// terminal.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusError      Status = "error"
)

func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusError
}

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusProcessing, StatusCompleted, StatusError:
		return true
	}
	return false
}

func rank(s Status) int {
	switch s {
	case StatusPending:
		return 0
	case StatusProcessing:
		return 1
	case StatusCompleted, StatusError:
		return 2
	}
	return -1
}

// CanTransition reports whether moving from s to next is a forward transition.
func (s Status) CanTransition(next Status) bool {
	if !s.Valid() || !next.Valid() {
		return false
	}
	return rank(next) > rank(s)
}

// Questions
type Question struct {
	UserID           string     `gorm:"primaryKey;size:128" json:"user_id"`
	QuestionID       string     `gorm:"primaryKey;size:64" json:"question_id"`
	Question         string     `gorm:"type:text;not null" json:"question"`
	Answer           string     `gorm:"type:text" json:"answer,omitempty"`
	ErrorMessage     string     `gorm:"size:1024" json:"error_message,omitempty"`
	Sources          []string   `gorm:"serializer:json;type:text" json:"sources,omitempty"`
	InferenceModel   string     `gorm:"size:128" json:"inference_model,omitempty"`
	Status           Status     `gorm:"size:16;index;not null" json:"status"`
	NotificationSent bool       `gorm:"default:false" json:"notification_sent,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
	ProcessedAt      *time.Time `json:"processed_at,omitempty"`
}

// Result is the terminal outcome written by the answer stage.
type Result struct {
	Status         Status
	Answer         string
	Sources        []string
	InferenceModel string
	ErrorMessage   string
}

// ConnectionEntry maps a user to its live websocket connection. At most one
// per user; last registration wins.
type ConnectionEntry struct {
	UserID       string    `json:"user_id"`
	ConnectionID string    `json:"connection_id"`
	ConnectedAt  time.Time `json:"connected_at"`
}
