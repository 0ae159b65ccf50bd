package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	JobPending    = "pending"
	JobProcessing = "processing"
	JobCompleted  = "completed"
	JobFailed     = "failed"
)

// Job is an asynchronous card generation request.
type Job struct {
	ID           uuid.UUID  `json:"id"`
	UserID       uuid.UUID  `json:"user_id"`
	DeckID       uuid.UUID  `json:"deck_id"`
	Source       string     `json:"source"` // "text" | "pdf" | "video"
	Text         string     `json:"text,omitempty"`
	Status       string     `json:"status"`
	CreatedCount int        `json:"created_count"`
	RetryCount   int        `json:"retry_count"`
	MaxRetries   int        `json:"max_retries"`
	ErrorMessage *string    `json:"error_message"`
	CreatedAt    time.Time  `json:"created_at"`
	CompletedAt  *time.Time `json:"completed_at"`
}

// WebSocket message types
type WSMessage struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

type StatusUpdate struct {
	JobID    uuid.UUID `json:"job_id"`
	Step     int       `json:"step"`
	StepName string    `json:"step_name"`
}

type CompletedEvent struct {
	JobID   uuid.UUID `json:"job_id"`
	DeckID  uuid.UUID `json:"deck_id"`
	Created int       `json:"created"`
	Message string    `json:"message"`
}

type ErrorEvent struct {
	JobID        uuid.UUID `json:"job_id"`
	ErrorCode    string    `json:"error_code"`
	ErrorMessage string    `json:"error_message"`
}

// API Error response
type APIError struct {
	Code      string            `json:"code"`
	Message   string            `json:"message"`
	Fields    map[string]string `json:"fields,omitempty"`
	RequestID string            `json:"request_id"`
}

type ErrorResponse struct {
	Error APIError `json:"error"`
}
