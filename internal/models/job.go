package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

const (
	JobTypeDialogueCreate  = "dialogue-create"
	JobTypeDialogueRespond = "dialogue-respond"
)

const (
	JobStatusPending    = "pending"
	JobStatusProcessing = "processing"
	JobStatusCompleted  = "completed"
	JobStatusFailed     = "failed"
)

type Job struct {
	ID           uuid.UUID       `json:"id"`
	UserID       uuid.UUID       `json:"user_id"`
	Type         string          `json:"type"` // "dialogue-create" | "dialogue-respond"
	ReferenceID  *int64          `json:"reference_id"`
	ParentID     *uuid.UUID      `json:"parent_id,omitempty"`
	ConfigJSON   json.RawMessage `json:"config"`
	Status       string          `json:"status"` // "pending" | "processing" | "completed" | "failed"
	RetryCount   int             `json:"retry_count"`
	MaxRetries   int             `json:"max_retries"`
	ErrorMessage *string         `json:"error_message"`
	CreatedAt    time.Time       `json:"created_at"`
	CompletedAt  *time.Time      `json:"completed_at"`
}

// Payload decodes the job's dialogue payload.
func (j *Job) Payload() (DialoguePayload, error) {
	var p DialoguePayload
	if len(j.ConfigJSON) == 0 {
		return p, nil
	}
	err := json.Unmarshal(j.ConfigJSON, &p)
	return p, err
}

// WebSocket message types
type WSMessage struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

type DialogueCompletedEvent struct {
	JobID      uuid.UUID `json:"job_id"`
	DialogueID int64     `json:"dialogue_id"`
	Status     Status    `json:"status"`
}

type ErrorEvent struct {
	JobID        uuid.UUID `json:"job_id"`
	DialogueID   *int64    `json:"dialogue_id,omitempty"`
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
