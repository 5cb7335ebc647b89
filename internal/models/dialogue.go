package models

import (
	"time"

	"github.com/google/uuid"
)

// Status is the lifecycle state of a dialogue. ACTIVE is initial,
// COMPLETED is terminal.
type Status string

const (
	StatusActive    Status = "ACTIVE"
	StatusCompleted Status = "COMPLETED"
)

// CanTransition reports whether s may move to next. Only ACTIVE→COMPLETED
// and the idempotent COMPLETED→COMPLETED are allowed.
func (s Status) CanTransition(next Status) bool {
	switch s {
	case StatusActive:
		return next == StatusActive || next == StatusCompleted
	case StatusCompleted:
		return next == StatusCompleted
	default:
		return false
	}
}

func (s Status) Valid() bool {
	return s == StatusActive || s == StatusCompleted
}

// Type distinguishes the human prompt from the AI reply.
type Type string

const (
	TypeUser Type = "USER"
	TypeAI   Type = "AI"
)

type Dialogue struct {
	ID               int64     `json:"id"`
	UserID           uuid.UUID `json:"-"`
	Username         string    `json:"username"`
	Status           Status    `json:"status"`
	Type             Type      `json:"type"`
	Content          string    `json:"content"`
	ModelID          int64     `json:"model_id"`
	ModelVersionID   *int64    `json:"model_version_id"`
	ReplyTo          *int64    `json:"reply_to,omitempty"`
	CreatedTimestamp time.Time `json:"created_timestamp"`
	UpdatedTimestamp time.Time `json:"updated_timestamp"`
}

// CreateDialogueRequest is the POST /dialogue/ body. Either the id pair or
// the simplified Model (a version name) must be present.
type CreateDialogueRequest struct {
	Content        string `json:"content"`
	ModelID        *int64 `json:"model_id"`
	ModelVersionID *int64 `json:"model_version_id"`
	Model          string `json:"model"`
}

// DialoguePayload is the pipeline input shared by both stages.
type DialoguePayload struct {
	Content        string `json:"content,omitempty"`
	ModelID        int64  `json:"model_id"`
	ModelVersionID int64  `json:"model_version_id"`
}

type CreateDialogueResponse struct {
	Message string    `json:"message"`
	JobID   uuid.UUID `json:"job_id"`
}
