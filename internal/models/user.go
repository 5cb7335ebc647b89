package models

import (
	"time"

	"github.com/google/uuid"
)

// User is the local projection of an identity owned by the external
// auth service. Only the fields dialogues need are kept.
type User struct {
	ID        uuid.UUID `json:"id"`
	Username  string    `json:"username"`
	CreatedAt time.Time `json:"created_at"`
}
