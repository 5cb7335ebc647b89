// Package aibackend talks to the LLM vendors. Each family has one Backend
// implementation; the Factory picks one from a (model, version) selection.
package aibackend

import (
	"context"
	"strings"

	"github.com/google/uuid"
)

// Backend produces a reply to text, continuing the user's conversation with
// this vendor. Failures are always *apperrors.AIModelError.
type Backend interface {
	Family() string
	ChatWithAI(ctx context.Context, userID uuid.UUID, text string) (string, error)
}

// collapseNewlines keeps replies on one line for list rendering.
func collapseNewlines(s string) string {
	return strings.ReplaceAll(s, "\n", " ")
}
