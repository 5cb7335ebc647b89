package apperrors

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestStatusCode(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected int
	}{
		{"validation", NewValidationError("model_id", "Invalid AI model ID."), http.StatusBadRequest},
		{"not found", &NotFoundError{Message: "Dialogue not found"}, http.StatusNotFound},
		{"unsupported model", &UnsupportedModelError{Family: "llama"}, http.StatusNotFound},
		{"ai error", NewAIModelError("AI service unavailable", context.DeadlineExceeded), http.StatusBadGateway},
		{"ai error without status", &AIModelError{Message: "bad"}, http.StatusBadRequest},
		{"wrapped not found", fmt.Errorf("respond stage: %w", &NotFoundError{Message: "x"}), http.StatusNotFound},
		{"rate limited", &RateLimitError{Message: "slow down"}, http.StatusTooManyRequests},
		{"plain error", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := StatusCode(tc.err); got != tc.expected {
				t.Errorf("Expected %d, got %d", tc.expected, got)
			}
		})
	}
}

func TestAIModelError_UnwrapsVendorCause(t *testing.T) {
	err := NewAIModelError("AI service unavailable", context.DeadlineExceeded)

	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected AIModelError to unwrap to the vendor cause")
	}
	if err.Message != "AI service unavailable" {
		t.Fatalf("unexpected message %q", err.Message)
	}
}

func TestIsPermanent(t *testing.T) {
	if !IsPermanent(&UnsupportedModelError{Family: "llama"}) {
		t.Errorf("unsupported model should be permanent")
	}
	if !IsPermanent(fmt.Errorf("wrap: %w", &NotFoundError{Message: "gone"})) {
		t.Errorf("wrapped not found should be permanent")
	}
	if IsPermanent(NewAIModelError("AI service unavailable", errors.New("503"))) {
		t.Errorf("vendor failures should be retryable")
	}
}

func TestUnsupportedModelError_Message(t *testing.T) {
	err := &UnsupportedModelError{Family: "llama"}
	if err.Error() != "Unsupported model: llama" {
		t.Errorf("unexpected message %q", err.Error())
	}
}
