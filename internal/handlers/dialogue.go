package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"dialogue-backend/internal/middleware"
	"dialogue-backend/internal/models"
)

const (
	msgDialogueCreated = "Dialogue created and AI task enqueued."
	msgDialogueUpdated = "Dialogue updated successfully."
)

type dialogueService interface {
	Create(ctx context.Context, userID uuid.UUID, req models.CreateDialogueRequest) (*models.Job, error)
	List(ctx context.Context, userID uuid.UUID) ([]*models.Dialogue, error)
	Get(ctx context.Context, userID uuid.UUID, id int64) (*models.Dialogue, error)
	UpdateLatest(ctx context.Context, userID uuid.UUID) (*models.Dialogue, error)
}

type DialogueHandler struct {
	service dialogueService
}

func NewDialogueHandler(service dialogueService) *DialogueHandler {
	return &DialogueHandler{service: service}
}

// Create validates the prompt and hands it to the pipeline. The dialogue row
// itself is written asynchronously.
func (h *DialogueHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req models.CreateDialogueRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) && typeErr.Field != "" {
			writeJSON(w, http.StatusBadRequest, errorRespWithFields("VALIDATION_ERROR", "Validation failed",
				map[string]string{typeErr.Field: fieldTypeMessage(typeErr.Field)}, r))
			return
		}
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return
	}

	job, err := h.service.Create(r.Context(), middleware.GetUserID(r.Context()), req)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, models.CreateDialogueResponse{
		Message: msgDialogueCreated,
		JobID:   job.ID,
	})
}

// fieldTypeMessage words a wrongly typed body field the same way the service
// words an unknown reference.
func fieldTypeMessage(field string) string {
	switch field {
	case "model_id":
		return "Invalid AI model ID."
	case "model_version_id":
		return "Invalid model version ID."
	case "content", "model":
		return "Not a valid string."
	default:
		return "Invalid value."
	}
}

func (h *DialogueHandler) List(w http.ResponseWriter, r *http.Request) {
	dialogues, err := h.service.List(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dialogues)
}

func (h *DialogueHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		writeJSON(w, http.StatusNotFound, errorResp("NOT_FOUND", "Dialogue not found", r))
		return
	}

	d, err := h.service.Get(r.Context(), middleware.GetUserID(r.Context()), id)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

// UpdateLatest moves the caller's list cursor to their newest dialogue.
func (h *DialogueHandler) UpdateLatest(w http.ResponseWriter, r *http.Request) {
	if _, err := h.service.UpdateLatest(r.Context(), middleware.GetUserID(r.Context())); err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": msgDialogueUpdated})
}
