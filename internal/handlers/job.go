package handlers

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"dialogue-backend/internal/middleware"
	"dialogue-backend/internal/models"
)

type jobService interface {
	GetJob(ctx context.Context, userID, jobID uuid.UUID) (*models.Job, error)
}

type JobHandler struct {
	service jobService
}

func NewJobHandler(service jobService) *JobHandler {
	return &JobHandler{service: service}
}

func (h *JobHandler) GetJob(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid job ID", r))
		return
	}

	job, err := h.service.GetJob(r.Context(), middleware.GetUserID(r.Context()), id)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, job)
}
