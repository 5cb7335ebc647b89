package handlers

import (
	"context"
	"net/http"
	"strconv"

	"dialogue-backend/internal/models"
)

type catalogService interface {
	ListAIModels(ctx context.Context) ([]*models.AIModel, error)
	ListModelVersions(ctx context.Context, modelID int64) ([]*models.ModelVersion, error)
}

type CatalogHandler struct {
	service catalogService
}

func NewCatalogHandler(service catalogService) *CatalogHandler {
	return &CatalogHandler{service: service}
}

func (h *CatalogHandler) ListAIModels(w http.ResponseWriter, r *http.Request) {
	list, err := h.service.ListAIModels(r.Context())
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// ListModelVersions accepts an optional ?ai_model=<id> filter.
func (h *CatalogHandler) ListModelVersions(w http.ResponseWriter, r *http.Request) {
	var modelID int64
	if raw := r.URL.Query().Get("ai_model"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			writeJSON(w, http.StatusBadRequest, errorRespWithFields("VALIDATION_ERROR", "Validation failed",
				map[string]string{"ai_model": "A valid integer is required."}, r))
			return
		}
		modelID = id
	}

	list, err := h.service.ListModelVersions(r.Context(), modelID)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}
