package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"dialogue-backend/internal/apperrors"
	"dialogue-backend/internal/models"
)

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func errorResp(code, message string, r *http.Request) models.ErrorResponse {
	return models.ErrorResponse{
		Error: models.APIError{
			Code:      code,
			Message:   message,
			RequestID: r.Header.Get("X-Request-ID"),
		},
	}
}

func errorRespWithFields(code, message string, fields map[string]string, r *http.Request) models.ErrorResponse {
	return models.ErrorResponse{
		Error: models.APIError{
			Code:      code,
			Message:   message,
			Fields:    fields,
			RequestID: r.Header.Get("X-Request-ID"),
		},
	}
}

func handleServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		validation  *apperrors.ValidationError
		notFound    *apperrors.NotFoundError
		unsupported *apperrors.UnsupportedModelError
		aiErr       *apperrors.AIModelError
		unauth      *apperrors.UnauthorizedError
		forbidden   *apperrors.ForbiddenError
		rateLimited *apperrors.RateLimitError
	)
	status := apperrors.StatusCode(err)

	switch {
	case errors.As(err, &validation):
		writeJSON(w, status, errorRespWithFields("VALIDATION_ERROR", "Validation failed", validation.Fields, r))
	case errors.As(err, &notFound):
		writeJSON(w, status, errorResp("NOT_FOUND", notFound.Message, r))
	case errors.As(err, &unsupported):
		writeJSON(w, status, errorResp("UNSUPPORTED_MODEL", unsupported.Error(), r))
	case errors.As(err, &aiErr):
		slog.Error("ai model error", "path", r.URL.Path, "error", err)
		writeJSON(w, status, errorResp("AI_MODEL_ERROR", aiErr.Message, r))
	case errors.As(err, &unauth):
		writeJSON(w, status, errorResp("UNAUTHORIZED", unauth.Message, r))
	case errors.As(err, &forbidden):
		writeJSON(w, status, errorResp("FORBIDDEN", forbidden.Message, r))
	case errors.As(err, &rateLimited):
		writeJSON(w, status, errorResp("RATE_LIMITED", rateLimited.Message, r))
	default:
		slog.Error("unhandled service error", "path", r.URL.Path, "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "An unexpected error occurred", r))
	}
}
