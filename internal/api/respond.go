package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog/log"

	"backlog-manager/internal/model"
	"backlog-manager/internal/pkg/lock"
	"backlog-manager/internal/service"
)

// ErrorResponse is the body of every error reply.
type ErrorResponse struct {
	Error    string      `json:"error"`
	Message  string      `json:"message"`
	Code     int         `json:"code"`
	Existing *model.Game `json:"existing,omitempty"`
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Error().Err(err).Msg("Failed to encode response")
	}
}

func respondError(w http.ResponseWriter, status int, message string, err error) {
	if err != nil && status >= http.StatusInternalServerError {
		log.Error().Err(err).Str("message", message).Msg("Request failed")
	}
	respondJSON(w, status, ErrorResponse{
		Error:   http.StatusText(status),
		Message: message,
		Code:    status,
	})
}

// respondServiceError maps a service error to its HTTP status.
func respondServiceError(w http.ResponseWriter, err error) {
	var dup *service.DuplicateError
	switch {
	case errors.As(err, &dup):
		existing := dup.Existing
		respondJSON(w, http.StatusConflict, ErrorResponse{
			Error:    http.StatusText(http.StatusConflict),
			Message:  dup.Error(),
			Code:     http.StatusConflict,
			Existing: &existing,
		})
	case errors.Is(err, service.ErrGameNotFound):
		respondError(w, http.StatusNotFound, "game not found", nil)
	case isValidation(err):
		respondError(w, http.StatusBadRequest, err.Error(), nil)
	case errors.Is(err, lock.ErrLockTimeout):
		respondError(w, http.StatusServiceUnavailable, "backlog is busy, retry shortly", err)
	default:
		respondError(w, http.StatusInternalServerError, "internal error", err)
	}
}

func isValidation(err error) bool {
	return errors.Is(err, model.ErrEmptyTitle) ||
		errors.Is(err, model.ErrInvalidStatus) ||
		errors.Is(err, model.ErrInvalidPlatform) ||
		errors.Is(err, model.ErrNegativePrice)
}
