package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/fitwear/storefront/internal/repository"
	"github.com/fitwear/storefront/internal/service"
)

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, ErrorResponse{
		Error:   code,
		Message: message,
	})
}

// respondServiceError maps domain and repository sentinel errors onto the
// HTTP error taxonomy: 400 validation, 403 ownership, 404 missing resource,
// 500 everything else.
func respondServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrSizeRequired),
		errors.Is(err, service.ErrInvalidSize),
		errors.Is(err, service.ErrInvalidQuantity),
		errors.Is(err, service.ErrEmptyOrder),
		errors.Is(err, service.ErrInvalidStatus):
		respondError(w, http.StatusBadRequest, "validation_error", err.Error())
	case errors.Is(err, service.ErrIllegalTransition):
		respondError(w, http.StatusBadRequest, "illegal_transition", err.Error())
	case errors.Is(err, service.ErrForbidden):
		respondError(w, http.StatusForbidden, "forbidden", err.Error())
	case errors.Is(err, repository.ErrProductNotFound),
		errors.Is(err, repository.ErrOrderNotFound),
		errors.Is(err, repository.ErrItemNotFound),
		errors.Is(err, repository.ErrCartNotFound),
		errors.Is(err, repository.ErrUserNotFound):
		respondError(w, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, repository.ErrEmailTaken):
		respondError(w, http.StatusConflict, "email_taken", err.Error())
	case errors.Is(err, service.ErrInvalidCredentials):
		respondError(w, http.StatusUnauthorized, "invalid_credentials", err.Error())
	default:
		slog.Error("internal error", "error", err)
		respondError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}
