// Package httpx holds the response helpers shared by every handler package:
// JSON writing, bearer-token extraction and the mapping from the service
// error taxonomy to HTTP statuses.
package httpx

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/menuqr/tableside/internal/domain"
)

func WriteJSON(w http.ResponseWriter, logger *slog.Logger, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Error("failed to encode response", "error", err)
	}
}

func WriteError(w http.ResponseWriter, logger *slog.Logger, status int, message string) {
	WriteJSON(w, logger, status, map[string]string{"error": message})
}

// WriteDomainError translates a service error into a response. Anything
// outside the known taxonomy is logged and reported generically; internal
// detail never reaches the client.
func WriteDomainError(w http.ResponseWriter, logger *slog.Logger, err error) {
	switch {
	case errors.Is(err, domain.ErrValidation):
		WriteError(w, logger, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrUnauthenticated):
		WriteError(w, logger, http.StatusUnauthorized, "authentication required")
	case errors.Is(err, domain.ErrForbidden):
		WriteError(w, logger, http.StatusForbidden, err.Error())
	case errors.Is(err, domain.ErrNotFound):
		WriteError(w, logger, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrItemUnavailable):
		WriteError(w, logger, http.StatusConflict, "menu changed, please refresh and try again")
	case errors.Is(err, domain.ErrInvalidTransition):
		WriteError(w, logger, http.StatusConflict, err.Error())
	default:
		logger.Error("request failed", "error", err)
		WriteError(w, logger, http.StatusInternalServerError, "internal server error")
	}
}

// BearerToken extracts the token from an Authorization header, or "" when the
// request is unauthenticated.
func BearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if header == "" {
		return ""
	}
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok {
		return ""
	}
	return strings.TrimSpace(token)
}
