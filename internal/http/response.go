package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"tally/internal/core"
)

type errorPayload struct {
	Error string `json:"error"`
}

// respondJSON writes v as the response body with the given status.
func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

// respondError maps the engine's error taxonomy onto status codes:
// validation failures are 400, missing records 404, ownership violations
// 403, and everything else (storage included) an opaque 500.
func respondError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case core.IsValidation(err):
		respondJSON(w, http.StatusBadRequest, errorPayload{Error: err.Error()})
	case errors.Is(err, core.ErrNotFound):
		respondJSON(w, http.StatusNotFound, errorPayload{Error: err.Error()})
	case errors.Is(err, core.ErrForbidden):
		respondJSON(w, http.StatusForbidden, errorPayload{Error: "you do not have access to this expense"})
	default:
		slog.ErrorContext(r.Context(), "Request failed",
			"error", err,
			"method", r.Method,
			"path", r.URL.Path)
		respondJSON(w, http.StatusInternalServerError, errorPayload{Error: "internal server error"})
	}
}

// respondBadRequest reports a malformed request that never reached the
// service layer.
func respondBadRequest(w http.ResponseWriter, msg string) {
	respondJSON(w, http.StatusBadRequest, errorPayload{Error: msg})
}
