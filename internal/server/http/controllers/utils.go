package controllers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rzbill/flashlog/internal/eventlog"
	syslogsvc "github.com/rzbill/flashlog/internal/services/syslog"
	"github.com/rzbill/flashlog/internal/storage/flash"
)

// Helper functions for common HTTP responses

// writeError writes an error response with the given status code and message.
func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}

// writeJSON writes a JSON response with the given data.
func writeJSON(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(data)
}

// writeNoContent writes a 204 No Content response.
func writeNoContent(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNoContent)
}

// writeServiceError maps a service error to a status code.
func writeServiceError(w http.ResponseWriter, err error) {
	writeError(w, statusFor(err), err.Error())
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, eventlog.ErrRecordTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, syslogsvc.ErrInvalidFilter), errors.Is(err, syslogsvc.ErrInvalidReader):
		return http.StatusBadRequest
	case errors.Is(err, flash.ErrStorageFault), errors.Is(err, flash.ErrClosed), errors.Is(err, eventlog.ErrClosed):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
