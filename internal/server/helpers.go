package server

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

func respondJSON(w http.ResponseWriter, data any, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("json encode error", "error", err)
	}
}

// respondError writes the single structured error shape callers rely on:
// {error, message}. Partial results are never returned.
func respondError(w http.ResponseWriter, errName, message string, status int) {
	respondJSON(w, map[string]string{
		"error":   errName,
		"message": message,
	}, status)
}
