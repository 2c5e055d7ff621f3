// Package middleware holds the HTTP middleware stack of the morsecast API.
package middleware

import (
	"encoding/json"
	"net/http"
)

// errorEnvelope matches the api package's envelope format for error
// responses written before a handler runs.
type errorEnvelope struct {
	Error string `json:"error,omitempty"`
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(errorEnvelope{Error: msg}) //nolint:errcheck
}
