package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
)

// envelope is the standard API response wrapper.
// All JSON responses use this format: { "data": ..., "error": ... }
type envelope struct {
	Data  any    `json:"data"`
	Error string `json:"error,omitempty"`
}

// writeJSON writes a JSON response with the given status code and data payload.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(envelope{Data: data}); err != nil {
		slog.Error("failed to encode json response", "error", err)
	}
}

// writeError writes a JSON error response with the given status code and message.
func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(envelope{Error: msg}); err != nil {
		slog.Error("failed to encode json error response", "error", err)
	}
}

// maxRequestBodySize is the upper limit for JSON request bodies (64 KB).
// Requests carry a message or a Morse string, never audio.
const maxRequestBodySize = 64 << 10

// readJSON decodes a JSON request body into dst with size limiting.
// Returns a user-friendly error string on failure, or "" on success.
func readJSON(r *http.Request, dst any) string {
	r.Body = http.MaxBytesReader(nil, r.Body, maxRequestBodySize)

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		var syntaxErr *json.SyntaxError
		var typeErr *json.UnmarshalTypeError
		var maxErr *http.MaxBytesError

		switch {
		case errors.Is(err, io.EOF):
			return "request body must not be empty"
		case errors.As(err, &syntaxErr), errors.Is(err, io.ErrUnexpectedEOF):
			return "malformed json"
		case errors.As(err, &typeErr):
			return fmt.Sprintf("field %q has the wrong type", typeErr.Field)
		case strings.HasPrefix(err.Error(), "json: unknown field "):
			return "unknown field " + strings.TrimPrefix(err.Error(), "json: unknown field ")
		case errors.As(err, &maxErr):
			return "request body too large"
		default:
			return "invalid request body"
		}
	}

	if dec.More() {
		return "request body must contain a single json object"
	}

	return ""
}

// defaultLimit and maxLimit bound list endpoints.
const (
	defaultLimit = 50
	maxLimit     = 200
)

// parseLimit reads the optional limit query parameter.
func parseLimit(r *http.Request) (int, string) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return defaultLimit, ""
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return 0, "limit must be a positive integer"
	}
	if n > maxLimit {
		n = maxLimit
	}
	return n, ""
}
