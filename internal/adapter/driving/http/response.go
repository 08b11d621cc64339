package httphandler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/ericfisherdev/credkeeper/internal/domain/model"
)

// writeJSON marshals v to JSON and writes it to the response with the given
// status code. If marshaling fails, a 500 error is written instead.
func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"internal server error"}`))
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}

// writeError writes a JSON error response with the given status code and message.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

// errorResponse is the standard error response body.
type errorResponse struct {
	Error string `json:"error"`
}

// HealthResponse is the JSON representation of the health check endpoint.
type HealthResponse struct {
	Status string `json:"status"`
	Ready  bool   `json:"ready"`
	Time   string `json:"time"`
}

// PolicyResponse is the JSON representation of the authentication policy.
type PolicyResponse struct {
	Username               string `json:"username"`
	Enabled                bool   `json:"enabled"`
	SessionDurationSeconds int64  `json:"session_duration_seconds"`
	MaxLoginAttempts       int    `json:"max_login_attempts"`
	LockoutDurationSeconds int64  `json:"lockout_duration_seconds"`
}

// DigestResponse carries the password digest. Digest is null when no digest
// could be computed, in which case every credential check fails.
type DigestResponse struct {
	Digest    *string `json:"digest"`
	Available bool    `json:"available"`
}

// LoginRequest is the JSON body for the login endpoint.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// SessionResponse is the JSON representation of an issued session.
type SessionResponse struct {
	Token     string `json:"token"`
	Username  string `json:"username"`
	IssuedAt  string `json:"issued_at"`
	ExpiresAt string `json:"expires_at"`
}

// UpdatePasswordRequest is the JSON body for the password rotation endpoint.
type UpdatePasswordRequest struct {
	NewPassword string `json:"new_password"`
}

// UpdatePasswordResponse is returned after a successful rotation.
type UpdatePasswordResponse struct {
	Digest string `json:"digest"`
}

// EventResponse is the JSON representation of a journal entry.
type EventResponse struct {
	ID              int64  `json:"id"`
	Kind            string `json:"kind"`
	Username        string `json:"username"`
	DigestAvailable bool   `json:"digest_available"`
	OccurredAt      string `json:"occurred_at"`
}

// toPolicyResponse converts a domain AuthPolicy to its JSON representation.
func toPolicyResponse(p model.AuthPolicy) PolicyResponse {
	return PolicyResponse{
		Username:               p.Username,
		Enabled:                p.Enabled,
		SessionDurationSeconds: int64(p.SessionDuration / time.Second),
		MaxLoginAttempts:       p.MaxLoginAttempts,
		LockoutDurationSeconds: int64(p.LockoutDuration / time.Second),
	}
}

// toSessionResponse converts a domain Session to its JSON representation.
func toSessionResponse(s model.Session) SessionResponse {
	return SessionResponse{
		Token:     s.ID,
		Username:  s.Username,
		IssuedAt:  s.IssuedAt.UTC().Format(time.RFC3339),
		ExpiresAt: s.ExpiresAt.UTC().Format(time.RFC3339),
	}
}

// toEventResponse converts a domain JournalEntry to its JSON representation.
func toEventResponse(e model.JournalEntry) EventResponse {
	return EventResponse{
		ID:              e.ID,
		Kind:            string(e.Kind),
		Username:        e.Username,
		DigestAvailable: e.DigestAvailable,
		OccurredAt:      e.OccurredAt.UTC().Format(time.RFC3339),
	}
}
