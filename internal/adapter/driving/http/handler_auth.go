package httphandler

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"

	"github.com/ericfisherdev/credkeeper/internal/application"
	"github.com/ericfisherdev/credkeeper/internal/domain/model"
)

// Login verifies the presented credentials and issues a session.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.verifier.Verify(r.Context(), clientKey(r), req.Username, req.Password); err != nil {
		h.writeVerifyError(w, err)
		return
	}

	sess := h.sessions.Issue(h.svc.GetAuthPolicy().Username)
	writeJSON(w, http.StatusCreated, toSessionResponse(sess))
}

// GetSession validates the bearer session token.
func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.bearerSession(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "invalid or expired session")
		return
	}
	writeJSON(w, http.StatusOK, toSessionResponse(sess))
}

// Logout revokes the bearer session token.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	if token, ok := bearerToken(r); ok {
		h.sessions.Revoke(token)
	}
	w.WriteHeader(http.StatusNoContent)
}

// UpdatePassword rotates the password. The caller must present a valid
// bearer session or the current credentials via Basic auth.
func (h *Handler) UpdatePassword(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.bearerSession(r); !ok {
		username, password, hasBasic := r.BasicAuth()
		if !hasBasic {
			w.Header().Set("WWW-Authenticate", `Basic realm="credkeeper"`)
			writeError(w, http.StatusUnauthorized, "authentication required")
			return
		}
		if err := h.verifier.Verify(r.Context(), clientKey(r), username, password); err != nil {
			h.writeVerifyError(w, err)
			return
		}
	}

	var req UpdatePasswordRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.NewPassword == "" {
		writeError(w, http.StatusBadRequest, "new_password is required")
		return
	}

	res, err := h.svc.UpdatePassword(r.Context(), req.NewPassword)
	if err != nil {
		h.logger.Error("password update failed", "error", err)
		writeError(w, http.StatusUnprocessableEntity, "password update failed; previous password is still active")
		return
	}

	writeJSON(w, http.StatusOK, UpdatePasswordResponse{Digest: res.Digest})
}

// writeVerifyError maps verifier errors to responses. Every failure is a
// rejection; the status only tells the client whether retrying can help.
func (h *Handler) writeVerifyError(w http.ResponseWriter, err error) {
	var lockout *application.LockoutError
	switch {
	case errors.As(err, &lockout):
		seconds := int(math.Ceil(lockout.RetryAfter.Seconds()))
		w.Header().Set("Retry-After", strconv.Itoa(seconds))
		writeError(w, http.StatusTooManyRequests, "too many failed login attempts")
	case errors.Is(err, application.ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, "invalid credentials")
	case errors.Is(err, application.ErrVerificationImpossible):
		writeError(w, http.StatusServiceUnavailable, "credential verification unavailable")
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		writeError(w, http.StatusServiceUnavailable, "credential store not ready")
	default:
		h.logger.Error("credential verification failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

// requireSession writes a 401 and reports false unless r carries a valid
// bearer session.
func (h *Handler) requireSession(w http.ResponseWriter, r *http.Request) bool {
	if _, ok := h.bearerSession(r); ok {
		return true
	}
	w.Header().Set("WWW-Authenticate", `Bearer realm="credkeeper"`)
	writeError(w, http.StatusUnauthorized, "authentication required")
	return false
}

func (h *Handler) bearerSession(r *http.Request) (model.Session, bool) {
	token, ok := bearerToken(r)
	if !ok {
		return model.Session{}, false
	}
	sess, err := h.sessions.Validate(token)
	if err != nil {
		return model.Session{}, false
	}
	return sess, true
}

func bearerToken(r *http.Request) (string, bool) {
	const prefix = "Bearer "
	header := r.Header.Get("Authorization")
	if len(header) < len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return "", false
	}
	token := strings.TrimSpace(header[len(prefix):])
	return token, token != ""
}

// clientKey identifies the caller for lockout accounting.
func clientKey(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}
