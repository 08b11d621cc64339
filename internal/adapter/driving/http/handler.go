// Package httphandler is the REST driving adapter for the credential service.
package httphandler

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/ericfisherdev/credkeeper/internal/application"
	"github.com/ericfisherdev/credkeeper/internal/domain/port/driven"
)

// maxBodyBytes caps JSON request bodies.
const maxBodyBytes = 1 << 16

// Handler is the HTTP driving adapter that serves the REST API.
type Handler struct {
	svc      *application.CredentialService
	verifier *application.LoginVerifier
	sessions *application.SessionManager
	journal  driven.EventJournal
	settings map[string]any
	logger   *slog.Logger
}

// NewHandler creates a Handler with all required dependencies. settings maps
// a section name ("proxy", "ui", "app") to its static configuration value.
// journal may be nil, in which case the events endpoint reports 404.
func NewHandler(
	svc *application.CredentialService,
	verifier *application.LoginVerifier,
	sessions *application.SessionManager,
	journal driven.EventJournal,
	settings map[string]any,
	logger *slog.Logger,
) *Handler {
	return &Handler{
		svc:      svc,
		verifier: verifier,
		sessions: sessions,
		journal:  journal,
		settings: settings,
		logger:   logger,
	}
}

// RegisterAPIRoutes registers every API route on mux.
func RegisterAPIRoutes(mux *http.ServeMux, h *Handler) {
	mux.HandleFunc("GET /api/v1/health", h.Health)
	mux.HandleFunc("GET /api/v1/auth/policy", h.GetPolicy)
	mux.HandleFunc("GET /api/v1/auth/digest", h.GetDigest)
	mux.HandleFunc("POST /api/v1/auth/login", h.Login)
	mux.HandleFunc("GET /api/v1/auth/session", h.GetSession)
	mux.HandleFunc("DELETE /api/v1/auth/session", h.Logout)
	mux.HandleFunc("PUT /api/v1/auth/password", h.UpdatePassword)
	mux.HandleFunc("GET /api/v1/auth/events", h.ListEvents)
	mux.HandleFunc("GET /api/v1/config/{section}", h.GetSettings)
}

// NewServeMux creates an http.Handler with all routes registered and wrapped
// with logging and recovery middleware.
func NewServeMux(h *Handler, logger *slog.Logger) http.Handler {
	mux := http.NewServeMux()
	RegisterAPIRoutes(mux, h)
	return ApplyMiddleware(mux, logger)
}

// Health reports liveness and whether the credential store has settled.
func (h *Handler) Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status: "ok",
		Ready:  h.svc.IsReady(),
		Time:   time.Now().UTC().Format(time.RFC3339),
	})
}

// GetPolicy returns the authentication policy snapshot.
func (h *Handler) GetPolicy(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, toPolicyResponse(h.svc.GetAuthPolicy()))
}

// GetDigest waits for readiness and returns the password digest, or null if
// none could be computed. Requires a bearer session.
func (h *Handler) GetDigest(w http.ResponseWriter, r *http.Request) {
	if !h.requireSession(w, r) {
		return
	}

	digest, ok, err := h.svc.GetPasswordDigest(r.Context())
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, "credential store not ready")
		return
	}

	resp := DigestResponse{Available: ok}
	if ok {
		resp.Digest = &digest
	}
	writeJSON(w, http.StatusOK, resp)
}

// ListEvents returns recent credential lifecycle events, newest first.
// An optional limit query parameter caps the result. Requires a bearer
// session.
func (h *Handler) ListEvents(w http.ResponseWriter, r *http.Request) {
	if !h.requireSession(w, r) {
		return
	}
	if h.journal == nil {
		writeError(w, http.StatusNotFound, "event journal not configured")
		return
	}

	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = n
	}

	entries, err := h.journal.ListRecent(r.Context(), limit)
	if err != nil {
		h.logger.Error("failed to list credential events", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	resp := make([]EventResponse, 0, len(entries))
	for _, e := range entries {
		resp = append(resp, toEventResponse(e))
	}

	writeJSON(w, http.StatusOK, resp)
}

// GetSettings returns one section of the static configuration.
func (h *Handler) GetSettings(w http.ResponseWriter, r *http.Request) {
	section, ok := h.settings[r.PathValue("section")]
	if !ok {
		writeError(w, http.StatusNotFound, "unknown config section")
		return
	}
	writeJSON(w, http.StatusOK, section)
}
