package httphandler_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ericfisherdev/credkeeper/internal/adapter/driven/digest"
	httphandler "github.com/ericfisherdev/credkeeper/internal/adapter/driving/http"
	"github.com/ericfisherdev/credkeeper/internal/application"
	"github.com/ericfisherdev/credkeeper/internal/domain/model"
	"github.com/ericfisherdev/credkeeper/internal/domain/port/driven"
)

// --- Mock implementations ---

type mockJournal struct {
	entries []model.JournalEntry
	err     error
	limit   int
}

func (m *mockJournal) Record(_ context.Context, e model.JournalEntry) (model.JournalEntry, error) {
	m.entries = append(m.entries, e)
	return e, m.err
}

func (m *mockJournal) ListRecent(_ context.Context, limit int) ([]model.JournalEntry, error) {
	m.limit = limit
	return m.entries, m.err
}

type failingBackend struct{}

func (failingBackend) Name() string    { return "failing" }
func (failingBackend) Available() bool { return true }
func (failingBackend) Sum(string) (string, error) {
	return "", driven.ErrDigestUnavailable
}

// --- Helpers ---

const (
	zm1176Digest   = "1c85ea6714d608adc709f0400cfd49b4c282c531ea187d9848c08cccbb48106c"
	newpass1Digest = "1660382def1e8814b7d54af9a621432e74baafa07427070adf615559e05241a0"
)

type fixture struct {
	svc      *application.CredentialService
	sessions *application.SessionManager
	journal  *mockJournal
	server   http.Handler
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newFixture(t *testing.T, password string, tiers []driven.DigestBackend) *fixture {
	t.Helper()
	logger := discardLogger()

	rec := model.CredentialRecord{
		Username:         "admin",
		Password:         password,
		Enabled:          true,
		SessionDuration:  time.Hour,
		MaxLoginAttempts: 3,
		LockoutDuration:  30 * time.Minute,
	}
	svc := application.NewCredentialService(rec, tiers, nil, logger)
	journal := &mockJournal{}
	application.AttachJournal(svc, journal, logger)
	_ = svc.Initialize(context.Background())

	sessions := application.NewSessionManager(svc, logger)
	h := httphandler.NewHandler(
		svc,
		application.NewLoginVerifier(svc, logger),
		sessions,
		journal,
		map[string]any{"ui": map[string]string{"title": "LibreTV"}},
		logger,
	)

	return &fixture{svc: svc, sessions: sessions, journal: journal, server: httphandler.NewServeMux(h, logger)}
}

// withSession attaches a freshly issued bearer session to req.
func (f *fixture) withSession(req *http.Request) *http.Request {
	sess := f.sessions.Issue("admin")
	req.Header.Set("Authorization", "Bearer "+sess.ID)
	return req
}

func (f *fixture) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	f.server.ServeHTTP(rec, req)
	return rec
}

func jsonRequest(method, target, body string) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v))
	return v
}

// --- Tests ---

func TestHealth(t *testing.T) {
	f := newFixture(t, "zm1176", digest.DefaultTiers())

	rec := f.do(httptest.NewRequest(http.MethodGet, "/api/v1/health", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	resp := decode[httphandler.HealthResponse](t, rec)
	assert.Equal(t, "ok", resp.Status)
	assert.True(t, resp.Ready)
}

func TestGetPolicy(t *testing.T) {
	f := newFixture(t, "zm1176", digest.DefaultTiers())

	rec := f.do(httptest.NewRequest(http.MethodGet, "/api/v1/auth/policy", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	resp := decode[httphandler.PolicyResponse](t, rec)
	assert.Equal(t, "admin", resp.Username)
	assert.True(t, resp.Enabled)
	assert.Equal(t, int64(3600), resp.SessionDurationSeconds)
	assert.Equal(t, 3, resp.MaxLoginAttempts)
	assert.Equal(t, int64(1800), resp.LockoutDurationSeconds)
	assert.NotContains(t, rec.Body.String(), "zm1176")
}

func TestGetDigest(t *testing.T) {
	f := newFixture(t, "zm1176", digest.DefaultTiers())

	rec := f.do(f.withSession(httptest.NewRequest(http.MethodGet, "/api/v1/auth/digest", nil)))

	require.Equal(t, http.StatusOK, rec.Code)
	resp := decode[httphandler.DigestResponse](t, rec)
	require.NotNil(t, resp.Digest)
	assert.Equal(t, zm1176Digest, *resp.Digest)
	assert.True(t, resp.Available)
}

func TestGetDigest_NullWhenUnavailable(t *testing.T) {
	f := newFixture(t, "zm1176", []driven.DigestBackend{failingBackend{}, failingBackend{}})

	rec := f.do(f.withSession(httptest.NewRequest(http.MethodGet, "/api/v1/auth/digest", nil)))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"digest":null,"available":false}`, rec.Body.String())
}

func TestGetDigest_RequiresSession(t *testing.T) {
	f := newFixture(t, "zm1176", digest.DefaultTiers())

	rec := f.do(httptest.NewRequest(http.MethodGet, "/api/v1/auth/digest", nil))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Header().Get("WWW-Authenticate"), "Bearer")
	assert.NotContains(t, rec.Body.String(), zm1176Digest)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/auth/digest", nil)
	req.Header.Set("Authorization", "Bearer not-a-session")
	assert.Equal(t, http.StatusUnauthorized, f.do(req).Code)
}

func TestGetDigest_NotReachableWhileLockedOut(t *testing.T) {
	f := newFixture(t, "zm1176", digest.DefaultTiers())

	for range 3 {
		rec := f.do(jsonRequest(http.MethodPost, "/api/v1/auth/login", `{"username":"admin","password":"wrong"}`))
		require.Equal(t, http.StatusUnauthorized, rec.Code)
	}
	rec := f.do(jsonRequest(http.MethodPost, "/api/v1/auth/login", `{"username":"admin","password":"guess"}`))
	require.Equal(t, http.StatusTooManyRequests, rec.Code)

	rec = f.do(httptest.NewRequest(http.MethodGet, "/api/v1/auth/digest", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.NotContains(t, rec.Body.String(), zm1176Digest)
}

func TestLogin_IssuesSession(t *testing.T) {
	f := newFixture(t, "zm1176", digest.DefaultTiers())

	rec := f.do(jsonRequest(http.MethodPost, "/api/v1/auth/login", `{"username":"admin","password":"zm1176"}`))

	require.Equal(t, http.StatusCreated, rec.Code)
	sess := decode[httphandler.SessionResponse](t, rec)
	require.NotEmpty(t, sess.Token)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/auth/session", nil)
	req.Header.Set("Authorization", "Bearer "+sess.Token)
	rec = f.do(req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "admin", decode[httphandler.SessionResponse](t, rec).Username)
}

func TestLogin_InvalidCredentials(t *testing.T) {
	f := newFixture(t, "zm1176", digest.DefaultTiers())

	rec := f.do(jsonRequest(http.MethodPost, "/api/v1/auth/login", `{"username":"admin","password":"wrong"}`))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestLogin_BadBody(t *testing.T) {
	f := newFixture(t, "zm1176", digest.DefaultTiers())

	rec := f.do(jsonRequest(http.MethodPost, "/api/v1/auth/login", `{"user":"admin"}`))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestLogin_LockoutReturnsRetryAfter(t *testing.T) {
	f := newFixture(t, "zm1176", digest.DefaultTiers())

	for range 3 {
		rec := f.do(jsonRequest(http.MethodPost, "/api/v1/auth/login", `{"username":"admin","password":"wrong"}`))
		require.Equal(t, http.StatusUnauthorized, rec.Code)
	}

	rec := f.do(jsonRequest(http.MethodPost, "/api/v1/auth/login", `{"username":"admin","password":"zm1176"}`))
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
}

func TestLogin_FailsClosedWithoutDigest(t *testing.T) {
	f := newFixture(t, "zm1176", []driven.DigestBackend{failingBackend{}})

	rec := f.do(jsonRequest(http.MethodPost, "/api/v1/auth/login", `{"username":"admin","password":"zm1176"}`))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestLogout_RevokesSession(t *testing.T) {
	f := newFixture(t, "zm1176", digest.DefaultTiers())
	rec := f.do(jsonRequest(http.MethodPost, "/api/v1/auth/login", `{"username":"admin","password":"zm1176"}`))
	token := decode[httphandler.SessionResponse](t, rec).Token

	req := httptest.NewRequest(http.MethodDelete, "/api/v1/auth/session", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	require.Equal(t, http.StatusNoContent, f.do(req).Code)

	req = httptest.NewRequest(http.MethodGet, "/api/v1/auth/session", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	assert.Equal(t, http.StatusUnauthorized, f.do(req).Code)
}

func TestUpdatePassword_WithBasicAuth(t *testing.T) {
	f := newFixture(t, "zm1176", digest.DefaultTiers())

	req := jsonRequest(http.MethodPut, "/api/v1/auth/password", `{"new_password":"newpass1"}`)
	req.SetBasicAuth("admin", "zm1176")
	rec := f.do(req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, newpass1Digest, decode[httphandler.UpdatePasswordResponse](t, rec).Digest)

	got, ok, err := f.svc.GetPasswordDigest(context.Background())
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, newpass1Digest, got)

	require.Len(t, f.journal.entries, 2)
	assert.Equal(t, model.EventUpdated, f.journal.entries[1].Kind)
}

func TestUpdatePassword_WithSessionRevokesSessions(t *testing.T) {
	f := newFixture(t, "zm1176", digest.DefaultTiers())
	rec := f.do(jsonRequest(http.MethodPost, "/api/v1/auth/login", `{"username":"admin","password":"zm1176"}`))
	token := decode[httphandler.SessionResponse](t, rec).Token

	req := jsonRequest(http.MethodPut, "/api/v1/auth/password", `{"new_password":"newpass1"}`)
	req.Header.Set("Authorization", "Bearer "+token)
	require.Equal(t, http.StatusOK, f.do(req).Code)

	req = httptest.NewRequest(http.MethodGet, "/api/v1/auth/session", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	assert.Equal(t, http.StatusUnauthorized, f.do(req).Code)
}

func TestUpdatePassword_RequiresAuthentication(t *testing.T) {
	f := newFixture(t, "zm1176", digest.DefaultTiers())

	rec := f.do(jsonRequest(http.MethodPut, "/api/v1/auth/password", `{"new_password":"newpass1"}`))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Header().Get("WWW-Authenticate"), "Basic")
	assert.Equal(t, "zm1176", f.svc.CurrentInfo().Password)
}

func TestUpdatePassword_WrongCurrentPassword(t *testing.T) {
	f := newFixture(t, "zm1176", digest.DefaultTiers())

	req := jsonRequest(http.MethodPut, "/api/v1/auth/password", `{"new_password":"newpass1"}`)
	req.SetBasicAuth("admin", "wrong")

	assert.Equal(t, http.StatusUnauthorized, f.do(req).Code)
	assert.Equal(t, "zm1176", f.svc.CurrentInfo().Password)
}

func TestUpdatePassword_EmptyNewPassword(t *testing.T) {
	f := newFixture(t, "zm1176", digest.DefaultTiers())

	req := jsonRequest(http.MethodPut, "/api/v1/auth/password", `{"new_password":""}`)
	req.SetBasicAuth("admin", "zm1176")

	assert.Equal(t, http.StatusBadRequest, f.do(req).Code)
}

func TestListEvents(t *testing.T) {
	f := newFixture(t, "zm1176", digest.DefaultTiers())

	rec := f.do(f.withSession(httptest.NewRequest(http.MethodGet, "/api/v1/auth/events?limit=10", nil)))

	require.Equal(t, http.StatusOK, rec.Code)
	events := decode[[]httphandler.EventResponse](t, rec)
	require.Len(t, events, 1)
	assert.Equal(t, "ready", events[0].Kind)
	assert.True(t, events[0].DigestAvailable)
	assert.Equal(t, 10, f.journal.limit)
}

func TestListEvents_InvalidLimit(t *testing.T) {
	f := newFixture(t, "zm1176", digest.DefaultTiers())

	rec := f.do(f.withSession(httptest.NewRequest(http.MethodGet, "/api/v1/auth/events?limit=abc", nil)))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListEvents_StoreError(t *testing.T) {
	f := newFixture(t, "zm1176", digest.DefaultTiers())
	f.journal.err = errors.New("db closed")

	rec := f.do(f.withSession(httptest.NewRequest(http.MethodGet, "/api/v1/auth/events", nil)))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestListEvents_RequiresSession(t *testing.T) {
	f := newFixture(t, "zm1176", digest.DefaultTiers())

	rec := f.do(httptest.NewRequest(http.MethodGet, "/api/v1/auth/events", nil))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Zero(t, f.journal.limit)
}

func TestGetSettings(t *testing.T) {
	f := newFixture(t, "zm1176", digest.DefaultTiers())

	rec := f.do(httptest.NewRequest(http.MethodGet, "/api/v1/config/ui", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"title":"LibreTV"}`, rec.Body.String())

	rec = f.do(httptest.NewRequest(http.MethodGet, "/api/v1/config/secrets", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
