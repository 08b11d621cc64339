package application

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ericfisherdev/credkeeper/internal/domain/model"
)

// SessionManager issues in-memory sessions whose lifetime follows the
// configured session duration. Every session is revoked when the password
// is rotated.
type SessionManager struct {
	svc    *CredentialService
	logger *slog.Logger
	now    func() time.Time

	mu       sync.Mutex
	sessions map[string]model.Session
}

// NewSessionManager creates a session manager bound to svc's policy.
func NewSessionManager(svc *CredentialService, logger *slog.Logger) *SessionManager {
	m := &SessionManager{
		svc:      svc,
		logger:   logger,
		now:      time.Now,
		sessions: make(map[string]model.Session),
	}
	svc.OnUpdated(func(model.UpdatedEvent) {
		if n := m.RevokeAll(); n > 0 {
			m.logger.Info("sessions revoked after password update", "count", n)
		}
	})
	return m
}

// Issue creates a session for username.
func (m *SessionManager) Issue(username string) model.Session {
	now := m.now()
	sess := model.Session{
		ID:        uuid.NewString(),
		Username:  username,
		IssuedAt:  now,
		ExpiresAt: now.Add(m.svc.GetAuthPolicy().SessionDuration),
	}

	m.mu.Lock()
	m.sessions[sess.ID] = sess
	m.mu.Unlock()

	return sess
}

// Validate returns the session for id, or ErrSessionNotFound if it is
// unknown, revoked or expired.
func (m *SessionManager) Validate(id string) (model.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	sess, ok := m.sessions[id]
	if !ok {
		return model.Session{}, ErrSessionNotFound
	}
	if sess.Expired(m.now()) {
		delete(m.sessions, id)
		return model.Session{}, ErrSessionNotFound
	}
	return sess, nil
}

// Revoke removes the session for id. Unknown ids are ignored.
func (m *SessionManager) Revoke(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
}

// RevokeAll removes every session and returns how many were removed.
func (m *SessionManager) RevokeAll() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := len(m.sessions)
	clear(m.sessions)
	return n
}

// PurgeExpired removes expired sessions and returns how many were removed.
func (m *SessionManager) PurgeExpired() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	var n int
	for id, sess := range m.sessions {
		if sess.Expired(now) {
			delete(m.sessions, id)
			n++
		}
	}
	return n
}

// Start purges expired sessions on the given interval until ctx is canceled.
func (m *SessionManager) Start(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			m.logger.Info("session janitor stopped")
			return
		case <-ticker.C:
			if n := m.PurgeExpired(); n > 0 {
				m.logger.Debug("expired sessions purged", "count", n)
			}
		}
	}
}
