package application

import (
	"log/slog"
	"sync"

	"github.com/ericfisherdev/credkeeper/internal/domain/model"
)

// CredentialStore holds the authentication record and its readiness flag.
// Readers get snapshots; only the sequencer and updater mutate it.
type CredentialStore struct {
	mu     sync.RWMutex
	record model.CredentialRecord
	ready  bool
	logger *slog.Logger
}

// NewCredentialStore creates a store for record. Any digest on the input is
// discarded: the digest is always derived from the password at runtime.
func NewCredentialStore(record model.CredentialRecord, logger *slog.Logger) *CredentialStore {
	record.PasswordDigest = ""
	record.HasDigest = false
	return &CredentialStore{record: record, logger: logger}
}

// Get returns a snapshot of the current record.
func (s *CredentialStore) Get() model.CredentialRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.record
}

// Policy returns the non-secret policy snapshot.
func (s *CredentialStore) Policy() model.AuthPolicy {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.record.Policy()
}

// Digest returns the current digest and whether one has been computed.
func (s *CredentialStore) Digest() (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.record.PasswordDigest, s.record.HasDigest
}

// IsReady reports whether the initialization cycle has settled.
func (s *CredentialStore) IsReady() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ready
}

// SetDigest stores digest if source is still the current password. A digest
// computed for a password that has since been replaced is rejected so the
// password and digest never diverge.
func (s *CredentialStore) SetDigest(source, digest string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if source != s.record.Password {
		s.logger.Warn("rejected digest write for stale password")
		return ErrDigestSourceMismatch
	}

	s.record.PasswordDigest = digest
	s.record.HasDigest = true
	return nil
}

// markReady flips readiness once. It reports whether this call performed
// the transition.
func (s *CredentialStore) markReady() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ready {
		return false
	}
	s.ready = true
	return true
}

// replacePassword swaps password and digest in one step.
func (s *CredentialStore) replacePassword(password, digest string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.record.Password = password
	s.record.PasswordDigest = digest
	s.record.HasDigest = true
}
