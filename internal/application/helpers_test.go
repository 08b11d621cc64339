package application_test

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ericfisherdev/credkeeper/internal/adapter/driven/digest"
	"github.com/ericfisherdev/credkeeper/internal/domain/model"
	"github.com/ericfisherdev/credkeeper/internal/domain/port/driven"
)

// --- Mock implementations ---

// mockBackend is a controllable digest backend. When gate is non-nil, Sum
// blocks until the gate is closed.
type mockBackend struct {
	name    string
	fail    atomic.Bool
	calls   atomic.Int32
	gate    chan struct{}
	started chan struct{}
	once    sync.Once
}

func newMockBackend(name string) *mockBackend {
	return &mockBackend{name: name}
}

func (m *mockBackend) Name() string    { return m.name }
func (m *mockBackend) Available() bool { return true }

func (m *mockBackend) Sum(input string) (string, error) {
	m.calls.Add(1)
	if m.started != nil {
		m.once.Do(func() { close(m.started) })
	}
	if m.gate != nil {
		<-m.gate
	}
	if m.fail.Load() {
		return "", errors.New(m.name + ": " + driven.ErrDigestUnavailable.Error())
	}
	return sha256Hex(input), nil
}

type mockMetrics struct {
	mu        sync.Mutex
	outcomes  []string
	rotations []bool
	logins    []string
}

func (m *mockMetrics) DigestComputed(string) {}
func (m *mockMetrics) DigestFailed(string)   {}

func (m *mockMetrics) InitSettled(outcome string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.outcomes = append(m.outcomes, outcome)
}

func (m *mockMetrics) PasswordRotated(success bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rotations = append(m.rotations, success)
}

func (m *mockMetrics) LoginAttempt(outcome string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.logins = append(m.logins, outcome)
}

// --- Helpers ---

const (
	// SHA-256 of "zm1176".
	zm1176Digest = "1c85ea6714d608adc709f0400cfd49b4c282c531ea187d9848c08cccbb48106c"
	// SHA-256 of "newpass1".
	newpass1Digest = "1660382def1e8814b7d54af9a621432e74baafa07427070adf615559e05241a0"
)

func sha256Hex(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testRecord(password string) model.CredentialRecord {
	return model.CredentialRecord{
		Username:         "admin",
		Password:         password,
		Enabled:          true,
		SessionDuration:  90 * 24 * time.Hour,
		MaxLoginAttempts: 5,
		LockoutDuration:  30 * time.Minute,
	}
}

func realTiers() []driven.DigestBackend {
	return digest.DefaultTiers()
}
