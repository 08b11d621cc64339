package application

import (
	"context"
	"crypto/subtle"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/ericfisherdev/credkeeper/internal/domain/model"
	"github.com/ericfisherdev/credkeeper/internal/domain/port/driven"
)

// LockoutError is returned while a client is locked out. It matches
// ErrLockedOut with errors.Is.
type LockoutError struct {
	RetryAfter time.Duration
}

func (e *LockoutError) Error() string {
	return fmt.Sprintf("%s: retry after %s", ErrLockedOut, e.RetryAfter.Round(time.Second))
}

func (e *LockoutError) Unwrap() error { return ErrLockedOut }

type attemptState struct {
	failures    int
	lockedUntil time.Time
}

// LoginVerifier checks presented credentials against the stored digest and
// applies the lockout policy. It fails closed: when no digest is available
// every check is rejected with ErrVerificationImpossible.
type LoginVerifier struct {
	svc     *CredentialService
	metrics driven.Metrics
	logger  *slog.Logger
	now     func() time.Time

	mu       sync.Mutex
	attempts map[string]*attemptState
}

// NewLoginVerifier creates a verifier for svc. Lockout state is cleared
// whenever the password is rotated.
func NewLoginVerifier(svc *CredentialService, logger *slog.Logger) *LoginVerifier {
	v := &LoginVerifier{
		svc:      svc,
		metrics:  svc.metrics,
		logger:   logger,
		now:      time.Now,
		attempts: make(map[string]*attemptState),
	}
	svc.OnUpdated(func(model.UpdatedEvent) { v.ResetAll() })
	return v
}

// Verify checks username and password for the client identified by
// clientKey. It waits for readiness, starting initialization if needed,
// bounded by ctx.
func (v *LoginVerifier) Verify(ctx context.Context, clientKey, username, password string) error {
	if _, _, err := v.svc.GetPasswordDigest(ctx); err != nil {
		return err
	}

	record := v.svc.store.Get()
	if !record.Enabled {
		v.metrics.LoginAttempt("disabled")
		return nil
	}

	if err := v.checkLockout(clientKey); err != nil {
		v.metrics.LoginAttempt("locked_out")
		return err
	}

	if !record.HasDigest {
		v.metrics.LoginAttempt("impossible")
		v.logger.Warn("login rejected: no password digest available", "client", clientKey)
		return ErrVerificationImpossible
	}

	presented, _, err := computeDigest(v.svc.tiers, password, v.metrics, v.logger)
	if err != nil {
		v.metrics.LoginAttempt("impossible")
		return fmt.Errorf("%w: %w", ErrVerificationImpossible, err)
	}

	userOK := subtle.ConstantTimeCompare([]byte(username), []byte(record.Username)) == 1
	passOK := subtle.ConstantTimeCompare([]byte(presented), []byte(record.PasswordDigest)) == 1
	if !userOK || !passOK {
		v.recordFailure(clientKey, record.Policy())
		v.metrics.LoginAttempt("invalid")
		return ErrInvalidCredentials
	}

	v.reset(clientKey)
	v.metrics.LoginAttempt("success")
	return nil
}

// ResetAll clears every client's failure count and lockout.
func (v *LoginVerifier) ResetAll() {
	v.mu.Lock()
	defer v.mu.Unlock()
	clear(v.attempts)
}

func (v *LoginVerifier) checkLockout(clientKey string) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	st, ok := v.attempts[clientKey]
	if !ok || st.lockedUntil.IsZero() {
		return nil
	}

	now := v.now()
	if now.Before(st.lockedUntil) {
		return &LockoutError{RetryAfter: st.lockedUntil.Sub(now)}
	}

	// Lockout expired.
	delete(v.attempts, clientKey)
	return nil
}

func (v *LoginVerifier) recordFailure(clientKey string, policy model.AuthPolicy) {
	v.mu.Lock()
	defer v.mu.Unlock()

	st, ok := v.attempts[clientKey]
	if !ok {
		st = &attemptState{}
		v.attempts[clientKey] = st
	}
	st.failures++

	if policy.MaxLoginAttempts > 0 && st.failures >= policy.MaxLoginAttempts {
		st.lockedUntil = v.now().Add(policy.LockoutDuration)
		v.logger.Warn("client locked out",
			"client", clientKey,
			"failures", st.failures,
			"lockout", policy.LockoutDuration,
		)
	}
}

func (v *LoginVerifier) reset(clientKey string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	delete(v.attempts, clientKey)
}
