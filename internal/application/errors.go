// Package application contains use-case orchestration services.
package application

import (
	"errors"

	"github.com/ericfisherdev/credkeeper/internal/domain/port/driven"
)

// Sentinel errors returned by the credential services.
var (
	// ErrMissingPassword indicates no plaintext password is configured.
	ErrMissingPassword = errors.New("no password configured")

	// ErrDigestUnavailable aliases the port-level sentinel so callers can
	// match digest failures without importing the driven port.
	ErrDigestUnavailable = driven.ErrDigestUnavailable

	// ErrUpdateFailed indicates a password rotation did not take effect.
	ErrUpdateFailed = errors.New("password update failed")

	// ErrDigestSourceMismatch indicates a digest write whose source password
	// is no longer the current password.
	ErrDigestSourceMismatch = errors.New("digest source does not match current password")

	// ErrVerificationImpossible indicates no digest is available, so every
	// credential check must be rejected.
	ErrVerificationImpossible = errors.New("credential verification impossible: no digest")

	// ErrInvalidCredentials indicates a username or password mismatch.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrLockedOut indicates the client exceeded the configured attempt limit.
	ErrLockedOut = errors.New("too many failed login attempts")

	// ErrSessionNotFound indicates an unknown, revoked, or expired session.
	ErrSessionNotFound = errors.New("session not found")
)
