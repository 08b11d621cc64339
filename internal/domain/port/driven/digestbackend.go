// Package driven defines secondary port interfaces for external adapters.
package driven

import "errors"

// ErrDigestUnavailable is returned when no cryptographic primitive is
// reachable through a backend.
var ErrDigestUnavailable = errors.New("digest unavailable")

// DigestBackend computes the lowercase hex SHA-256 digest of a string.
// Implementations are pure: no retries, no side effects. Every backend must
// produce identical output for identical input.
type DigestBackend interface {
	// Name identifies the backend in logs and metrics.
	Name() string

	// Available reports whether the backend's primitive can be used in the
	// current process.
	Available() bool

	// Sum returns the 64-character lowercase hex digest of input, or an error
	// wrapping ErrDigestUnavailable.
	Sum(input string) (string, error)
}
