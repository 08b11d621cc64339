// Package digest provides the SHA-256 backends used to derive the password
// digest. Backends are selected by capability probing at startup.
package digest

import (
	"crypto"
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/ericfisherdev/credkeeper/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.DigestBackend = (*RuntimeBackend)(nil)

// RuntimeBackend hashes with the runtime's crypto/sha256 implementation.
type RuntimeBackend struct{}

// NewRuntimeBackend creates the primary digest backend.
func NewRuntimeBackend() *RuntimeBackend {
	return &RuntimeBackend{}
}

// Name returns "runtime".
func (b *RuntimeBackend) Name() string { return "runtime" }

// Available reports whether crypto.SHA256 is linked into the binary.
func (b *RuntimeBackend) Available() bool {
	return crypto.SHA256.Available()
}

// Sum returns the lowercase hex SHA-256 of input.
func (b *RuntimeBackend) Sum(input string) (string, error) {
	if !b.Available() {
		return "", fmt.Errorf("%s backend: %w", b.Name(), driven.ErrDigestUnavailable)
	}

	h := sha256.New()
	// hash.Hash.Write never returns an error.
	_, _ = h.Write([]byte(input))
	return hex.EncodeToString(h.Sum(nil)), nil
}
