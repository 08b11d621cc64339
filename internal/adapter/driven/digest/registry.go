package digest

import (
	"fmt"

	godigest "github.com/opencontainers/go-digest"

	"github.com/ericfisherdev/credkeeper/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.DigestBackend = (*RegistryBackend)(nil)

// RegistryBackend hashes through the OCI content-digest algorithm registry.
// It is a second API path over the same crypto.SHA256 registration the
// runtime backend uses: it covers a failing or disabled runtime backend, not
// a binary built without SHA-256. When that primitive is missing both
// backends report unavailable.
type RegistryBackend struct {
	algorithm godigest.Algorithm
}

// NewRegistryBackend creates the secondary digest backend.
func NewRegistryBackend() *RegistryBackend {
	return &RegistryBackend{algorithm: godigest.SHA256}
}

// Name returns "registry".
func (b *RegistryBackend) Name() string { return "registry" }

// Available reports whether the registry can resolve sha256, which it does
// exactly when crypto.SHA256 is linked in.
func (b *RegistryBackend) Available() bool {
	return b.algorithm.Available()
}

// Sum returns the encoded portion of the canonical sha256 content digest,
// which is the lowercase hex SHA-256 of input.
func (b *RegistryBackend) Sum(input string) (out string, err error) {
	if !b.Available() {
		return "", fmt.Errorf("%s backend: %w", b.Name(), driven.ErrDigestUnavailable)
	}

	// go-digest panics on unregistered algorithms; surface that as an error.
	defer func() {
		if v := recover(); v != nil {
			out = ""
			err = fmt.Errorf("%s backend: %v: %w", b.Name(), v, driven.ErrDigestUnavailable)
		}
	}()

	d := b.algorithm.FromString(input)
	if err := d.Validate(); err != nil {
		return "", fmt.Errorf("%s backend: %w: %w", b.Name(), err, driven.ErrDigestUnavailable)
	}
	return d.Encoded(), nil
}
