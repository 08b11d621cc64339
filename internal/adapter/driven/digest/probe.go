package digest

import (
	"log/slog"

	"github.com/ericfisherdev/credkeeper/internal/domain/port/driven"
)

// DefaultTiers returns the runtime backend followed by the registry backend.
func DefaultTiers() []driven.DigestBackend {
	return []driven.DigestBackend{NewRuntimeBackend(), NewRegistryBackend()}
}

// Probe keeps the candidates whose primitive is available, preserving
// priority order. Unavailable candidates are logged and skipped.
func Probe(logger *slog.Logger, candidates ...driven.DigestBackend) []driven.DigestBackend {
	tiers := make([]driven.DigestBackend, 0, len(candidates))
	for _, c := range candidates {
		if c == nil {
			continue
		}
		if !c.Available() {
			logger.Warn("digest backend unavailable", "backend", c.Name())
			continue
		}
		tiers = append(tiers, c)
	}
	return tiers
}
