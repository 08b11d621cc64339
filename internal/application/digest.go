package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/ericfisherdev/credkeeper/internal/domain/port/driven"
)

// digestLen is the length of a hex-encoded SHA-256 digest.
const digestLen = 64

// computeDigest walks the tiers in priority order and returns the first
// well-formed digest together with the name of the backend that produced it.
// When every tier fails the returned error wraps ErrDigestUnavailable and
// each tier's error.
func computeDigest(tiers []driven.DigestBackend, input string, metrics driven.Metrics, logger *slog.Logger) (string, string, error) {
	if len(tiers) == 0 {
		return "", "", fmt.Errorf("no digest backends configured: %w", ErrDigestUnavailable)
	}

	errs := make([]error, 0, len(tiers))
	for i, tier := range tiers {
		sum, err := tier.Sum(input)
		if err == nil {
			sum = strings.ToLower(sum)
			if !isHexDigest(sum) {
				err = fmt.Errorf("%s backend returned malformed digest", tier.Name())
			}
		}
		if err != nil {
			metrics.DigestFailed(tier.Name())
			logger.Warn("digest tier failed", "tier", i+1, "backend", tier.Name(), "error", err)
			errs = append(errs, err)
			continue
		}

		metrics.DigestComputed(tier.Name())
		return sum, tier.Name(), nil
	}

	return "", "", fmt.Errorf("all %d digest tiers failed: %w: %w", len(tiers), ErrDigestUnavailable, errors.Join(errs...))
}

func isHexDigest(s string) bool {
	if len(s) != digestLen {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return false
		}
	}
	return true
}

// mutationLock serializes the two kinds of record mutation (initialization
// and rotation). Unlike sync.Mutex, waiting for it honours a context.
type mutationLock chan struct{}

func newMutationLock() mutationLock {
	return make(mutationLock, 1)
}

func (l mutationLock) lock(ctx context.Context) error {
	select {
	case l <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (l mutationLock) unlock() {
	<-l
}

// nopMetrics discards all counters.
type nopMetrics struct{}

func (nopMetrics) DigestComputed(string) {}
func (nopMetrics) DigestFailed(string)   {}
func (nopMetrics) InitSettled(string)    {}
func (nopMetrics) PasswordRotated(bool)  {}
func (nopMetrics) LoginAttempt(string)   {}
