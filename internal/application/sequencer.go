package application

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/ericfisherdev/credkeeper/internal/domain/model"
	"github.com/ericfisherdev/credkeeper/internal/domain/port/driven"
)

const initFlightKey = "initialize"

// InitializationSequencer computes the password digest once at startup and
// settles readiness exactly once, whatever the outcome. Concurrent callers
// share a single in-flight computation.
type InitializationSequencer struct {
	store       *CredentialStore
	broadcaster *ReadinessBroadcaster
	tiers       []driven.DigestBackend
	mutation    mutationLock
	metrics     driven.Metrics
	logger      *slog.Logger
	now         func() time.Time

	flight singleflight.Group

	mu      sync.Mutex
	done    bool
	outcome error
}

// NewInitializationSequencer creates a sequencer over the given digest tiers,
// highest priority first.
func NewInitializationSequencer(
	store *CredentialStore,
	broadcaster *ReadinessBroadcaster,
	tiers []driven.DigestBackend,
	mutation mutationLock,
	metrics driven.Metrics,
	logger *slog.Logger,
) *InitializationSequencer {
	return &InitializationSequencer{
		store:       store,
		broadcaster: broadcaster,
		tiers:       tiers,
		mutation:    mutation,
		metrics:     metrics,
		logger:      logger,
		now:         time.Now,
	}
}

// Initialize runs the initialization cycle, or joins the one already in
// flight. Once the cycle has settled it returns the recorded outcome without
// recomputing. A non-nil error is informational: readiness has still been
// settled and the digest is absent. If ctx ends first, Initialize returns
// ctx.Err() while the computation runs to completion in the background.
func (s *InitializationSequencer) Initialize(ctx context.Context) error {
	if done, outcome := s.settledOutcome(); done {
		return outcome
	}

	ch := s.flight.DoChan(initFlightKey, func() (any, error) {
		return nil, s.run()
	})

	select {
	case res := <-ch:
		return res.Err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Settled reports whether the initialization cycle has completed.
func (s *InitializationSequencer) Settled() bool {
	done, _ := s.settledOutcome()
	return done
}

func (s *InitializationSequencer) settledOutcome() (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.done, s.outcome
}

func (s *InitializationSequencer) run() error {
	if done, outcome := s.settledOutcome(); done {
		return outcome
	}

	var err error
	if _, ok := s.store.Digest(); ok {
		// A rotation already committed a digest for the current password.
		s.logger.Info("password digest already present, skipping computation")
	} else {
		// The computation is never cancelled once started.
		_ = s.mutation.lock(context.Background())
		err = s.computeAndStore()
		s.mutation.unlock()
	}

	s.mu.Lock()
	s.done = true
	s.outcome = err
	s.mu.Unlock()

	s.settle(err)
	return err
}

func (s *InitializationSequencer) computeAndStore() error {
	record := s.store.Get()
	if record.Password == "" {
		s.logger.Error("password digest not computed", "error", ErrMissingPassword)
		return ErrMissingPassword
	}

	// A rotation that ran before initialization already produced a digest
	// for the current password.
	if record.HasDigest {
		return nil
	}

	digest, backend, err := computeDigest(s.tiers, record.Password, s.metrics, s.logger)
	if err != nil {
		s.logger.Error("password digest computation failed, continuing without digest", "error", err)
		return err
	}

	if err := s.store.SetDigest(record.Password, digest); err != nil {
		s.logger.Error("password digest rejected", "error", err)
		return err
	}

	s.logger.Info("password digest computed", "backend", backend)
	return nil
}

func (s *InitializationSequencer) settle(err error) {
	if !s.store.markReady() {
		return
	}

	_, hasDigest := s.store.Digest()
	s.metrics.InitSettled(initOutcome(err))

	s.broadcaster.publishReady(model.ReadyEvent{
		Policy:          s.store.Policy(),
		DigestAvailable: hasDigest,
		At:              s.now(),
	})
	s.logger.Info("credential store ready", "digest_available", hasDigest)
}

func initOutcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrMissingPassword):
		return "missing_password"
	case errors.Is(err, ErrDigestUnavailable):
		return "digest_unavailable"
	default:
		return "rejected"
	}
}
