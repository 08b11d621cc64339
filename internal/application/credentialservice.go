package application

import (
	"context"
	"log/slog"

	"github.com/ericfisherdev/credkeeper/internal/domain/model"
	"github.com/ericfisherdev/credkeeper/internal/domain/port/driven"
)

// CredentialService is the application root for credential state. It owns
// the store, the readiness broadcaster, the initialization sequencer and the
// updater, and exposes the read, mutation and event APIs to other
// components.
type CredentialService struct {
	store       *CredentialStore
	broadcaster *ReadinessBroadcaster
	sequencer   *InitializationSequencer
	updater     *CredentialUpdater
	tiers       []driven.DigestBackend
	metrics     driven.Metrics
	logger      *slog.Logger
}

// NewCredentialService wires the credential components around record. tiers
// lists the digest backends in priority order. metrics may be nil.
func NewCredentialService(
	record model.CredentialRecord,
	tiers []driven.DigestBackend,
	metrics driven.Metrics,
	logger *slog.Logger,
) *CredentialService {
	if metrics == nil {
		metrics = nopMetrics{}
	}

	store := NewCredentialStore(record, logger)
	broadcaster := NewReadinessBroadcaster()
	mutation := newMutationLock()

	return &CredentialService{
		store:       store,
		broadcaster: broadcaster,
		sequencer:   NewInitializationSequencer(store, broadcaster, tiers, mutation, metrics, logger),
		updater:     NewCredentialUpdater(store, broadcaster, tiers, mutation, metrics, logger),
		tiers:       tiers,
		metrics:     metrics,
		logger:      logger,
	}
}

// Store returns the underlying credential store.
func (s *CredentialService) Store() *CredentialStore {
	return s.store
}

// Initialize runs or joins the initialization cycle. See
// InitializationSequencer.Initialize.
func (s *CredentialService) Initialize(ctx context.Context) error {
	return s.sequencer.Initialize(ctx)
}

// Ready returns a channel closed once readiness has settled.
func (s *CredentialService) Ready() <-chan struct{} {
	return s.broadcaster.Ready()
}

// IsReady reports whether readiness has settled.
func (s *CredentialService) IsReady() bool {
	return s.store.IsReady()
}

// GetAuthPolicy returns the non-secret policy snapshot.
func (s *CredentialService) GetAuthPolicy() model.AuthPolicy {
	return s.store.Policy()
}

// GetPasswordDigest waits until readiness has settled, starting the
// initialization cycle if nobody has, and returns the digest. ok is false
// when no digest could be computed; callers must then treat every credential
// check as failed.
func (s *CredentialService) GetPasswordDigest(ctx context.Context) (digest string, ok bool, err error) {
	select {
	case <-s.broadcaster.Ready():
	default:
		// Initialization failures are absorbed; only cancellation matters here.
		_ = s.sequencer.Initialize(ctx)
		select {
		case <-s.broadcaster.Ready():
		case <-ctx.Done():
			return "", false, ctx.Err()
		}
	}

	digest, ok = s.store.Digest()
	return digest, ok, nil
}

// UpdatePassword rotates the password. See CredentialUpdater.Update.
func (s *CredentialService) UpdatePassword(ctx context.Context, newPassword string) (UpdateResult, error) {
	return s.updater.Update(ctx, newPassword)
}

// CurrentInfo returns the current username, password and digest.
func (s *CredentialService) CurrentInfo() model.PasswordInfo {
	record := s.store.Get()
	return model.PasswordInfo{
		Username:  record.Username,
		Password:  record.Password,
		Digest:    record.PasswordDigest,
		HasDigest: record.HasDigest,
	}
}

// OnReady registers a ready listener. See ReadinessBroadcaster.OnReady.
func (s *CredentialService) OnReady(fn func(model.ReadyEvent)) {
	s.broadcaster.OnReady(fn)
}

// OnUpdated registers a rotation listener. See ReadinessBroadcaster.OnUpdated.
func (s *CredentialService) OnUpdated(fn func(model.UpdatedEvent)) (unsubscribe func()) {
	return s.broadcaster.OnUpdated(fn)
}
