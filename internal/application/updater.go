package application

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/ericfisherdev/credkeeper/internal/domain/model"
	"github.com/ericfisherdev/credkeeper/internal/domain/port/driven"
)

// UpdateResult is returned by a successful password rotation.
type UpdateResult struct {
	Digest string
}

// CredentialUpdater rotates the active password. Rotations are serialized:
// a second call waits for the first to finish.
type CredentialUpdater struct {
	store       *CredentialStore
	broadcaster *ReadinessBroadcaster
	tiers       []driven.DigestBackend
	mutation    mutationLock
	metrics     driven.Metrics
	logger      *slog.Logger
	now         func() time.Time

	// delivery orders UpdatedEvents. It is taken before the mutation lock is
	// released, so events arrive in rotation order without listeners running
	// under the mutation lock.
	delivery sync.Mutex
}

// NewCredentialUpdater creates an updater sharing the sequencer's mutation lock.
func NewCredentialUpdater(
	store *CredentialStore,
	broadcaster *ReadinessBroadcaster,
	tiers []driven.DigestBackend,
	mutation mutationLock,
	metrics driven.Metrics,
	logger *slog.Logger,
) *CredentialUpdater {
	return &CredentialUpdater{
		store:       store,
		broadcaster: broadcaster,
		tiers:       tiers,
		mutation:    mutation,
		metrics:     metrics,
		logger:      logger,
		now:         time.Now,
	}
}

// Update replaces the password with newPassword and recomputes its digest.
// The new password is staged until its digest exists, then password and
// digest are committed together; if the digest cannot be computed the staged
// password is discarded, the previous password stays active, and no event is
// published. All failures wrap ErrUpdateFailed.
func (u *CredentialUpdater) Update(ctx context.Context, newPassword string) (UpdateResult, error) {
	if newPassword == "" {
		u.metrics.PasswordRotated(false)
		return UpdateResult{}, fmt.Errorf("%w: %w", ErrUpdateFailed, ErrMissingPassword)
	}

	if err := u.mutation.lock(ctx); err != nil {
		return UpdateResult{}, fmt.Errorf("%w: %w", ErrUpdateFailed, err)
	}

	oldPassword := u.store.Get().Password

	digest, backend, err := computeDigest(u.tiers, newPassword, u.metrics, u.logger)
	if err != nil {
		u.mutation.unlock()
		u.metrics.PasswordRotated(false)
		u.logger.Error("password update failed, previous password kept", "error", err)
		return UpdateResult{}, fmt.Errorf("%w: %w", ErrUpdateFailed, err)
	}

	u.store.replacePassword(newPassword, digest)
	u.metrics.PasswordRotated(true)
	u.logger.Info("password updated", "backend", backend)

	u.delivery.Lock()
	defer u.delivery.Unlock()
	u.mutation.unlock()

	u.broadcaster.publishUpdated(model.UpdatedEvent{
		OldPassword: oldPassword,
		NewPassword: newPassword,
		NewDigest:   digest,
		At:          u.now(),
	})

	return UpdateResult{Digest: digest}, nil
}
