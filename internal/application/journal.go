package application

import (
	"context"
	"log/slog"
	"time"

	"github.com/ericfisherdev/credkeeper/internal/domain/model"
	"github.com/ericfisherdev/credkeeper/internal/domain/port/driven"
)

// journalWriteTimeout bounds a single journal write triggered by an event.
const journalWriteTimeout = 5 * time.Second

// AttachJournal records ready and updated events from svc in journal.
// Journal failures are logged and never affect the credential state.
func AttachJournal(svc *CredentialService, journal driven.EventJournal, logger *slog.Logger) {
	record := func(entry model.JournalEntry) {
		ctx, cancel := context.WithTimeout(context.Background(), journalWriteTimeout)
		defer cancel()
		if _, err := journal.Record(ctx, entry); err != nil {
			logger.Error("failed to record credential event", "kind", entry.Kind, "error", err)
		}
	}

	svc.OnReady(func(ev model.ReadyEvent) {
		record(model.JournalEntry{
			Kind:            model.EventReady,
			Username:        ev.Policy.Username,
			DigestAvailable: ev.DigestAvailable,
			OccurredAt:      ev.At,
		})
	})

	svc.OnUpdated(func(ev model.UpdatedEvent) {
		record(model.JournalEntry{
			Kind:            model.EventUpdated,
			Username:        svc.GetAuthPolicy().Username,
			DigestAvailable: ev.NewDigest != "",
			OccurredAt:      ev.At,
		})
	})
}
