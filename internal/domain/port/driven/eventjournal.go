package driven

import (
	"context"

	"github.com/ericfisherdev/credkeeper/internal/domain/model"
)

// EventJournal defines the driven port for recording credential lifecycle
// events. Implementations must not persist passwords or digests.
type EventJournal interface {
	Record(ctx context.Context, entry model.JournalEntry) (model.JournalEntry, error)

	// ListRecent returns up to limit entries, newest first.
	ListRecent(ctx context.Context, limit int) ([]model.JournalEntry, error)
}
