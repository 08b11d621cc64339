package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/ericfisherdev/credkeeper/internal/domain/model"
	"github.com/ericfisherdev/credkeeper/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.EventJournal = (*EventJournalRepo)(nil)

// defaultListLimit caps ListRecent when the caller passes a non-positive limit.
const defaultListLimit = 100

// EventJournalRepo is the SQLite implementation of the EventJournal port.
type EventJournalRepo struct {
	db *DB
}

// NewEventJournalRepo creates a new EventJournalRepo backed by the given DB.
func NewEventJournalRepo(db *DB) *EventJournalRepo {
	return &EventJournalRepo{db: db}
}

// Record appends entry and returns it with its assigned ID. A zero
// OccurredAt is replaced with the current time.
func (r *EventJournalRepo) Record(ctx context.Context, entry model.JournalEntry) (model.JournalEntry, error) {
	const query = `INSERT INTO credential_events (kind, username, digest_available, occurred_at) VALUES (?, ?, ?, ?)`

	if entry.OccurredAt.IsZero() {
		entry.OccurredAt = time.Now()
	}
	entry.OccurredAt = entry.OccurredAt.UTC()

	res, err := r.db.Writer.ExecContext(ctx, query,
		string(entry.Kind),
		entry.Username,
		entry.DigestAvailable,
		entry.OccurredAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return model.JournalEntry{}, fmt.Errorf("record %s event: %w", entry.Kind, err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return model.JournalEntry{}, fmt.Errorf("read event id: %w", err)
	}
	entry.ID = id

	return entry, nil
}

// ListRecent returns up to limit entries, newest first.
func (r *EventJournalRepo) ListRecent(ctx context.Context, limit int) ([]model.JournalEntry, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}

	const query = `SELECT id, kind, username, digest_available, occurred_at
		FROM credential_events ORDER BY id DESC LIMIT ?`

	rows, err := r.db.Reader.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("list credential events: %w", err)
	}
	defer rows.Close()

	entries := make([]model.JournalEntry, 0)
	for rows.Next() {
		var entry model.JournalEntry
		var kind, occurredAt string
		if err := rows.Scan(&entry.ID, &kind, &entry.Username, &entry.DigestAvailable, &occurredAt); err != nil {
			return nil, fmt.Errorf("scan credential event: %w", err)
		}
		entry.Kind = model.EventKind(kind)

		entry.OccurredAt, err = parseTime(occurredAt)
		if err != nil {
			return nil, fmt.Errorf("parse occurred_at for event %d: %w", entry.ID, err)
		}

		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate credential events: %w", err)
	}

	return entries, nil
}

// parseTime parses the timestamp formats SQLite may hand back.
func parseTime(s string) (time.Time, error) {
	formats := []string{
		time.RFC3339Nano,
		time.RFC3339,
		"2006-01-02 15:04:05",
		"2006-01-02T15:04:05",
	}

	for _, format := range formats {
		if t, err := time.Parse(format, s); err == nil {
			return t.UTC(), nil
		}
	}

	return time.Time{}, fmt.Errorf("unrecognized time format: %q", s)
}
