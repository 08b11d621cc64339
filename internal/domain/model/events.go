package model

import "time"

// EventKind identifies a credential lifecycle event.
type EventKind string

const (
	EventReady   EventKind = "ready"
	EventUpdated EventKind = "updated"
)

// ReadyEvent is delivered once per initialization cycle, after the digest has
// been computed or has definitively failed.
type ReadyEvent struct {
	Policy          AuthPolicy
	DigestAvailable bool
	At              time.Time
}

// UpdatedEvent is delivered after every successful password rotation.
type UpdatedEvent struct {
	OldPassword string
	NewPassword string
	NewDigest   string
	At          time.Time
}

// JournalEntry is a persisted record of a lifecycle event. It never carries
// plaintext passwords or digests.
type JournalEntry struct {
	ID              int64
	Kind            EventKind
	Username        string
	DigestAvailable bool
	OccurredAt      time.Time
}
