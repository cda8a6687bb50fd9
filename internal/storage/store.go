package storage

import (
	"context"
	"errors"
)

var (
	// ErrNotFound is returned when a record is missing from storage.
	ErrNotFound = errors.New("storage: record not found")

	// ErrCorrupt is returned when a record exists but cannot be decoded.
	ErrCorrupt = errors.New("storage: record corrupt")
)

// Store represents the root storage interface.
type Store interface {
	Close() error
	State() StateStore
	Journal() JournalStore
}

// StateStore persists the per-user ledger/account record.
type StateStore interface {
	// Load returns ErrNotFound when no record exists and an error wrapping
	// ErrCorrupt when the record cannot be decoded.
	Load(ctx context.Context, user string) (*State, error)
	// Save replaces the record. Implementations must never leave a
	// partially written record behind.
	Save(ctx context.Context, user string, state State) error
}

// JournalStore holds append-only journal partitions, one per user and
// calendar date. Records are opaque single-line payloads.
type JournalStore interface {
	Append(ctx context.Context, user, date string, record []byte) error
	// ReadDay returns the raw records of one partition in append order. A
	// missing partition yields no records and no error.
	ReadDay(ctx context.Context, user, date string) ([][]byte, error)
}
