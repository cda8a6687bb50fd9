package bolt

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/goodtune/timekeeper/internal/storage"
	"go.etcd.io/bbolt"
	bolterrors "go.etcd.io/bbolt/errors"
)

const (
	bucketState   = "state"
	bucketJournal = "journal"
)

// ErrLocked is returned when another process holds the database open for
// writing. bbolt allows one writer process and no concurrent readers.
var ErrLocked = errors.New("bolt database is locked by another process")

var lockTimeout = 2 * time.Second

// Store implements the storage.Store interface using bbolt.
type Store struct {
	db *bbolt.DB
}

// Open opens a BoltDB-backed store.
func Open(path string) (*Store, error) {
	if err := ensureDir(path); err != nil {
		return nil, err
	}

	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: lockTimeout})
	if err != nil {
		return nil, openError(path, err)
	}

	store := &Store{db: db}
	if err := store.ensureBuckets(); err != nil {
		_ = db.Close()
		return nil, err
	}

	return store, nil
}

// OpenReadOnly opens an existing database without creating buckets or
// taking the writer lock. It still fails with ErrLocked while a writer,
// such as a running timekeeper, holds the file.
func OpenReadOnly(path string) (*Store, error) {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: lockTimeout, ReadOnly: true})
	if err != nil {
		return nil, openError(path, err)
	}
	return &Store{db: db}, nil
}

func openError(path string, err error) error {
	if errors.Is(err, bolterrors.ErrTimeout) {
		return fmt.Errorf("open bolt db %s: %w", path, ErrLocked)
	}
	return fmt.Errorf("open bolt db: %w", err)
}

func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." {
		return nil
	}
	return storage.EnsureDir(dir)
}

func (s *Store) ensureBuckets() error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		for _, name := range []string{bucketState, bucketJournal} {
			if _, err := tx.CreateBucketIfNotExists([]byte(name)); err != nil {
				return fmt.Errorf("create bucket %s: %w", name, err)
			}
		}
		return nil
	})
}

// Close closes the underlying store database.
func (s *Store) Close() error {
	return s.db.Close()
}

// State returns the state store.
func (s *Store) State() storage.StateStore { return &stateStore{db: s.db} }

// Journal returns the journal store.
func (s *Store) Journal() storage.JournalStore { return &journalStore{db: s.db} }

// nestedBucket walks (and optionally creates) a chain of buckets below a
// top-level bucket. It returns nil without error when a bucket is missing
// and create is false.
func nestedBucket(tx *bbolt.Tx, create bool, root string, path ...string) (*bbolt.Bucket, error) {
	current := tx.Bucket([]byte(root))
	if current == nil {
		return nil, fmt.Errorf("%s bucket missing", root)
	}
	for _, part := range path {
		next := current.Bucket([]byte(part))
		if next == nil {
			if !create {
				return nil, nil
			}
			var err error
			next, err = current.CreateBucketIfNotExists([]byte(part))
			if err != nil {
				return nil, fmt.Errorf("create bucket %s: %w", part, err)
			}
		}
		current = next
	}
	return current, nil
}

func sequenceKey(seq uint64) []byte {
	key := make([]byte, 8)
	binary.BigEndian.PutUint64(key, seq)
	return key
}

func checkContext(ctx context.Context) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return nil
}
