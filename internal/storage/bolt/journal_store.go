package bolt

import (
	"context"

	"github.com/goodtune/timekeeper/internal/storage"
	"go.etcd.io/bbolt"
)

// journalStore keeps one bucket per user and date under the journal bucket,
// keyed by the bucket sequence so iteration order is append order.
type journalStore struct {
	db *bbolt.DB
}

func (s *journalStore) Append(ctx context.Context, user, date string, record []byte) error {
	if err := storage.ValidateUser(user); err != nil {
		return err
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		if err := checkContext(ctx); err != nil {
			return err
		}
		b, err := nestedBucket(tx, true, bucketJournal, user, date)
		if err != nil {
			return err
		}
		seq, err := b.NextSequence()
		if err != nil {
			return err
		}
		return b.Put(sequenceKey(seq), record)
	})
}

func (s *journalStore) ReadDay(ctx context.Context, user, date string) ([][]byte, error) {
	if err := storage.ValidateUser(user); err != nil {
		return nil, err
	}
	var records [][]byte
	err := s.db.View(func(tx *bbolt.Tx) error {
		if err := checkContext(ctx); err != nil {
			return err
		}
		b, err := nestedBucket(tx, false, bucketJournal, user, date)
		if err != nil || b == nil {
			return err
		}
		return b.ForEach(func(_, v []byte) error {
			records = append(records, append([]byte(nil), v...))
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return records, nil
}
