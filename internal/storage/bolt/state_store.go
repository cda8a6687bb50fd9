package bolt

import (
	"context"
	"fmt"

	"github.com/goodtune/timekeeper/internal/storage"
	"go.etcd.io/bbolt"
)

type stateStore struct {
	db *bbolt.DB
}

func (s *stateStore) Load(ctx context.Context, user string) (*storage.State, error) {
	if err := storage.ValidateUser(user); err != nil {
		return nil, err
	}
	var data []byte
	err := s.db.View(func(tx *bbolt.Tx) error {
		if err := checkContext(ctx); err != nil {
			return err
		}
		b := tx.Bucket([]byte(bucketState))
		if b == nil {
			return fmt.Errorf("state bucket missing")
		}
		value := b.Get([]byte(user))
		if value == nil {
			return storage.ErrNotFound
		}
		// Values are only valid for the life of the transaction.
		data = append([]byte(nil), value...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return storage.DecodeState(data)
}

// Save relies on bbolt's transactional commit for atomic replacement.
func (s *stateStore) Save(ctx context.Context, user string, state storage.State) error {
	if err := storage.ValidateUser(user); err != nil {
		return err
	}
	data, err := storage.EncodeState(state)
	if err != nil {
		return err
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		if err := checkContext(ctx); err != nil {
			return err
		}
		b := tx.Bucket([]byte(bucketState))
		if b == nil {
			return fmt.Errorf("state bucket missing")
		}
		return b.Put([]byte(user), data)
	})
}
