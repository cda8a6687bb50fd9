package redis

import (
	"context"
	"time"

	"github.com/goodtune/timekeeper/internal/storage"
	"github.com/redis/go-redis/v9"
)

var appendJournal = redis.NewScript(appendJournalScript)

type journalStore struct {
	client *redis.Client
	ttl    time.Duration
}

// Append pushes a record onto the user's list for the given date
func (s *journalStore) Append(ctx context.Context, user, date string, record []byte) error {
	if err := storage.ValidateUser(user); err != nil {
		return err
	}

	keys := []string{journalKey(user, date)}
	args := []interface{}{string(record), int64(s.ttl / time.Second)}

	return appendJournal.Run(ctx, s.client, keys, args...).Err()
}

// ReadDay returns all records of a day partition in append order
func (s *journalStore) ReadDay(ctx context.Context, user, date string) ([][]byte, error) {
	if err := storage.ValidateUser(user); err != nil {
		return nil, err
	}

	values, err := s.client.LRange(ctx, journalKey(user, date), 0, -1).Result()
	if err != nil {
		return nil, err
	}

	records := make([][]byte, 0, len(values))
	for _, v := range values {
		records = append(records, []byte(v))
	}

	return records, nil
}
