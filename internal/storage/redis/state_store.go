package redis

import (
	"context"

	"github.com/goodtune/timekeeper/internal/storage"
	"github.com/redis/go-redis/v9"
)

type stateStore struct {
	client *redis.Client
}

// Load retrieves the state hash of a user
func (s *stateStore) Load(ctx context.Context, user string) (*storage.State, error) {
	if err := storage.ValidateUser(user); err != nil {
		return nil, err
	}

	data, err := s.client.HGetAll(ctx, stateKey(user)).Result()
	if err != nil {
		return nil, err
	}

	return parseState(data)
}

// Save writes every field with a single HSET, which Redis applies atomically
func (s *stateStore) Save(ctx context.Context, user string, state storage.State) error {
	if err := storage.ValidateUser(user); err != nil {
		return err
	}

	return s.client.HSet(ctx, stateKey(user), stateFields(state)...).Err()
}
