package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/goodtune/timekeeper/internal/config"
	"github.com/goodtune/timekeeper/internal/storage"
	"github.com/redis/go-redis/v9"
)

const keyPrefix = "timekeeper"

// Store implements the storage.Store interface using Redis
type Store struct {
	client       *redis.Client
	stateStore   *stateStore
	journalStore *journalStore
}

// Open creates a new Redis-backed storage instance
func Open(cfg config.RedisConfig) (*Store, error) {
	// Parse timeouts
	dialTimeout, err := time.ParseDuration(cfg.DialTimeout)
	if err != nil {
		return nil, fmt.Errorf("invalid dial_timeout: %w", err)
	}

	readTimeout, err := time.ParseDuration(cfg.ReadTimeout)
	if err != nil {
		return nil, fmt.Errorf("invalid read_timeout: %w", err)
	}

	writeTimeout, err := time.ParseDuration(cfg.WriteTimeout)
	if err != nil {
		return nil, fmt.Errorf("invalid write_timeout: %w", err)
	}

	journalTTL, err := time.ParseDuration(cfg.JournalTTL)
	if err != nil {
		return nil, fmt.Errorf("invalid journal_ttl: %w", err)
	}

	// A unix socket keeps all traffic on the local host
	network := cfg.Network
	if network == "" {
		network = "unix"
	}

	client := redis.NewClient(&redis.Options{
		Network:      network,
		Addr:         cfg.Address,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		DialTimeout:  dialTimeout,
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
	})

	// Ping to verify connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &Store{
		client:       client,
		stateStore:   &stateStore{client: client},
		journalStore: &journalStore{client: client, ttl: journalTTL},
	}, nil
}

// Close closes the Redis connection
func (s *Store) Close() error {
	return s.client.Close()
}

// State returns the StateStore implementation
func (s *Store) State() storage.StateStore {
	return s.stateStore
}

// Journal returns the JournalStore implementation
func (s *Store) Journal() storage.JournalStore {
	return s.journalStore
}

func stateKey(user string) string {
	return fmt.Sprintf("%s:state:%s", keyPrefix, user)
}

func journalKey(user, date string) string {
	return fmt.Sprintf("%s:journal:%s:%s", keyPrefix, user, date)
}
