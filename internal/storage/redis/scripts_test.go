package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

// setupTestRedis creates a miniredis instance for testing Lua scripts
func setupTestRedis(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})

	return client, mr
}

func TestAppendJournalScript(t *testing.T) {
	client, mr := setupTestRedis(t)
	defer client.Close()

	ctx := context.Background()

	tests := []struct {
		name    string
		key     string
		ttl     int64
		appends int
		wantTTL time.Duration
	}{
		{
			name:    "append with retention",
			key:     "timekeeper:journal:alice:2024-01-15",
			ttl:     3600,
			appends: 3,
			wantTTL: time.Hour,
		},
		{
			name:    "append without retention",
			key:     "timekeeper:journal:bob:2024-01-15",
			ttl:     0,
			appends: 2,
			wantTTL: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var length int64
			for i := 0; i < tt.appends; i++ {
				res, err := appendJournal.Run(ctx, client, []string{tt.key}, "record", tt.ttl).Int64()
				if err != nil {
					t.Fatalf("Script failed: %v", err)
				}
				length = res
			}

			if length != int64(tt.appends) {
				t.Errorf("Expected list length %d, got %d", tt.appends, length)
			}

			if got := mr.TTL(tt.key); got != tt.wantTTL {
				t.Errorf("Expected TTL %v, got %v", tt.wantTTL, got)
			}
		})
	}
}
