package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/goodtune/timekeeper/internal/config"
	"github.com/goodtune/timekeeper/internal/storage"
	"github.com/goodtune/timekeeper/internal/storage/bolt"
	"github.com/goodtune/timekeeper/internal/storage/file"
	"github.com/goodtune/timekeeper/internal/storage/redis"
	"github.com/rs/zerolog"
)

// openStorage opens the configured backend. Inspection commands pass
// readOnly so a bolt database is opened without the writer lock.
func openStorage(cfg config.StorageConfig, readOnly bool) (storage.Store, error) {
	switch cfg.Type {
	case "", "file":
		return file.Open(cfg.DataDir)
	case "bolt":
		if readOnly {
			return bolt.OpenReadOnly(cfg.BoltPath)
		}
		return bolt.Open(cfg.BoltPath)
	case "redis":
		return redis.Open(cfg.Redis)
	default:
		return nil, fmt.Errorf("unsupported storage type: %s", cfg.Type)
	}
}

// setupLogger configures the logger based on configuration
func setupLogger(cfg config.LoggingConfig, out io.Writer) zerolog.Logger {
	// Set log level
	level := zerolog.InfoLevel
	switch cfg.Level {
	case "debug":
		level = zerolog.DebugLevel
	case "info":
		level = zerolog.InfoLevel
	case "warn":
		level = zerolog.WarnLevel
	case "error":
		level = zerolog.ErrorLevel
	}

	zerolog.SetGlobalLevel(level)

	// Set output format
	if cfg.Format == "text" {
		return zerolog.New(zerolog.ConsoleWriter{Out: out}).With().Timestamp().Logger()
	}

	// Default to JSON
	return zerolog.New(out).With().Timestamp().Logger()
}

// parseDuration parses a duration string with a fallback
func parseDuration(s string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil {
		return fallback
	}
	return d
}

// readOnlyState lets inspection commands reuse the ledger's rollover and
// budget arithmetic without writing to a store the daemon owns.
type readOnlyState struct {
	storage.StateStore
}

func (readOnlyState) Save(context.Context, string, storage.State) error {
	return nil
}
