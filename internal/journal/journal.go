// Package journal appends session and credit events to per-day, per-user
// partitions and reads the credit history back.
package journal

import (
	"context"
	"sort"
	"time"

	"github.com/goodtune/timekeeper/internal/clock"
	"github.com/goodtune/timekeeper/internal/metrics"
	"github.com/goodtune/timekeeper/internal/storage"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/rs/zerolog"
)

const (
	// DefaultHistoryDays is used when History is asked for zero or fewer days.
	DefaultHistoryDays = 30

	// MaxHistoryDays bounds one History scan. It matches the default
	// retention of Redis journal partitions.
	MaxHistoryDays = 400

	dayCacheSize  = 64
	appendTimeout = 5 * time.Second
)

// Journal writes entries for one user.
type Journal struct {
	store  storage.JournalStore
	user   string
	clock  clock.Clock
	logger zerolog.Logger

	// Parsed partitions of past days; they no longer receive appends.
	days *lru.Cache[string, []Entry]
}

// New creates a journal for user.
func New(store storage.JournalStore, user string, clk clock.Clock, logger zerolog.Logger) *Journal {
	days, _ := lru.New[string, []Entry](dayCacheSize)
	return &Journal{
		store:  store,
		user:   user,
		clock:  clk,
		logger: logger.With().Str("component", "journal").Str("user", user).Logger(),
		days:   days,
	}
}

// Append writes entry to today's partition, stamping it if it carries no
// timestamp. Failures are logged and counted, never returned.
func (j *Journal) Append(entry Entry) {
	if entry.Timestamp.IsZero() {
		entry.Timestamp = j.clock.Now().UTC()
	}

	data, err := encode(entry)
	if err != nil {
		metrics.JournalWriteErrors.Inc()
		j.logger.Warn().Err(err).Str("event", string(entry.Kind)).Msg("Failed to encode journal entry")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), appendTimeout)
	defer cancel()

	if err := j.store.Append(ctx, j.user, clock.Today(j.clock), data); err != nil {
		metrics.JournalWriteErrors.Inc()
		j.logger.Warn().Err(err).Str("event", string(entry.Kind)).Msg("Failed to append journal entry")
		return
	}

	j.logger.Debug().Str("event", string(entry.Kind)).Msg("Journal entry appended")
}

// Day returns every well-formed entry of one partition in file order.
func (j *Journal) Day(ctx context.Context, date string) ([]Entry, error) {
	past := date != clock.Today(j.clock)
	if past {
		if entries, ok := j.days.Get(date); ok {
			return entries, nil
		}
	}

	lines, err := j.store.ReadDay(ctx, j.user, date)
	if err != nil {
		return nil, err
	}

	entries := make([]Entry, 0, len(lines))
	for _, line := range lines {
		entry, err := decode(line)
		if err != nil {
			j.logger.Debug().Err(err).Str("date", date).Msg("Skipping malformed journal line")
			continue
		}
		entries = append(entries, entry)
	}

	if past {
		j.days.Add(date, entries)
	}
	return entries, nil
}

// History returns credit_earned and credit_spent entries from today and the
// daysBack-1 days before it, newest first, scanning at most MaxHistoryDays
// partitions. Entries without a timestamp sort last. Unreadable partitions
// are skipped, and the scan stops early when ctx is done.
func (j *Journal) History(ctx context.Context, daysBack int) []Entry {
	if daysBack <= 0 {
		daysBack = DefaultHistoryDays
	}
	daysBack = min(daysBack, MaxHistoryDays)

	now := j.clock.Now()
	var history []Entry
	for i := 0; i < daysBack; i++ {
		if err := ctx.Err(); err != nil {
			j.logger.Warn().Err(err).Int("scanned", i).Msg("History scan interrupted")
			break
		}
		date := now.AddDate(0, 0, -i).Format(clock.DateLayout)
		entries, err := j.Day(ctx, date)
		if err != nil {
			j.logger.Warn().Err(err).Str("date", date).Msg("Failed to read journal partition")
			continue
		}
		for _, e := range entries {
			if e.IsCredit() {
				history = append(history, e)
			}
		}
	}

	// The zero time is the oldest possible instant, so untimed entries sink.
	sort.SliceStable(history, func(a, b int) bool {
		return history[a].Timestamp.After(history[b].Timestamp)
	})
	return history
}
