// Package ledger keeps the per-user daily quota and credit account. Both
// share one persisted storage.State record.
//
// A Ledger is owned by a single control flow and is not safe for concurrent
// use.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/goodtune/timekeeper/internal/clock"
	"github.com/goodtune/timekeeper/internal/metrics"
	"github.com/goodtune/timekeeper/internal/storage"
	"github.com/rs/zerolog"
)

const (
	// BaseDailyLimitSeconds is the budget every day starts with.
	BaseDailyLimitSeconds int64 = 30 * 60

	// DailyQuestionLimit caps answered challenges per day.
	DailyQuestionLimit = 20

	// CreditsPerMinute is the price of one extra minute.
	CreditsPerMinute int64 = 5

	// MaxExtraMinutesPerDay caps purchased minutes per day.
	MaxExtraMinutesPerDay int64 = 24 * 60

	// SaveInterval is the minimum monotonic time between batched writes.
	SaveInterval = 10 * time.Second

	storeTimeout = 5 * time.Second
)

var (
	ErrInvalidMinutes      = errors.New("ledger: minutes must be between 1 and 1440")
	ErrInsufficientCredits = errors.New("ledger: insufficient credits")
	ErrOverflow            = errors.New("ledger: arithmetic overflow")
	ErrPurchaseCeiling     = errors.New("ledger: daily extra-minute ceiling reached")
	ErrQuestionLimit       = errors.New("ledger: daily question limit reached")
	ErrPersist             = errors.New("ledger: failed to persist state")
)

// Ledger tracks time consumed today, purchased extra minutes and the credit
// account of one user.
type Ledger struct {
	store  storage.StateStore
	user   string
	clock  clock.Clock
	logger zerolog.Logger

	state    storage.State
	lastSave time.Duration
	saved    bool
}

// New creates a ledger. Call Load before use.
func New(store storage.StateStore, user string, clk clock.Clock, logger zerolog.Logger) *Ledger {
	return &Ledger{
		store:  store,
		user:   user,
		clock:  clk,
		logger: logger.With().Str("component", "ledger").Str("user", user).Logger(),
		state:  storage.State{Date: clock.Today(clk)},
	}
}

// Load reads the persisted record. A missing record starts a fresh day and
// a corrupt or unreadable one is discarded in favor of a full reset; both
// cases write a valid record back. Load never fails.
func (l *Ledger) Load(ctx context.Context) {
	today := clock.Today(l.clock)

	state, err := l.store.Load(ctx, l.user)
	switch {
	case err == nil:
		l.state = *state
	case errors.Is(err, storage.ErrNotFound):
		l.logger.Info().Msg("No saved state, starting fresh")
		l.state = storage.State{Date: today}
	default:
		l.logger.Warn().Err(err).Msg("Saved state unreadable, resetting all counters")
		l.state = storage.State{Date: today}
	}

	l.rollover()

	if err := l.save(); err != nil {
		l.logger.Warn().Err(err).Msg("Failed to write state after load")
	}

	l.logger.Info().
		Str("date", l.state.Date).
		Int64("seconds_used", l.state.SecondsUsedToday).
		Int64("credits", l.state.TotalCredits).
		Int64("extra_minutes", l.state.ExtraMinutesPurchasedToday).
		Msg("Ledger loaded")
}

// Snapshot returns a copy of the state, rolled over to today.
func (l *Ledger) Snapshot() storage.State {
	l.rollover()
	l.rolloverQuestions()
	return l.state
}

// ForceSave writes the state immediately, bypassing batching.
func (l *Ledger) ForceSave() error {
	if err := l.save(); err != nil {
		return fmt.Errorf("%w: %v", ErrPersist, err)
	}
	return nil
}

// rollover resets the daily counters when the calendar date has changed.
// Credits are never touched.
func (l *Ledger) rollover() {
	today := clock.Today(l.clock)
	if l.state.Date == today {
		return
	}
	l.logger.Info().
		Str("previous_date", l.state.Date).
		Str("date", today).
		Msg("Date changed, resetting daily usage")
	l.state.Date = today
	l.state.SecondsUsedToday = 0
	l.state.ExtraMinutesPurchasedToday = 0
}

// rolloverQuestions resets the question counter when it belongs to another
// date.
func (l *Ledger) rolloverQuestions() {
	today := clock.Today(l.clock)
	if l.state.LastQuestionDate == today {
		return
	}
	l.state.LastQuestionDate = today
	l.state.QuestionsAnsweredToday = 0
}

// save persists the state unconditionally.
func (l *Ledger) save() error {
	ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
	defer cancel()

	if err := l.store.Save(ctx, l.user, l.state); err != nil {
		metrics.StateSaveErrors.Inc()
		return err
	}
	l.lastSave = l.clock.Monotonic()
	l.saved = true
	return nil
}

// maybeSave persists the state only when SaveInterval has passed since the
// last successful write. Errors are logged and swallowed.
func (l *Ledger) maybeSave() {
	now := l.clock.Monotonic()
	if l.saved && now-l.lastSave < SaveInterval {
		return
	}
	if err := l.save(); err != nil {
		l.logger.Warn().Err(err).Msg("Batched state save failed")
	}
}
