// Package session drives one user's day: it ticks the ledger, runs the
// goal-directed session lifecycle and mediates the credit economy.
package session

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/goodtune/timekeeper/internal/clock"
	"github.com/goodtune/timekeeper/internal/journal"
	"github.com/goodtune/timekeeper/internal/ledger"
	"github.com/goodtune/timekeeper/internal/metrics"
	"github.com/goodtune/timekeeper/internal/quiz"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// DefaultTickInterval drives Run.
const DefaultTickInterval = time.Second

// Config holds the collaborators of a Controller.
type Config struct {
	Ledger    *ledger.Ledger
	Journal   *journal.Journal
	Generator *quiz.Generator
	Clock     clock.Clock
	Logger    zerolog.Logger

	// TickInterval overrides DefaultTickInterval.
	TickInterval time.Duration

	// OnTick is called after every tick made by Run.
	OnTick func(TickResult)

	// OnLimit is called once, when the controller enters LimitReached.
	OnLimit func()
}

// Controller owns the ledger and journal for the lifetime of the process.
// All methods must be called from one goroutine; Run provides that
// goroutine and executes Requests on it.
type Controller struct {
	ledger    *ledger.Ledger
	journal   *journal.Journal
	generator *quiz.Generator
	clock     clock.Clock
	logger    zerolog.Logger

	tickInterval time.Duration
	onTick       func(TickResult)
	onLimit      func()

	state    State
	lastTick time.Duration
	carry    time.Duration

	start    journal.Entry
	baseline int64
	pending  *quiz.Challenge
	closed   bool
}

// New loads the ledger and returns a controller awaiting a goal. If the
// budget is already spent it starts in LimitReached.
func New(ctx context.Context, cfg Config) *Controller {
	if cfg.Generator == nil {
		cfg.Generator = quiz.Default()
	}
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = DefaultTickInterval
	}

	c := &Controller{
		ledger:       cfg.Ledger,
		journal:      cfg.Journal,
		generator:    cfg.Generator,
		clock:        cfg.Clock,
		logger:       cfg.Logger.With().Str("component", "session").Logger(),
		tickInterval: cfg.TickInterval,
		onTick:       cfg.OnTick,
		onLimit:      cfg.OnLimit,
		state:        AwaitingGoal,
	}

	c.ledger.Load(ctx)
	c.lastTick = c.clock.Monotonic()

	remaining := c.ledger.RemainingSeconds()
	metrics.RemainingSeconds.Set(float64(remaining))
	if remaining == 0 {
		c.logger.Info().Msg("Daily limit already reached at startup")
		c.enterLimit()
	}

	return c
}

// State returns the current lifecycle state.
func (c *Controller) State() State {
	return c.state
}

// SessionID returns the id of the active session, if any.
func (c *Controller) SessionID() string {
	if c.state != ActiveSession {
		return ""
	}
	return c.start.SessionID
}

// StartSession begins a goal-directed session.
func (c *Controller) StartSession(category, plan string) error {
	switch c.state {
	case LimitReached:
		return ErrLimitReached
	case ActiveSession:
		return ErrSessionState
	}

	canonical, ok := ParseCategory(category)
	plan = strings.TrimSpace(plan)
	if !ok || plan == "" {
		return ErrInvalidGoal
	}

	c.baseline = c.ledger.SecondsUsedToday()
	c.start = journal.NewSessionStart(uuid.NewString(), canonical, plan, c.clock.Now())
	c.journal.Append(c.start)
	c.state = ActiveSession

	c.logger.Info().
		Str("session_id", c.start.SessionID).
		Str("category", canonical).
		Int64("baseline_seconds", c.baseline).
		Msg("Session started")

	return nil
}

// Tick charges the monotonic time elapsed since the previous tick against
// the budget. Sub-second remainders carry over to the next tick.
func (c *Controller) Tick() TickResult {
	if c.state == LimitReached {
		return TickResult{LimitReached: true}
	}

	elapsed := c.advance()
	remaining := c.ledger.RemainingSeconds()
	metrics.RemainingSeconds.Set(float64(remaining))

	if remaining == 0 {
		c.enterLimit()
	}

	return TickResult{
		Elapsed:      elapsed,
		Remaining:    remaining,
		LimitReached: c.state == LimitReached,
	}
}

// advance feeds whole elapsed seconds to the ledger.
func (c *Controller) advance() int64 {
	now := c.clock.Monotonic()
	c.carry += now - c.lastTick
	c.lastTick = now
	if c.carry < 0 {
		c.carry = 0
	}

	whole := int64(c.carry / time.Second)
	c.carry -= time.Duration(whole) * time.Second
	c.ledger.Tick(whole)
	return whole
}

func (c *Controller) enterLimit() {
	if c.state == ActiveSession {
		c.endSession(journal.ReasonLimitReached)
	}
	if err := c.ledger.ForceSave(); err != nil {
		c.logger.Warn().Err(err).Msg("Failed to save state at limit")
	}

	c.state = LimitReached
	c.pending = nil
	metrics.LimitReached.Inc()
	metrics.RemainingSeconds.Set(0)

	c.logger.Info().
		Int64("seconds_used", c.ledger.SecondsUsedToday()).
		Msg("Daily limit reached")

	if c.onLimit != nil {
		c.onLimit()
	}
}

func (c *Controller) endSession(reason string) {
	duration := c.ledger.SecondsUsedToday() - c.baseline
	if duration < 0 {
		duration = 0
	}
	c.journal.Append(journal.NewSessionEnd(c.start, duration, reason, c.clock.Now()))

	c.logger.Info().
		Str("session_id", c.start.SessionID).
		Int64("duration_seconds", duration).
		Str("reason", reason).
		Msg("Session ended")
}

// NextChallenge generates a challenge and holds it as the pending one,
// replacing any previous challenge.
func (c *Controller) NextChallenge(d quiz.Difficulty) (quiz.Challenge, error) {
	if c.state == LimitReached {
		return quiz.Challenge{}, ErrLimitReached
	}
	if !c.ledger.CanAnswerQuestion() {
		return quiz.Challenge{}, ErrQuestionLimit
	}

	ch := c.generator.Generate(d)
	c.pending = &ch
	return ch, nil
}

// SubmitAnswer checks input against the pending challenge. Input that is not
// a whole number is rejected with quiz.ErrInvalidAnswer and the challenge
// stays pending. Any other input consumes the challenge and one question of
// today's allowance.
func (c *Controller) SubmitAnswer(input string) (AnswerResult, error) {
	if c.state == LimitReached {
		return AnswerResult{}, ErrLimitReached
	}
	if c.pending == nil {
		return AnswerResult{}, ErrNoChallenge
	}

	ch := *c.pending
	correct, err := ch.Check(input)
	if err != nil {
		return AnswerResult{}, err
	}
	c.pending = nil

	if err := c.ledger.RecordQuestionAnswered(); err != nil {
		if errors.Is(err, ledger.ErrQuestionLimit) {
			return AnswerResult{}, ErrQuestionLimit
		}
		c.logger.Warn().Err(err).Msg("Failed to save question count")
	}

	var points int64
	if correct {
		points = int64(ch.Reward)
		if err := c.ledger.AddCredits(points); err != nil {
			c.logger.Warn().Err(err).Msg("Failed to save credits")
		}
		metrics.CreditsEarned.Add(float64(points))
	}

	result := "incorrect"
	if correct {
		result = "correct"
	}
	metrics.QuestionsAnswered.WithLabelValues(string(ch.Difficulty), result).Inc()

	now := c.clock.Now()
	c.journal.Append(journal.NewCreditEarned(string(ch.Difficulty), ch.Prompt, correct, points, now))

	answered, limit := c.Progress()
	res := AnswerResult{
		Correct:  correct,
		Answer:   ch.Answer,
		Points:   points,
		Balance:  c.ledger.Credits(),
		Answered: answered,
		Limit:    limit,
	}

	if answered >= limit {
		res.QuestionLimitReached = true
		c.journal.Append(journal.NewQuestionLimitReached(now))
		c.logger.Info().Int("answered", answered).Msg("Daily question limit reached")
	}

	c.logger.Debug().
		Str("difficulty", string(ch.Difficulty)).
		Bool("correct", correct).
		Int64("points", points).
		Int64("credits", res.Balance).
		Msg("Answer submitted")

	return res, nil
}

// RequestPurchase spends credits on extra minutes for today.
func (c *Controller) RequestPurchase(minutes int64) (PurchaseResult, error) {
	if c.state == LimitReached {
		return PurchaseResult{Balance: c.ledger.Credits()}, ErrLimitReached
	}

	cost, err := c.ledger.SpendForMinutes(minutes)
	if err != nil {
		metrics.Purchases.WithLabelValues(purchaseOutcome(err)).Inc()
		c.logger.Info().Err(err).Int64("minutes", minutes).Msg("Purchase rejected")
		return PurchaseResult{
			Balance:   c.ledger.Credits(),
			Remaining: c.ledger.RemainingSeconds(),
		}, err
	}

	c.journal.Append(journal.NewCreditSpent(cost, minutes, c.clock.Now()))
	metrics.Purchases.WithLabelValues("ok").Inc()
	metrics.CreditsSpent.Add(float64(cost))

	remaining := c.ledger.RemainingSeconds()
	metrics.RemainingSeconds.Set(float64(remaining))

	return PurchaseResult{
		Minutes:   minutes,
		Cost:      cost,
		Balance:   c.ledger.Credits(),
		Remaining: remaining,
	}, nil
}

func purchaseOutcome(err error) string {
	switch {
	case errors.Is(err, ledger.ErrInsufficientCredits):
		return "insufficient_credits"
	case errors.Is(err, ledger.ErrPurchaseCeiling):
		return "ceiling"
	case errors.Is(err, ledger.ErrPersist):
		return "persist_failed"
	default:
		return "invalid"
	}
}

// History returns credit transactions of the last daysBack days, newest
// first.
func (c *Controller) History(ctx context.Context, daysBack int) []journal.Entry {
	return c.journal.History(ctx, daysBack)
}

// Progress returns today's answered questions and the daily limit.
func (c *Controller) Progress() (answered, limit int) {
	return c.ledger.QuestionsAnsweredToday(), ledger.DailyQuestionLimit
}

// Remaining returns the seconds of budget left today.
func (c *Controller) Remaining() int64 {
	if c.state == LimitReached {
		return 0
	}
	return c.ledger.RemainingSeconds()
}

// Balance returns the credit balance.
func (c *Controller) Balance() int64 {
	return c.ledger.Credits()
}

// Shutdown charges the time since the last tick, closes an active session
// and flushes the ledger. It is safe to call more than once.
func (c *Controller) Shutdown() error {
	if c.closed {
		return nil
	}
	c.closed = true

	if c.state != LimitReached {
		c.advance()
	}
	if c.state == ActiveSession {
		c.endSession(journal.ReasonShutdown)
		c.state = AwaitingGoal
	}

	if err := c.ledger.ForceSave(); err != nil {
		c.logger.Warn().Err(err).Msg("Failed to save state at shutdown")
		return err
	}
	c.logger.Info().Msg("Session controller shut down")
	return nil
}

// Run ticks the controller every TickInterval and executes requests between
// ticks until the limit is reached or ctx is done. A closed requests
// channel is ignored.
func (c *Controller) Run(ctx context.Context, requests <-chan Request) error {
	if c.state == LimitReached {
		return nil
	}

	ticker := time.NewTicker(c.tickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			res := c.Tick()
			if c.onTick != nil {
				c.onTick(res)
			}
			if res.LimitReached {
				return nil
			}
		case req, ok := <-requests:
			if !ok {
				requests = nil
				continue
			}
			req(c)
			if c.state == LimitReached {
				return nil
			}
		}
	}
}
