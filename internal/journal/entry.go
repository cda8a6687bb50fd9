package journal

import (
	"encoding/json"
	"fmt"
	"time"
)

// Kind tags a journal record.
type Kind string

const (
	KindSessionStart         Kind = "session_start"
	KindSessionEnd           Kind = "session_end"
	KindCreditEarned         Kind = "credit_earned"
	KindCreditSpent          Kind = "credit_spent"
	KindQuestionLimitReached Kind = "question_limit_reached"
)

// Valid reports whether k is a known kind.
func (k Kind) Valid() bool {
	switch k {
	case KindSessionStart, KindSessionEnd, KindCreditEarned, KindCreditSpent, KindQuestionLimitReached:
		return true
	}
	return false
}

// Session end reasons.
const (
	ReasonLimitReached = "limit_reached"
	ReasonShutdown     = "shutdown"
)

// Entry is one journal record. Only the fields of its Kind are set.
type Entry struct {
	Kind      Kind      `json:"event"`
	Timestamp time.Time `json:"timestamp,omitzero"`

	// Session fields
	SessionID       string    `json:"session_id,omitempty"`
	Category        string    `json:"category,omitempty"`
	Plan            string    `json:"plan,omitempty"`
	Start           time.Time `json:"start,omitzero"`
	DurationSeconds int64     `json:"duration_seconds,omitempty"`
	Reason          string    `json:"reason,omitempty"`

	// Credit fields
	Difficulty  string `json:"difficulty,omitempty"`
	Question    string `json:"question,omitempty"`
	Correct     *bool  `json:"correct,omitempty"`
	Points      int64  `json:"points,omitempty"`
	Amount      int64  `json:"amount,omitempty"`
	Minutes     int64  `json:"minutes,omitempty"`
	Description string `json:"description,omitempty"`
}

// NewSessionStart records the start of a goal-directed session.
func NewSessionStart(sessionID, category, plan string, at time.Time) Entry {
	return Entry{
		Kind:      KindSessionStart,
		Timestamp: at.UTC(),
		SessionID: sessionID,
		Category:  category,
		Plan:      plan,
	}
}

// NewSessionEnd closes the session opened by start.
func NewSessionEnd(start Entry, durationSeconds int64, reason string, at time.Time) Entry {
	if durationSeconds < 0 {
		durationSeconds = 0
	}
	return Entry{
		Kind:            KindSessionEnd,
		Timestamp:       at.UTC(),
		SessionID:       start.SessionID,
		Category:        start.Category,
		Plan:            start.Plan,
		Start:           start.Timestamp,
		DurationSeconds: durationSeconds,
		Reason:          reason,
	}
}

// NewCreditEarned records one submitted answer. Points is zero for a wrong
// answer.
func NewCreditEarned(difficulty, question string, correct bool, points int64, at time.Time) Entry {
	return Entry{
		Kind:       KindCreditEarned,
		Timestamp:  at.UTC(),
		Difficulty: difficulty,
		Question:   question,
		Correct:    &correct,
		Points:     points,
	}
}

// NewCreditSpent records a purchase of minutes for amount credits.
func NewCreditSpent(amount, minutes int64, at time.Time) Entry {
	return Entry{
		Kind:        KindCreditSpent,
		Timestamp:   at.UTC(),
		Amount:      amount,
		Minutes:     minutes,
		Description: fmt.Sprintf("Purchased %d minute(s) of extra time", minutes),
	}
}

// NewQuestionLimitReached marks the daily question limit being hit.
func NewQuestionLimitReached(at time.Time) Entry {
	return Entry{Kind: KindQuestionLimitReached, Timestamp: at.UTC()}
}

// MarshalJSON writes the numeric and boolean fields of e's kind even when
// they are zero, so a wrong answer still records points and correct.
func (e Entry) MarshalJSON() ([]byte, error) {
	type plain Entry
	switch e.Kind {
	case KindSessionEnd:
		return json.Marshal(struct {
			plain
			DurationSeconds int64 `json:"duration_seconds"`
		}{plain(e), e.DurationSeconds})
	case KindCreditEarned:
		return json.Marshal(struct {
			plain
			Correct bool  `json:"correct"`
			Points  int64 `json:"points"`
		}{plain(e), e.WasCorrect(), e.Points})
	case KindCreditSpent:
		return json.Marshal(struct {
			plain
			Amount  int64 `json:"amount"`
			Minutes int64 `json:"minutes"`
		}{plain(e), e.Amount, e.Minutes})
	}
	return json.Marshal(plain(e))
}

// IsCredit reports whether the entry changed the credit balance history.
func (e Entry) IsCredit() bool {
	return e.Kind == KindCreditEarned || e.Kind == KindCreditSpent
}

// WasCorrect reports the answer outcome of a credit_earned entry.
func (e Entry) WasCorrect() bool {
	return e.Correct != nil && *e.Correct
}

func encode(e Entry) ([]byte, error) {
	data, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("encode journal entry: %w", err)
	}
	return data, nil
}

func decode(line []byte) (Entry, error) {
	var e Entry
	if err := json.Unmarshal(line, &e); err != nil {
		return Entry{}, fmt.Errorf("decode journal entry: %w", err)
	}
	if !e.Kind.Valid() {
		return Entry{}, fmt.Errorf("decode journal entry: unknown event %q", e.Kind)
	}
	return e, nil
}
