package storage

import (
	"encoding/json"
	"fmt"
	"time"
)

// State is the persisted daily quota ledger and credit account of a user.
type State struct {
	Date                       string `json:"date"`
	SecondsUsedToday           int64  `json:"seconds_used_today"`
	TotalCredits               int64  `json:"total_credits"`
	QuestionsAnsweredToday     int    `json:"questions_answered_today"`
	LastQuestionDate           string `json:"last_question_date"`
	ExtraMinutesPurchasedToday int64  `json:"extra_minutes_purchased_today"`
}

// EncodeState serializes a state record.
func EncodeState(state State) ([]byte, error) {
	data, err := json.Marshal(state)
	if err != nil {
		return nil, fmt.Errorf("marshal state: %w", err)
	}
	return data, nil
}

// DecodeState parses a state record. Any decoding problem, including a
// record that fails Validate, is reported as ErrCorrupt.
func DecodeState(data []byte) (*State, error) {
	var state State
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	if err := state.Validate(); err != nil {
		return nil, err
	}
	return &state, nil
}

// Validate rejects records a valid writer never produces: an unparseable
// date or a negative counter.
func (s State) Validate() error {
	if _, err := time.Parse("2006-01-02", s.Date); err != nil {
		return fmt.Errorf("%w: bad date %q", ErrCorrupt, s.Date)
	}
	if s.SecondsUsedToday < 0 || s.TotalCredits < 0 ||
		s.QuestionsAnsweredToday < 0 || s.ExtraMinutesPurchasedToday < 0 {
		return fmt.Errorf("%w: negative counter", ErrCorrupt)
	}
	return nil
}
