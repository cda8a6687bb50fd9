package redis

import (
	"fmt"
	"strconv"

	"github.com/goodtune/timekeeper/internal/storage"
)

// parseState converts a Redis hash to State
func parseState(data map[string]string) (*storage.State, error) {
	if len(data) == 0 {
		return nil, storage.ErrNotFound
	}

	secondsUsed, err := parseInt(data, "seconds_used_today")
	if err != nil {
		return nil, err
	}

	credits, err := parseInt(data, "total_credits")
	if err != nil {
		return nil, err
	}

	answered, err := parseInt(data, "questions_answered_today")
	if err != nil {
		return nil, err
	}

	extraMinutes, err := parseInt(data, "extra_minutes_purchased_today")
	if err != nil {
		return nil, err
	}

	state := &storage.State{
		Date:                       data["date"],
		SecondsUsedToday:           secondsUsed,
		TotalCredits:               credits,
		QuestionsAnsweredToday:     int(answered),
		LastQuestionDate:           data["last_question_date"],
		ExtraMinutesPurchasedToday: extraMinutes,
	}
	if err := state.Validate(); err != nil {
		return nil, err
	}
	return state, nil
}

func parseInt(data map[string]string, field string) (int64, error) {
	raw, ok := data[field]
	if !ok {
		return 0, fmt.Errorf("%w: missing %s", storage.ErrCorrupt, field)
	}
	value, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: failed to parse %s: %v", storage.ErrCorrupt, field, err)
	}
	return value, nil
}

// stateFields flattens a State into HSET arguments
func stateFields(state storage.State) []interface{} {
	return []interface{}{
		"date", state.Date,
		"seconds_used_today", state.SecondsUsedToday,
		"total_credits", state.TotalCredits,
		"questions_answered_today", state.QuestionsAnsweredToday,
		"last_question_date", state.LastQuestionDate,
		"extra_minutes_purchased_today", state.ExtraMinutesPurchasedToday,
	}
}
