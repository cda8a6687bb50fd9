package ledger

import (
	"fmt"
)

// AddCredits increases the balance and saves immediately. Negative amounts
// count as zero.
func (l *Ledger) AddCredits(amount int64) error {
	if amount < 0 {
		amount = 0
	}
	l.state.TotalCredits = saturatingAdd(l.state.TotalCredits, amount)
	return l.ForceSave()
}

// Credits returns the current balance.
func (l *Ledger) Credits() int64 {
	return l.state.TotalCredits
}

// CanAnswerQuestion reports whether another challenge may be answered today.
func (l *Ledger) CanAnswerQuestion() bool {
	l.rolloverQuestions()
	return l.state.QuestionsAnsweredToday < DailyQuestionLimit
}

// QuestionsAnsweredToday returns today's answer count.
func (l *Ledger) QuestionsAnsweredToday() int {
	l.rolloverQuestions()
	return l.state.QuestionsAnsweredToday
}

// RecordQuestionAnswered counts one submitted answer, right or wrong, and
// saves immediately. Once the daily limit is reached further calls return
// ErrQuestionLimit and change nothing.
func (l *Ledger) RecordQuestionAnswered() error {
	l.rolloverQuestions()
	if l.state.QuestionsAnsweredToday >= DailyQuestionLimit {
		return ErrQuestionLimit
	}
	l.state.QuestionsAnsweredToday++
	return l.ForceSave()
}

// Price returns the credits needed for minutes of extra time.
func Price(minutes int64) (int64, error) {
	if minutes < 1 || minutes > MaxExtraMinutesPerDay {
		return 0, fmt.Errorf("%w: got %d", ErrInvalidMinutes, minutes)
	}
	cost, ok := multiply(minutes, CreditsPerMinute)
	if !ok {
		return 0, ErrOverflow
	}
	return cost, nil
}

// CanAfford reports whether the balance covers minutes of extra time.
func (l *Ledger) CanAfford(minutes int64) bool {
	cost, err := Price(minutes)
	if err != nil {
		return false
	}
	return l.state.TotalCredits >= cost
}

// SpendForMinutes debits the price of minutes and grants them as extra time
// for today in a single write. If the write fails both fields are restored
// to their previous values. It returns the number of credits spent.
func (l *Ledger) SpendForMinutes(minutes int64) (int64, error) {
	cost, err := Price(minutes)
	if err != nil {
		return 0, err
	}

	l.rollover()

	if l.state.TotalCredits < cost {
		return 0, fmt.Errorf("%w: need %d, have %d", ErrInsufficientCredits, cost, l.state.TotalCredits)
	}
	extra, ok := add(l.state.ExtraMinutesPurchasedToday, minutes)
	if !ok || extra > MaxExtraMinutesPerDay {
		return 0, fmt.Errorf("%w: %d already purchased today", ErrPurchaseCeiling, l.state.ExtraMinutesPurchasedToday)
	}

	before := l.state
	l.state.TotalCredits -= cost
	l.state.ExtraMinutesPurchasedToday = extra

	if err := l.save(); err != nil {
		l.state = before
		l.logger.Warn().Err(err).Int64("minutes", minutes).Msg("Purchase rolled back, state not persisted")
		return 0, fmt.Errorf("%w: %v", ErrPersist, err)
	}

	l.logger.Info().
		Int64("minutes", minutes).
		Int64("cost", cost).
		Int64("credits", l.state.TotalCredits).
		Int64("extra_minutes", l.state.ExtraMinutesPurchasedToday).
		Msg("Extra minutes purchased")

	return cost, nil
}
