package session

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrInvalidGoal   = errors.New("session: a category and a non-empty plan are required")
	ErrSessionState  = errors.New("session: operation not allowed in current state")
	ErrNoChallenge   = errors.New("session: no challenge pending")
	ErrQuestionLimit = errors.New("session: daily question limit reached")
	ErrLimitReached  = errors.New("session: daily time limit reached")
)

// State is the controller's position in its lifecycle.
type State int

const (
	AwaitingGoal State = iota
	ActiveSession
	LimitReached
)

func (s State) String() string {
	switch s {
	case AwaitingGoal:
		return "awaiting_goal"
	case ActiveSession:
		return "active_session"
	case LimitReached:
		return "limit_reached"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Categories a session goal can be filed under.
var Categories = []string{"Research", "Entertainment", "Games"}

// ParseCategory returns the canonical spelling of a category, matched
// case-insensitively.
func ParseCategory(s string) (string, bool) {
	s = strings.TrimSpace(s)
	for _, c := range Categories {
		if strings.EqualFold(c, s) {
			return c, true
		}
	}
	return "", false
}

// TickResult reports the budget after one tick.
type TickResult struct {
	Elapsed      int64
	Remaining    int64
	LimitReached bool
}

// AnswerResult reports the outcome of a submitted answer.
type AnswerResult struct {
	Correct  bool
	Answer   int
	Points   int64
	Balance  int64
	Answered int
	Limit    int

	// QuestionLimitReached is set when this answer used the last question
	// of the day.
	QuestionLimitReached bool
}

// PurchaseResult reports the outcome of a purchase request.
type PurchaseResult struct {
	Minutes   int64
	Cost      int64
	Balance   int64
	Remaining int64
}

// Request is an action executed on the controller's own goroutine.
type Request func(*Controller)

// FormatRemaining renders seconds as MM:SS. Minutes are not wrapped into
// hours.
func FormatRemaining(seconds int64) string {
	if seconds < 0 {
		seconds = 0
	}
	return fmt.Sprintf("%02d:%02d", seconds/60, seconds%60)
}
