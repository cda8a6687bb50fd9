package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"
	"github.com/goodtune/timekeeper/internal/journal"
	"github.com/goodtune/timekeeper/internal/ledger"
	"github.com/goodtune/timekeeper/internal/quiz"
	"github.com/goodtune/timekeeper/internal/session"
)

const consoleHelp = `Commands:
  start <category> <plan>   start a session (categories: %s)
  quiz [easy|medium]        get a question (easy pays 1 credit, medium 2)
  answer <number>           answer the current question (a bare number works too)
  buy <minutes>             buy extra minutes at %d credits per minute
  history [days]            show credit transactions (default %d, at most %d days)
  status                    show remaining time, credits and questions
  help                      show this help
`

// historyTimeout bounds how long a history request may hold the controller.
const historyTimeout = 2 * time.Second

// console is the terminal presentation of a Controller. Lines read from in
// become Requests; the Requests print their results when the controller
// runs them.
type console struct {
	in  io.Reader
	out io.Writer
	mu  sync.Mutex

	title *color.Color
	good  *color.Color
	bad   *color.Color
	warn  *color.Color
	info  *color.Color
}

func newConsole(in io.Reader, out io.Writer) *console {
	return &console{
		in:    in,
		out:   out,
		title: color.New(color.FgCyan, color.Bold),
		good:  color.New(color.FgGreen),
		bad:   color.New(color.FgRed),
		warn:  color.New(color.FgYellow, color.Bold),
		info:  color.New(color.FgWhite),
	}
}

func (c *console) printf(col *color.Color, format string, args ...any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, _ = col.Fprintf(c.out, format, args...)
}

// readLoop forwards parsed lines to requests until input ends or ctx is done.
func (c *console) readLoop(ctx context.Context, requests chan<- session.Request) {
	scanner := bufio.NewScanner(c.in)
	for scanner.Scan() {
		req, err := c.parse(ctx, scanner.Text())
		if err != nil {
			c.printf(c.bad, "%v\n", err)
			continue
		}
		if req == nil {
			continue
		}
		select {
		case requests <- req:
		case <-ctx.Done():
			return
		}
	}
}

// parse turns one input line into a Request. A nil Request with a nil error
// means there is nothing for the controller to do. Requests that read
// storage are bounded by ctx.
func (c *console) parse(ctx context.Context, line string) (session.Request, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return nil, nil
	}

	cmd, args := strings.ToLower(fields[0]), fields[1:]
	switch cmd {
	case "help", "?":
		c.printHelp()
		return nil, nil

	case "start":
		if len(args) < 2 {
			return nil, fmt.Errorf("usage: start <category> <plan>")
		}
		category, plan := args[0], strings.Join(args[1:], " ")
		return func(ctrl *session.Controller) { c.start(ctrl, category, plan) }, nil

	case "quiz", "q":
		label := ""
		if len(args) > 0 {
			label = args[0]
		}
		return func(ctrl *session.Controller) { c.quiz(ctrl, quiz.ParseDifficulty(label)) }, nil

	case "answer", "a":
		if len(args) != 1 {
			return nil, fmt.Errorf("usage: answer <number>")
		}
		input := args[0]
		return func(ctrl *session.Controller) { c.answer(ctrl, input) }, nil

	case "buy":
		if len(args) != 1 {
			return nil, fmt.Errorf("usage: buy <minutes>")
		}
		minutes, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("minutes must be a whole number, got %q", args[0])
		}
		return func(ctrl *session.Controller) { c.buy(ctrl, minutes) }, nil

	case "history":
		days := journal.DefaultHistoryDays
		if len(args) > 0 {
			n, err := strconv.Atoi(args[0])
			if err != nil {
				return nil, fmt.Errorf("days must be a whole number, got %q", args[0])
			}
			if n < 1 || n > journal.MaxHistoryDays {
				return nil, fmt.Errorf("days must be between 1 and %d, got %d", journal.MaxHistoryDays, n)
			}
			days = n
		}
		return func(ctrl *session.Controller) {
			hctx, cancel := context.WithTimeout(ctx, historyTimeout)
			defer cancel()
			entries := ctrl.History(hctx, days)

			c.mu.Lock()
			defer c.mu.Unlock()
			printHistory(c.out, entries)
		}, nil

	case "status":
		return c.status, nil
	}

	// A bare number answers the pending question
	if _, err := strconv.Atoi(cmd); err == nil && len(args) == 0 {
		return func(ctrl *session.Controller) { c.answer(ctrl, cmd) }, nil
	}

	return nil, fmt.Errorf("unknown command %q, type help for a list", fields[0])
}

func (c *console) printHelp() {
	c.printf(c.info, consoleHelp,
		strings.Join(session.Categories, ", "), ledger.CreditsPerMinute,
		journal.DefaultHistoryDays, journal.MaxHistoryDays)
}

func (c *console) banner() {
	c.printf(c.title, "Computer Safety\n")
}

// welcome prints the opening screen. It must run before Run starts.
func (c *console) welcome(ctrl *session.Controller) {
	if ctrl.State() == session.LimitReached {
		return
	}
	c.printf(c.info, "Time remaining today: %s\n", session.FormatRemaining(ctrl.Remaining()))
	c.printf(c.info, "Before you start, pick a category and tell us your plan.\n\n")
	c.printHelp()
}

func (c *console) start(ctrl *session.Controller, category, plan string) {
	if err := ctrl.StartSession(category, plan); err != nil {
		c.printf(c.bad, "%s\n", describe(err))
		return
	}
	c.printf(c.good, "Session started. Enjoy, and stick to the plan!\n")
}

func (c *console) quiz(ctrl *session.Controller, d quiz.Difficulty) {
	ch, err := ctrl.NextChallenge(d)
	if err != nil {
		c.printf(c.bad, "%s\n", describe(err))
		return
	}
	c.printf(c.title, "[%s, %d credit(s)] What is %s?\n", ch.Difficulty, ch.Reward, ch.Prompt)
}

func (c *console) answer(ctrl *session.Controller, input string) {
	res, err := ctrl.SubmitAnswer(input)
	if err != nil {
		c.printf(c.bad, "%s\n", describe(err))
		return
	}
	if res.Correct {
		c.printf(c.good, "Correct! +%d credit(s). Balance: %d\n", res.Points, res.Balance)
	} else {
		c.printf(c.bad, "Not quite, the answer was %d. Balance: %d\n", res.Answer, res.Balance)
	}
	c.printf(c.info, "Questions today: %d/%d\n", res.Answered, res.Limit)
	if res.QuestionLimitReached {
		c.printf(c.warn, "That was the last question for today.\n")
	}
}

func (c *console) buy(ctrl *session.Controller, minutes int64) {
	res, err := ctrl.RequestPurchase(minutes)
	if err != nil {
		c.printf(c.bad, "%s Balance: %d\n", describe(err), res.Balance)
		return
	}
	c.printf(c.good, "Bought %d minute(s) for %d credits. Balance: %d. Time remaining: %s\n",
		res.Minutes, res.Cost, res.Balance, session.FormatRemaining(res.Remaining))
}

func (c *console) status(ctrl *session.Controller) {
	answered, limit := ctrl.Progress()
	c.printf(c.info, "Time remaining today: %s\n", session.FormatRemaining(ctrl.Remaining()))
	c.printf(c.info, "Credits: %d\n", ctrl.Balance())
	c.printf(c.info, "Questions today: %d/%d\n", answered, limit)
	c.printf(c.info, "State: %s\n", ctrl.State())
}

// onTick announces the remaining time every five minutes, every minute in
// the last five and every second in the last ten.
func (c *console) onTick(res session.TickResult) {
	r := res.Remaining
	if res.LimitReached || res.Elapsed == 0 {
		return
	}
	if r%300 == 0 || (r <= 300 && r%60 == 0) || r <= 10 {
		c.printf(c.warn, "Time remaining today: %s\n", session.FormatRemaining(r))
	}
}

func (c *console) timeUp() {
	c.printf(c.warn, "\nTime is up for today. See you tomorrow!\n")
}

// describe turns controller errors into user-facing text.
func describe(err error) string {
	switch {
	case errors.Is(err, session.ErrInvalidGoal):
		return fmt.Sprintf("Pick one of %s and describe your plan.", strings.Join(session.Categories, ", "))
	case errors.Is(err, session.ErrSessionState):
		return "A session is already running."
	case errors.Is(err, session.ErrNoChallenge):
		return "There is no question to answer, type quiz first."
	case errors.Is(err, session.ErrQuestionLimit):
		return fmt.Sprintf("You have answered all %d questions for today.", ledger.DailyQuestionLimit)
	case errors.Is(err, session.ErrLimitReached):
		return "Time is up for today."
	case errors.Is(err, quiz.ErrInvalidAnswer):
		return "Please answer with a whole number."
	case errors.Is(err, ledger.ErrInvalidMinutes):
		return fmt.Sprintf("You can buy between 1 and %d minutes.", ledger.MaxExtraMinutesPerDay)
	case errors.Is(err, ledger.ErrInsufficientCredits):
		return "Not enough credits."
	case errors.Is(err, ledger.ErrPurchaseCeiling):
		return "You cannot buy more extra time today."
	case errors.Is(err, ledger.ErrPersist):
		return "Could not save your purchase, nothing was charged."
	default:
		return err.Error()
	}
}
