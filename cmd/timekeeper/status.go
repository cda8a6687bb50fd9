package main

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/goodtune/timekeeper/internal/clock"
	"github.com/goodtune/timekeeper/internal/config"
	"github.com/goodtune/timekeeper/internal/journal"
	"github.com/goodtune/timekeeper/internal/ledger"
	"github.com/goodtune/timekeeper/internal/session"
	"github.com/goodtune/timekeeper/internal/storage"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var (
	inspectUser string
	historyDays int
	historyDate string
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show today's budget, credits and questions",
	Long: `Show the remaining time, purchased minutes, credit balance and question count for a user without modifying any state.

With storage.type bolt the database admits a single process, so this command
fails with "locked by another process" while timekeeper run is active.`,
	Example: `  timekeeper status
  timekeeper -c /etc/timekeeper/config.yaml status --user alice`,
	RunE: runStatus,
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show credit transactions",
	Long: `Show credits earned and spent, newest first. With --date, show every journal entry of that day.
--days is capped at 400.

With storage.type bolt the database admits a single process, so this command
fails with "locked by another process" while timekeeper run is active.`,
	Example: `  timekeeper history --days 7
  timekeeper history --date 2024-01-15 --user alice`,
	RunE: runHistory,
}

func init() {
	statusCmd.Flags().StringVar(&inspectUser, "user", "", "User to inspect (defaults to the configured user)")
	historyCmd.Flags().StringVar(&inspectUser, "user", "", "User to inspect (defaults to the configured user)")
	historyCmd.Flags().IntVar(&historyDays, "days", journal.DefaultHistoryDays, "Number of days to scan back from today")
	historyCmd.Flags().StringVar(&historyDate, "date", "", "Show all entries of one day (YYYY-MM-DD)")

	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(historyCmd)
}

// openInspection loads configuration and storage for a read-only command.
func openInspection() (*config.Config, storage.Store, zerolog.Logger, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, zerolog.Nop(), fmt.Errorf("failed to load configuration: %w", err)
	}
	if inspectUser != "" {
		if err := storage.ValidateUser(inspectUser); err != nil {
			return nil, nil, zerolog.Nop(), err
		}
		cfg.User = inspectUser
	}

	// Create a quiet logger for inspection
	logger := zerolog.New(os.Stderr).Level(zerolog.ErrorLevel).With().Timestamp().Logger()

	store, err := openStorage(cfg.Storage, true)
	if err != nil {
		return nil, nil, logger, fmt.Errorf("failed to initialize storage: %w", err)
	}
	return cfg, store, logger, nil
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg, store, logger, err := openInspection()
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	l := ledger.New(readOnlyState{store.State()}, cfg.User, clock.NewRealClock(), logger)
	l.Load(cmd.Context())

	printStatus(os.Stdout, cfg.User, l)
	return nil
}

func printStatus(w io.Writer, user string, l *ledger.Ledger) {
	cyan := color.New(color.FgCyan, color.Bold)
	green := color.New(color.FgGreen, color.Bold)
	red := color.New(color.FgRed, color.Bold)

	snap := l.Snapshot()
	remaining := l.RemainingSeconds()

	_, _ = cyan.Fprintf(w, "\n%s (%s)\n", user, snap.Date)
	fmt.Fprintln(w, "────────────────────────────────────")

	label := green
	if remaining == 0 {
		label = red
	}
	_, _ = label.Fprintf(w, "  Remaining:        %s\n", session.FormatRemaining(remaining))
	fmt.Fprintf(w, "  Used today:       %s\n", session.FormatRemaining(snap.SecondsUsedToday))
	fmt.Fprintf(w, "  Extra minutes:    %d / %d\n", snap.ExtraMinutesPurchasedToday, ledger.MaxExtraMinutesPerDay)
	fmt.Fprintf(w, "  Credits:          %d\n", snap.TotalCredits)
	fmt.Fprintf(w, "  Questions today:  %d / %d\n", snap.QuestionsAnsweredToday, ledger.DailyQuestionLimit)
	fmt.Fprintln(w)
}

func runHistory(cmd *cobra.Command, args []string) error {
	cfg, store, logger, err := openInspection()
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	j := journal.New(store.Journal(), cfg.User, clock.NewRealClock(), logger)

	if historyDate != "" {
		if _, err := time.Parse(clock.DateLayout, historyDate); err != nil {
			return fmt.Errorf("invalid date %q, expected YYYY-MM-DD", historyDate)
		}
		entries, err := j.Day(cmd.Context(), historyDate)
		if err != nil {
			return fmt.Errorf("failed to read journal: %w", err)
		}
		printDay(os.Stdout, historyDate, entries)
		return nil
	}

	printHistory(os.Stdout, j.History(cmd.Context(), historyDays))
	return nil
}

func printHistory(w io.Writer, entries []journal.Entry) {
	green := color.New(color.FgGreen)
	red := color.New(color.FgRed)
	gray := color.New(color.FgHiBlack)

	if len(entries) == 0 {
		_, _ = gray.Fprintln(w, "No credit transactions.")
		return
	}

	for _, e := range entries {
		when := "unknown time"
		if !e.Timestamp.IsZero() {
			when = e.Timestamp.Local().Format("2006-01-02 15:04")
		}

		switch e.Kind {
		case journal.KindCreditEarned:
			if e.WasCorrect() {
				_, _ = green.Fprintf(w, "%s  +%-3d  %s question: %s\n", when, e.Points, e.Difficulty, e.Question)
			} else {
				_, _ = gray.Fprintf(w, "%s  +0    %s question: %s (incorrect)\n", when, e.Difficulty, e.Question)
			}
		case journal.KindCreditSpent:
			_, _ = red.Fprintf(w, "%s  -%-3d  %s\n", when, e.Amount, e.Description)
		}
	}
}

func printDay(w io.Writer, date string, entries []journal.Entry) {
	cyan := color.New(color.FgCyan, color.Bold)
	_, _ = cyan.Fprintf(w, "\nJournal for %s\n", date)

	if len(entries) == 0 {
		fmt.Fprintln(w, "  (empty)")
		return
	}

	for _, e := range entries {
		when := e.Timestamp.Local().Format("15:04:05")
		switch e.Kind {
		case journal.KindSessionStart:
			fmt.Fprintf(w, "  %s  session start  %s: %s\n", when, e.Category, e.Plan)
		case journal.KindSessionEnd:
			fmt.Fprintf(w, "  %s  session end    %s after %s (%s)\n",
				when, e.Category, session.FormatRemaining(e.DurationSeconds), e.Reason)
		case journal.KindCreditEarned:
			fmt.Fprintf(w, "  %s  answer         %s = ? correct=%t +%d\n", when, e.Question, e.WasCorrect(), e.Points)
		case journal.KindCreditSpent:
			fmt.Fprintf(w, "  %s  purchase       %d minute(s) for %d credits\n", when, e.Minutes, e.Amount)
		case journal.KindQuestionLimitReached:
			fmt.Fprintf(w, "  %s  question limit reached\n", when)
		}
	}
	fmt.Fprintln(w)
}
