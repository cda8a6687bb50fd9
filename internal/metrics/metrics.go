package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
)

var (
	// Budget metrics
	SecondsConsumed = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "timekeeper_seconds_consumed_total",
			Help: "Seconds of screen time counted against the daily budget",
		},
	)

	RemainingSeconds = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "timekeeper_remaining_seconds",
			Help: "Seconds of budget remaining today",
		},
	)

	LimitReached = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "timekeeper_limit_reached_total",
			Help: "Number of times the daily budget was exhausted",
		},
	)

	// Credit metrics
	QuestionsAnswered = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "timekeeper_questions_answered_total",
			Help: "Challenges answered, by difficulty and result",
		},
		[]string{"difficulty", "result"},
	)

	CreditsEarned = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "timekeeper_credits_earned_total",
			Help: "Credits earned from correct answers",
		},
	)

	CreditsSpent = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "timekeeper_credits_spent_total",
			Help: "Credits spent on extra minutes",
		},
	)

	Purchases = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "timekeeper_purchases_total",
			Help: "Extra-minute purchase attempts by outcome",
		},
		[]string{"outcome"},
	)

	// Persistence metrics
	StateSaveErrors = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "timekeeper_state_save_errors_total",
			Help: "Failed writes of the ledger state",
		},
	)

	JournalWriteErrors = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "timekeeper_journal_write_errors_total",
			Help: "Failed journal appends",
		},
	)
)

// Registry holds every timekeeper collector. It is separate from the
// default registry so the textfile only contains timekeeper series.
var Registry = prometheus.NewRegistry()

func init() {
	// Register all metrics
	Registry.MustRegister(
		SecondsConsumed,
		RemainingSeconds,
		LimitReached,
		QuestionsAnswered,
		CreditsEarned,
		CreditsSpent,
		Purchases,
		StateSaveErrors,
		JournalWriteErrors,
	)
}

// TextfileWriter periodically writes the registry to a file for the
// node_exporter textfile collector.
type TextfileWriter struct {
	path     string
	interval time.Duration
	logger   zerolog.Logger
	stopChan chan struct{}
	done     chan struct{}
}

// NewTextfileWriter creates a writer for path
func NewTextfileWriter(path string, interval time.Duration, logger zerolog.Logger) *TextfileWriter {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &TextfileWriter{
		path:     path,
		interval: interval,
		logger:   logger.With().Str("component", "metrics").Logger(),
		stopChan: make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start begins periodic writes
func (w *TextfileWriter) Start() {
	w.logger.Info().Str("path", w.path).Dur("interval", w.interval).Msg("Starting metrics textfile writer")
	go w.run()
}

// Stop stops periodic writes and performs a final write
func (w *TextfileWriter) Stop() {
	close(w.stopChan)
	<-w.done
	w.Write()
	w.logger.Info().Msg("Metrics textfile writer stopped")
}

// Write writes the current metric values. Errors are logged only.
func (w *TextfileWriter) Write() {
	if err := prometheus.WriteToTextfile(w.path, Registry); err != nil {
		w.logger.Warn().Err(err).Str("path", w.path).Msg("Failed to write metrics textfile")
	}
}

func (w *TextfileWriter) run() {
	defer close(w.done)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			w.Write()
		case <-w.stopChan:
			return
		}
	}
}
