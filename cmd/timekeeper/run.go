package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/goodtune/timekeeper/internal/clock"
	"github.com/goodtune/timekeeper/internal/config"
	"github.com/goodtune/timekeeper/internal/journal"
	"github.com/goodtune/timekeeper/internal/ledger"
	"github.com/goodtune/timekeeper/internal/logout"
	"github.com/goodtune/timekeeper/internal/metrics"
	"github.com/goodtune/timekeeper/internal/session"
	"github.com/goodtune/timekeeper/internal/systemd"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the timekeeper for the current user",
	Long:  `Start counting today's budget, open the terminal console and log the user out when the budget is spent.`,
	RunE:  runTimekeeper,
}

func init() {
	rootCmd.AddCommand(runCmd)
}

func runTimekeeper(cmd *cobra.Command, args []string) error {
	// Load configuration
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	if cfg.Disabled {
		fmt.Fprintln(os.Stderr, "timekeeper is disabled for this user")
		return nil
	}

	// Stdout belongs to the console
	logger := setupLogger(cfg.Logging, os.Stderr)
	log.Logger = logger

	logger.Info().
		Str("version", version).
		Str("config", configPath).
		Str("user", cfg.User).
		Msg("Starting timekeeper")

	// Initialize storage
	store, err := openStorage(cfg.Storage, false)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Error().Err(err).Msg("Failed to close storage")
		}
	}()

	logger.Info().
		Str("type", cfg.Storage.Type).
		Str("data_dir", cfg.Storage.DataDir).
		Msg("Storage initialized")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	clk := clock.NewRealClock()
	con := newConsole(os.Stdin, os.Stdout)
	con.banner()

	ctrl := session.New(ctx, session.Config{
		Ledger:  ledger.New(store.State(), cfg.User, clk, logger),
		Journal: journal.New(store.Journal(), cfg.User, clk, logger),
		Clock:   clk,
		Logger:  logger,
		OnTick:  con.onTick,
		OnLimit: con.timeUp,
	})
	limitAtStart := ctrl.State() == session.LimitReached

	// Metrics textfile writer
	var metricsWriter *metrics.TextfileWriter
	if cfg.Metrics.Textfile != "" {
		metricsWriter = metrics.NewTextfileWriter(cfg.Metrics.Textfile, parseDuration(cfg.Metrics.Interval, 30*time.Second), logger)
		metricsWriter.Start()
	}

	if err := systemd.NotifyReady(); err != nil {
		logger.Warn().Err(err).Msg("Failed to notify systemd")
	}
	watchdog := systemd.StartWatchdog(logger)

	con.welcome(ctrl)

	runCtx, cancelRun := context.WithCancel(ctx)
	requests := make(chan session.Request)
	go con.readLoop(runCtx, requests)

	runErr := ctrl.Run(runCtx, requests)
	cancelRun()

	if errors.Is(runErr, context.Canceled) {
		logger.Info().Msg("Shutdown signal received, gracefully stopping...")
		runErr = nil
	}

	if err := systemd.NotifyStopping(); err != nil {
		logger.Warn().Err(err).Msg("Failed to notify systemd")
	}
	watchdog.Stop()

	if err := ctrl.Shutdown(); err != nil {
		logger.Error().Err(err).Msg("Failed to flush state")
	}
	if metricsWriter != nil {
		metricsWriter.Stop()
	}

	if ctrl.State() == session.LimitReached {
		term := logout.New(cfg.Logout, cfg.User, logger)
		delay := term.GracePeriod()
		if limitAtStart {
			delay = logout.ImmediateDelay
		}
		_ = systemd.NotifyStatus("Daily limit reached, logging out")
		if err := term.Terminate(context.Background(), delay); err != nil {
			logger.Error().Err(err).Msg("Logout failed")
		}
	}

	logger.Info().Msg("Timekeeper stopped")
	return runErr
}
