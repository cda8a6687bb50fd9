package systemd

import (
	"fmt"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"
	"github.com/rs/zerolog"
)

// NotifyReady sends READY=1 notification to systemd
func NotifyReady() error {
	// sent is false outside systemd, which is not an error
	if _, err := daemon.SdNotify(false, daemon.SdNotifyReady); err != nil {
		return fmt.Errorf("failed to send sd_notify: %w", err)
	}
	return nil
}

// NotifyStopping sends STOPPING=1 notification to systemd
func NotifyStopping() error {
	if _, err := daemon.SdNotify(false, daemon.SdNotifyStopping); err != nil {
		return fmt.Errorf("failed to send sd_notify stopping: %w", err)
	}
	return nil
}

// NotifyStatus publishes a one-line status shown by systemctl status.
func NotifyStatus(status string) error {
	if _, err := daemon.SdNotify(false, "STATUS="+status); err != nil {
		return fmt.Errorf("failed to send sd_notify status: %w", err)
	}
	return nil
}

// NotifyWatchdog sends WATCHDOG=1 notification to systemd
func NotifyWatchdog() error {
	if _, err := daemon.SdNotify(false, daemon.SdNotifyWatchdog); err != nil {
		return fmt.Errorf("failed to send sd_notify watchdog: %w", err)
	}
	return nil
}

// Watchdog pings systemd at half the configured WatchdogSec until Stop is
// called. It does nothing when the unit has no watchdog.
type Watchdog struct {
	logger   zerolog.Logger
	stopChan chan struct{}
	done     chan struct{}
}

// StartWatchdog starts pinging if the service manager expects it.
func StartWatchdog(logger zerolog.Logger) *Watchdog {
	w := &Watchdog{
		logger:   logger.With().Str("component", "watchdog").Logger(),
		stopChan: make(chan struct{}),
		done:     make(chan struct{}),
	}

	interval, err := daemon.SdWatchdogEnabled(false)
	if err != nil || interval == 0 {
		close(w.done)
		return w
	}

	w.logger.Info().Dur("interval", interval/2).Msg("Starting systemd watchdog")
	go w.run(interval / 2)
	return w
}

// Stop stops the watchdog.
func (w *Watchdog) Stop() {
	select {
	case <-w.done:
		return
	default:
	}
	close(w.stopChan)
	<-w.done
}

func (w *Watchdog) run(interval time.Duration) {
	defer close(w.done)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := NotifyWatchdog(); err != nil {
				w.logger.Warn().Err(err).Msg("Watchdog notification failed")
			}
		case <-w.stopChan:
			return
		}
	}
}
