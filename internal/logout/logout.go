// Package logout ends a user's desktop session once the daily budget is
// spent.
package logout

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"os/user"
	"strconv"
	"strings"
	"time"

	"github.com/goodtune/timekeeper/internal/config"
	"github.com/godbus/dbus/v5"
	"github.com/rs/zerolog"
)

// ImmediateDelay replaces the grace period when the budget was already
// spent at startup.
const ImmediateDelay = 100 * time.Millisecond

const (
	logindDest          = "org.freedesktop.login1"
	logindPath          = dbus.ObjectPath("/org/freedesktop/login1")
	terminateUserMethod = "org.freedesktop.login1.Manager.TerminateUser"
)

// Runner executes one external command.
type Runner func(ctx context.Context, name string, args ...string) error

// ExecRunner runs commands with os/exec and waits for them.
func ExecRunner(ctx context.Context, name string, args ...string) error {
	return exec.CommandContext(ctx, name, args...).Run()
}

// Terminator ends every session of one user.
type Terminator struct {
	user      string
	enabled   bool
	useLogind bool
	grace     time.Duration
	commands  []string
	logger    zerolog.Logger

	run    Runner
	logind func(ctx context.Context, user string) error
}

// New creates a terminator for user from the logout configuration.
func New(cfg config.LogoutConfig, user string, logger zerolog.Logger) *Terminator {
	grace, err := time.ParseDuration(cfg.GracePeriod)
	if err != nil || grace < 0 {
		grace = 4 * time.Second
	}
	return &Terminator{
		user:      user,
		enabled:   cfg.Enabled,
		useLogind: cfg.UseLogind,
		grace:     grace,
		commands:  cfg.Commands,
		logger:    logger.With().Str("component", "logout").Str("user", user).Logger(),
		run:       ExecRunner,
		logind:    terminateViaLogind,
	}
}

// GracePeriod returns the delay before logout.
func (t *Terminator) GracePeriod() time.Duration {
	return t.grace
}

// Terminate waits for delay, then asks logind to terminate the user. If that
// is disabled or fails, the configured commands run in order; every command
// runs even if an earlier one fails.
func (t *Terminator) Terminate(ctx context.Context, delay time.Duration) error {
	if !t.enabled {
		t.logger.Info().Msg("Logout disabled, leaving session running")
		return nil
	}

	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
	}

	if t.useLogind {
		err := t.logind(ctx, t.user)
		if err == nil {
			t.logger.Info().Msg("User terminated via logind")
			return nil
		}
		t.logger.Warn().Err(err).Msg("logind termination failed, falling back to commands")
	}

	var errs []error
	for _, tmpl := range t.commands {
		argv := Expand(tmpl, t.user)
		if len(argv) == 0 {
			continue
		}
		t.logger.Info().Strs("command", argv).Msg("Running logout command")
		if err := t.run(ctx, argv[0], argv[1:]...); err != nil {
			t.logger.Warn().Err(err).Strs("command", argv).Msg("Logout command failed")
			errs = append(errs, fmt.Errorf("%s: %w", argv[0], err))
		}
	}
	return errors.Join(errs...)
}

// Expand splits a command template on whitespace and substitutes {user}.
func Expand(tmpl, user string) []string {
	fields := strings.Fields(tmpl)
	for i, f := range fields {
		fields[i] = strings.ReplaceAll(f, "{user}", user)
	}
	return fields
}

func terminateViaLogind(ctx context.Context, name string) error {
	u, err := user.Lookup(name)
	if err != nil {
		return fmt.Errorf("lookup user: %w", err)
	}
	uid, err := strconv.ParseUint(u.Uid, 10, 32)
	if err != nil {
		return fmt.Errorf("parse uid %q: %w", u.Uid, err)
	}

	conn, err := dbus.ConnectSystemBus()
	if err != nil {
		return fmt.Errorf("connect to system bus: %w", err)
	}
	defer conn.Close()

	return terminateUser(ctx, conn.Object(logindDest, logindPath), uint32(uid))
}

// terminateUser calls Manager.TerminateUser and returns the method error, so
// a polkit denial or a logind failure reaches the caller.
func terminateUser(ctx context.Context, manager dbus.BusObject, uid uint32) error {
	if err := manager.CallWithContext(ctx, terminateUserMethod, 0, uid).Err; err != nil {
		return fmt.Errorf("logind TerminateUser(%d): %w", uid, err)
	}
	return nil
}
