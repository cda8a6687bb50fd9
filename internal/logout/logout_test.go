package logout

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/goodtune/timekeeper/internal/config"
	"github.com/godbus/dbus/v5"
	"github.com/rs/zerolog"
)

func TestExpand(t *testing.T) {
	tests := []struct {
		tmpl string
		want []string
	}{
		{tmpl: "loginctl terminate-user {user}", want: []string{"loginctl", "terminate-user", "bob"}},
		{tmpl: "  pkill -KILL -u {user} ", want: []string{"pkill", "-KILL", "-u", "bob"}},
		{tmpl: "echo user={user}", want: []string{"echo", "user=bob"}},
		{tmpl: "   ", want: []string{}},
	}
	for _, tt := range tests {
		if got := Expand(tt.tmpl, "bob"); !reflect.DeepEqual(got, tt.want) {
			t.Errorf("Expand(%q) = %q, want %q", tt.tmpl, got, tt.want)
		}
	}
}

type recorder struct {
	calls []string
	fail  map[string]bool
}

func (r *recorder) run(_ context.Context, name string, args ...string) error {
	r.calls = append(r.calls, strings.Join(append([]string{name}, args...), " "))
	if r.fail[name] {
		return errors.New("exit status 1")
	}
	return nil
}

func newTestTerminator(cfg config.LogoutConfig, rec *recorder, logindErr error) *Terminator {
	term := New(cfg, "bob", zerolog.Nop())
	term.run = rec.run
	term.logind = func(context.Context, string) error { return logindErr }
	return term
}

func TestTerminateFallsBackToCommands(t *testing.T) {
	cfg := config.LogoutConfig{
		Enabled:     true,
		UseLogind:   true,
		GracePeriod: "4s",
		Commands:    []string{"loginctl terminate-user {user}", "pkill -KILL -u {user}"},
	}
	rec := &recorder{fail: map[string]bool{"loginctl": true}}
	term := newTestTerminator(cfg, rec, errors.New("no system bus"))

	err := term.Terminate(context.Background(), 0)
	if err == nil || !strings.Contains(err.Error(), "loginctl") {
		t.Errorf("Terminate() error = %v, want loginctl failure", err)
	}

	want := []string{"loginctl terminate-user bob", "pkill -KILL -u bob"}
	if !reflect.DeepEqual(rec.calls, want) {
		t.Errorf("commands = %q, want %q", rec.calls, want)
	}
	if term.GracePeriod() != 4*time.Second {
		t.Errorf("GracePeriod() = %s, want 4s", term.GracePeriod())
	}
}

func TestTerminateViaLogindSkipsCommands(t *testing.T) {
	cfg := config.LogoutConfig{
		Enabled:   true,
		UseLogind: true,
		Commands:  []string{"pkill -KILL -u {user}"},
	}
	rec := &recorder{}
	term := newTestTerminator(cfg, rec, nil)

	if err := term.Terminate(context.Background(), 0); err != nil {
		t.Fatalf("Terminate: %v", err)
	}
	if len(rec.calls) != 0 {
		t.Errorf("unexpected commands: %q", rec.calls)
	}
}

func TestTerminateDisabled(t *testing.T) {
	rec := &recorder{}
	term := newTestTerminator(config.LogoutConfig{Commands: []string{"pkill -u {user}"}}, rec, nil)

	if err := term.Terminate(context.Background(), time.Hour); err != nil {
		t.Fatalf("Terminate: %v", err)
	}
	if len(rec.calls) != 0 {
		t.Errorf("unexpected commands: %q", rec.calls)
	}
}

func TestTerminateCancelledDuringGrace(t *testing.T) {
	rec := &recorder{}
	term := newTestTerminator(config.LogoutConfig{Enabled: true, Commands: []string{"pkill -u {user}"}}, rec, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := term.Terminate(ctx, time.Hour); !errors.Is(err, context.Canceled) {
		t.Errorf("Terminate() error = %v, want context.Canceled", err)
	}
	if len(rec.calls) != 0 {
		t.Errorf("unexpected commands: %q", rec.calls)
	}
}

// fakeManager answers login1 Manager calls with a fixed error.
type fakeManager struct {
	dbus.BusObject
	err    error
	method string
	args   []interface{}
}

func (m *fakeManager) CallWithContext(_ context.Context, method string, _ dbus.Flags, args ...interface{}) *dbus.Call {
	m.method = method
	m.args = args
	return &dbus.Call{Method: method, Args: args, Err: m.err}
}

func TestTerminateUserCallsLogind(t *testing.T) {
	manager := &fakeManager{}
	if err := terminateUser(context.Background(), manager, 1000); err != nil {
		t.Fatalf("terminateUser: %v", err)
	}
	if manager.method != terminateUserMethod {
		t.Errorf("method = %q, want %q", manager.method, terminateUserMethod)
	}
	if !reflect.DeepEqual(manager.args, []interface{}{uint32(1000)}) {
		t.Errorf("args = %v, want [1000]", manager.args)
	}
}

func TestTerminateLogindDeniedRunsCommands(t *testing.T) {
	denied := dbus.NewError("org.freedesktop.DBus.Error.AccessDenied", []interface{}{"Permission denied"})
	manager := &fakeManager{err: denied}

	cfg := config.LogoutConfig{
		Enabled:   true,
		UseLogind: true,
		Commands:  []string{"loginctl terminate-user {user}", "pkill -KILL -u {user}"},
	}
	rec := &recorder{}
	term := newTestTerminator(cfg, rec, nil)
	term.logind = func(ctx context.Context, _ string) error {
		return terminateUser(ctx, manager, 1000)
	}

	if err := term.Terminate(context.Background(), 0); err != nil {
		t.Fatalf("Terminate: %v", err)
	}

	want := []string{"loginctl terminate-user bob", "pkill -KILL -u bob"}
	if !reflect.DeepEqual(rec.calls, want) {
		t.Errorf("commands = %q, want %q", rec.calls, want)
	}

	err := terminateUser(context.Background(), manager, 1000)
	if err == nil || !errors.Is(err, denied) {
		t.Errorf("terminateUser() error = %v, want AccessDenied", err)
	}
}
