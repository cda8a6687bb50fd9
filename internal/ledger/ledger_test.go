package ledger

import (
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/goodtune/timekeeper/internal/clock"
	"github.com/goodtune/timekeeper/internal/storage"
	"github.com/goodtune/timekeeper/internal/storage/file"
	"github.com/rs/zerolog"
)

const testUser = "alice"

var errDiskFull = errors.New("disk full")

// countingStore wraps a StateStore, counting saves and optionally failing them.
type countingStore struct {
	storage.StateStore
	saves    int
	failSave bool
}

func (c *countingStore) Save(ctx context.Context, user string, state storage.State) error {
	if c.failSave {
		return errDiskFull
	}
	c.saves++
	return c.StateStore.Save(ctx, user, state)
}

func newTestLedger(t *testing.T) (*Ledger, *countingStore, *clock.ManualClock, string) {
	t.Helper()

	dir := t.TempDir()
	fs, err := file.Open(dir)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	store := &countingStore{StateStore: fs.State()}
	clk := clock.NewManualClock(time.Date(2024, 1, 15, 9, 0, 0, 0, time.Local))
	return New(store, testUser, clk, zerolog.Nop()), store, clk, dir
}

func TestLoadMissingStateWritesFreshRecord(t *testing.T) {
	l, store, _, _ := newTestLedger(t)
	l.Load(context.Background())

	if store.saves != 1 {
		t.Fatalf("expected fresh state to be persisted once, got %d saves", store.saves)
	}
	got, err := store.Load(context.Background(), testUser)
	if err != nil {
		t.Fatalf("load persisted state: %v", err)
	}
	if got.Date != "2024-01-15" || got.SecondsUsedToday != 0 || got.TotalCredits != 0 {
		t.Errorf("unexpected fresh state: %+v", got)
	}
	if l.RemainingSeconds() != BaseDailyLimitSeconds {
		t.Errorf("RemainingSeconds() = %d, want %d", l.RemainingSeconds(), BaseDailyLimitSeconds)
	}
}

func TestLoadCorruptStateResets(t *testing.T) {
	l, store, _, dir := newTestLedger(t)

	path := filepath.Join(dir, "state", testUser+".json")
	if err := os.WriteFile(path, []byte(`{"date": "2024-01-15", "total_credits": 4`), 0o644); err != nil {
		t.Fatalf("write corrupt file: %v", err)
	}

	l.Load(context.Background())

	snap := l.Snapshot()
	if snap.Date != "2024-01-15" || snap.SecondsUsedToday != 0 || snap.TotalCredits != 0 {
		t.Errorf("expected full reset, got %+v", snap)
	}

	got, err := store.Load(context.Background(), testUser)
	if err != nil {
		t.Fatalf("expected a valid file after reset, got %v", err)
	}
	if got.Date != snap.Date || got.TotalCredits != 0 || got.SecondsUsedToday != 0 {
		t.Errorf("persisted %+v, want a reset record for %s", *got, snap.Date)
	}
}

func TestLoadRollsOverStaleDate(t *testing.T) {
	l, store, _, _ := newTestLedger(t)

	prev := storage.State{
		Date:                       "2024-01-14",
		SecondsUsedToday:           1500,
		TotalCredits:               7,
		QuestionsAnsweredToday:     20,
		LastQuestionDate:           "2024-01-14",
		ExtraMinutesPurchasedToday: 3,
	}
	if err := store.StateStore.Save(context.Background(), testUser, prev); err != nil {
		t.Fatalf("seed state: %v", err)
	}

	l.Load(context.Background())

	snap := l.Snapshot()
	if snap.Date != "2024-01-15" {
		t.Errorf("Date = %q, want 2024-01-15", snap.Date)
	}
	if snap.SecondsUsedToday != 0 || snap.ExtraMinutesPurchasedToday != 0 {
		t.Errorf("daily counters not reset: %+v", snap)
	}
	if snap.TotalCredits != 7 {
		t.Errorf("TotalCredits = %d, want 7", snap.TotalCredits)
	}
	if !l.CanAnswerQuestion() {
		t.Error("question counter should reset on a new day")
	}
}

func TestTickSumsWithinDay(t *testing.T) {
	tests := []struct {
		name  string
		ticks []int64
		extra int64
		want  int64
	}{
		{name: "no ticks", ticks: nil, want: 1800},
		{name: "single ticks", ticks: []int64{1, 1, 1}, want: 1797},
		{name: "negative ignored", ticks: []int64{10, -5, 10}, want: 1780},
		{name: "exhausted", ticks: []int64{1000, 900}, want: 0},
		{name: "extra minutes", ticks: []int64{1800}, extra: 2, want: 120},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, _, _, _ := newTestLedger(t)
			l.Load(context.Background())
			if tt.extra > 0 {
				if err := l.AddExtraMinutes(tt.extra); err != nil {
					t.Fatalf("AddExtraMinutes: %v", err)
				}
			}

			var sum int64
			for _, n := range tt.ticks {
				l.Tick(n)
				if n > 0 {
					sum += n
				}
			}

			if got := l.SecondsUsedToday(); got != sum {
				t.Errorf("SecondsUsedToday() = %d, want %d", got, sum)
			}
			if got := l.RemainingSeconds(); got != tt.want {
				t.Errorf("RemainingSeconds() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestTickRolloverPreservesCredits(t *testing.T) {
	l, _, clk, _ := newTestLedger(t)
	l.Load(context.Background())

	if err := l.AddCredits(9); err != nil {
		t.Fatalf("AddCredits: %v", err)
	}
	if err := l.AddExtraMinutes(5); err != nil {
		t.Fatalf("AddExtraMinutes: %v", err)
	}
	l.Tick(600)

	clk.SetWall(time.Date(2024, 1, 16, 0, 0, 1, 0, time.Local))
	l.Tick(1)

	snap := l.Snapshot()
	if snap.Date != "2024-01-16" {
		t.Errorf("Date = %q, want 2024-01-16", snap.Date)
	}
	if snap.SecondsUsedToday != 1 {
		t.Errorf("SecondsUsedToday = %d, want 1", snap.SecondsUsedToday)
	}
	if snap.ExtraMinutesPurchasedToday != 0 {
		t.Errorf("ExtraMinutesPurchasedToday = %d, want 0", snap.ExtraMinutesPurchasedToday)
	}
	if snap.TotalCredits != 9 {
		t.Errorf("TotalCredits = %d, want 9", snap.TotalCredits)
	}
}

func TestTickBatchesSaves(t *testing.T) {
	l, store, clk, _ := newTestLedger(t)
	l.Load(context.Background())
	base := store.saves

	for i := 0; i < 9; i++ {
		clk.Advance(time.Second)
		l.Tick(1)
	}
	if store.saves != base {
		t.Fatalf("expected no batched save within %s, got %d", SaveInterval, store.saves-base)
	}

	clk.Advance(time.Second)
	l.Tick(1)
	if store.saves != base+1 {
		t.Fatalf("expected one batched save after %s, got %d", SaveInterval, store.saves-base)
	}

	got, err := store.Load(context.Background(), testUser)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got.SecondsUsedToday != 10 {
		t.Errorf("persisted SecondsUsedToday = %d, want 10", got.SecondsUsedToday)
	}
}

func TestTickSwallowsSaveErrors(t *testing.T) {
	l, store, clk, _ := newTestLedger(t)
	l.Load(context.Background())
	store.failSave = true

	clk.Advance(time.Minute)
	l.Tick(60)

	if got := l.SecondsUsedToday(); got != 60 {
		t.Errorf("in-memory usage = %d, want 60", got)
	}
	if err := l.ForceSave(); !errors.Is(err, ErrPersist) {
		t.Errorf("ForceSave() error = %v, want ErrPersist", err)
	}
}

func TestRemainingSecondsClampsExtraMinutes(t *testing.T) {
	l, store, _, _ := newTestLedger(t)
	seeded := storage.State{
		Date:                       "2024-01-15",
		SecondsUsedToday:           100,
		ExtraMinutesPurchasedToday: math.MaxInt64 / 2,
	}
	if err := store.StateStore.Save(context.Background(), testUser, seeded); err != nil {
		t.Fatalf("seed: %v", err)
	}
	l.Load(context.Background())

	want := BaseDailyLimitSeconds + MaxExtraMinutesPerDay*60 - 100
	if got := l.RemainingSeconds(); got != want {
		t.Errorf("RemainingSeconds() = %d, want %d", got, want)
	}
}

func TestAddExtraMinutes(t *testing.T) {
	l, _, _, _ := newTestLedger(t)
	l.Load(context.Background())

	for _, minutes := range []int64{0, -1, MaxExtraMinutesPerDay + 1} {
		if err := l.AddExtraMinutes(minutes); !errors.Is(err, ErrInvalidMinutes) {
			t.Errorf("AddExtraMinutes(%d) error = %v, want ErrInvalidMinutes", minutes, err)
		}
	}

	if err := l.AddExtraMinutes(1000); err != nil {
		t.Fatalf("AddExtraMinutes: %v", err)
	}
	if err := l.AddExtraMinutes(1000); err != nil {
		t.Fatalf("AddExtraMinutes: %v", err)
	}
	if got := l.Snapshot().ExtraMinutesPurchasedToday; got != MaxExtraMinutesPerDay {
		t.Errorf("ExtraMinutesPurchasedToday = %d, want %d", got, MaxExtraMinutesPerDay)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	l, store, clk, _ := newTestLedger(t)
	l.Load(context.Background())

	l.Tick(321)
	if err := l.AddCredits(17); err != nil {
		t.Fatalf("AddCredits: %v", err)
	}
	if err := l.RecordQuestionAnswered(); err != nil {
		t.Fatalf("RecordQuestionAnswered: %v", err)
	}
	if _, err := l.SpendForMinutes(2); err != nil {
		t.Fatalf("SpendForMinutes: %v", err)
	}
	if err := l.ForceSave(); err != nil {
		t.Fatalf("ForceSave: %v", err)
	}
	want := l.Snapshot()

	reloaded := New(store, testUser, clk, zerolog.Nop())
	reloaded.Load(context.Background())
	if got := reloaded.Snapshot(); got != want {
		t.Errorf("reloaded %+v, want %+v", got, want)
	}
}

func TestMultiplyDetectsOverflow(t *testing.T) {
	tests := []struct {
		a, b int64
		ok   bool
	}{
		{a: 1440, b: 5, ok: true},
		{a: 0, b: math.MaxInt64, ok: true},
		{a: math.MaxInt64, b: 5, ok: false},
		{a: math.MaxInt64/60 + 1, b: 60, ok: false},
		{a: -1, b: math.MinInt64, ok: false},
	}
	for _, tt := range tests {
		if _, ok := multiply(tt.a, tt.b); ok != tt.ok {
			t.Errorf("multiply(%d, %d) ok = %v, want %v", tt.a, tt.b, ok, tt.ok)
		}
	}
}
