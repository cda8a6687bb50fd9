package file

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/goodtune/timekeeper/internal/storage"
)

func openTestStore(t *testing.T) (*Store, string) {
	t.Helper()

	dir := t.TempDir()
	store, err := Open(dir)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	return store, dir
}

func TestStateStoreRoundTrip(t *testing.T) {
	store, dir := openTestStore(t)
	defer func() { _ = store.Close() }()

	ctx := context.Background()
	want := storage.State{
		Date:                       "2024-01-15",
		SecondsUsedToday:           125,
		TotalCredits:               9,
		QuestionsAnsweredToday:     3,
		LastQuestionDate:           "2024-01-15",
		ExtraMinutesPurchasedToday: 1,
	}

	if err := store.State().Save(ctx, "alice", want); err != nil {
		t.Fatalf("save: %v", err)
	}

	got, err := store.State().Load(ctx, "alice")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if *got != want {
		t.Errorf("expected %+v, got %+v", want, *got)
	}

	// No temp files left behind after a successful save.
	entries, err := os.ReadDir(filepath.Join(dir, stateDirName))
	if err != nil {
		t.Fatalf("read state dir: %v", err)
	}
	if len(entries) != 1 || entries[0].Name() != "alice.json" {
		t.Errorf("unexpected state dir contents: %v", entries)
	}
}

func TestStateStoreMissingAndCorrupt(t *testing.T) {
	store, dir := openTestStore(t)
	ctx := context.Background()

	if _, err := store.State().Load(ctx, "bob"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	path := filepath.Join(dir, stateDirName, "bob.json")
	if err := os.WriteFile(path, []byte("{\"date\": \"2024-01"), 0644); err != nil {
		t.Fatalf("write corrupt file: %v", err)
	}
	if _, err := store.State().Load(ctx, "bob"); !errors.Is(err, storage.ErrCorrupt) {
		t.Fatalf("expected ErrCorrupt, got %v", err)
	}
}

func TestStateStoreRejectsBadUser(t *testing.T) {
	store, _ := openTestStore(t)
	if err := store.State().Save(context.Background(), "../escape", storage.State{Date: "2024-01-01"}); err == nil {
		t.Fatal("expected error for path-like user name")
	}
}

func TestJournalStoreAppendAndRead(t *testing.T) {
	store, dir := openTestStore(t)
	ctx := context.Background()
	journal := store.Journal()

	records := []string{`{"event":"a"}`, `{"event":"b"}`}
	for _, r := range records {
		if err := journal.Append(ctx, "alice", "2024-01-15", []byte(r)); err != nil {
			t.Fatalf("append: %v", err)
		}
	}

	path := filepath.Join(dir, logsDirName, "2024-01-15", "alice.jsonl")
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("expected journal file at %s: %v", path, err)
	}

	got, err := journal.ReadDay(ctx, "alice", "2024-01-15")
	if err != nil {
		t.Fatalf("read day: %v", err)
	}
	if len(got) != 2 || string(got[0]) != records[0] || string(got[1]) != records[1] {
		t.Errorf("unexpected records: %q", got)
	}

	other, err := journal.ReadDay(ctx, "alice", "2024-01-14")
	if err != nil || len(other) != 0 {
		t.Errorf("expected empty partition, got %q, %v", other, err)
	}
}

func TestJournalStoreTruncatedTrailingLine(t *testing.T) {
	store, dir := openTestStore(t)
	ctx := context.Background()

	if err := store.Journal().Append(ctx, "alice", "2024-01-15", []byte(`{"event":"a"}`)); err != nil {
		t.Fatalf("append: %v", err)
	}

	path := filepath.Join(dir, logsDirName, "2024-01-15", "alice.jsonl")
	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	_, _ = f.WriteString(`{"event":"trunc`)
	_ = f.Close()

	got, err := store.Journal().ReadDay(ctx, "alice", "2024-01-15")
	if err != nil {
		t.Fatalf("read day: %v", err)
	}
	if len(got) != 2 || string(got[0]) != `{"event":"a"}` {
		t.Errorf("prior record lost: %q", got)
	}
}

func TestJournalStoreRejectsMultilineRecord(t *testing.T) {
	store, _ := openTestStore(t)
	err := store.Journal().Append(context.Background(), "alice", "2024-01-15", []byte("a\nb"))
	if err == nil {
		t.Fatal("expected error for multi-line record")
	}
}
