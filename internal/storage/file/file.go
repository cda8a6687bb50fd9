package file

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/goodtune/timekeeper/internal/storage"
)

const (
	stateDirName = "state"
	logsDirName  = "logs"
)

// Store implements storage.Store on plain files: one JSON document per user
// for the state, and one JSON-lines file per user and date for the journal.
type Store struct {
	stateDir string
	logsDir  string
}

// Open prepares the state and log directories under dataDir.
func Open(dataDir string) (*Store, error) {
	if dataDir == "" {
		return nil, fmt.Errorf("open file store: empty data directory")
	}
	s := &Store{
		stateDir: filepath.Join(dataDir, stateDirName),
		logsDir:  filepath.Join(dataDir, logsDirName),
	}
	for _, dir := range []string{s.stateDir, s.logsDir} {
		if err := storage.EnsureDir(dir); err != nil {
			return nil, fmt.Errorf("create %s: %w", dir, err)
		}
	}
	return s, nil
}

// Close is a no-op; files are opened per operation.
func (s *Store) Close() error { return nil }

// State returns the state store.
func (s *Store) State() storage.StateStore { return &stateStore{dir: s.stateDir} }

// Journal returns the journal store.
func (s *Store) Journal() storage.JournalStore { return &journalStore{dir: s.logsDir} }

type stateStore struct {
	dir string
}

func (s *stateStore) path(user string) string {
	return filepath.Join(s.dir, user+".json")
}

func (s *stateStore) Load(ctx context.Context, user string) (*storage.State, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := storage.ValidateUser(user); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(s.path(user))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("read state: %w", err)
	}
	return storage.DecodeState(data)
}

// Save writes to a temporary file in the same directory and renames it over
// the previous record, so a crash leaves either the old or the new document.
func (s *stateStore) Save(ctx context.Context, user string, state storage.State) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := storage.ValidateUser(user); err != nil {
		return err
	}
	data, err := storage.EncodeState(state)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(s.dir, user+".json.tmp-*")
	if err != nil {
		return fmt.Errorf("create temp state file: %w", err)
	}
	tmpPath := tmp.Name()
	success := false
	defer func() {
		if !success {
			_ = os.Remove(tmpPath)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write temp state file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("sync temp state file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp state file: %w", err)
	}
	if err := os.Rename(tmpPath, s.path(user)); err != nil {
		return fmt.Errorf("rename state file: %w", err)
	}
	success = true
	return nil
}

type journalStore struct {
	dir string
}

func (s *journalStore) path(user, date string) string {
	return filepath.Join(s.dir, date, user+".jsonl")
}

func (s *journalStore) Append(ctx context.Context, user, date string, record []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := storage.ValidateUser(user); err != nil {
		return err
	}
	if bytes.ContainsRune(record, '\n') {
		return fmt.Errorf("journal record spans multiple lines")
	}
	path := s.path(user, date)
	if err := storage.EnsureDir(filepath.Dir(path)); err != nil {
		return fmt.Errorf("create journal directory: %w", err)
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("open journal: %w", err)
	}
	line := make([]byte, 0, len(record)+1)
	line = append(append(line, record...), '\n')
	if _, err := f.Write(line); err != nil {
		_ = f.Close()
		return fmt.Errorf("append journal: %w", err)
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		return fmt.Errorf("sync journal: %w", err)
	}
	return f.Close()
}

func (s *journalStore) ReadDay(ctx context.Context, user, date string) ([][]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := storage.ValidateUser(user); err != nil {
		return nil, err
	}
	f, err := os.Open(s.path(user, date))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("open journal: %w", err)
	}
	defer func() { _ = f.Close() }()

	var records [][]byte
	reader := bufio.NewReader(f)
	for {
		line, err := reader.ReadBytes('\n')
		if trimmed := bytes.TrimSpace(line); len(trimmed) > 0 {
			records = append(records, trimmed)
		}
		if err == io.EOF {
			return records, nil
		}
		if err != nil {
			return records, fmt.Errorf("read journal: %w", err)
		}
	}
}
