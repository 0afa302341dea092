package eventlog

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/mattjoyce/envios-relay/internal/lock"
)

// FileStore is an append-only JSON-lines log.
//
// Appends are serialized by an in-process mutex and an exclusive flock, so
// lines from concurrent requests (or a second process) never interleave.
type FileStore struct {
	path string
	mu   sync.Mutex
}

func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Append writes ev as one line and syncs the file before returning.
func (s *FileStore) Append(ctx context.Context, ev Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	line, err := encode(ev)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create event log directory: %w", err)
		}
	}

	f, err := os.OpenFile(s.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open event log: %w", err)
	}
	defer f.Close()

	unlock, err := lock.Exclusive(f)
	if err != nil {
		return err
	}
	defer func() { _ = unlock() }()

	if _, err := f.Write(line); err != nil {
		return fmt.Errorf("write event log: %w", err)
	}
	if err := f.Sync(); err != nil {
		return fmt.Errorf("sync event log: %w", err)
	}
	return nil
}

// List returns every line in file order. A missing file is an empty log.
// Blank lines are skipped; any other unparsable line fails the whole read.
func (s *FileStore) List(ctx context.Context) ([]json.RawMessage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.Open(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return []json.RawMessage{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open event log: %w", err)
	}
	defer f.Close()

	unlock, err := lock.Shared(f)
	if err != nil {
		return nil, err
	}
	defer func() { _ = unlock() }()

	events := []json.RawMessage{}
	r := bufio.NewReader(f)
	for lineNo := 1; ; lineNo++ {
		line, readErr := r.ReadBytes('\n')
		if trimmed := bytes.TrimSpace(line); len(trimmed) > 0 {
			if !json.Valid(trimmed) {
				return nil, fmt.Errorf("%s line %d: %w", s.path, lineNo, ErrCorruptLine)
			}
			events = append(events, json.RawMessage(trimmed))
		}
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			return nil, fmt.Errorf("read event log: %w", readErr)
		}
	}
	return events, nil
}

func (s *FileStore) Close() error { return nil }
