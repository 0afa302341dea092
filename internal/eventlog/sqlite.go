package eventlog

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// SQLiteStore keeps events in a single local SQLite file.
// Arrival order is the autoincrement sequence.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens (and creates if needed) the database at path and ensures
// the events table exists.
func OpenSQLite(ctx context.Context, path string) (*SQLiteStore, error) {
	if path == "" {
		return nil, fmt.Errorf("sqlite path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create sqlite directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// One writer at a time; SQLite would serialize anyway.
	db.SetMaxOpenConns(1)

	pctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if _, err := db.ExecContext(pctx, "PRAGMA busy_timeout = 5000;"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set busy_timeout: %w", err)
	}
	if err := bootstrap(pctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &SQLiteStore{db: db}, nil
}

func bootstrap(ctx context.Context, db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS webhook_events (
  seq         INTEGER PRIMARY KEY AUTOINCREMENT,
  id          TEXT NOT NULL UNIQUE,
  ts          TEXT NOT NULL,
  data        TEXT NOT NULL,
  received_at TEXT NOT NULL
);`,
	}
	for _, stmt := range stmts {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("bootstrap sqlite: %w", err)
		}
	}
	return nil
}

func (s *SQLiteStore) Append(ctx context.Context, ev Event) error {
	if len(ev.Data) == 0 {
		return ErrInvalidJSON
	}
	_, err := s.db.ExecContext(ctx, `
INSERT INTO webhook_events(id, ts, data, received_at)
VALUES(?, ?, ?, ?);
`, uuid.NewString(), ev.TS, string(ev.Data), time.Now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("insert webhook event: %w", err)
	}
	return nil
}

func (s *SQLiteStore) List(ctx context.Context) ([]json.RawMessage, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT seq, ts, data FROM webhook_events ORDER BY seq;")
	if err != nil {
		return nil, fmt.Errorf("query webhook events: %w", err)
	}
	defer rows.Close()

	events := []json.RawMessage{}
	for rows.Next() {
		var (
			seq  int64
			ts   string
			data string
		)
		if err := rows.Scan(&seq, &ts, &data); err != nil {
			return nil, fmt.Errorf("scan webhook event: %w", err)
		}
		if !json.Valid([]byte(data)) {
			return nil, fmt.Errorf("webhook event seq=%d: %w", seq, ErrCorruptLine)
		}
		line, err := encode(Event{TS: ts, Data: json.RawMessage(data)})
		if err != nil {
			return nil, err
		}
		events = append(events, json.RawMessage(strings.TrimSuffix(string(line), "\n")))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate webhook events: %w", err)
	}
	return events, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
