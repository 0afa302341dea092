// Package eventlog persists received webhook events in arrival order and
// replays them. Two backends share one contract: a JSON-lines file (the
// default) and a single-file SQLite database.
package eventlog

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// TimestampLayout matches the timestamps written by earlier deployments of the relay.
const TimestampLayout = "2006-01-02 15:04:05.000000"

var (
	// ErrInvalidJSON is returned by NewEvent when the payload is not a JSON document.
	ErrInvalidJSON = errors.New("payload is not valid JSON")
	// ErrCorruptLine is returned by List when a stored line does not parse.
	ErrCorruptLine = errors.New("event log line is not valid JSON")
)

// Event is one received webhook call. Immutable once appended.
type Event struct {
	TS   string          `json:"ts"`
	Data json.RawMessage `json:"data"`
}

// Store appends events and lists them back in arrival order.
type Store interface {
	Append(ctx context.Context, ev Event) error
	List(ctx context.Context) ([]json.RawMessage, error)
	Close() error
}

// NewEvent stamps payload with at and compacts it so it always fits on one line.
func NewEvent(at time.Time, payload []byte) (Event, error) {
	var buf bytes.Buffer
	if err := json.Compact(&buf, payload); err != nil {
		return Event{}, fmt.Errorf("%w: %v", ErrInvalidJSON, err)
	}
	if buf.Len() == 0 {
		return Event{}, ErrInvalidJSON
	}
	return Event{
		TS:   at.Format(TimestampLayout),
		Data: json.RawMessage(buf.Bytes()),
	}, nil
}

// encode renders ev as a single JSON object without HTML escaping.
// The result ends with a newline.
func encode(ev Event) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(ev); err != nil {
		return nil, fmt.Errorf("encode event: %w", err)
	}
	return buf.Bytes(), nil
}
