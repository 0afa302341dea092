package eventlog

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Both backends must honour the same contract.
func backends(t *testing.T) map[string]func(t *testing.T) Store {
	return map[string]func(t *testing.T) Store{
		BackendJSONL: func(t *testing.T) Store {
			s, err := Open(context.Background(), BackendJSONL, filepath.Join(t.TempDir(), "webhook_log.json"))
			require.NoError(t, err)
			return s
		},
		BackendSQLite: func(t *testing.T) Store {
			s, err := Open(context.Background(), BackendSQLite, filepath.Join(t.TempDir(), "events.db"))
			require.NoError(t, err)
			t.Cleanup(func() { _ = s.Close() })
			return s
		},
	}
}

func mustEvent(t *testing.T, payload string) Event {
	t.Helper()
	ev, err := NewEvent(time.Now(), []byte(payload))
	require.NoError(t, err)
	return ev
}

func decode(t *testing.T, raw json.RawMessage) Event {
	t.Helper()
	var ev Event
	require.NoError(t, json.Unmarshal(raw, &ev))
	return ev
}

func TestStoreEmpty(t *testing.T) {
	for name, open := range backends(t) {
		t.Run(name, func(t *testing.T) {
			events, err := open(t).List(context.Background())
			require.NoError(t, err)
			assert.NotNil(t, events)
			assert.Empty(t, events)
		})
	}
}

func TestStoreListsInArrivalOrder(t *testing.T) {
	for name, open := range backends(t) {
		t.Run(name, func(t *testing.T) {
			s := open(t)
			ctx := context.Background()

			const n = 5
			for i := 0; i < n; i++ {
				require.NoError(t, s.Append(ctx, mustEvent(t, fmt.Sprintf(`{"n":%d}`, i))))
			}

			events, err := s.List(ctx)
			require.NoError(t, err)
			require.Len(t, events, n)
			for i, raw := range events {
				ev := decode(t, raw)
				assert.JSONEq(t, fmt.Sprintf(`{"n":%d}`, i), string(ev.Data))
				assert.NotEmpty(t, ev.TS)
			}
		})
	}
}

func TestStoreConcurrentAppends(t *testing.T) {
	for name, open := range backends(t) {
		t.Run(name, func(t *testing.T) {
			s := open(t)
			ctx := context.Background()

			const n = 40
			var wg sync.WaitGroup
			for i := 0; i < n; i++ {
				wg.Add(1)
				go func(i int) {
					defer wg.Done()
					assert.NoError(t, s.Append(ctx, mustEvent(t, fmt.Sprintf(`{"worker":%d,"pad":"%0200d"}`, i, i))))
				}(i)
			}
			wg.Wait()

			events, err := s.List(ctx)
			require.NoError(t, err)
			require.Len(t, events, n)

			seen := make(map[float64]bool)
			for _, raw := range events {
				var data map[string]any
				require.NoError(t, json.Unmarshal(decode(t, raw).Data, &data))
				seen[data["worker"].(float64)] = true
			}
			assert.Len(t, seen, n)
		})
	}
}

func TestStoreReplaysStoredShape(t *testing.T) {
	for name, open := range backends(t) {
		t.Run(name, func(t *testing.T) {
			s := open(t)
			ctx := context.Background()
			ev := Event{TS: "2025-06-01 10:00:00.000001", Data: json.RawMessage(`{"guia":"MX123","estatus":"entregado"}`)}
			require.NoError(t, s.Append(ctx, ev))

			events, err := s.List(ctx)
			require.NoError(t, err)
			require.Len(t, events, 1)
			assert.Equal(t, `{"ts":"2025-06-01 10:00:00.000001","data":{"guia":"MX123","estatus":"entregado"}}`, string(events[0]))
		})
	}
}

func TestStorePreservesScalarPayloads(t *testing.T) {
	payloads := []string{`1.50`, `1e2`, `12345678901234567890123`, `10.0`, `"texto"`, `true`, `null`}

	for name, open := range backends(t) {
		t.Run(name, func(t *testing.T) {
			s := open(t)
			ctx := context.Background()
			for _, p := range payloads {
				require.NoError(t, s.Append(ctx, Event{TS: "2025-06-01 10:00:00.000001", Data: json.RawMessage(p)}))
			}

			events, err := s.List(ctx)
			require.NoError(t, err)
			require.Len(t, events, len(payloads))
			for i, p := range payloads {
				assert.Equal(t, `{"ts":"2025-06-01 10:00:00.000001","data":`+p+`}`, string(events[i]))
			}
		})
	}
}

func TestFileStoreWritesOneLinePerEvent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "webhook_log.json")
	s := NewFileStore(path)
	ctx := context.Background()

	require.NoError(t, s.Append(ctx, mustEvent(t, "{\n \"a\": 1\n}")))
	require.NoError(t, s.Append(ctx, mustEvent(t, `[1,2,3]`)))

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := splitLines(string(b))
	require.Len(t, lines, 2)
	for _, l := range lines {
		assert.True(t, json.Valid([]byte(l)), "line %q", l)
	}
}

func TestFileStoreReadsExistingLog(t *testing.T) {
	path := filepath.Join(t.TempDir(), "webhook_log.json")
	content := `{"ts": "2024-11-02 18:03:11.123456", "data": {"objectId": 1}}` + "\n\n" +
		`{"ts": "2024-11-02 18:04:00.000001", "data": [{"eventId": 2}]}` + "\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	events, err := NewFileStore(path).List(context.Background())
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "2024-11-02 18:03:11.123456", decode(t, events[0]).TS)
	assert.JSONEq(t, `[{"eventId": 2}]`, string(decode(t, events[1]).Data))
}

func TestFileStoreCorruptLine(t *testing.T) {
	path := filepath.Join(t.TempDir(), "webhook_log.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"ts":"x","data":{}}`+"\nnot json\n"), 0o644))

	_, err := NewFileStore(path).List(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrCorruptLine)
	assert.Contains(t, err.Error(), "line 2")
}

func TestFileStoreLastLineWithoutNewline(t *testing.T) {
	path := filepath.Join(t.TempDir(), "webhook_log.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"ts":"a","data":1}`+"\n"+`{"ts":"b","data":2}`), 0o644))

	events, err := NewFileStore(path).List(context.Background())
	require.NoError(t, err)
	assert.Len(t, events, 2)
}

func TestFileStoreHonoursCancelledContext(t *testing.T) {
	s := NewFileStore(filepath.Join(t.TempDir(), "webhook_log.json"))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.ErrorIs(t, s.Append(ctx, mustEvent(t, `{}`)), context.Canceled)
	_, err := s.List(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSQLiteStoreRejectsEmptyData(t *testing.T) {
	s, err := OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "events.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	assert.ErrorIs(t, s.Append(context.Background(), Event{TS: "x"}), ErrInvalidJSON)
}

func TestOpenUnknownBackend(t *testing.T) {
	_, err := Open(context.Background(), "redis", filepath.Join(t.TempDir(), "x"))
	assert.Error(t, err)
}

func splitLines(s string) []string {
	var out []string
	start := 0
	for i := 0; i < len(s); i++ {
		if s[i] == '\n' {
			out = append(out, s[start:i])
			start = i + 1
		}
	}
	if start < len(s) {
		out = append(out, s[start:])
	}
	return out
}
