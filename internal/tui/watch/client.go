package watch

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

type tickMsg time.Time

type pollMsg struct{}

// eventsMsg and errMsg carry manual when the fetch came from a key press
// rather than the poll loop, so it does not start a second loop.
type eventsMsg struct {
	entries []Entry
	at      time.Time
	manual  bool
}

type errMsg struct {
	err    error
	manual bool
}

func (e errMsg) Error() string { return e.err.Error() }

// pollEvery schedules the next fetch.
func pollEvery(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(time.Time) tea.Msg { return pollMsg{} })
}

// fetchEvents reads the whole webhook log from the relay.
func fetchEvents(client *http.Client, apiURL string, manual bool) tea.Cmd {
	return func() tea.Msg {
		resp, err := client.Get(apiURL + "/ver-webhooks")
		if err != nil {
			return errMsg{err: err, manual: manual}
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return errMsg{err: fmt.Errorf("GET /ver-webhooks: %s", resp.Status), manual: manual}
		}

		var body struct {
			Events []json.RawMessage `json:"events"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
			return errMsg{err: fmt.Errorf("decode events: %w", err), manual: manual}
		}

		entries := make([]Entry, 0, len(body.Events))
		for _, raw := range body.Events {
			entries = append(entries, parseEntry(raw))
		}
		return eventsMsg{entries: entries, at: time.Now(), manual: manual}
	}
}
