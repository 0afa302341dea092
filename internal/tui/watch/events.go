package watch

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/table"
)

// Entry is one stored webhook as returned by /ver-webhooks.
type Entry struct {
	TS   string          `json:"ts"`
	Data json.RawMessage `json:"data"`
}

// hubspotEvent holds the fields HubSpot puts in each webhook notification.
type hubspotEvent struct {
	SubscriptionType string `json:"subscriptionType"`
	ObjectID         any    `json:"objectId"`
	PropertyName     string `json:"propertyName"`
	PropertyValue    any    `json:"propertyValue"`
}

func parseEntry(raw json.RawMessage) Entry {
	var e Entry
	if err := json.Unmarshal(raw, &e); err != nil || e.Data == nil {
		return Entry{Data: raw}
	}
	return e
}

// columns for the event table.
func columns(width int) []table.Column {
	payload := width - 4 - 26 - 28 - 14 - 8
	if payload < 20 {
		payload = 20
	}
	return []table.Column{
		{Title: "Received", Width: 26},
		{Title: "Type", Width: 28},
		{Title: "Object", Width: 14},
		{Title: "Change", Width: payload},
	}
}

// rows renders entries newest-first.
func rows(entries []Entry) []table.Row {
	out := make([]table.Row, 0, len(entries))
	for i := len(entries) - 1; i >= 0; i-- {
		e := entries[i]
		typ, obj, change := summarize(e.Data)
		out = append(out, table.Row{e.TS, typ, obj, change})
	}
	return out
}

// summarize extracts the type, object id and change from a payload. HubSpot
// sends a batch array; only the first notification is described.
func summarize(data json.RawMessage) (typ, object, change string) {
	var batch []hubspotEvent
	var single hubspotEvent

	ev := &single
	count := 1
	if err := json.Unmarshal(data, &batch); err == nil {
		if len(batch) == 0 {
			return "-", "-", truncate(string(data), 60)
		}
		ev = &batch[0]
		count = len(batch)
	} else if err := json.Unmarshal(data, &single); err != nil {
		return "-", "-", truncate(string(data), 60)
	}

	if ev.SubscriptionType == "" {
		return "-", "-", truncate(string(data), 60)
	}

	typ = ev.SubscriptionType
	if count > 1 {
		typ = fmt.Sprintf("%s (+%d)", typ, count-1)
	}
	object = "-"
	if ev.ObjectID != nil {
		object = fmt.Sprint(ev.ObjectID)
	}
	if ev.PropertyName != "" {
		change = fmt.Sprintf("%s=%v", ev.PropertyName, ev.PropertyValue)
	}
	return typ, object, change
}

// truncate collapses whitespace and cuts s to n runes.
func truncate(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	if r := []rune(s); len(r) > n {
		return string(r[:n]) + "..."
	}
	return s
}
