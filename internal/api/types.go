package api

import "encoding/json"

// StatusResponse is returned by GET /.
type StatusResponse struct {
	Status string `json:"status"`
}

// ErrorResponse carries lookup failures (with 200) and request errors.
type ErrorResponse struct {
	Error string `json:"error"`
}

// EventsResponse is returned by GET /ver-webhooks. Each entry is a stored
// event line, replayed verbatim.
type EventsResponse struct {
	Events []json.RawMessage `json:"events"`
}
