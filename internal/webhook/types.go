package webhook

import (
	"context"

	"github.com/mattjoyce/envios-relay/internal/eventlog"
)

//go:generate mockgen -destination=mocks/mock_store.go -package=mocks github.com/mattjoyce/envios-relay/internal/webhook EventStore

// EventStore is the part of the event log the receiver writes to.
type EventStore interface {
	Append(ctx context.Context, ev eventlog.Event) error
}

// Config holds webhook verification settings.
type Config struct {
	// Secret enables HMAC-SHA256 verification when non-empty.
	Secret string

	// SignatureHeader is the HTTP header carrying the hex signature.
	SignatureHeader string

	// MaxBodySize is the maximum accepted body in bytes (default: 1MB).
	MaxBodySize int64
}

// AckResponse is the fixed acknowledgement for accepted calls.
type AckResponse struct {
	Status string `json:"status"`
}

// ErrorResponse is the JSON body for rejected calls.
type ErrorResponse struct {
	Error string `json:"error"`
}

// UnauthorizedResponse keeps the {"detail": ...} shape existing CRM
// integrations already parse on a 401.
type UnauthorizedResponse struct {
	Detail string `json:"detail"`
}

// Default values
const (
	DefaultMaxBodySize     = 1048576 // 1 MB
	DefaultSignatureHeader = "X-HubSpot-Signature"
)
