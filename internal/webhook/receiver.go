package webhook

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/mattjoyce/envios-relay/internal/eventlog"
	"github.com/mattjoyce/envios-relay/internal/metrics"
)

// Receiver is the POST /webhook handler.
type Receiver struct {
	config Config
	store  EventStore
	logger *slog.Logger
	now    func() time.Time
}

// New creates a receiver, applying defaults to config.
func New(config Config, store EventStore, logger *slog.Logger) *Receiver {
	if config.MaxBodySize <= 0 {
		config.MaxBodySize = DefaultMaxBodySize
	}
	if config.SignatureHeader == "" {
		config.SignatureHeader = DefaultSignatureHeader
	}
	return &Receiver{
		config: config,
		store:  store,
		logger: logger,
		now:    time.Now,
	}
}

// VerifiesSignatures reports whether a secret is configured.
func (rc *Receiver) VerifiesSignatures() bool {
	return rc.config.Secret != ""
}

func (rc *Receiver) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	reqID := middleware.GetReqID(ctx)

	body, err := io.ReadAll(io.LimitReader(r.Body, rc.config.MaxBodySize+1))
	if err != nil {
		rc.reject(w, http.StatusInternalServerError, metrics.OutcomeReadError, "failed to read request body")
		return
	}
	if int64(len(body)) > rc.config.MaxBodySize {
		rc.reject(w, http.StatusRequestEntityTooLarge, metrics.OutcomeTooLarge, "payload too large")
		return
	}

	if rc.VerifiesSignatures() {
		signature := r.Header.Get(rc.config.SignatureHeader)
		if signature == "" {
			rc.logger.Warn("webhook signature missing",
				"header", rc.config.SignatureHeader,
				"request_id", reqID,
			)
			rc.unauthorized(w)
			return
		}
		if err := verifySignature(body, signature, rc.config.Secret); err != nil {
			rc.logger.Warn("webhook signature verification failed",
				"error", err,
				"request_id", reqID,
			)
			rc.unauthorized(w)
			return
		}
	}

	ev, err := eventlog.NewEvent(rc.now(), body)
	if err != nil {
		rc.logger.Warn("webhook body is not JSON", "error", err, "request_id", reqID)
		rc.reject(w, http.StatusBadRequest, metrics.OutcomeInvalidJSON, "invalid JSON body")
		return
	}

	if err := rc.store.Append(ctx, ev); err != nil {
		rc.logger.Error("failed to append webhook event", "error", err, "request_id", reqID)
		rc.reject(w, http.StatusInternalServerError, metrics.OutcomeStoreError, "failed to store event")
		return
	}

	metrics.WebhooksReceivedTotal.WithLabelValues(metrics.OutcomeAccepted).Inc()
	rc.logger.Info("webhook received", "bytes", len(body), "ts", ev.TS, "request_id", reqID)
	rc.logger.Debug("webhook payload", "data", string(ev.Data), "request_id", reqID)

	respondJSON(w, http.StatusOK, AckResponse{Status: "ok"})
}

func (rc *Receiver) unauthorized(w http.ResponseWriter) {
	metrics.WebhooksReceivedTotal.WithLabelValues(metrics.OutcomeUnauthorized).Inc()
	respondJSON(w, http.StatusUnauthorized, UnauthorizedResponse{Detail: "Invalid signature"})
}

func (rc *Receiver) reject(w http.ResponseWriter, status int, outcome, message string) {
	metrics.WebhooksReceivedTotal.WithLabelValues(outcome).Inc()
	respondJSON(w, status, ErrorResponse{Error: message})
}

// respondJSON sends a JSON response.
func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}
