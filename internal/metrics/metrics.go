package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Outcome label values.
const (
	OutcomeFound          = "found"
	OutcomeNotFound       = "not_found"
	OutcomeUpstreamError  = "upstream_error"
	OutcomeTransportError = "transport_error"
	OutcomeBadRequest     = "bad_request"

	OutcomeAccepted     = "accepted"
	OutcomeUnauthorized = "unauthorized"
	OutcomeInvalidJSON  = "invalid_json"
	OutcomeTooLarge     = "too_large"
	OutcomeStoreError   = "store_error"
	OutcomeReadError    = "read_error"

	OutcomeOK    = "ok"
	OutcomeError = "error"
)

// Prometheus metrics for the relay endpoints and the HubSpot upstream.
var (
	ShipmentLookupsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "envios_shipment_lookups_total",
			Help: "Shipment lookups by outcome",
		},
		[]string{"outcome"},
	)

	HubSpotRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "envios_hubspot_request_duration_seconds",
			Help:    "Duration of HubSpot search requests",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"status"},
	)

	WebhooksReceivedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "envios_webhooks_received_total",
			Help: "Webhook calls by outcome",
		},
		[]string{"outcome"},
	)

	EventLogReadsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "envios_event_log_reads_total",
			Help: "Event log replays by outcome",
		},
		[]string{"outcome"},
	)
)

var registerOnce sync.Once

// Register registers all Prometheus metrics with the default registry.
// Safe to call more than once.
func Register() {
	registerOnce.Do(func() {
		prometheus.MustRegister(ShipmentLookupsTotal)
		prometheus.MustRegister(HubSpotRequestDuration)
		prometheus.MustRegister(WebhooksReceivedTotal)
		prometheus.MustRegister(EventLogReadsTotal)
	})
}

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
