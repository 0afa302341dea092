package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/mattjoyce/envios-relay/internal/hubspot"
	"github.com/mattjoyce/envios-relay/internal/metrics"
)

// handleRoot handles GET / (health check for the hosting platform).
func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, StatusResponse{Status: "ok"})
}

// handleLookup handles GET /consultar-envio?guia=...
//
// Upstream failures and "no match" are answered with 200 and an error field;
// only a failed transport is a 502.
func (s *Server) handleLookup(w http.ResponseWriter, r *http.Request) {
	values, ok := r.URL.Query()["guia"]
	if !ok || len(values) == 0 {
		metrics.ShipmentLookupsTotal.WithLabelValues(metrics.OutcomeBadRequest).Inc()
		s.writeError(w, http.StatusUnprocessableEntity, "guia is required")
		return
	}
	guia := values[0]

	props, err := s.shipments.SearchByGuia(r.Context(), guia)

	var upErr *hubspot.UpstreamError
	switch {
	case err == nil:
		metrics.ShipmentLookupsTotal.WithLabelValues(metrics.OutcomeFound).Inc()
		respondJSON(w, http.StatusOK, props)
	case errors.Is(err, hubspot.ErrNotFound):
		metrics.ShipmentLookupsTotal.WithLabelValues(metrics.OutcomeNotFound).Inc()
		s.logger.Info("shipment not found", "guia", guia)
		s.writeError(w, http.StatusOK, hubspot.NotFoundMessage)
	case errors.As(err, &upErr):
		metrics.ShipmentLookupsTotal.WithLabelValues(metrics.OutcomeUpstreamError).Inc()
		s.logger.Warn("hubspot returned an error", "guia", guia, "status", upErr.StatusCode)
		s.writeError(w, http.StatusOK, upErr.Error())
	default:
		metrics.ShipmentLookupsTotal.WithLabelValues(metrics.OutcomeTransportError).Inc()
		s.logger.Error("hubspot search failed", "guia", guia, "error", err)
		s.writeError(w, http.StatusBadGateway, "hubspot request failed")
	}
}

// handleListEvents handles GET /ver-webhooks.
func (s *Server) handleListEvents(w http.ResponseWriter, r *http.Request) {
	events, err := s.events.List(r.Context())
	if err != nil {
		metrics.EventLogReadsTotal.WithLabelValues(metrics.OutcomeError).Inc()
		s.logger.Error("failed to read webhook log", "error", err)
		s.writeError(w, http.StatusInternalServerError, "failed to read webhook log")
		return
	}
	if events == nil {
		events = []json.RawMessage{}
	}

	metrics.EventLogReadsTotal.WithLabelValues(metrics.OutcomeOK).Inc()
	respondJSON(w, http.StatusOK, EventsResponse{Events: events})
}

// handleOpenAPI handles GET /openapi.json.
func (s *Server) handleOpenAPI(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, buildOpenAPIDoc(s.config.Version))
}

// respondJSON sends a JSON response without HTML escaping, so stored payloads
// and CRM values come back byte-for-byte.
func respondJSON(w http.ResponseWriter, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(data)
}

// writeError writes a JSON error response
func (s *Server) writeError(w http.ResponseWriter, statusCode int, message string) {
	respondJSON(w, statusCode, ErrorResponse{Error: message})
}
