// Package hubspot looks up shipment records stored as HubSpot CRM contacts.
package hubspot

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/mattjoyce/envios-relay/internal/metrics"
)

// NotFoundMessage is what callers see when no contact carries the tracking id.
const NotFoundMessage = "No se encontró un envío con esa guía."

// ErrNotFound is returned when the search succeeds with zero results.
var ErrNotFound = errors.New(NotFoundMessage)

// UpstreamError is a non-200 answer from HubSpot, kept verbatim.
type UpstreamError struct {
	StatusCode int
	Body       string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("HubSpot error %d: %s", e.StatusCode, e.Body)
}

// Properties is a contact's property map as HubSpot returns it. Values are
// strings or null.
type Properties map[string]any

// Config holds the search settings.
type Config struct {
	APIKey         string
	SearchURL      string
	LookupProperty string
	Properties     []string
	Timeout        time.Duration
}

// Client calls the CRM search endpoint. It never retries.
type Client struct {
	config Config
	http   *http.Client
	logger *slog.Logger
}

// NewClient builds a client. A nil httpClient gets one with config.Timeout.
func NewClient(config Config, httpClient *http.Client, logger *slog.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: config.Timeout}
	}
	return &Client{
		config: config,
		http:   httpClient,
		logger: logger,
	}
}

type searchRequest struct {
	FilterGroups []filterGroup `json:"filterGroups"`
	Properties   []string      `json:"properties"`
}

type filterGroup struct {
	Filters []filter `json:"filters"`
}

type filter struct {
	PropertyName string `json:"propertyName"`
	Operator     string `json:"operator"`
	Value        string `json:"value"`
}

type searchResponse struct {
	Total   int `json:"total"`
	Results []struct {
		ID         string     `json:"id"`
		Properties Properties `json:"properties"`
	} `json:"results"`
}

// newSearchRequest filters on an exact match of the lookup property.
func (c *Client) newSearchRequest(guia string) searchRequest {
	props := c.config.Properties
	if props == nil {
		props = []string{}
	}
	return searchRequest{
		FilterGroups: []filterGroup{{
			Filters: []filter{{
				PropertyName: c.config.LookupProperty,
				Operator:     "EQ",
				Value:        guia,
			}},
		}},
		Properties: props,
	}
}

// SearchByGuia returns the properties of the first contact whose lookup
// property equals guia. Extra matches are ignored.
//
// Errors: ErrNotFound for zero matches, *UpstreamError for a non-200 status,
// anything else is a transport or decoding failure.
func (c *Client) SearchByGuia(ctx context.Context, guia string) (Properties, error) {
	body, err := json.Marshal(c.newSearchRequest(guia))
	if err != nil {
		return nil, fmt.Errorf("encode search request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.SearchURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build search request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.config.APIKey)
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		metrics.HubSpotRequestDuration.WithLabelValues("error").Observe(time.Since(start).Seconds())
		return nil, fmt.Errorf("hubspot search: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	metrics.HubSpotRequestDuration.WithLabelValues(strconv.Itoa(resp.StatusCode)).Observe(time.Since(start).Seconds())
	if err != nil {
		return nil, fmt.Errorf("read search response: %w", err)
	}

	c.logger.Debug("hubspot search",
		"guia", guia,
		"status", resp.StatusCode,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	if resp.StatusCode != http.StatusOK {
		return nil, &UpstreamError{StatusCode: resp.StatusCode, Body: string(respBody)}
	}

	var sr searchResponse
	if err := json.Unmarshal(respBody, &sr); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}
	if len(sr.Results) == 0 {
		return nil, ErrNotFound
	}
	return sr.Results[0].Properties, nil
}
