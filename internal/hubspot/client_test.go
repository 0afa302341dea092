package hubspot

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	return NewClient(Config{
		APIKey:         "pat-test",
		SearchURL:      srv.URL + "/crm/v3/objects/contacts/search",
		LookupProperty: "guia",
		Properties:     []string{"guia", "estatus", "nombre"},
		Timeout:        2 * time.Second,
	}, nil, testLogger())
}

func TestSearchByGuia_SendsFilteredSearch(t *testing.T) {
	var got searchRequest
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/crm/v3/objects/contacts/search", r.URL.Path)
		assert.Equal(t, "Bearer pat-test", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"total":1,"results":[{"id":"101","properties":{"guia":"MX-1"}}]}`)
	})

	_, err := c.SearchByGuia(context.Background(), "MX-1")
	require.NoError(t, err)

	require.Len(t, got.FilterGroups, 1)
	require.Len(t, got.FilterGroups[0].Filters, 1)
	assert.Equal(t, filter{PropertyName: "guia", Operator: "EQ", Value: "MX-1"}, got.FilterGroups[0].Filters[0])
	assert.Equal(t, []string{"guia", "estatus", "nombre"}, got.Properties)
}

func TestSearchByGuia_ReturnsFirstResultVerbatim(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"total":2,"results":[
			{"id":"1","properties":{"guia":"MX-1","estatus":"en tránsito","nombre":null,"hs_object_id":"1"}},
			{"id":"2","properties":{"guia":"MX-1","estatus":"entregado"}}
		]}`)
	})

	props, err := c.SearchByGuia(context.Background(), "MX-1")
	require.NoError(t, err)
	assert.Equal(t, Properties{
		"guia":         "MX-1",
		"estatus":      "en tránsito",
		"nombre":       nil,
		"hs_object_id": "1",
	}, props)
}

func TestSearchByGuia_NoResults(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"total":0,"results":[]}`)
	})

	_, err := c.SearchByGuia(context.Background(), "missing")
	require.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, "No se encontró un envío con esa guía.", err.Error())
}

func TestSearchByGuia_MissingResultsField(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{}`)
	})

	_, err := c.SearchByGuia(context.Background(), "x")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSearchByGuia_UpstreamError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = io.WriteString(w, `{"status":"error","message":"Authentication credentials not found."}`)
	})

	_, err := c.SearchByGuia(context.Background(), "MX-1")
	var upErr *UpstreamError
	require.True(t, errors.As(err, &upErr), "want *UpstreamError, got %T", err)
	assert.Equal(t, http.StatusUnauthorized, upErr.StatusCode)
	assert.Equal(t, `HubSpot error 401: {"status":"error","message":"Authentication credentials not found."}`, err.Error())
}

func TestSearchByGuia_MalformedSuccessBody(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `<html>`)
	})

	_, err := c.SearchByGuia(context.Background(), "MX-1")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)
}

func TestSearchByGuia_TransportError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c := NewClient(Config{SearchURL: url, LookupProperty: "guia"}, nil, testLogger())
	_, err := c.SearchByGuia(context.Background(), "MX-1")
	require.Error(t, err)

	var upErr *UpstreamError
	assert.False(t, errors.As(err, &upErr))
}

func TestSearchByGuia_EmptyPropertyListIsSentAsArray(t *testing.T) {
	var raw map[string]json.RawMessage
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&raw))
		_, _ = io.WriteString(w, `{"results":[{"properties":{}}]}`)
	}))
	t.Cleanup(srv.Close)

	c := NewClient(Config{SearchURL: srv.URL, LookupProperty: "guia"}, srv.Client(), testLogger())
	_, err := c.SearchByGuia(context.Background(), "MX-1")
	require.NoError(t, err)
	assert.Equal(t, "[]", string(raw["properties"]))
}
