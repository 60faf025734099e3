package client

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorded struct {
	method string
	path   string
	query  string
	auth   string
	body   map[string]any
}

// newTestServer answers every request with status and body, recording the last request
func newTestServer(t *testing.T, status int, body string) (*HTTPClient, *recorded) {
	t.Helper()
	rec := &recorded{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec.method = r.Method
		rec.path = r.URL.Path
		rec.query = r.URL.RawQuery
		rec.auth = r.Header.Get("Authorization")
		if raw, _ := io.ReadAll(r.Body); len(raw) > 0 {
			_ = json.Unmarshal(raw, &rec.body)
		}
		if body != "" {
			w.Header().Set("Content-Type", "application/json")
		}
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewHTTP(logger, srv.URL+"/", "secret"), rec
}

func TestEntries(t *testing.T) {
	c, rec := newTestServer(t, http.StatusOK, `[{"entry_id":"e1","domain":"yeelight","title":"Desk","state":"loaded","data":{"host":"192.168.1.239"}}]`)

	entries, err := c.Entries(context.Background())
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "e1", entries[0].EntryID)
	assert.Equal(t, "loaded", entries[0].State)
	assert.Equal(t, "192.168.1.239", entries[0].Data["host"])

	assert.Equal(t, http.MethodGet, rec.method)
	assert.Equal(t, "/api/v1/entries", rec.path)
	assert.Equal(t, "Bearer secret", rec.auth)
}

func TestCreateEntry(t *testing.T) {
	c, rec := newTestServer(t, http.StatusCreated, `{"entry_id":"e2","domain":"yeelight","title":"192.168.1.240","state":"setup_retry","data":{"host":"192.168.1.240"}}`)

	entry, err := c.CreateEntry(context.Background(), NewEntry{Data: map[string]any{"host": "192.168.1.240"}})
	require.NoError(t, err)
	assert.Equal(t, "e2", entry.EntryID)
	assert.Equal(t, "setup_retry", entry.State)

	assert.Equal(t, http.MethodPost, rec.method)
	assert.Equal(t, "/api/v1/entries", rec.path)
	assert.Equal(t, map[string]any{"host": "192.168.1.240"}, rec.body["data"])
	assert.NotContains(t, rec.body, "domain")
}

func TestEntryActions(t *testing.T) {
	tests := []struct {
		name string
		call func(c *HTTPClient) error
		path string
	}{
		{"setup", func(c *HTTPClient) error { _, err := c.SetupEntry(context.Background(), "e1"); return err }, "/api/v1/entries/e1/setup"},
		{"unload", func(c *HTTPClient) error { _, err := c.UnloadEntry(context.Background(), "e1"); return err }, "/api/v1/entries/e1/unload"},
		{"reload", func(c *HTTPClient) error { _, err := c.ReloadEntry(context.Background(), "e1"); return err }, "/api/v1/entries/e1/reload"},
		{"refresh", func(c *HTTPClient) error { return c.RefreshEntry(context.Background(), "e1") }, "/api/v1/entries/e1/refresh"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, rec := newTestServer(t, http.StatusOK, `{"entry_id":"e1","status":"ok"}`)
			require.NoError(t, tt.call(c))
			assert.Equal(t, http.MethodPost, rec.method)
			assert.Equal(t, tt.path, rec.path)
		})
	}
}

func TestDeleteEntry(t *testing.T) {
	c, rec := newTestServer(t, http.StatusNoContent, "")
	require.NoError(t, c.DeleteEntry(context.Background(), "e1"))
	assert.Equal(t, http.MethodDelete, rec.method)
	assert.Equal(t, "/api/v1/entries/e1", rec.path)
}

func TestStatesFilters(t *testing.T) {
	c, rec := newTestServer(t, http.StatusOK, `[{"entity_id":"light.desk","state":"on","attributes":{"brightness":80}}]`)

	states, err := c.States(context.Background(), "light")
	require.NoError(t, err)
	require.Len(t, states, 1)
	assert.Equal(t, "on", states[0].State)
	assert.EqualValues(t, 80, states[0].Attributes["brightness"])
	assert.Equal(t, "domain=light", rec.query)

	_, err = c.Entities(context.Background(), "e1")
	require.NoError(t, err)
	assert.Equal(t, "/api/v1/entities", rec.path)
	assert.Equal(t, "config_entry_id=e1", rec.query)
}

func TestSetLight(t *testing.T) {
	c, rec := newTestServer(t, http.StatusOK, `{"entity_id":"light.desk","state":"on","attributes":{}}`)

	brightness := 40
	state, err := c.SetLight(context.Background(), "light.desk", LightCommand{Brightness: &brightness, RGB: &[3]int{255, 0, 0}})
	require.NoError(t, err)
	assert.Equal(t, "on", state.State)

	assert.Equal(t, "/api/v1/lights/light.desk/state", rec.path)
	assert.EqualValues(t, 40, rec.body["brightness"])
	assert.Equal(t, []any{float64(255), float64(0), float64(0)}, rec.body["rgb"])
	assert.NotContains(t, rec.body, "on")
	assert.NotContains(t, rec.body, "kelvin")
}

func TestScanAndBulbs(t *testing.T) {
	c, rec := newTestServer(t, http.StatusOK, `[{"id":"0x1","host":"192.168.1.239","port":55443,"model":"color","support":["set_rgb"]}]`)

	bulbs, err := c.Scan(context.Background())
	require.NoError(t, err)
	require.Len(t, bulbs, 1)
	assert.Equal(t, "color", bulbs[0].Model)
	assert.Equal(t, http.MethodPost, rec.method)
	assert.Equal(t, "/api/v1/discovery/scan", rec.path)

	_, err = c.Bulbs(context.Background())
	require.NoError(t, err)
	assert.Equal(t, http.MethodGet, rec.method)
	assert.Equal(t, "/api/v1/discovery", rec.path)
}

func TestLogLevel(t *testing.T) {
	c, rec := newTestServer(t, http.StatusOK, `{"level":"debug"}`)

	level, err := c.SetLogLevel(context.Background(), "debug")
	require.NoError(t, err)
	assert.Equal(t, "debug", level)
	assert.Equal(t, http.MethodPut, rec.method)
	assert.Equal(t, "debug", rec.body["level"])

	level, err = c.LogLevel(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "debug", level)
}

func TestVersion(t *testing.T) {
	c, _ := newTestServer(t, http.StatusOK, `{"version":"1.0.0","commit":"abc","build_date":"2026-01-01"}`)
	v, err := c.Version(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "1.0.0", v.Version)
	assert.Equal(t, "2026-01-01", v.BuildDate)
}

func TestAPIErrors(t *testing.T) {
	c, _ := newTestServer(t, http.StatusNotFound, `{"title":"Not Found","status":404,"detail":"config entry nope: resource not found"}`)

	_, err := c.Entry(context.Background(), "nope")
	require.Error(t, err)
	assert.True(t, IsNotFound(err))
	assert.Contains(t, err.Error(), "config entry nope")

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusNotFound, apiErr.StatusCode)
}

func TestAPIErrorPlainBody(t *testing.T) {
	c, _ := newTestServer(t, http.StatusTooManyRequests, "Too Many Requests\n")
	_, err := c.Entries(context.Background())
	require.Error(t, err)
	assert.False(t, IsNotFound(err))
	assert.Equal(t, "HTTP error 429: Too Many Requests", err.Error())
}

func TestNoAPIKeyOmitsHeader(t *testing.T) {
	c, rec := newTestServer(t, http.StatusOK, `[]`)
	c.apiKey = ""
	entries, err := c.Entries(context.Background())
	require.NoError(t, err)
	assert.Empty(t, entries)
	assert.Empty(t, rec.auth)
}
