// Package client is a Go client for the yeelightd HTTP API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// ClientInterface is the API surface used by yeelightctl, mockable in tests
type ClientInterface interface {
	Version(ctx context.Context) (*Version, error)
	Entries(ctx context.Context) ([]Entry, error)
	Entry(ctx context.Context, id string) (*Entry, error)
	CreateEntry(ctx context.Context, e NewEntry) (*Entry, error)
	DeleteEntry(ctx context.Context, id string) error
	SetupEntry(ctx context.Context, id string) (*Entry, error)
	UnloadEntry(ctx context.Context, id string) (*Entry, error)
	ReloadEntry(ctx context.Context, id string) (*Entry, error)
	RefreshEntry(ctx context.Context, id string) error
	Entities(ctx context.Context, configEntryID string) ([]Entity, error)
	States(ctx context.Context, domain string) ([]State, error)
	State(ctx context.Context, entityID string) (*State, error)
	SetLight(ctx context.Context, entityID string, cmd LightCommand) (*State, error)
	Bulbs(ctx context.Context) ([]Bulb, error)
	Scan(ctx context.Context) ([]Bulb, error)
	LogLevel(ctx context.Context) (string, error)
	SetLogLevel(ctx context.Context, level string) (string, error)
}

// APIError is returned for non-2xx responses
type APIError struct {
	StatusCode int
	Detail     string
}

func (e *APIError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("HTTP error %d", e.StatusCode)
	}
	return fmt.Sprintf("HTTP error %d: %s", e.StatusCode, e.Detail)
}

// IsNotFound reports whether err is a 404 from the daemon
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}

// HTTPClient talks to a yeelightd daemon
type HTTPClient struct {
	logger  *slog.Logger
	baseURL string
	apiKey  string
	client  *http.Client
}

var _ ClientInterface = (*HTTPClient)(nil)

// NewHTTP creates a new HTTP client
func NewHTTP(logger *slog.Logger, baseURL string, apiKey string) *HTTPClient {
	if logger == nil {
		logger = slog.Default()
	}
	return &HTTPClient{
		logger:  logger,
		baseURL: strings.TrimSuffix(baseURL, "/"),
		apiKey:  apiKey,
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

// request performs an HTTP request and decodes the JSON response
func (c *HTTPClient) request(ctx context.Context, method, path string, body any, resp any) error {
	u := c.baseURL + path
	c.logger.Debug("HTTP request", "method", method, "url", u)

	var bodyReader io.Reader
	if body != nil {
		bodyBytes, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		bodyReader = bytes.NewReader(bodyBytes)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, bodyReader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	httpResp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("HTTP request failed: %w", err)
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	if httpResp.StatusCode >= 400 {
		c.logger.Debug("HTTP error response", "status", httpResp.StatusCode, "body", string(respBody))
		return &APIError{StatusCode: httpResp.StatusCode, Detail: errorDetail(respBody)}
	}

	if resp != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, resp); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return nil
}

// errorDetail extracts the detail of an RFC 9457 problem response
func errorDetail(body []byte) string {
	var problem struct {
		Detail string `json:"detail"`
		Title  string `json:"title"`
	}
	if err := json.Unmarshal(body, &problem); err != nil {
		return strings.TrimSpace(string(body))
	}
	if problem.Detail != "" {
		return problem.Detail
	}
	return problem.Title
}

// Version returns the running daemon's version information.
func (c *HTTPClient) Version(ctx context.Context) (*Version, error) {
	var resp Version
	if err := c.request(ctx, http.MethodGet, "/api/v1/version", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Entries lists every config entry
func (c *HTTPClient) Entries(ctx context.Context) ([]Entry, error) {
	resp := []Entry{}
	if err := c.request(ctx, http.MethodGet, "/api/v1/entries", nil, &resp); err != nil {
		return nil, err
	}
	return resp, nil
}

// Entry returns one config entry
func (c *HTTPClient) Entry(ctx context.Context, id string) (*Entry, error) {
	return c.entryRequest(ctx, http.MethodGet, "/api/v1/entries/"+url.PathEscape(id), nil)
}

// CreateEntry adds a config entry; the daemon sets it up straight away
func (c *HTTPClient) CreateEntry(ctx context.Context, e NewEntry) (*Entry, error) {
	return c.entryRequest(ctx, http.MethodPost, "/api/v1/entries", e)
}

// DeleteEntry unloads and removes a config entry
func (c *HTTPClient) DeleteEntry(ctx context.Context, id string) error {
	return c.request(ctx, http.MethodDelete, "/api/v1/entries/"+url.PathEscape(id), nil, nil)
}

// SetupEntry sets up a not loaded entry
func (c *HTTPClient) SetupEntry(ctx context.Context, id string) (*Entry, error) {
	return c.entryRequest(ctx, http.MethodPost, "/api/v1/entries/"+url.PathEscape(id)+"/setup", nil)
}

// UnloadEntry unloads a loaded entry
func (c *HTTPClient) UnloadEntry(ctx context.Context, id string) (*Entry, error) {
	return c.entryRequest(ctx, http.MethodPost, "/api/v1/entries/"+url.PathEscape(id)+"/unload", nil)
}

// ReloadEntry unloads and sets up an entry again
func (c *HTTPClient) ReloadEntry(ctx context.Context, id string) (*Entry, error) {
	return c.entryRequest(ctx, http.MethodPost, "/api/v1/entries/"+url.PathEscape(id)+"/reload", nil)
}

// RefreshEntry re-reads the properties of an entry's bulb
func (c *HTTPClient) RefreshEntry(ctx context.Context, id string) error {
	return c.request(ctx, http.MethodPost, "/api/v1/entries/"+url.PathEscape(id)+"/refresh", nil, nil)
}

func (c *HTTPClient) entryRequest(ctx context.Context, method, path string, body any) (*Entry, error) {
	var resp Entry
	if err := c.request(ctx, method, path, body, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Entities lists registered entities, optionally of one config entry
func (c *HTTPClient) Entities(ctx context.Context, configEntryID string) ([]Entity, error) {
	path := "/api/v1/entities"
	if configEntryID != "" {
		path += "?config_entry_id=" + url.QueryEscape(configEntryID)
	}
	resp := []Entity{}
	if err := c.request(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return resp, nil
}

// States lists entity states, optionally of one domain such as "light"
func (c *HTTPClient) States(ctx context.Context, domain string) ([]State, error) {
	path := "/api/v1/states"
	if domain != "" {
		path += "?domain=" + url.QueryEscape(domain)
	}
	resp := []State{}
	if err := c.request(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return resp, nil
}

// State returns the state of one entity
func (c *HTTPClient) State(ctx context.Context, entityID string) (*State, error) {
	var resp State
	if err := c.request(ctx, http.MethodGet, "/api/v1/states/"+url.PathEscape(entityID), nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// SetLight sends a command to a light entity and returns its new state
func (c *HTTPClient) SetLight(ctx context.Context, entityID string, cmd LightCommand) (*State, error) {
	var resp State
	if err := c.request(ctx, http.MethodPost, "/api/v1/lights/"+url.PathEscape(entityID)+"/state", cmd, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Bulbs returns the bulbs seen by discovery
func (c *HTTPClient) Bulbs(ctx context.Context) ([]Bulb, error) {
	resp := []Bulb{}
	if err := c.request(ctx, http.MethodGet, "/api/v1/discovery", nil, &resp); err != nil {
		return nil, err
	}
	return resp, nil
}

// Scan runs a discovery scan and returns every known bulb
func (c *HTTPClient) Scan(ctx context.Context) ([]Bulb, error) {
	resp := []Bulb{}
	if err := c.request(ctx, http.MethodPost, "/api/v1/discovery/scan", nil, &resp); err != nil {
		return nil, err
	}
	return resp, nil
}

type levelBody struct {
	Level string `json:"level"`
}

// LogLevel returns the daemon's log level
func (c *HTTPClient) LogLevel(ctx context.Context) (string, error) {
	var resp levelBody
	if err := c.request(ctx, http.MethodGet, "/api/v1/logging/level", nil, &resp); err != nil {
		return "", err
	}
	return resp.Level, nil
}

// SetLogLevel changes the daemon's log level
func (c *HTTPClient) SetLogLevel(ctx context.Context, level string) (string, error) {
	var resp levelBody
	if err := c.request(ctx, http.MethodPut, "/api/v1/logging/level", levelBody{Level: level}, &resp); err != nil {
		return "", err
	}
	return resp.Level, nil
}
