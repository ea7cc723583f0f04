package mcpmux

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

// Client is the mcpmux SDK client. It talks to a running mcpmux server's
// admin REST API to manage the app registry.
type Client struct {
	serverAddr string
	timeout    time.Duration
	httpClient *http.Client
}

// NewClient creates a new mcpmux SDK client.
// It reads configuration from MCPMUX_* environment variables by default.
// Options can be used to override the defaults.
func NewClient(opts ...Option) *Client {
	c := &Client{
		serverAddr: envOrDefault("MCPMUX_SERVER_ADDR", "http://127.0.0.1:8080"),
		timeout:    parseDurationEnv("MCPMUX_TIMEOUT", 10*time.Second),
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.httpClient == nil {
		c.httpClient = &http.Client{
			Timeout: c.timeout,
		}
	}

	return c
}

// ListApps returns every registered app.
func (c *Client) ListApps(ctx context.Context) ([]App, error) {
	var envelope struct {
		Apps []App `json:"apps"`
	}
	if err := c.doRequest(ctx, http.MethodGet, "/admin/apps", nil, &envelope); err != nil {
		return nil, err
	}
	return envelope.Apps, nil
}

// GetApp returns a single app by name. It returns an *Error matching
// ErrAppNotFound (via errors.Is) if no such app exists.
func (c *Client) GetApp(ctx context.Context, name string) (*App, error) {
	var a App
	path := "/admin/apps/" + url.PathEscape(name)
	if err := c.doRequest(ctx, http.MethodGet, path, nil, &a); err != nil {
		return nil, err
	}
	return &a, nil
}

// CreateApp registers a new app. It returns an *Error matching
// ErrAppNameTaken (via errors.Is) if an app with that name already exists.
func (c *Client) CreateApp(ctx context.Context, req CreateAppRequest) (*App, error) {
	var a App
	if err := c.doRequest(ctx, http.MethodPost, "/admin/apps", req, &a); err != nil {
		return nil, err
	}
	return &a, nil
}

// DeleteApp removes a registered app by name. It returns an *Error matching
// ErrAppNotFound (via errors.Is) if no such app exists.
func (c *Client) DeleteApp(ctx context.Context, name string) error {
	path := "/admin/apps/" + url.PathEscape(name)
	return c.doRequest(ctx, http.MethodDelete, path, nil, nil)
}

// doRequest performs an HTTP request against the mcpmux admin API.
func (c *Client) doRequest(ctx context.Context, method, path string, body any, result any) error {
	reqURL := strings.TrimRight(c.serverAddr, "/") + path

	var bodyReader io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		bodyReader = bytes.NewReader(jsonBody)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, reqURL, bodyReader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	if body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	httpReq.Header.Set("Accept", "application/json")

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return &ServerUnreachableError{Cause: err}
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	if httpResp.StatusCode < 200 || httpResp.StatusCode >= 300 {
		return &Error{
			StatusCode: httpResp.StatusCode,
			Message:    extractErrorMessage(respBody),
		}
	}

	if result != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("failed to unmarshal response: %w", err)
		}
	}

	return nil
}

// extractErrorMessage pulls the "error" field out of a JSON error body
// ({"error": "..."}), falling back to the raw trimmed body for
// non-JSON responses.
func extractErrorMessage(body []byte) string {
	var envelope struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(body, &envelope); err == nil && envelope.Error != "" {
		return envelope.Error
	}
	return strings.TrimSpace(string(body))
}

// Helper functions for env var parsing.

func envOrDefault(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func parseDurationEnv(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	if secs, err := strconv.Atoi(v); err == nil {
		return time.Duration(secs) * time.Second
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	return defaultVal
}
