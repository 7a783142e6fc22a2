// Package vault implements a typed HTTP client for the secret vault's REST
// API: folders, groups, users, and folder permissions. The client carries a
// single bearer token established at login and performs no retries — callers
// decide how to react to a failed call.
package vault

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

// apiPrefix is prepended to every request path.
const apiPrefix = "/api/v1"

// Client talks to one vault instance. Fields may be adjusted before the first
// call; the client is safe for concurrent use afterwards.
type Client struct {
	BaseURL    string
	Token      string
	HTTPClient *http.Client

	// CorrelationID is sent as X-Correlation-Id on every request so a run's
	// calls can be tied together in the vault's audit log.
	CorrelationID string

	// Limiter, when non-nil, throttles outgoing requests.
	Limiter *rate.Limiter
}

// NewClient creates a client for the vault at baseURL. A trailing slash on
// baseURL is stripped. The token may be empty and set later (after login).
func NewClient(baseURL, token string) *Client {
	return &Client{
		BaseURL:       strings.TrimSuffix(baseURL, "/"),
		Token:         token,
		HTTPClient:    &http.Client{Timeout: 30 * time.Second},
		CorrelationID: uuid.NewString(),
	}
}

// SetRateLimit caps outgoing requests at rps per second. Zero or negative
// removes the cap.
func (c *Client) SetRateLimit(rps float64) {
	if rps <= 0 {
		c.Limiter = nil
		return
	}
	c.Limiter = rate.NewLimiter(rate.Limit(rps), 1)
}

// Do issues a single API request. The path is relative to the versioned API
// root (e.g. "/folders"). A non-nil body is JSON-encoded. The caller owns the
// response body.
func (c *Client) Do(ctx context.Context, method, path string, query url.Values, body any) (*http.Response, error) {
	if c.Limiter != nil {
		if err := c.Limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	u := c.BaseURL + apiPrefix + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode request body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}
	if c.CorrelationID != "" {
		req.Header.Set("X-Correlation-Id", c.CorrelationID)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute request: %w", err)
	}
	return resp, nil
}

// get issues a GET and decodes a 2xx response body into out.
func (c *Client) get(ctx context.Context, op, path string, query url.Values, out any) error {
	resp, err := c.Do(ctx, http.MethodGet, path, query, nil)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return decode(op, resp, out)
}

// post issues a POST and decodes a 2xx response body into out (out may be nil).
func (c *Client) post(ctx context.Context, op, path string, body, out any) error {
	resp, err := c.Do(ctx, http.MethodPost, path, nil, body)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return decode(op, resp, out)
}

// del issues a DELETE and checks the response status.
func (c *Client) del(ctx context.Context, op, path string) error {
	resp, err := c.Do(ctx, http.MethodDelete, path, nil, nil)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return decode(op, resp, nil)
}

// decode reads and closes the response body, converts non-2xx statuses into
// *APIError, and unmarshals the body into out when out is non-nil.
func decode(op string, resp *http.Response, out any) error {
	data, err := ReadBody(resp)
	if err != nil {
		return fmt.Errorf("%s: read response: %w", op, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &APIError{
			Op:         op,
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
			Body:       string(data),
		}
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%s: parse response: %w", op, err)
	}
	return nil
}

// ReadBody reads the full response body and closes it.
func ReadBody(resp *http.Response) ([]byte, error) {
	defer resp.Body.Close()
	return io.ReadAll(resp.Body)
}
