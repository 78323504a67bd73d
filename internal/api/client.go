// Package api implements the HTTP transport client for the school backend.
// Every request carries a bearer credential when one is available; failures
// are surfaced unchanged, with no retries or timeouts at this layer.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// TokenSource supplies the current bearer credential. An empty string means
// no credential; the Authorization header is omitted entirely.
type TokenSource interface {
	Token() string
}

// Opts holds parameters for creating a Client.
type Opts struct {
	BaseURL string
	Tokens  TokenSource
	Logger  zerolog.Logger
	// For testing: inject a custom http.Client.
	HTTPClient *http.Client
}

// Client issues JSON requests against the backend base URL.
type Client struct {
	baseURL string
	tokens  TokenSource
	http    *http.Client
	log     zerolog.Logger
}

// New creates a transport client.
func New(opts Opts) (*Client, error) {
	if opts.BaseURL == "" {
		return nil, fmt.Errorf("api: base URL is required")
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &Client{
		baseURL: strings.TrimRight(opts.BaseURL, "/"),
		tokens:  opts.Tokens,
		http:    httpClient,
		log:     opts.Logger,
	}, nil
}

// Do issues a request and decodes the JSON response into out (skipped when
// out is nil). body is JSON-encoded when non-nil. Non-2xx responses return
// *HTTPError; dispatch failures return *NetworkError.
func (c *Client) Do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("api: encode request body: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	url := c.baseURL + path
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return fmt.Errorf("api: build request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-Id", uuid.NewString())
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.tokens != nil {
		if token := c.tokens.Token(); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return &NetworkError{Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return &NetworkError{Err: err}
	}

	c.log.Debug().
		Str("method", method).
		Str("path", path).
		Int("status", resp.StatusCode).
		Msg("request completed")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return newHTTPError(resp.StatusCode, raw)
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("api: decode %s %s response: %w", method, path, err)
	}
	return nil
}

// Get is shorthand for Do with GET and no request body.
func (c *Client) Get(ctx context.Context, path string, out any) error {
	return c.Do(ctx, http.MethodGet, path, nil, out)
}

// Post is shorthand for Do with POST.
func (c *Client) Post(ctx context.Context, path string, body, out any) error {
	return c.Do(ctx, http.MethodPost, path, body, out)
}

// Put is shorthand for Do with PUT.
func (c *Client) Put(ctx context.Context, path string, body, out any) error {
	return c.Do(ctx, http.MethodPut, path, body, out)
}

// Patch is shorthand for Do with PATCH and no request body.
func (c *Client) Patch(ctx context.Context, path string, out any) error {
	return c.Do(ctx, http.MethodPatch, path, nil, out)
}

// Delete is shorthand for Do with DELETE and no request body.
func (c *Client) Delete(ctx context.Context, path string, out any) error {
	return c.Do(ctx, http.MethodDelete, path, nil, out)
}
