// Package api is the REST client for the Yarda generation backend. It only
// consumes the contract; retry policy and polling live in the orchestration
// layer on top of it.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"
)

// Config holds client settings.
type Config struct {
	BaseURL   string
	AuthToken string
	Timeout   time.Duration

	// OnUnauthorized runs on the first 401 seen within the debounce
	// window. Concurrent 401s from parallel calls trigger it once.
	OnUnauthorized func()
}

// unauthorizedDebounce suppresses duplicate session-clear handling when
// several in-flight calls all come back 401 together.
const unauthorizedDebounce = 5 * time.Second

// Client talks to the backend over HTTP.
type Client struct {
	baseURL        string
	token          string
	httpClient     *http.Client
	onUnauthorized func()

	mu               sync.Mutex
	lastUnauthorized time.Time
}

// NewClient creates a backend client.
func NewClient(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL:        cfg.BaseURL,
		token:          cfg.AuthToken,
		onUnauthorized: cfg.OnUnauthorized,
		httpClient: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
}

// Authenticated reports whether the client carries a session token.
func (c *Client) Authenticated() bool {
	return c.token != ""
}

// do issues one request and decodes the response into out (if non-nil).
// Transport failures are returned wrapped so the classifier still sees the
// underlying net error; HTTP >= 400 becomes *Error.
func (c *Client) do(ctx context.Context, method, path string, headers map[string]string, body, out any) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode == http.StatusUnauthorized {
		c.handleUnauthorized()
	}
	if resp.StatusCode >= 400 {
		return &Error{StatusCode: resp.StatusCode, Body: string(respBody)}
	}

	if out != nil {
		if err := json.Unmarshal(respBody, out); err != nil {
			return fmt.Errorf("parse response: %w", err)
		}
	}
	return nil
}

func (c *Client) handleUnauthorized() {
	if c.onUnauthorized == nil {
		return
	}

	c.mu.Lock()
	if time.Since(c.lastUnauthorized) < unauthorizedDebounce {
		c.mu.Unlock()
		return
	}
	c.lastUnauthorized = time.Now()
	c.mu.Unlock()

	c.onUnauthorized()
}
