// Package httpapi is the JSON-over-HTTP client shared by the embedding,
// LLM and reranker adapters.
package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// maxErrorBody bounds how much of an error response is kept in a StatusError.
const maxErrorBody = 512

// StatusError is returned for responses outside the 2xx range.
type StatusError struct {
	API     string
	Status  int
	Message string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s: status %d", e.API, e.Status)
	}
	return fmt.Sprintf("%s: status %d: %s", e.API, e.Status, e.Message)
}

// Client sends JSON requests to one API.
type Client struct {
	api         string
	baseURL     string
	http        *http.Client
	header      http.Header
	unavailable error
}

// Option configures a Client.
type Option func(*Client)

// WithHeader sets a header on every request.
func WithHeader(key, value string) Option {
	return func(c *Client) {
		c.header.Set(key, value)
	}
}

// WithBearer authenticates every request with an API key.
func WithBearer(token string) Option {
	return WithHeader("Authorization", "Bearer "+token)
}

// WithUnavailable wraps transport failures, such as a refused connection,
// in err so callers can tell an unreachable backend from a bad request.
func WithUnavailable(err error) Option {
	return func(c *Client) {
		c.unavailable = err
	}
}

// New creates a client for the API named api at baseURL. The name prefixes
// every error the client returns.
func New(api, baseURL string, timeout time.Duration, opts ...Option) *Client {
	c := &Client{
		api:     api,
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
		header:  make(http.Header),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the API root, without a trailing slash.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Post encodes in as the request body and decodes the response into out.
func (c *Client) Post(ctx context.Context, path string, in, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("%s: encode request: %w", c.api, err)
	}
	return c.do(ctx, http.MethodPost, path, bytes.NewReader(body), out)
}

// Get decodes the response into out. A nil out only checks the status.
func (c *Client) Get(ctx context.Context, path string, out any) error {
	return c.do(ctx, http.MethodGet, path, http.NoBody, out)
}

// Close releases idle connections.
func (c *Client) Close() {
	c.http.CloseIdleConnections()
}

func (c *Client) do(ctx context.Context, method, path string, body io.Reader, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("%s: create request: %w", c.api, err)
	}
	for k, v := range c.header {
		req.Header[k] = v
	}
	if method == http.MethodPost {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if c.unavailable != nil {
			return fmt.Errorf("%w: %s: %w", c.unavailable, c.api, err)
		}
		return fmt.Errorf("%s: %w", c.api, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		return &StatusError{API: c.api, Status: resp.StatusCode, Message: errorMessage(data)}
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%s: decode response: %w", c.api, err)
	}
	return nil
}

// errorMessage pulls the message out of the error bodies used by OpenAI,
// Anthropic and Ollama, falling back to the raw body.
func errorMessage(body []byte) string {
	var parsed struct {
		Error   json.RawMessage `json:"error"`
		Message string          `json:"message"`
	}
	if json.Unmarshal(body, &parsed) == nil {
		var text string
		if json.Unmarshal(parsed.Error, &text) == nil && text != "" {
			return text
		}
		var nested struct {
			Message string `json:"message"`
		}
		if json.Unmarshal(parsed.Error, &nested) == nil && nested.Message != "" {
			return nested.Message
		}
		if parsed.Message != "" {
			return parsed.Message
		}
	}
	msg := strings.TrimSpace(string(body))
	if len(msg) > maxErrorBody {
		msg = msg[:maxErrorBody] + "..."
	}
	return msg
}
