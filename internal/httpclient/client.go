// Package httpclient provides the HTTP client used to reach the upstream department API
package httpclient

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

const (
	// DefaultTimeout is the default timeout for upstream requests
	DefaultTimeout = 30 * time.Second

	// MaxResponseSize is the maximum accepted response size (32MB)
	MaxResponseSize = 32 * 1024 * 1024

	// UserAgent is sent with every request
	UserAgent = "department-sync/1.0"
)

// Client is an interface for HTTP operations
//
//go:generate mockgen -destination=mocks/mock_client.go -package=mocks github.com/stacklok/department-sync/internal/httpclient Client
type Client interface {
	// Get performs an HTTP GET request and returns the response body
	Get(ctx context.Context, url string) ([]byte, error)
}

// ClientOption configures a DefaultClient
type ClientOption func(*DefaultClient)

// WithHeader adds a static header to every request, e.g. an API token
func WithHeader(key, value string) ClientOption {
	return func(c *DefaultClient) {
		if value != "" {
			c.headers[key] = value
		}
	}
}

// WithTransport overrides the underlying round tripper
func WithTransport(rt http.RoundTripper) ClientOption {
	return func(c *DefaultClient) {
		c.client.Transport = rt
	}
}

// DefaultClient is the default HTTP client implementation
type DefaultClient struct {
	client  *http.Client
	headers map[string]string
}

// NewDefaultClient creates a client whose requests are bounded by timeout.
// A zero timeout falls back to DefaultTimeout.
func NewDefaultClient(timeout time.Duration, opts ...ClientOption) Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	c := &DefaultClient{
		client:  &http.Client{Timeout: timeout},
		headers: map[string]string{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get performs an HTTP GET request
func (c *DefaultClient) Get(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("User-Agent", UserAgent)
	req.Header.Set("Accept", "application/json")
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return nil, NewHTTPError(resp.StatusCode, url, resp.Status)
	}

	if resp.ContentLength > MaxResponseSize {
		return nil, fmt.Errorf("response size %d bytes exceeds maximum allowed size of %d bytes",
			resp.ContentLength, MaxResponseSize)
	}

	// +1 so an oversized body is detectable
	body, err := io.ReadAll(io.LimitReader(resp.Body, MaxResponseSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	if int64(len(body)) > MaxResponseSize {
		return nil, fmt.Errorf("response exceeds maximum allowed size of %d bytes", MaxResponseSize)
	}

	return body, nil
}
