package rest

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/c-pro/geche"
)

// Client talks to the platform's REST collaborators: message history,
// friend list, group membership.
type Client struct {
	baseURL      string
	token        string
	httpClient   *http.Client
	logger       *slog.Logger
	maxRetries   int
	retryBackoff time.Duration

	// Friend-list and membership responses change rarely; cache them by
	// request path for a short TTL to keep sidebar refreshes cheap.
	listCache geche.Geche[string, []byte]
	cacheTTL  time.Duration
}

// Option configures the client.
type Option func(*Client)

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithTimeout sets the per-request HTTP timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

// WithMaxRetries sets the retry cap for retryable failures.
func WithMaxRetries(n int) Option {
	return func(c *Client) {
		c.maxRetries = n
	}
}

// WithCacheTTL sets how long friend-list and membership responses are
// served from cache.
func WithCacheTTL(ttl time.Duration) Option {
	return func(c *Client) {
		c.cacheTTL = ttl
	}
}

// NewClient creates a REST client. ctx bounds the cache janitor; cancel it
// at logout.
func NewClient(ctx context.Context, baseURL, token string, opts ...Option) *Client {
	c := &Client{
		baseURL:      baseURL,
		token:        token,
		httpClient:   &http.Client{Timeout: 10 * time.Second},
		logger:       slog.Default(),
		maxRetries:   3,
		retryBackoff: 250 * time.Millisecond,
		cacheTTL:     30 * time.Second,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.listCache = geche.NewMapTTLCache[string, []byte](ctx, c.cacheTTL, c.cacheTTL)
	return c
}
