// Package client provides the HTTP transport for the exchange REST API with
// response caching, error classification and metrics.
package client

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/Sternrassler/cbpro-client/pkg/cache"
	"github.com/Sternrassler/cbpro-client/pkg/pagination"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Prometheus metrics for exchange requests.
var (
	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cbpro_requests_total",
		Help: "Total exchange requests by endpoint and status",
	}, []string{"endpoint", "status"})

	requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "cbpro_request_duration_seconds",
		Help:    "Exchange request duration in seconds by endpoint",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
	}, []string{"endpoint"})

	errorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cbpro_errors_total",
		Help: "Total exchange errors by class",
	}, []string{"class"})
)

// Client is the exchange HTTP transport. It implements pagination.Doer.
type Client struct {
	httpClient *http.Client
	cache      *cache.Manager
	baseURL    *url.URL
	config     Config
	logger     zerolog.Logger
}

// Config holds the client configuration.
type Config struct {
	// Redis client for response caching (optional, nil disables caching)
	Redis *redis.Client

	// User-Agent header (required)
	// Format: "AppName/Version (contact@example.com)"
	UserAgent string

	// BaseURL is the REST API root, e.g. https://api.pro.coinbase.com
	BaseURL string

	// CacheTTL is the fallback TTL for responses without freshness headers
	CacheTTL time.Duration

	// Timeout bounds every HTTP request (0 means no timeout)
	Timeout time.Duration
}

// DefaultConfig returns a safe default configuration against the sandbox.
func DefaultConfig(redis *redis.Client, userAgent string) Config {
	return Config{
		Redis:     redis,
		UserAgent: userAgent,
		BaseURL:   "https://api-public.sandbox.pro.coinbase.com",
		CacheTTL:  cache.DefaultTTL,
		Timeout:   30 * time.Second,
	}
}

// New creates a new exchange client.
func New(cfg Config) (*Client, error) {
	if cfg.UserAgent == "" {
		return nil, fmt.Errorf("user-agent is required")
	}

	if cfg.CacheTTL < 0 {
		return nil, fmt.Errorf("cache_ttl must be >= 0 (got %s)", cfg.CacheTTL)
	}

	if cfg.Timeout < 0 {
		return nil, fmt.Errorf("timeout must be >= 0 (got %s)", cfg.Timeout)
	}

	baseURL, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil || baseURL.Scheme == "" || baseURL.Host == "" {
		return nil, fmt.Errorf("base_url must be an absolute URL (got %q)", cfg.BaseURL)
	}

	logger := log.With().Str("component", "cbpro-client").Logger()

	var cacheManager *cache.Manager
	if cfg.Redis != nil {
		cacheManager = cache.NewManager(cfg.Redis)
	} else {
		logger.Debug().Msg("No Redis client configured, response caching disabled")
	}

	return &Client{
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		cache:   cacheManager,
		baseURL: baseURL,
		config:  cfg,
		logger:  logger,
	}, nil
}

// Do performs an HTTP request with caching and error classification.
// Responses with error status codes are returned as-is; only transport
// failures produce an error. Requests are never retried.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	ctx := req.Context()
	endpoint := req.URL.Path

	startTime := time.Now()
	defer func() {
		requestDuration.WithLabelValues(endpoint).Observe(time.Since(startTime).Seconds())
	}()

	// Step 1: Check Cache (GET only)
	cacheable := c.cache != nil && req.Method == http.MethodGet
	cacheKey := cache.KeyFromURL(req.URL)

	var cachedEntry *cache.CacheEntry
	if cacheable {
		entry, err := c.cache.Get(ctx, cacheKey)
		switch {
		case err == nil:
			c.logger.Debug().
				Str("endpoint", endpoint).
				Dur("age", entry.Age()).
				Str("cursor", entry.Cursor(pagination.DefaultCursorHeader)).
				Msg("Serving response from cache")
			requestsTotal.WithLabelValues(endpoint, "cache_hit").Inc()
			return cache.EntryToResponse(entry), nil
		case errors.Is(err, cache.ErrCacheStale):
			cachedEntry = entry
		case !errors.Is(err, cache.ErrCacheMiss):
			c.logger.Warn().Err(err).Str("endpoint", endpoint).Msg("Cache get error")
		}
	}

	// Step 2: Conditional request if a stale copy supports it
	if cachedEntry != nil && cache.ShouldMakeConditionalRequest(cachedEntry) {
		cache.AddConditionalHeaders(req, cachedEntry)
		cache.ConditionalRequestsSent.Inc()
		c.logger.Debug().
			Str("endpoint", endpoint).
			Str("etag", cachedEntry.ETag).
			Msg("Making conditional request")
	}

	// Step 3: Headers
	req.Header.Set("User-Agent", c.config.UserAgent)
	if req.Header.Get("Accept") == "" {
		req.Header.Set("Accept", "application/json")
	}

	c.logger.Debug().
		Str("endpoint", endpoint).
		Str("method", req.Method).
		Str("query", req.URL.RawQuery).
		Msg("Executing exchange request")

	// Step 4: Execute
	resp, err := c.httpClient.Do(req)
	if err != nil {
		errClass := c.classifyError(nil, err)
		errorsTotal.WithLabelValues(string(errClass)).Inc()
		requestsTotal.WithLabelValues(endpoint, "network_error").Inc()
		c.logger.Error().Err(err).Str("endpoint", endpoint).Msg("HTTP request failed")
		return nil, err
	}

	status := strconv.Itoa(resp.StatusCode)
	requestsTotal.WithLabelValues(endpoint, status).Inc()

	// Step 5: Classify error statuses for observability
	if resp.StatusCode >= 400 {
		errClass := c.classifyError(resp, nil)
		errorsTotal.WithLabelValues(string(errClass)).Inc()
		c.logger.Warn().
			Str("endpoint", endpoint).
			Int("status_code", resp.StatusCode).
			Str("error_class", string(errClass)).
			Msg("Exchange request error")
		return resp, nil
	}

	// Step 6: 304 Not Modified means our stale copy is still valid
	if resp.StatusCode == http.StatusNotModified && cachedEntry != nil {
		resp.Body.Close()
		cache.NotModifiedResponses.Inc()
		c.logger.Debug().Str("endpoint", endpoint).Msg("304 Not Modified - using cache")

		expires := cache.ExpiresFromHeaders(resp.Header, c.config.CacheTTL, time.Now())
		if err := c.cache.UpdateTTL(ctx, cacheKey, expires); err != nil {
			c.logger.Warn().Err(err).Msg("Failed to update cache TTL")
		}

		return cache.EntryToResponse(cachedEntry), nil
	}

	// Step 7: Store successful responses
	if cacheable && resp.StatusCode == http.StatusOK {
		c.store(ctx, cacheKey, resp)
	}

	return resp, nil
}

// store writes a successful response to the cache, keeping its body readable.
func (c *Client) store(ctx context.Context, key cache.CacheKey, resp *http.Response) {
	entry, err := cache.ResponseToEntry(resp, c.config.CacheTTL)
	if err != nil {
		c.logger.Warn().Err(err).Msg("Failed to create cache entry")
		return
	}

	if entry.TTL() <= 0 {
		return
	}

	if err := c.cache.Set(ctx, key, entry); err != nil {
		c.logger.Warn().Err(err).Msg("Failed to cache response")
		return
	}

	c.logger.Debug().
		Str("key", key.String()).
		Dur("ttl", entry.TTL()).
		Msg("Cached response")
}

// classifyError categorizes an error for observability and handling.
func (c *Client) classifyError(resp *http.Response, err error) ErrorClass {
	if err != nil {
		return ErrorClassNetwork
	}

	return ClassifyStatus(resp.StatusCode)
}

// Get performs a GET request to an API endpoint relative to the base URL.
func (c *Client) Get(ctx context.Context, endpoint string, query url.Values) (*http.Response, error) {
	target := c.URL(endpoint)
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	return c.Do(req)
}

// URL joins endpoint onto the base URL.
func (c *Client) URL(endpoint string) string {
	return c.baseURL.String() + "/" + strings.TrimLeft(endpoint, "/")
}

// BaseURL returns the configured API root.
func (c *Client) BaseURL() string {
	return c.baseURL.String()
}

// Close releases idle connections.
func (c *Client) Close() error {
	c.httpClient.CloseIdleConnections()
	return nil
}

// SetHTTPClient sets a custom HTTP client (for testing).
func (c *Client) SetHTTPClient(client *http.Client) {
	c.httpClient = client
}

// GetCache returns the cache manager (nil when caching is disabled).
func (c *Client) GetCache() *cache.Manager {
	return c.cache
}
