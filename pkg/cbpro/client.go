package cbpro

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/Sternrassler/cbpro-client/pkg/client"
	"github.com/Sternrassler/cbpro-client/pkg/pagination"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	// SandboxURL is the public sandbox API root.
	SandboxURL = "https://api-public.sandbox.pro.coinbase.com"

	// ProductionURL is the production API root.
	ProductionURL = "https://api.pro.coinbase.com"
)

// PublicClient calls the unauthenticated market data endpoints.
type PublicClient struct {
	baseURL *url.URL
	doer    pagination.Doer
	page    pagination.Config
	logger  zerolog.Logger
}

// Option configures a PublicClient.
type Option func(*PublicClient)

// WithLogger sets the logger used by the client and its streams.
func WithLogger(logger zerolog.Logger) Option {
	return func(c *PublicClient) {
		c.logger = logger
	}
}

// WithCursorHeader overrides the pagination header (default CB-AFTER).
func WithCursorHeader(name string) Option {
	return func(c *PublicClient) {
		c.page.CursorHeader = name
	}
}

// NewPublicClient creates a client for baseURL. A nil doer uses a plain
// http.Client.
func NewPublicClient(baseURL string, doer pagination.Doer, opts ...Option) (*PublicClient, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("base url must be an absolute URL (got %q)", baseURL)
	}

	if doer == nil {
		doer = &http.Client{}
	}

	c := &PublicClient{
		baseURL: u,
		doer:    doer,
		page:    pagination.DefaultConfig(),
		logger:  log.With().Str("component", "cbpro").Logger(),
	}
	for _, opt := range opts {
		opt(c)
	}

	return c, nil
}

// Products lists the available currency pairs.
func (c *PublicClient) Products(ctx context.Context) (any, error) {
	return c.getJSON(ctx, "/products", nil)
}

// ProductOrderBook returns the order book of a product at level 1, 2 or 3.
func (c *PublicClient) ProductOrderBook(ctx context.Context, productID string, level int) (any, error) {
	if err := validateProduct(productID); err != nil {
		return nil, err
	}
	if level < 1 || level > 3 {
		return nil, fmt.Errorf("order book level must be 1, 2 or 3 (got %d)", level)
	}
	return c.getJSON(ctx, productPath(productID, "book"), bookParams{Level: level})
}

// ProductTicker returns the last trade, best bid/ask and 24h volume.
func (c *PublicClient) ProductTicker(ctx context.Context, productID string) (any, error) {
	if err := validateProduct(productID); err != nil {
		return nil, err
	}
	return c.getJSON(ctx, productPath(productID, "ticker"), nil)
}

// HistoricRates returns candles as [time, low, high, open, close, volume].
func (c *PublicClient) HistoricRates(ctx context.Context, productID string, params CandleParams) (any, error) {
	if err := validateProduct(productID); err != nil {
		return nil, err
	}
	if err := params.Validate(); err != nil {
		return nil, err
	}
	return c.getJSON(ctx, productPath(productID, "candles"), params)
}

// Stats24h returns the 24 hour statistics of a product.
func (c *PublicClient) Stats24h(ctx context.Context, productID string) (any, error) {
	if err := validateProduct(productID); err != nil {
		return nil, err
	}
	return c.getJSON(ctx, productPath(productID, "stats"), nil)
}

// Currencies lists known currencies.
func (c *PublicClient) Currencies(ctx context.Context) (any, error) {
	return c.getJSON(ctx, "/currencies", nil)
}

// Time returns the exchange server time.
func (c *PublicClient) Time(ctx context.Context) (any, error) {
	return c.getJSON(ctx, "/time", nil)
}

// Trades streams the trade history of a product, newest first, decoding
// each page as generic JSON. limit sets the page size (0 leaves it to the
// exchange). ctx bounds the whole stream.
func (c *PublicClient) Trades(ctx context.Context, productID string, limit int) (*pagination.Decoded[any], error) {
	s, err := c.tradeStream(ctx, productID, limit)
	if err != nil {
		return nil, err
	}
	return pagination.NewJSONStream(s), nil
}

// TypedTrades is Trades with each page decoded into []Trade.
func (c *PublicClient) TypedTrades(ctx context.Context, productID string, limit int) (*pagination.Decoded[[]Trade], error) {
	s, err := c.tradeStream(ctx, productID, limit)
	if err != nil {
		return nil, err
	}
	return pagination.NewDecoded(s, pagination.UnmarshalInto[[]Trade]()), nil
}

func (c *PublicClient) tradeStream(ctx context.Context, productID string, limit int) (*pagination.Stream, error) {
	if err := validateProduct(productID); err != nil {
		return nil, err
	}

	cfg := c.page
	cfg.Limit = limit
	cfg.Logger = &c.logger

	return pagination.NewStream(ctx, c.doer, c.url(productPath(productID, "trades")), cfg)
}

// getJSON performs a GET and decodes the body. Error statuses become
// *client.APIError.
func (c *PublicClient) getJSON(ctx context.Context, endpoint string, params any) (any, error) {
	target := c.url(endpoint)

	q, err := encode(params)
	if err != nil {
		return nil, err
	}
	if len(q) > 0 {
		target += "?" + q.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.doer.Do(req)
	if err != nil {
		return nil, fmt.Errorf("GET %s: %w", endpoint, err)
	}

	if resp.StatusCode >= 400 {
		apiErr := client.NewAPIError(resp)
		c.logger.Debug().
			Str("endpoint", endpoint).
			Int("status_code", apiErr.StatusCode).
			Msg("Exchange returned error status")
		return nil, apiErr
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", endpoint, err)
	}

	v, err := pagination.DecodeJSON(body)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", endpoint, err)
	}

	return v, nil
}

func (c *PublicClient) url(endpoint string) string {
	return c.baseURL.String() + endpoint
}

func productPath(productID, resource string) string {
	return "/products/" + url.PathEscape(productID) + "/" + resource
}

func validateProduct(productID string) error {
	if strings.TrimSpace(productID) == "" {
		return fmt.Errorf("product id is required")
	}
	return nil
}
