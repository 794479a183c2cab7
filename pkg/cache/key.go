package cache

import (
	"fmt"
	"net/url"
	"sort"
	"strings"
)

// KeyPrefix namespaces every key written by the cache.
const KeyPrefix = "cbpro"

// CacheKey identifies a cached exchange response.
type CacheKey struct {
	// Host is the API host (e.g., "api.pro.coinbase.com"). Sandbox and
	// production responses never share an entry.
	Host string

	// Endpoint is the request path (e.g., "/products/BTC-USD/book")
	Endpoint string

	// QueryParams are the query parameters (e.g., {"level": "2"})
	QueryParams url.Values
}

// KeyFromURL builds the cache key of a request URL.
func KeyFromURL(u *url.URL) CacheKey {
	return CacheKey{
		Host:        u.Host,
		Endpoint:    u.Path,
		QueryParams: u.Query(),
	}
}

// String generates a deterministic cache key string.
// Format: cbpro:host:endpoint:query1=val1:query2=val2
//
// Example:
//
//	cbpro:api.pro.coinbase.com:products/BTC-USD/book:level=2
func (k CacheKey) String() string {
	parts := []string{KeyPrefix}

	if k.Host != "" {
		parts = append(parts, strings.ToLower(k.Host))
	}

	// Normalize path
	endpoint := strings.Trim(k.Endpoint, "/")
	if endpoint != "" {
		parts = append(parts, endpoint)
	}

	// Query params sorted for determinism; repeated values keep their order
	if len(k.QueryParams) > 0 {
		queryKeys := make([]string, 0, len(k.QueryParams))
		for key := range k.QueryParams {
			queryKeys = append(queryKeys, key)
		}
		sort.Strings(queryKeys)

		for _, key := range queryKeys {
			parts = append(parts, fmt.Sprintf("%s=%s", key, strings.Join(k.QueryParams[key], ",")))
		}
	}

	return strings.Join(parts, ":")
}
