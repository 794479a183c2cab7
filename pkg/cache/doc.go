// Package cache provides exchange response caching with a Redis backend.
//
// The cache manager implements HTTP-compliant caching of public market data:
//
// - Freshness from Cache-Control max-age, then Expires, then a fallback TTL
// - no-store, no-cache and private responses are never stored
// - ETag support for conditional requests (If-None-Match)
// - Last-Modified support (If-Modified-Since)
// - Keys scoped by API host, so sandbox and production never mix
// - Prometheus metrics for observability
//
// # Basic Usage
//
//	redisClient := redis.NewClient(&redis.Options{
//		Addr: "localhost:6379",
//	})
//
//	manager := cache.NewManager(redisClient)
//
//	key := cache.KeyFromURL(req.URL)
//
//	entry, err := manager.Get(ctx, key)
//	if errors.Is(err, cache.ErrCacheMiss) {
//		// fetch from the exchange
//	}
//
// # HTTP Response Caching
//
//	entry, err := cache.ResponseToEntry(resp, cache.DefaultTTL)
//	if err != nil {
//		return err
//	}
//
//	if err := manager.Set(ctx, key, entry); err != nil {
//		return err
//	}
//
// Cached paginated responses keep their headers, so a page served from the
// cache still carries its CB-AFTER cursor.
//
// # Metrics
//
//   - cbpro_cache_hits_total{layer="redis"} - Cache hits
//   - cbpro_cache_misses_total - Cache misses
//   - cbpro_cache_size_bytes{layer="redis"} - Bytes written
//   - cbpro_conditional_requests_total - Conditional requests sent
//   - cbpro_304_responses_total - Conditional request successes
//   - cbpro_cache_errors_total{operation} - Cache operation errors
package cache
