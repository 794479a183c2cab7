// Package cache provides exchange response caching with a Redis backend
// and ETag support for conditional requests.
package cache

import (
	"net/http"
	"time"
)

// CacheEntry is one stored exchange response. For a paginated listing it is
// a single page, and Headers keep the page's continuation cursor so a cached
// page chains to the next one exactly like a live response.
type CacheEntry struct {
	Data       []byte      `json:"data"`
	StatusCode int         `json:"status_code"`
	Headers    http.Header `json:"headers"`

	// Validators sent back on revalidation. ETag wins when both are set.
	ETag         string    `json:"etag"`
	LastModified time.Time `json:"last_modified"`

	CachedAt time.Time `json:"cached_at"`
	Expires  time.Time `json:"expires"`
}

// IsExpired reports whether the entry is past its Expires time.
func (e *CacheEntry) IsExpired() bool {
	return !time.Now().Before(e.Expires)
}

// TTL is the remaining freshness, never negative.
func (e *CacheEntry) TTL() time.Duration {
	return max(time.Until(e.Expires), 0)
}

// Age returns how long ago the entry was stored.
func (e *CacheEntry) Age() time.Duration {
	return time.Since(e.CachedAt)
}

// Validator returns the conditional request header and value that
// revalidate the entry, or empty strings when it has no validator.
func (e *CacheEntry) Validator() (header, value string) {
	switch {
	case e.ETag != "":
		return "If-None-Match", e.ETag
	case !e.LastModified.IsZero():
		return "If-Modified-Since", e.LastModified.UTC().Format(http.TimeFormat)
	default:
		return "", ""
	}
}

// Revalidatable reports whether a stale copy can be refreshed with a
// conditional request.
func (e *CacheEntry) Revalidatable() bool {
	_, value := e.Validator()
	return value != ""
}

// StorageTTL is how long Redis keeps the entry: its freshness, plus
// StaleGrace for entries that can be revalidated. Zero means do not store.
func (e *CacheEntry) StorageTTL() time.Duration {
	ttl := e.TTL()
	if ttl <= 0 {
		return 0
	}
	if e.Revalidatable() {
		ttl += StaleGrace
	}
	return ttl
}

// Cursor returns the pagination cursor the cached page carried in header
// name, or "" for the last page of a listing.
func (e *CacheEntry) Cursor(name string) string {
	return e.Headers.Get(name)
}
