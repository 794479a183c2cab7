package pagination

import (
	"fmt"
	"net/http"
	"net/url"

	"github.com/google/go-querystring/query"
)

// DefaultCursorHeader carries the continuation cursor on paginated responses.
const DefaultCursorHeader = "CB-AFTER"

// pageQuery is the query sent with every page request.
type pageQuery struct {
	Limit int    `url:"limit,omitempty"`
	After string `url:"after,omitempty"`
}

// CursorFromHeader extracts the continuation cursor from response headers.
// A missing or empty header means the response was the last page.
func CursorFromHeader(h http.Header, name string) (string, bool) {
	if name == "" {
		name = DefaultCursorHeader
	}
	cursor := h.Get(name)
	if cursor == "" {
		return "", false
	}
	return cursor, true
}

// pageURL builds the request URL for one page. Query parameters already
// present on base are kept; limit and after are overwritten.
func pageURL(base *url.URL, limit int, cursor string) (string, error) {
	params, err := query.Values(pageQuery{Limit: limit, After: cursor})
	if err != nil {
		return "", fmt.Errorf("encode page query: %w", err)
	}

	u := *base
	q := u.Query()
	for key, values := range params {
		q[key] = values
	}
	u.RawQuery = q.Encode()

	return u.String(), nil
}
