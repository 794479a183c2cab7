// Package testutil provides testing utilities for the exchange client.
package testutil

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"
)

// CursorHeader is the pagination header served by the mock.
const CursorHeader = "CB-AFTER"

// MockResponse defines the behavior for a mock endpoint response.
type MockResponse struct {
	StatusCode int
	Body       string
	Headers    map[string]string
	Delay      time.Duration
}

// MockExchange is a configurable mock exchange REST server for testing.
type MockExchange struct {
	server   *httptest.Server
	mu       sync.RWMutex
	handlers map[string]func(w http.ResponseWriter, r *http.Request)
	queries  map[string][]url.Values

	// Tracking
	RequestCount      int
	ConditionalCount  int
	LastRequestHeader http.Header
}

// NewMockExchange creates a new mock exchange server.
func NewMockExchange() *MockExchange {
	mock := &MockExchange{
		handlers: make(map[string]func(w http.ResponseWriter, r *http.Request)),
		queries:  make(map[string][]url.Values),
	}

	mock.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mock.mu.Lock()
		mock.RequestCount++
		mock.LastRequestHeader = r.Header.Clone()
		mock.queries[r.URL.Path] = append(mock.queries[r.URL.Path], r.URL.Query())

		if r.Header.Get("If-None-Match") != "" || r.Header.Get("If-Modified-Since") != "" {
			mock.ConditionalCount++
		}
		handler, exists := mock.handlers[r.URL.Path]
		mock.mu.Unlock()

		if exists {
			handler(w, r)
			return
		}

		mock.defaultHandler(w, r)
	}))

	return mock
}

// URL returns the mock server URL.
func (m *MockExchange) URL() string {
	return m.server.URL
}

// Close shuts down the mock server.
func (m *MockExchange) Close() {
	m.server.Close()
}

// Reset clears all tracking counters.
func (m *MockExchange) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.RequestCount = 0
	m.ConditionalCount = 0
	m.LastRequestHeader = nil
	m.queries = make(map[string][]url.Values)
}

// SetHandler sets a custom handler for a specific path.
func (m *MockExchange) SetHandler(path string, handler func(w http.ResponseWriter, r *http.Request)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[path] = handler
}

// SetResponse configures a simple response for a path.
func (m *MockExchange) SetResponse(path string, resp MockResponse) {
	m.SetHandler(path, func(w http.ResponseWriter, r *http.Request) {
		writeResponse(w, r, resp)
	})
}

// SetTradePages serves pages as the paginated trade listing of productID.
// Page i is answered for after=i (the first page for no cursor) and carries
// CB-AFTER: i+1 unless it is the last page. A page body may be replaced by
// a full MockResponse via SetTradeFailure.
func (m *MockExchange) SetTradePages(productID string, pages ...string) {
	responses := make([]MockResponse, len(pages))
	for i, body := range pages {
		responses[i] = NewJSONResponse(body)
	}
	m.setTradeResponses(productID, responses)
}

// SetTradeFailure replaces page index of a listing configured with
// SetTradePages. An error status replacement ends the listing there.
func (m *MockExchange) SetTradeFailure(productID string, index int, resp MockResponse, pages ...string) {
	responses := make([]MockResponse, len(pages))
	for i, body := range pages {
		responses[i] = NewJSONResponse(body)
	}
	if index >= 0 && index < len(responses) {
		responses[index] = resp
	}
	m.setTradeResponses(productID, responses)
}

func (m *MockExchange) setTradeResponses(productID string, responses []MockResponse) {
	path := fmt.Sprintf("/products/%s/trades", productID)
	m.SetHandler(path, func(w http.ResponseWriter, r *http.Request) {
		if len(responses) == 0 {
			writeResponse(w, r, NewJSONResponse("[]"))
			return
		}

		index := 0
		if after := r.URL.Query().Get("after"); after != "" {
			n, err := strconv.Atoi(after)
			if err != nil || n <= 0 || n >= len(responses) {
				writeResponse(w, r, MockResponse{
					StatusCode: http.StatusBadRequest,
					Body:       `{"message":"invalid after"}`,
				})
				return
			}
			index = n
		}

		resp := responses[index]
		headers := make(map[string]string, len(resp.Headers)+1)
		for k, v := range resp.Headers {
			headers[k] = v
		}
		// Error responses never carry a cursor.
		if index < len(responses)-1 && resp.StatusCode < http.StatusBadRequest {
			headers[CursorHeader] = strconv.Itoa(index + 1)
		}
		resp.Headers = headers
		writeResponse(w, r, resp)
	})
}

// Queries returns the query strings received for path, in order.
func (m *MockExchange) Queries(path string) []url.Values {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]url.Values(nil), m.queries[path]...)
}

// GetRequestCount returns the number of requests made to the server.
func (m *MockExchange) GetRequestCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.RequestCount
}

// GetConditionalCount returns the number of conditional requests.
func (m *MockExchange) GetConditionalCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.ConditionalCount
}

// defaultHandler answers unknown paths the way the exchange does.
func (m *MockExchange) defaultHandler(w http.ResponseWriter, r *http.Request) {
	writeResponse(w, r, MockResponse{
		StatusCode: http.StatusNotFound,
		Body:       `{"message":"NotFound"}`,
	})
}

func writeResponse(w http.ResponseWriter, r *http.Request, resp MockResponse) {
	if resp.Delay > 0 {
		select {
		case <-time.After(resp.Delay):
		case <-r.Context().Done():
			return
		}
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	for key, value := range resp.Headers {
		w.Header().Set(key, value)
	}

	status := resp.StatusCode
	if status == 0 {
		status = http.StatusOK
	}
	w.WriteHeader(status)
	if resp.Body != "" {
		w.Write([]byte(resp.Body))
	}
}

// TradesJSON renders n trades with descending ids starting at firstID, the
// order the exchange lists them in.
func TradesJSON(firstID, n int) string {
	base := time.Date(2019, 11, 20, 12, 0, 0, 0, time.UTC)

	parts := make([]string, 0, n)
	for i := 0; i < n; i++ {
		id := firstID - i
		side := "buy"
		if id%2 == 0 {
			side = "sell"
		}
		parts = append(parts, fmt.Sprintf(
			`{"time":%q,"trade_id":%d,"price":"%d.50000000","size":"0.%02d000000","side":%q}`,
			base.Add(-time.Duration(i)*time.Second).Format(time.RFC3339Nano), id, 7000+id%100, 10+id%90, side))
	}

	return "[" + strings.Join(parts, ",") + "]"
}

// NewJSONResponse creates a standard 200 OK response.
func NewJSONResponse(data string) MockResponse {
	return MockResponse{
		StatusCode: http.StatusOK,
		Body:       data,
		Headers: map[string]string{
			"ETag":          `"test-etag-123"`,
			"Cache-Control": "max-age=60",
		},
	}
}

// NewNotModifiedResponse creates a 304 Not Modified response.
func NewNotModifiedResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusNotModified,
		Headers: map[string]string{
			"Cache-Control": "max-age=60",
		},
	}
}

// NewRateLimitResponse creates a 429 Too Many Requests response.
func NewRateLimitResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusTooManyRequests,
		Body:       `{"message":"Public rate limit exceeded"}`,
	}
}

// NewServerErrorResponse creates a 500 Internal Server Error response.
func NewServerErrorResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusInternalServerError,
		Body:       `{"message":"Internal server error"}`,
	}
}

// NewConditionalHandler creates a handler that responds with 304 for conditional requests.
func NewConditionalHandler(etag string, data string) func(w http.ResponseWriter, r *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("If-None-Match") == etag {
			writeResponse(w, r, NewNotModifiedResponse())
			return
		}

		resp := NewJSONResponse(data)
		resp.Headers["ETag"] = etag
		writeResponse(w, r, resp)
	}
}
