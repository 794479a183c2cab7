package main

import (
	"bufio"
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/Sternrassler/cbpro-client/internal/testutil"
	"github.com/Sternrassler/cbpro-client/pkg/cbpro"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) (http.Handler, *testutil.MockExchange) {
	t.Helper()

	mock := testutil.NewMockExchange()
	t.Cleanup(mock.Close)

	public, err := cbpro.NewPublicClient(mock.URL(), nil)
	require.NoError(t, err)

	return newServer(public, nil, 2), mock
}

// runCLI executes the root command against a mock exchange.
func runCLI(t *testing.T, mock *testutil.MockExchange, args ...string) (string, error) {
	t.Helper()

	var out, errOut bytes.Buffer
	cmd := newRootCommand(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(append([]string{"--base-url", mock.URL(), "--log-level", "error"}, args...))

	err := cmd.Execute()
	return out.String(), err
}

func TestHealthEndpoint(t *testing.T) {
	req := httptest.NewRequest("GET", "/health", nil)
	w := httptest.NewRecorder()

	healthHandler(w, req)

	resp := w.Result()
	body, _ := io.ReadAll(resp.Body)

	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected status 200, got %d", resp.StatusCode)
	}

	if string(body) != "OK" {
		t.Errorf("Expected body 'OK', got %s", string(body))
	}
}

func TestReadyEndpoint_NoCache(t *testing.T) {
	handler, _ := newTestServer(t)

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest("GET", "/ready", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "OK", w.Body.String())
}

func TestMetricsEndpoint(t *testing.T) {
	handler, mock := newTestServer(t)
	mock.SetTradePages("BTC-USD", testutil.TradesJSON(10, 2))

	// Run a stream so the pagination metrics carry samples.
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest("GET", "/trades/BTC-USD", nil))
	require.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest("GET", "/metrics", nil))

	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, "# HELP")
	assert.Contains(t, body, "cbpro_pagination_pages_total")
	assert.Contains(t, body, "cbpro_pagination_in_flight")
}

func TestTradesEndpoint(t *testing.T) {
	tests := []struct {
		name      string
		query     string
		wantLines int
		wantPages int
	}{
		{"default single page", "", 2, 1},
		{"two pages", "?pages=2", 4, 2},
		{"all pages", "?pages=0", 6, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler, mock := newTestServer(t)
			mock.SetTradePages("BTC-USD",
				testutil.TradesJSON(100, 2),
				testutil.TradesJSON(98, 2),
				testutil.TradesJSON(96, 2),
			)

			w := httptest.NewRecorder()
			handler.ServeHTTP(w, httptest.NewRequest("GET", "/trades/BTC-USD"+tt.query, nil))

			require.Equal(t, http.StatusOK, w.Code)
			assert.Equal(t, "application/x-ndjson", w.Header().Get("Content-Type"))

			var lines int
			scanner := bufio.NewScanner(strings.NewReader(w.Body.String()))
			for scanner.Scan() {
				var trade map[string]any
				require.NoError(t, json.Unmarshal(scanner.Bytes(), &trade))
				assert.Contains(t, trade, "trade_id")
				lines++
			}
			assert.Equal(t, tt.wantLines, lines)

			// Requests never outrun the pages consumed by more than one.
			queries := mock.Queries("/products/BTC-USD/trades")
			assert.LessOrEqual(t, len(queries), tt.wantPages+1)
			assert.Equal(t, "2", queries[0].Get("limit"))
		})
	}
}

func TestTradesEndpoint_SkipsUndecodablePage(t *testing.T) {
	handler, mock := newTestServer(t)
	mock.SetTradePages("BTC-USD", `not json`, testutil.TradesJSON(98, 2), testutil.TradesJSON(96, 2))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest("GET", "/trades/BTC-USD?pages=0", nil))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/x-ndjson", w.Header().Get("Content-Type"))
	assert.Len(t, strings.Split(strings.TrimSpace(w.Body.String()), "\n"), 4)
	assert.Len(t, mock.Queries("/products/BTC-USD/trades"), 3)
}

func TestTradesEndpoint_UnknownProduct(t *testing.T) {
	handler, _ := newTestServer(t)

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest("GET", "/trades/NOPE-USD", nil))

	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.JSONEq(t, `{"message":"NotFound"}`, w.Body.String())
}

func TestTradesEndpoint_BadQuery(t *testing.T) {
	handler, _ := newTestServer(t)

	for _, q := range []string{"?limit=-1", "?pages=x"} {
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, httptest.NewRequest("GET", "/trades/BTC-USD"+q, nil))
		assert.Equal(t, http.StatusBadRequest, w.Code, q)
	}
}

func TestCLI_OneShotCommands(t *testing.T) {
	mock := testutil.NewMockExchange()
	defer mock.Close()

	mock.SetResponse("/products", testutil.NewJSONResponse(`[{"id":"BTC-USD"}]`))
	mock.SetResponse("/products/BTC-USD/book", testutil.NewJSONResponse(`{"sequence":3,"bids":[],"asks":[]}`))
	mock.SetResponse("/time", testutil.NewJSONResponse(`{"epoch":1420674445.201}`))

	out, err := runCLI(t, mock, "products")
	require.NoError(t, err)
	assert.Contains(t, out, `"BTC-USD"`)

	out, err = runCLI(t, mock, "book", "BTC-USD", "--level", "2")
	require.NoError(t, err)
	assert.Contains(t, out, `"sequence": 3`)
	assert.Equal(t, "2", mock.Queries("/products/BTC-USD/book")[0].Get("level"))

	out, err = runCLI(t, mock, "time")
	require.NoError(t, err)
	assert.Contains(t, out, "1420674445.201")

	_, err = runCLI(t, mock, "ticker", "NOPE-USD")
	assert.Error(t, err)
}

func TestCLI_TradesSummary(t *testing.T) {
	mock := testutil.NewMockExchange()
	defer mock.Close()

	mock.SetTradePages("BTC-USD", testutil.TradesJSON(10, 3), testutil.TradesJSON(7, 3), testutil.TradesJSON(4, 3))

	out, err := runCLI(t, mock, "trades", "BTC-USD", "--limit", "3", "--pages", "2", "--summary")
	require.NoError(t, err)

	var summary map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &summary))
	assert.EqualValues(t, 2, summary["pages"])
	assert.EqualValues(t, 6, summary["trades"])
	assert.EqualValues(t, 10, summary["first_trade_id"])
	assert.EqualValues(t, 5, summary["last_trade_id"])
}

func TestCLI_TradesLines(t *testing.T) {
	mock := testutil.NewMockExchange()
	defer mock.Close()

	mock.SetTradePages("ETH-USD", testutil.TradesJSON(20, 2), testutil.TradesJSON(18, 2))

	out, err := runCLI(t, mock, "trades", "ETH-USD", "--limit", "2", "--pages", "0")
	require.NoError(t, err)
	assert.Len(t, strings.Split(strings.TrimSpace(out), "\n"), 4)
}

func TestCLI_TradesSkipUndecodablePage(t *testing.T) {
	mock := testutil.NewMockExchange()
	defer mock.Close()

	mock.SetTradePages("ETH-USD", testutil.TradesJSON(20, 2), `not json`, testutil.TradesJSON(16, 2))

	out, err := runCLI(t, mock, "trades", "ETH-USD", "--limit", "2", "--pages", "0")
	require.NoError(t, err)
	assert.Len(t, strings.Split(strings.TrimSpace(out), "\n"), 4)

	out, err = runCLI(t, mock, "trades", "ETH-USD", "--limit", "2", "--pages", "0", "--summary")
	require.NoError(t, err)

	var summary map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &summary))
	assert.EqualValues(t, 3, summary["pages"])
	assert.EqualValues(t, 4, summary["trades"])
	assert.EqualValues(t, 20, summary["first_trade_id"])
	assert.EqualValues(t, 15, summary["last_trade_id"])
}

func TestCLI_CachePurgeRequiresRedis(t *testing.T) {
	mock := testutil.NewMockExchange()
	defer mock.Close()

	_, err := runCLI(t, mock, "cache", "purge")
	assert.EqualError(t, err, "no redis_addr configured")
}
