//go:build integration

package client

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Sternrassler/cbpro-client/pkg/cache"
	"github.com/redis/go-redis/v9"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// setupRedisContainer creates a Redis container for integration testing.
func setupRedisContainer(t *testing.T) (*redis.Client, func()) {
	t.Helper()

	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForLog("Ready to accept connections"),
	}

	redisContainer, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Fatalf("Failed to start Redis container: %v", err)
	}

	host, err := redisContainer.Host(ctx)
	if err != nil {
		t.Fatalf("Failed to get container host: %v", err)
	}

	port, err := redisContainer.MappedPort(ctx, "6379")
	if err != nil {
		t.Fatalf("Failed to get container port: %v", err)
	}

	client := redis.NewClient(&redis.Options{
		Addr: host + ":" + port.Port(),
	})

	cleanup := func() {
		client.Close()
		redisContainer.Terminate(ctx)
	}

	return client, cleanup
}

func newIntegrationClient(t *testing.T, redisClient *redis.Client, baseURL string) *Client {
	t.Helper()

	cfg := DefaultConfig(redisClient, "TestApp/1.0.0 (integration@test.com)")
	cfg.BaseURL = baseURL

	client, err := New(cfg)
	if err != nil {
		t.Fatalf("Failed to create client: %v", err)
	}

	return client
}

func TestIntegration_FullRequestFlow(t *testing.T) {
	redisClient, cleanup := setupRedisContainer(t)
	defer cleanup()

	var requestsMade, conditionalRequests atomic.Int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestsMade.Add(1)

		if r.Header.Get("If-None-Match") != "" {
			conditionalRequests.Add(1)
			w.Header().Set("Cache-Control", "max-age=600")
			w.WriteHeader(http.StatusNotModified)
			return
		}

		w.Header().Set("Cache-Control", "max-age=1")
		w.Header().Set("ETag", `"test-etag-123"`)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[{"id":"BTC","name":"Bitcoin"}]`))
	}))
	defer server.Close()

	client := newIntegrationClient(t, redisClient, server.URL)
	ctx := context.Background()

	// Request 1: served by the exchange and cached
	resp1, err := client.Get(ctx, "/currencies", nil)
	if err != nil {
		t.Fatalf("Request 1 failed: %v", err)
	}
	resp1.Body.Close()

	// Request 2: fresh cache hit
	resp2, err := client.Get(ctx, "/currencies", nil)
	if err != nil {
		t.Fatalf("Request 2 failed: %v", err)
	}
	resp2.Body.Close()

	if got := requestsMade.Load(); got != 1 {
		t.Errorf("After request 2: requestsMade = %d, want 1", got)
	}
	if got := resp2.Header.Get(cache.HeaderCache); got != "HIT" {
		t.Errorf("Request 2 %s = %q, want HIT", cache.HeaderCache, got)
	}

	time.Sleep(1200 * time.Millisecond)

	// Request 3: stale entry revalidated with If-None-Match
	resp3, err := client.Get(ctx, "/currencies", nil)
	if err != nil {
		t.Fatalf("Request 3 failed: %v", err)
	}
	defer resp3.Body.Close()

	if got := conditionalRequests.Load(); got != 1 {
		t.Errorf("conditionalRequests = %d, want 1", got)
	}

	body, err := io.ReadAll(resp3.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	if string(body) != `[{"id":"BTC","name":"Bitcoin"}]` {
		t.Errorf("revalidated body = %s", body)
	}
}

func TestIntegration_ErrorClassificationMetrics(t *testing.T) {
	redisClient, cleanup := setupRedisContainer(t)
	defer cleanup()

	testCases := []struct {
		name       string
		statusCode int
		errClass   ErrorClass
	}{
		{"client error", 404, ErrorClassClient},
		{"server error", 500, ErrorClassServer},
		{"rate limit error", 429, ErrorClassRateLimit},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.statusCode)
			}))
			defer server.Close()

			client := newIntegrationClient(t, redisClient, server.URL)

			resp, err := client.Get(context.Background(), "/products", nil)
			if err != nil {
				t.Fatalf("Request failed: %v", err)
			}

			if errClass := client.classifyError(resp, nil); errClass != tc.errClass {
				t.Errorf("Error class = %q, want %q", errClass, tc.errClass)
			}

			apiErr := NewAPIError(resp)
			if apiErr.ErrorClass != tc.errClass {
				t.Errorf("APIError class = %q, want %q", apiErr.ErrorClass, tc.errClass)
			}
		})
	}
}

func TestIntegration_CacheExpiration(t *testing.T) {
	redisClient, cleanup := setupRedisContainer(t)
	defer cleanup()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Short-lived and not revalidatable
		w.Header().Set("Cache-Control", "max-age=1")
		w.Write([]byte(`{"iso":"2015-01-07T23:47:25.201Z"}`))
	}))
	defer server.Close()

	client := newIntegrationClient(t, redisClient, server.URL)
	ctx := context.Background()

	resp1, err := client.Get(ctx, "/time", nil)
	if err != nil {
		t.Fatalf("First request failed: %v", err)
	}
	resp1.Body.Close()

	key := cache.KeyFromURL(resp1.Request.URL)
	entry, err := client.cache.Get(ctx, key)
	if err != nil {
		t.Fatalf("Cache lookup failed: %v", err)
	}
	if entry.IsExpired() {
		t.Error("Entry should not be expired yet")
	}

	time.Sleep(2 * time.Second)

	if _, err := client.cache.Get(ctx, key); !errors.Is(err, cache.ErrCacheMiss) {
		t.Errorf("Expected cache miss after expiration, got: %v", err)
	}
}
