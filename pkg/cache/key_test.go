package cache

import (
	"net/url"
	"testing"
)

func TestCacheKey_String(t *testing.T) {
	tests := []struct {
		name string
		key  CacheKey
		want string
	}{
		{
			name: "simple endpoint no params",
			key: CacheKey{
				Endpoint: "/products/",
			},
			want: "cbpro:products",
		},
		{
			name: "host is lower-cased",
			key: CacheKey{
				Host:     "API.Pro.Coinbase.com",
				Endpoint: "/currencies",
			},
			want: "cbpro:api.pro.coinbase.com:currencies",
		},
		{
			name: "endpoint with query params",
			key: CacheKey{
				Host:     "api.pro.coinbase.com",
				Endpoint: "/products/BTC-USD/book",
				QueryParams: url.Values{
					"level": []string{"2"},
				},
			},
			want: "cbpro:api.pro.coinbase.com:products/BTC-USD/book:level=2",
		},
		{
			name: "endpoint with multiple query params (sorted)",
			key: CacheKey{
				Endpoint: "/products/BTC-USD/candles",
				QueryParams: url.Values{
					"start":       []string{"2020-01-01T00:00:00Z"},
					"granularity": []string{"3600"},
					"end":         []string{"2020-01-02T00:00:00Z"},
				},
			},
			want: "cbpro:products/BTC-USD/candles:end=2020-01-02T00:00:00Z:granularity=3600:start=2020-01-01T00:00:00Z",
		},
		{
			name: "repeated query values",
			key: CacheKey{
				Endpoint:    "/products",
				QueryParams: url.Values{"id": []string{"b", "a"}},
			},
			want: "cbpro:products:id=b,a",
		},
		{
			name: "pagination cursor is part of the key",
			key: CacheKey{
				Endpoint: "/products/ETH-USD/trades",
				QueryParams: url.Values{
					"limit": []string{"100"},
					"after": []string{"12345"},
				},
			},
			want: "cbpro:products/ETH-USD/trades:after=12345:limit=100",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.key.String()
			if got != tt.want {
				t.Errorf("CacheKey.String() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestKeyFromURL(t *testing.T) {
	u, err := url.Parse("https://api-public.sandbox.pro.coinbase.com/products/BTC-USD/book?level=3")
	if err != nil {
		t.Fatalf("parse url: %v", err)
	}

	key := KeyFromURL(u)
	want := "cbpro:api-public.sandbox.pro.coinbase.com:products/BTC-USD/book:level=3"
	if got := key.String(); got != want {
		t.Errorf("KeyFromURL().String() = %v, want %v", got, want)
	}
}

// TestCacheKey_Determinism ensures same input always produces same key
func TestCacheKey_Determinism(t *testing.T) {
	key := CacheKey{
		Host:     "api.pro.coinbase.com",
		Endpoint: "/products/BTC-USD/candles",
		QueryParams: url.Values{
			"granularity": []string{"60"},
			"start":       []string{"a"},
			"end":         []string{"b"},
		},
	}

	first := key.String()
	for i := 0; i < 10; i++ {
		if result := key.String(); result != first {
			t.Errorf("result[%d] = %v, want %v (not deterministic)", i, result, first)
		}
	}
}
