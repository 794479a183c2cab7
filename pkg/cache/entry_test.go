package cache

import (
	"net/http"
	"testing"
	"time"
)

func TestCacheEntry_IsExpired(t *testing.T) {
	tests := []struct {
		name    string
		expires time.Time
		want    bool
	}{
		{
			name:    "expired entry",
			expires: time.Now().Add(-1 * time.Hour),
			want:    true,
		},
		{
			name:    "valid entry",
			expires: time.Now().Add(1 * time.Hour),
			want:    false,
		},
		{
			name:    "just expired",
			expires: time.Now().Add(-1 * time.Second),
			want:    true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entry := &CacheEntry{
				Expires: tt.expires,
			}
			if got := entry.IsExpired(); got != tt.want {
				t.Errorf("IsExpired() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCacheEntry_TTL(t *testing.T) {
	tests := []struct {
		name    string
		expires time.Time
		wantMin time.Duration
		wantMax time.Duration
	}{
		{
			name:    "one hour remaining",
			expires: time.Now().Add(1 * time.Hour),
			wantMin: 59 * time.Minute,
			wantMax: 61 * time.Minute,
		},
		{
			name:    "already expired",
			expires: time.Now().Add(-1 * time.Hour),
			wantMin: 0,
			wantMax: 0,
		},
		{
			name:    "5 minutes remaining",
			expires: time.Now().Add(5 * time.Minute),
			wantMin: 4*time.Minute + 59*time.Second,
			wantMax: 5*time.Minute + 1*time.Second,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entry := &CacheEntry{
				Expires: tt.expires,
			}
			got := entry.TTL()
			if got < tt.wantMin || got > tt.wantMax {
				t.Errorf("TTL() = %v, want between %v and %v", got, tt.wantMin, tt.wantMax)
			}
		})
	}
}

func TestCacheEntry_Age(t *testing.T) {
	entry := &CacheEntry{CachedAt: time.Now().Add(-90 * time.Second)}

	age := entry.Age()
	if age < 89*time.Second || age > 91*time.Second {
		t.Errorf("Age() = %v, want about 90s", age)
	}
}

func TestCacheEntry_Validator(t *testing.T) {
	lastMod := time.Date(2019, 11, 20, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name       string
		entry      CacheEntry
		wantHeader string
		wantValue  string
	}{
		{"none", CacheEntry{}, "", ""},
		{"etag", CacheEntry{ETag: `"p1"`}, "If-None-Match", `"p1"`},
		{"last modified", CacheEntry{LastModified: lastMod}, "If-Modified-Since", "Wed, 20 Nov 2019 12:00:00 GMT"},
		{"etag wins", CacheEntry{ETag: `"p1"`, LastModified: lastMod}, "If-None-Match", `"p1"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			header, value := tt.entry.Validator()
			if header != tt.wantHeader || value != tt.wantValue {
				t.Errorf("Validator() = %q, %q, want %q, %q", header, value, tt.wantHeader, tt.wantValue)
			}
			if got, want := tt.entry.Revalidatable(), tt.wantValue != ""; got != want {
				t.Errorf("Revalidatable() = %v, want %v", got, want)
			}
		})
	}
}

func TestCacheEntry_StorageTTL(t *testing.T) {
	fresh := time.Now().Add(time.Minute)

	plain := &CacheEntry{Expires: fresh}
	if got := plain.StorageTTL(); got > time.Minute || got < 59*time.Second {
		t.Errorf("StorageTTL() without validator = %v, want about 1m", got)
	}

	tagged := &CacheEntry{Expires: fresh, ETag: `"p1"`}
	if got := tagged.StorageTTL(); got < StaleGrace+59*time.Second {
		t.Errorf("StorageTTL() with validator = %v, want at least 1m + StaleGrace", got)
	}

	expired := &CacheEntry{Expires: time.Now().Add(-time.Second), ETag: `"p1"`}
	if got := expired.StorageTTL(); got != 0 {
		t.Errorf("StorageTTL() of expired entry = %v, want 0", got)
	}
}

func TestCacheEntry_Cursor(t *testing.T) {
	page := &CacheEntry{Headers: http.Header{"Cb-After": []string{"1042"}}}
	if got := page.Cursor("CB-AFTER"); got != "1042" {
		t.Errorf("Cursor() = %q, want 1042", got)
	}

	last := &CacheEntry{}
	if got := last.Cursor("CB-AFTER"); got != "" {
		t.Errorf("Cursor() on last page = %q, want empty", got)
	}
}
