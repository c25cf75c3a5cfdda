package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func limitedHandler(rl *RateLimiter) http.Handler {
	return rl.Middleware(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
}

func hit(h http.Handler, remote, forwarded string) int {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/comments", nil)
	req.RemoteAddr = remote
	if forwarded != "" {
		req.Header.Set("X-Forwarded-For", forwarded)
	}
	h.ServeHTTP(rec, req)
	return rec.Code
}

func TestRateLimiter_AllowsBurst(t *testing.T) {
	rl := NewRateLimiter(1, 3)
	h := limitedHandler(rl)
	for i := 0; i < 3; i++ {
		if code := hit(h, "1.2.3.4:1234", ""); code != http.StatusOK {
			t.Fatalf("request %d: expected 200, got %d", i, code)
		}
	}
	if code := hit(h, "1.2.3.4:5555", ""); code != http.StatusTooManyRequests {
		t.Fatalf("4th request from same host: expected 429, got %d", code)
	}
}

func TestRateLimiter_Refills(t *testing.T) {
	rl := NewRateLimiter(2, 1)
	now := time.Unix(1_700_000_000, 0)
	rl.now = func() time.Time { return now }
	h := limitedHandler(rl)

	if hit(h, "1.2.3.4:1", "") != http.StatusOK || hit(h, "1.2.3.4:1", "") != http.StatusTooManyRequests {
		t.Fatal("expected burst of one")
	}
	now = now.Add(600 * time.Millisecond)
	if code := hit(h, "1.2.3.4:1", ""); code != http.StatusOK {
		t.Fatalf("expected refill, got %d", code)
	}
}

func TestRateLimiter_ForwardedFirstHop(t *testing.T) {
	rl := NewRateLimiter(1, 1)
	h := limitedHandler(rl)
	if hit(h, "10.0.0.1:1", "9.9.9.9, 10.0.0.1") != http.StatusOK {
		t.Fatal("expected first request allowed")
	}
	if hit(h, "10.0.0.2:1", "9.9.9.9") != http.StatusTooManyRequests {
		t.Fatal("expected same client behind proxy to be limited")
	}
	if hit(h, "10.0.0.1:1", "8.8.8.8, 10.0.0.1") != http.StatusOK {
		t.Fatal("expected different client allowed")
	}
}

func TestRateLimiter_PrunesIdleBuckets(t *testing.T) {
	rl := NewRateLimiter(1, 1)
	now := time.Unix(1_700_000_000, 0)
	rl.now = func() time.Time { return now }
	h := limitedHandler(rl)

	hit(h, "1.1.1.1:1", "")
	hit(h, "2.2.2.2:1", "")
	now = now.Add(2 * idleBucketTTL)
	hit(h, "3.3.3.3:1", "")

	rl.mu.Lock()
	defer rl.mu.Unlock()
	if len(rl.buckets) != 1 {
		t.Fatalf("expected idle buckets pruned, have %d", len(rl.buckets))
	}
}
