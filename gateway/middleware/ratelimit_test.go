package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func limitedHandler(t *testing.T, limits map[string]RateLimit, key string) http.Handler {
	t.Helper()
	limiter := NewRateLimiter(limits, nil)
	return limiter.Middleware(key)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
}

func TestRateLimiterRejectsBeyondBurst(t *testing.T) {
	handler := limitedHandler(t, map[string]RateLimit{
		"mutations": {RequestsPerMinute: 60, Burst: 2},
	}, "mutations")

	for i := 0; i < 2; i++ {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/v1/pool/deposit", nil)
		req.RemoteAddr = "10.0.0.1:4000"
		handler.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)
	}
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/v1/pool/deposit", nil)
	req.RemoteAddr = "10.0.0.1:4000"
	handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
}

func TestRateLimiterIsolatesClients(t *testing.T) {
	handler := limitedHandler(t, map[string]RateLimit{
		"mutations": {RequestsPerMinute: 60, Burst: 1},
	}, "mutations")

	first := httptest.NewRequest(http.MethodPost, "/v1/pool/deposit", nil)
	first.RemoteAddr = "10.0.0.1:4000"
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, first)
	require.Equal(t, http.StatusOK, rec.Code)

	blocked := httptest.NewRequest(http.MethodPost, "/v1/pool/deposit", nil)
	blocked.RemoteAddr = "10.0.0.1:4000"
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, blocked)
	require.Equal(t, http.StatusTooManyRequests, rec.Code)

	other := httptest.NewRequest(http.MethodPost, "/v1/pool/deposit", nil)
	other.RemoteAddr = "10.0.0.2:4000"
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, other)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestRateLimiterUnknownGroupPassesThrough(t *testing.T) {
	handler := limitedHandler(t, map[string]RateLimit{}, "queries")
	for i := 0; i < 10; i++ {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/v1/pool", nil)
		req.RemoteAddr = "10.0.0.1:4000"
		handler.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)
	}
}

func TestRateLimiterPrunesIdleVisitors(t *testing.T) {
	limiter := NewRateLimiter(map[string]RateLimit{
		"mutations": {RequestsPerMinute: 60, Burst: 1},
	}, nil)
	base := time.Now()
	limiter.clockNow = func() time.Time { return base }
	limiter.obtainLimiter("mutations|10.0.0.1", limiter.limits["mutations"])
	require.Len(t, limiter.visitors, 1)

	limiter.clockNow = func() time.Time { return base.Add(visitorTTL + time.Second) }
	limiter.obtainLimiter("mutations|10.0.0.2", limiter.limits["mutations"])
	require.Len(t, limiter.visitors, 1)
}
