package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestRateLimiterBlocksAfterBurst(t *testing.T) {
	limiter := NewRateLimiter(map[string]RateLimit{
		"bridge": {RatePerSecond: 0.001, Burst: 1},
	})
	handler := limiter.Middleware("bridge")(okHandler())

	req := httptest.NewRequest(http.MethodPost, "/v1/bridge/offers", nil)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)
	if res.Code != http.StatusOK {
		t.Fatalf("expected first request to succeed, got %d", res.Code)
	}

	res = httptest.NewRecorder()
	handler.ServeHTTP(res, req)
	if res.Code != http.StatusTooManyRequests {
		t.Fatalf("expected second request to be rate limited, got %d", res.Code)
	}
}

func TestRateLimiterSeparatesRoutes(t *testing.T) {
	limiter := NewRateLimiter(map[string]RateLimit{
		"bridge": {RatePerSecond: 0.001, Burst: 1},
		"pool":   {RatePerSecond: 0.001, Burst: 1},
	})
	bridgeHandler := limiter.Middleware("bridge")(okHandler())
	poolHandler := limiter.Middleware("pool")(okHandler())

	req := httptest.NewRequest(http.MethodPost, "/v1/bridge/offers", nil)
	res := httptest.NewRecorder()
	bridgeHandler.ServeHTTP(res, req)
	if res.Code != http.StatusOK {
		t.Fatalf("expected bridge request to succeed, got %d", res.Code)
	}

	poolReq := httptest.NewRequest(http.MethodPost, "/v1/pool/deposits", nil)
	poolRes := httptest.NewRecorder()
	poolHandler.ServeHTTP(poolRes, poolReq)
	if poolRes.Code != http.StatusOK {
		t.Fatalf("expected pool request to succeed, got %d", poolRes.Code)
	}
}

func TestRateLimiterPassesUnknownKey(t *testing.T) {
	limiter := NewRateLimiter(map[string]RateLimit{})
	handler := limiter.Middleware("oracle")(okHandler())

	for i := 0; i < 5; i++ {
		res := httptest.NewRecorder()
		handler.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/v1/oracle/prices", nil))
		if res.Code != http.StatusOK {
			t.Fatalf("expected unlimited route to pass, got %d", res.Code)
		}
	}
}
