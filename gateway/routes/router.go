package routes

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"lendbridge/core/events"
	"lendbridge/gateway/middleware"
	"lendbridge/native/bridge"
	"lendbridge/native/oracle"
	"lendbridge/native/pool"
	"lendbridge/native/token"
	"lendbridge/observability"
)

// Config bundles the engines and middleware exposed through the gateway.
type Config struct {
	Oracle *oracle.Engine
	Pool   *pool.Engine
	Bridge *bridge.Engine
	Ledger *token.Ledger
	Events *events.Log

	RateLimiter   *middleware.RateLimiter
	Observability *middleware.Observability
	CORS          middleware.CORSConfig
}

// New builds the gateway router over the configured engines.
func New(cfg Config) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.CORS(cfg.CORS))

	obs := cfg.Observability
	if obs != nil {
		r.Use(obs.Middleware("root"))
	}

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.Handler())
	if obs != nil {
		r.Handle("/metrics/gateway", obs.MetricsHandler())
	}
	if cfg.Events != nil {
		r.Get("/v1/events", func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, cfg.Events.Events())
		})
	}

	mount := func(name, prefix string, routes func(chi.Router)) {
		r.Route(prefix, func(sr chi.Router) {
			if cfg.RateLimiter != nil {
				sr.Use(cfg.RateLimiter.Middleware(name))
			}
			sr.Use(instrument(name))
			routes(sr)
		})
	}

	if cfg.Oracle != nil {
		or := &oracleRoutes{engine: cfg.Oracle}
		mount("oracle", "/v1/oracle", or.mount)
	}
	if cfg.Pool != nil {
		pr := &poolRoutes{engine: cfg.Pool}
		mount("pool", "/v1/pool", pr.mount)
	}
	if cfg.Bridge != nil {
		br := &bridgeRoutes{engine: cfg.Bridge}
		mount("bridge", "/v1/bridge", br.mount)
	}
	if cfg.Ledger != nil {
		tr := &tokenRoutes{ledger: cfg.Ledger}
		mount("token", "/v1/token", tr.mount)
	}

	return r
}

// instrument records per-module request metrics keyed by route pattern.
func instrument(module string) func(http.Handler) http.Handler {
	metrics := observability.ModuleMetrics()
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			recorder := &statusWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(recorder, r)
			method := r.Method + " " + r.URL.Path
			if rctx := chi.RouteContext(r.Context()); rctx != nil {
				if pattern := rctx.RoutePattern(); pattern != "" {
					method = r.Method + " " + pattern
				}
			}
			metrics.Observe(module, method, recorder.status < http.StatusBadRequest, time.Since(start))
		})
	}
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (s *statusWriter) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}
