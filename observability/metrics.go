package observability

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

type moduleMetrics struct {
	requests *prometheus.CounterVec
	errors   *prometheus.CounterVec
	latency  *prometheus.HistogramVec
}

var (
	moduleMetricsOnce sync.Once
	moduleRegistry    *moduleMetrics

	lendingMetricsOnce sync.Once
	lendingRegistry    *LendingMetrics
)

// ModuleMetrics returns the lazily-initialised registry used to record
// gateway module activity.
func ModuleMetrics() *moduleMetrics {
	moduleMetricsOnce.Do(func() {
		moduleRegistry = &moduleMetrics{
			requests: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "lendbridge",
				Subsystem: "module",
				Name:      "requests_total",
				Help:      "Total gateway module requests segmented by module and method.",
			}, []string{"module", "method", "outcome"}),
			errors: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "lendbridge",
				Subsystem: "module",
				Name:      "errors_total",
				Help:      "Total gateway module errors segmented by module and method.",
			}, []string{"module", "method"}),
			latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
				Namespace: "lendbridge",
				Subsystem: "module",
				Name:      "request_duration_seconds",
				Help:      "Latency distribution for gateway module handlers.",
				Buckets:   prometheus.DefBuckets,
			}, []string{"module", "method"}),
		}
		prometheus.MustRegister(
			moduleRegistry.requests,
			moduleRegistry.errors,
			moduleRegistry.latency,
		)
	})
	return moduleRegistry
}

// Observe records the outcome of a module request.
func (m *moduleMetrics) Observe(module, method string, success bool, duration time.Duration) {
	if m == nil {
		return
	}
	if module == "" {
		module = "unknown"
	}
	if method == "" {
		method = "unknown"
	}
	outcome := "ok"
	if !success {
		outcome = "error"
		m.errors.WithLabelValues(module, method).Inc()
	}
	m.requests.WithLabelValues(module, method, outcome).Inc()
	m.latency.WithLabelValues(module, method).Observe(duration.Seconds())
}

// LendingMetrics tracks protocol-level activity across the oracle, pool and
// bridge engines.
type LendingMetrics struct {
	priceUpdates    *prometheus.CounterVec
	matchesSettled  prometheus.Counter
	matchedVolume   prometheus.Counter
	liquidations    prometheus.Counter
	activePositions *prometheus.GaugeVec
}

// Lending returns the lazily-initialised protocol metrics registry.
func Lending() *LendingMetrics {
	lendingMetricsOnce.Do(func() {
		lendingRegistry = &LendingMetrics{
			priceUpdates: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "lendbridge",
				Name:      "oracle_price_updates_total",
				Help:      "Count of accepted oracle price updates by asset.",
			}, []string{"asset"}),
			matchesSettled: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: "lendbridge",
				Name:      "bridge_matches_settled_total",
				Help:      "Count of offer/request matches settled by the bridge.",
			}),
			matchedVolume: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: "lendbridge",
				Name:      "bridge_matched_volume_total",
				Help:      "Total matched volume settled by the bridge in base units.",
			}),
			liquidations: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: "lendbridge",
				Name:      "bridge_liquidations_total",
				Help:      "Count of borrower requests liquidated by ratio breaches.",
			}),
			activePositions: prometheus.NewGaugeVec(prometheus.GaugeOpts{
				Namespace: "lendbridge",
				Name:      "pool_locked_positions",
				Help:      "Locked positions currently held by the pool, by side.",
			}, []string{"side"}),
		}
		prometheus.MustRegister(
			lendingRegistry.priceUpdates,
			lendingRegistry.matchesSettled,
			lendingRegistry.matchedVolume,
			lendingRegistry.liquidations,
			lendingRegistry.activePositions,
		)
	})
	return lendingRegistry
}

// RecordPriceUpdate increments the accepted-update counter for the asset.
func (m *LendingMetrics) RecordPriceUpdate(asset string) {
	if m == nil {
		return
	}
	m.priceUpdates.WithLabelValues(asset).Inc()
}

// RecordMatch records one settled match of the given volume.
func (m *LendingMetrics) RecordMatch(volume float64) {
	if m == nil {
		return
	}
	m.matchesSettled.Inc()
	if volume > 0 {
		m.matchedVolume.Add(volume)
	}
}

// RecordLiquidation increments the liquidation counter.
func (m *LendingMetrics) RecordLiquidation() {
	if m == nil {
		return
	}
	m.liquidations.Inc()
}

// PositionLocked bumps the locked-position gauge for the given side ("lender"
// or "borrower") up on lock and down on unlock.
func (m *LendingMetrics) PositionLocked(side string, locked bool) {
	if m == nil {
		return
	}
	gauge := m.activePositions.WithLabelValues(side)
	if locked {
		gauge.Inc()
	} else {
		gauge.Dec()
	}
}
