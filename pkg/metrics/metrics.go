// Package metrics wires Prometheus instrumentation for the scheduling
// core, grounded on the teacher's internal/service/metrics_service.go
// registry/handler pattern and internal/middleware/metrics.go request
// wrapper, adapted from API request/cache/db telemetry to scheduling-run
// telemetry (per-strategy duration, aggressive-mode relaxations).
package metrics

import (
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Service encapsulates the core's Prometheus collectors.
type Service struct {
	registry *prometheus.Registry
	handler  http.Handler

	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec

	runDuration   *prometheus.HistogramVec
	runIterations *prometheus.GaugeVec
	runCoverage   *prometheus.GaugeVec

	relaxations *prometheus.CounterVec
	backtracks  prometheus.Histogram
}

// New registers the core Prometheus collectors and builds the /metrics
// handler. Safe for concurrent use; every instance method is nil-safe so
// a nil *Service (no metrics wired) can be passed around without guards
// at every call site.
func New() *Service {
	registry := prometheus.NewRegistry()

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	requestTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	runDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "scheduler_strategy_duration_seconds",
		Help:    "Duration of a single orchestrator strategy attempt",
		Buckets: prometheus.DefBuckets,
	}, []string{"strategy"})

	runIterations := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "scheduler_strategy_iterations",
		Help: "Iteration or backtrack count of the last run of a strategy",
	}, []string{"strategy"})

	runCoverage := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "scheduler_strategy_coverage_ratio",
		Help: "Coverage ratio achieved by the last run of a strategy",
	}, []string{"strategy"})

	relaxations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "scheduler_aggressive_relaxations_total",
		Help: "Total availability-skipping relaxations performed by the aggressive filler",
	}, []string{"reason"})

	backtracks := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "scheduler_csp_backtracks",
		Help:    "Backtracks consumed by a single CSP solve call",
		Buckets: []float64{10, 50, 100, 500, 1000, 2000, 5000, 10000, 20000},
	})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(
		requestDuration, requestTotal,
		runDuration, runIterations, runCoverage,
		relaxations, backtracks,
		goroutines,
	)

	return &Service{
		registry:        registry,
		handler:         promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration: requestDuration,
		requestTotal:    requestTotal,
		runDuration:     runDuration,
		runIterations:   runIterations,
		runCoverage:     runCoverage,
		relaxations:     relaxations,
		backtracks:      backtracks,
	}
}

// Handler exposes the Prometheus scrape endpoint.
func (s *Service) Handler() http.Handler {
	if s == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return s.handler
}

// ObserveHTTPRequest records a single HTTP request/response cycle.
func (s *Service) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if s == nil {
		return
	}
	labelStatus := fmt.Sprintf("%d", status)
	s.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	s.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
}

// ObserveStrategyRun records one orchestrator strategy attempt.
func (s *Service) ObserveStrategyRun(strategy string, duration time.Duration, iterations int, coverageRatio float64) {
	if s == nil {
		return
	}
	s.runDuration.WithLabelValues(strategy).Observe(duration.Seconds())
	s.runIterations.WithLabelValues(strategy).Set(float64(iterations))
	s.runCoverage.WithLabelValues(strategy).Set(coverageRatio)
}

// ObserveBacktracks records the backtrack count consumed by a CSP solve.
func (s *Service) ObserveBacktracks(count int) {
	if s == nil {
		return
	}
	s.backtracks.Observe(float64(count))
}

// IncRelaxation implements aggressive.RelaxationCounter.
func (s *Service) IncRelaxation(reason string) {
	if s == nil {
		return
	}
	s.relaxations.WithLabelValues(reason).Inc()
}
