package service

import (
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsService encapsulates Prometheus instrumentation for the API and the
// admissions workflow.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	transitions     *prometheus.CounterVec
	verifications   *prometheus.CounterVec
	receipts        *prometheus.CounterVec
	lockWait        *prometheus.HistogramVec
}

// NewMetricsService registers the collectors on a private registry.
func NewMetricsService() *MetricsService {
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

	transitions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "admissions_transitions_total",
		Help: "Lifecycle transitions by axis, target and result",
	}, []string{"axis", "target", "result"})

	verifications := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ledger_verifications_total",
		Help: "Installment verification decisions by outcome",
	}, []string{"decision", "outcome"})

	receipts := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ledger_receipts_total",
		Help: "Receipts recorded by installment kind",
	}, []string{"kind"})

	lockWait := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "engagement_lock_wait_seconds",
		Help:    "Time spent acquiring the per-engagement write lock",
		Buckets: []float64{.001, .005, .01, .05, .1, .25, .5, 1, 2.5, 5},
	}, []string{"result"})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, transitions, verifications, receipts, lockWait, goroutines)

	return &MetricsService{
		registry:        registry,
		handler:         promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration: requestDuration,
		requestTotal:    requestTotal,
		transitions:     transitions,
		verifications:   verifications,
		receipts:        receipts,
		lockWait:        lockWait,
	}
}

// Handler exposes the Prometheus HTTP handler.
func (m *MetricsService) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// Registry returns the underlying registry.
func (m *MetricsService) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// ObserveHTTPRequest records request metrics.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := fmt.Sprintf("%d", status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
}

// ObserveTransition counts a lifecycle request. result is "ok" or the error code.
func (m *MetricsService) ObserveTransition(axis, target, result string) {
	if m == nil {
		return
	}
	m.transitions.WithLabelValues(axis, target, result).Inc()
}

// ObserveVerification counts a verification decision and its outcome.
func (m *MetricsService) ObserveVerification(decision, outcome string) {
	if m == nil {
		return
	}
	m.verifications.WithLabelValues(decision, outcome).Inc()
}

// ObserveReceipt counts an accepted receipt upload.
func (m *MetricsService) ObserveReceipt(kind string) {
	if m == nil {
		return
	}
	m.receipts.WithLabelValues(kind).Inc()
}

// ObserveLockWait records how long a writer waited for an engagement lock.
func (m *MetricsService) ObserveLockWait(acquired bool, duration time.Duration) {
	if m == nil {
		return
	}
	result := "acquired"
	if !acquired {
		result = "rejected"
	}
	m.lockWait.WithLabelValues(result).Observe(duration.Seconds())
}
