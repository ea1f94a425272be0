package service

import (
	"fmt"
	"net/http"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsSnapshot is a compact summary of counters for the status endpoint.
type MetricsSnapshot struct {
	RequestsTotal            uint64    `json:"requests_total"`
	AverageRequestDurationMs float64   `json:"average_request_duration_ms"`
	BatchesCompleted         uint64    `json:"batches_completed"`
	BatchesFailed            uint64    `json:"batches_failed"`
	EntriesWritten           uint64    `json:"entries_written"`
	Goroutines               int       `json:"goroutines"`
	GeneratedAt              time.Time `json:"generated_at"`
}

// MetricsService owns the Prometheus registry for HTTP traffic and batch writes.
type MetricsService struct {
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	batchTotal      *prometheus.CounterVec
	batchDuration   *prometheus.HistogramVec
	batchEntries    prometheus.Counter

	requestCount         uint64
	requestDurationTotal uint64
	batchCompleted       uint64
	batchFailed          uint64
	entriesWritten       uint64
}

// NewMetricsService registers the collectors.
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

	batchTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "roster_batches_total",
		Help: "Batch writes by kind and outcome",
	}, []string{"kind", "outcome"})

	batchDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "roster_batch_duration_seconds",
		Help:    "Duration of batch writes",
		Buckets: prometheus.DefBuckets,
	}, []string{"kind"})

	batchEntries := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "roster_batch_entries_written_total",
		Help: "Schedule entries committed by batch writes",
	})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, batchTotal, batchDuration, batchEntries, goroutines)

	return &MetricsService{
		handler:         promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration: requestDuration,
		requestTotal:    requestTotal,
		batchTotal:      batchTotal,
		batchDuration:   batchDuration,
		batchEntries:    batchEntries,
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

// ObserveHTTPRequest records request metrics.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := fmt.Sprintf("%d", status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
	atomic.AddUint64(&m.requestCount, 1)
	atomic.AddUint64(&m.requestDurationTotal, uint64(duration.Nanoseconds()))
}

// ObserveBatch records one batch outcome.
func (m *MetricsService) ObserveBatch(kind, outcome string, entries int, duration time.Duration) {
	if m == nil {
		return
	}
	m.batchTotal.WithLabelValues(kind, outcome).Inc()
	m.batchDuration.WithLabelValues(kind).Observe(duration.Seconds())
	if entries > 0 {
		m.batchEntries.Add(float64(entries))
		atomic.AddUint64(&m.entriesWritten, uint64(entries))
	}
	if outcome == "completed" {
		atomic.AddUint64(&m.batchCompleted, 1)
	} else {
		atomic.AddUint64(&m.batchFailed, 1)
	}
}

// Snapshot returns aggregated counters.
func (m *MetricsService) Snapshot() MetricsSnapshot {
	if m == nil {
		return MetricsSnapshot{}
	}
	requests := atomic.LoadUint64(&m.requestCount)
	reqDuration := atomic.LoadUint64(&m.requestDurationTotal)

	var avgRequestMs float64
	if requests > 0 {
		avgRequestMs = float64(reqDuration) / float64(requests) / float64(time.Millisecond)
	}

	return MetricsSnapshot{
		RequestsTotal:            requests,
		AverageRequestDurationMs: avgRequestMs,
		BatchesCompleted:         atomic.LoadUint64(&m.batchCompleted),
		BatchesFailed:            atomic.LoadUint64(&m.batchFailed),
		EntriesWritten:           atomic.LoadUint64(&m.entriesWritten),
		Goroutines:               runtime.NumGoroutine(),
		GeneratedAt:              time.Now().UTC(),
	}
}
