package observability

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/personahub/chat-backend/internal/result"
)

const namespace = "chat_backend"

// Metrics holds the process collectors on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	httpInFlight     prometheus.Gauge
	httpRequests     *prometheus.CounterVec
	httpDuration     *prometheus.HistogramVec
	httpErrors       *prometheus.CounterVec
	dispatchRequests *prometheus.CounterVec
	dispatchDuration *prometheus.HistogramVec
}

// NewMetrics registers every collector.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		httpInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "inflight_requests",
			Help:      "Current number of in-flight HTTP requests.",
		}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		}, []string{"method", "path", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10),
		}, []string{"method", "path"}),
		httpErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "errors_total",
			Help:      "HTTP responses rendered from an error, by error code.",
		}, []string{"method", "path", "code"}),
		dispatchRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "dispatch",
			Name:      "requests_total",
			Help:      "Dispatched requests by request name and outcome class.",
		}, []string{"request", "status"}),
		dispatchDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "dispatch",
			Name:      "duration_seconds",
			Help:      "Time spent in the behavior chain and handler.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 12),
		}, []string{"request"}),
	}
	m.registry.MustRegister(
		m.httpInFlight,
		m.httpRequests,
		m.httpDuration,
		m.httpErrors,
		m.dispatchRequests,
		m.dispatchDuration,
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		collectors.NewGoCollector(),
	)
	return m
}

// Registry exposes the registry for tests and custom collectors.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// RecordRequest counts a finished HTTP request. path is the route pattern,
// not the raw URL, to keep label cardinality bounded.
func (m *Metrics) RecordRequest(path, method string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// RecordError increments error counters.
func (m *Metrics) RecordError(path, method, code string) {
	if m == nil {
		return
	}
	m.httpErrors.WithLabelValues(method, path, code).Inc()
}

func (m *Metrics) recordDispatch(name string, status result.Status, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.dispatchRequests.WithLabelValues(name, status.String()).Inc()
	m.dispatchDuration.WithLabelValues(name).Observe(elapsed.Seconds())
}

// DispatchObserver records every dispatch in metrics and the log.
type DispatchObserver struct {
	metrics *Metrics
	logger  *zap.Logger
}

// NewDispatchObserver builds the observer handed to the dispatch registry.
func NewDispatchObserver(metrics *Metrics, logger *zap.Logger) *DispatchObserver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DispatchObserver{metrics: metrics, logger: logger}
}

func (o *DispatchObserver) Observe(ctx context.Context, name string, status result.Status, elapsed time.Duration, err error) {
	o.metrics.recordDispatch(name, status, elapsed)
	fields := []zap.Field{
		zap.String("request", name),
		zap.String("status", status.String()),
		zap.Duration("elapsed", elapsed),
	}
	switch {
	case err != nil:
		o.logger.Error("dispatch fault", append(fields, zap.Error(err))...)
	case status == result.StatusInternal:
		o.logger.Error("dispatch failed", fields...)
	default:
		o.logger.Debug("dispatch", fields...)
	}
}
