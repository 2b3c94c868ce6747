package metrics

import (
	"log/slog"
	"strconv"
	"time"
)

const (
	RequestCountName   = "http_requests_total"
	RequestLatencyName = "http_request_duration_seconds"
)

var (
	RequestCount = Definition{
		Name:   RequestCountName,
		Kind:   KindCounter,
		Labels: []string{"method", "endpoint", "status"},
		Help:   "Total HTTP requests",
	}
	RequestLatency = Definition{
		Name:   RequestLatencyName,
		Kind:   KindHistogram,
		Labels: []string{"method", "endpoint"},
		Help:   "HTTP request latency",
	}
)

type HTTPMetric struct {
	Method     string
	Path       string
	StatusCode int
	Duration   time.Duration
}

// HTTPMetrics records request count and latency into a Registry.
type HTTPMetrics struct {
	registry *Registry
	logger   *slog.Logger
}

func NewHTTPMetrics(registry *Registry, logger *slog.Logger) (*HTTPMetrics, error) {
	if err := registry.Register(RequestCount); err != nil {
		return nil, err
	}
	if err := registry.Register(RequestLatency); err != nil {
		return nil, err
	}
	return &HTTPMetrics{registry: registry, logger: logger}, nil
}

// RecordHTTP never fails; recording errors are logged and dropped.
func (h *HTTPMetrics) RecordHTTP(m HTTPMetric) {
	if err := h.registry.ObserveHistogram(RequestLatencyName,
		[]string{m.Method, m.Path}, m.Duration.Seconds()); err != nil {
		h.logger.Warn("failed to record request latency",
			slog.String("method", m.Method),
			slog.String("path", m.Path),
			slog.String("error", err.Error()))
	}

	if err := h.registry.ObserveCounter(RequestCountName,
		[]string{m.Method, m.Path, strconv.Itoa(m.StatusCode)}, 1); err != nil {
		h.logger.Warn("failed to record request count",
			slog.String("method", m.Method),
			slog.String("path", m.Path),
			slog.String("error", err.Error()))
	}
}
