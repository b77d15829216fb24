package services

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/danielrosehill/OpenWebUI-Bulk-Model-Updater/internal/models"
)

// Metrics holds the Prometheus metrics of one run. A nil *Metrics is valid
// and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	Records        *prometheus.CounterVec
	Requests       *prometheus.CounterVec
	RequestLatency *prometheus.HistogramVec
	RunDuration    prometheus.Gauge
	LastRun        prometheus.Gauge
}

// NewMetrics registers the updater metrics on a private registry
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	return &Metrics{
		registry: registry,

		// Records by outcome (updated, skipped, failed, ignored)
		Records: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "openwebui_updater_models_total",
			Help: "Total number of model records processed by outcome",
		}, []string{"outcome"}),

		// result: json, text or error
		Requests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "openwebui_updater_http_requests_total",
			Help: "Total number of API calls by method, path and result",
		}, []string{"method", "path", "result"}),

		RequestLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "openwebui_updater_http_request_duration_seconds",
			Help:    "API call latency in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
		}, []string{"method"}),

		RunDuration: factory.NewGauge(prometheus.GaugeOpts{
			Name: "openwebui_updater_run_duration_seconds",
			Help: "Wall clock duration of the last run",
		}),

		LastRun: factory.NewGauge(prometheus.GaugeOpts{
			Name: "openwebui_updater_last_run_timestamp_seconds",
			Help: "Unix time the last run finished",
		}),
	}
}

// Registry exposes the underlying registry (used by tests and WriteTextfile)
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// RecordOutcome counts one processed record
func (m *Metrics) RecordOutcome(outcome models.Outcome) {
	if m == nil {
		return
	}
	m.Records.WithLabelValues(string(outcome)).Inc()
}

// RecordRequest counts one API call and observes its latency
func (m *Metrics) RecordRequest(method, path, result string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.Requests.WithLabelValues(method, path, result).Inc()
	m.RequestLatency.WithLabelValues(method).Observe(elapsed.Seconds())
}

// RecordRun stores the duration and finish time of a run
func (m *Metrics) RecordRun(summary *models.Summary) {
	if m == nil {
		return
	}
	m.RunDuration.Set(summary.Duration().Seconds())
	m.LastRun.Set(float64(summary.FinishedAt.Unix()))
}

// WriteTextfile writes all metrics in the text exposition format, for the
// node exporter textfile collector.
func (m *Metrics) WriteTextfile(path string) error {
	if m == nil {
		return nil
	}
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("failed to write metrics file: %w", err)
	}
	return nil
}
