package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/kirillkom/curriculum-organizer/internal/core/domain"
)

// BatchMetrics collects per-run counters. The organizer is a short lived CLI,
// so the registry is flushed to a node_exporter textfile instead of served.
type BatchMetrics struct {
	registry *prometheus.Registry
	service  string

	filesTotal      *prometheus.CounterVec
	fileDuration    *prometheus.HistogramVec
	filesInFlight   prometheus.Gauge
	fallbacksTotal  *prometheus.CounterVec
	conversions     *prometheus.CounterVec
	dashboardTotal  *prometheus.CounterVec
	gatewayRetries  *prometheus.CounterVec
	lastRunFinished prometheus.Gauge
}

func NewBatchMetrics(service string) *BatchMetrics {
	registry := prometheus.NewRegistry()

	filesTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "organizer",
			Subsystem: "batch",
			Name:      "files_total",
			Help:      "Inbox files processed by final stage.",
		},
		[]string{"service", "stage"},
	)
	fileDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "organizer",
			Subsystem: "batch",
			Name:      "file_duration_seconds",
			Help:      "Per-file pipeline duration in seconds by status.",
			Buckets:   []float64{0.05, 0.1, 0.5, 1, 2, 5, 10, 30, 60, 120},
		},
		[]string{"service", "status"},
	)
	filesInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "organizer",
			Subsystem: "batch",
			Name:      "files_in_flight",
			Help:      "Number of files currently in the pipeline.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	fallbacksTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "organizer",
			Subsystem: "classifier",
			Name:      "fallbacks_total",
			Help:      "Files quarantined because the classifier was unavailable.",
		},
		[]string{"service"},
	)
	conversions := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "organizer",
			Subsystem: "converter",
			Name:      "conversions_total",
			Help:      "Manual conversions by status.",
		},
		[]string{"service", "status"},
	)
	dashboardTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "organizer",
			Subsystem: "dashboard",
			Name:      "updates_total",
			Help:      "Dashboard rewrites by status.",
		},
		[]string{"service", "status"},
	)
	gatewayRetries := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "organizer",
			Subsystem: "classifier",
			Name:      "retries_total",
			Help:      "Retries scheduled against the classifier gateway.",
		},
		[]string{"service", "operation"},
	)
	lastRunFinished := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "organizer",
			Subsystem: "batch",
			Name:      "last_run_timestamp_seconds",
			Help:      "Unix time the last batch finished its dashboard update.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)

	registry.MustRegister(
		filesTotal,
		fileDuration,
		filesInFlight,
		fallbacksTotal,
		conversions,
		dashboardTotal,
		gatewayRetries,
		lastRunFinished,
	)

	return &BatchMetrics{
		registry:        registry,
		service:         service,
		filesTotal:      filesTotal,
		fileDuration:    fileDuration,
		filesInFlight:   filesInFlight,
		fallbacksTotal:  fallbacksTotal,
		conversions:     conversions,
		dashboardTotal:  dashboardTotal,
		gatewayRetries:  gatewayRetries,
		lastRunFinished: lastRunFinished,
	}
}

func (m *BatchMetrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *BatchMetrics) StartFile() {
	m.filesInFlight.Inc()
}

func (m *BatchMetrics) FinishFile(outcome domain.FileOutcome, duration time.Duration) {
	m.filesInFlight.Dec()

	stage := outcome.Stage
	if stage == "" {
		stage = domain.StageFailed
	}
	status := "success"
	if stage == domain.StageFailed {
		status = "error"
	}

	m.filesTotal.WithLabelValues(m.service, string(stage)).Inc()
	m.fileDuration.WithLabelValues(m.service, status).Observe(duration.Seconds())

	if outcome.Fallback {
		m.fallbacksTotal.WithLabelValues(m.service).Inc()
	}
	switch {
	case outcome.Converted:
		m.conversions.WithLabelValues(m.service, "success").Inc()
	case outcome.Placed() && len(outcome.Warnings) > 0:
		m.conversions.WithLabelValues(m.service, "error").Inc()
	}
}

func (m *BatchMetrics) ObserveDashboard(err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	m.dashboardTotal.WithLabelValues(m.service, status).Inc()
	m.lastRunFinished.SetToCurrentTime()
}

func (m *BatchMetrics) ObserveRetry(operation string) {
	if operation == "" {
		operation = "unknown"
	}
	m.gatewayRetries.WithLabelValues(m.service, operation).Inc()
}

// WriteTextfile atomically writes the registry in the text exposition format.
func (m *BatchMetrics) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}
