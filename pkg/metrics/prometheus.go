// Package metrics provides Prometheus metrics for the matchtune evaluation pipeline.
package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Latency buckets in milliseconds; one objective evaluation over a few
// hundred properties lands well under 10ms.
var defaultLatencyBuckets = []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 25, 50, 100} //nolint:gochecknoglobals // bucket layout

// Manager owns every matchtune metric on a single registry.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	constLabels      map[string]string
	registry         *prometheus.Registry

	// Objective evaluation
	evaluations       *prometheus.CounterVec
	evaluationLatency prometheus.Histogram
	profileNDCG       *prometheus.GaugeVec
	meanNDCG          prometheus.Gauge

	// Optimizer progress
	generations   *prometheus.CounterVec
	bestObjective *prometheus.GaugeVec
	methodRuns    *prometheus.CounterVec

	// Input data
	recordsLoaded    *prometheus.CounterVec
	validationErrors *prometheus.CounterVec
}

var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	globalManager = NewManager()
}

// NewManager creates a new metrics manager. Without WithPrometheusRegistry a
// fresh private registry is used so managers never collide.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "matchtune",
		subsystem:        "ranking",
		histogramBuckets: defaultLatencyBuckets,
		constLabels:      map[string]string{},
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.registry == nil {
		m.registry = prometheus.NewRegistry()
	}

	m.initializeMetrics()
	return m
}

func (m *Manager) initializeMetrics() { //nolint:funlen // flat list of metric definitions
	auto := promauto.With(m.registry)

	m.evaluations = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "objective_evaluations_total",
		Help:        "Number of mean NDCG@k objective evaluations, by optimizer method",
		ConstLabels: m.constLabels,
	}, []string{"method"})

	m.evaluationLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "objective_evaluation_latency_milliseconds",
		Help:        "Wall time of one objective evaluation in milliseconds",
		Buckets:     m.histogramBuckets,
		ConstLabels: m.constLabels,
	})

	m.profileNDCG = auto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "profile_ndcg",
		Help:        "NDCG@k of the last reported weights, per profile",
		ConstLabels: m.constLabels,
	}, []string{"profile"})

	m.meanNDCG = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "mean_ndcg",
		Help:        "Mean NDCG@k of the last reported weights",
		ConstLabels: m.constLabels,
	})

	m.generations = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "optimizer_iterations_total",
		Help:        "Optimizer iterations (generations, simplex steps, samples), by method",
		ConstLabels: m.constLabels,
	}, []string{"method"})

	m.bestObjective = auto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "optimizer_best_objective",
		Help:        "Best objective value found so far, by method",
		ConstLabels: m.constLabels,
	}, []string{"method"})

	m.methodRuns = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "optimizer_runs_total",
		Help:        "Completed optimizer runs by method and outcome (improved, baseline)",
		ConstLabels: m.constLabels,
	}, []string{"method", "outcome"})

	m.recordsLoaded = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "records_loaded_total",
		Help:        "Input records loaded, by kind (properties, profiles, ground_truth)",
		ConstLabels: m.constLabels,
	}, []string{"kind"})

	m.validationErrors = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "validation_errors_total",
		Help:        "Input records rejected by validation, by kind",
		ConstLabels: m.constLabels,
	}, []string{"kind"})
}

// Registry returns the registry the manager writes to.
func (m *Manager) Registry() *prometheus.Registry { return m.registry }

// RecordEvaluation counts one objective evaluation and its latency.
func (m *Manager) RecordEvaluation(method string, latencyMs float64) {
	m.evaluations.WithLabelValues(method).Inc()
	m.evaluationLatency.Observe(latencyMs)
}

// RecordIteration counts one optimizer iteration.
func (m *Manager) RecordIteration(method string) {
	m.generations.WithLabelValues(method).Inc()
}

// UpdateBestObjective sets the best objective seen by a method.
func (m *Manager) UpdateBestObjective(method string, value float64) {
	m.bestObjective.WithLabelValues(method).Set(value)
}

// RecordMethodRun counts a finished optimizer run.
func (m *Manager) RecordMethodRun(method string, improved bool) {
	outcome := "baseline"
	if improved {
		outcome = "improved"
	}
	m.methodRuns.WithLabelValues(method, outcome).Inc()
}

// UpdateProfileNDCG publishes a per-profile NDCG value.
func (m *Manager) UpdateProfileNDCG(profileID string, value float64) {
	m.profileNDCG.WithLabelValues(profileID).Set(value)
}

// UpdateMeanNDCG publishes the mean NDCG value.
func (m *Manager) UpdateMeanNDCG(value float64) {
	m.meanNDCG.Set(value)
}

// RecordRecordsLoaded adds n loaded records of a kind.
func (m *Manager) RecordRecordsLoaded(kind string, n int) {
	m.recordsLoaded.WithLabelValues(kind).Add(float64(n))
}

// RecordValidationError counts one rejected record of a kind.
func (m *Manager) RecordValidationError(kind string) {
	m.validationErrors.WithLabelValues(kind).Inc()
}

// WriteTextfile writes the registry in the Prometheus text exposition format,
// suitable for the node_exporter textfile collector.
func (m *Manager) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("%w: %w", ErrExportFailed, err)
	}
	return nil
}

// Global returns the process-wide manager used when no other is configured.
func Global() *Manager {
	return globalManager
}
