// Package metrics provides Prometheus instrumentation for the engine and
// the coordinator.
package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics.
type Metrics struct {
	OperationsTotal       *prometheus.CounterVec
	OperationDuration     *prometheus.HistogramVec
	MemtableSwitchesTotal *prometheus.CounterVec
	MemtableSealsTotal    prometheus.Counter
	ReportsSentTotal      prometheus.Counter
	DecisionErrorsTotal   prometheus.Counter
}

var (
	globalMetrics *Metrics
	registerOnce  sync.Once
)

// New creates and registers the metrics on the default registry. It is
// idempotent; repeated calls return the same set.
func New() *Metrics {
	registerOnce.Do(register)
	return globalMetrics
}

func register() {
	globalMetrics = &Metrics{
		OperationsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "memtable_switching_operations_total",
				Help: "Total number of completed operations",
			},
			[]string{"kind"},
		),
		OperationDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "memtable_switching_operation_duration_seconds",
				Help:    "Operation duration in seconds",
				Buckets: []float64{0.000001, 0.00001, 0.0001, 0.001, 0.01, 0.1, 1},
			},
			[]string{"kind"},
		),
		MemtableSwitchesTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "memtable_switching_switches_total",
				Help: "Total number of accepted memtable strategy switches",
			},
			[]string{"kind"},
		),
		MemtableSealsTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "memtable_switching_seals_total",
				Help: "Total number of sealed memtables",
			},
		),
		ReportsSentTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "memtable_switching_reports_sent_total",
				Help: "Total number of telemetry reports sent to the decider",
			},
		),
		DecisionErrorsTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "memtable_switching_decision_errors_total",
				Help: "Total number of rejected or malformed decisions",
			},
		),
	}
}

// Handler returns the HTTP handler exposing the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
