// Package telemetry exposes Prometheus instrumentation for validation runs so
// a host application can watch throughput, verdict mix, and analyzer latency.
package telemetry

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the validation-pipeline collectors. Construct one per
// process and register it on the host's registry; the core never starts an
// HTTP listener itself.
type Metrics struct {
	ValidationsTotal   *prometheus.CounterVec
	DecisionsTotal     *prometheus.CounterVec
	AnalyzerDuration   *prometheus.HistogramVec
	BacktestEvalsTotal prometheus.Counter
}

// NewMetrics creates the collectors. Register them with Register before use.
func NewMetrics() *Metrics {
	return &Metrics{
		ValidationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "stratval_validations_total",
			Help: "Validation runs started, by analyzer",
		}, []string{"analyzer"}),
		DecisionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "stratval_decisions_total",
			Help: "Final deployment decisions issued, by verdict",
		}, []string{"verdict"}),
		AnalyzerDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "stratval_analyzer_duration_seconds",
			Help:    "Wall time per analyzer run",
			Buckets: prometheus.ExponentialBuckets(0.01, 4, 8),
		}, []string{"analyzer"}),
		BacktestEvalsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "stratval_backtest_evaluations_total",
			Help: "Backtest evaluations issued to the collaborator runner",
		}),
	}
}

// Register registers all collectors on the given registry
func (m *Metrics) Register(reg prometheus.Registerer) error {
	for _, c := range []prometheus.Collector{
		m.ValidationsTotal,
		m.DecisionsTotal,
		m.AnalyzerDuration,
		m.BacktestEvalsTotal,
	} {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}

// ObserveAnalyzer records one analyzer run
func (m *Metrics) ObserveAnalyzer(analyzer string, started time.Time) {
	m.ValidationsTotal.WithLabelValues(analyzer).Inc()
	m.AnalyzerDuration.WithLabelValues(analyzer).Observe(time.Since(started).Seconds())
}

// ObserveDecision records one issued verdict
func (m *Metrics) ObserveDecision(verdict string) {
	m.DecisionsTotal.WithLabelValues(verdict).Inc()
}
