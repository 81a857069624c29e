package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Reconciliation outcomes
const (
	OutcomeSuccess   = "success"
	OutcomeFailed    = "failed"
	OutcomeExhausted = "exhausted"
)

// Metrics provides observability for enrollment reconciliation and the
// document locator.
type Metrics struct {
	ReconcileAttempts *prometheus.CounterVec
	ReconcileRuns     *prometheus.CounterVec
	ReconcileDuration prometheus.Histogram
	DocumentLookups   *prometheus.CounterVec
	AggregateSaves    *prometheus.CounterVec
}

// New creates a new Metrics instance registered on reg. A nil reg registers on
// the default Prometheus registry.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		ReconcileAttempts: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "ceeja_reconcile_attempts_total",
			Help: "Reconciliation attempts by result",
		}, []string{"result"}),
		ReconcileRuns: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "ceeja_reconcile_runs_total",
			Help: "Completed reconciliation runs by outcome",
		}, []string{"outcome"}),
		ReconcileDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "ceeja_reconcile_duration_seconds",
			Help:    "Wall time of a reconciliation run, backoff included",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 15, 30, 60},
		}),
		DocumentLookups: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "ceeja_document_lookups_total",
			Help: "Document locator results by strategy (none when no linkage)",
		}, []string{"strategy"}),
		AggregateSaves: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "ceeja_aggregate_saves_total",
			Help: "Aggregate saves by result",
		}, []string{"result"}),
	}
}

// ObserveAttempt records one attempt of the reconciliation pipeline
func (m *Metrics) ObserveAttempt(err error) {
	m.ReconcileAttempts.WithLabelValues(result(err)).Inc()
}

// ObserveRun records the outcome and duration of a reconciliation run.
// Call with time.Now() at the start of the run.
func (m *Metrics) ObserveRun(outcome string, start time.Time) {
	m.ReconcileRuns.WithLabelValues(outcome).Inc()
	m.ReconcileDuration.Observe(time.Since(start).Seconds())
}

// ObserveDocumentLookup records which locator strategy produced a key
func (m *Metrics) ObserveDocumentLookup(strategy string) {
	if strategy == "" {
		strategy = "none"
	}
	m.DocumentLookups.WithLabelValues(strategy).Inc()
}

// ObserveSave records an aggregate save
func (m *Metrics) ObserveSave(err error) {
	m.AggregateSaves.WithLabelValues(result(err)).Inc()
}

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
