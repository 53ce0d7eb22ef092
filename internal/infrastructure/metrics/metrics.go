package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the workflow core.
type Metrics struct {
	// Applied status transitions by entity type and edge
	Transitions *prometheus.CounterVec

	// Rejected commands by operation and failure kind
	Rejections *prometheus.CounterVec

	// Reconciliation rows by outcome: matched, unmatched, issue
	ImportRows *prometheus.CounterVec
}

// New creates a Metrics instance registered on reg. A nil reg uses the
// default registerer.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		Transitions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "benefits_workflow_transitions_total",
			Help: "Total status transitions applied by entity type and edge",
		}, []string{"entity_type", "from", "to"}),

		Rejections: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "benefits_workflow_rejections_total",
			Help: "Total rejected workflow commands by operation and error kind",
		}, []string{"operation", "kind"}),

		ImportRows: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "benefits_payout_import_rows_total",
			Help: "Total payout reconciliation rows by outcome",
		}, []string{"outcome"}),
	}
}

// TransitionApplied records one applied transition.
func (m *Metrics) TransitionApplied(entityType, from, to string) {
	if m != nil {
		m.Transitions.WithLabelValues(entityType, from, to).Inc()
	}
}

// CommandRejected records a command that failed with a typed kind.
func (m *Metrics) CommandRejected(operation, kind string) {
	if m != nil {
		m.Rejections.WithLabelValues(operation, kind).Inc()
	}
}

// RowsImported records the outcome counts of one reconciliation import.
func (m *Metrics) RowsImported(matched, unmatched, issues int) {
	if m == nil {
		return
	}
	m.ImportRows.WithLabelValues("matched").Add(float64(matched))
	m.ImportRows.WithLabelValues("unmatched").Add(float64(unmatched))
	m.ImportRows.WithLabelValues("issue").Add(float64(issues))
}
