package services

import (
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics are the engine's prometheus collectors. A nil *Metrics records nothing.
type Metrics struct {
	Transitions       *prometheus.CounterVec
	SweepRuns         prometheus.Counter
	SweepOrders       *prometheus.CounterVec
	CreditNotesIssued prometheus.Counter
	CreditApplied     prometheus.Counter
}

// NewMetrics registers the engine collectors with reg
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Transitions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "wholesale",
			Subsystem: "engine",
			Name:      "order_transitions_total",
			Help:      "Engine mutations by operation and outcome",
		}, []string{"operation", "outcome"}),
		SweepRuns: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "wholesale",
			Subsystem: "engine",
			Name:      "sweep_runs_total",
			Help:      "Deadline sweeps executed",
		}),
		SweepOrders: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "wholesale",
			Subsystem: "engine",
			Name:      "sweep_orders_total",
			Help:      "Orders examined by the deadline sweep by result",
		}, []string{"result"}),
		CreditNotesIssued: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "wholesale",
			Subsystem: "engine",
			Name:      "credit_notes_issued_total",
			Help:      "Credit notes issued from approved returns",
		}),
		CreditApplied: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "wholesale",
			Subsystem: "engine",
			Name:      "credit_applied_amount_total",
			Help:      "Total credit applied to orders",
		}),
	}
}

func (m *Metrics) observe(operation string, replayed bool, err error) {
	if m == nil {
		return
	}
	m.Transitions.WithLabelValues(operation, outcomeLabel(replayed, err)).Inc()
}

func (m *Metrics) sweepRun() {
	if m == nil {
		return
	}
	m.SweepRuns.Inc()
}

func (m *Metrics) sweepOrder(result string) {
	if m == nil {
		return
	}
	m.SweepOrders.WithLabelValues(result).Inc()
}

func (m *Metrics) creditIssued() {
	if m == nil {
		return
	}
	m.CreditNotesIssued.Inc()
}

func (m *Metrics) creditApplied(amount float64) {
	if m == nil {
		return
	}
	m.CreditApplied.Add(amount)
}

func outcomeLabel(replayed bool, err error) string {
	if err != nil {
		if code, ok := CodeOf(err); ok {
			return strings.ToLower(string(code))
		}
		return "error"
	}
	if replayed {
		return "replayed"
	}
	return "success"
}
