package monitor

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics collects ledger write and query counters.
type Metrics struct {
	tradesRecorded  prometheus.Counter
	outcomesApplied *prometheus.CounterVec
	safetyEvents    *prometheus.CounterVec
	ledgerErrors    *prometheus.CounterVec
	opDuration      *prometheus.HistogramVec
}

// NewMetrics creates the ledger collectors and registers them on reg.
func NewMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		tradesRecorded: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "trades_recorded_total",
				Help:      "Total number of trade records inserted",
			},
		),
		outcomesApplied: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "trade_outcomes_total",
				Help:      "Total number of trade outcome updates applied, by resulting status",
			},
			[]string{"status"},
		),
		safetyEvents: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "safety_events_total",
				Help:      "Total number of safety events recorded, by event kind",
			},
			[]string{"kind"},
		),
		ledgerErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "errors_total",
				Help:      "Total number of failed ledger operations, by operation and error class",
			},
			[]string{"op", "class"},
		),
		opDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "operation_duration_seconds",
				Help:      "Latency of ledger operations",
				Buckets:   []float64{.0005, .001, .0025, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
			},
			[]string{"op"},
		),
	}

	if reg != nil {
		reg.MustRegister(m.tradesRecorded, m.outcomesApplied, m.safetyEvents, m.ledgerErrors, m.opDuration)
	}

	return m
}

// IncTradeRecorded counts one inserted trade.
func (m *Metrics) IncTradeRecorded() {
	if m == nil {
		return
	}
	m.tradesRecorded.Inc()
}

// IncOutcomeApplied counts one applied outcome update.
func (m *Metrics) IncOutcomeApplied(status string) {
	if m == nil {
		return
	}
	m.outcomesApplied.WithLabelValues(status).Inc()
}

// IncSafetyEvent counts one recorded safety event.
func (m *Metrics) IncSafetyEvent(kind string) {
	if m == nil {
		return
	}
	m.safetyEvents.WithLabelValues(kind).Inc()
}

// IncError counts one failed operation.
func (m *Metrics) IncError(op, class string) {
	if m == nil {
		return
	}
	m.ledgerErrors.WithLabelValues(op, class).Inc()
}

// ObserveDuration records how long op took since start.
func (m *Metrics) ObserveDuration(op string, start time.Time) {
	if m == nil {
		return
	}
	m.opDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
}
