// Package metrics holds the Prometheus collectors of the settlement jobs.
// All methods are safe on a nil *Metrics so components can run without instrumentation.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "otc_settlement"

type Metrics struct {
	JobRuns               *prometheus.CounterVec
	GatewayCalls          *prometheus.CounterVec
	RemittanceTransitions *prometheus.CounterVec
	QuotationLookups      *prometheus.CounterVec
	FeedState             *prometheus.GaugeVec
}

func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		JobRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "job_runs_total",
			Help:      "Job executions by job and outcome",
		}, []string{"job", "outcome"}),
		GatewayCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "gateway_calls_total",
			Help:      "Liquidity provider calls by provider, operation and outcome",
		}, []string{"provider", "operation", "outcome"}),
		RemittanceTransitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "remittance_transitions_total",
			Help:      "Fiat remittance state changes by target status",
		}, []string{"status"}),
		QuotationLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "quotation_lookups_total",
			Help:      "Quotation cache lookups by result",
		}, []string{"result"}),
		FeedState: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "feed_state",
			Help:      "Streaming feed state per provider (0 disconnected, 1 connecting, 2 open, 3 error, 4 closed)",
		}, []string{"provider"}),
	}
	reg.MustRegister(m.JobRuns, m.GatewayCalls, m.RemittanceTransitions, m.QuotationLookups, m.FeedState)
	return m
}

func (m *Metrics) JobRun(job string, err error) {
	if m == nil {
		return
	}
	m.JobRuns.WithLabelValues(job, outcome(err)).Inc()
}

func (m *Metrics) GatewayCall(provider, operation string, err error) {
	if m == nil {
		return
	}
	m.GatewayCalls.WithLabelValues(provider, operation, outcome(err)).Inc()
}

func (m *Metrics) RemittanceTransition(status string) {
	if m == nil {
		return
	}
	m.RemittanceTransitions.WithLabelValues(status).Inc()
}

func (m *Metrics) QuotationLookup(hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.QuotationLookups.WithLabelValues(result).Inc()
}

func (m *Metrics) SetFeedState(provider string, state int) {
	if m == nil {
		return
	}
	m.FeedState.WithLabelValues(provider).Set(float64(state))
}

func outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
