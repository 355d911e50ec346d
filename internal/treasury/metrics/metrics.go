package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the treasury module.
type Metrics struct {
	PolicyUpdates      *prometheus.CounterVec
	Withdrawals        prometheus.Counter
	SettlementFailures prometheus.Counter
	AccessDenied       *prometheus.CounterVec
}

// New registers the treasury metrics with reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		PolicyUpdates: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "nameledger_policy_updates_total",
			Help: "Accepted policy updates by field",
		}, []string{"field"}),
		Withdrawals: factory.NewCounter(prometheus.CounterOpts{
			Name: "nameledger_withdrawals_total",
			Help: "Withdrawals that moved a non-zero balance to settlement",
		}),
		SettlementFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "nameledger_settlement_failures_total",
			Help: "Withdrawals rolled back because settlement rejected the instruction",
		}),
		AccessDenied: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "nameledger_treasury_access_denied_total",
			Help: "Treasury operations rejected because the caller is not the admin",
		}, []string{"operation"}),
	}
}

func (m *Metrics) IncrementPolicyUpdate(field string) {
	m.PolicyUpdates.WithLabelValues(field).Inc()
}

func (m *Metrics) IncrementWithdrawals() {
	m.Withdrawals.Inc()
}

func (m *Metrics) IncrementSettlementFailures() {
	m.SettlementFailures.Inc()
}

func (m *Metrics) IncrementAccessDenied(operation string) {
	m.AccessDenied.WithLabelValues(operation).Inc()
}
