package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	Decisions    *prometheus.CounterVec
	StoreFailure prometheus.Counter
}

func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Decisions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "nameledger_ratelimit_decisions_total",
			Help: "Rate limit admission decisions by endpoint class and outcome",
		}, []string{"class", "outcome"}),
		StoreFailure: factory.NewCounter(prometheus.CounterOpts{
			Name: "nameledger_ratelimit_store_failures_total",
			Help: "Rate limit checks that failed open because the bucket store errored",
		}),
	}
}

func (m *Metrics) IncrementDecision(class string, allowed bool) {
	outcome := "rejected"
	if allowed {
		outcome = "allowed"
	}
	m.Decisions.WithLabelValues(class, outcome).Inc()
}

func (m *Metrics) IncrementStoreFailure() {
	m.StoreFailure.Inc()
}
