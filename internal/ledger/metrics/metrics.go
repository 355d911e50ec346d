package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the ledger module.
type Metrics struct {
	Registrations    prometheus.Counter
	Renewals         prometheus.Counter
	Rejections       *prometheus.CounterVec
	CacheLookups     *prometheus.CounterVec
	MutationDuration *prometheus.HistogramVec
}

// New registers the ledger metrics with reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Registrations: factory.NewCounter(prometheus.CounterOpts{
			Name: "nameledger_registrations_total",
			Help: "Total number of accepted name registrations",
		}),
		Renewals: factory.NewCounter(prometheus.CounterOpts{
			Name: "nameledger_renewals_total",
			Help: "Total number of accepted lease renewals",
		}),
		Rejections: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "nameledger_ledger_rejections_total",
			Help: "Rejected ledger operations by operation and error code",
		}, []string{"operation", "code"}),
		CacheLookups: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "nameledger_lease_cache_lookups_total",
			Help: "Lease cache lookups by result (hit, miss, error)",
		}, []string{"result"}),
		MutationDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "nameledger_ledger_mutation_duration_seconds",
			Help:    "Duration of register and renew operations including the storage transaction",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}, []string{"operation"}),
	}
}

func (m *Metrics) IncrementRegistrations() {
	m.Registrations.Inc()
}

func (m *Metrics) IncrementRenewals() {
	m.Renewals.Inc()
}

func (m *Metrics) IncrementRejection(operation, code string) {
	m.Rejections.WithLabelValues(operation, code).Inc()
}

func (m *Metrics) IncrementCacheLookup(result string) {
	m.CacheLookups.WithLabelValues(result).Inc()
}

// ObserveMutation records the duration of a mutation started at start.
func (m *Metrics) ObserveMutation(operation string, start time.Time) {
	m.MutationDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}
