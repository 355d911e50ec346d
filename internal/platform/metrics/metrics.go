package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the HTTP-level Prometheus metrics shared by all handlers.
type Metrics struct {
	EndpointLatency *prometheus.HistogramVec
	Responses       *prometheus.CounterVec
}

// New registers the HTTP metrics with reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		EndpointLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "nameledger_http_request_duration_seconds",
			Help:    "HTTP request latency by route pattern and method",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}, []string{"route", "method"}),
		Responses: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "nameledger_http_responses_total",
			Help: "HTTP responses by route pattern and status class",
		}, []string{"route", "status"}),
	}
}

// ObserveEndpointLatency records how long a request to route took.
func (m *Metrics) ObserveEndpointLatency(route, method string, start time.Time) {
	m.EndpointLatency.WithLabelValues(route, method).Observe(time.Since(start).Seconds())
}

// IncrementResponse counts a response by status class ("2xx", "4xx", ...).
func (m *Metrics) IncrementResponse(route string, status int) {
	m.Responses.WithLabelValues(route, statusClass(status)).Inc()
}

func statusClass(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	case status >= 300:
		return "3xx"
	default:
		return "2xx"
	}
}
