package transport

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the upstream request collectors.
type Metrics struct {
	Requests *prometheus.CounterVec
	Duration *prometheus.HistogramVec
}

// NewMetrics creates the upstream collectors and registers them with reg.
// A nil reg leaves them unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "opengrok",
			Name:      "upstream_requests_total",
			Help:      "Requests sent to the OpenGrok server by backend mode, HTTP status code and method.",
		}, []string{"mode", "code", "method"}),
		Duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "opengrok",
			Name:      "upstream_request_duration_seconds",
			Help:      "Latency of requests sent to the OpenGrok server.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"mode"}),
	}
	if reg != nil {
		reg.MustRegister(m.Requests, m.Duration)
	}
	return m
}

// instrument wraps next with the collectors curried for mode.
func (m *Metrics) instrument(mode string, next http.RoundTripper) http.RoundTripper {
	if m == nil {
		return next
	}
	labels := prometheus.Labels{"mode": mode}
	rt := promhttp.InstrumentRoundTripperDuration(m.Duration.MustCurryWith(labels), next)
	return promhttp.InstrumentRoundTripperCounter(m.Requests.MustCurryWith(labels), rt)
}
