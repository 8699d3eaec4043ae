package mcp

import (
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/LeeChunJun/OpenGrokMCP/internal/errors"
)

// Metrics counts tool calls by outcome.
type Metrics struct {
	Calls    *prometheus.CounterVec
	Duration *prometheus.HistogramVec
}

// NewMetrics creates the tool metrics and registers them with reg when it
// is non-nil.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Calls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "opengrok_tool_calls_total",
			Help: "MCP tool calls by tool and outcome.",
		}, []string{"tool", "outcome"}),
		Duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "opengrok_tool_call_duration_seconds",
			Help:    "MCP tool call latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"tool"}),
	}
	if reg != nil {
		reg.MustRegister(m.Calls, m.Duration)
	}
	return m
}

// outcome is "ok" or the lower-cased error code.
func outcome(err error) string {
	if err == nil {
		return "ok"
	}
	return strings.ToLower(string(errors.CodeOf(err)))
}

func (m *Metrics) observe(tool string, err error, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.Calls.WithLabelValues(tool, outcome(err)).Inc()
	m.Duration.WithLabelValues(tool).Observe(elapsed.Seconds())
}
