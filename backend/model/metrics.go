package model

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics counts chat traffic on a prometheus registry. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	requests  *prometheus.CounterVec
	fallbacks *prometheus.CounterVec
	tokens    *prometheus.CounterVec
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "conjure_chat_requests_total",
			Help: "Chat requests by provider, protocol and outcome.",
		}, []string{"provider", "protocol", "outcome"}),
		fallbacks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "conjure_chat_fallbacks_total",
			Help: "Turns degraded from native tools to the text protocol.",
		}, []string{"provider", "reason"}),
		tokens: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "conjure_chat_tokens_total",
			Help: "Token usage by model and direction.",
		}, []string{"model", "direction"}),
	}
	reg.MustRegister(m.requests, m.fallbacks, m.tokens)
	return m
}

func (m *Metrics) recordRequest(provider, protocol, outcome string) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(provider, protocol, outcome).Inc()
}

func (m *Metrics) recordFallback(provider, reason string) {
	if m == nil {
		return
	}
	m.fallbacks.WithLabelValues(provider, reason).Inc()
}

func (m *Metrics) recordTokens(model string, usage Usage) {
	if m == nil {
		return
	}
	m.tokens.WithLabelValues(model, "input").Add(float64(usage.InputTokens))
	m.tokens.WithLabelValues(model, "output").Add(float64(usage.OutputTokens))
}
