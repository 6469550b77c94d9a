package metrics

import "github.com/prometheus/client_golang/prometheus"

// ConversationMetrics exposes counters/histograms for the message pipeline.
type ConversationMetrics struct {
	inboundTotal      *prometheus.CounterVec
	processedTotal    *prometheus.CounterVec
	handoffsTotal     *prometheus.CounterVec
	llmCallsTotal     prometheus.Counter
	outboundTotal     *prometheus.CounterVec
	processingLatency prometheus.Histogram
}

func NewConversationMetrics(reg prometheus.Registerer) *ConversationMetrics {
	m := &ConversationMetrics{
		inboundTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "luisa",
			Subsystem: "webhook",
			Name:      "inbound_total",
			Help:      "Total inbound webhook payloads by kind and outcome",
		}, []string{"kind", "status"}),
		processedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "luisa",
			Subsystem: "conversation",
			Name:      "processed_total",
			Help:      "Total processed messages by detected intent",
		}, []string{"intent"}),
		handoffsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "luisa",
			Subsystem: "conversation",
			Name:      "handoffs_total",
			Help:      "Total human handoffs by team",
		}, []string{"team"}),
		llmCallsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "luisa",
			Subsystem: "conversation",
			Name:      "llm_calls_total",
			Help:      "Total language model invocations",
		}),
		outboundTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "luisa",
			Subsystem: "gateway",
			Name:      "outbound_total",
			Help:      "Total outbound sends by status",
		}, []string{"status"}),
		processingLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "luisa",
			Subsystem: "conversation",
			Name:      "processing_latency_seconds",
			Help:      "End to end latency per processed message",
			Buckets:   prometheus.DefBuckets,
		}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(
		m.inboundTotal,
		m.processedTotal,
		m.handoffsTotal,
		m.llmCallsTotal,
		m.outboundTotal,
		m.processingLatency,
	)
	return m
}

func (m *ConversationMetrics) ObserveInbound(kind, status string) {
	if m == nil {
		return
	}
	m.inboundTotal.WithLabelValues(kind, status).Inc()
}

func (m *ConversationMetrics) ObserveProcessed(intent string, seconds float64) {
	if m == nil {
		return
	}
	if intent == "" {
		intent = "unknown"
	}
	m.processedTotal.WithLabelValues(intent).Inc()
	m.processingLatency.Observe(seconds)
}

func (m *ConversationMetrics) ObserveHandoff(team string) {
	if m == nil {
		return
	}
	m.handoffsTotal.WithLabelValues(team).Inc()
}

func (m *ConversationMetrics) ObserveLLMCall() {
	if m == nil {
		return
	}
	m.llmCallsTotal.Inc()
}

func (m *ConversationMetrics) ObserveOutbound(status string) {
	if m == nil {
		return
	}
	m.outboundTotal.WithLabelValues(status).Inc()
}
