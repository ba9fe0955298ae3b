package metrics

import "github.com/prometheus/client_golang/prometheus"

// ConversationMetrics exposes counters/histograms for the inbound pipeline.
// All methods are nil-receiver safe so metrics stay optional in tests.
type ConversationMetrics struct {
	inboundTotal     *prometheus.CounterVec
	correctionsTotal prometheus.Counter
	escalationsTotal *prometheus.CounterVec
	llmLatency       prometheus.Histogram
}

func NewConversationMetrics(reg prometheus.Registerer) *ConversationMetrics {
	m := &ConversationMetrics{
		inboundTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "simao",
			Subsystem: "conversation",
			Name:      "inbound_total",
			Help:      "Inbound messages by resulting action",
		}, []string{"action"}),
		correctionsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "simao",
			Subsystem: "conversation",
			Name:      "spelling_corrections_total",
			Help:      "Words rewritten by the spelling corrector",
		}),
		escalationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "simao",
			Subsystem: "handoff",
			Name:      "escalations_total",
			Help:      "Escalations to human agents by reason and priority",
		}, []string{"reason", "priority"}),
		llmLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "simao",
			Subsystem: "conversation",
			Name:      "llm_latency_seconds",
			Help:      "Latency of reply generation",
			Buckets:   prometheus.DefBuckets,
		}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.inboundTotal, m.correctionsTotal, m.escalationsTotal, m.llmLatency)
	return m
}

func (m *ConversationMetrics) ObserveInbound(action string) {
	if m == nil {
		return
	}
	m.inboundTotal.WithLabelValues(action).Inc()
}

func (m *ConversationMetrics) AddCorrections(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.correctionsTotal.Add(float64(n))
}

func (m *ConversationMetrics) ObserveEscalation(reason, priority string) {
	if m == nil {
		return
	}
	m.escalationsTotal.WithLabelValues(reason, priority).Inc()
}

func (m *ConversationMetrics) ObserveLLMLatency(seconds float64) {
	if m == nil {
		return
	}
	m.llmLatency.Observe(seconds)
}
