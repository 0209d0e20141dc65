package pipeline

import "github.com/prometheus/client_golang/prometheus"

// Metrics counts pipeline outcomes for the /metrics endpoint.
type Metrics struct {
	operations *prometheus.CounterVec
	blocks     *prometheus.CounterVec
}

// NewMetrics creates and registers the pipeline counters.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cisco_mcp_operations_total",
			Help: "Operations processed, by operation and result status.",
		}, []string{"operation", "status"}),
		blocks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cisco_mcp_guardrail_blocks_total",
			Help: "Commands rejected by guardrails, by ruleset and category.",
		}, []string{"ruleset", "category"}),
	}
	if reg != nil {
		reg.MustRegister(m.operations, m.blocks)
	}
	return m
}

func (m *Metrics) observe(operation string, status string) {
	if m == nil {
		return
	}
	m.operations.WithLabelValues(operation, status).Inc()
}

func (m *Metrics) observeBlock(ruleset, category string) {
	if m == nil {
		return
	}
	m.blocks.WithLabelValues(ruleset, category).Inc()
}
