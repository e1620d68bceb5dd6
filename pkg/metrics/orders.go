package metrics

import "github.com/prometheus/client_golang/prometheus"

const namespace = "alexandria"

// OrderMetrics counts order placements and lifecycle transitions.
type OrderMetrics struct {
	created     *prometheus.CounterVec
	transitions *prometheus.CounterVec
}

// NewOrderMetrics registers the order counters on reg. A nil registerer yields a no-op recorder.
func NewOrderMetrics(reg prometheus.Registerer) *OrderMetrics {
	if reg == nil {
		return &OrderMetrics{}
	}
	created := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "orders_created_total",
		Help:      "Orders placed, by currency.",
	}, []string{"currency"})
	transitions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "order_status_transitions_total",
		Help:      "Order status changes, by source and target status.",
	}, []string{"from", "to", "override"})
	reg.MustRegister(created, transitions)
	return &OrderMetrics{created: created, transitions: transitions}
}

func (m *OrderMetrics) IncOrderCreated(currency string) {
	if m == nil || m.created == nil {
		return
	}
	m.created.WithLabelValues(normalizeLabel(currency)).Inc()
}

func (m *OrderMetrics) IncStatusTransition(from, to string, override bool) {
	if m == nil || m.transitions == nil {
		return
	}
	flag := "false"
	if override {
		flag = "true"
	}
	m.transitions.WithLabelValues(normalizeLabel(from), normalizeLabel(to), flag).Inc()
}
