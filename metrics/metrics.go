package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "settsim"

// Metrics are the counters of one simulation or subgraph run. A nil *Metrics is valid
// and records nothing.
type Metrics struct {
	actionsGenerated *prometheus.CounterVec
	actionsExecuted  *prometheus.CounterVec
	subgraphPages    *prometheus.CounterVec
	simulationState  prometheus.Gauge
}

// New registers the metrics with reg. Pass prometheus.NewRegistry() in tests.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		actionsGenerated: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "actions_generated_total",
			Help:      "Actions generated, by actor",
		}, []string{"actor"}),
		actionsExecuted: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "actions_executed_total",
			Help:      "Actions executed, by action and result",
		}, []string{"action", "result"}),
		subgraphPages: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "subgraph_pages_total",
			Help:      "Subgraph pages fetched, by collection",
		}, []string{"collection"}),
		simulationState: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "simulation_state",
			Help:      "Current simulation state: 0 idle, 1 provisioned, 2 randomized, 3 running",
		}),
	}
}

func (m *Metrics) ActionGenerated(actor string) {
	if m == nil {
		return
	}
	m.actionsGenerated.WithLabelValues(actor).Inc()
}

func (m *Metrics) ActionExecuted(action string, success bool) {
	if m == nil {
		return
	}
	result := "success"
	if !success {
		result = "failure"
	}
	m.actionsExecuted.WithLabelValues(action, result).Inc()
}

func (m *Metrics) SubgraphPage(collection string) {
	if m == nil {
		return
	}
	m.subgraphPages.WithLabelValues(collection).Inc()
}

func (m *Metrics) SetState(state int) {
	if m == nil {
		return
	}
	m.simulationState.Set(float64(state))
}
