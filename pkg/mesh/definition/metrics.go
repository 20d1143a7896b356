package definition

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/painlessmesh/gomesh/pkg/mesh/types"
)

// PrometheusMetrics is a types.Metrics backed by client_golang gauges and
// counters. It registers itself on the supplied registerer so multiple
// meshes in one process don't collide on metric names.
type PrometheusMetrics struct {
	queueDepth      *prometheus.GaugeVec
	queueDropped    *prometheus.CounterVec
	bridgeHealthy   *prometheus.GaugeVec
	electionOutcome *prometheus.CounterVec
}

// NewPrometheusMetrics registers the mesh metric families on reg and
// returns a types.Metrics backed by them.
func NewPrometheusMetrics(reg prometheus.Registerer) *PrometheusMetrics {
	m := &PrometheusMetrics{
		queueDepth: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "gomesh_queue_depth",
			Help: "Number of queued messages per priority class.",
		}, []string{"priority"}),
		queueDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gomesh_queue_dropped_total",
			Help: "Messages dropped from the priority queue, by priority class.",
		}, []string{"priority"}),
		bridgeHealthy: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "gomesh_bridge_healthy",
			Help: "1 if the bridge nodeId is currently healthy, else 0.",
		}, []string{"node_id"}),
		electionOutcome: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gomesh_bridge_elections_total",
			Help: "Bridge elections this node participated in, by outcome.",
		}, []string{"outcome"}),
	}
	reg.MustRegister(m.queueDepth, m.queueDropped, m.bridgeHealthy, m.electionOutcome)
	return m
}

func (m *PrometheusMetrics) SetQueueDepth(priority types.Priority, count int) {
	m.queueDepth.WithLabelValues(priority.String()).Set(float64(count))
}

func (m *PrometheusMetrics) IncQueueDropped(priority types.Priority) {
	m.queueDropped.WithLabelValues(priority.String()).Inc()
}

func (m *PrometheusMetrics) SetBridgeHealthy(nodeId types.NodeId, healthy bool) {
	v := 0.0
	if healthy {
		v = 1.0
	}
	m.bridgeHealthy.WithLabelValues(strconv.FormatUint(uint64(nodeId), 10)).Set(v)
}

func (m *PrometheusMetrics) IncElectionOutcome(won bool) {
	outcome := "lost"
	if won {
		outcome = "won"
	}
	m.electionOutcome.WithLabelValues(outcome).Inc()
}
