package definition

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"

	"github.com/painlessmesh/gomesh/pkg/mesh/types"
)

func TestPrometheusMetrics_SetQueueDepth(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewPrometheusMetrics(reg)

	m.SetQueueDepth(types.Critical, 3)

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather: %v", err)
	}
	got := findMetric(families, "gomesh_queue_depth", "priority", types.Critical.String())
	if got == nil || got.Gauge.GetValue() != 3 {
		t.Fatalf("expected gomesh_queue_depth{priority=%q}=3, got %+v", types.Critical.String(), got)
	}
}

func TestPrometheusMetrics_IncQueueDropped(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewPrometheusMetrics(reg)

	m.IncQueueDropped(types.Low)
	m.IncQueueDropped(types.Low)

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather: %v", err)
	}
	got := findMetric(families, "gomesh_queue_dropped_total", "priority", types.Low.String())
	if got == nil || got.Counter.GetValue() != 2 {
		t.Fatalf("expected gomesh_queue_dropped_total{priority=%q}=2, got %+v", types.Low.String(), got)
	}
}

func TestPrometheusMetrics_SetBridgeHealthy(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewPrometheusMetrics(reg)

	m.SetBridgeHealthy(42, true)
	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather: %v", err)
	}
	got := findMetric(families, "gomesh_bridge_healthy", "node_id", "42")
	if got == nil || got.Gauge.GetValue() != 1 {
		t.Fatalf("expected gomesh_bridge_healthy{node_id=\"42\"}=1, got %+v", got)
	}

	m.SetBridgeHealthy(42, false)
	families, _ = reg.Gather()
	got = findMetric(families, "gomesh_bridge_healthy", "node_id", "42")
	if got == nil || got.Gauge.GetValue() != 0 {
		t.Fatalf("expected gomesh_bridge_healthy{node_id=\"42\"}=0 after going unhealthy, got %+v", got)
	}
}

func TestPrometheusMetrics_IncElectionOutcome(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewPrometheusMetrics(reg)

	m.IncElectionOutcome(true)
	m.IncElectionOutcome(false)
	m.IncElectionOutcome(false)

	families, _ := reg.Gather()
	won := findMetric(families, "gomesh_bridge_elections_total", "outcome", "won")
	lost := findMetric(families, "gomesh_bridge_elections_total", "outcome", "lost")
	if won == nil || won.Counter.GetValue() != 1 {
		t.Fatalf("expected 1 won outcome, got %+v", won)
	}
	if lost == nil || lost.Counter.GetValue() != 2 {
		t.Fatalf("expected 2 lost outcomes, got %+v", lost)
	}
}

func findMetric(families []*dto.MetricFamily, name, labelName, labelValue string) *dto.Metric {
	for _, f := range families {
		if f.GetName() != name {
			continue
		}
		for _, m := range f.Metric {
			for _, l := range m.Label {
				if l.GetName() == labelName && l.GetValue() == labelValue {
					return m
				}
			}
		}
	}
	return nil
}
