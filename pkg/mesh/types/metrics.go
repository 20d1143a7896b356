package types

// Metrics is a purely observational seam: implementations record counters
// and gauges but never influence routing, election or queue decisions.
type Metrics interface {
	SetQueueDepth(priority Priority, count int)
	IncQueueDropped(priority Priority)
	SetBridgeHealthy(nodeId NodeId, healthy bool)
	IncElectionOutcome(won bool)
}

// NopMetrics discards every observation. It is the default when no Metrics
// implementation is supplied.
type NopMetrics struct{}

func (NopMetrics) SetQueueDepth(Priority, int)       {}
func (NopMetrics) IncQueueDropped(Priority)           {}
func (NopMetrics) SetBridgeHealthy(NodeId, bool)      {}
func (NopMetrics) IncElectionOutcome(bool)            {}
