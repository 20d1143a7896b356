// Package bridge implements the Bridge Subsystem (§4.G): status
// heartbeats, leader election with takeover, multi-bridge coordination and
// NTP time distribution.
package bridge

import (
	"sort"
	"sync"

	"github.com/painlessmesh/gomesh/pkg/mesh/types"
)

// StatusMessage is the BridgeStatusPackage body (type 610).
type StatusMessage struct {
	InternetConnected bool   `json:"internetConnected"`
	RouterRSSI        int8   `json:"routerRSSI"`
	RouterChannel     uint8  `json:"routerChannel"`
	UptimeMs          uint64 `json:"uptimeMs"`
	GatewayIp         string `json:"gatewayIp"`
	Timestamp         uint64 `json:"timestamp"`
}

// DefaultStatusPeriodMs is the default BridgeStatus broadcast period.
const DefaultStatusPeriodMs = 10_000

// tableEntryTTLFactor prunes a BridgeTable entry after this many missed status
// periods (§4.G.3 expansion): general hygiene, independent of the 60s
// "primary aged out" election trigger.
const tableEntryTTLFactor = 3

// Table tracks every bridge this node has heard from.
type Table struct {
	mutex sync.Mutex
	self  types.NodeId

	entries map[types.NodeId]types.BridgeInfo

	metrics types.Metrics

	onStatusChanged func(bridgeId types.NodeId, hasInternet bool)

	primaryId  types.NodeId
	havePrimary bool
}

// NewTable builds an empty bridge table for node self.
func NewTable(self types.NodeId, metrics types.Metrics) *Table {
	if metrics == nil {
		metrics = types.NopMetrics{}
	}
	return &Table{self: self, entries: make(map[types.NodeId]types.BridgeInfo), metrics: metrics}
}

// OnBridgeStatusChanged registers the callback fired when the primary
// bridge's InternetConnected flag changes.
func (t *Table) OnBridgeStatusChanged(cb func(bridgeId types.NodeId, hasInternet bool)) {
	t.onStatusChanged = cb
}

// Update applies a received BridgeStatusPackage from `from`, assigning
// priority (derived externally, e.g. from configuration — see
// SetPriority) and firing onBridgeStatusChanged if this was the primary and
// its connectivity flipped.
func (t *Table) Update(from types.NodeId, msg StatusMessage, nowMs uint64) {
	t.mutex.Lock()

	prevPrimary, hadPrimary := t.primaryLocked(nowMs)

	prev, existed := t.entries[from]
	priority := prev.Priority
	info := types.BridgeInfo{
		NodeId:            from,
		InternetConnected: msg.InternetConnected,
		RouterRSSI:        msg.RouterRSSI,
		RouterChannel:     msg.RouterChannel,
		UptimeMs:          msg.UptimeMs,
		GatewayIp:         msg.GatewayIp,
		LastSeenMs:        nowMs,
		Priority:          priority,
	}
	t.entries[from] = info
	t.metrics.SetBridgeHealthy(from, info.Healthy(nowMs))
	t.mutex.Unlock()

	if existed && hadPrimary && prevPrimary.NodeId == from && prevPrimary.InternetConnected != info.InternetConnected {
		if t.onStatusChanged != nil {
			t.onStatusChanged(from, info.InternetConnected)
		}
	}
}

// SetPriority sets the configured priority for a bridge entry (created
// lazily if this node hasn't seen a status from it yet).
func (t *Table) SetPriority(id types.NodeId, priority uint8) {
	t.mutex.Lock()
	defer t.mutex.Unlock()
	e := t.entries[id]
	e.NodeId = id
	e.Priority = priority
	t.entries[id] = e
}

// GetPrimaryBridge returns the healthy bridge with the highest priority,
// breaking ties by best RSSI, then highest uptime, then smallest nodeId.
func (t *Table) GetPrimaryBridge(nowMs uint64) (types.BridgeInfo, bool) {
	t.mutex.Lock()
	defer t.mutex.Unlock()
	return t.primaryLocked(nowMs)
}

func (t *Table) primaryLocked(nowMs uint64) (types.BridgeInfo, bool) {
	healthy := t.healthyLocked(nowMs)
	if len(healthy) == 0 {
		return types.BridgeInfo{}, false
	}
	sortByPrimaryPreference(healthy)
	return healthy[0], true
}

func (t *Table) healthyLocked(nowMs uint64) []types.BridgeInfo {
	var out []types.BridgeInfo
	for _, e := range t.entries {
		if e.Healthy(nowMs) {
			out = append(out, e)
		}
	}
	return out
}

// Healthy returns a snapshot of every currently-healthy bridge.
func (t *Table) Healthy(nowMs uint64) []types.BridgeInfo {
	t.mutex.Lock()
	defer t.mutex.Unlock()
	return t.healthyLocked(nowMs)
}

// HasInternetConnection reports whether any healthy bridge exists.
func (t *Table) HasInternetConnection(nowMs uint64) bool {
	t.mutex.Lock()
	defer t.mutex.Unlock()
	return len(t.healthyLocked(nowMs)) > 0
}

// Prune drops entries not refreshed within tableEntryTTLFactor x periodMs,
// general hygiene independent of the primary-aging election trigger.
func (t *Table) Prune(periodMs uint64, nowMs uint64) {
	t.mutex.Lock()
	defer t.mutex.Unlock()
	ttl := periodMs * tableEntryTTLFactor
	for id, e := range t.entries {
		if nowMs >= e.LastSeenMs+ttl {
			delete(t.entries, id)
			t.metrics.SetBridgeHealthy(id, false)
		}
	}
}

// sortByPrimaryPreference orders bridges by the §4.G.1 preference rule:
// higher priority, then better (larger) RSSI, then higher uptime, then
// smaller nodeId.
func sortByPrimaryPreference(bridges []types.BridgeInfo) {
	sort.Slice(bridges, func(i, j int) bool {
		a, b := bridges[i], bridges[j]
		if a.Priority != b.Priority {
			return a.Priority > b.Priority
		}
		if a.RouterRSSI != b.RouterRSSI {
			return a.RouterRSSI > b.RouterRSSI
		}
		if a.UptimeMs != b.UptimeMs {
			return a.UptimeMs > b.UptimeMs
		}
		return a.NodeId < b.NodeId
	})
}
