package mesh

import (
	"strconv"
	"time"

	"github.com/painlessmesh/gomesh/pkg/mesh/bridge"
	"github.com/painlessmesh/gomesh/pkg/mesh/scheduler"
	"github.com/painlessmesh/gomesh/pkg/mesh/types"
)

// scheduleInternalTasks registers every periodic task the core itself
// relies on: time sync refresh, queue flush, and bridge-subsystem
// maintenance (status heartbeat, election deadline checks, coordination
// heartbeat). All timing flows through the Scheduler Facade per §9's
// "timers and callbacks" rule — nothing here starts its own goroutine or
// time.Timer.
func (m *Mesh) scheduleInternalTasks() {
	now := time.Now()
	m.sched.AddTask(now, TimeSyncPeriod, scheduler.Forever, m.refreshTimeSync)
	m.sched.AddTask(now, QueueFlushPeriod, scheduler.Forever, m.flushQueue)
	m.sched.AddTask(now, BridgeMaintenancePeriod, scheduler.Forever, m.bridgeMaintenance)
	m.sched.AddTask(now, bridge.DefaultStatusPeriodMs*time.Millisecond, scheduler.Forever, m.broadcastBridgeStatus)
	m.sched.AddTask(now, bridge.DefaultCoordinationPeriodMs*time.Millisecond, scheduler.Forever, m.broadcastCoordination)
}

// refreshTimeSync re-runs the exchange with every current neighbor, per
// §4.F's "periodically (default every 10s)" clause.
func (m *Mesh) refreshTimeSync() {
	for _, c := range m.registry.Connections() {
		m.beginTimeSync(c.PeerId, c.Id)
	}
}

// flushQueue attempts delivery of every queued message. Destination is the
// decimal string form of a NodeId; a destination that doesn't parse is
// treated as a permanent failure (it will exhaust maxAttempts and be
// dropped rather than retried forever).
func (m *Mesh) flushQueue() {
	m.queue.FlushQueue(func(msg types.QueuedMessage) error {
		destId, err := strconv.ParseUint(msg.Destination, 10, 32)
		if err != nil {
			return err
		}
		return m.SendSingle(types.NodeId(destId), types.UserTypeRangeStart, msg.Payload)
	})
}

// bridgeMaintenance prunes stale bridge table entries, checks whether an
// ongoing election has hit its deadline, and checks whether a new one
// should start because the primary bridge aged out silently (without ever
// sending an internetConnected=false status).
func (m *Mesh) bridgeMaintenance() {
	now := m.nowMs()
	if primary, ok := m.bridgeTable.GetPrimaryBridge(now); ok {
		m.lastPrimaryBridge = primary.NodeId
	}
	m.bridgeTable.Prune(bridge.DefaultStatusPeriodMs, now)

	if m.election.Expired(now) {
		_, won := m.election.Conclude(now)
		if won {
			m.promoteToBridge(m.lastPrimaryBridge)
		}
	}

	if !m.bridgeTable.HasInternetConnection(now) {
		m.maybeTriggerElection(now)
	}
}

// maybeTriggerElection applies the §4.G.2 trigger condition and, if met,
// starts the election and broadcasts this node's candidacy.
func (m *Mesh) maybeTriggerElection(now uint64) {
	if !m.cfg.EnableBridgeFailover {
		return
	}
	if m.cfg.RouterSSID == "" {
		return
	}
	if m.election.Phase() != types.ElectionIdle {
		return
	}
	msg, err := m.election.Trigger(now, m.cfg.ElectionDeadlineMs)
	if err != nil {
		if m.log != nil {
			m.log.Debugf("election not started: %v", err)
		}
		return
	}
	_ = m.SendBroadcast(types.TypeBridgeElection, msg)
}

// promoteToBridge performs the §4.G.2 step-5 promotion. Per §4.G.5's hard
// contract, this callback must not schedule new tasks against a scheduler
// mid-teardown; this module never tears down its Scheduler, so promotion
// just flips state and lets the already-registered broadcastBridgeStatus
// task pick up isBridge on its next tick.
func (m *Mesh) promoteToBridge(previous types.NodeId) {
	m.isBridge = true
	_ = m.platform.StationDisconnect()
	takeover := bridge.TakeoverMessage{PreviousBridge: previous, Reason: "won election"}
	_ = m.SendBroadcast(types.TypeBridgeTakeover, takeover)
}

// broadcastBridgeStatus implements §4.G.1's periodic heartbeat, a no-op
// unless this node currently is a bridge.
func (m *Mesh) broadcastBridgeStatus() {
	if !m.isBridge {
		return
	}
	ssid, _ := m.routerSSID()
	msg := bridge.StatusMessage{
		InternetConnected: true,
		RouterRSSI:        m.platform.RouterScan(ssid),
		RouterChannel:     m.cfg.MeshChannel,
		UptimeMs:          m.nowMs(),
		Timestamp:         m.nowMs(),
	}
	_ = m.SendBroadcast(types.TypeBridgeStatus, msg)
	m.bridgeTable.SetPriority(m.self, m.bridgePriority)
}

// broadcastCoordination implements §4.G.3's periodic heartbeat, a no-op
// unless this node is a bridge with multi-bridge coordination enabled.
func (m *Mesh) broadcastCoordination() {
	if !m.isBridge || !m.cfg.EnableMultiBridge {
		return
	}
	msg := bridge.CoordinationMessage{
		Priority:  m.bridgePriority,
		Role:      types.BridgeInfo{Priority: m.bridgePriority}.Role(),
		Timestamp: m.nowMs(),
	}
	_ = m.SendBroadcast(types.TypeBridgeCoordinate, msg)
}
