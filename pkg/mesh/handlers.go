package mesh

import (
	"github.com/painlessmesh/gomesh/pkg/mesh/bridge"
	"github.com/painlessmesh/gomesh/pkg/mesh/core"
	"github.com/painlessmesh/gomesh/pkg/mesh/timesync"
	"github.com/painlessmesh/gomesh/pkg/mesh/types"
)

// registerInternalHandlers installs the handlers for every internal
// protocol and bridge-subsystem package type. TIME_SYNC and
// NODE_SYNC_REPLY are marked non-propagating: they ride NEIGHBOUR routing
// already (never forwarded), but the Router's §4.D open-question
// resolution only suppresses forwarding via this registry, so registering
// them here documents the intent even though it's currently a no-op for
// NEIGHBOUR-routed types.
func (m *Mesh) registerInternalHandlers() {
	m.table.SetNonPropagating(types.TypeTimeSync)
	m.table.SetNonPropagating(types.TypeNodeSyncReply)

	m.table.Register(types.TypeNodeSyncReq, m.onNodeSyncReq)
	m.table.Register(types.TypeNodeSyncReply, m.onNodeSyncReply)
	m.table.Register(types.TypeTimeSync, m.onTimeSync)

	m.table.Register(types.TypeBridgeStatus, m.onBridgeStatus)
	m.table.Register(types.TypeBridgeElection, m.onBridgeElection)
	m.table.Register(types.TypeBridgeTakeover, m.onBridgeTakeover)
	m.table.Register(types.TypeBridgeCoordinate, m.onBridgeCoordinate)
	m.table.Register(types.TypeNTPTimeSync, m.onNTP)
}

func (m *Mesh) onNodeSyncReq(v types.Variant, link types.ConnectionId, origin types.NodeId) bool {
	var req core.NodeSyncRequest
	if err := v.Unmarshal(&req); err != nil {
		return true
	}
	now := m.nowMs()
	m.registry.UpdateSubtree(link, req.Subtree, now)
	m.layout.NoteLinkChange()

	reply := core.NodeSyncReply{Subtree: m.layout.SubtreeExcluding(link)}
	rv, err := types.NewVariant(types.TypeNodeSyncReply, m.self, origin, types.RoutingNeighbour, reply)
	if err != nil {
		return true
	}
	frame, err := rv.Encode()
	if err != nil {
		return true
	}
	if err := m.registry.Unicast(link, frame); err != nil && m.log != nil {
		m.log.Debugf("node sync reply send failed: %v", err)
	}
	return true
}

func (m *Mesh) onNodeSyncReply(v types.Variant, link types.ConnectionId, origin types.NodeId) bool {
	_ = origin
	var reply core.NodeSyncReply
	if err := v.Unmarshal(&reply); err != nil {
		return true
	}
	m.registry.UpdateSubtree(link, reply.Subtree, m.nowMs())
	m.layout.NoteLinkChange()
	return true
}

func (m *Mesh) onTimeSync(v types.Variant, link types.ConnectionId, origin types.NodeId) bool {
	var msg timesync.Message
	if err := v.Unmarshal(&msg); err != nil {
		return true
	}
	m.peerAuthority[origin] = msg.HasAuthority

	switch msg.Step {
	case timesync.StepRequest:
		reply := m.sync.HandleRequest(msg, m.meshMicros())
		m.sendTimeSync(origin, link, reply)
	case timesync.StepRespond:
		reply, ok := m.sync.HandleResponse(origin, msg, m.meshMicros(), m.nowMs())
		if ok {
			m.sendTimeSync(origin, link, reply)
		}
	case timesync.StepFinalize:
		m.sync.HandleFinalize(origin, msg, m.nowMs())
	}
	return true
}

func (m *Mesh) sendTimeSync(dest types.NodeId, link types.ConnectionId, msg timesync.Message) {
	v, err := types.NewVariant(types.TypeTimeSync, m.self, dest, types.RoutingNeighbour, msg)
	if err != nil {
		return
	}
	frame, err := v.Encode()
	if err != nil {
		return
	}
	if err := m.registry.Unicast(link, frame); err != nil && m.log != nil {
		m.log.Debugf("time sync send failed: %v", err)
	}
}

func (m *Mesh) onBridgeStatus(v types.Variant, link types.ConnectionId, origin types.NodeId) bool {
	_ = link
	var msg bridge.StatusMessage
	if err := v.Unmarshal(&msg); err != nil {
		return true
	}
	now := m.nowMs()
	m.bridgeTable.Update(origin, msg, now)
	if !msg.InternetConnected {
		if primary, ok := m.bridgeTable.GetPrimaryBridge(now); !ok || primary.NodeId == origin {
			m.maybeTriggerElection(now)
		}
	}
	return true
}

func (m *Mesh) onBridgeElection(v types.Variant, link types.ConnectionId, origin types.NodeId) bool {
	_ = link
	var msg bridge.ElectionMessage
	if err := v.Unmarshal(&msg); err != nil {
		return true
	}
	m.election.AddCandidate(origin, msg)
	return true
}

func (m *Mesh) onBridgeTakeover(v types.Variant, link types.ConnectionId, origin types.NodeId) bool {
	_ = link
	var msg bridge.TakeoverMessage
	if err := v.Unmarshal(&msg); err != nil {
		return true
	}
	m.election.HandleTakeover(msg, origin)
	m.lastPrimaryBridge = origin
	return true
}

func (m *Mesh) onBridgeCoordinate(v types.Variant, link types.ConnectionId, origin types.NodeId) bool {
	_ = link
	var msg bridge.CoordinationMessage
	if err := v.Unmarshal(&msg); err != nil {
		return true
	}
	m.coordinator.Update(origin, msg)
	return true
}

func (m *Mesh) onNTP(v types.Variant, link types.ConnectionId, origin types.NodeId) bool {
	_ = link
	var msg bridge.NTPMessage
	if err := v.Unmarshal(&msg); err != nil {
		return true
	}
	authority := m.peerAuthority[origin]
	offset, adopt := m.ntp.Accept(authority, msg, m.meshMicros())
	if adopt {
		m.sync.AdoptOffset(offset, m.nowMs())
	}
	return true
}
