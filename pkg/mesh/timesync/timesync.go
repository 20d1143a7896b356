// Package timesync implements the Time Synchronization component (§4.F):
// a three-step pairwise offset negotiation with an authority-aware
// adoption rule.
package timesync

import (
	"github.com/painlessmesh/gomesh/pkg/mesh/types"
)

// Step is the TIME_SYNC message's position in the three-step exchange.
type Step uint8

const (
	StepRequest  Step = 0
	StepRespond  Step = 1
	StepFinalize Step = 2
)

// Message is the TIME_SYNC packet body.
type Message struct {
	Step Step   `json:"step"`
	T0   int64  `json:"t0"`
	T1   int64  `json:"t1,omitempty"`
	T2   int64  `json:"t2,omitempty"`
	T3   int64  `json:"t3,omitempty"`
	// HasAuthority and SubnetSize let the peer apply the adoption rule
	// without a separate lookup.
	HasAuthority bool   `json:"hasAuthority"`
	SubnetSize   uint32 `json:"subnetSize"`
}

// pendingExchange tracks an initiator-side negotiation awaiting step 1.
type pendingExchange struct {
	t0 int64
}

// Sync owns one node's TimeState and drives the exchange with its peers.
type Sync struct {
	state types.TimeState
	self  types.NodeId

	pending map[types.NodeId]pendingExchange

	onAdjusted func(deltaMicros int64)

	log types.Logger
}

// New builds a Sync for node self with a fresh TimeState.
func New(self types.NodeId, log types.Logger) *Sync {
	return &Sync{self: self, pending: make(map[types.NodeId]pendingExchange), log: log}
}

// OnNodeTimeAdjusted registers the callback fired when an adoption occurs.
func (s *Sync) OnNodeTimeAdjusted(cb func(deltaMicros int64)) {
	s.onAdjusted = cb
}

// State returns the current TimeState.
func (s *Sync) State() types.TimeState {
	return s.state
}

// SetAuthority sets whether this node's time source is trusted (driven
// externally by an RTC provider or gateway-status signal, §4.F).
func (s *Sync) SetAuthority(authoritative bool) {
	s.state.HasAuthority = authoritative
}

// SetSubnetSize records how many nodes this node can currently see, used
// as the A==B tie-break input.
func (s *Sync) SetSubnetSize(n uint32) {
	s.state.SubnetSize = n
}

// MeshMicros returns localMicros corrected by the node's current offset.
func (s *Sync) MeshMicros(localMicros int64) int64 {
	return s.state.MeshMicros(localMicros)
}

// BeginExchange starts step 0 on a new or renewed connection: the
// initiator sends TIME_SYNC(step=0, t0).
func (s *Sync) BeginExchange(peer types.NodeId, nowMeshMicros int64) Message {
	s.pending[peer] = pendingExchange{t0: nowMeshMicros}
	return Message{Step: StepRequest, T0: nowMeshMicros, HasAuthority: s.state.HasAuthority, SubnetSize: s.state.SubnetSize}
}

// HandleRequest is the responder's reaction to step 0: reply with
// TIME_SYNC(step=1, t0, t1=now, t2=now).
func (s *Sync) HandleRequest(msg Message, nowMeshMicros int64) Message {
	return Message{
		Step: StepRespond,
		T0:   msg.T0,
		T1:   nowMeshMicros,
		T2:   nowMeshMicros,
		HasAuthority: s.state.HasAuthority,
		SubnetSize:   s.state.SubnetSize,
	}
}

// HandleResponse is the initiator's reaction to step 1: compute the offset,
// apply the authority-aware adoption rule, and return the step-2 message
// the responder needs to mirror the correction (or ok=false if there was
// no matching pending exchange, e.g. it timed out already).
func (s *Sync) HandleResponse(peer types.NodeId, msg Message, t3 int64, nowMs uint64) (Message, bool) {
	pend, ok := s.pending[peer]
	if !ok {
		return Message{}, false
	}
	delete(s.pending, peer)

	offset := ((msg.T1 - pend.t0) + (msg.T2 - t3)) / 2
	s.adopt(peer, msg.HasAuthority, msg.SubnetSize, offset, nowMs)

	return Message{
		Step: StepFinalize,
		T0:   pend.t0,
		T1:   msg.T1,
		T2:   msg.T2,
		T3:   t3,
		HasAuthority: s.state.HasAuthority,
		SubnetSize:   s.state.SubnetSize,
	}, true
}

// HandleFinalize is the responder's reaction to step 2: mirror the same
// correction the initiator computed, under the same adoption rule.
func (s *Sync) HandleFinalize(peer types.NodeId, msg Message, nowMs uint64) {
	offset := ((msg.T1 - msg.T0) + (msg.T2 - msg.T3)) / 2
	s.adopt(peer, msg.HasAuthority, msg.SubnetSize, -offset, nowMs)
}

// AdoptOffset unconditionally integrates deltaMicros and marks this node
// authoritative. Used by the NTP distributor, which has already applied
// §4.G.4's acceptance rule before calling this.
func (s *Sync) AdoptOffset(deltaMicros int64, nowMs uint64) {
	s.state.HasAuthority = true
	s.state.NodeOffsetMicros += deltaMicros
	s.state.LastSyncMs = nowMs
	if s.onAdjusted != nil {
		s.onAdjusted(deltaMicros)
	}
}

// adopt applies the authority-aware correction rule from §4.F:
//
//	A && !B: keep local time, discard.
//	!A && B: adopt peer time in full.
//	A == B: adopt if peer's subnet is larger, else prefer smaller nodeId.
func (s *Sync) adopt(peer types.NodeId, peerAuthority bool, peerSubnet uint32, offset int64, nowMs uint64) {
	a, b := s.state.HasAuthority, peerAuthority

	adopt := false
	switch {
	case a && !b:
		adopt = false
	case !a && b:
		adopt = true
	default: // a == b
		if peerSubnet > s.state.SubnetSize {
			adopt = true
		} else if peerSubnet == s.state.SubnetSize {
			adopt = peer < s.self
		}
	}

	if !adopt {
		return
	}

	s.state.NodeOffsetMicros += offset
	s.state.LastSyncMs = nowMs
	if s.onAdjusted != nil {
		s.onAdjusted(offset)
	}
}
