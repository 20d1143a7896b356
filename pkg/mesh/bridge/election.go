package bridge

import (
	"sort"

	"github.com/painlessmesh/gomesh/pkg/mesh/types"
)

// DefaultElectionDeadlineMs is the default Collecting-phase deadline
// (§4.G.2).
const DefaultElectionDeadlineMs = 5_000

// RoleChangeRateLimitMs: a node refuses to start an election within this
// many milliseconds of its own last role change.
const RoleChangeRateLimitMs = 60_000

// ElectionMessage is the BridgeElectionPackage body (type 611).
type ElectionMessage struct {
	RouterRSSI int8   `json:"routerRSSI"`
	UptimeMs   uint64 `json:"uptimeMs"`
	FreeMemory uint32 `json:"freeMemory"`
	RouterSSID string `json:"routerSSID"`
}

// TakeoverMessage is the BridgeTakeoverPackage body (type 612).
type TakeoverMessage struct {
	PreviousBridge types.NodeId `json:"previousBridge"`
	Reason         string       `json:"reason"`
}

// Election drives the bounded protocol by which nodes agree on a new
// primary bridge (§4.G.2). It holds ElectionPhase + candidates and nothing
// else; the owning Mesh is responsible for wiring its RSSI scan, uptime,
// free-memory and promotion callbacks.
type Election struct {
	self types.NodeId

	phase      types.ElectionPhase
	candidates map[types.NodeId]types.BridgeCandidate
	order      []types.NodeId // first-seen order, for dedupe-first-wins

	deadlineMs      uint64
	lastRoleChangeMs uint64

	scanRSSI   func(ssid string) int8
	uptimeMs   func() uint64
	freeMemory func() uint32
	ssid       func() (string, bool)

	metrics types.Metrics
	log     types.Logger

	onRoleChanged func(becamePrimary bool, reason string)
}

// NewElection builds an Election for node self.
func NewElection(self types.NodeId, scanRSSI func(string) int8, uptimeMs func() uint64, freeMemory func() uint32, ssid func() (string, bool), metrics types.Metrics, log types.Logger) *Election {
	if metrics == nil {
		metrics = types.NopMetrics{}
	}
	return &Election{
		self:       self,
		phase:      types.ElectionIdle,
		candidates: make(map[types.NodeId]types.BridgeCandidate),
		scanRSSI:   scanRSSI,
		uptimeMs:   uptimeMs,
		freeMemory: freeMemory,
		ssid:       ssid,
		metrics:    metrics,
		log:        log,
	}
}

// OnBridgeRoleChanged registers the callback fired when this node's bridge
// role changes, either by winning an election or by observing another
// node's takeover while Collecting.
func (e *Election) OnBridgeRoleChanged(cb func(becamePrimary bool, reason string)) {
	e.onRoleChanged = cb
}

// Phase returns the current ElectionPhase.
func (e *Election) Phase() types.ElectionPhase {
	return e.phase
}

// Trigger attempts to start an election (§4.G.2 step 1-2). It returns
// ErrNotEligible if an election is already running (its phase is left as
// it is) or no router SSID is configured, ErrRateLimited if within
// RoleChangeRateLimitMs of the last role change, or ErrRouterNotVisible if
// the configured SSID isn't visible; in the last three cases the phase
// stays or returns to Idle.
func (e *Election) Trigger(nowMs uint64, deadlineMs uint64) (ElectionMessage, error) {
	if e.phase != types.ElectionIdle {
		return ElectionMessage{}, types.ErrNotEligible
	}
	if e.lastRoleChangeMs != 0 && nowMs-e.lastRoleChangeMs < RoleChangeRateLimitMs {
		return ElectionMessage{}, types.ErrRateLimited
	}

	ssid, configured := e.ssid()
	if !configured {
		return ElectionMessage{}, types.ErrNotEligible
	}

	e.phase = types.ElectionScanning
	rssi := e.scanRSSI(ssid)
	if rssi == 0 {
		e.phase = types.ElectionIdle
		return ElectionMessage{}, types.ErrRouterNotVisible
	}

	msg := ElectionMessage{RouterRSSI: rssi, UptimeMs: e.uptimeMs(), FreeMemory: e.freeMemory(), RouterSSID: ssid}

	e.candidates = map[types.NodeId]types.BridgeCandidate{
		e.self: {NodeId: e.self, RouterRSSI: rssi, UptimeMs: msg.UptimeMs, FreeMemory: msg.FreeMemory},
	}
	e.order = []types.NodeId{e.self}
	if deadlineMs == 0 {
		deadlineMs = DefaultElectionDeadlineMs
	}
	e.deadlineMs = nowMs + deadlineMs
	e.phase = types.ElectionCollecting
	return msg, nil
}

// AddCandidate accumulates a received Election package while Collecting,
// deduplicating by nodeId (first-seen wins). Ignored outside Collecting.
func (e *Election) AddCandidate(from types.NodeId, msg ElectionMessage) {
	if e.phase != types.ElectionCollecting {
		return
	}
	if _, seen := e.candidates[from]; seen {
		return
	}
	e.candidates[from] = types.BridgeCandidate{NodeId: from, RouterRSSI: msg.RouterRSSI, UptimeMs: msg.UptimeMs, FreeMemory: msg.FreeMemory}
	e.order = append(e.order, from)
}

// Expired reports whether the Collecting deadline has passed.
func (e *Election) Expired(nowMs uint64) bool {
	return e.phase == types.ElectionCollecting && nowMs >= e.deadlineMs
}

// Conclude resolves a Collecting election at its deadline: picks the
// winner by (RSSI desc, uptime desc, freeMemory desc, nodeId asc), resets
// to Idle, and reports whether self won (§I7).
func (e *Election) Conclude(nowMs uint64) (winner types.NodeId, won bool) {
	if e.phase != types.ElectionCollecting {
		return 0, false
	}

	winner = Winner(e.candidates)
	won = winner == e.self

	e.phase = types.ElectionIdle
	e.candidates = make(map[types.NodeId]types.BridgeCandidate)
	e.order = nil
	e.metrics.IncElectionOutcome(won)

	if won {
		e.lastRoleChangeMs = nowMs
		if e.onRoleChanged != nil {
			e.onRoleChanged(true, "won election")
		}
	}
	return winner, won
}

// Winner is the pure §I7 election-winner function: higher routerRSSI, then
// higher uptime, then higher freeMemory, then lower nodeId.
func Winner(candidates map[types.NodeId]types.BridgeCandidate) types.NodeId {
	list := make([]types.BridgeCandidate, 0, len(candidates))
	for _, c := range candidates {
		list = append(list, c)
	}
	sort.Slice(list, func(i, j int) bool {
		a, b := list[i], list[j]
		if a.RouterRSSI != b.RouterRSSI {
			return a.RouterRSSI > b.RouterRSSI
		}
		if a.UptimeMs != b.UptimeMs {
			return a.UptimeMs > b.UptimeMs
		}
		if a.FreeMemory != b.FreeMemory {
			return a.FreeMemory > b.FreeMemory
		}
		return a.NodeId < b.NodeId
	})
	if len(list) == 0 {
		return 0
	}
	return list[0].NodeId
}

// HandleTakeover reacts to a BridgeTakeoverPackage from another node: if
// this node was Collecting (it lost the race to broadcast/observe the
// result), it aborts to Idle and fires onBridgeRoleChanged(false, ...).
func (e *Election) HandleTakeover(msg TakeoverMessage, from types.NodeId) {
	if e.phase != types.ElectionCollecting || from == e.self {
		return
	}
	e.phase = types.ElectionIdle
	e.candidates = make(map[types.NodeId]types.BridgeCandidate)
	e.order = nil
	if e.onRoleChanged != nil {
		e.onRoleChanged(false, "Another node won election")
	}
}
