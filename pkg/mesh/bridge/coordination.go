package bridge

import (
	"sort"
	"sync"

	"github.com/painlessmesh/gomesh/pkg/mesh/types"
)

// DefaultCoordinationPeriodMs is the default BridgeCoordinationPackage
// broadcast period (§4.G.3).
const DefaultCoordinationPeriodMs = 30_000

// DefaultMaxBridges and MaxBridgesHardCap bound how many bridges
// selectBridge() will consider.
const (
	DefaultMaxBridges = 2
	MaxBridgesHardCap = 5
)

// CoordinationMessage is the BridgeCoordinationPackage body (type 613).
type CoordinationMessage struct {
	Priority    uint8          `json:"priority"`
	Role        types.BridgeRole `json:"role"`
	PeerBridges []types.NodeId `json:"peerBridges"`
	Load        uint8          `json:"load"`
	Timestamp   uint64         `json:"timestamp"`
}

// Coordinator implements multi-bridge outbound selection (§4.G.3).
type Coordinator struct {
	mutex sync.Mutex

	table    *Table
	strategy types.BridgeSelectionStrategy
	maxBridges int

	priorities map[types.NodeId]uint8

	roundRobinIdx int
	override      types.NodeId
	overrideSet   bool
}

// NewCoordinator builds a Coordinator reading health from table.
func NewCoordinator(table *Table) *Coordinator {
	return &Coordinator{
		table:      table,
		strategy:   types.StrategyPriorityBased,
		maxBridges: DefaultMaxBridges,
		priorities: make(map[types.NodeId]uint8),
	}
}

// SetStrategy sets the outbound selection strategy.
func (c *Coordinator) SetStrategy(s types.BridgeSelectionStrategy) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.strategy = s
}

// SetMaxBridges bounds how many healthy bridges are considered. A value
// outside [1, MaxBridgesHardCap] is rejected with ErrInvalidValue.
func (c *Coordinator) SetMaxBridges(n int) error {
	if n < 1 || n > MaxBridgesHardCap {
		return types.ErrInvalidValue
	}
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.maxBridges = n
	return nil
}

// Update records a received BridgeCoordinationPackage's priority.
func (c *Coordinator) Update(from types.NodeId, msg CoordinationMessage) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.priorities[from] = msg.Priority
	c.table.SetPriority(from, msg.Priority)
}

// OverrideNext makes the next SelectBridge call return nodeId regardless of
// strategy, superseding it for exactly one subsequent send.
func (c *Coordinator) OverrideNext(nodeId types.NodeId) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.override = nodeId
	c.overrideSet = true
}

// SelectBridge picks the outbound bridge per the configured strategy
// (§4.G.3), honoring a pending one-shot override.
func (c *Coordinator) SelectBridge(nowMs uint64) (types.NodeId, bool) {
	c.mutex.Lock()
	if c.overrideSet {
		id := c.override
		c.overrideSet = false
		c.mutex.Unlock()
		return id, true
	}
	strategy := c.strategy
	maxBridges := c.maxBridges
	c.mutex.Unlock()

	healthy := c.table.Healthy(nowMs)
	if len(healthy) == 0 {
		return 0, false
	}
	if len(healthy) > maxBridges {
		sortByPrimaryPreference(healthy)
		healthy = healthy[:maxBridges]
	}

	switch strategy {
	case types.StrategyRoundRobin:
		return c.selectRoundRobin(healthy)
	case types.StrategyBestSignal:
		return c.selectBestSignal(healthy)
	default:
		sortByPrimaryPreference(healthy)
		return healthy[0].NodeId, true
	}
}

func (c *Coordinator) selectRoundRobin(healthy []types.BridgeInfo) (types.NodeId, bool) {
	sort.Slice(healthy, func(i, j int) bool { return healthy[i].NodeId < healthy[j].NodeId })

	c.mutex.Lock()
	defer c.mutex.Unlock()
	if c.roundRobinIdx >= len(healthy) {
		c.roundRobinIdx = 0
	}
	id := healthy[c.roundRobinIdx].NodeId
	c.roundRobinIdx++
	return id, true
}

func (c *Coordinator) selectBestSignal(healthy []types.BridgeInfo) (types.NodeId, bool) {
	best := healthy[0]
	for _, b := range healthy[1:] {
		if b.RouterRSSI > best.RouterRSSI {
			best = b
		}
	}
	return best.NodeId, true
}
