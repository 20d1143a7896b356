package types

// BridgeRole is derived from BridgeInfo.Priority, never set independently
// (§3 invariant).
type BridgeRole uint8

const (
	RoleStandby BridgeRole = iota
	RoleSecondary
	RolePrimary
)

func (r BridgeRole) String() string {
	switch r {
	case RolePrimary:
		return "Primary"
	case RoleSecondary:
		return "Secondary"
	default:
		return "Standby"
	}
}

// BridgeHealthyWindowMs is the window within which a bridge's last-seen
// timestamp must fall for it to be considered healthy (§3).
const BridgeHealthyWindowMs = 60_000

// BridgeInfo describes a node that advertises Internet connectivity.
type BridgeInfo struct {
	NodeId            NodeId `json:"nodeId"`
	InternetConnected bool   `json:"internetConnected"`
	RouterRSSI        int8   `json:"routerRSSI"`
	RouterChannel     uint8  `json:"routerChannel"`
	UptimeMs          uint64 `json:"uptimeMs"`
	GatewayIp         string `json:"gatewayIp"`
	LastSeenMs        uint64 `json:"lastSeenMs"`
	Priority          uint8  `json:"priority"`
}

// Role derives the bridge's role from its Priority: >=8 Primary, >=5
// Secondary, else Standby.
func (b BridgeInfo) Role() BridgeRole {
	switch {
	case b.Priority >= 8:
		return RolePrimary
	case b.Priority >= 5:
		return RoleSecondary
	default:
		return RoleStandby
	}
}

// Healthy reports whether the bridge is connected and was seen within
// BridgeHealthyWindowMs of now (both in milliseconds).
func (b BridgeInfo) Healthy(nowMs uint64) bool {
	if !b.InternetConnected {
		return false
	}
	if nowMs < b.LastSeenMs {
		return true
	}
	return nowMs-b.LastSeenMs < BridgeHealthyWindowMs
}

// BridgeCandidate is a single node's self-reported fitness to take over as
// bridge, exchanged during an Election.
type BridgeCandidate struct {
	NodeId     NodeId `json:"nodeId"`
	RouterRSSI int8   `json:"routerRSSI"`
	UptimeMs   uint64 `json:"uptimeMs"`
	FreeMemory uint32 `json:"freeMemory"`
}

// BridgeSelectionStrategy picks which healthy bridge outbound traffic uses
// (§4.G.3).
type BridgeSelectionStrategy uint8

const (
	StrategyPriorityBased BridgeSelectionStrategy = iota
	StrategyRoundRobin
	StrategyBestSignal
)
