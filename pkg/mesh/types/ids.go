package types

// NodeId uniquely identifies a node inside a single mesh. It is derived by
// the application from a stable hardware address and never reassigned.
// The zero value means "none/unspecified" and must never be used as a real
// node's identifier.
type NodeId uint32

// NoNode is the reserved "none/unspecified" identifier.
const NoNode NodeId = 0

// ConnectionId is an opaque handle for a single link, stable for the
// lifetime of the link. It is never derived from the peer's NodeId so the
// registry can keep its arena independent of routing lookups.
type ConnectionId uint64

// RoutingMode selects how a Variant is dispatched by the Router.
type RoutingMode uint8

const (
	// RoutingSingle delivers to exactly one destination NodeId, routed
	// hop-by-hop through the subtree that contains it.
	RoutingSingle RoutingMode = iota
	// RoutingNeighbour delivers locally only, on the receiving node, and is
	// never forwarded.
	RoutingNeighbour
	// RoutingBroadcast delivers locally and is forwarded to every neighbor
	// except the one it arrived on.
	RoutingBroadcast
)

func (r RoutingMode) String() string {
	switch r {
	case RoutingSingle:
		return "SINGLE"
	case RoutingNeighbour:
		return "NEIGHBOUR"
	case RoutingBroadcast:
		return "BROADCAST"
	default:
		return "UNKNOWN"
	}
}
