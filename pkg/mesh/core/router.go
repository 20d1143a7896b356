package core

import (
	"github.com/painlessmesh/gomesh/pkg/mesh/types"
)

// Router decides consume/forward per packet using the destination id and
// routing mode (§4.D).
type Router struct {
	self     types.NodeId
	registry *Registry
	table    *PackageTable
	log      types.Logger
}

// NewRouter builds a Router for node self, backed by registry for topology
// lookups and table for handler dispatch.
func NewRouter(self types.NodeId, registry *Registry, table *PackageTable, log types.Logger) *Router {
	return &Router{self: self, registry: registry, table: table, log: log}
}

// Route applies the §4.D algorithm to a Variant arriving on link `from`
// (from is 0 if it originated locally, e.g. an application Send call).
func (r *Router) Route(v types.Variant, from types.ConnectionId) error {
	switch v.Routing {
	case types.RoutingSingle:
		return r.routeSingle(v, from)
	case types.RoutingBroadcast:
		return r.routeBroadcast(v, from)
	case types.RoutingNeighbour:
		_, err := r.table.Dispatch(v, from, v.From)
		return err
	default:
		return types.ErrBadField
	}
}

func (r *Router) routeSingle(v types.Variant, from types.ConnectionId) error {
	if v.Dest == r.self {
		_, err := r.table.Dispatch(v, from, v.From)
		return err
	}

	next, ok := r.nextHop(v.Dest, from)
	if !ok {
		if r.log != nil {
			r.log.Debugf("no route to %d", v.Dest)
		}
		return types.ErrNoRoute
	}

	frame, err := v.Encode()
	if err != nil {
		return err
	}
	return r.registry.Unicast(next, frame)
}

// nextHop finds the unique neighbor link whose subtree contains dest,
// breaking ties by the smaller peerId (§4.D).
func (r *Router) nextHop(dest types.NodeId, exclude types.ConnectionId) (types.ConnectionId, bool) {
	var best *ConnectionView
	for _, c := range r.registry.Connections() {
		c := c
		if c.Id == exclude {
			continue
		}
		if !c.Subtree.Contains(dest) {
			continue
		}
		if best == nil || c.PeerId < best.PeerId {
			best = &c
		}
	}
	if best == nil {
		return 0, false
	}
	return best.Id, true
}

func (r *Router) routeBroadcast(v types.Variant, from types.ConnectionId) error {
	// Loop prevention: a node that receives its own broadcast drops it
	// silently (§4.D).
	if v.From == r.self && from != 0 {
		return types.ErrSelfEcho
	}

	// A locally-originated broadcast (from == 0) is only forwarded, never
	// delivered here: the sender is not a recipient of its own broadcast
	// (S1, I2). A broadcast arriving on a real link is delivered locally
	// in addition to being forwarded on.
	if from != 0 {
		_, err := r.table.Dispatch(v, from, v.From)
		if err != nil && err != types.ErrUnknownType {
			return err
		}
	}

	if r.table.IsNonPropagating(v.Type) {
		return nil
	}

	frame, encErr := v.Encode()
	if encErr != nil {
		return encErr
	}
	r.registry.Broadcast(frame, from)
	return nil
}
