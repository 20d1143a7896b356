// Package core implements the Connection Registry (§4.B), the Variant &
// Package Table (§4.C), the Router (§4.D) and the Layout/Topology (§4.E).
// It is grounded on the teacher's peer/transport split: a registry owns
// links (arena + stable ids, §9), everything else only ever refers to them
// by ConnectionId or NodeId.
package core

import (
	"sync"

	"github.com/painlessmesh/gomesh/pkg/mesh/types"
)

// Sender is the minimal capability the Registry needs from a link: queue
// bytes, best-effort, preserving per-link order.
type Sender interface {
	Send(data []byte) error
}

type entry struct {
	id      types.ConnectionId
	peerId  types.NodeId
	subtree types.NodeTree
	station bool
	lastHeard uint64
	sender  Sender
}

// DropReason explains why a link was removed, surfaced through the
// `dropped` callback.
type DropReason string

const (
	DropRequested    DropReason = "requested"
	DropTransport    DropReason = "transport-error"
	DropDuplicatePeer DropReason = "duplicate-peer"
	DropLoopDetected DropReason = "loop-detected"
)

// Registry owns the set of active links. The peerId set is unique; no link
// may advertise a subtree containing the local NodeId.
type Registry struct {
	mutex sync.Mutex

	self types.NodeId
	log  types.Logger

	nextId  types.ConnectionId
	byConn  map[types.ConnectionId]*entry
	byPeer  map[types.NodeId]types.ConnectionId

	onDropped func(peerId types.NodeId, station bool, reason DropReason)
}

// NewRegistry creates a Registry for a node identified by self.
func NewRegistry(self types.NodeId, log types.Logger) *Registry {
	return &Registry{
		self:   self,
		log:    log,
		byConn: make(map[types.ConnectionId]*entry),
		byPeer: make(map[types.NodeId]types.ConnectionId),
	}
}

// OnDropped registers the callback invoked whenever a link is dropped.
func (r *Registry) OnDropped(cb func(peerId types.NodeId, station bool, reason DropReason)) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	r.onDropped = cb
}

// Accept registers a newly accepted link once its handshake reveals
// peerId/subtree. If peerId duplicates an existing link, the newer link is
// closed and the older kept (tie-break: keep older). A subtree containing
// the local node is a loop and the link is dropped instead of registered.
func (r *Registry) Accept(sender Sender, peerId types.NodeId, subtree types.NodeTree, station bool, nowMs uint64) (types.ConnectionId, bool) {
	return r.register(sender, peerId, subtree, station, nowMs)
}

// Connect registers a link this node itself initiated. Semantically
// identical to Accept once the peer's handshake has been received.
func (r *Registry) Connect(sender Sender, peerId types.NodeId, subtree types.NodeTree, station bool, nowMs uint64) (types.ConnectionId, bool) {
	return r.register(sender, peerId, subtree, station, nowMs)
}

func (r *Registry) register(sender Sender, peerId types.NodeId, subtree types.NodeTree, station bool, nowMs uint64) (types.ConnectionId, bool) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if subtree.Contains(r.self) {
		if r.log != nil {
			r.log.Warnf("dropping link to %d: subtree contains local node", peerId)
		}
		if r.onDropped != nil {
			r.onDropped(peerId, station, DropLoopDetected)
		}
		return 0, false
	}

	if _, dup := r.byPeer[peerId]; dup {
		// Tie-break: keep older, reject the newer registration.
		if r.log != nil {
			r.log.Warnf("rejecting duplicate link to %d, keeping older", peerId)
		}
		if r.onDropped != nil {
			r.onDropped(peerId, station, DropDuplicatePeer)
		}
		return 0, false
	}

	r.nextId++
	id := r.nextId
	e := &entry{id: id, peerId: peerId, subtree: subtree, station: station, lastHeard: nowMs, sender: sender}
	r.byConn[id] = e
	r.byPeer[peerId] = id
	return id, true
}

// UpdateSubtree replaces the advertised subtree for an existing link,
// dropping it instead if the new subtree contains the local node.
func (r *Registry) UpdateSubtree(id types.ConnectionId, subtree types.NodeTree, nowMs uint64) bool {
	r.mutex.Lock()
	e, ok := r.byConn[id]
	if !ok {
		r.mutex.Unlock()
		return false
	}
	if subtree.Contains(r.self) {
		r.mutex.Unlock()
		r.Drop(id, DropLoopDetected)
		return false
	}
	e.subtree = subtree
	e.lastHeard = nowMs
	r.mutex.Unlock()
	return true
}

// Touch updates a link's last-heard timestamp.
func (r *Registry) Touch(id types.ConnectionId, nowMs uint64) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	if e, ok := r.byConn[id]; ok {
		e.lastHeard = nowMs
	}
}

// Broadcast hands the already-encoded frame to every link except the one
// identified by except (0 means no exception).
func (r *Registry) Broadcast(frame []byte, except types.ConnectionId) {
	r.mutex.Lock()
	targets := make([]Sender, 0, len(r.byConn))
	for id, e := range r.byConn {
		if id == except {
			continue
		}
		targets = append(targets, e.sender)
	}
	r.mutex.Unlock()

	for _, s := range targets {
		if err := s.Send(frame); err != nil && r.log != nil {
			r.log.Errorf("broadcast send failed: %v", err)
		}
	}
}

// Unicast hands the frame to the single link identified by id.
func (r *Registry) Unicast(id types.ConnectionId, frame []byte) error {
	r.mutex.Lock()
	e, ok := r.byConn[id]
	r.mutex.Unlock()
	if !ok {
		return types.ErrNoRoute
	}
	return e.sender.Send(frame)
}

// Drop closes the link (by forgetting it; the transport layer performs the
// actual socket close) and fires the dropped callback.
func (r *Registry) Drop(id types.ConnectionId, reason DropReason) {
	r.mutex.Lock()
	e, ok := r.byConn[id]
	if !ok {
		r.mutex.Unlock()
		return
	}
	delete(r.byConn, id)
	delete(r.byPeer, e.peerId)
	cb := r.onDropped
	r.mutex.Unlock()

	if cb != nil {
		cb(e.peerId, e.station, reason)
	}
}

// PeerId returns the NodeId advertised on link id.
func (r *Registry) PeerId(id types.ConnectionId) (types.NodeId, bool) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	e, ok := r.byConn[id]
	if !ok {
		return 0, false
	}
	return e.peerId, true
}

// ConnectionFor returns the ConnectionId registered for peerId, if any.
func (r *Registry) ConnectionFor(peerId types.NodeId) (types.ConnectionId, bool) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	id, ok := r.byPeer[peerId]
	return id, ok
}

// Subtree returns the subtree currently advertised on link id.
func (r *Registry) Subtree(id types.ConnectionId) (types.NodeTree, bool) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	e, ok := r.byConn[id]
	if !ok {
		return types.NodeTree{}, false
	}
	return e.subtree, true
}

// ConnectionView is a read-only snapshot of one active link.
type ConnectionView struct {
	Id      types.ConnectionId
	PeerId  types.NodeId
	Subtree types.NodeTree
}

// Connections returns a snapshot of every active link's id and subtree, for
// the Router's next-hop lookup and the Layout's aggregation.
func (r *Registry) Connections() []ConnectionView {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	out := make([]ConnectionView, 0, len(r.byConn))
	for id, e := range r.byConn {
		out = append(out, ConnectionView{Id: id, PeerId: e.peerId, Subtree: e.subtree})
	}
	return out
}

// Len returns the number of active links.
func (r *Registry) Len() int {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	return len(r.byConn)
}
