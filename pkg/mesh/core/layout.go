package core

import (
	"github.com/painlessmesh/gomesh/pkg/mesh/types"
)

// NodeSyncRequest is the body of a NODE_SYNC_REQ packet: the sender's
// subtree as seen from the receiving neighbor's direction (the neighbor's
// own subtree is excluded to avoid reflection, §4.E).
type NodeSyncRequest struct {
	Subtree types.NodeTree `json:"subtree"`
}

// NodeSyncReply is the body of a NODE_SYNC_REPLY packet.
type NodeSyncReply struct {
	Subtree types.NodeTree `json:"subtree"`
}

// Layout aggregates the local subtree from every link's advertised
// subtree, holding only NodeId/NodeTree values per §9 (never a
// *Connection).
type Layout struct {
	self     types.NodeId
	registry *Registry
	root     bool

	lastPeerSet map[types.NodeId]types.NodeTree

	onChanged func()
}

// NewLayout builds a Layout for node self, backed by registry.
func NewLayout(self types.NodeId, registry *Registry, isRoot bool) *Layout {
	return &Layout{
		self:        self,
		registry:    registry,
		root:        isRoot,
		lastPeerSet: make(map[types.NodeId]types.NodeTree),
	}
}

// OnChangedConnections registers the callback fired whenever the set of
// peerIds or any peer's advertised subtree changes (§4.E).
func (l *Layout) OnChangedConnections(cb func()) {
	l.onChanged = cb
}

// LocalTree computes {self, children: [peer.subtree for each link]},
// annotated with root and containsRoot.
func (l *Layout) LocalTree() types.NodeTree {
	t := types.NodeTree{NodeId: l.self, Root: l.root}
	containsRoot := l.root
	for _, c := range l.registry.Connections() {
		t.Children = append(t.Children, c.Subtree)
		if c.Subtree.ContainsRoot || c.Subtree.Root {
			containsRoot = true
		}
	}
	t.SetContainsRoot(containsRoot)
	return t
}

// SubtreeExcluding computes the local tree as seen from the direction of
// neighbor (that neighbor's own advertised subtree is excluded, so its
// NODE_SYNC_REQ isn't just an echo of what it just told us).
func (l *Layout) SubtreeExcluding(neighbor types.ConnectionId) types.NodeTree {
	t := types.NodeTree{NodeId: l.self, Root: l.root}
	containsRoot := l.root
	for _, c := range l.registry.Connections() {
		if c.Id == neighbor {
			continue
		}
		t.Children = append(t.Children, c.Subtree)
		if c.Subtree.ContainsRoot || c.Subtree.Root {
			containsRoot = true
		}
	}
	t.SetContainsRoot(containsRoot)
	return t
}

// NoteLinkChange re-evaluates whether the peerId set or any advertised
// subtree differs from the last observed snapshot, firing onChanged at
// most once per call if so.
func (l *Layout) NoteLinkChange() {
	current := make(map[types.NodeId]types.NodeTree)
	for _, c := range l.registry.Connections() {
		current[c.PeerId] = c.Subtree
	}

	changed := len(current) != len(l.lastPeerSet)
	if !changed {
		for id, tree := range current {
			prev, ok := l.lastPeerSet[id]
			if !ok || !treeEqual(prev, tree) {
				changed = true
				break
			}
		}
	}

	l.lastPeerSet = current
	if changed && l.onChanged != nil {
		l.onChanged()
	}
}

func treeEqual(a, b types.NodeTree) bool {
	if a.NodeId != b.NodeId || a.Root != b.Root || a.ContainsRoot != b.ContainsRoot {
		return false
	}
	if len(a.Children) != len(b.Children) {
		return false
	}
	for i := range a.Children {
		if !treeEqual(a.Children[i], b.Children[i]) {
			return false
		}
	}
	return true
}
