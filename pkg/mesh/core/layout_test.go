package core

import (
	"testing"

	"github.com/painlessmesh/gomesh/pkg/mesh/types"
)

func TestLayout_LocalTreeAggregatesChildSubtrees(t *testing.T) {
	reg := NewRegistry(1, nil)
	reg.Accept(&fakeSender{}, 2, types.NodeTree{NodeId: 2}, false, 0)
	reg.Accept(&fakeSender{}, 3, types.NodeTree{NodeId: 3, Children: []types.NodeTree{{NodeId: 4}}}, false, 0)

	layout := NewLayout(1, reg, false)
	tree := layout.LocalTree()

	if tree.NodeId != 1 {
		t.Fatalf("expected root node id 1, got %d", tree.NodeId)
	}
	if len(tree.Children) != 2 {
		t.Fatalf("expected 2 children, got %d", len(tree.Children))
	}
	for _, id := range []types.NodeId{1, 2, 3, 4} {
		if !tree.Contains(id) {
			t.Fatalf("expected aggregated tree to contain %d", id)
		}
	}
}

func TestLayout_SubtreeExcludingOmitsThatNeighbor(t *testing.T) {
	reg := NewRegistry(1, nil)
	idA, _ := reg.Accept(&fakeSender{}, 2, types.NodeTree{NodeId: 2}, false, 0)
	reg.Accept(&fakeSender{}, 3, types.NodeTree{NodeId: 3}, false, 0)

	layout := NewLayout(1, reg, false)
	tree := layout.SubtreeExcluding(idA)

	if tree.Contains(2) {
		t.Fatalf("expected the excluded neighbor's subtree to be omitted")
	}
	if !tree.Contains(3) {
		t.Fatalf("expected the other neighbor's subtree to remain")
	}
}

func TestLayout_NoteLinkChangeFiresOnlyOnActualChange(t *testing.T) {
	reg := NewRegistry(1, nil)
	layout := NewLayout(1, reg, false)

	fired := 0
	layout.OnChangedConnections(func() { fired++ })

	reg.Accept(&fakeSender{}, 2, types.NodeTree{NodeId: 2}, false, 0)
	layout.NoteLinkChange()
	if fired != 1 {
		t.Fatalf("expected 1 change notification after adding a peer, got %d", fired)
	}

	layout.NoteLinkChange()
	if fired != 1 {
		t.Fatalf("expected no further notification when nothing changed, got %d", fired)
	}

	id, _ := reg.ConnectionFor(2)
	reg.UpdateSubtree(id, types.NodeTree{NodeId: 2, Children: []types.NodeTree{{NodeId: 9}}}, 1)
	layout.NoteLinkChange()
	if fired != 2 {
		t.Fatalf("expected a notification when a peer's advertised subtree changes, got %d", fired)
	}
}

// §4.E: a node that is itself the mesh root always reports containsRoot.
func TestLayout_RootNodeAlwaysContainsRoot(t *testing.T) {
	reg := NewRegistry(1, nil)
	layout := NewLayout(1, reg, true)
	tree := layout.LocalTree()
	if !tree.ContainsRoot {
		t.Fatalf("expected the root node's own tree to report ContainsRoot")
	}
}
