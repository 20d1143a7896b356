package types

import "testing"

func TestNodeTree_AppendChildRejectsSelfCycle(t *testing.T) {
	root := NodeTree{NodeId: 1}
	if root.AppendChild(NodeTree{NodeId: 1}) {
		t.Fatalf("expected self-cycle to be rejected")
	}
	if len(root.Children) != 0 {
		t.Fatalf("rejected child must not be appended")
	}

	grandchildLoop := NodeTree{NodeId: 2, Children: []NodeTree{{NodeId: 1}}}
	if root.AppendChild(grandchildLoop) {
		t.Fatalf("expected nested self-cycle to be rejected")
	}
}

func TestNodeTree_Contains(t *testing.T) {
	tree := NodeTree{
		NodeId: 1,
		Children: []NodeTree{
			{NodeId: 2, Children: []NodeTree{{NodeId: 4}}},
			{NodeId: 3},
		},
	}
	for _, id := range []NodeId{1, 2, 3, 4} {
		if !tree.Contains(id) {
			t.Errorf("expected tree to contain %d", id)
		}
	}
	if tree.Contains(99) {
		t.Errorf("tree should not contain 99")
	}
}

// I1 (Loop-free routing): Validate rejects a tree whose own id reappears in
// its subtree, and a tree with more than one Root=true node.
func TestNodeTree_Validate_NoSelfCycleNoMultiRoot(t *testing.T) {
	valid := NodeTree{NodeId: 1, Root: true, Children: []NodeTree{{NodeId: 2}}}
	if !valid.Validate() {
		t.Fatalf("expected valid tree to validate")
	}

	selfCycle := NodeTree{NodeId: 1, Children: []NodeTree{{NodeId: 2, Children: []NodeTree{{NodeId: 1}}}}}
	if selfCycle.Validate() {
		t.Fatalf("expected tree containing its own id to fail validation")
	}

	twoRoots := NodeTree{NodeId: 1, Root: true, Children: []NodeTree{{NodeId: 2, Root: true}}}
	if twoRoots.Validate() {
		t.Fatalf("expected tree with two roots to fail validation")
	}
}

func TestNodeTree_SetContainsRootIdempotent(t *testing.T) {
	a := NodeTree{NodeId: 1}
	a.SetContainsRoot(true)
	once := a.ContainsRoot
	a.SetContainsRoot(true)
	if a.ContainsRoot != once {
		t.Fatalf("setContainsRoot(x); setContainsRoot(x) must equal setContainsRoot(x)")
	}
}

func TestNodeTree_Size(t *testing.T) {
	tree := NodeTree{
		NodeId: 1,
		Children: []NodeTree{
			{NodeId: 2},
			{NodeId: 3, Children: []NodeTree{{NodeId: 4}}},
		},
	}
	if got := tree.Size(); got != 4 {
		t.Fatalf("expected size 4, got %d", got)
	}
}
