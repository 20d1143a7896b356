package types

// NodeTree is the recursive subtree record advertised by a link and
// aggregated by the Layout component. A tree's own NodeId never appears
// inside its own Children (checked by AppendChild/Validate, not just
// assumed), and at most one node in a tree carries Root=true.
type NodeTree struct {
	NodeId       NodeId     `json:"nodeId"`
	Root         bool       `json:"root"`
	ContainsRoot bool       `json:"containsRoot"`
	Children     []NodeTree `json:"children,omitempty"`
}

// SetContainsRoot is idempotent: calling it twice with the same value has
// the same effect as calling it once.
func (t *NodeTree) SetContainsRoot(v bool) {
	t.ContainsRoot = v
}

// AppendChild adds a child subtree, refusing a self-cycle where the child
// (or something inside it) is this tree's own NodeId.
func (t *NodeTree) AppendChild(child NodeTree) bool {
	if child.NodeId == t.NodeId || containsId(child, t.NodeId) {
		return false
	}
	t.Children = append(t.Children, child)
	return true
}

// Contains reports whether id appears anywhere in the subtree rooted at t,
// including t itself.
func (t NodeTree) Contains(id NodeId) bool {
	return containsId(t, id)
}

func containsId(t NodeTree, id NodeId) bool {
	if t.NodeId == id {
		return true
	}
	for _, c := range t.Children {
		if containsId(c, id) {
			return true
		}
	}
	return false
}

// Validate checks the two tree invariants: no self-cycle, and at most one
// Root=true node anywhere in the tree.
func (t NodeTree) Validate() bool {
	for _, c := range t.Children {
		if containsId(c, t.NodeId) {
			return false
		}
	}
	rootCount := 0
	var walk func(NodeTree)
	walk = func(n NodeTree) {
		if n.Root {
			rootCount++
		}
		for _, c := range n.Children {
			walk(c)
		}
	}
	walk(t)
	return rootCount <= 1
}

// Size returns the number of nodes in the subtree, including t itself.
func (t NodeTree) Size() int {
	n := 1
	for _, c := range t.Children {
		n += c.Size()
	}
	return n
}
