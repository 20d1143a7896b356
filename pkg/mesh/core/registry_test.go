package core

import (
	"testing"

	"github.com/painlessmesh/gomesh/pkg/mesh/types"
)

type fakeSender struct {
	sent [][]byte
}

func (f *fakeSender) Send(data []byte) error {
	f.sent = append(f.sent, data)
	return nil
}

func TestRegistry_AcceptAssignsStableIds(t *testing.T) {
	r := NewRegistry(1, nil)
	id1, ok := r.Accept(&fakeSender{}, 2, types.NodeTree{NodeId: 2}, false, 0)
	if !ok {
		t.Fatalf("expected accept to succeed")
	}
	id2, ok := r.Accept(&fakeSender{}, 3, types.NodeTree{NodeId: 3}, false, 0)
	if !ok {
		t.Fatalf("expected accept to succeed")
	}
	if id1 == id2 {
		t.Fatalf("expected distinct connection ids, got %d and %d", id1, id2)
	}
	if r.Len() != 2 {
		t.Fatalf("expected 2 active links, got %d", r.Len())
	}
}

// I1 (loop-free routing): a subtree that contains the local node describes
// a cycle and must be rejected rather than registered.
func TestRegistry_AcceptRejectsLoop(t *testing.T) {
	r := NewRegistry(1, nil)
	var reason DropReason
	r.OnDropped(func(peerId types.NodeId, station bool, why DropReason) { reason = why })

	subtree := types.NodeTree{NodeId: 2, Children: []types.NodeTree{{NodeId: 1}}}
	_, ok := r.Accept(&fakeSender{}, 2, subtree, false, 0)
	if ok {
		t.Fatalf("expected loop-containing subtree to be rejected")
	}
	if reason != DropLoopDetected {
		t.Fatalf("expected DropLoopDetected, got %v", reason)
	}
	if r.Len() != 0 {
		t.Fatalf("expected no link registered")
	}
}

// Duplicate-peer tie-break: the older registration survives, the newer one
// is rejected.
func TestRegistry_DuplicatePeerKeepsOlder(t *testing.T) {
	r := NewRegistry(1, nil)
	var reason DropReason
	r.OnDropped(func(peerId types.NodeId, station bool, why DropReason) { reason = why })

	first, ok := r.Accept(&fakeSender{}, 2, types.NodeTree{NodeId: 2}, false, 0)
	if !ok {
		t.Fatalf("expected first registration to succeed")
	}
	_, ok = r.Accept(&fakeSender{}, 2, types.NodeTree{NodeId: 2}, false, 0)
	if ok {
		t.Fatalf("expected duplicate peer registration to be rejected")
	}
	if reason != DropDuplicatePeer {
		t.Fatalf("expected DropDuplicatePeer, got %v", reason)
	}

	kept, ok := r.ConnectionFor(2)
	if !ok || kept != first {
		t.Fatalf("expected the original connection to survive, got %d want %d", kept, first)
	}
}

func TestRegistry_UpdateSubtreeDropsOnLoop(t *testing.T) {
	r := NewRegistry(1, nil)
	var dropped bool
	r.OnDropped(func(types.NodeId, bool, DropReason) { dropped = true })

	id, _ := r.Accept(&fakeSender{}, 2, types.NodeTree{NodeId: 2}, false, 0)

	ok := r.UpdateSubtree(id, types.NodeTree{NodeId: 2, Children: []types.NodeTree{{NodeId: 1}}}, 1)
	if ok {
		t.Fatalf("expected a self-containing update to fail")
	}
	if !dropped {
		t.Fatalf("expected the link to be dropped")
	}
	if r.Len() != 0 {
		t.Fatalf("expected the link removed after loop detection")
	}
}

func TestRegistry_DropFiresCallbackAndForgetsLink(t *testing.T) {
	r := NewRegistry(1, nil)
	var gotPeer types.NodeId
	var gotReason DropReason
	r.OnDropped(func(peerId types.NodeId, station bool, reason DropReason) {
		gotPeer = peerId
		gotReason = reason
	})

	id, _ := r.Accept(&fakeSender{}, 2, types.NodeTree{NodeId: 2}, false, 0)
	r.Drop(id, DropTransport)

	if gotPeer != 2 || gotReason != DropTransport {
		t.Fatalf("unexpected callback args: peer=%d reason=%v", gotPeer, gotReason)
	}
	if _, ok := r.PeerId(id); ok {
		t.Fatalf("expected dropped link to be forgotten")
	}
}

func TestRegistry_BroadcastSkipsException(t *testing.T) {
	r := NewRegistry(1, nil)
	a := &fakeSender{}
	b := &fakeSender{}
	idA, _ := r.Accept(a, 2, types.NodeTree{NodeId: 2}, false, 0)
	r.Accept(b, 3, types.NodeTree{NodeId: 3}, false, 0)

	r.Broadcast([]byte("frame"), idA)

	if len(a.sent) != 0 {
		t.Fatalf("expected the excepted link to receive nothing")
	}
	if len(b.sent) != 1 {
		t.Fatalf("expected the other link to receive exactly one frame, got %d", len(b.sent))
	}
}
