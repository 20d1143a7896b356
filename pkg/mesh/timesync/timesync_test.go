package timesync

import "testing"

// S5 — Authority-aware sync: A has authority, B doesn't. After the
// three-step exchange, B adopts A's time; A is unchanged.
func TestTimeSync_S5_AuthorityAwareAdoption(t *testing.T) {
	a := New(1, nil)
	b := New(2, nil)
	a.SetAuthority(true)
	a.state.NodeOffsetMicros = 1_000_000 - 0 // A's mesh time reads 1_000_000 at local-time 0
	b.state.NodeOffsetMicros = 500_000 - 0   // B's mesh time reads 500_000 at local-time 0

	var bAdjusted int64
	var bAdjustedFired bool
	b.OnNodeTimeAdjusted(func(delta int64) { bAdjustedFired = true; bAdjusted = delta })
	var aAdjustedFired bool
	a.OnNodeTimeAdjusted(func(int64) { aAdjustedFired = true })

	t0 := a.state.MeshMicros(0)
	req := a.BeginExchange(2, t0)

	t1 := b.state.MeshMicros(0)
	resp := b.HandleRequest(req, t1)

	t3 := a.state.MeshMicros(0)
	fin, ok := a.HandleResponse(2, resp, t3, 0)
	if !ok {
		t.Fatalf("expected a pending exchange to be found")
	}
	if aAdjustedFired {
		t.Fatalf("authoritative node A must not adopt a non-authoritative peer's time")
	}

	b.HandleFinalize(1, fin, 0)
	if !bAdjustedFired {
		t.Fatalf("expected B (non-authoritative) to adopt A's (authoritative) time")
	}
	_ = bAdjusted

	if b.State().HasAuthority {
		t.Fatalf("adopting from an authoritative peer should not itself confer authority on B")
	}
}

func TestTimeSync_AuthorityVsAuthorityTiesPreferSmallerNodeId(t *testing.T) {
	a := New(5, nil)
	b := New(2, nil)
	a.SetAuthority(true)
	b.SetAuthority(true)
	a.SetSubnetSize(3)
	b.SetSubnetSize(3)

	var aAdopted, bAdopted bool
	a.OnNodeTimeAdjusted(func(int64) { aAdopted = true })
	b.OnNodeTimeAdjusted(func(int64) { bAdopted = true })

	req := a.BeginExchange(2, 0)
	resp := b.HandleRequest(req, 0)
	_, _ = a.HandleResponse(2, resp, 0, 0)

	// Same authority, same subnet size: the tie-break favors the smaller
	// nodeId, so node 5 defers to node 2's time.
	if !aAdopted {
		t.Fatalf("node 5 must adopt node 2's time on an authority/subnet tie")
	}
	_ = bAdopted
}

func TestTimeSync_AdoptOffset(t *testing.T) {
	s := New(1, nil)
	fired := false
	s.OnNodeTimeAdjusted(func(int64) { fired = true })
	s.AdoptOffset(42, 100)
	if !s.State().HasAuthority {
		t.Fatalf("AdoptOffset must mark the node authoritative")
	}
	if s.State().NodeOffsetMicros != 42 {
		t.Fatalf("expected offset 42, got %d", s.State().NodeOffsetMicros)
	}
	if !fired {
		t.Fatalf("expected onAdjusted to fire")
	}
}

func TestTimeSync_HandleResponseWithoutPendingExchange(t *testing.T) {
	s := New(1, nil)
	_, ok := s.HandleResponse(99, Message{}, 0, 0)
	if ok {
		t.Fatalf("expected no pending exchange for an unknown peer")
	}
}
