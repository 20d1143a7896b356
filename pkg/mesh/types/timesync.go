package types

// TimeState is a node's view of its own offset from mesh time (§3). A node
// with HasAuthority=true never integrates offset proposals from a node with
// HasAuthority=false (enforced by the timesync package, not here).
type TimeState struct {
	NodeOffsetMicros int64
	Drift            int32
	HasAuthority     bool
	LastSyncMs       uint64
	SubnetSize       uint32
}

// MeshMicros returns localMicros corrected by the node's current offset.
func (t TimeState) MeshMicros(localMicros int64) int64 {
	return localMicros + t.NodeOffsetMicros
}
