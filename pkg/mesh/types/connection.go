package types

// ConnectionStats are best-effort counters kept per link.
type ConnectionStats struct {
	FramesSent     uint64
	FramesReceived uint64
	BytesSent      uint64
	BytesReceived  uint64
}

// Connection is a link record. It is exclusively owned by the Connection
// Registry; the application and other subsystems only ever hold NodeId /
// ConnectionId values, never a *Connection (§3, §9).
type Connection struct {
	Id         ConnectionId
	PeerId     NodeId
	Subtree    NodeTree
	Station    bool
	LastHeard  uint64
	Stats      ConnectionStats
}
