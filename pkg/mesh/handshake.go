package mesh

import (
	"github.com/painlessmesh/gomesh/pkg/mesh/core"
	"github.com/painlessmesh/gomesh/pkg/mesh/transport"
	"github.com/painlessmesh/gomesh/pkg/mesh/types"
)

// handleNewLink begins the handshake on a freshly accepted or dialed link:
// it is marked pending and immediately sent a Hello advertising this
// node's id and current subtree. Registration with the Connection Registry
// happens once the peer's own Hello arrives (handleFrame).
func (m *Mesh) handleNewLink(link *transport.Link) {
	m.pending[link] = true
	hello := HelloMessage{NodeId: m.self, Subtree: m.layout.LocalTree()}
	v, err := types.NewVariant(types.TypeHello, m.self, 0, types.RoutingNeighbour, hello)
	if err != nil {
		link.Close()
		delete(m.pending, link)
		return
	}
	frame, err := v.Encode()
	if err != nil {
		link.Close()
		delete(m.pending, link)
		return
	}
	if err := link.Send(frame); err != nil {
		delete(m.pending, link)
	}
}

func (m *Mesh) handleFrame(link *transport.Link, f transport.Frame) {
	v, err := types.Decode(f.Data)
	if err != nil {
		if m.log != nil {
			m.log.Debugf("discarding undecodable frame: %v", err)
		}
		return
	}

	if m.pending[link] {
		m.handleHandshakeFrame(link, v)
		return
	}

	connId, ok := m.linkConn[link]
	if !ok {
		// Frame from a link we no longer track (e.g. dropped concurrently).
		return
	}
	if err := m.router.Route(v, connId); err != nil && m.log != nil {
		m.log.Debugf("route failed: %v", err)
	}
}

func (m *Mesh) handleHandshakeFrame(link *transport.Link, v types.Variant) {
	if v.Type != types.TypeHello {
		if m.log != nil {
			m.log.Warnf("non-hello frame on unregistered link, closing")
		}
		delete(m.pending, link)
		link.Close()
		return
	}

	var hello HelloMessage
	if err := v.Unmarshal(&hello); err != nil {
		delete(m.pending, link)
		link.Close()
		return
	}

	now := m.nowMs()
	connId, ok := m.registry.Accept(link, hello.NodeId, hello.Subtree, false, now)
	delete(m.pending, link)
	if !ok {
		link.Close()
		return
	}

	m.linkConn[link] = connId
	m.connToLink[connId] = link
	m.peerToLink[hello.NodeId] = link

	m.layout.NoteLinkChange() // fires onLayoutChanged, which sends NODE_SYNC_REQ to every neighbor including this one
	m.beginTimeSync(hello.NodeId, connId)
}

// onLayoutChanged is the Layout's change callback: per §4.E, any time the
// peer set or an advertised subtree changes, this node re-sends a
// NODE_SYNC_REQ to every neighbor so the new shape propagates (each hop's
// own NoteLinkChange firing in turn is what carries it across the mesh in
// O(diameter) exchanges).
func (m *Mesh) onLayoutChanged() {
	for _, c := range m.registry.Connections() {
		m.beginNodeSync(c.Id)
	}
	if m.onChangedConnections != nil {
		m.onChangedConnections()
	}
}

// beginNodeSync sends a NODE_SYNC_REQ to a newly registered (or changed)
// neighbor, carrying the local subtree as seen from its direction (§4.E).
func (m *Mesh) beginNodeSync(connId types.ConnectionId) {
	req := core.NodeSyncRequest{Subtree: m.layout.SubtreeExcluding(connId)}
	v, err := types.NewVariant(types.TypeNodeSyncReq, m.self, 0, types.RoutingNeighbour, req)
	if err != nil {
		return
	}
	frame, err := v.Encode()
	if err != nil {
		return
	}
	if err := m.registry.Unicast(connId, frame); err != nil && m.log != nil {
		m.log.Debugf("node sync req send failed: %v", err)
	}
}

// beginTimeSync starts the three-step exchange with a newly registered
// neighbor (§4.F: "on every new connection").
func (m *Mesh) beginTimeSync(peer types.NodeId, connId types.ConnectionId) {
	msg := m.sync.BeginExchange(peer, m.meshMicros())
	v, err := types.NewVariant(types.TypeTimeSync, m.self, peer, types.RoutingNeighbour, msg)
	if err != nil {
		return
	}
	frame, err := v.Encode()
	if err != nil {
		return
	}
	if err := m.registry.Unicast(connId, frame); err != nil && m.log != nil {
		m.log.Debugf("time sync request send failed: %v", err)
	}
}

func (m *Mesh) handleClose(link *transport.Link) {
	if connId, ok := m.linkConn[link]; ok {
		m.registry.Drop(connId, core.DropTransport)
		return
	}
	delete(m.pending, link)
}

// handleDropped is the Registry's OnDropped callback: it owns the actual
// socket close and the link bookkeeping, since the Registry only forgets
// the entry (§4.B).
func (m *Mesh) handleDropped(peerId types.NodeId, station bool, reason core.DropReason) {
	_ = station
	if link, ok := m.peerToLink[peerId]; ok {
		connId := m.linkConn[link]
		delete(m.linkConn, link)
		delete(m.connToLink, connId)
		delete(m.peerToLink, peerId)
		link.Close()
	}
	if m.log != nil {
		m.log.Warnf("link to %d dropped: %s", peerId, reason)
	}
	m.layout.NoteLinkChange()
}
