package transport

import (
	"net"

	"github.com/painlessmesh/gomesh/pkg/mesh/types"
)

// TCPTransport listens for and dials mesh links over TCP. It is the only
// place in this module that spawns goroutines outside the single-threaded
// event loop (§5); every link it creates posts into caller-supplied
// callbacks that must forward to the owner's single-producer inbox.
type TCPTransport struct {
	listener  net.Listener
	onAccept  func(*Link)
	onReceive func(*Link, Frame)
	onClose   func(*Link, error)

	logger types.Logger
}

// NewTCPTransport starts listening on addr (host:port, e.g. ":5555").
// onAccept is invoked for every inbound connection once accepted; the
// caller is responsible for calling Connect for outbound links.
func NewTCPTransport(addr string, logger types.Logger, onAccept func(*Link), onReceive func(*Link, Frame), onClose func(*Link, error)) (*TCPTransport, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	t := &TCPTransport{
		listener:  ln,
		onAccept:  onAccept,
		onReceive: onReceive,
		onClose:   onClose,
		logger:    logger,
	}
	go t.acceptLoop()
	return t, nil
}

// LocalAddress returns the address this transport is bound to.
func (t *TCPTransport) LocalAddress() string {
	return t.listener.Addr().String()
}

func (t *TCPTransport) acceptLoop() {
	for {
		conn, err := t.listener.Accept()
		if err != nil {
			return
		}
		link := t.wrap(conn)
		if t.onAccept != nil {
			t.onAccept(link)
		}
	}
}

// Connect dials addr and wraps the resulting connection the same way an
// accepted one is wrapped, without invoking onAccept (the caller initiated
// this side).
func (t *TCPTransport) Connect(addr string) (*Link, error) {
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		return nil, err
	}
	return t.wrap(conn), nil
}

func (t *TCPTransport) wrap(conn net.Conn) *Link {
	var link *Link
	link = newLink(conn,
		func(f Frame) { t.onReceive(link, f) },
		func(err error) {
			if t.logger != nil && err != nil {
				t.logger.Debugf("link to %s closed: %v", conn.RemoteAddr(), err)
			}
			t.onClose(link, err)
		},
	)
	return link
}

// Close stops accepting new connections. Existing links are unaffected;
// callers should Drop them via the Connection Registry.
func (t *TCPTransport) Close() error {
	return t.listener.Close()
}
