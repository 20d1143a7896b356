// Package transport implements the Framed Transport (§4.A): length-
// delimited duplex byte streams over TCP, with close/error signals
// propagated to whoever owns the link.
package transport

import (
	"bufio"
	"encoding/binary"
	"net"
	"sync"

	"github.com/pkg/errors"

	"github.com/painlessmesh/gomesh/pkg/mesh/types"
)

// DefaultMeshPort is the default mesh TCP port (§6).
const DefaultMeshPort = 5555

// MaxFrameBytes bounds a single frame, sized to the recommended minimum
// decode buffer from §5's memory budget.
const MaxFrameBytes = 2048

// Frame holds one complete Variant document from the wire. readFrame decodes
// both delimiters named in §6, a length-prefixed document and a
// newline-terminated one, so either peer's framing choice can be decoded;
// which delimiter carried the frame is not recorded.
type Frame struct {
	Data []byte
}

// Link is a single duplex framed connection. It is the unit the Connection
// Registry owns; nothing outside this package and the registry should hold
// one directly.
type Link struct {
	conn net.Conn

	writeMutex sync.Mutex
	closeOnce  sync.Once

	onReceive func(Frame)
	onClose   func(error)

	sendQueue chan []byte
	done      chan struct{}
}

// newLink wraps conn and starts its reader/writer goroutines. Both post
// into the caller-supplied callbacks, which must themselves be
// non-blocking and forward onto the owner's single-producer inbox (§5) —
// this package never touches Registry/Router state directly.
func newLink(conn net.Conn, onReceive func(Frame), onClose func(error)) *Link {
	l := &Link{
		conn:      conn,
		onReceive: onReceive,
		onClose:   onClose,
		sendQueue: make(chan []byte, 64),
		done:      make(chan struct{}),
	}
	go l.readLoop()
	go l.writeLoop()
	return l
}

// Send queues bytes for best-effort, ordered delivery. It never blocks
// waiting for the write to complete (§5's suspension-point rule).
func (l *Link) Send(data []byte) error {
	if len(data) > MaxFrameBytes {
		return errors.Wrapf(types.ErrTransportOversize, "frame of %d bytes", len(data))
	}
	select {
	case l.sendQueue <- data:
		return nil
	case <-l.done:
		return types.ErrTransportClosed
	}
}

// Close closes the underlying connection and stops both loops. Safe to call
// more than once.
func (l *Link) Close() {
	l.closeOnce.Do(func() {
		close(l.done)
		_ = l.conn.Close()
	})
}

func (l *Link) writeLoop() {
	for {
		select {
		case data, ok := <-l.sendQueue:
			if !ok {
				return
			}
			if err := l.writeFrame(data); err != nil {
				l.fail(err)
				return
			}
		case <-l.done:
			return
		}
	}
}

// writeFrame emits a length-prefixed frame: a 4-byte big-endian length
// followed by the document. Per-link FIFO (§5) is preserved because this is
// the only writer for the connection.
func (l *Link) writeFrame(data []byte) error {
	l.writeMutex.Lock()
	defer l.writeMutex.Unlock()

	var header [4]byte
	binary.BigEndian.PutUint32(header[:], uint32(len(data)))
	if _, err := l.conn.Write(header[:]); err != nil {
		return err
	}
	_, err := l.conn.Write(data)
	return err
}

func (l *Link) readLoop() {
	reader := bufio.NewReaderSize(l.conn, MaxFrameBytes+4)
	for {
		data, err := l.readFrame(reader)
		if err != nil {
			l.fail(err)
			return
		}
		select {
		case <-l.done:
			return
		default:
			l.onReceive(Frame{Data: data})
		}
	}
}

// readFrame decodes either a length-prefixed frame or, when the leading
// four bytes don't describe a sane length, falls back to reading until a
// newline — both delimiters MUST be supported on decode per §6.
func (l *Link) readFrame(reader *bufio.Reader) ([]byte, error) {
	head, err := reader.Peek(4)
	if err != nil {
		if len(head) > 0 {
			return l.readNewlineDelimited(reader)
		}
		return nil, err
	}

	length := binary.BigEndian.Uint32(head)
	if length == 0 || length > MaxFrameBytes {
		return l.readNewlineDelimited(reader)
	}

	if _, err := reader.Discard(4); err != nil {
		return nil, err
	}
	buf := make([]byte, length)
	if _, err := readFull(reader, buf); err != nil {
		return nil, err
	}
	return buf, nil
}

func (l *Link) readNewlineDelimited(reader *bufio.Reader) ([]byte, error) {
	line, err := reader.ReadBytes('\n')
	if err != nil {
		return nil, err
	}
	if len(line) > MaxFrameBytes {
		return nil, errors.Wrap(types.ErrTransportOversize, "newline-delimited frame")
	}
	// trim the trailing delimiter (and a possible preceding \r).
	for len(line) > 0 && (line[len(line)-1] == '\n' || line[len(line)-1] == '\r') {
		line = line[:len(line)-1]
	}
	return line, nil
}

func readFull(reader *bufio.Reader, buf []byte) (int, error) {
	n := 0
	for n < len(buf) {
		m, err := reader.Read(buf[n:])
		n += m
		if err != nil {
			return n, err
		}
	}
	return n, nil
}

func (l *Link) fail(err error) {
	l.Close()
	if l.onClose != nil {
		l.onClose(err)
	}
}
