package transport

import (
	"testing"
	"time"
)

func TestTCPTransport_AcceptAndConnect(t *testing.T) {
	accepted := make(chan *Link, 1)
	serverReceived := make(chan Frame, 1)

	server, err := NewTCPTransport("127.0.0.1:0", nil,
		func(l *Link) { accepted <- l },
		func(l *Link, f Frame) { serverReceived <- f },
		func(l *Link, err error) {},
	)
	if err != nil {
		t.Fatalf("NewTCPTransport: %v", err)
	}
	defer server.Close()

	client, err := NewTCPTransport("127.0.0.1:0", nil,
		func(l *Link) {},
		func(l *Link, f Frame) {},
		func(l *Link, err error) {},
	)
	if err != nil {
		t.Fatalf("NewTCPTransport (client): %v", err)
	}
	defer client.Close()

	clientLink, err := client.Connect(server.LocalAddress())
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	defer clientLink.Close()

	select {
	case <-accepted:
	case <-time.After(2 * time.Second):
		t.Fatalf("server never saw the inbound connection")
	}

	if err := clientLink.Send([]byte(`{"x":1}`)); err != nil {
		t.Fatalf("Send: %v", err)
	}
	select {
	case f := <-serverReceived:
		if string(f.Data) != `{"x":1}` {
			t.Fatalf("unexpected payload: %s", f.Data)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("server never received the frame")
	}
}

func TestTCPTransport_CloseStopsAcceptingWithoutClosingExistingLinks(t *testing.T) {
	server, err := NewTCPTransport("127.0.0.1:0", nil,
		func(l *Link) {},
		func(l *Link, f Frame) {},
		func(l *Link, err error) {},
	)
	if err != nil {
		t.Fatalf("NewTCPTransport: %v", err)
	}

	client, err := NewTCPTransport("127.0.0.1:0", nil,
		func(l *Link) {},
		func(l *Link, f Frame) {},
		func(l *Link, err error) {},
	)
	if err != nil {
		t.Fatalf("NewTCPTransport (client): %v", err)
	}
	defer client.Close()

	link, err := client.Connect(server.LocalAddress())
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	defer link.Close()

	if err := server.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	if _, err := client.Connect(server.LocalAddress()); err == nil {
		t.Fatalf("expected Connect to a closed listener to fail")
	}

	if err := link.Send([]byte("{}")); err != nil {
		t.Fatalf("existing link must survive listener Close: %v", err)
	}
}
