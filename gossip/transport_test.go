package gossip

import (
	"testing"
	"time"
)

func TestTCPTransportDialBroadcastDelivers(t *testing.T) {
	serverT := NewTCPTransport("server", "127.0.0.1:0", nil)
	received := make(chan Message, 1)
	serverT.SetReceiver(func(peerID string, msg Message) { received <- msg })
	if err := serverT.Start(); err != nil {
		t.Fatalf("server start: %v", err)
	}
	defer serverT.Stop()

	addr := serverT.listener.Addr().String()

	clientT := NewTCPTransport("client", "127.0.0.1:0", nil)
	if err := clientT.Start(); err != nil {
		t.Fatalf("client start: %v", err)
	}
	defer clientT.Stop()

	if err := clientT.Dial("server", addr); err != nil {
		t.Fatalf("dial: %v", err)
	}

	clientT.Broadcast(Message{Topic: "PROPOSE", Payload: []byte(`{"x":1}`)})

	select {
	case msg := <-received:
		if msg.Topic != "PROPOSE" {
			t.Fatalf("topic = %s, want PROPOSE", msg.Topic)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("server never received the broadcast message")
	}
}

func TestTCPTransportConnectedPeersReflectsDials(t *testing.T) {
	serverT := NewTCPTransport("server", "127.0.0.1:0", nil)
	if err := serverT.Start(); err != nil {
		t.Fatalf("server start: %v", err)
	}
	defer serverT.Stop()
	addr := serverT.listener.Addr().String()

	clientT := NewTCPTransport("client", "127.0.0.1:0", nil)
	if err := clientT.Start(); err != nil {
		t.Fatalf("client start: %v", err)
	}
	defer clientT.Stop()

	if clientT.ConnectedPeers() != 0 {
		t.Fatalf("expected 0 peers before dial")
	}
	if err := clientT.Dial("server", addr); err != nil {
		t.Fatalf("dial: %v", err)
	}
	if clientT.ConnectedPeers() != 1 {
		t.Fatalf("expected 1 peer after dial, got %d", clientT.ConnectedPeers())
	}
}
