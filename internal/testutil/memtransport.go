package testutil

import (
	"sync"

	"github.com/beco/beconode/gossip"
)

// MemHub connects MemTransports in-process, standing in for real TCP dials
// in tests that need multiple gossiping nodes without touching sockets.
type MemHub struct {
	mu    sync.Mutex
	nodes map[string]*MemTransport
}

// NewMemHub creates an empty hub.
func NewMemHub() *MemHub {
	return &MemHub{nodes: make(map[string]*MemTransport)}
}

// MemTransport is an in-memory gossip.Transport that delivers Broadcast
// calls synchronously to its peers: the transports it has dialed or that
// have dialed it.
type MemTransport struct {
	hub      *MemHub
	nodeID   string
	mu       sync.Mutex
	peers    map[string]*MemTransport
	receiver gossip.Receiver
}

// NewMemTransport creates a transport for nodeID on hub. Call Start to
// register it so other transports on the hub can Dial it.
func NewMemTransport(hub *MemHub, nodeID string) *MemTransport {
	return &MemTransport{hub: hub, nodeID: nodeID, peers: make(map[string]*MemTransport)}
}

func (t *MemTransport) Start() error {
	t.hub.mu.Lock()
	defer t.hub.mu.Unlock()
	t.hub.nodes[t.nodeID] = t
	return nil
}

func (t *MemTransport) Stop() {
	t.hub.mu.Lock()
	delete(t.hub.nodes, t.nodeID)
	t.hub.mu.Unlock()
}

func (t *MemTransport) SetReceiver(r gossip.Receiver) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.receiver = r
}

// Dial connects t to the hub's transport registered under id, ignoring addr
// (there is no real address space in-process).
func (t *MemTransport) Dial(id, _ string) error {
	t.hub.mu.Lock()
	peer, ok := t.hub.nodes[id]
	t.hub.mu.Unlock()
	if !ok {
		return nil
	}
	t.mu.Lock()
	t.peers[id] = peer
	t.mu.Unlock()
	peer.mu.Lock()
	peer.peers[t.nodeID] = t
	peer.mu.Unlock()
	return nil
}

func (t *MemTransport) ConnectedPeers() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.peers)
}

// Broadcast delivers msg to every dialed peer's receiver synchronously.
func (t *MemTransport) Broadcast(msg gossip.Message) {
	t.mu.Lock()
	peers := make([]*MemTransport, 0, len(t.peers))
	for _, p := range t.peers {
		peers = append(peers, p)
	}
	t.mu.Unlock()
	for _, p := range peers {
		p.mu.Lock()
		r := p.receiver
		p.mu.Unlock()
		if r != nil {
			r(t.nodeID, msg)
		}
	}
}
