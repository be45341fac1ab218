package gossip

import (
	"crypto/tls"
	"fmt"
	"log"
	"net"
	"sync"
	"time"
)

// DefaultMaxPeers is the default limit on simultaneous peer connections,
// carried over from the node's own connection-handling defaults.
const DefaultMaxPeers = 50

// Receiver is invoked for every Message a Transport delivers from a peer.
type Receiver func(peerID string, msg Message)

// Transport moves Messages between this node and its connected peers. It
// knows nothing about topics or envelopes — that's Router's job.
type Transport interface {
	Start() error
	Stop()
	Broadcast(msg Message)
	Dial(id, addr string) error
	ConnectedPeers() int
	SetReceiver(Receiver)
}

// TCPTransport listens for incoming peers and manages outgoing connections
// over length-prefixed JSON framing, optionally behind mTLS.
type TCPTransport struct {
	nodeID     string
	listenAddr string
	tlsConfig  *tls.Config // nil → plain TCP
	maxPeers   int

	mu       sync.RWMutex
	peers    map[string]*Peer
	receiver Receiver

	listener net.Listener
	stopCh   chan struct{}
}

// NewTCPTransport creates a Transport that will listen on listenAddr.
func NewTCPTransport(nodeID, listenAddr string, tlsCfg *tls.Config) *TCPTransport {
	return &TCPTransport{
		nodeID:     nodeID,
		listenAddr: listenAddr,
		tlsConfig:  tlsCfg,
		maxPeers:   DefaultMaxPeers,
		peers:      make(map[string]*Peer),
		stopCh:     make(chan struct{}),
	}
}

// SetReceiver registers the callback invoked for every inbound Message.
func (t *TCPTransport) SetReceiver(r Receiver) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.receiver = r
}

// Start begins accepting connections.
func (t *TCPTransport) Start() error {
	var ln net.Listener
	var err error
	if t.tlsConfig != nil {
		ln, err = tls.Listen("tcp", t.listenAddr, t.tlsConfig)
	} else {
		ln, err = net.Listen("tcp", t.listenAddr)
	}
	if err != nil {
		return fmt.Errorf("listen %s: %w", t.listenAddr, err)
	}
	t.listener = ln
	go t.acceptLoop()
	return nil
}

// Stop shuts down the transport and closes every peer connection.
func (t *TCPTransport) Stop() {
	close(t.stopCh)
	if t.listener != nil {
		t.listener.Close()
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, p := range t.peers {
		p.Close()
	}
}

// Dial connects to a peer at addr and registers it under id.
func (t *TCPTransport) Dial(id, addr string) error {
	peer, err := Connect(id, addr, t.tlsConfig)
	if err != nil {
		return err
	}
	t.mu.Lock()
	t.peers[id] = peer
	t.mu.Unlock()
	go t.readLoop(peer)
	return nil
}

// ConnectedPeers returns the current peer count.
func (t *TCPTransport) ConnectedPeers() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.peers)
}

// Broadcast sends msg to every connected peer, logging (not failing) on a
// per-peer send error so one stalled peer can't block the others.
func (t *TCPTransport) Broadcast(msg Message) {
	t.mu.RLock()
	peers := make([]*Peer, 0, len(t.peers))
	for _, p := range t.peers {
		peers = append(peers, p)
	}
	t.mu.RUnlock()
	for _, p := range peers {
		if err := p.Send(msg); err != nil {
			log.Printf("[gossip] broadcast to %s: %v", p.ID, err)
		}
	}
}

func (t *TCPTransport) acceptLoop() {
	for {
		conn, err := t.listener.Accept()
		if err != nil {
			select {
			case <-t.stopCh:
				return
			default:
				log.Printf("[gossip] accept error: %v", err)
				time.Sleep(100 * time.Millisecond)
				continue
			}
		}
		t.mu.RLock()
		peerCount := len(t.peers)
		t.mu.RUnlock()
		if peerCount >= t.maxPeers {
			log.Printf("[gossip] max peers (%d) reached, rejecting %s", t.maxPeers, conn.RemoteAddr())
			conn.Close()
			continue
		}
		peer := NewPeer(conn.RemoteAddr().String(), conn.RemoteAddr().String(), conn)
		t.mu.Lock()
		t.peers[peer.ID] = peer
		t.mu.Unlock()
		go t.readLoop(peer)
	}
}

func (t *TCPTransport) readLoop(peer *Peer) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("[gossip] readLoop panic from %s: %v", peer.ID, r)
		}
		peer.Close()
		t.mu.Lock()
		delete(t.peers, peer.ID)
		t.mu.Unlock()
	}()
	for {
		msg, err := peer.Receive()
		if err != nil {
			return
		}
		t.mu.RLock()
		receiver := t.receiver
		t.mu.RUnlock()
		if receiver != nil {
			receiver(peer.ID, msg)
		}
	}
}
