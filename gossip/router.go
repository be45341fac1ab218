package gossip

import (
	"encoding/json"
	"fmt"
	"log"
	"sync"

	"github.com/beco/beconode/envelope"
)

// publishQueueDepth is the bounded publish channel capacity. Producers
// that find it full block until the background publisher drains it.
const publishQueueDepth = 32

// Handler processes an envelope received on a subscribed topic. peerID
// identifies the connection it arrived on ("" for locally-originated loopback
// deliveries, e.g. single-node mode).
type Handler func(peerID string, env *envelope.Envelope)

// Router is the typed topic multiplexer over a Transport: publish/subscribe
// by RequestStatus topic name, with at-most-once delivery per peer per
// message (the transport layer does not retry) and a bounded outbound
// queue for back-pressure.
type Router struct {
	transport Transport

	mu       sync.RWMutex
	handlers map[string]Handler

	outbox chan outboundMsg
	done   chan struct{}
}

type outboundMsg struct {
	topic string
	data  []byte
}

// NewRouter creates a Router over transport and starts its publish worker.
// It does not start the transport itself; call Start for that.
func NewRouter(transport Transport) *Router {
	r := &Router{
		transport: transport,
		handlers:  make(map[string]Handler),
		outbox:    make(chan outboundMsg, publishQueueDepth),
		done:      make(chan struct{}),
	}
	transport.SetReceiver(r.onReceive)
	go r.publishLoop()
	return r
}

// Start begins accepting and dialing peer connections.
func (r *Router) Start() error { return r.transport.Start() }

// Stop shuts down the transport and the publish worker.
func (r *Router) Stop() {
	r.transport.Stop()
	close(r.done)
}

// Dial connects to a peer at addr under id.
func (r *Router) Dial(id, addr string) error { return r.transport.Dial(id, addr) }

// ConnectedPeers returns the current peer count as seen by the transport.
func (r *Router) ConnectedPeers() int { return r.transport.ConnectedPeers() }

// Subscribe registers h for topic, replacing any previous handler. Votes
// (VALID/INVALID/IGNORED/NOTFOUND) all arrive on the CORROBORATE topic;
// subscribe to envelope.StatusCorroborate.Topic() to see them and branch
// on env.Status.
func (r *Router) Subscribe(topic string, h Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[topic] = h
}

// Publish enqueues env for broadcast on env.Status's topic. It blocks if
// the outbound queue is full (back-pressure, per the concurrency model),
// and rejects envelopes that would exceed MaxMessageSize.
func (r *Router) Publish(env *envelope.Envelope) error {
	data, err := json.Marshal(env)
	if err != nil {
		return err
	}
	if len(data) > MaxMessageSize {
		return fmt.Errorf("gossip: envelope %d bytes exceeds max %d", len(data), MaxMessageSize)
	}
	r.outbox <- outboundMsg{topic: env.Status.Topic(), data: data}
	return nil
}

func (r *Router) publishLoop() {
	for {
		select {
		case <-r.done:
			return
		case m := <-r.outbox:
			r.transport.Broadcast(Message{Topic: m.topic, Payload: m.data})
		}
	}
}

func (r *Router) onReceive(peerID string, msg Message) {
	var env envelope.Envelope
	if err := json.Unmarshal(msg.Payload, &env); err != nil {
		log.Printf("[gossip] unmarshal envelope on topic %s: %v", msg.Topic, err)
		return
	}
	r.mu.RLock()
	h, ok := r.handlers[msg.Topic]
	r.mu.RUnlock()
	if !ok {
		return
	}
	func() {
		defer func() {
			if rec := recover(); rec != nil {
				log.Printf("[gossip] handler panicked for topic %s: %v", msg.Topic, rec)
			}
		}()
		h(peerID, &env)
	}()
}

// Deliver feeds env directly into the matching local handler without going
// over the transport, the loopback path single-node mode and local
// re-dispatch (e.g. after this node itself publishes) relies on.
func (r *Router) Deliver(env *envelope.Envelope) {
	r.mu.RLock()
	h, ok := r.handlers[env.Status.Topic()]
	r.mu.RUnlock()
	if ok {
		h("", env)
	}
}
