package gossip

import (
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/beco/beconode/envelope"
	"github.com/beco/beconode/mutation"
	"github.com/google/uuid"
)

// fakeTransport is a minimal in-package Transport double. testutil.MemTransport
// can't be used here since testutil imports gossip, which would cycle back.
type fakeTransport struct {
	mu       sync.Mutex
	peers    int
	receiver Receiver
	sent     []Message
}

func (f *fakeTransport) Start() error { return nil }
func (f *fakeTransport) Stop()        {}
func (f *fakeTransport) Broadcast(msg Message) {
	f.mu.Lock()
	f.sent = append(f.sent, msg)
	f.mu.Unlock()
}
func (f *fakeTransport) Dial(id, addr string) error { return nil }
func (f *fakeTransport) ConnectedPeers() int        { return f.peers }
func (f *fakeTransport) SetReceiver(r Receiver)     { f.receiver = r }

func (f *fakeTransport) lastSent() (Message, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.sent) == 0 {
		return Message{}, false
	}
	return f.sent[len(f.sent)-1], true
}

func TestPublishBroadcastsOnStatusTopic(t *testing.T) {
	ft := &fakeTransport{}
	r := NewRouter(ft)
	defer r.Stop()

	env := &envelope.Envelope{UserID: uuid.New(), Status: envelope.StatusPropose}
	if err := r.Publish(env); err != nil {
		t.Fatalf("publish: %v", err)
	}

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if _, ok := ft.lastSent(); ok {
			break
		}
		time.Sleep(time.Millisecond)
	}
	msg, ok := ft.lastSent()
	if !ok {
		t.Fatal("expected a broadcast message")
	}
	if msg.Topic != string(envelope.StatusPropose) {
		t.Fatalf("topic = %s, want PROPOSE", msg.Topic)
	}
}

func TestPublishCollapsesVoteStatusesOntoCorroborateTopic(t *testing.T) {
	ft := &fakeTransport{}
	r := NewRouter(ft)
	defer r.Stop()

	env := &envelope.Envelope{UserID: uuid.New(), Status: envelope.StatusValid}
	if err := r.Publish(env); err != nil {
		t.Fatalf("publish: %v", err)
	}

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if _, ok := ft.lastSent(); ok {
			break
		}
		time.Sleep(time.Millisecond)
	}
	msg, ok := ft.lastSent()
	if !ok {
		t.Fatal("expected a broadcast message")
	}
	if msg.Topic != string(envelope.StatusCorroborate) {
		t.Fatalf("topic = %s, want CORROBORATE", msg.Topic)
	}
}

func TestPublishRejectsOversizedEnvelope(t *testing.T) {
	ft := &fakeTransport{}
	r := NewRouter(ft)
	defer r.Stop()

	huge := make([]byte, MaxMessageSize+1)
	for i := range huge {
		huge[i] = 'a'
	}
	env := &envelope.Envelope{
		UserID:  uuid.New(),
		Status:  envelope.StatusPropose,
		Request: mutation.Request{Kind: mutation.FirstName, Payload: json.RawMessage(huge)},
	}
	if err := r.Publish(env); err == nil {
		t.Fatal("expected an error for an oversized envelope")
	}
}

func TestSubscribeAndDeliverDispatchesLocally(t *testing.T) {
	ft := &fakeTransport{}
	r := NewRouter(ft)
	defer r.Stop()

	received := make(chan *envelope.Envelope, 1)
	r.Subscribe(string(envelope.StatusPropose), func(peerID string, env *envelope.Envelope) {
		received <- env
	})

	env := &envelope.Envelope{UserID: uuid.New(), Status: envelope.StatusPropose}
	r.Deliver(env)

	select {
	case got := <-received:
		if got.UserID != env.UserID {
			t.Fatal("delivered envelope mismatch")
		}
	case <-time.After(time.Second):
		t.Fatal("handler was not invoked")
	}
}

func TestOnReceiveIgnoresUnsubscribedTopic(t *testing.T) {
	ft := &fakeTransport{}
	r := NewRouter(ft)
	defer r.Stop()

	// No panic, no handler call: onReceive should just drop this silently.
	r.onReceive("peer", Message{Topic: string(envelope.StatusPropose), Payload: []byte(`{}`)})
}

func TestHandlerPanicIsRecovered(t *testing.T) {
	ft := &fakeTransport{}
	r := NewRouter(ft)
	defer r.Stop()

	r.Subscribe(string(envelope.StatusPropose), func(peerID string, env *envelope.Envelope) {
		panic("boom")
	})

	// Must not crash the test process.
	r.onReceive("peer", Message{Topic: string(envelope.StatusPropose), Payload: []byte(`{}`)})
}
