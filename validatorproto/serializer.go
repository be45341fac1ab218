package validatorproto

import (
	"log"
	"sync"
	"time"

	"github.com/beco/beconode/envelope"
	"github.com/beco/beconode/gossip"
	"github.com/google/uuid"
)

// DefaultPeerCountBias is the number subtracted from the live connection
// count before computing quorum thresholds, excluding the originator and
// the validator itself from its own tally (spec §9: brittle, kept
// configurable rather than hardcoded).
const DefaultPeerCountBias = 2

// Serializer owns one queue per user_id and is the only component allowed
// to mutate it (§5: exclusively owned by the serializer).
type Serializer struct {
	mu            sync.Mutex
	queues        map[uuid.UUID]*queue
	router        *gossip.Router
	peerCountBias uint32
	tally         *QuorumTally
}

// NewSerializer creates a Serializer publishing CORROBORATE/VALIDATED/FAILED
// through router. peerCountBias overrides DefaultPeerCountBias when > 0.
func NewSerializer(router *gossip.Router, peerCountBias uint32) *Serializer {
	if peerCountBias == 0 {
		peerCountBias = DefaultPeerCountBias
	}
	s := &Serializer{
		queues:        make(map[uuid.UUID]*queue),
		router:        router,
		peerCountBias: peerCountBias,
	}
	s.tally = NewQuorumTally(s)
	return s
}

// HandlePropose is the gossip.Handler for the PROPOSE topic.
func (s *Serializer) HandlePropose(_ string, env *envelope.Envelope) {
	env.DatetimeUnixNano = time.Now().UnixNano()
	env.ConnectedPeers = s.effectiveConnectedPeers()
	env.Status = envelope.StatusCorroborate
	env.Hash = envelope.TallyHash(env)

	s.mu.Lock()
	q, ok := s.queues[env.UserID]
	if !ok {
		q = &queue{}
		s.queues[env.UserID] = q
	}
	q.push(env)
	s.mu.Unlock()

	s.processNext(env.UserID)
}

// HandleVote is the gossip.Handler for the CORROBORATE topic, dispatching
// on env.Status for VALID/INVALID/IGNORED (NOTFOUND votes are not expected
// inbound — the validator is the one that emits them).
func (s *Serializer) HandleVote(_ string, env *envelope.Envelope) {
	switch env.Status {
	case envelope.StatusValid, envelope.StatusInvalid, envelope.StatusIgnored:
	default:
		return
	}
	s.tally.Merge(env)
}

// effectiveConnectedPeers applies peerCountBias, never going negative.
func (s *Serializer) effectiveConnectedPeers() uint32 {
	n := uint32(s.router.ConnectedPeers())
	if n <= s.peerCountBias {
		return 0
	}
	return n - s.peerCountBias
}

// inFlightFor returns the current in-flight envelope for user, or nil.
func (s *Serializer) inFlightFor(user uuid.UUID) *envelope.Envelope {
	s.mu.Lock()
	defer s.mu.Unlock()
	q, ok := s.queues[user]
	if !ok {
		return nil
	}
	return q.inFlight
}

// complete removes the in-flight entry for user (VALIDATED/FAILED reached)
// and promotes the next queued proposal, broadcasting CORROBORATE for it.
func (s *Serializer) complete(user uuid.UUID) {
	s.mu.Lock()
	q, ok := s.queues[user]
	if ok {
		q.inFlight = nil
	}
	s.mu.Unlock()
	s.processNext(user)
}

// processNext promotes the next waiting proposal to in-flight if none is
// running, and re-broadcasts CORROBORATE for it.
func (s *Serializer) processNext(user uuid.UUID) {
	s.mu.Lock()
	q, ok := s.queues[user]
	if !ok {
		s.mu.Unlock()
		return
	}
	promoted := q.promote()
	s.mu.Unlock()
	if promoted == nil {
		return
	}
	if err := s.router.Publish(promoted); err != nil {
		log.Printf("[validatorproto] publish corroborate for user %s: %v", user, err)
	}
}

// EvictStale runs periodically (ticker loop, same idiom as a periodic
// production loop) to drop in-flight entries that have sat uncorroborated
// past maxAge, unblocking that user's queue — the "routine check" the
// validator never otherwise performs on its own.
func (s *Serializer) EvictStale(maxAge time.Duration) {
	cutoff := time.Now().Add(-maxAge).UnixNano()
	var stale []uuid.UUID
	s.mu.Lock()
	for user, q := range s.queues {
		if q.inFlight != nil && q.inFlight.DatetimeUnixNano < cutoff {
			stale = append(stale, user)
		}
	}
	s.mu.Unlock()
	for _, user := range stale {
		log.Printf("[validatorproto] evicting stale in-flight proposal for user %s", user)
		s.complete(user)
	}
}

// RunJanitor ticks EvictStale every interval until done is closed.
func (s *Serializer) RunJanitor(interval, maxAge time.Duration, done <-chan struct{}) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			s.EvictStale(maxAge)
		}
	}
}
