package validatorproto

import (
	"log"
	"math"

	"github.com/beco/beconode/envelope"
)

// QuorumTally accumulates VALID/INVALID/IGNORED votes into the serializer's
// in-flight envelope for a user and decides when a quorum has been reached.
type QuorumTally struct {
	s *Serializer
}

// NewQuorumTally creates a QuorumTally bound to s; it mutates s's queues
// directly, so the two are constructed together.
func NewQuorumTally(s *Serializer) *QuorumTally {
	return &QuorumTally{s: s}
}

// Merge applies one vote envelope to the in-flight request for its user.
func (t *QuorumTally) Merge(vote *envelope.Envelope) {
	t.s.mu.Lock()
	q, ok := t.s.queues[vote.UserID]
	if !ok || q.inFlight == nil {
		t.s.mu.Unlock()
		t.publishNotFound(vote)
		return
	}
	if vote.Hash != q.inFlight.Hash {
		t.s.mu.Unlock()
		return // stale vote, tally hash mismatch
	}

	inFlight := q.inFlight
	for _, peer := range vote.ValidatedSignatures {
		inFlight.AddSignature(envelope.StatusValid, peer)
	}
	for _, peer := range vote.FailedSignatures {
		inFlight.AddSignature(envelope.StatusInvalid, peer)
	}
	for _, peer := range vote.IgnoreSignatures {
		inFlight.AddSignature(envelope.StatusIgnored, peer)
	}

	effectivePeers := inFlight.ConnectedPeers
	ignored := uint32(len(inFlight.IgnoreSignatures))
	if ignored > effectivePeers {
		ignored = effectivePeers
	}
	effectivePeers -= ignored

	validatedThreshold := ceilFraction(effectivePeers, 0.8)
	failedThreshold := ceilFraction(effectivePeers, 0.2)

	validatedCount := uint32(len(inFlight.ValidatedSignatures))
	failedCount := uint32(len(inFlight.FailedSignatures))

	var verdict envelope.RequestStatus
	switch {
	case validatedCount >= validatedThreshold:
		verdict = envelope.StatusValidated
	case failedCount >= failedThreshold:
		verdict = envelope.StatusFailed
	default:
		t.s.mu.Unlock()
		return
	}

	result := *inFlight
	result.Status = verdict
	t.s.mu.Unlock()

	if err := t.s.router.Publish(&result); err != nil {
		log.Printf("[validatorproto] publish %s for user %s: %v", verdict, vote.UserID, err)
		return
	}
	t.s.complete(vote.UserID)
}

func (t *QuorumTally) publishNotFound(vote *envelope.Envelope) {
	result := *vote
	result.Status = envelope.StatusNotFound
	if err := t.s.router.Publish(&result); err != nil {
		log.Printf("[validatorproto] publish notfound for user %s: %v", vote.UserID, err)
	}
}

// ceilFraction computes ⌈n × frac⌉ as specified for the threshold math.
func ceilFraction(n uint32, frac float64) uint32 {
	return uint32(math.Ceil(float64(n) * frac))
}
