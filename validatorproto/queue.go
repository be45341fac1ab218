// Package validatorproto implements the validator-node half of the
// protocol: a per-user serialized proposal queue (Serializer) and the
// quorum vote tally that decides VALIDATED/FAILED (QuorumTally). A
// validator never stores user state — it only tallies identities.
package validatorproto

import (
	"github.com/beco/beconode/envelope"
)

// queue is one user's FIFO of pending proposals plus the one currently
// being corroborated. At most one inFlight per user at any instant.
type queue struct {
	inFlight *envelope.Envelope
	waiting  []*envelope.Envelope
}

func (q *queue) push(env *envelope.Envelope) {
	q.waiting = append(q.waiting, env)
}

// promote moves the oldest waiting entry into inFlight if inFlight is
// empty, returning it (or nil if nothing was promoted).
func (q *queue) promote() *envelope.Envelope {
	if q.inFlight != nil || len(q.waiting) == 0 {
		return nil
	}
	q.inFlight = q.waiting[0]
	q.waiting = q.waiting[1:]
	return q.inFlight
}
