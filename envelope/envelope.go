package envelope

import (
	"github.com/beco/beconode/mutation"
	"github.com/google/uuid"
)

// PeerID is the stable public identifier of a gossip participant.
type PeerID string

// Envelope is the on-wire RequestEnvelope: the unit of gossip traffic for
// the whole propose/corroborate/commit protocol.
type Envelope struct {
	Request             mutation.Request `json:"request"`
	CallingUser         uuid.UUID        `json:"calling_user"`
	UserID              uuid.UUID        `json:"user_id"`
	Status              RequestStatus    `json:"status"`
	ValidatedSignatures []PeerID         `json:"validated_signatures,omitempty"`
	FailedSignatures    []PeerID         `json:"failed_signatures,omitempty"`
	IgnoreSignatures    []PeerID         `json:"ignore_signatures,omitempty"`
	Hash                uint64           `json:"hash"`
	DatetimeUnixNano    int64            `json:"datetime,omitempty"`
	ConnectedPeers      uint32           `json:"connected_peers"`
	OriginatorHash      *uint64          `json:"originator_hash,omitempty"`
	OriginatorPeerID    *PeerID          `json:"originator_peer_id,omitempty"`
}

// AddSignature appends peer to the signature set matching status, doing
// nothing if peer is already present (sets, not bags).
func (e *Envelope) AddSignature(status RequestStatus, peer PeerID) {
	switch status {
	case StatusValid:
		e.ValidatedSignatures = appendUnique(e.ValidatedSignatures, peer)
	case StatusInvalid:
		e.FailedSignatures = appendUnique(e.FailedSignatures, peer)
	case StatusIgnored:
		e.IgnoreSignatures = appendUnique(e.IgnoreSignatures, peer)
	}
}

func appendUnique(list []PeerID, peer PeerID) []PeerID {
	for _, p := range list {
		if p == peer {
			return list
		}
	}
	return append(list, peer)
}
