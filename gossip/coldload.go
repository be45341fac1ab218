package gossip

import (
	"encoding/json"
	"log"

	"github.com/beco/beconode/envelope"
	"github.com/beco/beconode/mutation"
	"github.com/google/uuid"
)

// BuildLoadRequest constructs the envelope a user node publishes when it
// needs a user it does not hold in memory, adapted from the block-sync
// request/response pattern to a single cold identity read. OriginatorHash
// carries the request's own fingerprint through to the RESPONSE, since the
// response's payload (the loaded user) differs from the request's, so the
// response can't be refingerprinted to recover it.
func BuildLoadRequest(userID, callingUser uuid.UUID, self envelope.PeerID) *envelope.Envelope {
	req, _ := mutation.New(mutation.LoadUser, mutation.LoadUserPayload{})
	env := &envelope.Envelope{
		Request:          req,
		UserID:           userID,
		CallingUser:      callingUser,
		Status:           envelope.StatusLoad,
		OriginatorPeerID: &self,
	}
	fp := uint64(envelope.Compute(env))
	env.OriginatorHash = &fp
	return env
}

// BuildFetchRequest constructs a read-only fetch envelope, distinct from
// LOAD in that the originator does not intend to keep the user resident.
func BuildFetchRequest(userID, callingUser uuid.UUID, self envelope.PeerID) *envelope.Envelope {
	req, _ := mutation.New(mutation.FetchUser, mutation.FetchUserPayload{})
	env := &envelope.Envelope{
		Request:          req,
		UserID:           userID,
		CallingUser:      callingUser,
		Status:           envelope.StatusFetch,
		OriginatorPeerID: &self,
	}
	fp := uint64(envelope.Compute(env))
	env.OriginatorHash = &fp
	return env
}

// BuildResponse wraps userJSON as the RESPONSE to a LOAD/FETCH request,
// preserving the originator and originator hash so only the requesting peer
// acts on it, against the request it actually made.
func BuildResponse(req *envelope.Envelope, userJSON []byte) *envelope.Envelope {
	return &envelope.Envelope{
		Request:          mutation.Request{Kind: req.Request.Kind, Payload: json.RawMessage(userJSON)},
		UserID:           req.UserID,
		CallingUser:      req.CallingUser,
		Status:           envelope.StatusResponse,
		OriginatorPeerID: req.OriginatorPeerID,
		OriginatorHash:   req.OriginatorHash,
	}
}

// ForSelf reports whether a RESPONSE envelope was addressed to self.
func ForSelf(env *envelope.Envelope, self envelope.PeerID) bool {
	return env.OriginatorPeerID != nil && *env.OriginatorPeerID == self
}

// BuildNewAnnouncement wraps a freshly created user's JSON as a NEW
// envelope, broadcast so storage nodes can persist a copy even though a
// brand-new user never goes through PROPOSE/CORROBORATE (there is no
// existing owner to corroborate a first record against).
func BuildNewAnnouncement(userID uuid.UUID, userJSON []byte) *envelope.Envelope {
	return &envelope.Envelope{
		Request: mutation.Request{Kind: mutation.AddUser, Payload: json.RawMessage(userJSON)},
		UserID:  userID,
		Status:  envelope.StatusNew,
	}
}

// ColdLoadLookup resolves a user's current JSON encoding, or an error if it
// is not held locally.
type ColdLoadLookup func(id uuid.UUID) (json.RawMessage, error)

// ColdLoadPersist stores a NEW announcement's user JSON if not already held.
type ColdLoadPersist func(id uuid.UUID, data json.RawMessage) error

// ColdLoadServer answers LOAD/FETCH requests from local state and persists
// NEW announcements — the storage role's side of the cold-read protocol.
// It never votes or applies mutations; it only archives and serves reads.
type ColdLoadServer struct {
	router  *Router
	lookup  ColdLoadLookup
	persist ColdLoadPersist
}

// NewColdLoadServer creates a ColdLoadServer over router, using lookup to
// answer LOAD/FETCH and persist to archive NEW announcements.
func NewColdLoadServer(router *Router, lookup ColdLoadLookup, persist ColdLoadPersist) *ColdLoadServer {
	return &ColdLoadServer{router: router, lookup: lookup, persist: persist}
}

// HandleRequest is the gossip.Handler for LOAD and FETCH: look the user up
// locally and, if held, publish it back as a RESPONSE to the originator. A
// miss is silent — the requester's pending wait simply times out.
func (s *ColdLoadServer) HandleRequest(_ string, env *envelope.Envelope) {
	data, err := s.lookup(env.UserID)
	if err != nil {
		return
	}
	resp := BuildResponse(env, data)
	if err := s.router.Publish(resp); err != nil {
		log.Printf("[gossip] publish cold-load response for user %s: %v", env.UserID, err)
	}
}

// HandleNew is the gossip.Handler for NEW: persist the announced user if
// this node does not already hold a copy.
func (s *ColdLoadServer) HandleNew(_ string, env *envelope.Envelope) {
	if _, err := s.lookup(env.UserID); err == nil {
		return
	}
	if err := s.persist(env.UserID, env.Request.Payload); err != nil {
		log.Printf("[gossip] persist NEW user %s: %v", env.UserID, err)
	}
}
