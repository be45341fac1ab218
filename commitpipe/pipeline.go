// Package commitpipe implements the user-node side of applying a VALIDATED
// or FAILED outcome: the authoritative mutation apply, persistence, and
// resolving whichever local caller is waiting on the pending event.
package commitpipe

import (
	"encoding/json"
	"log"

	"github.com/beco/beconode/chain"
	"github.com/beco/beconode/envelope"
	"github.com/beco/beconode/events"
	"github.com/beco/beconode/gossip"
	"github.com/beco/beconode/identity"
	"github.com/beco/beconode/mutation"
	"github.com/beco/beconode/pending"
	"github.com/google/uuid"
)

// Users is the in-memory per-node replica set a Pipeline reads and writes.
type Users interface {
	Get(id uuid.UUID) (*identity.User, bool)
	Put(user *identity.User)
}

// Store persists a user after a mutation commits against it.
type Store interface {
	SaveUser(user *identity.User, request mutation.Request) error
	LoadUser(id uuid.UUID) (*identity.User, error)
}

// Pipeline applies committed protocol outcomes to local state.
type Pipeline struct {
	self       envelope.PeerID
	users      Users
	store      Store
	registry   *mutation.Registry
	pending    *pending.Registry
	router     *gossip.Router
	emitter    *events.Emitter
	keyFactory chain.KeyFactory
}

// New creates a Pipeline. keyFactory may be nil for nodes that never apply
// AddAccount mutations.
func New(self envelope.PeerID, users Users, store Store, registry *mutation.Registry, pendingReg *pending.Registry, router *gossip.Router, emitter *events.Emitter, keyFactory chain.KeyFactory) *Pipeline {
	return &Pipeline{
		self:       self,
		users:      users,
		store:      store,
		registry:   registry,
		pending:    pendingReg,
		router:     router,
		emitter:    emitter,
		keyFactory: keyFactory,
	}
}

// HandleValidated is the gossip.Handler for the VALIDATED topic: it authoritatively applies the mutation, persists the
// result, and resolves the waiter for this fingerprint.
func (p *Pipeline) HandleValidated(_ string, env *envelope.Envelope) {
	if env.Status != envelope.StatusValidated {
		return
	}
	fp := envelope.Compute(env)
	fpVal := uint64(fp)

	user, ok := p.users.Get(env.UserID)
	if !ok {
		loaded, err := p.store.LoadUser(env.UserID)
		if err != nil {
			log.Printf("[commitpipe] cannot load user %s to apply validated mutation: %v", env.UserID, err)
			p.resolve(fp, envelope.StatusFailed, env.UserID)
			return
		}
		user = loaded
		p.users.Put(user)
	}

	// The gossip layer does not deduplicate envelopes, so the same VALIDATED
	// envelope may be delivered more than once. A fingerprint match against the last commit means
	// this exact mutation is already reflected in user's state: resolve as
	// if it had just been applied, without re-running the handler or
	// advancing Sequence a second time.
	if user.LastAppliedFingerprint != nil && *user.LastAppliedFingerprint == fpVal {
		p.resolve(fp, envelope.StatusValidated, env.UserID)
		return
	}

	ctx := &mutation.Context{
		User:        user,
		CallingUser: identity.PublicUser{ID: env.CallingUser},
		KeyFactory:  p.keyFactory,
	}
	if err := p.registry.Execute(ctx, env.Request); err != nil {
		// The network already reached quorum on VALID for this request, but
		// the local apply disagrees (e.g. state drifted since corroboration
		// ran). This divergence is logged, not silently swallowed, and
		// surfaces to the waiter as FAILED rather than VALIDATED.
		log.Printf("[commitpipe] local apply diverged from quorum for user %s kind %s: %v", env.UserID, env.Request.Kind, err)
		p.resolve(fp, envelope.StatusFailed, env.UserID)
		return
	}

	user.Sequence++
	user.LastAppliedFingerprint = &fpVal
	if err := p.store.SaveUser(user, env.Request); err != nil {
		log.Printf("[commitpipe] persist user %s after commit: %v", env.UserID, err)
	}
	p.emitter.Emit(events.Event{
		Type:   events.EventCommitted,
		UserID: env.UserID,
		Data:   commitEventData(env.Request, user.Sequence),
	})
	p.resolve(fp, envelope.StatusValidated, env.UserID)
}

// HandleFailed is the gossip.Handler for FAILED and NOTFOUND outcomes: no
// state changes, the waiter is simply released with the terminal status.
func (p *Pipeline) HandleFailed(_ string, env *envelope.Envelope) {
	switch env.Status {
	case envelope.StatusFailed, envelope.StatusNotFound:
	default:
		return
	}
	fp := envelope.Compute(env)
	p.resolve(fp, env.Status, env.UserID)
}

// HandleResponse is the gossip.Handler for cold LOAD/FETCH responses. Only
// the originating peer acts on it; LOAD additionally installs the returned
// user into the local replica set, FETCH leaves local state untouched.
func (p *Pipeline) HandleResponse(_ string, env *envelope.Envelope) {
	if env.Status != envelope.StatusResponse || !gossip.ForSelf(env, p.self) {
		return
	}
	if env.OriginatorHash == nil {
		return
	}
	fp := envelope.Fingerprint(*env.OriginatorHash)

	if env.Request.Kind == mutation.LoadUser {
		var user identity.User
		if err := json.Unmarshal(env.Request.Payload, &user); err != nil {
			log.Printf("[commitpipe] decode load response for user %s: %v", env.UserID, err)
			p.resolve(fp, envelope.StatusFailed, env.UserID)
			return
		}
		p.users.Put(&user)
	}
	p.resolve(fp, envelope.StatusResponse, env.UserID)
}

// commitEventData builds the EventCommitted payload, surfacing the linked
// user id for link mutations so the indexer can maintain its reverse index
// without re-decoding the user's full state.
func commitEventData(request mutation.Request, sequence uint64) map[string]any {
	data := map[string]any{"kind": string(request.Kind), "sequence": sequence}
	switch request.Kind {
	case mutation.AddLinkedUser:
		var p mutation.AddLinkedUserPayload
		if json.Unmarshal(request.Payload, &p) == nil {
			data["target_id"] = p.Target.ID.String()
		}
	case mutation.RemoveLinkedUser:
		var p mutation.RemoveLinkedUserPayload
		if json.Unmarshal(request.Payload, &p) == nil {
			data["target_id"] = p.TargetID.String()
		}
	}
	return data
}

func (p *Pipeline) resolve(fp envelope.Fingerprint, status envelope.RequestStatus, userID uuid.UUID) {
	if !p.pending.Exists(fp) {
		return
	}
	p.pending.Update(fp, status, userID)
	p.pending.Ping(fp)
}
