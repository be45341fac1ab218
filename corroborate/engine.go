// Package corroborate implements the user-node side of re-evaluating a
// peer's proposal against local state and casting a vote.
package corroborate

import (
	"encoding/json"
	"log"

	"github.com/beco/beconode/chain"
	"github.com/beco/beconode/envelope"
	"github.com/beco/beconode/gossip"
	"github.com/beco/beconode/identity"
	"github.com/beco/beconode/mutation"
	"github.com/beco/beconode/protoerr"
	"github.com/google/uuid"
)

// UserSource looks up a locally-held user by ID. Returns ok=false if the
// user is not loaded, which corroborates as IGNORED rather than an error.
type UserSource func(id uuid.UUID) (*identity.User, bool)

// Engine re-evaluates CORROBORATE envelopes against local state and emits
// VALID/INVALID/IGNORED votes.
type Engine struct {
	self   envelope.PeerID
	users  UserSource
	router *gossip.Router
}

// NewEngine creates an Engine voting as self, resolving users via lookup.
func NewEngine(self envelope.PeerID, lookup UserSource, router *gossip.Router) *Engine {
	return &Engine{self: self, users: lookup, router: router}
}

// HandleCorroborate is the gossip.Handler for the CORROBORATE topic. It
// only reacts to envelopes still in the CORROBORATE status — votes
// (VALID/INVALID/IGNORED/NOTFOUND) also travel on this topic but are
// consumed by the validator side, not re-corroborated.
func (e *Engine) HandleCorroborate(_ string, env *envelope.Envelope) {
	if env.Status != envelope.StatusCorroborate {
		return
	}

	user, ok := e.users(env.UserID)
	if !ok {
		e.vote(env, envelope.StatusIgnored)
		return
	}

	if err := CheckProposal(user, env.Request, env.CallingUser); err != nil {
		e.vote(env, envelope.StatusInvalid)
		return
	}
	e.vote(env, envelope.StatusValid)
}

// CheckProposal runs the permission and validity checks a mutation would
// need to pass without mutating user, mirroring UserState::dry_run. It
// never writes to user: Propose only checks the caller against the model's
// ACL. Exported so the proposing node can run the same synchronous check
// locally before ever publishing PROPOSE.
func CheckProposal(user *identity.User, req mutation.Request, callingUser uuid.UUID) error {
	caller := identity.PublicUser{ID: callingUser}
	switch req.Kind {
	case mutation.FirstName:
		return user.Details.FirstName.Propose(caller)
	case mutation.OtherNames:
		return user.Details.OtherNames.Propose(caller)
	case mutation.LastName:
		return user.Details.LastName.Propose(caller)
	case mutation.AddAccount:
		return checkAddAccountProposal(user, req.Payload, caller)
	case mutation.AddLinkedUser, mutation.RemoveLinkedUser:
		if !user.IsOwner(caller) {
			return protoerr.New(protoerr.KindPermissionDenied, "user does not have permission to modify linked users")
		}
		return nil
	default:
		return nil
	}
}

// checkAddAccountProposal mirrors identity.User.AddAccount's authoritative
// checks without mutating anything: an alias already visible to caller on
// the target blockchain's custody list rejects with AlreadyExists (same as
// Custody.HasAlias), otherwise caller must hold write access on that
// custody model (same as Custody.Append's ValueMut) — or, if the user has
// no custody list yet for this blockchain, be the user itself, since apply
// creates that list owned by the user and no one else.
func checkAddAccountProposal(user *identity.User, payload json.RawMessage, caller identity.PublicUser) error {
	var p mutation.AddAccountPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return protoerr.Wrap(protoerr.KindInvalidRequest, "decode add_account payload", err)
	}
	custody, ok := user.ChainCustody[chain.Blockchain(p.Blockchain)]
	if !ok {
		if !user.IsOwner(caller) {
			return protoerr.New(protoerr.KindPermissionDenied, "user does not have permission to propose chain_custody")
		}
		return nil
	}
	if custody.HasAlias(p.Alias, caller) {
		return protoerr.New(protoerr.KindAlreadyExists, "alias already exists")
	}
	return custody.Model().Propose(caller)
}

func (e *Engine) vote(env *envelope.Envelope, status envelope.RequestStatus) {
	result := &envelope.Envelope{
		Request:     env.Request,
		UserID:      env.UserID,
		CallingUser: env.CallingUser,
		Status:      status,
		Hash:        env.Hash,
	}
	result.AddSignature(status, e.self)
	if err := e.router.Publish(result); err != nil {
		log.Printf("[corroborate] publish %s vote for user %s: %v", status, env.UserID, err)
	}
}
