// Package identity holds the per-user aggregate state: the permission-gated
// profile fields, linked users and per-blockchain key custody.
package identity

import (
	"github.com/beco/beconode/chain"
	"github.com/beco/beconode/permission"
	"github.com/beco/beconode/protoerr"
	"github.com/google/uuid"
)

// PublicUser is the externally-visible projection of a User after
// permission filtering. Equality is by ID only, matching the spec's
// "equality is by id only" rule for the wire type.
type PublicUser struct {
	ID         uuid.UUID `json:"id"`
	FirstName  *string   `json:"first_name,omitempty"`
	OtherNames []string  `json:"other_names,omitempty"`
	LastName   *string   `json:"last_name,omitempty"`
}

// PrincipalID satisfies permission.Principal.
func (p PublicUser) PrincipalID() string { return p.ID.String() }

// Equal compares two PublicUsers by ID only.
func (p PublicUser) Equal(other PublicUser) bool { return p.ID == other.ID }

// UserDetails bundles the three permission-gated profile fields.
type UserDetails struct {
	FirstName  *permission.Model[*string]
	OtherNames *permission.Model[[]string]
	LastName   *permission.Model[*string]
}

// NewUserDetails creates empty, owner-gated profile fields for ownerID.
func NewUserDetails(ownerID uuid.UUID) UserDetails {
	owner := ownerID.String()
	return UserDetails{
		FirstName:  permission.New[*string](owner, nil, "first_name"),
		OtherNames: permission.New[[]string](owner, nil, "other_names"),
		LastName:   permission.New[*string](owner, nil, "last_name"),
	}
}

// User is the authoritative per-node replica of one identity record.
type User struct {
	ID           uuid.UUID
	Sequence     uint64
	Details      UserDetails
	ChainCustody map[chain.Blockchain]*chain.Custody
	LinkedUsers  map[uuid.UUID]PublicUser

	// LastAppliedFingerprint is the content fingerprint of the most
	// recently committed mutation, persisted alongside the rest of the
	// record. A VALIDATED envelope whose fingerprint matches is a
	// redelivery (the gossip layer does not deduplicate envelopes) and is resolved
	// without being re-applied, so Sequence never advances twice for one
	// logical commit.
	LastAppliedFingerprint *uint64
}

// NewUser creates a fresh User owned by itself, with no custody or links.
func NewUser(id uuid.UUID) *User {
	return &User{
		ID:           id,
		Details:      NewUserDetails(id),
		ChainCustody: make(map[chain.Blockchain]*chain.Custody),
		LinkedUsers:  make(map[uuid.UUID]PublicUser),
	}
}

// PublicView projects u through each field's ACL for caller, omitting
// fields caller cannot read rather than erroring.
func (u *User) PublicView(caller permission.Principal) PublicUser {
	pv := PublicUser{ID: u.ID}
	if v, err := u.Details.FirstName.Value(caller); err == nil {
		pv.FirstName = v
	}
	if v, err := u.Details.OtherNames.Value(caller); err == nil {
		pv.OtherNames = v
	}
	if v, err := u.Details.LastName.Value(caller); err == nil {
		pv.LastName = v
	}
	return pv
}

// IsOwner reports whether caller is u's own owning principal. Linked-user
// membership has no separate PermissionModel of its own — it is
// account-level metadata gated the same way every UserDetails field's
// owner slot is, so this is the one check both the authoritative apply and
// the dry-run corroboration path share.
func (u *User) IsOwner(caller permission.Principal) bool {
	return caller.PrincipalID() == u.ID.String()
}

// AddLinkedUser records that target is linked from u. Only u's owner may
// change its links.
func (u *User) AddLinkedUser(target PublicUser, caller permission.Principal) error {
	if !u.IsOwner(caller) {
		return protoerr.New(protoerr.KindPermissionDenied, "user does not have permission to link users")
	}
	if _, ok := u.LinkedUsers[target.ID]; ok {
		return protoerr.New(protoerr.KindAlreadyExists, "user is already linked")
	}
	u.LinkedUsers[target.ID] = target
	return nil
}

// RemoveLinkedUser removes a previously linked user. Only u's owner may
// change its links.
func (u *User) RemoveLinkedUser(targetID uuid.UUID, caller permission.Principal) error {
	if !u.IsOwner(caller) {
		return protoerr.New(protoerr.KindPermissionDenied, "user does not have permission to unlink users")
	}
	if _, ok := u.LinkedUsers[targetID]; !ok {
		return protoerr.New(protoerr.KindNotFound, "user is not linked")
	}
	delete(u.LinkedUsers, targetID)
	return nil
}

// AddAccount generates a new key for blockchain via factory and appends it
// to the chain's permission-gated custody list, refusing a duplicate alias.
func (u *User) AddAccount(factory chain.KeyFactory, bc chain.Blockchain, algorithm *string, alias string, caller permission.Principal) error {
	custody, ok := u.ChainCustody[bc]
	if !ok {
		custody = chain.NewCustody(u.ID.String(), bc)
		u.ChainCustody[bc] = custody
	}
	if custody.HasAlias(alias, caller) {
		return protoerr.New(protoerr.KindAlreadyExists, "alias already exists")
	}
	pub, priv, addr, err := factory.Generate(bc, algorithm)
	if err != nil {
		return protoerr.Wrap(protoerr.KindInternal, "generate key", err)
	}
	key := chain.Key{Alias: alias, PublicKey: pub, PrivateKey: priv, ChainSpecificAddress: addr}
	return custody.Append(key, caller)
}
