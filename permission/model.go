// Package permission implements the owner/editor/viewer access gate shared
// by every mutable field on a user record.
package permission

import (
	"encoding/json"

	"github.com/beco/beconode/protoerr"
)

// Principal is the minimal identity permission checks need. identity.PublicUser
// satisfies this without permission importing identity, avoiding an import cycle.
type Principal interface {
	PrincipalID() string
}

// Model guards a value of type T behind an owner, a set of editors and a set
// of viewers. The zero value is not usable; construct with New.
type Model[T any] struct {
	ownerID string
	editors []string
	viewers []string
	value   T
	key     string
}

// New creates a Model owned by ownerID, holding value under key. key
// identifies the field for error messages (e.g. "first_name").
func New[T any](ownerID string, value T, key string) *Model[T] {
	return &Model[T]{ownerID: ownerID, value: value, key: key}
}

// modelJSON is Model's wire/storage encoding. Model's fields are unexported
// (callers must go through the ACL gate, never see raw state), so the
// default json encoding of Model itself would silently marshal to "{}" —
// this type is what actually travels over the wire and into storage.
type modelJSON[T any] struct {
	OwnerID string   `json:"owner_id"`
	Editors []string `json:"editors,omitempty"`
	Viewers []string `json:"viewers,omitempty"`
	Value   T        `json:"value"`
	Key     string   `json:"key"`
}

// MarshalJSON encodes the full model state, not just the gated value —
// storage and cold-load transfer need the ACL lists to survive a round trip.
func (m *Model[T]) MarshalJSON() ([]byte, error) {
	return json.Marshal(modelJSON[T]{
		OwnerID: m.ownerID,
		Editors: m.editors,
		Viewers: m.viewers,
		Value:   m.value,
		Key:     m.key,
	})
}

// UnmarshalJSON restores a model from its MarshalJSON encoding.
func (m *Model[T]) UnmarshalJSON(data []byte) error {
	var aux modelJSON[T]
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	m.ownerID = aux.OwnerID
	m.editors = aux.Editors
	m.viewers = aux.Viewers
	m.value = aux.Value
	m.key = aux.Key
	return nil
}

// OwnerID returns the owning user's ID.
func (m *Model[T]) OwnerID() string { return m.ownerID }

// Key returns the field key this model guards.
func (m *Model[T]) Key() string { return m.key }

// Editors returns a copy of the editor ID list.
func (m *Model[T]) Editors() []string {
	out := make([]string, len(m.editors))
	copy(out, m.editors)
	return out
}

// Viewers returns a copy of the viewer ID list.
func (m *Model[T]) Viewers() []string {
	out := make([]string, len(m.viewers))
	copy(out, m.viewers)
	return out
}

// Value returns the current value if the caller is the owner, an editor or a
// viewer.
func (m *Model[T]) Value(caller Principal) (T, error) {
	var zero T
	if !m.isOwnerOrEditor(caller) && !m.isOwnerOrViewer(caller) {
		return zero, protoerr.New(protoerr.KindPermissionDenied,
			"user does not have permission to view "+m.key)
	}
	return m.value, nil
}

// ValueMut returns a pointer to the current value if the caller is the owner
// or an editor. Callers mutate through the pointer directly.
func (m *Model[T]) ValueMut(caller Principal) (*T, error) {
	if !m.isOwnerOrEditor(caller) {
		return nil, protoerr.New(protoerr.KindPermissionDenied,
			"user does not have permission to mutate "+m.key)
	}
	return &m.value, nil
}

// Propose is the local, synchronous half of a mutation attempt: it checks
// permission and leaves the authoritative write to Update once the gossip
// round concludes VALIDATED. It never mutates m.
func (m *Model[T]) Propose(caller Principal) error {
	if !m.isOwnerOrEditor(caller) {
		return protoerr.New(protoerr.KindPermissionDenied,
			"user does not have permission to propose "+m.key)
	}
	return nil
}

// Update applies value authoritatively. Called from the commit pipeline once
// a mutation request reaches VALIDATED; calling it outside that path bypasses
// quorum and should not be done.
func (m *Model[T]) Update(value T, caller Principal) error {
	if !m.isOwnerOrEditor(caller) {
		return protoerr.New(protoerr.KindPermissionDenied,
			"user does not have permission to update "+m.key)
	}
	m.value = value
	return nil
}

// AddViewer grants view access to user. Rejects the owner (already has full
// access) and a user who is already a viewer.
func (m *Model[T]) AddViewer(userID string, caller Principal) error {
	if !m.isOwnerOrEditor(caller) {
		return protoerr.New(protoerr.KindPermissionDenied, "user does not have permission to add a viewer")
	}
	if m.ownerID == userID {
		return protoerr.New(protoerr.KindAlreadyExists, "user is owner")
	}
	if contains(m.viewers, userID) {
		return protoerr.New(protoerr.KindAlreadyExists, "user already has permission to view "+m.key)
	}
	m.viewers = append(m.viewers, userID)
	return nil
}

// AddEditor grants edit access to user.
func (m *Model[T]) AddEditor(userID string, caller Principal) error {
	if !m.isOwnerOrEditor(caller) {
		return protoerr.New(protoerr.KindPermissionDenied, "user does not have permission to add an editor")
	}
	if m.ownerID == userID {
		return protoerr.New(protoerr.KindAlreadyExists, "user is owner")
	}
	if contains(m.editors, userID) {
		return protoerr.New(protoerr.KindAlreadyExists, "user already has permission to edit "+m.key)
	}
	m.editors = append(m.editors, userID)
	return nil
}

// RemoveViewer revokes view access. The owner can never be removed.
func (m *Model[T]) RemoveViewer(userID string, caller Principal) error {
	if !m.isOwnerOrEditor(caller) {
		return protoerr.New(protoerr.KindPermissionDenied, "user does not have permission to remove a viewer")
	}
	if m.ownerID == userID {
		return protoerr.New(protoerr.KindPermissionDenied, "cannot remove owner")
	}
	if !contains(m.viewers, userID) {
		return protoerr.New(protoerr.KindNotFound, "user is not a viewer")
	}
	m.viewers = remove(m.viewers, userID)
	return nil
}

// RemoveEditor revokes edit access. The owner can never be removed.
func (m *Model[T]) RemoveEditor(userID string, caller Principal) error {
	if !m.isOwnerOrEditor(caller) {
		return protoerr.New(protoerr.KindPermissionDenied, "user does not have permission to remove an editor")
	}
	if m.ownerID == userID {
		return protoerr.New(protoerr.KindPermissionDenied, "cannot remove owner")
	}
	if !contains(m.editors, userID) {
		return protoerr.New(protoerr.KindNotFound, "user is not an editor")
	}
	m.editors = remove(m.editors, userID)
	return nil
}

func (m *Model[T]) isOwnerOrEditor(caller Principal) bool {
	id := caller.PrincipalID()
	return id == m.ownerID || contains(m.editors, id)
}

func (m *Model[T]) isOwnerOrViewer(caller Principal) bool {
	id := caller.PrincipalID()
	return id == m.ownerID || contains(m.viewers, id)
}

func contains(list []string, id string) bool {
	for _, v := range list {
		if v == id {
			return true
		}
	}
	return false
}

func remove(list []string, id string) []string {
	out := list[:0]
	for _, v := range list {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}
