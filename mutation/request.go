// Package mutation defines the MutationRequest tagged variant carried
// inside every RequestEnvelope, and the self-registering dispatch registry
// that applies one to a user's state.
package mutation

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/beco/beconode/chain"
	"github.com/beco/beconode/identity"
	"github.com/google/uuid"
)

// Kind tags which mutation a Request carries.
type Kind string

const (
	FirstName       Kind = "FirstName"
	OtherNames      Kind = "OtherNames"
	LastName        Kind = "LastName"
	AddAccount      Kind = "AddAccount"
	AddLinkedUser   Kind = "AddLinkedUser"
	RemoveLinkedUser Kind = "RemoveLinkedUser"
	LoadUser        Kind = "LoadUser"
	FetchUser       Kind = "FetchUser"
	AddUser         Kind = "AddUser"
)

// Request is the tagged-variant payload: Kind selects which struct Payload
// decodes to. Canonical JSON encoding keeps map-free, deterministic field
// ordering so two Requests with the same meaning fingerprint identically.
type Request struct {
	Kind    Kind            `json:"kind"`
	Payload json.RawMessage `json:"payload"`
}

// FirstNamePayload sets UserDetails.FirstName.
type FirstNamePayload struct {
	Value *string `json:"value"`
}

// OtherNamesPayload sets UserDetails.OtherNames.
type OtherNamesPayload struct {
	Value []string `json:"value"`
}

// LastNamePayload sets UserDetails.LastName.
type LastNamePayload struct {
	Value *string `json:"value"`
}

// AddAccountPayload generates a new chain key under the given alias.
type AddAccountPayload struct {
	Blockchain string  `json:"blockchain"`
	Alias      string  `json:"alias"`
	Algorithm  *string `json:"algorithm,omitempty"`
}

// AddLinkedUserPayload links target into the calling user's LinkedUsers.
// The full PublicUser travels with the request rather than just an ID
// because the validator and corroborators never load arbitrary other
// users just to resolve a link.
type AddLinkedUserPayload struct {
	Target identity.PublicUser `json:"target"`
}

// RemoveLinkedUserPayload unlinks target by ID.
type RemoveLinkedUserPayload struct {
	TargetID uuid.UUID `json:"target_id"`
}

// LoadUserPayload requests a cold load of a user from a storage node.
type LoadUserPayload struct{}

// FetchUserPayload requests a cold fetch (read-only) of a user.
type FetchUserPayload struct{}

// AddUserPayload creates a brand-new user record.
type AddUserPayload struct{}

// New builds a Request, marshaling payload into the Kind's wire shape.
func New(kind Kind, payload any) (Request, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return Request{}, fmt.Errorf("mutation: marshal %s payload: %w", kind, err)
	}
	return Request{Kind: kind, Payload: data}, nil
}

// Context is passed to every Handler: the user being mutated, who is
// calling, and the chain key factory a handler may need (AddAccount).
type Context struct {
	User        *identity.User
	CallingUser identity.PublicUser
	KeyFactory  chain.KeyFactory
}

// Handler applies one decoded Request to application state.
type Handler func(ctx *Context, payload json.RawMessage) error

// Registry maps Kinds to Handlers. Thread-safe for concurrent registration,
// same shape as the teacher's transaction-type dispatch registry.
type Registry struct {
	mu       sync.RWMutex
	handlers map[Kind]Handler
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{handlers: make(map[Kind]Handler)}
}

// Register associates kind with h. Panics on duplicate registration.
func (r *Registry) Register(kind Kind, h Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.handlers[kind]; exists {
		panic(fmt.Sprintf("mutation: handler already registered for Kind %q", kind))
	}
	r.handlers[kind] = h
}

// Execute dispatches req to the handler registered for its Kind.
func (r *Registry) Execute(ctx *Context, req Request) error {
	r.mu.RLock()
	h, ok := r.handlers[req.Kind]
	r.mu.RUnlock()
	if !ok {
		return fmt.Errorf("mutation: no handler registered for Kind %q", req.Kind)
	}
	return h(ctx, req.Payload)
}

// globalRegistry is the package-level singleton the modules/ subpackages
// register into from init().
var globalRegistry = NewRegistry()

// Register adds a handler to the global registry.
func Register(kind Kind, h Handler) {
	globalRegistry.Register(kind, h)
}

// Global returns the package-level registry, for wiring into a UserState.
func Global() *Registry {
	return globalRegistry
}
