package node

import (
	"testing"

	"github.com/beco/beconode/chain"
	"github.com/beco/beconode/config"
	"github.com/beco/beconode/identity"
	"github.com/beco/beconode/mutation"
	"github.com/beco/beconode/protoerr"
	"github.com/google/uuid"
)

func newTestNode(t *testing.T, role config.Role) *Node {
	t.Helper()
	dir := t.TempDir()
	cfg := &config.Config{
		NodeID:           "test-" + string(role),
		Role:             role,
		DataDir:          dir,
		KeystorePath:     dir + "/node.keystore",
		RPCPort:          0,
		GossipPort:       0,
		PeerCountBias:    2,
		PendingTimeoutMS: 200,
	}
	n, err := New(cfg, "testpass")
	if err != nil {
		t.Fatalf("node.New: %v", err)
	}
	if err := n.Start(); err != nil {
		t.Fatalf("node.Start: %v", err)
	}
	t.Cleanup(n.Stop)
	return n
}

func TestAddUserThenListUser(t *testing.T) {
	n := newTestNode(t, config.RoleUser)

	created, err := n.AddUser()
	if err != nil {
		t.Fatalf("AddUser: %v", err)
	}
	if created.ID == uuid.Nil {
		t.Fatal("expected a generated user id")
	}

	got, err := n.ListUser(created.ID, created.ID)
	if err != nil {
		t.Fatalf("ListUser: %v", err)
	}
	if !got.Equal(created) {
		t.Fatalf("ListUser returned a different user: %v vs %v", got, created)
	}
}

func TestListUserUnknownReturnsNotFound(t *testing.T) {
	n := newTestNode(t, config.RoleUser)

	_, err := n.ListUser(uuid.New(), uuid.New())
	if err == nil {
		t.Fatal("expected an error for an unknown user")
	}
	if protoerr.KindOf(err) != protoerr.KindNotFound {
		t.Fatalf("kind = %v, want KindNotFound", protoerr.KindOf(err))
	}
}

func TestProposeRejectsStrangerBeforeGossip(t *testing.T) {
	n := newTestNode(t, config.RoleUser)

	created, err := n.AddUser()
	if err != nil {
		t.Fatalf("AddUser: %v", err)
	}

	stranger := uuid.New()
	_, err = n.Propose(mutation.FirstName, mutation.FirstNamePayload{}, created.ID, stranger)
	if err == nil {
		t.Fatal("expected a permission error for a stranger proposing a mutation")
	}
	if protoerr.KindOf(err) != protoerr.KindPermissionDenied {
		t.Fatalf("kind = %v, want KindPermissionDenied", protoerr.KindOf(err))
	}
}

func TestProposeUnknownUserReturnsNotFound(t *testing.T) {
	n := newTestNode(t, config.RoleUser)

	_, err := n.Propose(mutation.FirstName, mutation.FirstNamePayload{}, uuid.New(), uuid.New())
	if err == nil {
		t.Fatal("expected an error for an unknown user")
	}
	if protoerr.KindOf(err) != protoerr.KindNotFound {
		t.Fatalf("kind = %v, want KindNotFound", protoerr.KindOf(err))
	}
}

// TestProposeAddAccountRejectsDuplicateAliasSynchronously asserts the
// spec's alias-conflict scenario: a caller proposing AddAccount for an
// alias already held gets AlreadyExists directly from Propose's local dry
// run, without a PROPOSE ever reaching gossip.
func TestProposeAddAccountRejectsDuplicateAliasSynchronously(t *testing.T) {
	n := newTestNode(t, config.RoleUser)

	created, err := n.AddUser()
	if err != nil {
		t.Fatalf("AddUser: %v", err)
	}
	user, ok := n.users.Get(created.ID)
	if !ok {
		t.Fatal("expected user to be cached after AddUser")
	}
	caller := identity.PublicUser{ID: created.ID}
	if err := user.AddAccount(chain.DefaultFactory(), chain.EVM, nil, "primary", caller); err != nil {
		t.Fatalf("seed account: %v", err)
	}

	payload := mutation.AddAccountPayload{Blockchain: string(chain.EVM), Alias: "primary"}
	if _, err := n.Propose(mutation.AddAccount, payload, created.ID, created.ID); err == nil {
		t.Fatal("expected a synchronous AlreadyExists without a network round trip")
	} else if protoerr.KindOf(err) != protoerr.KindAlreadyExists {
		t.Fatalf("kind = %v, want AlreadyExists", protoerr.KindOf(err))
	}
}

func TestStorageRoleWiresPipelineWithoutEngine(t *testing.T) {
	n := newTestNode(t, config.RoleStorage)

	if n.engine != nil {
		t.Fatal("storage role must not wire a corroborate.Engine, it never votes")
	}
	if n.pipeline == nil {
		t.Fatal("storage role must wire a commitpipe.Pipeline to archive committed state")
	}
	if n.serializer != nil {
		t.Fatal("storage role must not wire a validator serializer")
	}
}
