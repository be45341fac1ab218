package identity

import (
	"encoding/json"
	"testing"

	"github.com/beco/beconode/chain"
	"github.com/google/uuid"
)

func mustUUID() uuid.UUID { return uuid.New() }

func TestPublicViewOmitsUnreadableFields(t *testing.T) {
	owner := NewUser(mustUUID())
	val := "Ada"
	owner.Details.FirstName.Update(&val, PublicUser{ID: owner.ID})

	view := owner.PublicView(PublicUser{ID: mustUUID()})
	if view.ID != owner.ID {
		t.Fatalf("id mismatch")
	}
	if view.FirstName != nil {
		t.Fatalf("stranger should not see first_name, got %v", *view.FirstName)
	}
}

func TestPublicViewShowsOwnerFields(t *testing.T) {
	owner := NewUser(mustUUID())
	val := "Ada"
	owner.Details.FirstName.Update(&val, PublicUser{ID: owner.ID})

	view := owner.PublicView(PublicUser{ID: owner.ID})
	if view.FirstName == nil || *view.FirstName != "Ada" {
		t.Fatalf("owner should see own first_name, got %v", view.FirstName)
	}
}

func TestAddLinkedUserRejectsDuplicate(t *testing.T) {
	u := NewUser(mustUUID())
	owner := PublicUser{ID: u.ID}
	target := PublicUser{ID: mustUUID()}
	if err := u.AddLinkedUser(target, owner); err != nil {
		t.Fatalf("first add: %v", err)
	}
	if err := u.AddLinkedUser(target, owner); err == nil {
		t.Fatal("expected duplicate link to be rejected")
	}
}

func TestAddLinkedUserRejectsNonOwner(t *testing.T) {
	u := NewUser(mustUUID())
	stranger := PublicUser{ID: mustUUID()}
	if err := u.AddLinkedUser(PublicUser{ID: mustUUID()}, stranger); err == nil {
		t.Fatal("expected a non-owner caller to be rejected")
	}
}

func TestRemoveLinkedUserRejectsUnknown(t *testing.T) {
	u := NewUser(mustUUID())
	owner := PublicUser{ID: u.ID}
	if err := u.RemoveLinkedUser(mustUUID(), owner); err == nil {
		t.Fatal("expected error removing unknown link")
	}
}

func TestPublicUserEqualIsByIDOnly(t *testing.T) {
	id := mustUUID()
	a := PublicUser{ID: id, FirstName: strPtrID("Ada")}
	b := PublicUser{ID: id}
	if !a.Equal(b) {
		t.Fatal("PublicUser equality must be by ID only")
	}
}

func strPtrID(s string) *string { return &s }

func TestUserJSONRoundTripPreservesProfileAndCustody(t *testing.T) {
	owner := NewUser(mustUUID())
	val := "Ada"
	owner.Details.FirstName.Update(&val, PublicUser{ID: owner.ID})
	if err := owner.AddAccount(fixedKeyFactory{}, chain.EVM, nil, "primary", PublicUser{ID: owner.ID}); err != nil {
		t.Fatalf("add account: %v", err)
	}

	data, err := json.Marshal(owner)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var restored User
	if err := json.Unmarshal(data, &restored); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	view := restored.PublicView(PublicUser{ID: owner.ID})
	if view.FirstName == nil || *view.FirstName != "Ada" {
		t.Fatalf("first_name lost across round trip, got %v", view.FirstName)
	}
	custody, ok := restored.ChainCustody[chain.EVM]
	if !ok {
		t.Fatal("chain custody lost across round trip")
	}
	if !custody.HasAlias("primary", PublicUser{ID: owner.ID}) {
		t.Fatal("custody alias lost across round trip")
	}
}

type fixedKeyFactory struct{}

func (fixedKeyFactory) Generate(_ chain.Blockchain, _ *string) (string, string, *string, error) {
	return "pub", "priv", nil, nil
}
