package name

import (
	"encoding/json"
	"testing"

	"github.com/beco/beconode/identity"
	"github.com/beco/beconode/mutation"
	"github.com/google/uuid"
)

func TestHandleFirstNameUpdatesOwnerValue(t *testing.T) {
	ownerID := uuid.New()
	user := identity.NewUser(ownerID)
	ctx := &mutation.Context{User: user, CallingUser: identity.PublicUser{ID: ownerID}}

	payload, _ := json.Marshal(mutation.FirstNamePayload{Value: strPtr("Ada")})
	if err := mutation.Global().Execute(ctx, mutation.Request{Kind: mutation.FirstName, Payload: payload}); err != nil {
		t.Fatalf("execute: %v", err)
	}

	got, err := user.Details.FirstName.Value(ctx.CallingUser)
	if err != nil || *got != "Ada" {
		t.Fatalf("value = %v, %v", got, err)
	}
}

func TestHandleOtherNamesRejectsNonEditor(t *testing.T) {
	ownerID := uuid.New()
	stranger := uuid.New()
	user := identity.NewUser(ownerID)
	ctx := &mutation.Context{User: user, CallingUser: identity.PublicUser{ID: stranger}}

	payload, _ := json.Marshal(mutation.OtherNamesPayload{Value: []string{"A", "B"}})
	err := mutation.Global().Execute(ctx, mutation.Request{Kind: mutation.OtherNames, Payload: payload})
	if err == nil {
		t.Fatal("expected permission error for non-owner update")
	}
}

func strPtr(s string) *string { return &s }
