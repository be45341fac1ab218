package permission

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/beco/beconode/protoerr"
)

type testPrincipal string

func (p testPrincipal) PrincipalID() string { return string(p) }

func TestOwnerCanProposeAndUpdate(t *testing.T) {
	m := New[*string]("owner", nil, "first_name")
	if err := m.Propose(testPrincipal("owner")); err != nil {
		t.Fatalf("owner propose: %v", err)
	}
	val := "Ada"
	if err := m.Update(&val, testPrincipal("owner")); err != nil {
		t.Fatalf("owner update: %v", err)
	}
	got, err := m.Value(testPrincipal("owner"))
	if err != nil || *got != "Ada" {
		t.Fatalf("value = %v, %v", got, err)
	}
}

func TestStrangerCannotProposeOrUpdate(t *testing.T) {
	m := New[*string]("owner", nil, "first_name")
	stranger := testPrincipal("stranger")
	if err := m.Propose(stranger); !errors.Is(err, protoerr.New(protoerr.KindPermissionDenied, "")) {
		t.Fatalf("expected permission denied, got %v", err)
	}
	if _, err := m.ValueMut(stranger); !errors.Is(err, protoerr.New(protoerr.KindPermissionDenied, "")) {
		t.Fatalf("expected permission denied, got %v", err)
	}
}

func TestViewerCanReadNotMutate(t *testing.T) {
	m := New[*string]("owner", nil, "first_name")
	if err := m.AddViewer("viewer", testPrincipal("owner")); err != nil {
		t.Fatalf("add viewer: %v", err)
	}
	if _, err := m.Value(testPrincipal("viewer")); err != nil {
		t.Fatalf("viewer should be able to read: %v", err)
	}
	if err := m.Propose(testPrincipal("viewer")); err == nil {
		t.Fatal("viewer should not be able to propose a mutation")
	}
}

func TestEditorCanPropose(t *testing.T) {
	m := New[*string]("owner", nil, "first_name")
	if err := m.AddEditor("editor", testPrincipal("owner")); err != nil {
		t.Fatalf("add editor: %v", err)
	}
	if err := m.Propose(testPrincipal("editor")); err != nil {
		t.Fatalf("editor should be able to propose: %v", err)
	}
}

func TestCannotAddOwnerAsViewerOrTwice(t *testing.T) {
	m := New[*string]("owner", nil, "first_name")
	if err := m.AddViewer("owner", testPrincipal("owner")); !errors.Is(err, protoerr.New(protoerr.KindAlreadyExists, "")) {
		t.Fatalf("expected already_exists adding owner as viewer, got %v", err)
	}
	if err := m.AddViewer("v1", testPrincipal("owner")); err != nil {
		t.Fatalf("first AddViewer: %v", err)
	}
	if err := m.AddViewer("v1", testPrincipal("owner")); !errors.Is(err, protoerr.New(protoerr.KindAlreadyExists, "")) {
		t.Fatalf("expected already_exists re-adding viewer, got %v", err)
	}
}

func TestRemoveEditorRejectsOwnerAndUnknown(t *testing.T) {
	m := New[*string]("owner", nil, "first_name")
	if err := m.RemoveEditor("owner", testPrincipal("owner")); !errors.Is(err, protoerr.New(protoerr.KindPermissionDenied, "")) {
		t.Fatalf("expected permission_denied removing owner, got %v", err)
	}
	if err := m.RemoveEditor("nobody", testPrincipal("owner")); !errors.Is(err, protoerr.New(protoerr.KindNotFound, "")) {
		t.Fatalf("expected not_found removing unknown editor, got %v", err)
	}
}

func TestModelJSONRoundTripPreservesACLAndValue(t *testing.T) {
	m := New[*string]("owner", nil, "first_name")
	if err := m.AddViewer("viewer", testPrincipal("owner")); err != nil {
		t.Fatalf("add viewer: %v", err)
	}
	if err := m.AddEditor("editor", testPrincipal("owner")); err != nil {
		t.Fatalf("add editor: %v", err)
	}
	val := "Ada"
	if err := m.Update(&val, testPrincipal("owner")); err != nil {
		t.Fatalf("update: %v", err)
	}

	data, err := json.Marshal(m)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var restored Model[*string]
	if err := json.Unmarshal(data, &restored); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	got, err := restored.Value(testPrincipal("owner"))
	if err != nil || got == nil || *got != "Ada" {
		t.Fatalf("value after round trip = %v, %v", got, err)
	}
	if _, err := restored.Value(testPrincipal("viewer")); err != nil {
		t.Fatalf("viewer access lost across round trip: %v", err)
	}
	if err := restored.Propose(testPrincipal("editor")); err != nil {
		t.Fatalf("editor access lost across round trip: %v", err)
	}
	if err := restored.Propose(testPrincipal("stranger")); err == nil {
		t.Fatal("stranger gained access across round trip")
	}
}
