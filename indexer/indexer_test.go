package indexer

import (
	"testing"

	"github.com/beco/beconode/events"
	"github.com/beco/beconode/internal/testutil"
	"github.com/google/uuid"
)

func TestAddLinkedUserEventUpdatesIndex(t *testing.T) {
	db := testutil.NewMemDB()
	emitter := events.NewEmitter()
	idx := New(db, emitter)

	owner := uuid.New()
	target := uuid.New()
	emitter.Emit(events.Event{
		Type:   events.EventCommitted,
		UserID: owner,
		Data:   map[string]any{"kind": "AddLinkedUser", "target_id": target.String()},
	})

	ids, err := idx.GetLinkedBy(target.String())
	if err != nil {
		t.Fatalf("GetLinkedBy: %v", err)
	}
	if len(ids) != 1 || ids[0] != owner.String() {
		t.Fatalf("got %v, want [%s]", ids, owner)
	}
}

func TestRemoveLinkedUserEventClearsIndex(t *testing.T) {
	db := testutil.NewMemDB()
	emitter := events.NewEmitter()
	idx := New(db, emitter)

	owner := uuid.New()
	target := uuid.New()
	emitter.Emit(events.Event{
		Type:   events.EventCommitted,
		UserID: owner,
		Data:   map[string]any{"kind": "AddLinkedUser", "target_id": target.String()},
	})
	emitter.Emit(events.Event{
		Type:   events.EventCommitted,
		UserID: owner,
		Data:   map[string]any{"kind": "RemoveLinkedUser", "target_id": target.String()},
	})

	ids, err := idx.GetLinkedBy(target.String())
	if err != nil {
		t.Fatalf("GetLinkedBy: %v", err)
	}
	if len(ids) != 0 {
		t.Fatalf("expected no linked-by entries after removal, got %v", ids)
	}
}

func TestGetLinkedByUnknownReturnsEmpty(t *testing.T) {
	db := testutil.NewMemDB()
	emitter := events.NewEmitter()
	idx := New(db, emitter)

	ids, err := idx.GetLinkedBy(uuid.New().String())
	if err != nil {
		t.Fatalf("GetLinkedBy: %v", err)
	}
	if len(ids) != 0 {
		t.Fatalf("expected empty result, got %v", ids)
	}
}

func TestIgnoresEventsWithoutTargetID(t *testing.T) {
	db := testutil.NewMemDB()
	emitter := events.NewEmitter()
	idx := New(db, emitter)

	owner := uuid.New()
	emitter.Emit(events.Event{
		Type:   events.EventCommitted,
		UserID: owner,
		Data:   map[string]any{"kind": "FirstName"},
	})

	ids, err := idx.GetLinkedBy(owner.String())
	if err != nil {
		t.Fatalf("GetLinkedBy: %v", err)
	}
	if len(ids) != 0 {
		t.Fatalf("expected no entries for non-link mutation, got %v", ids)
	}
}
