package events

import (
	"testing"

	"github.com/google/uuid"
)

func TestEmitDeliversToMatchingSubscribersOnly(t *testing.T) {
	e := NewEmitter()
	var gotCommitted, gotValidated int
	e.Subscribe(EventCommitted, func(ev Event) { gotCommitted++ })
	e.Subscribe(EventValidated, func(ev Event) { gotValidated++ })

	e.Emit(Event{Type: EventCommitted, UserID: uuid.New()})

	if gotCommitted != 1 {
		t.Fatalf("gotCommitted = %d, want 1", gotCommitted)
	}
	if gotValidated != 0 {
		t.Fatalf("gotValidated = %d, want 0", gotValidated)
	}
}

func TestEmitCallsAllSubscribersInOrder(t *testing.T) {
	e := NewEmitter()
	var order []int
	e.Subscribe(EventProposed, func(ev Event) { order = append(order, 1) })
	e.Subscribe(EventProposed, func(ev Event) { order = append(order, 2) })

	e.Emit(Event{Type: EventProposed})

	if len(order) != 2 || order[0] != 1 || order[1] != 2 {
		t.Fatalf("order = %v, want [1 2]", order)
	}
}

func TestEmitRecoversFromPanickingHandler(t *testing.T) {
	e := NewEmitter()
	called := false
	e.Subscribe(EventFailed, func(ev Event) { panic("boom") })
	e.Subscribe(EventFailed, func(ev Event) { called = true })

	e.Emit(Event{Type: EventFailed})

	if !called {
		t.Fatal("expected the second handler to still run after the first panicked")
	}
}

func TestEmitWithNoSubscribersDoesNothing(t *testing.T) {
	e := NewEmitter()
	e.Emit(Event{Type: EventCommitted})
}
