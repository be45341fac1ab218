// Package pending implements the suspend/resume primitive that lets a
// proposing node block on an asynchronous gossip outcome: a fingerprint-
// keyed registry of waiters with a fixed deadline and idempotent pings.
package pending

import (
	"sync"
	"time"

	"github.com/beco/beconode/envelope"
	"github.com/google/uuid"
)

// DefaultTimeout is the wait applied when a caller does not specify one.
const DefaultTimeout = 5 * time.Second

// Outcome is what a Waiter resolves with: the final status and, once
// known, the user_id the event concerned.
type Outcome struct {
	Status envelope.RequestStatus
	UserID uuid.UUID
}

// entry is the internal state for one fingerprint's pending event.
type entry struct {
	mu       sync.Mutex
	status   envelope.RequestStatus
	userID   uuid.UUID
	hasUser  bool
	deadline time.Time
	wake     chan struct{} // closed and replaced on each ping
}

func newEntry(timeout time.Duration) *entry {
	return &entry{
		status:   envelope.StatusPropose,
		deadline: time.Now().Add(timeout),
		wake:     make(chan struct{}),
	}
}

func (e *entry) snapshot() (envelope.RequestStatus, uuid.UUID, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.status, e.userID, e.hasUser
}

func (e *entry) terminal() bool {
	status, _, _ := e.snapshot()
	return status.Terminal() || time.Now().After(e.deadline) || time.Now().Equal(e.deadline)
}

// ping wakes anyone waiting on e so they re-check termination. Idempotent:
// calling it repeatedly with no status change is safe.
func (e *entry) ping() {
	e.mu.Lock()
	old := e.wake
	e.wake = make(chan struct{})
	e.mu.Unlock()
	close(old)
}

// Waiter is returned by Registry.Create; call Wait to block until terminal.
type Waiter struct {
	fp  envelope.Fingerprint
	e   *entry
	reg *Registry
}

// Wait blocks until the pending event reaches a terminal status or its
// deadline passes, whichever first. The deadline is fixed at creation and
// never extended by Ping.
func (w *Waiter) Wait() Outcome {
	for {
		if w.e.terminal() {
			status, userID, _ := w.e.snapshot()
			if !status.Terminal() {
				status = envelope.StatusFailed // deadline exceeded
			}
			return Outcome{Status: status, UserID: userID}
		}
		remaining := time.Until(w.e.deadline)
		if remaining < 0 {
			remaining = 0
		}
		w.e.mu.Lock()
		wake := w.e.wake
		w.e.mu.Unlock()
		select {
		case <-wake:
		case <-time.After(remaining):
		}
	}
}

// Registry holds one entry per in-flight fingerprint.
type Registry struct {
	mu      sync.Mutex
	entries map[envelope.Fingerprint]*entry
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{entries: make(map[envelope.Fingerprint]*entry)}
}

// Create installs a pending event for fp with the given timeout and
// returns a Waiter. A timeout of 0 resolves FAILED on the first Wait call.
func (r *Registry) Create(fp envelope.Fingerprint, timeout time.Duration) *Waiter {
	e := newEntry(timeout)
	r.mu.Lock()
	r.entries[fp] = e
	r.mu.Unlock()
	return &Waiter{fp: fp, e: e, reg: r}
}

// Exists reports whether fp has a live pending event.
func (r *Registry) Exists(fp envelope.Fingerprint) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.entries[fp]
	return ok
}

// Update moves fp's status forward and, if userID was not yet known,
// adopts it. No-op if fp has no entry (the event may have already been
// removed, or may belong to a different node).
func (r *Registry) Update(fp envelope.Fingerprint, status envelope.RequestStatus, userID uuid.UUID) {
	r.mu.Lock()
	e, ok := r.entries[fp]
	r.mu.Unlock()
	if !ok {
		return
	}
	e.mu.Lock()
	e.status = status
	if !e.hasUser && userID != uuid.Nil {
		e.userID = userID
		e.hasUser = true
	}
	e.mu.Unlock()
}

// Ping wakes the waiter for fp so it re-checks termination.
func (r *Registry) Ping(fp envelope.Fingerprint) {
	r.mu.Lock()
	e, ok := r.entries[fp]
	r.mu.Unlock()
	if ok {
		e.ping()
	}
}

// Remove discards fp's entry. Call after the waiter observes termination.
func (r *Registry) Remove(fp envelope.Fingerprint) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.entries, fp)
}
