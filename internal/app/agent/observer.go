package agent

import (
	"sync"

	"careline/internal/domain/conflict"
	"careline/internal/domain/optimistic"
)

// EventKind identifies what a sync event describes.
type EventKind string

const (
	EventSyncStarted      EventKind = "sync-started"
	EventSyncFinished     EventKind = "sync-finished"
	EventActionSynced     EventKind = "action-synced"
	EventActionFailed     EventKind = "action-failed"
	EventConflictDetected EventKind = "conflict-detected"
	EventConflictResolved EventKind = "conflict-resolved"
	EventRollbackRequired EventKind = "rollback-required"
)

// Event is delivered to subscribers on sync-state transitions. Consumers
// layer polling or push on top of this; the core does not dictate a
// refresh cadence.
type Event struct {
	Kind     EventKind
	ActionID string
	Conflict *conflict.Resolution
	Update   *optimistic.Update
	Err      error
}

// observerList fans events out to subscribers.
type observerList struct {
	mu   sync.Mutex
	next int
	subs map[int]func(Event)
}

func newObserverList() *observerList {
	return &observerList{subs: make(map[int]func(Event))}
}

// subscribe registers a callback and returns an unsubscribe function.
// Callbacks run synchronously on the sync goroutine and must be fast.
func (o *observerList) subscribe(fn func(Event)) func() {
	o.mu.Lock()
	defer o.mu.Unlock()
	id := o.next
	o.next++
	o.subs[id] = fn
	return func() {
		o.mu.Lock()
		defer o.mu.Unlock()
		delete(o.subs, id)
	}
}

func (o *observerList) notify(e Event) {
	o.mu.Lock()
	fns := make([]func(Event), 0, len(o.subs))
	for _, fn := range o.subs {
		fns = append(fns, fn)
	}
	o.mu.Unlock()

	for _, fn := range fns {
		fn(e)
	}
}
