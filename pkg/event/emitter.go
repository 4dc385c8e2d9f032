package event

import (
	"log/slog"
	"sync"
)

// Type names an event stream.
type Type string

// Events emitted by the auth client.
const (
	Login       Type = "login"
	Logout      Type = "logout"
	UserUpdated Type = "user_updated"
)

// Listener receives an event payload. The payload type depends on the event:
// *backend.Session for Login, nil for Logout, *profile.User for UserUpdated.
type Listener func(payload any)

// Registration identifies a registered listener. Go functions are not
// comparable, so deduplication and removal work through this handle instead
// of listener identity.
type Registration struct {
	event Type
	id    int
}

// Emitter is an instance-owned registry of named event listeners with
// synchronous fan-out dispatch. Each client owns its own emitter; two client
// instances never cross-talk. Safe for concurrent use.
type Emitter struct {
	mu        sync.RWMutex
	listeners map[Type][]entry
	nextID    int
	log       *slog.Logger
}

type entry struct {
	id int
	fn Listener
}

// Option configures an Emitter.
type Option func(*Emitter)

// WithLogger sets the logger used to report recovered listener panics.
func WithLogger(log *slog.Logger) Option {
	return func(e *Emitter) {
		if log != nil {
			e.log = log
		}
	}
}

// New creates an empty emitter.
func New(opts ...Option) *Emitter {
	e := &Emitter{
		listeners: make(map[Type][]entry),
		log:       slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// On registers a listener for the event and returns its registration handle.
// Listeners run in registration order.
func (e *Emitter) On(event Type, fn Listener) Registration {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.nextID++
	e.listeners[event] = append(e.listeners[event], entry{id: e.nextID, fn: fn})
	return Registration{event: event, id: e.nextID}
}

// Off removes a previously registered listener. Removing an unknown or
// already-removed registration is a no-op. The event key is pruned when its
// listener list becomes empty.
func (e *Emitter) Off(reg Registration) {
	e.mu.Lock()
	defer e.mu.Unlock()

	entries := e.listeners[reg.event]
	for i, en := range entries {
		if en.id == reg.id {
			entries = append(entries[:i], entries[i+1:]...)
			break
		}
	}
	if len(entries) == 0 {
		delete(e.listeners, reg.event)
		return
	}
	e.listeners[reg.event] = entries
}

// Emit invokes every listener registered for the event, synchronously and in
// registration order, on a snapshot of the listener list: a listener that
// mutates the registry mid-emission cannot affect the current pass. A
// panicking listener is recovered and logged; the remaining listeners still
// run.
func (e *Emitter) Emit(event Type, payload any) {
	e.mu.RLock()
	snapshot := make([]entry, len(e.listeners[event]))
	copy(snapshot, e.listeners[event])
	e.mu.RUnlock()

	for _, en := range snapshot {
		e.invoke(event, en.fn, payload)
	}
}

func (e *Emitter) invoke(event Type, fn Listener, payload any) {
	defer func() {
		if r := recover(); r != nil {
			e.log.Error("event listener panicked", "event", string(event), "panic", r)
		}
	}()
	fn(payload)
}

// Len reports how many listeners are registered for the event.
func (e *Emitter) Len(event Type) int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.listeners[event])
}

// Close clears the entire registry.
func (e *Emitter) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	clear(e.listeners)
}
