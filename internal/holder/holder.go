// Package holder implements the minimal state-holder contract the
// engine requires from a store: get, set, dispatch, subscribe.
package holder

// Unsubscribe is returned by Subscribe; calling it removes the
// listener. Calling it more than once is a no-op.
type Unsubscribe func()

// Holder is the state-holder contract the engine consumes.
// Implementations must guarantee:
//   - SetState is synchronous: the new state is observable to
//     GetState before SetState returns.
//   - Listeners are invoked synchronously, in subscription order,
//     after the state is committed.
//   - A listener that itself calls SetState enqueues a new commit
//     that runs after the current listener pass completes.
type Holder interface {
	GetState() any
	// SetState accepts either a plain value or a func(any) any
	// updater function, mirroring the `T | (prev: T) -> T` contract.
	SetState(settable any) any
	Dispatch(action any) any
	Subscribe(listener func(any)) Unsubscribe
}

// Reducer computes the next state from the previous state and a
// dispatched action. A Default holder with no reducer treats Dispatch
// as a no-op that returns the current state.
type Reducer func(prev any, action any) any

// Default is the state holder every plain-value factory return is
// wrapped in, and the concrete type `store()` from the injection
// context allocates. It stages writes analogously to the engine's
// signal primitive: SetState commits synchronously and then drains
// listeners; a listener that writes again is queued and drained after
// the current pass finishes, so a listener never observes its own
// write reentrantly mid-pass.
type Default struct {
	value   any
	reducer Reducer

	listeners     []*listenerEntry
	nextListener  int
	inNotify      bool
	pendingWrites []any
}

type listenerEntry struct {
	id    int
	fn    func(any)
	dead  bool
}

// New returns a Default holder seeded with initial and using reducer
// for Dispatch. reducer may be nil.
func New(initial any, reducer Reducer) *Default {
	return &Default{value: initial, reducer: reducer}
}

// GetState returns the current, committed value.
func (h *Default) GetState() any {
	return h.value
}

// SetState commits settable (or its result, if settable is a
// func(any) any) synchronously and notifies listeners. If called from
// within an in-flight notification pass, the write is deferred and
// applied once that pass completes.
func (h *Default) SetState(settable any) any {
	next := resolveSettable(settable, h.value)

	if h.inNotify {
		h.pendingWrites = append(h.pendingWrites, next)
		return next
	}

	h.commitAndNotify(next)
	return h.value
}

func resolveSettable(settable any, prev any) any {
	if fn, ok := settable.(func(any) any); ok {
		return fn(prev)
	}
	return settable
}

// Dispatch runs the holder's reducer against the current state and
// the given action, then behaves like SetState with the result.
func (h *Default) Dispatch(action any) any {
	if h.reducer == nil {
		return h.value
	}
	next := h.reducer(h.value, action)
	return h.SetState(next)
}

func (h *Default) commitAndNotify(next any) {
	h.value = next
	h.notify()
}

func (h *Default) notify() {
	h.inNotify = true
	// snapshot so a listener that subscribes/unsubscribes mid-pass
	// does not perturb this pass's iteration.
	snapshot := make([]*listenerEntry, len(h.listeners))
	copy(snapshot, h.listeners)

	for _, l := range snapshot {
		if l.dead {
			continue
		}
		l.fn(h.value)
	}
	h.inNotify = false

	if len(h.pendingWrites) > 0 {
		writes := h.pendingWrites
		h.pendingWrites = nil
		for _, w := range writes {
			h.commitAndNotify(w)
		}
	}
}

// Subscribe registers listener to be called, in subscription order,
// after every committed state change.
func (h *Default) Subscribe(listener func(any)) Unsubscribe {
	entry := &listenerEntry{id: h.nextListener, fn: listener}
	h.nextListener++
	h.listeners = append(h.listeners, entry)

	return func() {
		entry.dead = true
		h.compact()
	}
}

func (h *Default) compact() {
	if h.inNotify {
		// deferred: the notify loop skips dead entries directly.
		return
	}
	kept := h.listeners[:0]
	for _, l := range h.listeners {
		if !l.dead {
			kept = append(kept, l)
		}
	}
	h.listeners = kept
}
