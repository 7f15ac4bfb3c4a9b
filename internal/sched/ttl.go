package sched

import (
	"sync"
	"time"
)

// Timers manages one ttl-based destruction timer per node id. Timers
// fire on their own goroutine (time.AfterFunc), same as any host
// timer primitive would; the fire callback is expected to re-enter
// the single-threaded engine through a method that takes the
// engine-wide lock, so firing never races graph mutation.
//
// Delays are measured against a monotonic clock (time.Timer is
// monotonic-backed), not wall clock: an ntp step or system-clock
// adjustment during the ttl window never causes early or delayed
// destruction.
type Timers struct {
	mu     sync.Mutex
	timers map[string]*time.Timer
}

// NewTimers returns an empty Timers manager.
func NewTimers() *Timers {
	return &Timers{timers: make(map[string]*time.Timer)}
}

// Schedule arms a timer for id that calls fire after delay. Any
// previously armed timer for id is replaced.
func (t *Timers) Schedule(id string, delay time.Duration, fire func()) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if existing, ok := t.timers[id]; ok {
		existing.Stop()
	}

	var self *time.Timer
	self = time.AfterFunc(delay, func() {
		t.mu.Lock()
		// the timer may have been cancelled and a new one armed
		// between firing and acquiring the lock; only clear our own
		// entry if it's still the one we own.
		if cur, ok := t.timers[id]; ok && cur == self {
			delete(t.timers, id)
		}
		t.mu.Unlock()

		fire()
	})
	t.timers[id] = self
}

// Cancel disarms id's timer, if any. Used when a dependent
// reacquires an instance before its ttl elapses, and when an instance
// is destroyed by other means first.
func (t *Timers) Cancel(id string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if timer, ok := t.timers[id]; ok {
		timer.Stop()
		delete(t.timers, id)
	}
}

// Pending reports whether id currently has an armed timer.
func (t *Timers) Pending(id string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.timers[id]
	return ok
}

// StopAll disarms every outstanding timer, used by Ecosystem.Close to
// guarantee no ttl goroutine outlives the ecosystem.
func (t *Timers) StopAll() {
	t.mu.Lock()
	defer t.mu.Unlock()
	for id, timer := range t.timers {
		timer.Stop()
		delete(t.timers, id)
	}
}
