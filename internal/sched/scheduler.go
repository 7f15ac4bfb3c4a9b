// Package sched implements the engine's cooperative, single-threaded
// scheduling primitives: the flush/batch control loop, the
// reentrancy queue, and ttl-based destruction timers.
package sched

// FlushFunc performs one drain of the affected subgraph. It is
// supplied by the ecosystem package, which owns the graph; the
// scheduler only owns *when* a flush happens, never the graph itself.
type FlushFunc func()

// Scheduler serializes flushes so that a notification triggered from
// inside another notification's listener never runs inline: it is
// queued and processed once the in-flight flush returns to the top of
// its loop.
type Scheduler struct {
	clock int

	batchDepth int
	flushing   bool
	pending    bool

	flush FlushFunc
}

// New returns a Scheduler that calls flush to perform each drain.
func New(flush FlushFunc) *Scheduler {
	return &Scheduler{flush: flush}
}

// Time returns the scheduler's monotonic flush counter, incremented
// once per completed flush.
func (s *Scheduler) Time() int {
	return s.clock
}

// Schedule marks a flush as pending and runs it immediately unless a
// flush is already running (reentrant call, queued for the current
// flush's follow-up loop) or a batch is open (deferred until the
// outermost batch closes).
func (s *Scheduler) Schedule() {
	s.pending = true

	if s.batchDepth > 0 {
		return
	}
	if s.flushing {
		return
	}

	s.runPendingFlushes()
}

// runPendingFlushes drains flushes in a loop: a listener invoked
// during flush() may itself call Schedule(), which only sets pending
// and returns (since s.flushing is true); once flush() returns we
// check pending again and run another round, so no notification is
// ever delivered from inside another notification's call stack.
func (s *Scheduler) runPendingFlushes() {
	for s.pending {
		s.pending = false
		s.flushing = true
		s.flush()
		s.flushing = false
		s.clock++
	}
}

// Batch defers all flushes triggered by fn until fn returns, then
// performs at most one flush for the whole batch. Batches nest: only
// the outermost call flushes.
func (s *Scheduler) Batch(fn func()) {
	s.batchDepth++
	fn()
	s.batchDepth--

	if s.batchDepth == 0 && s.pending && !s.flushing {
		s.runPendingFlushes()
	}
}

// IsFlushing reports whether a flush is currently being processed.
func (s *Scheduler) IsFlushing() bool {
	return s.flushing
}
