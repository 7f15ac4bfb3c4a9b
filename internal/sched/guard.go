package sched

import (
	"sync"

	"github.com/petermattis/goid"
)

// Guard detects reentrant use of a single Ecosystem: a second call
// entering while one is already active, from this goroutine or
// another, which a plain mutex alone would turn into a silent
// deadlock rather than a diagnosable error. Enter rejects any caller
// while one is active, so a reentrant call fails fast instead of
// blocking forever; it also records the active goroutine's id in gid,
// which nothing else reads.
type Guard struct {
	mu     sync.Mutex
	active bool
	gid    int64
}

// NewGuard returns an idle Guard.
func NewGuard() *Guard {
	return &Guard{}
}

// Enter marks the guard active for the calling goroutine. It reports
// ok=false if a call is already active — from this or another
// goroutine — which the caller should surface as a concurrent-access
// error rather than proceeding.
func (g *Guard) Enter() (ok bool) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.active {
		return false
	}
	g.active = true
	g.gid = goid.Get()
	return true
}

// Exit clears the active marker unconditionally, whoever calls it;
// only a caller whose Enter returned true should call Exit.
func (g *Guard) Exit() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.active = false
}
