package ecosystem

import (
	"testing"

	"go.uber.org/goleak"
)

// TestMain verifies no test in this package leaks a goroutine: the
// ttl timer callback and the promise-watching goroutine (watchPromise)
// are the only two the engine spawns off the caller's own goroutine,
// and both are expected to have run to completion by the time their
// owning test returns.
func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}
