package sched

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/goleak"
)

func TestTimersFireAfterDelay(t *testing.T) {
	timers := NewTimers()

	var mu sync.Mutex
	fired := false
	var wg sync.WaitGroup
	wg.Add(1)

	timers.Schedule("a", 20*time.Millisecond, func() {
		mu.Lock()
		fired = true
		mu.Unlock()
		wg.Done()
	})

	mu.Lock()
	assert.False(t, fired, "must not fire immediately")
	mu.Unlock()

	wg.Wait()
	mu.Lock()
	assert.True(t, fired)
	mu.Unlock()
}

func TestTimersCancelPreventsFire(t *testing.T) {
	timers := NewTimers()

	fired := false
	timers.Schedule("a", 15*time.Millisecond, func() { fired = true })
	timers.Cancel("a")

	time.Sleep(40 * time.Millisecond)
	assert.False(t, fired)
	assert.False(t, timers.Pending("a"))
}

func TestTimersRescheduleReplacesPrevious(t *testing.T) {
	timers := NewTimers()

	var calls int
	var mu sync.Mutex

	timers.Schedule("a", 10*time.Millisecond, func() {
		mu.Lock()
		calls++
		mu.Unlock()
	})
	timers.Schedule("a", 30*time.Millisecond, func() {
		mu.Lock()
		calls++
		mu.Unlock()
	})

	time.Sleep(60 * time.Millisecond)
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 1, calls, "only the latest schedule for an id fires")
}

func TestTimersStopAll(t *testing.T) {
	timers := NewTimers()

	fired := false
	timers.Schedule("a", 10*time.Millisecond, func() { fired = true })
	timers.StopAll()

	time.Sleep(30 * time.Millisecond)
	assert.False(t, fired)
}

func TestTimersStopAllLeavesNoGoroutines(t *testing.T) {
	defer goleak.VerifyNone(t)

	timers := NewTimers()
	for i := 0; i < 5; i++ {
		timers.Schedule(string(rune('a'+i)), time.Hour, func() {})
	}
	timers.StopAll()
}
