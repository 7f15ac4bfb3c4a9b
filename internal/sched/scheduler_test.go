package sched

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSchedulerRunsImmediatelyOutsideBatch(t *testing.T) {
	flushes := 0
	s := New(func() { flushes++ })

	s.Schedule()
	assert.Equal(t, 1, flushes)
}

func TestSchedulerBatchesIntoOneFlush(t *testing.T) {
	flushes := 0
	s := New(func() { flushes++ })

	s.Batch(func() {
		s.Schedule()
		s.Schedule()
		s.Schedule()
	})

	assert.Equal(t, 1, flushes, "three writes inside one batch flush once")
}

func TestSchedulerNestedBatchOnlyOutermostFlushes(t *testing.T) {
	flushes := 0
	s := New(func() { flushes++ })

	s.Batch(func() {
		s.Schedule()
		s.Batch(func() {
			s.Schedule()
		})
		assert.Equal(t, 0, flushes, "inner batch closing does not flush yet")
	})

	assert.Equal(t, 1, flushes)
}

func TestSchedulerReentrantScheduleDuringFlushRunsAfter(t *testing.T) {
	var s *Scheduler
	calls := 0
	s = New(func() {
		calls++
		if calls == 1 {
			s.Schedule() // reentrant: must not recurse into flush()
		}
	})

	s.Schedule()
	assert.Equal(t, 2, calls, "the reentrant schedule runs as a follow-up flush, not inline")
}

func TestSchedulerClockAdvancesPerFlush(t *testing.T) {
	s := New(func() {})

	assert.Equal(t, 0, s.Time())
	s.Schedule()
	assert.Equal(t, 1, s.Time())
	s.Schedule()
	assert.Equal(t, 2, s.Time())
}
