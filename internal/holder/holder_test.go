package holder

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaultGetSet(t *testing.T) {
	h := New(0, nil)
	assert.Equal(t, 0, h.GetState())

	h.SetState(1)
	assert.Equal(t, 1, h.GetState(), "read-your-writes: SetState commits before returning")

	h.SetState(func(prev any) any { return prev.(int) + 2 })
	assert.Equal(t, 3, h.GetState())
}

func TestDefaultSubscribeNotifiesInOrder(t *testing.T) {
	h := New(0, nil)

	var order []string
	h.Subscribe(func(any) { order = append(order, "first") })
	h.Subscribe(func(any) { order = append(order, "second") })

	h.SetState(1)
	assert.Equal(t, []string{"first", "second"}, order)
}

func TestDefaultUnsubscribe(t *testing.T) {
	h := New(0, nil)

	calls := 0
	unsub := h.Subscribe(func(any) { calls++ })
	h.SetState(1)
	assert.Equal(t, 1, calls)

	unsub()
	h.SetState(2)
	assert.Equal(t, 1, calls, "unsubscribed listener receives no further notifications")
}

func TestDefaultReentrantSetStateIsDeferred(t *testing.T) {
	h := New(0, nil)

	var seen []int
	h.Subscribe(func(v any) {
		n := v.(int)
		seen = append(seen, n)
		if n == 1 {
			h.SetState(2) // reentrant write, must not run inline
		}
	})

	h.SetState(1)
	assert.Equal(t, []int{1, 2}, seen, "the reentrant write is delivered after the current pass completes")
	assert.Equal(t, 2, h.GetState())
}

func TestDefaultDispatch(t *testing.T) {
	type incr struct{ by int }

	h := New(10, func(prev any, action any) any {
		switch a := action.(type) {
		case incr:
			return prev.(int) + a.by
		default:
			return prev
		}
	})

	result := h.Dispatch(incr{by: 5})
	assert.Equal(t, 15, result)
	assert.Equal(t, 15, h.GetState())
}

func TestDefaultDispatchWithoutReducerIsNoop(t *testing.T) {
	h := New(1, nil)
	result := h.Dispatch("anything")
	assert.Equal(t, 1, result)
}
