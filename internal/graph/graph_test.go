package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGraphAddEdge(t *testing.T) {
	t.Run("registers both endpoints", func(t *testing.T) {
		g := New()
		g.AddNode("a", KindAtomInstance)
		g.AddNode("b", KindAtomInstance)

		_, err := g.AddEdge("a", "b", FlagExplicit, "get", nil)
		require.NoError(t, err)

		assert.True(t, g.HasEdge("a", "b"))
		assert.ElementsMatch(t, []string{"a"}, g.Dependents("b"))
	})

	t.Run("unknown endpoint is an error", func(t *testing.T) {
		g := New()
		g.AddNode("a", KindAtomInstance)

		_, err := g.AddEdge("a", "missing", FlagExplicit, "get", nil)
		assert.Error(t, err)
	})

	t.Run("idempotent and flag-merging", func(t *testing.T) {
		g := New()
		g.AddNode("a", KindAtomInstance)
		g.AddNode("b", KindAtomInstance)

		notifyCalls := 0
		notify := func(NotifyReason) { notifyCalls++ }

		e1, err := g.AddEdge("a", "b", FlagExplicit, "get", notify)
		require.NoError(t, err)

		e2, err := g.AddEdge("a", "b", FlagStatic, "get", nil)
		require.NoError(t, err)

		assert.Same(t, e1, e2)
		assert.True(t, e2.Flags.Has(FlagExplicit))
		assert.True(t, e2.Flags.Has(FlagStatic))
		assert.Equal(t, 1, notifyCalls, "notify fires once, on the first AddEdge only")
	})
}

func TestGraphRemoveEdge(t *testing.T) {
	g := New()
	g.AddNode("a", KindAtomInstance)
	g.AddNode("b", KindAtomInstance)
	_, err := g.AddEdge("a", "b", FlagExplicit, "get", nil)
	require.NoError(t, err)

	lastRemoved := g.RemoveEdge("a", "b")
	assert.True(t, lastRemoved)
	assert.False(t, g.HasEdge("a", "b"))
}

func TestGraphRemoveNodeRequiresNoEdges(t *testing.T) {
	g := New()
	g.AddNode("a", KindAtomInstance)
	g.AddNode("b", KindAtomInstance)
	_, err := g.AddEdge("a", "b", FlagExplicit, "get", nil)
	require.NoError(t, err)

	assert.Panics(t, func() { g.RemoveNode("b") })

	g.RemoveEdge("a", "b")
	assert.NotPanics(t, func() { g.RemoveNode("b") })
	_, ok := g.Node("b")
	assert.False(t, ok)
}

func TestGraphWeightDerivedFromDependency(t *testing.T) {
	g := New()
	g.AddNode("a", KindAtomInstance)
	g.AddNode("b", KindAtomInstance)
	g.AddNode("c", KindAtomInstance)

	_, err := g.AddEdge("b", "a", FlagExplicit, "get", nil) // b depends on a
	require.NoError(t, err)
	_, err = g.AddEdge("c", "b", FlagExplicit, "get", nil) // c depends on b
	require.NoError(t, err)

	na, _ := g.Node("a")
	nb, _ := g.Node("b")
	nc, _ := g.Node("c")

	assert.Less(t, na.Weight, nb.Weight)
	assert.Less(t, nb.Weight, nc.Weight)
}

func TestHeapDrainOrder(t *testing.T) {
	h := NewHeap()

	n1 := newNode("1", KindAtomInstance)
	n1.Weight = 3
	n2 := newNode("2", KindAtomInstance)
	n2.Weight = 1
	n3 := newNode("3", KindAtomInstance)
	n3.Weight = 2

	h.Insert(n1)
	h.Insert(n2)
	h.Insert(n3)

	var order []string
	h.Drain(func(n *Node) { order = append(order, n.ID) })

	assert.Equal(t, []string{"2", "3", "1"}, order)
	assert.True(t, h.Empty())
}

func TestHeapInsertIsIdempotent(t *testing.T) {
	h := NewHeap()
	n := newNode("x", KindAtomInstance)

	h.Insert(n)
	h.Insert(n)

	count := 0
	h.Drain(func(*Node) { count++ })
	assert.Equal(t, 1, count)
}

func TestGraphEnqueueDependentsSkipsStaticAndOrdersExternalLast(t *testing.T) {
	g := New()
	g.AddNode("atom", KindAtomInstance)
	g.AddNode("dependent", KindAtomInstance)
	g.AddNode("static-dependent", KindAtomInstance)
	g.AddNode("external", KindExternalSubscriber)

	_, err := g.AddEdge("dependent", "atom", FlagExplicit, "get", nil)
	require.NoError(t, err)
	_, err = g.AddEdge("static-dependent", "atom", FlagStatic, "get", nil)
	require.NoError(t, err)
	_, err = g.AddEdge("external", "atom", FlagExternal, "subscribe", nil)
	require.NoError(t, err)

	g.EnqueueDependents("atom")

	var order []string
	g.Heap().Drain(func(n *Node) { order = append(order, n.ID) })

	require.Len(t, order, 2)
	assert.Equal(t, "external", order[len(order)-1], "external edges drain last")
	assert.NotContains(t, order, "static-dependent", "static edges suppress notification")
}
