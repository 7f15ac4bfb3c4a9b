package graph

import "fmt"

// Graph owns the node registry and the edges between them. It is the
// exclusive owner of graph mutation: callers never touch a Node's
// edge maps directly.
type Graph struct {
	nodes map[string]*Node
	heap  *Heap
}

// New returns an empty Graph.
func New() *Graph {
	return &Graph{
		nodes: make(map[string]*Node),
		heap:  NewHeap(),
	}
}

// AddNode registers a new node. It is a no-op if the id is already
// registered.
func (g *Graph) AddNode(id string, kind Kind) *Node {
	if n, ok := g.nodes[id]; ok {
		return n
	}
	n := newNode(id, kind)
	g.nodes[id] = n
	return n
}

// Node returns the node for id, if registered.
func (g *Graph) Node(id string) (*Node, bool) {
	n, ok := g.nodes[id]
	return n, ok
}

// RemoveNode drops id from the registry. Invariant 4 requires the
// node have zero edges before removal; callers must call RemoveEdge
// for every remaining edge first (see Destroy helpers in the
// ecosystem package).
func (g *Graph) RemoveNode(id string) {
	n, ok := g.nodes[id]
	if !ok {
		return
	}
	if len(n.incoming) != 0 || len(n.outgoing) != 0 {
		panic(fmt.Sprintf("graph: RemoveNode(%q) called with dangling edges", id))
	}
	g.heap.Remove(n)
	delete(g.nodes, id)
}

// AddEdge creates or merges an edge from fromID to toID. Idempotent on
// the (fromID, toID) pair: if the edge exists, flags are OR-merged and
// the notify callback is left untouched.
//
// fromID is the dependent (the subscriber/caller); toID is the
// dependency (the atom being read). Both endpoints must already be
// registered.
func (g *Graph) AddEdge(fromID, toID string, flags Flags, operation string, notify NotifyFunc) (*Edge, error) {
	from, ok := g.nodes[fromID]
	if !ok {
		return nil, fmt.Errorf("graph: AddEdge: unknown from node %q", fromID)
	}
	to, ok := g.nodes[toID]
	if !ok {
		return nil, fmt.Errorf("graph: AddEdge: unknown to node %q", toID)
	}

	if existing, ok := from.outgoing[toID]; ok {
		existing.Flags |= flags
		return existing, nil
	}

	e := &Edge{From: fromID, To: toID, Flags: flags, Operation: operation, Notify: notify}
	from.outgoing[toID] = e
	to.incoming[fromID] = e

	if to.Kind == KindAtomInstance {
		g.reweight(from, to)
	}

	if notify != nil {
		notify(ReasonEdgeAdded)
	}

	return e, nil
}

// RemoveEdge deletes the edge fromID->toID, if any. It returns whether
// toID has lost its last dependent as a result (outgoing edge count on
// toID's incoming side reaching zero), which the caller uses to drive
// ttl scheduling.
func (g *Graph) RemoveEdge(fromID, toID string) (lastDependentRemoved bool) {
	from, ok := g.nodes[fromID]
	if !ok {
		return false
	}
	to, ok := g.nodes[toID]
	if !ok {
		return false
	}

	if _, ok := from.outgoing[toID]; !ok {
		return false
	}

	delete(from.outgoing, toID)
	delete(to.incoming, fromID)

	return len(to.incoming) == 0
}

// reweight derives `from`'s weight from `to`'s, mirroring the way a
// dependent's height is derived from its dependency's height: a node
// that reads a heavier dependency becomes heavier itself, so it is
// flushed only after everything it depends on.
func (g *Graph) reweight(from, to *Node) {
	if to.Weight+1 > from.Weight {
		from.Weight = to.Weight + 1
	}
}

// Dependents returns the ids of nodes holding an outgoing edge into
// id, i.e. the nodes that would be notified when id changes.
func (g *Graph) Dependents(id string) []string {
	n, ok := g.nodes[id]
	if !ok {
		return nil
	}
	return n.Dependents()
}

// HasEdge reports whether fromID depends on toID.
func (g *Graph) HasEdge(fromID, toID string) bool {
	from, ok := g.nodes[fromID]
	if !ok {
		return false
	}
	_, ok = from.outgoing[toID]
	return ok
}

// NodeCount returns the number of registered nodes.
func (g *Graph) NodeCount() int { return len(g.nodes) }

// EdgeCount returns the number of registered edges, counting each
// fromID->toID pair once.
func (g *Graph) EdgeCount() int {
	n := 0
	for _, node := range g.nodes {
		n += len(node.outgoing)
	}
	return n
}

// Heap exposes the drain heap so the scheduler can enqueue and drain
// affected nodes in weight order.
func (g *Graph) Heap() *Heap {
	return g.heap
}

// EnqueueDependents inserts every dependent of id into the drain heap,
// ascending by weight, atom instances first, external subscribers
// last.
func (g *Graph) EnqueueDependents(id string) {
	n, ok := g.nodes[id]
	if !ok {
		return
	}

	var externals []*Node
	for fromID, e := range n.incoming {
		if e.Flags.Has(FlagStatic) {
			continue
		}
		dependent, ok := g.nodes[fromID]
		if !ok {
			continue
		}
		if dependent.Kind == KindExternalSubscriber {
			externals = append(externals, dependent)
			continue
		}
		g.heap.Insert(dependent)
	}

	for _, ext := range externals {
		g.heap.Insert(ext)
	}
}
