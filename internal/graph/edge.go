// Package graph maintains the bidirectional dependency graph between
// atom instances, external subscribers, and selector caches.
package graph

// Flags is a bitset carried on every Edge.
type Flags uint8

const (
	// FlagNone marks an edge with no special semantics.
	FlagNone Flags = 0
	// FlagExplicit marks an edge created by a direct dependency call,
	// as opposed to one that is implicit or derived.
	FlagExplicit Flags = 1 << iota
	// FlagExternal marks an edge whose `from` endpoint is an external
	// subscriber rather than an atom instance.
	FlagExternal
	// FlagStatic marks an edge whose receiver does not want
	// state-change notifications; it still pins lifetime.
	FlagStatic
	// FlagDeferred is reserved for future use.
	FlagDeferred
)

// Has reports whether f contains all bits of other.
func (f Flags) Has(other Flags) bool {
	return f&other == other
}

// NotifyReason distinguishes why an edge's notify callback is invoked.
type NotifyReason int

const (
	ReasonStateChanged NotifyReason = iota
	ReasonDestroyed
	ReasonEdgeAdded
)

// NotifyFunc is invoked on the `from` endpoint of an edge when the `to`
// endpoint changes, is destroyed, or a new edge is added to it.
type NotifyFunc func(reason NotifyReason)

// Edge is a directed dependency from a dependent (From) to its
// dependency (To).
type Edge struct {
	From, To  string
	Flags     Flags
	Operation string
	Notify    NotifyFunc
}
