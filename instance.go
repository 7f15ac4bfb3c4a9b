package ecosystem

import (
	"time"

	"github.com/nrask/ecosystem/internal/graph"
	"github.com/nrask/ecosystem/internal/holder"
)

// ActiveState is the atom instance lifecycle state.
type ActiveState int

const (
	StateInitializing ActiveState = iota
	StateActive
	StateStale
	StateDestroyed
)

func (s ActiveState) String() string {
	switch s {
	case StateInitializing:
		return "Initializing"
	case StateActive:
		return "Active"
	case StateStale:
		return "Stale"
	case StateDestroyed:
		return "Destroyed"
	default:
		return "Unknown"
	}
}

// PromiseStatus mirrors an instance's attached async readiness
// promise, if any.
type PromiseStatus int

const (
	PromiseIdle PromiseStatus = iota
	PromiseLoading
	PromiseSuccess
	PromiseError
)

func (s PromiseStatus) String() string {
	switch s {
	case PromiseIdle:
		return "idle"
	case PromiseLoading:
		return "loading"
	case PromiseSuccess:
		return "success"
	case PromiseError:
		return "error"
	default:
		return "unknown"
	}
}

// PromiseResult is delivered on the channel a factory attaches via
// Injection.Promise to signal async readiness.
type PromiseResult struct {
	Value any
	Err   error
}

// Unsubscribe removes a previously registered listener or edge.
// Calling it more than once is a no-op.
type Unsubscribe = holder.Unsubscribe

// StateHolder is the minimal store contract the engine requires.
// Factories may return a value satisfying this interface directly
// instead of a plain value, and the injection context's Store
// primitive returns one.
type StateHolder = holder.Holder

// EdgeHandle is returned by Instance.AddEdge; call Remove to retract
// the edge.
type EdgeHandle struct {
	instance *Instance
	fromID   string
}

// Remove retracts the edge this handle was returned for.
func (h EdgeHandle) Remove() {
	h.instance.eco.removeEdge(h.fromID, h.instance.id)
}

// Instance is the live materialization of a (template, params) pair.
type Instance struct {
	eco *Ecosystem

	id          string
	templateKey string
	paramsHash  string
	params      []any
	template    *Template

	holder        StateHolder
	internalUnsub Unsubscribe // engine's own listener bridging holder writes to graph propagation
	exports       any

	promise       <-chan PromiseResult
	promiseStatus PromiseStatus
	promiseError  error

	activeState ActiveState

	destructors []func()
	ttl         time.Duration
	overrideOf  string // template key this instance's template overrides, if any

	createdAt               time.Time
	lastDependentReleasedAt time.Time

	// refs/memo cells keyed by call-order index or caller-supplied
	// key, surviving factory re-runs.
	refCells  []any
	memoCells map[string]memoCell

	node *graph.Node
}

type memoCell struct {
	key   string
	value any
}

// ID returns the instance's identity, a pure function of
// (templateKey, paramsHash).
func (inst *Instance) ID() string { return inst.id }

// TemplateKey returns the key of the template this instance was
// requested through, before override resolution.
func (inst *Instance) TemplateKey() string { return inst.templateKey }

// Params returns the parameters this instance was resolved with.
func (inst *Instance) Params() []any { return inst.params }

// ActiveState returns the instance's current lifecycle state.
func (inst *Instance) ActiveState() ActiveState { return inst.activeState }

// Exports returns the value declared via Injection.Exports, or nil.
func (inst *Instance) Exports() any { return inst.exports }

// Promise returns the instance's attached readiness promise, if any.
func (inst *Instance) Promise() <-chan PromiseResult { return inst.promise }

// PromiseStatus returns the instance's async readiness status.
func (inst *Instance) PromiseStatus() PromiseStatus { return inst.promiseStatus }

// PromiseError returns the error recorded when PromiseStatus is
// PromiseError.
func (inst *Instance) PromiseError() error { return inst.promiseError }

// Get returns the instance's current state. It never tracks a
// dependency edge; use Injection.Get from inside a factory for that.
// Reading a Destroyed instance returns nil and reports no
// InstanceDestroyedError, so callers holding a reference to an
// already-destroyed Instance should check ActiveState first.
func (inst *Instance) Get() any {
	if inst.activeState == StateDestroyed {
		return nil
	}
	return inst.holder.GetState()
}

// Holder returns the instance's underlying state holder. Factories
// use this to build exported setters that close over the instance;
// it is not itself guarded, so callers outside an active factory run
// should prefer SetState/Dispatch.
func (inst *Instance) Holder() StateHolder { return inst.holder }

// SetState commits settable to the instance's state holder and
// propagates the change to dependents. It is the guarded, host-facing
// mutation entrypoint: exported factory setters should call this
// (or Dispatch) rather than writing to Holder() directly.
func (inst *Instance) SetState(settable any) (any, error) {
	return inst.eco.setState(inst, settable)
}

// Dispatch runs the instance's reducer (if any) against action and
// propagates the result, guarded the same way as SetState.
func (inst *Instance) Dispatch(action any) (any, error) {
	return inst.eco.dispatchState(inst, action)
}

// Subscribe creates an External edge from a host-framework subscriber
// to this instance; notify is invoked, at most once per flush, with
// the instance's new state after any state change.
func (inst *Instance) Subscribe(notify func(any)) (Unsubscribe, error) {
	return inst.eco.Subscribe(inst.id, notify)
}

// AddEdge registers an edge from fromID into this instance with the
// given flags, notifying notify on state changes, destruction, or
// edge addition per flags. Both endpoints must already be registered.
func (inst *Instance) AddEdge(fromID string, flags graph.Flags, notify graph.NotifyFunc) (EdgeHandle, error) {
	if _, err := inst.eco.addRawEdge(fromID, inst.id, flags, "external", notify); err != nil {
		return EdgeHandle{}, err
	}
	return EdgeHandle{instance: inst, fromID: fromID}, nil
}
