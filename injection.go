package ecosystem

import (
	"time"

	"github.com/nrask/ecosystem/internal/graph"
	"github.com/nrask/ecosystem/internal/holder"
)

// Injection is the context passed to a factory: it exposes access to
// other atoms, registers effects and destructors, and lets a factory
// declare ttl, promise, and export policy for the instance it is
// constructing or recomputing.
//
// An Injection is only valid for the duration of the factory call it
// was created for; every primitive checks this and panics with
// *InjectionOutOfScopeError once the call returns.
type Injection struct {
	eco      *Ecosystem
	instance *Instance

	active bool

	newDeps map[string]bool // dependency ids recorded this run, for retraction

	effects []func() func()

	refIndex int

	ttlOverride     *time.Duration
	promiseOverride <-chan PromiseResult
	exportsOverride any
}

func newInjection(eco *Ecosystem, inst *Instance) *Injection {
	return &Injection{
		eco:      eco,
		instance: inst,
		active:   true,
		newDeps:  make(map[string]bool),
	}
}

func (inj *Injection) requireActive(primitive string) error {
	if !inj.active {
		return &InjectionOutOfScopeError{Primitive: primitive}
	}
	return nil
}

// Get resolves (or creates) the instance for (template, params),
// registers a dynamic Explicit edge from the current factory's
// instance to it, and returns its current state. If the dependency is
// Stale (an unresolved promise attached), Get panics with
// *NotReadyError instead of returning a value; the caller's own
// factory run becomes Stale in turn, inheriting the same promise, so
// staleness propagates transitively rather than surfacing as a
// regular error.
func (inj *Injection) Get(tmpl *Template, params ...any) any {
	if err := inj.requireActive("Get"); err != nil {
		panic(err)
	}

	dep, err := inj.eco.resolveForDependency(tmpl, params, inj.instance.id)
	if err != nil {
		panic(err)
	}

	inj.newDeps[dep.id] = true
	if _, err := inj.eco.addRawEdge(inj.instance.id, dep.id, graph.FlagExplicit, "get", nil); err != nil {
		panic(err)
	}

	if dep.activeState == StateStale {
		panic(&NotReadyError{InstanceID: dep.id, Promise: dep.promise})
	}

	return dep.Get()
}

// GetInstance resolves (or creates) the instance for (template,
// params), registers an Explicit+Static edge (pins lifetime, no
// change notifications), and returns the instance handle itself.
func (inj *Injection) GetInstance(tmpl *Template, params ...any) *Instance {
	if err := inj.requireActive("GetInstance"); err != nil {
		panic(err)
	}

	dep, err := inj.eco.resolveForDependency(tmpl, params, inj.instance.id)
	if err != nil {
		panic(err)
	}

	inj.newDeps[dep.id] = true
	if _, err := inj.eco.addRawEdge(inj.instance.id, dep.id, graph.FlagExplicit|graph.FlagStatic, "getInstance", nil); err != nil {
		panic(err)
	}

	return dep
}

// Store creates a local state holder owned by this instance. Every
// call allocates a new holder, on re-runs too; a factory that needs
// the same holder across runs keeps it in a Ref. The readonly
// argument is accepted but not enforced.
func (inj *Injection) Store(initial any, readonly ...bool) StateHolder {
	if err := inj.requireActive("Store"); err != nil {
		panic(err)
	}
	return holder.New(initial, nil)
}

// Effect registers fn to run after the factory returns. fn may return
// a destructor, run before the next re-run or on destroy, LIFO with
// other registered destructors.
func (inj *Injection) Effect(fn func() func()) {
	if err := inj.requireActive("Effect"); err != nil {
		panic(err)
	}
	inj.effects = append(inj.effects, fn)
}

// Ref returns a per-instance mutable cell that survives factory
// re-runs: call order determines identity, so a given factory must
// call Ref in the same order on every run (the standard "hooks" rule).
// The first call for a given order allocates initial; subsequent
// re-runs return the cell's current holder, ignoring initial.
func (inj *Injection) Ref(initial any) *Ref {
	if err := inj.requireActive("Ref"); err != nil {
		panic(err)
	}

	idx := inj.refIndex
	inj.refIndex++

	inst := inj.instance
	if idx < len(inst.refCells) {
		return inst.refCells[idx].(*Ref)
	}

	r := &Ref{value: initial}
	inst.refCells = append(inst.refCells, r)
	return r
}

// Ref is a mutable cell allocated by Injection.Ref.
type Ref struct {
	value any
}

// Get returns the ref's current value.
func (r *Ref) Get() any { return r.value }

// Set updates the ref's value. It does not trigger recomputation or
// notifications; refs are for imperative bookkeeping (timers, mutable
// counters) that must not itself be reactive state.
func (r *Ref) Set(v any) { r.value = v }

// Memo caches factory's result across re-runs, keyed by key. The
// first call for a given key on this instance computes and caches the
// value; subsequent calls, on this run or later re-runs, return the
// cached value without invoking factory again.
func (inj *Injection) Memo(key string, factory func() any) any {
	if err := inj.requireActive("Memo"); err != nil {
		panic(err)
	}

	inst := inj.instance
	if inst.memoCells == nil {
		inst.memoCells = make(map[string]memoCell)
	}
	if cell, ok := inst.memoCells[key]; ok {
		return cell.value
	}

	v := factory()
	inst.memoCells[key] = memoCell{key: key, value: v}
	return v
}

// TTL declares the delay after this instance loses its last dependent
// before it is scheduled for destruction.
func (inj *Injection) TTL(d time.Duration) {
	if err := inj.requireActive("TTL"); err != nil {
		panic(err)
	}
	inj.ttlOverride = &d
}

// Promise declares an async readiness promise for this instance. The
// instance is Stale until a PromiseResult is delivered.
func (inj *Injection) Promise(p <-chan PromiseResult) {
	if err := inj.requireActive("Promise"); err != nil {
		panic(err)
	}
	inj.promiseOverride = p
}

// Exports declares the stable methods exposed on this instance,
// retrievable via Instance.Exports.
func (inj *Injection) Exports(obj any) {
	if err := inj.requireActive("Exports"); err != nil {
		panic(err)
	}
	inj.exportsOverride = obj
}

// close marks the injection permanently inactive; called once the
// factory call this Injection was created for has returned.
func (inj *Injection) close() {
	inj.active = false
}
