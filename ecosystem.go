// Package ecosystem implements a reactive atomic state engine: a
// runtime that manages a dynamic, bidirectional dependency graph of
// independently-keyed state cells ("atoms"), propagates updates along
// that graph in a defined order, and supports lifecycle policies
// (ttl, suspension, cache eviction).
package ecosystem

import (
	"fmt"
	"reflect"
	"time"

	"github.com/rs/zerolog"

	"github.com/nrask/ecosystem/config"
	"github.com/nrask/ecosystem/internal/atomkey"
	"github.com/nrask/ecosystem/internal/graph"
	"github.com/nrask/ecosystem/internal/holder"
	"github.com/nrask/ecosystem/internal/sched"
	"github.com/nrask/ecosystem/logging"
)

// Ecosystem is the root container: it owns the node registry, the
// dependency graph, the override table, the scheduler, and the event
// log. It is single-threaded cooperative: exactly one
// call may be in flight at a time, from any goroutine.
type Ecosystem struct {
	guard *sched.Guard
	g     *graph.Graph
	sched *sched.Scheduler
	timers *sched.Timers

	instances      map[string]*Instance
	seenTemplates  map[string]*Template
	overridesByKey map[string]*Template

	stack              []*Injection
	pendingOverrideEnd map[string]bool

	storage map[string]any

	eventLog *EventLog
	logger   zerolog.Logger
	cfg      config.Config

	nextSubID int64
	closed    bool
}

// Option configures an Ecosystem at construction time.
type Option func(*Ecosystem)

// WithLogger overrides the default zerolog logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(e *Ecosystem) { e.logger = logger }
}

// WithConfig overrides the resolved Config outright (event log
// capacity, default ttl, log level).
func WithConfig(cfg config.Config) Option {
	return func(e *Ecosystem) { e.cfg = cfg }
}

// WithEventLogCapacity overrides the event log ring capacity from
// Config's value.
func WithEventLogCapacity(capacity int) Option {
	return func(e *Ecosystem) { e.cfg.EventLogCapacity = capacity }
}

// WithDefaultTTL overrides the ttl applied to instances whose factory
// does not declare one via Injection.TTL.
func WithDefaultTTL(d time.Duration) Option {
	return func(e *Ecosystem) { e.cfg.DefaultTTL = d }
}

// New returns a ready-to-use Ecosystem.
func New(opts ...Option) *Ecosystem {
	e := &Ecosystem{
		guard:              sched.NewGuard(),
		g:                  graph.New(),
		timers:             sched.NewTimers(),
		instances:          make(map[string]*Instance),
		seenTemplates:      make(map[string]*Template),
		overridesByKey:     make(map[string]*Template),
		pendingOverrideEnd: make(map[string]bool),
		storage:            make(map[string]any),
		cfg:                config.Default(),
		logger:             logging.New("ecosystem"),
	}
	e.sched = sched.New(e.flush)

	for _, opt := range opts {
		opt(e)
	}

	e.eventLog = NewEventLog(e.cfg.EventLogCapacity)

	return e
}

// Config returns the Ecosystem's resolved configuration.
func (e *Ecosystem) Config() config.Config { return e.cfg }

// Storage returns the per-binding scratch value stored under key (e.g.
// a host UI framework's render context), or nil. The core never reads
// or interprets these values itself.
func (e *Ecosystem) Storage(key string) any {
	if err := e.enter(); err != nil {
		return nil
	}
	defer e.exit()
	return e.storage[key]
}

// SetStorage stores value under key in the scratch bag.
func (e *Ecosystem) SetStorage(key string, value any) error {
	if err := e.enter(); err != nil {
		return err
	}
	defer e.exit()
	e.storage[key] = value
	return nil
}

func (e *Ecosystem) enter() error {
	if e.closed {
		return fmt.Errorf("ecosystem: use of a closed Ecosystem")
	}
	if !e.guard.Enter() {
		return &ConcurrentAccessError{}
	}
	return nil
}

func (e *Ecosystem) exit() { e.guard.Exit() }

// GetNode resolves the instance for (template, params), constructing
// it if this is the first request for that identity.
func (e *Ecosystem) GetNode(tmpl *Template, params ...any) (*Instance, error) {
	if err := e.enter(); err != nil {
		return nil, err
	}
	defer e.exit()

	return e.getNodeLocked(tmpl, params)
}

func (e *Ecosystem) getNodeLocked(tmpl *Template, params []any) (*Instance, error) {
	if err := e.validateTemplate(tmpl); err != nil {
		return nil, err
	}
	if tmpl.RequiresParams && len(params) == 0 {
		return nil, &InvalidParamsError{TemplateKey: tmpl.Key}
	}

	eff := e.effectiveTemplate(tmpl)
	hash := atomkey.Hash(params)
	id := eff.Key + "-" + hash

	if inst, ok := e.instances[id]; ok && inst.activeState != StateDestroyed {
		return inst, nil
	}

	return e.construct(eff, tmpl.Key, id, hash, params)
}

func (e *Ecosystem) validateTemplate(tmpl *Template) error {
	if tmpl == nil {
		return fmt.Errorf("ecosystem: nil template")
	}
	if existing, ok := e.seenTemplates[tmpl.Key]; ok {
		if !sameFactory(existing.Factory, tmpl.Factory) {
			return &DuplicateTemplateError{TemplateKey: tmpl.Key}
		}
	} else {
		e.seenTemplates[tmpl.Key] = tmpl
	}
	return nil
}

func sameFactory(a, b Factory) bool {
	return reflect.ValueOf(a).Pointer() == reflect.ValueOf(b).Pointer()
}

func (e *Ecosystem) effectiveTemplate(tmpl *Template) *Template {
	if eff, ok := e.overridesByKey[tmpl.Key]; ok {
		return eff
	}
	return tmpl
}

// resolveForDependency is called from inside a factory run
// (Injection.Get/GetInstance) to resolve a dependency, detecting
// cycles against the currently-active factory stack.
func (e *Ecosystem) resolveForDependency(tmpl *Template, params []any, dependentID string) (*Instance, error) {
	if err := e.validateTemplate(tmpl); err != nil {
		return nil, err
	}
	if tmpl.RequiresParams && len(params) == 0 {
		return nil, &InvalidParamsError{TemplateKey: tmpl.Key}
	}

	eff := e.effectiveTemplate(tmpl)
	hash := atomkey.Hash(params)
	id := eff.Key + "-" + hash

	// cycle detection must run before the already-registered check: a
	// factory still under construction is already in e.instances (so
	// its own Initializing value can be read by unrelated code), but a
	// dependency chain looping back onto it mid-construction is fatal.
	for _, frame := range e.stack {
		if frame.instance.id == id {
			path := make([]string, 0, len(e.stack)+1)
			for _, f := range e.stack {
				path = append(path, f.instance.id)
			}
			path = append(path, id)
			return nil, &CyclicDependencyError{TemplateKey: tmpl.Key, Path: path}
		}
	}

	if inst, ok := e.instances[id]; ok && inst.activeState != StateDestroyed {
		return inst, nil
	}

	return e.construct(eff, tmpl.Key, id, hash, params)
}

// construct runs template's factory for a brand-new instance
// identified by id.
func (e *Ecosystem) construct(tmpl *Template, requestedKey, id, hash string, params []any) (*Instance, error) {
	node := e.g.AddNode(id, graph.KindAtomInstance)

	inst := &Instance{
		eco:         e,
		id:          id,
		templateKey: requestedKey,
		paramsHash:  hash,
		params:      params,
		template:    tmpl,
		activeState: StateInitializing,
		createdAt:   time.Now(),
		node:        node,
	}
	e.instances[id] = inst

	if err := e.runFactory(inst); err != nil {
		return nil, err
	}

	return inst, nil
}

// runFactory invokes inst.template.Factory, wiring up the injection
// context, and commits the resulting value/exports/promise/ttl. It is
// used both for initial construction and for recomputation triggered
// by a dependency change.
func (e *Ecosystem) runFactory(inst *Instance) (err error) {
	inj := newInjection(e, inst)
	e.stack = append(e.stack, inj)

	defer func() {
		inj.close()
		e.stack = e.stack[:len(e.stack)-1]

		if r := recover(); r != nil {
			if nre, ok := r.(*NotReadyError); ok {
				e.propagateNotReady(inst, nre)
				return
			}

			fe := &FactoryThrewError{TemplateKey: inst.template.Key, Cause: r}
			e.logEvent(EventFactoryThrew, map[string]any{"instance": inst.id, "cause": fmt.Sprint(r)})
			e.logger.Error().Str("instance", inst.id).Interface("cause", r).Msg("factory panicked")
			e.destroyLocked(inst.id, true)
			err = fe
			return
		}

		if e.pendingOverrideEnd[inst.id] {
			delete(e.pendingOverrideEnd, inst.id)
			e.destroyLocked(inst.id, true)
		}
	}()

	value := inst.template.Factory(inj, inst.params...)

	prevDeps := make(map[string]bool)
	node, _ := e.g.Node(inst.id)
	node.EachOutgoing(func(edge *graph.Edge) { prevDeps[edge.To] = true })

	for depID := range prevDeps {
		if !inj.newDeps[depID] {
			lastDependentGone := e.g.RemoveEdge(inst.id, depID)
			e.logEvent(EventEdgeRemoved, map[string]any{"from": inst.id, "to": depID})
			if lastDependentGone {
				e.checkTTLEligibility(depID)
			}
		}
	}

	e.applyFactoryResult(inst, inj, value)
	e.runEffects(inst, inj)

	return nil
}

func (e *Ecosystem) applyFactoryResult(inst *Instance, inj *Injection, value any) {
	// every completed run starts from a clean promise slate: a run
	// that doesn't redeclare a promise this time is, by definition, no
	// longer waiting on the one from a previous run.
	inst.promise = nil
	inst.promiseStatus = PromiseIdle
	inst.promiseError = nil

	switch v := value.(type) {
	case *AtomAPIEnvelope:
		inst.exports = v.Exports
		if v.Promise != nil {
			inst.promise = v.Promise
			inst.promiseStatus = PromiseLoading
			e.watchPromise(inst, v.Promise)
		}
		if v.TTL != nil {
			inst.ttl = *v.TTL
		} else {
			inst.ttl = e.cfg.DefaultTTL
		}
		if sh, ok := v.Value.(StateHolder); ok {
			inst.holder = sh
		} else {
			inst.holder = holder.New(v.Value, nil)
		}
	case StateHolder:
		inst.holder = v
	default:
		inst.holder = holder.New(value, nil)
	}
	e.rewireHolder(inst)

	if inj.exportsOverride != nil {
		inst.exports = inj.exportsOverride
	}
	if inj.promiseOverride != nil {
		inst.promise = inj.promiseOverride
		inst.promiseStatus = PromiseLoading
		e.watchPromise(inst, inj.promiseOverride)
	}
	if inj.ttlOverride != nil {
		inst.ttl = *inj.ttlOverride
	} else if inst.ttl == 0 {
		inst.ttl = e.cfg.DefaultTTL
	}

	prevState := inst.activeState
	if inst.promiseStatus == PromiseLoading {
		inst.activeState = StateStale
	} else {
		inst.activeState = StateActive
	}
	if prevState != inst.activeState {
		e.logEvent(EventInstanceActiveStateChange, map[string]any{
			"instance": inst.id, "from": prevState.String(), "to": inst.activeState.String(),
		})
	}

	e.logEvent(EventInstanceStateChanged, map[string]any{"instance": inst.id})
}

// propagateNotReady handles a factory run that panicked because it
// read a Stale dependency (Injection.Get's NotReadyError): rather than
// destroying the instance as a FactoryThrew would, the instance itself
// becomes Stale, reporting the same pending promise, so the staleness
// bubbles transitively up the dependency chain instead of tearing
// anything down. It deliberately does NOT watch nre.Promise itself —
// the dependency edge to the Stale instance (already registered by
// Injection.Get before the panic) means this instance is re-run by the
// normal recompute path once the dependency's own watcher delivers and
// the dependency transitions to Active; a second reader on the same
// channel would race the dependency's own watchPromise for the single
// delivery.
func (e *Ecosystem) propagateNotReady(inst *Instance, nre *NotReadyError) {
	if inst.holder == nil {
		inst.holder = holder.New(nil, nil)
		e.rewireHolder(inst)
	}

	inst.promise = nre.Promise
	inst.promiseStatus = PromiseLoading

	prev := inst.activeState
	inst.activeState = StateStale
	if prev != inst.activeState {
		e.logEvent(EventInstanceActiveStateChange, map[string]any{
			"instance": inst.id, "from": prev.String(), "to": inst.activeState.String(),
		})
	}
}

// rewireHolder (re)subscribes the engine's own bridging listener to
// inst's current holder, replacing whatever subscription the previous
// run (if any) installed. This is how a plain setState/dispatch call
// on an instance's holder turns into graph propagation: the holder
// itself knows nothing about the graph.
func (e *Ecosystem) rewireHolder(inst *Instance) {
	if inst.internalUnsub != nil {
		inst.internalUnsub()
		inst.internalUnsub = nil
	}
	if inst.holder == nil {
		return
	}
	id := inst.id
	inst.internalUnsub = inst.holder.Subscribe(func(any) { e.onHolderChanged(id) })
}

// onHolderChanged runs synchronously inside a holder's own listener
// pass, always already inside a guarded call (see setState/
// dispatchState): it propagates a committed state change to the
// graph and schedules a flush.
func (e *Ecosystem) onHolderChanged(id string) {
	inst, ok := e.instances[id]
	if !ok || inst.activeState == StateDestroyed {
		return
	}
	e.logEvent(EventInstanceStateChanged, map[string]any{"instance": id})
	e.g.EnqueueDependents(id)
	e.sched.Schedule()
}

// setState is the guarded entrypoint for Instance.SetState. If called
// while a factory run is already on the stack, the guard is already
// held by that same logical call, so it mutates directly instead of
// trying to re-enter (which would otherwise reject itself).
func (e *Ecosystem) setState(inst *Instance, settable any) (any, error) {
	if len(e.stack) == 0 {
		if err := e.enter(); err != nil {
			return nil, err
		}
		defer e.exit()
	}
	if inst.activeState == StateDestroyed {
		return nil, &InstanceDestroyedError{InstanceID: inst.id}
	}
	return inst.holder.SetState(settable), nil
}

// dispatchState is Instance.Dispatch's guarded entrypoint, mirroring
// setState.
func (e *Ecosystem) dispatchState(inst *Instance, action any) (any, error) {
	if len(e.stack) == 0 {
		if err := e.enter(); err != nil {
			return nil, err
		}
		defer e.exit()
	}
	if inst.activeState == StateDestroyed {
		return nil, &InstanceDestroyedError{InstanceID: inst.id}
	}
	return inst.holder.Dispatch(action), nil
}

func (e *Ecosystem) runEffects(inst *Instance, inj *Injection) {
	for _, fn := range inj.effects {
		cleanup := fn()
		if cleanup != nil {
			inst.destructors = append(inst.destructors, cleanup)
		}
	}
}

// watchPromise observes p on its own goroutine and re-enters the
// Ecosystem once it resolves; advisory only, the core never blocks on
// it.
func (e *Ecosystem) watchPromise(inst *Instance, p <-chan PromiseResult) {
	go func() {
		result, ok := <-p
		if !ok {
			return
		}
		e.deliverPromiseResult(inst.id, result)
	}()
}

func (e *Ecosystem) deliverPromiseResult(instID string, result PromiseResult) {
	if err := e.enter(); err != nil {
		return // ecosystem closed or busy; a detached/closed instance ignores late resolution
	}
	defer e.exit()

	inst, ok := e.instances[instID]
	if !ok || inst.activeState == StateDestroyed {
		return // detached: destroyed instances ignore promise resolution
	}

	status := PromiseSuccess
	if result.Err != nil {
		status = PromiseError
		inst.promiseError = &PromiseRejectedError{InstanceID: instID, Cause: result.Err}
		e.logEvent(EventPromiseRejected, map[string]any{"instance": instID, "error": result.Err.Error()})
		e.logger.Warn().Str("instance", instID).Err(result.Err).Msg("promise rejected")
	} else {
		inst.holder.SetState(result.Value)
	}

	prev := inst.activeState
	inst.activeState = StateActive
	if prev != inst.activeState {
		e.logEvent(EventInstanceActiveStateChange, map[string]any{
			"instance": instID, "from": prev.String(), "to": inst.activeState.String(),
		})
	}

	// promiseStatus is written last: a reader that sees it leave
	// PromiseLoading also sees the resolved value and the Active state.
	inst.promiseStatus = status

	e.g.EnqueueDependents(instID)
	e.sched.Schedule()
}

// addRawEdge is the single choke point edge creation flows through,
// used by both Injection.Get/GetInstance and Instance.AddEdge
// (external subscriptions).
func (e *Ecosystem) addRawEdge(fromID, toID string, flags graph.Flags, operation string, notify graph.NotifyFunc) (*graph.Edge, error) {
	edge, err := e.g.AddEdge(fromID, toID, flags, operation, notify)
	if err != nil {
		return nil, err
	}

	if flags.Has(graph.FlagStatic) {
		e.logEvent(EventGhostEdgeCreated, map[string]any{"from": fromID, "to": toID, "operation": operation})
	} else {
		e.logEvent(EventEdgeCreated, map[string]any{"from": fromID, "to": toID, "operation": operation})
	}
	e.timers.Cancel(toID) // reacquiring a dependent cancels a scheduled destruction
	return edge, nil
}

func (e *Ecosystem) removeEdge(fromID, toID string) {
	var wasStatic bool
	if from, ok := e.g.Node(fromID); ok {
		if edge, ok := from.Outgoing(toID); ok {
			wasStatic = edge.Flags.Has(graph.FlagStatic)
		}
	}

	lastGone := e.g.RemoveEdge(fromID, toID)
	if wasStatic {
		e.logEvent(EventGhostEdgeDestroyed, map[string]any{"from": fromID, "to": toID})
	} else {
		e.logEvent(EventEdgeRemoved, map[string]any{"from": fromID, "to": toID})
	}
	if lastGone {
		e.checkTTLEligibility(toID)
	}
}

func (e *Ecosystem) checkTTLEligibility(id string) {
	inst, ok := e.instances[id]
	if !ok || inst.activeState == StateDestroyed {
		return
	}
	node, ok := e.g.Node(id)
	if !ok || node.IncomingCount() > 0 {
		return
	}

	inst.lastDependentReleasedAt = time.Now()

	if inst.ttl <= 0 {
		e.destroyLocked(id, true)
		return
	}

	e.timers.Schedule(id, inst.ttl, func() { e.fireTTL(id) })
}

func (e *Ecosystem) fireTTL(id string) {
	if err := e.enter(); err != nil {
		return
	}
	defer e.exit()

	inst, ok := e.instances[id]
	if !ok || inst.activeState == StateDestroyed {
		return
	}
	node, ok := e.g.Node(id)
	if !ok || node.IncomingCount() > 0 {
		return // a dependent re-acquired it since the timer armed
	}

	e.destroyLocked(id, true)
}

// GetNodeById returns the live instance for id, if registered.
func (e *Ecosystem) GetNodeById(id string) (*Instance, bool) {
	if err := e.enter(); err != nil {
		return nil, false
	}
	defer e.exit()

	inst, ok := e.instances[id]
	if !ok || inst.activeState == StateDestroyed {
		return nil, false
	}
	return inst, true
}

// Destroy removes the instance for id if its ttl policy allows it (no
// remaining dependents) or force is true. It reports whether
// destruction happened.
func (e *Ecosystem) Destroy(id string, force bool) (bool, error) {
	if err := e.enter(); err != nil {
		return false, err
	}
	defer e.exit()

	inst, ok := e.instances[id]
	if !ok || inst.activeState == StateDestroyed {
		return false, nil
	}

	if !force {
		node, ok := e.g.Node(id)
		if ok && node.IncomingCount() > 0 {
			return false, nil
		}
	}

	e.destroyLocked(id, true)
	return true, nil
}

// destroyLocked runs the full destruction sequence:
// transition to Destroyed, run destructors LIFO, remove outgoing
// edges and notify dependents, remove from registry.
func (e *Ecosystem) destroyLocked(id string, notifyDependents bool) {
	inst, ok := e.instances[id]
	if !ok || inst.activeState == StateDestroyed {
		return
	}

	prev := inst.activeState
	inst.activeState = StateDestroyed
	e.logEvent(EventInstanceActiveStateChange, map[string]any{
		"instance": id, "from": prev.String(), "to": inst.activeState.String(),
	})

	if inst.internalUnsub != nil {
		inst.internalUnsub()
		inst.internalUnsub = nil
	}

	e.timers.Cancel(id)

	for i := len(inst.destructors) - 1; i >= 0; i-- {
		e.runDestructor(id, inst.destructors[i])
	}
	inst.destructors = nil

	node, ok := e.g.Node(id)
	if ok {
		dependents := node.Dependents()

		node.EachIncoming(func(edge *graph.Edge) {
			if edge.Notify != nil {
				edge.Notify(graph.ReasonDestroyed)
			}
		})

		node.EachOutgoing(func(edge *graph.Edge) {
			lastGone := e.g.RemoveEdge(id, edge.To)
			if lastGone {
				e.checkTTLEligibility(edge.To)
			}
		})
		for _, depID := range dependents {
			e.g.RemoveEdge(depID, id)
		}

		e.g.RemoveNode(id)

		if notifyDependents {
			for _, depID := range dependents {
				dep, ok := e.instances[depID]
				if !ok || dep.activeState == StateDestroyed {
					continue
				}
				if depNode, ok := e.g.Node(depID); ok {
					e.g.Heap().Insert(depNode)
				}
			}
			e.sched.Schedule()
		}
	}

	delete(e.instances, id)
	e.sched.Schedule()
}

func (e *Ecosystem) runDestructor(instID string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			e.logEvent(EventDestructorThrew, map[string]any{"instance": instID, "cause": fmt.Sprint(r)})
			e.logger.Warn().Str("instance", instID).Interface("cause", r).Msg("destructor panicked")
		}
	}()
	fn()
}

func (e *Ecosystem) logEvent(typ EventType, payload map[string]any) {
	ev := e.eventLog.Append(time.Now(), Action{Type: typ, Payload: payload})
	e.logger.Debug().Int64("eventID", ev.ID).Str("type", string(typ)).Fields(payload).Msg("event")
}

// Log appends a caller-supplied event to the devtools event log.
func (e *Ecosystem) Log(action Action) {
	if err := e.enter(); err != nil {
		return
	}
	defer e.exit()
	e.logEvent(action.Type, action.Payload)
}

// EventLogSnapshot returns every retained event, oldest first.
func (e *Ecosystem) EventLogSnapshot() []Event {
	return e.eventLog.Snapshot()
}

// GraphStats is a point-in-time node/edge count, for devtools
// introspection.
type GraphStats struct {
	Nodes int
	Edges int
}

// GraphStats reports the current size of the dependency graph.
func (e *Ecosystem) GraphStats() GraphStats {
	if err := e.enter(); err != nil {
		return GraphStats{}
	}
	defer e.exit()
	return GraphStats{Nodes: e.g.NodeCount(), Edges: e.g.EdgeCount()}
}

// GraphEdgeExists reports whether fromID holds a dependency edge on
// toID, for devtools introspection.
func (e *Ecosystem) GraphEdgeExists(fromID, toID string) bool {
	if err := e.enter(); err != nil {
		return false
	}
	defer e.exit()
	return e.g.HasEdge(fromID, toID)
}

// Subscribe creates an External edge from a new host-framework
// subscriber node into id, delivering at most one notification per
// flush.
func (e *Ecosystem) Subscribe(id string, notify func(any)) (Unsubscribe, error) {
	if err := e.enter(); err != nil {
		return nil, err
	}
	defer e.exit()

	inst, ok := e.instances[id]
	if !ok || inst.activeState == StateDestroyed {
		return nil, &InstanceDestroyedError{InstanceID: id}
	}

	e.nextSubID++
	subID := fmt.Sprintf("external-%d", e.nextSubID)
	e.g.AddNode(subID, graph.KindExternalSubscriber)

	cb := func(reason graph.NotifyReason) {
		if reason != graph.ReasonStateChanged {
			return
		}
		e.deliverListener(subID, inst, notify)
	}

	if _, err := e.addRawEdge(subID, id, graph.FlagExternal, "subscribe", cb); err != nil {
		return nil, err
	}

	return func() {
		if err := e.enter(); err == nil {
			defer e.exit()
		}
		e.removeEdge(subID, id)
		if node, ok := e.g.Node(subID); ok && node.OutgoingCount() == 0 {
			e.g.RemoveNode(subID)
		}
	}, nil
}

func (e *Ecosystem) deliverListener(subID string, inst *Instance, notify func(any)) {
	defer func() {
		if r := recover(); r != nil {
			e.logEvent(EventListenerThrew, map[string]any{"subscriber": subID, "cause": fmt.Sprint(r)})
			e.logger.Warn().Str("subscriber", subID).Interface("cause", r).Msg("listener panicked")
		}
	}()
	notify(inst.Get())
}

// flush drains the heap: every queued atom instance is recomputed,
// every queued external subscriber is delivered to, atom instances in
// ascending weight order and external subscribers after all of them
// (Heap.Drain holds externals back).
func (e *Ecosystem) flush() {
	e.g.Heap().Drain(func(node *graph.Node) {
		switch node.Kind {
		case graph.KindAtomInstance:
			e.recompute(node.ID)
		case graph.KindExternalSubscriber:
			e.deliverExternal(node.ID)
		}
	})
}

func (e *Ecosystem) deliverExternal(subID string) {
	node, ok := e.g.Node(subID)
	if !ok {
		return
	}
	node.EachOutgoing(func(edge *graph.Edge) {
		if edge.Notify != nil {
			edge.Notify(graph.ReasonStateChanged)
		}
	})
}

// recompute re-runs a dependent atom instance's factory after one of
// its dependencies changed.
func (e *Ecosystem) recompute(id string) {
	inst, ok := e.instances[id]
	if !ok || inst.activeState == StateDestroyed {
		return
	}

	var oldValue any
	if inst.holder != nil {
		oldValue = inst.holder.GetState()
	}

	for i := len(inst.destructors) - 1; i >= 0; i-- {
		e.runDestructor(id, inst.destructors[i])
	}
	inst.destructors = nil

	if err := e.runFactory(inst); err != nil {
		return // runFactory already destroyed the instance on panic
	}

	if inst.activeState == StateDestroyed {
		return
	}

	newValue := inst.holder.GetState()
	if !valuesEqual(oldValue, newValue) {
		e.g.EnqueueDependents(id)
	}
}

func valuesEqual(a, b any) bool {
	return reflect.DeepEqual(a, b)
}

// Close destroys every live instance, in reverse-weight order, and
// stops all outstanding ttl timers.
func (e *Ecosystem) Close() error {
	if err := e.enter(); err != nil {
		return err
	}
	defer e.exit()

	e.timers.StopAll()

	ids := make([]string, 0, len(e.instances))
	for id, inst := range e.instances {
		if inst.activeState != StateDestroyed {
			ids = append(ids, id)
		}
	}
	orderByWeightDesc(e.g, ids)

	for _, id := range ids {
		e.destroyLocked(id, false)
	}

	e.closed = true
	return nil
}

func orderByWeightDesc(g *graph.Graph, ids []string) {
	for i := 1; i < len(ids); i++ {
		j := i
		for j > 0 && weightOf(g, ids[j-1]) < weightOf(g, ids[j]) {
			ids[j-1], ids[j] = ids[j], ids[j-1]
			j--
		}
	}
}

func weightOf(g *graph.Graph, id string) int {
	n, ok := g.Node(id)
	if !ok {
		return 0
	}
	return n.Weight
}
