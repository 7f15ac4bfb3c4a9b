package ecosystem

import "fmt"

// InvalidParamsError is raised when a template that requires params is
// resolved with none supplied.
type InvalidParamsError struct {
	TemplateKey string
}

func (e *InvalidParamsError) Error() string {
	return fmt.Sprintf("ecosystem: template %q requires params, none supplied", e.TemplateKey)
}

// InjectionOutOfScopeError is raised when an injection primitive
// (Get, Store, Effect, ...) is called outside an active factory run.
type InjectionOutOfScopeError struct {
	Primitive string
}

func (e *InjectionOutOfScopeError) Error() string {
	return fmt.Sprintf("ecosystem: %s called outside an active factory run", e.Primitive)
}

// InstanceDestroyedError is raised by any operation attempted against
// a destroyed instance.
type InstanceDestroyedError struct {
	InstanceID string
}

func (e *InstanceDestroyedError) Error() string {
	return fmt.Sprintf("ecosystem: instance %q is destroyed", e.InstanceID)
}

// CyclicDependencyError is raised when a factory transitively reads
// an atom that is itself waiting on the factory's own initial run.
type CyclicDependencyError struct {
	TemplateKey string
	Path        []string
}

func (e *CyclicDependencyError) Error() string {
	return fmt.Sprintf("ecosystem: cyclic dependency resolving %q: %v", e.TemplateKey, e.Path)
}

// FactoryThrewError wraps a panic recovered from a template factory.
// The instance transitions directly to Destroyed and this error is
// rethrown to the original GetNode caller.
type FactoryThrewError struct {
	TemplateKey string
	Cause       any
}

func (e *FactoryThrewError) Error() string {
	return fmt.Sprintf("ecosystem: factory for %q panicked: %v", e.TemplateKey, e.Cause)
}

// Unwrap exposes Cause for errors.As/errors.Is when it is itself an
// error, which lets a caller walk through a nested construction
// failure (e.g. a CyclicDependencyError raised by a dependency's own
// factory) without inspecting Cause directly.
func (e *FactoryThrewError) Unwrap() error {
	err, _ := e.Cause.(error)
	return err
}

// ListenerThrewError records a panic recovered from a subscriber
// listener. It is never returned to a caller; it is only logged and
// appended to the event log so a flush can complete regardless.
type ListenerThrewError struct {
	InstanceID string
	Cause      any
}

func (e *ListenerThrewError) Error() string {
	return fmt.Sprintf("ecosystem: listener on %q panicked: %v", e.InstanceID, e.Cause)
}

// PromiseRejectedError records an async factory promise that resolved
// with an error. It is surfaced on the next dynamic read of the
// instance, via Instance.PromiseError.
type PromiseRejectedError struct {
	InstanceID string
	Cause      error
}

func (e *PromiseRejectedError) Error() string {
	return fmt.Sprintf("ecosystem: promise for %q rejected: %v", e.InstanceID, e.Cause)
}

func (e *PromiseRejectedError) Unwrap() error { return e.Cause }

// NotReadyError is raised when a factory's Injection.Get reads a
// dependency that is Stale (an unresolved promise is attached). It
// carries the pending promise so a caller that recovers it can itself
// re-attach the same promise and stay Stale rather than erroring.
type NotReadyError struct {
	InstanceID string
	Promise    <-chan PromiseResult
}

func (e *NotReadyError) Error() string {
	return fmt.Sprintf("ecosystem: %q is not ready (pending promise)", e.InstanceID)
}

// ConcurrentAccessError is raised when a second call enters the
// Ecosystem's public API while another call is already active, from
// this or another goroutine. The engine's mutex would otherwise turn
// this into a silent deadlock; this surfaces it as a caller bug.
type ConcurrentAccessError struct{}

func (e *ConcurrentAccessError) Error() string {
	return "ecosystem: concurrent or reentrant access to a single Ecosystem detected"
}

// DuplicateTemplateError is raised when a template is resolved (by
// GetNode, or by Injection.Get/GetInstance inside a factory) under a
// key first seen with a different factory identity. Use
// Ecosystem.Overrides to replace a template deliberately.
type DuplicateTemplateError struct {
	TemplateKey string
}

func (e *DuplicateTemplateError) Error() string {
	return fmt.Sprintf("ecosystem: template key %q already registered with a different factory", e.TemplateKey)
}
