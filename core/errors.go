package core

import (
	"errors"
	"fmt"
)

var (
	// ErrDisposed is returned by registration calls on a disposed Scheduler.
	ErrDisposed = errors.New("core: scheduler disposed")

	// ErrThrottled is returned by Throttle.Do while a previous call is still running.
	ErrThrottled = errors.New("core: call dropped, previous call still running")
)

// DuplicateAliasError reports an alias that already names a different class.
type DuplicateAliasError struct {
	Alias    any
	Existing string
	Class    string
}

func (e *DuplicateAliasError) Error() string {
	return fmt.Sprintf("alias %v already used by %s, cannot register %s", e.Alias, e.Existing, e.Class)
}

// InvalidAliasError reports an alias that cannot be used as a lookup key.
type InvalidAliasError struct {
	Alias any
}

func (e *InvalidAliasError) Error() string {
	return fmt.Sprintf("alias of type %T is not comparable", e.Alias)
}

// EffectExecutionError wraps the failure of a single effect.
type EffectExecutionError struct {
	Module string
	Effect string
	Err    error
}

func (e *EffectExecutionError) Error() string {
	return fmt.Sprintf("effect %s of module %s failed: %v", e.Effect, e.Module, e.Err)
}

func (e *EffectExecutionError) Unwrap() error {
	return e.Err
}

// BindingNotFoundError represents a lookup of a class or alias that was never registered.
type BindingNotFoundError struct {
	Key string
}

func (e *BindingNotFoundError) Error() string {
	return fmt.Sprintf("no module registered for %s", e.Key)
}

// TypeMismatchError represents a type assertion failure.
type TypeMismatchError struct {
	Expected string
	Got      string
}

func (e *TypeMismatchError) Error() string {
	return fmt.Sprintf("type mismatch: expected %s, got %s", e.Expected, e.Got)
}

// SealedClassError is returned when an effect is declared for a class whose
// first run already began.
type SealedClassError struct {
	Class string
}

func (e *SealedClassError) Error() string {
	return fmt.Sprintf("effects of %s are sealed: a run already started", e.Class)
}

// DuplicateComponentError reports two app components with the same name.
type DuplicateComponentError struct {
	Name string
}

func (e *DuplicateComponentError) Error() string {
	return "duplicate component name: " + e.Name
}

// CircularDependencyError reports a cycle in the component graph.
type CircularDependencyError struct {
	Name string
}

func (e *CircularDependencyError) Error() string {
	return "cycle detected at component " + e.Name
}

// MissingDependencyError reports a component that depends on an unknown one.
type MissingDependencyError struct {
	Name      string
	DependsOn string
}

func (e *MissingDependencyError) Error() string {
	return "missing dependency: " + e.Name + " depends on " + e.DependsOn
}
