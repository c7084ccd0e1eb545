package core

import (
	"fmt"
	"reflect"
)

// registry holds one singleton per class, plus alias keys pointing at classes.
// All methods expect the owning Scheduler's lock to be held.
type registry struct {
	instances map[*Class]any
	aliases   map[any]*Class
	order     []*Class
}

func newRegistry() *registry {
	return &registry{
		instances: make(map[*Class]any),
		aliases:   make(map[any]*Class),
	}
}

// checkAliases validates aliases for c without mutating anything.
func (r *registry) checkAliases(c *Class, aliases []any) error {
	for _, a := range aliases {
		if a == nil || !reflect.TypeOf(a).Comparable() {
			return &InvalidAliasError{Alias: a}
		}
		if owner, ok := r.aliases[a]; ok && owner != c {
			return &DuplicateAliasError{Alias: a, Existing: owner.name, Class: c.name}
		}
	}
	return nil
}

// add stores fresh as the singleton of c unless one already exists, in which
// case fresh is dropped. Aliases must have been checked.
func (r *registry) add(c *Class, fresh any, aliases []any) (inst any, created bool) {
	inst, ok := r.instances[c]
	if !ok {
		inst = fresh
		r.instances[c] = inst
		r.order = append(r.order, c)
		created = true
	}
	for _, a := range aliases {
		r.aliases[a] = c
	}
	return inst, created
}

func (r *registry) resolve(c *Class) (any, bool) {
	inst, ok := r.instances[c]
	return inst, ok
}

func (r *registry) resolveAlias(alias any) (*Class, any, bool) {
	if alias == nil || !reflect.TypeOf(alias).Comparable() {
		return nil, nil, false
	}
	c, ok := r.aliases[alias]
	if !ok {
		return nil, nil, false
	}
	return c, r.instances[c], true
}

func (r *registry) aliasesOf(c *Class) []string {
	var out []string
	for a, owner := range r.aliases {
		if owner == c {
			out = append(out, fmt.Sprint(a))
		}
	}
	return out
}

// Resolve returns the singleton of c as a T.
func Resolve[T any](s *Scheduler, c *Class) (T, bool) {
	var zero T
	inst, ok := s.Resolve(c)
	if !ok {
		return zero, false
	}
	v, ok := inst.(T)
	return v, ok
}

// ResolveAlias returns the singleton registered under alias as a T.
func ResolveAlias[T any](s *Scheduler, alias any) (T, bool) {
	var zero T
	inst, ok := s.ResolveAlias(alias)
	if !ok {
		return zero, false
	}
	v, ok := inst.(T)
	return v, ok
}

// TypeKey is an alias keyed by a static type, for values shared through the
// scheduler without a dedicated class.
type TypeKey[T any] struct{}

// Put registers a pre-built value under TypeKey[T].
func Put[T any](s *Scheduler, v T) error {
	name := reflect.TypeFor[T]().String()
	_, err := s.RegisterModule(NewClass(name, func() T { return v }), TypeKey[T]{})
	return err
}

// Lookup fetches the value stored by Put.
func Lookup[T any](s *Scheduler) (T, bool) {
	return ResolveAlias[T](s, TypeKey[T]{})
}

// Get is Lookup for wiring code: a missing value is a programming error.
func Get[T any](s *Scheduler) T {
	raw, ok := s.ResolveAlias(TypeKey[T]{})
	if !ok {
		panic(&BindingNotFoundError{Key: reflect.TypeFor[T]().String()})
	}
	v, ok := raw.(T)
	if !ok {
		panic(&TypeMismatchError{Expected: reflect.TypeFor[T]().String(), Got: fmt.Sprintf("%T", raw)})
	}
	return v
}
