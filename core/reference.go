package core

import (
	"fmt"
	"reflect"
)

// Reference is either a value fixed at wiring time or a key that is looked
// up on each Get. Deferred references let a module depend on one that is
// registered later in bootstrap.
type Reference[T any] struct {
	value    T
	key      any
	deferred bool
}

func Direct[T any](v T) Reference[T] {
	return Reference[T]{value: v}
}

// Deferred refers to the module registered under key, a *Class or an alias.
func Deferred[T any](key any) Reference[T] {
	return Reference[T]{key: key, deferred: true}
}

// Ref resolves key now if it is registered and defers it otherwise.
func Ref[T any](s *Scheduler, key any) Reference[T] {
	if v, err := lookupKey[T](s, key); err == nil {
		return Direct(v)
	}
	return Deferred[T](key)
}

func (r Reference[T]) IsDeferred() bool { return r.deferred }

func (r Reference[T]) Get(s *Scheduler) (T, error) {
	if !r.deferred {
		return r.value, nil
	}
	return lookupKey[T](s, r.key)
}

// MustGet panics where Get would fail.
func (r Reference[T]) MustGet(s *Scheduler) T {
	v, err := r.Get(s)
	if err != nil {
		panic(err)
	}
	return v
}

func lookupKey[T any](s *Scheduler, key any) (T, error) {
	var (
		zero T
		raw  any
		ok   bool
	)
	if c, isClass := key.(*Class); isClass {
		raw, ok = s.Resolve(c)
	} else {
		raw, ok = s.ResolveAlias(key)
	}
	if !ok {
		return zero, &BindingNotFoundError{Key: fmt.Sprint(key)}
	}
	v, ok := raw.(T)
	if !ok {
		return zero, &TypeMismatchError{Expected: reflect.TypeFor[T]().String(), Got: fmt.Sprintf("%T", raw)}
	}
	return v, nil
}
