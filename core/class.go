package core

import (
	"fmt"
	"reflect"
)

// Class identifies a module type. Two classes are the same class only if they
// are the same pointer; the name is for logs and error messages.
type Class struct {
	name    string
	typ     reflect.Type
	factory func() any
}

// NewClass declares a module class whose singleton is built by factory.
// The factory runs at most once per Scheduler, on first registration.
func NewClass[T any](name string, factory func() T) *Class {
	if factory == nil {
		panic(fmt.Errorf("core: nil factory for class %q", name))
	}
	return &Class{
		name:    name,
		typ:     reflect.TypeFor[T](),
		factory: func() any { return factory() },
	}
}

func (c *Class) Name() string { return c.name }

// Type is the static type produced by the class factory.
func (c *Class) Type() reflect.Type { return c.typ }

func (c *Class) String() string { return c.name }
