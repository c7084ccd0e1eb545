package core

import (
	"context"
	"fmt"
	"reflect"
	"runtime"
	"sort"
	"strings"
)

// EffectFunc is an auto-run method. It receives the module singleton as instance.
type EffectFunc func(ctx context.Context, instance any) error

// EffectEntry is one declared effect. Every declaration is its own entry,
// so declaring the same function twice makes it run twice.
type EffectEntry struct {
	Name     string
	Priority int

	fn EffectFunc
}

type effectTable struct {
	entries map[*Class][]*EffectEntry
}

func newEffectTable() *effectTable {
	return &effectTable{entries: make(map[*Class][]*EffectEntry)}
}

func (t *effectTable) declare(c *Class, e *EffectEntry) {
	t.entries[c] = append(t.entries[c], e)
}

func (t *effectTable) has(c *Class) bool {
	return len(t.entries[c]) > 0
}

// entriesFor returns the declarations in declaration order.
func (t *effectTable) entriesFor(c *Class) []*EffectEntry {
	return append([]*EffectEntry(nil), t.entries[c]...)
}

// ordered sorts by descending priority; equal priorities keep declaration order.
func (t *effectTable) ordered(c *Class) []*EffectEntry {
	out := t.entriesFor(c)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Priority > out[j].Priority
	})
	return out
}

type effectOptions struct {
	name     string
	priority int
}

// EffectOption tunes a typed effect declaration.
type EffectOption func(*effectOptions)

// WithPriority sets the priority; higher runs first. The default is 0.
func WithPriority(p int) EffectOption {
	return func(o *effectOptions) { o.priority = p }
}

// WithName overrides the name derived from the method symbol.
func WithName(name string) EffectOption {
	return func(o *effectOptions) { o.name = name }
}

// Auto declares method as an auto-run effect of c. Pass a method expression:
//
//	core.Auto(s, CatalogClass, (*Catalog).Load, core.WithPriority(5))
func Auto[T any](s *Scheduler, c *Class, method func(T, context.Context) error, opts ...EffectOption) error {
	if method == nil {
		return fmt.Errorf("core: nil effect for %s", c.name)
	}
	if want := reflect.TypeFor[T](); c.typ != want {
		return &TypeMismatchError{Expected: c.typ.String(), Got: want.String()}
	}

	o := effectOptions{name: funcName(method)}
	for _, opt := range opts {
		opt(&o)
	}
	fn := func(ctx context.Context, instance any) error {
		return method(instance.(T), ctx)
	}
	return s.RegisterEffect(c, o.name, fn, o.priority)
}

// funcName turns "github.com/x/y/pkg.(*Catalog).Load-fm" into "(*Catalog).Load".
func funcName(fn any) string {
	f := runtime.FuncForPC(reflect.ValueOf(fn).Pointer())
	if f == nil {
		return "effect"
	}
	name := f.Name()
	if i := strings.LastIndex(name, "/"); i >= 0 {
		name = name[i+1:]
	}
	if i := strings.Index(name, "."); i >= 0 {
		name = name[i+1:]
	}
	return strings.TrimSuffix(name, "-fm")
}
