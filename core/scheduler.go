package core

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"
)

// Scheduler owns the module registry, the effect table and the pending
// tracker. Everything registered with a Scheduler lives until Reset or
// Dispose. All methods are safe for concurrent use.
type Scheduler struct {
	mu       sync.Mutex
	logger   *slog.Logger
	observer Observer

	registry *registry
	effects  *effectTable
	pending  *pendingTracker
	globals  *globalSet

	// gen is bumped by Reset and Dispose; completions from an older
	// generation are dropped.
	gen      uint64
	disposed bool
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithLogger sets the logger; the default discards everything.
func WithLogger(l *slog.Logger) Option {
	return func(s *Scheduler) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithObserver installs hooks for effect and module events.
func WithObserver(o Observer) Option {
	return func(s *Scheduler) {
		if o != nil {
			s.observer = o
		}
	}
}

// NewScheduler returns an empty scheduler.
func NewScheduler(opts ...Option) *Scheduler {
	s := &Scheduler{
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		observer: nopObserver{},
	}
	for _, o := range opts {
		o(s)
	}
	s.reset()
	return s
}

// RegisterModule instantiates c once and makes it resolvable by class and by
// every alias. A failed call leaves the scheduler unchanged. The factory runs
// without the scheduler lock, so it may resolve other modules.
func (s *Scheduler) RegisterModule(c *Class, aliases ...any) (any, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkRegister(c, aliases); err != nil {
		return nil, err
	}
	var fresh any
	if _, ok := s.registry.resolve(c); !ok {
		fresh = s.instantiate(c)
		// The scheduler may have changed while unlocked.
		if err := s.checkRegister(c, aliases); err != nil {
			return nil, err
		}
	}

	inst, created := s.registry.add(c, fresh, aliases)
	if created {
		s.pending.markNeedsScheduling(c, s.effects.has(c))
		s.logger.Debug("module registered", "module", c.name, "effects", len(s.effects.entries[c]))
	}
	return inst, nil
}

func (s *Scheduler) checkRegister(c *Class, aliases []any) error {
	if s.disposed {
		return ErrDisposed
	}
	return s.registry.checkAliases(c, aliases)
}

// instantiate calls the factory of c with the lock released. The lock is
// held again on return, also when the factory panics.
func (s *Scheduler) instantiate(c *Class) any {
	s.mu.Unlock()
	defer s.mu.Lock()
	return c.factory()
}

// RegisterEffect appends an effect declaration to c. It may be called before
// or after RegisterModule, but not once c started running.
func (s *Scheduler) RegisterEffect(c *Class, name string, fn EffectFunc, priority int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.disposed {
		return ErrDisposed
	}
	if fn == nil {
		return fmt.Errorf("core: nil effect %q for %s", name, c.name)
	}
	if s.pending.hasBegun(c) {
		return &SealedClassError{Class: c.name}
	}
	s.effects.declare(c, &EffectEntry{Name: name, Priority: priority, fn: fn})
	if _, ok := s.registry.resolve(c); ok && !s.pending.tracked(c) {
		s.pending.markNeedsScheduling(c, true)
	}
	return nil
}

// Resolve returns the singleton of c without triggering its effects.
func (s *Scheduler) Resolve(c *Class) (any, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.registry.resolve(c)
}

// ResolveAlias returns the singleton registered under alias.
func (s *Scheduler) ResolveAlias(alias any) (any, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, inst, ok := s.registry.resolveAlias(alias)
	return inst, ok
}

// ClassOf returns the class registered under alias.
func (s *Scheduler) ClassOf(alias any) (*Class, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, _, ok := s.registry.resolveAlias(alias)
	return c, ok
}

// Classes lists registered classes in registration order.
func (s *Scheduler) Classes() []*Class {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*Class(nil), s.registry.order...)
}

// Effects returns the declarations of c in declaration order.
func (s *Scheduler) Effects(c *Class) []EffectEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return copyEntries(s.effects.entriesFor(c))
}

// OrderedEffects returns the declarations of c in execution order.
func (s *Scheduler) OrderedEffects(c *Class) []EffectEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return copyEntries(s.effects.ordered(c))
}

func copyEntries(in []*EffectEntry) []EffectEntry {
	out := make([]EffectEntry, len(in))
	for i, e := range in {
		out[i] = *e
	}
	return out
}

// State reports the scheduling state of c.
func (s *Scheduler) State(c *Class) PendingState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pending.state(c)
}

// SetGlobals replaces the global module set. The last call wins; globals of
// a replaced set that settle later do not touch the new set.
func (s *Scheduler) SetGlobals(classes ...*Class) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.globals = newGlobalSet(classes)
}

// Globals lists the global modules that have not settled yet.
func (s *Scheduler) Globals() []*Class {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.globals == nil {
		return nil
	}
	return s.globals.snapshot()
}

// Read returns the singleton of c, starting its effects if they were never
// scheduled. It never waits for them.
func (s *Scheduler) Read(ctx context.Context, c *Class) any {
	s.mu.Lock()
	defer s.mu.Unlock()

	inst, ok := s.registry.resolve(c)
	if ok && s.pending.isNeedsScheduling(c) {
		s.trigger(ctx, c)
	}
	return inst
}

// Use is Read with a typed result.
func Use[T any](ctx context.Context, s *Scheduler, c *Class) T {
	v, _ := s.Read(ctx, c).(T)
	return v
}

// Trigger makes sure the effects of c are running or done and returns a task
// settling with them. A nil task means there is nothing left to run.
// Concurrent calls share effect executions: an effect is never in flight
// twice at the same time.
func (s *Scheduler) Trigger(ctx context.Context, c *Class) *Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.trigger(ctx, c)
}

func (s *Scheduler) trigger(ctx context.Context, c *Class) *Task {
	if ctx == nil {
		ctx = context.Background()
	}
	if s.disposed {
		return nil
	}
	inst, ok := s.registry.resolve(c)
	if !ok || !s.pending.tracked(c) {
		return nil
	}

	premise := s.globalPhase(ctx, c)

	run, fresh := s.pending.beginRun(c, s.effects.ordered(c))
	if run == nil || run.empty() {
		s.pending.completeRun(c)
		return nil
	}
	if fresh {
		s.logger.Debug("module run started", "module", c.name, "effects", len(run.entries))
	}

	if len(premise) == 0 {
		return s.launch(ctx, c, inst)
	}

	gen := s.gen
	task := newTask()
	go func() {
		if err := joinTasks(premise).Wait(context.Background()); err != nil {
			task.finish(err)
			return
		}
		s.mu.Lock()
		if s.gen != gen {
			s.mu.Unlock()
			task.finish(ErrDisposed)
			return
		}
		inner := s.launch(ctx, c, inst)
		s.mu.Unlock()
		task.finish(inner.Wait(context.Background()))
	}()
	return task
}

// globalPhase triggers every remaining global for a non-global class and
// returns the tasks the class has to wait for.
func (s *Scheduler) globalPhase(ctx context.Context, c *Class) []*Task {
	set := s.globals
	if set == nil || set.has(c) {
		return nil
	}

	var premise []*Task
	for _, g := range set.snapshot() {
		t := s.trigger(ctx, g)
		if t == nil {
			// Registered and nothing left to run: settled.
			if _, ok := s.registry.resolve(g); ok {
				s.dropGlobal(set, g)
			}
			continue
		}
		premise = append(premise, s.afterGlobal(set, g, t))
	}
	return premise
}

func (s *Scheduler) afterGlobal(set *globalSet, g *Class, t *Task) *Task {
	out := newTask()
	go func() {
		if err := t.Wait(context.Background()); err != nil {
			out.finish(err)
			return
		}
		s.mu.Lock()
		s.dropGlobal(set, g)
		s.mu.Unlock()
		out.finish(nil)
	}()
	return out
}

func (s *Scheduler) dropGlobal(set *globalSet, g *Class) {
	set.remove(g)
	if set.empty() && s.globals == set {
		s.globals = nil
		s.logger.Info("global modules settled")
	}
}

// launch starts every entry of the current run that is not in flight and
// joins all of them. The lock must be held.
func (s *Scheduler) launch(ctx context.Context, c *Class, inst any) *Task {
	run := s.pending.current(c)
	if run == nil {
		return nil
	}

	// Entries are in priority order; each launched effect waits for the
	// previous one of this pass to begin, so bodies start in that order.
	var prev <-chan struct{}
	tasks := make([]*Task, 0, len(run.entries))
	for _, e := range run.entries {
		if e.state != InFlight {
			prev = s.start(ctx, c, inst, run, e, prev)
		}
		tasks = append(tasks, e.task)
	}

	gen := s.gen
	join := joinTasks(tasks)
	done := newTask()
	go func() {
		<-join.Done()
		err := join.Err()
		if err == nil {
			s.mu.Lock()
			if s.gen == gen && s.pending.completeRun(c) {
				s.logger.Info("module settled", "module", c.name)
				s.observer.ModuleSettled(c.name)
			}
			s.mu.Unlock()
		}
		done.finish(err)
	}()
	return done
}

// start launches e once after is closed and returns the channel closed when
// e begins. A nil after does not wait.
func (s *Scheduler) start(ctx context.Context, c *Class, inst any, run *runMap, e *runEntry, after <-chan struct{}) <-chan struct{} {
	t := newTask()
	begun := make(chan struct{})
	e.state = InFlight
	e.task = t
	e.err = nil

	name := e.effect.Name
	s.logger.Debug("effect started", "module", c.name, "effect", name, "priority", e.effect.Priority)
	s.observer.EffectStarted(c.name, name)

	gen := s.gen
	fn := e.effect.fn
	effectCtx := context.WithoutCancel(ctx)
	go func() {
		if after != nil {
			<-after
		}
		close(begun)
		began := time.Now()
		err := invoke(effectCtx, fn, inst)
		if err != nil {
			err = &EffectExecutionError{Module: c.name, Effect: name, Err: err}
		}
		s.observer.EffectFinished(c.name, name, time.Since(began), err)

		s.mu.Lock()
		if s.gen == gen {
			if err != nil {
				e.state = Failed
				e.err = err
				s.logger.Warn("effect failed", "module", c.name, "effect", name, "error", err)
			} else {
				run.remove(e)
			}
		}
		s.mu.Unlock()
		t.finish(err)
	}()
	return begun
}

func invoke(ctx context.Context, fn EffectFunc, inst any) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("panic: %v", rec)
		}
	}()
	return fn(ctx, inst)
}

// Reset drops every module, effect and global. Work already in flight runs
// to completion but no longer updates the scheduler.
func (s *Scheduler) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reset()
}

// Dispose releases everything like Reset and refuses further registrations.
func (s *Scheduler) Dispose() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reset()
	s.disposed = true
}

func (s *Scheduler) reset() {
	s.registry = newRegistry()
	s.effects = newEffectTable()
	s.pending = newPendingTracker()
	s.globals = nil
	s.gen++
}

type globalSet struct {
	members []*Class
}

func newGlobalSet(classes []*Class) *globalSet {
	set := &globalSet{}
	for _, c := range classes {
		if c != nil && !set.has(c) {
			set.members = append(set.members, c)
		}
	}
	if set.empty() {
		return nil
	}
	return set
}

func (g *globalSet) has(c *Class) bool {
	for _, m := range g.members {
		if m == c {
			return true
		}
	}
	return false
}

func (g *globalSet) remove(c *Class) {
	for i, m := range g.members {
		if m == c {
			g.members = append(g.members[:i], g.members[i+1:]...)
			return
		}
	}
}

func (g *globalSet) empty() bool { return len(g.members) == 0 }

func (g *globalSet) snapshot() []*Class {
	return append([]*Class(nil), g.members...)
}
