package core

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"
)

type App struct {
	Components []Component
	Scheduler  *Scheduler
	Logger     *slog.Logger

	// Globals and Warmup hold classes or aliases, resolved after Configure.
	Globals []any
	Warmup  []any

	WarmupTimeout   time.Duration
	ShutdownTimeout time.Duration
}

func NewApp(logger *slog.Logger, s *Scheduler, comps ...Component) *App {
	return &App{
		Components:      comps,
		Scheduler:       s,
		Logger:          logger,
		WarmupTimeout:   30 * time.Second,
		ShutdownTimeout: 15 * time.Second,
	}
}

func (a *App) Run(ctx context.Context) error {
	// 1) Order components by dependencies
	order, err := topoSort(a.Components)
	if err != nil {
		return err
	}

	// 2) Configure
	for _, c := range order {
		if err := c.Configure(a.Scheduler); err != nil {
			return fmt.Errorf("configure %s: %w", c.Name(), err)
		}
	}
	globals, err := a.classes(a.Globals)
	if err != nil {
		return fmt.Errorf("globals: %w", err)
	}
	if len(globals) > 0 {
		a.Scheduler.SetGlobals(globals...)
	}

	// 3) Start in order
	started := 0
	for _, c := range order {
		a.Logger.Info("starting component", "component", c.Name())
		if err := c.Start(ctx, a.Scheduler); err != nil {
			a.stop(order[:started])
			return fmt.Errorf("start %s: %w", c.Name(), err)
		}
		started++
	}

	// 4) Kick off eager modules; failures stay retryable
	if err := a.warmup(ctx); err != nil {
		a.Logger.Warn("warmup incomplete", "error", err)
	}

	// 5) Wait for signal, then stop in reverse order
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(stop)
	select {
	case <-ctx.Done():
	case <-stop:
	}

	return a.stop(order)
}

func (a *App) warmup(ctx context.Context) error {
	classes, err := a.classes(a.Warmup)
	if err != nil {
		return err
	}
	if len(classes) == 0 {
		return nil
	}

	wctx, cancel := context.WithTimeout(ctx, a.WarmupTimeout)
	defer cancel()

	var g errgroup.Group
	for _, c := range classes {
		t := a.Scheduler.Trigger(ctx, c)
		g.Go(func() error {
			return t.Wait(wctx)
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	a.Logger.Info("warmup complete", "modules", len(classes))
	return nil
}

func (a *App) stop(order []Component) error {
	// give components time to shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.ShutdownTimeout)
	defer cancel()

	var firstErr error
	for i := len(order) - 1; i >= 0; i-- {
		c := order[i]
		a.Logger.Info("stopping component", "component", c.Name())
		if err := c.Stop(shutdownCtx, a.Scheduler); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (a *App) classes(keys []any) ([]*Class, error) {
	out := make([]*Class, 0, len(keys))
	for _, k := range keys {
		if c, ok := k.(*Class); ok {
			out = append(out, c)
			continue
		}
		c, ok := a.Scheduler.ClassOf(k)
		if !ok {
			return nil, &BindingNotFoundError{Key: fmt.Sprint(k)}
		}
		out = append(out, c)
	}
	return out, nil
}

func topoSort(comps []Component) ([]Component, error) {
	byName := map[string]Component{}
	for _, c := range comps {
		if _, dup := byName[c.Name()]; dup {
			return nil, &DuplicateComponentError{Name: c.Name()}
		}
		byName[c.Name()] = c
	}
	visited := map[string]bool{}
	temp := map[string]bool{}
	var out []Component
	var visit func(string) error

	visit = func(n string) error {
		if temp[n] {
			return &CircularDependencyError{Name: n}
		}
		if visited[n] {
			return nil
		}
		temp[n] = true
		for _, d := range byName[n].DependsOn() {
			if _, ok := byName[d]; !ok {
				return &MissingDependencyError{Name: n, DependsOn: d}
			}
			if err := visit(d); err != nil {
				return err
			}
		}
		visited[n] = true
		temp[n] = false
		out = append(out, byName[n])
		return nil
	}

	// Make iteration order stable.
	names := make([]string, 0, len(comps))
	for _, c := range comps {
		names = append(names, c.Name())
	}
	sort.Strings(names)

	for _, n := range names {
		if err := visit(n); err != nil {
			return nil, err
		}
	}
	return out, nil
}
