package core_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skekre98/autorun/core"
)

type journal struct {
	mu      sync.Mutex
	entries []string
}

func (j *journal) add(s string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.entries = append(j.entries, s)
}

func (j *journal) list() []string {
	j.mu.Lock()
	defer j.mu.Unlock()
	return append([]string(nil), j.entries...)
}

type fakeComponent struct {
	name      string
	deps      []string
	log       *journal
	configure func(s *core.Scheduler) error
	startErr  error
}

func (f *fakeComponent) Name() string        { return f.name }
func (f *fakeComponent) DependsOn() []string { return f.deps }

func (f *fakeComponent) Configure(s *core.Scheduler) error {
	f.log.add("configure " + f.name)
	if f.configure != nil {
		return f.configure(s)
	}
	return nil
}

func (f *fakeComponent) Start(context.Context, *core.Scheduler) error {
	f.log.add("start " + f.name)
	return f.startErr
}

func (f *fakeComponent) Stop(context.Context, *core.Scheduler) error {
	f.log.add("stop " + f.name)
	return nil
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestApp_RunLifecycleOrder(t *testing.T) {
	log := &journal{}
	var warmed atomic.Int32
	session := core.NewClass("session", func() *widget { return &widget{} })

	web := &fakeComponent{name: "web", log: log}
	actuator := &fakeComponent{name: "actuator", deps: []string{"web"}, log: log}
	modules := &fakeComponent{name: "modules", log: log, configure: func(s *core.Scheduler) error {
		if err := s.RegisterEffect(session, "login", func(context.Context, any) error {
			warmed.Add(1)
			return nil
		}, 0); err != nil {
			return err
		}
		_, err := s.RegisterModule(session, "session")
		return err
	}}

	s := core.NewScheduler()
	app := core.NewApp(quietLogger(), s, actuator, web, modules)
	app.Globals = []any{"session"}
	app.Warmup = []any{session}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- app.Run(ctx) }()

	require.Eventually(t, func() bool { return warmed.Load() == 1 }, time.Second, 5*time.Millisecond)
	cancel()
	require.NoError(t, <-done)

	assert.Equal(t, []string{
		"configure web", "configure actuator", "configure modules",
		"start web", "start actuator", "start modules",
		"stop modules", "stop actuator", "stop web",
	}, log.list())
	assert.Equal(t, core.NotTracked, s.State(session))
}

func TestApp_UnknownGlobal(t *testing.T) {
	app := core.NewApp(quietLogger(), core.NewScheduler())
	app.Globals = []any{"missing"}

	err := app.Run(context.Background())
	var notFound *core.BindingNotFoundError
	assert.ErrorAs(t, err, &notFound)
}

func TestApp_StartFailureStopsStartedComponents(t *testing.T) {
	log := &journal{}
	boom := errors.New("boom")
	a := &fakeComponent{name: "a", log: log}
	b := &fakeComponent{name: "b", deps: []string{"a"}, log: log, startErr: boom}

	app := core.NewApp(quietLogger(), core.NewScheduler(), a, b)
	err := app.Run(context.Background())
	require.ErrorIs(t, err, boom)

	assert.Equal(t, []string{"configure a", "configure b", "start a", "start b", "stop a"}, log.list())
}

func TestApp_ComponentGraphErrors(t *testing.T) {
	tests := []struct {
		name  string
		comps []core.Component
		check func(t *testing.T, err error)
	}{
		{
			name: "duplicate",
			comps: []core.Component{
				&fakeComponent{name: "a", log: &journal{}},
				&fakeComponent{name: "a", log: &journal{}},
			},
			check: func(t *testing.T, err error) {
				var target *core.DuplicateComponentError
				assert.ErrorAs(t, err, &target)
			},
		},
		{
			name: "cycle",
			comps: []core.Component{
				&fakeComponent{name: "a", deps: []string{"b"}, log: &journal{}},
				&fakeComponent{name: "b", deps: []string{"a"}, log: &journal{}},
			},
			check: func(t *testing.T, err error) {
				var target *core.CircularDependencyError
				assert.ErrorAs(t, err, &target)
			},
		},
		{
			name: "missing",
			comps: []core.Component{
				&fakeComponent{name: "a", deps: []string{"nope"}, log: &journal{}},
			},
			check: func(t *testing.T, err error) {
				var target *core.MissingDependencyError
				require.ErrorAs(t, err, &target)
				assert.Equal(t, "nope", target.DependsOn)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := core.NewApp(quietLogger(), core.NewScheduler(), tt.comps...)
			tt.check(t, app.Run(context.Background()))
		})
	}
}
