package core

import "context"

// Component is a unit of application wiring that participates in the app
// lifecycle. Components register module classes, effects and shared values
// into the Scheduler; modules themselves stay lazy.
type Component interface {
	Name() string
	// DependsOn declares hard dependencies by component name.
	DependsOn() []string
	// Configure registers classes, effects and values into the scheduler.
	Configure(s *Scheduler) error
	// Start begins any long-running work or servers.
	Start(ctx context.Context, s *Scheduler) error
	// Stop gracefully stops the component.
	Stop(ctx context.Context, s *Scheduler) error
}
