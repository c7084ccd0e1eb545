package core

import "time"

// Observer receives scheduler events. EffectStarted is called while the
// scheduler lock is held, in launch order, so implementations must not call
// back into the Scheduler.
type Observer interface {
	EffectStarted(module, effect string)
	EffectFinished(module, effect string, elapsed time.Duration, err error)
	ModuleSettled(module string)
}

type nopObserver struct{}

func (nopObserver) EffectStarted(string, string)                          {}
func (nopObserver) EffectFinished(string, string, time.Duration, error) {}
func (nopObserver) ModuleSettled(string)                                  {}
