package core

// PendingState is the scheduling state of one module.
type PendingState int

const (
	// NotTracked: no effects, or every effect already completed.
	NotTracked PendingState = iota
	// NeedsScheduling: effects declared, no run started yet.
	NeedsScheduling
	// Running: a run map exists; some entries are not started, in flight or failed.
	Running
)

func (s PendingState) String() string {
	switch s {
	case NeedsScheduling:
		return "needs-scheduling"
	case Running:
		return "running"
	default:
		return "settled"
	}
}

// TaskState is the state of one entry in a run map.
type TaskState int

const (
	NotStarted TaskState = iota
	InFlight
	Failed
)

func (s TaskState) String() string {
	switch s {
	case InFlight:
		return "in-flight"
	case Failed:
		return "failed"
	default:
		return "not-started"
	}
}

type runEntry struct {
	effect *EffectEntry
	state  TaskState
	task   *Task
	err    error
}

// runMap keeps entries in launch order. An entry leaves the map when its
// effect succeeds.
type runMap struct {
	entries []*runEntry
}

func (m *runMap) remove(e *runEntry) {
	for i, cur := range m.entries {
		if cur == e {
			m.entries = append(m.entries[:i], m.entries[i+1:]...)
			return
		}
	}
}

func (m *runMap) empty() bool { return len(m.entries) == 0 }

// pendingTracker is keyed by class; a class has exactly one instance, so
// this is the per-instance state. Absent key means NotTracked, a nil
// *runMap means NeedsScheduling.
type pendingTracker struct {
	states map[*Class]*runMap
	begun  map[*Class]bool
}

func newPendingTracker() *pendingTracker {
	return &pendingTracker{
		states: make(map[*Class]*runMap),
		begun:  make(map[*Class]bool),
	}
}

func (p *pendingTracker) markNeedsScheduling(c *Class, hasEffects bool) {
	if !hasEffects {
		return
	}
	p.states[c] = nil
}

func (p *pendingTracker) state(c *Class) PendingState {
	run, ok := p.states[c]
	switch {
	case !ok:
		return NotTracked
	case run == nil:
		return NeedsScheduling
	default:
		return Running
	}
}

func (p *pendingTracker) isNeedsScheduling(c *Class) bool {
	return p.state(c) == NeedsScheduling
}

func (p *pendingTracker) tracked(c *Class) bool {
	_, ok := p.states[c]
	return ok
}

// beginRun moves NeedsScheduling to Running with a map seeded from ordered.
// An existing map is returned as is, so a class never has two runs.
func (p *pendingTracker) beginRun(c *Class, ordered []*EffectEntry) (run *runMap, fresh bool) {
	run, ok := p.states[c]
	if !ok {
		return nil, false
	}
	if run != nil {
		return run, false
	}
	run = &runMap{entries: make([]*runEntry, 0, len(ordered))}
	for _, e := range ordered {
		run.entries = append(run.entries, &runEntry{effect: e})
	}
	p.states[c] = run
	p.begun[c] = true
	return run, true
}

// current is the run map of c, nil unless Running.
func (p *pendingTracker) current(c *Class) *runMap {
	return p.states[c]
}

// completeRun drops tracking once every entry succeeded.
func (p *pendingTracker) completeRun(c *Class) bool {
	run, ok := p.states[c]
	if !ok || run == nil || !run.empty() {
		return false
	}
	delete(p.states, c)
	return true
}

func (p *pendingTracker) hasBegun(c *Class) bool {
	return p.begun[c]
}
