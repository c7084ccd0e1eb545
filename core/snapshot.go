package core

import "sort"

type EffectStatus struct {
	Name     string `json:"name"`
	Priority int    `json:"priority"`
	State    string `json:"state"`
	Error    string `json:"error,omitempty"`
}

type ModuleStatus struct {
	Name    string         `json:"name"`
	Aliases []string       `json:"aliases,omitempty"`
	Global  bool           `json:"global"`
	State   string         `json:"state"`
	Effects []EffectStatus `json:"effects,omitempty"`
}

// Failed reports whether any effect of the module is waiting for a retry.
func (m ModuleStatus) Failed() bool {
	for _, e := range m.Effects {
		if e.State == Failed.String() {
			return true
		}
	}
	return false
}

// Snapshot describes every registered module in registration order.
func (s *Scheduler) Snapshot() []ModuleStatus {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]ModuleStatus, 0, len(s.registry.order))
	for _, c := range s.registry.order {
		aliases := s.registry.aliasesOf(c)
		sort.Strings(aliases)
		st := ModuleStatus{
			Name:    c.name,
			Aliases: aliases,
			Global:  s.globals != nil && s.globals.has(c),
			State:   s.pending.state(c).String(),
		}
		switch s.pending.state(c) {
		case NeedsScheduling:
			for _, e := range s.effects.ordered(c) {
				st.Effects = append(st.Effects, EffectStatus{Name: e.Name, Priority: e.Priority, State: NotStarted.String()})
			}
		case Running:
			for _, e := range s.pending.current(c).entries {
				es := EffectStatus{Name: e.effect.Name, Priority: e.effect.Priority, State: e.state.String()}
				if e.err != nil {
					es.Error = e.err.Error()
				}
				st.Effects = append(st.Effects, es)
			}
		}
		out = append(out, st)
	}
	return out
}
