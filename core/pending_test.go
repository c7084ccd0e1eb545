package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPendingTracker(t *testing.T) {
	c := NewClass("m", func() int { return 1 })
	first := &EffectEntry{Name: "first"}
	second := &EffectEntry{Name: "second"}

	p := newPendingTracker()
	assert.Equal(t, NotTracked, p.state(c))

	p.markNeedsScheduling(c, false)
	assert.Equal(t, NotTracked, p.state(c), "classes without effects are never tracked")

	p.markNeedsScheduling(c, true)
	assert.True(t, p.isNeedsScheduling(c))
	assert.False(t, p.hasBegun(c))

	run, fresh := p.beginRun(c, []*EffectEntry{first, second})
	require.NotNil(t, run)
	assert.True(t, fresh)
	assert.Equal(t, Running, p.state(c))
	assert.True(t, p.hasBegun(c))
	require.Len(t, run.entries, 2)
	assert.Equal(t, NotStarted, run.entries[0].state)

	again, fresh := p.beginRun(c, []*EffectEntry{first})
	assert.False(t, fresh)
	assert.Same(t, run, again, "a running class reuses its run map")
	assert.Len(t, again.entries, 2)

	assert.False(t, p.completeRun(c), "entries left")
	run.remove(run.entries[0])
	run.remove(run.entries[0])
	assert.True(t, p.completeRun(c))
	assert.Equal(t, NotTracked, p.state(c))
	assert.True(t, p.hasBegun(c))
}

func TestPendingTracker_BeginRunUntracked(t *testing.T) {
	c := NewClass("m", func() int { return 1 })
	p := newPendingTracker()

	run, fresh := p.beginRun(c, []*EffectEntry{{Name: "x"}})
	assert.Nil(t, run)
	assert.False(t, fresh)
}

func TestEffectTableOrderIsStable(t *testing.T) {
	c := NewClass("m", func() int { return 1 })
	tbl := newEffectTable()
	for _, e := range []struct {
		name     string
		priority int
	}{{"a", 0}, {"b", 5}, {"c", 0}, {"d", -1}, {"e", 5}} {
		tbl.declare(c, &EffectEntry{Name: e.name, Priority: e.priority})
	}

	var names []string
	for _, e := range tbl.ordered(c) {
		names = append(names, e.Name)
	}
	assert.Equal(t, []string{"b", "e", "a", "c", "d"}, names)

	declared := tbl.entriesFor(c)
	assert.Equal(t, "a", declared[0].Name)
}

func TestStateStrings(t *testing.T) {
	assert.Equal(t, "settled", NotTracked.String())
	assert.Equal(t, "needs-scheduling", NeedsScheduling.String())
	assert.Equal(t, "running", Running.String())
	assert.Equal(t, "not-started", NotStarted.String())
	assert.Equal(t, "in-flight", InFlight.String())
	assert.Equal(t, "failed", Failed.String())
}
