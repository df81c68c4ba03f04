package engine

import (
	"sync/atomic"

	"github.com/lixenwraith/vi-countdown/status"
)

// timerMetrics caches registry pointers so the tick path never touches the registry maps
type timerMetrics struct {
	ticks     *atomic.Int64
	expiries  *atomic.Int64
	resets    *atomic.Int64
	remaining *atomic.Int64
	active    *atomic.Bool
	display   *status.AtomicString
	state     *status.AtomicString
	paused    *status.AtomicFloat
}

// MetricPrefix returns the registry key prefix used for a timer name
func MetricPrefix(name string) string {
	return "timer." + name + "."
}

func newTimerMetrics(reg *status.Registry, name string) *timerMetrics {
	if reg == nil {
		return nil
	}
	p := MetricPrefix(name)
	return &timerMetrics{
		ticks:     reg.Ints.Get(p + "ticks"),
		expiries:  reg.Ints.Get(p + "expiries"),
		resets:    reg.Ints.Get(p + "resets"),
		remaining: reg.Ints.Get(p + "remaining"),
		active:    reg.Bools.Get(p + "active"),
		display:   reg.Strings.Get(p + "display"),
		state:     reg.Strings.Get(p + "state"),
		paused:    reg.Floats.Get(p + "paused_seconds"),
	}
}

// update copies the timer fields; caller holds the timer lock
func (m *timerMetrics) update(t *Timer) {
	if m == nil {
		return
	}
	m.ticks.Store(int64(t.stats.Ticks))
	m.expiries.Store(int64(t.stats.Expiries))
	m.resets.Store(int64(t.stats.Resets))
	m.remaining.Store(int64(t.remaining))
	m.active.Store(t.active)
	m.display.Store(t.display)
	m.state.Store(t.stateLocked().String())
	m.paused.Set(t.pausedLocked().Seconds())
}
