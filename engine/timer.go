package engine

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/google/logger"
	"github.com/google/uuid"

	"github.com/lixenwraith/vi-countdown/events"
)

// Timer is a countdown over whole seconds
//
// State transitions:
//   - Idle/Paused/Running -> Running: active becomes true with time remaining
//   - Running -> Paused: active becomes false
//   - Running -> Idle: a tick reaches zero, the expiry callback fires once
//   - any -> Running/Paused/Idle: Reset, depending on the new value and the active flag
//   - any -> Closed: Close or cancellation of the construction context
//
// A single mutex serializes ticks, Reset, SetActive and reads, so RemainingTime and
// DisplayTime never disagree and a stale tick can never land after a Reset
type Timer struct {
	mu sync.Mutex

	id   string
	name string

	clock TimeProvider
	sched *TickScheduler

	remaining int
	display   string
	active    bool
	closed    bool

	onExpire func()
	queue    *events.EventQueue
	metrics  *timerMetrics

	// Pause bookkeeping: time spent inactive with time remaining
	pauseStart  time.Time
	totalPaused time.Duration

	stats Stats

	detach func() bool // Unregisters the context hook
}

// Stats counts what a timer has done since construction
type Stats struct {
	Ticks          uint64        // Decrements applied, including the one reaching zero
	Expiries       uint64        // Transitions to zero
	Resets         uint64        // Reset calls accepted
	CallbackPanics uint64        // Expiry callbacks that panicked
	Paused         time.Duration // Time spent paused with time remaining
}

// Snapshot is a consistent view of a timer
type Snapshot struct {
	ID        string
	Name      string
	Remaining int
	Display   string
	Active    bool
	State     TimerState
}

// NewTimer creates a countdown starting at initialTime seconds
// Negative initialTime clamps to zero. The timer is torn down when ctx is cancelled
func NewTimer(ctx context.Context, initialTime int, active bool, opts ...Option) *Timer {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if o.clock == nil {
		o.clock = NewMonotonicTimeProvider()
	}
	if o.id == "" {
		o.id = uuid.NewString()
	}

	initialTime = clampSeconds(initialTime)

	t := &Timer{
		id:        o.id,
		name:      o.name,
		clock:     o.clock,
		sched:     NewTickScheduler(o.clock, o.interval),
		remaining: initialTime,
		display:   FormatDuration(initialTime),
		active:    active,
		onExpire:  o.onExpire,
		queue:     o.queue,
		metrics:   newTimerMetrics(o.registry, o.name),
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	// A context that is already done runs Close right away, which then waits for this lock
	t.detach = context.AfterFunc(ctx, t.Close)
	t.reconcile()
	t.metrics.update(t)
	return t
}

// ID returns the timer identifier
func (t *Timer) ID() string {
	return t.id
}

// Name returns the display name
func (t *Timer) Name() string {
	return t.name
}

// RemainingTime returns the seconds left
func (t *Timer) RemainingTime() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.remaining
}

// DisplayTime returns the formatted remaining time
func (t *Timer) DisplayTime() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.display
}

// Active returns the current active flag
func (t *Timer) Active() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.active
}

// State returns the current state
func (t *Timer) State() TimerState {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.stateLocked()
}

// Snapshot returns remaining time, display and state read together
func (t *Timer) Snapshot() Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()
	return Snapshot{
		ID:        t.id,
		Name:      t.name,
		Remaining: t.remaining,
		Display:   t.display,
		Active:    t.active,
		State:     t.stateLocked(),
	}
}

// Stats returns the counters, with any ongoing pause included in Paused
func (t *Timer) Stats() Stats {
	t.mu.Lock()
	defer t.mu.Unlock()
	s := t.stats
	s.Paused = t.pausedLocked()
	return s
}

// SetActive updates the external active flag
// Going false cancels the pending tick and keeps the remaining time; going true resumes
// with a full interval before the next decrement. No-op after Close
func (t *Timer) SetActive(active bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed || t.active == active {
		return
	}
	t.active = active
	t.reconcile()

	if t.remaining > 0 {
		if active {
			t.publish(events.EventTimerResumed)
		} else {
			t.publish(events.EventTimerPaused)
		}
	}
	t.metrics.update(t)
}

// Reset overwrites the remaining time, negative values clamp to zero
// Any pending tick is cancelled before the new value is applied, so a tick racing the
// reset has no effect. No-op after Close
func (t *Timer) Reset(newTime int) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.resetLocked(newTime)
}

// Adjust resets to the current remaining time plus delta in one step, clamping at zero
// Equivalent to Reset(RemainingTime()+delta) without a tick slipping in between
func (t *Timer) Adjust(delta int) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.resetLocked(addSeconds(t.remaining, delta))
}

func (t *Timer) resetLocked(newTime int) {
	if t.closed {
		return
	}

	t.sched.Cancel()
	t.remaining = clampSeconds(newTime)
	t.display = FormatDuration(t.remaining)
	t.stats.Resets++
	t.reconcile()

	t.publish(events.EventTimerReset)
	t.metrics.update(t)
}

// Close cancels any pending tick and detaches from the construction context
// Safe to call more than once
func (t *Timer) Close() {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return
	}
	t.closed = true
	t.reconcile()
	t.publish(events.EventTimerClosed)
	t.metrics.update(t)
	detach := t.detach
	t.mu.Unlock()

	if detach != nil {
		detach()
	}
	logger.Infof("timer %s (%s) closed", t.name, t.id)
}

// onTick applies one decrement; generation identifies the handle that fired
func (t *Timer) onTick(generation uint64) {
	t.mu.Lock()
	if !t.sched.Claim(generation) {
		// Cancelled while in flight
		t.mu.Unlock()
		return
	}

	expired := false
	if t.remaining <= 1 {
		t.sched.Cancel()
		t.remaining = 0
		t.stats.Expiries++
		expired = true
	} else {
		t.remaining--
		t.sched.Next(t.onTick)
	}
	t.stats.Ticks++
	t.display = FormatDuration(t.remaining)

	if expired {
		t.publish(events.EventTimerExpired)
	} else {
		t.publish(events.EventTimerTick)
	}
	t.metrics.update(t)
	onExpire := t.onExpire
	t.mu.Unlock()

	if expired {
		logger.Infof("timer %s (%s) expired", t.name, t.id)
		t.runExpiry(onExpire)
	}
}

// runExpiry invokes the callback outside the lock; the timer is already Idle
// A panic is recovered and counted so it cannot take down the tick goroutine
func (t *Timer) runExpiry(fn func()) {
	if fn == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			// Warning level: error output is also copied to stderr, which the terminal UI owns
			logger.Warningf("timer %s (%s): expiry callback panicked: %v", t.name, t.id, r)
			t.mu.Lock()
			t.stats.CallbackPanics++
			t.mu.Unlock()
		}
	}()
	fn()
}

// reconcile re-evaluates the run condition after a mutation; caller holds the lock
func (t *Timer) reconcile() {
	if t.closed || !t.active || t.remaining <= 0 {
		t.sched.Cancel()
	} else if !t.sched.Live() {
		t.sched.Start(t.onTick)
	}
	t.trackPause()
}

// trackPause opens or closes the current pause window; caller holds the lock
func (t *Timer) trackPause() {
	paused := !t.closed && !t.active && t.remaining > 0
	switch {
	case paused && t.pauseStart.IsZero():
		t.pauseStart = t.clock.Now()
	case !paused && !t.pauseStart.IsZero():
		t.totalPaused += t.clock.Now().Sub(t.pauseStart)
		t.pauseStart = time.Time{}
	}
}

// pausedLocked returns total pause time including the open window; caller holds the lock
func (t *Timer) pausedLocked() time.Duration {
	total := t.totalPaused
	if !t.pauseStart.IsZero() {
		total += t.clock.Now().Sub(t.pauseStart)
	}
	return total
}

func (t *Timer) stateLocked() TimerState {
	return deriveState(t.remaining, t.active, t.closed)
}

// publish pushes a transition to the event queue; caller holds the lock
func (t *Timer) publish(typ events.EventType) {
	if t.queue == nil {
		return
	}
	t.queue.Push(events.TimerEvent{
		Type:      typ,
		TimerID:   t.id,
		Remaining: t.remaining,
		Display:   t.display,
		State:     t.stateLocked().String(),
		Timestamp: t.clock.Now(),
	})
}

// addSeconds adds without wrapping, saturating at the int range
func addSeconds(a, b int) int {
	sum := a + b
	switch {
	case b > 0 && sum < a:
		return math.MaxInt
	case b < 0 && sum > a:
		return math.MinInt
	}
	return sum
}

func clampSeconds(s int) int {
	if s < 0 {
		return 0
	}
	return s
}
