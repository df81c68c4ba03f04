package engine

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/lixenwraith/vi-countdown/events"
	"github.com/lixenwraith/vi-countdown/status"
)

var testEpoch = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

func newMockTimer(t *testing.T, initial int, active bool, opts ...Option) (*Timer, *MockTimeProvider) {
	t.Helper()
	clock := NewMockTimeProvider(testEpoch)
	opts = append([]Option{WithTimeProvider(clock)}, opts...)
	tm := NewTimer(context.Background(), initial, active, opts...)
	t.Cleanup(tm.Close)
	return tm, clock
}

// tick advances the mock clock by n whole intervals
func tick(clock *MockTimeProvider, n int) {
	for i := 0; i < n; i++ {
		clock.Advance(time.Second)
	}
}

func TestTimerInitialState(t *testing.T) {
	tests := []struct {
		name      string
		initial   int
		active    bool
		remaining int
		display   string
		state     TimerState
		pending   int
	}{
		{"running", 90, true, 90, "01:30", StateRunning, 1},
		{"paused", 90, false, 90, "01:30", StatePaused, 0},
		{"idle active", 0, true, 0, "00:00", StateIdle, 0},
		{"idle inactive", 0, false, 0, "00:00", StateIdle, 0},
		{"negative clamps", -10, true, 0, "00:00", StateIdle, 0},
		{"hours", 3661, true, 3661, "01:01:01", StateRunning, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tm, clock := newMockTimer(t, tt.initial, tt.active)

			if got := tm.RemainingTime(); got != tt.remaining {
				t.Errorf("RemainingTime() = %d, want %d", got, tt.remaining)
			}
			if got := tm.DisplayTime(); got != tt.display {
				t.Errorf("DisplayTime() = %q, want %q", got, tt.display)
			}
			if got := tm.State(); got != tt.state {
				t.Errorf("State() = %v, want %v", got, tt.state)
			}
			if got := clock.Pending(); got != tt.pending {
				t.Errorf("Pending() = %d, want %d", got, tt.pending)
			}
		})
	}
}

func TestTimerCountsDownToZero(t *testing.T) {
	for _, initial := range []int{0, 1, 2, 5, 61} {
		tm, clock := newMockTimer(t, initial, true)

		tick(clock, initial)

		if got := tm.RemainingTime(); got != 0 {
			t.Errorf("initial=%d: RemainingTime() = %d after %d ticks, want 0", initial, got, initial)
		}
		if clock.Pending() != 0 {
			t.Errorf("initial=%d: scheduler still armed after expiry", initial)
		}
		if tm.State() != StateIdle {
			t.Errorf("initial=%d: State() = %v, want idle", initial, tm.State())
		}

		// Further time changes nothing
		tick(clock, 3)
		if got := tm.RemainingTime(); got != 0 {
			t.Errorf("initial=%d: RemainingTime() = %d after extra ticks", initial, got)
		}
		if got := tm.Stats().Ticks; got != uint64(initial) {
			t.Errorf("initial=%d: Ticks = %d, want %d", initial, got, initial)
		}
	}
}

func TestTimerDecrementsOncePerInterval(t *testing.T) {
	tm, clock := newMockTimer(t, 10, true)

	clock.Advance(999 * time.Millisecond)
	if got := tm.RemainingTime(); got != 10 {
		t.Fatalf("Decremented before a full interval: %d", got)
	}
	clock.Advance(time.Millisecond)
	if got := tm.RemainingTime(); got != 9 {
		t.Fatalf("Expected 9 after one interval, got %d", got)
	}

	clock.Advance(3500 * time.Millisecond)
	if got := tm.RemainingTime(); got != 6 {
		t.Errorf("Expected 6 after 4.5s, got %d", got)
	}
}

func TestTimerExpiryFiresOnce(t *testing.T) {
	calls := 0
	tm, clock := newMockTimer(t, 3, true, WithOnExpire(func() { calls++ }))

	tick(clock, 2)
	if calls != 0 {
		t.Fatalf("Callback fired before reaching zero (%d calls)", calls)
	}

	tick(clock, 1)
	if calls != 1 {
		t.Fatalf("Expected 1 call at zero, got %d", calls)
	}

	tick(clock, 5)
	if calls != 1 {
		t.Errorf("Expected exactly 1 call, got %d", calls)
	}
	if got := tm.Stats().Expiries; got != 1 {
		t.Errorf("Expiries = %d, want 1", got)
	}
}

func TestTimerCallbackSeesIdleState(t *testing.T) {
	var tm *Timer
	var seen Snapshot
	tm, clock := newMockTimer(t, 1, true, WithOnExpire(func() { seen = tm.Snapshot() }))

	tick(clock, 1)

	if seen.Remaining != 0 || seen.State != StateIdle || seen.Display != "00:00" {
		t.Errorf("Callback observed %+v, want idle at 00:00", seen)
	}
}

func TestTimerPauseResume(t *testing.T) {
	tm, clock := newMockTimer(t, 10, true)

	tick(clock, 4)
	if got := tm.RemainingTime(); got != 6 {
		t.Fatalf("Expected 6 after 4 ticks, got %d", got)
	}

	tm.SetActive(false)
	if tm.State() != StatePaused {
		t.Errorf("State() = %v, want paused", tm.State())
	}
	clock.Advance(time.Hour)
	if got := tm.RemainingTime(); got != 6 {
		t.Fatalf("Paused timer moved to %d", got)
	}

	tm.SetActive(true)
	if tm.State() != StateRunning {
		t.Errorf("State() = %v, want running", tm.State())
	}
	tick(clock, 1)
	if got := tm.RemainingTime(); got != 5 {
		t.Errorf("Expected 5 after resume and one tick, got %d", got)
	}
}

func TestTimerPauseMidIntervalDoesNotCatchUp(t *testing.T) {
	tm, clock := newMockTimer(t, 10, true)

	clock.Advance(900 * time.Millisecond)
	tm.SetActive(false)
	clock.Advance(5 * time.Second)
	tm.SetActive(true)

	// Resume starts a fresh interval
	clock.Advance(900 * time.Millisecond)
	if got := tm.RemainingTime(); got != 10 {
		t.Errorf("Expected 10 before a full interval after resume, got %d", got)
	}
	clock.Advance(100 * time.Millisecond)
	if got := tm.RemainingTime(); got != 9 {
		t.Errorf("Expected 9 one interval after resume, got %d", got)
	}
}

func TestTimerPauseNeverFiresCallback(t *testing.T) {
	calls := 0
	tm, clock := newMockTimer(t, 2, true, WithOnExpire(func() { calls++ }))

	tick(clock, 1)
	tm.SetActive(false)
	tick(clock, 10)

	if calls != 0 {
		t.Errorf("Callback fired while paused")
	}
	if got := tm.RemainingTime(); got != 1 {
		t.Errorf("RemainingTime() = %d, want 1", got)
	}
}

func TestTimerSetActiveSameValueKeepsCadence(t *testing.T) {
	tm, clock := newMockTimer(t, 10, true)

	clock.Advance(600 * time.Millisecond)
	tm.SetActive(true)
	clock.Advance(400 * time.Millisecond)

	if got := tm.RemainingTime(); got != 9 {
		t.Errorf("Redundant SetActive restarted the interval: remaining %d", got)
	}
}

func TestTimerResetAfterExpiryRestarts(t *testing.T) {
	calls := 0
	tm, clock := newMockTimer(t, 3, true, WithOnExpire(func() { calls++ }))

	tick(clock, 3)
	if tm.RemainingTime() != 0 || calls != 1 {
		t.Fatalf("Expected expiry, got remaining=%d calls=%d", tm.RemainingTime(), calls)
	}

	tm.Reset(20)
	if tm.State() != StateRunning {
		t.Fatalf("State() = %v after reset, want running", tm.State())
	}
	tick(clock, 1)
	if got := tm.RemainingTime(); got != 19 {
		t.Fatalf("Expected 19 one tick after reset, got %d", got)
	}

	tick(clock, 18)
	if calls != 1 {
		t.Errorf("Callback fired again before reaching zero (%d calls)", calls)
	}
	tick(clock, 1)
	if calls != 2 {
		t.Errorf("Expected second expiry, got %d calls", calls)
	}
}

func TestTimerResetSupersedesPendingTick(t *testing.T) {
	tm, clock := newMockTimer(t, 10, true)

	clock.Advance(500 * time.Millisecond)
	tm.Reset(5)

	// The tick that was due at 1s belongs to the cancelled handle
	clock.Advance(500 * time.Millisecond)
	if got := tm.RemainingTime(); got != 5 {
		t.Fatalf("Stale tick applied after reset: remaining %d", got)
	}

	clock.Advance(500 * time.Millisecond)
	if got := tm.RemainingTime(); got != 4 {
		t.Errorf("Expected 4 one interval after reset, got %d", got)
	}
	if clock.Pending() != 1 {
		t.Errorf("Expected a single pending tick, got %d", clock.Pending())
	}
}

func TestTimerResetWhilePaused(t *testing.T) {
	tm, clock := newMockTimer(t, 10, false)

	tm.Reset(30)
	if tm.State() != StatePaused {
		t.Errorf("State() = %v, want paused", tm.State())
	}
	if got := tm.DisplayTime(); got != "00:30" {
		t.Errorf("DisplayTime() = %q, want 00:30", got)
	}
	tick(clock, 5)
	if got := tm.RemainingTime(); got != 30 {
		t.Errorf("Paused timer ticked after reset: %d", got)
	}
}

func TestTimerResetToZeroDoesNotExpire(t *testing.T) {
	calls := 0
	tm, clock := newMockTimer(t, 10, true, WithOnExpire(func() { calls++ }))

	tick(clock, 2)
	tm.Reset(0)
	tick(clock, 5)

	if calls != 0 {
		t.Errorf("Reset to zero fired the expiry callback")
	}
	if tm.State() != StateIdle || clock.Pending() != 0 {
		t.Errorf("Expected idle with no pending tick, got %v with %d pending", tm.State(), clock.Pending())
	}
}

func TestTimerResetNegativeClamps(t *testing.T) {
	tm, _ := newMockTimer(t, 10, true)

	tm.Reset(-3)
	if got := tm.RemainingTime(); got != 0 {
		t.Errorf("RemainingTime() = %d, want 0", got)
	}
	if got := tm.DisplayTime(); got != "00:00" {
		t.Errorf("DisplayTime() = %q, want 00:00", got)
	}
}

func TestTimerAdjust(t *testing.T) {
	tm, clock := newMockTimer(t, 100, true)

	tick(clock, 10)
	tm.Adjust(60)
	if got := tm.RemainingTime(); got != 150 {
		t.Errorf("RemainingTime() = %d after +60, want 150", got)
	}

	tm.Adjust(-500)
	if got := tm.RemainingTime(); got != 0 {
		t.Errorf("RemainingTime() = %d after -500, want 0", got)
	}
	if tm.State() != StateIdle {
		t.Errorf("State() = %v, want idle", tm.State())
	}
	if got := tm.Stats().Resets; got != 2 {
		t.Errorf("Resets = %d, want 2", got)
	}
}

func TestTimerAdjustSaturates(t *testing.T) {
	tm, clock := newMockTimer(t, 100, true)

	tm.Adjust(math.MaxInt)
	if got := tm.RemainingTime(); got != math.MaxInt {
		t.Fatalf("RemainingTime() = %d after a huge add, want MaxInt", got)
	}
	if tm.State() != StateRunning {
		t.Errorf("State() = %v, want running", tm.State())
	}

	tick(clock, 1)
	if got := tm.RemainingTime(); got != math.MaxInt-1 {
		t.Errorf("RemainingTime() = %d after one tick, want MaxInt-1", got)
	}

	tm.Adjust(math.MinInt)
	if got := tm.RemainingTime(); got != 0 {
		t.Errorf("RemainingTime() = %d after a huge subtract, want 0", got)
	}
}

func TestAddSeconds(t *testing.T) {
	tests := []struct {
		a, b, want int
	}{
		{100, 60, 160},
		{100, -500, -400},
		{1, math.MaxInt, math.MaxInt},
		{math.MaxInt, math.MaxInt, math.MaxInt},
		{-1, math.MinInt, math.MinInt},
		{0, math.MinInt, math.MinInt},
	}

	for _, tt := range tests {
		if got := addSeconds(tt.a, tt.b); got != tt.want {
			t.Errorf("addSeconds(%d, %d) = %d, want %d", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestTimerZeroInitialNeverExpires(t *testing.T) {
	calls := 0
	tm, clock := newMockTimer(t, 0, true, WithOnExpire(func() { calls++ }))

	tick(clock, 10)
	tm.SetActive(false)
	tm.SetActive(true)
	tick(clock, 10)

	if calls != 0 {
		t.Errorf("Callback fired for a timer that never ran (%d calls)", calls)
	}
	if got := tm.Stats().Ticks; got != 0 {
		t.Errorf("Ticks = %d, want 0", got)
	}
}

func TestTimerCallbackMayReset(t *testing.T) {
	var tm *Timer
	calls := 0
	tm, clock := newMockTimer(t, 2, true, WithOnExpire(func() {
		calls++
		if calls < 3 {
			tm.Reset(2)
		}
	}))

	tick(clock, 10)

	if calls != 3 {
		t.Errorf("Expected 3 expiries through re-entrant resets, got %d", calls)
	}
	if got := tm.Stats().Resets; got != 2 {
		t.Errorf("Resets = %d, want 2", got)
	}
}

func TestTimerCallbackPanicLeavesTimerUsable(t *testing.T) {
	tm, clock := newMockTimer(t, 1, true, WithOnExpire(func() { panic("boom") }))

	tick(clock, 1)

	if got := tm.Stats().CallbackPanics; got != 1 {
		t.Errorf("CallbackPanics = %d, want 1", got)
	}
	if tm.State() != StateIdle {
		t.Errorf("State() = %v, want idle", tm.State())
	}

	tm.Reset(2)
	tick(clock, 1)
	if got := tm.RemainingTime(); got != 1 {
		t.Errorf("Timer not usable after callback panic: remaining %d", got)
	}
}

func TestTimerClose(t *testing.T) {
	calls := 0
	tm, clock := newMockTimer(t, 5, true, WithOnExpire(func() { calls++ }))

	tick(clock, 2)
	tm.Close()

	if clock.Pending() != 0 {
		t.Errorf("Close left %d pending ticks", clock.Pending())
	}
	if tm.State() != StateClosed {
		t.Errorf("State() = %v, want closed", tm.State())
	}

	tm.Reset(10)
	tm.SetActive(false)
	tm.SetActive(true)
	tick(clock, 20)

	if got := tm.RemainingTime(); got != 3 {
		t.Errorf("Closed timer changed: remaining %d", got)
	}
	if calls != 0 {
		t.Errorf("Closed timer fired callback")
	}

	tm.Close()
}

func TestTimerClosesWithContext(t *testing.T) {
	clock := NewMockTimeProvider(testEpoch)
	ctx, cancel := context.WithCancel(context.Background())
	tm := NewTimer(ctx, 5, true, WithTimeProvider(clock))

	cancel()

	deadline := time.Now().Add(2 * time.Second)
	for tm.State() != StateClosed {
		if time.Now().After(deadline) {
			t.Fatal("Timer not closed after context cancellation")
		}
		time.Sleep(time.Millisecond)
	}
	if clock.Pending() != 0 {
		t.Errorf("Context teardown left %d pending ticks", clock.Pending())
	}
}

func TestTimerAlreadyCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	clock := NewMockTimeProvider(testEpoch)
	tm := NewTimer(ctx, 5, true, WithTimeProvider(clock))

	deadline := time.Now().Add(2 * time.Second)
	for tm.State() != StateClosed {
		if time.Now().After(deadline) {
			t.Fatal("Timer built on a done context never closed")
		}
		time.Sleep(time.Millisecond)
	}
}

func TestTimerSnapshot(t *testing.T) {
	tm, clock := newMockTimer(t, 65, true, WithID("fixed-id"), WithName("exam"))

	tick(clock, 5)

	want := Snapshot{
		ID:        "fixed-id",
		Name:      "exam",
		Remaining: 60,
		Display:   "01:00",
		Active:    true,
		State:     StateRunning,
	}
	if diff := cmp.Diff(want, tm.Snapshot()); diff != "" {
		t.Errorf("Snapshot() mismatch (-want +got):\n%s", diff)
	}
}

func TestTimerGeneratesID(t *testing.T) {
	a, _ := newMockTimer(t, 1, false)
	b, _ := newMockTimer(t, 1, false)

	if a.ID() == "" || a.ID() == b.ID() {
		t.Errorf("Expected distinct generated ids, got %q and %q", a.ID(), b.ID())
	}
	if a.Name() != "timer" {
		t.Errorf("Name() = %q, want default", a.Name())
	}
}

func TestTimerPausedDuration(t *testing.T) {
	tm, clock := newMockTimer(t, 10, true)

	tick(clock, 2)
	tm.SetActive(false)
	clock.Advance(7 * time.Second)

	if got := tm.Stats().Paused; got != 7*time.Second {
		t.Errorf("Paused = %v during pause, want 7s", got)
	}

	tm.SetActive(true)
	tick(clock, 3)
	tm.SetActive(false)
	clock.Advance(2 * time.Second)
	tm.SetActive(true)

	if got := tm.Stats().Paused; got != 9*time.Second {
		t.Errorf("Paused = %v, want 9s", got)
	}
}

func TestTimerIdleIsNotPaused(t *testing.T) {
	tm, clock := newMockTimer(t, 0, false)

	clock.Advance(time.Minute)
	if got := tm.Stats().Paused; got != 0 {
		t.Errorf("Idle timer accumulated pause time %v", got)
	}
}

func TestTimerPublishesEvents(t *testing.T) {
	q := events.NewEventQueue()
	tm, clock := newMockTimer(t, 3, true, WithEventQueue(q), WithID("t1"))

	tick(clock, 3)
	tm.Reset(2)
	tm.SetActive(false)
	tm.SetActive(true)
	tm.Close()

	type entry struct {
		Type      events.EventType
		Remaining int
		Display   string
		State     string
	}
	var got []entry
	for _, ev := range q.Consume() {
		if ev.TimerID != "t1" {
			t.Errorf("Event carries timer id %q", ev.TimerID)
		}
		got = append(got, entry{ev.Type, ev.Remaining, ev.Display, ev.State})
	}

	want := []entry{
		{events.EventTimerTick, 2, "00:02", "running"},
		{events.EventTimerTick, 1, "00:01", "running"},
		{events.EventTimerExpired, 0, "00:00", "idle"},
		{events.EventTimerReset, 2, "00:02", "running"},
		{events.EventTimerPaused, 2, "00:02", "paused"},
		{events.EventTimerResumed, 2, "00:02", "running"},
		{events.EventTimerClosed, 2, "00:02", "closed"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Event stream mismatch (-want +got):\n%s", diff)
	}
}

func TestTimerPauseAtZeroPublishesNothing(t *testing.T) {
	q := events.NewEventQueue()
	tm, _ := newMockTimer(t, 0, true, WithEventQueue(q))

	tm.SetActive(false)
	tm.SetActive(true)

	if n := len(q.Consume()); n != 0 {
		t.Errorf("Expected no pause/resume events at zero, got %d", n)
	}
}

func TestTimerMetrics(t *testing.T) {
	reg := status.NewRegistry()
	tm, clock := newMockTimer(t, 5, true, WithRegistry(reg), WithName("quiz"))

	tick(clock, 2)
	tm.SetActive(false)
	clock.Advance(1500 * time.Millisecond)
	tm.Reset(4)

	p := MetricPrefix("quiz")
	if got := reg.Ints.Get(p + "ticks").Load(); got != 2 {
		t.Errorf("ticks = %d, want 2", got)
	}
	if got := reg.Ints.Get(p + "resets").Load(); got != 1 {
		t.Errorf("resets = %d, want 1", got)
	}
	if got := reg.Ints.Get(p + "remaining").Load(); got != 4 {
		t.Errorf("remaining = %d, want 4", got)
	}
	if got := reg.Strings.Get(p + "display").Load(); got != "00:04" {
		t.Errorf("display = %q, want 00:04", got)
	}
	if got := reg.Strings.Get(p + "state").Load(); got != "paused" {
		t.Errorf("state = %q, want paused", got)
	}
	if reg.Bools.Get(p + "active").Load() {
		t.Error("active = true, want false")
	}
	if got := reg.Floats.Get(p + "paused_seconds").Get(); got != 1.5 {
		t.Errorf("paused_seconds = %v, want 1.5", got)
	}
}
