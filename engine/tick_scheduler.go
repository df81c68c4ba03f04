package engine

import "time"

// TickScheduler owns the single pending tick of a countdown
// It is not safe for concurrent use; the owning Timer serializes access under its mutex
//
// Every armed handle is stamped with a generation. Cancel and re-arm bump the generation,
// so a callback already in flight when its handle was cancelled sees a stale generation
// and must be ignored by the caller (see Claim)
type TickScheduler struct {
	clock    TimeProvider
	interval time.Duration

	handle       TickHandle
	generation   uint64
	nextDeadline time.Time // Deadline of the pending tick, used for drift correction
}

// NewTickScheduler creates an idle scheduler firing every interval on clock
func NewTickScheduler(clock TimeProvider, interval time.Duration) *TickScheduler {
	return &TickScheduler{
		clock:    clock,
		interval: interval,
	}
}

// Live reports whether a tick is pending
func (s *TickScheduler) Live() bool {
	return s.handle != nil
}

// Start cancels any pending tick and arms a fresh one a full interval from now
// fn receives the generation of the handle that fired
func (s *TickScheduler) Start(fn func(generation uint64)) {
	s.Cancel()
	s.nextDeadline = s.clock.Now().Add(s.interval)
	s.arm(s.interval, fn)
}

// Next arms the tick following one that was just claimed, keeping the cadence anchored
// to the previous deadline. If the scheduler fell more than two intervals behind it
// re-bases on the current time instead of firing a burst of late ticks
func (s *TickScheduler) Next(fn func(generation uint64)) {
	s.Cancel()

	now := s.clock.Now()
	s.nextDeadline = s.nextDeadline.Add(s.interval)

	maxBehind := s.interval * 2
	if now.Sub(s.nextDeadline) > maxBehind {
		s.nextDeadline = now.Add(s.interval)
	}

	delay := s.nextDeadline.Sub(now)
	if delay < 0 {
		delay = 0
	}
	s.arm(delay, fn)
}

// Cancel stops the pending tick, if any, and invalidates its generation
func (s *TickScheduler) Cancel() {
	if s.handle != nil {
		s.handle.Stop()
		s.handle = nil
	}
	s.generation++
}

// Claim reports whether a callback carrying generation belongs to the live handle
// On success the handle is consumed: it has fired and is no longer pending
func (s *TickScheduler) Claim(generation uint64) bool {
	if s.handle == nil || generation != s.generation {
		return false
	}
	s.handle = nil
	return true
}

func (s *TickScheduler) arm(delay time.Duration, fn func(generation uint64)) {
	s.generation++
	gen := s.generation
	s.handle = s.clock.AfterFunc(delay, func() { fn(gen) })
}
