package engine

import "time"

// TickHandle is a pending one-shot callback that can be cancelled
// Stop returns false if the callback already ran or was already stopped
type TickHandle interface {
	Stop() bool
}

// TimeProvider supplies the current time and one-shot scheduling
// Production code uses MonotonicTimeProvider; tests use MockTimeProvider
type TimeProvider interface {
	Now() time.Time
	AfterFunc(d time.Duration, fn func()) TickHandle
}

// MonotonicTimeProvider provides the real system time with monotonic clock readings
type MonotonicTimeProvider struct{}

// NewMonotonicTimeProvider creates a new monotonic time provider
func NewMonotonicTimeProvider() *MonotonicTimeProvider {
	return &MonotonicTimeProvider{}
}

// Now returns the current time with monotonic clock reading
func (p *MonotonicTimeProvider) Now() time.Time {
	return time.Now()
}

// AfterFunc runs fn on its own goroutine once d has elapsed
func (p *MonotonicTimeProvider) AfterFunc(d time.Duration, fn func()) TickHandle {
	return time.AfterFunc(d, fn)
}
