package engine

import (
	"sync"
	"time"
)

// MockTimeProvider provides a controllable time source for testing
// Scheduled callbacks only run from Advance, synchronously, in deadline order
type MockTimeProvider struct {
	mu          sync.Mutex
	currentTime time.Time
	pending     []*mockHandle
	seq         uint64
}

type mockHandle struct {
	owner    *MockTimeProvider
	deadline time.Time
	seq      uint64
	fn       func()
	done     bool // fired or stopped, guarded by owner.mu
}

// Stop removes the callback if it has not run yet
func (h *mockHandle) Stop() bool {
	h.owner.mu.Lock()
	defer h.owner.mu.Unlock()

	if h.done {
		return false
	}
	h.done = true
	h.owner.remove(h)
	return true
}

// NewMockTimeProvider creates a new mock time provider with the given start time
func NewMockTimeProvider(startTime time.Time) *MockTimeProvider {
	return &MockTimeProvider{
		currentTime: startTime,
	}
}

// Now returns the current mocked time
func (m *MockTimeProvider) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.currentTime
}

// AfterFunc registers fn to run once the mocked time reaches now+d
func (m *MockTimeProvider) AfterFunc(d time.Duration, fn func()) TickHandle {
	m.mu.Lock()
	defer m.mu.Unlock()

	if d < 0 {
		d = 0
	}
	m.seq++
	h := &mockHandle{
		owner:    m,
		deadline: m.currentTime.Add(d),
		seq:      m.seq,
		fn:       fn,
	}
	m.pending = append(m.pending, h)
	return h
}

// SetTime sets the current time without running any callbacks
func (m *MockTimeProvider) SetTime(t time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.currentTime = t
}

// Advance moves time forward by d, running every callback that comes due
// Callbacks run without the lock held and may schedule further callbacks;
// those also run if they fall inside the advanced window
func (m *MockTimeProvider) Advance(d time.Duration) {
	m.mu.Lock()
	target := m.currentTime.Add(d)
	m.mu.Unlock()

	for {
		m.mu.Lock()
		next := m.earliest(target)
		if next == nil {
			if target.After(m.currentTime) {
				m.currentTime = target
			}
			m.mu.Unlock()
			return
		}
		next.done = true
		m.remove(next)
		if next.deadline.After(m.currentTime) {
			m.currentTime = next.deadline
		}
		fn := next.fn
		m.mu.Unlock()

		fn()
	}
}

// Pending returns the number of callbacks waiting to run
func (m *MockTimeProvider) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.pending)
}

// earliest returns the first due handle at or before target, ties broken by registration order
func (m *MockTimeProvider) earliest(target time.Time) *mockHandle {
	var best *mockHandle
	for _, h := range m.pending {
		if h.deadline.After(target) {
			continue
		}
		if best == nil || h.deadline.Before(best.deadline) ||
			(h.deadline.Equal(best.deadline) && h.seq < best.seq) {
			best = h
		}
	}
	return best
}

func (m *MockTimeProvider) remove(h *mockHandle) {
	for i, p := range m.pending {
		if p == h {
			m.pending = append(m.pending[:i], m.pending[i+1:]...)
			return
		}
	}
}
