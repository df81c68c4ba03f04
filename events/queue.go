package events

import (
	"sync/atomic"
)

const (
	// QueueSize is the fixed capacity of the event ring buffer, must be a power of two
	QueueSize = 256

	// queueMask is the bitmask for fast modulo operations (QueueSize - 1)
	queueMask = QueueSize - 1
)

// EventQueue is a lock-free MPSC ring buffer for timer events
// Thread-Safety:
//   - Push: Lock-free CAS, multiple producers OK (timers publish from tick goroutines)
//   - Consume: Single consumer (UI frame loop)
//   - Published flags prevent reading partial writes
//
// Overflow: Oldest events overwritten when full
type EventQueue struct {
	events    [QueueSize]TimerEvent
	published [QueueSize]atomic.Bool // True = slot fully written
	head      atomic.Uint64          // Read index
	tail      atomic.Uint64          // Write index
}

// NewEventQueue creates an empty queue
func NewEventQueue() *EventQueue {
	return &EventQueue{}
}

// Push adds event using lock-free CAS with published flags pattern
// Never blocks. O(1) amortized
func (eq *EventQueue) Push(event TimerEvent) {
	for {
		currentTail := eq.tail.Load()
		nextTail := currentTail + 1

		if eq.tail.CompareAndSwap(currentTail, nextTail) {
			idx := currentTail & queueMask

			eq.events[idx] = event
			eq.published[idx].Store(true) // MUST be after write

			// Advance head if overwriting unread events
			currentHead := eq.head.Load()
			if nextTail-currentHead > QueueSize {
				eq.head.CompareAndSwap(currentHead, nextTail-QueueSize)
			}
			return
		}
	}
}

// Consume returns all pending events in FIFO order and advances head
// Stops early at a slot whose writer has not finished; the rest is returned next call
func (eq *EventQueue) Consume() []TimerEvent {
	for {
		currentHead := eq.head.Load()
		currentTail := eq.tail.Load()

		if currentTail == currentHead {
			return nil
		}

		maxAvailable := currentTail - currentHead
		if maxAvailable > QueueSize {
			maxAvailable = QueueSize
			currentHead = currentTail - QueueSize
		}

		result := make([]TimerEvent, 0, maxAvailable)
		for i := uint64(0); i < maxAvailable; i++ {
			idx := (currentHead + i) & queueMask

			if !eq.published[idx].Load() {
				break // Writer incomplete
			}

			result = append(result, eq.events[idx])
			eq.published[idx].Store(false)
		}

		newHead := currentHead + uint64(len(result))
		if eq.head.CompareAndSwap(currentHead, newHead) {
			if len(result) == 0 {
				return nil
			}
			return result
		}
	}
}

// Len returns an approximate count of unread events
func (eq *EventQueue) Len() int {
	n := eq.tail.Load() - eq.head.Load()
	if n > QueueSize {
		n = QueueSize
	}
	return int(n)
}
