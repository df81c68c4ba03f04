package events

import (
	"time"
)

// EventType represents the type of timer event
type EventType int

const (
	// EventTimerTick signals a decrement that left time on the clock
	// Trigger: scheduled tick | Consumer: renderer, warning sound
	EventTimerTick EventType = iota

	// EventTimerExpired signals the transition to zero
	// Trigger: tick on 1 -> 0, fired once per expiry | Consumer: renderer, expiry sound
	EventTimerExpired

	// EventTimerPaused signals the active flag going false with time remaining
	EventTimerPaused

	// EventTimerResumed signals the active flag going true with time remaining
	EventTimerResumed

	// EventTimerReset signals an explicit overwrite of the remaining time
	EventTimerReset

	// EventTimerClosed signals teardown; no further events follow for the timer
	EventTimerClosed
)

var typeNames = map[EventType]string{
	EventTimerTick:    "Tick",
	EventTimerExpired: "Expired",
	EventTimerPaused:  "Paused",
	EventTimerResumed: "Resumed",
	EventTimerReset:   "Reset",
	EventTimerClosed:  "Closed",
}

// String returns the event name
func (t EventType) String() string {
	if name, ok := typeNames[t]; ok {
		return name
	}
	return "Unknown"
}

// ParseEventType returns the EventType for a name produced by String
func ParseEventType(name string) (EventType, bool) {
	for t, n := range typeNames {
		if n == name {
			return t, true
		}
	}
	return 0, false
}

// TimerEvent is a committed timer transition
// Values are captured under the timer lock, so Remaining and Display always agree
type TimerEvent struct {
	Type      EventType
	TimerID   string
	Remaining int
	Display   string
	State     string
	Timestamp time.Time
}
