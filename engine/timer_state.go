package engine

// TimerState is the derived state of a countdown
type TimerState int

const (
	// StateIdle has no time remaining and no pending tick
	StateIdle TimerState = iota
	// StateRunning is active with time remaining and a pending tick
	StateRunning
	// StatePaused is inactive with time remaining and no pending tick
	StatePaused
	// StateClosed follows teardown; the timer no longer reacts to Reset or SetActive
	StateClosed
)

// String returns the state label
func (s TimerState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StatePaused:
		return "paused"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// deriveState maps the raw fields onto a TimerState
func deriveState(remaining int, active, closed bool) TimerState {
	switch {
	case closed:
		return StateClosed
	case remaining <= 0:
		return StateIdle
	case active:
		return StateRunning
	default:
		return StatePaused
	}
}
