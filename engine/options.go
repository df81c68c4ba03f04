package engine

import (
	"time"

	"github.com/lixenwraith/vi-countdown/events"
	"github.com/lixenwraith/vi-countdown/status"
)

// DefaultTickInterval is the countdown cadence: one decrement per second
const DefaultTickInterval = time.Second

// Option configures a Timer at construction
type Option func(*timerOptions)

type timerOptions struct {
	clock    TimeProvider
	interval time.Duration
	onExpire func()
	queue    *events.EventQueue
	registry *status.Registry
	id       string
	name     string
}

func defaultOptions() timerOptions {
	return timerOptions{
		interval: DefaultTickInterval,
		name:     "timer",
	}
}

// WithTimeProvider replaces the real clock, typically with a MockTimeProvider in tests
func WithTimeProvider(clock TimeProvider) Option {
	return func(o *timerOptions) {
		if clock != nil {
			o.clock = clock
		}
	}
}

// WithTickInterval overrides the cadence; non-positive values keep the default
func WithTickInterval(d time.Duration) Option {
	return func(o *timerOptions) {
		if d > 0 {
			o.interval = d
		}
	}
}

// WithOnExpire registers the callback run once per transition to zero
func WithOnExpire(fn func()) Option {
	return func(o *timerOptions) {
		o.onExpire = fn
	}
}

// WithEventQueue publishes every committed transition to q
func WithEventQueue(q *events.EventQueue) Option {
	return func(o *timerOptions) {
		o.queue = q
	}
}

// WithRegistry mirrors timer state into reg under "timer.<name>."
func WithRegistry(reg *status.Registry) Option {
	return func(o *timerOptions) {
		o.registry = reg
	}
}

// WithID fixes the timer id instead of generating one
func WithID(id string) Option {
	return func(o *timerOptions) {
		if id != "" {
			o.id = id
		}
	}
}

// WithName sets the display name, also used as the metric prefix
func WithName(name string) Option {
	return func(o *timerOptions) {
		if name != "" {
			o.name = name
		}
	}
}
