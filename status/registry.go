package status

import (
	"fmt"
	"strconv"
	"sync/atomic"
)

// Registry is the central metrics facade
// Timers cache pointers at construction; tick paths write directly to atomics
type Registry struct {
	Bools   *MetricMap[atomic.Bool]
	Ints    *MetricMap[atomic.Int64]
	Floats  *MetricMap[AtomicFloat]
	Strings *MetricMap[AtomicString]
}

// NewRegistry creates an initialized Registry
func NewRegistry() *Registry {
	return &Registry{
		Bools:   NewMetricMap[atomic.Bool](),
		Ints:    NewMetricMap[atomic.Int64](),
		Floats:  NewMetricMap[AtomicFloat](),
		Strings: NewMetricMap[AtomicString](),
	}
}

// TotalCount returns total metrics across all types
func (r *Registry) TotalCount() int {
	return r.Bools.Count() + r.Ints.Count() + r.Floats.Count() + r.Strings.Count()
}

// Dump renders every metric as "key=value", grouped by kind and sorted by key within a kind
func (r *Registry) Dump() []string {
	lines := make([]string, 0, r.TotalCount())
	r.Bools.Range(func(key string, v *atomic.Bool) {
		lines = append(lines, key+"="+strconv.FormatBool(v.Load()))
	})
	r.Ints.Range(func(key string, v *atomic.Int64) {
		lines = append(lines, key+"="+strconv.FormatInt(v.Load(), 10))
	})
	r.Floats.Range(func(key string, v *AtomicFloat) {
		lines = append(lines, fmt.Sprintf("%s=%.2f", key, v.Get()))
	})
	r.Strings.Range(func(key string, v *AtomicString) {
		lines = append(lines, key+"="+v.Load())
	})
	return lines
}
