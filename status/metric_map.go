package status

import (
	"slices"
	"strings"
	"sync"
)

// MetricMap holds named metrics of one kind
// Timers resolve their pointers once at construction and write through them without locking;
// the mutex only guards the key set
type MetricMap[T any] struct {
	mu    sync.RWMutex
	items map[string]*T
}

type metricEntry[T any] struct {
	key string
	ptr *T
}

// NewMetricMap creates an empty MetricMap
func NewMetricMap[T any]() *MetricMap[T] {
	return &MetricMap[T]{items: make(map[string]*T)}
}

// Get returns the pointer registered under key, registering a zero value on first use
func (m *MetricMap[T]) Get(key string) *T {
	m.mu.RLock()
	ptr, ok := m.items[key]
	m.mu.RUnlock()
	if ok {
		return ptr
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if ptr, ok = m.items[key]; !ok {
		ptr = new(T)
		m.items[key] = ptr
	}
	return ptr
}

// Has reports whether key is registered
func (m *MetricMap[T]) Has(key string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.items[key]
	return ok
}

// Range calls fn for every metric in key order
// fn runs on a snapshot, so it may call Get without deadlocking
func (m *MetricMap[T]) Range(fn func(key string, ptr *T)) {
	m.mu.RLock()
	entries := make([]metricEntry[T], 0, len(m.items))
	for k, p := range m.items {
		entries = append(entries, metricEntry[T]{key: k, ptr: p})
	}
	m.mu.RUnlock()

	slices.SortFunc(entries, func(a, b metricEntry[T]) int { return strings.Compare(a.key, b.key) })
	for _, e := range entries {
		fn(e.key, e.ptr)
	}
}

// Count returns the number of registered metrics
func (m *MetricMap[T]) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.items)
}
