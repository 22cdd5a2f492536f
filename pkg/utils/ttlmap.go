package utils

import (
	"sync"
	"time"
)

// TTLMap is a concurrency-safe map whose entries expire after a fixed idle period.
// Reading an entry through Get or GetOrSet refreshes its expiry.
type TTLMap[K comparable, V any] struct {
	mu      sync.Mutex
	data    map[K]V
	expires map[K]time.Time
	ttl     time.Duration
	now     func() time.Time
	stop    chan struct{}
	once    sync.Once
}

// NewTTLMap creates a TTLMap and starts its background sweeper.
// Call Close to stop the sweeper.
func NewTTLMap[K comparable, V any](ttl time.Duration) *TTLMap[K, V] {
	m := &TTLMap[K, V]{
		data:    make(map[K]V),
		expires: make(map[K]time.Time),
		ttl:     ttl,
		now:     time.Now,
		stop:    make(chan struct{}),
	}

	go m.cleanup()

	return m
}

// Get returns the value for key if it exists and has not expired.
func (m *TTLMap[K, V]) Get(key K) (V, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	value, ok := m.live(key)
	if ok {
		m.expires[key] = m.now().Add(m.ttl)
	}
	return value, ok
}

// GetOrSet returns the live value for key, creating it with create when the
// key is missing or expired. The lookup and insert happen under one lock so
// concurrent callers for the same key share a single value.
func (m *TTLMap[K, V]) GetOrSet(key K, create func() V) V {
	m.mu.Lock()
	defer m.mu.Unlock()

	value, ok := m.live(key)
	if !ok {
		value = create()
		m.data[key] = value
	}
	m.expires[key] = m.now().Add(m.ttl)
	return value
}

// Set adds or replaces the value for key.
func (m *TTLMap[K, V]) Set(key K, value V) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.data[key] = value
	m.expires[key] = m.now().Add(m.ttl)
}

// Delete removes key from the map.
func (m *TTLMap[K, V]) Delete(key K) {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.data, key)
	delete(m.expires, key)
}

// Len returns the number of stored entries, including expired ones not yet swept.
func (m *TTLMap[K, V]) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.data)
}

// Close stops the background sweeper. It is safe to call more than once.
func (m *TTLMap[K, V]) Close() {
	m.once.Do(func() { close(m.stop) })
}

// live must be called with mu held.
func (m *TTLMap[K, V]) live(key K) (V, bool) {
	value, exists := m.data[key]
	if !exists || m.now().After(m.expires[key]) {
		var zero V
		return zero, false
	}
	return value, true
}

// sweep removes every expired entry.
func (m *TTLMap[K, V]) sweep() {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	for key, expires := range m.expires {
		if now.After(expires) {
			delete(m.data, key)
			delete(m.expires, key)
		}
	}
}

// cleanup periodically sweeps expired entries until Close is called.
func (m *TTLMap[K, V]) cleanup() {
	ticker := time.NewTicker(m.ttl)
	defer ticker.Stop()

	for {
		select {
		case <-m.stop:
			return
		case <-ticker.C:
			m.sweep()
		}
	}
}
