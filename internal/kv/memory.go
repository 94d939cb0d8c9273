package kv

import (
	"context"
	"sync"
	"time"

	"github.com/Zachkp/portfolio/internal/clock"
)

// Memory is an in-process Store.
type Memory struct {
	clock clock.Clock

	mu     sync.RWMutex
	values map[string]memoryValue
}

type memoryValue struct {
	value     string
	updatedAt time.Time
}

func NewMemory(opts ...Option) *Memory {
	o := newOptions(opts)
	return &Memory{clock: o.clock, values: make(map[string]memoryValue)}
}

func (m *Memory) Get(_ context.Context, key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.values[key]
	return v.value, ok, nil
}

func (m *Memory) Set(_ context.Context, key, value string) error {
	now := m.clock.Now()
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = memoryValue{value: value, updatedAt: now}
	return nil
}

func (m *Memory) Sweep(_ context.Context, cutoff time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for k, v := range m.values {
		if v.updatedAt.Before(cutoff) {
			delete(m.values, k)
			n++
		}
	}
	return n, nil
}

// Len reports the number of stored keys.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.values)
}
