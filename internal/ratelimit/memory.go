package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Memory is the in-process fixed-window limiter. Windows reset lazily on the
// first request past their expiry; state is lost on process restart.
type Memory struct {
	window time.Duration
	max    int
	now    func() time.Time

	mu      sync.Mutex
	buckets map[string]*bucket
}

type bucket struct {
	count int
	reset time.Time
}

// NewMemory creates an in-process limiter admitting max requests per window.
func NewMemory(window time.Duration, max int) *Memory {
	return &Memory{
		window:  window,
		max:     max,
		now:     time.Now,
		buckets: make(map[string]*bucket),
	}
}

// WithClock overrides the clock. Test hook.
func (m *Memory) WithClock(now func() time.Time) *Memory {
	m.now = now
	return m
}

// Allow implements Limiter.
func (m *Memory) Allow(_ context.Context, key string) (Decision, error) {
	now := m.now()

	m.mu.Lock()
	defer m.mu.Unlock()

	b, ok := m.buckets[key]
	if !ok || now.After(b.reset) {
		b = &bucket{count: 1, reset: now.Add(m.window)}
		m.buckets[key] = b
		return Decision{OK: true, Remaining: m.max - 1, Reset: b.reset}, nil
	}

	if b.count >= m.max {
		return Decision{OK: false, Remaining: 0, Reset: b.reset}, nil
	}

	b.count++
	return Decision{OK: true, Remaining: m.max - b.count, Reset: b.reset}, nil
}
