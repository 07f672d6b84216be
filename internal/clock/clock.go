// internal/clock/clock.go

// Package clock abstracts time.Now so issue dates and certificate years can
// be pinned in tests.
package clock

import (
	"sync"
	"time"
)

type Clock interface {
	Now() time.Time
}

type realClock struct{}

func New() Clock {
	return realClock{}
}

func (realClock) Now() time.Time {
	return time.Now()
}

// Mock is a settable Clock, safe for concurrent use.
type Mock struct {
	mu      sync.Mutex
	current time.Time
}

func NewMock(start time.Time) *Mock {
	return &Mock{current: start}
}

func (m *Mock) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}

func (m *Mock) Set(t time.Time) {
	m.mu.Lock()
	m.current = t
	m.mu.Unlock()
}

func (m *Mock) Advance(d time.Duration) {
	m.mu.Lock()
	m.current = m.current.Add(d)
	m.mu.Unlock()
}
