package clock

import (
	"sync"
	"time"
)

// Manual is a Clock that only moves when told to. Sleep advances the clock
// instantly and accumulates the total time slept, which lets tests assert
// the timing budget of a control cycle without waiting for it.
type Manual struct {
	mu     sync.Mutex
	now    time.Time
	slept  time.Duration
	timers []manualTimer
}

type manualTimer struct {
	deadline time.Time
	c        chan time.Time
}

// NewManual creates a Manual clock starting at the given time
func NewManual(start time.Time) *Manual {
	return &Manual{now: start}
}

func (m *Manual) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

func (m *Manual) Sleep(d time.Duration) {
	if d <= 0 {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = m.now.Add(d)
	m.slept += d
	m.fire()
}

// Advance moves the clock forward without counting it as sleep
func (m *Manual) Advance(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = m.now.Add(d)
	m.fire()
}

// After delivers the clock time once the clock was moved d past now
func (m *Manual) After(d time.Duration) <-chan time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()

	t := manualTimer{deadline: m.now.Add(d), c: make(chan time.Time, 1)}
	m.timers = append(m.timers, t)
	m.fire()

	return t.c
}

// Waiters returns the number of pending After channels
func (m *Manual) Waiters() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.timers)
}

func (m *Manual) fire() {
	pending := m.timers[:0]
	for _, t := range m.timers {
		if t.deadline.After(m.now) {
			pending = append(pending, t)
			continue
		}
		t.c <- m.now
	}
	m.timers = pending
}

// Slept returns the total duration passed to Sleep
func (m *Manual) Slept() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.slept
}
