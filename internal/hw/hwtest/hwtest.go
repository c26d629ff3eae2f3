// Package hwtest provides recording fakes of the hardware capabilities
package hwtest

import (
	"errors"
	"sync"
)

// ErrNoReading is returned by ProximitySequence once all readings were served
var ErrNoReading = errors.New("no proximity reading")

// Actuator records every commanded position
type Actuator struct {
	mu        sync.Mutex
	positions []int
}

func (a *Actuator) Command(position int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.positions = append(a.positions, position)
}

// Positions returns a copy of the commanded positions in order
func (a *Actuator) Positions() []int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]int(nil), a.positions...)
}

// Last returns the last commanded position and false if none was commanded
func (a *Actuator) Last() (int, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if len(a.positions) == 0 {
		return 0, false
	}
	return a.positions[len(a.positions)-1], true
}

// Max returns the largest commanded position
func (a *Actuator) Max() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	var m int
	for _, p := range a.positions {
		m = max(m, p)
	}
	return m
}

// ProximitySequence serves a fixed sequence of readings, then fails
type ProximitySequence struct {
	mu       sync.Mutex
	Readings []int
	next     int
}

func (p *ProximitySequence) ReadProximity() (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.next >= len(p.Readings) {
		return 0, ErrNoReading
	}
	v := p.Readings[p.next]
	p.next++
	return v, nil
}
