package hw

import (
	"time"

	"github.com/roman-kulish/rocket-flight-control/internal/clock"
)

// WithStep sets the increment of a sweep and the delay after each step
func WithStep(step int, delay time.Duration) func(s *Sweeper) {
	return func(s *Sweeper) {
		if step > 0 {
			s.step = step
		}
		s.stepDelay = delay
	}
}

// WithRange limits the commanded positions to [min, max]
func WithRange(min, max int) func(s *Sweeper) {
	return func(s *Sweeper) {
		s.min = min
		s.max = max
	}
}

// WithCommandObserver registers a function called for every issued command
func WithCommandObserver(fn func(Command)) func(s *Sweeper) {
	return func(s *Sweeper) {
		s.observe = fn
	}
}

// Sweeper drives an open-loop actuator and keeps the last commanded position.
// A sweep moves the actuator in fixed increments with a fixed delay after
// each step, so the time a sweep takes is known in advance.
type Sweeper struct {
	target   Target
	actuator Actuator
	clock    clock.Clock

	min       int
	max       int
	step      int
	stepDelay time.Duration

	position int
	observe  func(Command)
}

// NewSweeper creates a Sweeper. The actuator is assumed to be at position 0.
func NewSweeper(target Target, actuator Actuator, c clock.Clock, options ...func(s *Sweeper)) *Sweeper {
	s := Sweeper{
		target:   target,
		actuator: actuator,
		clock:    c,
		max:      AirbrakeMax,
		step:     1,
	}

	for _, option := range options {
		option(&s)
	}

	return &s
}

// Position returns the last commanded position
func (s *Sweeper) Position() int {
	return s.position
}

// Target returns the actuator this sweeper drives
func (s *Sweeper) Target() Target {
	return s.target
}

// Clamp limits a position to the range of the actuator
func (s *Sweeper) Clamp(position int) int {
	return min(max(position, s.min), s.max)
}

// Set commands the position in a single step and returns the clamped value
func (s *Sweeper) Set(position int) int {
	position = s.Clamp(position)
	s.command(position)
	return position
}

// MoveTo sweeps from the current position to the requested one and returns
// the clamped final position. Sweeping to the current position re-issues the
// command once without waiting.
func (s *Sweeper) MoveTo(position int) int {
	position = s.Clamp(position)

	if position == s.position {
		s.command(position)
		return position
	}

	for s.position != position {
		next := s.position
		if position > s.position {
			next = min(s.position+s.step, position)
		} else {
			next = max(s.position-s.step, position)
		}

		s.command(next)
		s.clock.Sleep(s.stepDelay)
	}

	return position
}

// SweepDuration returns how long MoveTo(position) would block
func (s *Sweeper) SweepDuration(position int) time.Duration {
	travel := s.Clamp(position) - s.position
	if travel < 0 {
		travel = -travel
	}

	steps := (travel + s.step - 1) / s.step
	return time.Duration(steps) * s.stepDelay
}

func (s *Sweeper) command(position int) {
	s.actuator.Command(position)
	s.position = position

	if s.observe != nil {
		s.observe(Command{Target: s.target, Position: position})
	}
}
