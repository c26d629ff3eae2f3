package clock

import (
	"errors"
	"time"
)

// ErrAlreadyLaunched is returned when the launch time is set a second time
var ErrAlreadyLaunched = errors.New("launch time already set")

// Clock is a monotonic time source with a blocking, non-cancellable wait.
// Every delay in the control loop goes through Sleep, and every bounded wait
// through After, so it can be replaced by a manual clock in tests.
type Clock interface {
	Now() time.Time
	Sleep(d time.Duration)
	After(d time.Duration) <-chan time.Time
}

// System is the wall clock of the flight computer
type System struct{}

func (System) Now() time.Time {
	return time.Now()
}

func (System) Sleep(d time.Duration) {
	if d > 0 {
		time.Sleep(d)
	}
}

func (System) After(d time.Duration) <-chan time.Time {
	return time.After(d)
}

// FlightClock measures the time elapsed since launch.
// The launch time is set exactly once, at launch detection.
type FlightClock struct {
	clock      Clock
	launchTime time.Time
	launched   bool
}

// NewFlightClock creates a FlightClock on top of the given time source
func NewFlightClock(c Clock) *FlightClock {
	return &FlightClock{clock: c}
}

// MarkLaunch records the launch time. It fails if the launch was already marked.
func (f *FlightClock) MarkLaunch(t time.Time) error {
	if f.launched {
		return ErrAlreadyLaunched
	}

	f.launchTime = t
	f.launched = true
	return nil
}

// Launched reports whether the launch time has been set
func (f *FlightClock) Launched() bool {
	return f.launched
}

// LaunchTime returns the recorded launch time, zero before launch
func (f *FlightClock) LaunchTime() time.Time {
	return f.launchTime
}

// Elapsed returns the time since launch, zero before launch
func (f *FlightClock) Elapsed() time.Duration {
	return f.ElapsedAt(f.clock.Now())
}

// ElapsedAt returns the flight time at t, zero before launch
func (f *FlightClock) ElapsedAt(t time.Time) time.Duration {
	if !f.launched {
		return 0
	}
	return t.Sub(f.launchTime)
}

func (f *FlightClock) Now() time.Time {
	return f.clock.Now()
}

func (f *FlightClock) Sleep(d time.Duration) {
	f.clock.Sleep(d)
}

func (f *FlightClock) After(d time.Duration) <-chan time.Time {
	return f.clock.After(d)
}
