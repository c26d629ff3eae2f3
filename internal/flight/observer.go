package flight

import (
	"time"

	"github.com/roman-kulish/rocket-flight-control/internal/hw"
	"github.com/roman-kulish/rocket-flight-control/internal/telemetry"
)

// CycleReport describes one iteration of the control loop
type CycleReport struct {
	Number   int
	State    State // State at the end of the cycle
	Start    time.Time
	Duration time.Duration
	Rejected bool  // A sample was discarded by jump rejection
	Overrun  bool  // Duration exceeded the cycle budget
	Err      error // Telemetry error that ended the cycle early
}

// Observer receives everything the flight loop does. Implementations must
// not block, they run inside the control loop.
type Observer interface {
	ObserveSample(s telemetry.Sample, state State)
	ObserveTransition(from, to State, at time.Time)
	ObserveCommand(cmd hw.Command, at time.Time)
	ObserveCycle(r CycleReport)
}

// Observers fans out to several observers in order
type Observers []Observer

func (o Observers) ObserveSample(s telemetry.Sample, state State) {
	for _, obs := range o {
		obs.ObserveSample(s, state)
	}
}

func (o Observers) ObserveTransition(from, to State, at time.Time) {
	for _, obs := range o {
		obs.ObserveTransition(from, to, at)
	}
}

func (o Observers) ObserveCommand(cmd hw.Command, at time.Time) {
	for _, obs := range o {
		obs.ObserveCommand(cmd, at)
	}
}

func (o Observers) ObserveCycle(r CycleReport) {
	for _, obs := range o {
		obs.ObserveCycle(r)
	}
}
