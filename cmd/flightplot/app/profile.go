package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/roman-kulish/rocket-flight-control/internal/flight"
	"github.com/roman-kulish/rocket-flight-control/internal/hw"
	"github.com/roman-kulish/rocket-flight-control/internal/storage"
)

// ErrNoSamples is returned for a flight without recorded telemetry
var ErrNoSamples = errors.New("flight has no recorded samples")

// Point is an altitude sample on the flight time axis
type Point struct {
	At       time.Duration // Since the first sample
	Altitude int
	Garbled  bool
}

// PhaseSpan is the time range the flight spent in one state
type PhaseSpan struct {
	State    string
	From, To time.Duration
}

// CommandPoint is an actuator position on the flight time axis
type CommandPoint struct {
	At       time.Duration
	Position int
}

// FlightProfile is the recorded flight projected onto a common time axis
type FlightProfile struct {
	FlightID int64
	UUID     uuid.UUID

	Start    time.Time // First sample
	Duration time.Duration

	Points   []Point
	Phases   []PhaseSpan
	Commands map[hw.Target][]CommandPoint

	Apogee      Point
	MaxAltitude int
	Garbled     int
}

// LoadProfile reads a flight from the store. A flightID of zero selects the
// most recent flight.
func LoadProfile(ctx context.Context, store storage.Store, flightID int64) (*FlightProfile, error) {
	f, err := findFlight(ctx, store, flightID)
	if err != nil {
		return nil, err
	}

	samples, err := store.Samples(ctx, f.ID)
	if err != nil {
		return nil, fmt.Errorf("reading samples: %w", err)
	}
	transitions, err := store.Transitions(ctx, f.ID)
	if err != nil {
		return nil, fmt.Errorf("reading transitions: %w", err)
	}
	commands, err := store.Commands(ctx, f.ID)
	if err != nil {
		return nil, fmt.Errorf("reading commands: %w", err)
	}

	p, err := NewProfile(samples, transitions, commands)
	if err != nil {
		return nil, err
	}

	p.FlightID = f.ID
	p.UUID = f.UUID
	return p, nil
}

func findFlight(ctx context.Context, store storage.Store, flightID int64) (*storage.Flight, error) {
	if flightID > 0 {
		f, err := store.Flight(ctx, flightID)
		if err != nil {
			return nil, fmt.Errorf("reading flight %d: %w", flightID, err)
		}
		return f, nil
	}

	flights, err := store.Flights(ctx)
	if err != nil {
		return nil, fmt.Errorf("reading flights: %w", err)
	}
	if len(flights) == 0 {
		return nil, errors.New("no recorded flights")
	}
	return flights[len(flights)-1], nil
}

// NewProfile builds the profile from recorded rows ordered by time
func NewProfile(samples []storage.Sample, transitions []storage.Transition, commands []storage.Command) (*FlightProfile, error) {
	if len(samples) == 0 {
		return nil, ErrNoSamples
	}

	p := FlightProfile{
		Start:    samples[0].Timestamp,
		Duration: samples[len(samples)-1].Timestamp.Sub(samples[0].Timestamp),
		Points:   make([]Point, len(samples)),
		Commands: make(map[hw.Target][]CommandPoint),
	}

	for i, s := range samples {
		pt := Point{At: s.Timestamp.Sub(p.Start), Altitude: s.Altitude, Garbled: s.Garbled}
		p.Points[i] = pt

		if s.Garbled {
			p.Garbled++
		}
		if i == 0 || pt.Altitude > p.Apogee.Altitude {
			p.Apogee = pt
		}
	}
	p.MaxAltitude = p.Apogee.Altitude

	for _, c := range commands {
		target := hw.Target(c.Target)
		p.Commands[target] = append(p.Commands[target], CommandPoint{At: p.clamp(c.Timestamp), Position: c.Position})
	}

	p.Phases = phaseSpans(transitions, p.clamp, p.Duration)
	return &p, nil
}

// clamp maps t onto the sample time axis
func (p *FlightProfile) clamp(t time.Time) time.Duration {
	return min(max(t.Sub(p.Start), 0), p.Duration)
}

func phaseSpans(transitions []storage.Transition, at func(time.Time) time.Duration, end time.Duration) []PhaseSpan {
	current := PhaseSpan{State: flight.Prelaunch.String()}

	var spans []PhaseSpan
	for _, t := range transitions {
		current.To = at(t.Timestamp)
		spans = append(spans, current)
		current = PhaseSpan{State: t.To, From: current.To}
	}

	current.To = end
	return append(spans, current)
}
