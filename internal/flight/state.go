package flight

import (
	"errors"
	"fmt"
	"slices"
)

// ErrInvalidTransition is returned for any phase change the transition table does not allow
var ErrInvalidTransition = errors.New("invalid flight state transition")

// State is the flight phase
type State int

const (
	Prelaunch State = iota
	PoweredAscentWait
	AirbrakeActive
	ApogeeReached
	CapsuleDetached
	ParachuteActive
	Landed
)

var stateNames = [...]string{
	Prelaunch:         "PRELAUNCH",
	PoweredAscentWait: "POWERED_ASCENT_WAIT",
	AirbrakeActive:    "AIRBRAKE_ACTIVE",
	ApogeeReached:     "APOGEE_REACHED",
	CapsuleDetached:   "CAPSULE_DETACHED",
	ParachuteActive:   "PARACHUTE_ACTIVE",
	Landed:            "LANDED",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return fmt.Sprintf("State(%d)", int(s))
	}
	return stateNames[s]
}

// transitions lists the phases reachable from each phase. Every edge moves
// forward, LANDED is terminal.
var transitions = map[State][]State{
	Prelaunch:         {PoweredAscentWait},
	PoweredAscentWait: {AirbrakeActive, ApogeeReached},
	AirbrakeActive:    {ApogeeReached},
	ApogeeReached:     {CapsuleDetached, Landed},
	CapsuleDetached:   {ParachuteActive, Landed},
	ParachuteActive:   {Landed},
}

// CanTransition reports whether the phase may change from one state to another
func CanTransition(from, to State) bool {
	return slices.Contains(transitions[from], to)
}

// Phase holds the single live flight state. The state only changes through
// Transition.
type Phase struct {
	state State
}

func (p *Phase) State() State {
	return p.state
}

// Transition moves to the given state or returns ErrInvalidTransition
func (p *Phase) Transition(to State) error {
	if !CanTransition(p.state, to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, p.state, to)
	}

	p.state = to
	return nil
}
