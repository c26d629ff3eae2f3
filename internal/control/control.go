// Package control implements the airbrake and parachute trim laws. The
// controllers only ever add drag: they can lower the apogee and stretch or
// shorten the descent within the actuator range, never add energy.
package control

// Mode is the trim law branch taken in a cycle
type Mode int

const (
	ModeNone    Mode = iota // On target, actuator closed or retracted
	ModeFine                // Proportional correction
	ModeCoarse              // Full range correction
	ModeRetract             // Forced retraction near the ground
)

func (m Mode) String() string {
	switch m {
	case ModeNone:
		return "none"
	case ModeFine:
		return "fine"
	case ModeCoarse:
		return "coarse"
	case ModeRetract:
		return "retract"
	default:
		return "unknown"
	}
}
