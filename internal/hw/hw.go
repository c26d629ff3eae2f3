package hw

const (
	Airbrake  Target = "airbrake"
	Parachute Target = "parachute"

	// AirbrakeMax is the fully open airbrake position in degrees
	AirbrakeMax = 90

	// ParachuteMax is the full extension of the parachute release actuator
	ParachuteMax = 255
)

// Target names the actuator a command is addressed to
type Target string

func (t Target) String() string {
	return string(t)
}

// Command is a position command sent to an actuator
type Command struct {
	Target   Target
	Position int
}

// Actuator accepts a position command. There is no position feedback, the
// commanded value is the actuator state.
type Actuator interface {
	Command(position int)
}

// ProximitySensor yields a raw analog reading of the capsule proximity sensor
type ProximitySensor interface {
	ReadProximity() (int, error)
}

// Indicator is an on/off status signal
type Indicator interface {
	Set(on bool)
}
