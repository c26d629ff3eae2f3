package rpi

import (
	"fmt"

	"github.com/stianeikeland/go-rpio/v4"

	"github.com/roman-kulish/rocket-flight-control/internal/hw"
)

const (
	Hertz = 50

	// keeps the PWM clock inside 4688Hz - 19.2MHz
	multiplier  = 20000
	usPerCycle  = (1000 * 1000) / Hertz
	defaultMinU = 1000
	defaultMaxU = 2000
)

// PWMConfig maps a position range onto a servo pulse width range
type PWMConfig struct {
	Pin      int  `yaml:"pin" json:"pin"`                // BCM pin with hardware PWM
	MaxPos   int  `yaml:"maxPosition" json:"maxPosition"` // Position mapped to MaxPulse
	MinPulse int  `yaml:"minPulseUs" json:"minPulseUs"`   // Pulse width in µs at position 0
	MaxPulse int  `yaml:"maxPulseUs" json:"maxPulseUs"`   // Pulse width in µs at MaxPos
	Inverted bool `yaml:"inverted" json:"inverted"`       // Mirror the travel direction
}

func (c *PWMConfig) Validate() error {
	if _, ok := pwmPins[c.Pin]; !ok {
		return hw.NewConfigError(fmt.Sprintf("rpi.PWMConfig: pin %d has no hardware PWM", c.Pin))
	}
	if c.MaxPos <= 0 {
		return hw.NewConfigError(fmt.Sprintf("rpi.PWMConfig: max position must be positive: %d given", c.MaxPos))
	}
	if c.MinPulse < 0 || c.MaxPulse > usPerCycle || c.MinPulse >= c.MaxPulse {
		return hw.NewConfigError(fmt.Sprintf("rpi.PWMConfig: invalid pulse range %d-%dus", c.MinPulse, c.MaxPulse))
	}
	return nil
}

// PWMActuator is a position-commanded actuator driven by a servo pulse
type PWMActuator struct {
	pin    rpio.Pin
	config PWMConfig
}

// NewPWMActuator configures the pin for hardware PWM
func NewPWMActuator(config PWMConfig) (*PWMActuator, error) {
	if config.MinPulse == 0 && config.MaxPulse == 0 {
		config.MinPulse, config.MaxPulse = defaultMinU, defaultMaxU
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}

	pin := rpio.Pin(config.Pin)
	pin.Mode(rpio.Pwm)
	pin.Freq(Hertz * multiplier)

	return &PWMActuator{pin: pin, config: config}, nil
}

// Command sets the duty cycle for the position. Out of range positions are
// clamped to the configured travel.
func (a *PWMActuator) Command(position int) {
	a.pin.DutyCycle(dutyCycleFor(a.config, position), multiplier)
}

func dutyCycleFor(c PWMConfig, position int) uint32 {
	position = min(max(position, 0), c.MaxPos)
	if c.Inverted {
		position = c.MaxPos - position
	}

	targetUs := c.MinPulse + (c.MaxPulse-c.MinPulse)*position/c.MaxPos
	return uint32(targetUs) * multiplier / usPerCycle
}
