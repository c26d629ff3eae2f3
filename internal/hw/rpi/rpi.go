// Package rpi drives the flight hardware attached to a Raspberry Pi:
// hardware PWM for the airbrake servo and the parachute release actuator,
// an MCP3008 ADC on SPI for the capsule proximity sensor and a status LED.
package rpi

import (
	"github.com/stianeikeland/go-rpio/v4"

	"github.com/roman-kulish/rocket-flight-control/internal/hw"
)

// Open maps the GPIO memory. It must be called before any driver is created.
func Open() error {
	if err := rpio.Open(); err != nil {
		return hw.NewRuntimeError("opening GPIO", err)
	}
	return nil
}

// Close unmaps the GPIO memory
func Close() error {
	if err := rpio.Close(); err != nil {
		return hw.NewRuntimeError("closing GPIO", err)
	}
	return nil
}

// pwmPins are the BCM pins with a hardware PWM channel
var pwmPins = map[int]struct{}{
	12: {},
	13: {},
	18: {},
	19: {},
}
