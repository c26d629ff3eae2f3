package rpi

import "github.com/stianeikeland/go-rpio/v4"

// LED is a status indicator on a GPIO output pin
type LED struct {
	pin rpio.Pin
}

func NewLED(bcmPin int) *LED {
	pin := rpio.Pin(bcmPin)
	pin.Output()
	return &LED{pin: pin}
}

func (l *LED) Set(on bool) {
	if on {
		l.pin.High()
		return
	}
	l.pin.Low()
}
