package app

import (
	"image/color"

	"github.com/lucasb-eyer/go-colorful"

	"github.com/roman-kulish/rocket-flight-control/internal/flight"
	"github.com/roman-kulish/rocket-flight-control/internal/hw"
)

const (
	bandSaturation = 0.18
	bandValue      = 1.0
)

var (
	altitudeColor = color.RGBA{R: 0x10, G: 0x10, B: 0x10, A: 0xff}
	garbledColor  = color.RGBA{R: 0xd0, G: 0x20, B: 0x20, A: 0xff}
	apogeeColor   = color.RGBA{R: 0xe0, G: 0x10, B: 0x60, A: 0xff}
	gridColor     = color.RGBA{R: 0xd8, G: 0xd8, B: 0xd8, A: 0xff}
)

// phaseStates orders the flight states along the hue wheel
var phaseStates = []flight.State{
	flight.Prelaunch,
	flight.PoweredAscentWait,
	flight.AirbrakeActive,
	flight.ApogeeReached,
	flight.CapsuleDetached,
	flight.ParachuteActive,
	flight.Landed,
}

// phaseColor returns the pale background colour of a flight state band.
// Hues are spread evenly so neighbouring phases never share a colour.
func phaseColor(state string) color.Color {
	for i, s := range phaseStates {
		if s.String() == state {
			hue := 360 * float64(i) / float64(len(phaseStates))
			return colorful.Hsv(hue, bandSaturation, bandValue).Clamped()
		}
	}
	return color.White
}

// commandColor returns the trace colour of an actuator, blended towards the
// altitude colour so traces stay readable on every phase band
func commandColor(target hw.Target) color.Color {
	var base colorful.Color
	switch target {
	case hw.Airbrake:
		base = colorful.Hsv(210, 0.9, 0.8)
	case hw.Parachute:
		base = colorful.Hsv(28, 0.95, 0.9)
	default:
		base = colorful.Hsv(280, 0.6, 0.7)
	}

	dark, _ := colorful.MakeColor(altitudeColor)
	return base.BlendLab(dark, 0.15).Clamped()
}
