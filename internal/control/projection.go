package control

import "math"

// ProjectAltitude extrapolates the apogee from the current altitude and
// vertical speed.
//
// The ballistic model converts the vertical kinetic energy into height and
// ignores drag: h + v²/2g. The drag model integrates a climb against gravity
// and quadratic drag: h + ln(1 + k·v²/g) / 2k, where k is the drag constant
// divided by the mass. Both only ever add height to the current altitude.
func ProjectAltitude(model Projection, altitude int, rate, gravity, dragPerMass float64) float64 {
	h := float64(altitude)
	if rate <= 0 || gravity <= 0 {
		return h
	}

	if model == ProjectionDrag && dragPerMass > 0 {
		return h + math.Log1p(dragPerMass*rate*rate/gravity)/(2*dragPerMass)
	}

	return h + 0.5*rate*rate/gravity
}
