package telemetry

import (
	"context"
	"math"
	"time"
)

// Source produces altitude samples, one per telemetry frame
type Source interface {
	ReadAltitude(ctx context.Context) (Sample, error)
}

// Sample is a single altitude reading from the altimeter
type Sample struct {
	Altitude int       // Altitude above the launch pad in feet
	Time     time.Time // When the frame was received
	Garbled  bool      // Non-digit bytes were found inside the altitude field
}

// Seconds returns the sample time in seconds relative to since
func (s Sample) Seconds(since time.Time) float64 {
	return s.Time.Sub(since).Seconds()
}

// Rate is a vertical speed estimate derived from two consecutive samples.
// The magnitude is always positive, the direction is implied by the flight
// phase (climbing before apogee, descending after it).
type Rate struct {
	FeetPerSecond float64
	From          Sample
	To            Sample
}

// RateBetween estimates |Δaltitude| / Δtime between two samples.
// It returns false when the samples are not ordered in time.
func RateBetween(from, to Sample) (Rate, bool) {
	dt := to.Time.Sub(from.Time).Seconds()
	if dt <= 0 {
		return Rate{}, false
	}

	return Rate{
		FeetPerSecond: math.Abs(float64(to.Altitude-from.Altitude)) / dt,
		From:          from,
		To:            to,
	}, true
}
