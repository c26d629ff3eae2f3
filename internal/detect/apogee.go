package detect

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/roman-kulish/rocket-flight-control/internal/clock"
	"github.com/roman-kulish/rocket-flight-control/internal/telemetry"
)

// Record is an altitude/rate pair kept for the parachute controller
type Record struct {
	Altitude int
	Rate     float64 // ft/s, magnitude only
}

// CycleResult describes one apogee detection cycle
type CycleResult struct {
	Records    []Record         // Accepted samples of this cycle, at most CycleSamples
	Rate       telemetry.Rate   // Rate estimate of the last accepted sample
	HasRate    bool             // Rate is valid
	Last       telemetry.Sample // Last accepted sample
	Decreasing int              // Accepted samples lower than their predecessor
	Rejected   bool             // Cycle aborted by jump rejection
	Apogee     bool             // Apogee is flagged
	NewApogee  bool             // Apogee was flagged during this cycle
}

// Complete reports whether the cycle recorded a full set of samples
func (r CycleResult) Complete() bool {
	return !r.Rejected && len(r.Records) == CycleSamples
}

// WithApogeeLogger sets the logger for the apogee detector
func WithApogeeLogger(logger *slog.Logger) func(d *ApogeeDetector) {
	return func(d *ApogeeDetector) {
		d.logger = logger.With(slog.String("component", "apogee"))
	}
}

// ApogeeDetector tracks the altitude trend, estimates the vertical rate and
// calls apogee. Near the peak it takes three samples per cycle so that one
// noisy reading cannot call apogee on its own, and once apogee is flagged it
// discards implausible altitude jumps.
type ApogeeDetector struct {
	config Config
	source telemetry.Source
	clock  clock.Clock

	last   telemetry.Sample
	primed bool
	peak   int
	apogee bool

	rejected int

	logger *slog.Logger
}

func NewApogeeDetector(config Config, source telemetry.Source, c clock.Clock, options ...func(d *ApogeeDetector)) *ApogeeDetector {
	d := ApogeeDetector{
		config: config,
		source: source,
		clock:  c,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}

	for _, option := range options {
		option(&d)
	}

	return &d
}

// Prime sets the reference sample the next cycle compares against
func (d *ApogeeDetector) Prime(s telemetry.Sample) {
	d.last = s
	d.primed = true
	d.peak = max(d.peak, s.Altitude)
}

// Apogee reports whether apogee was called. It never reverts to false.
func (d *ApogeeDetector) Apogee() bool {
	return d.apogee
}

// Peak returns the highest accepted altitude
func (d *ApogeeDetector) Peak() int {
	return d.peak
}

// Last returns the last accepted sample
func (d *ApogeeDetector) Last() telemetry.Sample {
	return d.last
}

// Rejected returns the number of samples discarded by jump rejection
func (d *ApogeeDetector) Rejected() int {
	return d.rejected
}

// SamplesPerCycle returns how many samples the next cycle takes
func (d *ApogeeDetector) SamplesPerCycle() int {
	if d.apogee || d.peak > d.config.ApogeeThreshold {
		return CycleSamples
	}
	return 1
}

// Cycle reads one or three samples, updates the rate estimate and decides
// on apogee. A read error ends the cycle early and is returned together with
// what was accepted so far.
func (d *ApogeeDetector) Cycle(ctx context.Context) (CycleResult, error) {
	n := d.SamplesPerCycle()
	result := CycleResult{
		Records: make([]Record, 0, n),
		Apogee:  d.apogee,
	}

	for i := 0; i < n; i++ {
		s, err := d.source.ReadAltitude(ctx)
		if err != nil {
			return result, fmt.Errorf("reading altitude: %w", err)
		}

		if !d.primed {
			d.Prime(s)
			result.Last = s
			continue
		}

		dAltitude := s.Altitude - d.last.Altitude
		if dAltitude < 0 {
			dAltitude = -dAltitude
		}

		if d.apogee && dAltitude >= d.config.AltitudeJump {
			d.rejected++
			d.logger.Warn("altitude jump rejected",
				slog.Int("last", d.last.Altitude),
				slog.Int("altitude", s.Altitude),
				slog.Int("jump", dAltitude))

			d.clock.Sleep(d.config.JumpBreakDelay.D())

			result.Rejected = true
			return result, nil
		}

		rate, ok := telemetry.RateBetween(d.last, s)
		if ok {
			result.Rate = rate
			result.HasRate = true
		}

		if s.Altitude < d.last.Altitude {
			result.Decreasing++
		}

		d.peak = max(d.peak, s.Altitude)
		d.last = s

		result.Records = append(result.Records, Record{Altitude: s.Altitude, Rate: rate.FeetPerSecond})
		result.Last = s
	}

	if !d.apogee && result.Decreasing >= DecreasingSamples && d.peak >= d.config.ApogeeThreshold {
		d.apogee = true
		result.Apogee = true
		result.NewApogee = true

		d.logger.Info("apogee reached", slog.Int("peak", d.peak), slog.Int("altitude", d.last.Altitude))
	}

	return result, nil
}
