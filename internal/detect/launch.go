package detect

import (
	"time"

	"github.com/roman-kulish/rocket-flight-control/internal/telemetry"
)

// LaunchDetector confirms lift-off from a run of rising altitude samples.
// It is one-shot: once confirmed it never fires again.
type LaunchDetector struct {
	config Config

	last      telemetry.Sample
	primed    bool
	run       int
	confirmed bool

	launchTime time.Time
}

func NewLaunchDetector(config Config) *LaunchDetector {
	return &LaunchDetector{config: config}
}

// Observe feeds a sample and returns true for the sample that confirms the
// launch. A sample qualifies when it is above the previous one and above the
// minimum launch altitude; any other sample resets the run. The first sample
// only primes the detector.
func (d *LaunchDetector) Observe(s telemetry.Sample) bool {
	if d.confirmed {
		return false
	}

	if d.primed && s.Altitude > d.last.Altitude && s.Altitude > d.config.MinLaunchAltitude {
		d.run++
	} else {
		d.run = 0
	}

	d.last = s
	d.primed = true

	if d.run < d.config.LaunchRun {
		return false
	}

	// the run lags lift-off by one sample interval per qualifying sample
	d.confirmed = true
	d.launchTime = s.Time.Add(-time.Duration(d.config.LaunchRun) * d.config.SampleInterval.D())
	return true
}

// Confirmed reports whether the launch was confirmed
func (d *LaunchDetector) Confirmed() bool {
	return d.confirmed
}

// LaunchTime returns the back-dated launch time, zero before confirmation
func (d *LaunchDetector) LaunchTime() time.Time {
	return d.launchTime
}

// Run returns the current number of consecutive qualifying samples
func (d *LaunchDetector) Run() int {
	return d.run
}
