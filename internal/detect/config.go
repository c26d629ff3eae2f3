package detect

import (
	"errors"
	"fmt"
	"time"

	"github.com/roman-kulish/rocket-flight-control/internal/clock"
)

const (
	// LaunchRun is the default number of consecutive rising samples that confirm a launch
	LaunchRun = 3

	// CycleSamples is the number of samples an apogee cycle takes once the
	// rocket is close to or past apogee
	CycleSamples = 3

	// DecreasingSamples is the number of falling samples in a cycle that call apogee
	DecreasingSamples = 2

	// CapsuleSamples and CapsuleVotes define the capsule detachment majority vote
	CapsuleSamples = 3
	CapsuleVotes   = 2
)

// Config holds the detection thresholds
type Config struct {
	SampleInterval     clock.Duration `yaml:"sampleInterval" json:"sampleInterval"`         // Telemetry frame period
	MinLaunchAltitude  int            `yaml:"minLaunchAltitude" json:"minLaunchAltitude"`   // Feet, rising samples below it do not count towards launch
	LaunchRun          int            `yaml:"launchRun" json:"launchRun"`                   // Consecutive qualifying samples that confirm launch
	ApogeeThreshold    int            `yaml:"apogeeThreshold" json:"apogeeThreshold"`       // Feet, minimum peak altitude for an apogee call
	AltitudeJump       int            `yaml:"altitudeJump" json:"altitudeJump"`             // Feet, post-apogee outlier threshold
	JumpBreakDelay     clock.Duration `yaml:"jumpBreakDelay" json:"jumpBreakDelay"`         // Cooldown after a rejected sample
	ProximityThreshold int            `yaml:"proximityThreshold" json:"proximityThreshold"` // Raw ADC value above which a reading votes for detachment
}

// DefaultConfig returns the thresholds used on the reference airframe
func DefaultConfig() Config {
	return Config{
		SampleInterval:     clock.NewDuration(100 * time.Millisecond),
		MinLaunchAltitude:  50,
		LaunchRun:          LaunchRun,
		ApogeeThreshold:    600,
		AltitudeJump:       10_000,
		JumpBreakDelay:     clock.NewDuration(500 * time.Millisecond),
		ProximityThreshold: 500,
	}
}

func (c *Config) Validate() error {
	if c.SampleInterval.D() <= 0 {
		return fmt.Errorf("detect.Config: sample interval must be positive: %s given", c.SampleInterval)
	}
	if c.MinLaunchAltitude < 0 {
		return fmt.Errorf("detect.Config: minimum launch altitude cannot be negative: %d given", c.MinLaunchAltitude)
	}
	if c.LaunchRun <= 0 {
		return fmt.Errorf("detect.Config: launch run must be positive: %d given", c.LaunchRun)
	}
	if c.ApogeeThreshold <= c.MinLaunchAltitude {
		return errors.New("detect.Config: apogee threshold must be above the minimum launch altitude")
	}
	if c.AltitudeJump <= 0 {
		return fmt.Errorf("detect.Config: altitude jump must be positive: %d given", c.AltitudeJump)
	}
	if c.JumpBreakDelay.D() < 0 {
		return fmt.Errorf("detect.Config: jump break delay cannot be negative: %s given", c.JumpBreakDelay)
	}
	return nil
}
