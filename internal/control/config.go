package control

import (
	"errors"
	"fmt"
	"time"

	"github.com/roman-kulish/rocket-flight-control/internal/clock"
	"github.com/roman-kulish/rocket-flight-control/internal/hw"
)

const (
	// Gravity in ft/s²
	Gravity = 32.174

	ProjectionBallistic Projection = "ballistic"
	ProjectionDrag      Projection = "drag"
)

var validProjections = map[Projection]struct{}{
	ProjectionBallistic: {},
	ProjectionDrag:      {},
}

// Projection selects the apogee extrapolation model
type Projection string

func (p Projection) String() string {
	return string(p)
}

// AirbrakeConfig holds the airbrake trim law parameters
type AirbrakeConfig struct {
	DesiredAltitude int        `yaml:"desiredAltitude" json:"desiredAltitude"` // Target apogee in feet
	CoarseThreshold int        `yaml:"coarseThreshold" json:"coarseThreshold"` // Overshoot in feet that triggers a full drag pulse
	FineResolution  int        `yaml:"fineResolution" json:"fineResolution"`   // Overshoot in feet below which no correction is made
	Gravity         float64    `yaml:"gravity" json:"gravity"`                 // ft/s²
	Projection      Projection `yaml:"projection" json:"projection"`           // ballistic (default) or drag
	DragPerMass     float64    `yaml:"dragPerMass" json:"dragPerMass"`         // k/m in 1/ft for the drag projection

	MaxPosition int            `yaml:"maxPosition" json:"maxPosition"` // Fully open surface in degrees
	Step        int            `yaml:"step" json:"step"`               // Sweep increment in degrees
	StepDelay   clock.Duration `yaml:"stepDelay" json:"stepDelay"`     // Delay after each sweep step
	CoarseHold  clock.Duration `yaml:"coarseHold" json:"coarseHold"`   // Dwell time fully open on a coarse correction
}

// DefaultAirbrakeConfig returns the trim parameters of the reference airframe
func DefaultAirbrakeConfig() AirbrakeConfig {
	return AirbrakeConfig{
		DesiredAltitude: 775,
		CoarseThreshold: 30,
		FineResolution:  5,
		Gravity:         Gravity,
		Projection:      ProjectionBallistic,
		DragPerMass:     0.0008,
		MaxPosition:     hw.AirbrakeMax,
		Step:            5,
		StepDelay:       clock.NewDuration(2 * time.Millisecond),
		CoarseHold:      clock.NewDuration(20 * time.Millisecond),
	}
}

func (c *AirbrakeConfig) Validate() error {
	if c.DesiredAltitude <= 0 {
		return fmt.Errorf("control.AirbrakeConfig: desired altitude must be positive: %d given", c.DesiredAltitude)
	}
	if c.CoarseThreshold <= 0 {
		return fmt.Errorf("control.AirbrakeConfig: coarse threshold must be positive: %d given", c.CoarseThreshold)
	}
	if c.FineResolution < 0 || c.FineResolution >= c.CoarseThreshold {
		return errors.New("control.AirbrakeConfig: fine resolution must be between 0 and the coarse threshold")
	}
	if c.Gravity <= 0 {
		return fmt.Errorf("control.AirbrakeConfig: gravity must be positive: %f given", c.Gravity)
	}
	if _, ok := validProjections[c.Projection]; !ok {
		return fmt.Errorf("control.AirbrakeConfig: unknown projection '%s'", c.Projection)
	}
	if c.Projection == ProjectionDrag && c.DragPerMass <= 0 {
		return errors.New("control.AirbrakeConfig: drag projection requires a positive dragPerMass")
	}
	if c.MaxPosition <= 0 || c.MaxPosition > hw.AirbrakeMax {
		return fmt.Errorf("control.AirbrakeConfig: max position must be between 1 and %d: %d given", hw.AirbrakeMax, c.MaxPosition)
	}
	if c.Step <= 0 {
		return fmt.Errorf("control.AirbrakeConfig: step must be positive: %d given", c.Step)
	}
	if c.StepDelay.D() < 0 || c.CoarseHold.D() < 0 {
		return errors.New("control.AirbrakeConfig: delays cannot be negative")
	}
	return nil
}

// ParachuteConfig holds the descent time trim law parameters
type ParachuteConfig struct {
	TargetTime          clock.Duration `yaml:"targetTime" json:"targetTime"`                   // Target total flight time
	CoarseDeltaTime     clock.Duration `yaml:"coarseDeltaTime" json:"coarseDeltaTime"`         // Overtime that commands full extension
	DeltaTimeResolution clock.Duration `yaml:"deltaTimeResolution" json:"deltaTimeResolution"` // Overtime below which the actuator stays retracted
	MaxExtension        int            `yaml:"maxExtension" json:"maxExtension"`               // Full extension command
	FinalAltitude       int            `yaml:"finalAltitude" json:"finalAltitude"`             // Feet, force-retract below it
	SettlePerUnit       clock.Duration `yaml:"settlePerUnit" json:"settlePerUnit"`             // Actuator travel time per position unit
}

// DefaultParachuteConfig returns the descent parameters of the reference airframe
func DefaultParachuteConfig() ParachuteConfig {
	return ParachuteConfig{
		TargetTime:          clock.NewDuration(43 * time.Second),
		CoarseDeltaTime:     clock.NewDuration(4 * time.Second),
		DeltaTimeResolution: clock.NewDuration(100 * time.Millisecond),
		MaxExtension:        200,
		FinalAltitude:       100,
		SettlePerUnit:       clock.NewDuration(time.Millisecond),
	}
}

func (c *ParachuteConfig) Validate() error {
	if c.TargetTime.D() <= 0 {
		return fmt.Errorf("control.ParachuteConfig: target time must be positive: %s given", c.TargetTime)
	}
	if c.DeltaTimeResolution.D() < 0 || c.DeltaTimeResolution.D() >= c.CoarseDeltaTime.D() {
		return errors.New("control.ParachuteConfig: delta time resolution must be between 0 and the coarse delta time")
	}
	if c.MaxExtension <= 0 || c.MaxExtension > hw.ParachuteMax {
		return fmt.Errorf("control.ParachuteConfig: max extension must be between 1 and %d: %d given", hw.ParachuteMax, c.MaxExtension)
	}
	if c.FinalAltitude < 0 {
		return fmt.Errorf("control.ParachuteConfig: final altitude cannot be negative: %d given", c.FinalAltitude)
	}
	if c.SettlePerUnit.D() < 0 {
		return fmt.Errorf("control.ParachuteConfig: settle time cannot be negative: %s given", c.SettlePerUnit)
	}
	return nil
}
