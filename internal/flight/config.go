package flight

import (
	"fmt"
	"time"

	"github.com/roman-kulish/rocket-flight-control/internal/clock"
	"github.com/roman-kulish/rocket-flight-control/internal/control"
	"github.com/roman-kulish/rocket-flight-control/internal/detect"
)

// Config holds the flight loop parameters
type Config struct {
	MotorBurnTime  clock.Duration `yaml:"motorBurnTime" json:"motorBurnTime"`   // No airbrake correction before burnout
	MaxCycles      int            `yaml:"maxCycles" json:"maxCycles"`           // Control loop iterations before the program ends
	CycleBudget    clock.Duration `yaml:"cycleBudget" json:"cycleBudget"`       // Cycles longer than this are reported as overruns, 0 disables
	LandedAltitude int            `yaml:"landedAltitude" json:"landedAltitude"` // Feet, any post-apogee sample below it means touchdown
}

// DefaultConfig returns the loop parameters of the reference flight
func DefaultConfig() Config {
	return Config{
		MotorBurnTime:  clock.NewDuration(1600 * time.Millisecond),
		MaxCycles:      5000,
		CycleBudget:    clock.NewDuration(time.Second),
		LandedAltitude: 20,
	}
}

func (c *Config) Validate() error {
	if c.MotorBurnTime.D() < 0 {
		return fmt.Errorf("flight.Config: motor burn time cannot be negative: %s given", c.MotorBurnTime)
	}
	if c.MaxCycles <= 0 {
		return fmt.Errorf("flight.Config: max cycles must be positive: %d given", c.MaxCycles)
	}
	if c.CycleBudget.D() < 0 {
		return fmt.Errorf("flight.Config: cycle budget cannot be negative: %s given", c.CycleBudget)
	}
	if c.LandedAltitude < 0 {
		return fmt.Errorf("flight.Config: landed altitude cannot be negative: %d given", c.LandedAltitude)
	}
	return nil
}

// Params bundles the configuration of every component the machine drives
type Params struct {
	Flight    Config                  `yaml:"flight" json:"flight"`
	Detect    detect.Config           `yaml:"detect" json:"detect"`
	Airbrake  control.AirbrakeConfig  `yaml:"airbrake" json:"airbrake"`
	Parachute control.ParachuteConfig `yaml:"parachute" json:"parachute"`
}

// DefaultParams returns the defaults of all components
func DefaultParams() Params {
	return Params{
		Flight:    DefaultConfig(),
		Detect:    detect.DefaultConfig(),
		Airbrake:  control.DefaultAirbrakeConfig(),
		Parachute: control.DefaultParachuteConfig(),
	}
}

func (p *Params) Validate() error {
	if err := p.Flight.Validate(); err != nil {
		return err
	}
	if err := p.Detect.Validate(); err != nil {
		return err
	}
	if err := p.Airbrake.Validate(); err != nil {
		return err
	}
	if err := p.Parachute.Validate(); err != nil {
		return err
	}
	if p.Flight.LandedAltitude > p.Parachute.FinalAltitude {
		return fmt.Errorf("flight.Config: landed altitude %d is above the parachute final altitude %d", p.Flight.LandedAltitude, p.Parachute.FinalAltitude)
	}
	return nil
}
