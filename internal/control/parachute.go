package control

import (
	"errors"
	"io"
	"log/slog"
	"time"

	"github.com/roman-kulish/rocket-flight-control/internal/clock"
	"github.com/roman-kulish/rocket-flight-control/internal/detect"
	"github.com/roman-kulish/rocket-flight-control/internal/hw"
)

// ErrIncompleteCycle is returned when the parachute trim law is given fewer
// records than a full apogee cycle
var ErrIncompleteCycle = errors.New("incomplete apogee cycle")

// ParachuteDecision describes one parachute trim cycle
type ParachuteDecision struct {
	AvgAltitude    float64
	AvgRate        float64
	ProjectedTime  time.Duration // Remaining descent time at constant rate
	ProjectedTotal time.Duration // Projected total flight time
	DeltaTime      time.Duration // Projected total minus target time
	Mode           Mode
	Position       int
	Settle         time.Duration
}

// WithParachuteLogger sets the logger for the parachute controller
func WithParachuteLogger(logger *slog.Logger) func(c *ParachuteController) {
	return func(c *ParachuteController) {
		c.logger = logger.With(slog.String("component", "parachute"))
	}
}

// ParachuteController trims the total flight time with the parachute release
// actuator. The actuator is commanded directly and the controller waits only
// as long as the travel from the last commanded position requires.
type ParachuteController struct {
	config  ParachuteConfig
	sweeper *hw.Sweeper
	clock   clock.Clock

	logger *slog.Logger
}

// NewParachuteController creates a controller driving the given sweeper. The
// sweeper range should be limited to [0, MaxExtension].
func NewParachuteController(config ParachuteConfig, sweeper *hw.Sweeper, c clock.Clock, options ...func(c *ParachuteController)) *ParachuteController {
	p := ParachuteController{
		config:  config,
		sweeper: sweeper,
		clock:   c,
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	}

	for _, option := range options {
		option(&p)
	}

	return &p
}

// Extension returns the actuator position for a projected overtime. The
// bands are disjoint: full extension above CoarseDeltaTime, proportional in
// (DeltaTimeResolution, CoarseDeltaTime], retracted otherwise.
func (c *ParachuteController) Extension(deltaTime time.Duration) (Mode, int) {
	switch {
	case deltaTime > c.config.CoarseDeltaTime.D():
		return ModeCoarse, c.config.MaxExtension

	case deltaTime > c.config.DeltaTimeResolution.D():
		p := int(float64(c.config.MaxExtension) * deltaTime.Seconds() / c.config.CoarseDeltaTime.D().Seconds())
		return ModeFine, min(max(p, 0), c.config.MaxExtension)

	default:
		return ModeNone, 0
	}
}

// Trim runs one trim cycle. It averages the first and the third record of an
// apogee cycle, projects the remaining descent at a constant rate and
// commands the extension for the projected overtime. Below the final
// altitude the actuator is retracted regardless.
func (c *ParachuteController) Trim(records []detect.Record, elapsed time.Duration) (ParachuteDecision, error) {
	if len(records) < detect.CycleSamples {
		return ParachuteDecision{}, ErrIncompleteCycle
	}

	first, third := records[0], records[2]
	d := ParachuteDecision{
		AvgAltitude: float64(first.Altitude+third.Altitude) / 2,
		AvgRate:     (first.Rate + third.Rate) / 2,
	}

	if d.AvgAltitude < float64(c.config.FinalAltitude) {
		r := c.Retract()
		r.AvgAltitude, r.AvgRate = d.AvgAltitude, d.AvgRate
		return r, nil
	}

	if d.AvgRate > 0 {
		d.ProjectedTime = time.Duration(d.AvgAltitude / d.AvgRate * float64(time.Second))
		d.ProjectedTotal = d.ProjectedTime + elapsed
		d.DeltaTime = d.ProjectedTotal - c.config.TargetTime.D()
		d.Mode, d.Position = c.Extension(d.DeltaTime)
	} else {
		d.Mode, d.Position = ModeNone, 0
	}

	d.Settle = c.command(d.Position)

	c.logger.Debug("parachute trim",
		slog.String("mode", d.Mode.String()),
		slog.Duration("projectedTotal", d.ProjectedTotal),
		slog.Duration("deltaTime", d.DeltaTime),
		slog.Int("position", d.Position),
		slog.Duration("settle", d.Settle))

	return d, nil
}

// Retract commands the actuator fully retracted and waits for it to settle
func (c *ParachuteController) Retract() ParachuteDecision {
	d := ParachuteDecision{Mode: ModeRetract}
	d.Settle = c.command(0)

	c.logger.Debug("parachute retracted", slog.Duration("settle", d.Settle))

	return d
}

func (c *ParachuteController) command(position int) time.Duration {
	travel := position - c.sweeper.Position()
	if travel < 0 {
		travel = -travel
	}

	c.sweeper.Set(position)

	settle := time.Duration(travel) * c.config.SettlePerUnit.D()
	c.clock.Sleep(settle)

	return settle
}
