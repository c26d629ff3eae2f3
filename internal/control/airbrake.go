package control

import (
	"io"
	"log/slog"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/roman-kulish/rocket-flight-control/internal/clock"
	"github.com/roman-kulish/rocket-flight-control/internal/hw"
)

// AirbrakeDecision describes one airbrake trim cycle
type AirbrakeDecision struct {
	Altitude  int
	Rate      float64
	Projected float64 // Extrapolated apogee in feet
	Overshoot float64 // Projected minus desired altitude
	Mode      Mode
	Position  int           // Widest position commanded during the cycle
	Actuation time.Duration // Time spent sweeping and holding the surface
}

// WithAirbrakeLogger sets the logger for the airbrake controller
func WithAirbrakeLogger(logger *slog.Logger) func(c *AirbrakeController) {
	return func(c *AirbrakeController) {
		c.logger = logger.With(slog.String("component", "airbrake"))
	}
}

// AirbrakeController trims the apogee with a drag surface. Each cycle opens
// the surface in proportion to the projected overshoot and closes it again
// before returning, so the surface is never left open between cycles.
type AirbrakeController struct {
	config  AirbrakeConfig
	sweeper *hw.Sweeper
	clock   clock.Clock

	logger *slog.Logger
}

// NewAirbrakeController creates a controller driving the given sweeper. The
// sweeper range is limited to [0, MaxPosition].
func NewAirbrakeController(config AirbrakeConfig, sweeper *hw.Sweeper, c clock.Clock, options ...func(c *AirbrakeController)) *AirbrakeController {
	a := AirbrakeController{
		config:  config,
		sweeper: sweeper,
		clock:   c,
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	}

	for _, option := range options {
		option(&a)
	}

	return &a
}

// Project returns the extrapolated apogee for the configured model
func (c *AirbrakeController) Project(altitude int, rate float64) float64 {
	return ProjectAltitude(c.config.Projection, altitude, rate, c.config.Gravity, c.config.DragPerMass)
}

// Position returns the proportional surface position for an overshoot, in
// the range [0, MaxPosition]
func (c *AirbrakeController) Position(overshoot float64) int {
	p := int(float64(c.config.MaxPosition) * overshoot / float64(c.config.CoarseThreshold))
	return min(max(p, 0), c.config.MaxPosition)
}

// Trim runs one trim cycle for the current altitude and vertical rate.
// It blocks for the duration of the sweeps and the coarse hold.
func (c *AirbrakeController) Trim(altitude int, rate float64) AirbrakeDecision {
	d := AirbrakeDecision{
		Altitude:  altitude,
		Rate:      rate,
		Projected: c.Project(altitude, rate),
	}
	d.Overshoot = d.Projected - float64(c.config.DesiredAltitude)

	switch {
	case d.Overshoot >= float64(c.config.CoarseThreshold):
		d.Mode = ModeCoarse
		d.Actuation = c.sweeper.SweepDuration(c.config.MaxPosition) + c.config.CoarseHold.D()
		d.Position = c.sweeper.MoveTo(c.config.MaxPosition)
		c.clock.Sleep(c.config.CoarseHold.D())

	case d.Overshoot > float64(c.config.FineResolution):
		d.Mode = ModeFine
		position := c.Position(d.Overshoot)
		d.Actuation = c.sweeper.SweepDuration(position)
		d.Position = c.sweeper.MoveTo(position)

	default:
		d.Mode = ModeNone
	}

	d.Actuation += c.sweeper.SweepDuration(0)
	c.sweeper.MoveTo(0)

	c.logger.Debug("airbrake trim",
		slog.String("mode", d.Mode.String()),
		slog.String("projected", humanize.FormatFloat("#,###.#", d.Projected)+" ft"),
		slog.Float64("overshoot", d.Overshoot),
		slog.Int("position", d.Position),
		slog.Duration("actuation", d.Actuation))

	return d
}

// Close commands the surface fully closed
func (c *AirbrakeController) Close() {
	c.sweeper.MoveTo(0)
}
