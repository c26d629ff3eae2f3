package app

import (
	"log/slog"

	"github.com/roman-kulish/rocket-flight-control/internal/hw"
)

// benchActuator stands in for an actuator when the flight computer runs
// without hardware attached. Commands only go to the log.
type benchActuator struct {
	target hw.Target
	logger *slog.Logger
}

func (a *benchActuator) Command(position int) {
	a.logger.Debug("bench actuator command", slog.String("target", a.target.String()), slog.Int("position", position))
}

// benchProximity always reads an attached capsule
type benchProximity struct{}

func (benchProximity) ReadProximity() (int, error) {
	return 0, nil
}

// benchIndicator logs the status signal
type benchIndicator struct {
	logger *slog.Logger
}

func (i benchIndicator) Set(on bool) {
	i.logger.Info("status indicator", slog.Bool("on", on))
}
