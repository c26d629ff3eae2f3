package detect

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/roman-kulish/rocket-flight-control/internal/hw"
)

// WithCapsuleLogger sets the logger for the capsule detach detector
func WithCapsuleLogger(logger *slog.Logger) func(d *CapsuleDetachDetector) {
	return func(d *CapsuleDetachDetector) {
		d.logger = logger.With(slog.String("component", "capsule"))
	}
}

// CapsuleDetachDetector decides capsule separation by a majority vote over
// proximity readings. One-shot: once detached it stays detached.
type CapsuleDetachDetector struct {
	config   Config
	sensor   hw.ProximitySensor
	detached bool

	logger *slog.Logger
}

func NewCapsuleDetachDetector(config Config, sensor hw.ProximitySensor, options ...func(d *CapsuleDetachDetector)) *CapsuleDetachDetector {
	d := CapsuleDetachDetector{
		config: config,
		sensor: sensor,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}

	for _, option := range options {
		option(&d)
	}

	return &d
}

// Detached reports whether detachment was declared
func (d *CapsuleDetachDetector) Detached() bool {
	return d.detached
}

// Poll takes CapsuleSamples readings and declares detachment when at least
// CapsuleVotes of them are above the threshold. Failed reads do not vote.
func (d *CapsuleDetachDetector) Poll() (detached bool, votes int) {
	if d.detached {
		return true, CapsuleSamples
	}

	for i := 0; i < CapsuleSamples; i++ {
		v, err := d.sensor.ReadProximity()
		if err != nil {
			d.logger.Warn(fmt.Sprintf("reading proximity sensor: %s", err.Error()))
			continue
		}
		if v > d.config.ProximityThreshold {
			votes++
		}
	}

	if votes >= CapsuleVotes {
		d.detached = true
		d.logger.Info("capsule detached", slog.Int("votes", votes))
	}

	return d.detached, votes
}
