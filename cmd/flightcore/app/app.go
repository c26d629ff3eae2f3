package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/roman-kulish/rocket-flight-control/internal/clock"
	"github.com/roman-kulish/rocket-flight-control/internal/flight"
	"github.com/roman-kulish/rocket-flight-control/internal/hw"
	"github.com/roman-kulish/rocket-flight-control/internal/hw/rpi"
	"github.com/roman-kulish/rocket-flight-control/internal/metrics"
	"github.com/roman-kulish/rocket-flight-control/internal/storage"
	"github.com/roman-kulish/rocket-flight-control/internal/telemetry"
)

const (
	storageDir = "data"
)

func Run(ctx context.Context, config *Config, logger *slog.Logger) (err error) {
	store, err := createStorage(&config.Storage)
	if err != nil {
		return fmt.Errorf("failed to create storage: %w", err)
	}
	defer closeWithError(store, &err, "storage")

	devices, indicator, release, err := createDevices(&config.Hardware, logger)
	if err != nil {
		return fmt.Errorf("failed to create devices: %w", err)
	}
	defer func() {
		indicator.Set(false)
		if rErr := release(); rErr != nil {
			err = errors.Join(err, rErr)
		}
	}()

	var c clock.Clock = clock.System{}
	source, err := createTelemetry(&config.Telemetry, config.Detect.SampleInterval.D(), c, logger)
	if err != nil {
		return fmt.Errorf("failed to create telemetry: %w", err)
	}

	m := metrics.New()
	orchestrator := NewOrchestrator(store, logger,
		WithClock(c),
		WithMetrics(m),
		WithQueueSize(config.Storage.QueueSize),
		WithMaxBatchSize(config.Storage.MaxBatchSize))

	indicator.Set(true)

	err = orchestrator.Run(ctx, config.Params, source, devices)

	if config.Metrics.TextfilePath != "" {
		if mErr := m.WriteToTextfile(config.Metrics.TextfilePath); mErr != nil {
			err = errors.Join(err, mErr)
		}
	}

	return err
}

func createDevices(config *HardwareConfig, logger *slog.Logger) (flight.Devices, hw.Indicator, func() error, error) {
	if !config.Enabled {
		logger.Warn("hardware disabled, actuator commands are only logged")

		devices := flight.Devices{
			Airbrake:  &benchActuator{target: hw.Airbrake, logger: logger},
			Parachute: &benchActuator{target: hw.Parachute, logger: logger},
			Proximity: benchProximity{},
		}
		return devices, benchIndicator{logger: logger}, func() error { return nil }, nil
	}

	if err := rpi.Open(); err != nil {
		return flight.Devices{}, nil, nil, err
	}

	steps := []struct {
		msg string
		fn  func(d *flight.Devices) error
	}{
		{"creating airbrake actuator", func(d *flight.Devices) (err error) {
			d.Airbrake, err = rpi.NewPWMActuator(config.Airbrake)
			return err
		}},
		{"creating parachute actuator", func(d *flight.Devices) (err error) {
			d.Parachute, err = rpi.NewPWMActuator(config.Parachute)
			return err
		}},
	}

	var devices flight.Devices
	for _, step := range steps {
		if err := step.fn(&devices); err != nil {
			return flight.Devices{}, nil, nil, errors.Join(fmt.Errorf("%s: %w", step.msg, err), rpi.Close())
		}
	}

	adc, err := rpi.NewMCP3008(config.ProximityChannel)
	if err != nil {
		return flight.Devices{}, nil, nil, errors.Join(fmt.Errorf("creating proximity sensor: %w", err), rpi.Close())
	}
	devices.Proximity = adc

	release := func() error {
		return errors.Join(adc.Close(), rpi.Close())
	}

	return devices, rpi.NewLED(config.StatusLEDPin), release, nil
}

func createTelemetry(config *TelemetryConfig, interval time.Duration, c clock.Clock, logger *slog.Logger) (telemetry.Source, error) {
	var opener telemetry.Opener
	switch config.Source {
	case SourceSerial:
		opener = telemetry.SerialOpener{Port: config.SerialPort, BaudRate: config.BaudRate}

	case SourceReplay:
		f, err := os.Open(config.ReplayFile)
		if err != nil {
			return nil, fmt.Errorf("opening replay file: %w", err)
		}
		defer f.Close()

		replay, err := telemetry.NewReplayOpener(f, c, interval)
		if err != nil {
			return nil, err
		}

		logger.Info("replaying telemetry", slog.String("path", config.ReplayFile), slog.Int("frames", replay.Remaining()))
		opener = replay

	default:
		return nil, fmt.Errorf("unknown telemetry source '%s'", config.Source)
	}

	reader := telemetry.NewReader(opener, c,
		telemetry.WithLogger(logger),
		telemetry.WithFrameTimeout(config.FrameTimeout.D()),
		telemetry.WithReadErrorsThreshold(config.ReadErrorsThreshold))

	return reader, nil
}

func createStorage(config *StorageConfig) (*storage.SqliteStore, error) {
	wd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("failed to get current working directory: %w", err)
	}

	var dbPath string
	switch {
	case filepath.IsAbs(config.DataDirectory):
		dbPath = config.DataDirectory
	case config.DataDirectory != "":
		dbPath = filepath.Join(wd, config.DataDirectory)
	default:
		dbPath = filepath.Join(wd, storageDir)
	}

	stat, err := os.Stat(dbPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("storage directory '%s' does not exist: %w", dbPath, err)
		}
		return nil, fmt.Errorf("checking storage directory '%s': %w", dbPath, err)
	}
	if !stat.IsDir() {
		return nil, fmt.Errorf("invalid storage directory '%s'", dbPath)
	}

	dbPath = filepath.Join(dbPath, fmt.Sprintf("flight_%s.sqlite", time.Now().UTC().Format("20060102_150405")))
	return storage.NewSqliteStore(dbPath), nil
}
