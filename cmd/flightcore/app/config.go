package app

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/roman-kulish/rocket-flight-control/internal/clock"
	"github.com/roman-kulish/rocket-flight-control/internal/flight"
	"github.com/roman-kulish/rocket-flight-control/internal/hw"
	"github.com/roman-kulish/rocket-flight-control/internal/hw/rpi"
	"github.com/roman-kulish/rocket-flight-control/internal/telemetry"
)

const (
	SourceSerial TelemetrySource = "serial"
	SourceReplay TelemetrySource = "replay"
)

type TelemetrySource string

// Config represents the main application configuration
type Config struct {
	Settings  Settings        `yaml:"settings"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
	Hardware  HardwareConfig  `yaml:"hardware"`
	Storage   StorageConfig   `yaml:"storage"`
	LogSink   LogSinkConfig   `yaml:"logSink"`
	Metrics   MetricsConfig   `yaml:"metrics"`

	flight.Params `yaml:",inline"`
}

// Settings represents global application settings
type Settings struct {
	LogLevel string `yaml:"logLevel"`
}

// TelemetryConfig represents the altimeter link settings
type TelemetryConfig struct {
	Source              TelemetrySource `yaml:"source"`
	SerialPort          string          `yaml:"serialPort"`
	BaudRate            int             `yaml:"baudRate"`
	ReplayFile          string          `yaml:"replayFile"`
	FrameTimeout        clock.Duration  `yaml:"frameTimeout"`
	ReadErrorsThreshold uint8           `yaml:"readErrorsThreshold"`
}

// HardwareConfig represents the actuators, the proximity sensor and the status LED
type HardwareConfig struct {
	Enabled          bool          `yaml:"enabled"`
	Airbrake         rpi.PWMConfig `yaml:"airbrake"`
	Parachute        rpi.PWMConfig `yaml:"parachute"`
	ProximityChannel uint8         `yaml:"proximityChannel"`
	StatusLEDPin     int           `yaml:"statusLedPin"`
}

// StorageConfig represents flight recorder settings
type StorageConfig struct {
	DataDirectory string `yaml:"dataDirectory"`
	QueueSize     int    `yaml:"queueSize"`
	MaxBatchSize  int    `yaml:"maxBatchSize"`
}

// LogSinkConfig represents the append-only text log
type LogSinkConfig struct {
	Path string `yaml:"path"`
}

// MetricsConfig represents the metrics textfile written after the flight
type MetricsConfig struct {
	TextfilePath string `yaml:"textfilePath"`
}

// DefaultConfig returns the configuration used when a key is absent from the file
func DefaultConfig() *Config {
	return &Config{
		Settings: Settings{LogLevel: "info"},
		Telemetry: TelemetryConfig{
			Source:              SourceSerial,
			SerialPort:          "/dev/ttyUSB0",
			BaudRate:            telemetry.DefaultBaudRate,
			FrameTimeout:        clock.NewDuration(telemetry.DefaultFrameTimeout),
			ReadErrorsThreshold: telemetry.ReadErrorsThreshold,
		},
		Hardware: HardwareConfig{
			Enabled:          true,
			Airbrake:         rpi.PWMConfig{Pin: 12, MaxPos: hw.AirbrakeMax, MinPulse: 1000, MaxPulse: 2000},
			Parachute:        rpi.PWMConfig{Pin: 13, MaxPos: hw.ParachuteMax, MinPulse: 1000, MaxPulse: 2000},
			ProximityChannel: 0,
			StatusLEDPin:     17,
		},
		Storage: StorageConfig{
			DataDirectory: storageDir,
			QueueSize:     1024,
			MaxBatchSize:  100,
		},
		Params: flight.DefaultParams(),
	}
}

// LoadConfig reads the YAML configuration file at path on top of the defaults
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading configuration: %w", err)
	}
	return ParseConfig(data)
}

// ParseConfig decodes a YAML document on top of the defaults and validates it
func ParseConfig(data []byte) (*Config, error) {
	config := DefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("decoding configuration: %w", err)
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

func (c *Config) Validate() error {
	if _, err := c.Settings.Level(); err != nil {
		return err
	}
	if err := c.Telemetry.Validate(); err != nil {
		return err
	}
	if c.Hardware.Enabled {
		if err := c.Hardware.Validate(); err != nil {
			return err
		}
	}
	if c.Storage.QueueSize <= 0 || c.Storage.MaxBatchSize <= 0 {
		return errors.New("app.StorageConfig: queue and batch sizes must be positive")
	}
	return c.Params.Validate()
}

// Level parses the configured log level
func (s *Settings) Level() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s.LogLevel)); err != nil {
		return level, fmt.Errorf("app.Settings: invalid log level '%s'", s.LogLevel)
	}
	return level, nil
}

func (c *TelemetryConfig) Validate() error {
	switch c.Source {
	case SourceSerial:
		if c.SerialPort == "" {
			return errors.New("app.TelemetryConfig: serial port is required")
		}
	case SourceReplay:
		if c.ReplayFile == "" {
			return errors.New("app.TelemetryConfig: replay file is required")
		}
	default:
		return fmt.Errorf("app.TelemetryConfig: unknown source '%s'", c.Source)
	}

	if c.FrameTimeout.D() <= 0 {
		return fmt.Errorf("app.TelemetryConfig: frame timeout must be positive: %s given", c.FrameTimeout)
	}
	if c.FrameTimeout.D() > 10*time.Second {
		return fmt.Errorf("app.TelemetryConfig: frame timeout is too long: %s given", c.FrameTimeout)
	}
	if c.ReadErrorsThreshold == 0 {
		return errors.New("app.TelemetryConfig: read errors threshold must be positive")
	}
	return nil
}

func (c *HardwareConfig) Validate() error {
	if err := c.Airbrake.Validate(); err != nil {
		return err
	}
	if err := c.Parachute.Validate(); err != nil {
		return err
	}
	if c.Airbrake.Pin == c.Parachute.Pin {
		return fmt.Errorf("app.HardwareConfig: airbrake and parachute share pin %d", c.Airbrake.Pin)
	}
	if c.ProximityChannel > 7 {
		return fmt.Errorf("app.HardwareConfig: proximity channel must be between 0 and 7: %d given", c.ProximityChannel)
	}
	return nil
}
