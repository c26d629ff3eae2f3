package app

import (
	"log/slog"
	"strings"
	"testing"
	"time"
)

func TestLoadConfig_Example(t *testing.T) {
	config, err := LoadConfig("../config.example.yaml")
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if config.Telemetry.Source != SourceSerial || config.Telemetry.FrameTimeout.D() != 2*time.Second {
		t.Errorf("Unexpected telemetry config %+v", config.Telemetry)
	}
	if config.Airbrake.DesiredAltitude != 775 || config.Parachute.TargetTime.D() != 43*time.Second {
		t.Errorf("Unexpected control config %+v %+v", config.Airbrake, config.Parachute)
	}
	if config.Flight.MotorBurnTime.D() != 1600*time.Millisecond {
		t.Errorf("Expected motor burn time 1.6s, got %s", config.Flight.MotorBurnTime)
	}
	if config.Hardware.Parachute.MaxPos != 255 {
		t.Errorf("Expected parachute travel 255, got %d", config.Hardware.Parachute.MaxPos)
	}
}

func TestParseConfig_Defaults(t *testing.T) {
	config, err := ParseConfig([]byte("airbrake:\n  desiredAltitude: 800\n"))
	if err != nil {
		t.Fatalf("ParseConfig failed: %v", err)
	}

	want := DefaultConfig()
	if config.Airbrake.DesiredAltitude != 800 {
		t.Errorf("Expected desired altitude 800, got %d", config.Airbrake.DesiredAltitude)
	}
	if config.Airbrake.CoarseThreshold != want.Airbrake.CoarseThreshold {
		t.Errorf("Expected the default coarse threshold to survive, got %d", config.Airbrake.CoarseThreshold)
	}
	if config.Detect != want.Detect {
		t.Errorf("Expected default detection config, got %+v", config.Detect)
	}

	level, err := config.Settings.Level()
	if err != nil || level != slog.LevelInfo {
		t.Errorf("Expected info level, got %s (%v)", level, err)
	}
}

func TestParseConfig_Invalid(t *testing.T) {
	testCases := []struct {
		name string
		yaml string
		want string
	}{
		{"log level", "settings:\n  logLevel: loud\n", "app.Settings"},
		{"source", "telemetry:\n  source: radio\n", "unknown source"},
		{"replay without file", "telemetry:\n  source: replay\n", "replay file is required"},
		{"frame timeout", "telemetry:\n  frameTimeout: 0s\n", "frame timeout"},
		{"shared pin", "hardware:\n  parachute:\n    pin: 12\n", "share pin"},
		{"no pwm", "hardware:\n  airbrake:\n    pin: 4\n", "rpi.PWMConfig"},
		{"batch size", "storage:\n  maxBatchSize: 0\n", "app.StorageConfig"},
		{"duration", "flight:\n  motorBurnTime: soon\n", "clock.Duration"},
		{"landed above final", "flight:\n  landedAltitude: 150\n", "landed altitude"},
		{"airbrake", "airbrake:\n  desiredAltitude: 0\n", "control.AirbrakeConfig"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParseConfig([]byte(tc.yaml))
			if err == nil {
				t.Fatal("Expected an error")
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Errorf("Expected error containing %q, got %v", tc.want, err)
			}
		})
	}
}

func TestParseConfig_HardwareDisabled(t *testing.T) {
	yaml := "hardware:\n  enabled: false\n  airbrake:\n    pin: 4\n"
	if _, err := ParseConfig([]byte(yaml)); err != nil {
		t.Errorf("Disabled hardware must not be validated, got %v", err)
	}
}
