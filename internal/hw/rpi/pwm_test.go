package rpi

import (
	"errors"
	"testing"

	"github.com/roman-kulish/rocket-flight-control/internal/hw"
)

func TestDutyCycleFor(t *testing.T) {
	c := PWMConfig{Pin: 12, MaxPos: 90, MinPulse: 1000, MaxPulse: 2000}

	testCases := []struct {
		name     string
		inverted bool
		position int
		want     uint32
	}{
		{"closed", false, 0, 1000},
		{"half", false, 45, 1500},
		{"open", false, 90, 2000},
		{"clamped high", false, 180, 2000},
		{"clamped low", false, -5, 1000},
		{"inverted closed", true, 0, 2000},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := c
			cfg.Inverted = tc.inverted
			if got := dutyCycleFor(cfg, tc.position); got != tc.want {
				t.Errorf("Expected duty %d, got %d", tc.want, got)
			}
		})
	}
}

func TestPWMConfig_Validate(t *testing.T) {
	testCases := []struct {
		name   string
		config PWMConfig
	}{
		{"no hardware pwm", PWMConfig{Pin: 4, MaxPos: 90, MinPulse: 1000, MaxPulse: 2000}},
		{"no travel", PWMConfig{Pin: 12, MaxPos: 0, MinPulse: 1000, MaxPulse: 2000}},
		{"inverted pulses", PWMConfig{Pin: 12, MaxPos: 90, MinPulse: 2000, MaxPulse: 1000}},
		{"pulse too long", PWMConfig{Pin: 12, MaxPos: 90, MinPulse: 1000, MaxPulse: 30000}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			var cfgErr *hw.ConfigError
			if err := tc.config.Validate(); !errors.As(err, &cfgErr) {
				t.Errorf("Expected a ConfigError, got %v", err)
			}
		})
	}
}
