package control

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/roman-kulish/rocket-flight-control/internal/clock"
	"github.com/roman-kulish/rocket-flight-control/internal/detect"
	"github.com/roman-kulish/rocket-flight-control/internal/hw"
	"github.com/roman-kulish/rocket-flight-control/internal/hw/hwtest"
)

func testStart() time.Time {
	return time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
}

func newAirbrake(t *testing.T, cfg AirbrakeConfig) (*AirbrakeController, *hwtest.Actuator, *clock.Manual) {
	t.Helper()

	m := clock.NewManual(testStart())
	act := &hwtest.Actuator{}
	s := hw.NewSweeper(hw.Airbrake, act, m,
		hw.WithRange(0, cfg.MaxPosition),
		hw.WithStep(cfg.Step, cfg.StepDelay.D()))

	return NewAirbrakeController(cfg, s, m), act, m
}

func newParachute(t *testing.T, cfg ParachuteConfig) (*ParachuteController, *hwtest.Actuator, *clock.Manual) {
	t.Helper()

	m := clock.NewManual(testStart())
	act := &hwtest.Actuator{}
	s := hw.NewSweeper(hw.Parachute, act, m, hw.WithRange(0, cfg.MaxExtension))

	return NewParachuteController(cfg, s, m), act, m
}

func TestProjectAltitude(t *testing.T) {
	testCases := []struct {
		name     string
		model    Projection
		altitude int
		rate     float64
		want     float64
	}{
		{"at rest", ProjectionBallistic, 500, 0, 500},
		{"ballistic", ProjectionBallistic, 500, 100, 500 + 0.5*100*100/Gravity},
		{"negative rate adds nothing", ProjectionBallistic, 500, -100, 500},
		{"drag at rest", ProjectionDrag, 500, 0, 500},
		{"drag", ProjectionDrag, 500, 100, 500 + math.Log1p(0.001*100*100/Gravity)/(2*0.001)},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := ProjectAltitude(tc.model, tc.altitude, tc.rate, Gravity, 0.001)
			if math.Abs(got-tc.want) > 1e-9 {
				t.Errorf("Expected %f, got %f", tc.want, got)
			}
		})
	}
}

func TestProjectAltitude_DragBelowBallistic(t *testing.T) {
	for rate := 10.0; rate <= 600; rate += 10 {
		b := ProjectAltitude(ProjectionBallistic, 0, rate, Gravity, 0)
		d := ProjectAltitude(ProjectionDrag, 0, rate, Gravity, 0.0008)
		if d > b {
			t.Fatalf("Drag projection %f above ballistic %f at %f ft/s", d, b, rate)
		}
	}
}

func TestAirbrakeController_CoarseBranch(t *testing.T) {
	cfg := DefaultAirbrakeConfig()
	a, act, m := newAirbrake(t, cfg)

	// 900 ft with no vertical speed left projects to 900: 125 ft above 775
	d := a.Trim(900, 0)

	if d.Mode != ModeCoarse {
		t.Fatalf("Expected coarse branch, got %s", d.Mode)
	}
	if d.Position != cfg.MaxPosition || act.Max() != cfg.MaxPosition {
		t.Errorf("Expected the surface fully open, got %d (max commanded %d)", d.Position, act.Max())
	}
	if last, _ := act.Last(); last != 0 {
		t.Errorf("Expected the cycle to end closed, got %d", last)
	}

	steps := cfg.MaxPosition / cfg.Step
	want := 2*time.Duration(steps)*cfg.StepDelay.D() + cfg.CoarseHold.D()
	if m.Slept() != want {
		t.Errorf("Expected the cycle to block for %s, got %s", want, m.Slept())
	}
	if d.Actuation != m.Slept() {
		t.Errorf("Expected actuation time %s, got %s", m.Slept(), d.Actuation)
	}
}

func TestAirbrakeController_Branches(t *testing.T) {
	cfg := DefaultAirbrakeConfig()

	testCases := []struct {
		name     string
		altitude int
		mode     Mode
		position int
	}{
		{"below target", 700, ModeNone, 0},
		{"on target", 775, ModeNone, 0},
		{"within resolution", 780, ModeNone, 0},
		{"just above resolution", 781, ModeFine, 18},
		{"fine", 790, ModeFine, 45},
		{"just below coarse", 804, ModeFine, 87},
		{"at coarse threshold", 805, ModeCoarse, 90},
		{"far above", 2000, ModeCoarse, 90},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			a, act, m := newAirbrake(t, cfg)

			d := a.Trim(tc.altitude, 0)
			if d.Mode != tc.mode || d.Position != tc.position {
				t.Errorf("Expected %s at %d, got %s at %d", tc.mode, tc.position, d.Mode, d.Position)
			}
			if d.Actuation != m.Slept() {
				t.Errorf("Expected actuation time %s, got %s", m.Slept(), d.Actuation)
			}
			if last, ok := act.Last(); !ok || last != 0 {
				t.Errorf("Expected the cycle to end with a closed command, got %d (%t)", last, ok)
			}
		})
	}
}

func TestAirbrakeController_PositionBounds(t *testing.T) {
	cfg := DefaultAirbrakeConfig()
	a, _, _ := newAirbrake(t, cfg)

	for overshoot := -1000.0; overshoot <= 1000; overshoot += 0.5 {
		p := a.Position(overshoot)
		if p < 0 || p > hw.AirbrakeMax {
			t.Fatalf("Position %d out of range for overshoot %f", p, overshoot)
		}
	}
}

func TestAirbrakeController_CommandsNeverOutOfRange(t *testing.T) {
	cfg := DefaultAirbrakeConfig()
	a, act, _ := newAirbrake(t, cfg)

	for altitude := 0; altitude < 3000; altitude += 7 {
		a.Trim(altitude, 50)
	}

	for _, p := range act.Positions() {
		if p < 0 || p > hw.AirbrakeMax {
			t.Fatalf("Commanded position %d out of range", p)
		}
	}
}

func TestParachuteController_Extension(t *testing.T) {
	cfg := DefaultParachuteConfig()
	p, _, _ := newParachute(t, cfg)

	testCases := []struct {
		name     string
		delta    time.Duration
		mode     Mode
		position int
	}{
		{"early", -5 * time.Second, ModeNone, 0},
		{"at resolution", 100 * time.Millisecond, ModeNone, 0},
		{"proportional", 2 * time.Second, ModeFine, 100},
		{"at coarse", 4 * time.Second, ModeFine, 200},
		{"late", 4*time.Second + time.Millisecond, ModeCoarse, 200},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			mode, position := p.Extension(tc.delta)
			if mode != tc.mode || position != tc.position {
				t.Errorf("Expected %s at %d, got %s at %d", tc.mode, tc.position, mode, position)
			}
		})
	}
}

func TestParachuteController_BandsAreDisjoint(t *testing.T) {
	cfg := DefaultParachuteConfig()
	p, _, _ := newParachute(t, cfg)

	for delta := -10 * time.Second; delta <= 10*time.Second; delta += 10 * time.Millisecond {
		mode, position := p.Extension(delta)

		full := delta > cfg.CoarseDeltaTime.D()
		zero := delta <= cfg.DeltaTimeResolution.D()

		if (mode == ModeCoarse) != full {
			t.Fatalf("Full extension band mismatch at %s", delta)
		}
		if (mode == ModeNone) != zero {
			t.Fatalf("Zero extension band mismatch at %s", delta)
		}
		if position < 0 || position > cfg.MaxExtension {
			t.Fatalf("Position %d out of range at %s", position, delta)
		}
	}
}

func TestParachuteController_Trim(t *testing.T) {
	cfg := DefaultParachuteConfig()
	p, act, m := newParachute(t, cfg)

	// 400 ft at 20 ft/s leaves 20 s; 25 s in, the projected total is 45 s
	records := []detect.Record{
		{Altitude: 410, Rate: 21},
		{Altitude: 400, Rate: 999},
		{Altitude: 390, Rate: 19},
	}

	d, err := p.Trim(records, 25*time.Second)
	if err != nil {
		t.Fatalf("Trim failed: %v", err)
	}
	if d.AvgAltitude != 400 || d.AvgRate != 20 {
		t.Errorf("Expected averages of the first and third records, got %f ft, %f ft/s", d.AvgAltitude, d.AvgRate)
	}
	if d.DeltaTime != 2*time.Second {
		t.Errorf("Expected delta time 2s, got %s", d.DeltaTime)
	}
	if d.Mode != ModeFine || d.Position != 100 {
		t.Errorf("Expected proportional extension 100, got %s at %d", d.Mode, d.Position)
	}
	if last, _ := act.Last(); last != 100 {
		t.Errorf("Expected actuator at 100, got %d", last)
	}
	if want := 100 * cfg.SettlePerUnit.D(); d.Settle != want || m.Slept() != want {
		t.Errorf("Expected settle %s, got %s (slept %s)", want, d.Settle, m.Slept())
	}

	// same position again needs no settling
	d, err = p.Trim(records, 25*time.Second)
	if err != nil {
		t.Fatalf("Trim failed: %v", err)
	}
	if d.Settle != 0 {
		t.Errorf("Expected no settle time without travel, got %s", d.Settle)
	}
}

func TestParachuteController_ForceRetract(t *testing.T) {
	cfg := DefaultParachuteConfig()
	p, act, _ := newParachute(t, cfg)

	if _, err := p.Trim([]detect.Record{{Altitude: 800, Rate: 5}, {}, {Altitude: 800, Rate: 5}}, 0); err != nil {
		t.Fatalf("Trim failed: %v", err)
	}
	if last, _ := act.Last(); last != cfg.MaxExtension {
		t.Fatalf("Expected full extension, got %d", last)
	}

	d, err := p.Trim([]detect.Record{{Altitude: 60, Rate: 5}, {}, {Altitude: 50, Rate: 5}}, 0)
	if err != nil {
		t.Fatalf("Trim failed: %v", err)
	}
	if d.Mode != ModeRetract {
		t.Errorf("Expected forced retraction, got %s", d.Mode)
	}
	if last, _ := act.Last(); last != 0 {
		t.Errorf("Expected actuator retracted, got %d", last)
	}
	if want := time.Duration(cfg.MaxExtension) * cfg.SettlePerUnit.D(); d.Settle != want {
		t.Errorf("Expected settle %s, got %s", want, d.Settle)
	}
}

func TestParachuteController_NoRate(t *testing.T) {
	p, act, _ := newParachute(t, DefaultParachuteConfig())

	d, err := p.Trim([]detect.Record{{Altitude: 500}, {Altitude: 500}, {Altitude: 500}}, 10*time.Second)
	if err != nil {
		t.Fatalf("Trim failed: %v", err)
	}
	if d.Mode != ModeNone || d.Position != 0 {
		t.Errorf("Expected zero extension without a rate, got %s at %d", d.Mode, d.Position)
	}
	if last, _ := act.Last(); last != 0 {
		t.Errorf("Expected actuator at 0, got %d", last)
	}
}

func TestParachuteController_IncompleteCycle(t *testing.T) {
	p, _, _ := newParachute(t, DefaultParachuteConfig())

	if _, err := p.Trim([]detect.Record{{Altitude: 500, Rate: 10}}, 0); !errors.Is(err, ErrIncompleteCycle) {
		t.Errorf("Expected ErrIncompleteCycle, got %v", err)
	}
}

func TestConfig_Validate(t *testing.T) {
	a := DefaultAirbrakeConfig()
	if err := a.Validate(); err != nil {
		t.Fatalf("Default airbrake config must be valid: %v", err)
	}

	a.Projection = "magic"
	if err := a.Validate(); err == nil {
		t.Error("Expected an error for an unknown projection")
	}

	p := DefaultParachuteConfig()
	if err := p.Validate(); err != nil {
		t.Fatalf("Default parachute config must be valid: %v", err)
	}

	p.MaxExtension = hw.ParachuteMax + 1
	if err := p.Validate(); err == nil {
		t.Error("Expected an error for an extension past the actuator range")
	}
}
