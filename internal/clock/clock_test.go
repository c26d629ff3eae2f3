package clock

import (
	"errors"
	"testing"
	"time"

	"gopkg.in/yaml.v3"
)

func TestFlightClock_MarkLaunchOnce(t *testing.T) {
	start := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	m := NewManual(start)
	fc := NewFlightClock(m)

	if fc.Launched() {
		t.Fatal("flight clock should not be launched before MarkLaunch")
	}
	if got := fc.Elapsed(); got != 0 {
		t.Errorf("Expected zero elapsed time before launch, got %s", got)
	}

	if err := fc.MarkLaunch(start); err != nil {
		t.Fatalf("MarkLaunch failed: %v", err)
	}

	m.Advance(1500 * time.Millisecond)
	if got := fc.Elapsed(); got != 1500*time.Millisecond {
		t.Errorf("Expected elapsed 1.5s, got %s", got)
	}

	if err := fc.MarkLaunch(start.Add(time.Second)); !errors.Is(err, ErrAlreadyLaunched) {
		t.Errorf("Expected ErrAlreadyLaunched, got %v", err)
	}
	if !fc.LaunchTime().Equal(start) {
		t.Errorf("Launch time changed after second MarkLaunch: %s", fc.LaunchTime())
	}
}

func TestManual_Sleep(t *testing.T) {
	start := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	m := NewManual(start)

	m.Sleep(100 * time.Millisecond)
	m.Sleep(-time.Second)
	m.Advance(time.Second)

	if got := m.Slept(); got != 100*time.Millisecond {
		t.Errorf("Expected 100ms slept, got %s", got)
	}
	if got := m.Now().Sub(start); got != 1100*time.Millisecond {
		t.Errorf("Expected clock at +1.1s, got +%s", got)
	}
}

func TestManual_After(t *testing.T) {
	start := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	m := NewManual(start)

	c := m.After(time.Second)
	if m.Waiters() != 1 {
		t.Fatalf("Expected one waiter, got %d", m.Waiters())
	}

	m.Advance(999 * time.Millisecond)
	select {
	case <-c:
		t.Fatal("After fired before its deadline")
	default:
	}

	m.Sleep(time.Millisecond)
	select {
	case at := <-c:
		if !at.Equal(start.Add(time.Second)) {
			t.Errorf("Expected delivery at +1s, got %s", at)
		}
	default:
		t.Fatal("After did not fire at its deadline")
	}
	if m.Waiters() != 0 {
		t.Errorf("Expected no waiters, got %d", m.Waiters())
	}

	select {
	case <-m.After(0):
	default:
		t.Error("After(0) must fire immediately")
	}
}

func TestDuration_YAML(t *testing.T) {
	var v struct {
		Delay Duration `yaml:"delay"`
	}

	if err := yaml.Unmarshal([]byte("delay: 250ms\n"), &v); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if v.Delay.D() != 250*time.Millisecond {
		t.Errorf("Expected 250ms, got %s", v.Delay)
	}

	if err := yaml.Unmarshal([]byte("delay: soon\n"), &v); err == nil {
		t.Error("Expected an error for an invalid duration")
	}
}
