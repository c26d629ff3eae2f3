package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/roman-kulish/rocket-flight-control/internal/flight"
	"github.com/roman-kulish/rocket-flight-control/internal/hw"
	"github.com/roman-kulish/rocket-flight-control/internal/telemetry"
)

func testStart() time.Time {
	return time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
}

func newTestStore(t *testing.T) *SqliteStore {
	t.Helper()

	s := NewSqliteStore(filepath.Join(t.TempDir(), "flight.sqlite"))
	t.Cleanup(func() {
		if err := s.Close(); err != nil {
			t.Errorf("Closing store: %v", err)
		}
	})
	return s
}

func TestSqliteStore_CreateFlight(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	id := uuid.New()
	config := map[string]int{"desiredAltitude": 775}

	flightID, err := s.CreateFlight(ctx, id, testStart(), config)
	if err != nil {
		t.Fatalf("CreateFlight failed: %v", err)
	}

	f, err := s.Flight(ctx, flightID)
	if err != nil {
		t.Fatalf("Flight failed: %v", err)
	}
	if f.UUID != id {
		t.Errorf("Expected uuid %s, got %s", id, f.UUID)
	}
	if !f.StartTime.Equal(testStart()) {
		t.Errorf("Expected start time %s, got %s", testStart(), f.StartTime)
	}
	if !f.Config.Valid || f.Config.String != `{"desiredAltitude":775}` {
		t.Errorf("Unexpected config %+v", f.Config)
	}

	if _, err = s.CreateFlight(ctx, uuid.New(), testStart(), nil); err != nil {
		t.Fatalf("CreateFlight failed: %v", err)
	}

	flights, err := s.Flights(ctx)
	if err != nil {
		t.Fatalf("Flights failed: %v", err)
	}
	if len(flights) != 2 || flights[0].ID != flightID || flights[1].Config.Valid {
		t.Errorf("Unexpected flights %+v", flights)
	}
}

func TestSqliteStore_RoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	flightID, err := s.CreateFlight(ctx, uuid.New(), testStart(), "{}")
	if err != nil {
		t.Fatalf("CreateFlight failed: %v", err)
	}

	// more rows than fit into one statement
	samples := make([]Sample, 250)
	for i := range samples {
		samples[i] = Sample{
			Timestamp: testStart().Add(time.Duration(i) * 100 * time.Millisecond),
			Altitude:  i * 3,
			Garbled:   i == 7,
			State:     flight.Prelaunch.String(),
		}
	}
	if err = s.StoreSamples(ctx, flightID, samples); err != nil {
		t.Fatalf("StoreSamples failed: %v", err)
	}

	got, err := s.Samples(ctx, flightID)
	if err != nil {
		t.Fatalf("Samples failed: %v", err)
	}
	if len(got) != len(samples) {
		t.Fatalf("Expected %d samples, got %d", len(samples), len(got))
	}
	for i := range got {
		if got[i].Altitude != samples[i].Altitude || !got[i].Timestamp.Equal(samples[i].Timestamp) || got[i].Garbled != samples[i].Garbled {
			t.Fatalf("Sample %d: expected %+v, got %+v", i, samples[i], got[i])
		}
	}

	cycles := []Cycle{
		{Number: 1, State: "PRELAUNCH", Start: testStart(), Duration: 120 * time.Millisecond, Overrun: true},
		{Number: 2, State: "PRELAUNCH", Start: testStart(), Duration: 90 * time.Millisecond, Error: toNullString(errors.New("telemetry frame timeout"))},
	}
	if err = s.StoreCycles(ctx, flightID, cycles); err != nil {
		t.Fatalf("StoreCycles failed: %v", err)
	}

	gotCycles, err := s.Cycles(ctx, flightID)
	if err != nil {
		t.Fatalf("Cycles failed: %v", err)
	}
	if len(gotCycles) != 2 || gotCycles[0].Duration != 120*time.Millisecond || !gotCycles[0].Overrun {
		t.Fatalf("Unexpected cycles %+v", gotCycles)
	}
	if !gotCycles[1].Error.Valid || gotCycles[1].Error.String != "telemetry frame timeout" {
		t.Errorf("Expected the cycle error to be stored, got %+v", gotCycles[1].Error)
	}
}

func TestSqliteStore_UnknownFlight(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if _, err := s.CreateFlight(ctx, uuid.New(), testStart(), nil); err != nil {
		t.Fatalf("CreateFlight failed: %v", err)
	}

	err := s.StoreSamples(ctx, 42, []Sample{{Timestamp: testStart(), State: "LANDED"}})
	if err == nil {
		t.Error("Expected a foreign key error for an unknown flight")
	}
}

func TestRecorder(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	flightID, err := s.CreateFlight(ctx, uuid.New(), testStart(), nil)
	if err != nil {
		t.Fatalf("CreateFlight failed: %v", err)
	}

	r := NewRecorder(s, flightID, WithBatchSize(10))

	at := testStart()
	for i := 0; i < 25; i++ {
		at = at.Add(100 * time.Millisecond)
		r.ObserveSample(telemetry.Sample{Altitude: i * 10, Time: at}, flight.Prelaunch)
		r.ObserveCycle(flight.CycleReport{Number: i + 1, State: flight.Prelaunch, Start: at, Duration: 100 * time.Millisecond})
	}
	r.ObserveTransition(flight.Prelaunch, flight.PoweredAscentWait, at)
	r.ObserveCommand(hw.Command{Target: hw.Airbrake, Position: 45}, at)
	r.ObserveCommand(hw.Command{Target: hw.Airbrake, Position: 0}, at)

	if err = r.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	samples, err := s.Samples(ctx, flightID)
	if err != nil {
		t.Fatalf("Samples failed: %v", err)
	}
	if len(samples) != 25 || samples[24].Altitude != 240 {
		t.Errorf("Expected 25 recorded samples, got %d", len(samples))
	}

	transitions, err := s.Transitions(ctx, flightID)
	if err != nil {
		t.Fatalf("Transitions failed: %v", err)
	}
	if len(transitions) != 1 || transitions[0].From != "PRELAUNCH" || transitions[0].To != "POWERED_ASCENT_WAIT" {
		t.Errorf("Unexpected transitions %+v", transitions)
	}

	commands, err := s.Commands(ctx, flightID)
	if err != nil {
		t.Fatalf("Commands failed: %v", err)
	}
	if len(commands) != 2 || commands[0].Target != "airbrake" || commands[0].Position != 45 {
		t.Errorf("Unexpected commands %+v", commands)
	}

	cycles, err := s.Cycles(ctx, flightID)
	if err != nil {
		t.Fatalf("Cycles failed: %v", err)
	}
	if len(cycles) != 25 {
		t.Errorf("Expected 25 cycles, got %d", len(cycles))
	}
}

func TestRecorder_DropsWhenFull(t *testing.T) {
	blocked := &blockingStore{release: make(chan struct{})}
	r := NewRecorder(blocked, 1, WithQueueSize(1), WithBatchSize(1))

	for i := 0; i < 10; i++ {
		r.ObserveSample(telemetry.Sample{Altitude: i, Time: testStart()}, flight.Prelaunch)
	}

	if r.Dropped() == 0 {
		t.Error("Expected events to be dropped while the writer is blocked")
	}

	close(blocked.release)
	if err := r.Close(); err == nil {
		t.Error("Expected Close to report dropped events")
	}
}

// blockingStore blocks sample writes until released
type blockingStore struct {
	Store
	release chan struct{}
}

func (b *blockingStore) StoreSamples(context.Context, int64, []Sample) error {
	<-b.release
	return nil
}

func (b *blockingStore) StoreTransitions(context.Context, int64, []Transition) error {
	return nil
}

func (b *blockingStore) StoreCommands(context.Context, int64, []Command) error {
	return nil
}

func (b *blockingStore) StoreCycles(context.Context, int64, []Cycle) error {
	return nil
}
