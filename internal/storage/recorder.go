package storage

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/roman-kulish/rocket-flight-control/internal/flight"
	"github.com/roman-kulish/rocket-flight-control/internal/hw"
	"github.com/roman-kulish/rocket-flight-control/internal/telemetry"
)

const (
	defaultQueueSize = 1024
	defaultBatchSize = maxBatchRows
)

var _ flight.Observer = (*Recorder)(nil)

// WithRecorderLogger sets the logger for the recorder
func WithRecorderLogger(logger *slog.Logger) func(*Recorder) {
	return func(r *Recorder) {
		r.logger = logger.With(slog.String("component", "recorder"))
	}
}

// WithQueueSize sets the number of events buffered between the control loop
// and the database writer
func WithQueueSize(size int) func(*Recorder) {
	return func(r *Recorder) {
		r.queueSize = size
	}
}

// WithBatchSize sets the number of rows of a kind collected before they are
// stored within a single database transaction
func WithBatchSize(size int) func(*Recorder) {
	return func(r *Recorder) {
		r.batchSize = size
	}
}

// Recorder persists everything the flight loop observes. The observer
// methods never block: events are queued and written by a background
// goroutine, and events that do not fit into the queue are dropped.
type Recorder struct {
	store    Store
	flightID int64

	queueSize int
	batchSize int

	events chan any
	done   chan struct{}

	samples     []Sample
	transitions []Transition
	commands    []Command
	cycles      []Cycle

	dropped   atomic.Int64
	closeOnce sync.Once

	logger *slog.Logger
}

// NewRecorder starts recording events of a flight into the store
func NewRecorder(store Store, flightID int64, options ...func(*Recorder)) *Recorder {
	r := Recorder{
		store:     store,
		flightID:  flightID,
		queueSize: defaultQueueSize,
		batchSize: defaultBatchSize,
		done:      make(chan struct{}),
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	}

	for _, option := range options {
		option(&r)
	}

	r.events = make(chan any, r.queueSize)

	go r.run()

	return &r
}

// FlightID returns the identifier of the recorded flight
func (r *Recorder) FlightID() int64 {
	return r.flightID
}

// Dropped returns the number of events lost because the queue was full
func (r *Recorder) Dropped() int64 {
	return r.dropped.Load()
}

func (r *Recorder) ObserveSample(s telemetry.Sample, state flight.State) {
	r.enqueue(Sample{
		FlightID:  r.flightID,
		Timestamp: s.Time,
		Altitude:  s.Altitude,
		Garbled:   s.Garbled,
		State:     state.String(),
	})
}

func (r *Recorder) ObserveTransition(from, to flight.State, at time.Time) {
	r.enqueue(Transition{
		FlightID:  r.flightID,
		Timestamp: at,
		From:      from.String(),
		To:        to.String(),
	})
}

func (r *Recorder) ObserveCommand(cmd hw.Command, at time.Time) {
	r.enqueue(Command{
		FlightID:  r.flightID,
		Timestamp: at,
		Target:    cmd.Target.String(),
		Position:  cmd.Position,
	})
}

func (r *Recorder) ObserveCycle(c flight.CycleReport) {
	r.enqueue(Cycle{
		FlightID: r.flightID,
		Number:   c.Number,
		State:    c.State.String(),
		Start:    c.Start,
		Duration: c.Duration,
		Rejected: c.Rejected,
		Overrun:  c.Overrun,
		Error:    toNullString(c.Err),
	})
}

// Close stores everything queued and waits for the writer to finish. The
// recorder must not be observed after Close.
func (r *Recorder) Close() error {
	r.closeOnce.Do(func() {
		close(r.events)
	})
	<-r.done

	if n := r.dropped.Load(); n > 0 {
		return fmt.Errorf("recorder dropped %d events", n)
	}
	return nil
}

func (r *Recorder) enqueue(event any) {
	select {
	case r.events <- event:
	default:
		r.dropped.Add(1)
	}
}

func (r *Recorder) run() {
	defer close(r.done)

	for event := range r.events {
		switch e := event.(type) {
		case Sample:
			r.samples = append(r.samples, e)
		case Transition:
			r.transitions = append(r.transitions, e)
		case Command:
			r.commands = append(r.commands, e)
		case Cycle:
			r.cycles = append(r.cycles, e)
		}

		// phase changes are stored right away, with everything leading up to them
		_, transition := event.(Transition)
		if transition || r.pending() >= r.batchSize {
			r.flush()
		}
	}

	r.flush()
}

func (r *Recorder) pending() int {
	return max(len(r.samples), len(r.transitions), len(r.commands), len(r.cycles))
}

func (r *Recorder) flush() {
	ctx := context.Background()

	steps := []struct {
		msg string
		fn  func(context.Context) error
	}{
		{msg: "storing samples", fn: func(ctx context.Context) error {
			return r.store.StoreSamples(ctx, r.flightID, r.samples)
		}},
		{msg: "storing transitions", fn: func(ctx context.Context) error {
			return r.store.StoreTransitions(ctx, r.flightID, r.transitions)
		}},
		{msg: "storing commands", fn: func(ctx context.Context) error {
			return r.store.StoreCommands(ctx, r.flightID, r.commands)
		}},
		{msg: "storing cycles", fn: func(ctx context.Context) error {
			return r.store.StoreCycles(ctx, r.flightID, r.cycles)
		}},
	}
	for _, s := range steps {
		if err := s.fn(ctx); err != nil {
			r.logger.Error(fmt.Sprintf("%s: %s", s.msg, err.Error()))
		}
	}

	r.samples = r.samples[:0]
	r.transitions = r.transitions[:0]
	r.commands = r.commands[:0]
	r.cycles = r.cycles[:0]
}
