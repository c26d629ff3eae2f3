package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/roman-kulish/rocket-flight-control/internal/clock"
	"github.com/roman-kulish/rocket-flight-control/internal/flight"
	"github.com/roman-kulish/rocket-flight-control/internal/metrics"
	"github.com/roman-kulish/rocket-flight-control/internal/storage"
	"github.com/roman-kulish/rocket-flight-control/internal/telemetry"
)

const (
	queueSize    = 1024
	maxBatchSize = 100
)

// WithMaxBatchSize sets the maximum number of recorded rows stored within a
// single database transaction.
func WithMaxBatchSize(size int) func(*Orchestrator) {
	return func(o *Orchestrator) {
		o.maxBatchSize = size
	}
}

// WithQueueSize sets the number of flight events buffered for the recorder
func WithQueueSize(size int) func(*Orchestrator) {
	return func(o *Orchestrator) {
		o.queueSize = size
	}
}

// WithMetrics attaches the metrics observer to the flight
func WithMetrics(m *metrics.Metrics) func(*Orchestrator) {
	return func(o *Orchestrator) {
		o.metrics = m
	}
}

// WithClock replaces the system clock
func WithClock(c clock.Clock) func(*Orchestrator) {
	return func(o *Orchestrator) {
		o.clock = c
	}
}

// Orchestrator runs one flight: it opens a flight session in the store,
// records every sample, transition, command and cycle of the state machine
// and closes the session once the machine returns.
type Orchestrator struct {
	store   storage.Store
	metrics *metrics.Metrics
	clock   clock.Clock
	logger  *slog.Logger

	queueSize    int
	maxBatchSize int

	flightID int64
	machine  *flight.Machine
}

// NewOrchestrator creates a new Orchestrator
func NewOrchestrator(store storage.Store, logger *slog.Logger, options ...func(*Orchestrator)) *Orchestrator {
	o := Orchestrator{
		store:        store,
		clock:        clock.System{},
		logger:       logger,
		queueSize:    queueSize,
		maxBatchSize: maxBatchSize,
	}

	for _, option := range options {
		option(&o)
	}

	return &o
}

// FlightID returns the recorder session of the last flight
func (o *Orchestrator) FlightID() int64 {
	return o.flightID
}

// Machine returns the state machine of the last flight
func (o *Orchestrator) Machine() *flight.Machine {
	return o.machine
}

// Run flies the rocket with the given parameters until the state machine returns
func (o *Orchestrator) Run(ctx context.Context, params flight.Params, source telemetry.Source, devices flight.Devices) (err error) {
	id := uuid.New()
	if o.flightID, err = o.store.CreateFlight(ctx, id, o.clock.Now().UTC(), params); err != nil {
		return fmt.Errorf("creating flight session: %w", err)
	}

	o.logger.Info("flight session created", slog.Int64("flightId", o.flightID), slog.String("uuid", id.String()))

	recorder := storage.NewRecorder(o.store, o.flightID,
		storage.WithRecorderLogger(o.logger),
		storage.WithQueueSize(o.queueSize),
		storage.WithBatchSize(o.maxBatchSize))

	options := []func(*flight.Machine){
		flight.WithLogger(o.logger),
		flight.WithObserver(recorder),
	}
	if o.metrics != nil {
		options = append(options, flight.WithObserver(o.metrics))
	}

	o.machine = flight.NewMachine(params, source, devices, o.clock, options...)

	start := o.clock.Now()
	runErr := o.machine.Run(ctx)

	if cErr := recorder.Close(); cErr != nil {
		cErr = fmt.Errorf("closing flight recorder: %w", cErr)
		runErr = errors.Join(runErr, cErr)
	}

	o.logger.Info("flight session closed",
		slog.Int64("flightId", o.flightID),
		slog.String("state", o.machine.State().String()),
		slog.Duration("duration", o.clock.Now().Sub(start).Round(time.Millisecond)))

	return runErr
}

// closeWithError closes c and joins a close error into err
func closeWithError(c io.Closer, err *error, what string) {
	if cErr := c.Close(); cErr != nil {
		*err = errors.Join(*err, fmt.Errorf("closing %s: %w", what, cErr))
	}
}
