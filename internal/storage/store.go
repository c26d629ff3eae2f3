package storage

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Store records flights. Every batch store is a single atomic transaction.
type Store interface {
	// CreateFlight starts a new flight recording and returns its identifier.
	//
	// Parameters:
	//   - ctx: Context for cancellation and timeouts
	//   - id: Globally unique flight identifier
	//   - startTime: When the flight computer started
	//   - config: Optional configuration. Can be string, []byte, or JSON-serializable object
	CreateFlight(ctx context.Context, id uuid.UUID, startTime time.Time, config any) (flightID int64, err error)

	// Flight retrieves a flight by its identifier
	Flight(ctx context.Context, flightID int64) (*Flight, error)

	// Flights returns all recorded flights ordered by identifier
	Flights(ctx context.Context) ([]*Flight, error)

	StoreSamples(ctx context.Context, flightID int64, samples []Sample) error
	StoreTransitions(ctx context.Context, flightID int64, transitions []Transition) error
	StoreCommands(ctx context.Context, flightID int64, commands []Command) error
	StoreCycles(ctx context.Context, flightID int64, cycles []Cycle) error

	Samples(ctx context.Context, flightID int64) ([]Sample, error)
	Transitions(ctx context.Context, flightID int64) ([]Transition, error)
	Commands(ctx context.Context, flightID int64) ([]Command, error)
	Cycles(ctx context.Context, flightID int64) ([]Cycle, error)

	// Close releases all database connections and resources.
	// It is safe to call Close multiple times.
	Close() error
}
