package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

// maxBatchRows bounds the rows of a single INSERT statement
const maxBatchRows = 100

var _ Store = (*SqliteStore)(nil)

// SqliteStore handles database operations
type SqliteStore struct {
	dbPath string

	writeDB     *sql.DB
	writeDBOnce sync.Once
	writeDBErr  error

	readDB     *sql.DB
	readDBOnce sync.Once
	readDBErr  error

	closeOnce sync.Once
	closeErr  error
}

// NewSqliteStore creates a store backed by the Sqlite database at dbPath.
// Connections are opened and the schema initialized on first use.
func NewSqliteStore(dbPath string) *SqliteStore {
	return &SqliteStore{dbPath: dbPath}
}

func runSQLCommand(db *sql.DB, sql string) error {
	_, err := db.Exec(sql)
	return err
}

func (s *SqliteStore) getWriteDB() (*sql.DB, error) {
	s.writeDBOnce.Do(func() {
		db, err := sql.Open("sqlite3", fmt.Sprintf("file:%s?%s", s.dbPath, "_journal_mode=WAL&_synchronous=NORMAL&_foreign_keys=on"))
		if err != nil {
			s.writeDBErr = fmt.Errorf("opening write connection: %w", err)
			return
		}

		if err = runSQLCommand(db, initSchemaSQL); err != nil {
			_ = db.Close()
			s.writeDBErr = fmt.Errorf("initializing schema: %w", err)
			return
		}

		s.writeDB = db
	})

	return s.writeDB, s.writeDBErr
}

func (s *SqliteStore) getReadDB() (*sql.DB, error) {
	s.readDBOnce.Do(func() {
		db, err := sql.Open("sqlite3", fmt.Sprintf("file:%s?%s", s.dbPath, "mode=ro"))
		if err != nil {
			s.readDBErr = fmt.Errorf("opening read connection: %w", err)
			return
		}
		s.readDB = db
	})

	return s.readDB, s.readDBErr
}

func (s *SqliteStore) CreateFlight(ctx context.Context, id uuid.UUID, startTime time.Time, config any) (flightID int64, err error) {
	configData, err := toConfigData(config)
	if err != nil {
		return
	}

	db, err := s.getWriteDB()
	if err != nil {
		err = fmt.Errorf("getting write connection: %w", err)
		return
	}

	stmt, err := db.PrepareContext(ctx, insertFlightSQL)
	if err != nil {
		err = fmt.Errorf("preparing statement: %w", err)
		return
	}
	defer closeWithError(stmt, &err)

	result, err := stmt.ExecContext(ctx, id.String(), startTime.UTC(), configData)
	if err != nil {
		err = fmt.Errorf("inserting flight: %w", err)
		return
	}

	flightID, err = result.LastInsertId()
	if err != nil {
		err = fmt.Errorf("getting flight ID: %w", err)
	}
	return
}

func (s *SqliteStore) Flight(ctx context.Context, flightID int64) (flight *Flight, err error) {
	db, err := s.getReadDB()
	if err != nil {
		err = fmt.Errorf("getting read connection: %w", err)
		return
	}

	stmt, err := db.PrepareContext(ctx, selectFlightSQL)
	if err != nil {
		err = fmt.Errorf("preparing statement: %w", err)
		return
	}
	defer closeWithError(stmt, &err)

	var f Flight
	if err = stmt.QueryRowContext(ctx, flightID).Scan(&f.ID, &f.UUID, &f.StartTime, &f.Config); err != nil {
		err = fmt.Errorf("scanning flight: %w", err)
		return
	}

	return &f, nil
}

func (s *SqliteStore) Flights(ctx context.Context) (flights []*Flight, err error) {
	err = s.query(ctx, selectFlightsSQL, func(rows *sql.Rows) error {
		var f Flight
		if err := rows.Scan(&f.ID, &f.UUID, &f.StartTime, &f.Config); err != nil {
			return fmt.Errorf("scanning flight: %w", err)
		}
		flights = append(flights, &f)
		return nil
	})
	return
}

func (s *SqliteStore) StoreSamples(ctx context.Context, flightID int64, samples []Sample) error {
	return batchInsert(ctx, s, insertSamplesSQL, 5, samples, func(v Sample) []any {
		return []any{flightID, v.Timestamp.UTC(), v.Altitude, v.Garbled, v.State}
	})
}

func (s *SqliteStore) StoreTransitions(ctx context.Context, flightID int64, transitions []Transition) error {
	return batchInsert(ctx, s, insertTransitionsSQL, 4, transitions, func(v Transition) []any {
		return []any{flightID, v.Timestamp.UTC(), v.From, v.To}
	})
}

func (s *SqliteStore) StoreCommands(ctx context.Context, flightID int64, commands []Command) error {
	return batchInsert(ctx, s, insertCommandsSQL, 4, commands, func(v Command) []any {
		return []any{flightID, v.Timestamp.UTC(), v.Target, v.Position}
	})
}

func (s *SqliteStore) StoreCycles(ctx context.Context, flightID int64, cycles []Cycle) error {
	return batchInsert(ctx, s, insertCyclesSQL, 8, cycles, func(v Cycle) []any {
		return []any{flightID, v.Number, v.State, v.Start.UTC(), int64(v.Duration), v.Rejected, v.Overrun, v.Error}
	})
}

func (s *SqliteStore) Samples(ctx context.Context, flightID int64) (samples []Sample, err error) {
	err = s.query(ctx, selectSamplesSQL, func(rows *sql.Rows) error {
		var v Sample
		if err := rows.Scan(&v.FlightID, &v.Timestamp, &v.Altitude, &v.Garbled, &v.State); err != nil {
			return fmt.Errorf("scanning sample: %w", err)
		}
		samples = append(samples, v)
		return nil
	}, flightID)
	return
}

func (s *SqliteStore) Transitions(ctx context.Context, flightID int64) (transitions []Transition, err error) {
	err = s.query(ctx, selectTransitionsSQL, func(rows *sql.Rows) error {
		var v Transition
		if err := rows.Scan(&v.FlightID, &v.Timestamp, &v.From, &v.To); err != nil {
			return fmt.Errorf("scanning transition: %w", err)
		}
		transitions = append(transitions, v)
		return nil
	}, flightID)
	return
}

func (s *SqliteStore) Commands(ctx context.Context, flightID int64) (commands []Command, err error) {
	err = s.query(ctx, selectCommandsSQL, func(rows *sql.Rows) error {
		var v Command
		if err := rows.Scan(&v.FlightID, &v.Timestamp, &v.Target, &v.Position); err != nil {
			return fmt.Errorf("scanning command: %w", err)
		}
		commands = append(commands, v)
		return nil
	}, flightID)
	return
}

func (s *SqliteStore) Cycles(ctx context.Context, flightID int64) (cycles []Cycle, err error) {
	err = s.query(ctx, selectCyclesSQL, func(rows *sql.Rows) error {
		var v Cycle
		var duration int64
		if err := rows.Scan(&v.FlightID, &v.Number, &v.State, &v.Start, &duration, &v.Rejected, &v.Overrun, &v.Error); err != nil {
			return fmt.Errorf("scanning cycle: %w", err)
		}
		v.Duration = time.Duration(duration)
		cycles = append(cycles, v)
		return nil
	}, flightID)
	return
}

func (s *SqliteStore) query(ctx context.Context, query string, scan func(*sql.Rows) error, args ...any) (err error) {
	db, err := s.getReadDB()
	if err != nil {
		return fmt.Errorf("getting read connection: %w", err)
	}

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("querying: %w", err)
	}
	defer closeWithError(rows, &err)

	for rows.Next() {
		if err = scan(rows); err != nil {
			return
		}
	}

	return rows.Err()
}

// batchInsert stores all rows in a single transaction, maxBatchRows rows per statement
func batchInsert[T any](ctx context.Context, s *SqliteStore, query string, columns int, rows []T, values func(T) []any) (err error) {
	if len(rows) == 0 {
		return nil
	}

	db, err := s.getWriteDB()
	if err != nil {
		return fmt.Errorf("getting write connection: %w", err)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer rollbackWithError(tx, &err)

	for chunk := range slices.Chunk(rows, maxBatchRows) {
		args := make([]any, 0, len(chunk)*columns)
		for _, row := range chunk {
			args = append(args, values(row)...)
		}

		if _, err = tx.ExecContext(ctx, query+valuesClause(len(chunk), columns), args...); err != nil {
			return fmt.Errorf("batch inserting: %w", err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}

	return nil
}

func (s *SqliteStore) Close() error {
	s.closeOnce.Do(func() {
		var writeErr, readErr error

		if s.writeDB != nil {
			_ = runSQLCommand(s.writeDB, initIndexesSQL)

			writeErr = s.writeDB.Close()
			s.writeDB = nil
		}

		if s.readDB != nil {
			readErr = s.readDB.Close()
			s.readDB = nil
		}

		s.closeErr = errors.Join(writeErr, readErr)
	})

	return s.closeErr
}
