package storage

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
)

// Flight is a recording session, one per flight computer run
type Flight struct {
	ID        int64
	UUID      uuid.UUID
	StartTime time.Time
	Config    sql.NullString // Effective configuration as JSON
}

// Sample is a recorded altitude reading
type Sample struct {
	FlightID  int64
	Timestamp time.Time
	Altitude  int
	Garbled   bool
	State     string // Flight phase the sample was read in
}

// Transition is a recorded flight phase change
type Transition struct {
	FlightID  int64
	Timestamp time.Time
	From      string
	To        string
}

// Command is a recorded actuator command
type Command struct {
	FlightID  int64
	Timestamp time.Time
	Target    string
	Position  int
}

// Cycle is a recorded control loop iteration
type Cycle struct {
	FlightID int64
	Number   int
	State    string
	Start    time.Time
	Duration time.Duration
	Rejected bool
	Overrun  bool
	Error    sql.NullString
}
