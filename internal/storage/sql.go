package storage

import (
	_ "embed"
)

const (
	insertFlightSQL = `
INSERT INTO flights (uuid,
                     start_time,
                     config)
VALUES (?, ?, ?)`

	selectFlightSQL = `
SELECT
    id,
    uuid,
    start_time,
    config
FROM flights
WHERE
    id = ?`

	selectFlightsSQL = `
SELECT
    id,
    uuid,
    start_time,
    config
FROM flights
ORDER BY id`

	insertSamplesSQL = `
INSERT INTO samples (flight_id,
                     timestamp,
                     altitude,
                     garbled,
                     state)
VALUES `

	insertTransitionsSQL = `
INSERT INTO transitions (flight_id,
                         timestamp,
                         from_state,
                         to_state)
VALUES `

	insertCommandsSQL = `
INSERT INTO commands (flight_id,
                      timestamp,
                      target,
                      position)
VALUES `

	insertCyclesSQL = `
INSERT INTO cycles (flight_id,
                    number,
                    state,
                    start_time,
                    duration_ns,
                    rejected,
                    overrun,
                    error)
VALUES `

	selectSamplesSQL = `
SELECT
    flight_id,
    timestamp,
    altitude,
    garbled,
    state
FROM samples
WHERE
    flight_id = ?
ORDER BY timestamp, id`

	selectTransitionsSQL = `
SELECT
    flight_id,
    timestamp,
    from_state,
    to_state
FROM transitions
WHERE
    flight_id = ?
ORDER BY timestamp, id`

	selectCommandsSQL = `
SELECT
    flight_id,
    timestamp,
    target,
    position
FROM commands
WHERE
    flight_id = ?
ORDER BY timestamp, id`

	selectCyclesSQL = `
SELECT
    flight_id,
    number,
    state,
    start_time,
    duration_ns,
    rejected,
    overrun,
    error
FROM cycles
WHERE
    flight_id = ?
ORDER BY number`
)

var (
	//go:embed schema.sql
	initSchemaSQL string

	//go:embed indexes.sql
	initIndexesSQL string
)
