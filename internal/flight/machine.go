// Package flight runs the flight computer control loop. A single goroutine
// reads telemetry, decides the flight phase and drives whichever actuator the
// phase owns; all waiting happens inside that goroutine.
package flight

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/roman-kulish/rocket-flight-control/internal/clock"
	"github.com/roman-kulish/rocket-flight-control/internal/control"
	"github.com/roman-kulish/rocket-flight-control/internal/detect"
	"github.com/roman-kulish/rocket-flight-control/internal/hw"
	"github.com/roman-kulish/rocket-flight-control/internal/telemetry"
)

// WithLogger sets the logger for the machine and the components it creates
func WithLogger(logger *slog.Logger) func(m *Machine) {
	return func(m *Machine) {
		m.logger = logger
	}
}

// WithObserver registers an observer of samples, transitions, commands and cycles
func WithObserver(observer Observer) func(m *Machine) {
	return func(m *Machine) {
		m.observer = append(m.observer, observer)
	}
}

// Devices are the hardware capabilities driven by the machine
type Devices struct {
	Airbrake  hw.Actuator
	Parachute hw.Actuator
	Proximity hw.ProximitySensor
}

// Machine is the flight phase state machine
type Machine struct {
	config Config
	clock  *clock.FlightClock
	source telemetry.Source
	phase  Phase

	launch    *detect.LaunchDetector
	apogee    *detect.ApogeeDetector
	capsule   *detect.CapsuleDetachDetector
	airbrake  *control.AirbrakeController
	parachute *control.ParachuteController

	finalAltitude int
	cycles        int

	observer Observers
	logger   *slog.Logger
}

// NewMachine creates the detectors and controllers from params and wires
// them to the telemetry source and the devices. The actuators are assumed to
// be closed and retracted.
func NewMachine(params Params, source telemetry.Source, devices Devices, c clock.Clock, options ...func(m *Machine)) *Machine {
	m := Machine{
		config:        params.Flight,
		clock:         clock.NewFlightClock(c),
		finalAltitude: params.Parachute.FinalAltitude,
		logger:        slog.New(slog.NewTextHandler(io.Discard, nil)),
	}

	for _, option := range options {
		option(&m)
	}

	m.source = &observedSource{source: source, m: &m}

	airbrake := hw.NewSweeper(hw.Airbrake, devices.Airbrake, c,
		hw.WithRange(0, params.Airbrake.MaxPosition),
		hw.WithStep(params.Airbrake.Step, params.Airbrake.StepDelay.D()),
		hw.WithCommandObserver(m.observeCommand))

	parachute := hw.NewSweeper(hw.Parachute, devices.Parachute, c,
		hw.WithRange(0, params.Parachute.MaxExtension),
		hw.WithCommandObserver(m.observeCommand))

	m.launch = detect.NewLaunchDetector(params.Detect)
	m.apogee = detect.NewApogeeDetector(params.Detect, m.source, c, detect.WithApogeeLogger(m.logger))
	m.capsule = detect.NewCapsuleDetachDetector(params.Detect, devices.Proximity, detect.WithCapsuleLogger(m.logger))
	m.airbrake = control.NewAirbrakeController(params.Airbrake, airbrake, c, control.WithAirbrakeLogger(m.logger))
	m.parachute = control.NewParachuteController(params.Parachute, parachute, c, control.WithParachuteLogger(m.logger))

	return &m
}

// State returns the current flight phase
func (m *Machine) State() State {
	return m.phase.State()
}

// Cycles returns the number of completed loop iterations
func (m *Machine) Cycles() int {
	return m.cycles
}

// LaunchTime returns the back-dated launch time, zero before launch
func (m *Machine) LaunchTime() time.Time {
	return m.clock.LaunchTime()
}

// Peak returns the highest accepted altitude
func (m *Machine) Peak() int {
	return m.apogee.Peak()
}

// Run executes control cycles until MaxCycles is reached, the telemetry
// stream ends or ctx is cancelled. Telemetry errors never end the flight,
// they only cut the current cycle short.
func (m *Machine) Run(ctx context.Context) error {
	m.logger.Info("flight loop started", slog.Int("maxCycles", m.config.MaxCycles))

	for m.cycles < m.config.MaxCycles {
		if err := ctx.Err(); err != nil {
			return err
		}

		start := m.clock.Now()
		rejected, err := m.step(ctx)
		m.cycles++

		report := CycleReport{
			Number:   m.cycles,
			State:    m.phase.State(),
			Start:    start,
			Duration: m.clock.Now().Sub(start),
			Rejected: rejected,
			Err:      err,
		}

		if budget := m.config.CycleBudget.D(); budget > 0 && report.Duration > budget {
			report.Overrun = true
			m.logger.Warn("control cycle overrun",
				slog.Int("cycle", report.Number),
				slog.String("state", report.State.String()),
				slog.Duration("duration", report.Duration))
		}

		m.observer.ObserveCycle(report)

		switch {
		case err == nil:
		case errors.Is(err, io.EOF):
			m.logger.Info("telemetry stream ended", slog.Int("cycles", m.cycles))
			m.finished()
			return nil
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			return err
		case errors.Is(err, telemetry.ErrTooManyReadErrors):
			m.logger.Error(err.Error(), slog.String("state", m.phase.State().String()))
		default:
			m.logger.Warn(err.Error(), slog.String("state", m.phase.State().String()))
		}
	}

	m.finished()
	return nil
}

func (m *Machine) finished() {
	m.logger.Info("flight loop finished",
		slog.Int("cycles", m.cycles),
		slog.String("state", m.phase.State().String()),
		slog.String("peak", humanize.Comma(int64(m.apogee.Peak()))+" ft"),
		slog.Duration("flightTime", m.clock.Elapsed()))
}

// step runs one control cycle for the current phase
func (m *Machine) step(ctx context.Context) (rejected bool, err error) {
	switch m.phase.State() {
	case Prelaunch:
		return false, m.prelaunch(ctx)
	case PoweredAscentWait:
		return m.poweredAscent(ctx)
	case AirbrakeActive:
		return m.airbrakeActive(ctx)
	case ApogeeReached:
		return m.apogeeReached(ctx)
	case CapsuleDetached:
		return m.capsuleDetached(ctx)
	case ParachuteActive:
		return m.parachuteActive(ctx)
	default:
		_, err = m.source.ReadAltitude(ctx)
		return false, err
	}
}

func (m *Machine) prelaunch(ctx context.Context) error {
	s, err := m.source.ReadAltitude(ctx)
	if err != nil {
		return err
	}

	if !m.launch.Observe(s) {
		return nil
	}

	if err = m.clock.MarkLaunch(m.launch.LaunchTime()); err != nil {
		return err
	}

	m.apogee.Prime(s)

	m.logger.Info("launch detected",
		slog.Time("launchTime", m.launch.LaunchTime()),
		slog.Int("altitude", s.Altitude))

	return m.transition(PoweredAscentWait, s.Time)
}

// poweredAscent tracks the climb without correcting it until burnout
func (m *Machine) poweredAscent(ctx context.Context) (bool, error) {
	res, err := m.apogee.Cycle(ctx)
	if err != nil {
		return res.Rejected, err
	}

	if res.NewApogee {
		return false, m.transition(ApogeeReached, res.Last.Time)
	}

	if m.clock.ElapsedAt(res.Last.Time) >= m.config.MotorBurnTime.D() {
		return false, m.transition(AirbrakeActive, res.Last.Time)
	}

	return false, nil
}

func (m *Machine) airbrakeActive(ctx context.Context) (bool, error) {
	res, err := m.apogee.Cycle(ctx)
	if err != nil {
		return res.Rejected, err
	}

	if res.NewApogee {
		m.airbrake.Close()
		return false, m.transition(ApogeeReached, res.Last.Time)
	}

	if res.HasRate {
		d := m.airbrake.Trim(res.Last.Altitude, res.Rate.FeetPerSecond)
		if budget := m.config.CycleBudget.D(); budget > 0 && d.Actuation > budget {
			m.logger.Warn("airbrake actuation exceeds the cycle budget",
				slog.String("mode", d.Mode.String()),
				slog.Duration("actuation", d.Actuation),
				slog.Duration("budget", budget))
		}
	}

	return false, nil
}

func (m *Machine) apogeeReached(ctx context.Context) (bool, error) {
	res, err := m.apogee.Cycle(ctx)
	if err != nil || res.Rejected {
		return res.Rejected, err
	}

	if m.touchdown(res) {
		return false, m.transition(Landed, res.Last.Time)
	}

	if detached, votes := m.capsule.Poll(); detached {
		m.logger.Info("capsule detached", slog.Int("votes", votes), slog.Int("altitude", res.Last.Altitude))
		return false, m.transition(CapsuleDetached, res.Last.Time)
	}

	return false, nil
}

// capsuleDetached waits for a full cycle above the ground clearance altitude
// before handing the descent over to the parachute controller
func (m *Machine) capsuleDetached(ctx context.Context) (bool, error) {
	res, err := m.apogee.Cycle(ctx)
	if err != nil || res.Rejected {
		return res.Rejected, err
	}

	if m.touchdown(res) {
		return false, m.transition(Landed, res.Last.Time)
	}

	if !res.Complete() || res.Last.Altitude < m.finalAltitude {
		return false, nil
	}

	if err = m.transition(ParachuteActive, res.Last.Time); err != nil {
		return false, err
	}

	return false, m.trimParachute(res)
}

func (m *Machine) parachuteActive(ctx context.Context) (bool, error) {
	res, err := m.apogee.Cycle(ctx)
	if err != nil || res.Rejected {
		return res.Rejected, err
	}

	if m.touchdown(res) {
		m.parachute.Retract()
		return false, m.transition(Landed, res.Last.Time)
	}

	if !res.Complete() {
		return false, nil
	}

	return false, m.trimParachute(res)
}

func (m *Machine) trimParachute(res detect.CycleResult) error {
	d, err := m.parachute.Trim(res.Records, m.clock.ElapsedAt(res.Last.Time))
	if err != nil {
		return fmt.Errorf("trimming parachute: %w", err)
	}

	if d.Mode == control.ModeRetract {
		return m.transition(Landed, m.clock.Now())
	}

	return nil
}

// touchdown requires every sample of a complete cycle below the landed
// altitude, a single low frame is not enough
func (m *Machine) touchdown(res detect.CycleResult) bool {
	if !res.Complete() {
		return false
	}
	for _, r := range res.Records {
		if r.Altitude >= m.config.LandedAltitude {
			return false
		}
	}
	return true
}

func (m *Machine) transition(to State, at time.Time) error {
	from := m.phase.State()
	if err := m.phase.Transition(to); err != nil {
		return err
	}

	m.logger.Info("flight state changed",
		slog.String("from", from.String()),
		slog.String("to", to.String()),
		slog.Duration("elapsed", m.clock.ElapsedAt(at)))

	m.observer.ObserveTransition(from, to, at)
	return nil
}

func (m *Machine) observeCommand(cmd hw.Command) {
	m.observer.ObserveCommand(cmd, m.clock.Now())
}

type observedSource struct {
	source telemetry.Source
	m      *Machine
}

func (o *observedSource) ReadAltitude(ctx context.Context) (telemetry.Sample, error) {
	s, err := o.source.ReadAltitude(ctx)
	if err != nil {
		return s, err
	}

	o.m.observer.ObserveSample(s, o.m.phase.State())
	return s, nil
}
