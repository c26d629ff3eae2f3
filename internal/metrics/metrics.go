// Package metrics collects control loop metrics of a flight and exports them
// in the Prometheus text format for post-flight analysis.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/roman-kulish/rocket-flight-control/internal/flight"
	"github.com/roman-kulish/rocket-flight-control/internal/hw"
	"github.com/roman-kulish/rocket-flight-control/internal/telemetry"
)

const namespace = "rocket_flight"

var _ flight.Observer = (*Metrics)(nil)

// Metrics is a flight observer backed by its own Prometheus registry
type Metrics struct {
	registry *prometheus.Registry

	cycles          *prometheus.CounterVec
	cycleDuration   prometheus.Histogram
	overruns        prometheus.Counter
	rejected        prometheus.Counter
	telemetryErrors prometheus.Counter
	samples         prometheus.Counter
	garbled         prometheus.Counter
	transitions     *prometheus.CounterVec
	altitude        prometheus.Gauge
	peak            prometheus.Gauge
	state           prometheus.Gauge
	position        *prometheus.GaugeVec

	peakFeet float64
}

// New creates the metrics and registers them
func New() *Metrics {
	m := Metrics{
		registry: prometheus.NewRegistry(),

		cycles: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cycles_total",
				Help:      "Total number of control cycles by flight state.",
			},
			[]string{"state"},
		),
		cycleDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "cycle_duration_seconds",
				Help:      "Control cycle duration in seconds.",
				Buckets:   []float64{0.05, 0.1, 0.15, 0.2, 0.3, 0.5, 1, 2},
			},
		),
		overruns: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cycle_overruns_total",
			Help:      "Total number of control cycles longer than the cycle budget.",
		}),
		rejected: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rejected_samples_total",
			Help:      "Total number of altitude samples discarded as jumps.",
		}),
		telemetryErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "telemetry_errors_total",
			Help:      "Total number of control cycles cut short by a telemetry error.",
		}),
		samples: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "samples_total",
			Help:      "Total number of altitude samples read.",
		}),
		garbled: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "garbled_frames_total",
			Help:      "Total number of telemetry frames with non-digit bytes in the altitude.",
		}),
		transitions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "transitions_total",
				Help:      "Flight state transitions.",
			},
			[]string{"from", "to"},
		),
		altitude: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "altitude_feet",
			Help:      "Last altitude sample in feet.",
		}),
		peak: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "peak_altitude_feet",
			Help:      "Highest altitude sample in feet.",
		}),
		state: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "state",
			Help:      "Current flight state, 0 is PRELAUNCH and 6 is LANDED.",
		}),
		position: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "actuator_position",
				Help:      "Last commanded actuator position.",
			},
			[]string{"target"},
		),
	}

	m.registry.MustRegister(
		m.cycles,
		m.cycleDuration,
		m.overruns,
		m.rejected,
		m.telemetryErrors,
		m.samples,
		m.garbled,
		m.transitions,
		m.altitude,
		m.peak,
		m.state,
		m.position,
	)

	return &m
}

// Registry returns the registry holding the flight metrics
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) ObserveSample(s telemetry.Sample, _ flight.State) {
	m.samples.Inc()
	if s.Garbled {
		m.garbled.Inc()
	}

	a := float64(s.Altitude)
	m.altitude.Set(a)
	if a > m.peakFeet {
		m.peakFeet = a
		m.peak.Set(a)
	}
}

func (m *Metrics) ObserveTransition(from, to flight.State, _ time.Time) {
	m.transitions.WithLabelValues(from.String(), to.String()).Inc()
	m.state.Set(float64(to))
}

func (m *Metrics) ObserveCommand(cmd hw.Command, _ time.Time) {
	m.position.WithLabelValues(cmd.Target.String()).Set(float64(cmd.Position))
}

func (m *Metrics) ObserveCycle(r flight.CycleReport) {
	m.cycles.WithLabelValues(r.State.String()).Inc()
	m.cycleDuration.Observe(r.Duration.Seconds())

	if r.Overrun {
		m.overruns.Inc()
	}
	if r.Rejected {
		m.rejected.Inc()
	}
	if r.Err != nil {
		m.telemetryErrors.Inc()
	}
}

// WriteToTextfile writes all metrics to path in the text exposition format
func (m *Metrics) WriteToTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("writing metrics textfile: %w", err)
	}
	return nil
}
