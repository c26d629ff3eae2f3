package telemetry

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/roman-kulish/rocket-flight-control/internal/clock"
)

const (
	// DefaultFrameTimeout bounds the wait for a single telemetry frame
	DefaultFrameTimeout = 2 * time.Second

	// ReadErrorsThreshold defines the number of consecutive failed reads allowed
	ReadErrorsThreshold = 5
)

var (
	// ErrFrameTimeout is returned when no complete frame arrived within the frame timeout
	ErrFrameTimeout = errors.New("telemetry frame timeout")

	// ErrEmptyFrame is returned when a frame carries no altitude digits
	ErrEmptyFrame = errors.New("telemetry frame has no altitude")

	// ErrTooManyReadErrors is returned when the number of consecutive read errors reaches the threshold
	ErrTooManyReadErrors = errors.New("too many consecutive telemetry read errors")
)

// Opener acquires the telemetry channel. The channel is opened and closed
// once per frame.
type Opener interface {
	Open() (io.ReadCloser, error)
}

// OpenerFunc adapts a function to the Opener interface
type OpenerFunc func() (io.ReadCloser, error)

func (f OpenerFunc) Open() (io.ReadCloser, error) {
	return f()
}

// WithLogger sets the logger for the reader
func WithLogger(logger *slog.Logger) func(r *Reader) {
	return func(r *Reader) {
		r.logger = logger.With(slog.String("component", "telemetry"))
	}
}

// WithFrameTimeout sets the maximum wait for a frame. Zero disables the bound.
func WithFrameTimeout(d time.Duration) func(r *Reader) {
	return func(r *Reader) {
		r.frameTimeout = d
	}
}

// WithReadErrorsThreshold sets the threshold for consecutive read errors
func WithReadErrorsThreshold(threshold uint8) func(r *Reader) {
	return func(r *Reader) {
		r.readErrorsThreshold = threshold
	}
}

// Reader parses one altitude sample per call from a line-framed ASCII stream
type Reader struct {
	opener Opener
	clock  clock.Clock

	frameTimeout        time.Duration
	readErrorsThreshold uint8
	readErrors          uint8

	logger *slog.Logger
}

// NewReader creates a new Reader with a discard logger
func NewReader(opener Opener, c clock.Clock, options ...func(r *Reader)) *Reader {
	r := Reader{
		opener:              opener,
		clock:               c,
		frameTimeout:        DefaultFrameTimeout,
		readErrorsThreshold: ReadErrorsThreshold,
		logger:              slog.New(slog.NewTextHandler(io.Discard, nil)),
	}

	for _, option := range options {
		option(&r)
	}

	return &r
}

type frameResult struct {
	frame []byte
	err   error
}

// ReadAltitude opens the telemetry channel, reads one frame up to the line
// terminator, closes the channel and parses the altitude.
func (r *Reader) ReadAltitude(ctx context.Context) (Sample, error) {
	rc, err := r.opener.Open()
	if err != nil {
		return Sample{}, r.failed(fmt.Errorf("opening telemetry channel: %w", err))
	}

	done := make(chan frameResult, 1)
	go func() {
		frame, err := bufio.NewReader(rc).ReadBytes('\n')
		done <- frameResult{frame, err}
	}()

	var timeout <-chan time.Time
	if r.frameTimeout > 0 {
		timeout = r.clock.After(r.frameTimeout)
	}

	var res frameResult
	select {
	case res = <-done:
	case <-timeout:
		_ = rc.Close() // unblocks the pending read
		return Sample{}, r.failed(ErrFrameTimeout)
	case <-ctx.Done():
		_ = rc.Close()
		return Sample{}, ctx.Err()
	}

	if err = rc.Close(); err != nil {
		r.logger.Warn(fmt.Sprintf("closing telemetry channel: %s", err.Error()))
	}

	if res.err != nil {
		if errors.Is(res.err, io.EOF) {
			res.err = io.ErrUnexpectedEOF
		}
		return Sample{}, r.failed(fmt.Errorf("reading frame: %w", res.err))
	}

	altitude, garbled, err := parseFrame(res.frame)
	if err != nil {
		return Sample{}, r.failed(err)
	}
	if garbled {
		r.logger.Warn("garbled telemetry frame", slog.String("frame", string(res.frame)), slog.Int("altitude", altitude))
	}

	r.readErrors = 0 // reset counter

	return Sample{
		Altitude: altitude,
		Time:     r.clock.Now(),
		Garbled:  garbled,
	}, nil
}

func (r *Reader) failed(err error) error {
	r.readErrors++
	if r.readErrors >= r.readErrorsThreshold {
		r.readErrors = 0
		return fmt.Errorf("%w: %w", ErrTooManyReadErrors, err)
	}
	return err
}

// parseFrame extracts the integer altitude prefix of a frame. Leading noise
// and carriage returns are skipped. Once the first digit is seen, the number
// ends at a field delimiter or the line feed; any other byte is skipped and
// the frame is flagged as garbled while digits keep accumulating.
func parseFrame(frame []byte) (altitude int, garbled bool, err error) {
	var started bool

	for _, b := range frame {
		switch {
		case b >= '0' && b <= '9':
			altitude = altitude*10 + int(b-'0')
			started = true

		case b == '\n':
			if !started {
				return 0, false, ErrEmptyFrame
			}
			return altitude, garbled, nil

		case b == ',' || b == '.':
			if started {
				return altitude, garbled, nil
			}

		case b == '\r':
			// stray carriage return

		default:
			if started {
				garbled = true
			}
		}
	}

	if !started {
		return 0, false, ErrEmptyFrame
	}
	return altitude, garbled, nil
}
