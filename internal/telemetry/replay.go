package telemetry

import (
	"bufio"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/roman-kulish/rocket-flight-control/internal/clock"
)

// ReplayOpener serves previously captured telemetry frames, one frame per
// Open, paced at the sampling interval. It is used for bench runs of the
// flight computer without an altimeter attached.
type ReplayOpener struct {
	clock    clock.Clock
	interval time.Duration

	mu     sync.Mutex
	frames []string
	next   int
}

// NewReplayOpener reads all frames from r. Empty lines are skipped.
func NewReplayOpener(r io.Reader, c clock.Clock, interval time.Duration) (*ReplayOpener, error) {
	var frames []string

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		frames = append(frames, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading replay frames: %w", err)
	}

	return &ReplayOpener{
		clock:    c,
		interval: interval,
		frames:   frames,
	}, nil
}

// Open waits one sampling interval and returns the next frame
func (o *ReplayOpener) Open() (io.ReadCloser, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.next >= len(o.frames) {
		return nil, io.EOF
	}

	o.clock.Sleep(o.interval) // awaitTelemetryFrame

	frame := o.frames[o.next] + "\r\n"
	o.next++

	return io.NopCloser(strings.NewReader(frame)), nil
}

// Remaining returns the number of frames not yet served
func (o *ReplayOpener) Remaining() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.frames) - o.next
}
