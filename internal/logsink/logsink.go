// Package logsink mirrors the operator console log into an append-only text
// file. The file is opened, appended and closed for every message, and a
// failing file never stops or fails the console log.
package logsink

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"
)

// FileSink appends each Write to the file at Path. The file is opened and
// closed on every call so a removed or remounted log directory recovers on
// the next message.
type FileSink struct {
	Path string

	mu sync.Mutex
}

// NewFileSink creates a sink for the given path
func NewFileSink(path string) *FileSink {
	return &FileSink{Path: path}
}

func (s *FileSink) Write(p []byte) (n int, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.OpenFile(s.Path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return 0, fmt.Errorf("opening log sink: %w", err)
	}

	n, err = f.Write(p)
	if cErr := f.Close(); cErr != nil && err == nil {
		err = cErr
	}
	if err != nil {
		return n, fmt.Errorf("appending to log sink: %w", err)
	}
	return n, nil
}

// Handler tees log records to the console and to the sink. Sink failures are
// reported on the console once per outage and never returned to the caller.
type Handler struct {
	console slog.Handler
	sink    slog.Handler
	failing *atomic.Bool
}

// NewHandler creates a Handler writing to both handlers
func NewHandler(console, sink slog.Handler) *Handler {
	return &Handler{
		console: console,
		sink:    sink,
		failing: &atomic.Bool{},
	}
}

func (h *Handler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.console.Enabled(ctx, level) || h.sink.Enabled(ctx, level)
}

func (h *Handler) Handle(ctx context.Context, r slog.Record) error {
	var err error
	if h.console.Enabled(ctx, r.Level) {
		err = h.console.Handle(ctx, r.Clone())
	}

	if h.sink.Enabled(ctx, r.Level) {
		if sErr := h.sink.Handle(ctx, r.Clone()); sErr != nil {
			if h.failing.CompareAndSwap(false, true) {
				h.report(ctx, r, sErr)
			}
		} else {
			h.failing.Store(false)
		}
	}

	return err
}

func (h *Handler) report(ctx context.Context, r slog.Record, err error) {
	rec := slog.NewRecord(r.Time, slog.LevelWarn, "log sink unavailable", 0)
	rec.AddAttrs(slog.String("error", err.Error()))
	_ = h.console.Handle(ctx, rec)
}

func (h *Handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &Handler{
		console: h.console.WithAttrs(attrs),
		sink:    h.sink.WithAttrs(attrs),
		failing: h.failing,
	}
}

func (h *Handler) WithGroup(name string) slog.Handler {
	return &Handler{
		console: h.console.WithGroup(name),
		sink:    h.sink.WithGroup(name),
		failing: h.failing,
	}
}

// Failing reports whether the last write to the sink failed
func (h *Handler) Failing() bool {
	return h.failing.Load()
}
