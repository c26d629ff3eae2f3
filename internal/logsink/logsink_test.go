package logsink

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestFileSink_AppendsPerWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "flight.log")
	s := NewFileSink(path)

	for _, line := range []string{"first\n", "second\n"} {
		if _, err := s.Write([]byte(line)); err != nil {
			t.Fatalf("Write failed: %v", err)
		}
	}

	// the file is closed between writes, so removing it is not fatal
	if err := os.Remove(path); err != nil {
		t.Fatalf("Remove failed: %v", err)
	}
	if _, err := s.Write([]byte("third\n")); err != nil {
		t.Fatalf("Write after remove failed: %v", err)
	}

	p, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	if string(p) != "third\n" {
		t.Errorf("Expected only the last line after removal, got %q", p)
	}
}

func TestFileSink_Unavailable(t *testing.T) {
	s := NewFileSink(filepath.Join(t.TempDir(), "missing", "flight.log"))
	if _, err := s.Write([]byte("line\n")); err == nil {
		t.Error("Expected an error for a missing directory")
	}
}

func TestHandler_Tee(t *testing.T) {
	var console bytes.Buffer
	path := filepath.Join(t.TempDir(), "flight.log")

	h := NewHandler(
		slog.NewTextHandler(&console, nil),
		slog.NewTextHandler(NewFileSink(path), nil))
	logger := slog.New(h).With(slog.String("component", "test"))

	logger.Info("launch detected", slog.Int("altitude", 200))
	logger.Debug("hidden")

	p, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}

	for name, out := range map[string]string{"console": console.String(), "sink": string(p)} {
		if !strings.Contains(out, "launch detected") || !strings.Contains(out, "component=test") {
			t.Errorf("Expected the %s to contain the record, got %q", name, out)
		}
		if strings.Contains(out, "hidden") {
			t.Errorf("Debug record leaked into the %s", name)
		}
	}
}

func TestHandler_SinkFailureIsReportedOnce(t *testing.T) {
	var console bytes.Buffer
	dir := filepath.Join(t.TempDir(), "logs")

	h := NewHandler(
		slog.NewTextHandler(&console, nil),
		slog.NewTextHandler(NewFileSink(filepath.Join(dir, "flight.log")), nil))
	logger := slog.New(h)

	logger.Info("one")
	logger.Info("two")

	if n := strings.Count(console.String(), "log sink unavailable"); n != 1 {
		t.Errorf("Expected one sink failure report, got %d", n)
	}
	if !strings.Contains(console.String(), "msg=two") {
		t.Error("Console must keep logging while the sink is down")
	}
	if !h.Failing() {
		t.Error("Expected the handler to report a failing sink")
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("MkdirAll failed: %v", err)
	}
	logger.Info("three")
	if h.Failing() {
		t.Error("Expected the sink to recover")
	}
}
