package app

import (
	"context"
	"image"
	"image/color"
	"image/png"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/roman-kulish/rocket-flight-control/internal/hw"
)

func TestProfileRenderer_Render(t *testing.T) {
	p, err := NewProfile(recordedFlight())
	if err != nil {
		t.Fatalf("NewProfile failed: %v", err)
	}

	r := NewProfileRenderer(RenderConfig{Width: 600, Height: 300, NoAnnotations: true})
	img, err := r.Render(p)
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}

	b := r.config.BorderConfig
	if want := image.Rect(0, 0, 600+b.Left+b.Right, 300+b.Top+b.Bottom); img.Bounds() != want {
		t.Fatalf("Expected bounds %v, got %v", want, img.Bounds())
	}

	plot := newPlotArea(image.Rect(b.Left, b.Top, b.Left+600, b.Top+300), p)

	testCases := []struct {
		name string
		x, y int
		want color.Color
	}{
		{"border", 0, 0, color.White},
		{"prelaunch band", plot.rect.Min.X + 1, plot.rect.Min.Y + 2, phaseColor("PRELAUNCH")},
		{"apogee band", plot.x(8 * time.Second), plot.rect.Min.Y + 2, phaseColor("APOGEE_REACHED")},
		{"apogee marker", plot.x(p.Apogee.At), plot.y(p.Apogee.Altitude), apogeeColor},
		{"airbrake trace", plot.x(2550 * time.Millisecond), plot.commandY(45, hw.AirbrakeMax), commandColor(hw.Airbrake)},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			want := color.RGBAModel.Convert(tc.want)
			if got := img.At(tc.x, tc.y); got != want {
				t.Errorf("Expected %v at (%d,%d), got %v", want, tc.x, tc.y, got)
			}
		})
	}
}

func TestProfileRenderer_Annotations(t *testing.T) {
	p, err := NewProfile(recordedFlight())
	if err != nil {
		t.Fatalf("NewProfile failed: %v", err)
	}

	plain, err := NewProfileRenderer(RenderConfig{NoAnnotations: true}).Render(p)
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	annotated, err := NewProfileRenderer(RenderConfig{Location: time.UTC}).Render(p)
	if err != nil {
		t.Fatalf("Render with annotations failed: %v", err)
	}

	// labels are drawn into the left and bottom borders only
	var changed int
	bounds := annotated.Bounds()
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < defaultLeftBorder; x++ {
			if annotated.At(x, y) != plain.At(x, y) {
				changed++
			}
		}
	}
	if changed == 0 {
		t.Error("Expected the altitude scale to be drawn")
	}
}

func TestPlotArea_Scale(t *testing.T) {
	p := &FlightProfile{Duration: 10 * time.Second, MaxAltitude: 843}
	a := newPlotArea(image.Rect(100, 50, 1100, 550), p)

	if a.maxAltitude != 1000 {
		t.Errorf("Expected the altitude axis rounded up to 1000, got %d", a.maxAltitude)
	}

	testCases := []struct {
		name string
		got  int
		want int
	}{
		{"x start", a.x(0), 100},
		{"x end", a.x(10 * time.Second), 1099},
		{"y ground", a.y(0), 549},
		{"y below ground", a.y(-15), 549},
		{"y top", a.y(1000), 50},
		{"command closed", a.commandY(0, hw.AirbrakeMax), 549},
		{"command open", a.commandY(hw.AirbrakeMax, hw.AirbrakeMax), 549 - 124},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if tc.got != tc.want {
				t.Errorf("Expected %d, got %d", tc.want, tc.got)
			}
		})
	}
}

func TestNiceCeil(t *testing.T) {
	testCases := []struct {
		in, want int
	}{
		{100, 100},
		{101, 200},
		{843, 1000},
		{1500, 2000},
		{4200, 5000},
	}

	for _, tc := range testCases {
		if got := niceCeil(tc.in); got != tc.want {
			t.Errorf("niceCeil(%d): expected %d, got %d", tc.in, tc.want, got)
		}
	}
}

func TestRun(t *testing.T) {
	path, _ := writeFlight(t)
	output := filepath.Join(t.TempDir(), "profile.png")

	config := NewConfig()
	config.DBPath = path
	config.OutputFile = output
	config.Width, config.Height = 400, 200

	if err := Run(context.Background(), config, slog.New(slog.NewTextHandler(io.Discard, nil))); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	f, err := os.Open(output)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer f.Close()

	img, err := png.Decode(f)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if img.Bounds().Dx() != 400+defaultLeftBorder+defaultRightBorder {
		t.Errorf("Unexpected image width %d", img.Bounds().Dx())
	}
}

func TestRun_MissingDatabase(t *testing.T) {
	config := NewConfig()
	config.DBPath = filepath.Join(t.TempDir(), "missing.sqlite")
	config.OutputFile = filepath.Join(t.TempDir(), "profile.png")

	if err := Run(context.Background(), config, slog.New(slog.NewTextHandler(io.Discard, nil))); err == nil {
		t.Error("Expected an error for a missing database")
	}
}
