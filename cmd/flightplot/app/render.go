package app

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"math"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/golang/freetype"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gomono"

	"github.com/roman-kulish/rocket-flight-control/internal/hw"
)

const (
	dpi            = 96.0
	fontSize       = 10.0
	tickMarkLength = 5
	pixelsPerLabel = 120.0

	defaultWidth  = 1200
	defaultHeight = 600

	// Default border sizes in pixels
	defaultTopBorder    = 30
	defaultLeftBorder   = 80
	defaultBottomBorder = 60
	defaultRightBorder  = 40

	// commandStrip is the share of the plot height used by the actuator traces
	commandStrip = 0.25

	defaultDatetimeFormat = time.DateTime
)

// BorderConfig defines the sizes of white space around the plot
type BorderConfig struct {
	Top    int // Space above the plot
	Left   int // Space for the altitude scale
	Bottom int // Space for the time scale and the information bar
	Right  int // Right padding
}

// RenderConfig holds all configuration options for the flight plot
type RenderConfig struct {
	Width  int // Plot area width in pixels
	Height int // Plot area height in pixels

	DatetimeFormat string
	Location       *time.Location

	FontSize      float64
	NoAnnotations bool

	BorderConfig BorderConfig
}

// ProfileRenderer draws an altitude over time chart of a recorded flight
type ProfileRenderer struct {
	config RenderConfig
}

// NewProfileRenderer creates a new renderer with the given configuration
func NewProfileRenderer(config RenderConfig) *ProfileRenderer {
	// Set defaults for zero values
	if config.Width == 0 {
		config.Width = defaultWidth
	}
	if config.Height == 0 {
		config.Height = defaultHeight
	}
	if config.DatetimeFormat == "" {
		config.DatetimeFormat = defaultDatetimeFormat
	}
	if config.Location == nil {
		config.Location = time.Local
	}
	if config.FontSize == 0 {
		config.FontSize = fontSize
	}
	if config.BorderConfig.Top == 0 {
		config.BorderConfig.Top = defaultTopBorder
	}
	if config.BorderConfig.Left == 0 {
		config.BorderConfig.Left = defaultLeftBorder
	}
	if config.BorderConfig.Bottom == 0 {
		config.BorderConfig.Bottom = defaultBottomBorder
	}
	if config.BorderConfig.Right == 0 {
		config.BorderConfig.Right = defaultRightBorder
	}

	return &ProfileRenderer{config: config}
}

// Render creates an image of the flight profile
func (r *ProfileRenderer) Render(p *FlightProfile) (*image.RGBA, error) {
	b := r.config.BorderConfig
	img := image.NewRGBA(image.Rect(0, 0, r.config.Width+b.Left+b.Right, r.config.Height+b.Top+b.Bottom))
	draw.Draw(img, img.Bounds(), image.White, image.Point{}, draw.Src)

	plot := newPlotArea(image.Rect(b.Left, b.Top, b.Left+r.config.Width, b.Top+r.config.Height), p)

	// back to front
	layers := []func(*image.RGBA, *plotArea, *FlightProfile){
		r.drawPhases,
		r.drawGrid,
		r.drawCommands,
		r.drawAltitude,
		r.drawApogee,
	}
	for _, layer := range layers {
		layer(img, plot, p)
	}

	if r.config.NoAnnotations {
		return img, nil
	}

	ann, err := newAnnotator(annotatorConfig{
		DatetimeFormat: r.config.DatetimeFormat,
		Location:       r.config.Location,
		FontSize:       r.config.FontSize,
		Borders:        b,
	})
	if err != nil {
		return nil, fmt.Errorf("creating annotator: %w", err)
	}
	defer ann.Close()

	if err = ann.annotate(img, plot, p); err != nil {
		return nil, fmt.Errorf("drawing annotations: %w", err)
	}

	return img, nil
}

// plotArea maps flight time and altitude onto image coordinates
type plotArea struct {
	rect        image.Rectangle
	duration    time.Duration
	maxAltitude int
}

func newPlotArea(rect image.Rectangle, p *FlightProfile) *plotArea {
	return &plotArea{
		rect:        rect,
		duration:    max(p.Duration, time.Second),
		maxAltitude: niceCeil(max(p.MaxAltitude, 100)),
	}
}

func (a *plotArea) x(at time.Duration) int {
	ratio := float64(at) / float64(a.duration)
	return a.rect.Min.X + int(math.Round(ratio*float64(a.rect.Dx()-1)))
}

func (a *plotArea) y(altitude int) int {
	ratio := float64(max(altitude, 0)) / float64(a.maxAltitude)
	return a.rect.Max.Y - 1 - int(math.Round(ratio*float64(a.rect.Dy()-1)))
}

// commandY maps an actuator position into the strip at the bottom of the plot
func (a *plotArea) commandY(position, maxPosition int) int {
	strip := float64(a.rect.Dy()) * commandStrip
	ratio := float64(min(max(position, 0), maxPosition)) / float64(maxPosition)
	return a.rect.Max.Y - 1 - int(math.Round(ratio*(strip-1)))
}

func (r *ProfileRenderer) drawPhases(img *image.RGBA, a *plotArea, p *FlightProfile) {
	for _, span := range p.Phases {
		rect := image.Rect(a.x(span.From), a.rect.Min.Y, a.x(span.To)+1, a.rect.Max.Y)
		draw.Draw(img, rect.Intersect(a.rect), image.NewUniform(phaseColor(span.State)), image.Point{}, draw.Src)
	}
}

func (r *ProfileRenderer) drawGrid(img *image.RGBA, a *plotArea, _ *FlightProfile) {
	for _, alt := range altitudeTicks(a.maxAltitude) {
		y := a.y(alt)
		for x := a.rect.Min.X; x < a.rect.Max.X; x += 2 {
			img.Set(x, y, gridColor)
		}
	}
}

func (r *ProfileRenderer) drawAltitude(img *image.RGBA, a *plotArea, p *FlightProfile) {
	for i := 1; i < len(p.Points); i++ {
		from, to := p.Points[i-1], p.Points[i]
		drawLine(img, a.x(from.At), a.y(from.Altitude), a.x(to.At), a.y(to.Altitude), altitudeColor)
	}

	for _, pt := range p.Points {
		if pt.Garbled {
			drawCross(img, a.x(pt.At), a.y(pt.Altitude), 2, garbledColor)
		}
	}
}

func (r *ProfileRenderer) drawApogee(img *image.RGBA, a *plotArea, p *FlightProfile) {
	x, y := a.x(p.Apogee.At), a.y(p.Apogee.Altitude)
	for yy := a.rect.Min.Y; yy < a.rect.Max.Y; yy += 3 {
		img.Set(x, yy, apogeeColor)
	}
	drawCross(img, x, y, 4, apogeeColor)
}

func (r *ProfileRenderer) drawCommands(img *image.RGBA, a *plotArea, p *FlightProfile) {
	for target, commands := range p.Commands {
		maxPosition := hw.AirbrakeMax
		if target == hw.Parachute {
			maxPosition = hw.ParachuteMax
		}

		c := commandColor(target)
		lastX, lastY := a.x(0), a.commandY(0, maxPosition)
		for _, cmd := range commands {
			x, y := a.x(cmd.At), a.commandY(cmd.Position, maxPosition)
			// actuators hold their position until the next command
			drawLine(img, lastX, lastY, x, lastY, c)
			drawLine(img, x, lastY, x, y, c)
			lastX, lastY = x, y
		}
		drawLine(img, lastX, lastY, a.rect.Max.X-1, lastY, c)
	}
}

// drawLine rasterizes a segment with Bresenham's algorithm
func drawLine(img *image.RGBA, x0, y0, x1, y1 int, c color.Color) {
	dx, dy := abs(x1-x0), -abs(y1-y0)
	sx, sy := 1, 1
	if x0 > x1 {
		sx = -1
	}
	if y0 > y1 {
		sy = -1
	}

	e := dx + dy
	for {
		img.Set(x0, y0, c)
		if x0 == x1 && y0 == y1 {
			return
		}
		e2 := 2 * e
		if e2 >= dy {
			e += dy
			x0 += sx
		}
		if e2 <= dx {
			e += dx
			y0 += sy
		}
	}
}

func drawCross(img *image.RGBA, x, y, size int, c color.Color) {
	drawLine(img, x-size, y-size, x+size, y+size, c)
	drawLine(img, x-size, y+size, x+size, y-size, c)
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// Internal annotator implementation
type annotatorConfig struct {
	DatetimeFormat string
	Location       *time.Location
	FontSize       float64
	Borders        BorderConfig
}

type annotator struct {
	context  *freetype.Context
	config   annotatorConfig
	fontFace font.Face
}

func newAnnotator(config annotatorConfig) (*annotator, error) {
	parsedFont, err := freetype.ParseFont(gomono.TTF)
	if err != nil {
		return nil, fmt.Errorf("parsing font: %w", err)
	}

	ctx := freetype.NewContext()
	ctx.SetDPI(dpi)
	ctx.SetFont(parsedFont)
	ctx.SetFontSize(config.FontSize)
	ctx.SetHinting(font.HintingNone)
	ctx.SetSrc(image.Black)

	return &annotator{
		context: ctx,
		config:  config,
		fontFace: truetype.NewFace(parsedFont, &truetype.Options{
			Size:    config.FontSize,
			DPI:     dpi,
			Hinting: font.HintingNone,
		}),
	}, nil
}

func (a *annotator) Close() error {
	if a.fontFace != nil {
		return a.fontFace.Close()
	}
	return nil
}

func (a *annotator) annotate(img *image.RGBA, plot *plotArea, p *FlightProfile) error {
	a.context.SetClip(img.Bounds())
	a.context.SetDst(img)

	ops := []struct {
		msg string
		fn  func(*image.RGBA, *plotArea, *FlightProfile) error
	}{
		{"drawing altitude scale", a.drawAltitudeScale},
		{"drawing time scale", a.drawTimeScale},
		{"drawing apogee label", a.drawApogeeLabel},
		{"drawing info bar", a.drawInfoBar},
	}
	for _, op := range ops {
		if err := op.fn(img, plot, p); err != nil {
			return fmt.Errorf("%s: %w", op.msg, err)
		}
	}

	return nil
}

func (a *annotator) fontHeight() int {
	metrics := a.fontFace.Metrics()
	return (metrics.Ascent + metrics.Descent).Round()
}

func (a *annotator) drawAltitudeScale(img *image.RGBA, plot *plotArea, _ *FlightProfile) error {
	descent := a.fontFace.Metrics().Descent.Round()

	for _, alt := range altitudeTicks(plot.maxAltitude) {
		y := plot.y(alt)
		for x := plot.rect.Min.X - tickMarkLength; x < plot.rect.Min.X; x++ {
			img.Set(x, y, color.Black)
		}

		label := humanize.Comma(int64(alt)) + " ft"
		width := font.MeasureString(a.fontFace, label).Round()
		pt := freetype.Pt(plot.rect.Min.X-tickMarkLength-3-width, y+a.fontHeight()/2-descent)
		if _, err := a.context.DrawString(label, pt); err != nil {
			return fmt.Errorf("drawing altitude label: %w", err)
		}
	}
	return nil
}

func (a *annotator) drawTimeScale(img *image.RGBA, plot *plotArea, _ *FlightProfile) error {
	step := niceTimeStep(plot.duration, plot.rect.Dx())
	textY := plot.rect.Max.Y + tickMarkLength + a.fontHeight()

	for at := time.Duration(0); at <= plot.duration; at += step {
		x := plot.x(at)
		for y := plot.rect.Max.Y; y < plot.rect.Max.Y+tickMarkLength; y++ {
			img.Set(x, y, color.Black)
		}

		label := formatFlightTime(at)
		width := font.MeasureString(a.fontFace, label).Round()
		if _, err := a.context.DrawString(label, freetype.Pt(x-width/2, textY)); err != nil {
			return fmt.Errorf("drawing time label: %w", err)
		}
	}
	return nil
}

func (a *annotator) drawApogeeLabel(_ *image.RGBA, plot *plotArea, p *FlightProfile) error {
	label := fmt.Sprintf("apogee %s ft at %s", humanize.Comma(int64(p.Apogee.Altitude)), formatFlightTime(p.Apogee.At))
	x, y := plot.x(p.Apogee.At)+6, plot.y(p.Apogee.Altitude)-6

	// keep the label inside the plot
	width := font.MeasureString(a.fontFace, label).Round()
	if x+width > plot.rect.Max.X {
		x = plot.x(p.Apogee.At) - 6 - width
	}
	y = max(y, plot.rect.Min.Y+a.fontHeight())

	_, err := a.context.DrawString(label, freetype.Pt(x, y))
	return err
}

func (a *annotator) drawInfoBar(img *image.RGBA, _ *plotArea, p *FlightProfile) error {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("Flight %d (%s)", p.FlightID, p.UUID))
	sb.WriteString("; ")
	sb.WriteString("Start: " + p.Start.In(a.config.Location).Format(a.config.DatetimeFormat))
	sb.WriteString("; ")
	sb.WriteString("Duration: " + formatFlightTime(p.Duration))
	sb.WriteString("; ")
	sb.WriteString(fmt.Sprintf("Samples: %s", humanize.Comma(int64(len(p.Points)))))
	if p.Garbled > 0 {
		sb.WriteString(fmt.Sprintf(" (%d garbled)", p.Garbled))
	}

	metrics := a.fontFace.Metrics()
	textY := img.Bounds().Max.Y - (a.config.Borders.Bottom-a.fontHeight())/4 - metrics.Descent.Round()

	if _, err := a.context.DrawString(sb.String(), freetype.Pt(a.config.Borders.Left, textY)); err != nil {
		return fmt.Errorf("drawing info text: %w", err)
	}
	return nil
}

// Helper functions

// niceCeil rounds v up to 1, 2 or 5 times a power of ten
func niceCeil(v int) int {
	magnitude := int(math.Pow(10, math.Floor(math.Log10(float64(v)))))
	for _, m := range []int{1, 2, 5, 10} {
		if m*magnitude >= v {
			return m * magnitude
		}
	}
	return 10 * magnitude
}

// altitudeTicks returns five evenly spaced labels from zero to top
func altitudeTicks(top int) []int {
	const count = 5

	ticks := make([]int, 0, count+1)
	for i := 0; i <= count; i++ {
		ticks = append(ticks, top*i/count)
	}
	return ticks
}

func niceTimeStep(duration time.Duration, width int) time.Duration {
	steps := []time.Duration{
		500 * time.Millisecond,
		time.Second,
		2 * time.Second,
		5 * time.Second,
		10 * time.Second,
		15 * time.Second,
		30 * time.Second,
		time.Minute,
		5 * time.Minute,
	}

	target := time.Duration(float64(duration) / (float64(width) / pixelsPerLabel))
	for _, step := range steps {
		if step >= target {
			return step
		}
	}
	return 10 * time.Minute
}

func formatFlightTime(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%.1fs", d.Seconds())
	}
	return d.Round(time.Second).String()
}
