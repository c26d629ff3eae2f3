package app

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"
	"time"
)

const (
	ImagePNG  = "png"
	ImageJPEG = "jpeg"
)

type ImageFormat string

type Config struct {
	DBPath        string
	FlightID      int64 // Zero selects the most recent flight
	OutputFile    string
	Format        ImageFormat
	Width         int
	Height        int
	TimeZone      *time.Location
	Verbose       bool
	NoAnnotations bool
}

var validImageFormats = map[ImageFormat]struct{}{
	ImagePNG:  {},
	ImageJPEG: {},
}

func NewConfig() *Config {
	return &Config{
		Format:   ImagePNG,
		Width:    defaultWidth,
		Height:   defaultHeight,
		TimeZone: time.Local,
	}
}

// NewConfigFromArgs parses the command line arguments without the program name
func NewConfigFromArgs(args []string, output io.Writer) (*Config, error) {
	c := NewConfig()

	fs := flag.NewFlagSet("flightplot", flag.ContinueOnError)
	fs.SetOutput(output)

	var imageFormat, timeZone string
	fs.StringVar(&c.DBPath, "db", "", "Path to the flight recorder database file")
	fs.Int64Var(&c.FlightID, "f", 0, "Flight ID, the most recent flight if omitted")
	fs.StringVar(&c.OutputFile, "o", "", "Path to the output file without extension")
	fs.StringVar(&imageFormat, "format", ImagePNG, "Output image format. [png, jpeg]")
	fs.IntVar(&c.Width, "width", defaultWidth, "Plot width in pixels")
	fs.IntVar(&c.Height, "height", defaultHeight, "Plot height in pixels")
	fs.StringVar(&timeZone, "tz", "Local", "Time zone of the start time label")
	fs.BoolVar(&c.Verbose, "verbose", false, "Enable more verbose output")
	fs.BoolVar(&c.NoAnnotations, "no-annotations", false, "Disable annotations such as the altitude and time scales")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	imageFormat = strings.ToLower(imageFormat)

	var err error
	switch {
	case c.DBPath == "":
		err = errors.New("db path is required")
	case c.FlightID < 0:
		err = fmt.Errorf("invalid flight id: %d", c.FlightID)
	case c.OutputFile == "":
		err = errors.New("output file is required")
	case c.Width < 200 || c.Height < 100:
		err = fmt.Errorf("plot is too small: %dx%d", c.Width, c.Height)
	default:
		if _, ok := validImageFormats[ImageFormat(imageFormat)]; !ok {
			err = fmt.Errorf("invalid image format: %s", imageFormat)
		}
	}
	if err == nil {
		if c.TimeZone, err = time.LoadLocation(timeZone); err != nil {
			err = fmt.Errorf("invalid time zone: %w", err)
		}
	}

	if err != nil {
		fs.Usage()
		return nil, err
	}

	c.Format = ImageFormat(imageFormat)
	c.OutputFile = fmt.Sprintf("%s.%s", c.OutputFile, c.Format)
	return c, nil
}
