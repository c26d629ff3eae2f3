package app

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"io"
	"log/slog"
	"os"

	"github.com/dustin/go-humanize"

	"github.com/roman-kulish/rocket-flight-control/internal/storage"
)

func Run(ctx context.Context, config *Config, logger *slog.Logger) (err error) {
	if _, err = os.Stat(config.DBPath); err != nil && os.IsNotExist(err) {
		return fmt.Errorf("database file '%s' does not exist: %w", config.DBPath, err)
	}

	store := storage.NewSqliteStore(config.DBPath)
	defer func() {
		if cErr := store.Close(); cErr != nil {
			err = errors.Join(err, fmt.Errorf("closing storage: %w", cErr))
		}
	}()

	profile, err := LoadProfile(ctx, store, config.FlightID)
	if err != nil {
		return err
	}

	logger.Info("flight loaded",
		slog.Group("flight",
			slog.Int64("id", profile.FlightID),
			slog.String("uuid", profile.UUID.String()),
			slog.String("start", humanize.Time(profile.Start)),
			slog.Duration("duration", profile.Duration),
			slog.Int("samples", len(profile.Points)),
			slog.Int("garbled", profile.Garbled),
			slog.String("apogee", humanize.Comma(int64(profile.Apogee.Altitude))+" ft"),
		))

	if config.Verbose {
		for _, span := range profile.Phases {
			logger.Info("flight phase", slog.String("state", span.State), slog.Duration("from", span.From), slog.Duration("to", span.To))
		}
	}

	renderer := NewProfileRenderer(RenderConfig{
		Width:         config.Width,
		Height:        config.Height,
		Location:      config.TimeZone,
		NoAnnotations: config.NoAnnotations,
	})

	img, err := renderer.Render(profile)
	if err != nil {
		return fmt.Errorf("rendering flight profile: %w", err)
	}

	out, err := os.Create(config.OutputFile)
	if err != nil {
		return fmt.Errorf("creating output file: %w", err)
	}
	defer func() {
		if cErr := out.Close(); cErr != nil {
			err = errors.Join(err, cErr)
		}
	}()

	if err = encode(out, img, config.Format); err != nil {
		return fmt.Errorf("encoding image: %w", err)
	}

	logger.Info("flight profile rendered",
		slog.Group("image",
			slog.String("destination", config.OutputFile),
			slog.String("format", string(config.Format)),
			slog.Int("width", img.Bounds().Dx()),
			slog.Int("height", img.Bounds().Dy()),
		))

	return nil
}

func encode(w io.Writer, img image.Image, format ImageFormat) error {
	switch format {
	case ImageJPEG:
		return jpeg.Encode(w, img, &jpeg.Options{Quality: 95})
	default:
		return png.Encode(w, img)
	}
}
