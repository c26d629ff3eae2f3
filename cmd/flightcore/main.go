package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/roman-kulish/rocket-flight-control/cmd/flightcore/app"
	"github.com/roman-kulish/rocket-flight-control/internal/logsink"
)

func main() {
	var logLevel slog.LevelVar
	options := &slog.HandlerOptions{Level: &logLevel}
	logger := slog.New(slog.NewTextHandler(os.Stdout, options))

	var configPath string
	flag.StringVar(&configPath, "c", "", "Path to the configuration file")
	flag.Parse()

	if configPath == "" {
		logger.Error("no configuration file provided")
		os.Exit(1)
	}

	config, err := app.LoadConfig(configPath)
	if err != nil {
		logger.Error(fmt.Sprintf("failed to load configuration file: %s", err.Error()), slog.String("path", configPath))
		os.Exit(1)
	}

	level, _ := config.Settings.Level()
	logLevel.Set(level)

	if config.LogSink.Path != "" {
		logger = slog.New(logsink.NewHandler(
			slog.NewTextHandler(os.Stdout, options),
			slog.NewTextHandler(logsink.NewFileSink(config.LogSink.Path), options)))
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err = app.Run(ctx, config, logger); err != nil {
		if errors.Is(err, context.Canceled) {
			logger.Warn("flight interrupted")
			return
		}

		logger.Error(err.Error())

		cancel()
		os.Exit(1)
	}
}
