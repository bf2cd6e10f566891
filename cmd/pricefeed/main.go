package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/PetroPricesnearMe/petrol-prices-melbourne/internal/config"
	"github.com/PetroPricesnearMe/petrol-prices-melbourne/internal/logging"
	"github.com/PetroPricesnearMe/petrol-prices-melbourne/internal/pricefeed"
)

const appName = "pricefeed"

// Default version is "dev" if not set with -ldflags "-X main.version=..."
var version = "dev"

func main() {
	config.LoadDotEnv()
	cfg, err := config.LoadFeedFromEnv()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}

	logger := logging.New(cfg.LogLevel, cfg.AppEnv, version, appName)
	slog.SetDefault(logger)

	slog.Info("starting",
		"app", appName,
		"version", version,
		"env", cfg.AppEnv,
		"log_level", cfg.LogLevel.String(),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := pricefeed.Run(ctx, cfg, logger); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("run failed", "error", err)
		os.Exit(1)
	}

	slog.Info("shutting down")
}
