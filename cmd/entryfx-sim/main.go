// Package main is the entry point for the headless entry effect scenario runner.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	"go.uber.org/zap"

	"github.com/Faultbox/entryfx/internal/config"
	"github.com/Faultbox/entryfx/internal/effect"
	"github.com/Faultbox/entryfx/internal/logger"
	"github.com/Faultbox/entryfx/internal/sim"
)

func main() {
	// Parse CLI flags first
	config.ParseFlags()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Config error: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	if err := logger.Init(cfg.Logging.Level, cfg.Logging.LogFile); err != nil {
		fmt.Fprintf(os.Stderr, "Logger error: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("=== EntryFX Scenario Runner ===")
	logger.Sugar.Debugf("Config: %+v", cfg)

	if err := run(cfg); err != nil {
		logger.Error("scenario failed", zap.Error(err))
		logger.Sync()
		os.Exit(1)
	}
}

func run(cfg *config.Config) error {
	layersPath := cfg.Simulation.LayersPath
	store, err := config.LoadLayers(layersPath, logger.Named("layers"))
	if err != nil {
		return err
	}

	if name, path := config.ExportBody(); name != "" {
		if err := config.SaveBodyLayer(path, store.Layers, name); err != nil {
			return err
		}
		logger.Info("exported body config", zap.String("body", name), zap.String("path", path))
		return nil
	}

	if cfg.Simulation.ScenarioPath == "" {
		return fmt.Errorf("no scenario given, use -scenario or simulation.scenario_path")
	}
	sc, err := sim.LoadScenario(cfg.Simulation.ScenarioPath)
	if err != nil {
		return err
	}

	// A nil meter uses the global provider, which stays a no-op until an
	// exporter installs one.
	var meter metric.Meter
	if !cfg.Telemetry.Enabled {
		meter = noop.NewMeterProvider().Meter("entryfx")
	}
	metrics, err := effect.NewMetrics(meter)
	if err != nil {
		return err
	}

	r, err := sim.New(sim.Options{
		Config:   cfg,
		Store:    store,
		Scenario: sc,
		Logger:   logger.Named("effect"),
		Metrics:  metrics,
		ReloadLayers: func() (*config.LayerStore, error) {
			return config.LoadLayers(layersPath, logger.Named("layers"))
		},
	})
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	summary, err := r.Run(ctx, nil)
	if err != nil {
		return err
	}

	for _, id := range r.Manager().Vehicles() {
		logger.Info("vehicle summary",
			zap.String("vehicle", id),
			zap.Int("rebuilds", summary.Rebuilds[id]),
			zap.Float64("peak_strength", summary.PeakStrength[id]))
	}
	return nil
}
