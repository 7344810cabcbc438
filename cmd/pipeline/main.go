package main

import (
	"context"
	"flag"
	"log/slog"
	"os"

	"fitcli/internal/config"
	"fitcli/internal/infrastructure"
	"fitcli/internal/operations"
)

func main() {
	rawDir := flag.String("raw", "", "raw export root holding one subfolder per time window (defaults to data/raw)")
	outDir := flag.String("out", "", "output directory for the merged CSV and audit report (defaults to data/processed)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load config", "error", err)
		os.Exit(1)
	}
	if *rawDir != "" {
		cfg.Data.RawDir = *rawDir
	}
	if *outDir != "" {
		cfg.Data.ProcessedDir = *outDir
	}

	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		slog.Error("Failed to initialize logger", "error", err)
		os.Exit(1)
	}
	defer infrastructure.CloseLogFile()

	telemetry, err := infrastructure.InitializeTelemetry(cfg.Tracing, logger)
	if err != nil {
		logger.Error("Failed to initialize tracing", "error", err)
		os.Exit(1)
	}
	ctx := context.Background()
	defer telemetry.Shutdown(ctx)

	manager := operations.NewManager(cfg, logger, telemetry.Tracer, operations.DefaultSteps())
	state, err := manager.Run(ctx)
	if err != nil {
		logger.Error("Pipeline run failed", "error", err)
		os.Exit(1)
	}

	logger.Info("Pipeline run succeeded",
		slog.String("run_id", state.RunID),
		slog.Int("rows", len(state.Cleaned)),
		slog.String("output", cfg.Data.OutputPath()))
}
