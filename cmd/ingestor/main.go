package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/JadenBair-FS/aris/internal/config"
	"github.com/JadenBair-FS/aris/internal/ingest"
	"github.com/JadenBair-FS/aris/internal/util"
	"github.com/JadenBair-FS/aris/pkg/logger"
	"github.com/JadenBair-FS/aris/pkg/logger/console"
)

// One-shot ingestion: run the full pipeline once against the configured
// sources and storage, report, and exit non-zero when anything failed.
func main() {
	util.LoadEnv()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	debug := util.GetEnvBool("DEBUG", false)
	consoleLogger := console.NewConsoleLogger(console.ConsoleLoggerParams{
		Debug: debug,
	})
	logger.Init(consoleLogger)

	cfg, err := config.Load(false)
	if err != nil {
		logger.Fatal("Invalid configuration", "err", err)
	}

	runner, err := ingest.NewRunner(ctx, cfg)
	if err != nil {
		logger.Fatal("Could not prepare ingestion", "err", err)
	}
	defer runner.Close()

	report, err := runner.Run(ctx)
	if err != nil {
		logger.Fatal("Ingestion aborted", "err", err)
	}

	if report.TaxonomyErr != nil {
		logger.Error("Taxonomy ingest skipped", "err", report.TaxonomyErr)
	}
	if report.RoadmapsErr != nil {
		logger.Error("Roadmap ingest skipped", "err", report.RoadmapsErr)
	}
	for _, file := range report.Failed() {
		logger.Error("Ingest failed", "file", file)
	}

	logger.Info("Ingestion finished",
		"run_id", report.RunID,
		"entities", report.Entities(),
		"relationships", report.Relationships(),
		"failures", len(report.Failed()),
	)

	if report.TaxonomyErr != nil || report.RoadmapsErr != nil || len(report.Failed()) > 0 {
		os.Exit(1)
	}
}
