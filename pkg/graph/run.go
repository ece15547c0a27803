package graph

import (
	"context"
	"errors"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"

	"github.com/JadenBair-FS/aris/pkg/loader"
	"github.com/JadenBair-FS/aris/pkg/logger"
	"github.com/JadenBair-FS/aris/pkg/store"
)

// Run executes a full ingestion: the taxonomy ingest first (roadmap
// domain→job links depend on Job entities being present), then every
// roadmap document. A missing root aborts only its own ingestor; the other
// still runs. The returned error is non-nil only for cancellation — partial
// failures are recorded in the report.
func (g *Ingestor) Run(ctx context.Context, taxonomySrc, roadmapSrc loader.Source, st store.EntityStore) (*Report, error) {
	runID, err := gonanoid.New()
	if err != nil {
		return nil, err
	}
	report := &Report{RunID: runID}

	logger.Info("[Ingest] Run started", "run_id", runID)

	report.Taxonomy, err = g.IngestTaxonomy(ctx, taxonomySrc, st)
	if err != nil {
		if cancelled(err) {
			return report, err
		}
		logger.Error("[Ingest] Taxonomy ingest skipped", "run_id", runID, "err", err)
		report.TaxonomyErr = err
	}

	report.Roadmaps, err = g.IngestRoadmaps(ctx, roadmapSrc, st)
	if err != nil {
		if cancelled(err) {
			return report, err
		}
		logger.Error("[Ingest] Roadmap ingest skipped", "run_id", runID, "err", err)
		report.RoadmapsErr = err
	}

	logger.Info("[Ingest] Run completed",
		"run_id", runID,
		"entities", report.Entities(),
		"relationships", report.Relationships(),
		"failed", len(report.Failed()),
	)
	return report, nil
}

// retryWrite retries a store write a bounded number of times with linear
// backoff. Safe because every write is an idempotent merge batch.
func (g *Ingestor) retryWrite(ctx context.Context, fn func(context.Context) error) error {
	var lastErr error
	for attempt := 1; attempt <= g.maxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		err := fn(ctx)
		if err == nil {
			return nil
		}
		if cancelled(err) {
			return err
		}
		lastErr = err
		logger.Warn("store write failed, retrying",
			"attempt", attempt, "max", g.maxRetries, "err", err)
		if attempt < g.maxRetries {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(g.retryBackoff * time.Duration(attempt)):
			}
		}
	}
	return lastErr
}

func cancelled(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
