package queue

import (
	"context"
	"fmt"

	"github.com/JadenBair-FS/aris/internal/ingest"
	"github.com/JadenBair-FS/aris/pkg/logger"
)

// Process runs the ingest a queue message asks for. Message bodies are
// informational only; the sources and storage come from the worker's
// configuration.
func Process(ctx context.Context, runner *ingest.Runner, queueName string, body string) error {
	logger.Info("Processing ingest request", "queue", queueName, "body", body)

	switch queueName {
	case TaxonomyQueue:
		return runner.RunTaxonomy(ctx)
	case RoadmapsQueue:
		return runner.RunRoadmaps(ctx)
	default:
		return fmt.Errorf("unknown queue %q", queueName)
	}
}
