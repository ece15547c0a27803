// Package ingest wires the configuration to sources, storage, and the
// graph pipeline. Both the one-shot CLI and the queue worker drive
// ingestion through a Runner.
package ingest

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JadenBair-FS/aris/internal/config"
	"github.com/JadenBair-FS/aris/internal/util"
	"github.com/JadenBair-FS/aris/pkg/graph"
	"github.com/JadenBair-FS/aris/pkg/leaselock"
	"github.com/JadenBair-FS/aris/pkg/loader"
	"github.com/JadenBair-FS/aris/pkg/loader/local"
	s3loader "github.com/JadenBair-FS/aris/pkg/loader/s3"
	"github.com/JadenBair-FS/aris/pkg/logger"
	"github.com/JadenBair-FS/aris/pkg/store"
	"github.com/JadenBair-FS/aris/pkg/store/memory"
	neo4jstore "github.com/JadenBair-FS/aris/pkg/store/neo4j"
	pgxstore "github.com/JadenBair-FS/aris/pkg/store/pgx"
)

// ingestLeaseKey serializes ingestion runs across workers sharing one
// graph.
const ingestLeaseKey = "aris:ingest"

type Runner struct {
	cfg  *config.Config
	ing  *graph.Ingestor
	pool *pgxpool.Pool
	lock *leaselock.Client
}

// NewRunner prepares a Runner. When a DATABASE_URL is configured the
// schema is migrated up front and runs are serialized through the
// Postgres lease lock; without one, runs are unguarded.
func NewRunner(ctx context.Context, cfg *config.Config) (*Runner, error) {
	r := &Runner{
		cfg: cfg,
		ing: graph.NewIngestor(graph.NewIngestorParams{
			ImportanceThreshold: cfg.ImportanceThreshold,
			ExcludedRoadmaps:    cfg.ExcludedRoadmaps,
			ParallelRoadmaps:    cfg.ParallelRoadmaps,
			MaxRetries:          cfg.MaxRetries,
			RetryBackoff:        cfg.RetryBackoff,
			FuzzyMinLength:      cfg.FuzzyMinLength,
		}),
	}

	if cfg.DatabaseURL != "" {
		if err := util.RetryErr(3, func() error {
			return pgxstore.Migrate(cfg.DatabaseURL)
		}); err != nil {
			return nil, err
		}
		pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		r.pool = pool
		r.lock = leaselock.New(pool)
	}
	return r, nil
}

// Close releases the runner's connection pool.
func (r *Runner) Close() {
	if r.pool != nil {
		r.pool.Close()
	}
}

// Run executes a full ingestion: taxonomy, then roadmaps.
func (r *Runner) Run(ctx context.Context) (*graph.Report, error) {
	var report *graph.Report
	err := r.withLease(ctx, func(ctx context.Context) error {
		st, err := r.openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close(context.Background())

		taxonomySrc, err := r.openSource(ctx, r.cfg.TaxonomySource)
		if err != nil {
			return err
		}
		roadmapSrc, err := r.openSource(ctx, r.cfg.RoadmapSource)
		if err != nil {
			return err
		}
		report, err = r.ing.Run(ctx, taxonomySrc, roadmapSrc, st)
		return err
	})
	return report, err
}

// RunTaxonomy executes only the taxonomy ingest.
func (r *Runner) RunTaxonomy(ctx context.Context) error {
	return r.withLease(ctx, func(ctx context.Context) error {
		st, err := r.openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close(context.Background())

		src, err := r.openSource(ctx, r.cfg.TaxonomySource)
		if err != nil {
			return err
		}
		results, err := r.ing.IngestTaxonomy(ctx, src, st)
		if err != nil {
			return err
		}
		return firstPassErr(results)
	})
}

// RunRoadmaps executes only the roadmap ingest.
func (r *Runner) RunRoadmaps(ctx context.Context) error {
	return r.withLease(ctx, func(ctx context.Context) error {
		st, err := r.openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close(context.Background())

		src, err := r.openSource(ctx, r.cfg.RoadmapSource)
		if err != nil {
			return err
		}
		results, err := r.ing.IngestRoadmaps(ctx, src, st)
		if err != nil {
			return err
		}
		for _, res := range results {
			if res.Err != nil {
				return fmt.Errorf("roadmap %s: %w", res.File, res.Err)
			}
		}
		return nil
	})
}

func (r *Runner) withLease(ctx context.Context, fn func(ctx context.Context) error) error {
	if r.lock == nil {
		return fn(ctx)
	}
	return r.lock.WithLease(ctx, ingestLeaseKey, leaselock.Options{
		TTL:  2 * time.Minute,
		Wait: true,
	}, fn)
}

func (r *Runner) openStore(ctx context.Context) (store.EntityStore, error) {
	switch r.cfg.StorageBackend {
	case config.BackendMemory:
		return memory.New(memory.Params{DedupeListAppends: r.cfg.DedupeListAppends}), nil

	case config.BackendPostgres:
		if r.pool == nil {
			return nil, fmt.Errorf("postgres backend requires DATABASE_URL")
		}
		return pgxstore.NewStore(pgxstore.Params{
			Pool:              r.pool,
			DedupeListAppends: r.cfg.DedupeListAppends,
		})

	case config.BackendNeo4j:
		client, err := util.RetryWithContext(ctx, 3, func(ctx context.Context) (*neo4jstore.Client, error) {
			return neo4jstore.NewClient(ctx, neo4jstore.NewClientParams{
				URI:      r.cfg.Neo4j.URI,
				Username: r.cfg.Neo4j.Username,
				Password: r.cfg.Neo4j.Password,
				Database: r.cfg.Neo4j.Database,
			})
		})
		if err != nil {
			return nil, err
		}
		client.InitSchema(ctx)
		return neo4jstore.NewStore(neo4jstore.Params{
			Client:            client,
			DedupeListAppends: r.cfg.DedupeListAppends,
		})

	default:
		return nil, fmt.Errorf("unknown storage backend %q", r.cfg.StorageBackend)
	}
}

// openSource maps a configured source root to a loader: s3://bucket/prefix
// URLs to the S3 source, anything else to the local filesystem.
func (r *Runner) openSource(ctx context.Context, raw string) (loader.Source, error) {
	if !strings.HasPrefix(raw, "s3://") {
		return local.NewSource(raw), nil
	}

	rest := strings.TrimPrefix(raw, "s3://")
	bucket, prefix, _ := strings.Cut(rest, "/")
	if bucket == "" {
		return nil, fmt.Errorf("invalid s3 source %q", raw)
	}
	client, err := s3loader.NewClient(ctx, s3loader.NewClientParams{
		Region:    r.cfg.S3.Region,
		Endpoint:  r.cfg.S3.Endpoint,
		AccessKey: r.cfg.S3.AccessKey,
		SecretKey: r.cfg.S3.SecretKey,
	})
	if err != nil {
		return nil, err
	}
	return s3loader.NewSource(client, bucket, prefix), nil
}

func firstPassErr(results []graph.PassResult) error {
	for _, res := range results {
		if res.Err != nil {
			logger.Warn("taxonomy pass failed", "file", res.File, "err", res.Err)
			return fmt.Errorf("taxonomy pass %s: %w", res.File, res.Err)
		}
	}
	return nil
}
