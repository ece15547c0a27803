// Package config assembles the ingestion configuration from the
// environment and validates it before anything connects to a backend.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator"

	"github.com/JadenBair-FS/aris/internal/util"
)

// Backend names accepted by STORAGE_BACKEND.
const (
	BackendNeo4j    = "neo4j"
	BackendPostgres = "postgres"
	BackendMemory   = "memory"
)

type Neo4jConfig struct {
	URI      string `validate:"required"`
	Username string `validate:"required"`
	Password string `validate:"required"`
	Database string
}

type S3Config struct {
	Region    string
	Endpoint  string
	AccessKey string
	SecretKey string
}

type QueueConfig struct {
	User     string `validate:"required"`
	Password string `validate:"required"`
	Host     string `validate:"required"`
	Port     string `validate:"required"`
}

// Config is the full ingestion configuration. Sources are either local
// directory paths or s3://bucket/prefix URLs.
type Config struct {
	Debug bool

	TaxonomySource string `validate:"required"`
	RoadmapSource  string `validate:"required"`

	ImportanceThreshold float64 `validate:"gte=1,lte=5"`
	// ExcludedRoadmaps is nil when EXCLUDED_ROADMAPS is unset, selecting the
	// built-in exclusion list. An explicitly empty value excludes nothing.
	ExcludedRoadmaps  []string
	DedupeListAppends bool
	FuzzyMinLength    int `validate:"gte=0"`
	ParallelRoadmaps  int `validate:"gte=1"`
	MaxRetries        int `validate:"gte=1"`
	RetryBackoff      time.Duration

	StorageBackend string `validate:"oneof=neo4j postgres memory"`
	Neo4j          Neo4jConfig
	DatabaseURL    string
	S3             S3Config
	Queue          QueueConfig
}

// Load reads the configuration from the environment. Backend connection
// params are validated only for the selected backend; queue params only
// when requireQueue is set (the worker needs them, the CLI does not).
func Load(requireQueue bool) (*Config, error) {
	cfg := &Config{
		Debug: util.GetEnvBool("DEBUG", false),

		TaxonomySource: util.GetEnv("TAXONOMY_SOURCE"),
		RoadmapSource:  util.GetEnv("ROADMAP_SOURCE"),

		ImportanceThreshold: util.GetEnvNumeric("IMPORTANCE_THRESHOLD", 3),
		ExcludedRoadmaps:    envList("EXCLUDED_ROADMAPS"),
		DedupeListAppends:   util.GetEnvBool("DEDUPE_LIST_APPENDS", false),
		FuzzyMinLength:      int(util.GetEnvNumeric("FUZZY_MIN_LENGTH", 0)),
		ParallelRoadmaps:    int(util.GetEnvNumeric("PARALLEL_ROADMAPS", 1)),
		MaxRetries:          int(util.GetEnvNumeric("MAX_RETRIES", 3)),
		RetryBackoff:        time.Duration(util.GetEnvNumeric("RETRY_BACKOFF_MS", 500)) * time.Millisecond,

		StorageBackend: util.GetEnvString("STORAGE_BACKEND", BackendNeo4j),
		Neo4j: Neo4jConfig{
			URI:      util.GetEnv("NEO4J_URI"),
			Username: util.GetEnv("NEO4J_USERNAME"),
			Password: util.GetEnv("NEO4J_PASSWORD"),
			Database: util.GetEnv("NEO4J_DATABASE"),
		},
		DatabaseURL: util.GetEnv("DATABASE_URL"),
		S3: S3Config{
			Region:    util.GetEnv("S3_REGION"),
			Endpoint:  util.GetEnv("S3_ENDPOINT"),
			AccessKey: util.GetEnv("S3_ACCESS_KEY"),
			SecretKey: util.GetEnv("S3_SECRET_KEY"),
		},
		Queue: QueueConfig{
			User:     util.GetEnv("RABBITMQ_USER"),
			Password: util.GetEnv("RABBITMQ_PASSWORD"),
			Host:     util.GetEnv("RABBITMQ_HOST"),
			Port:     util.GetEnv("RABBITMQ_PORT"),
		},
	}

	v := validator.New()
	if err := v.StructExcept(cfg, "Neo4j", "Queue"); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	switch cfg.StorageBackend {
	case BackendNeo4j:
		if err := v.Struct(cfg.Neo4j); err != nil {
			return nil, fmt.Errorf("config: neo4j: %w", err)
		}
	case BackendPostgres:
		if cfg.DatabaseURL == "" {
			return nil, fmt.Errorf("config: DATABASE_URL is required for the postgres backend")
		}
	}
	if requireQueue {
		if err := v.Struct(cfg.Queue); err != nil {
			return nil, fmt.Errorf("config: rabbitmq: %w", err)
		}
	}
	return cfg, nil
}

// envList splits a comma-separated env var, trimming entries. Unset
// returns nil; set-but-empty returns an empty slice.
func envList(key string) []string {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return nil
	}
	out := []string{}
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
