// Package graph builds the occupational knowledge graph. It ingests the
// O*NET taxonomy files and the roadmap documents into a shared entity
// store, collapsing cross-source names onto canonical entities.
package graph

import (
	"time"
)

// DefaultExcludedRoadmaps is the roadmap slug exclusion set used when the
// configuration does not supply one.
var DefaultExcludedRoadmaps = []string{
	"backend-performance-best-practices",
	"frontend-performance-best-practices",
	"code-review-best-practices",
	"code-review",
	"aws",
}

// Ingestor runs the taxonomy and roadmap pipelines against an entity store.
// It holds configuration only; all graph state lives in the store, so the
// same Ingestor can drive any number of runs.
type Ingestor struct {
	threshold        float64
	excluded         map[string]struct{}
	parallelRoadmaps int
	maxRetries       int
	retryBackoff     time.Duration
	fuzzyMinLength   int
}

// NewIngestorParams defines the configuration for creating an Ingestor.
//
// ImportanceThreshold is the minimum importance scale value (1–5) for an
// element row to become a relationship; it defaults to 3.0.
// ExcludedRoadmaps lists roadmap slugs skipped entirely; nil selects
// DefaultExcludedRoadmaps (an explicit empty slice excludes nothing).
// ParallelRoadmaps bounds how many roadmap documents are processed
// concurrently. MaxRetries and RetryBackoff control the bounded retry of a
// document's writes on storage failures. FuzzyMinLength, when positive,
// skips the fuzzy domain→job pass for titles shorter than the guard.
type NewIngestorParams struct {
	ImportanceThreshold float64
	ExcludedRoadmaps    []string
	ParallelRoadmaps    int
	MaxRetries          int
	RetryBackoff        time.Duration
	FuzzyMinLength      int
}

// NewIngestor creates an Ingestor with the provided parameters.
func NewIngestor(params NewIngestorParams) *Ingestor {
	threshold := params.ImportanceThreshold
	if threshold <= 0 {
		threshold = 3.0
	}
	excludedList := params.ExcludedRoadmaps
	if excludedList == nil {
		excludedList = DefaultExcludedRoadmaps
	}
	excluded := make(map[string]struct{}, len(excludedList))
	for _, slug := range excludedList {
		excluded[slug] = struct{}{}
	}
	parallel := params.ParallelRoadmaps
	if parallel <= 0 {
		parallel = 1
	}
	maxRetries := params.MaxRetries
	if maxRetries <= 0 {
		maxRetries = 3
	}
	backoff := params.RetryBackoff
	if backoff <= 0 {
		backoff = 500 * time.Millisecond
	}

	return &Ingestor{
		threshold:        threshold,
		excluded:         excluded,
		parallelRoadmaps: parallel,
		maxRetries:       maxRetries,
		retryBackoff:     backoff,
		fuzzyMinLength:   params.FuzzyMinLength,
	}
}
