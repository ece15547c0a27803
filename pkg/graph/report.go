package graph

// PassResult reports one taxonomy pass (one source file).
type PassResult struct {
	File          string
	Entities      int
	Relationships int
	Appends       int
	SkippedRows   int
	Err           error
}

// DocumentResult reports one roadmap document.
type DocumentResult struct {
	File          string
	Slug          string
	Excluded      bool
	Entities      int
	Relationships int
	Err           error
}

// Report summarizes an ingestion run. Partial ingestion is an expected
// outcome: failed passes and documents are recorded here and the run is
// safely re-runnable to pick up the remainder, because every write is an
// idempotent merge.
type Report struct {
	RunID string

	// TaxonomyErr is set when the taxonomy root itself was missing and the
	// whole taxonomy ingest was skipped.
	TaxonomyErr error
	Taxonomy    []PassResult

	// RoadmapsErr is set when the roadmap root itself was missing and the
	// whole roadmap ingest was skipped.
	RoadmapsErr error
	Roadmaps    []DocumentResult
}

// Failed returns the files/documents that did not ingest cleanly.
func (r *Report) Failed() []string {
	var out []string
	for _, p := range r.Taxonomy {
		if p.Err != nil {
			out = append(out, p.File)
		}
	}
	for _, d := range r.Roadmaps {
		if d.Err != nil {
			out = append(out, d.File)
		}
	}
	return out
}

// Entities returns the total entity merges issued by the run.
func (r *Report) Entities() int {
	n := 0
	for _, p := range r.Taxonomy {
		n += p.Entities
	}
	for _, d := range r.Roadmaps {
		n += d.Entities
	}
	return n
}

// Relationships returns the total relationship merges issued by the run.
func (r *Report) Relationships() int {
	n := 0
	for _, p := range r.Taxonomy {
		n += p.Relationships
	}
	for _, d := range r.Roadmaps {
		n += d.Relationships
	}
	return n
}
