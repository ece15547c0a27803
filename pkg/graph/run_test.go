package graph

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/JadenBair-FS/aris/pkg/common"
	"github.com/JadenBair-FS/aris/pkg/store"
	"github.com/JadenBair-FS/aris/pkg/store/memory"
)

func TestRun_EndToEnd(t *testing.T) {
	ctx := context.Background()
	st := memory.New(memory.Params{})

	taxonomySrc := writeSourceDir(t, map[string]string{
		occupationFile: "O*NET-SOC Code\tTitle\tDescription\n" +
			"15-1254.00\tWeb Developer\tDesigns and builds web sites.\n",
		"Skills.txt": "O*NET-SOC Code\tElement Name\tScale ID\tData Value\n" +
			"15-1254.00\tPython\tIM\t4.0\n" +
			"15-1254.00\tNegotiation\tIM\t1.5\n",
	})
	roadmapSrc := writeSourceDir(t, map[string]string{
		"web-developer.json": `{
			"slug": "web-developer",
			"title": {"page": "Web Developer"},
			"nodes": [
				{"id": "n1", "type": "topic", "data": {"label": "Python"}},
				{"id": "n2", "type": "topic", "data": {"label": "HTML"}}
			],
			"edges": [{"source": "n1", "target": "n2"}]
		}`,
	})

	report, err := NewIngestor(NewIngestorParams{}).Run(ctx, taxonomySrc, roadmapSrc, st)
	if err != nil {
		t.Fatal(err)
	}
	if report.RunID == "" {
		t.Fatal("run id missing")
	}
	if report.TaxonomyErr != nil || report.RoadmapsErr != nil {
		t.Fatalf("unexpected ingest errors: %v / %v", report.TaxonomyErr, report.RoadmapsErr)
	}

	// One entity per canonical name: the roadmap domain merges onto the job
	// of the same name, so three entities total.
	if got := st.EntityCount(); got != 3 {
		t.Fatalf("expected 3 entities, got %d", got)
	}
	wd := st.Entity("Web Developer")
	if wd == nil || !wd.HasKind(common.KindJob) || !wd.HasKind(common.KindDomain) {
		t.Fatalf("Web Developer must carry both Job and Domain, got %v", wd)
	}
	for _, skill := range []string{"Python", "HTML"} {
		if e := st.Entity(skill); e == nil || !e.HasKind(common.KindSkill) {
			t.Fatalf("expected Skill entity %q, got %v", skill, e)
		}
	}

	// The taxonomy importance survives the roadmap's unweighted re-merge of
	// the same edge.
	w, ok := st.RelationshipWeight("Web Developer", common.RelHasSkill, "Python")
	if !ok || w == nil || *w != 4.0 {
		t.Fatalf("expected HAS_SKILL weight 4.0, got %v (exists=%v)", w, ok)
	}
	if _, ok := st.RelationshipWeight("Web Developer", common.RelHasSkill, "HTML"); !ok {
		t.Fatal("expected HAS_SKILL edge to HTML")
	}
	if _, ok := st.RelationshipWeight("Python", common.RelRequires, "HTML"); !ok {
		t.Fatal("expected REQUIRES edge Python -> HTML")
	}
	if _, ok := st.RelationshipWeight("Web Developer", common.RelRepresents, "Web Developer"); !ok {
		t.Fatal("expected the domain to represent its namesake job")
	}
	if _, ok := st.RelationshipWeight("Web Developer", common.RelHasSkill, "Negotiation"); ok {
		t.Fatal("below-threshold element must not produce an edge")
	}
	if got := st.RelationshipCount(); got != 4 {
		t.Fatalf("expected 4 relationships, got %d", got)
	}

	reqs, err := st.JobRequirements(ctx, "Web Developer")
	if err != nil {
		t.Fatal(err)
	}
	if len(reqs) != 2 {
		t.Fatalf("expected 2 job requirements, got %d", len(reqs))
	}
}

func TestRun_Idempotent(t *testing.T) {
	ctx := context.Background()
	st := memory.New(memory.Params{})

	taxonomySrc := writeSourceDir(t, map[string]string{
		occupationFile: occupationsTSV,
		alternateTitlesFile: "O*NET-SOC Code\tAlternate Title\n" +
			"15-1254.00\tWebmaster\n",
	})
	roadmapSrc := writeSourceDir(t, map[string]string{
		"web-developer.json": `{
			"slug": "web-developer",
			"title": {"page": "Web Developer"},
			"nodes": [{"id": "n1", "type": "topic", "data": {"label": "HTML"}}],
			"edges": []
		}`,
	})

	g := NewIngestor(NewIngestorParams{})
	if _, err := g.Run(ctx, taxonomySrc, roadmapSrc, st); err != nil {
		t.Fatal(err)
	}
	ents, rels := st.EntityCount(), st.RelationshipCount()

	if _, err := g.Run(ctx, taxonomySrc, roadmapSrc, st); err != nil {
		t.Fatal(err)
	}
	if st.EntityCount() != ents || st.RelationshipCount() != rels {
		t.Fatalf("re-run changed graph shape: %d/%d -> %d/%d",
			ents, rels, st.EntityCount(), st.RelationshipCount())
	}

	// List appends are not deduplicated unless the store is configured to.
	titles, _ := st.Entity("Web Developer").Attrs["alternate_titles"].([]string)
	if len(titles) != 2 {
		t.Fatalf("expected the append to repeat across runs, got %v", titles)
	}
}

func TestRun_MissingRootsAreReported(t *testing.T) {
	ctx := context.Background()
	st := memory.New(memory.Params{})
	roadmapSrc := writeSourceDir(t, map[string]string{
		"frontend.json": `{"slug": "frontend", "title": {"page": "Frontend"}, "nodes": [], "edges": []}`,
	})
	// An existing but empty taxonomy root: every pass reports a missing
	// file without aborting the run.
	emptyTaxonomy := writeSourceDir(t, nil)

	report, err := NewIngestor(NewIngestorParams{}).Run(ctx, emptyTaxonomy, roadmapSrc, st)
	if err != nil {
		t.Fatal(err)
	}
	for _, pass := range report.Taxonomy {
		if pass.Err == nil {
			t.Fatalf("pass %s should report its missing file", pass.File)
		}
	}
	if report.RoadmapsErr != nil {
		t.Fatalf("roadmap ingest must run despite taxonomy trouble: %v", report.RoadmapsErr)
	}
	if st.Entity("Frontend") == nil {
		t.Fatal("roadmap document must ingest")
	}
}

type flakyStore struct {
	store.EntityStore
	failures int
}

func (f *flakyStore) MergeEntities(ctx context.Context, ms []common.EntityMerge) error {
	if f.failures > 0 {
		f.failures--
		return errors.New("transient write failure")
	}
	return f.EntityStore.MergeEntities(ctx, ms)
}

func TestRetryWrite_RecoversFromTransientFailures(t *testing.T) {
	ctx := context.Background()
	mem := memory.New(memory.Params{})
	st := &flakyStore{EntityStore: mem, failures: 2}

	g := NewIngestor(NewIngestorParams{MaxRetries: 3, RetryBackoff: time.Millisecond})
	err := g.retryWrite(ctx, func(ctx context.Context) error {
		return st.MergeEntities(ctx, []common.EntityMerge{{Name: "HTML", Kind: common.KindSkill}})
	})
	if err != nil {
		t.Fatalf("expected recovery within the retry budget: %v", err)
	}
	if mem.Entity("HTML") == nil {
		t.Fatal("write must land after retries")
	}
}

func TestRetryWrite_GivesUpAfterBudget(t *testing.T) {
	ctx := context.Background()
	st := &flakyStore{EntityStore: memory.New(memory.Params{}), failures: 10}

	g := NewIngestor(NewIngestorParams{MaxRetries: 2, RetryBackoff: time.Millisecond})
	err := g.retryWrite(ctx, func(ctx context.Context) error {
		return st.MergeEntities(ctx, nil)
	})
	if err == nil {
		t.Fatal("expected the retry budget to be exhausted")
	}
}

func TestRetryWrite_StopsOnCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	g := NewIngestor(NewIngestorParams{MaxRetries: 5, RetryBackoff: time.Minute})
	calls := 0
	err := g.retryWrite(ctx, func(ctx context.Context) error {
		calls++
		return errors.New("should not run")
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if calls != 0 {
		t.Fatalf("cancelled retry must not invoke the write, ran %d times", calls)
	}
}
