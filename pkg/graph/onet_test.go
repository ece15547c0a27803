package graph

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/JadenBair-FS/aris/pkg/common"
	"github.com/JadenBair-FS/aris/pkg/loader"
	"github.com/JadenBair-FS/aris/pkg/loader/local"
	"github.com/JadenBair-FS/aris/pkg/store/memory"
)

func writeSourceDir(t *testing.T, files map[string]string) *local.Source {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return local.NewSource(dir)
}

const occupationsTSV = "O*NET-SOC Code\tTitle\tDescription\n" +
	"15-1254.00\tWeb Developer\tDesigns and builds web sites.\n"

func TestIngestTaxonomy_ThresholdFiltering(t *testing.T) {
	ctx := context.Background()
	st := memory.New(memory.Params{})
	src := writeSourceDir(t, map[string]string{
		occupationFile: occupationsTSV,
		"Skills.txt": "O*NET-SOC Code\tElement Name\tScale ID\tData Value\n" +
			"15-1254.00\tProgramming\tIM\t2.9\n" +
			"15-1254.00\tCritical Thinking\tIM\t3.0\n" +
			"15-1254.00\tReading Comprehension\tLV\t4.8\n",
	})

	results, err := NewIngestor(NewIngestorParams{}).IngestTaxonomy(ctx, src, st)
	if err != nil {
		t.Fatal(err)
	}
	for _, res := range results {
		if res.File == "Skills.txt" && res.Err != nil {
			t.Fatalf("skills pass failed: %v", res.Err)
		}
	}

	if _, ok := st.RelationshipWeight("Web Developer", common.RelHasSkill, "Programming"); ok {
		t.Fatal("IM 2.9 must not produce a relationship")
	}
	w, ok := st.RelationshipWeight("Web Developer", common.RelHasSkill, "Critical Thinking")
	if !ok || w == nil || *w != 3.0 {
		t.Fatalf("IM 3.0 must produce a relationship with weight 3.0, got %v (exists=%v)", w, ok)
	}
	if _, ok := st.RelationshipWeight("Web Developer", common.RelHasSkill, "Reading Comprehension"); ok {
		t.Fatal("non-importance scale rows must not produce relationships")
	}
}

func TestIngestTaxonomy_AlternateTitlesAndUnknownCode(t *testing.T) {
	ctx := context.Background()
	st := memory.New(memory.Params{})
	src := writeSourceDir(t, map[string]string{
		occupationFile: occupationsTSV,
		alternateTitlesFile: "O*NET-SOC Code\tAlternate Title\n" +
			"15-1254.00\tWebmaster\n" +
			"15-1254.00\tWeb Architect\n" +
			"99-9999.00\tGhost Title\n",
	})

	if _, err := NewIngestor(NewIngestorParams{}).IngestTaxonomy(ctx, src, st); err != nil {
		t.Fatal(err)
	}

	e := st.Entity("Web Developer")
	if e == nil {
		t.Fatal("job missing")
	}
	titles, _ := e.Attrs["alternate_titles"].([]string)
	if len(titles) != 2 || titles[0] != "Webmaster" || titles[1] != "Web Architect" {
		t.Fatalf("unexpected alternate titles: %v", titles)
	}
}

func TestIngestTaxonomy_TechnologyTools(t *testing.T) {
	ctx := context.Background()
	st := memory.New(memory.Params{})
	src := writeSourceDir(t, map[string]string{
		occupationFile: occupationsTSV,
		techSkillsFile: "O*NET-SOC Code\tExample\n" +
			"15-1254.00\tnextjs\n" +
			"15-1254.00\tPostgreSQL\n",
	})

	if _, err := NewIngestor(NewIngestorParams{}).IngestTaxonomy(ctx, src, st); err != nil {
		t.Fatal(err)
	}

	// Alias normalization collapses nextjs onto Next.js.
	e := st.Entity("Next.js")
	if e == nil || !e.HasKind(common.KindTool) {
		t.Fatalf("expected Tool entity Next.js, got %v", e)
	}
	if st.Entity("nextjs") != nil {
		t.Fatal("raw spelling must not create a separate entity")
	}
	if _, ok := st.RelationshipWeight("Web Developer", common.RelRequiresTool, "Next.js"); !ok {
		t.Fatal("REQUIRES_TOOL edge missing")
	}
	w, ok := st.RelationshipWeight("Web Developer", common.RelRequiresTool, "PostgreSQL")
	if !ok {
		t.Fatal("REQUIRES_TOOL edge missing for PostgreSQL")
	}
	if w != nil {
		t.Fatalf("tool edges are unweighted, got %v", *w)
	}
}

func TestIngestTaxonomy_MalformedRowsSkipped(t *testing.T) {
	ctx := context.Background()
	st := memory.New(memory.Params{})
	src := writeSourceDir(t, map[string]string{
		occupationFile: occupationsTSV,
		"Skills.txt": "O*NET-SOC Code\tElement Name\tScale ID\tData Value\n" +
			"15-1254.00\tProgramming\tIM\tnot-a-number\n" +
			"15-1254.00\tProgramming\tIM\t4.0\n",
	})

	results, err := NewIngestor(NewIngestorParams{}).IngestTaxonomy(ctx, src, st)
	if err != nil {
		t.Fatal(err)
	}
	var skills PassResult
	for _, res := range results {
		if res.File == "Skills.txt" {
			skills = res
		}
	}
	if skills.SkippedRows != 1 {
		t.Fatalf("expected 1 skipped row, got %d", skills.SkippedRows)
	}
	if skills.Relationships != 1 {
		t.Fatalf("valid row must still ingest, got %d relationships", skills.Relationships)
	}
}

func TestIngestTaxonomy_MissingFileSkipsPass(t *testing.T) {
	ctx := context.Background()
	st := memory.New(memory.Params{})
	src := writeSourceDir(t, map[string]string{occupationFile: occupationsTSV})

	results, err := NewIngestor(NewIngestorParams{}).IngestTaxonomy(ctx, src, st)
	if err != nil {
		t.Fatal(err)
	}

	for _, res := range results {
		if res.File == occupationFile {
			if res.Err != nil {
				t.Fatalf("occupations pass should succeed: %v", res.Err)
			}
			continue
		}
		if !errors.Is(res.Err, loader.ErrNotFound) {
			t.Fatalf("pass %s should report a missing source, got %v", res.File, res.Err)
		}
	}
	if st.Entity("Web Developer") == nil {
		t.Fatal("occupations must ingest despite missing element files")
	}
}

func TestIngestTaxonomy_MissingRootAborts(t *testing.T) {
	ctx := context.Background()
	st := memory.New(memory.Params{})
	src := local.NewSource(filepath.Join(t.TempDir(), "does-not-exist"))

	_, err := NewIngestor(NewIngestorParams{}).IngestTaxonomy(ctx, src, st)
	if !errors.Is(err, loader.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for missing root, got %v", err)
	}
	if st.EntityCount() != 0 {
		t.Fatal("missing root must not write anything")
	}
}
