package memory

import (
	"context"
	"testing"

	"github.com/JadenBair-FS/aris/pkg/common"
)

func TestMergeEntity_IdempotentCreate(t *testing.T) {
	ctx := context.Background()
	s := New(Params{})

	for i := 0; i < 2; i++ {
		err := s.MergeEntity(ctx, common.EntityMerge{Name: "Python", Kind: common.KindSkill})
		if err != nil {
			t.Fatalf("merge failed: %v", err)
		}
	}

	if s.EntityCount() != 1 {
		t.Fatalf("expected 1 entity, got %d", s.EntityCount())
	}
}

func TestMergeEntity_AccumulatesKinds(t *testing.T) {
	ctx := context.Background()
	s := New(Params{})

	if err := s.MergeEntity(ctx, common.EntityMerge{Name: "Python", Kind: common.KindSkill}); err != nil {
		t.Fatal(err)
	}
	if err := s.MergeEntity(ctx, common.EntityMerge{Name: "Python", Kind: common.KindTool}); err != nil {
		t.Fatal(err)
	}

	e := s.Entity("Python")
	if e == nil {
		t.Fatal("entity missing")
	}
	if !e.HasKind(common.KindSkill) || !e.HasKind(common.KindTool) {
		t.Fatalf("expected both kinds, got %v", e.Kinds)
	}
	if e.Attrs["entity_type"] != "Tool" {
		t.Fatalf("entity_type should mirror the latest kind, got %v", e.Attrs["entity_type"])
	}
}

func TestMergeEntity_AttributeOverwriteLastWriterWins(t *testing.T) {
	ctx := context.Background()
	s := New(Params{})

	if err := s.MergeEntity(ctx, common.EntityMerge{
		Name: "Web Developer", Kind: common.KindJob,
		Attrs: map[string]any{"code": "15-1254.00", "description": "old"},
	}); err != nil {
		t.Fatal(err)
	}
	if err := s.MergeEntity(ctx, common.EntityMerge{
		Name: "Web Developer", Kind: common.KindJob,
		Attrs: map[string]any{"description": "new"},
	}); err != nil {
		t.Fatal(err)
	}

	e := s.Entity("Web Developer")
	if e.Attrs["code"] != "15-1254.00" {
		t.Fatalf("untouched field should survive, got %v", e.Attrs["code"])
	}
	if e.Attrs["description"] != "new" {
		t.Fatalf("expected refreshed description, got %v", e.Attrs["description"])
	}
}

func TestAppendListAttribute_NoDedupeByDefault(t *testing.T) {
	ctx := context.Background()
	s := New(Params{})

	if err := s.MergeEntity(ctx, common.EntityMerge{Name: "Web Developer", Kind: common.KindJob}); err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 2; i++ {
		if err := s.AppendListAttribute(ctx, common.ListAppend{
			Name: "Web Developer", Field: "alternate_titles", Value: "Webmaster",
		}); err != nil {
			t.Fatal(err)
		}
	}

	e := s.Entity("Web Developer")
	titles, _ := e.Attrs["alternate_titles"].([]string)
	if len(titles) != 2 {
		t.Fatalf("duplicates must be preserved by default, got %v", titles)
	}
}

func TestAppendListAttribute_DedupeMode(t *testing.T) {
	ctx := context.Background()
	s := New(Params{DedupeListAppends: true})

	if err := s.MergeEntity(ctx, common.EntityMerge{Name: "Web Developer", Kind: common.KindJob}); err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 3; i++ {
		if err := s.AppendListAttribute(ctx, common.ListAppend{
			Name: "Web Developer", Field: "alternate_titles", Value: "Webmaster",
		}); err != nil {
			t.Fatal(err)
		}
	}
	if err := s.AppendListAttribute(ctx, common.ListAppend{
		Name: "Web Developer", Field: "alternate_titles", Value: "Web Designer",
	}); err != nil {
		t.Fatal(err)
	}

	e := s.Entity("Web Developer")
	titles, _ := e.Attrs["alternate_titles"].([]string)
	if len(titles) != 2 {
		t.Fatalf("expected deduped list of 2, got %v", titles)
	}
}

func TestAppendListAttribute_MissingEntityIsNoop(t *testing.T) {
	ctx := context.Background()
	s := New(Params{})
	if err := s.AppendListAttribute(ctx, common.ListAppend{
		Name: "ghost", Field: "alternate_titles", Value: "x",
	}); err != nil {
		t.Fatalf("append to missing entity must not error: %v", err)
	}
	if s.EntityCount() != 0 {
		t.Fatal("append must not create entities")
	}
}

func TestMergeRelationship_MissingEndpointIsNoop(t *testing.T) {
	ctx := context.Background()
	s := New(Params{})

	if err := s.MergeEntity(ctx, common.EntityMerge{Name: "A", Kind: common.KindSkill}); err != nil {
		t.Fatal(err)
	}
	if err := s.MergeRelationship(ctx, common.RelationshipMerge{
		Source: "A", Type: common.RelRequires, Target: "missing",
	}); err != nil {
		t.Fatalf("missing endpoint must be a silent no-op: %v", err)
	}
	if s.RelationshipCount() != 0 {
		t.Fatalf("expected 0 relationships, got %d", s.RelationshipCount())
	}
}

func TestMergeRelationship_IdempotentAndWeightUpdate(t *testing.T) {
	ctx := context.Background()
	s := New(Params{})

	for _, name := range []string{"Web Developer", "Python"} {
		if err := s.MergeEntity(ctx, common.EntityMerge{Name: name, Kind: common.KindSkill}); err != nil {
			t.Fatal(err)
		}
	}

	w1, w2 := 3.5, 4.0
	for _, w := range []*float64{&w1, &w1, &w2} {
		if err := s.MergeRelationship(ctx, common.RelationshipMerge{
			Source: "Web Developer", Type: common.RelHasSkill, Target: "Python", Weight: w,
		}); err != nil {
			t.Fatal(err)
		}
	}

	if s.RelationshipCount() != 1 {
		t.Fatalf("expected 1 relationship, got %d", s.RelationshipCount())
	}
	got, ok := s.RelationshipWeight("Web Developer", common.RelHasSkill, "Python")
	if !ok || got == nil {
		t.Fatal("relationship weight missing")
	}
	if *got != 4.0 {
		t.Fatalf("expected weight updated to 4.0, got %v", *got)
	}
}

func TestFindEntitiesByFuzzyName_FanOut(t *testing.T) {
	ctx := context.Background()
	s := New(Params{})

	jobs := []string{"Software Developer", "Senior Software Developer", "Baker"}
	for _, j := range jobs {
		if err := s.MergeEntity(ctx, common.EntityMerge{Name: j, Kind: common.KindJob}); err != nil {
			t.Fatal(err)
		}
	}
	if err := s.MergeEntity(ctx, common.EntityMerge{Name: "Software Developer", Kind: common.KindDomain}); err != nil {
		t.Fatal(err)
	}

	got, err := s.FindEntitiesByFuzzyName(ctx, "Software Developer", common.KindJob)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 fuzzy matches, got %d", len(got))
	}
	if got[0].Name != "Senior Software Developer" || got[1].Name != "Software Developer" {
		t.Fatalf("unexpected matches: %v", got)
	}
}

func TestFindEntitiesByFuzzyName_KindRestricted(t *testing.T) {
	ctx := context.Background()
	s := New(Params{})

	if err := s.MergeEntity(ctx, common.EntityMerge{Name: "Python", Kind: common.KindSkill}); err != nil {
		t.Fatal(err)
	}
	got, err := s.FindEntitiesByFuzzyName(ctx, "Python", common.KindJob)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 0 {
		t.Fatalf("expected no Job matches, got %v", got)
	}
}

func TestFindEntityByAttr(t *testing.T) {
	ctx := context.Background()
	s := New(Params{})

	if err := s.MergeEntity(ctx, common.EntityMerge{
		Name: "Web Developer", Kind: common.KindJob,
		Attrs: map[string]any{"code": "15-1254.00"},
	}); err != nil {
		t.Fatal(err)
	}

	e, err := s.FindEntityByAttr(ctx, common.KindJob, "code", "15-1254.00")
	if err != nil {
		t.Fatal(err)
	}
	if e == nil || e.Name != "Web Developer" {
		t.Fatalf("expected Web Developer, got %v", e)
	}

	e, err = s.FindEntityByAttr(ctx, common.KindJob, "code", "nope")
	if err != nil {
		t.Fatal(err)
	}
	if e != nil {
		t.Fatalf("expected nil for unknown code, got %v", e)
	}
}

func TestReadPath(t *testing.T) {
	ctx := context.Background()
	s := New(Params{})

	merges := []common.EntityMerge{
		{Name: "Web Developer", Kind: common.KindJob},
		{Name: "Python", Kind: common.KindSkill},
		{Name: "HTML", Kind: common.KindSkill},
		{Name: "Git", Kind: common.KindTool},
	}
	if err := s.MergeEntities(ctx, merges); err != nil {
		t.Fatal(err)
	}
	w := 4.0
	rels := []common.RelationshipMerge{
		{Source: "Web Developer", Type: common.RelHasSkill, Target: "Python", Weight: &w},
		{Source: "Web Developer", Type: common.RelRequiresTool, Target: "Git"},
		{Source: "Python", Type: common.RelRequires, Target: "HTML"},
	}
	if err := s.MergeRelationships(ctx, rels); err != nil {
		t.Fatal(err)
	}

	reqs, err := s.JobRequirements(ctx, "Web Developer")
	if err != nil {
		t.Fatal(err)
	}
	if len(reqs) != 2 {
		t.Fatalf("expected 2 requirements, got %d", len(reqs))
	}
	if reqs[0].Type != common.RelHasSkill || reqs[0].Entity.Name != "Python" {
		t.Fatalf("unexpected first requirement: %+v", reqs[0])
	}
	if reqs[0].Importance == nil || *reqs[0].Importance != 4.0 {
		t.Fatalf("expected importance 4.0, got %v", reqs[0].Importance)
	}
	if reqs[1].Type != common.RelRequiresTool || reqs[1].Importance != nil {
		t.Fatalf("tool requirement should be unweighted: %+v", reqs[1])
	}

	prereqs, err := s.SkillPrerequisites(ctx, "Python")
	if err != nil {
		t.Fatal(err)
	}
	if len(prereqs) != 1 || prereqs[0].Name != "HTML" {
		t.Fatalf("expected [HTML], got %v", prereqs)
	}
}
