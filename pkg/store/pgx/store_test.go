package pgx

import (
	"encoding/json"
	"testing"

	"github.com/JadenBair-FS/aris/pkg/common"
)

func TestMigrateURL(t *testing.T) {
	cases := map[string]string{
		"postgres://u:p@localhost:5432/aris":   "pgx5://u:p@localhost:5432/aris",
		"postgresql://u:p@localhost:5432/aris": "pgx5://u:p@localhost:5432/aris",
		"pgx5://u:p@localhost:5432/aris":       "pgx5://u:p@localhost:5432/aris",
	}
	for in, want := range cases {
		if got := migrateURL(in); got != want {
			t.Fatalf("migrateURL(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestEntityAttrsJSON_MirrorsKind(t *testing.T) {
	raw, err := entityAttrsJSON(common.EntityMerge{
		Name: "Web Developer",
		Kind: common.KindJob,
		Attrs: map[string]any{
			"code":        "15-1254.00",
			"description": "Designs web sites.",
		},
	})
	if err != nil {
		t.Fatal(err)
	}
	var attrs map[string]any
	if err := json.Unmarshal(raw, &attrs); err != nil {
		t.Fatal(err)
	}
	if attrs["entity_type"] != "Job" {
		t.Fatalf("expected entity_type Job, got %v", attrs["entity_type"])
	}
	if attrs["code"] != "15-1254.00" {
		t.Fatalf("expected code preserved, got %v", attrs["code"])
	}
}

func TestBuildEntity(t *testing.T) {
	e, err := buildEntity("Python", []string{"Skill", "Tool"}, []byte(`{"entity_type":"Tool"}`))
	if err != nil {
		t.Fatal(err)
	}
	if !e.HasKind(common.KindSkill) || !e.HasKind(common.KindTool) {
		t.Fatalf("expected both kinds, got %v", e.Kinds)
	}
	if e.Attrs["entity_type"] != "Tool" {
		t.Fatalf("unexpected attrs: %v", e.Attrs)
	}
}

func TestNewStore_RequiresPool(t *testing.T) {
	if _, err := NewStore(Params{}); err == nil {
		t.Fatal("expected error for nil pool")
	}
}
