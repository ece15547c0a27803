package graph

import (
	"context"
	"fmt"

	"github.com/JadenBair-FS/aris/pkg/canonical"
	"github.com/JadenBair-FS/aris/pkg/common"
	"github.com/JadenBair-FS/aris/pkg/loader"
	"github.com/JadenBair-FS/aris/pkg/loader/tsv"
	"github.com/JadenBair-FS/aris/pkg/logger"
	"github.com/JadenBair-FS/aris/pkg/store"
)

// O*NET database text files. Fixed names, tab-delimited, named columns.
const (
	occupationFile      = "Occupation Data.txt"
	alternateTitlesFile = "Alternate Titles.txt"
	techSkillsFile      = "Technology Skills.txt"
)

// importanceScaleID identifies the 1–5 importance measurement among the
// scale readings carried by the element files.
const importanceScaleID = "IM"

type elementPass struct {
	file string
	kind common.Kind
	rel  common.RelType
}

// elementPasses are the four structurally identical scale-filtered passes.
var elementPasses = []elementPass{
	{file: "Skills.txt", kind: common.KindSkill, rel: common.RelHasSkill},
	{file: "Knowledge.txt", kind: common.KindKnowledge, rel: common.RelHasKnowledge},
	{file: "Work Activities.txt", kind: common.KindActivity, rel: common.RelHasActivity},
	{file: "Abilities.txt", kind: common.KindAbility, rel: common.RelHasAbility},
}

type occupationRecord struct {
	Code        string
	Title       string
	Description string
}

type alternateTitleRecord struct {
	Code  string
	Title string
}

type elementRecord struct {
	Code    string
	Element string
	ScaleID string
	Value   float64
}

type techSkillRecord struct {
	Code    string
	Example string
}

// taxonomyRun carries the per-run state of one taxonomy ingestion: the
// source, the store, and the occupation code→canonical name table filled by
// the occupations pass and extended by store lookups for codes ingested in
// earlier runs.
type taxonomyRun struct {
	ing        *Ingestor
	src        loader.Source
	store      store.EntityStore
	codeToName map[string]string
}

// IngestTaxonomy runs the O*NET passes in order: occupations, alternate
// titles, the four element passes, technology tools. A missing source file
// skips that pass and is reported in its PassResult; a missing source root
// aborts the whole taxonomy ingest with an error wrapping loader.ErrNotFound.
func (g *Ingestor) IngestTaxonomy(ctx context.Context, src loader.Source, st store.EntityStore) ([]PassResult, error) {
	// Probing the root up front distinguishes "directory missing" (abort
	// this ingestor) from "one file missing" (skip that pass).
	if _, err := src.List(ctx, ""); err != nil {
		return nil, fmt.Errorf("taxonomy root: %w", err)
	}

	run := &taxonomyRun{
		ing:        g,
		src:        src,
		store:      st,
		codeToName: make(map[string]string),
	}

	results := make([]PassResult, 0, len(elementPasses)+3)
	results = append(results, run.ingestOccupations(ctx))
	results = append(results, run.ingestAlternateTitles(ctx))
	for _, pass := range elementPasses {
		results = append(results, run.ingestElements(ctx, pass))
	}
	results = append(results, run.ingestTechSkills(ctx))

	if err := ctx.Err(); err != nil {
		return results, err
	}
	return results, nil
}

func (r *taxonomyRun) ingestOccupations(ctx context.Context) PassResult {
	res := PassResult{File: occupationFile}

	table, err := r.readTable(ctx, occupationFile)
	if err != nil {
		res.Err = err
		return res
	}

	var merges []common.EntityMerge
	for i := range table.Rows {
		rec, err := parseOccupation(table, i)
		if err != nil {
			logger.Warn("skipping malformed occupation row", "err", err)
			res.SkippedRows++
			continue
		}
		name := canonical.Name(rec.Title)
		r.codeToName[rec.Code] = name
		merges = append(merges, common.EntityMerge{
			Name: name,
			Kind: common.KindJob,
			Attrs: map[string]any{
				"code":        rec.Code,
				"description": rec.Description,
			},
		})
	}

	if err := r.ing.retryWrite(ctx, func(ctx context.Context) error {
		return r.store.MergeEntities(ctx, merges)
	}); err != nil {
		res.Err = err
		return res
	}
	res.Entities = len(merges)
	logger.Info("[Taxonomy] Occupations ingested", "jobs", len(merges), "skipped", res.SkippedRows)
	return res
}

func (r *taxonomyRun) ingestAlternateTitles(ctx context.Context) PassResult {
	res := PassResult{File: alternateTitlesFile}

	table, err := r.readTable(ctx, alternateTitlesFile)
	if err != nil {
		res.Err = err
		return res
	}

	var appends []common.ListAppend
	for i := range table.Rows {
		rec, err := parseAlternateTitle(table, i)
		if err != nil {
			logger.Warn("skipping malformed alternate title row", "err", err)
			res.SkippedRows++
			continue
		}
		jobName, err := r.jobNameByCode(ctx, rec.Code)
		if err != nil {
			res.Err = err
			return res
		}
		if jobName == "" {
			// No job under this code, matching a MATCH miss.
			continue
		}
		appends = append(appends, common.ListAppend{
			Name:  jobName,
			Field: "alternate_titles",
			Value: rec.Title,
		})
	}

	if err := r.ing.retryWrite(ctx, func(ctx context.Context) error {
		return r.store.AppendListAttributes(ctx, appends)
	}); err != nil {
		res.Err = err
		return res
	}
	res.Appends = len(appends)
	logger.Info("[Taxonomy] Alternate titles ingested", "titles", len(appends), "skipped", res.SkippedRows)
	return res
}

func (r *taxonomyRun) ingestElements(ctx context.Context, pass elementPass) PassResult {
	res := PassResult{File: pass.file}

	table, err := r.readTable(ctx, pass.file)
	if err != nil {
		res.Err = err
		return res
	}

	var (
		merges []common.EntityMerge
		rels   []common.RelationshipMerge
	)
	for i := range table.Rows {
		rec, err := parseElement(table, i)
		if err != nil {
			logger.Warn("skipping malformed element row", "file", pass.file, "err", err)
			res.SkippedRows++
			continue
		}
		// Only importance readings at or above the threshold become edges.
		if rec.ScaleID != importanceScaleID || rec.Value < r.ing.threshold {
			continue
		}
		name := canonical.Name(rec.Element)
		if name == "" {
			res.SkippedRows++
			continue
		}
		jobName, err := r.jobNameByCode(ctx, rec.Code)
		if err != nil {
			res.Err = err
			return res
		}
		if jobName == "" || jobName == name {
			continue
		}
		weight := rec.Value
		merges = append(merges, common.EntityMerge{Name: name, Kind: pass.kind})
		rels = append(rels, common.RelationshipMerge{
			Source: jobName,
			Type:   pass.rel,
			Target: name,
			Weight: &weight,
		})
	}

	if err := r.ing.retryWrite(ctx, func(ctx context.Context) error {
		if err := r.store.MergeEntities(ctx, merges); err != nil {
			return err
		}
		return r.store.MergeRelationships(ctx, rels)
	}); err != nil {
		res.Err = err
		return res
	}
	res.Entities = len(merges)
	res.Relationships = len(rels)
	logger.Info("[Taxonomy] Elements ingested", "file", pass.file, "edges", len(rels), "skipped", res.SkippedRows)
	return res
}

func (r *taxonomyRun) ingestTechSkills(ctx context.Context) PassResult {
	res := PassResult{File: techSkillsFile}

	table, err := r.readTable(ctx, techSkillsFile)
	if err != nil {
		res.Err = err
		return res
	}

	var (
		merges []common.EntityMerge
		rels   []common.RelationshipMerge
	)
	for i := range table.Rows {
		rec, err := parseTechSkill(table, i)
		if err != nil {
			logger.Warn("skipping malformed technology skill row", "err", err)
			res.SkippedRows++
			continue
		}
		name := canonical.Name(rec.Example)
		if name == "" {
			res.SkippedRows++
			continue
		}
		jobName, err := r.jobNameByCode(ctx, rec.Code)
		if err != nil {
			res.Err = err
			return res
		}
		if jobName == "" || jobName == name {
			continue
		}
		merges = append(merges, common.EntityMerge{Name: name, Kind: common.KindTool})
		rels = append(rels, common.RelationshipMerge{
			Source: jobName,
			Type:   common.RelRequiresTool,
			Target: name,
		})
	}

	if err := r.ing.retryWrite(ctx, func(ctx context.Context) error {
		if err := r.store.MergeEntities(ctx, merges); err != nil {
			return err
		}
		return r.store.MergeRelationships(ctx, rels)
	}); err != nil {
		res.Err = err
		return res
	}
	res.Entities = len(merges)
	res.Relationships = len(rels)
	logger.Info("[Taxonomy] Technology skills ingested", "tools", len(merges), "skipped", res.SkippedRows)
	return res
}

func (r *taxonomyRun) readTable(ctx context.Context, file string) (*tsv.Table, error) {
	content, err := r.src.Read(ctx, file)
	if err != nil {
		return nil, err
	}
	return tsv.Parse(file, content)
}

// jobNameByCode resolves an occupation code to its canonical job name,
// first through the per-run table, then through the store for codes
// ingested by an earlier run. Misses are cached; an unresolvable code means
// the row is silently dropped by the caller.
func (r *taxonomyRun) jobNameByCode(ctx context.Context, code string) (string, error) {
	if name, ok := r.codeToName[code]; ok {
		return name, nil
	}
	e, err := r.store.FindEntityByAttr(ctx, common.KindJob, "code", code)
	if err != nil {
		return "", err
	}
	if e == nil {
		r.codeToName[code] = ""
		return "", nil
	}
	r.codeToName[code] = e.Name
	return e.Name, nil
}

func parseOccupation(t *tsv.Table, i int) (occupationRecord, error) {
	code, err := t.Field(i, "O*NET-SOC Code")
	if err != nil {
		return occupationRecord{}, err
	}
	title, err := t.Field(i, "Title")
	if err != nil {
		return occupationRecord{}, err
	}
	desc, err := t.Field(i, "Description")
	if err != nil {
		return occupationRecord{}, err
	}
	rec := occupationRecord{Code: code, Title: title, Description: desc}
	if rec.Code == "" || canonical.Name(rec.Title) == "" {
		return occupationRecord{}, &loader.MalformedRecordError{
			File: t.File, Line: i + 2, Reason: "empty occupation code or title",
		}
	}
	return rec, nil
}

func parseAlternateTitle(t *tsv.Table, i int) (alternateTitleRecord, error) {
	code, err := t.Field(i, "O*NET-SOC Code")
	if err != nil {
		return alternateTitleRecord{}, err
	}
	title, err := t.Field(i, "Alternate Title")
	if err != nil {
		return alternateTitleRecord{}, err
	}
	rec := alternateTitleRecord{Code: code, Title: title}
	if rec.Code == "" || rec.Title == "" {
		return alternateTitleRecord{}, &loader.MalformedRecordError{
			File: t.File, Line: i + 2, Reason: "empty occupation code or alternate title",
		}
	}
	return rec, nil
}

func parseElement(t *tsv.Table, i int) (elementRecord, error) {
	code, err := t.Field(i, "O*NET-SOC Code")
	if err != nil {
		return elementRecord{}, err
	}
	element, err := t.Field(i, "Element Name")
	if err != nil {
		return elementRecord{}, err
	}
	scaleID, err := t.Field(i, "Scale ID")
	if err != nil {
		return elementRecord{}, err
	}
	value, err := t.FloatField(i, "Data Value")
	if err != nil {
		return elementRecord{}, err
	}
	rec := elementRecord{Code: code, Element: element, ScaleID: scaleID, Value: value}
	if rec.Code == "" || rec.Element == "" {
		return elementRecord{}, &loader.MalformedRecordError{
			File: t.File, Line: i + 2, Reason: "empty occupation code or element name",
		}
	}
	return rec, nil
}

func parseTechSkill(t *tsv.Table, i int) (techSkillRecord, error) {
	code, err := t.Field(i, "O*NET-SOC Code")
	if err != nil {
		return techSkillRecord{}, err
	}
	example, err := t.Field(i, "Example")
	if err != nil {
		return techSkillRecord{}, err
	}
	rec := techSkillRecord{Code: code, Example: example}
	if rec.Code == "" {
		return techSkillRecord{}, &loader.MalformedRecordError{
			File: t.File, Line: i + 2, Reason: "empty occupation code",
		}
	}
	return rec, nil
}
