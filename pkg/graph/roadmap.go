package graph

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/JadenBair-FS/aris/pkg/canonical"
	"github.com/JadenBair-FS/aris/pkg/common"
	"github.com/JadenBair-FS/aris/pkg/loader"
	"github.com/JadenBair-FS/aris/pkg/logger"
	"github.com/JadenBair-FS/aris/pkg/store"
)

// roadmapDoc is one roadmap export: a slug, a display title, typed nodes
// and directed edges between node ids.
type roadmapDoc struct {
	Slug  string `json:"slug"`
	Title struct {
		Page string `json:"page"`
	} `json:"title"`
	Nodes []roadmapNode `json:"nodes"`
	Edges []roadmapEdge `json:"edges"`
}

type roadmapNode struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Data struct {
		Label string `json:"label"`
	} `json:"data"`
}

type roadmapEdge struct {
	Source string `json:"source"`
	Target string `json:"target"`
}

// IngestRoadmaps processes every roadmap document under src in filename
// order, bounded by the ingestor's roadmap parallelism. A missing roadmap
// root aborts with an error wrapping loader.ErrNotFound; per-document
// failures land in their DocumentResult.
func (g *Ingestor) IngestRoadmaps(ctx context.Context, src loader.Source, st store.EntityStore) ([]DocumentResult, error) {
	files, err := src.List(ctx, ".json")
	if err != nil {
		return nil, fmt.Errorf("roadmap root: %w", err)
	}

	logger.Info("[Roadmaps] Processing", "documents", len(files))

	results := make([]DocumentResult, len(files))

	eg, gCtx := errgroup.WithContext(ctx)
	eg.SetLimit(g.parallelRoadmaps)
	var mu sync.Mutex

	for i, file := range files {
		i, file := i, file
		eg.Go(func() error {
			// Cancellation aborts between documents, never mid-document.
			if err := gCtx.Err(); err != nil {
				return err
			}
			res := g.ingestRoadmapFile(gCtx, src, file, st)
			mu.Lock()
			results[i] = res
			mu.Unlock()
			return nil
		})
	}

	if err := eg.Wait(); err != nil {
		return results, err
	}
	return results, nil
}

func (g *Ingestor) ingestRoadmapFile(ctx context.Context, src loader.Source, file loader.File, st store.EntityStore) DocumentResult {
	content, err := src.Read(ctx, file.Name)
	if err != nil {
		return DocumentResult{File: file.Name, Err: err}
	}
	res := g.IngestRoadmap(ctx, file.Name, content, st)
	if res.Err != nil {
		logger.Error("[Roadmaps] Document failed", "file", file.Name, "err", res.Err)
	}
	return res
}

// IngestRoadmap ingests a single roadmap document: the Domain entity, the
// fuzzy Domain→Job links, one Skill entity per topic/subtopic node, and the
// prerequisite edges between them. An excluded slug skips the whole
// document with zero writes.
func (g *Ingestor) IngestRoadmap(ctx context.Context, file string, content []byte, st store.EntityStore) DocumentResult {
	res := DocumentResult{File: file}

	var doc roadmapDoc
	if err := json.Unmarshal(content, &doc); err != nil {
		res.Err = fmt.Errorf("parse %s: %w", file, err)
		return res
	}
	res.Slug = doc.Slug

	if _, excluded := g.excluded[doc.Slug]; excluded {
		logger.Info("[Roadmaps] Skipping excluded roadmap", "slug", doc.Slug)
		res.Excluded = true
		return res
	}

	title := doc.Title.Page
	if title == "" {
		title = doc.Slug
	}
	title = canonical.Name(title)
	if title == "" {
		res.Err = fmt.Errorf("parse %s: empty roadmap title and slug", file)
		return res
	}

	logger.Info("[Roadmaps] Ingesting", "title", title, "nodes", len(doc.Nodes))

	merges := []common.EntityMerge{{
		Name:  title,
		Kind:  common.KindDomain,
		Attrs: map[string]any{"slug": doc.Slug},
	}}
	var rels []common.RelationshipMerge

	// Fuzzy-link the domain to occupations before node processing, reading
	// job entities the taxonomy ingest left in the store. Every match is
	// linked; the fan-out is deliberate and logged for operators.
	if g.fuzzyMinLength > 0 && len(title) < g.fuzzyMinLength {
		logger.Info("[Roadmaps] Skipping fuzzy job link, title below guard",
			"title", title, "min_length", g.fuzzyMinLength)
	} else {
		jobs, err := st.FindEntitiesByFuzzyName(ctx, title, common.KindJob)
		if err != nil {
			res.Err = err
			return res
		}
		if len(jobs) > 1 {
			logger.Info("[Roadmaps] Fuzzy job link fan-out", "domain", title, "matches", len(jobs))
		}
		for _, job := range jobs {
			rels = append(rels, common.RelationshipMerge{
				Source: title,
				Type:   common.RelRepresents,
				Target: job.Name,
			})
		}
	}

	// idToName resolves node ids to canonical skill names for edge
	// creation. It lives only as long as this document.
	idToName := make(map[string]string, len(doc.Nodes))
	for _, node := range doc.Nodes {
		if node.Type != "topic" && node.Type != "subtopic" {
			continue
		}
		name := canonical.Name(node.Data.Label)
		if name == "" {
			continue
		}
		idToName[node.ID] = name
		merges = append(merges, common.EntityMerge{Name: name, Kind: common.KindSkill})
		rels = append(rels, common.RelationshipMerge{
			Source: title,
			Type:   common.RelHasSkill,
			Target: name,
		})
	}

	for _, edge := range doc.Edges {
		source := idToName[edge.Source]
		target := idToName[edge.Target]
		// Edges referencing non-topic nodes are dropped; so are edges that
		// collapse to a self-reference after canonicalization.
		if source == "" || target == "" || source == target {
			continue
		}
		rels = append(rels, common.RelationshipMerge{
			Source: source,
			Type:   common.RelRequires,
			Target: target,
		})
	}

	if err := g.retryWrite(ctx, func(ctx context.Context) error {
		if err := st.MergeEntities(ctx, merges); err != nil {
			return err
		}
		return st.MergeRelationships(ctx, rels)
	}); err != nil {
		res.Err = err
		return res
	}
	res.Entities = len(merges)
	res.Relationships = len(rels)
	return res
}
