// Package memory implements store.EntityStore on plain maps. It backs the
// unit tests and works as a throwaway local backend; it holds no state
// beyond the process.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/JadenBair-FS/aris/pkg/common"
	"github.com/JadenBair-FS/aris/pkg/store"
)

type relKey struct {
	source string
	typ    common.RelType
	target string
}

type relationship struct {
	key    relKey
	weight *float64
}

// Store is an in-memory EntityStore. A single mutex serializes all writes,
// which trivially satisfies the single-writer-per-name discipline.
type Store struct {
	mu     sync.RWMutex
	ents   map[string]*common.Entity
	rels   map[relKey]*relationship
	dedupe bool
}

// Params configures a memory store.
type Params struct {
	// DedupeListAppends makes AppendListAttribute skip values already
	// present in the list. Off by default.
	DedupeListAppends bool
}

// New creates an empty memory store.
func New(params Params) *Store {
	return &Store{
		ents:   make(map[string]*common.Entity),
		rels:   make(map[relKey]*relationship),
		dedupe: params.DedupeListAppends,
	}
}

var _ store.EntityStore = (*Store)(nil)

func (s *Store) MergeEntity(ctx context.Context, m common.EntityMerge) error {
	return s.MergeEntities(ctx, []common.EntityMerge{m})
}

func (s *Store) MergeEntities(ctx context.Context, ms []common.EntityMerge) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, m := range ms {
		if m.Name == "" {
			continue
		}
		s.mergeLocked(m)
	}
	return nil
}

func (s *Store) mergeLocked(m common.EntityMerge) {
	e, ok := s.ents[m.Name]
	if !ok {
		e = &common.Entity{Name: m.Name, Attrs: make(map[string]any)}
		s.ents[m.Name] = e
	}
	if m.Kind != "" && !e.HasKind(m.Kind) {
		e.Kinds = append(e.Kinds, m.Kind)
	}
	if m.Kind != "" {
		e.Attrs["entity_type"] = string(m.Kind)
	}
	for k, v := range m.Attrs {
		e.Attrs[k] = v
	}
}

func (s *Store) AppendListAttribute(ctx context.Context, a common.ListAppend) error {
	return s.AppendListAttributes(ctx, []common.ListAppend{a})
}

func (s *Store) AppendListAttributes(ctx context.Context, as []common.ListAppend) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range as {
		e, ok := s.ents[a.Name]
		if !ok {
			continue
		}
		list, _ := e.Attrs[a.Field].([]string)
		if s.dedupe {
			exists := false
			for _, v := range list {
				if v == a.Value {
					exists = true
					break
				}
			}
			if exists {
				continue
			}
		}
		e.Attrs[a.Field] = append(list, a.Value)
	}
	return nil
}

func (s *Store) MergeRelationship(ctx context.Context, m common.RelationshipMerge) error {
	return s.MergeRelationships(ctx, []common.RelationshipMerge{m})
}

func (s *Store) MergeRelationships(ctx context.Context, ms []common.RelationshipMerge) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, m := range ms {
		// Missing endpoints make the merge a silent no-op, matching the
		// MATCH-then-MERGE behavior of the graph backends.
		if _, ok := s.ents[m.Source]; !ok {
			continue
		}
		if _, ok := s.ents[m.Target]; !ok {
			continue
		}
		key := relKey{source: m.Source, typ: m.Type, target: m.Target}
		r, ok := s.rels[key]
		if !ok {
			r = &relationship{key: key}
			s.rels[key] = r
		}
		if m.Weight != nil {
			w := *m.Weight
			r.weight = &w
		}
	}
	return nil
}

func (s *Store) FindEntitiesByFuzzyName(ctx context.Context, needle string, kind common.Kind) ([]common.Entity, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []common.Entity
	for _, e := range s.ents {
		if kind != "" && !e.HasKind(kind) {
			continue
		}
		if store.ContainsFold(e.Name, needle) {
			out = append(out, cloneEntity(e))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *Store) FindEntityByAttr(ctx context.Context, kind common.Kind, field, value string) (*common.Entity, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, e := range s.ents {
		if kind != "" && !e.HasKind(kind) {
			continue
		}
		if v, ok := e.Attrs[field].(string); ok && v == value {
			clone := cloneEntity(e)
			return &clone, nil
		}
	}
	return nil, nil
}

func (s *Store) JobRequirements(ctx context.Context, job string) ([]common.Requirement, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	requirementTypes := map[common.RelType]struct{}{
		common.RelHasSkill:     {},
		common.RelHasKnowledge: {},
		common.RelHasActivity:  {},
		common.RelHasAbility:   {},
		common.RelRequiresTool: {},
	}
	var out []common.Requirement
	for key, r := range s.rels {
		if key.source != job {
			continue
		}
		if _, ok := requirementTypes[key.typ]; !ok {
			continue
		}
		target, ok := s.ents[key.target]
		if !ok {
			continue
		}
		req := common.Requirement{Entity: cloneEntity(target), Type: key.typ}
		if r.weight != nil {
			w := *r.weight
			req.Importance = &w
		}
		out = append(out, req)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Type != out[j].Type {
			return out[i].Type < out[j].Type
		}
		return out[i].Entity.Name < out[j].Entity.Name
	})
	return out, nil
}

func (s *Store) SkillPrerequisites(ctx context.Context, skill string) ([]common.Entity, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []common.Entity
	for key := range s.rels {
		if key.source != skill || key.typ != common.RelRequires {
			continue
		}
		if target, ok := s.ents[key.target]; ok {
			out = append(out, cloneEntity(target))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *Store) Close(ctx context.Context) error { return nil }

// Entity returns a copy of the named entity, or nil when absent.
// Test helper.
func (s *Store) Entity(name string) *common.Entity {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.ents[name]
	if !ok {
		return nil
	}
	clone := cloneEntity(e)
	return &clone
}

// EntityCount returns the number of distinct entities. Test helper.
func (s *Store) EntityCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.ents)
}

// RelationshipCount returns the number of distinct (source, type, target)
// edges. Test helper.
func (s *Store) RelationshipCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.rels)
}

// RelationshipWeight returns the weight of an edge and whether the edge
// exists. Test helper.
func (s *Store) RelationshipWeight(source string, typ common.RelType, target string) (*float64, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.rels[relKey{source: source, typ: typ, target: target}]
	if !ok {
		return nil, false
	}
	if r.weight == nil {
		return nil, true
	}
	w := *r.weight
	return &w, true
}

func cloneEntity(e *common.Entity) common.Entity {
	clone := common.Entity{Name: e.Name, Kinds: append([]common.Kind(nil), e.Kinds...)}
	if len(e.Attrs) > 0 {
		clone.Attrs = make(map[string]any, len(e.Attrs))
		for k, v := range e.Attrs {
			if list, ok := v.([]string); ok {
				clone.Attrs[k] = append([]string(nil), list...)
				continue
			}
			clone.Attrs[k] = v
		}
	}
	return clone
}
