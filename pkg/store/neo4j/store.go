package neo4j

import (
	"context"
	"fmt"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/JadenBair-FS/aris/pkg/common"
	"github.com/JadenBair-FS/aris/pkg/store"
)

// Store implements store.EntityStore on a Client. Each batch method runs in
// one ExecuteWrite, so a document's writes commit or roll back together.
// Per-name write ordering is guaranteed by Neo4j itself: MERGE takes a lock
// on the matched node.
type Store struct {
	client *Client
	dedupe bool
}

// Params configures the Neo4j store.
type Params struct {
	Client *Client
	// DedupeListAppends makes AppendListAttribute skip values already
	// present in the list. Off by default.
	DedupeListAppends bool
}

// NewStore creates an EntityStore backed by the given client.
func NewStore(params Params) (*Store, error) {
	if params.Client == nil {
		return nil, fmt.Errorf("neo4j: client is required")
	}
	return &Store{client: params.Client, dedupe: params.DedupeListAppends}, nil
}

var _ store.EntityStore = (*Store)(nil)

// validKinds and validRelTypes guard the label/type names interpolated into
// Cypher text; labels cannot be parameterized.
var validKinds = map[common.Kind]struct{}{
	common.KindJob: {}, common.KindSkill: {}, common.KindKnowledge: {},
	common.KindActivity: {}, common.KindAbility: {}, common.KindTool: {},
	common.KindDomain: {},
}

var validRelTypes = map[common.RelType]struct{}{
	common.RelHasSkill: {}, common.RelHasKnowledge: {},
	common.RelHasActivity: {}, common.RelHasAbility: {},
	common.RelRequiresTool: {}, common.RelRequires: {}, common.RelRepresents: {},
}

var validListFields = map[string]struct{}{
	"alternate_titles": {},
}

// unwindBatchSize bounds how many rows one UNWIND statement carries. Chunks
// run inside the same transaction, so batch atomicity is preserved.
const unwindBatchSize = 1000

func runChunked(ctx context.Context, tx neo4j.ManagedTransaction, query string, rows []map[string]any) error {
	return store.ChunkRange(len(rows), unwindBatchSize, func(start, end int) error {
		res, err := tx.Run(ctx, query, map[string]any{"rows": rows[start:end]})
		if err != nil {
			return err
		}
		_, err = res.Consume(ctx)
		return err
	})
}

func (s *Store) MergeEntity(ctx context.Context, m common.EntityMerge) error {
	return s.MergeEntities(ctx, []common.EntityMerge{m})
}

func (s *Store) MergeEntities(ctx context.Context, ms []common.EntityMerge) error {
	byKind := make(map[common.Kind][]map[string]any)
	for _, m := range ms {
		if m.Name == "" {
			continue
		}
		if _, ok := validKinds[m.Kind]; !ok {
			return &store.StorageError{Op: "merge entities", Err: fmt.Errorf("unknown kind %q", m.Kind)}
		}
		attrs := make(map[string]any, len(m.Attrs))
		for k, v := range m.Attrs {
			attrs[k] = v
		}
		byKind[m.Kind] = append(byKind[m.Kind], map[string]any{
			"name":  m.Name,
			"attrs": attrs,
		})
	}
	if len(byKind) == 0 {
		return nil
	}

	session := s.client.session(ctx, neo4j.AccessModeWrite)
	defer session.Close(ctx)

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		for kind, rows := range byKind {
			query := fmt.Sprintf(`
				UNWIND $rows AS row
				MERGE (e:Entity {name: row.name})
				SET e:%s, e.entity_type = '%s', e += row.attrs
			`, kind, kind)
			if err := runChunked(ctx, tx, query, rows); err != nil {
				return nil, err
			}
		}
		return nil, nil
	})
	if err != nil {
		return &store.StorageError{Op: "merge entities", Err: err}
	}
	return nil
}

func (s *Store) AppendListAttribute(ctx context.Context, a common.ListAppend) error {
	return s.AppendListAttributes(ctx, []common.ListAppend{a})
}

func (s *Store) AppendListAttributes(ctx context.Context, as []common.ListAppend) error {
	byField := make(map[string][]map[string]any)
	for _, a := range as {
		if a.Name == "" {
			continue
		}
		if _, ok := validListFields[a.Field]; !ok {
			return &store.StorageError{Op: "append list attribute", Err: fmt.Errorf("unknown list field %q", a.Field)}
		}
		byField[a.Field] = append(byField[a.Field], map[string]any{
			"name":  a.Name,
			"value": a.Value,
		})
	}
	if len(byField) == 0 {
		return nil
	}

	session := s.client.session(ctx, neo4j.AccessModeWrite)
	defer session.Close(ctx)

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		for field, rows := range byField {
			var query string
			if s.dedupe {
				query = fmt.Sprintf(`
					UNWIND $rows AS row
					MATCH (e:Entity {name: row.name})
					SET e.%[1]s = CASE
						WHEN row.value IN coalesce(e.%[1]s, []) THEN e.%[1]s
						ELSE coalesce(e.%[1]s, []) + row.value END
				`, field)
			} else {
				query = fmt.Sprintf(`
					UNWIND $rows AS row
					MATCH (e:Entity {name: row.name})
					SET e.%[1]s = coalesce(e.%[1]s, []) + row.value
				`, field)
			}
			if err := runChunked(ctx, tx, query, rows); err != nil {
				return nil, err
			}
		}
		return nil, nil
	})
	if err != nil {
		return &store.StorageError{Op: "append list attribute", Err: err}
	}
	return nil
}

func (s *Store) MergeRelationship(ctx context.Context, m common.RelationshipMerge) error {
	return s.MergeRelationships(ctx, []common.RelationshipMerge{m})
}

func (s *Store) MergeRelationships(ctx context.Context, ms []common.RelationshipMerge) error {
	weighted := make(map[common.RelType][]map[string]any)
	unweighted := make(map[common.RelType][]map[string]any)
	for _, m := range ms {
		if m.Source == "" || m.Target == "" {
			continue
		}
		if _, ok := validRelTypes[m.Type]; !ok {
			return &store.StorageError{Op: "merge relationships", Err: fmt.Errorf("unknown relationship type %q", m.Type)}
		}
		row := map[string]any{"source": m.Source, "target": m.Target}
		if m.Weight != nil {
			row["weight"] = *m.Weight
			weighted[m.Type] = append(weighted[m.Type], row)
		} else {
			unweighted[m.Type] = append(unweighted[m.Type], row)
		}
	}
	if len(weighted) == 0 && len(unweighted) == 0 {
		return nil
	}

	session := s.client.session(ctx, neo4j.AccessModeWrite)
	defer session.Close(ctx)

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		// MATCH before MERGE: a missing endpoint drops the row, making the
		// merge a silent no-op rather than an error.
		for typ, rows := range weighted {
			query := fmt.Sprintf(`
				UNWIND $rows AS row
				MATCH (a:Entity {name: row.source})
				MATCH (b:Entity {name: row.target})
				MERGE (a)-[r:%s]->(b)
				SET r.importance = row.weight
			`, typ)
			if err := runChunked(ctx, tx, query, rows); err != nil {
				return nil, err
			}
		}
		for typ, rows := range unweighted {
			query := fmt.Sprintf(`
				UNWIND $rows AS row
				MATCH (a:Entity {name: row.source})
				MATCH (b:Entity {name: row.target})
				MERGE (a)-[:%s]->(b)
			`, typ)
			if err := runChunked(ctx, tx, query, rows); err != nil {
				return nil, err
			}
		}
		return nil, nil
	})
	if err != nil {
		return &store.StorageError{Op: "merge relationships", Err: err}
	}
	return nil
}

func (s *Store) FindEntitiesByFuzzyName(ctx context.Context, needle string, kind common.Kind) ([]common.Entity, error) {
	if _, ok := validKinds[kind]; kind != "" && !ok {
		return nil, &store.StorageError{Op: "fuzzy find", Err: fmt.Errorf("unknown kind %q", kind)}
	}

	session := s.client.session(ctx, neo4j.AccessModeRead)
	defer session.Close(ctx)

	label := "Entity"
	if kind != "" {
		label = string(kind)
	}
	query := fmt.Sprintf(`
		MATCH (e:%s)
		WHERE toLower(e.name) CONTAINS toLower($needle)
		   OR toLower($needle) CONTAINS toLower(e.name)
		RETURN e.name AS name, labels(e) AS labels, properties(e) AS props
		ORDER BY name
	`, label)

	out, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, query, map[string]any{"needle": needle})
		if err != nil {
			return nil, err
		}
		records, err := res.Collect(ctx)
		if err != nil {
			return nil, err
		}
		ents := make([]common.Entity, 0, len(records))
		for _, rec := range records {
			ents = append(ents, entityFromRecord(rec))
		}
		return ents, nil
	})
	if err != nil {
		return nil, &store.StorageError{Op: "fuzzy find", Err: err}
	}
	return out.([]common.Entity), nil
}

func (s *Store) FindEntityByAttr(ctx context.Context, kind common.Kind, field, value string) (*common.Entity, error) {
	if _, ok := validKinds[kind]; kind != "" && !ok {
		return nil, &store.StorageError{Op: "find by attr", Err: fmt.Errorf("unknown kind %q", kind)}
	}

	session := s.client.session(ctx, neo4j.AccessModeRead)
	defer session.Close(ctx)

	label := "Entity"
	if kind != "" {
		label = string(kind)
	}
	query := fmt.Sprintf(`
		MATCH (e:%s)
		WHERE e[$field] = $value
		RETURN e.name AS name, labels(e) AS labels, properties(e) AS props
		LIMIT 1
	`, label)

	out, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, query, map[string]any{"field": field, "value": value})
		if err != nil {
			return nil, err
		}
		records, err := res.Collect(ctx)
		if err != nil {
			return nil, err
		}
		if len(records) == 0 {
			return (*common.Entity)(nil), nil
		}
		e := entityFromRecord(records[0])
		return &e, nil
	})
	if err != nil {
		return nil, &store.StorageError{Op: "find by attr", Err: err}
	}
	return out.(*common.Entity), nil
}

func (s *Store) JobRequirements(ctx context.Context, job string) ([]common.Requirement, error) {
	session := s.client.session(ctx, neo4j.AccessModeRead)
	defer session.Close(ctx)

	query := `
		MATCH (j:Job {name: $name})-[r]->(t:Entity)
		WHERE type(r) IN ['HAS_SKILL', 'HAS_KNOWLEDGE', 'HAS_ACTIVITY', 'HAS_ABILITY', 'REQUIRES_TOOL']
		RETURN type(r) AS rel, r.importance AS importance,
		       t.name AS name, labels(t) AS labels, properties(t) AS props
		ORDER BY rel, name
	`

	out, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, query, map[string]any{"name": job})
		if err != nil {
			return nil, err
		}
		records, err := res.Collect(ctx)
		if err != nil {
			return nil, err
		}
		reqs := make([]common.Requirement, 0, len(records))
		for _, rec := range records {
			req := common.Requirement{Entity: entityFromRecord(rec)}
			if rel, ok := rec.Get("rel"); ok {
				req.Type = common.RelType(rel.(string))
			}
			if imp, ok := rec.Get("importance"); ok && imp != nil {
				if w, ok := imp.(float64); ok {
					req.Importance = &w
				}
			}
			reqs = append(reqs, req)
		}
		return reqs, nil
	})
	if err != nil {
		return nil, &store.StorageError{Op: "job requirements", Err: err}
	}
	return out.([]common.Requirement), nil
}

func (s *Store) SkillPrerequisites(ctx context.Context, skill string) ([]common.Entity, error) {
	session := s.client.session(ctx, neo4j.AccessModeRead)
	defer session.Close(ctx)

	query := `
		MATCH (s:Skill {name: $name})-[:REQUIRES]->(t:Entity)
		RETURN t.name AS name, labels(t) AS labels, properties(t) AS props
		ORDER BY name
	`

	out, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, query, map[string]any{"name": skill})
		if err != nil {
			return nil, err
		}
		records, err := res.Collect(ctx)
		if err != nil {
			return nil, err
		}
		ents := make([]common.Entity, 0, len(records))
		for _, rec := range records {
			ents = append(ents, entityFromRecord(rec))
		}
		return ents, nil
	})
	if err != nil {
		return nil, &store.StorageError{Op: "skill prerequisites", Err: err}
	}
	return out.([]common.Entity), nil
}

func (s *Store) Close(ctx context.Context) error {
	return s.client.Close(ctx)
}

func entityFromRecord(rec *neo4j.Record) common.Entity {
	e := common.Entity{}
	if v, ok := rec.Get("name"); ok {
		e.Name, _ = v.(string)
	}
	if v, ok := rec.Get("labels"); ok {
		if labels, ok := v.([]any); ok {
			for _, l := range labels {
				name, _ := l.(string)
				if kind := common.Kind(name); name != "Entity" {
					if _, valid := validKinds[kind]; valid {
						e.Kinds = append(e.Kinds, kind)
					}
				}
			}
		}
	}
	if v, ok := rec.Get("props"); ok {
		if props, ok := v.(map[string]any); ok {
			e.Attrs = make(map[string]any, len(props))
			for k, pv := range props {
				if k == "name" {
					continue
				}
				e.Attrs[k] = pv
			}
		}
	}
	return e
}
