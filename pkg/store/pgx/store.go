// Package pgx implements store.EntityStore on Postgres. Entities live in an
// entities table (kinds as text[], attributes as jsonb), relationships in a
// relationships table with a (source, type, target) uniqueness constraint,
// so every merge is a single atomic upsert.
package pgx

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JadenBair-FS/aris/pkg/common"
	"github.com/JadenBair-FS/aris/pkg/store"
)

const (
	upsertEntitySQL = `
		INSERT INTO entities (name, kinds, attrs)
		VALUES ($1, ARRAY[$2]::text[], $3)
		ON CONFLICT (name) DO UPDATE SET
			kinds = (
				SELECT ARRAY(
					SELECT DISTINCT k
					FROM unnest(entities.kinds || excluded.kinds) AS k
				)
			),
			attrs = entities.attrs || excluded.attrs`

	appendListSQL = `
		UPDATE entities
		SET attrs = jsonb_set(
			attrs, ARRAY[$2],
			coalesce(attrs -> $2, '[]'::jsonb) || to_jsonb($3::text)
		)
		WHERE name = $1`

	appendListDedupeSQL = appendListSQL + `
		  AND NOT coalesce(attrs -> $2, '[]'::jsonb) @> to_jsonb($3::text)`

	upsertRelationshipSQL = `
		INSERT INTO relationships (source_id, rel_type, target_id, importance)
		SELECT s.id, $2, t.id, $4
		FROM entities s, entities t
		WHERE s.name = $1 AND t.name = $3
		ON CONFLICT (source_id, rel_type, target_id) DO UPDATE SET
			importance = coalesce(excluded.importance, relationships.importance)`

	selectEntitySQL = `SELECT name, kinds, attrs FROM entities`
)

// Store implements store.EntityStore on a pgx connection pool. Each batch
// method runs inside one transaction.
type Store struct {
	pool   *pgxpool.Pool
	dedupe bool
}

// Params configures the Postgres store.
type Params struct {
	Pool *pgxpool.Pool
	// DedupeListAppends makes AppendListAttribute skip values already
	// present in the list. Off by default.
	DedupeListAppends bool
}

// NewStore creates an EntityStore backed by the given pool. The caller owns
// the pool and its lifecycle; Close on the store is a no-op.
func NewStore(params Params) (*Store, error) {
	if params.Pool == nil {
		return nil, fmt.Errorf("pgx store: pool is required")
	}
	return &Store{pool: params.Pool, dedupe: params.DedupeListAppends}, nil
}

var _ store.EntityStore = (*Store)(nil)

func (s *Store) inTx(ctx context.Context, op string, fn func(tx pgx.Tx) error) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return &store.StorageError{Op: op, Err: err}
	}
	defer tx.Rollback(ctx)

	if err := fn(tx); err != nil {
		return &store.StorageError{Op: op, Err: err}
	}
	if err := tx.Commit(ctx); err != nil {
		return &store.StorageError{Op: op, Err: err}
	}
	return nil
}

func (s *Store) MergeEntity(ctx context.Context, m common.EntityMerge) error {
	return s.MergeEntities(ctx, []common.EntityMerge{m})
}

func (s *Store) MergeEntities(ctx context.Context, ms []common.EntityMerge) error {
	if len(ms) == 0 {
		return nil
	}
	return s.inTx(ctx, "merge entities", func(tx pgx.Tx) error {
		batch := &pgx.Batch{}
		for _, m := range ms {
			if m.Name == "" {
				continue
			}
			attrs, err := entityAttrsJSON(m)
			if err != nil {
				return err
			}
			batch.Queue(upsertEntitySQL, m.Name, string(m.Kind), attrs)
		}
		return tx.SendBatch(ctx, batch).Close()
	})
}

func (s *Store) AppendListAttribute(ctx context.Context, a common.ListAppend) error {
	return s.AppendListAttributes(ctx, []common.ListAppend{a})
}

func (s *Store) AppendListAttributes(ctx context.Context, as []common.ListAppend) error {
	if len(as) == 0 {
		return nil
	}
	query := appendListSQL
	if s.dedupe {
		query = appendListDedupeSQL
	}
	return s.inTx(ctx, "append list attribute", func(tx pgx.Tx) error {
		batch := &pgx.Batch{}
		for _, a := range as {
			if a.Name == "" {
				continue
			}
			batch.Queue(query, a.Name, a.Field, a.Value)
		}
		return tx.SendBatch(ctx, batch).Close()
	})
}

func (s *Store) MergeRelationship(ctx context.Context, m common.RelationshipMerge) error {
	return s.MergeRelationships(ctx, []common.RelationshipMerge{m})
}

func (s *Store) MergeRelationships(ctx context.Context, ms []common.RelationshipMerge) error {
	if len(ms) == 0 {
		return nil
	}
	return s.inTx(ctx, "merge relationships", func(tx pgx.Tx) error {
		batch := &pgx.Batch{}
		for _, m := range ms {
			if m.Source == "" || m.Target == "" {
				continue
			}
			// INSERT ... SELECT drops rows with a missing endpoint, making
			// the merge a silent no-op for them.
			var weight *float64
			if m.Weight != nil {
				w := *m.Weight
				weight = &w
			}
			batch.Queue(upsertRelationshipSQL, m.Source, string(m.Type), m.Target, weight)
		}
		return tx.SendBatch(ctx, batch).Close()
	})
}

func (s *Store) FindEntitiesByFuzzyName(ctx context.Context, needle string, kind common.Kind) ([]common.Entity, error) {
	query := selectEntitySQL + `
		WHERE ($2 = '' OR $2 = ANY(kinds))
		  AND (strpos(lower(name), lower($1)) > 0 OR strpos(lower($1), lower(name)) > 0)
		ORDER BY name`

	rows, err := s.pool.Query(ctx, query, needle, string(kind))
	if err != nil {
		return nil, &store.StorageError{Op: "fuzzy find", Err: err}
	}
	defer rows.Close()

	ents, err := scanEntities(rows)
	if err != nil {
		return nil, &store.StorageError{Op: "fuzzy find", Err: err}
	}
	return ents, nil
}

func (s *Store) FindEntityByAttr(ctx context.Context, kind common.Kind, field, value string) (*common.Entity, error) {
	query := selectEntitySQL + `
		WHERE ($1 = '' OR $1 = ANY(kinds)) AND attrs ->> $2 = $3
		LIMIT 1`

	rows, err := s.pool.Query(ctx, query, string(kind), field, value)
	if err != nil {
		return nil, &store.StorageError{Op: "find by attr", Err: err}
	}
	defer rows.Close()

	ents, err := scanEntities(rows)
	if err != nil {
		return nil, &store.StorageError{Op: "find by attr", Err: err}
	}
	if len(ents) == 0 {
		return nil, nil
	}
	return &ents[0], nil
}

func (s *Store) JobRequirements(ctx context.Context, job string) ([]common.Requirement, error) {
	query := `
		SELECT r.rel_type, r.importance, t.name, t.kinds, t.attrs
		FROM relationships r
		JOIN entities s ON s.id = r.source_id
		JOIN entities t ON t.id = r.target_id
		WHERE s.name = $1
		  AND r.rel_type IN ('HAS_SKILL', 'HAS_KNOWLEDGE', 'HAS_ACTIVITY', 'HAS_ABILITY', 'REQUIRES_TOOL')
		ORDER BY r.rel_type, t.name`

	rows, err := s.pool.Query(ctx, query, job)
	if err != nil {
		return nil, &store.StorageError{Op: "job requirements", Err: err}
	}
	defer rows.Close()

	var out []common.Requirement
	for rows.Next() {
		var (
			relType    string
			importance *float64
			name       string
			kinds      []string
			attrsRaw   []byte
		)
		if err := rows.Scan(&relType, &importance, &name, &kinds, &attrsRaw); err != nil {
			return nil, &store.StorageError{Op: "job requirements", Err: err}
		}
		ent, err := buildEntity(name, kinds, attrsRaw)
		if err != nil {
			return nil, &store.StorageError{Op: "job requirements", Err: err}
		}
		out = append(out, common.Requirement{
			Entity:     ent,
			Type:       common.RelType(relType),
			Importance: importance,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, &store.StorageError{Op: "job requirements", Err: err}
	}
	return out, nil
}

func (s *Store) SkillPrerequisites(ctx context.Context, skill string) ([]common.Entity, error) {
	query := `
		SELECT t.name, t.kinds, t.attrs
		FROM relationships r
		JOIN entities s ON s.id = r.source_id
		JOIN entities t ON t.id = r.target_id
		WHERE s.name = $1 AND r.rel_type = 'REQUIRES'
		ORDER BY t.name`

	rows, err := s.pool.Query(ctx, query, skill)
	if err != nil {
		return nil, &store.StorageError{Op: "skill prerequisites", Err: err}
	}
	defer rows.Close()

	ents, err := scanEntities(rows)
	if err != nil {
		return nil, &store.StorageError{Op: "skill prerequisites", Err: err}
	}
	return ents, nil
}

func (s *Store) Close(ctx context.Context) error { return nil }

// entityAttrsJSON serializes merge attributes plus the entity_type mirror
// of the kind tag.
func entityAttrsJSON(m common.EntityMerge) ([]byte, error) {
	attrs := make(map[string]any, len(m.Attrs)+1)
	for k, v := range m.Attrs {
		attrs[k] = v
	}
	if m.Kind != "" {
		attrs["entity_type"] = string(m.Kind)
	}
	raw, err := json.Marshal(attrs)
	if err != nil {
		return nil, fmt.Errorf("marshal attrs for %q: %w", m.Name, err)
	}
	return raw, nil
}

func scanEntities(rows pgx.Rows) ([]common.Entity, error) {
	var out []common.Entity
	for rows.Next() {
		var (
			name     string
			kinds    []string
			attrsRaw []byte
		)
		if err := rows.Scan(&name, &kinds, &attrsRaw); err != nil {
			return nil, err
		}
		ent, err := buildEntity(name, kinds, attrsRaw)
		if err != nil {
			return nil, err
		}
		out = append(out, ent)
	}
	return out, rows.Err()
}

func buildEntity(name string, kinds []string, attrsRaw []byte) (common.Entity, error) {
	e := common.Entity{Name: name}
	for _, k := range kinds {
		e.Kinds = append(e.Kinds, common.Kind(k))
	}
	if len(attrsRaw) > 0 {
		if err := json.Unmarshal(attrsRaw, &e.Attrs); err != nil {
			return common.Entity{}, fmt.Errorf("unmarshal attrs for %q: %w", name, err)
		}
	}
	return e, nil
}
