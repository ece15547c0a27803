// Package store defines the persistence abstraction for the occupational
// knowledge graph. Implementations live in subpackages: neo4j (primary),
// pgx (Postgres) and memory (dependency-free, used by tests).
package store

import (
	"context"

	"github.com/JadenBair-FS/aris/pkg/common"
)

// EntityStore persists entities and relationships keyed by canonical name.
//
// All merge operations are idempotent: re-running an ingestion over the same
// input produces the same graph, with the single documented exception of
// list-valued attribute appends (see AppendListAttribute). The batch
// variants have the same semantics as calling the single-item methods in
// order, but implementations apply each batch in one transaction so a
// document's writes are atomic.
type EntityStore interface {
	// MergeEntity looks up an entity by canonical name, creating it if
	// absent; in both cases it adds the kind to the entity's kind-tag set
	// and applies attrs as field overwrites, last writer wins.
	MergeEntity(ctx context.Context, m common.EntityMerge) error
	MergeEntities(ctx context.Context, ms []common.EntityMerge) error

	// AppendListAttribute sets field to a single-element list if absent,
	// otherwise appends. Whether an already-present value is appended again
	// depends on the store's dedupe configuration; the default preserves
	// duplicates.
	AppendListAttribute(ctx context.Context, a common.ListAppend) error
	AppendListAttributes(ctx context.Context, as []common.ListAppend) error

	// MergeRelationship creates the edge if absent, or updates its weight
	// if present. It is a silent no-op when either endpoint does not exist
	// yet. Callers must reject self-edges before invoking.
	MergeRelationship(ctx context.Context, m common.RelationshipMerge) error
	MergeRelationships(ctx context.Context, ms []common.RelationshipMerge) error

	// FindEntitiesByFuzzyName returns every entity of the given kind whose
	// canonical name case-insensitively contains needle, or whose name is
	// contained by needle. Zero, one or many results are all valid; callers
	// must handle the fan-out case explicitly.
	FindEntitiesByFuzzyName(ctx context.Context, needle string, kind common.Kind) ([]common.Entity, error)

	// FindEntityByAttr returns the entity of the given kind whose attribute
	// field equals value, or nil when none matches.
	FindEntityByAttr(ctx context.Context, kind common.Kind, field, value string) (*common.Entity, error)

	// JobRequirements returns the outgoing edges of a job: required skills,
	// knowledge areas, activities and abilities with importance weights,
	// plus unweighted tool requirements.
	JobRequirements(ctx context.Context, job string) ([]common.Requirement, error)

	// SkillPrerequisites returns the skills the named skill requires as
	// prerequisites (outgoing REQUIRES edges).
	SkillPrerequisites(ctx context.Context, skill string) ([]common.Entity, error)

	Close(ctx context.Context) error
}
