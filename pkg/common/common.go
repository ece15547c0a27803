package common

// Kind tags an entity with its role in the occupational graph. An entity
// accumulates kinds over time: a string that is both a roadmap topic and an
// O*NET skill carries both tags under one canonical name. That overlap is a
// deliberate merge point, not an error.
type Kind string

const (
	KindJob       Kind = "Job"
	KindSkill     Kind = "Skill"
	KindKnowledge Kind = "Knowledge"
	KindActivity  Kind = "Activity"
	KindAbility   Kind = "Ability"
	KindTool      Kind = "Tool"
	KindDomain    Kind = "Domain"
)

// RelType identifies a directed, typed edge between two entities.
type RelType string

const (
	RelHasSkill     RelType = "HAS_SKILL"
	RelHasKnowledge RelType = "HAS_KNOWLEDGE"
	RelHasActivity  RelType = "HAS_ACTIVITY"
	RelHasAbility   RelType = "HAS_ABILITY"
	RelRequiresTool RelType = "REQUIRES_TOOL"
	RelRequires     RelType = "REQUIRES"
	RelRepresents   RelType = "REPRESENTS"
)

// Entity is the universal node type of the graph. The canonical name is the
// global identity key: at most one entity exists per distinct name,
// regardless of which ingestor created it first.
type Entity struct {
	Name  string         `json:"name"`
	Kinds []Kind         `json:"kinds"`
	Attrs map[string]any `json:"attrs,omitempty"`
}

// HasKind reports whether the entity carries the given kind tag.
func (e Entity) HasKind(k Kind) bool {
	for _, have := range e.Kinds {
		if have == k {
			return true
		}
	}
	return false
}

// EntityMerge is one create-or-match write. Attrs are applied as field
// overwrites, last writer wins.
type EntityMerge struct {
	Name  string
	Kind  Kind
	Attrs map[string]any
}

// ListAppend appends a value to a list-valued attribute, creating the list
// if the field is absent.
type ListAppend struct {
	Name  string
	Field string
	Value string
}

// RelationshipMerge is one create-or-match edge write. A nil Weight means
// the relationship carries no importance value. Merging the same
// (source, type, target) again never duplicates the edge; it updates the
// weight.
type RelationshipMerge struct {
	Source string
	Type   RelType
	Target string
	Weight *float64
}

// Requirement is one outgoing edge of a job as seen by downstream readers:
// the required entity, the relationship kind, and the importance weight for
// weighted relationship types.
type Requirement struct {
	Entity     Entity   `json:"entity"`
	Type       RelType  `json:"type"`
	Importance *float64 `json:"importance,omitempty"`
}
