// Package relations provides typed links between business entities:
// per-tenant relation definitions and the edges stored under them, with
// automatic inverse inference for bidirectional definitions.
package relations

import (
	"context"
	"database/sql/driver"
	"regexp"
	"time"

	"metakit/internal/core/apperror"
	"metakit/internal/core/id"
	"metakit/internal/core/jsonb"
)

var fieldKeyRE = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)

// RelationType declares the cardinality of a relation. The declaration is
// stored and reported as given; the graph does not enforce it.
type RelationType string

const (
	OneToOne   RelationType = "one_to_one"
	OneToMany  RelationType = "one_to_many"
	ManyToMany RelationType = "many_to_many"
)

// Valid reports whether t is a supported relation type.
func (t RelationType) Valid() bool {
	switch t {
	case OneToOne, OneToMany, ManyToMany:
		return true
	}
	return false
}

// StringList is a JSONB-backed string array column.
type StringList []string

// Scan implements sql.Scanner.
func (l *StringList) Scan(src any) error {
	*l = nil
	return jsonb.Scan(src, l)
}

// Value implements driver.Valuer. A nil list is stored as NULL.
func (l StringList) Value() (driver.Value, error) {
	return jsonb.Value(l, l == nil)
}

// Contains reports whether s is in the list.
func (l StringList) Contains(s string) bool {
	for _, v := range l {
		if v == s {
			return true
		}
	}
	return false
}

// RelationDefinition declares a named link from one entity type to a set of
// target entity types. A bidirectional definition is also visible from the
// target side as an inferred inverse; no mirror row is ever stored.
type RelationDefinition struct {
	ID                id.ID        `db:"id" json:"id"`
	TenantID          string       `db:"tenant_id" json:"tenantId"`
	SourceEntityType  string       `db:"source_entity_type" json:"sourceEntityType"`
	FieldKey          string       `db:"field_key" json:"fieldKey"`
	Name              string       `db:"name" json:"name"`
	RelationType      RelationType `db:"relation_type" json:"relationType"`
	TargetEntityTypes StringList   `db:"target_entity_types" json:"targetEntityTypes"`
	IsBidirectional   bool         `db:"is_bidirectional" json:"isBidirectional"`
	InverseName       *string      `db:"inverse_name" json:"inverseName,omitempty"`
	DisplayFields     StringList   `db:"display_fields" json:"displayFields,omitempty"`
	IsActive          bool         `db:"is_active" json:"isActive"`
	CreatedAt         time.Time    `db:"created_at" json:"createdAt"`
	UpdatedAt         time.Time    `db:"updated_at" json:"updatedAt"`

	// IsInverse marks a definition materialized from the target side of a
	// bidirectional definition. Never persisted.
	IsInverse bool `db:"-" json:"_isInverse,omitempty"`
}

// Validate checks definition invariants.
func (d *RelationDefinition) Validate(ctx context.Context) error {
	if d.Name == "" {
		return apperror.NewValidation("name is required").
			WithDetail("field", "name")
	}
	if !fieldKeyRE.MatchString(d.FieldKey) {
		return apperror.NewValidation("fieldKey must match [a-z][a-z0-9_]*").
			WithDetail("field", "fieldKey").
			WithDetail("value", d.FieldKey)
	}
	if !d.RelationType.Valid() {
		return apperror.NewValidation("invalid relation type").
			WithDetail("field", "relationType").
			WithDetail("value", string(d.RelationType))
	}
	if len(d.TargetEntityTypes) == 0 {
		return apperror.NewValidation("at least one target entity type is required").
			WithDetail("field", "targetEntityTypes")
	}
	return nil
}

// AsInverse returns the definition as seen from forSource, one of its
// target types: source and targets are swapped and the inverse name is
// used when configured.
func (d *RelationDefinition) AsInverse(forSource string) *RelationDefinition {
	inv := *d
	inv.IsInverse = true
	inv.SourceEntityType = forSource
	inv.TargetEntityTypes = StringList{d.SourceEntityType}
	if d.InverseName != nil && *d.InverseName != "" {
		inv.Name = *d.InverseName
	}
	return &inv
}

// EntityRelation is one stored edge between two concrete entities.
// Entity ids are opaque strings issued by the owning routers; the source
// entity type is denormalized from the definition for cheap lookups.
type EntityRelation struct {
	ID               id.ID     `db:"id" json:"id"`
	TenantID         string    `db:"tenant_id" json:"tenantId"`
	RelationDefID    id.ID     `db:"relation_def_id" json:"relationDefId"`
	SourceEntityType string    `db:"source_entity_type" json:"sourceEntityType"`
	SourceEntityID   string    `db:"source_entity_id" json:"sourceEntityId"`
	TargetEntityType string    `db:"target_entity_type" json:"targetEntityType"`
	TargetEntityID   string    `db:"target_entity_id" json:"targetEntityId"`
	SortOrder        int       `db:"sort_order" json:"order"`
	CreatedBy        *string   `db:"created_by" json:"createdBy,omitempty"`
	CreatedAt        time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt        time.Time `db:"updated_at" json:"updatedAt"`

	// IsInverse marks an edge materialized by reading a stored edge from
	// its target side. Never persisted.
	IsInverse bool `db:"-" json:"_isInverse,omitempty"`
}

// Swapped returns the edge as seen from its target entity: source and
// target trade places and the result is marked inverse. The id is kept so
// clients can still address the underlying row.
func (r *EntityRelation) Swapped() *EntityRelation {
	sw := *r
	sw.IsInverse = true
	sw.SourceEntityType = r.TargetEntityType
	sw.SourceEntityID = r.TargetEntityID
	sw.TargetEntityType = r.SourceEntityType
	sw.TargetEntityID = r.SourceEntityID
	return &sw
}
