package relations

import (
	"context"

	"metakit/internal/core/id"
)

// DefinitionRepository persists relation definitions, scoped to one tenant.
type DefinitionRepository interface {
	Create(ctx context.Context, def *RelationDefinition) error
	Update(ctx context.Context, def *RelationDefinition) error
	Delete(ctx context.Context, tenantID string, defID id.ID) error
	GetByID(ctx context.Context, tenantID string, defID id.ID) (*RelationDefinition, error)

	// ListBySource returns definitions declared on one source entity type.
	ListBySource(ctx context.Context, tenantID, sourceEntityType string, activeOnly bool) ([]*RelationDefinition, error)

	// ListAll returns every definition of the tenant. Inverse inference
	// scans this set.
	ListAll(ctx context.Context, tenantID string, activeOnly bool) ([]*RelationDefinition, error)
}

// EdgeRepository persists stored relation edges.
type EdgeRepository interface {
	Create(ctx context.Context, rel *EntityRelation) error
	Delete(ctx context.Context, tenantID string, relID id.ID) error
	GetByID(ctx context.Context, tenantID string, relID id.ID) (*EntityRelation, error)

	// GetByTriple looks an edge up by its natural key.
	GetByTriple(ctx context.Context, tenantID string, defID id.ID, sourceEntityID, targetEntityID string) (*EntityRelation, error)

	// ListBySource returns edges whose source is the given entity,
	// optionally restricted to one definition, ordered by sort_order.
	ListBySource(ctx context.Context, tenantID, sourceEntityType, sourceEntityID string, defID *id.ID) ([]*EntityRelation, error)

	// ListByTarget returns edges under any of the given definitions whose
	// target is the given entity.
	ListByTarget(ctx context.Context, tenantID string, defIDs []id.ID, targetEntityType, targetEntityID string) ([]*EntityRelation, error)

	// DeleteByDefinition removes every edge stored under one definition.
	DeleteByDefinition(ctx context.Context, tenantID string, defID id.ID) error

	// MaxSortOrder returns the highest sort_order among edges of one
	// (definition, source entity), or -1 when none exist.
	MaxSortOrder(ctx context.Context, tenantID string, defID id.ID, sourceEntityID string) (int, error)

	// SetSortOrders assigns sort_order = position for each listed edge id.
	// Unknown ids are skipped.
	SetSortOrders(ctx context.Context, tenantID string, orderedIDs []id.ID) error
}
