package fields

import (
	"context"

	"metakit/internal/core/id"
)

// DefinitionRepository persists field definitions.
// All methods are scoped to one tenant; implementations must never return
// rows belonging to another tenant.
type DefinitionRepository interface {
	Create(ctx context.Context, def *FieldDefinition) error
	Update(ctx context.Context, def *FieldDefinition) error
	Delete(ctx context.Context, tenantID string, defID id.ID) error
	GetByID(ctx context.Context, tenantID string, defID id.ID) (*FieldDefinition, error)

	// List returns definitions for one entity type ordered by sort_order.
	// With activeOnly, inactive definitions are filtered out.
	List(ctx context.Context, tenantID, entityType string, activeOnly bool) ([]*FieldDefinition, error)

	// MaxSortOrder returns the highest sort_order for the entity type,
	// or -1 when no definitions exist.
	MaxSortOrder(ctx context.Context, tenantID, entityType string) (int, error)

	// SetSortOrders assigns sort_order = position for each listed id.
	// Unknown ids are skipped.
	SetSortOrders(ctx context.Context, tenantID string, orderedIDs []id.ID) error
}

// ValueRepository persists stored field values.
type ValueRepository interface {
	ListByEntity(ctx context.Context, tenantID, entityType, entityID string) ([]*FieldValue, error)
	ListByEntities(ctx context.Context, tenantID, entityType string, entityIDs []string) ([]*FieldValue, error)

	// UpsertBatch inserts or updates values keyed by (tenant, field, entity).
	UpsertBatch(ctx context.Context, values []*FieldValue) error

	// DeleteByField removes every value stored under one definition.
	DeleteByField(ctx context.Context, tenantID string, fieldID id.ID) error
}
