package views

import (
	"context"

	"metakit/internal/core/id"
)

// Repository persists view configurations, scoped to one tenant.
type Repository interface {
	Create(ctx context.Context, v *ViewConfiguration) error
	Update(ctx context.Context, v *ViewConfiguration) error
	Delete(ctx context.Context, tenantID string, viewID id.ID) error
	GetByID(ctx context.Context, tenantID string, viewID id.ID) (*ViewConfiguration, error)

	// ListVisible returns the views of one entity type a user can see:
	// own, shared, and ownerless rows.
	ListVisible(ctx context.Context, tenantID, entityType, userID string) ([]*ViewConfiguration, error)

	// ClearDefaults drops is_default from every view of the user for the
	// entity type.
	ClearDefaults(ctx context.Context, tenantID, entityType, userID string) error

	// SetDefault marks one view default.
	SetDefault(ctx context.Context, tenantID string, viewID id.ID) error

	// GetUserDefault returns the user's own default view for the entity
	// type, or a not-found error.
	GetUserDefault(ctx context.Context, tenantID, entityType, userID string) (*ViewConfiguration, error)

	// GetSharedDefault returns a tenant-shared default view for the entity
	// type (shared or ownerless), or a not-found error.
	GetSharedDefault(ctx context.Context, tenantID, entityType string) (*ViewConfiguration, error)
}
