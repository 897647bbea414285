package metadata_repo

import (
	"context"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"metakit/internal/core/apperror"
	"metakit/internal/core/id"
	"metakit/internal/domain/views"
	"metakit/internal/infrastructure/storage/postgres"
)

// Compile-time interface check.
var _ views.Repository = (*ViewConfigurationRepo)(nil)

// ViewConfigurationRepo persists saved views in view_configuration.
type ViewConfigurationRepo struct {
	base
}

// NewViewConfigurationRepo creates the view repository.
func NewViewConfigurationRepo() *ViewConfigurationRepo {
	return &ViewConfigurationRepo{base{
		table: "view_configuration",
		cols:  postgres.ExtractDBColumns[views.ViewConfiguration](),
	}}
}

func (r *ViewConfigurationRepo) Create(ctx context.Context, v *views.ViewConfiguration) error {
	return r.insert(ctx, v, "view", "name", v.Name)
}

func (r *ViewConfigurationRepo) Update(ctx context.Context, v *views.ViewConfiguration) error {
	return r.update(ctx, v, "view", v.TenantID, v.ID)
}

func (r *ViewConfigurationRepo) Delete(ctx context.Context, tenantID string, viewID id.ID) error {
	return r.delete(ctx, "view", tenantID, viewID)
}

func (r *ViewConfigurationRepo) GetByID(ctx context.Context, tenantID string, viewID id.ID) (*views.ViewConfiguration, error) {
	sql, args, err := r.baseSelect().
		Where(squirrel.Eq{"id": viewID, "tenant_id": tenantID}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select: %w", err)
	}

	var v views.ViewConfiguration
	if err := pgxscan.Get(ctx, r.querier(ctx), &v, sql, args...); err != nil {
		return nil, postgres.MapReadError(err, "view", viewID)
	}
	return &v, nil
}

func (r *ViewConfigurationRepo) ListVisible(ctx context.Context, tenantID, entityType, userID string) ([]*views.ViewConfiguration, error) {
	sql, args, err := r.baseSelect().
		Where(squirrel.Eq{"tenant_id": tenantID, "entity_type": entityType}).
		Where(squirrel.Or{
			squirrel.Eq{"user_id": userID},
			squirrel.Eq{"user_id": nil},
			squirrel.Eq{"is_shared": true},
		}).
		OrderBy("created_at ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select: %w", err)
	}

	var out []*views.ViewConfiguration
	if err := pgxscan.Select(ctx, r.querier(ctx), &out, sql, args...); err != nil {
		return nil, apperror.NewInternal(err)
	}
	return out, nil
}

func (r *ViewConfigurationRepo) ClearDefaults(ctx context.Context, tenantID, entityType, userID string) error {
	sql, args, err := r.builder().
		Update(r.table).
		Set("is_default", false).
		Set("updated_at", time.Now().UTC()).
		Where(squirrel.Eq{
			"tenant_id":   tenantID,
			"entity_type": entityType,
			"user_id":     userID,
			"is_default":  true,
		}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}
	if _, err := r.querier(ctx).Exec(ctx, sql, args...); err != nil {
		return apperror.NewInternal(err)
	}
	return nil
}

func (r *ViewConfigurationRepo) SetDefault(ctx context.Context, tenantID string, viewID id.ID) error {
	sql, args, err := r.builder().
		Update(r.table).
		Set("is_default", true).
		Set("updated_at", time.Now().UTC()).
		Where(squirrel.Eq{"id": viewID, "tenant_id": tenantID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	res, err := r.querier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return apperror.NewInternal(err)
	}
	if res.RowsAffected() == 0 {
		return apperror.NewNotFound("view", viewID)
	}
	return nil
}

func (r *ViewConfigurationRepo) GetUserDefault(ctx context.Context, tenantID, entityType, userID string) (*views.ViewConfiguration, error) {
	return r.getDefault(ctx, squirrel.And{
		squirrel.Eq{
			"tenant_id":   tenantID,
			"entity_type": entityType,
			"user_id":     userID,
			"is_default":  true,
		},
	})
}

func (r *ViewConfigurationRepo) GetSharedDefault(ctx context.Context, tenantID, entityType string) (*views.ViewConfiguration, error) {
	return r.getDefault(ctx, squirrel.And{
		squirrel.Eq{
			"tenant_id":   tenantID,
			"entity_type": entityType,
			"is_default":  true,
		},
		squirrel.Or{
			squirrel.Eq{"is_shared": true},
			squirrel.Eq{"user_id": nil},
		},
	})
}

func (r *ViewConfigurationRepo) getDefault(ctx context.Context, where squirrel.Sqlizer) (*views.ViewConfiguration, error) {
	sql, args, err := r.baseSelect().
		Where(where).
		OrderBy("updated_at DESC").
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select: %w", err)
	}

	var v views.ViewConfiguration
	if err := pgxscan.Get(ctx, r.querier(ctx), &v, sql, args...); err != nil {
		return nil, postgres.MapReadError(err, "view", "default")
	}
	return &v, nil
}
