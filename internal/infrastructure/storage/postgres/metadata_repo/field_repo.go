package metadata_repo

import (
	"context"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"metakit/internal/core/apperror"
	"metakit/internal/core/id"
	"metakit/internal/domain/fields"
	"metakit/internal/infrastructure/storage/postgres"
)

// Compile-time interface checks.
var (
	_ fields.DefinitionRepository = (*FieldDefinitionRepo)(nil)
	_ fields.ValueRepository      = (*FieldValueRepo)(nil)
)

// FieldDefinitionRepo persists field definitions in field_definition.
type FieldDefinitionRepo struct {
	base
}

// NewFieldDefinitionRepo creates the definition repository.
func NewFieldDefinitionRepo() *FieldDefinitionRepo {
	return &FieldDefinitionRepo{base{
		table: "field_definition",
		cols:  postgres.ExtractDBColumns[fields.FieldDefinition](),
	}}
}

func (r *FieldDefinitionRepo) Create(ctx context.Context, def *fields.FieldDefinition) error {
	return r.insert(ctx, def, "field definition", "fieldKey", def.FieldKey)
}

func (r *FieldDefinitionRepo) Update(ctx context.Context, def *fields.FieldDefinition) error {
	return r.update(ctx, def, "field definition", def.TenantID, def.ID)
}

func (r *FieldDefinitionRepo) Delete(ctx context.Context, tenantID string, defID id.ID) error {
	return r.delete(ctx, "field definition", tenantID, defID)
}

func (r *FieldDefinitionRepo) GetByID(ctx context.Context, tenantID string, defID id.ID) (*fields.FieldDefinition, error) {
	sql, args, err := r.baseSelect().
		Where(squirrel.Eq{"id": defID, "tenant_id": tenantID}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select: %w", err)
	}

	var def fields.FieldDefinition
	if err := pgxscan.Get(ctx, r.querier(ctx), &def, sql, args...); err != nil {
		return nil, postgres.MapReadError(err, "field definition", defID)
	}
	return &def, nil
}

func (r *FieldDefinitionRepo) List(ctx context.Context, tenantID, entityType string, activeOnly bool) ([]*fields.FieldDefinition, error) {
	q := r.baseSelect().
		Where(squirrel.Eq{"tenant_id": tenantID, "entity_type": entityType}).
		OrderBy("sort_order ASC", "created_at ASC")
	if activeOnly {
		q = q.Where(squirrel.Eq{"is_active": true})
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select: %w", err)
	}

	var defs []*fields.FieldDefinition
	if err := pgxscan.Select(ctx, r.querier(ctx), &defs, sql, args...); err != nil {
		return nil, apperror.NewInternal(err)
	}
	return defs, nil
}

// DistinctEntityTypes returns every entity type the tenant has declared
// fields for, including tenant-invented generic types.
func (r *FieldDefinitionRepo) DistinctEntityTypes(ctx context.Context, tenantID string) ([]string, error) {
	sql, args, err := r.builder().
		Select("DISTINCT entity_type").
		From(r.table).
		Where(squirrel.Eq{"tenant_id": tenantID}).
		OrderBy("entity_type ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select: %w", err)
	}

	var types []string
	if err := pgxscan.Select(ctx, r.querier(ctx), &types, sql, args...); err != nil {
		return nil, apperror.NewInternal(err)
	}
	return types, nil
}

func (r *FieldDefinitionRepo) MaxSortOrder(ctx context.Context, tenantID, entityType string) (int, error) {
	sql, args, err := r.builder().
		Select("COALESCE(MAX(sort_order), -1)").
		From(r.table).
		Where(squirrel.Eq{"tenant_id": tenantID, "entity_type": entityType}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build select: %w", err)
	}

	var max int
	if err := r.querier(ctx).QueryRow(ctx, sql, args...).Scan(&max); err != nil {
		return 0, apperror.NewInternal(err)
	}
	return max, nil
}

func (r *FieldDefinitionRepo) SetSortOrders(ctx context.Context, tenantID string, orderedIDs []id.ID) error {
	// Runs inside the caller's transaction; ids that match no row are
	// silently skipped.
	for pos, defID := range orderedIDs {
		sql, args, err := r.builder().
			Update(r.table).
			Set("sort_order", pos).
			Set("updated_at", time.Now().UTC()).
			Where(squirrel.Eq{"id": defID, "tenant_id": tenantID}).
			ToSql()
		if err != nil {
			return fmt.Errorf("build update: %w", err)
		}
		if _, err := r.querier(ctx).Exec(ctx, sql, args...); err != nil {
			return apperror.NewInternal(err)
		}
	}
	return nil
}

// FieldValueRepo persists stored values in field_value.
type FieldValueRepo struct {
	base
}

// NewFieldValueRepo creates the value repository.
func NewFieldValueRepo() *FieldValueRepo {
	return &FieldValueRepo{base{
		table: "field_value",
		cols:  postgres.ExtractDBColumns[fields.FieldValue](),
	}}
}

func (r *FieldValueRepo) ListByEntity(ctx context.Context, tenantID, entityType, entityID string) ([]*fields.FieldValue, error) {
	return r.list(ctx, squirrel.Eq{
		"tenant_id":   tenantID,
		"entity_type": entityType,
		"entity_id":   entityID,
	})
}

func (r *FieldValueRepo) ListByEntities(ctx context.Context, tenantID, entityType string, entityIDs []string) ([]*fields.FieldValue, error) {
	return r.list(ctx, squirrel.Eq{
		"tenant_id":   tenantID,
		"entity_type": entityType,
		"entity_id":   entityIDs,
	})
}

func (r *FieldValueRepo) list(ctx context.Context, where squirrel.Eq) ([]*fields.FieldValue, error) {
	sql, args, err := r.baseSelect().Where(where).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select: %w", err)
	}

	var values []*fields.FieldValue
	if err := pgxscan.Select(ctx, r.querier(ctx), &values, sql, args...); err != nil {
		return nil, apperror.NewInternal(err)
	}
	return values, nil
}

func (r *FieldValueRepo) UpsertBatch(ctx context.Context, values []*fields.FieldValue) error {
	if len(values) == 0 {
		return nil
	}
	now := time.Now().UTC()

	q := r.builder().
		Insert(r.table).
		Columns("id", "tenant_id", "field_id", "entity_type", "entity_id", "value", "created_at", "updated_at")
	for _, v := range values {
		q = q.Values(v.ID, v.TenantID, v.FieldID, v.EntityType, v.EntityID, v.Value, now, now)
	}
	q = q.Suffix(`ON CONFLICT (tenant_id, field_id, entity_id)
		DO UPDATE SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at`)

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build upsert: %w", err)
	}
	if _, err := r.querier(ctx).Exec(ctx, sql, args...); err != nil {
		return apperror.NewInternal(err)
	}
	return nil
}

func (r *FieldValueRepo) DeleteByField(ctx context.Context, tenantID string, fieldID id.ID) error {
	sql, args, err := r.builder().
		Delete(r.table).
		Where(squirrel.Eq{"tenant_id": tenantID, "field_id": fieldID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build delete: %w", err)
	}
	if _, err := r.querier(ctx).Exec(ctx, sql, args...); err != nil {
		return apperror.NewInternal(err)
	}
	return nil
}
