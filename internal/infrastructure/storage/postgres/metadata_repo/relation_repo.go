package metadata_repo

import (
	"context"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"metakit/internal/core/apperror"
	"metakit/internal/core/id"
	"metakit/internal/domain/relations"
	"metakit/internal/infrastructure/storage/postgres"
)

// Compile-time interface checks.
var (
	_ relations.DefinitionRepository = (*RelationDefinitionRepo)(nil)
	_ relations.EdgeRepository       = (*EntityRelationRepo)(nil)
)

// RelationDefinitionRepo persists relation definitions in relation_definition.
type RelationDefinitionRepo struct {
	base
}

// NewRelationDefinitionRepo creates the definition repository.
func NewRelationDefinitionRepo() *RelationDefinitionRepo {
	return &RelationDefinitionRepo{base{
		table: "relation_definition",
		cols:  postgres.ExtractDBColumns[relations.RelationDefinition](),
	}}
}

func (r *RelationDefinitionRepo) Create(ctx context.Context, def *relations.RelationDefinition) error {
	return r.insert(ctx, def, "relation definition", "fieldKey", def.FieldKey)
}

func (r *RelationDefinitionRepo) Update(ctx context.Context, def *relations.RelationDefinition) error {
	return r.update(ctx, def, "relation definition", def.TenantID, def.ID)
}

func (r *RelationDefinitionRepo) Delete(ctx context.Context, tenantID string, defID id.ID) error {
	return r.delete(ctx, "relation definition", tenantID, defID)
}

func (r *RelationDefinitionRepo) GetByID(ctx context.Context, tenantID string, defID id.ID) (*relations.RelationDefinition, error) {
	sql, args, err := r.baseSelect().
		Where(squirrel.Eq{"id": defID, "tenant_id": tenantID}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select: %w", err)
	}

	var def relations.RelationDefinition
	if err := pgxscan.Get(ctx, r.querier(ctx), &def, sql, args...); err != nil {
		return nil, postgres.MapReadError(err, "relation definition", defID)
	}
	return &def, nil
}

func (r *RelationDefinitionRepo) ListBySource(ctx context.Context, tenantID, sourceEntityType string, activeOnly bool) ([]*relations.RelationDefinition, error) {
	where := squirrel.Eq{"tenant_id": tenantID, "source_entity_type": sourceEntityType}
	return r.list(ctx, where, activeOnly)
}

func (r *RelationDefinitionRepo) ListAll(ctx context.Context, tenantID string, activeOnly bool) ([]*relations.RelationDefinition, error) {
	return r.list(ctx, squirrel.Eq{"tenant_id": tenantID}, activeOnly)
}

func (r *RelationDefinitionRepo) list(ctx context.Context, where squirrel.Eq, activeOnly bool) ([]*relations.RelationDefinition, error) {
	q := r.baseSelect().Where(where).OrderBy("created_at ASC")
	if activeOnly {
		q = q.Where(squirrel.Eq{"is_active": true})
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select: %w", err)
	}

	var defs []*relations.RelationDefinition
	if err := pgxscan.Select(ctx, r.querier(ctx), &defs, sql, args...); err != nil {
		return nil, apperror.NewInternal(err)
	}
	return defs, nil
}

// DistinctEntityTypes returns every source entity type the tenant has
// declared relations for.
func (r *RelationDefinitionRepo) DistinctEntityTypes(ctx context.Context, tenantID string) ([]string, error) {
	sql, args, err := r.builder().
		Select("DISTINCT source_entity_type").
		From(r.table).
		Where(squirrel.Eq{"tenant_id": tenantID}).
		OrderBy("source_entity_type ASC").
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

// EntityRelationRepo persists stored edges in entity_relation.
type EntityRelationRepo struct {
	base
}

// NewEntityRelationRepo creates the edge repository.
func NewEntityRelationRepo() *EntityRelationRepo {
	return &EntityRelationRepo{base{
		table: "entity_relation",
		cols:  postgres.ExtractDBColumns[relations.EntityRelation](),
	}}
}

func (r *EntityRelationRepo) Create(ctx context.Context, rel *relations.EntityRelation) error {
	return r.insert(ctx, rel, "entity relation", "target", rel.TargetEntityID)
}

func (r *EntityRelationRepo) Delete(ctx context.Context, tenantID string, relID id.ID) error {
	return r.delete(ctx, "entity relation", tenantID, relID)
}

func (r *EntityRelationRepo) GetByID(ctx context.Context, tenantID string, relID id.ID) (*relations.EntityRelation, error) {
	return r.getOne(ctx, squirrel.Eq{"id": relID, "tenant_id": tenantID}, relID)
}

func (r *EntityRelationRepo) GetByTriple(ctx context.Context, tenantID string, defID id.ID, sourceEntityID, targetEntityID string) (*relations.EntityRelation, error) {
	return r.getOne(ctx, squirrel.Eq{
		"tenant_id":        tenantID,
		"relation_def_id":  defID,
		"source_entity_id": sourceEntityID,
		"target_entity_id": targetEntityID,
	}, targetEntityID)
}

func (r *EntityRelationRepo) getOne(ctx context.Context, where squirrel.Eq, key any) (*relations.EntityRelation, error) {
	sql, args, err := r.baseSelect().Where(where).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select: %w", err)
	}

	var rel relations.EntityRelation
	if err := pgxscan.Get(ctx, r.querier(ctx), &rel, sql, args...); err != nil {
		return nil, postgres.MapReadError(err, "entity relation", key)
	}
	return &rel, nil
}

func (r *EntityRelationRepo) ListBySource(ctx context.Context, tenantID, sourceEntityType, sourceEntityID string, defID *id.ID) ([]*relations.EntityRelation, error) {
	q := r.baseSelect().
		Where(squirrel.Eq{
			"tenant_id":          tenantID,
			"source_entity_type": sourceEntityType,
			"source_entity_id":   sourceEntityID,
		}).
		OrderBy("sort_order ASC", "created_at ASC")
	if defID != nil {
		q = q.Where(squirrel.Eq{"relation_def_id": *defID})
	}
	return r.listQuery(ctx, q)
}

func (r *EntityRelationRepo) ListByTarget(ctx context.Context, tenantID string, defIDs []id.ID, targetEntityType, targetEntityID string) ([]*relations.EntityRelation, error) {
	if len(defIDs) == 0 {
		return nil, nil
	}
	q := r.baseSelect().
		Where(squirrel.Eq{
			"tenant_id":          tenantID,
			"relation_def_id":    defIDs,
			"target_entity_type": targetEntityType,
			"target_entity_id":   targetEntityID,
		}).
		OrderBy("created_at ASC")
	return r.listQuery(ctx, q)
}

func (r *EntityRelationRepo) listQuery(ctx context.Context, q squirrel.SelectBuilder) ([]*relations.EntityRelation, error) {
	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select: %w", err)
	}

	var rels []*relations.EntityRelation
	if err := pgxscan.Select(ctx, r.querier(ctx), &rels, sql, args...); err != nil {
		return nil, apperror.NewInternal(err)
	}
	return rels, nil
}

func (r *EntityRelationRepo) DeleteByDefinition(ctx context.Context, tenantID string, defID id.ID) error {
	sql, args, err := r.builder().
		Delete(r.table).
		Where(squirrel.Eq{"tenant_id": tenantID, "relation_def_id": defID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build delete: %w", err)
	}
	if _, err := r.querier(ctx).Exec(ctx, sql, args...); err != nil {
		return apperror.NewInternal(err)
	}
	return nil
}

func (r *EntityRelationRepo) MaxSortOrder(ctx context.Context, tenantID string, defID id.ID, sourceEntityID string) (int, error) {
	sql, args, err := r.builder().
		Select("COALESCE(MAX(sort_order), -1)").
		From(r.table).
		Where(squirrel.Eq{
			"tenant_id":        tenantID,
			"relation_def_id":  defID,
			"source_entity_id": sourceEntityID,
		}).
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

func (r *EntityRelationRepo) SetSortOrders(ctx context.Context, tenantID string, orderedIDs []id.ID) error {
	for pos, relID := range orderedIDs {
		sql, args, err := r.builder().
			Update(r.table).
			Set("sort_order", pos).
			Set("updated_at", time.Now().UTC()).
			Where(squirrel.Eq{"id": relID, "tenant_id": tenantID}).
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
