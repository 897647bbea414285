// Package metadata_repo provides PostgreSQL implementations for the
// metadata repositories: field definitions and values, relation
// definitions and edges, and view configurations.
//
// All tables carry a tenant_id column; every query is scoped to one tenant.
// TxManager is obtained from context per-request, so the same repo instance
// works inside and outside transactions.
package metadata_repo

import (
	"context"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"

	"metakit/internal/core/apperror"
	"metakit/internal/infrastructure/storage/postgres"
)

// base carries what every metadata repository needs: the table, its column
// list, and access to the per-request querier.
type base struct {
	table string
	cols  []string
}

func (b base) builder() squirrel.StatementBuilderType {
	return squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
}

func (b base) querier(ctx context.Context) postgres.Querier {
	return postgres.MustGetTxManager(ctx).GetQuerier(ctx)
}

func (b base) baseSelect() squirrel.SelectBuilder {
	return b.builder().Select(b.cols...).From(b.table)
}

// rowMap extracts the insertable columns of entity via its "db" tags and
// stamps the timestamp columns.
func (b base) rowMap(entity any, now time.Time, forInsert bool) (map[string]any, error) {
	data := postgres.StructToMap(entity)
	if len(data) == 0 {
		return nil, fmt.Errorf("no db tags found in entity")
	}

	filtered := make(map[string]any, len(b.cols))
	for _, col := range b.cols {
		if val, ok := data[col]; ok {
			filtered[col] = val
		}
	}
	if forInsert {
		filtered["created_at"] = now
	} else {
		delete(filtered, "id")
		delete(filtered, "tenant_id")
		delete(filtered, "created_at")
	}
	filtered["updated_at"] = now
	return filtered, nil
}

// insert writes entity. Unique violations map to a duplicate error on the
// given field.
func (b base) insert(ctx context.Context, entity any, entityName, dupField, dupValue string) error {
	data, err := b.rowMap(entity, time.Now().UTC(), true)
	if err != nil {
		return err
	}

	sql, args, err := b.builder().Insert(b.table).SetMap(data).ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	if _, err := b.querier(ctx).Exec(ctx, sql, args...); err != nil {
		return postgres.MapWriteError(err, entityName, dupField, dupValue)
	}
	return nil
}

// update rewrites all mutable columns of entity, scoped by id and tenant.
func (b base) update(ctx context.Context, entity any, entityName string, tenantID string, entityID any) error {
	data, err := b.rowMap(entity, time.Now().UTC(), false)
	if err != nil {
		return err
	}

	sql, args, err := b.builder().
		Update(b.table).
		SetMap(data).
		Where(squirrel.Eq{"id": entityID, "tenant_id": tenantID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	res, err := b.querier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return postgres.MapWriteError(err, entityName, "id", fmt.Sprint(entityID))
	}
	if res.RowsAffected() == 0 {
		return apperror.NewNotFound(entityName, entityID)
	}
	return nil
}

// delete removes one row, scoped by id and tenant.
func (b base) delete(ctx context.Context, entityName string, tenantID string, entityID any) error {
	sql, args, err := b.builder().
		Delete(b.table).
		Where(squirrel.Eq{"id": entityID, "tenant_id": tenantID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build delete: %w", err)
	}

	res, err := b.querier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return apperror.NewInternal(err)
	}
	if res.RowsAffected() == 0 {
		return apperror.NewNotFound(entityName, entityID)
	}
	return nil
}
