package tenant

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Registry provides tenant lookup.
type Registry interface {
	// GetByID retrieves tenant by UUID.
	GetByID(ctx context.Context, id string) (*Tenant, error)
}

// PostgresRegistry is a Registry backed by the tenants table,
// with a short-lived in-memory cache to keep the per-request lookup cheap.
type PostgresRegistry struct {
	pool *pgxpool.Pool

	mu    sync.RWMutex
	cache map[string]cachedTenant
	ttl   time.Duration
}

type cachedTenant struct {
	tenant    *Tenant
	expiresAt time.Time
}

// NewPostgresRegistry creates a registry reading from the tenants table.
func NewPostgresRegistry(pool *pgxpool.Pool) *PostgresRegistry {
	return &PostgresRegistry{
		pool:  pool,
		cache: make(map[string]cachedTenant),
		ttl:   time.Minute,
	}
}

// GetByID retrieves tenant by UUID.
// Returns ErrTenantNotFound if no such tenant exists.
func (r *PostgresRegistry) GetByID(ctx context.Context, id string) (*Tenant, error) {
	r.mu.RLock()
	if c, ok := r.cache[id]; ok && time.Now().Before(c.expiresAt) {
		r.mu.RUnlock()
		return c.tenant, nil
	}
	r.mu.RUnlock()

	q := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar).
		Select("id", "slug", "display_name", "status", "plan", "created_at", "updated_at").
		From("tenants").
		Where(squirrel.Eq{"id": id}).
		Limit(1)

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build tenant query: %w", err)
	}

	var t Tenant
	if err := pgxscan.Get(ctx, r.pool, &t, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, ErrTenantNotFound
		}
		return nil, fmt.Errorf("get tenant: %w", err)
	}

	r.mu.Lock()
	r.cache[id] = cachedTenant{tenant: &t, expiresAt: time.Now().Add(r.ttl)}
	r.mu.Unlock()

	return &t, nil
}

// Invalidate drops a tenant from the cache (e.g., after suspension).
func (r *PostgresRegistry) Invalidate(id string) {
	r.mu.Lock()
	delete(r.cache, id)
	r.mu.Unlock()
}
