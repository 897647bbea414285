package views

import (
	"context"

	"metakit/internal/core/apperror"
	"metakit/internal/core/entitykey"
	"metakit/internal/core/id"
	"metakit/internal/core/security"
	"metakit/internal/core/tenant"
	"metakit/internal/domain"
	"metakit/pkg/logger"
)

// Service implements view configuration management and default resolution.
type Service struct {
	repo    Repository
	auditor domain.Auditor
}

// NewService creates the views service. A nil auditor disables auditing.
func NewService(repo Repository, auditor domain.Auditor) *Service {
	if auditor == nil {
		auditor = domain.NopAuditor{}
	}
	return &Service{repo: repo, auditor: auditor}
}

// CreateInput carries the client-supplied part of a new view.
type CreateInput struct {
	EntityType    string
	Name          string
	ViewType      ViewType
	Columns       ColumnList
	Filters       FilterList
	SortBy        *string
	SortDirection string
	GroupBy       *string
	IsDefault     bool
	IsShared      bool
}

// UpdateInput is a partial update: nil fields stay unchanged.
type UpdateInput struct {
	Name          *string
	ViewType      *ViewType
	Columns       *ColumnList
	Filters       *FilterList
	SortBy        *string
	SortDirection *string
	GroupBy       *string
	IsDefault     *bool
	IsShared      *bool
}

// Create stores a new view owned by the caller. When it is marked default,
// the caller's previous default for the entity type is cleared in the same
// transaction.
func (s *Service) Create(ctx context.Context, in CreateInput) (*ViewConfiguration, error) {
	key, err := entitykey.Parse(in.EntityType)
	if err != nil {
		return nil, err
	}
	userID := security.GetUserID(ctx)
	tenantID := tenant.GetTenantID(ctx)

	v := &ViewConfiguration{
		ID:            id.New(),
		TenantID:      tenantID,
		EntityType:    key.String(),
		Name:          in.Name,
		ViewType:      in.ViewType,
		Columns:       in.Columns,
		Filters:       in.Filters,
		SortBy:        in.SortBy,
		SortDirection: in.SortDirection,
		GroupBy:       in.GroupBy,
		IsDefault:     in.IsDefault,
		IsShared:      in.IsShared,
	}
	if userID != "" {
		v.UserID = &userID
	}
	if err := v.Validate(ctx); err != nil {
		return nil, err
	}

	txm := tenant.MustGetTxManager(ctx)
	err = txm.RunInTransaction(ctx, func(ctx context.Context) error {
		if v.IsDefault {
			if err := s.repo.ClearDefaults(ctx, tenantID, v.EntityType, userID); err != nil {
				return err
			}
		}
		return s.repo.Create(ctx, v)
	})
	if err != nil {
		return nil, err
	}

	s.audit(ctx, domain.AuditCreate, v.ID.String(), v)
	logger.Info(ctx, "view created",
		"entity_type", v.EntityType, "view_id", v.ID, "is_default", v.IsDefault)
	return v, nil
}

// Get returns one view by id.
func (s *Service) Get(ctx context.Context, viewID id.ID) (*ViewConfiguration, error) {
	return s.repo.GetByID(ctx, tenant.GetTenantID(ctx), viewID)
}

// List returns the views of one entity type visible to the caller.
func (s *Service) List(ctx context.Context, entityType string) ([]*ViewConfiguration, error) {
	key, err := entitykey.Parse(entityType)
	if err != nil {
		return nil, err
	}
	return s.repo.ListVisible(ctx, tenant.GetTenantID(ctx), key.String(), security.GetUserID(ctx))
}

// Update applies a partial update. Only the owner may mutate a view;
// ownerless rows are mutable by anyone in the tenant.
func (s *Service) Update(ctx context.Context, viewID id.ID, in UpdateInput) (*ViewConfiguration, error) {
	userID := security.GetUserID(ctx)
	tenantID := tenant.GetTenantID(ctx)

	v, err := s.repo.GetByID(ctx, tenantID, viewID)
	if err != nil {
		return nil, err
	}
	if !v.OwnedBy(userID) {
		return nil, apperror.NewForbidden("view belongs to another user").
			WithDetail("viewId", viewID.String())
	}

	if in.Name != nil {
		v.Name = *in.Name
	}
	if in.ViewType != nil {
		v.ViewType = *in.ViewType
	}
	if in.Columns != nil {
		v.Columns = *in.Columns
	}
	if in.Filters != nil {
		v.Filters = *in.Filters
	}
	if in.SortBy != nil {
		v.SortBy = in.SortBy
	}
	if in.SortDirection != nil {
		v.SortDirection = *in.SortDirection
	}
	if in.GroupBy != nil {
		v.GroupBy = in.GroupBy
	}
	if in.IsShared != nil {
		v.IsShared = *in.IsShared
	}
	becameDefault := in.IsDefault != nil && *in.IsDefault && !v.IsDefault
	if in.IsDefault != nil {
		v.IsDefault = *in.IsDefault
	}

	if err := v.Validate(ctx); err != nil {
		return nil, err
	}

	txm := tenant.MustGetTxManager(ctx)
	err = txm.RunInTransaction(ctx, func(ctx context.Context) error {
		if becameDefault {
			if err := s.repo.ClearDefaults(ctx, tenantID, v.EntityType, userID); err != nil {
				return err
			}
		}
		return s.repo.Update(ctx, v)
	})
	if err != nil {
		return nil, err
	}

	s.audit(ctx, domain.AuditUpdate, v.ID.String(), v)
	return v, nil
}

// Delete removes a view. Same ownership rule as Update.
func (s *Service) Delete(ctx context.Context, viewID id.ID) error {
	userID := security.GetUserID(ctx)
	tenantID := tenant.GetTenantID(ctx)

	v, err := s.repo.GetByID(ctx, tenantID, viewID)
	if err != nil {
		return err
	}
	if !v.OwnedBy(userID) {
		return apperror.NewForbidden("view belongs to another user").
			WithDetail("viewId", viewID.String())
	}
	if err := s.repo.Delete(ctx, tenantID, viewID); err != nil {
		return err
	}

	s.audit(ctx, domain.AuditDelete, viewID.String(), v)
	return nil
}

// Duplicate copies a view the caller owns or that is shared with the
// tenant. The copy is always non-default, non-shared and owned by the
// caller.
func (s *Service) Duplicate(ctx context.Context, viewID id.ID, newName string) (*ViewConfiguration, error) {
	if newName == "" {
		return nil, apperror.NewValidation("name is required").WithDetail("field", "name")
	}
	userID := security.GetUserID(ctx)
	tenantID := tenant.GetTenantID(ctx)

	src, err := s.repo.GetByID(ctx, tenantID, viewID)
	if err != nil {
		return nil, err
	}
	if !src.OwnedBy(userID) && !src.IsShared {
		return nil, apperror.NewForbidden("view is neither owned by the caller nor shared").
			WithDetail("viewId", viewID.String())
	}

	cp := s.copyFor(src, userID)
	cp.Name = newName
	if err := s.repo.Create(ctx, cp); err != nil {
		return nil, err
	}

	s.audit(ctx, domain.AuditCreate, cp.ID.String(), cp)
	return cp, nil
}

// SetDefault makes viewID the caller's default for the entity type, after
// clearing any previous default. A nil viewID only clears. Another user's
// shared view is never mutated: it is cloned into a caller-owned copy and
// the clone becomes the default.
func (s *Service) SetDefault(ctx context.Context, entityType string, viewID *id.ID) (*ViewConfiguration, error) {
	key, err := entitykey.Parse(entityType)
	if err != nil {
		return nil, err
	}
	userID := security.GetUserID(ctx)
	tenantID := tenant.GetTenantID(ctx)

	var result *ViewConfiguration
	txm := tenant.MustGetTxManager(ctx)
	err = txm.RunInTransaction(ctx, func(ctx context.Context) error {
		if err := s.repo.ClearDefaults(ctx, tenantID, key.String(), userID); err != nil {
			return err
		}
		if viewID == nil {
			return nil
		}

		v, err := s.repo.GetByID(ctx, tenantID, *viewID)
		if err != nil {
			return err
		}
		if v.OwnedBy(userID) {
			if err := s.repo.SetDefault(ctx, tenantID, v.ID); err != nil {
				return err
			}
			v.IsDefault = true
			result = v
			return nil
		}
		if !v.IsShared {
			return apperror.NewForbidden("view is neither owned by the caller nor shared").
				WithDetail("viewId", v.ID.String())
		}

		clone := s.copyFor(v, userID)
		clone.IsDefault = true
		if err := s.repo.Create(ctx, clone); err != nil {
			return err
		}
		result = clone
		return nil
	})
	if err != nil {
		return nil, err
	}

	if result != nil {
		s.audit(ctx, domain.AuditUpdate, result.ID.String(), result)
	}
	return result, nil
}

// GetDefault resolves the view to present by default: the caller's own
// default first, then a tenant-shared one. Nil without error means no
// default is configured and the caller should fall back to its built-in
// presentation.
func (s *Service) GetDefault(ctx context.Context, entityType string) (*ViewConfiguration, error) {
	key, err := entitykey.Parse(entityType)
	if err != nil {
		return nil, err
	}
	userID := security.GetUserID(ctx)
	tenantID := tenant.GetTenantID(ctx)

	own, err := s.repo.GetUserDefault(ctx, tenantID, key.String(), userID)
	if err == nil {
		return own, nil
	}
	if !apperror.IsNotFound(err) {
		return nil, err
	}

	shared, err := s.repo.GetSharedDefault(ctx, tenantID, key.String())
	if err == nil {
		return shared, nil
	}
	if !apperror.IsNotFound(err) {
		return nil, err
	}
	return nil, nil
}

// copyFor builds a caller-owned, non-default, non-shared copy of src.
func (s *Service) copyFor(src *ViewConfiguration, userID string) *ViewConfiguration {
	cp := *src
	cp.ID = id.New()
	cp.IsDefault = false
	cp.IsShared = false
	cp.UserID = nil
	if userID != "" {
		uid := userID
		cp.UserID = &uid
	}
	cp.Columns = append(ColumnList(nil), src.Columns...)
	cp.Filters = append(FilterList(nil), src.Filters...)
	return &cp
}

func (s *Service) audit(ctx context.Context, action domain.AuditAction, objectID string, payload any) {
	rec := domain.AuditRecord{
		Action:     action,
		ObjectType: "view",
		ObjectID:   objectID,
		Payload:    payload,
	}
	if err := s.auditor.Record(ctx, rec); err != nil {
		logger.Warn(ctx, "audit record failed", "action", action, "error", err)
	}
}
