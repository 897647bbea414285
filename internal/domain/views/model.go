// Package views provides saved table presentations: per-user and shared
// view configurations with exclusive-default semantics per entity type.
package views

import (
	"context"
	"database/sql/driver"
	"time"

	"metakit/internal/core/apperror"
	"metakit/internal/core/id"
	"metakit/internal/core/jsonb"
	"metakit/internal/domain/filter"
)

// ViewType selects the presentation style.
type ViewType string

const (
	TypeTable    ViewType = "table"
	TypeKanban   ViewType = "kanban"
	TypeCalendar ViewType = "calendar"
)

// Valid reports whether t is a supported view type.
func (t ViewType) Valid() bool {
	switch t {
	case TypeTable, TypeKanban, TypeCalendar:
		return true
	}
	return false
}

// Column is one displayed column. FieldKey addresses either a fixed entity
// attribute or a custom field key. Order is the display position as
// declared by the client and is kept verbatim.
type Column struct {
	FieldKey string `json:"fieldKey"`
	Width    *int   `json:"width,omitempty"`
	Visible  bool   `json:"visible"`
	Order    int    `json:"order"`
}

// ColumnList is the ordered column layout, stored as JSONB.
type ColumnList []Column

// Scan implements sql.Scanner.
func (l *ColumnList) Scan(src any) error {
	*l = nil
	return jsonb.Scan(src, l)
}

// Value implements driver.Valuer. A nil list is stored as NULL.
func (l ColumnList) Value() (driver.Value, error) {
	return jsonb.Value(l, l == nil)
}

// FilterList is the saved filter set, stored as JSONB.
type FilterList []filter.Item

// Scan implements sql.Scanner.
func (l *FilterList) Scan(src any) error {
	*l = nil
	return jsonb.Scan(src, l)
}

// Value implements driver.Valuer. A nil list is stored as NULL.
func (l FilterList) Value() (driver.Value, error) {
	return jsonb.Value(l, l == nil)
}

// ViewConfiguration is one saved presentation of an entity type's list.
// UserID nil marks a legacy row without an owner; any caller may manage it.
type ViewConfiguration struct {
	ID            id.ID      `db:"id" json:"id"`
	TenantID      string     `db:"tenant_id" json:"tenantId"`
	UserID        *string    `db:"user_id" json:"userId,omitempty"`
	EntityType    string     `db:"entity_type" json:"entityType"`
	Name          string     `db:"name" json:"name"`
	ViewType      ViewType   `db:"view_type" json:"viewType"`
	Columns       ColumnList `db:"columns" json:"columns"`
	Filters       FilterList `db:"filters" json:"filters,omitempty"`
	SortBy        *string    `db:"sort_by" json:"sortBy,omitempty"`
	SortDirection string     `db:"sort_direction" json:"sortDirection,omitempty"`
	GroupBy       *string    `db:"group_by" json:"groupBy,omitempty"`
	IsDefault     bool       `db:"is_default" json:"isDefault"`
	IsShared      bool       `db:"is_shared" json:"isShared"`
	CreatedAt     time.Time  `db:"created_at" json:"createdAt"`
	UpdatedAt     time.Time  `db:"updated_at" json:"updatedAt"`
}

// Validate checks view invariants.
func (v *ViewConfiguration) Validate(ctx context.Context) error {
	if v.Name == "" {
		return apperror.NewValidation("name is required").
			WithDetail("field", "name")
	}
	if !v.ViewType.Valid() {
		return apperror.NewValidation("invalid view type").
			WithDetail("field", "viewType").
			WithDetail("value", string(v.ViewType))
	}
	for _, f := range v.Filters {
		if !f.Operator.Valid() {
			return apperror.NewValidation("invalid filter operator").
				WithDetail("field", "filters").
				WithDetail("operator", string(f.Operator))
		}
	}
	if v.SortDirection != "" && v.SortDirection != "asc" && v.SortDirection != "desc" {
		return apperror.NewValidation("sort direction must be asc or desc").
			WithDetail("field", "sortDirection")
	}
	return nil
}

// OwnedBy reports whether userID may mutate the view: either it is the
// owner or the view has no owner at all.
func (v *ViewConfiguration) OwnedBy(userID string) bool {
	return v.UserID == nil || *v.UserID == userID
}
