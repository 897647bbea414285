package dto

import (
	"metakit/internal/domain/views"
)

// --- View Configuration DTOs ---

// CreateViewRequest for saving a new view.
type CreateViewRequest struct {
	EntityType    string           `json:"entityType" binding:"required"`
	Name          string           `json:"name" binding:"required"`
	ViewType      string           `json:"viewType" binding:"required"`
	Columns       views.ColumnList `json:"columns"`
	Filters       views.FilterList `json:"filters"`
	SortBy        *string          `json:"sortBy"`
	SortDirection string           `json:"sortDirection"`
	GroupBy       *string          `json:"groupBy"`
	IsDefault     bool             `json:"isDefault"`
	IsShared      bool             `json:"isShared"`
}

// ToInput maps the request to the service input.
func (r CreateViewRequest) ToInput() views.CreateInput {
	return views.CreateInput{
		EntityType:    r.EntityType,
		Name:          r.Name,
		ViewType:      views.ViewType(r.ViewType),
		Columns:       r.Columns,
		Filters:       r.Filters,
		SortBy:        r.SortBy,
		SortDirection: r.SortDirection,
		GroupBy:       r.GroupBy,
		IsDefault:     r.IsDefault,
		IsShared:      r.IsShared,
	}
}

// UpdateViewRequest is a partial update; absent fields stay unchanged.
type UpdateViewRequest struct {
	Name          *string           `json:"name"`
	ViewType      *string           `json:"viewType"`
	Columns       *views.ColumnList `json:"columns"`
	Filters       *views.FilterList `json:"filters"`
	SortBy        *string           `json:"sortBy"`
	SortDirection *string           `json:"sortDirection"`
	GroupBy       *string           `json:"groupBy"`
	IsDefault     *bool             `json:"isDefault"`
	IsShared      *bool             `json:"isShared"`
}

// ToInput maps the request to the service input.
func (r UpdateViewRequest) ToInput() views.UpdateInput {
	in := views.UpdateInput{
		Name:          r.Name,
		Columns:       r.Columns,
		Filters:       r.Filters,
		SortBy:        r.SortBy,
		SortDirection: r.SortDirection,
		GroupBy:       r.GroupBy,
		IsDefault:     r.IsDefault,
		IsShared:      r.IsShared,
	}
	if r.ViewType != nil {
		vt := views.ViewType(*r.ViewType)
		in.ViewType = &vt
	}
	return in
}

// DuplicateViewRequest names the copy of an existing view.
type DuplicateViewRequest struct {
	Name string `json:"name" binding:"required"`
}

// SetDefaultViewRequest marks one view as the caller's default for an
// entity type. A null viewId clears the current default.
type SetDefaultViewRequest struct {
	EntityType string  `json:"entityType" binding:"required"`
	ViewID     *string `json:"viewId"`
}
