// Package fields provides the custom-field layer: per-tenant, per-entity-type
// field definitions and the entity-attribute-value store behind them.
package fields

import (
	"context"
	"database/sql/driver"
	"regexp"
	"time"

	"metakit/internal/core/apperror"
	"metakit/internal/core/id"
	"metakit/internal/core/jsonb"
)

// fieldKeyRE is the stable machine-name format for custom fields.
var fieldKeyRE = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)

// FieldType defines the data type of a custom field.
// The set is closed; values are interpreted at read time by ParseValue.
type FieldType string

const (
	TypeText        FieldType = "text"
	TypeNumber      FieldType = "number"
	TypeCurrency    FieldType = "currency"
	TypeDate        FieldType = "date"
	TypeDateTime    FieldType = "datetime"
	TypeBoolean     FieldType = "boolean"
	TypeSelect      FieldType = "select"
	TypeMultiSelect FieldType = "multiselect"
	TypeURL         FieldType = "url"
	TypeEmail       FieldType = "email"
	TypePhone       FieldType = "phone"
	TypeUser        FieldType = "user"
	TypeUsers       FieldType = "users"
)

// Valid reports whether t is one of the supported field types.
func (t FieldType) Valid() bool {
	switch t {
	case TypeText, TypeNumber, TypeCurrency, TypeDate, TypeDateTime,
		TypeBoolean, TypeSelect, TypeMultiSelect, TypeURL, TypeEmail,
		TypePhone, TypeUser, TypeUsers:
		return true
	}
	return false
}

// IsSelect reports whether t carries an option list.
func (t FieldType) IsSelect() bool {
	return t == TypeSelect || t == TypeMultiSelect
}

// IsNumeric reports whether t decodes to a float.
func (t FieldType) IsNumeric() bool {
	return t == TypeNumber || t == TypeCurrency
}

// Option is one choice of a select-like field.
type Option struct {
	Value string `json:"value"`
	Label string `json:"label"`
	Color string `json:"color,omitempty"`
}

// OptionList is the ordered option set, stored as JSONB.
type OptionList []Option

// Scan implements sql.Scanner.
func (l *OptionList) Scan(src any) error {
	*l = nil
	return jsonb.Scan(src, l)
}

// Value implements driver.Valuer. A nil list is stored as NULL.
func (l OptionList) Value() (driver.Value, error) {
	return jsonb.Value(l, l == nil)
}

// ValidationRules constrains values of a field, stored as JSONB.
type ValidationRules struct {
	Min       *float64 `json:"min,omitempty"`
	Max       *float64 `json:"max,omitempty"`
	MinLength *int     `json:"minLength,omitempty"`
	MaxLength *int     `json:"maxLength,omitempty"`
	Pattern   string   `json:"pattern,omitempty"`
}

// IsZero reports whether no rule is set.
func (r ValidationRules) IsZero() bool {
	return r.Min == nil && r.Max == nil && r.MinLength == nil && r.MaxLength == nil && r.Pattern == ""
}

// Scan implements sql.Scanner.
func (r *ValidationRules) Scan(src any) error {
	*r = ValidationRules{}
	return jsonb.Scan(src, r)
}

// Value implements driver.Valuer. Zero rules are stored as NULL.
func (r ValidationRules) Value() (driver.Value, error) {
	return jsonb.Value(r, r.IsZero())
}

// FieldDefinition declares one custom attribute attachable to a
// (tenant, entityType) pair. EntityType is an opaque key: either a fixed
// collaborator type ("client") or a tenant-invented one ("generic:vendors").
type FieldDefinition struct {
	ID           id.ID           `db:"id" json:"id"`
	TenantID     string          `db:"tenant_id" json:"tenantId"`
	EntityType   string          `db:"entity_type" json:"entityType"`
	FieldKey     string          `db:"field_key" json:"fieldKey"`
	Name         string          `db:"name" json:"name"`
	FieldType    FieldType       `db:"field_type" json:"fieldType"`
	Options      OptionList      `db:"options" json:"options,omitempty"`
	IsRequired   bool            `db:"is_required" json:"isRequired"`
	Validation   ValidationRules `db:"validation" json:"validation,omitempty"`
	DefaultValue *string         `db:"default_value" json:"defaultValue,omitempty"`
	SortOrder    int             `db:"sort_order" json:"order"`
	IsActive     bool            `db:"is_active" json:"isActive"`
	CreatedAt    time.Time       `db:"created_at" json:"createdAt"`
	UpdatedAt    time.Time       `db:"updated_at" json:"updatedAt"`
}

// Validate checks definition invariants.
func (d *FieldDefinition) Validate(ctx context.Context) error {
	if d.Name == "" {
		return apperror.NewValidation("name is required").
			WithDetail("field", "name")
	}
	if !fieldKeyRE.MatchString(d.FieldKey) {
		return apperror.NewValidation("fieldKey must match [a-z][a-z0-9_]*").
			WithDetail("field", "fieldKey").
			WithDetail("value", d.FieldKey)
	}
	if !d.FieldType.Valid() {
		return apperror.NewValidation("invalid field type").
			WithDetail("field", "fieldType").
			WithDetail("value", string(d.FieldType))
	}
	if d.FieldType.IsSelect() && len(d.Options) == 0 {
		return apperror.NewValidation("select fields require at least one option").
			WithDetail("field", "options")
	}
	return nil
}

// FieldValue is one stored value for a (field, entity) pair.
// The value is always persisted as a string; interpretation is driven by
// the owning definition's FieldType.
type FieldValue struct {
	ID         id.ID     `db:"id" json:"id"`
	TenantID   string    `db:"tenant_id" json:"tenantId"`
	FieldID    id.ID     `db:"field_id" json:"fieldId"`
	EntityType string    `db:"entity_type" json:"entityType"`
	EntityID   string    `db:"entity_id" json:"entityId"`
	Value      string    `db:"value" json:"value"`
	CreatedAt  time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt  time.Time `db:"updated_at" json:"updatedAt"`
}

// FieldWithValue pairs a definition with the resolved raw value for one
// entity: the stored value if present, else the default, else nil.
type FieldWithValue struct {
	Definition *FieldDefinition `json:"definition"`
	Value      *string          `json:"value"`
}
