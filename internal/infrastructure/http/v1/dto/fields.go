package dto

import (
	"bytes"
	"encoding/json"
	"fmt"

	"metakit/internal/domain/fields"
)

// --- Field Definition DTOs ---

// CreateFieldDefinitionRequest for registering a custom field.
type CreateFieldDefinitionRequest struct {
	EntityType   string                  `json:"entityType" binding:"required"`
	FieldKey     string                  `json:"fieldKey" binding:"required"`
	Name         string                  `json:"name" binding:"required"`
	FieldType    string                  `json:"fieldType" binding:"required"`
	Options      fields.OptionList       `json:"options"`
	IsRequired   bool                    `json:"isRequired"`
	Validation   *fields.ValidationRules `json:"validation"`
	DefaultValue *string                 `json:"defaultValue"`
	Order        *int                    `json:"order"`
}

// ToInput maps the request to the service input.
func (r CreateFieldDefinitionRequest) ToInput() fields.CreateDefinitionInput {
	in := fields.CreateDefinitionInput{
		EntityType:   r.EntityType,
		FieldKey:     r.FieldKey,
		Name:         r.Name,
		FieldType:    fields.FieldType(r.FieldType),
		Options:      r.Options,
		IsRequired:   r.IsRequired,
		DefaultValue: r.DefaultValue,
		SortOrder:    r.Order,
	}
	if r.Validation != nil {
		in.Validation = *r.Validation
	}
	return in
}

// UpdateFieldDefinitionRequest is a partial update; absent fields stay
// unchanged. options and validation are raw so an explicit JSON null,
// which clears the stored value, can be told apart from absence.
// fieldKey, entityType and fieldType cannot be changed.
type UpdateFieldDefinitionRequest struct {
	Name         *string         `json:"name"`
	Options      json.RawMessage `json:"options"`
	IsRequired   *bool           `json:"isRequired"`
	Validation   json.RawMessage `json:"validation"`
	DefaultValue *string         `json:"defaultValue"`
	SortOrder    *int            `json:"order"`
	IsActive     *bool           `json:"isActive"`
}

// ToInput maps the request to the service input.
func (r UpdateFieldDefinitionRequest) ToInput() (fields.UpdateDefinitionInput, error) {
	in := fields.UpdateDefinitionInput{
		Name:         r.Name,
		IsRequired:   r.IsRequired,
		DefaultValue: r.DefaultValue,
		SortOrder:    r.SortOrder,
		IsActive:     r.IsActive,
	}

	switch {
	case len(r.Options) == 0:
	case isJSONNull(r.Options):
		in.Options = &fields.OptionList{}
	default:
		var opts fields.OptionList
		if err := json.Unmarshal(r.Options, &opts); err != nil {
			return in, fmt.Errorf("options: %w", err)
		}
		in.Options = &opts
	}

	switch {
	case len(r.Validation) == 0:
	case isJSONNull(r.Validation):
		in.Validation = &fields.ValidationRules{}
	default:
		var rules fields.ValidationRules
		if err := json.Unmarshal(r.Validation, &rules); err != nil {
			return in, fmt.Errorf("validation: %w", err)
		}
		in.Validation = &rules
	}

	return in, nil
}

// isJSONNull reports whether a present raw message is the literal null.
func isJSONNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}

// ReorderFieldsRequest carries the new definition ordering for one entity type.
type ReorderFieldsRequest struct {
	EntityType string   `json:"entityType" binding:"required"`
	IDs        []string `json:"ids" binding:"required"`
}

// --- Field Value DTOs ---

// SetValuesRequest carries a batch of raw values keyed by fieldKey.
// Keys that match no active definition are ignored.
type SetValuesRequest struct {
	Values map[string]any `json:"values" binding:"required"`
}

// BulkValuesRequest asks for decoded values of many entities at once.
type BulkValuesRequest struct {
	EntityType string   `json:"entityType" binding:"required"`
	EntityIDs  []string `json:"entityIds"`
}
