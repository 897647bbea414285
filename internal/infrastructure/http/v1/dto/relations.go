package dto

import (
	"metakit/internal/core/id"
	"metakit/internal/domain/relations"
)

// --- Relation Definition DTOs ---

// CreateRelationDefinitionRequest for registering a relation type.
// relationType defaults to many_to_many when omitted.
type CreateRelationDefinitionRequest struct {
	SourceEntityType  string   `json:"sourceEntityType" binding:"required"`
	FieldKey          string   `json:"fieldKey" binding:"required"`
	Name              string   `json:"name" binding:"required"`
	RelationType      string   `json:"relationType"`
	TargetEntityTypes []string `json:"targetEntityTypes" binding:"required"`
	IsBidirectional   bool     `json:"isBidirectional"`
	InverseName       *string  `json:"inverseName"`
	DisplayFields     []string `json:"displayFields"`
}

// ToInput maps the request to the service input.
func (r CreateRelationDefinitionRequest) ToInput() relations.CreateDefinitionInput {
	return relations.CreateDefinitionInput{
		SourceEntityType:  r.SourceEntityType,
		FieldKey:          r.FieldKey,
		Name:              r.Name,
		RelationType:      relations.RelationType(r.RelationType),
		TargetEntityTypes: r.TargetEntityTypes,
		IsBidirectional:   r.IsBidirectional,
		InverseName:       r.InverseName,
		DisplayFields:     r.DisplayFields,
	}
}

// UpdateRelationDefinitionRequest is a partial update; absent fields stay
// unchanged. fieldKey and sourceEntityType cannot be changed.
type UpdateRelationDefinitionRequest struct {
	Name              *string   `json:"name"`
	RelationType      *string   `json:"relationType"`
	TargetEntityTypes *[]string `json:"targetEntityTypes"`
	IsBidirectional   *bool     `json:"isBidirectional"`
	InverseName       *string   `json:"inverseName"`
	DisplayFields     *[]string `json:"displayFields"`
	IsActive          *bool     `json:"isActive"`
}

// ToInput maps the request to the service input.
func (r UpdateRelationDefinitionRequest) ToInput() relations.UpdateDefinitionInput {
	in := relations.UpdateDefinitionInput{
		Name:              r.Name,
		TargetEntityTypes: r.TargetEntityTypes,
		IsBidirectional:   r.IsBidirectional,
		InverseName:       r.InverseName,
		DisplayFields:     r.DisplayFields,
		IsActive:          r.IsActive,
	}
	if r.RelationType != nil {
		rt := relations.RelationType(*r.RelationType)
		in.RelationType = &rt
	}
	return in
}

// --- Entity Relation DTOs ---

// AddRelationRequest links one source entity to one target entity
// under a declared relation definition.
type AddRelationRequest struct {
	RelationDefID    string `json:"relationDefId" binding:"required"`
	SourceEntityID   string `json:"sourceEntityId" binding:"required"`
	TargetEntityType string `json:"targetEntityType" binding:"required"`
	TargetEntityID   string `json:"targetEntityId" binding:"required"`
}

// ToInput maps the request to the service input.
func (r AddRelationRequest) ToInput() (relations.AddRelationInput, error) {
	defID, err := id.Parse(r.RelationDefID)
	if err != nil {
		return relations.AddRelationInput{}, err
	}
	return relations.AddRelationInput{
		RelationDefID:    defID,
		SourceEntityID:   r.SourceEntityID,
		TargetEntityType: r.TargetEntityType,
		TargetEntityID:   r.TargetEntityID,
	}, nil
}
