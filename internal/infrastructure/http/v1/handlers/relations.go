package handlers

import (
	"github.com/gin-gonic/gin"

	"metakit/internal/core/apperror"
	"metakit/internal/core/id"
	"metakit/internal/domain/relations"
	"metakit/internal/infrastructure/http/v1/dto"
)

// RelationsHandler serves relation definitions and entity-to-entity edges.
type RelationsHandler struct {
	*BaseHandler
	service *relations.Service
}

// NewRelationsHandler creates the relations handler.
func NewRelationsHandler(base *BaseHandler, service *relations.Service) *RelationsHandler {
	return &RelationsHandler{BaseHandler: base, service: service}
}

// CreateDefinition handles POST /relations/definitions.
func (h *RelationsHandler) CreateDefinition(c *gin.Context) {
	var req dto.CreateRelationDefinitionRequest
	if !h.BindJSON(c, &req) {
		return
	}

	def, err := h.service.CreateDefinition(c.Request.Context(), req.ToInput())
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, def)
}

// ListDefinitions handles GET /relations/definitions.
// With sourceEntityType set, inferred inverse entries from other types'
// bidirectional definitions are appended after the direct ones.
func (h *RelationsHandler) ListDefinitions(c *gin.Context) {
	defs, err := h.service.ListDefinitions(c.Request.Context(), relations.ListDefinitionsQuery{
		SourceEntityType: c.Query("sourceEntityType"),
		TargetEntityType: c.Query("targetEntityType"),
		IncludeInactive:  h.BoolQuery(c, "includeInactive"),
	})
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.NewListResponse(defs, len(defs)))
}

// GetDefinition handles GET /relations/definitions/:id.
func (h *RelationsHandler) GetDefinition(c *gin.Context) {
	defID, ok := h.ParseIDParam(c, "id")
	if !ok {
		return
	}

	def, err := h.service.GetDefinition(c.Request.Context(), defID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, def)
}

// UpdateDefinition handles PATCH /relations/definitions/:id.
func (h *RelationsHandler) UpdateDefinition(c *gin.Context) {
	defID, ok := h.ParseIDParam(c, "id")
	if !ok {
		return
	}

	var req dto.UpdateRelationDefinitionRequest
	if !h.BindJSON(c, &req) {
		return
	}

	def, err := h.service.UpdateDefinition(c.Request.Context(), defID, req.ToInput())
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, def)
}

// DeleteDefinition handles DELETE /relations/definitions/:id.
// Stored edges of the definition are removed in the same transaction.
func (h *RelationsHandler) DeleteDefinition(c *gin.Context) {
	defID, ok := h.ParseIDParam(c, "id")
	if !ok {
		return
	}

	if err := h.service.DeleteDefinition(c.Request.Context(), defID); err != nil {
		h.Error(c, err)
		return
	}
	h.NoContent(c)
}

// AddRelation handles POST /relations.
// Re-adding an existing (definition, source, target) triple returns the
// stored edge unchanged.
func (h *RelationsHandler) AddRelation(c *gin.Context) {
	var req dto.AddRelationRequest
	if !h.BindJSON(c, &req) {
		return
	}

	in, err := req.ToInput()
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid relationDefId").WithDetail("value", req.RelationDefID))
		return
	}

	rel, err := h.service.AddRelation(c.Request.Context(), in)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, rel)
}

// RemoveRelation handles DELETE /relations/:id.
func (h *RelationsHandler) RemoveRelation(c *gin.Context) {
	relID, ok := h.ParseIDParam(c, "id")
	if !ok {
		return
	}

	if err := h.service.RemoveRelation(c.Request.Context(), relID); err != nil {
		h.Error(c, err)
		return
	}
	h.NoContent(c)
}

// ReorderRelations handles PUT /relations/reorder.
func (h *RelationsHandler) ReorderRelations(c *gin.Context) {
	var req dto.ReorderRequest
	if !h.BindJSON(c, &req) {
		return
	}

	ids, err := req.ParseIDs()
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid id in ordering").WithDetail("error", err.Error()))
		return
	}

	if err := h.service.ReorderRelations(c.Request.Context(), ids); err != nil {
		h.Error(c, err)
		return
	}
	h.Success(c, "reordered")
}

// ListEntityRelations handles GET /entities/:entityType/:entityID/relations.
// Direct edges come first; with a definitionId the inverse sides of
// matching bidirectional definitions are appended.
func (h *RelationsHandler) ListEntityRelations(c *gin.Context) {
	var defID *id.ID
	if raw := c.Query("definitionId"); raw != "" {
		parsed, err := id.Parse(raw)
		if err != nil {
			h.Error(c, apperror.NewValidation("invalid definitionId").WithDetail("value", raw))
			return
		}
		defID = &parsed
	}

	rels, err := h.service.ListEntityRelations(c.Request.Context(), c.Param("entityType"), c.Param("entityID"), defID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.NewListResponse(rels, len(rels)))
}
