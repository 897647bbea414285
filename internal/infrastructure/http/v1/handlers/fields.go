package handlers

import (
	"github.com/gin-gonic/gin"

	"metakit/internal/core/apperror"
	"metakit/internal/domain/fields"
	"metakit/internal/infrastructure/http/v1/dto"
)

// FieldsHandler serves custom field definitions and per-entity values.
type FieldsHandler struct {
	*BaseHandler
	service *fields.Service
}

// NewFieldsHandler creates the fields handler.
func NewFieldsHandler(base *BaseHandler, service *fields.Service) *FieldsHandler {
	return &FieldsHandler{BaseHandler: base, service: service}
}

// CreateDefinition handles POST /fields/definitions.
func (h *FieldsHandler) CreateDefinition(c *gin.Context) {
	var req dto.CreateFieldDefinitionRequest
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

// ListDefinitions handles GET /fields/definitions?entityType=&includeInactive=.
func (h *FieldsHandler) ListDefinitions(c *gin.Context) {
	entityType := c.Query("entityType")
	if entityType == "" {
		h.Error(c, apperror.NewValidation("entityType query parameter is required"))
		return
	}

	defs, err := h.service.ListDefinitions(c.Request.Context(), entityType, h.BoolQuery(c, "includeInactive"))
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.NewListResponse(defs, len(defs)))
}

// GetDefinition handles GET /fields/definitions/:id.
func (h *FieldsHandler) GetDefinition(c *gin.Context) {
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

// UpdateDefinition handles PATCH /fields/definitions/:id.
func (h *FieldsHandler) UpdateDefinition(c *gin.Context) {
	defID, ok := h.ParseIDParam(c, "id")
	if !ok {
		return
	}

	var req dto.UpdateFieldDefinitionRequest
	if !h.BindJSON(c, &req) {
		return
	}

	in, err := req.ToInput()
	if err != nil {
		h.Error(c, apperror.NewValidation("malformed definition update").WithDetail("error", err.Error()))
		return
	}

	def, err := h.service.UpdateDefinition(c.Request.Context(), defID, in)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, def)
}

// DeleteDefinition handles DELETE /fields/definitions/:id.
// Stored values of the field are removed in the same transaction.
func (h *FieldsHandler) DeleteDefinition(c *gin.Context) {
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

// ReorderDefinitions handles PUT /fields/definitions/reorder.
func (h *FieldsHandler) ReorderDefinitions(c *gin.Context) {
	var req dto.ReorderFieldsRequest
	if !h.BindJSON(c, &req) {
		return
	}

	ids, err := dto.ReorderRequest{IDs: req.IDs}.ParseIDs()
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid id in ordering").WithDetail("error", err.Error()))
		return
	}

	if err := h.service.ReorderDefinitions(c.Request.Context(), req.EntityType, ids); err != nil {
		h.Error(c, err)
		return
	}
	h.Success(c, "reordered")
}

// GetValues handles GET /entities/:entityType/:entityID/values.
// Returns every active definition paired with the raw stored value.
func (h *FieldsHandler) GetValues(c *gin.Context) {
	list, err := h.service.GetValues(c.Request.Context(), c.Param("entityType"), c.Param("entityID"))
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.NewListResponse(list, len(list)))
}

// SetValues handles PUT /entities/:entityType/:entityID/values.
func (h *FieldsHandler) SetValues(c *gin.Context) {
	var req dto.SetValuesRequest
	if !h.BindJSON(c, &req) {
		return
	}

	err := h.service.SetValues(c.Request.Context(), c.Param("entityType"), c.Param("entityID"), req.Values)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.Success(c, "values saved")
}

// GetValuesMap handles GET /entities/:entityType/:entityID/values/map.
// Returns values decoded per field type, keyed by fieldKey.
func (h *FieldsHandler) GetValuesMap(c *gin.Context) {
	m, err := h.service.GetValuesMap(c.Request.Context(), c.Param("entityType"), c.Param("entityID"))
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, m)
}

// GetValuesBulk handles POST /fields/values/bulk.
func (h *FieldsHandler) GetValuesBulk(c *gin.Context) {
	var req dto.BulkValuesRequest
	if !h.BindJSON(c, &req) {
		return
	}

	m, err := h.service.GetValuesBulk(c.Request.Context(), req.EntityType, req.EntityIDs)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, m)
}
