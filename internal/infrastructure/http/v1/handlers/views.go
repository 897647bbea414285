package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"metakit/internal/core/apperror"
	"metakit/internal/core/id"
	"metakit/internal/domain/views"
	"metakit/internal/infrastructure/http/v1/dto"
)

// ViewsHandler serves saved view configurations.
type ViewsHandler struct {
	*BaseHandler
	service *views.Service
}

// NewViewsHandler creates the views handler.
func NewViewsHandler(base *BaseHandler, service *views.Service) *ViewsHandler {
	return &ViewsHandler{BaseHandler: base, service: service}
}

// Create handles POST /views.
func (h *ViewsHandler) Create(c *gin.Context) {
	var req dto.CreateViewRequest
	if !h.BindJSON(c, &req) {
		return
	}

	view, err := h.service.Create(c.Request.Context(), req.ToInput())
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, view)
}

// List handles GET /views?entityType=.
// Returns the caller's own views plus shared and ownerless ones.
func (h *ViewsHandler) List(c *gin.Context) {
	entityType := c.Query("entityType")
	if entityType == "" {
		h.Error(c, apperror.NewValidation("entityType query parameter is required"))
		return
	}

	list, err := h.service.List(c.Request.Context(), entityType)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.NewListResponse(list, len(list)))
}

// Get handles GET /views/:id.
func (h *ViewsHandler) Get(c *gin.Context) {
	viewID, ok := h.ParseIDParam(c, "id")
	if !ok {
		return
	}

	view, err := h.service.Get(c.Request.Context(), viewID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, view)
}

// Update handles PATCH /views/:id.
func (h *ViewsHandler) Update(c *gin.Context) {
	viewID, ok := h.ParseIDParam(c, "id")
	if !ok {
		return
	}

	var req dto.UpdateViewRequest
	if !h.BindJSON(c, &req) {
		return
	}

	view, err := h.service.Update(c.Request.Context(), viewID, req.ToInput())
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, view)
}

// Delete handles DELETE /views/:id.
func (h *ViewsHandler) Delete(c *gin.Context) {
	viewID, ok := h.ParseIDParam(c, "id")
	if !ok {
		return
	}

	if err := h.service.Delete(c.Request.Context(), viewID); err != nil {
		h.Error(c, err)
		return
	}
	h.NoContent(c)
}

// Duplicate handles POST /views/:id/duplicate.
// The copy is private, non-default and owned by the caller.
func (h *ViewsHandler) Duplicate(c *gin.Context) {
	viewID, ok := h.ParseIDParam(c, "id")
	if !ok {
		return
	}

	var req dto.DuplicateViewRequest
	if !h.BindJSON(c, &req) {
		return
	}

	dup, err := h.service.Duplicate(c.Request.Context(), viewID, req.Name)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dup)
}

// SetDefault handles PUT /views/default.
// A null viewId clears the caller's default for the entity type.
func (h *ViewsHandler) SetDefault(c *gin.Context) {
	var req dto.SetDefaultViewRequest
	if !h.BindJSON(c, &req) {
		return
	}

	var viewID *id.ID
	if req.ViewID != nil {
		parsed, err := id.Parse(*req.ViewID)
		if err != nil {
			h.Error(c, apperror.NewValidation("invalid viewId").WithDetail("value", *req.ViewID))
			return
		}
		viewID = &parsed
	}

	view, err := h.service.SetDefault(c.Request.Context(), req.EntityType, viewID)
	if err != nil {
		h.Error(c, err)
		return
	}
	if view == nil {
		h.Success(c, "default cleared")
		return
	}
	h.OK(c, view)
}

// GetDefault handles GET /views/default?entityType=.
// A missing default is a 204, not an error.
func (h *ViewsHandler) GetDefault(c *gin.Context) {
	entityType := c.Query("entityType")
	if entityType == "" {
		h.Error(c, apperror.NewValidation("entityType query parameter is required"))
		return
	}

	view, err := h.service.GetDefault(c.Request.Context(), entityType)
	if err != nil {
		h.Error(c, err)
		return
	}
	if view == nil {
		c.Status(http.StatusNoContent)
		return
	}
	h.OK(c, view)
}
