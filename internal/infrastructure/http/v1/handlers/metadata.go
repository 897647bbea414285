package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"metakit/internal/core/apperror"
	"metakit/internal/core/tenant"
	"metakit/internal/infrastructure/storage/postgres"
	"metakit/internal/metadata"
	"metakit/pkg/logger"
)

// EntityTypeSource yields the entity types a tenant has declared metadata
// for. Field and relation definition repos both implement it.
type EntityTypeSource interface {
	DistinctEntityTypes(ctx context.Context, tenantID string) ([]string, error)
}

// MetadataHandler serves the entity type catalog and change history.
type MetadataHandler struct {
	*BaseHandler
	registry *metadata.Registry
	audit    *postgres.AuditStore
	sources  []EntityTypeSource
}

// NewMetadataHandler creates the metadata handler.
func NewMetadataHandler(base *BaseHandler, registry *metadata.Registry, audit *postgres.AuditStore, sources ...EntityTypeSource) *MetadataHandler {
	return &MetadataHandler{BaseHandler: base, registry: registry, audit: audit, sources: sources}
}

// ListEntities returns the fixed entity types merged with the tenant's
// generic types observed in field and relation definitions.
// GET /meta/entities
func (h *MetadataHandler) ListEntities(c *gin.Context) {
	ctx := c.Request.Context()
	list := h.registry.List()

	seen := make(map[string]bool, len(list))
	for _, def := range list {
		seen[def.Name] = true
	}

	tenantID := tenant.GetTenantID(ctx)
	for _, src := range h.sources {
		types, err := src.DistinctEntityTypes(ctx, tenantID)
		if err != nil {
			// The fixed catalog is still useful without tenant types.
			logger.Warn(ctx, "tenant entity types lookup failed", "error", err)
			continue
		}
		for _, t := range types {
			if seen[t] {
				continue
			}
			seen[t] = true
			list = append(list, metadata.EntityDef{Name: t, Label: t})
		}
	}

	c.JSON(http.StatusOK, list)
}

// GetEntity returns one fixed entity type definition.
// GET /meta/entities/:name
func (h *MetadataHandler) GetEntity(c *gin.Context) {
	name := c.Param("name")
	if def, ok := h.registry.Get(name); ok {
		c.JSON(http.StatusOK, def)
		return
	}
	h.Error(c, apperror.NewNotFound("entity type", name))
}

// History returns the audit trail of one metadata object.
// GET /meta/audit?objectType=&objectId=&limit=
func (h *MetadataHandler) History(c *gin.Context) {
	objectType := c.Query("objectType")
	objectID := c.Query("objectId")
	if objectType == "" || objectID == "" {
		h.Error(c, apperror.NewValidation("objectType and objectId query parameters are required"))
		return
	}

	limit := h.ParseIntQuery(c, "limit", 50)
	rows, err := h.audit.History(c.Request.Context(), objectType, objectID, limit)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, rows)
}
