// Package v1 provides HTTP API version 1.
package v1

import (
	"github.com/gin-gonic/gin"

	"metakit/internal/core/security"
	"metakit/internal/core/tenant"
	"metakit/internal/domain/fields"
	"metakit/internal/domain/relations"
	"metakit/internal/domain/views"
	"metakit/internal/infrastructure/http/v1/handlers"
	"metakit/internal/infrastructure/http/v1/middleware"
	"metakit/internal/infrastructure/storage/postgres"
	"metakit/internal/infrastructure/storage/postgres/metadata_repo"
	"metakit/internal/metadata"
	"metakit/pkg/logger"
)

// RouterConfig holds router configuration.
type RouterConfig struct {
	// Pool is the shared database connection pool
	Pool *postgres.Pool

	// TxManager runs transactions on the shared pool
	TxManager *postgres.TxManager

	// TenantRegistry resolves tenants from the tenants table
	TenantRegistry tenant.Registry

	// Logger for request logging
	Logger *logger.Logger

	// JWTValidator for token validation
	JWTValidator middleware.JWTValidator

	// AuditStore records metadata changes
	AuditStore *postgres.AuditStore

	// MetadataRegistry stores fixed entity type definitions
	MetadataRegistry *metadata.Registry
}

// NewRouter creates and configures the Gin router.
func NewRouter(cfg RouterConfig) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()

	// Global middleware (order matters!)
	router.Use(middleware.Recovery())
	router.Use(middleware.Trace())
	router.Use(middleware.Logger(cfg.Logger))
	router.Use(middleware.ErrorHandler())

	// Health endpoints (no auth, no tenant required)
	healthHandler := handlers.NewHealthHandler(cfg.Pool)
	health := router.Group("/health")
	{
		health.GET("/live", healthHandler.Live)
		health.GET("/ready", healthHandler.Ready)
		health.GET("/info", healthHandler.Info)
	}

	// API v1 - tenant resolution first, then auth
	v1 := router.Group("/api/v1")
	protected := v1.Group("")
	protected.Use(middleware.Tenant(cfg.TenantRegistry, cfg.Pool, cfg.TxManager))
	if cfg.JWTValidator != nil {
		protected.Use(middleware.Auth(cfg.JWTValidator))
		protected.Use(middleware.UserContext())
	}

	registerMetadataRoutes(protected, cfg)

	return router
}

// registerMetadataRoutes wires the custom field, relation and view endpoints.
// Repositories read their TxManager from the request context, so services
// are created once and shared across requests.
func registerMetadataRoutes(rg *gin.RouterGroup, cfg RouterConfig) {
	base := handlers.NewBaseHandler()

	fieldDefRepo := metadata_repo.NewFieldDefinitionRepo()
	relationDefRepo := metadata_repo.NewRelationDefinitionRepo()

	fieldService := fields.NewService(
		fieldDefRepo,
		metadata_repo.NewFieldValueRepo(),
		cfg.AuditStore,
	)
	relationService := relations.NewService(
		relationDefRepo,
		metadata_repo.NewEntityRelationRepo(),
		cfg.AuditStore,
	)
	viewService := views.NewService(
		metadata_repo.NewViewConfigurationRepo(),
		cfg.AuditStore,
	)

	fieldsHandler := handlers.NewFieldsHandler(base, fieldService)
	relationsHandler := handlers.NewRelationsHandler(base, relationService)
	viewsHandler := handlers.NewViewsHandler(base, viewService)
	metaHandler := handlers.NewMetadataHandler(base, cfg.MetadataRegistry, cfg.AuditStore, fieldDefRepo, relationDefRepo)

	metadataWrite := middleware.RequirePermission(security.PermMetadataWrite)
	valuesWrite := middleware.RequirePermission(security.PermValuesWrite)
	viewsWrite := middleware.RequirePermission(security.PermViewsWrite)

	// --- Custom field definitions ---
	fieldDefs := rg.Group("/fields/definitions")
	{
		fieldDefs.POST("", metadataWrite, fieldsHandler.CreateDefinition)
		fieldDefs.GET("", fieldsHandler.ListDefinitions)
		fieldDefs.PUT("/reorder", metadataWrite, fieldsHandler.ReorderDefinitions)
		fieldDefs.GET("/:id", fieldsHandler.GetDefinition)
		fieldDefs.PATCH("/:id", metadataWrite, fieldsHandler.UpdateDefinition)
		fieldDefs.DELETE("/:id", metadataWrite, fieldsHandler.DeleteDefinition)
	}
	rg.POST("/fields/values/bulk", fieldsHandler.GetValuesBulk)

	// --- Relation definitions and edges ---
	relationDefs := rg.Group("/relations/definitions")
	{
		relationDefs.POST("", metadataWrite, relationsHandler.CreateDefinition)
		relationDefs.GET("", relationsHandler.ListDefinitions)
		relationDefs.GET("/:id", relationsHandler.GetDefinition)
		relationDefs.PATCH("/:id", metadataWrite, relationsHandler.UpdateDefinition)
		relationDefs.DELETE("/:id", metadataWrite, relationsHandler.DeleteDefinition)
	}
	relationEdges := rg.Group("/relations")
	{
		relationEdges.POST("", valuesWrite, relationsHandler.AddRelation)
		relationEdges.PUT("/reorder", valuesWrite, relationsHandler.ReorderRelations)
		relationEdges.DELETE("/:id", valuesWrite, relationsHandler.RemoveRelation)
	}

	// --- Per-entity values and relations ---
	entity := rg.Group("/entities/:entityType/:entityID")
	{
		entity.GET("/values", fieldsHandler.GetValues)
		entity.PUT("/values", valuesWrite, fieldsHandler.SetValues)
		entity.GET("/values/map", fieldsHandler.GetValuesMap)
		entity.GET("/relations", relationsHandler.ListEntityRelations)
	}

	// --- Views ---
	viewRoutes := rg.Group("/views")
	{
		viewRoutes.POST("", viewsWrite, viewsHandler.Create)
		viewRoutes.GET("", viewsHandler.List)
		viewRoutes.PUT("/default", viewsWrite, viewsHandler.SetDefault)
		viewRoutes.GET("/default", viewsHandler.GetDefault)
		viewRoutes.GET("/:id", viewsHandler.Get)
		viewRoutes.PATCH("/:id", viewsWrite, viewsHandler.Update)
		viewRoutes.DELETE("/:id", viewsWrite, viewsHandler.Delete)
		viewRoutes.POST("/:id/duplicate", viewsWrite, viewsHandler.Duplicate)
	}

	// --- Entity type catalog and audit history ---
	meta := rg.Group("/meta")
	{
		meta.GET("/entities", metaHandler.ListEntities)
		meta.GET("/entities/:name", metaHandler.GetEntity)
		meta.GET("/audit", metaHandler.History)
	}
}
