package v1

import (
	"github.com/gin-gonic/gin"

	"retailpos/internal/infrastructure/http/v1/middleware"
)

// CatalogRouteHandler defines the interface for catalog handlers.
type CatalogRouteHandler interface {
	List(c *gin.Context)
	Create(c *gin.Context)
	Get(c *gin.Context)
	Update(c *gin.Context)
}

// RegisterCatalogRoutes registers standard CRUD routes for a catalog.
// Reads are open to every authenticated role; writes need one of writeRoles.
//
// Usage:
//
//	handler := handlers.NewProductHandler(baseHandler, productService)
//	RegisterCatalogRoutes(api.Group("/products"), handler, appctx.RoleManager)
func RegisterCatalogRoutes(group *gin.RouterGroup, handler CatalogRouteHandler, writeRoles ...string) {
	write := middleware.RequireRole(writeRoles...)
	group.GET("", handler.List)
	group.POST("", write, handler.Create)
	group.GET("/:id", handler.Get)
	group.PUT("/:id", write, handler.Update)
}
