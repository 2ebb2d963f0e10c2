// Package v1 provides HTTP API version 1.
package v1

import (
	"time"

	"github.com/gin-gonic/gin"

	"retailpos/internal/config"
	appctx "retailpos/internal/core/context"
	"retailpos/internal/core/idempotency"
	"retailpos/internal/domain/audit"
	"retailpos/internal/domain/catalogs/customer"
	"retailpos/internal/domain/catalogs/product"
	"retailpos/internal/domain/reports"
	"retailpos/internal/domain/sales"
	"retailpos/internal/infrastructure/http/v1/handlers"
	"retailpos/internal/infrastructure/http/v1/middleware"
	"retailpos/pkg/logger"
)

// RouterConfig holds router configuration.
type RouterConfig struct {
	// Logger for request logging
	Logger *logger.Logger

	// JWTValidator for token validation
	JWTValidator middleware.JWTValidator

	// Idempotency stores X-Idempotency-Key results. Nil disables the middleware.
	Idempotency idempotency.Store

	// Pinger backs the readiness probe; nil for the in-memory driver.
	Pinger handlers.Pinger
	Driver string

	Products  *product.Service
	Customers *customer.Service
	Sales     *sales.Engine
	Reports   *reports.Service
	Audit     audit.History

	CORS           config.CORSConfig
	RateLimiter    *middleware.RateLimiter
	RequestTimeout time.Duration
	Version        string
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
	router.Use(middleware.CORS(cfg.CORS))

	healthHandler := handlers.NewHealthHandler(cfg.Pinger, cfg.Driver, cfg.Version)
	health := router.Group("/health")
	{
		health.GET("/live", healthHandler.Live)
		health.GET("/ready", healthHandler.Ready)
	}

	v1 := router.Group("/api/v1")
	protected := v1.Group("")
	protected.Use(middleware.Auth(cfg.JWTValidator))
	if cfg.RateLimiter != nil {
		protected.Use(cfg.RateLimiter.Middleware())
	}
	protected.Use(middleware.Timeout(cfg.RequestTimeout))
	if cfg.Idempotency != nil {
		protected.Use(middleware.Idempotency(cfg.Idempotency))
	}

	base := handlers.NewBaseHandler()
	registerCatalogRoutes(protected, base, cfg)
	registerSaleRoutes(protected, base, cfg)
	registerReportRoutes(protected, base, cfg)

	if cfg.Audit != nil {
		handler := handlers.NewAuditHandler(base, cfg.Audit)
		protected.GET("/audit/:entityType/:entityId", middleware.RequireRole(appctx.RoleManager), handler.History)
	}

	return router
}

// registerCatalogRoutes registers product and customer endpoints.
func registerCatalogRoutes(rg *gin.RouterGroup, base *handlers.BaseHandler, cfg RouterConfig) {
	manager := middleware.RequireRole(appctx.RoleManager)

	// --- PRODUCTS ---
	{
		handler := handlers.NewProductHandler(base, cfg.Products)
		group := rg.Group("/products")
		RegisterCatalogRoutes(group, handler, appctx.RoleManager)
		group.GET("/:id/movements", handler.Movements)
		group.POST("/:id/stock-adjustments", manager, handler.AdjustStock)
	}

	// --- CUSTOMERS ---
	{
		handler := handlers.NewCustomerHandler(base, cfg.Customers)
		group := rg.Group("/customers")
		RegisterCatalogRoutes(group, handler, appctx.RoleCashier, appctx.RoleManager)
		group.GET("/:id/credit", handler.Credit)
		group.POST("/:id/credit/settlements", manager, handler.SettleCredit)
	}
}

// registerSaleRoutes registers the sale workflow endpoints.
func registerSaleRoutes(rg *gin.RouterGroup, base *handlers.BaseHandler, cfg RouterConfig) {
	handler := handlers.NewSaleHandler(base, cfg.Sales)
	manager := middleware.RequireRole(appctx.RoleManager)

	group := rg.Group("/sales")
	group.POST("", handler.Create)
	group.POST("/quick", handler.Quick)
	group.GET("", handler.List)
	group.GET("/receipt/:number", handler.GetByReceipt)
	group.GET("/:id", handler.Get)
	group.POST("/:id/payments", handler.RecordPayment)
	group.POST("/:id/void", manager, handler.Void)
	group.POST("/:id/refunds", manager, handler.Refund)
}

// registerReportRoutes registers report endpoints.
func registerReportRoutes(rg *gin.RouterGroup, base *handlers.BaseHandler, cfg RouterConfig) {
	handler := handlers.NewReportsHandler(base, cfg.Reports)

	group := rg.Group("/reports")
	group.GET("/daily", handler.Daily)
	group.GET("/period", handler.Period)
	group.GET("/products", handler.Products)
	group.GET("/sellers", handler.Sellers)
}
