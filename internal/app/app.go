// Package app assembles the sale workflow services for the configured storage driver.
package app

import (
	"context"
	"fmt"

	"retailpos/internal/config"
	"retailpos/internal/core/idempotency"
	corenum "retailpos/internal/core/numerator"
	"retailpos/internal/domain/audit"
	"retailpos/internal/domain/catalogs/customer"
	"retailpos/internal/domain/catalogs/product"
	"retailpos/internal/domain/reports"
	"retailpos/internal/domain/sales"
	"retailpos/internal/infrastructure/storage/memory"
	"retailpos/internal/infrastructure/storage/postgres"
	"retailpos/internal/infrastructure/storage/postgres/catalog_repo"
	"retailpos/internal/infrastructure/storage/postgres/document_repo"
	"retailpos/internal/infrastructure/storage/postgres/report_repo"
	"retailpos/pkg/logger"
	"retailpos/pkg/numerator"
)

// Idempotency is the key store plus the expiry sweep the worker runs.
type Idempotency interface {
	idempotency.Store
	CleanupExpired(ctx context.Context) (int64, error)
}

// App holds the wired services.
type App struct {
	Products    *product.Service
	Customers   *customer.Service
	Sales       *sales.Engine
	Reports     *reports.Service
	Audit       audit.History
	Idempotency Idempotency

	// Set for the postgres driver only.
	Pool      *postgres.Pool
	TxManager *postgres.TxManager

	// Set for the memory driver only.
	Memory *memory.Store
}

// Close releases the database pool, if any.
func (a *App) Close() {
	if a.Pool != nil {
		a.Pool.Close()
	}
}

// New connects storage and builds every service.
func New(ctx context.Context, cfg *config.Config, log *logger.Logger) (*App, error) {
	pricing, err := product.NewPricingEngine()
	if err != nil {
		return nil, fmt.Errorf("pricing engine: %w", err)
	}

	salesCfg := sales.Config{
		ReceiptPrefix: cfg.Sales.ReceiptPrefix,
		Numbering: &corenum.Options{
			Strategy:  corenum.ParseStrategy(cfg.Sales.NumberingStrategy),
			RangeSize: cfg.Sales.NumberingRangeSize,
		},
		MutationAttempts: cfg.Sales.MutationAttempts,
	}

	switch cfg.Storage.Driver {
	case config.DriverMemory:
		log.Warnw("using in-memory storage; data is lost on restart")
		return newMemory(cfg, pricing, salesCfg), nil
	case config.DriverPostgres:
		return newPostgres(ctx, cfg, log, pricing, salesCfg)
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
	}
}

func newMemory(cfg *config.Config, pricing *product.PricingEngine, salesCfg sales.Config) *App {
	store := memory.NewStore()
	store.Idempotency = memory.NewIdempotencyStore(cfg.Sales.IdempotencyTTL)

	products := product.NewService(store.Products, store.Tx, pricing,
		product.WithAuditSink(store.Audit),
		product.WithStockAttempts(cfg.Sales.StockAttempts),
	)
	customers := customer.NewService(store.Customers, store.Tx)
	engine := sales.NewEngine(sales.Deps{
		Repo:      store.Sales,
		Products:  products,
		Customers: customers,
		Events:    store.Outbox,
		Audit:     store.Audit,
		Numerator: store.Numerator,
		TxManager: store.Tx,
	}, salesCfg)

	return &App{
		Products:    products,
		Customers:   customers,
		Sales:       engine,
		Reports:     reports.NewService(reports.NewSourceRepository(store.Sales)),
		Audit:       store.Audit,
		Idempotency: store.Idempotency,
		Memory:      store,
	}
}

func newPostgres(ctx context.Context, cfg *config.Config, log *logger.Logger, pricing *product.PricingEngine, salesCfg sales.Config) (*App, error) {
	poolCfg := postgres.DefaultPoolConfig(cfg.Database.URL)
	if cfg.Database.MaxConns > 0 {
		poolCfg.MaxConns = cfg.Database.MaxConns
	}
	if cfg.Database.MinConns > 0 {
		poolCfg.MinConns = cfg.Database.MinConns
	}
	if cfg.Database.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.Database.MaxConnLifetime
	}
	if cfg.Database.MaxConnIdleTime > 0 {
		poolCfg.MaxConnIdleTime = cfg.Database.MaxConnIdleTime
	}

	pool, err := postgres.NewPool(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	log.Infow("database connection established", "max_conns", poolCfg.MaxConns)

	if cfg.Storage.ApplySchema {
		if err := postgres.ApplySchema(ctx, pool); err != nil {
			pool.Close()
			return nil, err
		}
		log.Info("database schema applied")
	}

	txManager := postgres.NewTxManager(pool)
	auditSvc, err := postgres.NewAuditService(txManager)
	if err != nil {
		pool.Close()
		return nil, err
	}

	products := product.NewService(catalog_repo.NewProductRepo(txManager), txManager, pricing,
		product.WithAuditSink(auditSvc),
		product.WithStockAttempts(cfg.Sales.StockAttempts),
	)
	customers := customer.NewService(catalog_repo.NewCustomerRepo(txManager), txManager)
	engine := sales.NewEngine(sales.Deps{
		Repo:      document_repo.NewSaleRepo(txManager),
		Products:  products,
		Customers: customers,
		Events:    postgres.NewOutboxPublisher(txManager),
		Audit:     auditSvc,
		Numerator: numerator.New(txManager),
		TxManager: txManager,
	}, salesCfg)

	return &App{
		Products:    products,
		Customers:   customers,
		Sales:       engine,
		Reports:     reports.NewService(report_repo.NewReportRepo(txManager)),
		Audit:       auditSvc,
		Idempotency: postgres.NewIdempotencyStore(txManager, cfg.Sales.IdempotencyTTL),
		Pool:        pool,
		TxManager:   txManager,
	}, nil
}
