package product

import (
	"context"
	"fmt"
	"time"

	"retailpos/internal/core/apperror"
	appctx "retailpos/internal/core/context"
	"retailpos/internal/core/id"
	"retailpos/internal/core/tx"
	"retailpos/internal/core/types"
	"retailpos/internal/domain"
	"retailpos/internal/domain/audit"
	"retailpos/pkg/logger"
)

// DefaultStockAttempts bounds the compare-and-set retry loop of ApplyStockDelta.
const DefaultStockAttempts = 5

// Service provides the Product catalog and the inventory ledger.
type Service struct {
	*domain.CatalogService[*Product]
	repo      Repository
	txManager tx.Manager
	pricing   *PricingEngine
	audit     audit.Sink

	maxAttempts int
}

// Option configures the Service.
type Option func(*Service)

// WithStockAttempts overrides DefaultStockAttempts.
func WithStockAttempts(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxAttempts = n
		}
	}
}

// WithAuditSink sets the sink for manual stock adjustments.
func WithAuditSink(sink audit.Sink) Option {
	return func(s *Service) { s.audit = sink }
}

// NewService creates a new Product service.
func NewService(repo Repository, txManager tx.Manager, pricing *PricingEngine, opts ...Option) *Service {
	base := domain.NewCatalogService(domain.CatalogServiceConfig[*Product]{
		Repo:       repo,
		TxManager:  txManager,
		EntityName: "product",
	})

	svc := &Service{
		CatalogService: base,
		repo:           repo,
		txManager:      txManager,
		pricing:        pricing,
		maxAttempts:    DefaultStockAttempts,
	}
	for _, opt := range opts {
		opt(svc)
	}

	base.Hooks().OnBeforeCreate(svc.prepareForCreate)
	base.Hooks().OnBeforeUpdate(svc.prepareForUpdate)
	base.Hooks().OnAfterCreate(svc.auditChange(audit.ActionProductCreated))
	base.Hooks().OnAfterUpdate(svc.auditChange(audit.ActionProductUpdated))

	return svc
}

func (s *Service) prepareForCreate(ctx context.Context, p *Product) error {
	if existing, err := s.repo.GetBySKU(ctx, p.SKU); err == nil && existing.ID != p.ID {
		return apperror.NewDuplicate("product", "sku", p.SKU)
	} else if err != nil && !apperror.IsNotFound(err) {
		return fmt.Errorf("check sku: %w", err)
	}
	return s.pricing.Check(p)
}

func (s *Service) prepareForUpdate(ctx context.Context, p *Product) error {
	if existing, err := s.repo.GetBySKU(ctx, p.SKU); err == nil && existing.ID != p.ID {
		return apperror.NewDuplicate("product", "sku", p.SKU)
	}
	return s.pricing.Check(p)
}

func (s *Service) auditChange(action string) domain.Hook[*Product] {
	return func(ctx context.Context, p *Product) error {
		audit.Emit(ctx, s.audit, audit.Record{
			ActorID:    appctx.GetUserID(ctx),
			Action:     action,
			EntityType: "product",
			EntityID:   p.ID.String(),
			Details: map[string]any{
				"sku":   p.SKU,
				"price": p.Price.String(),
			},
		})
		return nil
	}
}

// GetBySKU retrieves a product by SKU.
func (s *Service) GetBySKU(ctx context.Context, sku string) (*Product, error) {
	p, err := s.repo.GetBySKU(ctx, sku)
	if err != nil {
		if apperror.IsNotFound(err) {
			return nil, apperror.NewNotFound("product", sku)
		}
		return nil, err
	}
	return p, nil
}

// EffectivePrice is the current sale price of p after pricing rules.
func (s *Service) EffectivePrice(ctx context.Context, p *Product, at time.Time) types.Money {
	return s.pricing.EffectivePrice(ctx, p, at)
}

// ApplyStockDelta changes a product's stock and records the movement.
//
// The write is a compare-and-set on the product version; a conflicting writer
// causes a re-read and retry. Exhausting the retries reports InsufficientStock.
// Products that do not track inventory are left untouched and their stock is returned as is.
func (s *Service) ApplyStockDelta(ctx context.Context, d StockDelta) (types.Quantity, error) {
	if d.Quantity.IsZero() {
		return 0, apperror.NewValidation("stock delta must not be zero").WithDetail("field", "quantity")
	}
	if !d.Reason.IsValid() {
		return 0, apperror.NewValidation("unknown stock movement reason").WithDetail("reason", d.Reason)
	}

	var stockAfter types.Quantity
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		var last *Product
		for attempt := 1; attempt <= s.maxAttempts; attempt++ {
			p, err := s.repo.GetByID(ctx, d.ProductID)
			if err != nil {
				if apperror.IsNotFound(err) {
					return apperror.NewNotFound("product", d.ProductID.String())
				}
				return fmt.Errorf("load product: %w", err)
			}
			last = p

			if !p.TrackInventory {
				stockAfter = p.CurrentStock
				return nil
			}

			newStock, err := p.CurrentStock.Add(d.Quantity)
			if err != nil {
				return apperror.NewValidation("stock delta out of range").WithDetail("product_id", p.ID.String())
			}
			if d.Quantity.IsNegative() && newStock.IsNegative() && !p.AllowBackorder && !d.IgnoreBackorderPolicy {
				return apperror.NewInsufficientStock(p.ID.String(), p.Name, d.Quantity.Neg(), p.CurrentStock)
			}

			ok, err := s.repo.CompareAndSetStock(ctx, p.ID, p.Version, newStock)
			if err != nil {
				return fmt.Errorf("set stock: %w", err)
			}
			if !ok {
				logger.Debug(ctx, "stock version conflict, retrying",
					"product_id", p.ID,
					"attempt", attempt,
				)
				continue
			}

			m := &StockMovement{
				ID:            id.New(),
				ProductID:     p.ID,
				Quantity:      d.Quantity,
				StockBefore:   p.CurrentStock,
				StockAfter:    newStock,
				Reason:        d.Reason,
				CorrelationID: d.CorrelationID,
				ActorID:       d.ActorID,
				Note:          d.Note,
				CreatedAt:     time.Now().UTC(),
			}
			if err := s.repo.AppendMovement(ctx, m); err != nil {
				return fmt.Errorf("append movement: %w", err)
			}
			stockAfter = newStock
			return nil
		}

		logger.Warn(ctx, "stock update retries exhausted",
			"product_id", d.ProductID,
			"attempts", s.maxAttempts,
		)
		return apperror.NewInsufficientStock(last.ID.String(), last.Name, d.Quantity.Neg(), last.CurrentStock).
			WithDetail("reason", "contention")
	})
	if err != nil {
		return 0, err
	}
	return stockAfter, nil
}

// Adjust applies a manual stock correction made by the actor in ctx.
func (s *Service) Adjust(ctx context.Context, productID id.ID, delta types.Quantity, note string) (types.Quantity, error) {
	actorID := appctx.GetUserID(ctx)
	stock, err := s.ApplyStockDelta(ctx, StockDelta{
		ProductID:     productID,
		Quantity:      delta,
		Reason:        ReasonAdjustment,
		CorrelationID: appctx.GetRequestID(ctx),
		ActorID:       actorID,
		Note:          note,
	})
	if err != nil {
		return 0, err
	}

	audit.Emit(ctx, s.audit, audit.Record{
		ActorID:    actorID,
		Action:     audit.ActionStockAdjusted,
		EntityType: "product",
		EntityID:   productID.String(),
		Severity:   audit.SeverityWarning,
		Details: map[string]any{
			"delta":       delta.String(),
			"stock_after": stock.String(),
			"note":        note,
		},
	})
	return stock, nil
}

// Movements returns the stock history of a product, newest first.
func (s *Service) Movements(ctx context.Context, productID id.ID, limit, offset int) ([]StockMovement, error) {
	if _, err := s.GetByID(ctx, productID); err != nil {
		return nil, err
	}
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	return s.repo.ListMovements(ctx, productID, limit, offset)
}
