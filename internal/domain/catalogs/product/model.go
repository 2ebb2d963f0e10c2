// Package product provides the Product catalog and its inventory ledger.
// The ledger is the only writer of CurrentStock: every change goes through
// Service.ApplyStockDelta and leaves a StockMovement behind.
package product

import (
	"context"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"retailpos/internal/core/apperror"
	"retailpos/internal/core/entity"
	"retailpos/internal/core/id"
	"retailpos/internal/core/types"
)

// Product is a sellable item with its stock counter.
type Product struct {
	entity.BaseEntity

	SKU      string `db:"sku" json:"sku"`
	Name     string `db:"name" json:"name"`
	Category string `db:"category" json:"category,omitempty"`

	// Price is the base sale price before pricing rules.
	Price types.Money `db:"price" json:"price"`

	// TaxRate is a percentage applied to the discounted line amount (e.g. 16 for 16%).
	TaxRate decimal.Decimal `db:"tax_rate" json:"taxRate"`

	CurrentStock   types.Quantity `db:"current_stock" json:"currentStock"`
	TrackInventory bool           `db:"track_inventory" json:"trackInventory"`
	AllowBackorder bool           `db:"allow_backorder" json:"allowBackorder"`
	IsActive       bool           `db:"is_active" json:"isActive"`

	PricingRules PriceRules `db:"pricing_rules" json:"pricingRules,omitempty"`
}

// NewProduct creates an active, inventory-tracked product.
func NewProduct(sku, name string, price types.Money) *Product {
	return &Product{
		BaseEntity:     entity.NewBaseEntity(),
		SKU:            strings.ToUpper(strings.TrimSpace(sku)),
		Name:           strings.TrimSpace(name),
		Price:          price,
		TaxRate:        decimal.Zero,
		TrackInventory: true,
		IsActive:       true,
	}
}

// Validate implements entity.Validatable.
func (p *Product) Validate(_ context.Context) error {
	if strings.TrimSpace(p.SKU) == "" {
		return apperror.NewValidation("sku is required").WithDetail("field", "sku")
	}
	if strings.TrimSpace(p.Name) == "" {
		return apperror.NewValidation("name is required").WithDetail("field", "name")
	}
	if p.Price.IsNegative() {
		return apperror.NewValidation("price must not be negative").WithDetail("field", "price")
	}
	if p.TaxRate.IsNegative() || p.TaxRate.GreaterThan(decimal.NewFromInt(100)) {
		return apperror.NewValidation("tax rate must be between 0 and 100").WithDetail("field", "taxRate")
	}
	for i, rule := range p.PricingRules {
		if err := rule.validate(); err != nil {
			return err.WithDetail("rule_index", i)
		}
	}
	return nil
}

// CanFulfil reports whether qty can be sold under the backorder policy.
func (p *Product) CanFulfil(qty types.Quantity) bool {
	if !p.TrackInventory || p.AllowBackorder {
		return true
	}
	return p.CurrentStock >= qty
}

// MovementReason tags a stock movement with why it happened.
type MovementReason string

const (
	ReasonSale           MovementReason = "sale"
	ReasonVoid           MovementReason = "void"
	ReasonRefund         MovementReason = "refund"
	ReasonAdjustment     MovementReason = "adjustment"
	ReasonReconciliation MovementReason = "reconciliation"
)

// IsValid reports whether r is a known reason.
func (r MovementReason) IsValid() bool {
	switch r {
	case ReasonSale, ReasonVoid, ReasonRefund, ReasonAdjustment, ReasonReconciliation:
		return true
	}
	return false
}

// StockDelta is a request to change a product's stock.
type StockDelta struct {
	ProductID id.ID
	// Quantity is signed: negative decrements stock.
	Quantity      types.Quantity
	Reason        MovementReason
	CorrelationID string
	ActorID       string
	Note          string
	// IgnoreBackorderPolicy lets reconciliation record stock that has physically left already.
	IgnoreBackorderPolicy bool
}

// StockMovement is one row of the inventory ledger history.
type StockMovement struct {
	ID            id.ID          `db:"id" json:"id"`
	ProductID     id.ID          `db:"product_id" json:"productId"`
	Quantity      types.Quantity `db:"quantity" json:"quantity"`
	StockBefore   types.Quantity `db:"stock_before" json:"stockBefore"`
	StockAfter    types.Quantity `db:"stock_after" json:"stockAfter"`
	Reason        MovementReason `db:"reason" json:"reason"`
	CorrelationID string         `db:"correlation_id" json:"correlationId,omitempty"`
	ActorID       string         `db:"actor_id" json:"actorId,omitempty"`
	Note          string         `db:"note" json:"note,omitempty"`
	CreatedAt     time.Time      `db:"created_at" json:"createdAt"`
}
