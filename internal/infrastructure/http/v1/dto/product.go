package dto

import (
	"github.com/shopspring/decimal"

	"retailpos/internal/core/types"
	"retailpos/internal/domain/catalogs/product"
)

// --- Request DTOs ---

// CreateProductRequest is the request body for creating a product.
type CreateProductRequest struct {
	SKU            string             `json:"sku" binding:"required"`
	Name           string             `json:"name" binding:"required"`
	Category       string             `json:"category"`
	Price          types.Money        `json:"price"`
	TaxRate        decimal.Decimal    `json:"taxRate"`
	InitialStock   types.Quantity     `json:"initialStock"`
	TrackInventory *bool              `json:"trackInventory"`
	AllowBackorder bool               `json:"allowBackorder"`
	PricingRules   product.PriceRules `json:"pricingRules"`
}

// ToEntity converts DTO to domain entity.
func (r CreateProductRequest) ToEntity() *product.Product {
	p := product.NewProduct(r.SKU, r.Name, r.Price)
	p.Category = r.Category
	p.TaxRate = r.TaxRate
	p.CurrentStock = r.InitialStock
	if r.TrackInventory != nil {
		p.TrackInventory = *r.TrackInventory
	}
	p.AllowBackorder = r.AllowBackorder
	p.PricingRules = r.PricingRules
	return p
}

// UpdateProductRequest is the request body for updating a product.
// Stock is never written here; it moves through the ledger only.
type UpdateProductRequest struct {
	Name           string             `json:"name" binding:"required"`
	Category       string             `json:"category"`
	Price          types.Money        `json:"price"`
	TaxRate        decimal.Decimal    `json:"taxRate"`
	TrackInventory bool               `json:"trackInventory"`
	AllowBackorder bool               `json:"allowBackorder"`
	IsActive       bool               `json:"isActive"`
	PricingRules   product.PriceRules `json:"pricingRules"`
	Version        int                `json:"version" binding:"required,min=1"`
}

// ApplyTo copies the editable fields onto existing.
func (r UpdateProductRequest) ApplyTo(existing *product.Product) *product.Product {
	existing.Name = r.Name
	existing.Category = r.Category
	existing.Price = r.Price
	existing.TaxRate = r.TaxRate
	existing.TrackInventory = r.TrackInventory
	existing.AllowBackorder = r.AllowBackorder
	existing.IsActive = r.IsActive
	existing.PricingRules = r.PricingRules
	existing.Version = r.Version
	return existing
}

// StockAdjustmentRequest is a manual stock correction.
type StockAdjustmentRequest struct {
	Delta  types.Quantity `json:"delta"`
	Reason string         `json:"reason" binding:"required"`
}

// --- Response DTOs ---

// ProductResponse is the API view of a product.
type ProductResponse struct {
	BaseResponse
	SKU            string             `json:"sku"`
	Name           string             `json:"name"`
	Category       string             `json:"category,omitempty"`
	Price          types.Money        `json:"price"`
	TaxRate        decimal.Decimal    `json:"taxRate"`
	CurrentStock   types.Quantity     `json:"currentStock"`
	TrackInventory bool               `json:"trackInventory"`
	AllowBackorder bool               `json:"allowBackorder"`
	IsActive       bool               `json:"isActive"`
	PricingRules   product.PriceRules `json:"pricingRules,omitempty"`
}

// FromProduct creates ProductResponse from the domain entity.
func FromProduct(p *product.Product) ProductResponse {
	return ProductResponse{
		BaseResponse:   FromBase(p.BaseEntity),
		SKU:            p.SKU,
		Name:           p.Name,
		Category:       p.Category,
		Price:          p.Price,
		TaxRate:        p.TaxRate,
		CurrentStock:   p.CurrentStock,
		TrackInventory: p.TrackInventory,
		AllowBackorder: p.AllowBackorder,
		IsActive:       p.IsActive,
		PricingRules:   p.PricingRules,
	}
}

// StockAdjustmentResponse reports the stock after an adjustment.
type StockAdjustmentResponse struct {
	ProductID    string         `json:"productId"`
	Delta        types.Quantity `json:"delta"`
	CurrentStock types.Quantity `json:"currentStock"`
}
