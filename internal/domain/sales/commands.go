package sales

import (
	"fmt"

	"retailpos/internal/core/apperror"
	"retailpos/internal/core/id"
	"retailpos/internal/core/types"
)

// ItemInput is one requested line of a new sale.
type ItemInput struct {
	ProductID id.ID
	Quantity  types.Quantity
	// UnitPriceOverride replaces the product's effective price when set.
	UnitPriceOverride *types.Money
	Discount          Discount
}

// PaymentDetailInput is one tender supplied at creation or later.
type PaymentDetailInput struct {
	Method    PaymentMethod
	Amount    types.Money
	Reference string
}

// PaymentInput is the payment part of a create command.
// Method is used when no details are supplied (sale left pending).
type PaymentInput struct {
	Method  PaymentMethod
	Details []PaymentDetailInput
}

// CreateCommand creates a full sale.
type CreateCommand struct {
	Items      []ItemInput
	CustomerID *id.ID
	Payment    PaymentInput
	Metadata   Metadata
}

// QuickSaleCommand is a cash sale without customer linkage.
type QuickSaleCommand struct {
	Items         []ItemInput
	PaymentAmount types.Money
	Metadata      Metadata
}

// PaymentCommand records one more tender on an existing sale.
type PaymentCommand struct {
	SaleID    id.ID
	Method    PaymentMethod
	Amount    types.Money
	Reference string
}

// VoidCommand voids a sale.
type VoidCommand struct {
	SaleID id.ID
	Reason string
}

// RefundItemInput names a line either by index or by product.
type RefundItemInput struct {
	LineIndex *int
	ProductID id.ID
	Quantity  types.Quantity
}

// RefundCommand refunds part or all of a sale.
type RefundCommand struct {
	SaleID id.ID
	Items  []RefundItemInput
	Reason string
}

func validateItems(items []ItemInput) error {
	if len(items) == 0 {
		return apperror.NewValidation("sale must have at least one item").WithDetail("field", "items")
	}
	for i, item := range items {
		if id.IsNil(item.ProductID) {
			return apperror.NewValidation(fmt.Sprintf("item %d: productId is required", i)).WithDetail("item_index", i)
		}
		if !item.Quantity.IsPositive() {
			return apperror.NewValidation(fmt.Sprintf("item %d: quantity must be positive", i)).WithDetail("item_index", i)
		}
		if item.UnitPriceOverride != nil && item.UnitPriceOverride.IsNegative() {
			return apperror.NewValidation(fmt.Sprintf("item %d: unit price must not be negative", i)).WithDetail("item_index", i)
		}
	}
	return nil
}

func (p PaymentInput) validate() error {
	if len(p.Details) == 0 {
		if p.Method != "" && !p.Method.IsValid() {
			return apperror.NewValidation(fmt.Sprintf("unsupported payment method %q", p.Method)).WithDetail("field", "payment.method")
		}
		return nil
	}
	for i, d := range p.Details {
		if !d.Method.IsValid() {
			return apperror.NewValidation(fmt.Sprintf("payment %d: unsupported method %q", i, d.Method)).WithDetail("payment_index", i)
		}
		if !d.Amount.IsPositive() {
			return apperror.NewValidation(fmt.Sprintf("payment %d: amount must be positive", i)).WithDetail("payment_index", i)
		}
	}
	return nil
}

func (c RefundCommand) validate() error {
	if len(c.Items) == 0 {
		return apperror.NewValidation("refund must name at least one item").WithDetail("field", "items")
	}
	for i, item := range c.Items {
		if item.LineIndex == nil && id.IsNil(item.ProductID) {
			return apperror.NewValidation(fmt.Sprintf("refund item %d: lineIndex or productId is required", i)).WithDetail("item_index", i)
		}
		if !item.Quantity.IsPositive() {
			return apperror.NewValidation(fmt.Sprintf("refund item %d: quantity must be positive", i)).WithDetail("item_index", i)
		}
	}
	return nil
}

// resolveRefundLines maps product references to line indexes.
func (s *Sale) resolveRefundLines(items []RefundItemInput) ([]RefundRequest, error) {
	reqs := make([]RefundRequest, 0, len(items))
	for i, item := range items {
		if item.LineIndex != nil {
			reqs = append(reqs, RefundRequest{LineIndex: *item.LineIndex, Quantity: item.Quantity})
			continue
		}
		idx := -1
		for j := range s.Items {
			if s.Items[j].ProductID != item.ProductID {
				continue
			}
			if idx >= 0 {
				return nil, apperror.NewValidation(fmt.Sprintf("refund item %d: product appears on several lines, use lineIndex", i)).
					WithDetail("product_id", item.ProductID)
			}
			idx = j
		}
		if idx < 0 {
			return nil, apperror.NewValidation(fmt.Sprintf("refund item %d: product is not on this sale", i)).
				WithDetail("product_id", item.ProductID)
		}
		reqs = append(reqs, RefundRequest{LineIndex: idx, Quantity: item.Quantity})
	}
	return reqs, nil
}
