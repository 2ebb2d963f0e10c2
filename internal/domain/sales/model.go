// Package sales implements the Sale aggregate and the workflow engine that
// keeps it consistent with the inventory ledger and customer statistics.
package sales

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"retailpos/internal/core/apperror"
	"retailpos/internal/core/entity"
	"retailpos/internal/core/id"
	"retailpos/internal/core/types"
)

// PaymentMethod is how a payment detail was tendered.
type PaymentMethod string

const (
	MethodCash        PaymentMethod = "cash"
	MethodCard        PaymentMethod = "card"
	MethodTransfer    PaymentMethod = "transfer"
	MethodStoreCredit PaymentMethod = "store_credit"
	// MethodMixed is only derived, never accepted as input.
	MethodMixed PaymentMethod = "mixed"
)

// IsValid reports whether m may be used on a payment detail.
func (m PaymentMethod) IsValid() bool {
	switch m {
	case MethodCash, MethodCard, MethodTransfer, MethodStoreCredit:
		return true
	}
	return false
}

// Sale is the transaction record.
type Sale struct {
	entity.BaseEntity

	ReceiptNumber string      `db:"receipt_number" json:"receiptNumber"`
	Items         []LineItem  `db:"-" json:"items"`
	CustomerID    *id.ID      `db:"customer_id" json:"customerId,omitempty"`
	Payment       Payment     `db:"payment" json:"payment"`
	Totals        Totals      `db:"totals" json:"totals"`
	Status        Status      `db:"status" json:"status"`
	VoidInfo      *VoidInfo   `db:"void_info" json:"voidInfo,omitempty"`
	RefundInfo    *RefundInfo `db:"refund_info" json:"refundInfo,omitempty"`
	SellerID      string      `db:"seller_id" json:"sellerId"`
	Metadata      Metadata    `db:"metadata" json:"metadata"`

	InventorySync InventorySync `db:"inventory_sync" json:"inventorySync"`
}

// LineItem is one product/quantity/price entry. Name and price are snapshots
// taken when the sale was made.
type LineItem struct {
	ProductID      id.ID          `json:"productId"`
	ProductName    string         `json:"productName"`
	SKU            string         `json:"sku,omitempty"`
	Quantity       types.Quantity `json:"quantity"`
	UnitPrice      types.Money    `json:"unitPrice"`
	Discount       Discount       `json:"discount"`
	Tax            Tax            `json:"tax"`
	Subtotal       types.Money    `json:"subtotal"`
	Total          types.Money    `json:"total"`
	TrackInventory bool           `json:"trackInventory"`
	// StockApplied is false while the line's stock movement awaits reconciliation.
	StockApplied bool `json:"stockApplied"`

	RefundedQuantity types.Quantity `json:"refundedQuantity"`
	RefundedAmount   types.Money    `json:"refundedAmount"`
}

// Discount of a line. Percentage, when set, determines Amount.
type Discount struct {
	Amount     types.Money     `json:"amount"`
	Percentage decimal.Decimal `json:"percentage"`
}

// Tax of a line. Rate is a percentage of the discounted subtotal.
type Tax struct {
	Rate   decimal.Decimal `json:"rate"`
	Amount types.Money     `json:"amount"`
}

// RemainingQuantity is what may still be refunded on the line.
func (l *LineItem) RemainingQuantity() types.Quantity {
	return l.Quantity - l.RefundedQuantity
}

// Totals are derived from the line items and never set from input.
type Totals struct {
	Subtotal types.Money `json:"subtotal"`
	Discount types.Money `json:"discount"`
	Tax      types.Money `json:"tax"`
	Total    types.Money `json:"total"`
}

// Payment is the collected-money state of a sale.
type Payment struct {
	Method    PaymentMethod   `json:"method"`
	Status    PaymentStatus   `json:"status"`
	TotalPaid types.Money     `json:"totalPaid"`
	Change    types.Money     `json:"change"`
	Details   []PaymentDetail `json:"details"`
}

// PaymentDetail is one tender.
type PaymentDetail struct {
	Method    PaymentMethod `json:"method"`
	Amount    types.Money   `json:"amount"`
	Reference string        `json:"reference,omitempty"`
	PaidAt    time.Time     `json:"paidAt"`
}

// VoidInfo is set when the sale is voided.
type VoidInfo struct {
	VoidedBy string    `json:"voidedBy"`
	VoidedAt time.Time `json:"voidedAt"`
	Reason   string    `json:"reason"`
}

// RefundInfo accumulates every refund of the sale.
type RefundInfo struct {
	TotalRefunded types.Money    `json:"totalRefunded"`
	Refunds       []RefundRecord `json:"refunds"`
}

// RefundRecord is one refund operation.
type RefundRecord struct {
	ID         id.ID        `json:"id"`
	RefundedBy string       `json:"refundedBy"`
	RefundedAt time.Time    `json:"refundedAt"`
	Reason     string       `json:"reason"`
	Amount     types.Money  `json:"amount"`
	Lines      []RefundLine `json:"lines"`
}

// RefundLine is the refunded part of one line item.
type RefundLine struct {
	LineIndex int            `json:"lineIndex"`
	ProductID id.ID          `json:"productId"`
	Quantity  types.Quantity `json:"quantity"`
	Amount    types.Money    `json:"amount"`
}

// Metadata records where the sale came from.
type Metadata struct {
	Source   string `json:"source,omitempty"`
	DeviceID string `json:"deviceId,omitempty"`
	Notes    string `json:"notes,omitempty"`
}

// Sale sources.
const (
	SourcePOS   = "pos"
	SourceQuick = "quick"
	SourceAPI   = "api"
)

// Validate implements entity.Validatable by checking the aggregate invariants.
func (s *Sale) Validate(_ context.Context) error {
	if len(s.Items) == 0 {
		return apperror.NewValidation("sale must have at least one item").WithDetail("field", "items")
	}
	if !s.Status.IsValid() {
		return apperror.NewValidation("unknown sale status").WithDetail("status", s.Status)
	}
	if !s.Totals.Total.Equal(s.Totals.Subtotal.Sub(s.Totals.Discount).Add(s.Totals.Tax)) {
		return apperror.NewValidation("sale totals are inconsistent")
	}
	if s.Payment.TotalPaid.IsNegative() {
		return apperror.NewValidation("total paid must not be negative")
	}
	return nil
}

// TotalRefunded is zero until the first refund.
func (s *Sale) TotalRefunded() types.Money {
	if s.RefundInfo == nil {
		return types.Zero()
	}
	return s.RefundInfo.TotalRefunded
}

// HasRefunds reports whether any refund was recorded.
func (s *Sale) HasRefunds() bool {
	return s.RefundInfo != nil && len(s.RefundInfo.Refunds) > 0
}

// NetTotal is the total after refunds. Reports use it as revenue.
func (s *Sale) NetTotal() types.Money {
	return s.Totals.Total.Sub(s.TotalRefunded())
}

// ItemCount is the number of line items.
func (s *Sale) ItemCount() int {
	return len(s.Items)
}

func (s *Sale) refreshInventorySync() {
	for i := range s.Items {
		if s.Items[i].TrackInventory && !s.Items[i].StockApplied {
			s.InventorySync = InventoryPending
			return
		}
	}
	s.InventorySync = InventorySynced
}
