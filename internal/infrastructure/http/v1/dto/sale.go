package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"retailpos/internal/core/apperror"
	"retailpos/internal/core/id"
	"retailpos/internal/core/types"
	"retailpos/internal/domain/sales"
)

func invalidID(field string) error {
	return apperror.NewValidation("invalid id format").WithDetail("field", field)
}

// --- Request DTOs ---

// SaleItemRequest is one requested line.
type SaleItemRequest struct {
	ProductID string         `json:"productId" binding:"required"`
	Quantity  types.Quantity `json:"quantity"`
	// UnitPrice overrides the product price (manager discounts at the till).
	UnitPrice          *types.Money    `json:"unitPrice"`
	DiscountAmount     types.Money     `json:"discountAmount"`
	DiscountPercentage decimal.Decimal `json:"discountPercentage"`
}

// PaymentDetailRequest is one tender.
type PaymentDetailRequest struct {
	Method    sales.PaymentMethod `json:"method" binding:"required"`
	Amount    types.Money         `json:"amount"`
	Reference string              `json:"reference"`
}

// PaymentRequest is the payment part of a new sale.
type PaymentRequest struct {
	Method  sales.PaymentMethod    `json:"method"`
	Details []PaymentDetailRequest `json:"details"`
}

// SaleMetadataRequest describes where the sale was rung up.
type SaleMetadataRequest struct {
	Source   string `json:"source"`
	DeviceID string `json:"deviceId"`
	Notes    string `json:"notes"`
}

func (m SaleMetadataRequest) toDomain() sales.Metadata {
	return sales.Metadata{Source: m.Source, DeviceID: m.DeviceID, Notes: m.Notes}
}

// CreateSaleRequest is the request body for POST /sales.
type CreateSaleRequest struct {
	Items      []SaleItemRequest   `json:"items" binding:"required"`
	CustomerID *string             `json:"customerId"`
	Payment    PaymentRequest      `json:"payment"`
	Metadata   SaleMetadataRequest `json:"metadata"`
}

func toItemInputs(items []SaleItemRequest) ([]sales.ItemInput, error) {
	out := make([]sales.ItemInput, 0, len(items))
	for _, it := range items {
		productID, err := id.Parse(it.ProductID)
		if err != nil {
			return nil, invalidID("productId")
		}
		out = append(out, sales.ItemInput{
			ProductID:         productID,
			Quantity:          it.Quantity,
			UnitPriceOverride: it.UnitPrice,
			Discount: sales.Discount{
				Amount:     it.DiscountAmount,
				Percentage: it.DiscountPercentage,
			},
		})
	}
	return out, nil
}

// ToCommand converts DTO to the engine command.
func (r *CreateSaleRequest) ToCommand() (sales.CreateCommand, error) {
	items, err := toItemInputs(r.Items)
	if err != nil {
		return sales.CreateCommand{}, err
	}
	customerID, err := parseOptionalID(r.CustomerID, "customerId")
	if err != nil {
		return sales.CreateCommand{}, err
	}

	details := make([]sales.PaymentDetailInput, 0, len(r.Payment.Details))
	for _, d := range r.Payment.Details {
		details = append(details, sales.PaymentDetailInput{
			Method:    d.Method,
			Amount:    d.Amount,
			Reference: d.Reference,
		})
	}

	return sales.CreateCommand{
		Items:      items,
		CustomerID: customerID,
		Payment:    sales.PaymentInput{Method: r.Payment.Method, Details: details},
		Metadata:   r.Metadata.toDomain(),
	}, nil
}

// QuickSaleRequest is the request body for POST /sales/quick.
type QuickSaleRequest struct {
	Items         []SaleItemRequest   `json:"items" binding:"required"`
	PaymentAmount types.Money         `json:"paymentAmount"`
	Metadata      SaleMetadataRequest `json:"metadata"`
}

// ToCommand converts DTO to the engine command.
func (r *QuickSaleRequest) ToCommand() (sales.QuickSaleCommand, error) {
	items, err := toItemInputs(r.Items)
	if err != nil {
		return sales.QuickSaleCommand{}, err
	}
	return sales.QuickSaleCommand{
		Items:         items,
		PaymentAmount: r.PaymentAmount,
		Metadata:      r.Metadata.toDomain(),
	}, nil
}

// RecordPaymentRequest is the request body for POST /sales/:id/payments.
type RecordPaymentRequest struct {
	Method    sales.PaymentMethod `json:"method" binding:"required"`
	Amount    types.Money         `json:"amount"`
	Reference string              `json:"reference"`
}

// ToCommand converts DTO to the engine command.
func (r *RecordPaymentRequest) ToCommand(saleID id.ID) sales.PaymentCommand {
	return sales.PaymentCommand{
		SaleID:    saleID,
		Method:    r.Method,
		Amount:    r.Amount,
		Reference: r.Reference,
	}
}

// VoidSaleRequest is the request body for POST /sales/:id/void.
type VoidSaleRequest struct {
	Reason string `json:"reason" binding:"required"`
}

// RefundItemRequest names a line by index or by product.
type RefundItemRequest struct {
	LineIndex *int           `json:"lineIndex"`
	ProductID *string        `json:"productId"`
	Quantity  types.Quantity `json:"quantity"`
}

// RefundRequest is the request body for POST /sales/:id/refunds.
type RefundRequest struct {
	Items  []RefundItemRequest `json:"items" binding:"required"`
	Reason string              `json:"reason" binding:"required"`
}

// ToCommand converts DTO to the engine command.
func (r *RefundRequest) ToCommand(saleID id.ID) (sales.RefundCommand, error) {
	items := make([]sales.RefundItemInput, 0, len(r.Items))
	for _, it := range r.Items {
		in := sales.RefundItemInput{LineIndex: it.LineIndex, Quantity: it.Quantity}
		productID, err := parseOptionalID(it.ProductID, "productId")
		if err != nil {
			return sales.RefundCommand{}, err
		}
		if productID != nil {
			in.ProductID = *productID
		}
		items = append(items, in)
	}
	return sales.RefundCommand{SaleID: saleID, Items: items, Reason: r.Reason}, nil
}

// SaleListQuery holds the query parameters of GET /sales.
type SaleListQuery struct {
	From            string   `form:"from"`
	To              string   `form:"to"`
	Status          []string `form:"status"`
	SellerID        string   `form:"sellerId"`
	CustomerID      *string  `form:"customerId"`
	ReceiptContains string   `form:"receipt"`
	Limit           int      `form:"limit"`
	Offset          int      `form:"offset"`
}

// ToFilter converts query parameters to a sale filter.
func (q *SaleListQuery) ToFilter() (sales.ListFilter, error) {
	customerID, err := parseOptionalID(q.CustomerID, "customerId")
	if err != nil {
		return sales.ListFilter{}, err
	}
	from, err := parseOptionalTime(q.From, "from")
	if err != nil {
		return sales.ListFilter{}, err
	}
	to, err := parseOptionalTime(q.To, "to")
	if err != nil {
		return sales.ListFilter{}, err
	}
	statuses := make([]sales.Status, 0, len(q.Status))
	for _, s := range q.Status {
		st := sales.Status(s)
		if !st.IsValid() {
			return sales.ListFilter{}, apperror.NewValidation("unknown sale status").WithDetail("status", s)
		}
		statuses = append(statuses, st)
	}
	return sales.ListFilter{
		From:            from,
		To:              to,
		Statuses:        statuses,
		SellerID:        q.SellerID,
		CustomerID:      customerID,
		ReceiptContains: q.ReceiptContains,
		Limit:           q.Limit,
		Offset:          q.Offset,
	}, nil
}

// --- Response DTOs ---

// SaleSummaryResponse is one row of a sale listing.
type SaleSummaryResponse struct {
	ID            string              `json:"id"`
	ReceiptNumber string              `json:"receiptNumber"`
	Status        sales.Status        `json:"status"`
	PaymentStatus sales.PaymentStatus `json:"paymentStatus"`
	Method        sales.PaymentMethod `json:"paymentMethod"`
	Total         types.Money         `json:"total"`
	NetTotal      types.Money         `json:"netTotal"`
	ItemCount     int                 `json:"itemCount"`
	CustomerID    *id.ID              `json:"customerId,omitempty"`
	SellerID      string              `json:"sellerId"`
	CreatedAt     time.Time           `json:"createdAt"`
}

// FromSaleSummary creates the listing row of s.
func FromSaleSummary(s *sales.Sale) SaleSummaryResponse {
	return SaleSummaryResponse{
		ID:            s.ID.String(),
		ReceiptNumber: s.ReceiptNumber,
		Status:        s.Status,
		PaymentStatus: s.Payment.Status,
		Method:        s.Payment.Method,
		Total:         s.Totals.Total,
		NetTotal:      s.NetTotal(),
		ItemCount:     s.ItemCount(),
		CustomerID:    s.CustomerID,
		SellerID:      s.SellerID,
		CreatedAt:     s.CreatedAt,
	}
}

// RefundResponse returns the refunded sale with the refund just recorded.
type RefundResponse struct {
	Sale   *sales.Sale         `json:"sale"`
	Refund *sales.RefundRecord `json:"refund"`
}
