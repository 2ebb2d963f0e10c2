package sales

import (
	"context"
	"time"

	"retailpos/internal/core/id"
	"retailpos/internal/domain"
)

// ListFilter narrows a sale listing.
type ListFilter struct {
	From            *time.Time
	To              *time.Time
	Statuses        []Status
	SellerID        string
	CustomerID      *id.ID
	ReceiptContains string

	Limit  int
	Offset int
}

// Normalize clamps pagination to sane bounds.
func (f *ListFilter) Normalize() {
	if f.Limit <= 0 || f.Limit > 500 {
		f.Limit = 50
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
}

// Repository defines the interface for Sale persistence.
type Repository interface {
	// Create inserts a sale with its line items.
	Create(ctx context.Context, sale *Sale) error

	// Update writes status, payment, void/refund info and line bookkeeping.
	// Fails with ConcurrentModification when sale.Version is stale; bumps sale.Version on success.
	Update(ctx context.Context, sale *Sale) error

	GetByID(ctx context.Context, id id.ID) (*Sale, error)
	GetByReceipt(ctx context.Context, receiptNumber string) (*Sale, error)

	// List returns sales newest first.
	List(ctx context.Context, filter ListFilter) (domain.ListResult[*Sale], error)

	// ListPendingInventory returns sales whose inventory sync is pending, oldest first.
	ListPendingInventory(ctx context.Context, limit int) ([]*Sale, error)
}
