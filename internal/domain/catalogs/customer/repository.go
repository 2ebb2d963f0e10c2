package customer

import (
	"context"

	"retailpos/internal/core/id"
	"retailpos/internal/domain"
)

// Repository defines the interface for Customer persistence.
type Repository interface {
	domain.CatalogRepository[*Customer]

	// GetForUpdate retrieves a customer with a row lock held until the transaction ends.
	GetForUpdate(ctx context.Context, id id.ID) (*Customer, error)

	// SaveAccount writes Statistics and CreditBalance with optimistic locking
	// and increments c.Version on success.
	SaveAccount(ctx context.Context, c *Customer) error

	// AppendCreditTransaction adds a row to the store-credit ledger.
	AppendCreditTransaction(ctx context.Context, t *CreditTransaction) error

	// ListCreditTransactions returns ledger rows of a customer, newest first.
	ListCreditTransactions(ctx context.Context, customerID id.ID, limit int) ([]CreditTransaction, error)
}
