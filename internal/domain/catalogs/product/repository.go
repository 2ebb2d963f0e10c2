package product

import (
	"context"

	"retailpos/internal/core/id"
	"retailpos/internal/core/types"
	"retailpos/internal/domain"
)

// Repository defines the interface for Product persistence.
//
// Update never writes CurrentStock; stock changes only through CompareAndSetStock.
type Repository interface {
	domain.CatalogRepository[*Product]

	// GetBySKU retrieves a product by its unique SKU.
	GetBySKU(ctx context.Context, sku string) (*Product, error)

	// CompareAndSetStock writes newStock and bumps the version if the stored
	// version still equals expectedVersion. Returns false on a version conflict.
	CompareAndSetStock(ctx context.Context, productID id.ID, expectedVersion int, newStock types.Quantity) (bool, error)

	// AppendMovement adds a row to the stock movement history.
	AppendMovement(ctx context.Context, m *StockMovement) error

	// ListMovements returns movements of a product, newest first.
	ListMovements(ctx context.Context, productID id.ID, limit, offset int) ([]StockMovement, error)
}
