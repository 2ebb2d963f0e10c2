package catalog_repo

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Masterminds/squirrel"

	"retailpos/internal/core/apperror"
	"retailpos/internal/core/id"
	"retailpos/internal/core/types"
	"retailpos/internal/domain/catalogs/product"
	"retailpos/internal/infrastructure/storage/postgres"
	"retailpos/internal/infrastructure/storage/postgres/register_repo"
)

const (
	productTable         = "products"
	productSKUConstraint = "products_sku_key"
)

// ProductRepo implements product.Repository.
type ProductRepo struct {
	*BaseCatalogRepo[*product.Product]
	stock *register_repo.StockRepo
}

var _ product.Repository = (*ProductRepo)(nil)

// NewProductRepo creates a new product repository.
func NewProductRepo(txManager *postgres.TxManager) *ProductRepo {
	return &ProductRepo{
		BaseCatalogRepo: NewBaseCatalogRepo(txManager, CatalogConfig{
			Table:         productTable,
			Entity:        "product",
			SelectCols:    postgres.ExtractDBColumns[product.Product](),
			SearchCols:    []string{"name", "sku", "category"},
			ProtectedCols: []string{"current_stock"},
		}, func() *product.Product { return new(product.Product) }),
		stock: register_repo.NewStockRepo(txManager),
	}
}

// Create inserts a product and maps the SKU constraint to a Duplicate error.
func (r *ProductRepo) Create(ctx context.Context, p *product.Product) error {
	if err := r.BaseCatalogRepo.Create(ctx, p); err != nil {
		if postgres.IsUniqueViolation(err, productSKUConstraint) {
			return apperror.NewDuplicate("product", "sku", p.SKU)
		}
		return err
	}
	return nil
}

// Update writes catalog fields; current_stock is owned by the ledger.
func (r *ProductRepo) Update(ctx context.Context, p *product.Product) error {
	if err := r.BaseCatalogRepo.Update(ctx, p); err != nil {
		if postgres.IsUniqueViolation(err, productSKUConstraint) {
			return apperror.NewDuplicate("product", "sku", p.SKU)
		}
		return err
	}
	return nil
}

// GetBySKU retrieves a product by its unique SKU.
func (r *ProductRepo) GetBySKU(ctx context.Context, sku string) (*product.Product, error) {
	sku = strings.ToUpper(strings.TrimSpace(sku))
	return r.FindOne(ctx, r.baseSelect().Where(squirrel.Eq{"sku": sku}).Limit(1), sku)
}

// CompareAndSetStock implements product.Repository.
func (r *ProductRepo) CompareAndSetStock(ctx context.Context, productID id.ID, expectedVersion int, newStock types.Quantity) (bool, error) {
	sql, args, err := r.Builder().
		Update(productTable).
		Set("current_stock", newStock).
		Set("version", squirrel.Expr("version + 1")).
		Set("updated_at", time.Now().UTC()).
		Where(squirrel.Eq{"id": productID}).
		Where(squirrel.Eq{"version": expectedVersion}).
		ToSql()
	if err != nil {
		return false, fmt.Errorf("build stock update: %w", err)
	}

	tag, err := r.querier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return false, fmt.Errorf("update stock: %w", err)
	}
	if tag.RowsAffected() == 1 {
		return true, nil
	}

	// Zero rows is either a stale version or a missing product.
	if _, err := r.GetByID(ctx, productID); err != nil {
		return false, err
	}
	return false, nil
}

// AppendMovement implements product.Repository.
func (r *ProductRepo) AppendMovement(ctx context.Context, m *product.StockMovement) error {
	return r.stock.CreateMovements(ctx, []product.StockMovement{*m})
}

// ListMovements implements product.Repository.
func (r *ProductRepo) ListMovements(ctx context.Context, productID id.ID, limit, offset int) ([]product.StockMovement, error) {
	return r.stock.ListByProduct(ctx, productID, limit, offset)
}
