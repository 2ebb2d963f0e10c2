// Package document_repo provides the PostgreSQL sale repository.
package document_repo

import (
	"context"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/shopspring/decimal"

	"retailpos/internal/core/apperror"
	"retailpos/internal/core/id"
	"retailpos/internal/core/types"
	"retailpos/internal/domain"
	"retailpos/internal/domain/sales"
	"retailpos/internal/infrastructure/storage/postgres"
)

const (
	salesTable              = "sales"
	saleItemsTable          = "sale_items"
	receiptNumberConstraint = "sales_receipt_number_key"
)

var saleColumns = []string{
	"id", "version", "created_at", "updated_at",
	"receipt_number", "customer_id", "payment", "totals", "status",
	"void_info", "refund_info", "seller_id", "metadata", "inventory_sync",
}

var saleItemColumns = []string{
	"sale_id", "line_index", "product_id", "product_name", "sku",
	"quantity", "unit_price", "discount_amount", "discount_percentage",
	"tax_rate", "tax_amount", "subtotal", "total",
	"track_inventory", "stock_applied", "refunded_quantity", "refunded_amount",
}

// saleItemRow is the flat sale_items representation of a LineItem.
type saleItemRow struct {
	SaleID             id.ID           `db:"sale_id"`
	LineIndex          int             `db:"line_index"`
	ProductID          id.ID           `db:"product_id"`
	ProductName        string          `db:"product_name"`
	SKU                string          `db:"sku"`
	Quantity           types.Quantity  `db:"quantity"`
	UnitPrice          types.Money     `db:"unit_price"`
	DiscountAmount     types.Money     `db:"discount_amount"`
	DiscountPercentage decimal.Decimal `db:"discount_percentage"`
	TaxRate            decimal.Decimal `db:"tax_rate"`
	TaxAmount          types.Money     `db:"tax_amount"`
	Subtotal           types.Money     `db:"subtotal"`
	Total              types.Money     `db:"total"`
	TrackInventory     bool            `db:"track_inventory"`
	StockApplied       bool            `db:"stock_applied"`
	RefundedQuantity   types.Quantity  `db:"refunded_quantity"`
	RefundedAmount     types.Money     `db:"refunded_amount"`
}

func (r saleItemRow) lineItem() sales.LineItem {
	return sales.LineItem{
		ProductID:        r.ProductID,
		ProductName:      r.ProductName,
		SKU:              r.SKU,
		Quantity:         r.Quantity,
		UnitPrice:        r.UnitPrice,
		Discount:         sales.Discount{Amount: r.DiscountAmount, Percentage: r.DiscountPercentage},
		Tax:              sales.Tax{Rate: r.TaxRate, Amount: r.TaxAmount},
		Subtotal:         r.Subtotal,
		Total:            r.Total,
		TrackInventory:   r.TrackInventory,
		StockApplied:     r.StockApplied,
		RefundedQuantity: r.RefundedQuantity,
		RefundedAmount:   r.RefundedAmount,
	}
}

// SaleRepo implements sales.Repository.
type SaleRepo struct {
	txManager *postgres.TxManager
	batch     *postgres.BatchExecutor
}

var _ sales.Repository = (*SaleRepo)(nil)

// NewSaleRepo creates a new sale repository.
func NewSaleRepo(txManager *postgres.TxManager) *SaleRepo {
	return &SaleRepo{
		txManager: txManager,
		batch:     postgres.NewBatchExecutor(txManager),
	}
}

// Builder returns a new squirrel builder.
func (r *SaleRepo) Builder() squirrel.StatementBuilderType {
	return squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
}

func (r *SaleRepo) querier(ctx context.Context) postgres.Querier {
	return r.txManager.GetQuerier(ctx)
}

// Create inserts the sale header and its lines.
func (r *SaleRepo) Create(ctx context.Context, s *sales.Sale) error {
	return r.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		sql, args, err := r.Builder().
			Insert(salesTable).
			Columns(saleColumns...).
			Values(
				s.ID, s.Version, s.CreatedAt, s.UpdatedAt,
				s.ReceiptNumber, s.CustomerID, s.Payment, s.Totals, s.Status,
				s.VoidInfo, s.RefundInfo, s.SellerID, s.Metadata, s.InventorySync,
			).
			ToSql()
		if err != nil {
			return fmt.Errorf("build insert: %w", err)
		}

		if _, err := r.querier(ctx).Exec(ctx, sql, args...); err != nil {
			if postgres.IsUniqueViolation(err, receiptNumberConstraint) {
				return apperror.NewDuplicate("sale", "receipt_number", s.ReceiptNumber)
			}
			return fmt.Errorf("insert sale: %w", err)
		}

		return r.insertItems(ctx, s)
	})
}

func (r *SaleRepo) insertItems(ctx context.Context, s *sales.Sale) error {
	q := r.Builder().Insert(saleItemsTable).Columns(saleItemColumns...)
	for i := range s.Items {
		l := &s.Items[i]
		q = q.Values(
			s.ID, i, l.ProductID, l.ProductName, l.SKU,
			l.Quantity, l.UnitPrice, l.Discount.Amount, l.Discount.Percentage,
			l.Tax.Rate, l.Tax.Amount, l.Subtotal, l.Total,
			l.TrackInventory, l.StockApplied, l.RefundedQuantity, l.RefundedAmount,
		)
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert items: %w", err)
	}
	if _, err := r.querier(ctx).Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert items: %w", err)
	}
	return nil
}

// Update writes the mutable part of the sale with optimistic locking.
// Line identity never changes after creation; only the per-line bookkeeping is rewritten.
func (r *SaleRepo) Update(ctx context.Context, s *sales.Sale) error {
	now := time.Now().UTC()
	return r.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		sql, args, err := r.Builder().
			Update(salesTable).
			Set("payment", s.Payment).
			Set("customer_id", s.CustomerID).
			Set("status", s.Status).
			Set("void_info", s.VoidInfo).
			Set("refund_info", s.RefundInfo).
			Set("metadata", s.Metadata).
			Set("inventory_sync", s.InventorySync).
			Set("version", squirrel.Expr("version + 1")).
			Set("updated_at", now).
			Where(squirrel.Eq{"id": s.ID}).
			Where(squirrel.Eq{"version": s.Version}).
			ToSql()
		if err != nil {
			return fmt.Errorf("build update: %w", err)
		}

		tag, err := r.querier(ctx).Exec(ctx, sql, args...)
		if err != nil {
			return fmt.Errorf("update sale: %w", err)
		}
		if tag.RowsAffected() == 0 {
			if _, err := r.GetByID(ctx, s.ID); err != nil {
				return err
			}
			return apperror.NewConcurrentModification("sale", s.ID)
		}

		queries := make([]postgres.BatchQuery, 0, len(s.Items))
		for i := range s.Items {
			l := &s.Items[i]
			queries = append(queries, postgres.BatchQuery{
				SQL: `UPDATE sale_items
				      SET stock_applied = $1, refunded_quantity = $2, refunded_amount = $3
				      WHERE sale_id = $4 AND line_index = $5`,
				Args: []any{l.StockApplied, l.RefundedQuantity, l.RefundedAmount, s.ID, i},
			})
		}
		if err := r.batch.ExecuteBatch(ctx, queries); err != nil {
			return fmt.Errorf("update items: %w", err)
		}

		s.Touch(now)
		return nil
	})
}

func (r *SaleRepo) baseSelect() squirrel.SelectBuilder {
	return r.Builder().Select(saleColumns...).From(salesTable)
}

func (r *SaleRepo) getOne(ctx context.Context, q squirrel.SelectBuilder, key string) (*sales.Sale, error) {
	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	s := new(sales.Sale)
	if err := pgxscan.Get(ctx, r.querier(ctx), s, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("sale", key)
		}
		return nil, fmt.Errorf("get sale: %w", err)
	}

	if err := r.loadItems(ctx, []*sales.Sale{s}); err != nil {
		return nil, err
	}
	return s, nil
}

// GetByID implements sales.Repository.
func (r *SaleRepo) GetByID(ctx context.Context, saleID id.ID) (*sales.Sale, error) {
	return r.getOne(ctx, r.baseSelect().Where(squirrel.Eq{"id": saleID}), saleID.String())
}

// GetByReceipt implements sales.Repository.
func (r *SaleRepo) GetByReceipt(ctx context.Context, receiptNumber string) (*sales.Sale, error) {
	return r.getOne(ctx, r.baseSelect().Where(squirrel.Eq{"receipt_number": receiptNumber}), receiptNumber)
}

// loadItems fills Items of every sale with one query.
func (r *SaleRepo) loadItems(ctx context.Context, list []*sales.Sale) error {
	if len(list) == 0 {
		return nil
	}

	byID := make(map[id.ID]*sales.Sale, len(list))
	ids := make([]id.ID, 0, len(list))
	for _, s := range list {
		byID[s.ID] = s
		ids = append(ids, s.ID)
	}

	sql, args, err := r.Builder().
		Select(saleItemColumns...).
		From(saleItemsTable).
		Where(squirrel.Eq{"sale_id": ids}).
		OrderBy("sale_id", "line_index").
		ToSql()
	if err != nil {
		return fmt.Errorf("build items query: %w", err)
	}

	var rows []saleItemRow
	if err := pgxscan.Select(ctx, r.querier(ctx), &rows, sql, args...); err != nil {
		return fmt.Errorf("select items: %w", err)
	}

	for _, row := range rows {
		if s, ok := byID[row.SaleID]; ok {
			s.Items = append(s.Items, row.lineItem())
		}
	}
	return nil
}

// List implements sales.Repository.
func (r *SaleRepo) List(ctx context.Context, f sales.ListFilter) (domain.ListResult[*sales.Sale], error) {
	f.Normalize()
	result := domain.ListResult[*sales.Sale]{
		Items:  []*sales.Sale{},
		Limit:  f.Limit,
		Offset: f.Offset,
	}

	where := squirrel.And{}
	if f.From != nil {
		where = append(where, squirrel.GtOrEq{"created_at": *f.From})
	}
	if f.To != nil {
		where = append(where, squirrel.Lt{"created_at": *f.To})
	}
	if len(f.Statuses) > 0 {
		where = append(where, squirrel.Eq{"status": f.Statuses})
	}
	if f.SellerID != "" {
		where = append(where, squirrel.Eq{"seller_id": f.SellerID})
	}
	if f.CustomerID != nil {
		where = append(where, squirrel.Eq{"customer_id": *f.CustomerID})
	}
	if f.ReceiptContains != "" {
		where = append(where, squirrel.ILike{"receipt_number": "%" + f.ReceiptContains + "%"})
	}

	countSQL, countArgs, err := r.Builder().Select("COUNT(*)").From(salesTable).Where(where).ToSql()
	if err != nil {
		return result, fmt.Errorf("build count query: %w", err)
	}
	if err := r.querier(ctx).QueryRow(ctx, countSQL, countArgs...).Scan(&result.TotalCount); err != nil {
		return result, fmt.Errorf("count sales: %w", err)
	}

	sql, args, err := r.baseSelect().
		Where(where).
		OrderBy("created_at DESC", "receipt_number DESC").
		Limit(uint64(f.Limit)).
		Offset(uint64(f.Offset)).
		ToSql()
	if err != nil {
		return result, fmt.Errorf("build query: %w", err)
	}

	if err := pgxscan.Select(ctx, r.querier(ctx), &result.Items, sql, args...); err != nil {
		return result, fmt.Errorf("list sales: %w", err)
	}
	if err := r.loadItems(ctx, result.Items); err != nil {
		return result, err
	}
	return result, nil
}

// ListPendingInventory implements sales.Repository.
func (r *SaleRepo) ListPendingInventory(ctx context.Context, limit int) ([]*sales.Sale, error) {
	if limit <= 0 {
		limit = 100
	}

	sql, args, err := r.baseSelect().
		Where(squirrel.Eq{"inventory_sync": sales.InventoryPending}).
		OrderBy("created_at ASC").
		Limit(uint64(limit)).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var pending []*sales.Sale
	if err := pgxscan.Select(ctx, r.querier(ctx), &pending, sql, args...); err != nil {
		return nil, fmt.Errorf("list pending sales: %w", err)
	}
	if err := r.loadItems(ctx, pending); err != nil {
		return nil, err
	}
	return pending, nil
}
