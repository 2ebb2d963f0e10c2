// Package register_repo provides the PostgreSQL stock movement register.
package register_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"retailpos/internal/core/id"
	"retailpos/internal/domain/catalogs/product"
	"retailpos/internal/infrastructure/storage/postgres"
)

const stockMovementsTable = "stock_movements"

var movementColumns = []string{
	"id", "product_id", "quantity", "stock_before", "stock_after",
	"reason", "correlation_id", "actor_id", "note", "created_at",
}

// StockRepo persists the inventory ledger history.
type StockRepo struct {
	txManager *postgres.TxManager
	builder   squirrel.StatementBuilderType
}

// NewStockRepo creates a new stock register repository.
func NewStockRepo(txManager *postgres.TxManager) *StockRepo {
	return &StockRepo{
		txManager: txManager,
		builder:   squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

func movementRow(m *product.StockMovement) []any {
	return []any{
		m.ID, m.ProductID, m.Quantity, m.StockBefore, m.StockAfter,
		m.Reason, m.CorrelationID, m.ActorID, m.Note, m.CreatedAt,
	}
}

// CreateMovements batch inserts movements.
func (r *StockRepo) CreateMovements(ctx context.Context, movements []product.StockMovement) error {
	if len(movements) == 0 {
		return nil
	}

	// Fast path: COPY when inside a transaction. Every column is a uuid,
	// bigint, text or timestamp, so the binary COPY encoding needs no help.
	if tx := r.txManager.GetTx(ctx); tx != nil && len(movements) > 1 {
		rows := make([][]any, 0, len(movements))
		for i := range movements {
			rows = append(rows, movementRow(&movements[i]))
		}
		inserter := postgres.NewBatchInserter(r.txManager)
		if _, err := inserter.CopyFromSlice(ctx, stockMovementsTable, movementColumns, rows); err != nil {
			return fmt.Errorf("copy movements: %w", err)
		}
		return nil
	}

	q := r.builder.Insert(stockMovementsTable).Columns(movementColumns...)
	for i := range movements {
		q = q.Values(movementRow(&movements[i])...)
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	if _, err := r.txManager.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert movements: %w", err)
	}
	return nil
}

// ListByProduct returns the movements of a product, newest first.
func (r *StockRepo) ListByProduct(ctx context.Context, productID id.ID, limit, offset int) ([]product.StockMovement, error) {
	if limit <= 0 || limit > 500 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	sql, args, err := r.builder.Select(movementColumns...).
		From(stockMovementsTable).
		Where(squirrel.Eq{"product_id": productID}).
		OrderBy("created_at DESC", "id DESC").
		Limit(uint64(limit)).
		Offset(uint64(offset)).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	movements := []product.StockMovement{}
	if err := pgxscan.Select(ctx, r.txManager.GetQuerier(ctx), &movements, sql, args...); err != nil {
		return nil, fmt.Errorf("select movements: %w", err)
	}
	return movements, nil
}
