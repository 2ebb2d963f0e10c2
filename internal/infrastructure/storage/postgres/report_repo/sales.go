// Package report_repo provides the PostgreSQL sales report repository.
package report_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/shopspring/decimal"

	"retailpos/internal/core/types"
	"retailpos/internal/domain/reports"
	"retailpos/internal/domain/sales"
	"retailpos/internal/infrastructure/storage/postgres"
)

// Revenue expressions over the JSONB money columns of sales.
const (
	netTotalExpr = `((s.totals->>'total')::numeric - COALESCE((s.refund_info->>'totalRefunded')::numeric, 0))`
	discountExpr = `(s.totals->>'discount')::numeric`
	taxExpr      = `(s.totals->>'tax')::numeric`
)

// ReportRepo implements reports.Repository with SQL aggregates.
type ReportRepo struct {
	txManager *postgres.TxManager
	builder   squirrel.StatementBuilderType
}

var _ reports.Repository = (*ReportRepo)(nil)

// NewReportRepo creates a new report repository.
func NewReportRepo(txManager *postgres.TxManager) *ReportRepo {
	return &ReportRepo{
		txManager: txManager,
		builder:   squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// reportable restricts a query to revenue-bearing sales in the filter window.
func reportable(q squirrel.SelectBuilder, f reports.Filter) squirrel.SelectBuilder {
	q = q.Where(squirrel.Eq{"s.status": sales.ReportableStatuses()}).
		Where(squirrel.GtOrEq{"s.created_at": f.From}).
		Where(squirrel.Lt{"s.created_at": f.To})
	if f.SellerID != "" {
		q = q.Where(squirrel.Eq{"s.seller_id": f.SellerID})
	}
	return q
}

func (r *ReportRepo) selectInto(ctx context.Context, dst any, q squirrel.SelectBuilder) error {
	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build report query: %w", err)
	}
	if err := pgxscan.Select(ctx, r.txManager.GetQuerier(ctx), dst, sql, args...); err != nil {
		return fmt.Errorf("run report query: %w", err)
	}
	return nil
}

func average(sum types.Money, count int64) types.Money {
	if count == 0 {
		return types.Zero()
	}
	return types.RoundMoney(sum.Div(decimal.NewFromInt(count)))
}

// Summary implements reports.Repository.
func (r *ReportRepo) Summary(ctx context.Context, f reports.Filter) ([]reports.SummaryRow, error) {
	q := r.builder.
		Select().
		Column(squirrel.Expr("date_trunc(?, s.created_at AT TIME ZONE 'UTC') AS period", string(f.Bucket))).
		Columns(
			"COUNT(*) AS count",
			"COALESCE(SUM("+netTotalExpr+"), 0) AS revenue",
			"COALESCE(SUM("+discountExpr+"), 0) AS discount",
			"COALESCE(SUM("+taxExpr+"), 0) AS tax",
		).
		From("sales s").
		GroupBy("period").
		OrderBy("period")

	rows := []reports.SummaryRow{}
	if err := r.selectInto(ctx, &rows, reportable(q, f)); err != nil {
		return nil, err
	}
	for i := range rows {
		rows[i].Period = rows[i].Period.UTC()
		rows[i].AverageSale = average(rows[i].Revenue, rows[i].Count)
	}
	return rows, nil
}

// ProductSales implements reports.Repository.
func (r *ReportRepo) ProductSales(ctx context.Context, f reports.Filter) ([]reports.ProductSalesRow, error) {
	q := r.builder.
		Select(
			"i.product_id",
			"MAX(i.product_name) AS product_name",
			"MAX(i.sku) AS sku",
			"SUM(i.quantity - i.refunded_quantity)::bigint AS quantity",
			"SUM(i.total - i.refunded_amount) AS revenue",
		).
		From("sale_items i").
		Join("sales s ON s.id = i.sale_id").
		GroupBy("i.product_id").
		OrderBy("revenue DESC", "product_name ASC")
	if f.Limit > 0 {
		q = q.Limit(uint64(f.Limit))
	}

	rows := []reports.ProductSalesRow{}
	if err := r.selectInto(ctx, &rows, reportable(q, f)); err != nil {
		return nil, err
	}
	return rows, nil
}

// SellerPerformance implements reports.Repository.
func (r *ReportRepo) SellerPerformance(ctx context.Context, f reports.Filter) ([]reports.SellerPerformanceRow, error) {
	q := r.builder.
		Select(
			"s.seller_id",
			"COUNT(*) AS count",
			"COALESCE(SUM("+netTotalExpr+"), 0) AS revenue",
		).
		From("sales s").
		GroupBy("s.seller_id").
		OrderBy("revenue DESC", "s.seller_id ASC")

	rows := []reports.SellerPerformanceRow{}
	if err := r.selectInto(ctx, &rows, reportable(q, f)); err != nil {
		return nil, err
	}
	for i := range rows {
		rows[i].AverageSale = average(rows[i].Revenue, rows[i].Count)
	}
	return rows, nil
}

// PaymentMethods implements reports.Repository.
func (r *ReportRepo) PaymentMethods(ctx context.Context, f reports.Filter) ([]reports.PaymentMethodRow, error) {
	q := r.builder.
		Select(
			"s.payment->>'method' AS method",
			"COUNT(*) AS count",
			"COALESCE(SUM("+netTotalExpr+"), 0) AS revenue",
		).
		From("sales s").
		GroupBy("method").
		OrderBy("method")

	rows := []reports.PaymentMethodRow{}
	if err := r.selectInto(ctx, &rows, reportable(q, f)); err != nil {
		return nil, err
	}
	return rows, nil
}
