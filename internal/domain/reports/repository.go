package reports

import (
	"context"
	"iter"
	"slices"
	"time"

	"retailpos/internal/domain/sales"
)

// Repository defines report data access interface.
// Every method covers reportable sales created in [filter.From, filter.To).
type Repository interface {
	Summary(ctx context.Context, filter Filter) ([]SummaryRow, error)
	ProductSales(ctx context.Context, filter Filter) ([]ProductSalesRow, error)
	SellerPerformance(ctx context.Context, filter Filter) ([]SellerPerformanceRow, error)
	PaymentMethods(ctx context.Context, filter Filter) ([]PaymentMethodRow, error)
}

// SaleSource yields the sales created in [from, to), optionally for one seller.
type SaleSource interface {
	SalesBetween(ctx context.Context, from, to time.Time, sellerID string) iter.Seq[*sales.Sale]
}

// SourceRepository computes reports in process from a SaleSource.
type SourceRepository struct {
	source SaleSource
}

// NewSourceRepository creates a Repository over source.
func NewSourceRepository(source SaleSource) *SourceRepository {
	return &SourceRepository{source: source}
}

func (r *SourceRepository) sales(ctx context.Context, f Filter) iter.Seq[*sales.Sale] {
	return r.source.SalesBetween(ctx, f.From, f.To, f.SellerID)
}

// Summary implements Repository.
func (r *SourceRepository) Summary(ctx context.Context, f Filter) ([]SummaryRow, error) {
	return slices.Collect(Summarize(r.sales(ctx, f), f.Bucket)), nil
}

// ProductSales implements Repository.
func (r *SourceRepository) ProductSales(ctx context.Context, f Filter) ([]ProductSalesRow, error) {
	return ProductSales(r.sales(ctx, f), f.Limit), nil
}

// SellerPerformance implements Repository.
func (r *SourceRepository) SellerPerformance(ctx context.Context, f Filter) ([]SellerPerformanceRow, error) {
	return SellerPerformance(r.sales(ctx, f)), nil
}

// PaymentMethods implements Repository.
func (r *SourceRepository) PaymentMethods(ctx context.Context, f Filter) ([]PaymentMethodRow, error) {
	return PaymentMethods(r.sales(ctx, f)), nil
}

var _ Repository = (*SourceRepository)(nil)
