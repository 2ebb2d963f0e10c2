package reports

import (
	"context"
	"fmt"
	"slices"
	"time"
)

// Service provides report generation operations.
type Service struct {
	repo Repository
}

// NewService creates a new reports service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// DailySummary reports the UTC day containing day.
func (s *Service) DailySummary(ctx context.Context, day time.Time) (*DailySummary, error) {
	from := BucketDay.Truncate(day)
	filter := Filter{From: from, To: from.AddDate(0, 0, 1), Bucket: BucketDay, Limit: 5}
	if err := filter.validate(); err != nil {
		return nil, err
	}

	rows, err := s.repo.Summary(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("daily summary: %w", err)
	}
	methods, err := s.repo.PaymentMethods(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("payment methods: %w", err)
	}
	top, err := s.repo.ProductSales(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("top products: %w", err)
	}

	summary := Total(slices.Values(rows))
	summary.Period = from
	return &DailySummary{
		Date:           from,
		Summary:        summary,
		PaymentMethods: methods,
		TopProducts:    top,
	}, nil
}

// PeriodReport reports [filter.From, filter.To) grouped by filter.Bucket.
func (s *Service) PeriodReport(ctx context.Context, filter Filter) (*PeriodReport, error) {
	if err := filter.validate(); err != nil {
		return nil, err
	}

	rows, err := s.repo.Summary(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("period report: %w", err)
	}
	totals := Total(slices.Values(rows))
	totals.Period = filter.From

	return &PeriodReport{
		From:   filter.From,
		To:     filter.To,
		Bucket: filter.Bucket,
		Rows:   rows,
		Totals: totals,
	}, nil
}

// ProductSales ranks products by net revenue over the period.
func (s *Service) ProductSales(ctx context.Context, filter Filter) ([]ProductSalesRow, error) {
	if err := filter.validate(); err != nil {
		return nil, err
	}
	rows, err := s.repo.ProductSales(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("product sales: %w", err)
	}
	return rows, nil
}

// SellerPerformance aggregates the period per seller.
func (s *Service) SellerPerformance(ctx context.Context, filter Filter) ([]SellerPerformanceRow, error) {
	if err := filter.validate(); err != nil {
		return nil, err
	}
	rows, err := s.repo.SellerPerformance(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("seller performance: %w", err)
	}
	return rows, nil
}
