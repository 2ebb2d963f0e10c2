// Package reports provides read-side sales aggregations: daily summary,
// period report, product sales and seller performance.
package reports

import (
	"time"

	"retailpos/internal/core/apperror"
	"retailpos/internal/core/id"
	"retailpos/internal/core/types"
)

// Bucket is the time granularity of a period report.
type Bucket string

const (
	BucketHour  Bucket = "hour"
	BucketDay   Bucket = "day"
	BucketWeek  Bucket = "week"
	BucketMonth Bucket = "month"
)

// IsValid reports whether b is a known bucket.
func (b Bucket) IsValid() bool {
	switch b {
	case BucketHour, BucketDay, BucketWeek, BucketMonth:
		return true
	}
	return false
}

// Truncate returns the start of the bucket containing t, in UTC.
// Weeks start on Monday, matching PostgreSQL date_trunc.
func (b Bucket) Truncate(t time.Time) time.Time {
	t = t.UTC()
	switch b {
	case BucketHour:
		return t.Truncate(time.Hour)
	case BucketWeek:
		day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
		offset := (int(day.Weekday()) + 6) % 7
		return day.AddDate(0, 0, -offset)
	case BucketMonth:
		return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
	default:
		return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	}
}

// Filter selects the sales a report covers: created in [From, To).
type Filter struct {
	From     time.Time
	To       time.Time
	Bucket   Bucket
	SellerID string
	// Limit caps ranked rows (product sales). Zero means the default.
	Limit int
}

const maxReportRange = 366 * 24 * time.Hour

func (f *Filter) validate() error {
	if f.From.IsZero() || f.To.IsZero() {
		return apperror.NewValidation("from and to are required")
	}
	if !f.From.Before(f.To) {
		return apperror.NewValidation("from must be before to").
			WithDetail("from", f.From).
			WithDetail("to", f.To)
	}
	if f.To.Sub(f.From) > maxReportRange {
		return apperror.NewValidation("report range must not exceed 366 days")
	}
	if f.Bucket == "" {
		f.Bucket = BucketDay
	}
	if !f.Bucket.IsValid() {
		return apperror.NewValidation("unknown bucket").WithDetail("bucket", f.Bucket)
	}
	if f.Limit <= 0 || f.Limit > 1000 {
		f.Limit = 20
	}
	return nil
}

// SummaryRow aggregates the sales of one bucket.
type SummaryRow struct {
	Period      time.Time   `json:"period"`
	Count       int64       `json:"count"`
	Revenue     types.Money `json:"revenue"`
	Discount    types.Money `json:"discount"`
	Tax         types.Money `json:"tax"`
	AverageSale types.Money `json:"averageSale"`
}

// ProductSalesRow is the net quantity and revenue of one product.
type ProductSalesRow struct {
	ProductID   id.ID          `json:"productId"`
	ProductName string         `json:"productName"`
	SKU         string         `json:"sku,omitempty"`
	Quantity    types.Quantity `json:"quantity"`
	Revenue     types.Money    `json:"revenue"`
}

// SellerPerformanceRow aggregates the sales of one seller.
type SellerPerformanceRow struct {
	SellerID    string      `json:"sellerId"`
	Count       int64       `json:"count"`
	Revenue     types.Money `json:"revenue"`
	AverageSale types.Money `json:"averageSale"`
}

// PaymentMethodRow aggregates sales by payment method.
type PaymentMethodRow struct {
	Method  string      `json:"method"`
	Count   int64       `json:"count"`
	Revenue types.Money `json:"revenue"`
}

// DailySummary is the end-of-day report.
type DailySummary struct {
	Date           time.Time          `json:"date"`
	Summary        SummaryRow         `json:"summary"`
	PaymentMethods []PaymentMethodRow `json:"paymentMethods"`
	TopProducts    []ProductSalesRow  `json:"topProducts"`
}

// PeriodReport is a bucketed report over a date range.
type PeriodReport struct {
	From   time.Time    `json:"from"`
	To     time.Time    `json:"to"`
	Bucket Bucket       `json:"bucket"`
	Rows   []SummaryRow `json:"rows"`
	Totals SummaryRow   `json:"totals"`
}
