package reports

import (
	"cmp"
	"iter"
	"maps"
	"slices"
	"time"

	"github.com/shopspring/decimal"

	"retailpos/internal/core/id"
	"retailpos/internal/core/types"
	"retailpos/internal/domain/sales"
)

// Reportable drops sales that do not count as revenue: voided and fully refunded ones.
func Reportable(seq iter.Seq[*sales.Sale]) iter.Seq[*sales.Sale] {
	allowed := sales.ReportableStatuses()
	return func(yield func(*sales.Sale) bool) {
		for s := range seq {
			if !slices.Contains(allowed, s.Status) {
				continue
			}
			if !yield(s) {
				return
			}
		}
	}
}

// Summarize groups reportable sales by bucket, oldest bucket first.
// Nothing is read from seq until the result is ranged over, and ranging
// again re-reads seq.
func Summarize(seq iter.Seq[*sales.Sale], bucket Bucket) iter.Seq[SummaryRow] {
	return func(yield func(SummaryRow) bool) {
		rows := make(map[time.Time]*SummaryRow)
		for s := range Reportable(seq) {
			period := bucket.Truncate(s.CreatedAt)
			row, ok := rows[period]
			if !ok {
				row = newSummaryRow(period)
				rows[period] = row
			}
			addToSummary(row, s)
		}

		for _, period := range slices.SortedFunc(maps.Keys(rows), func(a, b time.Time) int { return a.Compare(b) }) {
			row := rows[period]
			finishSummary(row)
			if !yield(*row) {
				return
			}
		}
	}
}

// Total folds summary rows into one; Period is taken from the first row.
func Total(rows iter.Seq[SummaryRow]) SummaryRow {
	var total *SummaryRow
	for r := range rows {
		if total == nil {
			total = newSummaryRow(r.Period)
		}
		total.Count += r.Count
		total.Revenue = total.Revenue.Add(r.Revenue)
		total.Discount = total.Discount.Add(r.Discount)
		total.Tax = total.Tax.Add(r.Tax)
	}
	if total == nil {
		return *newSummaryRow(time.Time{})
	}
	finishSummary(total)
	return *total
}

// ProductSales ranks products by net revenue, highest first.
// Refunded quantities and amounts are subtracted per line.
func ProductSales(seq iter.Seq[*sales.Sale], limit int) []ProductSalesRow {
	rows := make(map[id.ID]*ProductSalesRow)
	for s := range Reportable(seq) {
		for i := range s.Items {
			line := &s.Items[i]
			row, ok := rows[line.ProductID]
			if !ok {
				row = &ProductSalesRow{
					ProductID:   line.ProductID,
					ProductName: line.ProductName,
					SKU:         line.SKU,
					Revenue:     types.Zero(),
				}
				rows[line.ProductID] = row
			}
			row.Quantity += line.RemainingQuantity()
			row.Revenue = row.Revenue.Add(line.Total.Sub(line.RefundedAmount))
		}
	}

	out := make([]ProductSalesRow, 0, len(rows))
	for _, r := range rows {
		out = append(out, *r)
	}
	slices.SortFunc(out, func(a, b ProductSalesRow) int {
		if c := b.Revenue.Cmp(a.Revenue); c != 0 {
			return c
		}
		return cmp.Compare(a.ProductName, b.ProductName)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// SellerPerformance aggregates sales per seller, highest revenue first.
func SellerPerformance(seq iter.Seq[*sales.Sale]) []SellerPerformanceRow {
	rows := make(map[string]*SellerPerformanceRow)
	for s := range Reportable(seq) {
		row, ok := rows[s.SellerID]
		if !ok {
			row = &SellerPerformanceRow{SellerID: s.SellerID, Revenue: types.Zero()}
			rows[s.SellerID] = row
		}
		row.Count++
		row.Revenue = row.Revenue.Add(s.NetTotal())
	}

	out := make([]SellerPerformanceRow, 0, len(rows))
	for _, r := range rows {
		r.AverageSale = average(r.Revenue, r.Count)
		out = append(out, *r)
	}
	slices.SortFunc(out, func(a, b SellerPerformanceRow) int {
		if c := b.Revenue.Cmp(a.Revenue); c != 0 {
			return c
		}
		return cmp.Compare(a.SellerID, b.SellerID)
	})
	return out
}

// PaymentMethods aggregates net revenue per payment method, by method name.
func PaymentMethods(seq iter.Seq[*sales.Sale]) []PaymentMethodRow {
	rows := make(map[string]*PaymentMethodRow)
	for s := range Reportable(seq) {
		method := string(s.Payment.Method)
		row, ok := rows[method]
		if !ok {
			row = &PaymentMethodRow{Method: method, Revenue: types.Zero()}
			rows[method] = row
		}
		row.Count++
		row.Revenue = row.Revenue.Add(s.NetTotal())
	}

	out := make([]PaymentMethodRow, 0, len(rows))
	for _, method := range slices.Sorted(maps.Keys(rows)) {
		out = append(out, *rows[method])
	}
	return out
}

func newSummaryRow(period time.Time) *SummaryRow {
	return &SummaryRow{
		Period:      period,
		Revenue:     types.Zero(),
		Discount:    types.Zero(),
		Tax:         types.Zero(),
		AverageSale: types.Zero(),
	}
}

func addToSummary(row *SummaryRow, s *sales.Sale) {
	row.Count++
	row.Revenue = row.Revenue.Add(s.NetTotal())
	row.Discount = row.Discount.Add(s.Totals.Discount)
	row.Tax = row.Tax.Add(s.Totals.Tax)
}

func finishSummary(row *SummaryRow) {
	row.AverageSale = average(row.Revenue, row.Count)
}

func average(sum types.Money, count int64) types.Money {
	if count == 0 {
		return types.Zero()
	}
	return types.RoundMoney(sum.Div(decimal.NewFromInt(count)))
}
