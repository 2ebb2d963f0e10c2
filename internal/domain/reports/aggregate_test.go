package reports_test

import (
	"context"
	"slices"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"retailpos/internal/core/entity"
	"retailpos/internal/core/id"
	"retailpos/internal/core/types"
	"retailpos/internal/domain/reports"
	"retailpos/internal/domain/sales"
	"retailpos/internal/infrastructure/storage/memory"
)

var (
	teaID  = id.New()
	cakeID = id.New()
	day    = time.Date(2026, time.March, 11, 0, 0, 0, 0, time.UTC)
)

type saleOpt func(*sales.Sale)

func newSale(at time.Time, seller string, method sales.PaymentMethod, lines []sales.LineItem, opts ...saleOpt) *sales.Sale {
	s := &sales.Sale{
		BaseEntity:    entity.NewBaseEntity(),
		ReceiptNumber: "RCP-" + at.Format("150405.000"),
		Items:         lines,
		Status:        sales.StatusCompleted,
		SellerID:      seller,
		Payment:       sales.Payment{Method: method, Status: sales.PaymentPaid},
	}
	s.CreatedAt = at
	s.UpdatedAt = at
	for _, l := range lines {
		s.Totals.Subtotal = s.Totals.Subtotal.Add(l.Subtotal)
		s.Totals.Discount = s.Totals.Discount.Add(l.Discount.Amount)
		s.Totals.Tax = s.Totals.Tax.Add(l.Tax.Amount)
	}
	s.Totals.Total = s.Totals.Subtotal.Sub(s.Totals.Discount).Add(s.Totals.Tax)
	s.Payment.TotalPaid = s.Totals.Total
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func line(productID id.ID, name string, qty int64, total string) sales.LineItem {
	return sales.LineItem{
		ProductID:      productID,
		ProductName:    name,
		Quantity:       types.NewQuantity(qty),
		Subtotal:       types.MustMoney(total),
		Total:          types.MustMoney(total),
		RefundedAmount: types.Zero(),
	}
}

func refunded(lineIdx int, qty int64, amount string, status sales.Status) saleOpt {
	return func(s *sales.Sale) {
		l := &s.Items[lineIdx]
		l.RefundedQuantity = types.NewQuantity(qty)
		l.RefundedAmount = types.MustMoney(amount)
		s.RefundInfo = &sales.RefundInfo{
			TotalRefunded: types.MustMoney(amount),
			Refunds:       []sales.RefundRecord{{Amount: types.MustMoney(amount)}},
		}
		s.Status = status
	}
}

func voided(s *sales.Sale) { s.Status = sales.StatusVoided }

func fixtureSales() []*sales.Sale {
	return []*sales.Sale{
		newSale(day.Add(9*time.Hour), "alice", sales.MethodCash, []sales.LineItem{line(teaID, "Tea", 2, "6.00")}),
		newSale(day.Add(10*time.Hour), "alice", sales.MethodCard, []sales.LineItem{
			line(teaID, "Tea", 1, "3.00"),
			line(cakeID, "Cake", 2, "10.00"),
		}, refunded(1, 1, "5.00", sales.StatusPartialRefund)),
		newSale(day.Add(11*time.Hour), "bob", sales.MethodCard, []sales.LineItem{line(cakeID, "Cake", 1, "5.00")}, voided),
		newSale(day.Add(12*time.Hour), "bob", sales.MethodCash, []sales.LineItem{line(cakeID, "Cake", 1, "5.00")},
			refunded(0, 1, "5.00", sales.StatusRefunded)),
		newSale(day.Add(26*time.Hour), "bob", sales.MethodCash, []sales.LineItem{line(teaID, "Tea", 3, "9.00")}),
	}
}

func TestSummarize_ExcludesVoidedAndRefunded(t *testing.T) {
	rows := slices.Collect(reports.Summarize(slices.Values(fixtureSales()), reports.BucketDay))
	require.Len(t, rows, 2)

	assert.Equal(t, day, rows[0].Period)
	assert.Equal(t, int64(2), rows[0].Count)
	assert.Equal(t, "14.00", rows[0].Revenue.StringFixed(2))
	assert.Equal(t, "7.00", rows[0].AverageSale.StringFixed(2))

	assert.Equal(t, day.AddDate(0, 0, 1), rows[1].Period)
	assert.Equal(t, "9.00", rows[1].Revenue.StringFixed(2))

	total := reports.Total(slices.Values(rows))
	assert.Equal(t, int64(3), total.Count)
	assert.Equal(t, "23.00", total.Revenue.StringFixed(2))
}

func TestSummarize_IsLazyAndRestartable(t *testing.T) {
	pulled := 0
	src := func(yield func(*sales.Sale) bool) {
		for _, s := range fixtureSales() {
			pulled++
			if !yield(s) {
				return
			}
		}
	}

	seq := reports.Summarize(src, reports.BucketHour)
	assert.Zero(t, pulled)

	first := slices.Collect(seq)
	second := slices.Collect(seq)
	assert.Equal(t, first, second)
	assert.Len(t, first, 3)
}

func TestProductSales_NetOfRefunds(t *testing.T) {
	rows := reports.ProductSales(slices.Values(fixtureSales()), 10)
	require.Len(t, rows, 2)

	assert.Equal(t, teaID, rows[0].ProductID)
	assert.Equal(t, types.NewQuantity(6), rows[0].Quantity)
	assert.Equal(t, "18.00", rows[0].Revenue.StringFixed(2))

	assert.Equal(t, cakeID, rows[1].ProductID)
	assert.Equal(t, types.NewQuantity(1), rows[1].Quantity)
	assert.Equal(t, "5.00", rows[1].Revenue.StringFixed(2))

	assert.Len(t, reports.ProductSales(slices.Values(fixtureSales()), 1), 1)
}

func TestSellerPerformance(t *testing.T) {
	rows := reports.SellerPerformance(slices.Values(fixtureSales()))
	require.Len(t, rows, 2)
	assert.Equal(t, "alice", rows[0].SellerID)
	assert.Equal(t, int64(2), rows[0].Count)
	assert.Equal(t, "14.00", rows[0].Revenue.StringFixed(2))
	assert.Equal(t, "bob", rows[1].SellerID)
	assert.Equal(t, int64(1), rows[1].Count)
}

func TestPaymentMethods(t *testing.T) {
	rows := reports.PaymentMethods(slices.Values(fixtureSales()))
	require.Len(t, rows, 2)
	assert.Equal(t, "card", rows[0].Method)
	assert.Equal(t, "8.00", rows[0].Revenue.StringFixed(2))
	assert.Equal(t, "cash", rows[1].Method)
	assert.Equal(t, int64(2), rows[1].Count)
	assert.Equal(t, "15.00", rows[1].Revenue.StringFixed(2))
}

func TestBucketTruncate(t *testing.T) {
	at := time.Date(2026, time.March, 12, 15, 42, 0, 0, time.UTC) // Thursday
	assert.Equal(t, time.Date(2026, time.March, 12, 15, 0, 0, 0, time.UTC), reports.BucketHour.Truncate(at))
	assert.Equal(t, time.Date(2026, time.March, 12, 0, 0, 0, 0, time.UTC), reports.BucketDay.Truncate(at))
	assert.Equal(t, time.Date(2026, time.March, 9, 0, 0, 0, 0, time.UTC), reports.BucketWeek.Truncate(at))
	assert.Equal(t, time.Date(2026, time.March, 1, 0, 0, 0, 0, time.UTC), reports.BucketMonth.Truncate(at))
}

func newReportService(t *testing.T) *reports.Service {
	t.Helper()
	repo := memory.NewSaleRepository()
	for _, s := range fixtureSales() {
		require.NoError(t, repo.Create(context.Background(), s))
	}
	return reports.NewService(reports.NewSourceRepository(repo))
}

func TestService_DailySummary(t *testing.T) {
	svc := newReportService(t)

	got, err := svc.DailySummary(context.Background(), day.Add(15*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, day, got.Date)
	assert.Equal(t, int64(2), got.Summary.Count)
	assert.Equal(t, "14.00", got.Summary.Revenue.StringFixed(2))
	assert.Len(t, got.PaymentMethods, 2)
	require.NotEmpty(t, got.TopProducts)
	assert.Equal(t, teaID, got.TopProducts[0].ProductID)
}

func TestService_PeriodReport(t *testing.T) {
	svc := newReportService(t)

	got, err := svc.PeriodReport(context.Background(), reports.Filter{From: day, To: day.AddDate(0, 0, 7)})
	require.NoError(t, err)
	assert.Equal(t, reports.BucketDay, got.Bucket)
	assert.Len(t, got.Rows, 2)
	assert.Equal(t, "23.00", got.Totals.Revenue.StringFixed(2))

	bob, err := svc.PeriodReport(context.Background(), reports.Filter{From: day, To: day.AddDate(0, 0, 7), SellerID: "bob"})
	require.NoError(t, err)
	assert.Equal(t, "9.00", bob.Totals.Revenue.StringFixed(2))
}

func TestService_FilterValidation(t *testing.T) {
	svc := newReportService(t)
	ctx := context.Background()

	_, err := svc.PeriodReport(ctx, reports.Filter{From: day, To: day})
	assert.Error(t, err)
	_, err = svc.PeriodReport(ctx, reports.Filter{From: day, To: day.AddDate(2, 0, 0)})
	assert.Error(t, err)
	_, err = svc.PeriodReport(ctx, reports.Filter{From: day, To: day.AddDate(0, 0, 1), Bucket: "decade"})
	assert.Error(t, err)
}
