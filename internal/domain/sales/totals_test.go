package sales

import (
	"math"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"retailpos/internal/core/apperror"
	"retailpos/internal/core/id"
	"retailpos/internal/core/types"
)

func pricedLine(t *testing.T, qty int64, price string, d Discount, taxRate int64) LineItem {
	t.Helper()
	l := LineItem{
		ProductID:      id.New(),
		Quantity:       types.NewQuantity(qty),
		UnitPrice:      types.MustMoney(price),
		Discount:       d,
		Tax:            Tax{Rate: decimal.NewFromInt(taxRate)},
		RefundedAmount: types.Zero(),
	}
	require.NoError(t, priceLine(&l))
	return l
}

func TestPriceLine(t *testing.T) {
	tests := []struct {
		name     string
		qty      int64
		price    string
		discount Discount
		taxRate  int64
		want     [4]string // subtotal, discount, tax, total
	}{
		{"plain", 2, "3.25", Discount{}, 0, [4]string{"6.50", "0.00", "0.00", "6.50"}},
		{"percentage", 3, "10.00", Discount{Percentage: decimal.NewFromInt(10)}, 16, [4]string{"30.00", "3.00", "4.32", "31.32"}},
		{"amount capped at subtotal", 1, "4.00", Discount{Amount: types.MustMoney("9.00")}, 10, [4]string{"4.00", "4.00", "0.00", "0.00"}},
		{"tax rounds half away from zero", 1, "0.25", Discount{}, 10, [4]string{"0.25", "0.00", "0.03", "0.28"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := pricedLine(t, tt.qty, tt.price, tt.discount, tt.taxRate)
			got := [4]string{
				l.Subtotal.StringFixed(types.MoneyScale),
				l.Discount.Amount.StringFixed(types.MoneyScale),
				l.Tax.Amount.StringFixed(types.MoneyScale),
				l.Total.StringFixed(types.MoneyScale),
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPriceLine_Rejects(t *testing.T) {
	bad := []LineItem{
		{Quantity: 0, UnitPrice: types.MustMoney("1")},
		{Quantity: types.NewQuantity(1), UnitPrice: types.MustMoney("-1")},
		{Quantity: types.NewQuantity(1), UnitPrice: types.MustMoney("1"), Discount: Discount{Percentage: decimal.NewFromInt(101)}},
		{Quantity: types.NewQuantity(1), UnitPrice: types.MustMoney("1"), Discount: Discount{Amount: types.MustMoney("0.5"), Percentage: decimal.NewFromInt(5)}},
	}
	for i := range bad {
		assert.True(t, apperror.IsValidation(priceLine(&bad[i])), "case %d", i)
	}
}

func TestComputeTotals_MatchesLines(t *testing.T) {
	items := []LineItem{
		pricedLine(t, 3, "10.00", Discount{Percentage: decimal.NewFromInt(10)}, 16),
		pricedLine(t, 2, "5.50", Discount{Amount: types.MustMoney("1.00")}, 0),
	}
	totals := computeTotals(items)

	sum := types.Zero()
	for _, l := range items {
		sum = sum.Add(l.Total)
	}
	assert.True(t, totals.Total.Equal(sum))
	assert.True(t, totals.Total.Equal(totals.Subtotal.Sub(totals.Discount).Add(totals.Tax)))
}

func TestPaymentSettle(t *testing.T) {
	p := Payment{TotalPaid: types.Zero()}
	p.settle(types.MustMoney("10"))
	assert.Equal(t, PaymentPending, p.Status)

	p.TotalPaid = types.MustMoney("4")
	p.settle(types.MustMoney("10"))
	assert.Equal(t, PaymentPartial, p.Status)
	assert.True(t, p.Change.IsZero())

	p.TotalPaid = types.MustMoney("12.5")
	p.settle(types.MustMoney("10"))
	assert.Equal(t, PaymentPaid, p.Status)
	assert.Equal(t, "2.50", p.Change.StringFixed(types.MoneyScale))
}

func TestTransitions(t *testing.T) {
	assert.True(t, CanTransition(StatusCompleted, StatusVoided))
	assert.True(t, CanTransition(StatusCompleted, StatusRefunded))
	assert.True(t, CanTransition(StatusPartialRefund, StatusPartialRefund))
	assert.False(t, CanTransition(StatusPartialRefund, StatusVoided))
	assert.False(t, CanTransition(StatusVoided, StatusCompleted))
	assert.False(t, CanTransition(StatusRefunded, StatusPartialRefund))
}

func TestApplyRefund_DuplicateRequestsAreSummed(t *testing.T) {
	line := pricedLine(t, 2, "5.00", Discount{}, 0)
	s := &Sale{
		Status:  StatusCompleted,
		Items:   []LineItem{line},
		Totals:  computeTotals([]LineItem{line}),
		Payment: Payment{TotalPaid: types.MustMoney("10.00")},
	}

	_, err := s.applyRefund([]RefundRequest{
		{LineIndex: 0, Quantity: types.NewQuantity(2)},
		{LineIndex: 0, Quantity: types.NewQuantity(1)},
	}, RefundRecord{})
	assert.True(t, apperror.IsInvalidState(err))
	assert.Equal(t, StatusCompleted, s.Status)
	assert.Zero(t, s.Items[0].RefundedQuantity)

	rec, err := s.applyRefund([]RefundRequest{
		{LineIndex: 0, Quantity: types.NewQuantity(1)},
		{LineIndex: 0, Quantity: types.NewQuantity(1)},
	}, RefundRecord{})
	require.NoError(t, err)
	assert.Equal(t, "10.00", rec.Amount.StringFixed(types.MoneyScale))
	assert.Equal(t, StatusRefunded, s.Status)
}

func TestApplyRefund_UnitByUnitAddsUpToLineTotal(t *testing.T) {
	halfOff := Discount{Percentage: decimal.NewFromInt(50)}

	tests := []struct {
		name  string
		lines []LineItem
	}{
		{"single line", []LineItem{pricedLine(t, 10, "0.05", halfOff, 0)}},
		{"with a second line", []LineItem{
			pricedLine(t, 10, "0.05", halfOff, 0),
			pricedLine(t, 1, "10.00", Discount{}, 0),
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			totals := computeTotals(tt.lines)
			s := &Sale{
				Status:  StatusCompleted,
				Items:   tt.lines,
				Totals:  totals,
				Payment: Payment{TotalPaid: totals.Total},
			}
			lineTotal := s.Items[0].Total
			require.Equal(t, "0.25", lineTotal.StringFixed(types.MoneyScale))

			refunded := types.Zero()
			for unit := 1; unit <= 10; unit++ {
				rec, err := s.applyRefund([]RefundRequest{{LineIndex: 0, Quantity: types.NewQuantity(1)}}, RefundRecord{})
				require.NoError(t, err, "unit %d", unit)
				assert.False(t, rec.Amount.IsNegative(), "unit %d refunded %s", unit, rec.Amount)
				refunded = refunded.Add(rec.Amount)
				assert.True(t, refunded.LessThanOrEqual(lineTotal), "unit %d: %s refunded so far", unit, refunded)
			}

			assert.True(t, lineTotal.Equal(refunded), "refunded %s", refunded)
			assert.True(t, lineTotal.Equal(s.Items[0].RefundedAmount))
			assert.Zero(t, s.Items[0].RemainingQuantity())
		})
	}
}

func TestApplyRefund_OverflowingQuantityRejected(t *testing.T) {
	line := pricedLine(t, 2, "5.00", Discount{}, 0)
	s := &Sale{
		Status:  StatusCompleted,
		Items:   []LineItem{line},
		Totals:  computeTotals([]LineItem{line}),
		Payment: Payment{TotalPaid: types.MustMoney("10.00")},
	}

	_, err := s.applyRefund([]RefundRequest{
		{LineIndex: 0, Quantity: types.Quantity(math.MaxInt64)},
		{LineIndex: 0, Quantity: types.NewQuantity(1)},
	}, RefundRecord{})
	assert.True(t, apperror.IsValidation(err))
	assert.Zero(t, s.Items[0].RefundedQuantity)
}

func TestMarkVoided_RejectsRefundedSale(t *testing.T) {
	s := &Sale{
		Status:     StatusPartialRefund,
		RefundInfo: &RefundInfo{TotalRefunded: types.MustMoney("1"), Refunds: []RefundRecord{{}}},
	}
	assert.True(t, apperror.IsInvalidState(s.markVoided(VoidInfo{})))
}
