package sales

import (
	"fmt"

	"github.com/shopspring/decimal"

	"retailpos/internal/core/apperror"
	"retailpos/internal/core/types"
)

var hundred = decimal.NewFromInt(100)

// priceLine fills Subtotal, Discount.Amount, Tax.Amount and Total of l.
//
//	subtotal = round(quantity * unitPrice)
//	discount = round(subtotal * pct / 100) or the fixed amount, capped at subtotal
//	tax      = round((subtotal - discount) * rate / 100)
//	total    = subtotal - discount + tax
func priceLine(l *LineItem) error {
	if !l.Quantity.IsPositive() {
		return apperror.NewValidation("quantity must be positive").WithDetail("product_id", l.ProductID)
	}
	if l.UnitPrice.IsNegative() {
		return apperror.NewValidation("unit price must not be negative").WithDetail("product_id", l.ProductID)
	}
	if l.Discount.Amount.IsNegative() {
		return apperror.NewValidation("discount must not be negative").WithDetail("product_id", l.ProductID)
	}
	if l.Discount.Percentage.IsNegative() || l.Discount.Percentage.GreaterThan(hundred) {
		return apperror.NewValidation("discount percentage must be between 0 and 100").WithDetail("product_id", l.ProductID)
	}
	if l.Discount.Percentage.IsPositive() && l.Discount.Amount.IsPositive() {
		return apperror.NewValidation("discount takes either an amount or a percentage").WithDetail("product_id", l.ProductID)
	}

	l.Subtotal = types.RoundMoney(l.UnitPrice.Mul(l.Quantity.Decimal()))

	discount := types.RoundMoney(l.Discount.Amount)
	if l.Discount.Percentage.IsPositive() {
		discount = types.Percent(l.Subtotal, l.Discount.Percentage)
	}
	l.Discount.Amount = types.MinMoney(discount, l.Subtotal)

	l.Tax.Amount = types.Percent(l.Subtotal.Sub(l.Discount.Amount), l.Tax.Rate)
	l.Total = l.Subtotal.Sub(l.Discount.Amount).Add(l.Tax.Amount)
	return nil
}

// computeTotals sums the already priced lines.
func computeTotals(items []LineItem) Totals {
	t := Totals{
		Subtotal: types.Zero(),
		Discount: types.Zero(),
		Tax:      types.Zero(),
	}
	for i := range items {
		t.Subtotal = t.Subtotal.Add(items[i].Subtotal)
		t.Discount = t.Discount.Add(items[i].Discount.Amount)
		t.Tax = t.Tax.Add(items[i].Tax.Amount)
	}
	t.Total = t.Subtotal.Sub(t.Discount).Add(t.Tax)
	return t
}

// refundAmount is the share of the line total for qty more units.
// The share is rounded cumulatively over everything refunded so far, so
// successive refunds never go negative and a fully refunded line returns
// exactly its total.
func refundAmount(l *LineItem, qty types.Quantity) types.Money {
	refunded := l.RefundedQuantity + qty
	if refunded >= l.Quantity {
		return l.Total.Sub(l.RefundedAmount)
	}
	cumulative := types.RoundMoney(l.Total.Mul(refunded.Decimal()).Div(l.Quantity.Decimal()))
	return cumulative.Sub(l.RefundedAmount)
}

// --- payment ---

// settle recomputes the payment status and change from TotalPaid.
func (p *Payment) settle(total types.Money) {
	switch {
	case p.TotalPaid.GreaterThanOrEqual(total):
		p.Status = PaymentPaid
		p.Change = p.TotalPaid.Sub(total)
	case p.TotalPaid.IsPositive():
		p.Status = PaymentPartial
		p.Change = types.Zero()
	default:
		p.Status = PaymentPending
		p.Change = types.Zero()
	}
}

// deriveMethod is the single method used, or mixed.
func (p *Payment) deriveMethod(fallback PaymentMethod) {
	if len(p.Details) == 0 {
		p.Method = fallback
		return
	}
	method := p.Details[0].Method
	for _, d := range p.Details[1:] {
		if d.Method != method {
			p.Method = MethodMixed
			return
		}
	}
	p.Method = method
}

// addPayment appends a tender to a sale that still has money outstanding.
func (s *Sale) addPayment(detail PaymentDetail) error {
	switch {
	case s.Status == StatusVoided:
		return apperror.NewInvalidState("sale", "sale is voided")
	case s.Status == StatusRefunded:
		return apperror.NewInvalidState("sale", "sale is refunded")
	case s.Payment.Status == PaymentPaid:
		return apperror.NewInvalidState("sale", "sale is already paid").
			WithDetail("receipt_number", s.ReceiptNumber)
	}
	if !detail.Amount.IsPositive() {
		return apperror.NewValidation("payment amount must be positive").WithDetail("field", "amount")
	}
	if !detail.Method.IsValid() {
		return apperror.NewValidation(fmt.Sprintf("unsupported payment method %q", detail.Method)).WithDetail("field", "method")
	}

	s.Payment.Details = append(s.Payment.Details, detail)
	s.Payment.TotalPaid = s.Payment.TotalPaid.Add(detail.Amount)
	s.Payment.deriveMethod(detail.Method)
	s.Payment.settle(s.Totals.Total)
	return nil
}

// --- void / refund ---

func (s *Sale) markVoided(info VoidInfo) error {
	if s.Status == StatusVoided {
		return apperror.NewInvalidState("sale", "sale is already voided")
	}
	if s.HasRefunds() {
		return apperror.NewInvalidState("sale", "sale with refunds cannot be voided").
			WithDetail("total_refunded", s.TotalRefunded().StringFixed(types.MoneyScale))
	}
	if err := s.transition(StatusVoided); err != nil {
		return err
	}
	s.VoidInfo = &info
	return nil
}

// RefundRequest asks for qty units of the line at LineIndex.
type RefundRequest struct {
	LineIndex int
	Quantity  types.Quantity
}

// applyRefund books the refund on the lines and moves the status forward.
// Totals stay untouched; the refunded amount is tracked separately.
func (s *Sale) applyRefund(reqs []RefundRequest, rec RefundRecord) (*RefundRecord, error) {
	if s.Status == StatusVoided {
		return nil, apperror.NewInvalidState("sale", "voided sale cannot be refunded")
	}
	if s.Status == StatusRefunded {
		return nil, apperror.NewInvalidState("sale", "sale is already fully refunded")
	}
	if len(reqs) == 0 {
		return nil, apperror.NewValidation("refund must name at least one item").WithDetail("field", "items")
	}

	// Requested quantities per line, so duplicates in reqs are summed before the bound check.
	requested := make(map[int]types.Quantity, len(reqs))
	order := make([]int, 0, len(reqs))
	for _, r := range reqs {
		if r.LineIndex < 0 || r.LineIndex >= len(s.Items) {
			return nil, apperror.NewValidation("refund references an unknown line").WithDetail("line_index", r.LineIndex)
		}
		if !r.Quantity.IsPositive() {
			return nil, apperror.NewValidation("refund quantity must be positive").WithDetail("line_index", r.LineIndex)
		}
		if _, seen := requested[r.LineIndex]; !seen {
			order = append(order, r.LineIndex)
		}
		sum, err := requested[r.LineIndex].Add(r.Quantity)
		if err != nil {
			return nil, apperror.NewValidation("refund quantity out of range").WithDetail("line_index", r.LineIndex)
		}
		requested[r.LineIndex] = sum
	}

	for _, idx := range order {
		line := &s.Items[idx]
		if requested[idx] > line.RemainingQuantity() {
			return nil, apperror.NewInvalidState("sale", "refund quantity exceeds remaining quantity").
				WithDetail("line_index", idx).
				WithDetail("product_name", line.ProductName).
				WithDetail("requested", requested[idx].String()).
				WithDetail("remaining", line.RemainingQuantity().String())
		}
	}

	rec.Amount = types.Zero()
	rec.Lines = make([]RefundLine, 0, len(order))
	for _, idx := range order {
		line := &s.Items[idx]
		amount := refundAmount(line, requested[idx])
		rec.Lines = append(rec.Lines, RefundLine{
			LineIndex: idx,
			ProductID: line.ProductID,
			Quantity:  requested[idx],
			Amount:    amount,
		})
		rec.Amount = rec.Amount.Add(amount)
	}

	refundable := types.MinMoney(s.Payment.TotalPaid, s.Totals.Total).Sub(s.TotalRefunded())
	if rec.Amount.GreaterThan(refundable) {
		return nil, apperror.NewInvalidState("sale", "refund exceeds the paid amount").
			WithDetail("refund_amount", rec.Amount.StringFixed(types.MoneyScale)).
			WithDetail("refundable", refundable.StringFixed(types.MoneyScale))
	}

	for _, rl := range rec.Lines {
		line := &s.Items[rl.LineIndex]
		line.RefundedQuantity += rl.Quantity
		line.RefundedAmount = line.RefundedAmount.Add(rl.Amount)
	}

	next := StatusRefunded
	for i := range s.Items {
		if s.Items[i].RemainingQuantity().IsPositive() {
			next = StatusPartialRefund
			break
		}
	}
	if err := s.transition(next); err != nil {
		return nil, err
	}

	if s.RefundInfo == nil {
		s.RefundInfo = &RefundInfo{TotalRefunded: types.Zero()}
	}
	s.RefundInfo.TotalRefunded = s.RefundInfo.TotalRefunded.Add(rec.Amount)
	s.RefundInfo.Refunds = append(s.RefundInfo.Refunds, rec)
	return &s.RefundInfo.Refunds[len(s.RefundInfo.Refunds)-1], nil
}
