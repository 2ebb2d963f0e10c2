package sales

import (
	"fmt"
	"slices"

	"retailpos/internal/core/apperror"
)

// Status is the lifecycle state of a Sale.
type Status string

const (
	StatusCompleted     Status = "completed"
	StatusVoided        Status = "voided"
	StatusPartialRefund Status = "partial_refund"
	StatusRefunded      Status = "refunded"
)

// transitions lists every legal status change. A sale moves forward either
// through void or through refunds, never both.
var transitions = map[Status][]Status{
	StatusCompleted:     {StatusVoided, StatusPartialRefund, StatusRefunded},
	StatusPartialRefund: {StatusPartialRefund, StatusRefunded},
}

// IsValid reports whether s is a known status.
func (s Status) IsValid() bool {
	switch s {
	case StatusCompleted, StatusVoided, StatusPartialRefund, StatusRefunded:
		return true
	}
	return false
}

// CanTransition reports whether from -> to is in the transition table.
func CanTransition(from, to Status) bool {
	return slices.Contains(transitions[from], to)
}

// transition moves the sale to next or reports InvalidState.
func (s *Sale) transition(next Status) error {
	if !CanTransition(s.Status, next) {
		return apperror.NewInvalidState("sale", fmt.Sprintf("cannot move sale from %s to %s", s.Status, next)).
			WithDetail("from", s.Status).
			WithDetail("to", next)
	}
	s.Status = next
	return nil
}

// ReportableStatuses are the statuses counted as revenue by reports.
func ReportableStatuses() []Status {
	return []Status{StatusCompleted, StatusPartialRefund}
}

// PaymentStatus tracks how much of the total has been collected.
type PaymentStatus string

const (
	PaymentPending PaymentStatus = "pending"
	PaymentPartial PaymentStatus = "partial"
	PaymentPaid    PaymentStatus = "paid"
)

// InventorySync reports whether every tracked line has its stock movement.
type InventorySync string

const (
	InventorySynced  InventorySync = "synced"
	InventoryPending InventorySync = "pending"
)
