// Package events defines domain events written to the transactional outbox.
package events

import (
	"context"

	"retailpos/internal/core/id"
)

// DomainEvent represents an event to be published via outbox.
type DomainEvent struct {
	AggregateType string
	AggregateID   id.ID
	EventType     string
	Payload       any
}

// Publisher writes events inside the caller's transaction.
type Publisher interface {
	Publish(ctx context.Context, event DomainEvent) error
}

// Sale event types.
const (
	SaleCreated          = "sale.created"
	SalePaymentRecorded  = "sale.payment_recorded"
	SaleVoided           = "sale.voided"
	SaleRefunded         = "sale.refunded"
	SaleInventoryPending = "sale.inventory_pending"
	SaleInventorySynced  = "sale.inventory_synced"
)
