// Package audit defines the activity record emitted by the sale workflow and the sink it is written to.
package audit

import (
	"context"
	"time"

	"retailpos/pkg/logger"
)

// Severity classifies an audit record.
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// Action names written by the sale workflow.
const (
	ActionSaleCreated     = "sale.create"
	ActionQuickSale       = "sale.quick"
	ActionPaymentRecorded = "sale.payment"
	ActionSaleVoided      = "sale.void"
	ActionSaleRefunded    = "sale.refund"
	ActionStockAdjusted   = "product.stock_adjust"
	ActionProductCreated  = "product.create"
	ActionProductUpdated  = "product.update"
	ActionReconciled      = "sale.inventory_reconcile"
)

// Record is one activity-log entry.
type Record struct {
	ActorID    string         `json:"actorId"`
	Action     string         `json:"action"`
	EntityType string         `json:"entityType"`
	EntityID   string         `json:"entityId"`
	Severity   Severity       `json:"severity"`
	Details    map[string]any `json:"details,omitempty"`
	CreatedAt  time.Time      `json:"createdAt"`
}

// Sink persists audit records.
type Sink interface {
	Record(ctx context.Context, rec Record) error
}

// Emit writes rec to sink on a best-effort basis.
// A failing or missing sink is logged and never returned to the caller.
func Emit(ctx context.Context, sink Sink, rec Record) {
	if sink == nil {
		return
	}
	if rec.Severity == "" {
		rec.Severity = SeverityInfo
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}

	if err := sink.Record(ctx, rec); err != nil {
		logger.Warn(ctx, "audit record dropped",
			"action", rec.Action,
			"entity_type", rec.EntityType,
			"entity_id", rec.EntityID,
			"error", err,
		)
	}
}

// History reads back the activity of one entity, newest first.
type History interface {
	History(ctx context.Context, entityType, entityID string, limit int) ([]Record, error)
}
