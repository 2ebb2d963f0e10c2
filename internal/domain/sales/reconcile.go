package sales

import (
	"context"

	"go.opentelemetry.io/otel/attribute"

	"retailpos/internal/core/apperror"
	"retailpos/internal/core/types"
	"retailpos/internal/domain/audit"
	"retailpos/internal/domain/catalogs/product"
	"retailpos/internal/domain/events"
	"retailpos/pkg/logger"
)

// reconcileActor is recorded on movements written by the reconciliation pass.
const reconcileActor = "system:reconciler"

// ReconcileResult summarises one reconciliation pass.
type ReconcileResult struct {
	Scanned int
	Synced  int
	Failed  int
}

// ReconcileInventory applies the stock movements that sale creation had to defer.
// Each pending line is decremented by its quantity minus what was refunded
// since, ignoring the backorder policy because the goods already left.
func (e *Engine) ReconcileInventory(ctx context.Context, limit int) (ReconcileResult, error) {
	ctx, span := tracer.Start(ctx, "sales.reconcile_inventory")
	defer span.End()

	var res ReconcileResult
	pending, err := e.repo.ListPendingInventory(ctx, limit)
	if err != nil {
		return res, err
	}
	res.Scanned = len(pending)
	span.SetAttributes(attribute.Int("reconcile.pending", len(pending)))

	for _, candidate := range pending {
		var applied []string
		sale, err := e.mutate(ctx, candidate.ID, func(ctx context.Context, sale *Sale) error {
			applied = applied[:0]
			if sale.InventorySync != InventoryPending {
				return nil
			}
			for i := range sale.Items {
				line := &sale.Items[i]
				if !line.TrackInventory || line.StockApplied {
					continue
				}
				qty := line.PendingQuantity()
				if sale.Status != StatusVoided && qty.IsPositive() {
					_, err := e.products.ApplyStockDelta(ctx, product.StockDelta{
						ProductID:             line.ProductID,
						Quantity:              qty.Neg(),
						Reason:                product.ReasonReconciliation,
						CorrelationID:         sale.ReceiptNumber,
						ActorID:               reconcileActor,
						IgnoreBackorderPolicy: true,
					})
					if err != nil {
						return err
					}
					applied = append(applied, line.ProductID.String())
				}
				line.StockApplied = true
			}
			sale.refreshInventorySync()
			return e.publish(ctx, events.SaleInventorySynced, sale, reconcileActor, map[string]any{
				"products": applied,
			})
		})
		if err != nil {
			res.Failed++
			level := logger.Warn
			if !apperror.IsAppError(err) {
				level = logger.Error
			}
			level(ctx, "inventory reconciliation failed", "sale_id", candidate.ID, "error", err)
			continue
		}
		res.Synced++

		audit.Emit(ctx, e.audit, audit.Record{
			ActorID:    reconcileActor,
			Action:     audit.ActionReconciled,
			EntityType: "sale",
			EntityID:   sale.ID.String(),
			Details: map[string]any{
				"receipt_number": sale.ReceiptNumber,
				"products":       applied,
			},
		})
	}

	if res.Scanned > 0 {
		logger.Info(ctx, "inventory reconciliation pass finished",
			"scanned", res.Scanned,
			"synced", res.Synced,
			"failed", res.Failed,
		)
	}
	return res, nil
}

// PendingQuantity is the stock a pending line still owes the ledger.
func (l *LineItem) PendingQuantity() types.Quantity {
	if !l.TrackInventory || l.StockApplied {
		return 0
	}
	return l.RemainingQuantity()
}
