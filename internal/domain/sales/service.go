package sales

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"retailpos/internal/core/apperror"
	appctx "retailpos/internal/core/context"
	"retailpos/internal/core/entity"
	"retailpos/internal/core/id"
	"retailpos/internal/core/numerator"
	"retailpos/internal/core/tx"
	"retailpos/internal/core/types"
	"retailpos/internal/domain"
	"retailpos/internal/domain/audit"
	"retailpos/internal/domain/catalogs/customer"
	"retailpos/internal/domain/catalogs/product"
	"retailpos/internal/domain/events"
	"retailpos/pkg/logger"
)

var tracer = otel.Tracer("retailpos/sales")

// ProductLedger is the inventory side of the workflow.
type ProductLedger interface {
	GetByID(ctx context.Context, id id.ID) (*product.Product, error)
	EffectivePrice(ctx context.Context, p *product.Product, at time.Time) types.Money
	ApplyStockDelta(ctx context.Context, d product.StockDelta) (types.Quantity, error)
}

// CustomerStats is the customer side of the workflow.
type CustomerStats interface {
	GetByID(ctx context.Context, id id.ID) (*customer.Customer, error)
	RecordOrder(ctx context.Context, customerID id.ID, amount types.Money, items []customer.ProductCount) error
	AdjustSpend(ctx context.Context, customerID id.ID, delta types.Money) error
	ChargeCredit(ctx context.Context, charge customer.CreditCharge) (*customer.CreditTransaction, error)
}

// Config tunes the Engine.
type Config struct {
	// ReceiptPrefix starts every receipt number, e.g. "RCP".
	ReceiptPrefix string
	Numbering     *numerator.Options
	// MutationAttempts bounds retries of payment/void/refund on version conflicts.
	MutationAttempts int
}

// DefaultConfig returns RCP-prefixed strict numbering and three mutation attempts.
func DefaultConfig() Config {
	return Config{
		ReceiptPrefix:    "RCP",
		Numbering:        numerator.DefaultOptions(),
		MutationAttempts: 3,
	}
}

// Engine orchestrates sale creation, payment, void and refund across the
// Sale aggregate, the inventory ledger and customer statistics. Every
// operation runs in one transaction; audit records are written after commit.
type Engine struct {
	repo      Repository
	products  ProductLedger
	customers CustomerStats
	events    events.Publisher
	audit     audit.Sink
	numerator numerator.Generator
	txManager tx.Manager
	cfg       Config
	now       func() time.Time
}

// Deps are the collaborators of the Engine.
type Deps struct {
	Repo      Repository
	Products  ProductLedger
	Customers CustomerStats
	Events    events.Publisher
	Audit     audit.Sink
	Numerator numerator.Generator
	TxManager tx.Manager
}

// NewEngine creates a new sale workflow engine.
func NewEngine(deps Deps, cfg Config) *Engine {
	if cfg.ReceiptPrefix == "" {
		cfg.ReceiptPrefix = "RCP"
	}
	if cfg.Numbering == nil {
		cfg.Numbering = numerator.DefaultOptions()
	}
	if cfg.MutationAttempts <= 0 {
		cfg.MutationAttempts = 3
	}
	return &Engine{
		repo:      deps.Repo,
		products:  deps.Products,
		customers: deps.Customers,
		events:    deps.Events,
		audit:     deps.Audit,
		numerator: deps.Numerator,
		txManager: deps.TxManager,
		cfg:       cfg,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// draft is the common input of Create and QuickSale.
type draft struct {
	items      []ItemInput
	customerID *id.ID
	payments   []PaymentDetailInput
	method     PaymentMethod
	metadata   Metadata
	// minPayment requires the payments to cover the total.
	minPayment bool
	action     string
}

// Create records a sale with optional customer and any number of tenders.
func (e *Engine) Create(ctx context.Context, cmd CreateCommand) (*Sale, error) {
	if err := validateItems(cmd.Items); err != nil {
		return nil, err
	}
	if err := cmd.Payment.validate(); err != nil {
		return nil, err
	}
	if cmd.CustomerID == nil {
		for _, p := range cmd.Payment.Details {
			if p.Method == MethodStoreCredit {
				return nil, apperror.NewValidation("store credit requires a customer").WithDetail("field", "customerId")
			}
		}
	}
	if cmd.Metadata.Source == "" {
		cmd.Metadata.Source = SourcePOS
	}
	method := cmd.Payment.Method
	if method == "" {
		method = MethodCash
	}
	return e.create(ctx, draft{
		items:      cmd.Items,
		customerID: cmd.CustomerID,
		payments:   cmd.Payment.Details,
		method:     method,
		metadata:   cmd.Metadata,
		action:     audit.ActionSaleCreated,
	})
}

// QuickSale records a cash sale paid with paymentAmount; change = paymentAmount - total.
func (e *Engine) QuickSale(ctx context.Context, cmd QuickSaleCommand) (*Sale, error) {
	if err := validateItems(cmd.Items); err != nil {
		return nil, err
	}
	if !cmd.PaymentAmount.IsPositive() {
		return nil, apperror.NewValidation("payment amount must be positive").WithDetail("field", "paymentAmount")
	}
	cmd.Metadata.Source = SourceQuick
	return e.create(ctx, draft{
		items:      cmd.Items,
		payments:   []PaymentDetailInput{{Method: MethodCash, Amount: cmd.PaymentAmount}},
		method:     MethodCash,
		metadata:   cmd.Metadata,
		minPayment: true,
		action:     audit.ActionQuickSale,
	})
}

func (e *Engine) create(ctx context.Context, d draft) (*Sale, error) {
	ctx, span := tracer.Start(ctx, "sales.create", trace.WithAttributes(
		attribute.Int("sale.items", len(d.items)),
		attribute.String("sale.source", d.metadata.Source),
	))
	defer span.End()

	actorID, err := requireActor(ctx)
	if err != nil {
		return nil, err
	}
	if d.metadata.DeviceID == "" {
		if u := appctx.GetUser(ctx); u != nil {
			d.metadata.DeviceID = u.DeviceID
		}
	}

	now := e.now()
	receipt, err := e.numerator.GetNextNumber(ctx, numerator.DefaultConfig(e.cfg.ReceiptPrefix), e.cfg.Numbering, now)
	if err != nil {
		return nil, fmt.Errorf("generate receipt number: %w", err)
	}

	sale := &Sale{
		BaseEntity:    entity.NewBaseEntity(),
		ReceiptNumber: receipt,
		CustomerID:    d.customerID,
		Status:        StatusCompleted,
		SellerID:      actorID,
		Metadata:      d.metadata,
		InventorySync: InventorySynced,
		Payment: Payment{
			TotalPaid: types.Zero(),
			Change:    types.Zero(),
			Details:   []PaymentDetail{},
		},
	}
	span.SetAttributes(attribute.String("sale.id", sale.ID.String()), attribute.String("sale.receipt", receipt))

	err = e.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		if d.customerID != nil {
			if _, err := e.customers.GetByID(ctx, *d.customerID); err != nil {
				return err
			}
		}

		items, err := e.buildLines(ctx, d.items, now)
		if err != nil {
			return err
		}
		sale.Items = items
		sale.Totals = computeTotals(items)

		for _, p := range d.payments {
			sale.Payment.Details = append(sale.Payment.Details, PaymentDetail{
				Method:    p.Method,
				Amount:    p.Amount,
				Reference: p.Reference,
				PaidAt:    now,
			})
			sale.Payment.TotalPaid = sale.Payment.TotalPaid.Add(p.Amount)
		}
		sale.Payment.deriveMethod(d.method)
		sale.Payment.settle(sale.Totals.Total)

		if d.minPayment && sale.Payment.TotalPaid.LessThan(sale.Totals.Total) {
			return apperror.NewValidation("payment amount is less than the sale total").
				WithDetail("total", sale.Totals.Total.StringFixed(types.MoneyScale)).
				WithDetail("payment_amount", sale.Payment.TotalPaid.StringFixed(types.MoneyScale))
		}
		if err := sale.Validate(ctx); err != nil {
			return err
		}

		if err := e.applySaleStock(ctx, sale, actorID); err != nil {
			return err
		}

		if err := e.repo.Create(ctx, sale); err != nil {
			return fmt.Errorf("persist sale: %w", err)
		}

		for _, p := range sale.Payment.Details {
			if p.Method != MethodStoreCredit {
				continue
			}
			if err := e.chargeStoreCredit(ctx, sale, p, actorID); err != nil {
				return err
			}
		}

		if sale.CustomerID != nil {
			if err := e.customers.RecordOrder(ctx, *sale.CustomerID, sale.Totals.Total, productCounts(sale.Items)); err != nil {
				return fmt.Errorf("record customer order: %w", err)
			}
		}

		if err := e.publish(ctx, events.SaleCreated, sale, actorID, nil); err != nil {
			return err
		}
		if sale.InventorySync == InventoryPending {
			return e.publish(ctx, events.SaleInventoryPending, sale, actorID, nil)
		}
		return nil
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	logger.Info(ctx, "sale created",
		"sale_id", sale.ID,
		"receipt_number", sale.ReceiptNumber,
		"total", sale.Totals.Total.StringFixed(types.MoneyScale),
		"inventory_sync", sale.InventorySync,
	)

	audit.Emit(ctx, e.audit, audit.Record{
		ActorID:    actorID,
		Action:     d.action,
		EntityType: "sale",
		EntityID:   sale.ID.String(),
		Severity:   audit.SeverityInfo,
		Details: map[string]any{
			"receipt_number": sale.ReceiptNumber,
			"total":          sale.Totals.Total.StringFixed(types.MoneyScale),
			"item_count":     sale.ItemCount(),
			"payment_method": sale.Payment.Method,
			"inventory_sync": sale.InventorySync,
		},
	})

	return sale, nil
}

// buildLines resolves products, snapshots name and price, prices each line
// and checks stock for the whole sale before anything is written.
func (e *Engine) buildLines(ctx context.Context, inputs []ItemInput, at time.Time) ([]LineItem, error) {
	products := make(map[id.ID]*product.Product, len(inputs))
	needed := make(map[id.ID]types.Quantity, len(inputs))
	items := make([]LineItem, 0, len(inputs))

	for i, in := range inputs {
		p, ok := products[in.ProductID]
		if !ok {
			var err error
			p, err = e.products.GetByID(ctx, in.ProductID)
			if err != nil {
				if apperror.IsNotFound(err) {
					return nil, apperror.NewNotFound("product", in.ProductID.String()).WithDetail("item_index", i)
				}
				return nil, fmt.Errorf("load product %s: %w", in.ProductID, err)
			}
			products[in.ProductID] = p
		}
		if !p.IsActive {
			return nil, apperror.NewInvalidState("product", fmt.Sprintf("product %q is inactive", p.Name)).
				WithDetail("product_id", p.ID.String()).
				WithDetail("item_index", i)
		}

		sum, err := needed[p.ID].Add(in.Quantity)
		if err != nil {
			return nil, apperror.NewValidation(fmt.Sprintf("item %d: quantity out of range", i)).WithDetail("item_index", i)
		}
		needed[p.ID] = sum
		if !p.CanFulfil(needed[p.ID]) {
			return nil, apperror.NewInsufficientStock(p.ID.String(), p.Name, needed[p.ID], p.CurrentStock)
		}

		unitPrice := e.products.EffectivePrice(ctx, p, at)
		if in.UnitPriceOverride != nil {
			unitPrice = *in.UnitPriceOverride
		}

		line := LineItem{
			ProductID:      p.ID,
			ProductName:    p.Name,
			SKU:            p.SKU,
			Quantity:       in.Quantity,
			UnitPrice:      unitPrice,
			Discount:       in.Discount,
			Tax:            Tax{Rate: p.TaxRate},
			TrackInventory: p.TrackInventory,
			RefundedAmount: types.Zero(),
		}
		if err := priceLine(&line); err != nil {
			return nil, err
		}
		items = append(items, line)
	}
	return items, nil
}

// applySaleStock decrements stock for every tracked line. Each line runs in
// its own savepoint: business failures abort the sale, infrastructure
// failures leave the line pending for reconciliation.
func (e *Engine) applySaleStock(ctx context.Context, sale *Sale, actorID string) error {
	for i := range sale.Items {
		line := &sale.Items[i]
		if !line.TrackInventory {
			continue
		}
		err := e.txManager.RunInSavepoint(ctx, func(ctx context.Context) error {
			_, err := e.products.ApplyStockDelta(ctx, product.StockDelta{
				ProductID:     line.ProductID,
				Quantity:      line.Quantity.Neg(),
				Reason:        product.ReasonSale,
				CorrelationID: sale.ReceiptNumber,
				ActorID:       actorID,
			})
			return err
		})
		switch {
		case err == nil:
			line.StockApplied = true
		case apperror.IsAppError(err) || ctx.Err() != nil:
			return err
		default:
			line.StockApplied = false
			logger.Warn(ctx, "inventory sync deferred",
				"receipt_number", sale.ReceiptNumber,
				"product_id", line.ProductID,
				"quantity", line.Quantity.String(),
				"error", err,
			)
		}
	}
	sale.refreshInventorySync()
	return nil
}

func (e *Engine) chargeStoreCredit(ctx context.Context, sale *Sale, p PaymentDetail, actorID string) error {
	if sale.CustomerID == nil {
		return apperror.NewValidation("store credit requires a customer").WithDetail("field", "customerId")
	}
	_, err := e.customers.ChargeCredit(ctx, customer.CreditCharge{
		CustomerID: *sale.CustomerID,
		Amount:     p.Amount,
		SaleID:     sale.ID,
		Reference:  sale.ReceiptNumber,
		ActorID:    actorID,
	})
	return err
}

// RecordPayment appends a tender to a sale that is not fully paid.
func (e *Engine) RecordPayment(ctx context.Context, cmd PaymentCommand) (*Sale, error) {
	ctx, span := tracer.Start(ctx, "sales.record_payment", trace.WithAttributes(
		attribute.String("sale.id", cmd.SaleID.String()),
	))
	defer span.End()

	actorID, err := requireActor(ctx)
	if err != nil {
		return nil, err
	}
	if !cmd.Amount.IsPositive() {
		return nil, apperror.NewValidation("payment amount must be positive").WithDetail("field", "amount")
	}

	var detail PaymentDetail
	sale, err := e.mutate(ctx, cmd.SaleID, func(ctx context.Context, sale *Sale) error {
		detail = PaymentDetail{
			Method:    cmd.Method,
			Amount:    cmd.Amount,
			Reference: cmd.Reference,
			PaidAt:    e.now(),
		}
		if err := sale.addPayment(detail); err != nil {
			return err
		}
		if detail.Method == MethodStoreCredit {
			if err := e.chargeStoreCredit(ctx, sale, detail, actorID); err != nil {
				return err
			}
		}
		return e.publish(ctx, events.SalePaymentRecorded, sale, actorID, map[string]any{
			"method": detail.Method,
			"amount": detail.Amount.StringFixed(types.MoneyScale),
		})
	})
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	audit.Emit(ctx, e.audit, audit.Record{
		ActorID:    actorID,
		Action:     audit.ActionPaymentRecorded,
		EntityType: "sale",
		EntityID:   sale.ID.String(),
		Details: map[string]any{
			"receipt_number": sale.ReceiptNumber,
			"method":         detail.Method,
			"amount":         detail.Amount.StringFixed(types.MoneyScale),
			"payment_status": sale.Payment.Status,
			"total_paid":     sale.Payment.TotalPaid.StringFixed(types.MoneyScale),
		},
	})
	return sale, nil
}

// Void reverses a sale that has no refunds. Stock of applied lines is
// returned and the customer's spend is reduced by the sale total; the
// order count and favorite products stay as they were. Store-credit charges
// are left on the customer's balance and settled through SettleCredit.
func (e *Engine) Void(ctx context.Context, cmd VoidCommand) (*Sale, error) {
	ctx, span := tracer.Start(ctx, "sales.void", trace.WithAttributes(
		attribute.String("sale.id", cmd.SaleID.String()),
	))
	defer span.End()

	actorID, err := requireActor(ctx)
	if err != nil {
		return nil, err
	}

	sale, err := e.mutate(ctx, cmd.SaleID, func(ctx context.Context, sale *Sale) error {
		if err := sale.markVoided(VoidInfo{VoidedBy: actorID, VoidedAt: e.now(), Reason: cmd.Reason}); err != nil {
			return err
		}

		for i := range sale.Items {
			line := &sale.Items[i]
			if !line.TrackInventory {
				continue
			}
			if line.StockApplied {
				_, err := e.products.ApplyStockDelta(ctx, product.StockDelta{
					ProductID:     line.ProductID,
					Quantity:      line.Quantity,
					Reason:        product.ReasonVoid,
					CorrelationID: sale.ReceiptNumber,
					ActorID:       actorID,
					Note:          cmd.Reason,
				})
				if err != nil {
					return fmt.Errorf("restock %s: %w", line.ProductName, err)
				}
			}
			// A pending line never left the shelf in the ledger; voiding settles it at zero.
			line.StockApplied = true
		}
		sale.refreshInventorySync()

		if sale.CustomerID != nil {
			if err := e.customers.AdjustSpend(ctx, *sale.CustomerID, sale.Totals.Total.Neg()); err != nil {
				return fmt.Errorf("reverse customer spend: %w", err)
			}
		}
		return e.publish(ctx, events.SaleVoided, sale, actorID, map[string]any{"reason": cmd.Reason})
	})
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	audit.Emit(ctx, e.audit, audit.Record{
		ActorID:    actorID,
		Action:     audit.ActionSaleVoided,
		EntityType: "sale",
		EntityID:   sale.ID.String(),
		Severity:   audit.SeverityWarning,
		Details: map[string]any{
			"receipt_number": sale.ReceiptNumber,
			"total":          sale.Totals.Total.StringFixed(types.MoneyScale),
			"reason":         cmd.Reason,
		},
	})
	return sale, nil
}

// Refund returns part or all of a sale. Each line gives back its share of
// the original line total, tax and discount included.
func (e *Engine) Refund(ctx context.Context, cmd RefundCommand) (*Sale, *RefundRecord, error) {
	ctx, span := tracer.Start(ctx, "sales.refund", trace.WithAttributes(
		attribute.String("sale.id", cmd.SaleID.String()),
	))
	defer span.End()

	actorID, err := requireActor(ctx)
	if err != nil {
		return nil, nil, err
	}
	if err := cmd.validate(); err != nil {
		return nil, nil, err
	}

	var record RefundRecord
	sale, err := e.mutate(ctx, cmd.SaleID, func(ctx context.Context, sale *Sale) error {
		reqs, err := sale.resolveRefundLines(cmd.Items)
		if err != nil {
			return err
		}
		rec, err := sale.applyRefund(reqs, RefundRecord{
			ID:         id.New(),
			RefundedBy: actorID,
			RefundedAt: e.now(),
			Reason:     cmd.Reason,
		})
		if err != nil {
			return err
		}
		record = *rec

		for _, rl := range rec.Lines {
			line := &sale.Items[rl.LineIndex]
			// Pending lines are reconciled later for quantity minus refunded quantity.
			if !line.TrackInventory || !line.StockApplied {
				continue
			}
			_, err := e.products.ApplyStockDelta(ctx, product.StockDelta{
				ProductID:     line.ProductID,
				Quantity:      rl.Quantity,
				Reason:        product.ReasonRefund,
				CorrelationID: sale.ReceiptNumber,
				ActorID:       actorID,
				Note:          cmd.Reason,
			})
			if err != nil {
				return fmt.Errorf("restock %s: %w", line.ProductName, err)
			}
		}

		if sale.CustomerID != nil {
			if err := e.customers.AdjustSpend(ctx, *sale.CustomerID, rec.Amount.Neg()); err != nil {
				return fmt.Errorf("reduce customer spend: %w", err)
			}
		}
		return e.publish(ctx, events.SaleRefunded, sale, actorID, map[string]any{
			"refund_id": rec.ID,
			"amount":    rec.Amount.StringFixed(types.MoneyScale),
			"reason":    cmd.Reason,
		})
	})
	if err != nil {
		span.RecordError(err)
		return nil, nil, err
	}

	audit.Emit(ctx, e.audit, audit.Record{
		ActorID:    actorID,
		Action:     audit.ActionSaleRefunded,
		EntityType: "sale",
		EntityID:   sale.ID.String(),
		Severity:   audit.SeverityWarning,
		Details: map[string]any{
			"receipt_number": sale.ReceiptNumber,
			"refund_amount":  record.Amount.StringFixed(types.MoneyScale),
			"total_refunded": sale.TotalRefunded().StringFixed(types.MoneyScale),
			"status":         sale.Status,
			"reason":         cmd.Reason,
		},
	})
	return sale, &record, nil
}

// mutate loads a sale, applies fn and saves it in one transaction,
// retrying the whole transaction on an optimistic-lock conflict.
func (e *Engine) mutate(ctx context.Context, saleID id.ID, fn func(ctx context.Context, sale *Sale) error) (*Sale, error) {
	for attempt := 1; ; attempt++ {
		var sale *Sale
		err := e.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
			s, err := e.getSale(ctx, saleID)
			if err != nil {
				return err
			}
			if err := fn(ctx, s); err != nil {
				return err
			}
			s.UpdatedAt = e.now()
			if err := e.repo.Update(ctx, s); err != nil {
				return err
			}
			sale = s
			return nil
		})
		if err == nil {
			return sale, nil
		}
		if !apperror.IsConcurrentModification(err) || attempt >= e.cfg.MutationAttempts {
			return nil, err
		}
		logger.Debug(ctx, "sale version conflict, retrying", "sale_id", saleID, "attempt", attempt)
	}
}

func (e *Engine) getSale(ctx context.Context, saleID id.ID) (*Sale, error) {
	sale, err := e.repo.GetByID(ctx, saleID)
	if err != nil {
		if apperror.IsNotFound(err) {
			return nil, apperror.NewNotFound("sale", saleID.String())
		}
		return nil, fmt.Errorf("load sale: %w", err)
	}
	return sale, nil
}

// Get returns a sale by ID.
func (e *Engine) Get(ctx context.Context, saleID id.ID) (*Sale, error) {
	return e.getSale(ctx, saleID)
}

// GetByReceipt returns a sale by its receipt number.
func (e *Engine) GetByReceipt(ctx context.Context, receiptNumber string) (*Sale, error) {
	sale, err := e.repo.GetByReceipt(ctx, receiptNumber)
	if err != nil {
		if apperror.IsNotFound(err) {
			return nil, apperror.NewNotFound("sale", receiptNumber)
		}
		return nil, fmt.Errorf("load sale: %w", err)
	}
	return sale, nil
}

// List returns sales matching filter, newest first.
func (e *Engine) List(ctx context.Context, filter ListFilter) (domain.ListResult[*Sale], error) {
	filter.Normalize()
	for _, st := range filter.Statuses {
		if !st.IsValid() {
			return domain.ListResult[*Sale]{}, apperror.NewValidation("unknown sale status").WithDetail("status", st)
		}
	}
	return e.repo.List(ctx, filter)
}

// saleEvent is the outbox payload of sale events.
type saleEvent struct {
	SaleID        id.ID          `json:"saleId"`
	ReceiptNumber string         `json:"receiptNumber"`
	Status        Status         `json:"status"`
	PaymentStatus PaymentStatus  `json:"paymentStatus"`
	Total         string         `json:"total"`
	NetTotal      string         `json:"netTotal"`
	CustomerID    *id.ID         `json:"customerId,omitempty"`
	ActorID       string         `json:"actorId"`
	InventorySync InventorySync  `json:"inventorySync"`
	Extra         map[string]any `json:"extra,omitempty"`
}

func (e *Engine) publish(ctx context.Context, eventType string, sale *Sale, actorID string, extra map[string]any) error {
	if e.events == nil {
		return nil
	}
	err := e.events.Publish(ctx, events.DomainEvent{
		AggregateType: "sale",
		AggregateID:   sale.ID,
		EventType:     eventType,
		Payload: saleEvent{
			SaleID:        sale.ID,
			ReceiptNumber: sale.ReceiptNumber,
			Status:        sale.Status,
			PaymentStatus: sale.Payment.Status,
			Total:         sale.Totals.Total.StringFixed(types.MoneyScale),
			NetTotal:      sale.NetTotal().StringFixed(types.MoneyScale),
			CustomerID:    sale.CustomerID,
			ActorID:       actorID,
			InventorySync: sale.InventorySync,
			Extra:         extra,
		},
	})
	if err != nil {
		return fmt.Errorf("publish %s: %w", eventType, err)
	}
	return nil
}

func requireActor(ctx context.Context) (string, error) {
	actorID := appctx.GetUserID(ctx)
	if actorID == "" {
		return "", apperror.NewUnauthorized("authenticated actor is required")
	}
	return actorID, nil
}

func productCounts(items []LineItem) []customer.ProductCount {
	out := make([]customer.ProductCount, 0, len(items))
	for _, l := range items {
		out = append(out, customer.ProductCount{ProductID: l.ProductID, Quantity: l.Quantity})
	}
	return out
}
