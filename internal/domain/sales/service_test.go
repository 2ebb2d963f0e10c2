package sales_test

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"retailpos/internal/core/apperror"
	appctx "retailpos/internal/core/context"
	"retailpos/internal/core/id"
	"retailpos/internal/core/types"
	"retailpos/internal/domain/audit"
	"retailpos/internal/domain/catalogs/customer"
	"retailpos/internal/domain/catalogs/product"
	"retailpos/internal/domain/events"
	"retailpos/internal/domain/sales"
	"retailpos/internal/infrastructure/storage/memory"
)

// flakyLedger fails sale movements with an infrastructure error while failing is set.
type flakyLedger struct {
	*product.Service
	failing atomic.Bool
}

func (l *flakyLedger) ApplyStockDelta(ctx context.Context, d product.StockDelta) (types.Quantity, error) {
	if l.failing.Load() && d.Reason == product.ReasonSale {
		return 0, errors.New("ledger unavailable")
	}
	return l.Service.ApplyStockDelta(ctx, d)
}

type fixture struct {
	ctx       context.Context
	store     *memory.Store
	products  *product.Service
	ledger    *flakyLedger
	customers *customer.Service
	engine    *sales.Engine
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	store := memory.NewStore()
	pricing, err := product.NewPricingEngine()
	require.NoError(t, err)

	products := product.NewService(store.Products, store.Tx, pricing, product.WithAuditSink(store.Audit))
	ledger := &flakyLedger{Service: products}
	customers := customer.NewService(store.Customers, store.Tx)

	engine := sales.NewEngine(sales.Deps{
		Repo:      store.Sales,
		Products:  ledger,
		Customers: customers,
		Events:    store.Outbox,
		Audit:     store.Audit,
		Numerator: store.Numerator,
		TxManager: store.Tx,
	}, sales.DefaultConfig())

	ctx := appctx.WithUser(context.Background(), &appctx.UserContext{
		UserID:   "cashier-1",
		Roles:    []string{appctx.RoleCashier},
		DeviceID: "till-3",
	})

	return &fixture{
		ctx:       ctx,
		store:     store,
		products:  products,
		ledger:    ledger,
		customers: customers,
		engine:    engine,
	}
}

func (f *fixture) product(t *testing.T, sku, price string, stock int64, opts ...func(*product.Product)) *product.Product {
	t.Helper()
	p := product.NewProduct(sku, "Product "+sku, types.MustMoney(price))
	p.CurrentStock = types.NewQuantity(stock)
	for _, opt := range opts {
		opt(p)
	}
	require.NoError(t, f.products.Create(f.ctx, p))
	return p
}

func (f *fixture) customer(t *testing.T, name string, opts ...func(*customer.Customer)) *customer.Customer {
	t.Helper()
	c := customer.NewCustomer(name)
	for _, opt := range opts {
		opt(c)
	}
	require.NoError(t, f.customers.Create(f.ctx, c))
	return c
}

func (f *fixture) stock(t *testing.T, productID id.ID) types.Quantity {
	t.Helper()
	p, err := f.products.GetByID(f.ctx, productID)
	require.NoError(t, err)
	return p.CurrentStock
}

func (f *fixture) stats(t *testing.T, customerID id.ID) customer.Statistics {
	t.Helper()
	c, err := f.customers.GetByID(f.ctx, customerID)
	require.NoError(t, err)
	return c.Statistics
}

func (f *fixture) eventTypes() []string {
	var out []string
	for _, e := range f.store.Outbox.Events() {
		out = append(out, e.EventType)
	}
	return out
}

func item(p *product.Product, qty int64) sales.ItemInput {
	return sales.ItemInput{ProductID: p.ID, Quantity: types.NewQuantity(qty)}
}

func cash(amount string) sales.PaymentInput {
	return sales.PaymentInput{Details: []sales.PaymentDetailInput{{Method: sales.MethodCash, Amount: types.MustMoney(amount)}}}
}

func lineIndex(i int) *int { return &i }

func assertMoney(t *testing.T, want string, got types.Money, msgAndArgs ...any) {
	t.Helper()
	assert.Equal(t, want, got.StringFixed(types.MoneyScale), msgAndArgs...)
}

func withTax(rate int64) func(*product.Product) {
	return func(p *product.Product) { p.TaxRate = decimal.NewFromInt(rate) }
}

func TestCreate_TotalsAndStock(t *testing.T) {
	f := newFixture(t)
	coffee := f.product(t, "cof-1", "10.00", 10, withTax(16))
	bread := f.product(t, "brd-1", "5.50", 10)

	sale, err := f.engine.Create(f.ctx, sales.CreateCommand{
		Items: []sales.ItemInput{
			{ProductID: coffee.ID, Quantity: types.NewQuantity(3), Discount: sales.Discount{Percentage: decimal.NewFromInt(10)}},
			{ProductID: bread.ID, Quantity: types.NewQuantity(2), Discount: sales.Discount{Amount: types.MustMoney("1.00")}},
		},
	})
	require.NoError(t, err)

	require.Len(t, sale.Items, 2)
	assertMoney(t, "30.00", sale.Items[0].Subtotal)
	assertMoney(t, "3.00", sale.Items[0].Discount.Amount)
	assertMoney(t, "4.32", sale.Items[0].Tax.Amount)
	assertMoney(t, "31.32", sale.Items[0].Total)
	assertMoney(t, "10.00", sale.Items[1].Total)

	assertMoney(t, "41.00", sale.Totals.Subtotal)
	assertMoney(t, "4.00", sale.Totals.Discount)
	assertMoney(t, "4.32", sale.Totals.Tax)
	assertMoney(t, "41.32", sale.Totals.Total)
	assert.True(t, sale.Totals.Total.Equal(sale.Totals.Subtotal.Sub(sale.Totals.Discount).Add(sale.Totals.Tax)))

	assert.Equal(t, sales.StatusCompleted, sale.Status)
	assert.Equal(t, sales.PaymentPending, sale.Payment.Status)
	assert.Equal(t, sales.MethodCash, sale.Payment.Method)
	assert.Equal(t, sales.InventorySynced, sale.InventorySync)
	assert.Equal(t, "cashier-1", sale.SellerID)
	assert.Equal(t, sales.SourcePOS, sale.Metadata.Source)
	assert.Equal(t, "till-3", sale.Metadata.DeviceID)

	assert.Equal(t, types.NewQuantity(7), f.stock(t, coffee.ID))
	assert.Equal(t, types.NewQuantity(8), f.stock(t, bread.ID))

	movements, err := f.products.Movements(f.ctx, coffee.ID, 10, 0)
	require.NoError(t, err)
	require.Len(t, movements, 1)
	assert.Equal(t, product.ReasonSale, movements[0].Reason)
	assert.Equal(t, sale.ReceiptNumber, movements[0].CorrelationID)
	assert.Equal(t, types.NewQuantity(-3), movements[0].Quantity)

	assert.Equal(t, []string{events.SaleCreated}, f.eventTypes())
	records := f.store.Audit.Records()
	require.NotEmpty(t, records)
	assert.Equal(t, audit.ActionSaleCreated, records[len(records)-1].Action)
}

func TestCreate_ReceiptNumbersAreSequential(t *testing.T) {
	f := newFixture(t)
	p := f.product(t, "sku-1", "1.00", 100)

	first, err := f.engine.Create(f.ctx, sales.CreateCommand{Items: []sales.ItemInput{item(p, 1)}})
	require.NoError(t, err)
	second, err := f.engine.Create(f.ctx, sales.CreateCommand{Items: []sales.ItemInput{item(p, 1)}})
	require.NoError(t, err)

	year := time.Now().UTC().Format("2006")
	assert.Equal(t, fmt.Sprintf("RCP-%s-00001", year), first.ReceiptNumber)
	assert.Equal(t, fmt.Sprintf("RCP-%s-00002", year), second.ReceiptNumber)

	found, err := f.engine.GetByReceipt(f.ctx, second.ReceiptNumber)
	require.NoError(t, err)
	assert.Equal(t, second.ID, found.ID)
}

func TestCreate_InsufficientStockLeavesNoTrace(t *testing.T) {
	f := newFixture(t)
	p := f.product(t, "sku-1", "2.00", 5)

	_, err := f.engine.Create(f.ctx, sales.CreateCommand{Items: []sales.ItemInput{item(p, 6)}})
	require.Error(t, err)
	assert.True(t, apperror.IsInsufficientStock(err))

	assert.Equal(t, types.NewQuantity(5), f.stock(t, p.ID))
	list, err := f.engine.List(f.ctx, sales.ListFilter{})
	require.NoError(t, err)
	assert.Zero(t, list.TotalCount)
	assert.Empty(t, f.store.Outbox.Events())
}

func TestCreate_CumulativeQuantityAcrossLines(t *testing.T) {
	f := newFixture(t)
	p := f.product(t, "sku-1", "2.00", 5)

	_, err := f.engine.Create(f.ctx, sales.CreateCommand{Items: []sales.ItemInput{item(p, 3), item(p, 3)}})
	assert.True(t, apperror.IsInsufficientStock(err))
	assert.Equal(t, types.NewQuantity(5), f.stock(t, p.ID))
}

func TestCreate_BackorderAllowsNegativeStock(t *testing.T) {
	f := newFixture(t)
	p := f.product(t, "sku-1", "2.00", 1, func(p *product.Product) { p.AllowBackorder = true })

	_, err := f.engine.Create(f.ctx, sales.CreateCommand{Items: []sales.ItemInput{item(p, 3)}})
	require.NoError(t, err)
	assert.Equal(t, types.NewQuantity(-2), f.stock(t, p.ID))
}

func TestCreate_UntrackedProductKeepsStock(t *testing.T) {
	f := newFixture(t)
	p := f.product(t, "svc-1", "15.00", 0, func(p *product.Product) { p.TrackInventory = false })

	sale, err := f.engine.Create(f.ctx, sales.CreateCommand{Items: []sales.ItemInput{item(p, 4)}})
	require.NoError(t, err)
	assert.False(t, sale.Items[0].StockApplied)
	assert.Equal(t, sales.InventorySynced, sale.InventorySync)
	assert.Zero(t, f.stock(t, p.ID))
}

func TestCreate_QuantityOverflowAcrossLinesRejected(t *testing.T) {
	f := newFixture(t)
	p := f.product(t, "svc-1", "1.00", 0, func(p *product.Product) { p.TrackInventory = false })

	huge := sales.ItemInput{ProductID: p.ID, Quantity: types.Quantity(math.MaxInt64)}
	_, err := f.engine.Create(f.ctx, sales.CreateCommand{Items: []sales.ItemInput{huge, item(p, 1)}})
	require.Error(t, err)
	assert.True(t, apperror.IsValidation(err), err)

	list, err := f.engine.List(f.ctx, sales.ListFilter{})
	require.NoError(t, err)
	assert.Zero(t, list.TotalCount)
}

func TestCreate_Rejections(t *testing.T) {
	f := newFixture(t)
	active := f.product(t, "sku-1", "2.00", 5)
	inactive := f.product(t, "sku-2", "2.00", 5, func(p *product.Product) { p.IsActive = false })
	unknownCustomer := id.New()

	tests := []struct {
		name  string
		cmd   sales.CreateCommand
		check func(error) bool
	}{
		{"no items", sales.CreateCommand{}, apperror.IsValidation},
		{"zero quantity", sales.CreateCommand{Items: []sales.ItemInput{item(active, 0)}}, apperror.IsValidation},
		{"unknown product", sales.CreateCommand{Items: []sales.ItemInput{{ProductID: id.New(), Quantity: types.NewQuantity(1)}}}, apperror.IsNotFound},
		{"inactive product", sales.CreateCommand{Items: []sales.ItemInput{item(inactive, 1)}}, apperror.IsInvalidState},
		{"unknown customer", sales.CreateCommand{Items: []sales.ItemInput{item(active, 1)}, CustomerID: &unknownCustomer}, apperror.IsNotFound},
		{"store credit without customer", sales.CreateCommand{
			Items:   []sales.ItemInput{item(active, 1)},
			Payment: sales.PaymentInput{Details: []sales.PaymentDetailInput{{Method: sales.MethodStoreCredit, Amount: types.MustMoney("2.00")}}},
		}, apperror.IsValidation},
		{"mixed is not a tender", sales.CreateCommand{
			Items:   []sales.ItemInput{item(active, 1)},
			Payment: sales.PaymentInput{Details: []sales.PaymentDetailInput{{Method: sales.MethodMixed, Amount: types.MustMoney("2.00")}}},
		}, apperror.IsValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.engine.Create(f.ctx, tt.cmd)
			require.Error(t, err)
			assert.True(t, tt.check(err), "unexpected error: %v", err)
		})
	}
	assert.Equal(t, types.NewQuantity(5), f.stock(t, active.ID))
}

func TestCreate_RequiresActor(t *testing.T) {
	f := newFixture(t)
	p := f.product(t, "sku-1", "2.00", 5)

	_, err := f.engine.Create(context.Background(), sales.CreateCommand{Items: []sales.ItemInput{item(p, 1)}})
	require.Error(t, err)
	assert.Equal(t, 401, apperror.GetHTTPStatus(err))
}

func TestQuickSale_Change(t *testing.T) {
	f := newFixture(t)
	p := f.product(t, "sku-1", "45.50", 3)

	sale, err := f.engine.QuickSale(f.ctx, sales.QuickSaleCommand{
		Items:         []sales.ItemInput{item(p, 1)},
		PaymentAmount: types.MustMoney("50.00"),
	})
	require.NoError(t, err)
	assertMoney(t, "45.50", sale.Totals.Total)
	assertMoney(t, "50.00", sale.Payment.TotalPaid)
	assertMoney(t, "4.50", sale.Payment.Change)
	assert.Equal(t, sales.PaymentPaid, sale.Payment.Status)
	assert.Equal(t, sales.MethodCash, sale.Payment.Method)
	assert.Equal(t, sales.SourceQuick, sale.Metadata.Source)
	assert.Nil(t, sale.CustomerID)
}

func TestQuickSale_UnderpaymentRejected(t *testing.T) {
	f := newFixture(t)
	p := f.product(t, "sku-1", "45.50", 3)

	_, err := f.engine.QuickSale(f.ctx, sales.QuickSaleCommand{
		Items:         []sales.ItemInput{item(p, 1)},
		PaymentAmount: types.MustMoney("40.00"),
	})
	assert.True(t, apperror.IsValidation(err))
	assert.Equal(t, types.NewQuantity(3), f.stock(t, p.ID))
}

func TestRecordPayment_SplitTender(t *testing.T) {
	f := newFixture(t)
	p := f.product(t, "sku-1", "100.00", 3)

	sale, err := f.engine.Create(f.ctx, sales.CreateCommand{Items: []sales.ItemInput{item(p, 1)}})
	require.NoError(t, err)

	sale, err = f.engine.RecordPayment(f.ctx, sales.PaymentCommand{SaleID: sale.ID, Method: sales.MethodCard, Amount: types.MustMoney("30.00")})
	require.NoError(t, err)
	assert.Equal(t, sales.PaymentPartial, sale.Payment.Status)

	sale, err = f.engine.RecordPayment(f.ctx, sales.PaymentCommand{SaleID: sale.ID, Method: sales.MethodCash, Amount: types.MustMoney("70.00")})
	require.NoError(t, err)
	assert.Equal(t, sales.PaymentPaid, sale.Payment.Status)
	assertMoney(t, "100.00", sale.Payment.TotalPaid)
	assertMoney(t, "0.00", sale.Payment.Change)
	assert.Equal(t, sales.MethodMixed, sale.Payment.Method)
	assert.Len(t, sale.Payment.Details, 2)

	_, err = f.engine.RecordPayment(f.ctx, sales.PaymentCommand{SaleID: sale.ID, Method: sales.MethodCash, Amount: types.MustMoney("1.00")})
	assert.True(t, apperror.IsInvalidState(err))

	_, err = f.engine.RecordPayment(f.ctx, sales.PaymentCommand{SaleID: id.New(), Method: sales.MethodCash, Amount: types.MustMoney("1.00")})
	assert.True(t, apperror.IsNotFound(err))
}

func TestRefund_OverRefundRejected(t *testing.T) {
	f := newFixture(t)
	p := f.product(t, "sku-1", "10.00", 5)

	sale, err := f.engine.Create(f.ctx, sales.CreateCommand{Items: []sales.ItemInput{item(p, 2)}, Payment: cash("20.00")})
	require.NoError(t, err)

	_, _, err = f.engine.Refund(f.ctx, sales.RefundCommand{
		SaleID: sale.ID,
		Items:  []sales.RefundItemInput{{LineIndex: lineIndex(0), Quantity: types.NewQuantity(3)}},
	})
	assert.True(t, apperror.IsInvalidState(err))

	_, _, err = f.engine.Refund(f.ctx, sales.RefundCommand{
		SaleID: sale.ID,
		Items:  []sales.RefundItemInput{{ProductID: p.ID, Quantity: types.NewQuantity(1)}},
	})
	require.NoError(t, err)

	_, _, err = f.engine.Refund(f.ctx, sales.RefundCommand{
		SaleID: sale.ID,
		Items:  []sales.RefundItemInput{{ProductID: p.ID, Quantity: types.NewQuantity(2)}},
	})
	assert.True(t, apperror.IsInvalidState(err))
	assert.Equal(t, types.NewQuantity(4), f.stock(t, p.ID))
}

func TestRefund_UnpaidSaleHasNothingToReturn(t *testing.T) {
	f := newFixture(t)
	p := f.product(t, "sku-1", "10.00", 5)

	sale, err := f.engine.Create(f.ctx, sales.CreateCommand{Items: []sales.ItemInput{item(p, 1)}})
	require.NoError(t, err)

	_, _, err = f.engine.Refund(f.ctx, sales.RefundCommand{
		SaleID: sale.ID,
		Items:  []sales.RefundItemInput{{LineIndex: lineIndex(0), Quantity: types.NewQuantity(1)}},
	})
	assert.True(t, apperror.IsInvalidState(err))
}

func TestRefund_SharesAddUpToLineTotal(t *testing.T) {
	f := newFixture(t)
	p := f.product(t, "sku-1", "5.00", 10)

	sale, err := f.engine.Create(f.ctx, sales.CreateCommand{
		Items: []sales.ItemInput{{
			ProductID: p.ID,
			Quantity:  types.NewQuantity(3),
			Discount:  sales.Discount{Amount: types.MustMoney("5.00")},
		}},
		Payment: cash("10.00"),
	})
	require.NoError(t, err)
	assertMoney(t, "10.00", sale.Totals.Total)

	one := []sales.RefundItemInput{{LineIndex: lineIndex(0), Quantity: types.NewQuantity(1)}}
	var amounts []string
	var statuses []sales.Status
	for range 3 {
		s, rec, err := f.engine.Refund(f.ctx, sales.RefundCommand{SaleID: sale.ID, Items: one, Reason: "damaged"})
		require.NoError(t, err)
		amounts = append(amounts, rec.Amount.StringFixed(types.MoneyScale))
		statuses = append(statuses, s.Status)
	}

	assert.Equal(t, []string{"3.33", "3.33", "3.34"}, amounts)
	assert.Equal(t, []sales.Status{sales.StatusPartialRefund, sales.StatusPartialRefund, sales.StatusRefunded}, statuses)

	final, err := f.engine.Get(f.ctx, sale.ID)
	require.NoError(t, err)
	assertMoney(t, "10.00", final.TotalRefunded())
	assertMoney(t, "0.00", final.NetTotal())
	assert.Len(t, final.RefundInfo.Refunds, 3)
	assert.Equal(t, types.NewQuantity(10), f.stock(t, p.ID))
}

func TestRefund_AmbiguousProductNeedsLineIndex(t *testing.T) {
	f := newFixture(t)
	p := f.product(t, "sku-1", "5.00", 10)

	sale, err := f.engine.Create(f.ctx, sales.CreateCommand{Items: []sales.ItemInput{item(p, 1), item(p, 1)}, Payment: cash("10.00")})
	require.NoError(t, err)

	_, _, err = f.engine.Refund(f.ctx, sales.RefundCommand{
		SaleID: sale.ID,
		Items:  []sales.RefundItemInput{{ProductID: p.ID, Quantity: types.NewQuantity(1)}},
	})
	assert.True(t, apperror.IsValidation(err))
}

func TestVoid_AfterRefundRejected(t *testing.T) {
	f := newFixture(t)
	p := f.product(t, "sku-1", "10.00", 5)

	sale, err := f.engine.Create(f.ctx, sales.CreateCommand{Items: []sales.ItemInput{item(p, 2)}, Payment: cash("20.00")})
	require.NoError(t, err)

	_, _, err = f.engine.Refund(f.ctx, sales.RefundCommand{
		SaleID: sale.ID,
		Items:  []sales.RefundItemInput{{LineIndex: lineIndex(0), Quantity: types.NewQuantity(1)}},
	})
	require.NoError(t, err)

	_, err = f.engine.Void(f.ctx, sales.VoidCommand{SaleID: sale.ID, Reason: "mistake"})
	assert.True(t, apperror.IsInvalidState(err))

	current, err := f.engine.Get(f.ctx, sale.ID)
	require.NoError(t, err)
	assert.Equal(t, sales.StatusPartialRefund, current.Status)
}

func TestVoid_RestocksAndReversesSpend(t *testing.T) {
	f := newFixture(t)
	p := f.product(t, "sku-1", "50.00", 5)
	c := f.customer(t, "Ada")

	sale, err := f.engine.Create(f.ctx, sales.CreateCommand{
		Items:      []sales.ItemInput{item(p, 2)},
		CustomerID: &c.ID,
		Payment:    cash("100.00"),
	})
	require.NoError(t, err)
	assert.Equal(t, types.NewQuantity(3), f.stock(t, p.ID))

	voided, err := f.engine.Void(f.ctx, sales.VoidCommand{SaleID: sale.ID, Reason: "customer changed mind"})
	require.NoError(t, err)
	assert.Equal(t, sales.StatusVoided, voided.Status)
	require.NotNil(t, voided.VoidInfo)
	assert.Equal(t, "cashier-1", voided.VoidInfo.VoidedBy)

	assert.Equal(t, types.NewQuantity(5), f.stock(t, p.ID))
	stats := f.stats(t, c.ID)
	assertMoney(t, "0.00", stats.TotalSpent)
	assert.Equal(t, int64(1), stats.TotalOrders)

	_, err = f.engine.Void(f.ctx, sales.VoidCommand{SaleID: sale.ID})
	assert.True(t, apperror.IsInvalidState(err))
	_, err = f.engine.RecordPayment(f.ctx, sales.PaymentCommand{SaleID: sale.ID, Method: sales.MethodCash, Amount: types.MustMoney("1.00")})
	assert.True(t, apperror.IsInvalidState(err))
	_, _, err = f.engine.Refund(f.ctx, sales.RefundCommand{
		SaleID: sale.ID,
		Items:  []sales.RefundItemInput{{LineIndex: lineIndex(0), Quantity: types.NewQuantity(1)}},
	})
	assert.True(t, apperror.IsInvalidState(err))

	assert.Contains(t, f.eventTypes(), events.SaleVoided)
}

func TestCustomerStatistics_FullRefundRestoresSpend(t *testing.T) {
	f := newFixture(t)
	p := f.product(t, "sku-1", "25.00", 10)
	c := f.customer(t, "Grace")

	sale, err := f.engine.Create(f.ctx, sales.CreateCommand{
		Items:      []sales.ItemInput{item(p, 4)},
		CustomerID: &c.ID,
		Payment:    cash("100.00"),
	})
	require.NoError(t, err)

	stats := f.stats(t, c.ID)
	assertMoney(t, "100.00", stats.TotalSpent)
	assert.Equal(t, int64(1), stats.TotalOrders)
	assertMoney(t, "100.00", stats.AverageOrderValue)
	assert.Equal(t, types.NewQuantity(4), stats.FavoriteProducts[p.ID])
	assert.NotNil(t, stats.LastOrderAt)

	refunded, _, err := f.engine.Refund(f.ctx, sales.RefundCommand{
		SaleID: sale.ID,
		Items:  []sales.RefundItemInput{{ProductID: p.ID, Quantity: types.NewQuantity(4)}},
	})
	require.NoError(t, err)
	assert.Equal(t, sales.StatusRefunded, refunded.Status)

	stats = f.stats(t, c.ID)
	assertMoney(t, "0.00", stats.TotalSpent)
	assert.Equal(t, int64(1), stats.TotalOrders)
	assertMoney(t, "0.00", stats.AverageOrderValue)
	assert.Equal(t, types.NewQuantity(10), f.stock(t, p.ID))
}

func TestCreate_ConcurrentSalesOfLastUnit(t *testing.T) {
	f := newFixture(t)
	p := f.product(t, "sku-1", "9.99", 1)

	var (
		wg           sync.WaitGroup
		succeeded    atomic.Int32
		insufficient atomic.Int32
	)
	for range 2 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.engine.Create(f.ctx, sales.CreateCommand{Items: []sales.ItemInput{item(p, 1)}})
			switch {
			case err == nil:
				succeeded.Add(1)
			case apperror.IsInsufficientStock(err):
				insufficient.Add(1)
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), succeeded.Load())
	assert.Equal(t, int32(1), insufficient.Load())
	assert.Zero(t, f.stock(t, p.ID))
}

func TestCreate_DeferredInventoryIsReconciled(t *testing.T) {
	f := newFixture(t)
	p := f.product(t, "sku-1", "4.00", 10)

	f.ledger.failing.Store(true)
	sale, err := f.engine.Create(f.ctx, sales.CreateCommand{Items: []sales.ItemInput{item(p, 3)}, Payment: cash("12.00")})
	require.NoError(t, err)
	assert.Equal(t, sales.InventoryPending, sale.InventorySync)
	assert.False(t, sale.Items[0].StockApplied)
	assert.Equal(t, types.NewQuantity(10), f.stock(t, p.ID))
	assert.Contains(t, f.eventTypes(), events.SaleInventoryPending)

	// Refunding a pending line only lowers what reconciliation owes.
	_, _, err = f.engine.Refund(f.ctx, sales.RefundCommand{
		SaleID: sale.ID,
		Items:  []sales.RefundItemInput{{LineIndex: lineIndex(0), Quantity: types.NewQuantity(1)}},
	})
	require.NoError(t, err)
	assert.Equal(t, types.NewQuantity(10), f.stock(t, p.ID))

	f.ledger.failing.Store(false)
	res, err := f.engine.ReconcileInventory(f.ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, sales.ReconcileResult{Scanned: 1, Synced: 1}, res)
	assert.Equal(t, types.NewQuantity(8), f.stock(t, p.ID))

	synced, err := f.engine.Get(f.ctx, sale.ID)
	require.NoError(t, err)
	assert.Equal(t, sales.InventorySynced, synced.InventorySync)
	assert.True(t, synced.Items[0].StockApplied)

	movements, err := f.products.Movements(f.ctx, p.ID, 10, 0)
	require.NoError(t, err)
	require.Len(t, movements, 1)
	assert.Equal(t, product.ReasonReconciliation, movements[0].Reason)

	res, err = f.engine.ReconcileInventory(f.ctx, 10)
	require.NoError(t, err)
	assert.Zero(t, res.Scanned)
}

func TestVoid_PendingLineSettlesWithoutMovement(t *testing.T) {
	f := newFixture(t)
	p := f.product(t, "sku-1", "4.00", 10)

	f.ledger.failing.Store(true)
	sale, err := f.engine.Create(f.ctx, sales.CreateCommand{Items: []sales.ItemInput{item(p, 2)}})
	require.NoError(t, err)
	f.ledger.failing.Store(false)

	voided, err := f.engine.Void(f.ctx, sales.VoidCommand{SaleID: sale.ID})
	require.NoError(t, err)
	assert.Equal(t, sales.InventorySynced, voided.InventorySync)
	assert.Equal(t, types.NewQuantity(10), f.stock(t, p.ID))

	res, err := f.engine.ReconcileInventory(f.ctx, 10)
	require.NoError(t, err)
	assert.Zero(t, res.Scanned)
}

func TestCreate_StoreCredit(t *testing.T) {
	f := newFixture(t)
	p := f.product(t, "sku-1", "20.00", 10)
	c := f.customer(t, "Linus", func(c *customer.Customer) { c.CreditLimit = types.MustMoney("50.00") })

	storeCredit := func(amount string) sales.PaymentInput {
		return sales.PaymentInput{Details: []sales.PaymentDetailInput{{Method: sales.MethodStoreCredit, Amount: types.MustMoney(amount)}}}
	}

	sale, err := f.engine.Create(f.ctx, sales.CreateCommand{
		Items:      []sales.ItemInput{item(p, 2)},
		CustomerID: &c.ID,
		Payment:    storeCredit("40.00"),
	})
	require.NoError(t, err)
	assert.Equal(t, sales.MethodStoreCredit, sale.Payment.Method)

	statement, err := f.customers.Credit(f.ctx, c.ID, 10)
	require.NoError(t, err)
	assertMoney(t, "40.00", statement.Balance)
	require.Len(t, statement.Transactions, 1)
	assert.Equal(t, sale.ID, *statement.Transactions[0].SaleID)

	_, err = f.engine.Create(f.ctx, sales.CreateCommand{
		Items:      []sales.ItemInput{item(p, 1)},
		CustomerID: &c.ID,
		Payment:    storeCredit("20.00"),
	})
	assert.True(t, apperror.IsInvalidState(err))

	assert.Equal(t, types.NewQuantity(8), f.stock(t, p.ID))
	stats := f.stats(t, c.ID)
	assert.Equal(t, int64(1), stats.TotalOrders)
	statement, err = f.customers.Credit(f.ctx, c.ID, 10)
	require.NoError(t, err)
	assertMoney(t, "40.00", statement.Balance)
}

func TestVoid_LeavesStoreCreditForSettlement(t *testing.T) {
	f := newFixture(t)
	p := f.product(t, "sku-1", "20.00", 10)
	c := f.customer(t, "Grace")

	sale, err := f.engine.Create(f.ctx, sales.CreateCommand{
		Items:      []sales.ItemInput{item(p, 1)},
		CustomerID: &c.ID,
		Payment: sales.PaymentInput{Details: []sales.PaymentDetailInput{
			{Method: sales.MethodStoreCredit, Amount: types.MustMoney("20.00")},
		}},
	})
	require.NoError(t, err)

	_, err = f.engine.Void(f.ctx, sales.VoidCommand{SaleID: sale.ID, Reason: "wrong customer"})
	require.NoError(t, err)

	statement, err := f.customers.Credit(f.ctx, c.ID, 10)
	require.NoError(t, err)
	assertMoney(t, "20.00", statement.Balance)

	_, err = f.customers.SettleCredit(f.ctx, c.ID, types.MustMoney("20.00"), "void "+sale.ReceiptNumber, "manager-1")
	require.NoError(t, err)
	statement, err = f.customers.Credit(f.ctx, c.ID, 10)
	require.NoError(t, err)
	assertMoney(t, "0.00", statement.Balance)
}

func TestList_FiltersByStatus(t *testing.T) {
	f := newFixture(t)
	p := f.product(t, "sku-1", "1.00", 10)

	kept, err := f.engine.Create(f.ctx, sales.CreateCommand{Items: []sales.ItemInput{item(p, 1)}})
	require.NoError(t, err)
	voided, err := f.engine.Create(f.ctx, sales.CreateCommand{Items: []sales.ItemInput{item(p, 1)}})
	require.NoError(t, err)
	_, err = f.engine.Void(f.ctx, sales.VoidCommand{SaleID: voided.ID})
	require.NoError(t, err)

	list, err := f.engine.List(f.ctx, sales.ListFilter{Statuses: []sales.Status{sales.StatusCompleted}})
	require.NoError(t, err)
	require.Len(t, list.Items, 1)
	assert.Equal(t, kept.ID, list.Items[0].ID)

	_, err = f.engine.List(f.ctx, sales.ListFilter{Statuses: []sales.Status{"lost"}})
	assert.True(t, apperror.IsValidation(err))
}
