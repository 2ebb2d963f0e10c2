package v1_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"retailpos/internal/config"
	appctx "retailpos/internal/core/context"
	"retailpos/internal/core/types"
	"retailpos/internal/domain/auth"
	"retailpos/internal/domain/catalogs/customer"
	"retailpos/internal/domain/catalogs/product"
	"retailpos/internal/domain/reports"
	"retailpos/internal/domain/sales"
	v1 "retailpos/internal/infrastructure/http/v1"
	"retailpos/internal/infrastructure/http/v1/middleware"
	"retailpos/internal/infrastructure/storage/memory"
	"retailpos/pkg/logger"
)

type apiFixture struct {
	router  http.Handler
	store   *memory.Store
	cashier string
	manager string
}

func newAPI(t *testing.T) *apiFixture {
	t.Helper()

	store := memory.NewStore()
	pricing, err := product.NewPricingEngine()
	require.NoError(t, err)

	products := product.NewService(store.Products, store.Tx, pricing, product.WithAuditSink(store.Audit))
	customers := customer.NewService(store.Customers, store.Tx)
	engine := sales.NewEngine(sales.Deps{
		Repo:      store.Sales,
		Products:  products,
		Customers: customers,
		Events:    store.Outbox,
		Audit:     store.Audit,
		Numerator: store.Numerator,
		TxManager: store.Tx,
	}, sales.DefaultConfig())

	jwtSvc := auth.NewJWTService(auth.DefaultJWTConfig("test-secret-with-enough-length"))
	cashier, _, err := jwtSvc.GenerateAccessToken(auth.Actor{UserID: "cashier-1", Roles: []string{appctx.RoleCashier}, DeviceID: "till-1"})
	require.NoError(t, err)
	manager, _, err := jwtSvc.GenerateAccessToken(auth.Actor{UserID: "manager-1", Roles: []string{appctx.RoleManager}})
	require.NoError(t, err)

	router := v1.NewRouter(v1.RouterConfig{
		Logger:       logger.Default(),
		JWTValidator: jwtSvc,
		Idempotency:  store.Idempotency,
		Driver:       config.DriverMemory,
		Products:     products,
		Customers:    customers,
		Sales:        engine,
		Reports:      reports.NewService(reports.NewSourceRepository(store.Sales)),
		Audit:        store.Audit,
		RateLimiter:  middleware.NewRateLimiter(1000, 1000),
	})

	return &apiFixture{router: router, store: store, cashier: cashier, manager: manager}
}

func (f *apiFixture) do(t *testing.T, method, path, token string, body any, headers ...string) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}

	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

type productBody struct {
	ID           string         `json:"id"`
	CurrentStock types.Quantity `json:"currentStock"`
}

type saleBody struct {
	ID            string       `json:"id"`
	ReceiptNumber string       `json:"receiptNumber"`
	Status        sales.Status `json:"status"`
	Totals        struct {
		Total types.Money `json:"total"`
	} `json:"totals"`
	Payment struct {
		Status sales.PaymentStatus `json:"status"`
		Change types.Money         `json:"change"`
	} `json:"payment"`
}

type errorBody struct {
	Code string `json:"code"`
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func (f *apiFixture) createProduct(t *testing.T, sku string, stock int) productBody {
	t.Helper()
	rec := f.do(t, http.MethodPost, "/api/v1/products", f.manager, map[string]any{
		"sku":          sku,
		"name":         "Product " + sku,
		"price":        "2.50",
		"initialStock": stock,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode[productBody](t, rec)
}

func saleRequest(productID string, qty int, paid string) map[string]any {
	return map[string]any{
		"items": []map[string]any{{"productId": productID, "quantity": qty}},
		"payment": map[string]any{
			"details": []map[string]any{{"method": "cash", "amount": paid}},
		},
	}
}

func TestHealth(t *testing.T) {
	api := newAPI(t)

	rec := api.do(t, http.MethodGet, "/health/live", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = api.do(t, http.MethodGet, "/health/ready", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAPI_RequiresToken(t *testing.T) {
	api := newAPI(t)

	rec := api.do(t, http.MethodGet, "/api/v1/sales", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "UNAUTHORIZED", decode[errorBody](t, rec).Code)
}

func TestAPI_CashierCannotCreateProducts(t *testing.T) {
	api := newAPI(t)

	rec := api.do(t, http.MethodPost, "/api/v1/products", api.cashier, map[string]any{
		"sku": "A-1", "name": "Apple", "price": "1.00",
	})
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestAPI_SaleLifecycle(t *testing.T) {
	api := newAPI(t)
	p := api.createProduct(t, "MILK-1", 10)

	rec := api.do(t, http.MethodPost, "/api/v1/sales", api.cashier, saleRequest(p.ID, 3, "10.00"))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	sale := decode[saleBody](t, rec)

	assert.Equal(t, sales.StatusCompleted, sale.Status)
	assert.Equal(t, sales.PaymentPaid, sale.Payment.Status)
	assert.True(t, types.MustMoney("7.50").Equal(sale.Totals.Total))
	assert.True(t, types.MustMoney("2.50").Equal(sale.Payment.Change))

	rec = api.do(t, http.MethodGet, "/api/v1/products/"+p.ID, api.cashier, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, types.NewQuantity(7), decode[productBody](t, rec).CurrentStock)

	rec = api.do(t, http.MethodGet, "/api/v1/sales/receipt/"+sale.ReceiptNumber, api.cashier, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, sale.ID, decode[saleBody](t, rec).ID)

	// Void is reserved to managers.
	rec = api.do(t, http.MethodPost, "/api/v1/sales/"+sale.ID+"/void", api.cashier, map[string]any{"reason": "mistake"})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = api.do(t, http.MethodPost, "/api/v1/sales/"+sale.ID+"/void", api.manager, map[string]any{"reason": "mistake"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, sales.StatusVoided, decode[saleBody](t, rec).Status)

	rec = api.do(t, http.MethodGet, "/api/v1/products/"+p.ID, api.cashier, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, types.NewQuantity(10), decode[productBody](t, rec).CurrentStock)

	rec = api.do(t, http.MethodGet, "/api/v1/audit/sale/"+sale.ID, api.manager, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	history := decode[struct {
		Items []struct {
			Action   string `json:"action"`
			Severity string `json:"severity"`
		} `json:"items"`
	}](t, rec)
	require.NotEmpty(t, history.Items)
	assert.Equal(t, "sale.void", history.Items[0].Action)
	assert.Equal(t, "warning", history.Items[0].Severity)
}

func TestAPI_InsufficientStock(t *testing.T) {
	api := newAPI(t)
	p := api.createProduct(t, "BREAD-1", 2)

	rec := api.do(t, http.MethodPost, "/api/v1/sales", api.cashier, saleRequest(p.ID, 5, "20.00"))
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "INSUFFICIENT_STOCK", decode[errorBody](t, rec).Code)
}

func TestAPI_IdempotentCreateReplays(t *testing.T) {
	api := newAPI(t)
	p := api.createProduct(t, "TEA-1", 10)
	body := saleRequest(p.ID, 1, "2.50")

	first := api.do(t, http.MethodPost, "/api/v1/sales", api.cashier, body, middleware.HeaderIdempotencyKey, "till-1-0001")
	require.Equal(t, http.StatusCreated, first.Code, first.Body.String())

	second := api.do(t, http.MethodPost, "/api/v1/sales", api.cashier, body, middleware.HeaderIdempotencyKey, "till-1-0001")
	require.Equal(t, http.StatusCreated, second.Code)
	assert.Equal(t, "true", second.Header().Get("Idempotent-Replayed"))
	assert.Equal(t, decode[saleBody](t, first).ReceiptNumber, decode[saleBody](t, second).ReceiptNumber)

	rec := api.do(t, http.MethodGet, "/api/v1/products/"+p.ID, api.cashier, nil)
	assert.Equal(t, types.NewQuantity(9), decode[productBody](t, rec).CurrentStock)
}

func TestAPI_RefundAndReports(t *testing.T) {
	api := newAPI(t)
	p := api.createProduct(t, "SOAP-1", 10)

	rec := api.do(t, http.MethodPost, "/api/v1/sales", api.cashier, saleRequest(p.ID, 4, "10.00"))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	sale := decode[saleBody](t, rec)

	rec = api.do(t, http.MethodPost, "/api/v1/sales/"+sale.ID+"/refunds", api.manager, map[string]any{
		"items":  []map[string]any{{"lineIndex": 0, "quantity": 1}},
		"reason": "damaged",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	refund := decode[struct {
		Sale   saleBody `json:"sale"`
		Refund struct {
			Amount types.Money `json:"amount"`
		} `json:"refund"`
	}](t, rec)
	assert.Equal(t, sales.StatusPartialRefund, refund.Sale.Status)
	assert.True(t, types.MustMoney("2.50").Equal(refund.Refund.Amount))

	rec = api.do(t, http.MethodGet, "/api/v1/reports/daily", api.manager, nil)
	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = api.do(t, http.MethodGet, "/api/v1/reports/period?from=2026-01-01&to=2025-01-01", api.manager, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAPI_InvalidSaleID(t *testing.T) {
	api := newAPI(t)

	rec := api.do(t, http.MethodGet, "/api/v1/sales/not-a-uuid", api.cashier, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "VALIDATION_ERROR", decode[errorBody](t, rec).Code)
}
