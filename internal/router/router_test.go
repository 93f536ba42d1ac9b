package router

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"ledgerpos/internal/config"
	"ledgerpos/internal/infra"
	"ledgerpos/internal/middleware"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const testSecret = "router-test-secret"

// ── Helpers ──────────────────────────────────────────────────────────────────

type apiClient struct {
	t      *testing.T
	engine *gin.Engine
	token  string
}

func newAPI(t *testing.T, role string) *apiClient {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, infra.RunMigrations(db))

	cfg := &config.Config{
		Env:             "test",
		JWTSecret:       testSecret,
		LedgerOpTimeout: 5 * time.Second,
		StatsCacheTTL:   time.Minute,
	}
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	return &apiClient{
		t:      t,
		engine: New(ctx, cfg, db, nil, nil),
		token:  tokenFor(t, uuid.NewString(), role),
	}
}

func tokenFor(t *testing.T, tenant, role string) string {
	t.Helper()
	tok, err := middleware.SignToken(testSecret, middleware.JWTClaims{
		UserID:   uuid.NewString(),
		TenantID: tenant,
		Role:     role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})
	require.NoError(t, err)
	return tok
}

func (a *apiClient) do(method, path string, body any) *httptest.ResponseRecorder {
	a.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(a.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if a.token != "" {
		req.Header.Set("Authorization", "Bearer "+a.token)
	}
	w := httptest.NewRecorder()
	a.engine.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func (a *apiClient) create(path string, body any) string {
	a.t.Helper()
	w := a.do(http.MethodPost, path, body)
	require.Equal(a.t, http.StatusCreated, w.Code, w.Body.String())
	return decode(a.t, w)["id"].(string)
}

// ── Tests ────────────────────────────────────────────────────────────────────

func TestHealth(t *testing.T) {
	api := newAPI(t, "admin")
	api.token = ""
	w := api.do(http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, "connected", body["db"])
	assert.Equal(t, "disabled", body["redis"])
}

func TestRoutesRequireToken(t *testing.T) {
	api := newAPI(t, "admin")
	api.token = ""
	assert.Equal(t, http.StatusUnauthorized, api.do(http.MethodGet, "/v1/invoices", nil).Code)
}

func TestInvoiceLifecycleOverHTTP(t *testing.T) {
	api := newAPI(t, "admin")

	productID := api.create("/v1/products", map[string]any{
		"name": "Keyboard", "stock": 10, "purchase_price": "20.00", "sale_price": "50.00",
	})
	customerID := api.create("/v1/customers", map[string]any{"name": "Olga"})

	w := api.do(http.MethodPost, "/v1/invoices", map[string]any{
		"payment_type": "credit",
		"customer_id":  customerID,
		"paid_amount":  "10",
		"items":        []map[string]any{{"product_id": productID, "quantity": 2}},
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	inv := decode(t, w)
	assert.Equal(t, "INV-00001", inv["number"])
	assert.Equal(t, "90", inv["remaining_amount"])
	invoiceID := inv["id"].(string)

	w = api.do(http.MethodGet, "/v1/customers/"+customerID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "90", decode(t, w)["balance"])

	w = api.do(http.MethodPost, "/v1/receipts", map[string]any{
		"entity_type": "customer", "entity_id": customerID, "amount": "40",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, "REC-0001", decode(t, w)["number"])

	w = api.do(http.MethodPost, "/v1/invoices/"+invoiceID+"/cancel", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "cancelled", decode(t, w)["status"])

	w = api.do(http.MethodPost, "/v1/invoices/"+invoiceID+"/cancel", nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = api.do(http.MethodGet, "/v1/products/"+productID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(10), decode(t, w)["stock"])

	w = api.do(http.MethodGet, "/v1/products/"+productID+"/movements", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(2), decode(t, w)["total"])

	w = api.do(http.MethodGet, "/v1/invoices?status=cancelled", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(1), decode(t, w)["total"])

	w = api.do(http.MethodDelete, "/v1/invoices/"+invoiceID, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, false, decode(t, w)["compensated"])
}

func TestErrorMapping(t *testing.T) {
	api := newAPI(t, "clerk")
	productID := api.create("/v1/products", map[string]any{
		"name": "Mouse", "stock": 1, "purchase_price": "5", "sale_price": "10",
	})

	// Malformed JSON.
	req := httptest.NewRequest(http.MethodPost, "/v1/invoices", bytes.NewBufferString("{"))
	req.Header.Set("Authorization", "Bearer "+api.token)
	w := httptest.NewRecorder()
	api.engine.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// Struct validation.
	w = api.do(http.MethodPost, "/v1/invoices", map[string]any{"payment_type": "barter", "items": []any{}})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Contains(t, decode(t, w), "fields")

	// Service validation: credit remainder without a customer.
	w = api.do(http.MethodPost, "/v1/invoices", map[string]any{
		"payment_type": "credit",
		"items":        []map[string]any{{"product_id": productID, "quantity": 1}},
	})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Contains(t, decode(t, w)["fields"], "customer_id")

	// Unknown document.
	w = api.do(http.MethodGet, "/v1/invoices/"+uuid.NewString(), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = api.do(http.MethodGet, "/v1/invoices/not-a-uuid", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// Insufficient stock on update reports shortages.
	invoiceID := api.create("/v1/invoices", map[string]any{
		"payment_type": "cash",
		"items":        []map[string]any{{"product_id": productID, "quantity": 1}},
	})
	w = api.do(http.MethodPut, "/v1/invoices/"+invoiceID, map[string]any{
		"items": []map[string]any{{"product_id": productID, "quantity": 5}},
	})
	require.Equal(t, http.StatusConflict, w.Code, w.Body.String())
	body := decode(t, w)
	assert.Equal(t, "insufficient stock", body["detail"])
	assert.Len(t, body["shortages"], 1)

	// Deleting needs the admin role.
	w = api.do(http.MethodDelete, "/v1/invoices/"+invoiceID, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestStatisticsOverHTTP(t *testing.T) {
	api := newAPI(t, "admin")
	productID := api.create("/v1/products", map[string]any{
		"name": "Cable", "stock": 50, "purchase_price": "1", "sale_price": "3",
	})
	api.create("/v1/invoices", map[string]any{
		"date":         "2024-02-10T12:00:00Z",
		"payment_type": "cash",
		"items":        []map[string]any{{"product_id": productID, "quantity": 4}},
	})

	w := api.do(http.MethodGet, "/v1/statistics?from=2024-02-01&to=2024-02-29", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body := decode(t, w)
	assert.Equal(t, "12", body["total_sales"])
	assert.Equal(t, "8", body["profit"])

	w = api.do(http.MethodGet, "/v1/statistics?from=2024-02-30&to=2024-02-01", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	w = api.do(http.MethodGet, "/v1/statistics?from=2024-02-01", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestSupplyAndSupplierPaymentOverHTTP(t *testing.T) {
	api := newAPI(t, "admin")
	productID := api.create("/v1/products", map[string]any{
		"name": "Paper", "stock": 0, "purchase_price": "2", "sale_price": "4",
	})
	supplierID := api.create("/v1/suppliers", map[string]any{"name": "Mill"})

	supplyID := api.create("/v1/supplies", map[string]any{
		"payment_type": "credit",
		"supplier_id":  supplierID,
		"items":        []map[string]any{{"product_id": productID, "quantity": 10, "purchase_price": "2.5"}},
	})

	w := api.do(http.MethodPost, "/v1/supplier-payments", map[string]any{
		"supplier_id": supplierID, "supply_id": supplyID, "amount": "5",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, "20", decode(t, w)["balance"])

	w = api.do(http.MethodGet, "/v1/supplies/"+supplyID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "SUP-00001", decode(t, w)["number"])
}

func TestCatalogEditsAndListsOverHTTP(t *testing.T) {
	api := newAPI(t, "admin")
	productID := api.create("/v1/products", map[string]any{
		"name": "Kettle", "stock": 3, "purchase_price": "12", "sale_price": "20",
	})
	api.create("/v1/products", map[string]any{"name": "Toaster", "purchase_price": "15", "sale_price": "25"})
	customerID := api.create("/v1/customers", map[string]any{"name": "Lena"})
	supplierID := api.create("/v1/suppliers", map[string]any{"name": "Electro"})

	w := api.do(http.MethodPut, "/v1/products/"+productID, map[string]any{"sale_price": "22", "stock": 99})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body := decode(t, w)
	assert.Equal(t, "22", body["sale_price"])
	assert.Equal(t, float64(3), body["stock"], "stock is not part of the patch")

	w = api.do(http.MethodPut, "/v1/products/"+uuid.NewString(), map[string]any{"name": "Ghost"})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = api.do(http.MethodGet, "/v1/products?name=kett", nil)
	require.Equal(t, http.StatusOK, w.Code)
	body = decode(t, w)
	assert.Equal(t, float64(1), body["total"])

	w = api.do(http.MethodGet, "/v1/products?limit=500", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	w = api.do(http.MethodPut, "/v1/customers/"+customerID, map[string]any{"phone": "555-0000"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "555-0000", decode(t, w)["phone"])

	w = api.do(http.MethodPut, "/v1/suppliers/"+supplierID, map[string]any{"name": "Electro Ltd"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "Electro Ltd", decode(t, w)["name"])

	w = api.do(http.MethodGet, "/v1/customers", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(1), decode(t, w)["total"])

	w = api.do(http.MethodGet, "/v1/suppliers?name=electro", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(1), decode(t, w)["total"])
}

func TestPaymentListsOverHTTP(t *testing.T) {
	api := newAPI(t, "admin")
	customerID := api.create("/v1/customers", map[string]any{"name": "Omar"})
	supplierID := api.create("/v1/suppliers", map[string]any{"name": "Grain"})

	api.create("/v1/payments", map[string]any{"customer_id": customerID, "amount": "15"})
	api.create("/v1/supplier-payments", map[string]any{"supplier_id": supplierID, "amount": "8"})
	api.create("/v1/receipts", map[string]any{"entity_type": "supplier", "entity_id": supplierID, "amount": "3"})

	w := api.do(http.MethodGet, "/v1/payments?entity_id="+customerID, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, float64(1), decode(t, w)["total"])

	w = api.do(http.MethodGet, "/v1/supplier-payments", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(1), decode(t, w)["total"])

	w = api.do(http.MethodGet, "/v1/receipts?entity_type=customer", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(0), decode(t, w)["total"])

	w = api.do(http.MethodGet, "/v1/receipts?entity_type=supplier", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(1), decode(t, w)["total"])

	w = api.do(http.MethodGet, "/v1/receipts?from=2024-13-01", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	w = api.do(http.MethodGet, "/v1/payments?entity_id=nope", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestInvoiceNotesPatchOverHTTP(t *testing.T) {
	api := newAPI(t, "admin")
	productID := api.create("/v1/products", map[string]any{
		"name": "Chair", "stock": 5, "purchase_price": "30", "sale_price": "50",
	})
	customerID := api.create("/v1/customers", map[string]any{"name": "Nils"})
	invoiceID := api.create("/v1/invoices", map[string]any{
		"payment_type": "credit",
		"customer_id":  customerID,
		"items":        []map[string]any{{"product_id": productID, "quantity": 2}},
	})

	w := api.do(http.MethodPut, "/v1/products/"+productID, map[string]any{"sale_price": "80"})
	require.Equal(t, http.StatusOK, w.Code)

	w = api.do(http.MethodPut, "/v1/invoices/"+invoiceID, map[string]any{"notes": "deliver Friday"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body := decode(t, w)
	assert.Equal(t, "100", body["total"])
	assert.Equal(t, "deliver Friday", body["notes"])

	w = api.do(http.MethodGet, "/v1/customers/"+customerID, nil)
	assert.Equal(t, "100", decode(t, w)["balance"])
	w = api.do(http.MethodGet, "/v1/products/"+productID, nil)
	assert.Equal(t, float64(3), decode(t, w)["stock"])

	w = api.do(http.MethodPut, "/v1/invoices/"+invoiceID, map[string]any{"items": []any{}})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}
