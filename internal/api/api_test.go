package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Bahrichadha23/Pneushopp-sub000/internal/auth"
	"github.com/Bahrichadha23/Pneushopp-sub000/internal/cart"
	"github.com/Bahrichadha23/Pneushopp-sub000/internal/entity"
	"github.com/Bahrichadha23/Pneushopp-sub000/internal/idempotency"
	"github.com/Bahrichadha23/Pneushopp-sub000/internal/pricing"
	"github.com/Bahrichadha23/Pneushopp-sub000/internal/repository"
	"github.com/Bahrichadha23/Pneushopp-sub000/internal/service"
	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const jwtSecret = "api-test-secret"

type testServer struct {
	e     *echo.Echo
	admin string
	alice string
	bob   string
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	carts := cart.NewLocalStore()
	deps := service.Dependencies{
		Store:   repository.NewMemoryStore(),
		Carts:   carts,
		Keys:    idempotency.NewMemoryStore(time.Hour),
		Pricing: pricing.NewCalculator(0.19),
	}
	orders := service.NewOrderService(deps)

	e := echo.New()
	RegisterRoutes(e, Handlers{
		Orders:         NewOrderHandler(orders),
		PurchaseOrders: NewPurchaseOrderHandler(service.NewPurchaseOrderService(deps)),
		Carts:          NewCartHandler(carts, orders),
		Products:       NewProductHandler(service.NewProductService(deps), service.NewLedgerService(deps)),
		Suppliers:      NewSupplierHandler(service.NewSupplierService(deps)),
	}, jwtSecret)

	return &testServer{
		e:     e,
		admin: token(t, 1, auth.RoleAdmin),
		alice: token(t, 10, auth.RoleCustomer),
		bob:   token(t, 11, auth.RoleCustomer),
	}
}

func token(t *testing.T, userID int, role string) string {
	t.Helper()
	tkn, err := auth.IssueToken(jwtSecret, &auth.JwtCustomClaims{
		UserID: userID,
		Name:   fmt.Sprintf("user-%d", userID),
		Email:  fmt.Sprintf("user-%d@example.com", userID),
		Role:   role,
	}, time.Hour)
	require.NoError(t, err)
	return tkn
}

func (s *testServer) do(method, path, token string, body any, headers ...string) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	s.e.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func (s *testServer) createProduct(t *testing.T, ref string, stock int) entity.Product {
	t.Helper()
	rec := s.do(http.MethodPost, "/products", s.admin, map[string]any{
		"reference": ref,
		"name":      "Pneu " + ref,
		"price":     "120.000",
		"stock":     stock,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode[entity.Product](t, rec)
}

func (s *testServer) stock(t *testing.T, productID int) int {
	t.Helper()
	rec := s.do(http.MethodGet, fmt.Sprintf("/products/%d/stock", productID), s.alice, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	return decode[map[string]int](t, rec)["stock"]
}

func orderBody(productID, quantity int) map[string]any {
	return map[string]any{
		"items":            []map[string]int{{"product_id": productID, "quantity": quantity}},
		"shipping_address": "Avenue Habib Bourguiba, Sousse",
		"payment_method":   "cash_on_delivery",
	}
}

func TestHealthNeedsNoToken(t *testing.T) {
	s := newTestServer(t)
	assert.Equal(t, http.StatusOK, s.do(http.MethodGet, "/health", "", nil).Code)
	assert.Equal(t, http.StatusUnauthorized, s.do(http.MethodGet, "/orders", "", nil).Code)
}

func TestOrderLifecycle(t *testing.T) {
	s := newTestServer(t)
	p := s.createProduct(t, "MI-205-55-R16", 10)
	assert.True(t, p.IsActive)

	rec := s.do(http.MethodPost, "/orders", s.alice, orderBody(p.ID, 3), "Idempotency-Key", "alice-1")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	order := decode[entity.Order](t, rec)
	assert.Equal(t, entity.OrderPending, order.Status)
	assert.Equal(t, 10, order.UserID)
	assert.Equal(t, 7, s.stock(t, p.ID))

	// retried with the legacy header name
	rec = s.do(http.MethodPost, "/orders", s.alice, orderBody(p.ID, 3), "Idempotent-Key", "alice-1")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, order.ID, decode[entity.Order](t, rec).ID)
	assert.Equal(t, 7, s.stock(t, p.ID))

	path := fmt.Sprintf("/orders/%d", order.ID)
	assert.Equal(t, http.StatusForbidden, s.do(http.MethodGet, path, s.bob, nil).Code)
	assert.Equal(t, http.StatusOK, s.do(http.MethodGet, path, s.alice, nil).Code)

	rec = s.do(http.MethodPatch, path, s.alice, map[string]any{"status": "processing", "delivery_cost": "15"})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = s.do(http.MethodPatch, path, s.admin, map[string]any{"status": "processing", "delivery_cost": 15.0})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	approved := decode[entity.Order](t, rec)
	require.NotNil(t, approved.DeliveryCost)
	assert.True(t, decimal.NewFromInt(15).Equal(*approved.DeliveryCost))

	rec = s.do(http.MethodPatch, path, s.admin, map[string]any{"status": "processing", "delivery_cost": 20})
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "invalid_transition", decode[errorResponse](t, rec).Code)

	rec = s.do(http.MethodPatch, path, s.admin, map[string]any{"status": "teleported"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCustomerCancelRestoresStock(t *testing.T) {
	s := newTestServer(t)
	p := s.createProduct(t, "A", 5)

	rec := s.do(http.MethodPost, "/orders", s.alice, orderBody(p.ID, 2))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	order := decode[entity.Order](t, rec)
	path := fmt.Sprintf("/orders/%d", order.ID)

	assert.Equal(t, http.StatusForbidden, s.do(http.MethodPatch, path, s.bob, map[string]string{"status": "cancelled"}).Code)

	rec = s.do(http.MethodPatch, path, s.alice, map[string]string{"status": "cancelled"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, entity.OrderCancelled, decode[entity.Order](t, rec).Status)
	assert.Equal(t, 5, s.stock(t, p.ID))
}

func TestOrderErrors(t *testing.T) {
	s := newTestServer(t)
	p := s.createProduct(t, "A", 1)

	rec := s.do(http.MethodPost, "/orders", s.alice, map[string]any{
		"items":            []any{},
		"shipping_address": "x",
		"payment_method":   "card",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "empty_cart", decode[errorResponse](t, rec).Code)

	rec = s.do(http.MethodPost, "/orders", s.alice, orderBody(p.ID, 2))
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "insufficient_stock", decode[errorResponse](t, rec).Code)

	rec = s.do(http.MethodGet, "/orders/999", s.admin, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "not_found", decode[errorResponse](t, rec).Code)
}

func TestOrderRejectsOverflowingQuantities(t *testing.T) {
	s := newTestServer(t)
	p := s.createProduct(t, "A", 10)

	body := orderBody(p.ID, math.MaxInt)
	body["items"] = []map[string]int{
		{"product_id": p.ID, "quantity": math.MaxInt},
		{"product_id": p.ID, "quantity": math.MaxInt},
	}
	rec := s.do(http.MethodPost, "/orders", s.alice, body)
	assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
	assert.Equal(t, "validation", decode[errorResponse](t, rec).Code)
	assert.Equal(t, 10, s.stock(t, p.ID))
}

func TestListOrdersScopesCustomers(t *testing.T) {
	s := newTestServer(t)
	p := s.createProduct(t, "A", 10)
	require.Equal(t, http.StatusCreated, s.do(http.MethodPost, "/orders", s.alice, orderBody(p.ID, 1)).Code)
	require.Equal(t, http.StatusCreated, s.do(http.MethodPost, "/orders", s.bob, orderBody(p.ID, 1)).Code)

	rec := s.do(http.MethodGet, "/orders?user_id=11", s.alice, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	mine := decode[[]entity.Order](t, rec)
	require.Len(t, mine, 1)
	assert.Equal(t, 10, mine[0].UserID)

	rec = s.do(http.MethodGet, "/orders?status=pending", s.admin, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]entity.Order](t, rec), 2)
}

func TestPurchaseOrderFlow(t *testing.T) {
	s := newTestServer(t)
	p := s.createProduct(t, "BR-195-65-R15", 7)

	rec := s.do(http.MethodPost, "/suppliers", s.admin, map[string]any{"name": "Pneus du Sahel", "rating": 4.5})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	sup := decode[entity.Supplier](t, rec)

	body := map[string]any{
		"fournisseur":           sup.ID,
		"date_commande":         "2026-01-05",
		"date_livraison_prevue": "2026-01-12",
		"articles": []map[string]any{
			{"product_id": p.ID, "quantite": 5, "prix_unitaire": "60.000"},
		},
	}
	assert.Equal(t, http.StatusForbidden, s.do(http.MethodPost, "/purchase-orders", s.alice, body).Code)

	rec = s.do(http.MethodPost, "/purchase-orders", s.admin, body)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	po := decode[entity.PurchaseOrder](t, rec)
	assert.Equal(t, entity.PurchaseOrderPending, po.Status)
	assert.Equal(t, 7, s.stock(t, p.ID))

	path := fmt.Sprintf("/purchase-orders/%d", po.ID)
	rec = s.do(http.MethodPatch, path, s.admin, map[string]any{"statut": "confirmé"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, 12, s.stock(t, p.ID))

	rec = s.do(http.MethodPatch, path, s.admin, map[string]any{"statut": "confirme"})
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, 12, s.stock(t, p.ID))

	rec = s.do(http.MethodGet, "/purchase-orders?statut=confirme", s.admin, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]entity.PurchaseOrder](t, rec), 1)
}

func TestCartCheckout(t *testing.T) {
	s := newTestServer(t)
	p := s.createProduct(t, "A", 10)

	rec := s.do(http.MethodPost, "/cart/items", s.alice, map[string]int{"product_id": p.ID, "quantity": 1})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	rec = s.do(http.MethodPatch, fmt.Sprintf("/cart/items/%d", p.ID), s.alice, map[string]int{"quantity": 4})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, []entity.CartItem{{ProductID: p.ID, Quantity: 4}}, decode[entity.Cart](t, rec).Items)

	rec = s.do(http.MethodPost, "/cart/items", s.alice, map[string]int{"product_id": p.ID, "quantity": 0})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(http.MethodPost, "/cart/checkout", s.alice, map[string]string{
		"shipping_address": "Sfax",
		"payment_method":   "card",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, 6, s.stock(t, p.ID))

	rec = s.do(http.MethodGet, "/cart", s.alice, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decode[entity.Cart](t, rec).Items)
}

func TestStockAdjustmentAndMovements(t *testing.T) {
	s := newTestServer(t)
	p := s.createProduct(t, "A", 2)
	path := fmt.Sprintf("/products/%d/stock-adjustments", p.ID)

	assert.Equal(t, http.StatusForbidden, s.do(http.MethodPost, path, s.alice, map[string]any{"delta": 3}).Code)

	rec := s.do(http.MethodPost, path, s.admin, map[string]any{"delta": 3, "reference": "inv-1"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, 5, decode[map[string]int](t, rec)["stock"])

	rec = s.do(http.MethodPost, path, s.admin, map[string]any{"delta": 3, "reference": "inv-1"})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = s.do(http.MethodPatch, fmt.Sprintf("/products/%d", p.ID), s.admin, map[string]any{"name": "Pneu été", "stock": 999})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, 5, s.stock(t, p.ID))

	rec = s.do(http.MethodGet, fmt.Sprintf("/products/%d/movements", p.ID), s.admin, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]entity.StockMovement](t, rec), 1)
}

func TestStatusOf(t *testing.T) {
	status, code := statusOf(fmt.Errorf("%w: db down", entity.ErrTransportFailure))
	assert.Equal(t, http.StatusServiceUnavailable, status)
	assert.Equal(t, "transport_failure", code)

	status, _ = statusOf(entity.ErrStaleWrite)
	assert.Equal(t, http.StatusConflict, status)

	status, _ = statusOf(assert.AnError)
	assert.Equal(t, http.StatusInternalServerError, status)
}
