package handlers_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"artstop/internal/config"
	"artstop/internal/gateway"
	"artstop/internal/handlers"
	"artstop/internal/middleware"
	"artstop/internal/models"
	"artstop/internal/repositories"
	"artstop/internal/services"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

const (
	testKeySecret     = "test_key_secret"
	testWebhookSecret = "test_webhook_secret"
)

// stubGateway is a canned gateway.Client for integration tests.
type stubGateway struct {
	orderSeq  int
	refundSeq int
}

func (g *stubGateway) CreateOrder(amount int64, currency, receipt string, notes map[string]string) (*gateway.Order, error) {
	g.orderSeq++
	return &gateway.Order{
		ID:       fmt.Sprintf("order_stub_%d", g.orderSeq),
		Amount:   amount,
		Currency: currency,
		Receipt:  receipt,
		Status:   "created",
	}, nil
}

func (g *stubGateway) Refund(paymentID string, amount int64, notes map[string]string) (*gateway.Refund, error) {
	g.refundSeq++
	return &gateway.Refund{
		ID:        fmt.Sprintf("rfnd_stub_%d", g.refundSeq),
		PaymentID: paymentID,
		Amount:    amount,
		Status:    "processed",
	}, nil
}

type testEnv struct {
	app         *fiber.App
	authService *services.AuthService
	userRepo    repositories.UserRepository
	productRepo repositories.ProductRepository
}

// setupApp wires a Fiber app against an in-memory SQLite database with a
// stub gateway, mirroring the production wiring in main.go.
func setupApp(t *testing.T) *testEnv {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to connect to in-memory database: %v", err)
	}
	err = db.AutoMigrate(
		&models.Product{}, &models.User{},
		&models.Cart{}, &models.CartItem{},
		&models.Order{}, &models.OrderItem{},
	)
	if err != nil {
		t.Fatalf("failed to auto-migrate database: %v", err)
	}

	orderRepo := repositories.NewGORMOrderRepository(db)
	cartRepo := repositories.NewGORMCartRepository(db)
	productRepo := repositories.NewGORMProductRepository(db)
	userRepo := repositories.NewGORMUserRepository(db)

	gatewayCfg := config.Gateway{KeyID: "key_test", KeySecret: testKeySecret, WebhookSecret: testWebhookSecret}
	checkoutCfg := config.Checkout{Currency: "INR", TaxRate: 0.18, ShippingFee: 20.0, MinAmountPaise: 100}

	authService := services.NewAuthService(userRepo, "test_jwt_secret")
	productService := services.NewProductService(productRepo)
	cartService := services.NewCartService(cartRepo, productRepo)
	paymentService := services.NewPaymentService(
		orderRepo, cartRepo, productRepo, userRepo,
		&stubGateway{}, nil, gatewayCfg, checkoutCfg,
	)

	app := fiber.New()

	handlers.NewWebhookHandler(paymentService, testWebhookSecret).RegisterRoutes(app)

	apiV1 := app.Group("/api/v1")
	handlers.NewAuthHandler(authService).RegisterRoutes(apiV1)

	protected := apiV1.Group("", middleware.AuthRequired(authService))
	handlers.NewProductHandler(productService).RegisterRoutes(protected)
	handlers.NewCartHandler(cartService).RegisterRoutes(protected)
	handlers.NewPaymentHandler(paymentService).RegisterRoutes(protected)

	return &testEnv{app: app, authService: authService, userRepo: userRepo, productRepo: productRepo}
}

func TestMain(m *testing.M) {
	log.SetOutput(io.Discard)
	os.Exit(m.Run())
}

func (e *testEnv) request(t *testing.T, method, path, token string, body interface{}, headers map[string]string) (*http.Response, map[string]interface{}) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("failed to marshal body: %v", err)
		}
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := e.app.Test(req, -1)
	if err != nil {
		t.Fatalf("request %s %s failed: %v", method, path, err)
	}

	decoded := map[string]interface{}{}
	raw, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &decoded); err != nil {
			t.Fatalf("failed to decode response %s: %v", raw, err)
		}
	}
	return resp, decoded
}

func (e *testEnv) registerAndLogin(t *testing.T, username string) string {
	t.Helper()

	resp, _ := e.request(t, http.MethodPost, "/api/v1/auth/register", "", map[string]interface{}{
		"username": username,
		"email":    username + "@example.com",
		"password": "secret123",
		"name":     "Asha",
		"phone":    "+911234567890",
	}, nil)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)

	resp, body := e.request(t, http.MethodPost, "/api/v1/auth/login", "", map[string]interface{}{
		"username": username,
		"password": "secret123",
	}, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	token, _ := body["token"].(string)
	assert.NotEmpty(t, token)
	return token
}

func (e *testEnv) adminToken(t *testing.T) string {
	t.Helper()

	hashed, err := bcrypt.GenerateFromPassword([]byte("admin123"), bcrypt.DefaultCost)
	assert.NoError(t, err)
	err = e.userRepo.Create(&models.User{
		Username: "admin", Email: "admin@example.com",
		Password: string(hashed), Role: models.RoleAdmin,
	})
	assert.NoError(t, err)

	token, err := e.authService.LoginUser("admin", "admin123")
	assert.NoError(t, err)
	return token
}

func (e *testEnv) seedProduct(t *testing.T) *models.Product {
	t.Helper()
	product := &models.Product{Name: "Canvas Print", Price: 500, Stock: 10}
	assert.NoError(t, e.productRepo.Create(product))
	return product
}

func TestUnauthenticatedAccessRejected(t *testing.T) {
	env := setupApp(t)

	resp, _ := env.request(t, http.MethodGet, "/api/v1/cart/", "", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, _ = env.request(t, http.MethodPost, "/api/v1/payments/create-order", "", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestCheckoutAndVerifyFlow(t *testing.T) {
	env := setupApp(t)
	product := env.seedProduct(t)
	token := env.registerAndLogin(t, "asha")

	// Fill the cart: 2 x ₹500 -> subtotal 1000, tax 180, shipping 20.
	resp, _ := env.request(t, http.MethodPost, "/api/v1/cart/items", token, map[string]interface{}{
		"product_id": product.ID,
		"quantity":   2,
	}, nil)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)

	resp, body := env.request(t, http.MethodGet, "/api/v1/cart/", token, nil, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	cart := body["cart"].(map[string]interface{})
	assert.Equal(t, 1000.0, cart["subtotal"])

	// Create the order: amount in paise, cart untouched.
	resp, body = env.request(t, http.MethodPost, "/api/v1/payments/create-order", token, map[string]interface{}{}, nil)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, 120000.0, body["amount"])
	assert.Equal(t, "INR", body["currency"])
	assert.Equal(t, "key_test", body["key"])
	orderID := body["orderId"].(string)
	gatewayOrderID := body["gatewayOrderId"].(string)
	assert.NotEmpty(t, gatewayOrderID)

	resp, body = env.request(t, http.MethodGet, "/api/v1/payments/"+orderID, token, nil, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "pending", body["status"])

	// A repeated create-order against the unchanged cart reuses the order.
	resp, body = env.request(t, http.MethodPost, "/api/v1/payments/create-order", token, map[string]interface{}{}, nil)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, orderID, body["orderId"])

	// A tampered signature changes nothing.
	resp, _ = env.request(t, http.MethodPost, "/api/v1/payments/verify", token, map[string]interface{}{
		"gatewayOrderId":   gatewayOrderID,
		"gatewayPaymentId": "pay_int_1",
		"signature":        "deadbeef",
		"orderId":          orderID,
	}, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, body = env.request(t, http.MethodGet, "/api/v1/payments/"+orderID, token, nil, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "pending", body["status"])

	// A valid signature confirms the order and clears the cart.
	signature := gateway.SignPayment(testKeySecret, gatewayOrderID, "pay_int_1")
	resp, body = env.request(t, http.MethodPost, "/api/v1/payments/verify", token, map[string]interface{}{
		"gatewayOrderId":   gatewayOrderID,
		"gatewayPaymentId": "pay_int_1",
		"signature":        signature,
		"orderId":          orderID,
	}, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	order := body["order"].(map[string]interface{})
	assert.Equal(t, "confirmed", order["status"])
	assert.Equal(t, 1200.0, order["total"])

	resp, body = env.request(t, http.MethodGet, "/api/v1/cart/", token, nil, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	cart = body["cart"].(map[string]interface{})
	assert.Len(t, cart["items"], 0)
}

func TestWebhookSignatureAndFailureFlow(t *testing.T) {
	env := setupApp(t)
	product := env.seedProduct(t)
	token := env.registerAndLogin(t, "ravi")

	resp, _ := env.request(t, http.MethodPost, "/api/v1/cart/items", token, map[string]interface{}{
		"product_id": product.ID,
		"quantity":   1,
	}, nil)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)

	resp, body := env.request(t, http.MethodPost, "/api/v1/payments/create-order", token, map[string]interface{}{}, nil)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	orderID := body["orderId"].(string)
	gatewayOrderID := body["gatewayOrderId"].(string)

	event := map[string]interface{}{
		"event": "payment.failed",
		"payload": map[string]interface{}{
			"payment": map[string]interface{}{
				"entity": map[string]interface{}{"id": "pay_int_2", "order_id": gatewayOrderID},
			},
		},
	}
	raw, err := json.Marshal(event)
	assert.NoError(t, err)

	// Wrong signature: 401 and no state change.
	resp, _ = env.request(t, http.MethodPost, "/webhooks/gateway", "", event,
		map[string]string{"x-gateway-signature": "bogus"})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, body = env.request(t, http.MethodGet, "/api/v1/payments/"+orderID, token, nil, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "pending", body["status"])

	// Correct signature over the raw body cancels the order.
	resp, body = env.request(t, http.MethodPost, "/webhooks/gateway", "", event,
		map[string]string{"x-gateway-signature": gateway.SignWebhook(testWebhookSecret, raw)})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, body["received"])

	resp, body = env.request(t, http.MethodGet, "/api/v1/payments/"+orderID, token, nil, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "cancelled", body["status"])
	paymentInfo := body["paymentInfo"].(map[string]interface{})
	assert.Equal(t, "failed", paymentInfo["status"])

	// Unknown orders are acknowledged without error.
	unknown := map[string]interface{}{
		"event": "payment.captured",
		"payload": map[string]interface{}{
			"payment": map[string]interface{}{
				"entity": map[string]interface{}{"id": "pay_x", "order_id": "order_unknown"},
			},
		},
	}
	rawUnknown, _ := json.Marshal(unknown)
	resp, body = env.request(t, http.MethodPost, "/webhooks/gateway", "", unknown,
		map[string]string{"x-gateway-signature": gateway.SignWebhook(testWebhookSecret, rawUnknown)})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, body["received"])
}

func TestRefundFlow(t *testing.T) {
	env := setupApp(t)
	product := env.seedProduct(t)
	token := env.registerAndLogin(t, "meera")

	resp, _ := env.request(t, http.MethodPost, "/api/v1/cart/items", token, map[string]interface{}{
		"product_id": product.ID,
		"quantity":   2,
	}, nil)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)

	resp, body := env.request(t, http.MethodPost, "/api/v1/payments/create-order", token, map[string]interface{}{}, nil)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	orderID := body["orderId"].(string)
	gatewayOrderID := body["gatewayOrderId"].(string)

	signature := gateway.SignPayment(testKeySecret, gatewayOrderID, "pay_int_3")
	resp, _ = env.request(t, http.MethodPost, "/api/v1/payments/verify", token, map[string]interface{}{
		"gatewayOrderId":   gatewayOrderID,
		"gatewayPaymentId": "pay_int_3",
		"signature":        signature,
		"orderId":          orderID,
	}, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	// A stranger cannot touch the order.
	strangerToken := env.registerAndLogin(t, "stranger")
	resp, _ = env.request(t, http.MethodPost, "/api/v1/payments/refund", strangerToken, map[string]interface{}{
		"orderId": orderID,
		"reason":  "not mine",
	}, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	// The owner's refund call is a request: no money moves.
	resp, body = env.request(t, http.MethodPost, "/api/v1/payments/refund", token, map[string]interface{}{
		"orderId": orderID,
		"reason":  "damaged frame",
	}, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	order := body["order"].(map[string]interface{})
	assert.Equal(t, "refund_requested", order["status"])
	assert.Nil(t, body["refund"])

	// An admin approval reaches the gateway and records the refund.
	adminToken := env.adminToken(t)
	resp, body = env.request(t, http.MethodPost, "/api/v1/payments/refund", adminToken, map[string]interface{}{
		"orderId": orderID,
		"reason":  "approved",
	}, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	order = body["order"].(map[string]interface{})
	assert.Equal(t, "refunded", order["status"])
	refund := body["refund"].(map[string]interface{})
	assert.Equal(t, 1200.0, refund["amount"])
	assert.NotEmpty(t, refund["refund_id"])

	// Refunding again fails the state guard.
	resp, _ = env.request(t, http.MethodPost, "/api/v1/payments/refund", adminToken, map[string]interface{}{
		"orderId": orderID,
	}, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestProductWritesRequireAdmin(t *testing.T) {
	env := setupApp(t)
	token := env.registerAndLogin(t, "asha")

	resp, _ := env.request(t, http.MethodPost, "/api/v1/products/", token, map[string]interface{}{
		"name":  "Poster",
		"price": 200,
		"stock": 5,
	}, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	adminToken := env.adminToken(t)
	resp, body := env.request(t, http.MethodPost, "/api/v1/products/", adminToken, map[string]interface{}{
		"name":  "Poster",
		"price": 200,
		"stock": 5,
	}, nil)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	created := body["product"].(map[string]interface{})
	assert.NotEmpty(t, created["id"])
}
