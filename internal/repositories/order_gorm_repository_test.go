package repositories_test

import (
	"testing"
	"time"

	"artstop/internal/apperrors"
	"artstop/internal/models"
	"artstop/internal/repositories"

	"github.com/stretchr/testify/assert"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open in-memory database: %v", err)
	}
	err = db.AutoMigrate(
		&models.Product{}, &models.User{},
		&models.Cart{}, &models.CartItem{},
		&models.Order{}, &models.OrderItem{},
	)
	if err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	return db
}

func seedCheckout(t *testing.T, db *gorm.DB) (*repositories.GORMOrderRepository, *models.Order) {
	t.Helper()

	productRepo := repositories.NewGORMProductRepository(db)
	cartRepo := repositories.NewGORMCartRepository(db)
	orderRepo := repositories.NewGORMOrderRepository(db)

	product := &models.Product{ID: "p1", Name: "Canvas Print", Price: 500, Stock: 10}
	if err := productRepo.Create(product); err != nil {
		t.Fatalf("failed to seed product: %v", err)
	}
	if err := cartRepo.AddItem("u1", models.CartItem{ProductID: "p1", Quantity: 2}); err != nil {
		t.Fatalf("failed to seed cart: %v", err)
	}

	order := &models.Order{
		OrderNumber: "ORD-1700000000000-0001",
		UserID:      "u1",
		Items: []models.OrderItem{
			{ProductID: "p1", Name: "Canvas Print", Price: 500, Quantity: 2, Total: 1000},
		},
		Subtotal: 1000, Tax: 180, Shipping: 20, Total: 1200,
		Status: models.OrderStatusPending,
		PaymentInfo: models.PaymentInfo{
			Method: "online", Status: models.PaymentStatusPending, GatewayOrderID: "order_g1",
		},
		CheckoutKey: "key1",
	}
	if err := orderRepo.Create(order); err != nil {
		t.Fatalf("failed to seed order: %v", err)
	}
	return orderRepo, order
}

func TestGORMOrderRepository_MarkPaid(t *testing.T) {
	db := setupDB(t)
	orderRepo, order := seedCheckout(t, db)

	confirmed, err := orderRepo.MarkPaid(order.ID, "pay_1", time.Now())
	assert.NoError(t, err)
	assert.Equal(t, models.OrderStatusConfirmed, confirmed.Status)
	assert.Equal(t, models.PaymentStatusCompleted, confirmed.PaymentInfo.Status)
	assert.Equal(t, "pay_1", confirmed.PaymentInfo.GatewayPaymentID)
	assert.NotNil(t, confirmed.PaymentInfo.PaidAt)

	// Sales counter applied and the cart emptied in the same transaction.
	var product models.Product
	assert.NoError(t, db.First(&product, "id = ?", "p1").Error)
	assert.Equal(t, 2, product.Sold)

	cart, err := repositories.NewGORMCartRepository(db).GetByUser("u1")
	assert.NoError(t, err)
	assert.Len(t, cart.Items, 0)
}

func TestGORMOrderRepository_MarkPaidIsIdempotent(t *testing.T) {
	db := setupDB(t)
	orderRepo, order := seedCheckout(t, db)

	_, err := orderRepo.MarkPaid(order.ID, "pay_1", time.Now())
	assert.NoError(t, err)

	// The verify call and the webhook may both confirm; the replay must not
	// double-count sales.
	again, err := orderRepo.MarkPaid(order.ID, "pay_1", time.Now())
	assert.NoError(t, err)
	assert.Equal(t, models.OrderStatusConfirmed, again.Status)

	var product models.Product
	assert.NoError(t, db.First(&product, "id = ?", "p1").Error)
	assert.Equal(t, 2, product.Sold)
}

func TestGORMOrderRepository_MarkPaidDoesNotResurrectRefundedOrder(t *testing.T) {
	db := setupDB(t)
	orderRepo, order := seedCheckout(t, db)

	_, err := orderRepo.MarkPaid(order.ID, "pay_1", time.Now())
	assert.NoError(t, err)
	err = orderRepo.RecordRefund(order.ID, "rfnd_1", 1200, "quality issue", time.Now(), models.OrderStatusRefunded)
	assert.NoError(t, err)

	// The gateway redelivers captures for hours; a late one must not
	// overwrite the refund.
	replayed, err := orderRepo.MarkPaid(order.ID, "pay_1", time.Now())
	assert.NoError(t, err)
	assert.Equal(t, models.OrderStatusRefunded, replayed.Status)
	assert.Equal(t, models.PaymentStatusRefunded, replayed.PaymentInfo.Status)

	stored, err := orderRepo.GetByID(order.ID)
	assert.NoError(t, err)
	assert.Equal(t, models.OrderStatusRefunded, stored.Status)
	assert.Equal(t, "rfnd_1", stored.PaymentInfo.GatewayRefundID)
	assert.Equal(t, 1200.0, stored.PaymentInfo.RefundAmount)

	var product models.Product
	assert.NoError(t, db.First(&product, "id = ?", "p1").Error)
	assert.Equal(t, 2, product.Sold)
}

func TestGORMOrderRepository_MarkPaidUnknownOrder(t *testing.T) {
	db := setupDB(t)
	orderRepo := repositories.NewGORMOrderRepository(db)

	_, err := orderRepo.MarkPaid("missing", "pay_1", time.Now())
	assert.True(t, apperrors.IsNotFound(err))
}

func TestGORMOrderRepository_MarkFailedOnlyCancelsPending(t *testing.T) {
	db := setupDB(t)
	orderRepo, order := seedCheckout(t, db)

	assert.NoError(t, orderRepo.MarkFailed(order.ID))
	cancelled, err := orderRepo.GetByID(order.ID)
	assert.NoError(t, err)
	assert.Equal(t, models.OrderStatusCancelled, cancelled.Status)
	assert.Equal(t, models.PaymentStatusFailed, cancelled.PaymentInfo.Status)

	// A late failed event after confirmation is a no-op.
	db = setupDB(t)
	orderRepo, order = seedCheckout(t, db)
	_, err = orderRepo.MarkPaid(order.ID, "pay_1", time.Now())
	assert.NoError(t, err)
	assert.NoError(t, orderRepo.MarkFailed(order.ID))
	confirmed, err := orderRepo.GetByID(order.ID)
	assert.NoError(t, err)
	assert.Equal(t, models.OrderStatusConfirmed, confirmed.Status)
}

func TestGORMOrderRepository_GatewayLookups(t *testing.T) {
	db := setupDB(t)
	orderRepo, order := seedCheckout(t, db)

	byGatewayOrder, err := orderRepo.GetByGatewayOrderID("order_g1")
	assert.NoError(t, err)
	assert.Equal(t, order.ID, byGatewayOrder.ID)
	assert.Len(t, byGatewayOrder.Items, 1)

	_, err = orderRepo.MarkPaid(order.ID, "pay_1", time.Now())
	assert.NoError(t, err)

	byGatewayPayment, err := orderRepo.GetByGatewayPaymentID("pay_1")
	assert.NoError(t, err)
	assert.Equal(t, order.ID, byGatewayPayment.ID)

	_, err = orderRepo.GetByGatewayOrderID("order_unknown")
	assert.True(t, apperrors.IsNotFound(err))
}

func TestGORMOrderRepository_FindPendingByCheckoutKey(t *testing.T) {
	db := setupDB(t)
	orderRepo, order := seedCheckout(t, db)

	found, err := orderRepo.FindPendingByCheckoutKey("u1", "key1")
	assert.NoError(t, err)
	assert.NotNil(t, found)
	assert.Equal(t, order.ID, found.ID)

	none, err := orderRepo.FindPendingByCheckoutKey("u1", "other")
	assert.NoError(t, err)
	assert.Nil(t, none)

	// A confirmed order no longer dedupes new checkouts.
	_, err = orderRepo.MarkPaid(order.ID, "pay_1", time.Now())
	assert.NoError(t, err)
	confirmedMatch, err := orderRepo.FindPendingByCheckoutKey("u1", "key1")
	assert.NoError(t, err)
	assert.Nil(t, confirmedMatch)
}

func TestGORMOrderRepository_RecordRefund(t *testing.T) {
	db := setupDB(t)
	orderRepo, order := seedCheckout(t, db)

	_, err := orderRepo.MarkPaid(order.ID, "pay_1", time.Now())
	assert.NoError(t, err)

	refundedAt := time.Now()
	err = orderRepo.RecordRefund(order.ID, "rfnd_1", 1200, "quality issue", refundedAt, models.OrderStatusRefunded)
	assert.NoError(t, err)

	refunded, err := orderRepo.GetByID(order.ID)
	assert.NoError(t, err)
	assert.Equal(t, models.OrderStatusRefunded, refunded.Status)
	assert.Equal(t, models.PaymentStatusRefunded, refunded.PaymentInfo.Status)
	assert.Equal(t, "rfnd_1", refunded.PaymentInfo.GatewayRefundID)
	assert.Equal(t, 1200.0, refunded.PaymentInfo.RefundAmount)
	assert.NotNil(t, refunded.PaymentInfo.RefundedAt)
}

func TestGORMOrderRepository_DeliveredTimestampStampedOnce(t *testing.T) {
	db := setupDB(t)
	orderRepo, order := seedCheckout(t, db)

	_, err := orderRepo.MarkPaid(order.ID, "pay_1", time.Now())
	assert.NoError(t, err)

	assert.NoError(t, orderRepo.UpdateStatus(order.ID, models.OrderStatusDelivered))
	first, err := orderRepo.GetByID(order.ID)
	assert.NoError(t, err)
	assert.NotNil(t, first.DeliveredAt)

	time.Sleep(10 * time.Millisecond)
	assert.NoError(t, orderRepo.UpdateStatus(order.ID, models.OrderStatusDelivered))
	second, err := orderRepo.GetByID(order.ID)
	assert.NoError(t, err)
	assert.Equal(t, first.DeliveredAt.UnixNano(), second.DeliveredAt.UnixNano())
}
