package repositories

import (
	"sync"
	"time"

	"artstop/internal/apperrors"
	"artstop/internal/models"

	"github.com/google/uuid"
)

// MockOrderRepository is an in-memory implementation of OrderRepository.
// MarkPaid mirrors the transactional behavior of the GORM repository by
// applying sales counters and clearing the cart through the sibling mocks.
type MockOrderRepository struct {
	orders   map[string]models.Order
	products *MockProductRepository
	carts    *MockCartRepository
	mu       sync.RWMutex
}

// NewMockOrderRepository creates a new instance of MockOrderRepository.
// products and carts may be nil when sales/cart side effects are not needed.
func NewMockOrderRepository(products *MockProductRepository, carts *MockCartRepository) *MockOrderRepository {
	return &MockOrderRepository{
		orders:   make(map[string]models.Order),
		products: products,
		carts:    carts,
	}
}

// Create adds a new order.
func (r *MockOrderRepository) Create(order *models.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if order.ID == "" {
		order.ID = uuid.New().String()
	}
	order.CreatedAt = time.Now()
	order.UpdatedAt = time.Now()
	r.orders[order.ID] = *order
	return nil
}

// GetByID returns an order by its ID.
func (r *MockOrderRepository) GetByID(id string) (*models.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	order, ok := r.orders[id]
	if !ok {
		return nil, apperrors.NotFound("order not found")
	}
	return &order, nil
}

// GetByGatewayOrderID returns the order owning a gateway order id.
func (r *MockOrderRepository) GetByGatewayOrderID(gatewayOrderID string) (*models.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, order := range r.orders {
		if order.PaymentInfo.GatewayOrderID == gatewayOrderID {
			o := order
			return &o, nil
		}
	}
	return nil, apperrors.NotFound("order not found")
}

// GetByGatewayPaymentID returns the order owning a gateway payment id.
func (r *MockOrderRepository) GetByGatewayPaymentID(gatewayPaymentID string) (*models.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, order := range r.orders {
		if order.PaymentInfo.GatewayPaymentID == gatewayPaymentID {
			o := order
			return &o, nil
		}
	}
	return nil, apperrors.NotFound("order not found")
}

// FindPendingByCheckoutKey returns the user's pending order for an
// unchanged cart, or nil when there is none.
func (r *MockOrderRepository) FindPendingByCheckoutKey(userID, key string) (*models.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, order := range r.orders {
		if order.UserID == userID && order.CheckoutKey == key && order.Status == models.OrderStatusPending {
			o := order
			return &o, nil
		}
	}
	return nil, nil
}

// MarkPaid confirms a pending order, applies sales counters once and clears
// the owner's cart. Orders past pending are returned unchanged.
func (r *MockOrderRepository) MarkPaid(id, gatewayPaymentID string, paidAt time.Time) (*models.Order, error) {
	r.mu.Lock()
	order, ok := r.orders[id]
	if !ok {
		r.mu.Unlock()
		return nil, apperrors.NotFound("order not found")
	}
	// Only a pending order can be confirmed; replays and late captures on
	// confirmed, refunded or cancelled orders leave them untouched.
	if order.Status != models.OrderStatusPending {
		r.mu.Unlock()
		return &order, nil
	}

	applySales := !order.SalesApplied
	order.Status = models.OrderStatusConfirmed
	order.PaymentInfo.Status = models.PaymentStatusCompleted
	order.PaymentInfo.GatewayPaymentID = gatewayPaymentID
	order.PaymentInfo.PaidAt = &paidAt
	order.SalesApplied = true
	order.UpdatedAt = time.Now()
	r.orders[id] = order
	r.mu.Unlock()

	if applySales && r.products != nil {
		for _, item := range order.Items {
			r.products.addSold(item.ProductID, item.Quantity)
		}
	}
	if r.carts != nil {
		r.carts.Clear(order.UserID)
	}
	return &order, nil
}

// MarkFailed cancels a still-pending order.
func (r *MockOrderRepository) MarkFailed(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	order, ok := r.orders[id]
	if !ok || order.Status != models.OrderStatusPending {
		return nil
	}
	order.Status = models.OrderStatusCancelled
	order.PaymentInfo.Status = models.PaymentStatusFailed
	order.UpdatedAt = time.Now()
	r.orders[id] = order
	return nil
}

// RequestRefund records a customer refund request.
func (r *MockOrderRepository) RequestRefund(id, reason string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	order, ok := r.orders[id]
	if !ok {
		return apperrors.NotFound("order not found")
	}
	order.Status = models.OrderStatusRefundRequested
	order.PaymentInfo.RefundReason = reason
	order.UpdatedAt = time.Now()
	r.orders[id] = order
	return nil
}

// RecordRefund stores the gateway refund result on the order.
func (r *MockOrderRepository) RecordRefund(id, gatewayRefundID string, amount float64, reason string, refundedAt time.Time, status models.OrderStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	order, ok := r.orders[id]
	if !ok {
		return apperrors.NotFound("order not found")
	}
	order.Status = status
	order.PaymentInfo.Status = models.PaymentStatusRefunded
	order.PaymentInfo.GatewayRefundID = gatewayRefundID
	order.PaymentInfo.RefundedAt = &refundedAt
	order.PaymentInfo.RefundAmount = amount
	order.PaymentInfo.RefundReason = reason
	order.UpdatedAt = time.Now()
	r.orders[id] = order
	return nil
}

// UpdateStatus applies an admin-driven fulfilment transition, stamping the
// delivery timestamp once.
func (r *MockOrderRepository) UpdateStatus(id string, status models.OrderStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	order, ok := r.orders[id]
	if !ok {
		return apperrors.NotFound("order not found")
	}
	order.Status = status
	if status == models.OrderStatusDelivered && order.DeliveredAt == nil {
		now := time.Now()
		order.DeliveredAt = &now
	}
	order.UpdatedAt = time.Now()
	r.orders[id] = order
	return nil
}
