package repositories

import (
	"time"

	"artstop/internal/models"
)

// OrderRepository defines the interface for order data access. The
// lifecycle transitions (MarkPaid, MarkFailed, refunds) are expressed as
// repository operations so each one is a single atomic write.
type OrderRepository interface {
	Create(order *models.Order) error
	GetByID(id string) (*models.Order, error)
	GetByGatewayOrderID(gatewayOrderID string) (*models.Order, error)
	GetByGatewayPaymentID(gatewayPaymentID string) (*models.Order, error)
	// FindPendingByCheckoutKey returns the user's pending order for an
	// unchanged cart, or nil when there is none.
	FindPendingByCheckoutKey(userID, key string) (*models.Order, error)
	// MarkPaid confirms a pending order, applies product sales counters
	// and clears the owner's cart in one transaction. Orders past pending
	// are returned unchanged: the verify call and the webhook may race,
	// and a redelivered capture cannot undo a refund or cancellation.
	MarkPaid(id, gatewayPaymentID string, paidAt time.Time) (*models.Order, error)
	// MarkFailed cancels a still-pending order. Orders already confirmed
	// are left untouched.
	MarkFailed(id string) error
	// RequestRefund records a customer's refund request without touching
	// payment state; no money moves until an admin approves.
	RequestRefund(id, reason string) error
	// RecordRefund stores the gateway refund result and moves the order to
	// refunded or partially_refunded.
	RecordRefund(id, gatewayRefundID string, amount float64, reason string, refundedAt time.Time, status models.OrderStatus) error
	// UpdateStatus applies an admin-driven fulfilment transition. The
	// delivered timestamp is stamped once and never overwritten.
	UpdateStatus(id string, status models.OrderStatus) error
}
