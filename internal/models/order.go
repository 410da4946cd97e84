package models

import "time"

// OrderStatus is the overall lifecycle state of an order.
type OrderStatus string

const (
	OrderStatusPending           OrderStatus = "pending"
	OrderStatusConfirmed         OrderStatus = "confirmed"
	OrderStatusProcessing        OrderStatus = "processing"
	OrderStatusShipped           OrderStatus = "shipped"
	OrderStatusDelivered         OrderStatus = "delivered"
	OrderStatusCancelled         OrderStatus = "cancelled"
	OrderStatusRefundRequested   OrderStatus = "refund_requested"
	OrderStatusRefunded          OrderStatus = "refunded"
	OrderStatusPartiallyRefunded OrderStatus = "partially_refunded"
)

// PaymentStatus is the state of the payment attached to an order.
type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "pending"
	PaymentStatusCompleted PaymentStatus = "completed"
	PaymentStatusFailed    PaymentStatus = "failed"
	PaymentStatusRefunded  PaymentStatus = "refunded"
)

// ShippingAddress is embedded in an order. Street/city/state/zip may be
// blank; name, email and phone fall back to the user's profile.
type ShippingAddress struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Phone   string `json:"phone"`
	Street  string `json:"street"`
	City    string `json:"city"`
	State   string `json:"state"`
	Zip     string `json:"zip"`
	Country string `json:"country"`
}

// PaymentInfo tracks the gateway correlation ids for an order so that
// asynchronous webhook events can be matched back to it later.
type PaymentInfo struct {
	Method           string        `json:"method"`
	Status           PaymentStatus `json:"status" gorm:"type:varchar(20)"`
	GatewayOrderID   string        `json:"gateway_order_id" gorm:"index;type:varchar(64)"`
	GatewayPaymentID string        `json:"gateway_payment_id" gorm:"index;type:varchar(64)"`
	GatewayRefundID  string        `json:"gateway_refund_id" gorm:"type:varchar(64)"`
	PaidAt           *time.Time    `json:"paid_at"`
	RefundedAt       *time.Time    `json:"refunded_at"`
	RefundAmount     float64       `json:"refund_amount"`
	RefundReason     string        `json:"refund_reason"`
}

// OrderItem is an immutable snapshot of a product at the time of order.
// It is never re-derived from the live product.
type OrderItem struct {
	ID        uint    `json:"-" gorm:"primaryKey;autoIncrement"`
	OrderID   string  `json:"-" gorm:"index;type:varchar(36)"`
	ProductID string  `json:"product_id" gorm:"type:varchar(36)"`
	Name      string  `json:"name"`
	Image     string  `json:"image"`
	Variant   string  `json:"variant"`
	Color     string  `json:"color"`
	Price     float64 `json:"price"` // price at the time of order
	Quantity  int     `json:"quantity"`
	Total     float64 `json:"total"` // price * quantity
}

// Order represents one purchase attempt.
type Order struct {
	ID              string          `json:"id" gorm:"primaryKey;type:varchar(36)"`
	OrderNumber     string          `json:"order_number" gorm:"uniqueIndex;type:varchar(40)"`
	UserID          string          `json:"user_id" gorm:"index;type:varchar(36)"`
	Items           []OrderItem     `json:"items" gorm:"foreignKey:OrderID"`
	ShippingAddress ShippingAddress `json:"shipping_address" gorm:"embedded;embeddedPrefix:ship_"`
	Subtotal        float64         `json:"subtotal"`
	Tax             float64         `json:"tax"`
	Shipping        float64         `json:"shipping"`
	Total           float64         `json:"total"` // subtotal + tax + shipping at creation
	Status          OrderStatus     `json:"status" gorm:"type:varchar(20);index"`
	PaymentInfo     PaymentInfo     `json:"payment_info" gorm:"embedded;embeddedPrefix:payment_"`
	// SalesApplied guards the per-product sold counters: the verify call and
	// the webhook both confirm the same order, but sales must count once.
	SalesApplied bool       `json:"-"`
	CheckoutKey  string     `json:"-" gorm:"index;type:varchar(64)"`
	DeliveredAt  *time.Time `json:"delivered_at"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// Refundable reports whether the order is in a state that allows a refund
// to be requested. Orders with a pending refund request can still be
// refunded, but only by an admin approving the request.
func (o *Order) Refundable() bool {
	switch o.Status {
	case OrderStatusConfirmed, OrderStatusProcessing, OrderStatusShipped:
		return true
	}
	return false
}
