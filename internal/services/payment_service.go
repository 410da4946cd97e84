package services

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log"
	"math"
	"math/rand"
	"sort"
	"time"

	"artstop/internal/apperrors"
	"artstop/internal/config"
	"artstop/internal/gateway"
	"artstop/internal/models"
	"artstop/internal/repositories"
)

// EventPublisher publishes order lifecycle events. Implementations must be
// safe for concurrent use; a nil publisher disables event publishing.
type EventPublisher interface {
	Publish(exchange, routingKey string, body []byte) error
}

// PaymentService orchestrates the order/payment lifecycle: create a pending
// order against the gateway, verify the client-side payment, reconcile
// asynchronous webhook events and process refunds.
type PaymentService struct {
	orderRepo   repositories.OrderRepository
	cartRepo    repositories.CartRepository
	productRepo repositories.ProductRepository
	userRepo    repositories.UserRepository
	gateway     gateway.Client
	publisher   EventPublisher
	gatewayCfg  config.Gateway
	checkoutCfg config.Checkout
}

// NewPaymentService creates a new PaymentService. publisher may be nil.
func NewPaymentService(
	orderRepo repositories.OrderRepository,
	cartRepo repositories.CartRepository,
	productRepo repositories.ProductRepository,
	userRepo repositories.UserRepository,
	gw gateway.Client,
	publisher EventPublisher,
	gatewayCfg config.Gateway,
	checkoutCfg config.Checkout,
) *PaymentService {
	return &PaymentService{
		orderRepo:   orderRepo,
		cartRepo:    cartRepo,
		productRepo: productRepo,
		userRepo:    userRepo,
		gateway:     gw,
		publisher:   publisher,
		gatewayCfg:  gatewayCfg,
		checkoutCfg: checkoutCfg,
	}
}

// CreateOrderResult carries what the client needs to drive the gateway's
// payment UI.
type CreateOrderResult struct {
	OrderID        string  `json:"orderId"`
	OrderNumber    string  `json:"orderNumber"`
	GatewayOrderID string  `json:"gatewayOrderId"`
	Amount         int64   `json:"amount"` // smallest currency unit
	Currency       string  `json:"currency"`
	Key            string  `json:"key"`
	Total          float64 `json:"total"`
}

// CreateOrder snapshots the user's cart into a pending order and requests a
// payment intent from the gateway. The cart is left untouched; it is only
// cleared when the payment is confirmed. Repeated calls with an unchanged
// cart return the existing pending order instead of creating a duplicate.
func (s *PaymentService) CreateOrder(userID string, address *models.ShippingAddress) (*CreateOrderResult, error) {
	user, err := s.userRepo.GetByID(userID)
	if err != nil {
		return nil, err
	}

	cart, err := s.cartRepo.GetByUser(userID)
	if err != nil {
		return nil, err
	}
	if len(cart.Items) == 0 {
		return nil, apperrors.Validation("cart is empty")
	}

	var (
		subtotal float64
		items    []models.OrderItem
	)
	for _, line := range cart.Items {
		product, err := s.productRepo.GetByID(line.ProductID)
		if err != nil {
			return nil, err
		}
		if !product.InStock(line.Quantity) {
			return nil, apperrors.Validation("product %q is out of stock", product.Name)
		}
		items = append(items, models.OrderItem{
			ProductID: product.ID,
			Name:      product.Name,
			Image:     product.Image,
			Variant:   line.Variant,
			Color:     line.Color,
			Price:     product.Price,
			Quantity:  line.Quantity,
			Total:     product.Price * float64(line.Quantity),
		})
		subtotal += product.Price * float64(line.Quantity)
	}

	tax := roundRupees(subtotal * s.checkoutCfg.TaxRate)
	shipping := s.checkoutCfg.ShippingFee
	total := subtotal + tax + shipping
	amount := toPaise(total)
	if amount < s.checkoutCfg.MinAmountPaise {
		return nil, apperrors.Validation("order total is below the minimum chargeable amount")
	}

	key := checkoutKey(userID, cart.Items)
	if existing, err := s.orderRepo.FindPendingByCheckoutKey(userID, key); err != nil {
		return nil, err
	} else if existing != nil {
		return &CreateOrderResult{
			OrderID:        existing.ID,
			OrderNumber:    existing.OrderNumber,
			GatewayOrderID: existing.PaymentInfo.GatewayOrderID,
			Amount:         toPaise(existing.Total),
			Currency:       s.checkoutCfg.Currency,
			Key:            s.gatewayCfg.KeyID,
			Total:          existing.Total,
		}, nil
	}

	orderNumber := newOrderNumber()
	gatewayOrder, err := s.gateway.CreateOrder(amount, s.checkoutCfg.Currency, orderNumber, map[string]string{
		"order_number": orderNumber,
		"user_id":      userID,
	})
	if err != nil {
		return nil, err
	}

	order := &models.Order{
		OrderNumber:     orderNumber,
		UserID:          userID,
		Items:           items,
		ShippingAddress: resolveAddress(address, user),
		Subtotal:        subtotal,
		Tax:             tax,
		Shipping:        shipping,
		Total:           total,
		Status:          models.OrderStatusPending,
		PaymentInfo: models.PaymentInfo{
			Method:         "online",
			Status:         models.PaymentStatusPending,
			GatewayOrderID: gatewayOrder.ID,
		},
		CheckoutKey: key,
	}
	if err := s.orderRepo.Create(order); err != nil {
		return nil, err
	}

	return &CreateOrderResult{
		OrderID:        order.ID,
		OrderNumber:    order.OrderNumber,
		GatewayOrderID: gatewayOrder.ID,
		Amount:         amount,
		Currency:       s.checkoutCfg.Currency,
		Key:            s.gatewayCfg.KeyID,
		Total:          total,
	}, nil
}

// VerifyPayment checks the gateway's payment signature and, when valid,
// confirms the order. The confirm transition is idempotent, so a webhook
// arriving for the same payment leaves the order unchanged.
func (s *PaymentService) VerifyPayment(gatewayOrderID, gatewayPaymentID, signature, orderID string) (*models.Order, error) {
	if !gateway.VerifyPaymentSignature(s.gatewayCfg.KeySecret, gatewayOrderID, gatewayPaymentID, signature) {
		return nil, apperrors.Authentication("payment verification failed")
	}

	order, err := s.orderRepo.GetByID(orderID)
	if err != nil {
		return nil, err
	}
	// The signature only proves the gateway order was paid; it must be the
	// gateway order this order was created against, or a cheap payment's
	// signature could confirm an unrelated expensive order.
	if order.PaymentInfo.GatewayOrderID != gatewayOrderID {
		return nil, apperrors.Validation("payment does not belong to this order")
	}

	order, err = s.orderRepo.MarkPaid(orderID, gatewayPaymentID, time.Now())
	if err != nil {
		return nil, err
	}

	if order.Status == models.OrderStatusConfirmed {
		s.publishEvent("order.confirmed", order)
	}
	return order, nil
}

// RefundResult is returned for admin refunds that reached the gateway.
type RefundResult struct {
	RefundID string  `json:"refund_id"`
	Amount   float64 `json:"amount"`
	Status   string  `json:"status"`
}

// ProcessRefund handles a refund call. A customer may only request a refund
// on their own order: the order moves to refund_requested and no money
// moves. An admin refund (fresh or approving a request) calls the gateway
// for the explicit amount, or the full total when omitted.
func (s *PaymentService) ProcessRefund(orderID, requesterID, requesterRole, reason string, amount *float64) (*models.Order, *RefundResult, error) {
	order, err := s.orderRepo.GetByID(orderID)
	if err != nil {
		return nil, nil, err
	}

	isAdmin := requesterRole == models.RoleAdmin
	if order.UserID != requesterID && !isAdmin {
		return nil, nil, apperrors.Authorization("not allowed to refund this order")
	}
	if order.PaymentInfo.Status == models.PaymentStatusRefunded {
		return nil, nil, apperrors.Validation("order is already refunded")
	}

	if !isAdmin {
		if !order.Refundable() {
			return nil, nil, apperrors.Validation("order in status %q cannot be refunded", order.Status)
		}
		if err := s.orderRepo.RequestRefund(orderID, reason); err != nil {
			return nil, nil, err
		}
		order.Status = models.OrderStatusRefundRequested
		order.PaymentInfo.RefundReason = reason
		s.publishEvent("order.refund_requested", order)
		return order, nil, nil
	}

	if !order.Refundable() && order.Status != models.OrderStatusRefundRequested {
		return nil, nil, apperrors.Validation("order in status %q cannot be refunded", order.Status)
	}
	if order.PaymentInfo.GatewayPaymentID == "" {
		return nil, nil, apperrors.Validation("order has no captured payment to refund")
	}

	refundAmount := order.Total
	if amount != nil {
		if *amount <= 0 || *amount > order.Total {
			return nil, nil, apperrors.Validation("refund amount must be between 0 and the order total")
		}
		refundAmount = *amount
	}

	gatewayRefund, err := s.gateway.Refund(order.PaymentInfo.GatewayPaymentID, toPaise(refundAmount), map[string]string{
		"order_number": order.OrderNumber,
		"reason":       reason,
	})
	if err != nil {
		return nil, nil, err
	}

	status := models.OrderStatusRefunded
	if refundAmount < order.Total {
		status = models.OrderStatusPartiallyRefunded
	}
	refundedAt := time.Now()
	if err := s.orderRepo.RecordRefund(orderID, gatewayRefund.ID, refundAmount, reason, refundedAt, status); err != nil {
		return nil, nil, err
	}

	order.Status = status
	order.PaymentInfo.Status = models.PaymentStatusRefunded
	order.PaymentInfo.GatewayRefundID = gatewayRefund.ID
	order.PaymentInfo.RefundedAt = &refundedAt
	order.PaymentInfo.RefundAmount = refundAmount
	order.PaymentInfo.RefundReason = reason
	s.publishEvent("order.refunded", order)

	return order, &RefundResult{
		RefundID: gatewayRefund.ID,
		Amount:   float64(gatewayRefund.Amount) / 100,
		Status:   gatewayRefund.Status,
	}, nil
}

// GetPaymentStatus returns payment details for an order, owner or admin only.
func (s *PaymentService) GetPaymentStatus(orderID, requesterID, requesterRole string) (*models.Order, error) {
	order, err := s.orderRepo.GetByID(orderID)
	if err != nil {
		return nil, err
	}
	if order.UserID != requesterID && requesterRole != models.RoleAdmin {
		return nil, apperrors.Authorization("not allowed to view this order")
	}
	return order, nil
}

// fulfilment transitions an admin may apply directly.
var adminStatuses = map[models.OrderStatus]bool{
	models.OrderStatusProcessing: true,
	models.OrderStatusShipped:    true,
	models.OrderStatusDelivered:  true,
	models.OrderStatusCancelled:  true,
}

// UpdateOrderStatus applies an admin-driven fulfilment transition.
func (s *PaymentService) UpdateOrderStatus(orderID string, status models.OrderStatus) error {
	if !adminStatuses[status] {
		return apperrors.Validation("invalid order status: %s", status)
	}
	return s.orderRepo.UpdateStatus(orderID, status)
}

func roundRupees(v float64) float64 {
	return math.Round(v*100) / 100
}

func toPaise(rupees float64) int64 {
	return int64(math.Round(rupees * 100))
}

// newOrderNumber builds a human-presentable order number from a timestamp
// suffix plus random padding. Collisions are possible but accepted; the
// database unique index is the backstop.
func newOrderNumber() string {
	return fmt.Sprintf("ORD-%d-%04d", time.Now().UnixMilli(), rand.Intn(10000))
}

// checkoutKey derives a deterministic key from the user and the cart
// contents so repeated create-order calls against an unchanged cart reuse
// the same pending order.
func checkoutKey(userID string, items []models.CartItem) string {
	lines := make([]string, 0, len(items))
	for _, item := range items {
		lines = append(lines, fmt.Sprintf("%s:%d:%s:%s", item.ProductID, item.Quantity, item.Variant, item.Color))
	}
	sort.Strings(lines)
	h := sha256.New()
	h.Write([]byte(userID))
	for _, line := range lines {
		h.Write([]byte("\n" + line))
	}
	return hex.EncodeToString(h.Sum(nil))
}

// resolveAddress fills blank shipping fields from the user's profile.
func resolveAddress(address *models.ShippingAddress, user *models.User) models.ShippingAddress {
	resolved := models.ShippingAddress{}
	if address != nil {
		resolved = *address
	}
	if resolved.Name == "" {
		resolved.Name = user.Name
	}
	if resolved.Email == "" {
		resolved.Email = user.Email
	}
	if resolved.Phone == "" {
		resolved.Phone = user.Phone
	}
	if resolved.Street == "" {
		resolved.Street = user.Street
	}
	if resolved.City == "" {
		resolved.City = user.City
	}
	if resolved.State == "" {
		resolved.State = user.State
	}
	if resolved.Zip == "" {
		resolved.Zip = user.Zip
	}
	if resolved.Country == "" {
		resolved.Country = user.Country
	}
	return resolved
}

func (s *PaymentService) publishEvent(routingKey string, order *models.Order) {
	if s.publisher == nil {
		return
	}
	body, err := json.Marshal(map[string]interface{}{
		"orderID":     order.ID,
		"orderNumber": order.OrderNumber,
		"userID":      order.UserID,
		"status":      order.Status,
		"total":       order.Total,
	})
	if err != nil {
		log.Printf("Failed to marshal %s event for order %s: %v", routingKey, order.ID, err)
		return
	}
	if err := s.publisher.Publish("order", routingKey, body); err != nil {
		log.Printf("Warning: Failed to publish %s event for order %s: %v", routingKey, order.ID, err)
	}
}
