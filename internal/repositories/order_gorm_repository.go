package repositories

import (
	"errors"
	"fmt"
	"time"

	"artstop/internal/apperrors"
	"artstop/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GORMOrderRepository is a GORM implementation of OrderRepository.
type GORMOrderRepository struct {
	db *gorm.DB
}

// NewGORMOrderRepository creates a new instance of GORMOrderRepository.
func NewGORMOrderRepository(db *gorm.DB) *GORMOrderRepository {
	return &GORMOrderRepository{
		db: db,
	}
}

// Create creates a new order with its item snapshots.
func (r *GORMOrderRepository) Create(order *models.Order) error {
	if order.ID == "" {
		order.ID = uuid.New().String()
	}
	if err := r.db.Create(order).Error; err != nil {
		return fmt.Errorf("failed to create order: %w", err)
	}
	return nil
}

func (r *GORMOrderRepository) getOne(query string, args ...interface{}) (*models.Order, error) {
	var order models.Order
	if err := r.db.Preload("Items").First(&order, append([]interface{}{query}, args...)...).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound("order not found")
		}
		return nil, fmt.Errorf("failed to get order: %w", err)
	}
	return &order, nil
}

// GetByID retrieves a single order by its ID.
func (r *GORMOrderRepository) GetByID(id string) (*models.Order, error) {
	return r.getOne("id = ?", id)
}

// GetByGatewayOrderID retrieves the order owning a gateway order id.
func (r *GORMOrderRepository) GetByGatewayOrderID(gatewayOrderID string) (*models.Order, error) {
	return r.getOne("payment_gateway_order_id = ?", gatewayOrderID)
}

// GetByGatewayPaymentID retrieves the order owning a gateway payment id.
func (r *GORMOrderRepository) GetByGatewayPaymentID(gatewayPaymentID string) (*models.Order, error) {
	return r.getOne("payment_gateway_payment_id = ?", gatewayPaymentID)
}

// FindPendingByCheckoutKey returns the user's pending order for an unchanged
// cart, or nil when there is none.
func (r *GORMOrderRepository) FindPendingByCheckoutKey(userID, key string) (*models.Order, error) {
	var order models.Order
	err := r.db.Preload("Items").
		Where("user_id = ? AND checkout_key = ? AND status = ?", userID, key, models.OrderStatusPending).
		First(&order).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find pending order: %w", err)
	}
	return &order, nil
}

// MarkPaid confirms a pending order, increments product sold counters and
// clears the owner's cart inside one transaction. Orders past pending keep
// their state and are returned unchanged, so the synchronous verify call and
// the webhook can both confirm the same order safely and a replayed capture
// cannot overwrite a refund or cancellation.
func (r *GORMOrderRepository) MarkPaid(id, gatewayPaymentID string, paidAt time.Time) (*models.Order, error) {
	var order models.Order
	err := r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Preload("Items").First(&order, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperrors.NotFound("order not found")
			}
			return fmt.Errorf("failed to load order: %w", err)
		}

		// Only a pending order can be confirmed. Replays on a confirmed
		// order are no-ops, and a late duplicate capture must not resurrect
		// a refunded or cancelled order.
		if order.Status != models.OrderStatusPending {
			return nil
		}

		if !order.SalesApplied {
			for _, item := range order.Items {
				res := tx.Model(&models.Product{}).
					Where("id = ?", item.ProductID).
					UpdateColumn("sold", gorm.Expr("sold + ?", item.Quantity))
				if res.Error != nil {
					return fmt.Errorf("failed to increment sales for product %s: %w", item.ProductID, res.Error)
				}
			}
		}

		updates := map[string]interface{}{
			"status":                     models.OrderStatusConfirmed,
			"payment_status":             models.PaymentStatusCompleted,
			"payment_gateway_payment_id": gatewayPaymentID,
			"payment_paid_at":            paidAt,
			"sales_applied":              true,
			"updated_at":                 time.Now(),
		}
		if err := tx.Model(&models.Order{}).Where("id = ?", id).Updates(updates).Error; err != nil {
			return fmt.Errorf("failed to confirm order: %w", err)
		}

		var cart models.Cart
		if err := tx.First(&cart, "user_id = ?", order.UserID).Error; err == nil {
			if err := tx.Where("cart_id = ?", cart.ID).Delete(&models.CartItem{}).Error; err != nil {
				return fmt.Errorf("failed to clear cart: %w", err)
			}
		}

		order.Status = models.OrderStatusConfirmed
		order.PaymentInfo.Status = models.PaymentStatusCompleted
		order.PaymentInfo.GatewayPaymentID = gatewayPaymentID
		order.PaymentInfo.PaidAt = &paidAt
		order.SalesApplied = true
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// MarkFailed cancels a still-pending order. A failed event arriving after
// the order was confirmed is ignored.
func (r *GORMOrderRepository) MarkFailed(id string) error {
	res := r.db.Model(&models.Order{}).
		Where("id = ? AND status = ?", id, models.OrderStatusPending).
		Updates(map[string]interface{}{
			"status":         models.OrderStatusCancelled,
			"payment_status": models.PaymentStatusFailed,
			"updated_at":     time.Now(),
		})
	if res.Error != nil {
		return fmt.Errorf("failed to mark order failed: %w", res.Error)
	}
	return nil
}

// RequestRefund records a customer refund request. Payment state is not
// touched; the request awaits admin approval.
func (r *GORMOrderRepository) RequestRefund(id, reason string) error {
	res := r.db.Model(&models.Order{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":                models.OrderStatusRefundRequested,
			"payment_refund_reason": reason,
			"updated_at":            time.Now(),
		})
	if res.Error != nil {
		return fmt.Errorf("failed to request refund: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return apperrors.NotFound("order not found")
	}
	return nil
}

// RecordRefund stores the gateway refund result on the order.
func (r *GORMOrderRepository) RecordRefund(id, gatewayRefundID string, amount float64, reason string, refundedAt time.Time, status models.OrderStatus) error {
	res := r.db.Model(&models.Order{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":                    status,
			"payment_status":            models.PaymentStatusRefunded,
			"payment_gateway_refund_id": gatewayRefundID,
			"payment_refunded_at":       refundedAt,
			"payment_refund_amount":     amount,
			"payment_refund_reason":     reason,
			"updated_at":                time.Now(),
		})
	if res.Error != nil {
		return fmt.Errorf("failed to record refund: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return apperrors.NotFound("order not found")
	}
	return nil
}

// UpdateStatus applies an admin-driven fulfilment transition. The delivery
// timestamp is stamped on the first transition to delivered only.
func (r *GORMOrderRepository) UpdateStatus(id string, status models.OrderStatus) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		var order models.Order
		if err := tx.First(&order, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperrors.NotFound("order not found")
			}
			return fmt.Errorf("failed to load order: %w", err)
		}

		updates := map[string]interface{}{
			"status":     status,
			"updated_at": time.Now(),
		}
		if status == models.OrderStatusDelivered && order.DeliveredAt == nil {
			updates["delivered_at"] = time.Now()
		}
		if err := tx.Model(&models.Order{}).Where("id = ?", id).Updates(updates).Error; err != nil {
			return fmt.Errorf("failed to update order status: %w", err)
		}
		return nil
	})
}
