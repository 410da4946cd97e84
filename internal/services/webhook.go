package services

import (
	"log"
	"time"

	"artstop/internal/models"
)

// WebhookEvent is the decoded body of a gateway webhook delivery.
type WebhookEvent struct {
	Event   string         `json:"event"`
	Payload WebhookPayload `json:"payload"`
}

// WebhookPayload wraps the entity the event refers to. The gateway nests
// payment and refund entities under their own keys.
type WebhookPayload struct {
	Payment struct {
		Entity WebhookPaymentEntity `json:"entity"`
	} `json:"payment"`
	Refund struct {
		Entity WebhookRefundEntity `json:"entity"`
	} `json:"refund"`
}

// WebhookPaymentEntity identifies a gateway payment.
type WebhookPaymentEntity struct {
	ID      string `json:"id"`
	OrderID string `json:"order_id"`
	Amount  int64  `json:"amount"`
}

// WebhookRefundEntity identifies a gateway refund.
type WebhookRefundEntity struct {
	ID        string `json:"id"`
	PaymentID string `json:"payment_id"`
	Amount    int64  `json:"amount"`
}

// HandleWebhookEvent reconciles order state from an asynchronous gateway
// event. The signature has already been verified at the ingress. Failures
// here are logged, never returned: the contract with the gateway is "tell
// us you got it", and surfacing errors would only trigger its retry storm.
func (s *PaymentService) HandleWebhookEvent(event WebhookEvent) {
	switch event.Event {
	case "payment.authorized", "payment.captured":
		// The gateway may send either or both; they converge on the same
		// idempotent confirm transition.
		entity := event.Payload.Payment.Entity
		order, err := s.orderRepo.GetByGatewayOrderID(entity.OrderID)
		if err != nil {
			log.Printf("Webhook %s: no order for gateway order %s: %v", event.Event, entity.OrderID, err)
			return
		}
		confirmed, err := s.orderRepo.MarkPaid(order.ID, entity.ID, time.Now())
		if err != nil {
			log.Printf("Webhook %s: failed to confirm order %s: %v", event.Event, order.ID, err)
			return
		}
		// Replays against terminal orders leave them unchanged and are not
		// re-announced.
		if confirmed.Status == models.OrderStatusConfirmed {
			s.publishEvent("order.confirmed", confirmed)
		}

	case "payment.failed":
		entity := event.Payload.Payment.Entity
		order, err := s.orderRepo.GetByGatewayOrderID(entity.OrderID)
		if err != nil {
			log.Printf("Webhook %s: no order for gateway order %s: %v", event.Event, entity.OrderID, err)
			return
		}
		if err := s.orderRepo.MarkFailed(order.ID); err != nil {
			log.Printf("Webhook %s: failed to cancel order %s: %v", event.Event, order.ID, err)
			return
		}
		order.Status = models.OrderStatusCancelled
		order.PaymentInfo.Status = models.PaymentStatusFailed
		s.publishEvent("order.cancelled", order)

	case "refund.created", "refund.processed":
		// Refund events carry the gateway payment id, not the order id.
		entity := event.Payload.Refund.Entity
		order, err := s.orderRepo.GetByGatewayPaymentID(entity.PaymentID)
		if err != nil {
			log.Printf("Webhook %s: no order for gateway payment %s: %v", event.Event, entity.PaymentID, err)
			return
		}
		amount := float64(entity.Amount) / 100
		status := models.OrderStatusRefunded
		if amount < order.Total {
			status = models.OrderStatusPartiallyRefunded
		}
		if err := s.orderRepo.RecordRefund(order.ID, entity.ID, amount, order.PaymentInfo.RefundReason, time.Now(), status); err != nil {
			log.Printf("Webhook %s: failed to record refund on order %s: %v", event.Event, order.ID, err)
			return
		}
		order.Status = status
		s.publishEvent("order.refunded", order)

	default:
		log.Printf("Ignoring unknown webhook event type %q", event.Event)
	}
}
