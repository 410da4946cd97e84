package handlers

import (
	"encoding/json"
	"log"

	"artstop/internal/gateway"
	"artstop/internal/services"

	"github.com/gofiber/fiber/v2"
)

// WebhookHandler is the public ingress for gateway webhook deliveries. It
// verifies the signature over the raw body, then hands the event to the
// payment service. Once the signature passes, the response is always 200
// {received:true}: internal reconciliation failures must not trigger the
// gateway's retry storm.
type WebhookHandler struct {
	service       *services.PaymentService
	webhookSecret string
}

// NewWebhookHandler creates a new WebhookHandler.
func NewWebhookHandler(service *services.PaymentService, webhookSecret string) *WebhookHandler {
	return &WebhookHandler{
		service:       service,
		webhookSecret: webhookSecret,
	}
}

// RegisterRoutes registers the webhook routes with the Fiber app. These
// routes are public; the signature header is the authentication.
func (h *WebhookHandler) RegisterRoutes(router fiber.Router) {
	router.Post("/webhooks/gateway", h.HandleGatewayWebhook)
}

// HandleGatewayWebhook processes one gateway webhook delivery.
func (h *WebhookHandler) HandleGatewayWebhook(c *fiber.Ctx) error {
	signature := c.Get("x-gateway-signature")
	body := c.Body()
	if signature == "" || !gateway.VerifyWebhookSignature(h.webhookSecret, body, signature) {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"success": false,
			"message": "invalid webhook signature",
		})
	}

	var event services.WebhookEvent
	if err := json.Unmarshal(body, &event); err != nil {
		// Signed but malformed; acknowledge so the gateway does not retry.
		log.Printf("Failed to decode webhook body: %v", err)
		return c.JSON(fiber.Map{"received": true})
	}

	h.service.HandleWebhookEvent(event)
	return c.JSON(fiber.Map{"received": true})
}
