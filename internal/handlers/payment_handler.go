package handlers

import (
	"fmt"

	"artstop/internal/apperrors"
	"artstop/internal/models"
	"artstop/internal/services"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

// PaymentHandler handles HTTP requests for the order/payment lifecycle.
type PaymentHandler struct {
	service  *services.PaymentService
	validate *validator.Validate
}

// NewPaymentHandler creates a new PaymentHandler.
func NewPaymentHandler(service *services.PaymentService) *PaymentHandler {
	return &PaymentHandler{
		service:  service,
		validate: validator.New(),
	}
}

// RegisterRoutes registers the payment routes with the Fiber app. All of
// them require an authenticated user.
func (h *PaymentHandler) RegisterRoutes(router fiber.Router) {
	paymentRoutes := router.Group("/payments")
	paymentRoutes.Post("/create-order", h.HandleCreateOrder)
	paymentRoutes.Post("/verify", h.HandleVerifyPayment)
	paymentRoutes.Post("/refund", h.HandleRefund)
	paymentRoutes.Get("/:orderId", h.HandleGetPaymentStatus)

	// Admin fulfilment transitions live beside the lifecycle they mutate.
	router.Patch("/orders/:orderId/status", h.HandleUpdateOrderStatus)
}

// CreateOrderRequest is the body of POST /payments/create-order.
type CreateOrderRequest struct {
	ShippingAddress *models.ShippingAddress `json:"shippingAddress"`
}

// HandleCreateOrder snapshots the cart into a pending order and returns the
// data the client needs to drive the gateway's payment UI.
func (h *PaymentHandler) HandleCreateOrder(c *fiber.Ctx) error {
	userID, _ := requester(c)

	var req CreateOrderRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return respondError(c, apperrors.Validation("invalid request body"))
		}
	}

	result, err := h.service.CreateOrder(userID, req.ShippingAddress)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"orderId": result.OrderID, "orderNumber": result.OrderNumber,
		"gatewayOrderId": result.GatewayOrderID,
		"amount":         result.Amount,
		"currency":       result.Currency,
		"key":            result.Key,
	})
}

// VerifyPaymentRequest is the body of POST /payments/verify.
type VerifyPaymentRequest struct {
	GatewayOrderID   string `json:"gatewayOrderId" validate:"required"`
	GatewayPaymentID string `json:"gatewayPaymentId" validate:"required"`
	Signature        string `json:"signature" validate:"required"`
	OrderID          string `json:"orderId" validate:"required"`
}

// HandleVerifyPayment checks the gateway signature and confirms the order.
func (h *PaymentHandler) HandleVerifyPayment(c *fiber.Ctx) error {
	var req VerifyPaymentRequest
	if err := c.BodyParser(&req); err != nil {
		return respondError(c, apperrors.Validation("invalid request body"))
	}
	if err := h.validate.Struct(req); err != nil {
		return respondError(c, apperrors.Validation("%s", validationMessage(err)))
	}

	order, err := h.service.VerifyPayment(req.GatewayOrderID, req.GatewayPaymentID, req.Signature, req.OrderID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{
		"success": true,
		"order": fiber.Map{
			"id":          order.ID,
			"orderNumber": order.OrderNumber,
			"status":      order.Status,
			"total":       order.Total,
		},
	})
}

// RefundRequest is the body of POST /payments/refund.
type RefundRequest struct {
	OrderID string   `json:"orderId" validate:"required"`
	Reason  string   `json:"reason" validate:"omitempty,max=500"`
	Amount  *float64 `json:"amount"`
}

// HandleRefund processes a refund request or an admin refund.
func (h *PaymentHandler) HandleRefund(c *fiber.Ctx) error {
	userID, role := requester(c)

	var req RefundRequest
	if err := c.BodyParser(&req); err != nil {
		return respondError(c, apperrors.Validation("invalid request body"))
	}
	if err := h.validate.Struct(req); err != nil {
		return respondError(c, apperrors.Validation("%s", validationMessage(err)))
	}

	order, refund, err := h.service.ProcessRefund(req.OrderID, userID, role, req.Reason, req.Amount)
	if err != nil {
		return respondError(c, err)
	}

	resp := fiber.Map{"success": true, "order": order}
	if refund != nil {
		resp["refund"] = refund
	}
	return c.JSON(resp)
}

// HandleGetPaymentStatus returns the payment details for an order.
func (h *PaymentHandler) HandleGetPaymentStatus(c *fiber.Ctx) error {
	userID, role := requester(c)

	order, err := h.service.GetPaymentStatus(c.Params("orderId"), userID, role)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{
		"success":     true,
		"paymentInfo": order.PaymentInfo,
		"orderNumber": order.OrderNumber,
		"total":       order.Total,
		"status":      order.Status,
	})
}

// HandleUpdateOrderStatus applies an admin fulfilment transition.
func (h *PaymentHandler) HandleUpdateOrderStatus(c *fiber.Ctx) error {
	_, role := requester(c)
	if role != models.RoleAdmin {
		return respondError(c, apperrors.Authorization("admin role required"))
	}

	var req struct {
		Status models.OrderStatus `json:"status" validate:"required"`
	}
	if err := c.BodyParser(&req); err != nil {
		return respondError(c, apperrors.Validation("invalid request body"))
	}
	if req.Status == "" {
		return respondError(c, apperrors.Validation("status is required"))
	}

	if err := h.service.UpdateOrderStatus(c.Params("orderId"), req.Status); err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{
		"success": true,
		"message": fmt.Sprintf("order status updated to %s", req.Status),
	})
}

// validationMessage flattens validator errors into one presentable line.
func validationMessage(err error) string {
	validationErrors, ok := err.(validator.ValidationErrors)
	if !ok || len(validationErrors) == 0 {
		return "validation failed"
	}
	e := validationErrors[0]
	return fmt.Sprintf("field '%s' failed on the '%s' tag", e.Field(), e.Tag())
}
