package handlers

import (
	"artstop/internal/apperrors"
	"artstop/internal/models"
	"artstop/internal/services"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

// CartHandler handles HTTP requests for the authenticated user's cart.
type CartHandler struct {
	service  *services.CartService
	validate *validator.Validate
}

// NewCartHandler creates a new CartHandler.
func NewCartHandler(service *services.CartService) *CartHandler {
	return &CartHandler{
		service:  service,
		validate: validator.New(),
	}
}

// RegisterRoutes registers the cart routes with the Fiber app.
func (h *CartHandler) RegisterRoutes(router fiber.Router) {
	cartRoutes := router.Group("/cart")
	cartRoutes.Get("/", h.HandleGetCart)
	cartRoutes.Post("/items", h.HandleAddItem)
	cartRoutes.Delete("/items/:productId", h.HandleRemoveItem)
}

// HandleGetCart returns the user's cart priced from the live catalog.
func (h *CartHandler) HandleGetCart(c *fiber.Ctx) error {
	userID, _ := requester(c)

	cart, err := h.service.GetCart(userID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"success": true, "cart": cart})
}

// HandleAddItem adds a product to the user's cart.
func (h *CartHandler) HandleAddItem(c *fiber.Ctx) error {
	userID, _ := requester(c)

	var item models.CartItem
	if err := c.BodyParser(&item); err != nil {
		return respondError(c, apperrors.Validation("invalid request body"))
	}
	if err := h.validate.Struct(item); err != nil {
		return respondError(c, apperrors.Validation("%s", validationMessage(err)))
	}

	if err := h.service.AddItem(userID, item); err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"message": "item added to cart",
	})
}

// HandleRemoveItem removes a product from the user's cart.
func (h *CartHandler) HandleRemoveItem(c *fiber.Ctx) error {
	userID, _ := requester(c)

	if err := h.service.RemoveItem(userID, c.Params("productId")); err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{
		"success": true,
		"message": "item removed from cart",
	})
}
