package repositories

import (
	"artstop/internal/models"
)

// CartRepository defines the interface for cart data access.
type CartRepository interface {
	// GetByUser returns the user's cart, creating an empty one on first use.
	GetByUser(userID string) (*models.Cart, error)
	// AddItem adds an item to the user's cart, merging quantity with an
	// existing line for the same product/variant/color.
	AddItem(userID string, item models.CartItem) error
	RemoveItem(userID, productID string) error
	Clear(userID string) error
}
