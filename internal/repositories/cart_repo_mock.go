package repositories

import (
	"sync"

	"artstop/internal/models"

	"github.com/google/uuid"
)

// MockCartRepository is an in-memory implementation of CartRepository.
type MockCartRepository struct {
	carts map[string]models.Cart // keyed by user ID
	mu    sync.RWMutex
}

// NewMockCartRepository creates a new instance of MockCartRepository.
func NewMockCartRepository() *MockCartRepository {
	return &MockCartRepository{
		carts: make(map[string]models.Cart),
	}
}

// GetByUser returns the user's cart, creating an empty one on first use.
func (r *MockCartRepository) GetByUser(userID string) (*models.Cart, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	cart, ok := r.carts[userID]
	if !ok {
		cart = models.Cart{ID: uuid.New().String(), UserID: userID}
		r.carts[userID] = cart
	}
	copied := cart
	copied.Items = append([]models.CartItem(nil), cart.Items...)
	return &copied, nil
}

// AddItem adds an item to the user's cart, merging quantity with an
// existing line for the same product/variant/color.
func (r *MockCartRepository) AddItem(userID string, item models.CartItem) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cart, ok := r.carts[userID]
	if !ok {
		cart = models.Cart{ID: uuid.New().String(), UserID: userID}
	}
	merged := false
	for i, existing := range cart.Items {
		if existing.ProductID == item.ProductID && existing.Variant == item.Variant && existing.Color == item.Color {
			cart.Items[i].Quantity += item.Quantity
			merged = true
			break
		}
	}
	if !merged {
		item.CartID = cart.ID
		cart.Items = append(cart.Items, item)
	}
	r.carts[userID] = cart
	return nil
}

// RemoveItem removes all lines for a product from the user's cart.
func (r *MockCartRepository) RemoveItem(userID, productID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cart, ok := r.carts[userID]
	if !ok {
		return nil
	}
	kept := cart.Items[:0]
	for _, item := range cart.Items {
		if item.ProductID != productID {
			kept = append(kept, item)
		}
	}
	cart.Items = kept
	r.carts[userID] = cart
	return nil
}

// Clear empties the user's cart.
func (r *MockCartRepository) Clear(userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cart, ok := r.carts[userID]
	if !ok {
		return nil
	}
	cart.Items = nil
	r.carts[userID] = cart
	return nil
}
