package repositories

import (
	"errors"
	"fmt"

	"artstop/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GORMCartRepository is a GORM implementation of CartRepository.
type GORMCartRepository struct {
	db *gorm.DB
}

// NewGORMCartRepository creates a new instance of GORMCartRepository.
func NewGORMCartRepository(db *gorm.DB) *GORMCartRepository {
	return &GORMCartRepository{
		db: db,
	}
}

// GetByUser returns the user's cart, creating an empty one on first use.
func (r *GORMCartRepository) GetByUser(userID string) (*models.Cart, error) {
	var cart models.Cart
	err := r.db.Preload("Items").
		Where("user_id = ?", userID).
		Attrs(models.Cart{ID: uuid.New().String(), UserID: userID}).
		FirstOrCreate(&cart).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get cart for user %s: %w", userID, err)
	}
	return &cart, nil
}

// AddItem adds an item to the user's cart, merging quantity with an
// existing line for the same product/variant/color.
func (r *GORMCartRepository) AddItem(userID string, item models.CartItem) error {
	cart, err := r.GetByUser(userID)
	if err != nil {
		return err
	}

	return r.db.Transaction(func(tx *gorm.DB) error {
		var existing models.CartItem
		err := tx.Where("cart_id = ? AND product_id = ? AND variant = ? AND color = ?",
			cart.ID, item.ProductID, item.Variant, item.Color).First(&existing).Error
		switch {
		case err == nil:
			res := tx.Model(&existing).UpdateColumn("quantity", gorm.Expr("quantity + ?", item.Quantity))
			if res.Error != nil {
				return fmt.Errorf("failed to update cart item: %w", res.Error)
			}
			return nil
		case errors.Is(err, gorm.ErrRecordNotFound):
			item.CartID = cart.ID
			if err := tx.Create(&item).Error; err != nil {
				return fmt.Errorf("failed to add cart item: %w", err)
			}
			return nil
		default:
			return fmt.Errorf("failed to look up cart item: %w", err)
		}
	})
}

// RemoveItem removes all lines for a product from the user's cart.
func (r *GORMCartRepository) RemoveItem(userID, productID string) error {
	cart, err := r.GetByUser(userID)
	if err != nil {
		return err
	}
	res := r.db.Where("cart_id = ? AND product_id = ?", cart.ID, productID).Delete(&models.CartItem{})
	if res.Error != nil {
		return fmt.Errorf("failed to remove cart item: %w", res.Error)
	}
	return nil
}

// Clear empties the user's cart.
func (r *GORMCartRepository) Clear(userID string) error {
	cart, err := r.GetByUser(userID)
	if err != nil {
		return err
	}
	if err := r.db.Where("cart_id = ?", cart.ID).Delete(&models.CartItem{}).Error; err != nil {
		return fmt.Errorf("failed to clear cart: %w", err)
	}
	return nil
}
