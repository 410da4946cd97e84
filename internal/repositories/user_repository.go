package repositories

import "artstop/internal/models"

// UserRepository defines the interface for user data access. Besides auth,
// the checkout flow reads users through it for the shipping-address profile
// fallback.
type UserRepository interface {
	Create(user *models.User) error
	GetByUsername(username string) (*models.User, error)
	GetByEmail(email string) (*models.User, error)
	GetByID(id string) (*models.User, error)
}
