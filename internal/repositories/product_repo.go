package repositories

import (
	"artstop/internal/models"
)

// ProductRepository defines the interface for catalog data access. The sold
// counter on a product is owned by the order lifecycle (MarkPaid applies it)
// and must not be written through Update; the product service enforces this.
type ProductRepository interface {
	GetAll() ([]models.Product, error)
	GetByID(id string) (*models.Product, error)
	Create(product *models.Product) error
	Update(product *models.Product) error
	Delete(id string) error
}
