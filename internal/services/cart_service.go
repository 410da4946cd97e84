package services

import (
	"artstop/internal/apperrors"
	"artstop/internal/models"
	"artstop/internal/repositories"
)

// CartService handles business logic related to carts. Cart lines reference
// live products and are priced at read time; they only become immutable
// snapshots when an order is created.
type CartService struct {
	cartRepo    repositories.CartRepository
	productRepo repositories.ProductRepository
}

// NewCartService creates a new CartService.
func NewCartService(cartRepo repositories.CartRepository, productRepo repositories.ProductRepository) *CartService {
	return &CartService{
		cartRepo:    cartRepo,
		productRepo: productRepo,
	}
}

// CartLine is a cart item priced from the live product.
type CartLine struct {
	ProductID string  `json:"product_id"`
	Name      string  `json:"name"`
	Image     string  `json:"image"`
	Variant   string  `json:"variant"`
	Color     string  `json:"color"`
	Price     float64 `json:"price"`
	Quantity  int     `json:"quantity"`
	Total     float64 `json:"total"`
}

// CartView is the priced view of a user's cart.
type CartView struct {
	Items    []CartLine `json:"items"`
	Subtotal float64    `json:"subtotal"`
}

// GetCart returns the user's cart priced from the live catalog. Lines whose
// product has been removed from the catalog are skipped.
func (s *CartService) GetCart(userID string) (*CartView, error) {
	cart, err := s.cartRepo.GetByUser(userID)
	if err != nil {
		return nil, err
	}

	view := &CartView{Items: []CartLine{}}
	for _, item := range cart.Items {
		product, err := s.productRepo.GetByID(item.ProductID)
		if err != nil {
			if apperrors.IsNotFound(err) {
				continue
			}
			return nil, err
		}
		line := CartLine{
			ProductID: product.ID,
			Name:      product.Name,
			Image:     product.Image,
			Variant:   item.Variant,
			Color:     item.Color,
			Price:     product.Price,
			Quantity:  item.Quantity,
			Total:     product.Price * float64(item.Quantity),
		}
		view.Items = append(view.Items, line)
		view.Subtotal += line.Total
	}
	return view, nil
}

// AddItem adds a product to the user's cart after checking it exists and
// has stock for the requested quantity.
func (s *CartService) AddItem(userID string, item models.CartItem) error {
	if item.Quantity <= 0 {
		return apperrors.Validation("quantity must be positive")
	}
	product, err := s.productRepo.GetByID(item.ProductID)
	if err != nil {
		return err
	}
	if !product.InStock(item.Quantity) {
		return apperrors.Validation("product %q is out of stock", product.Name)
	}
	return s.cartRepo.AddItem(userID, item)
}

// RemoveItem removes a product from the user's cart.
func (s *CartService) RemoveItem(userID, productID string) error {
	return s.cartRepo.RemoveItem(userID, productID)
}
