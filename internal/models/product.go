package models

import "gorm.io/gorm"

// Product represents a product in the store catalog.
type Product struct {
	ID          string  `json:"id" gorm:"primaryKey;type:varchar(36)" validate:"omitempty,uuid"`
	Name        string  `json:"name" validate:"required,min=3,max=100"`
	Description string  `json:"description" validate:"omitempty,max=500"`
	Image       string  `json:"image" validate:"omitempty,url"`
	Variant     string  `json:"variant" validate:"omitempty,max=50"`
	Color       string  `json:"color" validate:"omitempty,max=50"`
	Price       float64 `json:"price" validate:"required,gt=0"`
	Stock       int     `json:"stock" validate:"gte=0"`
	Sold        int     `json:"sold" validate:"gte=0"` // incremented once per confirmed order
	gorm.Model          // CreatedAt, UpdatedAt, DeletedAt
}

// InStock reports whether the requested quantity can currently be fulfilled.
func (p *Product) InStock(quantity int) bool {
	return p.Stock >= quantity && quantity > 0
}
