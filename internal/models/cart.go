package models

import "time"

// CartItem references a live product; it is priced at read time, not stored.
type CartItem struct {
	ID        uint   `json:"-" gorm:"primaryKey;autoIncrement"`
	CartID    string `json:"-" gorm:"index;type:varchar(36)"`
	ProductID string `json:"product_id" gorm:"type:varchar(36)" validate:"required"`
	Quantity  int    `json:"quantity" validate:"required,gt=0"`
	Variant   string `json:"variant"`
	Color     string `json:"color"`
}

// Cart is owned by one user and holds the items that become an order
// snapshot at checkout. It is emptied when the payment is confirmed.
type Cart struct {
	ID        string     `json:"id" gorm:"primaryKey;type:varchar(36)"`
	UserID    string     `json:"user_id" gorm:"uniqueIndex;type:varchar(36)"`
	Items     []CartItem `json:"items" gorm:"foreignKey:CartID"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}
