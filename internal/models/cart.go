package models

// Cart quantity bounds shared by cart and order lines.
const (
	MinLineQuantity = 1
	MaxLineQuantity = 9999
)

// CartItem is one product line in a user's cart. There is at most one row per (user, product).
type CartItem struct {
	ID        uint     `json:"id" gorm:"primaryKey"`
	UserID    string   `json:"user_id" gorm:"type:varchar(36);not null;uniqueIndex:idx_cart_user_product"`
	ProductID uint     `json:"product_id" gorm:"not null;uniqueIndex:idx_cart_user_product"`
	Quantity  int      `json:"quantity" gorm:"not null"`
	Product   *Product `json:"product,omitempty" gorm:"foreignKey:ProductID"`
}
