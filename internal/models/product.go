package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Category is the catalog section a product belongs to.
type Category string

const (
	CategoryBook Category = "Book"
	CategoryGame Category = "Game"
	CategoryToy  Category = "Toy"
)

// Categories lists every valid category in display order.
var Categories = []Category{CategoryBook, CategoryGame, CategoryToy}

// Valid reports whether c is one of the known categories.
func (c Category) Valid() bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

// Product represents a product in the store.
type Product struct {
	ID          uint            `json:"id" gorm:"primaryKey"`
	Name        string          `json:"name" gorm:"type:varchar(120);not null;index"`
	Slug        string          `json:"slug" gorm:"type:varchar(160);index"`
	Category    Category        `json:"category" gorm:"type:varchar(16);not null;index"`
	Description string          `json:"description" gorm:"type:varchar(1000)"`
	Source      string          `json:"source" gorm:"type:varchar(120)"` // supplier
	BuyPrice    decimal.Decimal `json:"buy_price" gorm:"type:decimal(18,2);not null"`
	Price       decimal.Decimal `json:"price" gorm:"type:decimal(18,2);not null"`
	StockQty    int             `json:"stock_qty" gorm:"not null"`
	ImageURL    string          `json:"image_url" gorm:"column:image_url;type:varchar(500)"`
	CreatedAt   time.Time       `json:"created_at" gorm:"autoCreateTime:false"`
	UpdatedAt   *time.Time      `json:"updated_at" gorm:"autoUpdateTime:false"`
}

// MarginPerUnit is the sell price minus the cost price.
func (p Product) MarginPerUnit() decimal.Decimal {
	return p.Price.Sub(p.BuyPrice)
}

// MarginPercent is the unit margin as a percentage of the sell price, 0 when the price is 0.
func (p Product) MarginPercent() decimal.Decimal {
	if p.Price.IsZero() {
		return decimal.Zero
	}
	return p.MarginPerUnit().Div(p.Price).Mul(decimal.NewFromInt(100))
}
