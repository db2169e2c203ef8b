package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderStatus is the payment state of an order.
type OrderStatus string

const (
	OrderStatusPending OrderStatus = "Pending"
	OrderStatusPaid    OrderStatus = "Paid"
)

// OrderItem represents a single item within an order.
// UnitPrice and UnitBuyPrice are frozen at checkout.
type OrderItem struct {
	ID           uint            `json:"id" gorm:"primaryKey"`
	OrderID      uint            `json:"order_id" gorm:"not null;index"`
	ProductID    uint            `json:"product_id" gorm:"not null;index"`
	UnitPrice    decimal.Decimal `json:"unit_price" gorm:"type:decimal(18,2);not null"`
	UnitBuyPrice decimal.Decimal `json:"unit_buy_price" gorm:"type:decimal(18,2);not null"`
	Quantity     int             `json:"quantity" gorm:"not null"`
	Product      *Product        `json:"product,omitempty" gorm:"foreignKey:ProductID"`
}

// LineTotal is the revenue of the line.
func (i OrderItem) LineTotal() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// LineProfit is the margin earned by the line.
func (i OrderItem) LineProfit() decimal.Decimal {
	return i.UnitPrice.Sub(i.UnitBuyPrice).Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// Order represents a customer order. Orders are append-only once created.
type Order struct {
	ID        uint            `json:"id" gorm:"primaryKey"`
	UserID    string          `json:"user_id" gorm:"type:varchar(36);not null;index"`
	CreatedAt time.Time       `json:"created_at" gorm:"not null;index"`
	Total     decimal.Decimal `json:"total" gorm:"type:decimal(18,2);not null"`
	Status    OrderStatus     `json:"status" gorm:"type:varchar(16);not null"`
	Items     []OrderItem     `json:"items" gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
}

// Profit is the sum of line profits.
func (o Order) Profit() decimal.Decimal {
	profit := decimal.Zero
	for _, item := range o.Items {
		profit = profit.Add(item.LineProfit())
	}
	return profit
}

// TotalRevenue is the sum of line totals.
func (o Order) TotalRevenue() decimal.Decimal {
	revenue := decimal.Zero
	for _, item := range o.Items {
		revenue = revenue.Add(item.LineTotal())
	}
	return revenue
}
