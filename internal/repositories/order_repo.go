package repositories

import (
	"context"

	"gamestore/internal/models"

	"github.com/shopspring/decimal"
)

// ProfitLine is one order line tagged with the user who placed the order.
type ProfitLine struct {
	UserID       string
	UnitPrice    decimal.Decimal
	UnitBuyPrice decimal.Decimal
	Quantity     int
}

// OrderRepository defines the interface for order data access.
// The ledger is append-only: there is no update or delete.
type OrderRepository interface {
	Create(ctx context.Context, order *models.Order) error
	ListByUser(ctx context.Context, userID string) ([]models.Order, error)
	GetForUser(ctx context.Context, userID string, id uint) (*models.Order, error)
	ListAll(ctx context.Context) ([]models.Order, error)
	ProfitLines(ctx context.Context) ([]ProfitLine, error)
}
