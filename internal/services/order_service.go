package services

import (
	"context"
	"errors"

	"gamestore/internal/models"
	"gamestore/internal/repositories"

	"github.com/shopspring/decimal"
)

// OrderHistory is a user's orders with lifetime totals.
type OrderHistory struct {
	Orders  []models.Order  `json:"orders"`
	Revenue decimal.Decimal `json:"revenue"`
	Profit  decimal.Decimal `json:"profit"`
	Tier    models.Tier     `json:"tier,omitempty"`
}

// OrderService reads the order ledger.
type OrderService struct {
	orders repositories.OrderRepository
}

// NewOrderService creates a new OrderService.
func NewOrderService(orders repositories.OrderRepository) *OrderService {
	return &OrderService{orders: orders}
}

// History returns the user's orders newest first, with revenue, profit and tier.
func (s *OrderService) History(ctx context.Context, userID string) (*OrderHistory, error) {
	orders, err := s.orders.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return summarize(orders), nil
}

// GetOrder returns the order only if userID owns it.
func (s *OrderService) GetOrder(ctx context.Context, userID string, orderID uint) (*models.Order, error) {
	order, err := s.orders.GetForUser(ctx, userID, orderID)
	if err != nil {
		if errors.Is(err, repositories.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return order, nil
}

// AllOrders returns every order in the ledger with store-wide totals.
func (s *OrderService) AllOrders(ctx context.Context) (*OrderHistory, error) {
	orders, err := s.orders.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	h := summarize(orders)
	h.Tier = ""
	return h, nil
}

func summarize(orders []models.Order) *OrderHistory {
	h := &OrderHistory{Orders: orders, Revenue: decimal.Zero, Profit: decimal.Zero}
	for _, o := range orders {
		h.Revenue = h.Revenue.Add(o.TotalRevenue())
		h.Profit = h.Profit.Add(o.Profit())
	}
	h.Tier = models.TierFromProfit(h.Profit)
	return h
}
