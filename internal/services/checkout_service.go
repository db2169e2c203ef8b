package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"gamestore/internal/models"
	"gamestore/internal/repositories"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OrderCreatedQueue is where checkout announces new orders.
const OrderCreatedQueue = "order.created"

// EventPublisher sends a JSON message to a named queue.
type EventPublisher interface {
	PublishJSON(queue string, payload interface{}) error
}

// OrderCreatedEvent is published after a checkout commits.
type OrderCreatedEvent struct {
	MessageID string                 `json:"message_id"`
	OrderID   uint                   `json:"order_id"`
	UserID    string                 `json:"user_id"`
	Status    models.OrderStatus     `json:"status"`
	Total     decimal.Decimal        `json:"total"`
	Items     []OrderCreatedLineItem `json:"items"`
	CreatedAt time.Time              `json:"created_at"`
}

type OrderCreatedLineItem struct {
	ProductID uint            `json:"product_id"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

// CheckoutPreview is the cart as it would be charged right now.
type CheckoutPreview struct {
	Items []models.CartItem `json:"items"`
	Total decimal.Decimal   `json:"total"`
}

// CheckoutService turns a cart into an order.
type CheckoutService struct {
	log       *slog.Logger
	store     *repositories.Store
	tx        repositories.Transactor
	publisher EventPublisher
	now       func() time.Time
}

// NewCheckoutService creates a new CheckoutService. publisher may be nil.
func NewCheckoutService(log *slog.Logger, store *repositories.Store, publisher EventPublisher) *CheckoutService {
	return &CheckoutService{
		log:       log,
		store:     store,
		tx:        store,
		publisher: publisher,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Preview lists the cart with the current prices. Lines whose product is gone are priced at zero.
func (s *CheckoutService) Preview(ctx context.Context, userID string) (*CheckoutPreview, error) {
	items, err := s.store.Carts.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	total := decimal.Zero
	for _, item := range items {
		if item.Product == nil {
			continue
		}
		total = total.Add(item.Product.Price.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}
	return &CheckoutPreview{Items: items, Total: total}, nil
}

// Confirm checks stock for every cart line and, in one transaction, creates a paid order
// with price and cost snapshots, decrements stock and clears the processed lines.
// Any failure leaves stock, cart and ledger untouched.
func (s *CheckoutService) Confirm(ctx context.Context, userID string) (*models.Order, error) {
	const op = "services.CheckoutService.Confirm"
	logger := s.log.With(slog.String("op", op), slog.String("userID", userID))
	logger.Info("starting checkout transaction")

	var order *models.Order
	err := s.tx.Transaction(ctx, func(tx *repositories.Store) error {
		lines, err := tx.Carts.ListByUser(ctx, userID)
		if err != nil {
			return err
		}
		if len(lines) == 0 {
			return ErrNothingToCheckout
		}

		products, err := lockProducts(ctx, tx.Products, lines)
		if err != nil {
			return err
		}

		created := &models.Order{
			UserID:    userID,
			CreatedAt: s.now(),
			Status:    models.OrderStatusPaid,
			Total:     decimal.Zero,
		}
		processed := make([]uint, 0, len(lines))
		for _, line := range lines {
			p := products[line.ProductID]
			item := models.OrderItem{
				ProductID:    line.ProductID,
				UnitPrice:    p.Price,
				UnitBuyPrice: p.BuyPrice,
				Quantity:     line.Quantity,
			}
			created.Items = append(created.Items, item)
			created.Total = created.Total.Add(item.LineTotal())
			processed = append(processed, line.ID)
		}

		if err := tx.Orders.Create(ctx, created); err != nil {
			return err
		}

		for _, line := range lines {
			if err := tx.Products.DecrementStock(ctx, line.ProductID, line.Quantity); err != nil {
				if errors.Is(err, repositories.ErrStockConflict) {
					return &InsufficientStockError{ProductName: products[line.ProductID].Name}
				}
				return err
			}
		}

		removed, err := tx.Carts.DeleteByIDs(ctx, userID, processed)
		if err != nil {
			return err
		}
		if removed != int64(len(processed)) {
			return fmt.Errorf("cart changed during checkout: cleared %d of %d lines", removed, len(processed))
		}

		order = created
		return nil
	})

	switch {
	case err == nil:
	case errors.Is(err, ErrNothingToCheckout):
		logger.Debug("cart is empty")
		return nil, err
	case errors.Is(err, ErrInsufficientStock):
		logger.Warn("checkout rejected", slog.String("reason", err.Error()))
		return nil, err
	default:
		logger.Error("checkout transaction failed", slog.Any("error", err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	logger.Info("checkout completed", slog.Uint64("orderID", uint64(order.ID)), slog.String("total", order.Total.StringFixed(2)))
	s.publishOrderCreated(logger, order)
	return order, nil
}

// lockProducts reads every referenced product under a write lock, in ascending id order so
// concurrent checkouts acquire locks consistently, and verifies the requested quantities.
func lockProducts(ctx context.Context, repo repositories.ProductRepository, lines []models.CartItem) (map[uint]*models.Product, error) {
	ordered := make([]models.CartItem, len(lines))
	copy(ordered, lines)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].ProductID < ordered[j].ProductID })

	products := make(map[uint]*models.Product, len(ordered))
	for _, line := range ordered {
		p, err := repo.GetForUpdate(ctx, line.ProductID)
		if err != nil {
			if errors.Is(err, repositories.ErrRecordNotFound) {
				return nil, &InsufficientStockError{ProductName: fmt.Sprintf("product #%d", line.ProductID)}
			}
			return nil, err
		}
		if line.Quantity > p.StockQty {
			return nil, &InsufficientStockError{ProductName: p.Name}
		}
		products[line.ProductID] = p
	}
	return products, nil
}

// publishOrderCreated is best effort: the order is already committed.
func (s *CheckoutService) publishOrderCreated(logger *slog.Logger, order *models.Order) {
	if s.publisher == nil {
		logger.Debug("event publisher not configured, skipping order.created")
		return
	}
	event := OrderCreatedEvent{
		MessageID: uuid.New().String(),
		OrderID:   order.ID,
		UserID:    order.UserID,
		Status:    order.Status,
		Total:     order.Total,
		CreatedAt: order.CreatedAt,
	}
	for _, item := range order.Items {
		event.Items = append(event.Items, OrderCreatedLineItem{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
		})
	}
	if err := s.publisher.PublishJSON(OrderCreatedQueue, event); err != nil {
		logger.Warn("failed to publish order.created", slog.Uint64("orderID", uint64(order.ID)), slog.Any("error", err))
	}
}
