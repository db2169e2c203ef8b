package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"gamestore/internal/models"
	"gamestore/internal/repositories"
)

// CartService manages per-user cart lines. Stock is not checked here; checkout does that.
type CartService struct {
	log      *slog.Logger
	carts    repositories.CartRepository
	products repositories.ProductRepository
}

// NewCartService creates a new CartService.
func NewCartService(log *slog.Logger, carts repositories.CartRepository, products repositories.ProductRepository) *CartService {
	return &CartService{log: log, carts: carts, products: products}
}

// ListCart returns the user's lines with their products.
func (s *CartService) ListCart(ctx context.Context, userID string) ([]models.CartItem, error) {
	return s.carts.ListByUser(ctx, userID)
}

// AddToCart increments the user's line for productID by qty, creating it when absent.
func (s *CartService) AddToCart(ctx context.Context, userID string, productID uint, qty int) (*models.CartItem, error) {
	const op = "services.CartService.AddToCart"
	logger := s.log.With(slog.String("op", op), slog.String("userID", userID), slog.Uint64("productID", uint64(productID)))

	if err := checkQuantity(qty); err != nil {
		return nil, err
	}
	if _, err := s.products.GetByID(ctx, productID); err != nil {
		if errors.Is(err, repositories.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	item, err := s.carts.GetByProduct(ctx, userID, productID)
	switch {
	case err == nil:
		if err := s.increment(ctx, item, qty); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
	case errors.Is(err, repositories.ErrRecordNotFound):
		item = &models.CartItem{UserID: userID, ProductID: productID, Quantity: qty}
		err := s.carts.Create(ctx, item)
		if errors.Is(err, repositories.ErrDuplicateKey) {
			// A concurrent add created the line first: merge into it.
			logger.Debug("cart line created concurrently, merging")
			item, err = s.carts.GetByProduct(ctx, userID, productID)
			if err == nil {
				err = s.increment(ctx, item, qty)
			}
		}
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
	default:
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	logger.Debug("cart line saved", slog.Int("quantity", item.Quantity))
	return item, nil
}

// increment adds qty to an existing line, keeping the merged total within bounds.
func (s *CartService) increment(ctx context.Context, item *models.CartItem, qty int) error {
	if err := checkQuantity(item.Quantity + qty); err != nil {
		return err
	}
	item.Quantity += qty
	return s.carts.UpdateQuantity(ctx, item.ID, item.Quantity)
}

// UpdateQuantity sets the quantity of a line the user owns. Lines owned by someone
// else, or missing, are ignored.
func (s *CartService) UpdateQuantity(ctx context.Context, userID string, cartItemID uint, qty int) error {
	const op = "services.CartService.UpdateQuantity"
	if err := checkQuantity(qty); err != nil {
		return err
	}
	item, err := s.carts.GetOwned(ctx, userID, cartItemID)
	if err != nil {
		if errors.Is(err, repositories.ErrRecordNotFound) {
			return nil
		}
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := s.carts.UpdateQuantity(ctx, item.ID, qty); err != nil && !errors.Is(err, repositories.ErrRecordNotFound) {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// RemoveItem deletes a line the user owns. Lines owned by someone else, or missing, are ignored.
func (s *CartService) RemoveItem(ctx context.Context, userID string, cartItemID uint) error {
	const op = "services.CartService.RemoveItem"
	if err := s.carts.Delete(ctx, userID, cartItemID); err != nil && !errors.Is(err, repositories.ErrRecordNotFound) {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func checkQuantity(qty int) error {
	if qty < models.MinLineQuantity || qty > models.MaxLineQuantity {
		ve := newValidationError()
		ve.Add("qty", fmt.Sprintf("must be between %d and %d", models.MinLineQuantity, models.MaxLineQuantity))
		return ve
	}
	return nil
}
