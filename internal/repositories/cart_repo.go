package repositories

import (
	"context"

	"gamestore/internal/models"
)

// CartRepository defines the interface for cart data access. Every lookup is scoped to a user.
type CartRepository interface {
	ListByUser(ctx context.Context, userID string) ([]models.CartItem, error)
	GetByProduct(ctx context.Context, userID string, productID uint) (*models.CartItem, error)
	GetOwned(ctx context.Context, userID string, id uint) (*models.CartItem, error)
	Create(ctx context.Context, item *models.CartItem) error
	UpdateQuantity(ctx context.Context, id uint, quantity int) error
	Delete(ctx context.Context, userID string, id uint) error
	DeleteByIDs(ctx context.Context, userID string, ids []uint) (int64, error)
	DeleteByProduct(ctx context.Context, productID uint) error
	DeleteByUser(ctx context.Context, userID string) error
}
