package repositories

import (
	"context"

	"gamestore/internal/models"
)

// ProductFilter narrows a catalog listing. Zero values mean "no filter".
type ProductFilter struct {
	Category models.Category
	Search   string
}

// ProductRepository defines the interface for product data access.
type ProductRepository interface {
	List(ctx context.Context, filter ProductFilter) ([]models.Product, error)
	GetByID(ctx context.Context, id uint) (*models.Product, error)
	// GetForUpdate reads the row under a write lock when the database supports one.
	GetForUpdate(ctx context.Context, id uint) (*models.Product, error)
	Create(ctx context.Context, product *models.Product) error
	Update(ctx context.Context, product *models.Product) error
	Delete(ctx context.Context, id uint) error
	// DecrementStock subtracts qty only if at least qty units remain.
	DecrementStock(ctx context.Context, id uint, qty int) error
	CountOrderReferences(ctx context.Context, id uint) (int64, error)
}
