package repositories

import (
	"context"
	"errors"
	"fmt"

	"gamestore/internal/models"

	"gorm.io/gorm"
)

// GORMCartRepository is a GORM implementation of CartRepository.
type GORMCartRepository struct {
	db *gorm.DB
}

// NewGORMCartRepository creates a new instance of GORMCartRepository.
func NewGORMCartRepository(db *gorm.DB) *GORMCartRepository {
	return &GORMCartRepository{db: db}
}

// ListByUser returns the user's cart lines with their products preloaded.
// A line whose product no longer exists has a nil Product.
func (r *GORMCartRepository) ListByUser(ctx context.Context, userID string) ([]models.CartItem, error) {
	var items []models.CartItem
	err := r.db.WithContext(ctx).
		Preload("Product").
		Where("user_id = ?", userID).
		Order("id ASC").
		Find(&items).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list cart for user %s: %w", userID, err)
	}
	return items, nil
}

// GetByProduct retrieves the user's line for productID.
func (r *GORMCartRepository) GetByProduct(ctx context.Context, userID string, productID uint) (*models.CartItem, error) {
	return r.first(ctx, "user_id = ? AND product_id = ?", userID, productID)
}

// GetOwned retrieves a line by its ID when the user owns it.
func (r *GORMCartRepository) GetOwned(ctx context.Context, userID string, id uint) (*models.CartItem, error) {
	return r.first(ctx, "id = ? AND user_id = ?", id, userID)
}

func (r *GORMCartRepository) first(ctx context.Context, query string, args ...interface{}) (*models.CartItem, error) {
	var item models.CartItem
	if err := r.db.WithContext(ctx).Where(query, args...).First(&item).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("cart item: %w", ErrRecordNotFound)
		}
		return nil, fmt.Errorf("failed to get cart item: %w", err)
	}
	return &item, nil
}

// Create inserts a new cart line. A second line for the same user and product fails with ErrDuplicateKey.
func (r *GORMCartRepository) Create(ctx context.Context, item *models.CartItem) error {
	if err := r.db.WithContext(ctx).Omit("Product").Create(item).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return fmt.Errorf("cart item for product %d: %w", item.ProductID, ErrDuplicateKey)
		}
		return fmt.Errorf("failed to create cart item: %w", err)
	}
	return nil
}

// UpdateQuantity sets the quantity of a line.
func (r *GORMCartRepository) UpdateQuantity(ctx context.Context, id uint, quantity int) error {
	res := r.db.WithContext(ctx).Model(&models.CartItem{}).Where("id = ?", id).Update("quantity", quantity)
	if res.Error != nil {
		return fmt.Errorf("failed to update cart item %d: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("cart item %d: %w", id, ErrRecordNotFound)
	}
	return nil
}

// Delete removes a line the user owns.
func (r *GORMCartRepository) Delete(ctx context.Context, userID string, id uint) error {
	res := r.db.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).Delete(&models.CartItem{})
	if res.Error != nil {
		return fmt.Errorf("failed to delete cart item %d: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("cart item %d: %w", id, ErrRecordNotFound)
	}
	return nil
}

// DeleteByIDs removes the listed lines owned by the user and reports how many went.
func (r *GORMCartRepository) DeleteByIDs(ctx context.Context, userID string, ids []uint) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	res := r.db.WithContext(ctx).Where("user_id = ? AND id IN ?", userID, ids).Delete(&models.CartItem{})
	if res.Error != nil {
		return 0, fmt.Errorf("failed to clear cart for user %s: %w", userID, res.Error)
	}
	return res.RowsAffected, nil
}

// DeleteByProduct removes every user's line for productID.
func (r *GORMCartRepository) DeleteByProduct(ctx context.Context, productID uint) error {
	if err := r.db.WithContext(ctx).Where("product_id = ?", productID).Delete(&models.CartItem{}).Error; err != nil {
		return fmt.Errorf("failed to drop cart lines for product %d: %w", productID, err)
	}
	return nil
}

// DeleteByUser empties the user's cart.
func (r *GORMCartRepository) DeleteByUser(ctx context.Context, userID string) error {
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).Delete(&models.CartItem{}).Error; err != nil {
		return fmt.Errorf("failed to drop cart for user %s: %w", userID, err)
	}
	return nil
}
