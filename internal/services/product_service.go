package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"gamestore/internal/models"
	"gamestore/internal/repositories"

	"github.com/go-playground/validator/v10"
	"github.com/gosimple/slug"
	"github.com/shopspring/decimal"
)

var maxMoney = decimal.NewFromInt(999999)

// ProductInput is the whitelist of product fields an admin may write.
type ProductInput struct {
	Name        string          `json:"name" form:"name" validate:"required,max=120"`
	Category    models.Category `json:"category" form:"category" validate:"required,oneof=Book Game Toy"`
	Description string          `json:"description" form:"description" validate:"max=1000"`
	Source      string          `json:"source" form:"source" validate:"max=120"`
	BuyPrice    decimal.Decimal `json:"buy_price" form:"buy_price"`
	Price       decimal.Decimal `json:"price" form:"price"`
	StockQty    int             `json:"stock_qty" form:"stock_qty" validate:"gte=0,lte=100000"`
	ImageURL    string          `json:"image_url" form:"image_url" validate:"omitempty,url"`
}

// ProductService handles business logic related to the catalog.
type ProductService struct {
	log      *slog.Logger
	repo     repositories.ProductRepository
	tx       repositories.Transactor
	validate *validator.Validate
	now      func() time.Time
}

// NewProductService creates a new ProductService.
func NewProductService(log *slog.Logger, repo repositories.ProductRepository, tx repositories.Transactor) *ProductService {
	return &ProductService{
		log:      log,
		repo:     repo,
		tx:       tx,
		validate: newValidator(),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// ListProducts returns the filtered catalog ordered by name.
func (s *ProductService) ListProducts(ctx context.Context, filter repositories.ProductFilter) ([]models.Product, error) {
	if filter.Category != "" && !filter.Category.Valid() {
		ve := newValidationError()
		ve.Add("category", "must be one of: Book Game Toy")
		return nil, ve
	}
	return s.repo.List(ctx, filter)
}

// GetProduct retrieves a single product by its ID.
func (s *ProductService) GetProduct(ctx context.Context, id uint) (*models.Product, error) {
	product, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return product, nil
}

// CreateProduct validates the input and stores a new product. UpdatedAt stays unset.
func (s *ProductService) CreateProduct(ctx context.Context, in ProductInput) (*models.Product, error) {
	const op = "services.ProductService.CreateProduct"
	if err := s.validateInput(in); err != nil {
		return nil, err
	}

	product := &models.Product{CreatedAt: s.now()}
	apply(product, in)
	if err := s.repo.Create(ctx, product); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	s.log.Info("product created", slog.String("op", op), slog.Uint64("productID", uint64(product.ID)))
	return product, nil
}

// UpdateProduct overwrites the whitelisted fields of an existing product and stamps UpdatedAt.
func (s *ProductService) UpdateProduct(ctx context.Context, id uint, in ProductInput) (*models.Product, error) {
	const op = "services.ProductService.UpdateProduct"
	existing, err := s.GetProduct(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.validateInput(in); err != nil {
		return nil, err
	}

	apply(existing, in)
	now := s.now()
	existing.UpdatedAt = &now
	if err := s.repo.Update(ctx, existing); err != nil {
		if errors.Is(err, repositories.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	s.log.Info("product updated", slog.String("op", op), slog.Uint64("productID", uint64(id)))
	return existing, nil
}

// DeleteProduct removes a product and any cart lines pointing at it.
// Products referenced by orders are kept and ErrProductInUse is returned.
func (s *ProductService) DeleteProduct(ctx context.Context, id uint) error {
	const op = "services.ProductService.DeleteProduct"
	logger := s.log.With(slog.String("op", op), slog.Uint64("productID", uint64(id)))

	err := s.tx.Transaction(ctx, func(tx *repositories.Store) error {
		if _, err := tx.Products.GetByID(ctx, id); err != nil {
			return err
		}
		refs, err := tx.Products.CountOrderReferences(ctx, id)
		if err != nil {
			return err
		}
		if refs > 0 {
			return ErrProductInUse
		}
		if err := tx.Carts.DeleteByProduct(ctx, id); err != nil {
			return err
		}
		return tx.Products.Delete(ctx, id)
	})
	switch {
	case err == nil:
		logger.Info("product deleted")
		return nil
	case errors.Is(err, repositories.ErrRecordNotFound):
		return ErrNotFound
	case errors.Is(err, ErrProductInUse):
		logger.Warn("delete refused, product has order history")
		return err
	default:
		logger.Error("failed to delete product", slog.Any("error", err))
		return fmt.Errorf("%s: %w", op, err)
	}
}

func (s *ProductService) validateInput(in ProductInput) error {
	ve := newValidationError()
	if err := collectFieldErrors(s.validate, in, ve); err != nil {
		return err
	}
	if in.BuyPrice.IsNegative() || in.Price.IsNegative() {
		ve.Add("", "Prices must be non-negative.")
	}
	if in.BuyPrice.GreaterThan(maxMoney) {
		ve.Add("buy_price", "must be at most 999999")
	}
	if in.Price.GreaterThan(maxMoney) {
		ve.Add("price", "must be at most 999999")
	}
	if in.BuyPrice.GreaterThan(in.Price) {
		ve.Add("price", "Sell price should be ≥ buy price.")
	}
	if ve.empty() {
		return nil
	}
	return ve
}

func apply(p *models.Product, in ProductInput) {
	p.Name = in.Name
	p.Slug = slug.Make(in.Name)
	p.Category = in.Category
	p.Description = in.Description
	p.Source = in.Source
	p.BuyPrice = in.BuyPrice.Round(2)
	p.Price = in.Price.Round(2)
	p.StockQty = in.StockQty
	p.ImageURL = in.ImageURL
}
