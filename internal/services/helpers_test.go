package services_test

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"gamestore/internal/database"
	"gamestore/internal/models"
	"gamestore/internal/repositories"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newTestStore opens a private in-memory SQLite database with the schema applied.
func newTestStore(t *testing.T) *repositories.Store {
	t.Helper()
	db, err := database.Open(database.Config{
		Driver: database.DriverSQLite,
		DSN:    database.MemoryDSN(uuid.NewString()),
		Quiet:  true,
	})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	t.Cleanup(func() { _ = database.Close(db) })
	return repositories.NewStore(db)
}

func seedUser(t *testing.T, store *repositories.Store, email string) *models.User {
	t.Helper()
	user := &models.User{Email: email, Password: "x"}
	require.NoError(t, store.Users.Create(context.Background(), user))
	return user
}

func seedProduct(t *testing.T, store *repositories.Store, name, price, buyPrice string, stock int) *models.Product {
	t.Helper()
	p := &models.Product{
		Name:      name,
		Category:  models.CategoryGame,
		Price:     decimal.RequireFromString(price),
		BuyPrice:  decimal.RequireFromString(buyPrice),
		StockQty:  stock,
		CreatedAt: time.Now().UTC(),
	}
	require.NoError(t, store.Products.Create(context.Background(), p))
	return p
}

func seedCartLine(t *testing.T, store *repositories.Store, userID string, productID uint, qty int) *models.CartItem {
	t.Helper()
	item := &models.CartItem{UserID: userID, ProductID: productID, Quantity: qty}
	require.NoError(t, store.Carts.Create(context.Background(), item))
	return item
}

// seedOrder writes a paid order directly into the ledger.
func seedOrder(t *testing.T, store *repositories.Store, userID string, createdAt time.Time, items ...models.OrderItem) *models.Order {
	t.Helper()
	order := &models.Order{UserID: userID, CreatedAt: createdAt, Status: models.OrderStatusPaid, Total: decimal.Zero, Items: items}
	for _, item := range items {
		order.Total = order.Total.Add(item.LineTotal())
	}
	require.NoError(t, store.Orders.Create(context.Background(), order))
	return order
}

func line(productID uint, price, buyPrice string, qty int) models.OrderItem {
	return models.OrderItem{
		ProductID:    productID,
		UnitPrice:    decimal.RequireFromString(price),
		UnitBuyPrice: decimal.RequireFromString(buyPrice),
		Quantity:     qty,
	}
}

func stockOf(t *testing.T, store *repositories.Store, id uint) int {
	t.Helper()
	p, err := store.Products.GetByID(context.Background(), id)
	require.NoError(t, err)
	return p.StockQty
}
