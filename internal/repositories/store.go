package repositories

import (
	"context"

	"gorm.io/gorm"
)

// Store groups the repositories that share one database handle.
type Store struct {
	db       *gorm.DB
	Products ProductRepository
	Carts    CartRepository
	Orders   OrderRepository
	Users    UserRepository
}

// NewStore builds GORM repositories over db.
func NewStore(db *gorm.DB) *Store {
	return &Store{
		db:       db,
		Products: NewGORMProductRepository(db),
		Carts:    NewGORMCartRepository(db),
		Orders:   NewGORMOrderRepository(db),
		Users:    NewGORMUserRepository(db),
	}
}

// Transactor runs fn inside one database transaction.
type Transactor interface {
	Transaction(ctx context.Context, fn func(tx *Store) error) error
}

// Transaction begins a transaction, hands fn a Store bound to it, and commits when fn
// returns nil. Any error or panic from fn rolls everything back.
func (s *Store) Transaction(ctx context.Context, fn func(tx *Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(NewStore(tx))
	})
}
