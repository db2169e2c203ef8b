package repositories

import "errors"

var (
	// ErrRecordNotFound is returned when a lookup matches no row.
	ErrRecordNotFound = errors.New("record not found")
	// ErrStockConflict is returned when a conditional stock decrement matches no row.
	ErrStockConflict = errors.New("stock changed or insufficient")
	// ErrDuplicateKey is returned when an insert collides with a unique index.
	ErrDuplicateKey = errors.New("duplicate key")
)
