package services

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	// ErrNotFound covers both missing resources and resources owned by someone else.
	ErrNotFound = errors.New("not found")
	// ErrInvalidInput is matched by every *ValidationError.
	ErrInvalidInput = errors.New("invalid input")
	// ErrInsufficientStock is matched by every *InsufficientStockError.
	ErrInsufficientStock = errors.New("insufficient stock")
	// ErrNothingToCheckout is returned when the cart is empty at confirm time.
	ErrNothingToCheckout = errors.New("nothing to checkout")
	// ErrRoleOperationFailed is matched by every *RoleOperationError.
	ErrRoleOperationFailed = errors.New("role operation failed")
	// ErrProductInUse blocks deleting a product that historical orders reference.
	ErrProductInUse = errors.New("product is referenced by existing orders")
	// ErrNoRecipients is returned when an email audience is empty.
	ErrNoRecipients = errors.New("no recipients match the selected audience")
	// ErrInvalidCredentials is returned for an unknown email or a wrong password.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrEmailTaken is returned when registering an email that already has an account.
	ErrEmailTaken = errors.New("email already registered")
	// ErrInvalidToken covers malformed, expired and forged tokens, and tokens of deleted accounts.
	ErrInvalidToken = errors.New("invalid token")
)

// ValidationError carries field-level messages. The empty key holds form-wide messages.
type ValidationError struct {
	Fields map[string]string
}

func newValidationError() *ValidationError {
	return &ValidationError{Fields: make(map[string]string)}
}

// Add records msg for field, keeping the first message per field.
func (e *ValidationError) Add(field, msg string) {
	if _, exists := e.Fields[field]; !exists {
		e.Fields[field] = msg
	}
}

func (e *ValidationError) empty() bool { return len(e.Fields) == 0 }

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		if k == "" {
			parts = append(parts, e.Fields[k])
			continue
		}
		parts = append(parts, fmt.Sprintf("%s: %s", k, e.Fields[k]))
	}
	return "invalid input: " + strings.Join(parts, "; ")
}

func (e *ValidationError) Is(target error) bool { return target == ErrInvalidInput }

// InsufficientStockError names the product that could not be fulfilled.
type InsufficientStockError struct {
	ProductName string
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("Not enough stock for %s.", e.ProductName)
}

func (e *InsufficientStockError) Is(target error) bool { return target == ErrInsufficientStock }

// RoleOperationError reports a failed role assignment.
type RoleOperationError struct {
	Op     string
	Reason string
}

func (e *RoleOperationError) Error() string {
	return fmt.Sprintf("Failed %s: %s", e.Op, e.Reason)
}

func (e *RoleOperationError) Is(target error) bool { return target == ErrRoleOperationFailed }
