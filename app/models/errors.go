package models

import (
	"errors"
	"fmt"
)

// Sentinel errors shared across the service layer. Services wrap these with
// fmt.Errorf("...: %w", err) so callers can classify with errors.Is.
var (
	// ErrValidation marks malformed input; the operation was not attempted.
	ErrValidation = errors.New("validation failed")

	// ErrNotFound marks a missing batch/product/sale/customer.
	ErrNotFound = errors.New("not found")

	// ErrProductHasSales refuses deletion of a catalog product still
	// referenced by historical sale items.
	ErrProductHasSales = errors.New("product has associated sales")

	// ErrMissingPrice marks a product creation with no explicit price and no
	// active pricing template for its type.
	ErrMissingPrice = errors.New("no price or pricing template for product type")
)

// InsufficientStockError reports a requested quantity exceeding a product's
// current availability. Carries the product identity and the available count
// so the UI can show both.
type InsufficientStockError struct {
	ProductID uint
	Requested int
	Available int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for product %d: requested %d, available %d",
		e.ProductID, e.Requested, e.Available)
}

// ValidationError wraps ErrValidation with a field-specific message.
func ValidationError(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}
