// Package errors defines the error taxonomy shared by the workflow engine
// and its transports. Callers wrap the sentinels with fmt.Errorf("%w: ...")
// to attach entity ids; transports classify with errors.Is / errors.As.
package errors

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

var (
	ErrNotFound          = fmt.Errorf("not found")
	ErrInvalidInput      = fmt.Errorf("invalid input")
	ErrForbidden         = fmt.Errorf("forbidden")
	ErrConflict          = fmt.Errorf("conflict")
	ErrInvalidTransition = fmt.Errorf("invalid transition")
	ErrInsufficientStock = fmt.Errorf("insufficient stock")
	ErrUnauthenticated   = fmt.Errorf("unauthenticated")
)

// InsufficientStockError reports the product whose stock would go negative.
// It matches both ErrInsufficientStock and ErrConflict.
type InsufficientStockError struct {
	ProductID uuid.UUID
	Requested int
	Available int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for product %s: requested %d, available %d",
		e.ProductID, e.Requested, e.Available)
}

// Is lets errors.Is treat the ledger failure as a conflict variant.
func (e *InsufficientStockError) Is(target error) bool {
	return target == ErrInsufficientStock || target == ErrConflict
}

// AsInsufficientStock unwraps err into an InsufficientStockError if it holds one.
func AsInsufficientStock(err error) (*InsufficientStockError, bool) {
	var stockErr *InsufficientStockError
	if errors.As(err, &stockErr) {
		return stockErr, true
	}
	return nil, false
}
