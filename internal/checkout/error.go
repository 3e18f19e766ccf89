package checkout

import (
	"errors"
	"fmt"

	"lokapasar-be/internal/inventory"
)

var ErrEmptyCart = errors.New("cart is empty")

// StockValidationError carries every blocking line item so the cart screen
// can let the user self-correct instead of showing a generic failure.
type StockValidationError struct {
	Issues []inventory.StockIssue
}

func (e *StockValidationError) Error() string {
	return fmt.Sprintf("stock validation failed for %d item(s)", len(e.Issues))
}
