package cart

import (
	"time"

	"github.com/shopspring/decimal"
)

type CartItem struct {
	ID        string          `json:"id"`
	UserID    uint            `json:"user_id"`
	ProductID string          `json:"product_id"`
	Size      *string         `json:"size,omitempty"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// Cart is the read model: the stored lines plus the derived subtotal.
// The subtotal is always recomputed from the lines, never stored.
type Cart struct {
	UserID   uint            `json:"user_id"`
	Items    []*CartItem     `json:"items"`
	Subtotal decimal.Decimal `json:"subtotal"`
}

// GuestItem is a line held client-side before login. Quantities are kept;
// prices are never trusted and get re-resolved from the catalog on merge.
type GuestItem struct {
	ProductID string  `json:"product_id"`
	Size      *string `json:"size,omitempty"`
	Quantity  int     `json:"quantity"`
}

type AddItemParams struct {
	UserID    uint
	ProductID string
	Size      *string
	Quantity  int
}

type UpdateQuantityParams struct {
	UserID    uint
	ProductID string
	Size      *string
	Quantity  int
}

type createItemParams struct {
	UserID    uint
	ProductID string
	Size      *string
	Quantity  int
	UnitPrice decimal.Decimal
}
