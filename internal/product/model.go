package product

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	StatusActive   = "active"
	StatusDisabled = "disabled"
)

type Product struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	CategoryID  string          `json:"category_id"`
	Price       decimal.Decimal `json:"price"`
	Status      string          `json:"status"`
	ImageURL    *string         `json:"image_url,omitempty"`
	Description *string         `json:"description,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

type CreateProductParams struct {
	Name        string
	CategoryID  string
	Price       decimal.Decimal
	ImageURL    *string
	Description *string
}

type UpdateProductParams struct {
	Name        *string
	CategoryID  *string
	Price       *decimal.Decimal
	Status      *string
	Description *string
}
