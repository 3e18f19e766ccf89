package coupon

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type CouponType string

const (
	TypePercentage   CouponType = "percentage"
	TypeFixed        CouponType = "fixed"
	TypeFreeShipping CouponType = "free_shipping"
	TypeBuyXGetY     CouponType = "buy_x_get_y"
)

type Coupon struct {
	ID    string          `json:"id"`
	Code  string          `json:"code"`
	Type  CouponType      `json:"type"`
	Value decimal.Decimal `json:"value"`

	// buy_x_get_y only: buy BuyQuantity, get GetQuantity free.
	BuyQuantity int `json:"buy_quantity,omitempty"`
	GetQuantity int `json:"get_quantity,omitempty"`

	IsActive   bool      `json:"is_active"`
	ValidFrom  time.Time `json:"valid_from"`
	ValidUntil time.Time `json:"valid_until"`

	UsageLimit        *int `json:"usage_limit,omitempty"`
	UsageLimitPerUser *int `json:"usage_limit_per_user,omitempty"`

	MinimumOrderAmount    *decimal.Decimal `json:"minimum_order_amount,omitempty"`
	MaximumDiscountAmount *decimal.Decimal `json:"maximum_discount_amount,omitempty"`

	ApplicableProducts   []string `json:"applicable_products,omitempty"`
	ExcludedProducts     []string `json:"excluded_products,omitempty"`
	ApplicableCategories []string `json:"applicable_categories,omitempty"`
	ExcludedCategories   []string `json:"excluded_categories,omitempty"`

	FirstTimeUserOnly bool `json:"first_time_user_only"`
	Stackable         bool `json:"stackable"`

	CurrentUsage int       `json:"current_usage"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

type CouponUsage struct {
	ID             string          `json:"id"`
	CouponID       string          `json:"coupon_id"`
	UserID         uint            `json:"user_id"`
	OrderRef       string          `json:"order_ref"`
	DiscountAmount decimal.Decimal `json:"discount_amount"`
	UsedAt         time.Time       `json:"used_at"`
}

// CartLine is the slice of the cart the engine needs to judge
// applicability: product, category and the priced quantity.
type CartLine struct {
	ProductID  string          `json:"product_id"`
	CategoryID string          `json:"category_id"`
	Quantity   int             `json:"quantity"`
	UnitPrice  decimal.Decimal `json:"unit_price"`
}

type ValidationResult struct {
	IsValid        bool            `json:"is_valid"`
	Error          string          `json:"error,omitempty"`
	DiscountAmount decimal.Decimal `json:"discount_amount"`
	FinalAmount    decimal.Decimal `json:"final_amount"`
	Coupon         *Coupon         `json:"-"`
}

type ApplyResult struct {
	DiscountAmount decimal.Decimal `json:"discount_amount"`
	FinalAmount    decimal.Decimal `json:"final_amount"`
	Coupon         *Coupon         `json:"-"`
}

// NormalizeCode is the canonical form coupon codes are stored and compared
// in.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
