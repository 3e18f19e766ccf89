package order

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

type Status string

const (
	StatusPending    Status = "pending"
	StatusConfirmed  Status = "confirmed"
	StatusProcessing Status = "processing"
	StatusShipped    Status = "shipped"
	StatusDelivered  Status = "delivered"
	StatusCancelled  Status = "cancelled"
	StatusRefunded   Status = "refunded"
	StatusFailed     Status = "failed"
)

const (
	PaymentPending   = "pending"
	PaymentCompleted = "completed"
	PaymentFailed    = "failed"
	PaymentRefunded  = "refunded"
)

// OrderItem is a frozen snapshot of the cart line at checkout time; later
// product edits never change it.
type OrderItem struct {
	ID        string          `json:"id"`
	OrderID   string          `json:"order_id"`
	ProductID string          `json:"product_id"`
	Name      string          `json:"name"`
	Size      *string         `json:"size,omitempty"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Quantity  int             `json:"quantity"`
}

type Discount struct {
	Type        string          `json:"type"`
	Code        string          `json:"code"`
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description,omitempty"`
}

// TrackingEntry is append-only; the newest entry's status always equals the
// order's current status.
type TrackingEntry struct {
	ID        string    `json:"id"`
	OrderID   string    `json:"order_id"`
	Status    Status    `json:"status"`
	Message   string    `json:"message"`
	Location  *string   `json:"location,omitempty"`
	Actor     string    `json:"actor"`
	CreatedAt time.Time `json:"created_at"`
}

type PaymentInfo struct {
	Method        *string         `json:"method,omitempty"`
	Status        string          `json:"status"`
	TransactionID *string         `json:"transaction_id,omitempty"`
	Amount        decimal.Decimal `json:"amount"`
	Currency      string          `json:"currency"`
}

type ShippingAddress struct {
	Name       string  `json:"name"`
	Phone      string  `json:"phone"`
	Line1      string  `json:"line1"`
	Line2      *string `json:"line2,omitempty"`
	City       string  `json:"city"`
	Province   string  `json:"province"`
	PostalCode string  `json:"postal_code"`
	Country    string  `json:"country"`
}

// Value / Scan store the address as a single jsonb column.
func (a ShippingAddress) Value() (driver.Value, error) {
	return json.Marshal(a)
}

func (a *ShippingAddress) Scan(src any) error {
	switch v := src.(type) {
	case []byte:
		return json.Unmarshal(v, a)
	case string:
		return json.Unmarshal([]byte(v), a)
	default:
		return fmt.Errorf("unsupported shipping address type %T", src)
	}
}

type Order struct {
	ID              string          `json:"id"`
	OrderNumber     string          `json:"order_number"`
	UserID          uint            `json:"user_id"`
	Items           []OrderItem     `json:"items"`
	Subtotal        decimal.Decimal `json:"subtotal"`
	Discounts       []Discount      `json:"discounts,omitempty"`
	ShippingCost    decimal.Decimal `json:"shipping_cost"`
	Tax             decimal.Decimal `json:"tax"`
	Total           decimal.Decimal `json:"total"`
	Status          Status          `json:"status"`
	Tracking        []TrackingEntry `json:"tracking,omitempty"`
	Payment         PaymentInfo     `json:"payment"`
	ShippingAddress ShippingAddress `json:"shipping_address"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// DiscountTotal sums every attached discount.
func (o *Order) DiscountTotal() decimal.Decimal {
	sum := decimal.Zero
	for _, d := range o.Discounts {
		sum = sum.Add(d.Amount)
	}
	return sum
}

type CreateOrderParams struct {
	ID              string
	UserID          uint
	Items           []OrderItem
	Subtotal        decimal.Decimal
	Discounts       []Discount
	ShippingCost    decimal.Decimal
	Tax             decimal.Decimal
	Total           decimal.Decimal
	ShippingAddress ShippingAddress
}

// TrackingInfo is the caller-supplied part of a tracking entry.
type TrackingInfo struct {
	Message  string
	Location *string
	Actor    string
}

// PaymentUpdate carries the fields a payment callback may change.
type PaymentUpdate struct {
	Status        string
	Method        *string
	TransactionID *string
	Amount        *decimal.Decimal
}
