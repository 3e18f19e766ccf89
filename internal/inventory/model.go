package inventory

import "time"

type MovementType string

const (
	MovementRestock            MovementType = "restock"
	MovementSale               MovementType = "sale"
	MovementReturn             MovementType = "return"
	MovementReservationRelease MovementType = "reservation_release"
	MovementAdjustment         MovementType = "adjustment"
)

// ProductInventory is the per-(product, location) stock counter row.
// AvailableQuantity is maintained alongside the other two so that the
// reservation guard is a single conditional UPDATE.
type ProductInventory struct {
	ProductID         string    `json:"product_id"`
	LocationID        string    `json:"location_id"`
	Quantity          int       `json:"quantity"`
	ReservedQuantity  int       `json:"reserved_quantity"`
	AvailableQuantity int       `json:"available_quantity"`
	ReorderPoint      int       `json:"reorder_point"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// StockMovement is an append-only audit record. Never updated or deleted.
type StockMovement struct {
	ID               string       `json:"id"`
	ProductID        string       `json:"product_id"`
	LocationID       string       `json:"location_id"`
	Type             MovementType `json:"type"`
	Quantity         int          `json:"quantity"`
	PreviousQuantity int          `json:"previous_quantity"`
	NewQuantity      int          `json:"new_quantity"`
	Actor            string       `json:"actor"`
	Reason           *string      `json:"reason,omitempty"`
	CreatedAt        time.Time    `json:"created_at"`
}

type StockReservation struct {
	ID         string    `json:"id"`
	ProductID  string    `json:"product_id"`
	LocationID string    `json:"location_id"`
	Quantity   int       `json:"quantity"`
	OwnerRef   string    `json:"owner_ref"`
	ExpiresAt  time.Time `json:"expires_at"`
	IsActive   bool      `json:"is_active"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

type IssueKind string

const (
	IssueProductNotFound   IssueKind = "product_not_found"
	IssueOutOfStock        IssueKind = "out_of_stock"
	IssueInsufficientStock IssueKind = "insufficient_stock"
)

type AvailabilityItem struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

type StockIssue struct {
	ProductID string    `json:"product_id"`
	Kind      IssueKind `json:"kind"`
	Requested int       `json:"requested"`
	Available int       `json:"available"`
}

// AvailabilityResult carries every failing line item, not just the first,
// so the caller can show the user the complete picture.
type AvailabilityResult struct {
	Valid  bool         `json:"valid"`
	Issues []StockIssue `json:"issues,omitempty"`
}

type AdjustStockParams struct {
	ProductID  string
	LocationID string
	Delta      int
	Type       MovementType
	Actor      string
	Reason     *string
}

type ReserveStockParams struct {
	ProductID  string
	LocationID string
	Quantity   int
	OwnerRef   string
	TTL        time.Duration
}
