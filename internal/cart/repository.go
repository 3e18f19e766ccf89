package cart

import (
	"context"
	"database/sql"

	"lokapasar-be/internal/logger"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type Repository interface {
	GetItems(ctx context.Context, userID uint) ([]*CartItem, error)
	GetItem(ctx context.Context, userID uint, productID string, size *string) (*CartItem, error)
	CreateItem(ctx context.Context, params createItemParams) (*CartItem, error)
	UpdateItem(ctx context.Context, itemID string, quantity int, unitPrice decimal.Decimal) (*CartItem, error)
	RemoveItem(ctx context.Context, userID uint, productID string, size *string) error
	Clear(ctx context.Context, userID uint) error
}

type repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) Repository {
	return &repository{db: db}
}

const cartColumns = `
	id,
	user_id,
	product_id,
	size,
	quantity,
	unit_price,
	created_at,
	updated_at
`

func scanItem(row interface{ Scan(dest ...any) error }) (*CartItem, error) {
	var item CartItem
	err := row.Scan(
		&item.ID,
		&item.UserID,
		&item.ProductID,
		&item.Size,
		&item.Quantity,
		&item.UnitPrice,
		&item.CreatedAt,
		&item.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *repository) GetItems(ctx context.Context, userID uint) ([]*CartItem, error) {
	query := `SELECT ` + cartColumns + ` FROM carts WHERE user_id = $1 ORDER BY created_at`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*CartItem
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func (r *repository) GetItem(ctx context.Context, userID uint, productID string, size *string) (*CartItem, error) {
	query := `SELECT ` + cartColumns + `
	FROM carts
	WHERE user_id = $1 AND product_id = $2 AND size IS NOT DISTINCT FROM $3`

	item, err := scanItem(r.db.QueryRowContext(ctx, query, userID, productID, size))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return item, nil
}

func (r *repository) CreateItem(ctx context.Context, params createItemParams) (*CartItem, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "repository"),
		zap.String("method", "CreateItem"),
		zap.Uint("user_id", params.UserID),
		zap.String("product_id", params.ProductID),
	)

	query := `
	INSERT INTO carts (user_id, product_id, size, quantity, unit_price)
	VALUES ($1, $2, $3, $4, $5)
	RETURNING ` + cartColumns

	item, err := scanItem(r.db.QueryRowContext(
		ctx,
		query,
		params.UserID,
		params.ProductID,
		params.Size,
		params.Quantity,
		params.UnitPrice,
	))
	if err != nil {
		log.Error("failed to create cart item", zap.Error(err))
		return nil, err
	}

	return item, nil
}

func (r *repository) UpdateItem(ctx context.Context, itemID string, quantity int, unitPrice decimal.Decimal) (*CartItem, error) {
	query := `
	UPDATE carts
	SET quantity = $2, unit_price = $3, updated_at = NOW()
	WHERE id = $1
	RETURNING ` + cartColumns

	item, err := scanItem(r.db.QueryRowContext(ctx, query, itemID, quantity, unitPrice))
	if err == sql.ErrNoRows {
		return nil, ErrCartItemNotFound
	}
	if err != nil {
		return nil, err
	}
	return item, nil
}

func (r *repository) RemoveItem(ctx context.Context, userID uint, productID string, size *string) error {
	result, err := r.db.ExecContext(ctx, `
		DELETE FROM carts
		WHERE user_id = $1 AND product_id = $2 AND size IS NOT DISTINCT FROM $3`,
		userID, productID, size,
	)
	if err != nil {
		return err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrCartItemNotFound
	}
	return nil
}

// Clear deletes every line for the user. An empty cart clears cleanly.
func (r *repository) Clear(ctx context.Context, userID uint) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM carts WHERE user_id = $1`, userID)
	return err
}
