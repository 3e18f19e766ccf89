package order

import (
	"context"
	"database/sql"
	"time"

	"lokapasar-be/internal/logger"

	"go.uber.org/zap"
)

type Repository interface {
	CreateOrderTx(ctx context.Context, o *Order) error
	GetOrder(ctx context.Context, orderID string) (*Order, error)
	GetByUser(ctx context.Context, userID uint) ([]*Order, error)
	UpdateStatusTx(ctx context.Context, orderID string, from, to Status, entry TrackingEntry) error
	UpdatePayment(ctx context.Context, orderID string, update PaymentUpdate) error
	FindStalePending(ctx context.Context, before time.Time) ([]string, error)
}

type repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) Repository {
	return &repository{db: db}
}

const orderColumns = `
	id,
	order_number,
	user_id,
	subtotal,
	shipping_cost,
	tax,
	total,
	status,
	payment_method,
	payment_status,
	payment_transaction_id,
	payment_amount,
	payment_currency,
	shipping_address,
	created_at,
	updated_at
`

func scanOrder(row interface{ Scan(dest ...any) error }) (*Order, error) {
	var o Order
	err := row.Scan(
		&o.ID,
		&o.OrderNumber,
		&o.UserID,
		&o.Subtotal,
		&o.ShippingCost,
		&o.Tax,
		&o.Total,
		&o.Status,
		&o.Payment.Method,
		&o.Payment.Status,
		&o.Payment.TransactionID,
		&o.Payment.Amount,
		&o.Payment.Currency,
		&o.ShippingAddress,
		&o.CreatedAt,
		&o.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &o, nil
}

// CreateOrderTx persists the order with its item snapshot, discounts and
// first tracking entry in a single transaction.
func (r *repository) CreateOrderTx(ctx context.Context, o *Order) error {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "repository"),
		zap.String("method", "CreateOrderTx"),
		zap.String("order_id", o.ID),
	)

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO orders (
			id, order_number, user_id, subtotal, shipping_cost, tax, total,
			status, payment_status, payment_amount, payment_currency,
			shipping_address
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		o.ID,
		o.OrderNumber,
		o.UserID,
		o.Subtotal,
		o.ShippingCost,
		o.Tax,
		o.Total,
		o.Status,
		o.Payment.Status,
		o.Payment.Amount,
		o.Payment.Currency,
		o.ShippingAddress,
	)
	if err != nil {
		log.Error("failed to insert order", zap.Error(err))
		return err
	}

	for i := range o.Items {
		item := &o.Items[i]
		err = tx.QueryRowContext(ctx, `
			INSERT INTO order_items (order_id, product_id, name, size, unit_price, quantity)
			VALUES ($1, $2, $3, $4, $5, $6)
			RETURNING id`,
			o.ID, item.ProductID, item.Name, item.Size, item.UnitPrice, item.Quantity,
		).Scan(&item.ID)
		if err != nil {
			log.Error("failed to insert order item", zap.Error(err))
			return err
		}
		item.OrderID = o.ID
	}

	for _, d := range o.Discounts {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO order_discounts (order_id, type, code, amount, description)
			VALUES ($1, $2, $3, $4, $5)`,
			o.ID, d.Type, d.Code, d.Amount, d.Description,
		)
		if err != nil {
			log.Error("failed to insert order discount", zap.Error(err))
			return err
		}
	}

	for i := range o.Tracking {
		entry := &o.Tracking[i]
		err = tx.QueryRowContext(ctx, `
			INSERT INTO order_tracking (order_id, status, message, location, actor)
			VALUES ($1, $2, $3, $4, $5)
			RETURNING id, created_at`,
			o.ID, entry.Status, entry.Message, entry.Location, entry.Actor,
		).Scan(&entry.ID, &entry.CreatedAt)
		if err != nil {
			log.Error("failed to insert tracking entry", zap.Error(err))
			return err
		}
		entry.OrderID = o.ID
	}

	return tx.Commit()
}

func (r *repository) GetOrder(ctx context.Context, orderID string) (*Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`

	o, err := scanOrder(r.db.QueryRowContext(ctx, query, orderID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	if o.Items, err = r.getItems(ctx, orderID); err != nil {
		return nil, err
	}
	if o.Discounts, err = r.getDiscounts(ctx, orderID); err != nil {
		return nil, err
	}
	if o.Tracking, err = r.getTracking(ctx, orderID); err != nil {
		return nil, err
	}

	return o, nil
}

func (r *repository) getItems(ctx context.Context, orderID string) ([]OrderItem, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, order_id, product_id, name, size, unit_price, quantity
		FROM order_items WHERE order_id = $1 ORDER BY id`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []OrderItem
	for rows.Next() {
		var it OrderItem
		if err := rows.Scan(&it.ID, &it.OrderID, &it.ProductID, &it.Name, &it.Size, &it.UnitPrice, &it.Quantity); err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

func (r *repository) getDiscounts(ctx context.Context, orderID string) ([]Discount, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT type, code, amount, description
		FROM order_discounts WHERE order_id = $1`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var discounts []Discount
	for rows.Next() {
		var d Discount
		if err := rows.Scan(&d.Type, &d.Code, &d.Amount, &d.Description); err != nil {
			return nil, err
		}
		discounts = append(discounts, d)
	}
	return discounts, rows.Err()
}

func (r *repository) getTracking(ctx context.Context, orderID string) ([]TrackingEntry, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, order_id, status, message, location, actor, created_at
		FROM order_tracking WHERE order_id = $1 ORDER BY created_at, id`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []TrackingEntry
	for rows.Next() {
		var e TrackingEntry
		if err := rows.Scan(&e.ID, &e.OrderID, &e.Status, &e.Message, &e.Location, &e.Actor, &e.CreatedAt); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// GetByUser returns order headers, newest first, without sub-records.
func (r *repository) GetByUser(ctx context.Context, userID uint) ([]*Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE user_id = $1 ORDER BY created_at DESC`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var orders []*Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, o)
	}
	return orders, rows.Err()
}

// UpdateStatusTx flips the status and appends the tracking entry in one
// transaction. The update is conditional on the expected current status so
// a racing transition loses cleanly instead of double-applying.
func (r *repository) UpdateStatusTx(ctx context.Context, orderID string, from, to Status, entry TrackingEntry) error {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "repository"),
		zap.String("method", "UpdateStatusTx"),
		zap.String("order_id", orderID),
		zap.String("from", string(from)),
		zap.String("to", string(to)),
	)

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx, `
		UPDATE orders
		SET status = $2, updated_at = NOW()
		WHERE id = $1 AND status = $3`,
		orderID, to, from,
	)
	if err != nil {
		log.Error("failed to update order status", zap.Error(err))
		return err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrInvalidTransition
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO order_tracking (order_id, status, message, location, actor)
		VALUES ($1, $2, $3, $4, $5)`,
		orderID, entry.Status, entry.Message, entry.Location, entry.Actor,
	)
	if err != nil {
		log.Error("failed to append tracking entry", zap.Error(err))
		return err
	}

	return tx.Commit()
}

func (r *repository) UpdatePayment(ctx context.Context, orderID string, update PaymentUpdate) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE orders
		SET payment_status         = $2,
		    payment_method         = COALESCE($3, payment_method),
		    payment_transaction_id = COALESCE($4, payment_transaction_id),
		    payment_amount         = COALESCE($5, payment_amount),
		    updated_at             = NOW()
		WHERE id = $1`,
		orderID, update.Status, update.Method, update.TransactionID, update.Amount,
	)
	if err != nil {
		return err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrOrderNotFound
	}
	return nil
}

// FindStalePending returns ids of pending orders created before the cutoff.
func (r *repository) FindStalePending(ctx context.Context, before time.Time) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id FROM orders
		WHERE status = $1 AND created_at < $2`,
		StatusPending, before,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
