package inventory

import (
	"context"
	"database/sql"
	"time"

	"lokapasar-be/internal/logger"

	"github.com/lib/pq"
	"go.uber.org/zap"
)

type Repository interface {
	GetInventory(ctx context.Context, productID, locationID string) (*ProductInventory, error)
	GetInventories(ctx context.Context, productIDs []string, locationID string) (map[string]*ProductInventory, error)
	GetMovements(ctx context.Context, productID, locationID string, limit int) ([]*StockMovement, error)
	GetReservation(ctx context.Context, reservationID string) (*StockReservation, error)

	AdjustStock(ctx context.Context, params AdjustStockParams) (*ProductInventory, error)
	Reserve(ctx context.Context, params ReserveStockParams) (*StockReservation, error)

	// Release deactivates the reservation and returns the stock to the
	// available pool. The second return value reports whether anything
	// changed; releasing an already-inactive reservation is a no-op.
	Release(ctx context.Context, reservationID string) (bool, error)

	// Commit converts the reservation into a permanent stock decrease
	// (a "sale" movement). The reserved units were already removed from
	// the available pool at reservation time, so only the on-hand
	// quantity drops here.
	Commit(ctx context.Context, reservationID, actor string) error

	ReleaseByOwner(ctx context.Context, ownerRef string) (int, error)
	CommitByOwner(ctx context.Context, ownerRef, actor string) (int, error)

	FindExpired(ctx context.Context, now time.Time, limit int) ([]string, error)
}

type repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) Repository {
	return &repository{db: db}
}

const inventoryColumns = `
	product_id,
	location_id,
	quantity,
	reserved_quantity,
	available_quantity,
	reorder_point,
	created_at,
	updated_at
`

const reservationColumns = `
	id,
	product_id,
	location_id,
	quantity,
	owner_ref,
	expires_at,
	is_active,
	created_at,
	updated_at
`

func scanInventory(row interface{ Scan(dest ...any) error }) (*ProductInventory, error) {
	var inv ProductInventory
	err := row.Scan(
		&inv.ProductID,
		&inv.LocationID,
		&inv.Quantity,
		&inv.ReservedQuantity,
		&inv.AvailableQuantity,
		&inv.ReorderPoint,
		&inv.CreatedAt,
		&inv.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &inv, nil
}

func scanReservation(row interface{ Scan(dest ...any) error }) (*StockReservation, error) {
	var res StockReservation
	err := row.Scan(
		&res.ID,
		&res.ProductID,
		&res.LocationID,
		&res.Quantity,
		&res.OwnerRef,
		&res.ExpiresAt,
		&res.IsActive,
		&res.CreatedAt,
		&res.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &res, nil
}

func (r *repository) GetInventory(ctx context.Context, productID, locationID string) (*ProductInventory, error) {
	query := `SELECT ` + inventoryColumns + ` FROM inventory WHERE product_id = $1 AND location_id = $2`

	inv, err := scanInventory(r.db.QueryRowContext(ctx, query, productID, locationID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return inv, nil
}

func (r *repository) GetInventories(ctx context.Context, productIDs []string, locationID string) (map[string]*ProductInventory, error) {
	query := `SELECT ` + inventoryColumns + `
	FROM inventory
	WHERE product_id = ANY($1) AND location_id = $2`

	rows, err := r.db.QueryContext(ctx, query, pq.Array(productIDs), locationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make(map[string]*ProductInventory, len(productIDs))
	for rows.Next() {
		inv, err := scanInventory(rows)
		if err != nil {
			return nil, err
		}
		result[inv.ProductID] = inv
	}

	return result, rows.Err()
}

func (r *repository) GetMovements(ctx context.Context, productID, locationID string, limit int) ([]*StockMovement, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}

	query := `
	SELECT id, product_id, location_id, type, quantity, previous_quantity, new_quantity, actor, reason, created_at
	FROM stock_movements
	WHERE product_id = $1 AND location_id = $2
	ORDER BY created_at DESC
	LIMIT $3`

	rows, err := r.db.QueryContext(ctx, query, productID, locationID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var movements []*StockMovement
	for rows.Next() {
		var m StockMovement
		if err := rows.Scan(
			&m.ID,
			&m.ProductID,
			&m.LocationID,
			&m.Type,
			&m.Quantity,
			&m.PreviousQuantity,
			&m.NewQuantity,
			&m.Actor,
			&m.Reason,
			&m.CreatedAt,
		); err != nil {
			return nil, err
		}
		movements = append(movements, &m)
	}

	return movements, rows.Err()
}

func (r *repository) GetReservation(ctx context.Context, reservationID string) (*StockReservation, error) {
	query := `SELECT ` + reservationColumns + ` FROM stock_reservations WHERE id = $1`

	res, err := scanReservation(r.db.QueryRowContext(ctx, query, reservationID))
	if err == sql.ErrNoRows {
		return nil, ErrReservationNotFound
	}
	if err != nil {
		return nil, err
	}
	return res, nil
}

func (r *repository) AdjustStock(ctx context.Context, params AdjustStockParams) (*ProductInventory, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	var prevQty, reserved int
	err = tx.QueryRowContext(ctx, `
		SELECT quantity, reserved_quantity
		FROM inventory
		WHERE product_id = $1 AND location_id = $2
		FOR UPDATE`,
		params.ProductID, params.LocationID,
	).Scan(&prevQty, &reserved)

	if err == sql.ErrNoRows {
		// First restock of a product seeds the counter row.
		if params.Delta <= 0 {
			return nil, ErrInventoryNotFound
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO inventory (product_id, location_id, quantity, reserved_quantity, available_quantity)
			VALUES ($1, $2, 0, 0, 0)`,
			params.ProductID, params.LocationID,
		)
		if err != nil {
			return nil, err
		}
		prevQty, reserved = 0, 0
	} else if err != nil {
		return nil, err
	}

	newQty := prevQty + params.Delta
	if newQty < 0 {
		newQty = 0
	}
	available := newQty - reserved
	if available < 0 {
		available = 0
	}

	inv, err := scanInventory(tx.QueryRowContext(ctx, `
		UPDATE inventory
		SET quantity = $3, available_quantity = $4, updated_at = NOW()
		WHERE product_id = $1 AND location_id = $2
		RETURNING `+inventoryColumns,
		params.ProductID, params.LocationID, newQty, available,
	))
	if err != nil {
		return nil, err
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO stock_movements (product_id, location_id, type, quantity, previous_quantity, new_quantity, actor, reason)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		params.ProductID, params.LocationID, params.Type, newQty-prevQty, prevQty, newQty, params.Actor, params.Reason,
	)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return inv, nil
}

// Reserve is the race arbiter: the guard `available_quantity >= quantity`
// and the counter update are one statement, so of two requests racing for
// the last unit exactly one sees the guard hold.
func (r *repository) Reserve(ctx context.Context, params ReserveStockParams) (*StockReservation, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx, `
		UPDATE inventory
		SET reserved_quantity = reserved_quantity + $3,
		    available_quantity = available_quantity - $3,
		    updated_at = NOW()
		WHERE product_id = $1 AND location_id = $2 AND available_quantity >= $3`,
		params.ProductID, params.LocationID, params.Quantity,
	)
	if err != nil {
		return nil, err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		var exists bool
		err = tx.QueryRowContext(ctx,
			`SELECT EXISTS(SELECT 1 FROM inventory WHERE product_id = $1 AND location_id = $2)`,
			params.ProductID, params.LocationID,
		).Scan(&exists)
		if err != nil {
			return nil, err
		}
		if !exists {
			return nil, ErrInventoryNotFound
		}
		return nil, ErrInsufficientStock
	}

	res, err := scanReservation(tx.QueryRowContext(ctx, `
		INSERT INTO stock_reservations (product_id, location_id, quantity, owner_ref, expires_at, is_active)
		VALUES ($1, $2, $3, $4, $5, TRUE)
		RETURNING `+reservationColumns,
		params.ProductID, params.LocationID, params.Quantity, params.OwnerRef, time.Now().Add(params.TTL),
	))
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return res, nil
}

func (r *repository) Release(ctx context.Context, reservationID string) (bool, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return false, err
	}
	defer tx.Rollback()

	released, err := releaseInTx(ctx, tx, reservationID)
	if err != nil {
		return false, err
	}
	if !released {
		// Nothing changed; still commit so the existence check above
		// does not hold locks.
		return false, tx.Commit()
	}

	return true, tx.Commit()
}

// releaseInTx deactivates one reservation and returns its units to the
// available pool, appending a reservation_release movement.
func releaseInTx(ctx context.Context, tx *sql.Tx, reservationID string) (bool, error) {
	var productID, locationID string
	var qty int

	err := tx.QueryRowContext(ctx, `
		UPDATE stock_reservations
		SET is_active = FALSE, updated_at = NOW()
		WHERE id = $1 AND is_active
		RETURNING product_id, location_id, quantity`,
		reservationID,
	).Scan(&productID, &locationID, &qty)

	if err == sql.ErrNoRows {
		var exists bool
		if err := tx.QueryRowContext(ctx,
			`SELECT EXISTS(SELECT 1 FROM stock_reservations WHERE id = $1)`,
			reservationID,
		).Scan(&exists); err != nil {
			return false, err
		}
		if !exists {
			return false, ErrReservationNotFound
		}
		return false, nil
	}
	if err != nil {
		return false, err
	}

	result, err := tx.ExecContext(ctx, `
		UPDATE inventory
		SET reserved_quantity = reserved_quantity - $3,
		    available_quantity = available_quantity + $3,
		    updated_at = NOW()
		WHERE product_id = $1 AND location_id = $2 AND reserved_quantity >= $3`,
		productID, locationID, qty,
	)
	if err != nil {
		return false, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	if affected == 0 {
		return false, ErrLedgerOutOfSync
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO stock_movements (product_id, location_id, type, quantity, previous_quantity, new_quantity, actor, reason)
		SELECT product_id, location_id, $3, $4, quantity, quantity, 'system', 'reservation released'
		FROM inventory WHERE product_id = $1 AND location_id = $2`,
		productID, locationID, MovementReservationRelease, qty,
	)
	if err != nil {
		return false, err
	}

	return true, nil
}

func (r *repository) Commit(ctx context.Context, reservationID, actor string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := commitInTx(ctx, tx, reservationID, actor); err != nil {
		return err
	}

	return tx.Commit()
}

func commitInTx(ctx context.Context, tx *sql.Tx, reservationID, actor string) error {
	var productID, locationID string
	var qty int

	err := tx.QueryRowContext(ctx, `
		UPDATE stock_reservations
		SET is_active = FALSE, updated_at = NOW()
		WHERE id = $1 AND is_active
		RETURNING product_id, location_id, quantity`,
		reservationID,
	).Scan(&productID, &locationID, &qty)

	if err == sql.ErrNoRows {
		var exists bool
		if err := tx.QueryRowContext(ctx,
			`SELECT EXISTS(SELECT 1 FROM stock_reservations WHERE id = $1)`,
			reservationID,
		).Scan(&exists); err != nil {
			return err
		}
		if !exists {
			return ErrReservationNotFound
		}
		return ErrReservationNotActive
	}
	if err != nil {
		return err
	}

	// available_quantity stays put: the units left the available pool
	// when the reservation was made.
	result, err := tx.ExecContext(ctx, `
		UPDATE inventory
		SET quantity = quantity - $3,
		    reserved_quantity = reserved_quantity - $3,
		    updated_at = NOW()
		WHERE product_id = $1 AND location_id = $2
		  AND quantity >= $3 AND reserved_quantity >= $3`,
		productID, locationID, qty,
	)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrLedgerOutOfSync
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO stock_movements (product_id, location_id, type, quantity, previous_quantity, new_quantity, actor, reason)
		SELECT product_id, location_id, $3, $4, quantity + $5, quantity, $6, 'reservation committed'
		FROM inventory WHERE product_id = $1 AND location_id = $2`,
		productID, locationID, MovementSale, -qty, qty, actor,
	)
	return err
}

func (r *repository) ReleaseByOwner(ctx context.Context, ownerRef string) (int, error) {
	ids, err := r.activeReservationIDs(ctx, ownerRef)
	if err != nil {
		return 0, err
	}
	if len(ids) == 0 {
		return 0, nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	released := 0
	for _, id := range ids {
		ok, err := releaseInTx(ctx, tx, id)
		if err != nil {
			return 0, err
		}
		if ok {
			released++
		}
	}

	return released, tx.Commit()
}

// CommitByOwner commits every active reservation owned by ownerRef in a
// single transaction, so a failure on any line item leaves none of them
// committed.
func (r *repository) CommitByOwner(ctx context.Context, ownerRef, actor string) (int, error) {
	ids, err := r.activeReservationIDs(ctx, ownerRef)
	if err != nil {
		return 0, err
	}
	if len(ids) == 0 {
		return 0, nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	for _, id := range ids {
		if err := commitInTx(ctx, tx, id, actor); err != nil && err != ErrReservationNotActive {
			return 0, err
		}
	}

	return len(ids), tx.Commit()
}

func (r *repository) activeReservationIDs(ctx context.Context, ownerRef string) ([]string, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id FROM stock_reservations WHERE owner_ref = $1 AND is_active ORDER BY created_at`,
		ownerRef,
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

func (r *repository) FindExpired(ctx context.Context, now time.Time, limit int) ([]string, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "repository"),
		zap.String("method", "FindExpired"),
	)

	rows, err := r.db.QueryContext(ctx, `
		SELECT id FROM stock_reservations
		WHERE is_active AND expires_at < $1
		ORDER BY expires_at
		LIMIT $2`,
		now, limit,
	)
	if err != nil {
		log.Error("query failed", zap.Error(err))
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
