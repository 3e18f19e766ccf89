package coupon

import (
	"context"
	"database/sql"

	"github.com/lib/pq"
)

type Repository interface {
	GetByCode(ctx context.Context, code string) (*Coupon, error)
	List(ctx context.Context) ([]*Coupon, error)
	Create(ctx context.Context, c *Coupon) (*Coupon, error)
	Update(ctx context.Context, c *Coupon) (*Coupon, error)

	CountUserUsage(ctx context.Context, couponID string, userID uint) (int, error)
	CountUserOrders(ctx context.Context, userID uint) (int, error)

	// Apply increments current_usage and records the usage in one
	// transaction. The increment is guarded by the usage limit, so N
	// racing calls for the last slot leave exactly one winner.
	Apply(ctx context.Context, couponID string, usage CouponUsage) error

	// Revert undoes an Apply for the given order: removes the usage row
	// and decrements the counter. Compensation for a failed checkout.
	Revert(ctx context.Context, couponID, orderRef string) error
}

type repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) Repository {
	return &repository{db: db}
}

const couponColumns = `
	id,
	code,
	type,
	value,
	buy_quantity,
	get_quantity,
	is_active,
	valid_from,
	valid_until,
	usage_limit,
	usage_limit_per_user,
	minimum_order_amount,
	maximum_discount_amount,
	applicable_products,
	excluded_products,
	applicable_categories,
	excluded_categories,
	first_time_user_only,
	stackable,
	current_usage,
	created_at,
	updated_at
`

func scanCoupon(row interface{ Scan(dest ...any) error }) (*Coupon, error) {
	var c Coupon
	err := row.Scan(
		&c.ID,
		&c.Code,
		&c.Type,
		&c.Value,
		&c.BuyQuantity,
		&c.GetQuantity,
		&c.IsActive,
		&c.ValidFrom,
		&c.ValidUntil,
		&c.UsageLimit,
		&c.UsageLimitPerUser,
		&c.MinimumOrderAmount,
		&c.MaximumDiscountAmount,
		pq.Array(&c.ApplicableProducts),
		pq.Array(&c.ExcludedProducts),
		pq.Array(&c.ApplicableCategories),
		pq.Array(&c.ExcludedCategories),
		&c.FirstTimeUserOnly,
		&c.Stackable,
		&c.CurrentUsage,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *repository) GetByCode(ctx context.Context, code string) (*Coupon, error) {
	query := `SELECT ` + couponColumns + ` FROM coupons WHERE code = $1`

	c, err := scanCoupon(r.db.QueryRowContext(ctx, query, NormalizeCode(code)))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return c, nil
}

func (r *repository) List(ctx context.Context) ([]*Coupon, error) {
	query := `SELECT ` + couponColumns + ` FROM coupons ORDER BY created_at DESC`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var coupons []*Coupon
	for rows.Next() {
		c, err := scanCoupon(rows)
		if err != nil {
			return nil, err
		}
		coupons = append(coupons, c)
	}
	return coupons, rows.Err()
}

func (r *repository) Create(ctx context.Context, c *Coupon) (*Coupon, error) {
	query := `
	INSERT INTO coupons (
		code, type, value, buy_quantity, get_quantity, is_active,
		valid_from, valid_until, usage_limit, usage_limit_per_user,
		minimum_order_amount, maximum_discount_amount,
		applicable_products, excluded_products,
		applicable_categories, excluded_categories,
		first_time_user_only, stackable
	)
	VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18)
	RETURNING ` + couponColumns

	return scanCoupon(r.db.QueryRowContext(
		ctx,
		query,
		NormalizeCode(c.Code),
		c.Type,
		c.Value,
		c.BuyQuantity,
		c.GetQuantity,
		c.IsActive,
		c.ValidFrom,
		c.ValidUntil,
		c.UsageLimit,
		c.UsageLimitPerUser,
		c.MinimumOrderAmount,
		c.MaximumDiscountAmount,
		pq.Array(c.ApplicableProducts),
		pq.Array(c.ExcludedProducts),
		pq.Array(c.ApplicableCategories),
		pq.Array(c.ExcludedCategories),
		c.FirstTimeUserOnly,
		c.Stackable,
	))
}

func (r *repository) Update(ctx context.Context, c *Coupon) (*Coupon, error) {
	query := `
	UPDATE coupons
	SET type = $2,
	    value = $3,
	    buy_quantity = $4,
	    get_quantity = $5,
	    is_active = $6,
	    valid_from = $7,
	    valid_until = $8,
	    usage_limit = $9,
	    usage_limit_per_user = $10,
	    minimum_order_amount = $11,
	    maximum_discount_amount = $12,
	    applicable_products = $13,
	    excluded_products = $14,
	    applicable_categories = $15,
	    excluded_categories = $16,
	    first_time_user_only = $17,
	    stackable = $18,
	    updated_at = NOW()
	WHERE code = $1
	RETURNING ` + couponColumns

	updated, err := scanCoupon(r.db.QueryRowContext(
		ctx,
		query,
		NormalizeCode(c.Code),
		c.Type,
		c.Value,
		c.BuyQuantity,
		c.GetQuantity,
		c.IsActive,
		c.ValidFrom,
		c.ValidUntil,
		c.UsageLimit,
		c.UsageLimitPerUser,
		c.MinimumOrderAmount,
		c.MaximumDiscountAmount,
		pq.Array(c.ApplicableProducts),
		pq.Array(c.ExcludedProducts),
		pq.Array(c.ApplicableCategories),
		pq.Array(c.ExcludedCategories),
		c.FirstTimeUserOnly,
		c.Stackable,
	))
	if err == sql.ErrNoRows {
		return nil, ErrCouponNotFound
	}
	return updated, err
}

func (r *repository) CountUserUsage(ctx context.Context, couponID string, userID uint) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM coupon_usages WHERE coupon_id = $1 AND user_id = $2`,
		couponID, userID,
	).Scan(&count)
	return count, err
}

func (r *repository) CountUserOrders(ctx context.Context, userID uint) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM orders WHERE user_id = $1 AND status NOT IN ('cancelled', 'failed')`,
		userID,
	).Scan(&count)
	return count, err
}

func (r *repository) Apply(ctx context.Context, couponID string, usage CouponUsage) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx, `
		UPDATE coupons
		SET current_usage = current_usage + 1, updated_at = NOW()
		WHERE id = $1 AND (usage_limit IS NULL OR current_usage < usage_limit)`,
		couponID,
	)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrUsageLimitReached
	}

	// Re-check the per-user cap inside the transaction so two racing
	// applies by the same user cannot both slip under it.
	var perUserLimit sql.NullInt64
	if err := tx.QueryRowContext(ctx,
		`SELECT usage_limit_per_user FROM coupons WHERE id = $1`,
		couponID,
	).Scan(&perUserLimit); err != nil {
		return err
	}
	if perUserLimit.Valid {
		var used int
		if err := tx.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM coupon_usages WHERE coupon_id = $1 AND user_id = $2`,
			couponID, usage.UserID,
		).Scan(&used); err != nil {
			return err
		}
		if used >= int(perUserLimit.Int64) {
			return ErrUserLimitReached
		}
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO coupon_usages (coupon_id, user_id, order_ref, discount_amount)
		VALUES ($1, $2, $3, $4)`,
		couponID, usage.UserID, usage.OrderRef, usage.DiscountAmount,
	)
	if err != nil {
		return err
	}

	return tx.Commit()
}

func (r *repository) Revert(ctx context.Context, couponID, orderRef string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx,
		`DELETE FROM coupon_usages WHERE coupon_id = $1 AND order_ref = $2`,
		couponID, orderRef,
	)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrUsageNotFound
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE coupons
		SET current_usage = GREATEST(current_usage - 1, 0), updated_at = NOW()
		WHERE id = $1`,
		couponID,
	)
	if err != nil {
		return err
	}

	return tx.Commit()
}
