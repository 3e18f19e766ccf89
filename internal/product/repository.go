package product

import (
	"context"
	"database/sql"
)

type Repository interface {
	GetByID(ctx context.Context, productID string, onlyActive bool) (*Product, error)
	GetAll(ctx context.Context) ([]*Product, error)
	Create(ctx context.Context, params CreateProductParams) (*Product, error)
	Update(ctx context.Context, productID string, params UpdateProductParams) (*Product, error)
}

type repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) Repository {
	return &repository{db: db}
}

const productColumns = `
	id,
	name,
	category_id,
	price,
	status,
	imageurl,
	description,
	created_at,
	updated_at
`

func scanProduct(row interface{ Scan(dest ...any) error }) (*Product, error) {
	var p Product
	err := row.Scan(
		&p.ID,
		&p.Name,
		&p.CategoryID,
		&p.Price,
		&p.Status,
		&p.ImageURL,
		&p.Description,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *repository) GetByID(ctx context.Context, productID string, onlyActive bool) (*Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE id = $1`
	if onlyActive {
		query += ` AND status = 'active'`
	}

	p, err := scanProduct(r.db.QueryRowContext(ctx, query, productID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return p, nil
}

func (r *repository) GetAll(ctx context.Context) ([]*Product, error) {
	query := `SELECT ` + productColumns + ` FROM products ORDER BY created_at DESC`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var products []*Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, p)
	}

	return products, rows.Err()
}

func (r *repository) Create(ctx context.Context, params CreateProductParams) (*Product, error) {
	query := `
	INSERT INTO products (
		name, category_id, price, status, imageurl, description
	)
	VALUES ($1, $2, $3, 'active', $4, $5)
	RETURNING ` + productColumns

	return scanProduct(r.db.QueryRowContext(
		ctx,
		query,
		params.Name,
		params.CategoryID,
		params.Price,
		params.ImageURL,
		params.Description,
	))
}

func (r *repository) Update(ctx context.Context, productID string, params UpdateProductParams) (*Product, error) {
	query := `
	UPDATE products
	SET name          = COALESCE($2, name),
	    category_id   = COALESCE($3, category_id),
	    price         = COALESCE($4, price),
	    status        = COALESCE($5, status),
	    description   = COALESCE($6, description),
	    updated_at    = NOW()
	WHERE id = $1
	RETURNING ` + productColumns

	p, err := scanProduct(r.db.QueryRowContext(
		ctx,
		query,
		productID,
		params.Name,
		params.CategoryID,
		params.Price,
		params.Status,
		params.Description,
	))
	if err == sql.ErrNoRows {
		return nil, ErrProductNotFound
	}
	return p, err
}
