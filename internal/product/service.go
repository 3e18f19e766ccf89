package product

import (
	"context"

	"github.com/shopspring/decimal"
)

// Service is the catalog lookup used by the cart, coupon and checkout flows
// for (re)pricing and category resolution.
type Service interface {
	GetProduct(ctx context.Context, productID string) (*Product, error)
	GetActiveProduct(ctx context.Context, productID string) (*Product, error)
	ListProducts(ctx context.Context) ([]*Product, error)
	CreateProduct(ctx context.Context, params CreateProductParams) (*Product, error)
	UpdateProduct(ctx context.Context, productID string, params UpdateProductParams) (*Product, error)
}

type service struct {
	repo Repository
}

func NewService(repo Repository) Service {
	return &service{repo: repo}
}

func (s *service) GetProduct(ctx context.Context, productID string) (*Product, error) {
	p, err := s.repo.GetByID(ctx, productID, false)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, ErrProductNotFound
	}
	return p, nil
}

func (s *service) GetActiveProduct(ctx context.Context, productID string) (*Product, error) {
	p, err := s.repo.GetByID(ctx, productID, true)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, ErrProductNotFound
	}
	return p, nil
}

func (s *service) ListProducts(ctx context.Context) ([]*Product, error) {
	return s.repo.GetAll(ctx)
}

func (s *service) CreateProduct(ctx context.Context, params CreateProductParams) (*Product, error) {
	if params.Price.LessThanOrEqual(decimal.Zero) {
		return nil, ErrInvalidPrice
	}
	return s.repo.Create(ctx, params)
}

func (s *service) UpdateProduct(ctx context.Context, productID string, params UpdateProductParams) (*Product, error) {
	if params.Price != nil && params.Price.LessThanOrEqual(decimal.Zero) {
		return nil, ErrInvalidPrice
	}
	return s.repo.Update(ctx, productID, params)
}
