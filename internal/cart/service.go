package cart

import (
	"context"

	"lokapasar-be/internal/logger"
	"lokapasar-be/internal/product"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Service defines the business logic for carts.
type Service interface {
	GetCart(ctx context.Context, userID uint) (*Cart, error)
	AddItem(ctx context.Context, params AddItemParams) (*CartItem, error)
	UpdateQuantity(ctx context.Context, params UpdateQuantityParams) error
	RemoveItem(ctx context.Context, userID uint, productID string, size *string) error
	Clear(ctx context.Context, userID uint) error
	MergeGuestCart(ctx context.Context, userID uint, sessionID string) (*Cart, error)
}

type service struct {
	repo     Repository
	products product.Service
	guests   GuestStore
}

func NewService(repo Repository, products product.Service, guests GuestStore) Service {
	return &service{repo: repo, products: products, guests: guests}
}

func (s *service) GetCart(ctx context.Context, userID uint) (*Cart, error) {
	if userID == 0 {
		return nil, ErrInvalidUserID
	}

	items, err := s.repo.GetItems(ctx, userID)
	if err != nil {
		return nil, err
	}

	cart := &Cart{UserID: userID, Items: items, Subtotal: decimal.Zero}
	for _, item := range items {
		cart.Subtotal = cart.Subtotal.Add(item.UnitPrice.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}
	return cart, nil
}

// AddItem merges with an existing (product, size) line by summing the
// quantity and refreshing the price snapshot to the current catalog price.
func (s *service) AddItem(ctx context.Context, params AddItemParams) (*CartItem, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "service"),
		zap.String("method", "AddItem"),
		zap.Uint("user_id", params.UserID),
		zap.String("product_id", params.ProductID),
	)

	if params.UserID == 0 {
		return nil, ErrInvalidUserID
	}
	if params.Quantity <= 0 {
		return nil, ErrInvalidQuantity
	}

	p, err := s.products.GetActiveProduct(ctx, params.ProductID)
	if err != nil {
		if err == product.ErrProductNotFound {
			return nil, ErrProductNotFound
		}
		return nil, err
	}

	existing, err := s.repo.GetItem(ctx, params.UserID, params.ProductID, params.Size)
	if err != nil {
		return nil, err
	}

	if existing == nil {
		return s.repo.CreateItem(ctx, createItemParams{
			UserID:    params.UserID,
			ProductID: params.ProductID,
			Size:      params.Size,
			Quantity:  params.Quantity,
			UnitPrice: p.Price,
		})
	}

	item, err := s.repo.UpdateItem(ctx, existing.ID, existing.Quantity+params.Quantity, p.Price)
	if err != nil {
		log.Error("failed to merge cart line", zap.Error(err))
		return nil, err
	}
	return item, nil
}

// UpdateQuantity replaces the line's quantity; zero or negative removes it.
func (s *service) UpdateQuantity(ctx context.Context, params UpdateQuantityParams) error {
	if params.UserID == 0 {
		return ErrInvalidUserID
	}

	if params.Quantity <= 0 {
		return s.repo.RemoveItem(ctx, params.UserID, params.ProductID, params.Size)
	}

	existing, err := s.repo.GetItem(ctx, params.UserID, params.ProductID, params.Size)
	if err != nil {
		return err
	}
	if existing == nil {
		return ErrCartItemNotFound
	}

	_, err = s.repo.UpdateItem(ctx, existing.ID, params.Quantity, existing.UnitPrice)
	return err
}

func (s *service) RemoveItem(ctx context.Context, userID uint, productID string, size *string) error {
	return s.UpdateQuantity(ctx, UpdateQuantityParams{
		UserID:    userID,
		ProductID: productID,
		Size:      size,
		Quantity:  0,
	})
}

func (s *service) Clear(ctx context.Context, userID uint) error {
	if userID == 0 {
		return ErrInvalidUserID
	}
	return s.repo.Clear(ctx, userID)
}

// MergeGuestCart re-prices every guest line against the current catalog and
// unions it into the stored cart; quantities sum for matching
// (product, size) pairs. Guest-held prices are never trusted.
func (s *service) MergeGuestCart(ctx context.Context, userID uint, sessionID string) (*Cart, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "service"),
		zap.String("method", "MergeGuestCart"),
		zap.Uint("user_id", userID),
	)

	if userID == 0 {
		return nil, ErrInvalidUserID
	}

	guestItems, err := s.guests.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	for _, gi := range guestItems {
		if gi.Quantity <= 0 {
			continue
		}
		_, err := s.AddItem(ctx, AddItemParams{
			UserID:    userID,
			ProductID: gi.ProductID,
			Size:      gi.Size,
			Quantity:  gi.Quantity,
		})
		if err == ErrProductNotFound {
			// A product that vanished since the guest added it is
			// dropped from the merge, not a fatal error.
			log.Warn("guest line skipped", zap.String("product_id", gi.ProductID))
			continue
		}
		if err != nil {
			return nil, err
		}
	}

	if err := s.guests.Delete(ctx, sessionID); err != nil {
		log.Warn("failed to delete guest cart", zap.Error(err))
	}

	return s.GetCart(ctx, userID)
}
