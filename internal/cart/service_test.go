package cart

import (
	"context"
	"errors"
	"testing"

	"lokapasar-be/internal/product"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

// MockRepository is a mock implementation of the Repository interface
type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) GetItems(ctx context.Context, userID uint) ([]*CartItem, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*CartItem), args.Error(1)
}

func (m *MockRepository) GetItem(ctx context.Context, userID uint, productID string, size *string) (*CartItem, error) {
	args := m.Called(ctx, userID, productID, size)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*CartItem), args.Error(1)
}

func (m *MockRepository) CreateItem(ctx context.Context, params createItemParams) (*CartItem, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*CartItem), args.Error(1)
}

func (m *MockRepository) UpdateItem(ctx context.Context, itemID string, quantity int, unitPrice decimal.Decimal) (*CartItem, error) {
	args := m.Called(ctx, itemID, quantity, unitPrice)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*CartItem), args.Error(1)
}

func (m *MockRepository) RemoveItem(ctx context.Context, userID uint, productID string, size *string) error {
	args := m.Called(ctx, userID, productID, size)
	return args.Error(0)
}

func (m *MockRepository) Clear(ctx context.Context, userID uint) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}

// MockProductService is a mock of the catalog lookup.
type MockProductService struct {
	mock.Mock
}

func (m *MockProductService) GetProduct(ctx context.Context, productID string) (*product.Product, error) {
	args := m.Called(ctx, productID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*product.Product), args.Error(1)
}

func (m *MockProductService) GetActiveProduct(ctx context.Context, productID string) (*product.Product, error) {
	args := m.Called(ctx, productID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*product.Product), args.Error(1)
}

func (m *MockProductService) ListProducts(ctx context.Context) ([]*product.Product, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*product.Product), args.Error(1)
}

func (m *MockProductService) CreateProduct(ctx context.Context, params product.CreateProductParams) (*product.Product, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*product.Product), args.Error(1)
}

func (m *MockProductService) UpdateProduct(ctx context.Context, productID string, params product.UpdateProductParams) (*product.Product, error) {
	args := m.Called(ctx, productID, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*product.Product), args.Error(1)
}

// MockGuestStore is a mock of the redis-backed guest cart store.
type MockGuestStore struct {
	mock.Mock
}

func (m *MockGuestStore) Get(ctx context.Context, sessionID string) ([]GuestItem, error) {
	args := m.Called(ctx, sessionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]GuestItem), args.Error(1)
}

func (m *MockGuestStore) Save(ctx context.Context, sessionID string, items []GuestItem) error {
	args := m.Called(ctx, sessionID, items)
	return args.Error(0)
}

func (m *MockGuestStore) Delete(ctx context.Context, sessionID string) error {
	args := m.Called(ctx, sessionID)
	return args.Error(0)
}

func activeProduct(price string) *product.Product {
	return &product.Product{
		ID:         "p-1",
		Name:       "Kopi Gayo",
		CategoryID: "cat-1",
		Price:      decimal.RequireFromString(price),
		Status:     product.StatusActive,
	}
}

func TestService_AddItem(t *testing.T) {
	ctx := context.Background()

	t.Run("New line uses the catalog price", func(t *testing.T) {
		repo := new(MockRepository)
		products := new(MockProductService)
		svc := NewService(repo, products, nil)

		products.On("GetActiveProduct", ctx, "p-1").Return(activeProduct("12.50"), nil)
		repo.On("GetItem", ctx, uint(1), "p-1", (*string)(nil)).Return(nil, nil)
		repo.On("CreateItem", ctx, mock.MatchedBy(func(p createItemParams) bool {
			return p.Quantity == 2 && p.UnitPrice.Equal(decimal.RequireFromString("12.50"))
		})).Return(&CartItem{ID: "item-1", Quantity: 2}, nil)

		item, err := svc.AddItem(ctx, AddItemParams{UserID: 1, ProductID: "p-1", Quantity: 2})
		assert.NoError(t, err)
		assert.Equal(t, "item-1", item.ID)
	})

	t.Run("Existing line merges quantity and refreshes price", func(t *testing.T) {
		repo := new(MockRepository)
		products := new(MockProductService)
		svc := NewService(repo, products, nil)

		products.On("GetActiveProduct", ctx, "p-1").Return(activeProduct("15.00"), nil)
		repo.On("GetItem", ctx, uint(1), "p-1", (*string)(nil)).Return(&CartItem{
			ID: "item-1", Quantity: 1, UnitPrice: decimal.RequireFromString("10.00"),
		}, nil)
		repo.On("UpdateItem", ctx, "item-1", 3, decimal.RequireFromString("15.00")).
			Return(&CartItem{ID: "item-1", Quantity: 3}, nil)

		item, err := svc.AddItem(ctx, AddItemParams{UserID: 1, ProductID: "p-1", Quantity: 2})
		assert.NoError(t, err)
		assert.Equal(t, 3, item.Quantity)
	})

	t.Run("Unknown product", func(t *testing.T) {
		repo := new(MockRepository)
		products := new(MockProductService)
		svc := NewService(repo, products, nil)

		products.On("GetActiveProduct", ctx, "p-x").Return(nil, product.ErrProductNotFound)

		_, err := svc.AddItem(ctx, AddItemParams{UserID: 1, ProductID: "p-x", Quantity: 1})
		assert.ErrorIs(t, err, ErrProductNotFound)
	})

	t.Run("Invalid quantity", func(t *testing.T) {
		svc := NewService(new(MockRepository), new(MockProductService), nil)
		_, err := svc.AddItem(ctx, AddItemParams{UserID: 1, ProductID: "p-1", Quantity: 0})
		assert.ErrorIs(t, err, ErrInvalidQuantity)
	})
}

func TestService_UpdateQuantity(t *testing.T) {
	ctx := context.Background()

	t.Run("Zero removes the line", func(t *testing.T) {
		repo := new(MockRepository)
		svc := NewService(repo, new(MockProductService), nil)

		repo.On("RemoveItem", ctx, uint(1), "p-1", (*string)(nil)).Return(nil)

		err := svc.UpdateQuantity(ctx, UpdateQuantityParams{UserID: 1, ProductID: "p-1", Quantity: 0})
		assert.NoError(t, err)
		repo.AssertCalled(t, "RemoveItem", ctx, uint(1), "p-1", (*string)(nil))
	})

	t.Run("Positive replaces the quantity", func(t *testing.T) {
		repo := new(MockRepository)
		svc := NewService(repo, new(MockProductService), nil)

		price := decimal.RequireFromString("10.00")
		repo.On("GetItem", ctx, uint(1), "p-1", (*string)(nil)).
			Return(&CartItem{ID: "item-1", Quantity: 2, UnitPrice: price}, nil)
		repo.On("UpdateItem", ctx, "item-1", 5, price).
			Return(&CartItem{ID: "item-1", Quantity: 5}, nil)

		err := svc.UpdateQuantity(ctx, UpdateQuantityParams{UserID: 1, ProductID: "p-1", Quantity: 5})
		assert.NoError(t, err)
	})

	t.Run("Missing line", func(t *testing.T) {
		repo := new(MockRepository)
		svc := NewService(repo, new(MockProductService), nil)

		repo.On("GetItem", ctx, uint(1), "p-1", (*string)(nil)).Return(nil, nil)

		err := svc.UpdateQuantity(ctx, UpdateQuantityParams{UserID: 1, ProductID: "p-1", Quantity: 5})
		assert.ErrorIs(t, err, ErrCartItemNotFound)
	})
}

func TestService_GetCart(t *testing.T) {
	ctx := context.Background()

	t.Run("Subtotal derived from lines", func(t *testing.T) {
		repo := new(MockRepository)
		svc := NewService(repo, new(MockProductService), nil)

		repo.On("GetItems", ctx, uint(1)).Return([]*CartItem{
			{ProductID: "p-1", Quantity: 2, UnitPrice: decimal.RequireFromString("10.00")},
			{ProductID: "p-2", Quantity: 1, UnitPrice: decimal.RequireFromString("5.50")},
		}, nil)

		cart, err := svc.GetCart(ctx, 1)
		assert.NoError(t, err)
		assert.Equal(t, "25.50", cart.Subtotal.StringFixed(2))
	})

	t.Run("Empty cart", func(t *testing.T) {
		repo := new(MockRepository)
		svc := NewService(repo, new(MockProductService), nil)

		repo.On("GetItems", ctx, uint(1)).Return(nil, nil)

		cart, err := svc.GetCart(ctx, 1)
		assert.NoError(t, err)
		assert.Empty(t, cart.Items)
		assert.True(t, cart.Subtotal.IsZero())
	})
}

func TestService_MergeGuestCart(t *testing.T) {
	ctx := context.Background()

	t.Run("Sums quantities and re-prices from the catalog", func(t *testing.T) {
		repo := new(MockRepository)
		products := new(MockProductService)
		guests := new(MockGuestStore)
		svc := NewService(repo, products, guests)

		guests.On("Get", ctx, "sess-1").Return([]GuestItem{
			{ProductID: "p-1", Quantity: 2},
		}, nil)

		// Catalog now prices P1 at 11.00 — neither snapshot wins.
		products.On("GetActiveProduct", ctx, "p-1").Return(activeProduct("11.00"), nil)
		repo.On("GetItem", ctx, uint(1), "p-1", (*string)(nil)).Return(&CartItem{
			ID: "item-1", Quantity: 1, UnitPrice: decimal.RequireFromString("10.00"),
		}, nil)
		repo.On("UpdateItem", ctx, "item-1", 3, decimal.RequireFromString("11.00")).
			Return(&CartItem{ID: "item-1", Quantity: 3}, nil)
		guests.On("Delete", ctx, "sess-1").Return(nil)
		repo.On("GetItems", ctx, uint(1)).Return([]*CartItem{
			{ProductID: "p-1", Quantity: 3, UnitPrice: decimal.RequireFromString("11.00")},
		}, nil)

		cart, err := svc.MergeGuestCart(ctx, 1, "sess-1")
		assert.NoError(t, err)
		assert.Len(t, cart.Items, 1)
		assert.Equal(t, 3, cart.Items[0].Quantity)
		assert.Equal(t, "33.00", cart.Subtotal.StringFixed(2))
	})

	t.Run("Vanished product is skipped", func(t *testing.T) {
		repo := new(MockRepository)
		products := new(MockProductService)
		guests := new(MockGuestStore)
		svc := NewService(repo, products, guests)

		guests.On("Get", ctx, "sess-1").Return([]GuestItem{
			{ProductID: "p-gone", Quantity: 1},
		}, nil)
		products.On("GetActiveProduct", ctx, "p-gone").Return(nil, product.ErrProductNotFound)
		guests.On("Delete", ctx, "sess-1").Return(nil)
		repo.On("GetItems", ctx, uint(1)).Return(nil, nil)

		cart, err := svc.MergeGuestCart(ctx, 1, "sess-1")
		assert.NoError(t, err)
		assert.Empty(t, cart.Items)
	})

	t.Run("Guest store error", func(t *testing.T) {
		guests := new(MockGuestStore)
		svc := NewService(new(MockRepository), new(MockProductService), guests)

		guests.On("Get", ctx, "sess-1").Return(nil, errors.New("redis down"))

		_, err := svc.MergeGuestCart(ctx, 1, "sess-1")
		assert.Error(t, err)
	})
}
