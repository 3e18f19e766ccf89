package coupon

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

// MockRepository is a mock implementation of the Repository interface
type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) GetByCode(ctx context.Context, code string) (*Coupon, error) {
	args := m.Called(ctx, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Coupon), args.Error(1)
}

func (m *MockRepository) List(ctx context.Context) ([]*Coupon, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*Coupon), args.Error(1)
}

func (m *MockRepository) Create(ctx context.Context, c *Coupon) (*Coupon, error) {
	args := m.Called(ctx, c)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Coupon), args.Error(1)
}

func (m *MockRepository) Update(ctx context.Context, c *Coupon) (*Coupon, error) {
	args := m.Called(ctx, c)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Coupon), args.Error(1)
}

func (m *MockRepository) CountUserUsage(ctx context.Context, couponID string, userID uint) (int, error) {
	args := m.Called(ctx, couponID, userID)
	return args.Int(0), args.Error(1)
}

func (m *MockRepository) CountUserOrders(ctx context.Context, userID uint) (int, error) {
	args := m.Called(ctx, userID)
	return args.Int(0), args.Error(1)
}

func (m *MockRepository) Apply(ctx context.Context, couponID string, usage CouponUsage) error {
	args := m.Called(ctx, couponID, usage)
	return args.Error(0)
}

func (m *MockRepository) Revert(ctx context.Context, couponID, orderRef string) error {
	args := m.Called(ctx, couponID, orderRef)
	return args.Error(0)
}

func intPtr(v int) *int { return &v }

func decPtr(v string) *decimal.Decimal {
	d := decimal.RequireFromString(v)
	return &d
}

func validCoupon() *Coupon {
	return &Coupon{
		ID:         "c-1",
		Code:       "SAVE10",
		Type:       TypePercentage,
		Value:      decimal.NewFromInt(10),
		IsActive:   true,
		ValidFrom:  time.Now().Add(-time.Hour),
		ValidUntil: time.Now().Add(time.Hour),
	}
}

func TestService_Validate_RuleChain(t *testing.T) {
	ctx := context.Background()
	fifty := decimal.NewFromInt(50)

	params := func() ValidateParams {
		return ValidateParams{
			Code:       "SAVE10",
			UserID:     1,
			OrderTotal: fifty,
			Lines:      []CartLine{{ProductID: "p-1", CategoryID: "cat-1", Quantity: 1, UnitPrice: fifty}},
		}
	}

	t.Run("Not found", func(t *testing.T) {
		repo := new(MockRepository)
		repo.On("GetByCode", ctx, "SAVE10").Return(nil, nil)

		result, err := NewService(repo).Validate(ctx, params())
		assert.NoError(t, err)
		assert.False(t, result.IsValid)
		assert.Equal(t, ErrCouponNotFound.Error(), result.Error)
	})

	t.Run("Inactive", func(t *testing.T) {
		repo := new(MockRepository)
		c := validCoupon()
		c.IsActive = false
		repo.On("GetByCode", ctx, "SAVE10").Return(c, nil)

		result, _ := NewService(repo).Validate(ctx, params())
		assert.Equal(t, ErrCouponInactive.Error(), result.Error)
	})

	t.Run("Not started", func(t *testing.T) {
		repo := new(MockRepository)
		c := validCoupon()
		c.ValidFrom = time.Now().Add(time.Hour)
		repo.On("GetByCode", ctx, "SAVE10").Return(c, nil)

		result, _ := NewService(repo).Validate(ctx, params())
		assert.Equal(t, ErrCouponNotStarted.Error(), result.Error)
	})

	t.Run("Expired", func(t *testing.T) {
		repo := new(MockRepository)
		c := validCoupon()
		c.ValidUntil = time.Now().Add(-time.Minute)
		repo.On("GetByCode", ctx, "SAVE10").Return(c, nil)

		result, _ := NewService(repo).Validate(ctx, params())
		assert.Equal(t, ErrCouponExpired.Error(), result.Error)
	})

	t.Run("Global usage limit reached", func(t *testing.T) {
		repo := new(MockRepository)
		c := validCoupon()
		c.UsageLimit = intPtr(100)
		c.CurrentUsage = 100
		repo.On("GetByCode", ctx, "SAVE10").Return(c, nil)

		result, _ := NewService(repo).Validate(ctx, params())
		assert.Equal(t, ErrUsageLimitReached.Error(), result.Error)
	})

	t.Run("Per-user limit reached", func(t *testing.T) {
		repo := new(MockRepository)
		c := validCoupon()
		c.UsageLimitPerUser = intPtr(1)
		repo.On("GetByCode", ctx, "SAVE10").Return(c, nil)
		repo.On("CountUserUsage", ctx, "c-1", uint(1)).Return(1, nil)

		result, _ := NewService(repo).Validate(ctx, params())
		assert.Equal(t, ErrUserLimitReached.Error(), result.Error)
	})

	t.Run("First-time-user only", func(t *testing.T) {
		repo := new(MockRepository)
		c := validCoupon()
		c.FirstTimeUserOnly = true
		repo.On("GetByCode", ctx, "SAVE10").Return(c, nil)
		repo.On("CountUserOrders", ctx, uint(1)).Return(3, nil)

		result, _ := NewService(repo).Validate(ctx, params())
		assert.Equal(t, ErrFirstTimeUserOnly.Error(), result.Error)
	})

	t.Run("Minimum order not met", func(t *testing.T) {
		repo := new(MockRepository)
		c := validCoupon()
		c.MinimumOrderAmount = decPtr("100")
		repo.On("GetByCode", ctx, "SAVE10").Return(c, nil)

		result, _ := NewService(repo).Validate(ctx, params())
		assert.Equal(t, ErrMinimumOrderNotMet.Error(), result.Error)
	})

	t.Run("No applicable items", func(t *testing.T) {
		repo := new(MockRepository)
		c := validCoupon()
		c.ApplicableProducts = []string{"p-other"}
		repo.On("GetByCode", ctx, "SAVE10").Return(c, nil)

		result, _ := NewService(repo).Validate(ctx, params())
		assert.Equal(t, ErrNoApplicableItems.Error(), result.Error)
	})

	t.Run("Applicable by category", func(t *testing.T) {
		repo := new(MockRepository)
		c := validCoupon()
		c.ApplicableCategories = []string{"cat-1"}
		repo.On("GetByCode", ctx, "SAVE10").Return(c, nil)

		result, _ := NewService(repo).Validate(ctx, params())
		assert.True(t, result.IsValid)
	})

	t.Run("Excluded product in cart", func(t *testing.T) {
		repo := new(MockRepository)
		c := validCoupon()
		c.ExcludedProducts = []string{"p-1"}
		repo.On("GetByCode", ctx, "SAVE10").Return(c, nil)

		result, _ := NewService(repo).Validate(ctx, params())
		assert.Equal(t, ErrExcludedItems.Error(), result.Error)
	})

	t.Run("Valid percentage coupon", func(t *testing.T) {
		repo := new(MockRepository)
		repo.On("GetByCode", ctx, "SAVE10").Return(validCoupon(), nil)

		result, err := NewService(repo).Validate(ctx, params())
		assert.NoError(t, err)
		assert.True(t, result.IsValid)
		assert.Equal(t, "5", result.DiscountAmount.String())
		assert.Equal(t, "45", result.FinalAmount.String())
	})
}

func TestComputeDiscount(t *testing.T) {
	fifty := decimal.NewFromInt(50)
	ten := decimal.NewFromInt(10)

	t.Run("Percentage", func(t *testing.T) {
		c := &Coupon{Type: TypePercentage, Value: ten}
		assert.Equal(t, "5", ComputeDiscount(c, nil, fifty, decimal.Zero).String())
	})

	t.Run("Fixed", func(t *testing.T) {
		c := &Coupon{Type: TypeFixed, Value: ten}
		assert.Equal(t, "10", ComputeDiscount(c, nil, fifty, decimal.Zero).String())
	})

	t.Run("Fixed clamped to order total", func(t *testing.T) {
		c := &Coupon{Type: TypeFixed, Value: decimal.NewFromInt(80)}
		assert.Equal(t, "50", ComputeDiscount(c, nil, fifty, decimal.Zero).String())
	})

	t.Run("Free shipping", func(t *testing.T) {
		c := &Coupon{Type: TypeFreeShipping}
		assert.Equal(t, "7.5", ComputeDiscount(c, nil, fifty, decimal.RequireFromString("7.50")).String())
	})

	t.Run("Free shipping with unknown shipping cost", func(t *testing.T) {
		c := &Coupon{Type: TypeFreeShipping}
		assert.True(t, ComputeDiscount(c, nil, fifty, decimal.Zero).IsZero())
	})

	t.Run("Maximum discount cap", func(t *testing.T) {
		c := &Coupon{Type: TypePercentage, Value: decimal.NewFromInt(50), MaximumDiscountAmount: decPtr("5")}
		assert.Equal(t, "5", ComputeDiscount(c, nil, fifty, decimal.Zero).String())
	})

	t.Run("Buy two get one", func(t *testing.T) {
		c := &Coupon{Type: TypeBuyXGetY, BuyQuantity: 2, GetQuantity: 1}
		lines := []CartLine{{ProductID: "p-1", Quantity: 7, UnitPrice: ten}}
		// 7 units = 2 full bundles of 3 -> 2 free units.
		assert.Equal(t, "20", ComputeDiscount(c, lines, decimal.NewFromInt(70), decimal.Zero).String())
	})

	t.Run("Buy X get Y skips non-applicable lines", func(t *testing.T) {
		c := &Coupon{Type: TypeBuyXGetY, BuyQuantity: 1, GetQuantity: 1, ApplicableProducts: []string{"p-2"}}
		lines := []CartLine{{ProductID: "p-1", Quantity: 4, UnitPrice: ten}}
		assert.True(t, ComputeDiscount(c, lines, decimal.NewFromInt(40), decimal.Zero).IsZero())
	})
}

func TestService_Apply(t *testing.T) {
	ctx := context.Background()
	fifty := decimal.NewFromInt(50)

	params := ApplyParams{
		ValidateParams: ValidateParams{
			Code:       "save10",
			UserID:     1,
			OrderTotal: fifty,
		},
		OrderRef: "order-1",
	}

	t.Run("Success records usage with computed discount", func(t *testing.T) {
		repo := new(MockRepository)
		repo.On("GetByCode", ctx, "save10").Return(validCoupon(), nil)
		repo.On("Apply", ctx, "c-1", mock.MatchedBy(func(u CouponUsage) bool {
			return u.UserID == 1 && u.OrderRef == "order-1" && u.DiscountAmount.Equal(decimal.NewFromInt(5))
		})).Return(nil)

		result, err := NewService(repo).Apply(ctx, params)
		assert.NoError(t, err)
		assert.Equal(t, "5", result.DiscountAmount.String())
		assert.Equal(t, "45", result.FinalAmount.String())
	})

	t.Run("Re-validation failure surfaces the rule error", func(t *testing.T) {
		repo := new(MockRepository)
		c := validCoupon()
		c.IsActive = false
		repo.On("GetByCode", ctx, "save10").Return(c, nil)

		_, err := NewService(repo).Apply(ctx, params)
		assert.ErrorIs(t, err, ErrCouponInactive)
		repo.AssertNotCalled(t, "Apply", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("Lost race for the last slot", func(t *testing.T) {
		repo := new(MockRepository)
		c := validCoupon()
		c.UsageLimit = intPtr(1)
		repo.On("GetByCode", ctx, "save10").Return(c, nil)
		repo.On("Apply", ctx, "c-1", mock.Anything).Return(ErrUsageLimitReached)

		_, err := NewService(repo).Apply(ctx, params)
		assert.ErrorIs(t, err, ErrUsageLimitReached)
	})
}

func TestService_Revert(t *testing.T) {
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		repo := new(MockRepository)
		repo.On("GetByCode", ctx, "SAVE10").Return(validCoupon(), nil)
		repo.On("Revert", ctx, "c-1", "order-1").Return(nil)

		assert.NoError(t, NewService(repo).Revert(ctx, "SAVE10", "order-1"))
	})

	t.Run("Reverting twice is safe", func(t *testing.T) {
		repo := new(MockRepository)
		repo.On("GetByCode", ctx, "SAVE10").Return(validCoupon(), nil)
		repo.On("Revert", ctx, "c-1", "order-1").Return(ErrUsageNotFound)

		assert.NoError(t, NewService(repo).Revert(ctx, "SAVE10", "order-1"))
	})
}

func TestCheckDefinition(t *testing.T) {
	base := func() *Coupon {
		c := validCoupon()
		return c
	}

	t.Run("Valid", func(t *testing.T) {
		assert.NoError(t, checkDefinition(base()))
	})

	t.Run("Percentage above 100", func(t *testing.T) {
		c := base()
		c.Value = decimal.NewFromInt(150)
		assert.ErrorIs(t, checkDefinition(c), ErrInvalidCoupon)
	})

	t.Run("Empty code", func(t *testing.T) {
		c := base()
		c.Code = "   "
		assert.ErrorIs(t, checkDefinition(c), ErrInvalidCoupon)
	})

	t.Run("Window inverted", func(t *testing.T) {
		c := base()
		c.ValidUntil = c.ValidFrom.Add(-time.Hour)
		assert.ErrorIs(t, checkDefinition(c), ErrInvalidCoupon)
	})

	t.Run("Buy X get Y without quantities", func(t *testing.T) {
		c := base()
		c.Type = TypeBuyXGetY
		assert.ErrorIs(t, checkDefinition(c), ErrInvalidCoupon)
	})
}
