package coupon

import (
	"context"
	"time"

	"lokapasar-be/internal/logger"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

var oneHundred = decimal.NewFromInt(100)

type ValidateParams struct {
	Code         string
	UserID       uint
	Lines        []CartLine
	OrderTotal   decimal.Decimal
	ShippingCost decimal.Decimal
}

type ApplyParams struct {
	ValidateParams
	OrderRef string
}

type Service interface {
	// Validate runs the full rule chain and computes the discount without
	// consuming a usage slot.
	Validate(ctx context.Context, params ValidateParams) (*ValidationResult, error)

	// Apply re-validates (a prior Validate is never trusted across a time
	// gap) and then consumes a usage slot atomically.
	Apply(ctx context.Context, params ApplyParams) (*ApplyResult, error)

	// Revert compensates a consumed usage slot when the order it was tied
	// to failed to materialize.
	Revert(ctx context.Context, code, orderRef string) error

	GetCoupon(ctx context.Context, code string) (*Coupon, error)
	ListCoupons(ctx context.Context) ([]*Coupon, error)
	CreateCoupon(ctx context.Context, c *Coupon) (*Coupon, error)
	UpdateCoupon(ctx context.Context, c *Coupon) (*Coupon, error)
}

type service struct {
	repo Repository
}

func NewService(repo Repository) Service {
	return &service{repo: repo}
}

// validate runs the rule chain in its fixed order and short-circuits on the
// first failure. Each failure maps to its own sentinel error.
func (s *service) validate(ctx context.Context, params ValidateParams) (*Coupon, error) {
	c, err := s.repo.GetByCode(ctx, params.Code)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, ErrCouponNotFound
	}

	now := time.Now()
	switch {
	case !c.IsActive:
		return nil, ErrCouponInactive
	case now.Before(c.ValidFrom):
		return nil, ErrCouponNotStarted
	case now.After(c.ValidUntil):
		return nil, ErrCouponExpired
	}

	if c.UsageLimit != nil && c.CurrentUsage >= *c.UsageLimit {
		return nil, ErrUsageLimitReached
	}

	if c.UsageLimitPerUser != nil {
		used, err := s.repo.CountUserUsage(ctx, c.ID, params.UserID)
		if err != nil {
			return nil, err
		}
		if used >= *c.UsageLimitPerUser {
			return nil, ErrUserLimitReached
		}
	}

	if c.FirstTimeUserOnly {
		orders, err := s.repo.CountUserOrders(ctx, params.UserID)
		if err != nil {
			return nil, err
		}
		if orders > 0 {
			return nil, ErrFirstTimeUserOnly
		}
	}

	if c.MinimumOrderAmount != nil && params.OrderTotal.LessThan(*c.MinimumOrderAmount) {
		return nil, ErrMinimumOrderNotMet
	}

	if hasAllowList(c) && countApplicable(c, params.Lines) == 0 {
		return nil, ErrNoApplicableItems
	}

	for _, line := range params.Lines {
		if isExcluded(c, line) {
			return nil, ErrExcludedItems
		}
	}

	return c, nil
}

func (s *service) Validate(ctx context.Context, params ValidateParams) (*ValidationResult, error) {
	c, err := s.validate(ctx, params)
	if err != nil {
		if IsValidationError(err) {
			return &ValidationResult{
				IsValid:     false,
				Error:       err.Error(),
				FinalAmount: params.OrderTotal,
			}, nil
		}
		return nil, err
	}

	discount := ComputeDiscount(c, params.Lines, params.OrderTotal, params.ShippingCost)
	return &ValidationResult{
		IsValid:        true,
		DiscountAmount: discount,
		FinalAmount:    params.OrderTotal.Sub(discount),
		Coupon:         c,
	}, nil
}

func (s *service) Apply(ctx context.Context, params ApplyParams) (*ApplyResult, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "service"),
		zap.String("method", "Apply"),
		zap.String("code", NormalizeCode(params.Code)),
		zap.Uint("user_id", params.UserID),
		zap.String("order_ref", params.OrderRef),
	)

	c, err := s.validate(ctx, params.ValidateParams)
	if err != nil {
		return nil, err
	}

	discount := ComputeDiscount(c, params.Lines, params.OrderTotal, params.ShippingCost)

	err = s.repo.Apply(ctx, c.ID, CouponUsage{
		CouponID:       c.ID,
		UserID:         params.UserID,
		OrderRef:       params.OrderRef,
		DiscountAmount: discount,
	})
	if err != nil {
		log.Warn("apply failed", zap.Error(err))
		return nil, err
	}

	log.Info("coupon applied", zap.String("discount", discount.String()))

	return &ApplyResult{
		DiscountAmount: discount,
		FinalAmount:    params.OrderTotal.Sub(discount),
		Coupon:         c,
	}, nil
}

func (s *service) Revert(ctx context.Context, code, orderRef string) error {
	c, err := s.repo.GetByCode(ctx, code)
	if err != nil {
		return err
	}
	if c == nil {
		return ErrCouponNotFound
	}

	err = s.repo.Revert(ctx, c.ID, orderRef)
	if err == ErrUsageNotFound {
		// Nothing was recorded for this order; reverting twice is safe.
		return nil
	}
	return err
}

func (s *service) GetCoupon(ctx context.Context, code string) (*Coupon, error) {
	c, err := s.repo.GetByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, ErrCouponNotFound
	}
	return c, nil
}

func (s *service) ListCoupons(ctx context.Context) ([]*Coupon, error) {
	return s.repo.List(ctx)
}

func (s *service) CreateCoupon(ctx context.Context, c *Coupon) (*Coupon, error) {
	if err := checkDefinition(c); err != nil {
		return nil, err
	}
	return s.repo.Create(ctx, c)
}

func (s *service) UpdateCoupon(ctx context.Context, c *Coupon) (*Coupon, error) {
	if err := checkDefinition(c); err != nil {
		return nil, err
	}
	return s.repo.Update(ctx, c)
}

func checkDefinition(c *Coupon) error {
	if NormalizeCode(c.Code) == "" {
		return ErrInvalidCoupon
	}
	switch c.Type {
	case TypePercentage:
		if c.Value.LessThanOrEqual(decimal.Zero) || c.Value.GreaterThan(oneHundred) {
			return ErrInvalidCoupon
		}
	case TypeFixed:
		if c.Value.LessThanOrEqual(decimal.Zero) {
			return ErrInvalidCoupon
		}
	case TypeFreeShipping:
	case TypeBuyXGetY:
		if c.BuyQuantity <= 0 || c.GetQuantity <= 0 {
			return ErrInvalidCoupon
		}
	default:
		return ErrInvalidCoupon
	}
	if !c.ValidUntil.After(c.ValidFrom) {
		return ErrInvalidCoupon
	}
	return nil
}

// ComputeDiscount evaluates the coupon against the cart and clamps the
// result so it can never exceed the cap or push the order negative.
func ComputeDiscount(c *Coupon, lines []CartLine, orderTotal, shippingCost decimal.Decimal) decimal.Decimal {
	var discount decimal.Decimal

	switch c.Type {
	case TypePercentage:
		discount = orderTotal.Mul(c.Value).Div(oneHundred)
	case TypeFixed:
		discount = c.Value
	case TypeFreeShipping:
		discount = shippingCost
	case TypeBuyXGetY:
		bundle := c.BuyQuantity + c.GetQuantity
		if bundle <= 0 {
			break
		}
		for _, line := range lines {
			if !isApplicable(c, line) {
				continue
			}
			freeUnits := (line.Quantity / bundle) * c.GetQuantity
			if freeUnits > 0 {
				discount = discount.Add(line.UnitPrice.Mul(decimal.NewFromInt(int64(freeUnits))))
			}
		}
	}

	if c.MaximumDiscountAmount != nil && discount.GreaterThan(*c.MaximumDiscountAmount) {
		discount = *c.MaximumDiscountAmount
	}
	if discount.GreaterThan(orderTotal) {
		discount = orderTotal
	}
	if discount.IsNegative() {
		discount = decimal.Zero
	}

	return discount.Round(2)
}

func hasAllowList(c *Coupon) bool {
	return len(c.ApplicableProducts) > 0 || len(c.ApplicableCategories) > 0
}

func countApplicable(c *Coupon, lines []CartLine) int {
	n := 0
	for _, line := range lines {
		if isApplicable(c, line) {
			n++
		}
	}
	return n
}

// isApplicable reports whether the allow-list admits the line by product id
// or by its resolved category. A coupon without an allow-list admits every
// non-excluded line.
func isApplicable(c *Coupon, line CartLine) bool {
	if isExcluded(c, line) {
		return false
	}
	if !hasAllowList(c) {
		return true
	}
	return contains(c.ApplicableProducts, line.ProductID) ||
		contains(c.ApplicableCategories, line.CategoryID)
}

func isExcluded(c *Coupon, line CartLine) bool {
	return contains(c.ExcludedProducts, line.ProductID) ||
		contains(c.ExcludedCategories, line.CategoryID)
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}
