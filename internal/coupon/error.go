package coupon

import "errors"

// Validation failures are distinct and user-facing: the cart screen shows
// the exact rule that blocked the coupon.
var (
	ErrCouponNotFound     = errors.New("coupon not found")
	ErrCouponInactive     = errors.New("coupon is not active")
	ErrCouponNotStarted   = errors.New("coupon is not valid yet")
	ErrCouponExpired      = errors.New("coupon has expired")
	ErrUsageLimitReached  = errors.New("coupon usage limit reached")
	ErrUserLimitReached   = errors.New("coupon usage limit for this user reached")
	ErrFirstTimeUserOnly  = errors.New("coupon is only valid for first-time customers")
	ErrMinimumOrderNotMet = errors.New("order amount below coupon minimum")
	ErrNoApplicableItems  = errors.New("no items in the cart are eligible for this coupon")
	ErrExcludedItems      = errors.New("cart contains items excluded from this coupon")

	ErrInvalidCoupon = errors.New("invalid coupon definition")
	ErrUsageNotFound = errors.New("coupon usage not found")
)

var validationErrors = []error{
	ErrCouponNotFound,
	ErrCouponInactive,
	ErrCouponNotStarted,
	ErrCouponExpired,
	ErrUsageLimitReached,
	ErrUserLimitReached,
	ErrFirstTimeUserOnly,
	ErrMinimumOrderNotMet,
	ErrNoApplicableItems,
	ErrExcludedItems,
}

// IsValidationError reports whether err is one of the user-facing coupon
// rule failures, as opposed to an infrastructure error.
func IsValidationError(err error) bool {
	for _, e := range validationErrors {
		if errors.Is(err, e) {
			return true
		}
	}
	return false
}
