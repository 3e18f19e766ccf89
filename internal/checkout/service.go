package checkout

import (
	"context"
	"time"

	"lokapasar-be/internal/cart"
	"lokapasar-be/internal/coupon"
	"lokapasar-be/internal/inventory"
	"lokapasar-be/internal/logger"
	"lokapasar-be/internal/order"
	"lokapasar-be/internal/product"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// ShippingCalculator and TaxCalculator are pluggable business rules. The
// orchestrator only cares about their outputs.
type ShippingCalculator func(addr order.ShippingAddress, c *cart.Cart) decimal.Decimal

type TaxCalculator func(addr order.ShippingAddress, subtotal decimal.Decimal) decimal.Decimal

type CheckoutParams struct {
	UserID          uint
	ShippingAddress order.ShippingAddress
	CouponCode      string
}

type Service interface {
	Checkout(ctx context.Context, params CheckoutParams) (*order.Order, error)
}

type service struct {
	carts    cart.Service
	products product.Service
	inv      inventory.Service
	coupons  coupon.Service
	orders   order.Service

	shipping   ShippingCalculator
	tax        TaxCalculator
	ttl        time.Duration
	locationID string
}

func NewService(
	carts cart.Service,
	products product.Service,
	inv inventory.Service,
	coupons coupon.Service,
	orders order.Service,
	shipping ShippingCalculator,
	tax TaxCalculator,
	ttl time.Duration,
	locationID string,
) Service {
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	return &service{
		carts:      carts,
		products:   products,
		inv:        inv,
		coupons:    coupons,
		orders:     orders,
		shipping:   shipping,
		tax:        tax,
		ttl:        ttl,
		locationID: locationID,
	}
}

// Checkout turns the user's cart into a pending order.
//
// Reservation, coupon application and order creation form a saga: the steps
// run sequentially, and any failure after a prior step's side effect
// triggers the compensating calls (release reservations in reverse order,
// revert the coupon usage) before the original error surfaces. The order id
// is generated up front so the reservations can name their owner before the
// order row exists.
func (s *service) Checkout(ctx context.Context, params CheckoutParams) (*order.Order, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "service"),
		zap.String("method", "Checkout"),
		zap.Uint("user_id", params.UserID),
	)

	// 1. Load cart.
	c, err := s.carts.GetCart(ctx, params.UserID)
	if err != nil {
		return nil, err
	}
	if len(c.Items) == 0 {
		return nil, ErrEmptyCart
	}

	// 2. Availability check across every line before touching anything.
	availItems := make([]inventory.AvailabilityItem, 0, len(c.Items))
	for _, item := range c.Items {
		availItems = append(availItems, inventory.AvailabilityItem{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
		})
	}
	avail, err := s.inv.CheckAvailability(ctx, s.locationID, availItems)
	if err != nil {
		return nil, err
	}
	if !avail.Valid {
		return nil, &StockValidationError{Issues: avail.Issues}
	}

	// Snapshot names and categories for the order items and coupon lines.
	catalog := make(map[string]*product.Product, len(c.Items))
	for _, item := range c.Items {
		if _, ok := catalog[item.ProductID]; ok {
			continue
		}
		p, err := s.products.GetProduct(ctx, item.ProductID)
		if err != nil {
			return nil, err
		}
		catalog[item.ProductID] = p
	}

	orderID := uuid.New().String()
	log = log.With(zap.String("order_id", orderID))

	// 3. Reserve sequentially so the undo set is well-defined.
	var reserved []*inventory.StockReservation
	for _, item := range c.Items {
		res, err := s.inv.ReserveStock(ctx, inventory.ReserveStockParams{
			ProductID:  item.ProductID,
			LocationID: s.locationID,
			Quantity:   item.Quantity,
			OwnerRef:   orderID,
			TTL:        s.ttl,
		})
		if err != nil {
			log.Warn("reservation failed, releasing prior holds",
				zap.String("product_id", item.ProductID),
				zap.Error(err),
			)
			s.releaseAll(ctx, reserved)
			return nil, err
		}
		reserved = append(reserved, res)
	}

	subtotal := c.Subtotal
	shippingCost := decimal.Zero
	if s.shipping != nil {
		shippingCost = s.shipping(params.ShippingAddress, c)
	}
	tax := decimal.Zero
	if s.tax != nil {
		tax = s.tax(params.ShippingAddress, subtotal)
	}

	// 4. At most one coupon per order.
	var discounts []order.Discount
	discountTotal := decimal.Zero
	couponApplied := false
	if params.CouponCode != "" {
		lines := make([]coupon.CartLine, 0, len(c.Items))
		for _, item := range c.Items {
			lines = append(lines, coupon.CartLine{
				ProductID:  item.ProductID,
				CategoryID: catalog[item.ProductID].CategoryID,
				Quantity:   item.Quantity,
				UnitPrice:  item.UnitPrice,
			})
		}

		applied, err := s.coupons.Apply(ctx, coupon.ApplyParams{
			ValidateParams: coupon.ValidateParams{
				Code:         params.CouponCode,
				UserID:       params.UserID,
				Lines:        lines,
				OrderTotal:   subtotal,
				ShippingCost: shippingCost,
			},
			OrderRef: orderID,
		})
		if err != nil {
			s.releaseAll(ctx, reserved)
			return nil, err
		}

		couponApplied = true
		discountTotal = applied.DiscountAmount
		discounts = append(discounts, order.Discount{
			Type:   string(applied.Coupon.Type),
			Code:   applied.Coupon.Code,
			Amount: applied.DiscountAmount,
		})
	}

	// 5. Create the order with a frozen item snapshot.
	items := make([]order.OrderItem, 0, len(c.Items))
	for _, item := range c.Items {
		items = append(items, order.OrderItem{
			ProductID: item.ProductID,
			Name:      catalog[item.ProductID].Name,
			Size:      item.Size,
			UnitPrice: item.UnitPrice,
			Quantity:  item.Quantity,
		})
	}

	o, err := s.orders.Create(ctx, order.CreateOrderParams{
		ID:              orderID,
		UserID:          params.UserID,
		Items:           items,
		Subtotal:        subtotal,
		Discounts:       discounts,
		ShippingCost:    shippingCost,
		Tax:             tax,
		Total:           subtotal.Sub(discountTotal).Add(shippingCost).Add(tax),
		ShippingAddress: params.ShippingAddress,
	})
	if err != nil {
		log.Error("order creation failed, compensating", zap.Error(err))
		if couponApplied {
			if revertErr := s.coupons.Revert(ctx, params.CouponCode, orderID); revertErr != nil {
				log.Error("failed to revert coupon usage", zap.Error(revertErr))
			}
		}
		s.releaseAll(ctx, reserved)
		return nil, err
	}

	// 6. The order exists; a stale cart is an inconvenience, not a failure.
	if err := s.carts.Clear(ctx, params.UserID); err != nil {
		log.Warn("failed to clear cart after checkout", zap.Error(err))
	}

	log.Info("checkout completed",
		zap.String("order_number", o.OrderNumber),
		zap.String("total", o.Total.String()),
	)
	return o, nil
}

// releaseAll undoes reservations newest-first. Release is idempotent, so a
// retry after partial compensation is safe.
func (s *service) releaseAll(ctx context.Context, reservations []*inventory.StockReservation) {
	log := logger.FromCtx(ctx)
	for i := len(reservations) - 1; i >= 0; i-- {
		if err := s.inv.ReleaseReservation(ctx, reservations[i].ID); err != nil {
			log.Error("failed to release reservation",
				zap.String("reservation_id", reservations[i].ID),
				zap.Error(err),
			)
		}
	}
}
