package order

import (
	"context"
	"fmt"

	"lokapasar-be/internal/inventory"
	"lokapasar-be/internal/logger"
	"lokapasar-be/internal/utils"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const defaultCurrency = "IDR"

// Notifier receives fire-and-forget lifecycle events. A nil Notifier is
// valid; failures inside one must never fail a transition.
type Notifier interface {
	OrderStatusChanged(ctx context.Context, o *Order, previous Status)
}

// Service owns every mutation of order status and tracking. Status only
// changes through Transition, which enforces the graph in status.go.
type Service interface {
	Create(ctx context.Context, params CreateOrderParams) (*Order, error)
	GetOrder(ctx context.Context, orderID string) (*Order, error)
	GetUserOrder(ctx context.Context, userID uint, orderID string) (*Order, error)
	ListOrders(ctx context.Context, userID uint) ([]*Order, error)
	Transition(ctx context.Context, orderID string, next Status, info TrackingInfo) error
	UpdatePaymentStatus(ctx context.Context, orderID string, update PaymentUpdate) error
}

type service struct {
	repo      Repository
	inventory inventory.Service
	notifier  Notifier
}

func NewService(repo Repository, inv inventory.Service, notifier Notifier) Service {
	return &service{repo: repo, inventory: inv, notifier: notifier}
}

// Create persists a new order in pending status with a seeded tracking
// entry and a pending payment record. The caller supplies the ID when it
// needs the order id ahead of creation (checkout uses it as the
// reservation owner).
func (s *service) Create(ctx context.Context, params CreateOrderParams) (*Order, error) {
	if len(params.Items) == 0 {
		return nil, ErrEmptyOrder
	}
	if params.Total.IsNegative() {
		return nil, ErrTotalMismatch
	}

	discountTotal := decimal.Zero
	for _, d := range params.Discounts {
		discountTotal = discountTotal.Add(d.Amount)
	}
	expected := params.Subtotal.Sub(discountTotal).Add(params.ShippingCost).Add(params.Tax)
	if !params.Total.Equal(expected) {
		return nil, ErrTotalMismatch
	}

	id := params.ID
	if id == "" {
		id = uuid.New().String()
	}

	o := &Order{
		ID:           id,
		OrderNumber:  utils.GenerateOrderNumber(),
		UserID:       params.UserID,
		Items:        params.Items,
		Subtotal:     params.Subtotal,
		Discounts:    params.Discounts,
		ShippingCost: params.ShippingCost,
		Tax:          params.Tax,
		Total:        params.Total,
		Status:       StatusPending,
		Payment: PaymentInfo{
			Status:   PaymentPending,
			Amount:   params.Total,
			Currency: defaultCurrency,
		},
		ShippingAddress: params.ShippingAddress,
		Tracking: []TrackingEntry{{
			Status:  StatusPending,
			Message: "order created",
			Actor:   "customer",
		}},
	}

	if err := s.repo.CreateOrderTx(ctx, o); err != nil {
		return nil, err
	}
	return o, nil
}

func (s *service) GetOrder(ctx context.Context, orderID string) (*Order, error) {
	o, err := s.repo.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if o == nil {
		return nil, ErrOrderNotFound
	}
	return o, nil
}

func (s *service) GetUserOrder(ctx context.Context, userID uint, orderID string) (*Order, error) {
	o, err := s.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if o.UserID != userID {
		return nil, ErrForbidden
	}
	return o, nil
}

func (s *service) ListOrders(ctx context.Context, userID uint) ([]*Order, error) {
	return s.repo.GetByUser(ctx, userID)
}

// Transition moves the order along the status graph.
//
// Confirming commits the order's reservations first: the inventory side is
// a single transaction, so a failure there leaves nothing half-committed
// and the order stays where it was. Cancelling or failing releases any
// still-active reservations.
func (s *service) Transition(ctx context.Context, orderID string, next Status, info TrackingInfo) error {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "service"),
		zap.String("method", "Transition"),
		zap.String("order_id", orderID),
		zap.String("next", string(next)),
	)

	if !IsValidStatus(next) {
		return ErrInvalidStatus
	}

	o, err := s.GetOrder(ctx, orderID)
	if err != nil {
		return err
	}
	if !CanTransition(o.Status, next) {
		log.Warn("transition rejected", zap.String("current", string(o.Status)))
		return ErrInvalidTransition
	}

	actor := info.Actor
	if actor == "" {
		actor = "system"
	}

	switch next {
	case StatusConfirmed:
		if err := s.inventory.CommitReservationsForOwner(ctx, orderID, actor); err != nil {
			log.Error("failed to commit reservations", zap.Error(err))
			return err
		}
	case StatusCancelled, StatusFailed:
		if err := s.inventory.ReleaseReservationsForOwner(ctx, orderID); err != nil {
			log.Error("failed to release reservations", zap.Error(err))
			return err
		}
	}

	message := info.Message
	if message == "" {
		message = fmt.Sprintf("status changed to %s", next)
	}

	err = s.repo.UpdateStatusTx(ctx, orderID, o.Status, next, TrackingEntry{
		Status:   next,
		Message:  message,
		Location: info.Location,
		Actor:    actor,
	})
	if err != nil {
		// The inventory side effect already landed; the order record now
		// disagrees with it until an operator reconciles.
		log.Error("status update failed after inventory side effect", zap.Error(err))
		return err
	}

	if s.notifier != nil {
		previous := o.Status
		o.Status = next
		s.notifier.OrderStatusChanged(ctx, o, previous)
	}
	return nil
}

// UpdatePaymentStatus merges the callback's payment fields. A completed
// payment on a pending order is the sole trigger that confirms it; a
// failed payment on a pending order fails it.
func (s *service) UpdatePaymentStatus(ctx context.Context, orderID string, update PaymentUpdate) error {
	o, err := s.GetOrder(ctx, orderID)
	if err != nil {
		return err
	}

	if err := s.repo.UpdatePayment(ctx, orderID, update); err != nil {
		return err
	}

	if o.Status != StatusPending {
		return nil
	}

	switch update.Status {
	case PaymentCompleted:
		return s.Transition(ctx, orderID, StatusConfirmed, TrackingInfo{
			Message: "payment completed",
			Actor:   "payment",
		})
	case PaymentFailed:
		return s.Transition(ctx, orderID, StatusFailed, TrackingInfo{
			Message: "payment failed",
			Actor:   "payment",
		})
	}
	return nil
}
