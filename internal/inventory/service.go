package inventory

import (
	"context"
	"time"

	"lokapasar-be/internal/logger"

	"go.uber.org/zap"
)

// Alerter receives fire-and-forget low-stock notifications. Failures are
// the implementation's problem; they must never fail a ledger operation.
type Alerter interface {
	LowStock(ctx context.Context, inv *ProductInventory)
}

// Service owns every mutation of stock and reservation counters. Other
// components call these operations; none of them writes inventory state
// directly.
type Service interface {
	GetInventory(ctx context.Context, productID, locationID string) (*ProductInventory, error)
	GetMovements(ctx context.Context, productID, locationID string, limit int) ([]*StockMovement, error)
	AdjustStock(ctx context.Context, params AdjustStockParams) (*ProductInventory, error)
	CheckAvailability(ctx context.Context, locationID string, items []AvailabilityItem) (*AvailabilityResult, error)
	ReserveStock(ctx context.Context, params ReserveStockParams) (*StockReservation, error)
	ReleaseReservation(ctx context.Context, reservationID string) error
	CommitReservation(ctx context.Context, reservationID, actor string) error
	ReleaseReservationsForOwner(ctx context.Context, ownerRef string) error
	CommitReservationsForOwner(ctx context.Context, ownerRef, actor string) error
	ReleaseExpired(ctx context.Context) (int, error)
}

type service struct {
	repo    Repository
	alerter Alerter
}

func NewService(repo Repository, alerter Alerter) Service {
	return &service{repo: repo, alerter: alerter}
}

func (s *service) GetInventory(ctx context.Context, productID, locationID string) (*ProductInventory, error) {
	inv, err := s.repo.GetInventory(ctx, productID, locationID)
	if err != nil {
		return nil, err
	}
	if inv == nil {
		return nil, ErrInventoryNotFound
	}
	return inv, nil
}

func (s *service) GetMovements(ctx context.Context, productID, locationID string, limit int) ([]*StockMovement, error) {
	return s.repo.GetMovements(ctx, productID, locationID, limit)
}

func (s *service) AdjustStock(ctx context.Context, params AdjustStockParams) (*ProductInventory, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "service"),
		zap.String("method", "AdjustStock"),
		zap.String("product_id", params.ProductID),
		zap.String("location_id", params.LocationID),
		zap.Int("delta", params.Delta),
	)

	switch params.Type {
	case MovementRestock, MovementReturn, MovementAdjustment:
	default:
		return nil, ErrInvalidMovement
	}
	if params.Delta == 0 {
		return nil, ErrInvalidQuantity
	}

	prev, err := s.repo.GetInventory(ctx, params.ProductID, params.LocationID)
	if err != nil {
		return nil, err
	}

	inv, err := s.repo.AdjustStock(ctx, params)
	if err != nil {
		log.Error("failed to adjust stock", zap.Error(err))
		return nil, err
	}

	log.Info("stock adjusted",
		zap.Int("quantity", inv.Quantity),
		zap.Int("available", inv.AvailableQuantity),
	)

	if s.alerter != nil && crossedReorderPoint(prev, inv) {
		s.alerter.LowStock(ctx, inv)
	}

	return inv, nil
}

// crossedReorderPoint reports whether the adjustment dropped the counter
// through the reorder point or to zero.
func crossedReorderPoint(prev, cur *ProductInventory) bool {
	if cur.Quantity == 0 {
		return prev == nil || prev.Quantity > 0
	}
	if cur.ReorderPoint <= 0 {
		return false
	}
	prevQty := 0
	if prev != nil {
		prevQty = prev.Quantity
	}
	return prevQty > cur.ReorderPoint && cur.Quantity <= cur.ReorderPoint
}

func (s *service) CheckAvailability(ctx context.Context, locationID string, items []AvailabilityItem) (*AvailabilityResult, error) {
	if len(items) == 0 {
		return &AvailabilityResult{Valid: true}, nil
	}

	ids := make([]string, 0, len(items))
	for _, item := range items {
		ids = append(ids, item.ProductID)
	}

	inventories, err := s.repo.GetInventories(ctx, ids, locationID)
	if err != nil {
		return nil, err
	}

	// Every line is inspected even after the first failure so the caller
	// can report all blocking issues at once.
	result := &AvailabilityResult{Valid: true}
	for _, item := range items {
		inv, ok := inventories[item.ProductID]
		switch {
		case !ok:
			result.Issues = append(result.Issues, StockIssue{
				ProductID: item.ProductID,
				Kind:      IssueProductNotFound,
				Requested: item.Quantity,
			})
		case inv.AvailableQuantity == 0:
			result.Issues = append(result.Issues, StockIssue{
				ProductID: item.ProductID,
				Kind:      IssueOutOfStock,
				Requested: item.Quantity,
			})
		case item.Quantity > inv.AvailableQuantity:
			result.Issues = append(result.Issues, StockIssue{
				ProductID: item.ProductID,
				Kind:      IssueInsufficientStock,
				Requested: item.Quantity,
				Available: inv.AvailableQuantity,
			})
		}
	}

	result.Valid = len(result.Issues) == 0
	return result, nil
}

func (s *service) ReserveStock(ctx context.Context, params ReserveStockParams) (*StockReservation, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "service"),
		zap.String("method", "ReserveStock"),
		zap.String("product_id", params.ProductID),
		zap.String("owner_ref", params.OwnerRef),
		zap.Int("quantity", params.Quantity),
	)

	if params.Quantity <= 0 {
		return nil, ErrInvalidQuantity
	}

	res, err := s.repo.Reserve(ctx, params)
	if err != nil {
		log.Warn("reservation failed", zap.Error(err))
		return nil, err
	}

	log.Info("stock reserved",
		zap.String("reservation_id", res.ID),
		zap.Time("expires_at", res.ExpiresAt),
	)
	return res, nil
}

func (s *service) ReleaseReservation(ctx context.Context, reservationID string) error {
	released, err := s.repo.Release(ctx, reservationID)
	if err != nil {
		return err
	}
	if !released {
		logger.FromCtx(ctx).Debug("reservation already inactive",
			zap.String("reservation_id", reservationID),
		)
	}
	return nil
}

func (s *service) CommitReservation(ctx context.Context, reservationID, actor string) error {
	return s.repo.Commit(ctx, reservationID, actor)
}

func (s *service) ReleaseReservationsForOwner(ctx context.Context, ownerRef string) error {
	released, err := s.repo.ReleaseByOwner(ctx, ownerRef)
	if err != nil {
		return err
	}
	if released > 0 {
		logger.FromCtx(ctx).Info("released reservations",
			zap.String("owner_ref", ownerRef),
			zap.Int("count", released),
		)
	}
	return nil
}

func (s *service) CommitReservationsForOwner(ctx context.Context, ownerRef, actor string) error {
	committed, err := s.repo.CommitByOwner(ctx, ownerRef, actor)
	if err != nil {
		return err
	}
	logger.FromCtx(ctx).Info("committed reservations",
		zap.String("owner_ref", ownerRef),
		zap.Int("count", committed),
	)
	return nil
}

// ReleaseExpired releases every lapsed active reservation exactly as
// ReleaseReservation would, one at a time. Safe to re-run at any moment:
// a reservation committed or released in the meantime is skipped.
func (s *service) ReleaseExpired(ctx context.Context) (int, error) {
	ids, err := s.repo.FindExpired(ctx, time.Now(), 500)
	if err != nil {
		return 0, err
	}

	released := 0
	for _, id := range ids {
		ok, err := s.repo.Release(ctx, id)
		if err != nil {
			// Keep sweeping; one bad reservation must not lock the rest.
			logger.FromCtx(ctx).Warn("failed to release expired reservation",
				zap.String("reservation_id", id),
				zap.Error(err),
			)
			continue
		}
		if ok {
			released++
		}
	}

	return released, nil
}
