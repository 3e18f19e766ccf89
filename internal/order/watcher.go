package order

import (
	"context"
	"time"

	"lokapasar-be/internal/logger"

	"go.uber.org/zap"
)

// Watcher periodically fails pending orders whose payment never arrived.
// Failing an order releases its reservations through the normal transition
// path, so stock locked by an abandoned checkout returns to the pool even
// if the reservation TTL has not lapsed yet.
type Watcher struct {
	repo     Repository
	svc      Service
	timeout  time.Duration
	interval time.Duration
}

func NewWatcher(repo Repository, svc Service, timeout, interval time.Duration) *Watcher {
	if timeout <= 0 {
		timeout = 30 * time.Minute
	}
	if interval <= 0 {
		interval = time.Minute
	}
	return &Watcher{repo: repo, svc: svc, timeout: timeout, interval: interval}
}

func (w *Watcher) Run(ctx context.Context) {
	log := logger.FromCtx(ctx).With(zap.String("layer", "watcher"))
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info("pending order watcher stopped")
			return
		case <-ticker.C:
			w.sweep(ctx, log)
		}
	}
}

func (w *Watcher) sweep(ctx context.Context, log *zap.Logger) {
	ids, err := w.repo.FindStalePending(ctx, time.Now().Add(-w.timeout))
	if err != nil {
		log.Error("failed to list stale pending orders", zap.Error(err))
		return
	}

	for _, id := range ids {
		err := w.svc.Transition(ctx, id, StatusFailed, TrackingInfo{
			Message: "payment timed out",
			Actor:   "system",
		})
		if err != nil {
			// A racing payment callback may have moved the order already.
			log.Warn("failed to fail stale order",
				zap.String("order_id", id),
				zap.Error(err),
			)
			continue
		}
		log.Info("stale pending order failed", zap.String("order_id", id))
	}
}
