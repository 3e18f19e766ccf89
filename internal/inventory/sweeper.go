package inventory

import (
	"context"
	"time"

	"lokapasar-be/internal/logger"

	"go.uber.org/zap"
)

// Sweeper periodically releases expired reservations so abandoned
// checkouts cannot lock stock forever.
type Sweeper struct {
	svc      Service
	interval time.Duration
}

func NewSweeper(svc Service, interval time.Duration) *Sweeper {
	if interval <= 0 {
		interval = time.Minute
	}
	return &Sweeper{svc: svc, interval: interval}
}

// Run blocks until ctx is cancelled. Intended to be started as a goroutine
// from main.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	log := logger.L().With(zap.String("component", "reservation_sweeper"))
	log.Info("sweeper started", zap.Duration("interval", s.interval))

	for {
		select {
		case <-ctx.Done():
			log.Info("sweeper stopped")
			return
		case <-ticker.C:
			released, err := s.svc.ReleaseExpired(ctx)
			if err != nil {
				log.Warn("sweep failed", zap.Error(err))
				continue
			}
			if released > 0 {
				log.Info("released expired reservations", zap.Int("count", released))
			}
		}
	}
}
