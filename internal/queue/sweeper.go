package queue

import (
	"context"
	"time"

	"backend-antrian-klinik/internal/store"

	"go.uber.org/zap"
)

// PurgeExpiredProjections deletes public projections whose booking day has
// ended. The clinical tickets stay.
func (s *Service) PurgeExpiredProjections(ctx context.Context) (int64, error) {
	var n int64
	err := s.store.WithTx(ctx, func(tx store.Tx) error {
		var err error
		n, err = tx.DeleteExpiredPublicTickets(ctx, s.now())
		return err
	})
	if err != nil {
		return 0, err
	}
	s.metrics.Swept(n)
	return n, nil
}

// RunSweeper purges on every tick until ctx is cancelled.
func (s *Service) RunSweeper(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 10 * time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := s.PurgeExpiredProjections(ctx)
			if err != nil {
				s.log.Error("purge expired projections", zap.Error(err))
				continue
			}
			if n > 0 {
				s.log.Info("expired projections purged", zap.Int64("count", n))
			}
		}
	}
}
