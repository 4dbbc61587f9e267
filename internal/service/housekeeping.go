package service

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// DefaultHousekeepingInterval период обновления отчётных показателей.
const DefaultHousekeepingInterval = time.Minute

// RunHousekeeping периодически собирает отчётные показатели до отмены ctx.
// Состояние токенов не изменяется: истечение срока вычисляется при погашении.
func (s *Service) RunHousekeeping(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = DefaultHousekeepingInterval
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.collectStats(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.collectStats(ctx)
		}
	}
}

func (s *Service) collectStats(ctx context.Context) {
	stats, err := s.repo.GetHousekeepingStats(ctx, s.clock.Now())
	if err != nil {
		if ctx.Err() == nil {
			s.logger.Warn("housekeeping stats", zap.Error(err))
		}
		return
	}
	s.metrics.SetHousekeeping(stats.PendingRedemptions, stats.ExpiredCampaignTokens, stats.ActiveEarnTokens)
}
