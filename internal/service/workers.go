package service

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// StartRatingSync запускает фоновую синхронизацию рейтингов магазинов с сервисом отзывов.
func (s *Service) StartRatingSync(ctx context.Context, interval time.Duration) {
	if s.ratings == nil {
		return
	}

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.processRatingBatch(ctx)
			}
		}
	}()
}

func (s *Service) processRatingBatch(ctx context.Context) {
	ids, err := s.stores.ListStoreIDs(ctx)
	if err != nil {
		s.metrics.RatingSyncError()
		s.logger.Warn("list stores for rating sync", zap.Error(err))
		return
	}

	for _, id := range ids {
		resp, statusCode, retryAfter, err := s.ratings.GetStoreRating(ctx, id)
		if err != nil {
			s.metrics.RatingSyncError()
			s.logger.Debug("fetch store rating", zap.String("store_id", id), zap.Error(err))
			continue
		}

		if statusCode == http.StatusTooManyRequests {
			if retryAfter > 0 {
				timer := time.NewTimer(retryAfter)
				select {
				case <-ctx.Done():
					timer.Stop()
					return
				case <-timer.C:
				}
			}
			continue
		}

		if resp == nil {
			continue
		}

		if err := s.ApplyRating(ctx, id, resp.Rating, resp.ReviewCount); err != nil {
			s.metrics.RatingSyncError()
			s.logger.Warn("apply store rating", zap.String("store_id", id), zap.Error(err))
		}
	}
}

// StartExpirySweep периодически переводит просроченные ожидающие заказы в expired.
func (s *Service) StartExpirySweep(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				n, err := s.SweepExpired(ctx)
				if err != nil {
					s.logger.Warn("expiry sweep", zap.Error(err))
					continue
				}
				if n > 0 {
					s.logger.Info("expiry sweep", zap.Int("expired", n))
				}
			}
		}
	}()
}
