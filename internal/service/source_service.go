package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/studyport/schedule-api/internal/models"
)

// ScheduleSource supplies the two independently polled inputs of the
// reconciliation pipeline.
type ScheduleSource interface {
	FetchSessions(ctx context.Context, batchID string) ([]models.Session, error)
	FetchBatchMeta(ctx context.Context, batchID string) (*models.BatchScheduleMeta, error)
}

// CachedScheduleSource decorates a ScheduleSource with a short-lived shared
// cache so every watcher of the same batch does not hit the portal on its
// own tick. Cache trouble degrades to a direct fetch, never to an error.
type CachedScheduleSource struct {
	upstream ScheduleSource
	cache    *CacheService
	metrics  *MetricsService
	ttl      time.Duration
	logger   *zap.Logger
}

// NewCachedScheduleSource wraps the upstream source.
func NewCachedScheduleSource(upstream ScheduleSource, cache *CacheService, metrics *MetricsService, ttl time.Duration, logger *zap.Logger) *CachedScheduleSource {
	if logger == nil {
		logger = zap.NewNop()
	}
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &CachedScheduleSource{upstream: upstream, cache: cache, metrics: metrics, ttl: ttl, logger: logger}
}

func sessionsCacheKey(batchID string) string {
	return fmt.Sprintf("portal:sessions:%s", batchID)
}

func metaCacheKey(batchID string) string {
	return fmt.Sprintf("portal:meta:%s", batchID)
}

// FetchSessions returns session rows, preferring the shared cache window.
func (s *CachedScheduleSource) FetchSessions(ctx context.Context, batchID string) ([]models.Session, error) {
	key := sessionsCacheKey(batchID)
	var cached []models.Session
	if hit, err := s.cache.Get(ctx, key, &cached); err == nil && hit {
		return cached, nil
	}

	start := time.Now()
	sessions, err := s.upstream.FetchSessions(ctx, batchID)
	s.metrics.ObservePortalFetch("sessions", time.Since(start))
	if err != nil {
		return nil, err
	}

	if err := s.cache.Set(ctx, key, sessions, s.ttl); err != nil {
		s.logger.Debug("session cache write skipped", zap.String("batch_id", batchID), zap.Error(err))
	}
	return sessions, nil
}

// FetchBatchMeta returns batch metadata, preferring the shared cache window.
func (s *CachedScheduleSource) FetchBatchMeta(ctx context.Context, batchID string) (*models.BatchScheduleMeta, error) {
	key := metaCacheKey(batchID)
	var cached models.BatchScheduleMeta
	if hit, err := s.cache.Get(ctx, key, &cached); err == nil && hit {
		return &cached, nil
	}

	start := time.Now()
	meta, err := s.upstream.FetchBatchMeta(ctx, batchID)
	s.metrics.ObservePortalFetch("meta", time.Since(start))
	if err != nil {
		return nil, err
	}

	if err := s.cache.Set(ctx, key, meta, s.ttl); err != nil {
		s.logger.Debug("meta cache write skipped", zap.String("batch_id", batchID), zap.Error(err))
	}
	return meta, nil
}

// Invalidate drops the cached window for a batch so a forced refresh
// reaches the portal instead of the shared cache.
func (s *CachedScheduleSource) Invalidate(ctx context.Context, batchID string) {
	if err := s.cache.Invalidate(ctx, fmt.Sprintf("portal:*:%s", batchID)); err != nil {
		s.logger.Debug("cache invalidate skipped", zap.String("batch_id", batchID), zap.Error(err))
	}
}
