package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	appErrors "github.com/noah-isme/formation-admin-api/pkg/errors"
)

const (
	trainerSessionsPattern = "trainer:*:sessions"
	trainerEpochKey        = "trainer:epoch"
)

// TrainerSessionsKey is the cache key holding the sessions of one trainer.
func TrainerSessionsKey(trainerID string) string {
	return fmt.Sprintf("trainer:%s:sessions", trainerID)
}

func trainerGenerationKey(trainerID string) string {
	return fmt.Sprintf("trainer:%s:gen", trainerID)
}

// CacheGuard captures invalidation counters read before a database lookup.
// A guarded write is dropped when any counter moved in the meantime.
type CacheGuard map[string]int64

// CacheRepository abstracts persistence for cached payloads.
type CacheRepository interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
	DeleteByPattern(ctx context.Context, pattern string) error
	Versions(ctx context.Context, keys ...string) ([]int64, error)
	Bump(ctx context.Context, keys ...string) error
	SetIfVersions(ctx context.Context, key string, value interface{}, ttl time.Duration, guards map[string]int64) (bool, error)
}

// CacheService orchestrates cache operations and related metrics.
type CacheService struct {
	repo       CacheRepository
	metrics    *MetricsService
	defaultTTL time.Duration
	logger     *zap.Logger
	enabled    bool
}

// NewCacheService constructs a cache service.
func NewCacheService(repo CacheRepository, metrics *MetricsService, defaultTTL time.Duration, logger *zap.Logger, enabled bool) *CacheService {
	if defaultTTL <= 0 {
		defaultTTL = 5 * time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CacheService{repo: repo, metrics: metrics, defaultTTL: defaultTTL, logger: logger, enabled: enabled}
}

// Enabled indicates whether caching is active.
func (s *CacheService) Enabled() bool {
	return s != nil && s.enabled && s.repo != nil
}

// Get attempts to retrieve a cached entry. It returns true when the cache was hit.
func (s *CacheService) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	if !s.Enabled() {
		return false, nil
	}
	start := time.Now()
	err := s.repo.Get(ctx, key, dest)
	s.metrics.RecordCacheOperation(err == nil, time.Since(start))
	if err != nil {
		if errors.Is(err, appErrors.ErrCacheMiss) {
			return false, nil
		}
		s.logger.Warn("cache get failed", zap.String("key", key), zap.Error(err))
		return false, err
	}
	return true, nil
}

// Set stores the value in cache.
func (s *CacheService) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if !s.Enabled() {
		return nil
	}
	if ttl <= 0 {
		ttl = s.defaultTTL
	}
	start := time.Now()
	err := s.repo.Set(ctx, key, value, ttl)
	s.metrics.ObserveCacheWrite(time.Since(start))
	if err != nil {
		s.logger.Warn("cache set failed", zap.String("key", key), zap.Error(err))
	}
	return err
}

// Delete removes the given keys.
func (s *CacheService) Delete(ctx context.Context, keys ...string) error {
	if !s.Enabled() || len(keys) == 0 {
		return nil
	}
	if err := s.repo.Delete(ctx, keys...); err != nil {
		s.logger.Warn("cache delete failed", zap.Strings("keys", keys), zap.Error(err))
		return err
	}
	return nil
}

// Invalidate removes cached values for the provided pattern.
func (s *CacheService) Invalidate(ctx context.Context, pattern string) error {
	if !s.Enabled() {
		return nil
	}
	if err := s.repo.DeleteByPattern(ctx, pattern); err != nil {
		s.logger.Warn("cache invalidate failed", zap.String("pattern", pattern), zap.Error(err))
		return err
	}
	return nil
}

// TrainerGuard snapshots the invalidation counters of one trainer. Call it before reading
// the database and pass the result to SetTrainerSessions.
func (s *CacheService) TrainerGuard(ctx context.Context, trainerID string) (CacheGuard, error) {
	if !s.Enabled() {
		return nil, nil
	}
	keys := []string{trainerGenerationKey(trainerID), trainerEpochKey}
	versions, err := s.repo.Versions(ctx, keys...)
	if err != nil {
		s.logger.Warn("cache version read failed", zap.String("trainer_id", trainerID), zap.Error(err))
		return nil, err
	}
	guard := make(CacheGuard, len(keys))
	for i, key := range keys {
		guard[key] = versions[i]
	}
	return guard, nil
}

// SetTrainerSessions caches the sessions of a trainer unless an invalidation happened
// after guard was taken. It reports whether the value was stored.
func (s *CacheService) SetTrainerSessions(ctx context.Context, trainerID string, guard CacheGuard, sessions interface{}, ttl time.Duration) (bool, error) {
	if !s.Enabled() || guard == nil {
		return false, nil
	}
	if ttl <= 0 {
		ttl = s.defaultTTL
	}
	key := TrainerSessionsKey(trainerID)
	start := time.Now()
	written, err := s.repo.SetIfVersions(ctx, key, sessions, ttl, guard)
	s.metrics.ObserveCacheWrite(time.Since(start))
	if err != nil {
		s.logger.Warn("cache set failed", zap.String("key", key), zap.Error(err))
		return false, err
	}
	return written, nil
}

// InvalidateTrainers drops the cached session lists of the given trainers and bumps their
// generation so that lookups already in flight cannot store stale lists.
func (s *CacheService) InvalidateTrainers(ctx context.Context, trainerIDs ...string) error {
	if !s.Enabled() || len(trainerIDs) == 0 {
		return nil
	}
	generations := make([]string, 0, len(trainerIDs))
	keys := make([]string, 0, len(trainerIDs))
	for _, id := range trainerIDs {
		generations = append(generations, trainerGenerationKey(id))
		keys = append(keys, TrainerSessionsKey(id))
	}
	bumpErr := s.repo.Bump(ctx, generations...)
	if bumpErr != nil {
		s.logger.Warn("cache generation bump failed", zap.Strings("trainer_ids", trainerIDs), zap.Error(bumpErr))
	}
	if err := s.Delete(ctx, keys...); err != nil {
		return err
	}
	return bumpErr
}

// InvalidateAllTrainers drops every cached trainer session list and bumps the shared epoch.
func (s *CacheService) InvalidateAllTrainers(ctx context.Context) error {
	if !s.Enabled() {
		return nil
	}
	bumpErr := s.repo.Bump(ctx, trainerEpochKey)
	if bumpErr != nil {
		s.logger.Warn("cache epoch bump failed", zap.Error(bumpErr))
	}
	if err := s.Invalidate(ctx, trainerSessionsPattern); err != nil {
		return err
	}
	return bumpErr
}
