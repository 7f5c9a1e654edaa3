package cache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/SAP-F-2025/proctoring-service/internal/models"
)

const statusKeyPrefix = "proctoring:status:"

func StatusKey(interviewID uint) string {
	return fmt.Sprintf("%s%d", statusKeyPrefix, interviewID)
}

// StatusCache mirrors live session status so other replicas and dashboards
// can read it without touching the engine. Failures are logged and swallowed.
type StatusCache struct {
	cache  CacheService
	ttl    time.Duration
	logger *slog.Logger
}

// NewStatusCache returns a cache that does nothing when cache is nil.
func NewStatusCache(cache CacheService, ttl time.Duration, logger *slog.Logger) *StatusCache {
	return &StatusCache{cache: cache, ttl: ttl, logger: logger}
}

func (s *StatusCache) Set(ctx context.Context, status *models.SessionStatus) {
	if s == nil || s.cache == nil || status == nil {
		return
	}
	if err := s.cache.Set(ctx, StatusKey(status.InterviewID), status, s.ttl); err != nil {
		s.logger.Warn("Failed to cache proctoring status",
			"interview_id", status.InterviewID,
			"error", err)
	}
}

// Get returns the cached status, or false on a miss or any cache error.
func (s *StatusCache) Get(ctx context.Context, interviewID uint) (*models.SessionStatus, bool) {
	if s == nil || s.cache == nil {
		return nil, false
	}
	var status models.SessionStatus
	if err := s.cache.Get(ctx, StatusKey(interviewID), &status); err != nil {
		if !errors.Is(err, ErrCacheMiss) {
			s.logger.Warn("Failed to read cached proctoring status",
				"interview_id", interviewID,
				"error", err)
		}
		return nil, false
	}
	return &status, true
}

func (s *StatusCache) Delete(ctx context.Context, interviewID uint) {
	if s == nil || s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, StatusKey(interviewID)); err != nil {
		s.logger.Warn("Failed to drop cached proctoring status",
			"interview_id", interviewID,
			"error", err)
	}
}
