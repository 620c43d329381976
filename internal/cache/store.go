package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ppiankov/syllogos/internal/logging"
	"github.com/ppiankov/syllogos/internal/metrics"
	"github.com/ppiankov/syllogos/internal/model"
)

// Store persists final analysis results keyed by paper id
type Store struct {
	cache  Cache
	ttl    time.Duration
	logger *zap.Logger
}

// NewStore wraps a byte cache. ttl 0 defers to the backend default.
func NewStore(c Cache, ttl time.Duration, logger *zap.Logger) *Store {
	return &Store{cache: c, ttl: ttl, logger: logging.OrNop(logger)}
}

// Cacheable reports whether results for paperID may be stored or replayed
func Cacheable(paperID string) bool {
	return paperID != "" && !strings.HasPrefix(paperID, model.UploadPrefix)
}

// Load returns the stored final result for paperID
func (s *Store) Load(ctx context.Context, paperID string) (*model.AnalysisResult, bool) {
	if !Cacheable(paperID) {
		metrics.CacheLookups.WithLabelValues("skip").Inc()
		return nil, false
	}

	data, ok := s.cache.Get(ctx, CacheKey(paperID))
	if !ok {
		metrics.CacheLookups.WithLabelValues("miss").Inc()
		return nil, false
	}

	var result model.AnalysisResult
	if err := json.Unmarshal(data, &result); err != nil || !result.Final {
		s.logger.Warn("discarding unreadable cached analysis",
			zap.String("paper_id", paperID),
			zap.Error(err),
		)
		_ = s.cache.Delete(ctx, CacheKey(paperID))
		metrics.CacheLookups.WithLabelValues("miss").Inc()
		return nil, false
	}

	metrics.CacheLookups.WithLabelValues("hit").Inc()
	return &result, true
}

// Save stores a final result. Non-final results and uploads are ignored.
func (s *Store) Save(ctx context.Context, paperID string, result *model.AnalysisResult) error {
	if result == nil || !result.Final || !Cacheable(paperID) {
		return nil
	}

	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("marshal analysis: %w", err)
	}
	if err := s.cache.Set(ctx, CacheKey(paperID), data, s.ttl); err != nil {
		return fmt.Errorf("store analysis %s: %w", paperID, err)
	}

	s.logger.Debug("stored analysis", zap.String("paper_id", paperID), zap.Int("bytes", len(data)))
	return nil
}

// Forget removes any stored result for paperID
func (s *Store) Forget(ctx context.Context, paperID string) error {
	return s.cache.Delete(ctx, CacheKey(paperID))
}
