package usecases

import (
	"context"

	"github.com/paulmach/orb/geojson"

	"github.com/samirrijal/terramind/internal/core/ports"
	"github.com/samirrijal/terramind/internal/pkg/metrics"
)

const boundariesCacheKey = "boundaries:all"

// BoundaryService serves the reference region dataset through the cache.
type BoundaryService struct {
	repo  ports.BoundaryRepository
	cache ports.CacheService
	ttl   int
}

// NewBoundaryService creates a new BoundaryService. ttlSeconds <= 0 means 10 minutes.
func NewBoundaryService(repo ports.BoundaryRepository, cache ports.CacheService, ttlSeconds int) *BoundaryService {
	if ttlSeconds <= 0 {
		ttlSeconds = 600
	}
	return &BoundaryService{repo: repo, cache: cache, ttl: ttlSeconds}
}

// All returns the full FeatureCollection.
func (s *BoundaryService) All(ctx context.Context) (*geojson.FeatureCollection, error) {
	if s.cache != nil {
		if data, err := s.cache.Get(ctx, boundariesCacheKey); err == nil {
			if fc, err := geojson.UnmarshalFeatureCollection(data); err == nil {
				metrics.CacheHits.WithLabelValues("boundaries").Inc()
				return fc, nil
			}
		}
		metrics.CacheMisses.WithLabelValues("boundaries").Inc()
	}

	fc, err := s.repo.All(ctx)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if data, err := fc.MarshalJSON(); err == nil {
			_ = s.cache.Set(ctx, boundariesCacheKey, data, s.ttl)
		}
	}
	return fc, nil
}

// Invalidate drops the cached dataset, e.g. after an ingest.
func (s *BoundaryService) Invalidate(ctx context.Context) error {
	if s.cache == nil {
		return nil
	}
	return s.cache.Delete(ctx, boundariesCacheKey)
}
