// Package service executes the query and aggregation operations against the
// record store. Every operation is a stateless read of current store contents.
package service

import (
	"context"
	"sort"

	"go.uber.org/zap"

	"vehicle-sensor-platform/backend/internal/reading/domain"
	"vehicle-sensor-platform/backend/internal/reading/query"
	"vehicle-sensor-platform/backend/internal/reading/repository"
)

// dayFormat renders a UTC calendar day bucket.
const dayFormat = "2006-01-02"

// activeDayCap bounds the distinct-active-days result to the most recent days.
const activeDayCap = 90

// LatestCache is the optional hot path for the newest position fix.
type LatestCache interface {
	Load(ctx context.Context) (*domain.PositionReading, error)
}

// Summary holds per-kind record counts for a filter.
type Summary struct {
	MotionCount   int64 `json:"imu_count"`
	PositionCount int64 `json:"gps_count"`
}

// QueryService serves time-windowed, session-scoped queries and rollups.
type QueryService struct {
	repo  repository.Repository
	cache LatestCache // may be nil
	log   *zap.Logger
}

// New returns a QueryService. cache may be nil to always read the store.
func New(repo repository.Repository, cache LatestCache, log *zap.Logger) *QueryService {
	return &QueryService{repo: repo, cache: cache, log: log}
}

// ListMotion returns matching motion readings, receipt time ascending.
func (s *QueryService) ListMotion(ctx context.Context, f query.Filter) ([]*domain.MotionReading, error) {
	return s.repo.ListMotion(ctx, f)
}

// ListPosition returns matching position readings, receipt time ascending.
func (s *QueryService) ListPosition(ctx context.Context, f query.Filter) ([]*domain.PositionReading, error) {
	return s.repo.ListPosition(ctx, f)
}

// MotionStats returns the single-pass aggregate for the filter. The result
// has no axis entries when nothing matches.
func (s *QueryService) MotionStats(ctx context.Context, f query.Filter) (*domain.MotionStats, error) {
	return s.repo.MotionStats(ctx, f)
}

// Summarize counts matching readings of both kinds without materializing rows.
func (s *QueryService) Summarize(ctx context.Context, f query.Filter) (*Summary, error) {
	motion, err := s.repo.CountMotion(ctx, f)
	if err != nil {
		return nil, err
	}
	position, err := s.repo.CountPosition(ctx, f)
	if err != nil {
		return nil, err
	}
	return &Summary{MotionCount: motion, PositionCount: position}, nil
}

// Sessions returns the distinct session identifiers observed across both
// record kinds, sorted descending with the numeric-aware comparator.
func (s *QueryService) Sessions(ctx context.Context) ([]domain.SessionID, error) {
	ids, err := s.repo.DistinctSessions(ctx)
	if err != nil {
		return nil, err
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i].Compare(ids[j]) > 0 })
	return ids, nil
}

// ActiveDays returns the distinct UTC calendar days with at least one
// reading, as ISO day strings sorted descending, capped to the most recent.
func (s *QueryService) ActiveDays(ctx context.Context) ([]string, error) {
	days, err := s.repo.DistinctDays(ctx)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]struct{}, len(days))
	out := make([]string, 0, len(days))
	for _, day := range days {
		iso := day.UTC().Format(dayFormat)
		if _, ok := seen[iso]; ok {
			continue
		}
		seen[iso] = struct{}{}
		out = append(out, iso)
	}
	sort.Sort(sort.Reverse(sort.StringSlice(out)))
	if len(out) > activeDayCap {
		out = out[:activeDayCap]
	}
	return out, nil
}

// LatestPosition returns the newest position fix, or nil when none exists.
// The cached fix is a hint: the store is consulted as well and the greater
// receipt time wins. A cached fix is served alone only when the store read
// fails.
func (s *QueryService) LatestPosition(ctx context.Context) (*domain.PositionReading, error) {
	var cached *domain.PositionReading
	if s.cache != nil {
		p, err := s.cache.Load(ctx)
		if err != nil {
			s.log.Warn("latest position cache read failed", zap.Error(err))
		} else {
			cached = p
		}
	}

	stored, err := s.repo.LatestPosition(ctx)
	if err != nil {
		if cached != nil {
			s.log.Warn("latest position store read failed, serving cached fix", zap.Error(err))
			return cached, nil
		}
		return nil, err
	}
	if stored == nil {
		return cached, nil
	}
	if cached != nil && cached.ReceivedAt.After(stored.ReceivedAt) {
		return cached, nil
	}
	return stored, nil
}
