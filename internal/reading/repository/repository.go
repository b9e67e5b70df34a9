package repository

import (
	"context"
	"time"

	"vehicle-sensor-platform/backend/internal/reading/domain"
	"vehicle-sensor-platform/backend/internal/reading/query"
)

// Repository defines persistence for motion and position readings.
// Readings are append-only: there are no update or delete operations.
type Repository interface {
	// InsertMotion persists one motion reading. It assigns m.ID when unset.
	InsertMotion(ctx context.Context, m *domain.MotionReading) error
	// InsertPosition persists one position reading. It assigns p.ID when unset.
	InsertPosition(ctx context.Context, p *domain.PositionReading) error

	// ListMotion returns matching motion readings ordered by receipt time
	// ascending, truncated to the filter's limit.
	ListMotion(ctx context.Context, f query.Filter) ([]*domain.MotionReading, error)
	// ListPosition is ListMotion for position readings.
	ListPosition(ctx context.Context, f query.Filter) ([]*domain.PositionReading, error)

	// MotionStats aggregates matching motion readings in a single pass.
	// Stats.Axes is empty when no readings match.
	MotionStats(ctx context.Context, f query.Filter) (*domain.MotionStats, error)

	// CountMotion and CountPosition count matching readings without
	// materializing rows.
	CountMotion(ctx context.Context, f query.Filter) (int64, error)
	CountPosition(ctx context.Context, f query.Filter) (int64, error)

	// DistinctSessions returns the deduplicated union of session identifiers
	// across both record kinds, in no particular order.
	DistinctSessions(ctx context.Context) ([]domain.SessionID, error)
	// DistinctDays returns the union of distinct UTC calendar days with at
	// least one reading of either kind, newest first.
	DistinctDays(ctx context.Context) ([]time.Time, error)

	// LatestPosition returns the position reading with the greatest receipt
	// time, or nil if the store holds none. Error only on store failure.
	LatestPosition(ctx context.Context) (*domain.PositionReading, error)
}
