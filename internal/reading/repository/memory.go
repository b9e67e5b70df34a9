package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"vehicle-sensor-platform/backend/internal/reading/domain"
	"vehicle-sensor-platform/backend/internal/reading/query"
)

// MemoryRepository is an in-memory Repository. It backs tests and local
// development without a Postgres instance; filtering reuses the same
// query.Filter semantics the SQL implementation renders as WHERE clauses.
type MemoryRepository struct {
	mu       sync.RWMutex
	motion   []*domain.MotionReading
	position []*domain.PositionReading
}

// NewMemoryRepository returns an empty in-memory repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{}
}

// InsertMotion appends a copy of m, assigning m.ID when unset.
func (r *MemoryRepository) InsertMotion(ctx context.Context, m *domain.MotionReading) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	cp := *m
	r.motion = append(r.motion, &cp)
	return nil
}

// InsertPosition appends a copy of p, assigning p.ID when unset.
func (r *MemoryRepository) InsertPosition(ctx context.Context, p *domain.PositionReading) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	cp := *p
	r.position = append(r.position, &cp)
	return nil
}

func (r *MemoryRepository) ListMotion(ctx context.Context, f query.Filter) ([]*domain.MotionReading, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*domain.MotionReading
	for _, m := range r.motion {
		if f.Matches(m.ReceivedAt, m.Session) {
			cp := *m
			out = append(out, &cp)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].ReceivedAt.Before(out[j].ReceivedAt) })
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

func (r *MemoryRepository) ListPosition(ctx context.Context, f query.Filter) ([]*domain.PositionReading, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*domain.PositionReading
	for _, p := range r.position {
		if f.Matches(p.ReceivedAt, p.Session) {
			cp := *p
			out = append(out, &cp)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].ReceivedAt.Before(out[j].ReceivedAt) })
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

func (r *MemoryRepository) MotionStats(ctx context.Context, f query.Filter) (*domain.MotionStats, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	stats := &domain.MotionStats{Axes: map[string]domain.AxisStats{}}
	sums := map[string]float64{}
	for _, m := range r.motion {
		if !f.Matches(m.ReceivedAt, m.Session) {
			continue
		}
		stats.Count++
		for axis, v := range axisValues(m) {
			sums[axis] += v
			cur, ok := stats.Axes[axis]
			if !ok {
				stats.Axes[axis] = domain.AxisStats{Min: v, Max: v}
				continue
			}
			if v < cur.Min {
				cur.Min = v
			}
			if v > cur.Max {
				cur.Max = v
			}
			stats.Axes[axis] = cur
		}
	}
	for axis, cur := range stats.Axes {
		cur.Avg = sums[axis] / float64(stats.Count)
		stats.Axes[axis] = cur
	}
	return stats, nil
}

func (r *MemoryRepository) CountMotion(ctx context.Context, f query.Filter) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var n int64
	for _, m := range r.motion {
		if f.Matches(m.ReceivedAt, m.Session) {
			n++
		}
	}
	return n, nil
}

func (r *MemoryRepository) CountPosition(ctx context.Context, f query.Filter) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var n int64
	for _, p := range r.position {
		if f.Matches(p.ReceivedAt, p.Session) {
			n++
		}
	}
	return n, nil
}

func (r *MemoryRepository) DistinctSessions(ctx context.Context) ([]domain.SessionID, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	seen := map[domain.SessionID]struct{}{}
	var out []domain.SessionID
	add := func(s domain.SessionID) {
		if _, ok := seen[s]; !ok {
			seen[s] = struct{}{}
			out = append(out, s)
		}
	}
	for _, m := range r.motion {
		add(m.Session)
	}
	for _, p := range r.position {
		add(p.Session)
	}
	return out, nil
}

func (r *MemoryRepository) DistinctDays(ctx context.Context) ([]time.Time, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	seen := map[time.Time]struct{}{}
	add := func(at time.Time) {
		u := at.UTC()
		seen[time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)] = struct{}{}
	}
	for _, m := range r.motion {
		add(m.ReceivedAt)
	}
	for _, p := range r.position {
		add(p.ReceivedAt)
	}
	out := make([]time.Time, 0, len(seen))
	for day := range seen {
		out = append(out, day)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].After(out[j]) })
	if len(out) > distinctDayCap {
		out = out[:distinctDayCap]
	}
	return out, nil
}

func (r *MemoryRepository) LatestPosition(ctx context.Context) (*domain.PositionReading, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var latest *domain.PositionReading
	for _, p := range r.position {
		if latest == nil || p.ReceivedAt.After(latest.ReceivedAt) {
			latest = p
		}
	}
	if latest == nil {
		return nil, nil
	}
	cp := *latest
	return &cp, nil
}

func axisValues(m *domain.MotionReading) map[string]float64 {
	return map[string]float64{
		"ax": m.Ax, "ay": m.Ay, "az": m.Az,
		"gx": m.Gx, "gy": m.Gy, "gz": m.Gz,
	}
}
