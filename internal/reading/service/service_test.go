package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"vehicle-sensor-platform/backend/internal/reading/domain"
	"vehicle-sensor-platform/backend/internal/reading/query"
	"vehicle-sensor-platform/backend/internal/reading/repository"
)

func newService(t *testing.T) (*QueryService, *repository.MemoryRepository) {
	t.Helper()
	repo := repository.NewMemoryRepository()
	return New(repo, nil, zap.NewNop()), repo
}

func insertMotion(t *testing.T, repo *repository.MemoryRepository, session domain.SessionID, at time.Time, ax, ay, az float64) {
	t.Helper()
	err := repo.InsertMotion(context.Background(), &domain.MotionReading{
		SourceTime: "1700000000",
		Session:    session,
		Ax:         ax, Ay: ay, Az: az,
		ReceivedAt: at,
	})
	if err != nil {
		t.Fatalf("InsertMotion: %v", err)
	}
}

func insertPosition(t *testing.T, repo *repository.MemoryRepository, session domain.SessionID, at time.Time, lat, lon float64) {
	t.Helper()
	err := repo.InsertPosition(context.Background(), &domain.PositionReading{
		SourceTime: "1700000000",
		Session:    session,
		Lat:        lat, Lon: lon,
		ReceivedAt: at,
	})
	if err != nil {
		t.Fatalf("InsertPosition: %v", err)
	}
}

func TestListMotion_OrderAndLimit(t *testing.T) {
	svc, repo := newService(t)
	base := time.Date(2024, 1, 5, 12, 0, 0, 0, time.UTC)
	insertMotion(t, repo, domain.NumericSession(1), base.Add(2*time.Second), 3, 0, 0)
	insertMotion(t, repo, domain.NumericSession(1), base, 1, 0, 0)
	insertMotion(t, repo, domain.NumericSession(1), base.Add(time.Second), 2, 0, 0)

	list, err := svc.ListMotion(context.Background(), query.Filter{Limit: 2})
	if err != nil {
		t.Fatalf("ListMotion: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("len = %d, want 2 (limit)", len(list))
	}
	if list[0].Ax != 1 || list[1].Ax != 2 {
		t.Errorf("order = [%v %v], want receipt time ascending", list[0].Ax, list[1].Ax)
	}
}

func TestMotionStats_SingleRecord(t *testing.T) {
	svc, repo := newService(t)
	at := time.Date(2024, 1, 5, 12, 0, 0, 0, time.UTC)
	insertMotion(t, repo, domain.NumericSession(7), at, 1, 2, 3)

	sess := domain.NumericSession(7)
	stats, err := svc.MotionStats(context.Background(), query.Filter{Session: &sess})
	if err != nil {
		t.Fatalf("MotionStats: %v", err)
	}
	if stats.Count != 1 {
		t.Fatalf("Count = %d, want 1", stats.Count)
	}
	want := map[string]float64{"ax": 1, "ay": 2, "az": 3, "gx": 0, "gy": 0, "gz": 0}
	for axis, v := range want {
		got, ok := stats.Axes[axis]
		if !ok {
			t.Fatalf("axis %s missing", axis)
		}
		if got.Avg != v || got.Min != v || got.Max != v {
			t.Errorf("axis %s = %+v, want avg=min=max=%v", axis, got, v)
		}
	}
}

func TestMotionStats_Empty(t *testing.T) {
	svc, _ := newService(t)
	stats, err := svc.MotionStats(context.Background(), query.Filter{})
	if err != nil {
		t.Fatalf("MotionStats: %v", err)
	}
	if stats.Count != 0 {
		t.Errorf("Count = %d, want 0", stats.Count)
	}
	if len(stats.Axes) != 0 {
		t.Errorf("Axes = %v, want no axis entries for an empty aggregate", stats.Axes)
	}
}

func TestMotionStats_MinMax(t *testing.T) {
	svc, repo := newService(t)
	at := time.Date(2024, 1, 5, 12, 0, 0, 0, time.UTC)
	insertMotion(t, repo, domain.NumericSession(1), at, -1, 5, 0)
	insertMotion(t, repo, domain.NumericSession(1), at.Add(time.Second), 3, 1, 0)

	stats, err := svc.MotionStats(context.Background(), query.Filter{})
	if err != nil {
		t.Fatalf("MotionStats: %v", err)
	}
	if stats.Count != 2 {
		t.Fatalf("Count = %d, want 2", stats.Count)
	}
	ax := stats.Axes["ax"]
	if ax.Min != -1 || ax.Max != 3 || ax.Avg != 1 {
		t.Errorf("ax = %+v, want min=-1 max=3 avg=1", ax)
	}
	ay := stats.Axes["ay"]
	if ay.Min != 1 || ay.Max != 5 || ay.Avg != 3 {
		t.Errorf("ay = %+v, want min=1 max=5 avg=3", ay)
	}
}

func TestSessions_NumericDescending(t *testing.T) {
	svc, repo := newService(t)
	at := time.Date(2024, 1, 5, 12, 0, 0, 0, time.UTC)
	insertMotion(t, repo, domain.ParseSessionID("7"), at, 1, 0, 0)
	insertPosition(t, repo, domain.ParseSessionID("12"), at, 52.0, 4.0)

	ids, err := svc.Sessions(context.Background())
	if err != nil {
		t.Fatalf("Sessions: %v", err)
	}
	if len(ids) != 2 {
		t.Fatalf("len = %d, want 2", len(ids))
	}
	// "7" > "12" lexicographically; numerically the order must be [12, 7].
	if !ids[0].Numeric || ids[0].Num != 12 || ids[1].Num != 7 {
		t.Errorf("sessions = [%s %s], want [12 7]", ids[0], ids[1])
	}
}

func TestSessions_DedupAcrossKinds(t *testing.T) {
	svc, repo := newService(t)
	at := time.Date(2024, 1, 5, 12, 0, 0, 0, time.UTC)
	// "7" as string and 7 as number normalize to the same SessionID.
	insertMotion(t, repo, domain.ParseSessionID("7"), at, 1, 0, 0)
	insertPosition(t, repo, domain.NumericSession(7), at, 52.0, 4.0)
	insertPosition(t, repo, domain.TextualSession("trip-a"), at, 52.0, 4.0)

	ids, err := svc.Sessions(context.Background())
	if err != nil {
		t.Fatalf("Sessions: %v", err)
	}
	if len(ids) != 2 {
		t.Fatalf("sessions = %v, want deduplicated [trip-a 7]", ids)
	}
}

func TestActiveDays(t *testing.T) {
	svc, repo := newService(t)
	insertPosition(t, repo, domain.NumericSession(1), time.Date(2024, 1, 2, 10, 0, 0, 0, time.UTC), 52, 4)
	insertPosition(t, repo, domain.NumericSession(1), time.Date(2024, 1, 5, 9, 0, 0, 0, time.UTC), 52, 4)
	// Same UTC day as the first, different wall clock.
	insertMotion(t, repo, domain.NumericSession(1), time.Date(2024, 1, 2, 23, 59, 0, 0, time.UTC), 1, 0, 0)

	days, err := svc.ActiveDays(context.Background())
	if err != nil {
		t.Fatalf("ActiveDays: %v", err)
	}
	want := []string{"2024-01-05", "2024-01-02"}
	if len(days) != len(want) {
		t.Fatalf("days = %v, want %v", days, want)
	}
	for i := range want {
		if days[i] != want[i] {
			t.Errorf("days[%d] = %q, want %q", i, days[i], want[i])
		}
	}
}

func TestActiveDays_UTCBucketing(t *testing.T) {
	svc, repo := newService(t)
	// 2024-01-02T23:30-03:00 is 2024-01-03T02:30 UTC.
	loc := time.FixedZone("UTC-3", -3*60*60)
	insertPosition(t, repo, domain.NumericSession(1), time.Date(2024, 1, 2, 23, 30, 0, 0, loc), 52, 4)

	days, err := svc.ActiveDays(context.Background())
	if err != nil {
		t.Fatalf("ActiveDays: %v", err)
	}
	if len(days) != 1 || days[0] != "2024-01-03" {
		t.Errorf("days = %v, want [2024-01-03] (UTC bucketing)", days)
	}
}

func TestLatestPosition_Empty(t *testing.T) {
	svc, _ := newService(t)
	p, err := svc.LatestPosition(context.Background())
	if err != nil {
		t.Fatalf("LatestPosition: %v", err)
	}
	if p != nil {
		t.Errorf("LatestPosition = %+v, want nil for empty store", p)
	}
}

func TestLatestPosition_Newest(t *testing.T) {
	svc, repo := newService(t)
	base := time.Date(2024, 1, 5, 12, 0, 0, 0, time.UTC)
	insertPosition(t, repo, domain.NumericSession(1), base, 50, 3)
	insertPosition(t, repo, domain.NumericSession(2), base.Add(time.Minute), 51, 4)
	insertPosition(t, repo, domain.NumericSession(3), base.Add(30*time.Second), 52, 5)

	p, err := svc.LatestPosition(context.Background())
	if err != nil {
		t.Fatalf("LatestPosition: %v", err)
	}
	if p == nil || p.Lat != 51 {
		t.Errorf("LatestPosition = %+v, want the reading with greatest receipt time", p)
	}
}

type staticCache struct {
	p   *domain.PositionReading
	err error
}

func (c *staticCache) Load(ctx context.Context) (*domain.PositionReading, error) {
	return c.p, c.err
}

func TestLatestPosition_CacheNewerWins(t *testing.T) {
	repo := repository.NewMemoryRepository()
	base := time.Date(2024, 1, 5, 12, 0, 0, 0, time.UTC)
	if err := repo.InsertPosition(context.Background(), &domain.PositionReading{
		Session: domain.NumericSession(1), Lat: 52, Lon: 4, ReceivedAt: base,
	}); err != nil {
		t.Fatalf("InsertPosition: %v", err)
	}
	cached := &domain.PositionReading{
		Lat: 48, Lon: 2, Session: domain.NumericSession(9),
		ReceivedAt: base.Add(time.Minute),
	}
	svc := New(repo, &staticCache{p: cached}, zap.NewNop())

	p, err := svc.LatestPosition(context.Background())
	if err != nil {
		t.Fatalf("LatestPosition: %v", err)
	}
	if p == nil || p.Lat != 48 {
		t.Errorf("LatestPosition = %+v, want the newer cached fix", p)
	}
}

func TestLatestPosition_StaleCacheLosesToStore(t *testing.T) {
	repo := repository.NewMemoryRepository()
	base := time.Date(2024, 1, 5, 12, 0, 0, 0, time.UTC)
	if err := repo.InsertPosition(context.Background(), &domain.PositionReading{
		Session: domain.NumericSession(1), Lat: 52, Lon: 4, ReceivedAt: base.Add(time.Hour),
	}); err != nil {
		t.Fatalf("InsertPosition: %v", err)
	}
	// Cache lags the store, e.g. after updates from a writer without Redis.
	cached := &domain.PositionReading{
		Lat: 48, Lon: 2, Session: domain.NumericSession(9),
		ReceivedAt: base,
	}
	svc := New(repo, &staticCache{p: cached}, zap.NewNop())

	p, err := svc.LatestPosition(context.Background())
	if err != nil {
		t.Fatalf("LatestPosition: %v", err)
	}
	if p == nil || p.Lat != 52 {
		t.Errorf("LatestPosition = %+v, want the store's newer fix over the stale cache", p)
	}
}

func TestLatestPosition_CacheOnlyWhenStoreEmpty(t *testing.T) {
	repo := repository.NewMemoryRepository()
	cached := &domain.PositionReading{Lat: 48, Lon: 2, Session: domain.NumericSession(9)}
	svc := New(repo, &staticCache{p: cached}, zap.NewNop())

	p, err := svc.LatestPosition(context.Background())
	if err != nil {
		t.Fatalf("LatestPosition: %v", err)
	}
	if p == nil || p.Lat != 48 {
		t.Errorf("LatestPosition = %+v, want cached fix", p)
	}
}

// latestFailRepo fails only the latest-position read.
type latestFailRepo struct {
	*repository.MemoryRepository
}

func (latestFailRepo) LatestPosition(context.Context) (*domain.PositionReading, error) {
	return nil, errors.New("store offline")
}

func TestLatestPosition_StoreFailureServesCache(t *testing.T) {
	cached := &domain.PositionReading{
		Lat: 48, Lon: 2, Session: domain.NumericSession(9),
		ReceivedAt: time.Date(2024, 1, 5, 12, 0, 0, 0, time.UTC),
	}
	svc := New(latestFailRepo{repository.NewMemoryRepository()}, &staticCache{p: cached}, zap.NewNop())

	p, err := svc.LatestPosition(context.Background())
	if err != nil {
		t.Fatalf("LatestPosition: %v", err)
	}
	if p == nil || p.Lat != 48 {
		t.Errorf("LatestPosition = %+v, want cached fix when the store read fails", p)
	}

	svc = New(latestFailRepo{repository.NewMemoryRepository()}, nil, zap.NewNop())
	if _, err := svc.LatestPosition(context.Background()); err == nil {
		t.Error("LatestPosition without a cache should surface the store failure")
	}
}

func TestLatestPosition_CacheFailureFallsThrough(t *testing.T) {
	repo := repository.NewMemoryRepository()
	at := time.Date(2024, 1, 5, 12, 0, 0, 0, time.UTC)
	if err := repo.InsertPosition(context.Background(), &domain.PositionReading{
		Session: domain.NumericSession(1), Lat: 52, Lon: 4, ReceivedAt: at,
	}); err != nil {
		t.Fatalf("InsertPosition: %v", err)
	}
	svc := New(repo, &staticCache{err: errors.New("redis down")}, zap.NewNop())

	p, err := svc.LatestPosition(context.Background())
	if err != nil {
		t.Fatalf("LatestPosition: %v", err)
	}
	if p == nil || p.Lat != 52 {
		t.Errorf("LatestPosition = %+v, want store fallback", p)
	}
}

func TestSummarize(t *testing.T) {
	svc, repo := newService(t)
	at := time.Date(2024, 1, 5, 12, 0, 0, 0, time.UTC)
	insertMotion(t, repo, domain.NumericSession(7), at, 1, 0, 0)
	insertMotion(t, repo, domain.NumericSession(8), at, 1, 0, 0)
	insertPosition(t, repo, domain.NumericSession(7), at, 52, 4)

	sum, err := svc.Summarize(context.Background(), query.Filter{})
	if err != nil {
		t.Fatalf("Summarize: %v", err)
	}
	if sum.MotionCount != 2 || sum.PositionCount != 1 {
		t.Errorf("summary = %+v, want imu=2 gps=1", sum)
	}

	sess := domain.NumericSession(7)
	sum, err = svc.Summarize(context.Background(), query.Filter{Session: &sess})
	if err != nil {
		t.Fatalf("Summarize: %v", err)
	}
	if sum.MotionCount != 1 || sum.PositionCount != 1 {
		t.Errorf("filtered summary = %+v, want imu=1 gps=1", sum)
	}
}
