// Package cache holds the Redis hot path for the newest position fix. The
// store remains the source of truth; the cache is best-effort and TTL-bound.
package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/segmentio/encoding/json"

	"vehicle-sensor-platform/backend/internal/reading/domain"
)

const latestPositionKey = "reading:position:latest"

// latestPositionTTL expires the key so a long-idle deployment falls back to
// the store instead of serving an arbitrarily old cached fix.
const latestPositionTTL = 24 * time.Hour

type cachedPosition struct {
	ID         string           `json:"id"`
	Timestamp  string           `json:"timestamp"`
	Session    domain.SessionID `json:"session"`
	Lat        float64          `json:"lat"`
	Lon        float64          `json:"lon"`
	ReceivedAt time.Time        `json:"received_at"`
}

// LatestPosition caches the most recently persisted position fix in Redis.
type LatestPosition struct {
	rdb *redis.Client
}

// NewLatestPosition returns a cache over the given client.
func NewLatestPosition(rdb *redis.Client) *LatestPosition {
	return &LatestPosition{rdb: rdb}
}

// Connect dials Redis and verifies the connection with a ping.
func Connect(ctx context.Context, addr string) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{Addr: addr})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return rdb, nil
}

// Store advances the cached fix to p. An older fix never replaces a newer
// one, so write workers finishing out of order keep the entry monotonic.
// Called after each persisted position; failures are for the caller to log,
// not to surface.
func (c *LatestPosition) Store(ctx context.Context, p *domain.PositionReading) error {
	cur, err := c.Load(ctx)
	if err == nil && !supersedes(cur, p) {
		return nil
	}

	b, err := json.Marshal(cachedPosition{
		ID:         p.ID.String(),
		Timestamp:  p.SourceTime,
		Session:    p.Session,
		Lat:        p.Lat,
		Lon:        p.Lon,
		ReceivedAt: p.ReceivedAt,
	})
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, latestPositionKey, b, latestPositionTTL).Err()
}

// supersedes reports whether p should replace the cached fix cur. Equal
// receipt times replace, refreshing the TTL.
func supersedes(cur, p *domain.PositionReading) bool {
	return cur == nil || !p.ReceivedAt.Before(cur.ReceivedAt)
}

// Load returns the cached fix, or nil on a cache miss.
func (c *LatestPosition) Load(ctx context.Context) (*domain.PositionReading, error) {
	b, err := c.rdb.Get(ctx, latestPositionKey).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}
	var cp cachedPosition
	if err := json.Unmarshal(b, &cp); err != nil {
		return nil, err
	}
	p := &domain.PositionReading{
		SourceTime: cp.Timestamp,
		Session:    cp.Session,
		Lat:        cp.Lat,
		Lon:        cp.Lon,
		ReceivedAt: cp.ReceivedAt,
	}
	if id, err := uuid.Parse(cp.ID); err == nil {
		p.ID = id
	}
	return p, nil
}
