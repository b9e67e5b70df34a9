// Package domain holds the persisted record types for vehicle motion telemetry.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// MotionReading is one inertial sample (three acceleration axes, three
// rotation-rate axes). Immutable once persisted.
type MotionReading struct {
	ID uuid.UUID
	// SourceTime is the client-reported timestamp, kept in its source form.
	SourceTime string
	Session    SessionID
	Ax, Ay, Az float64
	Gx, Gy, Gz float64
	// ReceivedAt is assigned once, when the reading is accepted for
	// persistence, and drives all time-window filtering.
	ReceivedAt time.Time
}

// PositionReading is one position fix. Immutable once persisted.
type PositionReading struct {
	ID         uuid.UUID
	SourceTime string
	Session    SessionID
	Lat, Lon   float64
	ReceivedAt time.Time
}

// AxisStats is the aggregate for a single axis.
type AxisStats struct {
	Avg, Min, Max float64
}

// MotionStats is a single-pass aggregate over matching motion readings.
// Axes is empty (not zero-filled) when Count is 0; callers must not assume
// numeric defaults for an empty aggregate.
type MotionStats struct {
	Count int64
	// Axes is keyed by axis name: ax, ay, az, gx, gy, gz.
	Axes map[string]AxisStats
}

// AxisNames lists the motion axes in output order.
var AxisNames = []string{"ax", "ay", "az", "gx", "gy", "gz"}
