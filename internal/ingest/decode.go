// Package ingest receives readings from the pub/sub channels, validates and
// normalizes them, and writes them to the record store.
package ingest

import (
	"fmt"
	"strings"
	"time"

	"github.com/segmentio/encoding/json"

	"vehicle-sensor-platform/backend/internal/reading/domain"
)

// sourceTime accepts the client-reported timestamp as either a JSON number or
// a string, keeping number tokens in their literal form.
type sourceTime string

func (t *sourceTime) UnmarshalJSON(b []byte) error {
	tok := strings.TrimSpace(string(b))
	if tok == "" || tok == "null" {
		return fmt.Errorf("timestamp must be a number or string")
	}
	if tok[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*t = sourceTime(s)
		return nil
	}
	if tok[0] == '{' || tok[0] == '[' || tok == "true" || tok == "false" {
		return fmt.Errorf("timestamp must be a number or string, got %s", tok)
	}
	*t = sourceTime(tok)
	return nil
}

type vec3 struct {
	X *float64 `json:"x"`
	Y *float64 `json:"y"`
	Z *float64 `json:"z"`
}

type latLon struct {
	Lat *float64 `json:"lat"`
	Lon *float64 `json:"lon"`
}

type motionPayload struct {
	Timestamp *sourceTime       `json:"timestamp"`
	Session   *domain.SessionID `json:"session"`
	Acc       *vec3             `json:"acc"`
	Gyro      *vec3             `json:"gyro"`
}

type positionPayload struct {
	Timestamp *sourceTime       `json:"timestamp"`
	Session   *domain.SessionID `json:"session"`
	GPS       *latLon           `json:"gps"`
}

// DecodeMotion validates a motion channel payload and builds the typed record
// with the given receipt time. All three acceleration axes are required;
// missing rotation-rate axes default to zero, each independently.
func DecodeMotion(payload []byte, receivedAt time.Time) (*domain.MotionReading, error) {
	var p motionPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return nil, fmt.Errorf("parse motion payload: %w", err)
	}
	if p.Timestamp == nil {
		return nil, fmt.Errorf("motion payload missing timestamp")
	}
	if p.Session == nil {
		return nil, fmt.Errorf("motion payload missing session")
	}
	if p.Acc == nil {
		return nil, fmt.Errorf("motion payload missing acc")
	}
	for axis, v := range map[string]*float64{"x": p.Acc.X, "y": p.Acc.Y, "z": p.Acc.Z} {
		if v == nil {
			return nil, fmt.Errorf("motion payload missing acc.%s", axis)
		}
	}

	m := &domain.MotionReading{
		SourceTime: string(*p.Timestamp),
		Session:    *p.Session,
		Ax:         *p.Acc.X,
		Ay:         *p.Acc.Y,
		Az:         *p.Acc.Z,
		ReceivedAt: receivedAt,
	}
	if p.Gyro != nil {
		if p.Gyro.X != nil {
			m.Gx = *p.Gyro.X
		}
		if p.Gyro.Y != nil {
			m.Gy = *p.Gyro.Y
		}
		if p.Gyro.Z != nil {
			m.Gz = *p.Gyro.Z
		}
	}
	return m, nil
}

// DecodePosition validates a position channel payload and builds the typed
// record with the given receipt time. Both coordinates are required.
func DecodePosition(payload []byte, receivedAt time.Time) (*domain.PositionReading, error) {
	var p positionPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return nil, fmt.Errorf("parse position payload: %w", err)
	}
	if p.Timestamp == nil {
		return nil, fmt.Errorf("position payload missing timestamp")
	}
	if p.Session == nil {
		return nil, fmt.Errorf("position payload missing session")
	}
	if p.GPS == nil {
		return nil, fmt.Errorf("position payload missing gps")
	}
	if p.GPS.Lat == nil {
		return nil, fmt.Errorf("position payload missing gps.lat")
	}
	if p.GPS.Lon == nil {
		return nil, fmt.Errorf("position payload missing gps.lon")
	}

	return &domain.PositionReading{
		SourceTime: string(*p.Timestamp),
		Session:    *p.Session,
		Lat:        *p.GPS.Lat,
		Lon:        *p.GPS.Lon,
		ReceivedAt: receivedAt,
	}, nil
}
