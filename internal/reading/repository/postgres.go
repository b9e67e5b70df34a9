package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"vehicle-sensor-platform/backend/internal/reading/domain"
	"vehicle-sensor-platform/backend/internal/reading/query"
)

// distinctDayCap bounds the distinct-active-days scan to the most recent days.
const distinctDayCap = 90

type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns a reading repository that uses the given db for persistence.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// InsertMotion persists the motion reading. It assigns m.ID when unset.
func (r *PostgresRepository) InsertMotion(ctx context.Context, m *domain.MotionReading) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	num, text := sessionColumns(m.Session)
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO motion_readings
			(id, source_ts, session_num, session_text, ax, ay, az, gx, gy, gz, received_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		m.ID, m.SourceTime, num, text, m.Ax, m.Ay, m.Az, m.Gx, m.Gy, m.Gz, m.ReceivedAt)
	if err != nil {
		return fmt.Errorf("insert motion reading: %w", err)
	}
	return nil
}

// InsertPosition persists the position reading. It assigns p.ID when unset.
func (r *PostgresRepository) InsertPosition(ctx context.Context, p *domain.PositionReading) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	num, text := sessionColumns(p.Session)
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO position_readings
			(id, source_ts, session_num, session_text, lat, lon, received_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		p.ID, p.SourceTime, num, text, p.Lat, p.Lon, p.ReceivedAt)
	if err != nil {
		return fmt.Errorf("insert position reading: %w", err)
	}
	return nil
}

// ListMotion returns matching motion readings ordered by receipt time ascending.
func (r *PostgresRepository) ListMotion(ctx context.Context, f query.Filter) ([]*domain.MotionReading, error) {
	where, args := filterWhere(f)
	q := `
		SELECT id, source_ts, session_num, session_text, ax, ay, az, gx, gy, gz, received_at
		FROM motion_readings` + where + ` ORDER BY received_at ASC` + limitClause(f)
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list motion readings: %w", err)
	}
	defer rows.Close()

	var out []*domain.MotionReading
	for rows.Next() {
		var (
			m    domain.MotionReading
			num  sql.NullInt64
			text sql.NullString
		)
		if err := rows.Scan(&m.ID, &m.SourceTime, &num, &text,
			&m.Ax, &m.Ay, &m.Az, &m.Gx, &m.Gy, &m.Gz, &m.ReceivedAt); err != nil {
			return nil, err
		}
		m.Session = sessionFromColumns(num, text)
		out = append(out, &m)
	}
	return out, rows.Err()
}

// ListPosition returns matching position readings ordered by receipt time ascending.
func (r *PostgresRepository) ListPosition(ctx context.Context, f query.Filter) ([]*domain.PositionReading, error) {
	where, args := filterWhere(f)
	q := `
		SELECT id, source_ts, session_num, session_text, lat, lon, received_at
		FROM position_readings` + where + ` ORDER BY received_at ASC` + limitClause(f)
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list position readings: %w", err)
	}
	defer rows.Close()

	var out []*domain.PositionReading
	for rows.Next() {
		p, err := scanPosition(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// MotionStats aggregates matching motion readings in one scan. The aggregate
// functions run server-side; zero matches yields NULL averages, mapped here
// to an explicitly empty Axes map.
func (r *PostgresRepository) MotionStats(ctx context.Context, f query.Filter) (*domain.MotionStats, error) {
	where, args := filterWhere(f)
	q := `
		SELECT COUNT(*),
			AVG(ax), MIN(ax), MAX(ax),
			AVG(ay), MIN(ay), MAX(ay),
			AVG(az), MIN(az), MAX(az),
			AVG(gx), MIN(gx), MAX(gx),
			AVG(gy), MIN(gy), MAX(gy),
			AVG(gz), MIN(gz), MAX(gz)
		FROM motion_readings` + where

	var count int64
	agg := make([]sql.NullFloat64, 18)
	dest := make([]any, 0, 19)
	dest = append(dest, &count)
	for i := range agg {
		dest = append(dest, &agg[i])
	}
	if err := r.db.QueryRowContext(ctx, q, args...).Scan(dest...); err != nil {
		return nil, fmt.Errorf("motion stats: %w", err)
	}

	stats := &domain.MotionStats{Count: count, Axes: map[string]domain.AxisStats{}}
	if count == 0 {
		return stats, nil
	}
	for i, axis := range domain.AxisNames {
		stats.Axes[axis] = domain.AxisStats{
			Avg: agg[i*3].Float64,
			Min: agg[i*3+1].Float64,
			Max: agg[i*3+2].Float64,
		}
	}
	return stats, nil
}

// CountMotion counts matching motion readings.
func (r *PostgresRepository) CountMotion(ctx context.Context, f query.Filter) (int64, error) {
	return r.count(ctx, "motion_readings", f)
}

// CountPosition counts matching position readings.
func (r *PostgresRepository) CountPosition(ctx context.Context, f query.Filter) (int64, error) {
	return r.count(ctx, "position_readings", f)
}

func (r *PostgresRepository) count(ctx context.Context, table string, f query.Filter) (int64, error) {
	where, args := filterWhere(f)
	var n int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM `+table+where, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count %s: %w", table, err)
	}
	return n, nil
}

// DistinctSessions returns the deduplicated union of session identifiers
// across both record kinds. UNION deduplicates on the column pair, which is
// exactly post-normalization SessionID equality.
func (r *PostgresRepository) DistinctSessions(ctx context.Context) ([]domain.SessionID, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT session_num, session_text FROM motion_readings
		UNION
		SELECT session_num, session_text FROM position_readings`)
	if err != nil {
		return nil, fmt.Errorf("distinct sessions: %w", err)
	}
	defer rows.Close()

	var out []domain.SessionID
	for rows.Next() {
		var (
			num  sql.NullInt64
			text sql.NullString
		)
		if err := rows.Scan(&num, &text); err != nil {
			return nil, err
		}
		out = append(out, sessionFromColumns(num, text))
	}
	return out, rows.Err()
}

// DistinctDays returns the distinct UTC calendar days with at least one
// reading of either kind, newest first, capped to the most recent days.
func (r *PostgresRepository) DistinctDays(ctx context.Context) ([]time.Time, error) {
	rows, err := r.db.QueryContext(ctx, fmt.Sprintf(`
		SELECT day FROM (
			SELECT (received_at AT TIME ZONE 'UTC')::date AS day FROM motion_readings
			UNION
			SELECT (received_at AT TIME ZONE 'UTC')::date FROM position_readings
		) AS days
		ORDER BY day DESC
		LIMIT %d`, distinctDayCap))
	if err != nil {
		return nil, fmt.Errorf("distinct days: %w", err)
	}
	defer rows.Close()

	var out []time.Time
	for rows.Next() {
		var day time.Time
		if err := rows.Scan(&day); err != nil {
			return nil, err
		}
		out = append(out, day)
	}
	return out, rows.Err()
}

// LatestPosition returns the newest position reading by receipt time, or nil
// when the store holds none.
func (r *PostgresRepository) LatestPosition(ctx context.Context) (*domain.PositionReading, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, source_ts, session_num, session_text, lat, lon, received_at
		FROM position_readings
		ORDER BY received_at DESC
		LIMIT 1`)
	p, err := scanPosition(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("latest position: %w", err)
	}
	return p, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPosition(row rowScanner) (*domain.PositionReading, error) {
	var (
		p    domain.PositionReading
		num  sql.NullInt64
		text sql.NullString
	)
	if err := row.Scan(&p.ID, &p.SourceTime, &num, &text, &p.Lat, &p.Lon, &p.ReceivedAt); err != nil {
		return nil, err
	}
	p.Session = sessionFromColumns(num, text)
	return &p, nil
}

// filterWhere renders the normalized filter as a WHERE clause. Both receipt
// time bounds are inclusive, matching the filter contract.
func filterWhere(f query.Filter) (string, []any) {
	var (
		conds []string
		args  []any
	)
	if !f.Since.IsZero() {
		args = append(args, f.Since)
		conds = append(conds, fmt.Sprintf("received_at >= $%d", len(args)))
	}
	if !f.Until.IsZero() {
		args = append(args, f.Until)
		conds = append(conds, fmt.Sprintf("received_at <= $%d", len(args)))
	}
	if f.Session != nil {
		if f.Session.Numeric {
			args = append(args, f.Session.Num)
			conds = append(conds, fmt.Sprintf("session_num = $%d", len(args)))
		} else {
			args = append(args, f.Session.Text)
			conds = append(conds, fmt.Sprintf("session_text = $%d", len(args)))
		}
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func limitClause(f query.Filter) string {
	if f.Limit <= 0 {
		return ""
	}
	return fmt.Sprintf(" LIMIT %d", f.Limit)
}

func sessionColumns(s domain.SessionID) (sql.NullInt64, sql.NullString) {
	if s.Numeric {
		return sql.NullInt64{Int64: s.Num, Valid: true}, sql.NullString{}
	}
	return sql.NullInt64{}, sql.NullString{String: s.Text, Valid: true}
}

func sessionFromColumns(num sql.NullInt64, text sql.NullString) domain.SessionID {
	if num.Valid {
		return domain.NumericSession(num.Int64)
	}
	return domain.TextualSession(text.String)
}
