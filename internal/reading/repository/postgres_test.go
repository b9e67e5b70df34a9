package repository

import (
	"database/sql"
	"testing"
	"time"

	"vehicle-sensor-platform/backend/internal/reading/domain"
	"vehicle-sensor-platform/backend/internal/reading/query"
)

func TestFilterWhere_Empty(t *testing.T) {
	where, args := filterWhere(query.Filter{})
	if where != "" {
		t.Errorf("where = %q, want empty", where)
	}
	if len(args) != 0 {
		t.Errorf("args = %v, want none", args)
	}
}

func TestFilterWhere_Window(t *testing.T) {
	since := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	until := time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC)

	where, args := filterWhere(query.Filter{Since: since, Until: until})
	if where != " WHERE received_at >= $1 AND received_at <= $2" {
		t.Errorf("where = %q", where)
	}
	if len(args) != 2 || args[0] != since || args[1] != until {
		t.Errorf("args = %v", args)
	}

	where, args = filterWhere(query.Filter{Until: until})
	if where != " WHERE received_at <= $1" {
		t.Errorf("open lower bound where = %q", where)
	}
	if len(args) != 1 {
		t.Errorf("args = %v", args)
	}
}

func TestFilterWhere_Session(t *testing.T) {
	num := domain.NumericSession(7)
	where, args := filterWhere(query.Filter{Session: &num})
	if where != " WHERE session_num = $1" {
		t.Errorf("numeric where = %q", where)
	}
	if len(args) != 1 || args[0] != int64(7) {
		t.Errorf("numeric args = %v", args)
	}

	text := domain.TextualSession("trip-a")
	where, args = filterWhere(query.Filter{Session: &text})
	if where != " WHERE session_text = $1" {
		t.Errorf("textual where = %q", where)
	}
	if len(args) != 1 || args[0] != "trip-a" {
		t.Errorf("textual args = %v", args)
	}
}

func TestFilterWhere_Combined(t *testing.T) {
	since := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	sess := domain.NumericSession(7)
	where, args := filterWhere(query.Filter{Since: since, Session: &sess})
	if where != " WHERE received_at >= $1 AND session_num = $2" {
		t.Errorf("where = %q", where)
	}
	if len(args) != 2 {
		t.Errorf("args = %v", args)
	}
}

func TestLimitClause(t *testing.T) {
	if c := limitClause(query.Filter{Limit: 2000}); c != " LIMIT 2000" {
		t.Errorf("limit 2000 = %q", c)
	}
	if c := limitClause(query.Filter{Limit: 0}); c != "" {
		t.Errorf("limit 0 = %q, want uncapped", c)
	}
	if c := limitClause(query.Filter{Limit: -1}); c != "" {
		t.Errorf("limit -1 = %q, want uncapped", c)
	}
}

func TestSessionColumns_RoundTrip(t *testing.T) {
	num, text := sessionColumns(domain.NumericSession(42))
	if !num.Valid || num.Int64 != 42 || text.Valid {
		t.Errorf("numeric columns = (%v, %v)", num, text)
	}
	if got := sessionFromColumns(num, text); !got.Numeric || got.Num != 42 {
		t.Errorf("round trip numeric = %+v", got)
	}

	num, text = sessionColumns(domain.TextualSession("trip-a"))
	if num.Valid || !text.Valid || text.String != "trip-a" {
		t.Errorf("textual columns = (%v, %v)", num, text)
	}
	if got := sessionFromColumns(num, text); got.Numeric || got.Text != "trip-a" {
		t.Errorf("round trip textual = %+v", got)
	}

	// Exactly one column is set either way; NULL/NULL never round-trips as numeric.
	if got := sessionFromColumns(sql.NullInt64{}, sql.NullString{}); got.Numeric {
		t.Errorf("null columns = %+v, want textual empty", got)
	}
}
