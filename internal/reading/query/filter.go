// Package query translates caller-supplied window/session parameters into a
// normalized filter plus an effective limit.
package query

import (
	"time"

	"vehicle-sensor-platform/backend/internal/reading/domain"
)

// DefaultLimit is the result cap applied when the caller does not supply one.
const DefaultLimit = 2000

// SessionAll is the session selector meaning "no session restriction".
const SessionAll = "all"

// Params are the raw selections a caller supplies. Nil pointer fields mean
// "not supplied".
type Params struct {
	// Minutes selects a trailing window of receipt time. Takes precedence
	// over From/To when both are supplied. Fractional values are allowed.
	Minutes *float64
	// From and To bound receipt time inclusively; either may be open.
	From *time.Time
	To   *time.Time
	// Session is the session selector; empty or "all" means no restriction.
	Session string
	// Limit caps the number of returned records. Values <= 0 disable the cap.
	Limit *int
}

// Filter is a normalized record filter. Zero time bounds are open ends.
type Filter struct {
	// Since and Until bound receipt time inclusively when non-zero.
	Since time.Time
	Until time.Time
	// Session restricts to one normalized SessionID when non-nil.
	Session *domain.SessionID
	// Limit caps list results; <= 0 means uncapped.
	Limit int
}

// Build normalizes p against the given instant. now is a parameter so the
// inclusive trailing-window boundary is testable.
func Build(p Params, now time.Time) Filter {
	f := Filter{Limit: DefaultLimit}

	if p.Minutes != nil {
		f.Since = now.Add(-time.Duration(*p.Minutes * float64(time.Minute)))
	} else {
		if p.From != nil {
			f.Since = *p.From
		}
		if p.To != nil {
			f.Until = *p.To
		}
	}

	if p.Session != "" && p.Session != SessionAll {
		id := domain.ParseSessionID(p.Session)
		f.Session = &id
	}

	if p.Limit != nil {
		f.Limit = *p.Limit
	}

	return f
}

// Matches reports whether a record with the given receipt time and session
// satisfies the filter. Both time bounds are inclusive.
func (f Filter) Matches(receivedAt time.Time, session domain.SessionID) bool {
	if !f.Since.IsZero() && receivedAt.Before(f.Since) {
		return false
	}
	if !f.Until.IsZero() && receivedAt.After(f.Until) {
		return false
	}
	if f.Session != nil && f.Session.Compare(session) != 0 {
		return false
	}
	return true
}
