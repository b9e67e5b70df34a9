package domain

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// SessionID identifies a contiguous run of readings (e.g. one trip). Sensing
// clients send it as either a JSON number or a string. Every identifier goes
// through ParseSessionID, so a session filter built from a query parameter
// matches records normalized at ingestion.
type SessionID struct {
	// Num holds the identifier when Numeric is true.
	Num int64
	// Text holds the raw identifier when Numeric is false.
	Text string
	// Numeric reports whether the identifier parsed as an integer.
	Numeric bool
}

// ParseSessionID is the canonical parse rule: integer parse of the string
// form, textual fallback. Shared by ingestion and query filtering.
func ParseSessionID(s string) SessionID {
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return SessionID{Num: n, Numeric: true}
	}
	return SessionID{Text: s}
}

// NumericSession returns a numeric SessionID. Mostly used by tests and seed data.
func NumericSession(n int64) SessionID {
	return SessionID{Num: n, Numeric: true}
}

// TextualSession returns a textual SessionID as given, without re-parsing.
func TextualSession(s string) SessionID {
	return SessionID{Text: s}
}

// String returns the identifier in its source form.
func (s SessionID) String() string {
	if s.Numeric {
		return strconv.FormatInt(s.Num, 10)
	}
	return s.Text
}

// Compare is the canonical session comparator: numeric pairs compare as
// numbers, any other pair compares by string form. Returns -1, 0 or 1.
func (s SessionID) Compare(o SessionID) int {
	if s.Numeric && o.Numeric {
		switch {
		case s.Num < o.Num:
			return -1
		case s.Num > o.Num:
			return 1
		default:
			return 0
		}
	}
	return strings.Compare(s.String(), o.String())
}

// UnmarshalJSON accepts a JSON number or string. A number token keeps its
// literal form, so a non-integral number like 7.5 becomes the textual
// identifier "7.5" rather than a float that no filter could match.
func (s *SessionID) UnmarshalJSON(b []byte) error {
	tok := strings.TrimSpace(string(b))
	if tok == "" || tok == "null" {
		return fmt.Errorf("session must be a number or string")
	}
	if tok[0] == '"' {
		var raw string
		if err := json.Unmarshal(b, &raw); err != nil {
			return err
		}
		*s = ParseSessionID(raw)
		return nil
	}
	if tok[0] == '{' || tok[0] == '[' || tok == "true" || tok == "false" {
		return fmt.Errorf("session must be a number or string, got %s", tok)
	}
	*s = ParseSessionID(tok)
	return nil
}

// MarshalJSON writes numeric identifiers as JSON numbers and textual ones as strings.
func (s SessionID) MarshalJSON() ([]byte, error) {
	if s.Numeric {
		return []byte(strconv.FormatInt(s.Num, 10)), nil
	}
	return json.Marshal(s.Text)
}
