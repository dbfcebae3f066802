package ledger

import (
	"regexp"
	"strconv"
	"strings"
)

// =============================================================================
// PERIOD - Inclusive reporting window
// =============================================================================

// Period defines the [Start, End] window a statement covers. Both bounds are
// inclusive calendar days.
type Period struct {
	Start TimePoint `json:"start"`
	End   TimePoint `json:"end"`
}

// Contains returns true if the time point is within the period [Start, End]
func (p Period) Contains(t TimePoint) bool {
	return t.AfterOrEqual(p.Start) && t.BeforeOrEqual(p.End)
}

// Validate rejects periods whose end precedes their start.
func (p Period) Validate() error {
	if p.End.Before(p.Start) {
		return &InputError{Field: "period", Value: p.String(), Err: ErrInvalidPeriod}
	}
	return nil
}

// String returns a string representation of the period.
func (p Period) String() string {
	return "[" + p.Start.String() + ", " + p.End.String() + "]"
}

// =============================================================================
// YEAR - Calendar-year reporting period
// =============================================================================

// Year is a four-digit calendar year used as a statement period.
type Year int

var fourDigits = regexp.MustCompile(`^[0-9]{4}$`)

// ParseYear parses a reporting period. Only exactly four digits are accepted.
func ParseYear(s string) (Year, error) {
	s = strings.TrimSpace(s)
	if !fourDigits.MatchString(s) {
		return 0, &InputError{Field: "period", Value: s, Err: ErrInvalidPeriod}
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, &InputError{Field: "period", Value: s, Err: ErrInvalidPeriod}
	}
	return Year(n), nil
}

// Validate checks the year is representable as four digits.
func (y Year) Validate() error {
	if y < 1000 || y > 9999 {
		return &InputError{Field: "period", Value: strconv.Itoa(int(y)), Err: ErrInvalidPeriod}
	}
	return nil
}

// Period returns [YYYY-01-01, YYYY-12-31].
func (y Year) Period() Period {
	return Period{Start: StartOfYear(int(y)), End: EndOfYear(int(y))}
}

func (y Year) String() string { return strconv.Itoa(int(y)) }
