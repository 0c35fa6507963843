package domain

import (
	"time"

	"go.trai.ch/zerr"
)

// DateLayout is the canonical on-disk date format for series rows.
const DateLayout = "2006-01-02"

// Date is a calendar date in ISO YYYY-MM-DD form.
// The layout is chosen so that lexicographic order equals chronological order,
// which lets series code compare and sort dates as plain strings.
type Date string

// ParseDate validates s against DateLayout and returns it as a Date.
func ParseDate(s string) (Date, error) {
	if _, err := time.Parse(DateLayout, s); err != nil {
		return "", zerr.With(zerr.Wrap(err, "invalid date"), "value", s)
	}
	return Date(s), nil
}

// DateOf truncates t to its calendar date.
func DateOf(t time.Time) Date {
	return Date(t.Format(DateLayout))
}

// Before reports whether d is strictly earlier than o.
func (d Date) Before(o Date) bool { return d < o }

// After reports whether d is strictly later than o.
func (d Date) After(o Date) bool { return d > o }

// IsZero reports whether d is the empty date.
func (d Date) IsZero() bool { return d == "" }

func (d Date) String() string { return string(d) }

// MinDate returns the earlier of a and b, ignoring zero values.
func MinDate(a, b Date) Date {
	if a.IsZero() {
		return b
	}
	if b.IsZero() || a.Before(b) {
		return a
	}
	return b
}

// MaxDate returns the later of a and b.
func MaxDate(a, b Date) Date {
	if a.Before(b) {
		return b
	}
	return a
}

// DateRange is an inclusive span of dates.
type DateRange struct {
	Start Date `json:"start"`
	End   Date `json:"end"`
}

// IsEmpty reports whether the range contains no dates.
func (r DateRange) IsEmpty() bool {
	return r.Start.IsZero() || r.End.IsZero() || r.End.Before(r.Start)
}

// Contains reports whether d falls inside the range.
func (r DateRange) Contains(d Date) bool {
	return !r.IsEmpty() && !d.Before(r.Start) && !d.After(r.End)
}
