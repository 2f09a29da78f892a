// Package schedule expands one recurring booking request into its calendar
// dates.
package schedule

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"
)

type Cadence string

const (
	Weekly   Cadence = "weekly"
	Biweekly Cadence = "biweekly"
	Monthly  Cadence = "monthly"
)

var (
	ErrInvalidCadence     = errors.New("invalid cadence")
	ErrInvalidOccurrences = errors.New("invalid occurrences")
)

// Occurrences is the menu of series lengths clients may pick from.
var Occurrences = []int{2, 3, 4, 5, 6, 8, 10, 12}

func ParseCadence(s string) (Cadence, error) {
	switch c := Cadence(strings.ToLower(strings.TrimSpace(s))); c {
	case Weekly, Biweekly, Monthly:
		return c, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidCadence, s)
}

func ValidateOccurrences(n int) error {
	if !slices.Contains(Occurrences, n) {
		return fmt.Errorf("%w: %d not in %v", ErrInvalidOccurrences, n, Occurrences)
	}
	return nil
}

// Dates returns count dates starting at start. Every date is derived from
// start and its index, never from the previous date, so a clamped month does
// not drag the rest of the series: 2024-01-31 monthly gives Jan 31, Feb 29,
// Mar 31.
//
// Callers validate cadence and count; a count below one yields no dates.
func Dates(start time.Time, c Cadence, count int) []time.Time {
	if count < 1 {
		return nil
	}
	out := make([]time.Time, count)
	for i := range out {
		out[i] = c.Nth(start, i)
	}
	return out
}

// Nth returns the i-th occurrence (0-based) of the series beginning at start.
func (c Cadence) Nth(start time.Time, i int) time.Time {
	switch c {
	case Weekly:
		return start.AddDate(0, 0, 7*i)
	case Biweekly:
		return start.AddDate(0, 0, 14*i)
	default:
		return AddMonthsClamped(start, i)
	}
}

// AddMonthsClamped adds n calendar months, pinning the day to the last day of
// the target month when it would overflow. time.AddDate would instead roll
// Jan 31 + 1 month into March.
func AddMonthsClamped(t time.Time, n int) time.Time {
	y, m, d := t.Date()
	first := time.Date(y, m+time.Month(n), 1, 0, 0, 0, 0, t.Location())
	if last := daysIn(first.Year(), first.Month(), t.Location()); d > last {
		d = last
	}
	return time.Date(first.Year(), first.Month(), d, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
}

func daysIn(y int, m time.Month, loc *time.Location) int {
	return time.Date(y, m+1, 0, 0, 0, 0, 0, loc).Day()
}
