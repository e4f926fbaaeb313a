// Package timeslot holds the time-of-day helpers shared by schedules and bookings.
//
// Times of day are kept as fixed-width zero-padded "HH:MM" strings, so plain
// string comparison orders them correctly.
package timeslot

import (
	"regexp"
	"sort"
	"time"

	"github.com/go-playground/validator/v10"
)

// Layout is the time-of-day format used throughout the scheduling code.
const Layout = "15:04"

// DateLayout is the calendar date format accepted on the wire.
const DateLayout = "2006-01-02"

var timePattern = regexp.MustCompile(`^([01]\d|2[0-3]):([0-5]\d)$`)

// Interval is a half-open time-of-day range [Start, End).
type Interval struct {
	Start string
	End   string
}

// IsValidTime reports whether s is a 24h zero-padded HH:MM string.
func IsValidTime(s string) bool {
	return timePattern.MatchString(s)
}

// Valid reports whether both bounds are well formed and Start < End.
func (i Interval) Valid() bool {
	return IsValidTime(i.Start) && IsValidTime(i.End) && i.Start < i.End
}

// HasOverlappingSlots reports whether any two intervals overlap. Touching
// bounds do not count. The input slice is not reordered.
func HasOverlappingSlots(slots []Interval) bool {
	if len(slots) < 2 {
		return false
	}
	sorted := make([]Interval, len(slots))
	copy(sorted, slots)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Start < sorted[j].Start })

	end := sorted[0].End
	for _, slot := range sorted[1:] {
		if slot.Start < end {
			return true
		}
		if slot.End > end {
			end = slot.End
		}
	}
	return false
}

// Covers reports whether outer fully contains inner.
func Covers(outer, inner Interval) bool {
	return outer.Start <= inner.Start && outer.End >= inner.End
}

// Overlaps reports whether a and b share any instant.
func Overlaps(a, b Interval) bool {
	return a.Start < b.End && b.Start < a.End
}

// Subtract removes every busy range from free and returns the remaining
// windows in ascending order.
func Subtract(free Interval, busy []Interval) []Interval {
	sorted := make([]Interval, 0, len(busy))
	for _, b := range busy {
		if Overlaps(free, b) {
			sorted = append(sorted, b)
		}
	}
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Start < sorted[j].Start })

	var result []Interval
	cursor := free.Start
	for _, b := range sorted {
		if b.Start > cursor {
			result = append(result, Interval{Start: cursor, End: b.Start})
		}
		if b.End > cursor {
			cursor = b.End
		}
	}
	if cursor < free.End {
		result = append(result, Interval{Start: cursor, End: free.End})
	}
	return result
}

// FromTime formats the local clock time of t as HH:MM.
func FromTime(t time.Time) string {
	return t.Format(Layout)
}

// CalendarDate returns the calendar date of t as observed in loc. Dates are
// carried as midnight UTC so they compare equal regardless of where they were
// produced.
func CalendarDate(t time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.Local
	}
	local := t.In(loc)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, time.UTC)
}

// NormaliseDate drops the time of day from a date already expressed as a
// calendar date, such as a DATE column or a parsed YYYY-MM-DD.
func NormaliseDate(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// ParseDate parses a YYYY-MM-DD string into a calendar date.
func ParseDate(raw string) (time.Time, error) {
	return time.Parse(DateLayout, raw)
}

// At returns the instant of clock time hhmm on date in loc.
func At(date time.Time, hhmm string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.Local
	}
	tod, err := time.Parse(Layout, hhmm)
	if err != nil {
		return time.Time{}, err
	}
	return time.Date(date.Year(), date.Month(), date.Day(), tod.Hour(), tod.Minute(), 0, 0, loc), nil
}

// RegisterValidation adds the "hhmm" tag to v.
func RegisterValidation(v *validator.Validate) error {
	return v.RegisterValidation("hhmm", func(fl validator.FieldLevel) bool {
		return IsValidTime(fl.Field().String())
	})
}
