package model

import "time"

// Frequency is the unit a recurrence pattern repeats in.
type Frequency string

const (
	FrequencyDaily   Frequency = "daily"
	FrequencyWeekly  Frequency = "weekly"
	FrequencyMonthly Frequency = "monthly"
)

// RecurrencePattern governs how the successor of a delivered reminder is scheduled.
type RecurrencePattern struct {
	Frequency Frequency  `json:"frequency"`
	Interval  int        `json:"interval"`
	EndDate   *time.Time `json:"endDate,omitempty"`
}

// NextOccurrence returns the occurrence following from. The second value is false when the
// frequency is not one of daily, weekly or monthly.
//
// Monthly steps clamp to the last day of the target month, so Jan 31 + 1 month is Feb 28
// (or 29) rather than rolling into March.
func (p RecurrencePattern) NextOccurrence(from time.Time) (time.Time, bool) {
	interval := p.Interval
	if interval < 1 {
		interval = 1
	}

	switch p.Frequency {
	case FrequencyDaily:
		return from.AddDate(0, 0, interval), true
	case FrequencyWeekly:
		return from.AddDate(0, 0, 7*interval), true
	case FrequencyMonthly:
		return addMonthsClamped(from, interval), true
	default:
		return time.Time{}, false
	}
}

// Ends reports whether next falls after the pattern's end date.
func (p RecurrencePattern) Ends(next time.Time) bool {
	return p.EndDate != nil && next.After(*p.EndDate)
}

func addMonthsClamped(from time.Time, months int) time.Time {
	y, m, d := from.Date()
	loc := from.Location()

	first := time.Date(y, m, 1, 0, 0, 0, 0, loc).AddDate(0, months, 0)
	ty, tm, _ := first.Date()
	if last := daysIn(ty, tm, loc); d > last {
		d = last
	}
	return time.Date(ty, tm, d, from.Hour(), from.Minute(), from.Second(), from.Nanosecond(), loc)
}

func daysIn(y int, m time.Month, loc *time.Location) int {
	return time.Date(y, m+1, 0, 0, 0, 0, 0, loc).Day()
}
