package util

import "time"

// PreviousPeriod returns the year and month of the period before the given
// one, wrapping the year boundary (January's previous period is December of
// the prior year).
func PreviousPeriod(year, month int) (int, int) {
	if month == 1 {
		return year - 1, 12
	}
	return year, month - 1
}

// CurrentPeriod returns the year and month of the current wall-clock period.
func CurrentPeriod(now time.Time) (int, int) {
	return now.Year(), int(now.Month())
}

// ClampedDate returns the date for targetDay in the given month, clamping to
// the last day of short months (day 31 in February returns Feb 28/29).
func ClampedDate(year int, month time.Month, targetDay int) time.Time {
	// Day 0 of the next month is the last day of this one
	lastDay := time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()

	actualDay := targetDay
	if actualDay < 1 {
		actualDay = 1
	}
	if actualDay > lastDay {
		actualDay = lastDay
	}

	return time.Date(year, month, actualDay, 0, 0, 0, 0, time.UTC)
}
