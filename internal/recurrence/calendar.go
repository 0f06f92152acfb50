package recurrence

import "time"

// Calendar arithmetic on wall-clock time. Every helper keeps the hour, minute,
// second, nanosecond and location of its input.

func AddDays(t time.Time, n int) time.Time {
	return t.AddDate(0, 0, n)
}

func AddWeeks(t time.Time, n int) time.Time {
	return AddDays(t, 7*n)
}

// AddMonthsPreservingDay moves t by n months. When the target month is
// shorter than t's day of month the result is the target month's last day;
// it never spills into the following month.
func AddMonthsPreservingDay(t time.Time, n int) time.Time {
	y, m, d := t.Date()
	first := time.Date(y, m+time.Month(n), 1, 0, 0, 0, 0, t.Location())
	ty, tm, _ := first.Date()
	if last := DaysInMonth(ty, tm); d > last {
		d = last
	}
	return time.Date(ty, tm, d, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
}

// AddYearsWithLeapClamp moves t by n years. Feb 29 becomes Feb 28 when the
// target year is not a leap year.
func AddYearsWithLeapClamp(t time.Time, n int) time.Time {
	y, m, d := t.Date()
	ty := y + n
	if m == time.February && d == 29 && !IsLeapYear(ty) {
		d = 28
	}
	return time.Date(ty, m, d, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
}

func IsLeapYear(y int) bool {
	return (y%4 == 0 && y%100 != 0) || y%400 == 0
}

func DaysInMonth(y int, m time.Month) int {
	// Day 0 of the next month is the last day of m.
	return time.Date(y, m+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// EndOfDay returns the last representable instant of day's calendar date in loc.
func EndOfDay(day time.Time, loc *time.Location) time.Time {
	y, m, d := day.Date()
	return time.Date(y, m, d, 23, 59, 59, int(time.Second-time.Nanosecond), loc)
}
