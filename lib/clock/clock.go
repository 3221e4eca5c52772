package clock

import "time"

const (
	dayLayout   = "2006-01-02"
	monthLayout = "2006-01"
)

func Now() string {
	return time.Now().UTC().Format("2006-01-02T15:04:05Z")
}

// DayKey formats a time as a daily series bucket.
func DayKey(t time.Time) string {
	return t.UTC().Format(dayLayout)
}

// MonthKey formats a time as a monthly series/rollup bucket.
func MonthKey(t time.Time) string {
	return t.UTC().Format(monthLayout)
}

// MonthStart returns midnight UTC on the first day of t's month.
func MonthStart(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), 1, 0, 0, 0, 0, time.UTC)
}

// DayStart returns midnight UTC of t's day.
func DayStart(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}
