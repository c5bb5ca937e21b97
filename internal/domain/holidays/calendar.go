package holidays

import "time"

// Set holds holiday dates keyed by YYYY-MM-DD.
type Set map[string]struct{}

func NewSet(dates ...time.Time) Set {
	set := make(Set, len(dates))
	for _, d := range dates {
		set[d.Format(time.DateOnly)] = struct{}{}
	}
	return set
}

func (s Set) Contains(day time.Time) bool {
	_, ok := s[day.Format(time.DateOnly)]
	return ok
}

func IsWeekend(day time.Time) bool {
	wd := day.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}

func IsWorkingDay(day time.Time, set Set) bool {
	return !IsWeekend(day) && !set.Contains(day)
}

// CountWorkingDays counts days in [start, end] that are neither weekend nor
// holiday. Only the calendar date of each bound is used.
func CountWorkingDays(start, end time.Time, set Set) int {
	start = dateOf(start)
	end = dateOf(end)
	count := 0
	for day := start; !day.After(end); day = day.AddDate(0, 0, 1) {
		if IsWorkingDay(day, set) {
			count++
		}
	}
	return count
}

func dateOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
