package attendance

import (
	"fmt"
	"strings"
	"time"
)

// wholeMinutes truncates d to whole minutes. Callers only pass non-negative
// durations, so truncation is a floor.
func wholeMinutes(d time.Duration) int {
	return int(d / time.Minute)
}

// Compute derives lateness, early departure and worked time. A missing
// check-in means the user never showed up; a missing check-out leaves early
// departure and worked minutes at zero.
func Compute(checkIn, checkOut *time.Time, scheduledStart, scheduledEnd time.Time) Metrics {
	if checkIn == nil {
		return Metrics{Status: StatusAbsent}
	}
	var m Metrics
	if checkIn.After(scheduledStart) {
		m.IsLate = true
		m.LateMinutes = wholeMinutes(checkIn.Sub(scheduledStart))
	}
	if checkOut != nil {
		if checkOut.Before(scheduledEnd) {
			m.IsEarlyDeparture = true
			m.EarlyDepartureMinutes = wholeMinutes(scheduledEnd.Sub(*checkOut))
		}
		if !checkOut.Before(*checkIn) {
			m.WorkedMinutes = wholeMinutes(checkOut.Sub(*checkIn))
		}
	}
	switch {
	case m.IsLate:
		m.Status = StatusLate
	case m.IsEarlyDeparture:
		m.Status = StatusEarlyDeparture
	default:
		m.Status = StatusPresent
	}
	return m
}

// Schedule is the tenant work day, expressed as wall clock times in Location.
type Schedule struct {
	Start    string
	End      string
	Location *time.Location
}

func (s Schedule) loc() *time.Location {
	if s.Location == nil {
		return time.UTC
	}
	return s.Location
}

// WorkDate returns the calendar date of t in the schedule's location, as
// midnight UTC so it maps cleanly onto a DATE column.
func (s Schedule) WorkDate(t time.Time) time.Time {
	y, m, d := t.In(s.loc()).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Bounds returns the scheduled start and end instants for workDate.
func (s Schedule) Bounds(workDate time.Time) (time.Time, time.Time, error) {
	start, err := clock(s.Start)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("work day start: %w", err)
	}
	end, err := clock(s.End)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("work day end: %w", err)
	}
	y, m, d := workDate.Date()
	loc := s.loc()
	return time.Date(y, m, d, start.Hour(), start.Minute(), 0, 0, loc),
		time.Date(y, m, d, end.Hour(), end.Minute(), 0, 0, loc), nil
}

func clock(value string) (time.Time, error) {
	return time.Parse("15:04", strings.TrimSpace(value))
}
