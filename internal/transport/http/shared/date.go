package shared

import (
	"fmt"
	"time"
)

const (
	DateLayout   = "2006-01-02"
	PeriodLayout = "2006-01"
)

// ParseDate accepts RFC3339 or YYYY-MM-DD.
func ParseDate(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, nil
	}
	if parsed, err := time.Parse(time.RFC3339, value); err == nil {
		return parsed, nil
	}
	return time.Parse(DateLayout, value)
}

func ParsePeriod(value string) (time.Time, error) {
	parsed, err := time.Parse(PeriodLayout, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid period %q", value)
	}
	return parsed, nil
}

// DateRange reads optional from/to query values. Either may be empty.
func DateRange(from, to string) (*time.Time, *time.Time, error) {
	var start, end *time.Time
	if from != "" {
		parsed, err := ParseDate(from)
		if err != nil {
			return nil, nil, fmt.Errorf("invalid from date")
		}
		start = &parsed
	}
	if to != "" {
		parsed, err := ParseDate(to)
		if err != nil {
			return nil, nil, fmt.Errorf("invalid to date")
		}
		end = &parsed
	}
	if start != nil && end != nil && end.Before(*start) {
		return nil, nil, fmt.Errorf("to date before from date")
	}
	return start, end, nil
}
