package attendance

import (
	"testing"
	"time"
)

func at(hhmm string) time.Time {
	t, err := time.Parse("2006-01-02 15:04:05", "2024-05-13 "+hhmm)
	if err != nil {
		panic(err)
	}
	return t
}

func ptr(t time.Time) *time.Time { return &t }

func TestComputeLateByOneHour(t *testing.T) {
	m := Compute(ptr(at("09:00:00")), nil, at("08:00:00"), at("17:00:00"))
	if !m.IsLate || m.LateMinutes != 60 {
		t.Fatalf("expected 60 late minutes, got %+v", m)
	}
	if m.Status != StatusLate {
		t.Fatalf("expected late status, got %s", m.Status)
	}
}

func TestCompute(t *testing.T) {
	cases := []struct {
		name     string
		checkIn  string
		checkOut string
		want     Metrics
	}{
		{
			name: "on time full day", checkIn: "08:00:00", checkOut: "17:00:00",
			want: Metrics{WorkedMinutes: 540, Status: StatusPresent},
		},
		{
			name: "early arrival counts as on time", checkIn: "07:45:00", checkOut: "17:30:00",
			want: Metrics{WorkedMinutes: 585, Status: StatusPresent},
		},
		{
			name: "late minutes truncate", checkIn: "08:05:59", checkOut: "17:00:00",
			want: Metrics{IsLate: true, LateMinutes: 5, WorkedMinutes: 534, Status: StatusLate},
		},
		{
			name: "late by seconds", checkIn: "08:00:30", checkOut: "17:00:00",
			want: Metrics{IsLate: true, LateMinutes: 0, WorkedMinutes: 539, Status: StatusLate},
		},
		{
			name: "early departure", checkIn: "08:00:00", checkOut: "16:29:30",
			want: Metrics{IsEarlyDeparture: true, EarlyDepartureMinutes: 30, WorkedMinutes: 509, Status: StatusEarlyDeparture},
		},
		{
			name: "late wins over early", checkIn: "09:00:00", checkOut: "16:00:00",
			want: Metrics{IsLate: true, LateMinutes: 60, IsEarlyDeparture: true, EarlyDepartureMinutes: 60, WorkedMinutes: 420, Status: StatusLate},
		},
		{
			name: "open check-in", checkIn: "08:00:00",
			want: Metrics{Status: StatusPresent},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var out *time.Time
			if tc.checkOut != "" {
				out = ptr(at(tc.checkOut))
			}
			got := Compute(ptr(at(tc.checkIn)), out, at("08:00:00"), at("17:00:00"))
			if got != tc.want {
				t.Fatalf("got %+v want %+v", got, tc.want)
			}
		})
	}
}

func TestComputeWithoutCheckIn(t *testing.T) {
	if got := Compute(nil, nil, at("08:00:00"), at("17:00:00")); got.Status != StatusAbsent {
		t.Fatalf("expected absent, got %+v", got)
	}
}

func TestScheduleBoundsUseLocation(t *testing.T) {
	loc, err := time.LoadLocation("Europe/Berlin")
	if err != nil {
		t.Skipf("tzdata unavailable: %v", err)
	}
	s := Schedule{Start: "08:00", End: "16:30", Location: loc}

	// 23:30 UTC on the 12th is already the 13th in Berlin.
	workDate := s.WorkDate(time.Date(2024, 5, 12, 23, 30, 0, 0, time.UTC))
	if workDate.Format("2006-01-02") != "2024-05-13" {
		t.Fatalf("unexpected work date %s", workDate)
	}
	start, end, err := s.Bounds(workDate)
	if err != nil {
		t.Fatalf("bounds: %v", err)
	}
	if start.UTC().Format("15:04") != "06:00" || end.UTC().Format("15:04") != "14:30" {
		t.Fatalf("unexpected bounds %s %s", start.UTC(), end.UTC())
	}
	if _, _, err := (Schedule{Start: "8am", End: "17:00"}).Bounds(workDate); err == nil {
		t.Fatal("expected bad clock to fail")
	}
}
