package attendance

import "time"

const (
	StatusPresent        = "present"
	StatusLate           = "late"
	StatusEarlyDeparture = "early_departure"
	StatusAbsent         = "absent"
	StatusOnLeave        = "on_leave"

	CorrectionPending  = "pending"
	CorrectionApproved = "approved"
	CorrectionRejected = "rejected"

	DecisionApprove = "approve"
	DecisionReject  = "reject"
)

var Statuses = []string{StatusPresent, StatusLate, StatusEarlyDeparture, StatusAbsent, StatusOnLeave}

type Record struct {
	ID                    string     `json:"id"`
	UserID                string     `json:"userId"`
	UserName              string     `json:"userName,omitempty"`
	WorkDate              time.Time  `json:"workDate"`
	CheckIn               *time.Time `json:"checkIn,omitempty"`
	CheckOut              *time.Time `json:"checkOut,omitempty"`
	ScheduledStart        time.Time  `json:"scheduledStart"`
	ScheduledEnd          time.Time  `json:"scheduledEnd"`
	IsLate                bool       `json:"isLate"`
	LateMinutes           int        `json:"lateMinutes"`
	IsEarlyDeparture      bool       `json:"isEarlyDeparture"`
	EarlyDepartureMinutes int        `json:"earlyDepartureMinutes"`
	WorkedMinutes         int        `json:"workedMinutes"`
	Status                string     `json:"status"`
	Note                  string     `json:"note"`
	CreatedAt             time.Time  `json:"createdAt"`
	UpdatedAt             time.Time  `json:"updatedAt"`
}

// Metrics holds the fields derived from the check-in/out pair and the schedule.
type Metrics struct {
	IsLate                bool
	LateMinutes           int
	IsEarlyDeparture      bool
	EarlyDepartureMinutes int
	WorkedMinutes         int
	Status                string
}

func (r *Record) apply(m Metrics) {
	r.IsLate = m.IsLate
	r.LateMinutes = m.LateMinutes
	r.IsEarlyDeparture = m.IsEarlyDeparture
	r.EarlyDepartureMinutes = m.EarlyDepartureMinutes
	r.WorkedMinutes = m.WorkedMinutes
	r.Status = m.Status
}

type Correction struct {
	ID                string     `json:"id"`
	AttendanceID      *string    `json:"attendanceId,omitempty"`
	UserID            string     `json:"userId"`
	UserName          string     `json:"userName,omitempty"`
	WorkDate          time.Time  `json:"workDate"`
	OriginalCheckIn   *time.Time `json:"originalCheckIn,omitempty"`
	OriginalCheckOut  *time.Time `json:"originalCheckOut,omitempty"`
	RequestedCheckIn  *time.Time `json:"requestedCheckIn,omitempty"`
	RequestedCheckOut *time.Time `json:"requestedCheckOut,omitempty"`
	Reason            string     `json:"reason"`
	Status            string     `json:"status"`
	ReviewerID        *string    `json:"reviewerId,omitempty"`
	ReviewedAt        *time.Time `json:"reviewedAt,omitempty"`
	ReviewNote        string     `json:"reviewNote"`
	CreatedAt         time.Time  `json:"createdAt"`
}

type NewCorrection struct {
	WorkDate          time.Time
	RequestedCheckIn  *time.Time
	RequestedCheckOut *time.Time
	Reason            string
}

type Filter struct {
	UserID string
	TeamOf string
	Status string
	From   *time.Time
	To     *time.Time
}

type CorrectionFilter struct {
	UserID string
	TeamOf string
	Status string
}

// Summary aggregates one user's records over a date range.
type Summary struct {
	UserID          string `json:"userId"`
	UserName        string `json:"userName"`
	DaysPresent     int    `json:"daysPresent"`
	LateCount       int    `json:"lateCount"`
	LateMinutes     int    `json:"lateMinutes"`
	EarlyDepartures int    `json:"earlyDepartures"`
	Absences        int    `json:"absences"`
	LeaveDays       int    `json:"leaveDays"`
	WorkedMinutes   int    `json:"workedMinutes"`
}

type SweepResult struct {
	Date    string `json:"date"`
	Absent  int    `json:"absent"`
	OnLeave int    `json:"onLeave"`
	Skipped string `json:"skipped,omitempty"`
}
