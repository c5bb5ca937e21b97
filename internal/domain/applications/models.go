package applications

import "time"

const (
	TypeLeave      = "leave"
	TypeSickLeave  = "sick_leave"
	TypeRemoteWork = "remote_work"
	TypeOvertime   = "overtime"
	TypeTransfer   = "transfer"
	TypeOther      = "other"

	StatusPending  = "pending"
	StatusApproved = "approved"
	StatusRejected = "rejected"

	DecisionApprove = "approve"
	DecisionReject  = "reject"
)

var Types = []string{TypeLeave, TypeSickLeave, TypeRemoteWork, TypeOvertime, TypeTransfer, TypeOther}

type Application struct {
	ID                 string     `json:"id"`
	UserID             string     `json:"userId"`
	ApplicantName      string     `json:"applicantName,omitempty"`
	Type               string     `json:"type"`
	Title              string     `json:"title"`
	Reason             string     `json:"reason"`
	StartDate          *time.Time `json:"startDate,omitempty"`
	EndDate            *time.Time `json:"endDate,omitempty"`
	Days               float64    `json:"days"`
	TargetDepartmentID *string    `json:"targetDepartmentId,omitempty"`
	Status             string     `json:"status"`
	ReviewerID         *string    `json:"reviewerId,omitempty"`
	ReviewedAt         *time.Time `json:"reviewedAt,omitempty"`
	ReviewNote         string     `json:"reviewNote"`
	CreatedAt          time.Time  `json:"createdAt"`
	UpdatedAt          time.Time  `json:"updatedAt"`
}

type NewApplication struct {
	Type               string
	Title              string
	Reason             string
	StartDate          *time.Time
	EndDate            *time.Time
	TargetDepartmentID *string
}

type Filter struct {
	UserID string
	TeamOf string
	Status string
	Type   string
	From   *time.Time
	To     *time.Time
}

type ListResult struct {
	Applications []Application
	Total        int
}
