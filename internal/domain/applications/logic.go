package applications

import (
	"fmt"
	"time"

	"hrdesk/internal/domain/domainerr"
)

var (
	ErrNotFound     = fmt.Errorf("application %w", domainerr.ErrNotFound)
	ErrForbidden    = domainerr.ErrForbidden
	ErrAlreadyFinal = fmt.Errorf("application already decided: %w", domainerr.ErrInvalidState)
	ErrSelfReview   = fmt.Errorf("cannot review your own application: %w", domainerr.ErrForbidden)
)

// NeedsDateRange reports whether the type books time off or away from the office.
func NeedsDateRange(appType string) bool {
	switch appType {
	case TypeLeave, TypeSickLeave, TypeRemoteWork, TypeOvertime:
		return true
	}
	return false
}

// CountsAsLeave reports whether an approved application excuses attendance.
func CountsAsLeave(appType string) bool {
	return appType == TypeLeave || appType == TypeSickLeave
}

// NextStatus maps a review decision to the target status. Only pending
// applications can move.
func NextStatus(current, decision string) (string, error) {
	if current != StatusPending {
		return "", ErrAlreadyFinal
	}
	switch decision {
	case DecisionApprove:
		return StatusApproved, nil
	case DecisionReject:
		return StatusRejected, nil
	}
	return "", domainerr.Invalid("decision", "must be one of: approve, reject")
}

func validateDates(appType string, start, end *time.Time) error {
	if !NeedsDateRange(appType) {
		return nil
	}
	if start == nil {
		return domainerr.Invalid("startDate", "is required")
	}
	if end == nil {
		return domainerr.Invalid("endDate", "is required")
	}
	if end.Before(*start) {
		return &domainerr.ValidationError{Fields: []domainerr.FieldIssue{
			{Field: "endDate", Reason: "must be on or after startDate"},
			{Field: "startDate", Reason: "must be on or before endDate"},
		}}
	}
	return nil
}
