package expenses

import (
	"fmt"

	"hrdesk/internal/domain/domainerr"
)

var (
	ErrNotFound   = fmt.Errorf("expense %w", domainerr.ErrNotFound)
	ErrTransition = fmt.Errorf("expense status change not allowed: %w", domainerr.ErrInvalidState)
	ErrSelfReview = fmt.Errorf("cannot review your own expense: %w", domainerr.ErrForbidden)
)

var transitions = map[string]map[string]string{
	StatusPending:  {ActionApprove: StatusApproved, ActionReject: StatusRejected},
	StatusApproved: {ActionPay: StatusPaid},
}

// NextStatus returns the status action leads to from current. Transitions only
// move forward: pending to approved or rejected, then approved to paid.
func NextStatus(current, action string) (string, error) {
	next, ok := transitions[current][action]
	if !ok {
		return "", fmt.Errorf("%s -> %s: %w", current, action, ErrTransition)
	}
	return next, nil
}
