package expenses

import (
	"errors"
	"testing"

	"hrdesk/internal/domain/domainerr"
)

func TestNextStatus(t *testing.T) {
	allowed := map[[2]string]string{
		{StatusPending, ActionApprove}: StatusApproved,
		{StatusPending, ActionReject}:  StatusRejected,
		{StatusApproved, ActionPay}:    StatusPaid,
	}
	statuses := []string{StatusPending, StatusApproved, StatusRejected, StatusPaid}
	actions := []string{ActionApprove, ActionReject, ActionPay}

	for _, from := range statuses {
		for _, action := range actions {
			got, err := NextStatus(from, action)
			want, ok := allowed[[2]string{from, action}]
			if ok {
				if err != nil || got != want {
					t.Fatalf("%s/%s: got %q %v want %q", from, action, got, err, want)
				}
				continue
			}
			if !errors.Is(err, domainerr.ErrInvalidState) {
				t.Fatalf("%s/%s: expected invalid state, got %q %v", from, action, got, err)
			}
		}
	}
}
