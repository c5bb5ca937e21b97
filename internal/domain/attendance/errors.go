package attendance

import (
	"fmt"

	"hrdesk/internal/domain/domainerr"
)

var (
	ErrNotFound           = fmt.Errorf("attendance record %w", domainerr.ErrNotFound)
	ErrCorrectionNotFound = fmt.Errorf("correction request %w", domainerr.ErrNotFound)
	ErrAlreadyCheckedIn   = fmt.Errorf("already checked in today: %w", domainerr.ErrConflict)
	ErrAlreadyCheckedOut  = fmt.Errorf("already checked out today: %w", domainerr.ErrConflict)
	ErrNoOpenCheckIn      = fmt.Errorf("no open check-in for today: %w", domainerr.ErrInvalidState)
	ErrPendingCorrection  = fmt.Errorf("a pending correction already exists for this date: %w", domainerr.ErrConflict)
	ErrAlreadyDecided     = fmt.Errorf("correction already decided: %w", domainerr.ErrInvalidState)
	ErrSelfReview         = fmt.Errorf("cannot review your own correction: %w", domainerr.ErrForbidden)
	ErrOutsideTeam        = fmt.Errorf("user is outside your team: %w", domainerr.ErrForbidden)
)
