package payroll

import (
	"fmt"

	"hrdesk/internal/domain/domainerr"
)

var (
	ErrNotFound           = fmt.Errorf("salary record %w", domainerr.ErrNotFound)
	ErrAdjustmentNotFound = fmt.Errorf("salary adjustment %w", domainerr.ErrNotFound)
	ErrDuplicate          = fmt.Errorf("a salary record already exists for this user and period: %w", domainerr.ErrConflict)
	ErrNotDraft           = fmt.Errorf("salary record is no longer a draft: %w", domainerr.ErrInvalidState)
	ErrTransition         = fmt.Errorf("salary record status change not allowed: %w", domainerr.ErrInvalidState)
)
