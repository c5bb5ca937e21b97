package core

import (
	"fmt"

	"hrdesk/internal/domain/domainerr"
)

var (
	ErrUserNotFound       = fmt.Errorf("user %w", domainerr.ErrNotFound)
	ErrDepartmentNotFound = fmt.Errorf("department %w", domainerr.ErrNotFound)
	ErrDepartmentInUse    = fmt.Errorf("department still has members: %w", domainerr.ErrConflict)
	ErrCannotDeleteSelf   = fmt.Errorf("cannot delete your own account: %w", domainerr.ErrInvalidState)
	ErrForbidden          = domainerr.ErrForbidden
)
