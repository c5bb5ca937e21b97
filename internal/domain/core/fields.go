package core

import "hrdesk/internal/domain/auth"

// FilterUserFields hides pay data from anyone but admins and the user.
func FilterUserFields(u *User, caller auth.UserContext) {
	if caller.IsAdmin() || caller.UserID == u.ID {
		return
	}
	u.BaseSalary = nil
	u.BankAccount = ""
}
