package auth

const (
	RoleAdmin    = "Admin"
	RoleManager  = "Manager"
	RoleEmployee = "Employee"
)

var Roles = []string{RoleAdmin, RoleManager, RoleEmployee}

// UserContext is the authenticated caller carried on the request context.
type UserContext struct {
	UserID    string
	TenantID  string
	Role      string
	SessionID string
}

func (u UserContext) IsAdmin() bool {
	return u.Role == RoleAdmin
}

func (u UserContext) IsManager() bool {
	return u.Role == RoleManager
}

func ValidRole(role string) bool {
	for _, r := range Roles {
		if r == role {
			return true
		}
	}
	return false
}

// HasRole reports whether role is one of allowed. Admin passes every check.
func HasRole(role string, allowed ...string) bool {
	if role == RoleAdmin {
		return true
	}
	for _, r := range allowed {
		if r == role {
			return true
		}
	}
	return false
}
