package auth

const (
	PermUsersRead          = "users.read"
	PermUsersWrite         = "users.write"
	PermDepartmentsWrite   = "departments.write"
	PermApplicationsSubmit = "applications.submit"
	PermApplicationsReview = "applications.review"
	PermAttendanceRecord   = "attendance.record"
	PermAttendanceReview   = "attendance.review"
	PermAttendanceExport   = "attendance.export"
	PermExpensesSubmit     = "expenses.submit"
	PermExpensesReview     = "expenses.review"
	PermExpensesPay        = "expenses.pay"
	PermPayrollRead        = "payroll.read"
	PermPayrollWrite       = "payroll.write"
	PermPayrollFinalize    = "payroll.finalize"
	PermHolidaysWrite      = "holidays.write"
	PermAnnouncementsWrite = "announcements.write"
	PermAuditRead          = "audit.read"
	PermJobsRun            = "jobs.run"
)

var DefaultPermissions = []string{
	PermUsersRead,
	PermUsersWrite,
	PermDepartmentsWrite,
	PermApplicationsSubmit,
	PermApplicationsReview,
	PermAttendanceRecord,
	PermAttendanceReview,
	PermAttendanceExport,
	PermExpensesSubmit,
	PermExpensesReview,
	PermExpensesPay,
	PermPayrollRead,
	PermPayrollWrite,
	PermPayrollFinalize,
	PermHolidaysWrite,
	PermAnnouncementsWrite,
	PermAuditRead,
	PermJobsRun,
}

var RolePermissions = map[string][]string{
	RoleEmployee: {
		PermApplicationsSubmit,
		PermAttendanceRecord,
		PermExpensesSubmit,
		PermPayrollRead,
	},
	RoleManager: {
		PermUsersRead,
		PermApplicationsSubmit,
		PermApplicationsReview,
		PermAttendanceRecord,
		PermAttendanceReview,
		PermExpensesSubmit,
		PermExpensesReview,
		PermPayrollRead,
		PermAnnouncementsWrite,
	},
	RoleAdmin: DefaultPermissions,
}

var rolePermissionIndex = func() map[string]map[string]struct{} {
	index := make(map[string]map[string]struct{}, len(RolePermissions))
	for role, perms := range RolePermissions {
		set := make(map[string]struct{}, len(perms))
		for _, perm := range perms {
			set[perm] = struct{}{}
		}
		index[role] = set
	}
	return index
}()

func Can(role, permission string) bool {
	_, ok := rolePermissionIndex[role][permission]
	return ok
}
