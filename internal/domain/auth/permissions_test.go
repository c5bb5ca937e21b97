package auth

import "testing"

func TestRolePermissionsSubset(t *testing.T) {
	allowed := map[string]struct{}{}
	for _, perm := range DefaultPermissions {
		allowed[perm] = struct{}{}
	}

	for role, perms := range RolePermissions {
		if !ValidRole(role) {
			t.Fatalf("unknown role %s", role)
		}
		if len(perms) == 0 {
			t.Fatalf("role %s has no permissions", role)
		}
		for _, perm := range perms {
			if _, ok := allowed[perm]; !ok {
				t.Fatalf("role %s has unknown permission %s", role, perm)
			}
		}
	}
}

func TestDefaultPermissionsUnique(t *testing.T) {
	seen := map[string]struct{}{}
	for _, perm := range DefaultPermissions {
		if _, ok := seen[perm]; ok {
			t.Fatalf("duplicate permission %s", perm)
		}
		seen[perm] = struct{}{}
	}
}

func TestCan(t *testing.T) {
	cases := []struct {
		role string
		perm string
		want bool
	}{
		{RoleAdmin, PermExpensesPay, true},
		{RoleManager, PermExpensesReview, true},
		{RoleManager, PermExpensesPay, false},
		{RoleEmployee, PermAttendanceRecord, true},
		{RoleEmployee, PermAttendanceReview, false},
		{"Intern", PermAttendanceRecord, false},
	}
	for _, tc := range cases {
		if got := Can(tc.role, tc.perm); got != tc.want {
			t.Fatalf("Can(%s, %s) = %v, want %v", tc.role, tc.perm, got, tc.want)
		}
	}
}

func TestHasRole(t *testing.T) {
	if !HasRole(RoleAdmin, RoleManager) {
		t.Fatal("admin should pass every role check")
	}
	if !HasRole(RoleManager, RoleManager) {
		t.Fatal("manager should pass manager check")
	}
	if HasRole(RoleEmployee, RoleManager) {
		t.Fatal("employee should fail manager check")
	}
}
