package handlers_test

import (
	"fmt"
	"net/http"
	"testing"
	"time"
)

func TestRoleGroupsAndTeamScope(t *testing.T) {
	e := newTestEnv(t)
	admin := e.adminToken()

	deptID := dataID(t, e.expect(http.MethodPost, "/api/admin/departments", admin, map[string]any{
		"name": fmt.Sprintf("Scope %d", time.Now().UnixNano()),
	}, http.StatusCreated))
	managerID, managerEmail := e.createUser(admin, "Manager", map[string]any{"departmentId": deptID})
	_, strangerEmail := e.createUser(admin, "Manager", nil)
	_, employeeEmail := e.createUser(admin, "Employee", map[string]any{"managerId": managerID})
	_, peerEmail := e.createUser(admin, "Employee", nil)

	manager := e.login(managerEmail, "Password123!")
	stranger := e.login(strangerEmail, "Password123!")
	employee := e.login(employeeEmail, "Password123!")
	peer := e.login(peerEmail, "Password123!")

	env := e.expect(http.MethodGet, "/api/shared/me", "", nil, http.StatusUnauthorized)
	if errorCode(env) != "unauthorized" {
		t.Fatalf("expected unauthorized code, got %q", errorCode(env))
	}
	e.expect(http.MethodGet, "/api/admin/users", employee, nil, http.StatusForbidden)
	e.expect(http.MethodGet, "/api/manager/team", employee, nil, http.StatusForbidden)
	e.expect(http.MethodGet, "/api/admin/users", manager, nil, http.StatusForbidden)
	e.expect(http.MethodGet, "/api/employee/profile", manager, nil, http.StatusOK)

	expenseID := dataID(t, e.expect(http.MethodPost, "/api/employee/expenses", employee, map[string]any{
		"category":    "meals",
		"description": "Team dinner",
		"amount":      "18",
		"expenseDate": "2024-05-03",
	}, http.StatusCreated))

	e.expect(http.MethodGet, "/api/employee/expenses/"+expenseID, peer, nil, http.StatusNotFound)
	e.expect(http.MethodPost, "/api/manager/expenses/"+expenseID+"/approve", stranger, nil, http.StatusForbidden)
	e.expect(http.MethodPost, "/api/manager/expenses/"+expenseID+"/pay", manager, nil, http.StatusNotFound)
	e.expect(http.MethodGet, "/api/manager/expenses/"+expenseID, manager, nil, http.StatusOK)

	team := e.expect(http.MethodGet, "/api/manager/team", manager, nil, http.StatusOK)
	if team.Meta == nil || team.Meta.Total != 1 {
		t.Fatalf("expected one team member, got %s", team.Data)
	}
}

func TestValidationErrors(t *testing.T) {
	e := newTestEnv(t)
	admin := e.adminToken()
	_, email := e.createUser(admin, "Employee", nil)
	employee := e.login(email, "Password123!")

	cases := []struct {
		name string
		path string
		body map[string]any
	}{
		{"expense amount", "/api/employee/expenses", map[string]any{"category": "travel", "description": "x", "amount": "0", "expenseDate": "2024-05-01"}},
		{"expense category", "/api/employee/expenses", map[string]any{"category": "yachts", "description": "x", "amount": "10", "expenseDate": "2024-05-01"}},
		{"application type", "/api/employee/applications", map[string]any{"type": "sabbatical", "title": "x"}},
		{"application range", "/api/employee/applications", map[string]any{"type": "leave", "title": "x", "startDate": "2031-06-10", "endDate": "2031-06-01"}},
		{"correction without times", "/api/employee/attendance/corrections", map[string]any{"workDate": "2024-05-01", "reason": "forgot"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			env := e.expect(http.MethodPost, tc.path, employee, tc.body, http.StatusBadRequest)
			if errorCode(env) != "validation_error" {
				t.Fatalf("expected validation_error, got %q", errorCode(env))
			}
		})
	}

	status, env, _ := e.do(http.MethodPost, "/api/auth/login", "", map[string]any{"email": email, "password": "wrong"}, nil)
	if status != http.StatusUnauthorized || errorCode(env) != "invalid_credentials" {
		t.Fatalf("expected 401 invalid_credentials, got %d %q", status, errorCode(env))
	}
}
