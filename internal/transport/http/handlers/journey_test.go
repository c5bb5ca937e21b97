package handlers_test

import (
	"fmt"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestEmployeeManagerAdminJourney(t *testing.T) {
	e := newTestEnv(t)
	admin := e.adminToken()

	dept := e.expect(http.MethodPost, "/api/admin/departments", admin, map[string]any{
		"name": fmt.Sprintf("Journey %d", time.Now().UnixNano()),
	}, http.StatusCreated)
	deptID := dataID(t, dept)

	managerID, managerEmail := e.createUser(admin, "Manager", map[string]any{"departmentId": deptID})
	employeeID, employeeEmail := e.createUser(admin, "Employee", map[string]any{"departmentId": deptID, "managerId": managerID})
	manager := e.login(managerEmail, "Password123!")
	employee := e.login(employeeEmail, "Password123!")

	// expenses: submit with an idempotency key, replay, approve, pay
	expenseBody := map[string]any{
		"category":    "travel",
		"description": "Train to client site",
		"amount":      "42.50",
		"currency":    "USD",
		"expenseDate": "2024-05-02",
	}
	key := map[string]string{"Idempotency-Key": fmt.Sprintf("expense-%d", time.Now().UnixNano())}
	status, first, raw := e.do(http.MethodPost, "/api/employee/expenses", employee, expenseBody, key)
	if status != http.StatusCreated {
		t.Fatalf("expected 201 on submit, got %d: %s", status, raw)
	}
	expenseID := dataID(t, first)
	status, replay, raw := e.do(http.MethodPost, "/api/employee/expenses", employee, expenseBody, key)
	if status != http.StatusCreated {
		t.Fatalf("expected replayed 201, got %d: %s", status, raw)
	}
	if dataID(t, replay) != expenseID {
		t.Fatal("expected the replay to return the first expense")
	}

	approved := e.expect(http.MethodPost, "/api/manager/expenses/"+expenseID+"/approve", manager, map[string]any{"note": "ok"}, http.StatusOK)
	if got := dataStatus(t, approved); got != "approved" {
		t.Fatalf("expected approved, got %s", got)
	}
	e.expect(http.MethodPost, "/api/manager/expenses/"+expenseID+"/reject", manager, nil, http.StatusConflict)
	paid := e.expect(http.MethodPost, "/api/admin/expenses/"+expenseID+"/pay", admin, nil, http.StatusOK)
	if got := dataStatus(t, paid); got != "paid" {
		t.Fatalf("expected paid, got %s", got)
	}

	// applications
	app := e.expect(http.MethodPost, "/api/employee/applications", employee, map[string]any{
		"type":      "leave",
		"title":     "Summer break",
		"reason":    "family trip",
		"startDate": "2031-06-02",
		"endDate":   "2031-06-06",
	}, http.StatusCreated)
	appID := dataID(t, app)
	if got := dataStatus(t, app); got != "pending" {
		t.Fatalf("expected pending application, got %s", got)
	}
	reviewed := e.expect(http.MethodPost, "/api/manager/applications/"+appID+"/approve", manager, nil, http.StatusOK)
	if got := dataStatus(t, reviewed); got != "approved" {
		t.Fatalf("expected approved application, got %s", got)
	}
	e.expect(http.MethodDelete, "/api/employee/applications/"+appID, employee, nil, http.StatusConflict)

	// attendance
	e.expect(http.MethodPost, "/api/employee/attendance/check-in", employee, nil, http.StatusCreated)
	e.expect(http.MethodPost, "/api/employee/attendance/check-in", employee, nil, http.StatusConflict)
	today := e.expect(http.MethodGet, "/api/employee/attendance/today", employee, nil, http.StatusOK)
	if string(today.Data) == "null" {
		t.Fatal("expected today's record after check-in")
	}

	// payroll: create a draft, reject duplicates, finalize, download the payslip
	record := e.expect(http.MethodPost, "/api/admin/payroll", admin, map[string]any{
		"userId": employeeID,
		"period": "2031-03",
		"adjustments": []map[string]any{
			{"kind": "bonus", "amount": "200", "description": "quarterly"},
		},
	}, http.StatusCreated)
	recordID := dataID(t, record)
	var totals struct {
		Status      string          `json:"status"`
		GrossSalary decimal.Decimal `json:"grossSalary"`
		NetSalary   decimal.Decimal `json:"netSalary"`
	}
	decode(t, record.Data, &totals)
	if totals.Status != "draft" || !totals.GrossSalary.Equal(decimal.NewFromInt(3200)) {
		t.Fatalf("unexpected draft totals %+v", totals)
	}
	e.expect(http.MethodPost, "/api/admin/payroll", admin, map[string]any{"userId": employeeID, "period": "2031-03"}, http.StatusConflict)
	e.expect(http.MethodGet, "/api/employee/salary/"+recordID, employee, nil, http.StatusNotFound)

	finalized := e.expect(http.MethodPost, "/api/admin/payroll/"+recordID+"/finalize", admin, nil, http.StatusOK)
	if got := dataStatus(t, finalized); got != "finalized" {
		t.Fatalf("expected finalized, got %s", got)
	}
	e.expect(http.MethodPost, "/api/admin/payroll/"+recordID+"/adjustments", admin, map[string]any{"kind": "bonus", "amount": "5"}, http.StatusConflict)

	own := e.expect(http.MethodGet, "/api/employee/salary", employee, nil, http.StatusOK)
	if own.Meta == nil || own.Meta.Total != 1 {
		t.Fatalf("expected one visible salary record, got %s", own.Data)
	}
	status, _, raw = e.do(http.MethodGet, "/api/employee/salary/"+recordID+"/payslip", employee, nil, nil)
	if status != http.StatusOK || !strings.HasPrefix(string(raw), "%PDF") {
		t.Fatalf("expected a pdf payslip, got %d", status)
	}

	// notifications and audit trail
	unread := e.expect(http.MethodGet, "/api/shared/notifications/unread-count", employee, nil, http.StatusOK)
	var count struct {
		Unread int `json:"unread"`
	}
	decode(t, unread.Data, &count)
	if count.Unread < 4 {
		t.Fatalf("expected decision notifications, got %d", count.Unread)
	}
	e.expect(http.MethodPost, "/api/shared/notifications/read-all", employee, nil, http.StatusOK)

	logs := e.expect(http.MethodGet, "/api/admin/audit-logs?entityType=expense&entityId="+expenseID, admin, nil, http.StatusOK)
	if logs.Meta == nil || logs.Meta.Total != 2 {
		t.Fatalf("expected approve and pay audit rows, got %+v", logs.Meta)
	}
}

func TestAnnouncementsReachTheirAudience(t *testing.T) {
	e := newTestEnv(t)
	admin := e.adminToken()

	deptA := dataID(t, e.expect(http.MethodPost, "/api/admin/departments", admin, map[string]any{"name": fmt.Sprintf("A %d", time.Now().UnixNano())}, http.StatusCreated))
	deptB := dataID(t, e.expect(http.MethodPost, "/api/admin/departments", admin, map[string]any{"name": fmt.Sprintf("B %d", time.Now().UnixNano())}, http.StatusCreated))
	_, managerEmail := e.createUser(admin, "Manager", map[string]any{"departmentId": deptA})
	_, inEmail := e.createUser(admin, "Employee", map[string]any{"departmentId": deptA})
	_, outEmail := e.createUser(admin, "Employee", map[string]any{"departmentId": deptB})
	manager := e.login(managerEmail, "Password123!")

	e.expect(http.MethodPost, "/api/manager/announcements", manager, map[string]any{
		"title":        "Other team",
		"body":         "not allowed",
		"audience":     "department",
		"departmentId": deptB,
	}, http.StatusForbidden)
	post := e.expect(http.MethodPost, "/api/manager/announcements", manager, map[string]any{
		"title": "Team lunch",
		"body":  "Friday at noon",
	}, http.StatusCreated)
	postID := dataID(t, post)

	inside := e.login(inEmail, "Password123!")
	outside := e.login(outEmail, "Password123!")
	e.expect(http.MethodGet, "/api/shared/announcements/"+postID, inside, nil, http.StatusOK)
	e.expect(http.MethodGet, "/api/shared/announcements/"+postID, outside, nil, http.StatusNotFound)

	notes := e.expect(http.MethodGet, "/api/shared/notifications?unreadOnly=true", inside, nil, http.StatusOK)
	if notes.Meta == nil || notes.Meta.Total == 0 {
		t.Fatal("expected the department member to be notified")
	}
}

func TestHolidayDatesAreUniquePerTenant(t *testing.T) {
	e := newTestEnv(t)
	admin := e.adminToken()

	n := time.Now().UnixNano()
	date := time.Date(2200+int(n%700), 1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, int(n/700%365))
	day := date.Format(time.DateOnly)

	created := e.expect(http.MethodPost, "/api/admin/holidays", admin, map[string]any{"name": "Founders Day", "date": day}, http.StatusCreated)
	holidayID := dataID(t, created)

	dup := e.expect(http.MethodPost, "/api/admin/holidays", admin, map[string]any{"name": "Same day", "date": day}, http.StatusConflict)
	if code := errorCode(dup); code != "duplicate" {
		t.Fatalf("expected duplicate, got %q", code)
	}

	listed := e.expect(http.MethodGet, fmt.Sprintf("/api/shared/holidays?year=%d", date.Year()), admin, nil, http.StatusOK)
	if !strings.Contains(string(listed.Data), holidayID) {
		t.Fatalf("expected holiday %s in the %d list", holidayID, date.Year())
	}
	e.expect(http.MethodDelete, "/api/admin/holidays/"+holidayID, admin, nil, http.StatusOK)
	e.expect(http.MethodPost, "/api/admin/holidays", admin, map[string]any{"name": "Same day", "date": day}, http.StatusCreated)
}
