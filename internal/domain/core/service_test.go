package core

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/shopspring/decimal"

	"hrdesk/internal/domain/auth"
	"hrdesk/internal/domain/domainerr"
)

type fakeStore struct {
	users   map[string]User
	depts   map[string]Department
	team    map[string][]string
	members map[string]int
	nextID  int
}

func newFakeStore() *fakeStore {
	return &fakeStore{users: map[string]User{}, depts: map[string]Department{}, team: map[string][]string{}, members: map[string]int{}}
}

func (f *fakeStore) ListUsers(_ context.Context, _ string, filter UserFilter, _, _ int) ([]User, int, error) {
	var out []User
	for _, u := range f.users {
		if filter.TeamOf != "" {
			ok, _ := f.IsTeamMember(context.Background(), "", filter.TeamOf, u.ID)
			if !ok {
				continue
			}
		}
		out = append(out, u)
	}
	return out, len(out), nil
}

func (f *fakeStore) GetUser(_ context.Context, _, id string) (User, error) {
	u, ok := f.users[id]
	if !ok {
		return User{}, ErrUserNotFound
	}
	return u, nil
}

func (f *fakeStore) CreateUser(_ context.Context, _ string, rec UserRecord) (string, error) {
	f.nextID++
	id := fmt.Sprintf("new%d", f.nextID)
	salary := rec.BaseSalary
	f.users[id] = User{ID: id, Email: rec.Email, FirstName: rec.FirstName, LastName: rec.LastName, Role: rec.Role,
		DepartmentID: rec.DepartmentID, ManagerID: rec.ManagerID, EmploymentType: rec.EmploymentType,
		BaseSalary: &salary, Currency: rec.Currency, Status: rec.Status, bankAccountEnc: rec.BankAccountEnc}
	return id, nil
}

func (f *fakeStore) UpdateUser(_ context.Context, _, id string, rec UserRecord) error {
	u := f.users[id]
	u.Email, u.Role, u.Status, u.FirstName = rec.Email, rec.Role, rec.Status, rec.FirstName
	u.DepartmentID, u.ManagerID = rec.DepartmentID, rec.ManagerID
	salary := rec.BaseSalary
	u.BaseSalary = &salary
	u.bankAccountEnc = rec.BankAccountEnc
	f.users[id] = u
	return nil
}

func (f *fakeStore) UpdateProfile(_ context.Context, _, id string, in ProfileUpdate) error {
	u := f.users[id]
	u.FirstName, u.LastName, u.Phone = in.FirstName, in.LastName, in.Phone
	f.users[id] = u
	return nil
}

func (f *fakeStore) TerminateUser(_ context.Context, _, id string) error {
	if _, ok := f.users[id]; !ok {
		return ErrUserNotFound
	}
	delete(f.users, id)
	return nil
}

func (f *fakeStore) IsTeamMember(_ context.Context, _, managerID, userID string) (bool, error) {
	for _, id := range f.team[managerID] {
		if id == userID {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeStore) TeamMemberIDs(_ context.Context, _, managerID string) ([]string, error) {
	return f.team[managerID], nil
}

func (f *fakeStore) ListDepartments(context.Context, string) ([]Department, error) {
	var out []Department
	for _, d := range f.depts {
		out = append(out, d)
	}
	return out, nil
}

func (f *fakeStore) GetDepartment(_ context.Context, _, id string) (Department, error) {
	d, ok := f.depts[id]
	if !ok {
		return Department{}, ErrDepartmentNotFound
	}
	return d, nil
}

func (f *fakeStore) CreateDepartment(_ context.Context, _ string, in DepartmentInput) (string, error) {
	f.nextID++
	id := fmt.Sprintf("d%d", f.nextID)
	f.depts[id] = Department{ID: id, Name: in.Name, ManagerID: in.ManagerID}
	return id, nil
}

func (f *fakeStore) UpdateDepartment(_ context.Context, _, id string, in DepartmentInput) error {
	f.depts[id] = Department{ID: id, Name: in.Name, ManagerID: in.ManagerID}
	return nil
}

func (f *fakeStore) DeleteDepartment(_ context.Context, _, id string) error {
	delete(f.depts, id)
	return nil
}

func (f *fakeStore) DepartmentMemberCount(_ context.Context, _, id string) (int, error) {
	return f.members[id], nil
}

func (f *fakeStore) DepartmentNames(context.Context, string) ([]DepartmentName, error) {
	return nil, nil
}

type reverseSealer struct{}

func (reverseSealer) EncryptString(v string) ([]byte, error) { return []byte("enc:" + v), nil }
func (reverseSealer) DecryptString(b []byte) (string, error) { return string(b[4:]), nil }

var admin = auth.UserContext{UserID: "admin", TenantID: "t1", Role: auth.RoleAdmin}

func TestCreateUserValidatesAndMasksBankAccount(t *testing.T) {
	store := newFakeStore()
	store.users["emp"] = User{ID: "emp", Role: auth.RoleEmployee, Status: UserStatusActive}
	svc := NewService(store, reverseSealer{})
	ctx := context.Background()

	base := NewUser{Email: " Ada@Example.com ", Password: "Password1", FirstName: "Ada", LastName: "Lovelace", Role: auth.RoleEmployee, BaseSalary: decimal.NewFromInt(5000), BankAccount: "DE89370400440532013000"}

	bad := base
	bad.Role = "Owner"
	if _, err := svc.CreateUser(ctx, admin, bad); err == nil {
		t.Fatal("expected invalid role to fail")
	}
	bad = base
	bad.ManagerID = strPtr("emp")
	var verr *domainerr.ValidationError
	if _, err := svc.CreateUser(ctx, admin, bad); !errors.As(err, &verr) || verr.Fields[0].Field != "managerId" {
		t.Fatalf("expected managerId validation error, got %v", err)
	}
	bad = base
	bad.Password = "short"
	if _, err := svc.CreateUser(ctx, admin, bad); !errors.As(err, &verr) {
		t.Fatalf("expected password validation error, got %v", err)
	}

	created, err := svc.CreateUser(ctx, admin, base)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if created.Email != "ada@example.com" {
		t.Fatalf("expected normalized email, got %q", created.Email)
	}
	if created.BankAccount != "******************3000" {
		t.Fatalf("expected masked bank account, got %q", created.BankAccount)
	}
	if created.EmploymentType != "full_time" || created.Currency != "USD" {
		t.Fatalf("expected defaults, got %+v", created)
	}
}

func TestGetUserScope(t *testing.T) {
	store := newFakeStore()
	salary := decimal.NewFromInt(3000)
	store.users["e1"] = User{ID: "e1", Role: auth.RoleEmployee, BaseSalary: &salary}
	store.users["e2"] = User{ID: "e2", Role: auth.RoleEmployee}
	store.team["m1"] = []string{"e1"}
	svc := NewService(store, nil)
	ctx := context.Background()

	manager := auth.UserContext{UserID: "m1", TenantID: "t1", Role: auth.RoleManager}
	got, err := svc.GetUser(ctx, manager, "e1")
	if err != nil {
		t.Fatalf("manager should see team member: %v", err)
	}
	if got.BaseSalary != nil {
		t.Fatal("manager should not see salary")
	}
	if _, err := svc.GetUser(ctx, manager, "e2"); !errors.Is(err, domainerr.ErrForbidden) {
		t.Fatalf("expected forbidden outside team, got %v", err)
	}
	employee := auth.UserContext{UserID: "e2", TenantID: "t1", Role: auth.RoleEmployee}
	if _, err := svc.GetUser(ctx, employee, "e1"); !errors.Is(err, domainerr.ErrForbidden) {
		t.Fatalf("expected forbidden for peer, got %v", err)
	}
	self := auth.UserContext{UserID: "e1", TenantID: "t1", Role: auth.RoleEmployee}
	if got, err := svc.GetUser(ctx, self, "e1"); err != nil || got.BaseSalary == nil {
		t.Fatalf("self should see own salary, got %+v %v", got, err)
	}
}

func TestUpdateUserPatch(t *testing.T) {
	store := newFakeStore()
	salary := decimal.NewFromInt(3000)
	store.users["e1"] = User{ID: "e1", Email: "e1@example.com", Role: auth.RoleEmployee, Status: UserStatusActive, EmploymentType: "full_time", BaseSalary: &salary, DepartmentID: strPtr("d1")}
	store.depts["d1"] = Department{ID: "d1"}
	svc := NewService(store, nil)

	raise := decimal.NewFromInt(3500)
	before, after, err := svc.UpdateUser(context.Background(), admin, "e1", UserPatch{BaseSalary: &raise, DepartmentID: strPtr("")})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if !before.BaseSalary.Equal(salary) || !after.BaseSalary.Equal(raise) {
		t.Fatalf("unexpected salaries before=%s after=%s", before.BaseSalary, after.BaseSalary)
	}
	if after.DepartmentID != nil {
		t.Fatal("empty departmentId should clear the department")
	}

	negative := decimal.NewFromInt(-1)
	if _, _, err := svc.UpdateUser(context.Background(), admin, "e1", UserPatch{BaseSalary: &negative}); err == nil {
		t.Fatal("expected negative salary to be rejected")
	}
}

func TestDeleteUserRules(t *testing.T) {
	store := newFakeStore()
	store.users["admin"] = User{ID: "admin", Role: auth.RoleAdmin}
	svc := NewService(store, nil)
	if err := svc.DeleteUser(context.Background(), admin, "admin"); !errors.Is(err, ErrCannotDeleteSelf) {
		t.Fatalf("expected ErrCannotDeleteSelf, got %v", err)
	}
	if err := svc.DeleteUser(context.Background(), admin, "ghost"); !errors.Is(err, domainerr.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestUpdateProfileRequiresNames(t *testing.T) {
	store := newFakeStore()
	store.users["e1"] = User{ID: "e1", Role: auth.RoleEmployee}
	svc := NewService(store, nil)
	caller := auth.UserContext{UserID: "e1", TenantID: "t1", Role: auth.RoleEmployee}
	if _, err := svc.UpdateProfile(context.Background(), caller, ProfileUpdate{FirstName: " ", LastName: "X"}); err == nil {
		t.Fatal("expected blank first name to fail")
	}
	got, err := svc.UpdateProfile(context.Background(), caller, ProfileUpdate{FirstName: " Grace ", LastName: "Hopper", Phone: "555"})
	if err != nil || got.FirstName != "Grace" || got.Phone != "555" {
		t.Fatalf("unexpected profile %+v %v", got, err)
	}
}

func TestDeleteDepartmentInUse(t *testing.T) {
	store := newFakeStore()
	store.depts["d1"] = Department{ID: "d1"}
	store.members["d1"] = 2
	svc := NewService(store, nil)
	if err := svc.DeleteDepartment(context.Background(), "t1", "d1"); !errors.Is(err, domainerr.ErrConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
	store.members["d1"] = 0
	if err := svc.DeleteDepartment(context.Background(), "t1", "d1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
}

func strPtr(s string) *string { return &s }
