package core

import "context"

type StoreAPI interface {
	ListUsers(ctx context.Context, tenantID string, filter UserFilter, limit, offset int) ([]User, int, error)
	GetUser(ctx context.Context, tenantID, userID string) (User, error)
	CreateUser(ctx context.Context, tenantID string, rec UserRecord) (string, error)
	UpdateUser(ctx context.Context, tenantID, userID string, rec UserRecord) error
	UpdateProfile(ctx context.Context, tenantID, userID string, in ProfileUpdate) error
	TerminateUser(ctx context.Context, tenantID, userID string) error
	IsTeamMember(ctx context.Context, tenantID, managerID, userID string) (bool, error)
	TeamMemberIDs(ctx context.Context, tenantID, managerID string) ([]string, error)

	ListDepartments(ctx context.Context, tenantID string) ([]Department, error)
	GetDepartment(ctx context.Context, tenantID, departmentID string) (Department, error)
	CreateDepartment(ctx context.Context, tenantID string, in DepartmentInput) (string, error)
	UpdateDepartment(ctx context.Context, tenantID, departmentID string, in DepartmentInput) error
	DeleteDepartment(ctx context.Context, tenantID, departmentID string) error
	DepartmentMemberCount(ctx context.Context, tenantID, departmentID string) (int, error)
	DepartmentNames(ctx context.Context, tenantID string) ([]DepartmentName, error)
}
