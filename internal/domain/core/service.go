package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/shopspring/decimal"

	"hrdesk/internal/domain/auth"
	"hrdesk/internal/domain/domainerr"
	cryptoutil "hrdesk/internal/platform/crypto"
)

// Sealer encrypts bank details at rest.
type Sealer interface {
	EncryptString(value string) ([]byte, error)
	DecryptString(sealed []byte) (string, error)
}

type Service struct {
	store  StoreAPI
	Crypto Sealer
}

func NewService(store StoreAPI, sealer Sealer) *Service {
	return &Service{store: store, Crypto: sealer}
}

// CanView reports whether caller may read target's record.
func (s *Service) CanView(ctx context.Context, caller auth.UserContext, targetID string) (bool, error) {
	if caller.IsAdmin() || caller.UserID == targetID {
		return true, nil
	}
	if caller.IsManager() {
		return s.store.IsTeamMember(ctx, caller.TenantID, caller.UserID, targetID)
	}
	return false, nil
}

func (s *Service) IsTeamMember(ctx context.Context, tenantID, managerID, userID string) (bool, error) {
	return s.store.IsTeamMember(ctx, tenantID, managerID, userID)
}

func (s *Service) TeamMemberIDs(ctx context.Context, tenantID, managerID string) ([]string, error) {
	return s.store.TeamMemberIDs(ctx, tenantID, managerID)
}

func (s *Service) ListUsers(ctx context.Context, caller auth.UserContext, filter UserFilter, limit, offset int) ([]User, int, error) {
	if !caller.IsAdmin() {
		filter.TeamOf = caller.UserID
	}
	users, total, err := s.store.ListUsers(ctx, caller.TenantID, filter, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	for i := range users {
		s.present(&users[i], caller)
	}
	return users, total, nil
}

func (s *Service) GetUser(ctx context.Context, caller auth.UserContext, userID string) (User, error) {
	allowed, err := s.CanView(ctx, caller, userID)
	if err != nil {
		return User{}, err
	}
	if !allowed {
		return User{}, ErrForbidden
	}
	u, err := s.store.GetUser(ctx, caller.TenantID, userID)
	if err != nil {
		return User{}, err
	}
	s.present(&u, caller)
	return u, nil
}

// Lookup returns the raw record for internal callers, without field filtering.
func (s *Service) Lookup(ctx context.Context, tenantID, userID string) (User, error) {
	return s.store.GetUser(ctx, tenantID, userID)
}

func (s *Service) CreateUser(ctx context.Context, caller auth.UserContext, in NewUser) (User, error) {
	rec := UserRecord{
		Email:          strings.ToLower(strings.TrimSpace(in.Email)),
		FirstName:      strings.TrimSpace(in.FirstName),
		LastName:       strings.TrimSpace(in.LastName),
		Phone:          strings.TrimSpace(in.Phone),
		Role:           in.Role,
		DepartmentID:   blankToNil(in.DepartmentID),
		ManagerID:      blankToNil(in.ManagerID),
		Position:       strings.TrimSpace(in.Position),
		EmploymentType: defaultString(in.EmploymentType, "full_time"),
		HireDate:       in.HireDate,
		BaseSalary:     in.BaseSalary,
		Currency:       strings.ToUpper(defaultString(in.Currency, "USD")),
		Status:         UserStatusActive,
	}
	if len(in.Password) < auth.MinPasswordLength {
		return User{}, domainerr.Invalid("password", fmt.Sprintf("must have at least %d characters", auth.MinPasswordLength))
	}
	if err := s.validateRecord(ctx, caller.TenantID, "", rec); err != nil {
		return User{}, err
	}
	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return User{}, err
	}
	rec.PasswordHash = hash
	if rec.BankAccountEnc, err = s.seal(in.BankAccount); err != nil {
		return User{}, err
	}

	id, err := s.store.CreateUser(ctx, caller.TenantID, rec)
	if err != nil {
		return User{}, fmt.Errorf("create user: %w", err)
	}
	return s.GetUser(ctx, caller, id)
}

// UpdateUser applies patch and returns the record before and after.
func (s *Service) UpdateUser(ctx context.Context, caller auth.UserContext, userID string, patch UserPatch) (User, User, error) {
	before, err := s.store.GetUser(ctx, caller.TenantID, userID)
	if err != nil {
		return User{}, User{}, err
	}
	rec := recordFromUser(before)
	applyPatch(&rec, patch)
	if patch.BankAccount != nil {
		if rec.BankAccountEnc, err = s.seal(*patch.BankAccount); err != nil {
			return User{}, User{}, err
		}
	}
	if err := s.validateRecord(ctx, caller.TenantID, userID, rec); err != nil {
		return User{}, User{}, err
	}
	if userID == caller.UserID && rec.Role != before.Role {
		return User{}, User{}, domainerr.Invalid("role", "cannot change your own role")
	}
	if err := s.store.UpdateUser(ctx, caller.TenantID, userID, rec); err != nil {
		return User{}, User{}, fmt.Errorf("update user: %w", err)
	}
	after, err := s.GetUser(ctx, caller, userID)
	if err != nil {
		return User{}, User{}, err
	}
	s.present(&before, caller)
	return before, after, nil
}

func (s *Service) DeleteUser(ctx context.Context, caller auth.UserContext, userID string) error {
	if userID == caller.UserID {
		return ErrCannotDeleteSelf
	}
	return s.store.TerminateUser(ctx, caller.TenantID, userID)
}

func (s *Service) Profile(ctx context.Context, caller auth.UserContext) (User, error) {
	return s.GetUser(ctx, caller, caller.UserID)
}

func (s *Service) UpdateProfile(ctx context.Context, caller auth.UserContext, in ProfileUpdate) (User, error) {
	in.FirstName = strings.TrimSpace(in.FirstName)
	in.LastName = strings.TrimSpace(in.LastName)
	in.Phone = strings.TrimSpace(in.Phone)
	if in.FirstName == "" {
		return User{}, domainerr.Invalid("firstName", "is required")
	}
	if in.LastName == "" {
		return User{}, domainerr.Invalid("lastName", "is required")
	}
	if err := s.store.UpdateProfile(ctx, caller.TenantID, caller.UserID, in); err != nil {
		return User{}, err
	}
	return s.Profile(ctx, caller)
}

func (s *Service) ListDepartments(ctx context.Context, tenantID string) ([]Department, error) {
	return s.store.ListDepartments(ctx, tenantID)
}

func (s *Service) GetDepartment(ctx context.Context, tenantID, departmentID string) (Department, error) {
	return s.store.GetDepartment(ctx, tenantID, departmentID)
}

func (s *Service) DepartmentNames(ctx context.Context, tenantID string) ([]DepartmentName, error) {
	return s.store.DepartmentNames(ctx, tenantID)
}

func (s *Service) CreateDepartment(ctx context.Context, tenantID string, in DepartmentInput) (Department, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.ManagerID = blankToNil(in.ManagerID)
	if err := s.validateDepartmentManager(ctx, tenantID, in.ManagerID); err != nil {
		return Department{}, err
	}
	id, err := s.store.CreateDepartment(ctx, tenantID, in)
	if err != nil {
		return Department{}, fmt.Errorf("create department: %w", err)
	}
	return s.store.GetDepartment(ctx, tenantID, id)
}

func (s *Service) UpdateDepartment(ctx context.Context, tenantID, departmentID string, in DepartmentInput) (Department, Department, error) {
	before, err := s.store.GetDepartment(ctx, tenantID, departmentID)
	if err != nil {
		return Department{}, Department{}, err
	}
	in.Name = strings.TrimSpace(in.Name)
	in.ManagerID = blankToNil(in.ManagerID)
	if err := s.validateDepartmentManager(ctx, tenantID, in.ManagerID); err != nil {
		return Department{}, Department{}, err
	}
	if err := s.store.UpdateDepartment(ctx, tenantID, departmentID, in); err != nil {
		return Department{}, Department{}, fmt.Errorf("update department: %w", err)
	}
	after, err := s.store.GetDepartment(ctx, tenantID, departmentID)
	return before, after, err
}

func (s *Service) DeleteDepartment(ctx context.Context, tenantID, departmentID string) error {
	if _, err := s.store.GetDepartment(ctx, tenantID, departmentID); err != nil {
		return err
	}
	members, err := s.store.DepartmentMemberCount(ctx, tenantID, departmentID)
	if err != nil {
		return err
	}
	if members > 0 {
		return ErrDepartmentInUse
	}
	return s.store.DeleteDepartment(ctx, tenantID, departmentID)
}

func (s *Service) validateRecord(ctx context.Context, tenantID, userID string, rec UserRecord) error {
	if !auth.ValidRole(rec.Role) {
		return domainerr.Invalid("role", "must be one of: "+strings.Join(auth.Roles, ", "))
	}
	if !slices.Contains(EmploymentTypes, rec.EmploymentType) {
		return domainerr.Invalid("employmentType", "must be one of: "+strings.Join(EmploymentTypes, ", "))
	}
	if !slices.Contains(UserStatuses, rec.Status) {
		return domainerr.Invalid("status", "must be one of: "+strings.Join(UserStatuses, ", "))
	}
	if rec.BaseSalary.IsNegative() {
		return domainerr.Invalid("baseSalary", "must be at least 0")
	}
	if rec.DepartmentID != nil {
		if _, err := s.store.GetDepartment(ctx, tenantID, *rec.DepartmentID); err != nil {
			if errors.Is(err, ErrDepartmentNotFound) {
				return domainerr.Invalid("departmentId", "department does not exist")
			}
			return err
		}
	}
	if rec.ManagerID != nil {
		if userID != "" && *rec.ManagerID == userID {
			return domainerr.Invalid("managerId", "cannot manage themself")
		}
		if err := s.requireManagerRole(ctx, tenantID, *rec.ManagerID, "managerId"); err != nil {
			return err
		}
	}
	return nil
}

func (s *Service) validateDepartmentManager(ctx context.Context, tenantID string, managerID *string) error {
	if managerID == nil {
		return nil
	}
	return s.requireManagerRole(ctx, tenantID, *managerID, "managerId")
}

func (s *Service) requireManagerRole(ctx context.Context, tenantID, userID, field string) error {
	manager, err := s.store.GetUser(ctx, tenantID, userID)
	if errors.Is(err, ErrUserNotFound) {
		return domainerr.Invalid(field, "user does not exist")
	}
	if err != nil {
		return err
	}
	if manager.Role != auth.RoleManager && manager.Role != auth.RoleAdmin {
		return domainerr.Invalid(field, "must reference a Manager or Admin")
	}
	return nil
}

func (s *Service) present(u *User, caller auth.UserContext) {
	if len(u.bankAccountEnc) > 0 && s.Crypto != nil {
		plain, err := s.Crypto.DecryptString(u.bankAccountEnc)
		if err != nil {
			slog.Warn("bank account decrypt failed", "userId", u.ID, "err", err)
		} else {
			u.BankAccount = cryptoutil.Mask(plain, 4)
		}
	}
	FilterUserFields(u, caller)
}

func (s *Service) seal(value string) ([]byte, error) {
	value = strings.TrimSpace(value)
	if value == "" || s.Crypto == nil {
		return nil, nil
	}
	return s.Crypto.EncryptString(value)
}

func recordFromUser(u User) UserRecord {
	salary := decimal.Zero
	if u.BaseSalary != nil {
		salary = *u.BaseSalary
	}
	return UserRecord{
		Email:          u.Email,
		FirstName:      u.FirstName,
		LastName:       u.LastName,
		Phone:          u.Phone,
		Role:           u.Role,
		DepartmentID:   u.DepartmentID,
		ManagerID:      u.ManagerID,
		Position:       u.Position,
		EmploymentType: u.EmploymentType,
		HireDate:       u.HireDate,
		BaseSalary:     salary,
		Currency:       u.Currency,
		BankAccountEnc: u.bankAccountEnc,
		Status:         u.Status,
	}
}

func applyPatch(rec *UserRecord, p UserPatch) {
	setString := func(dst *string, src *string) {
		if src != nil {
			*dst = strings.TrimSpace(*src)
		}
	}
	setString(&rec.Email, p.Email)
	rec.Email = strings.ToLower(rec.Email)
	setString(&rec.FirstName, p.FirstName)
	setString(&rec.LastName, p.LastName)
	setString(&rec.Phone, p.Phone)
	setString(&rec.Role, p.Role)
	setString(&rec.Position, p.Position)
	setString(&rec.EmploymentType, p.EmploymentType)
	setString(&rec.Currency, p.Currency)
	setString(&rec.Status, p.Status)
	if p.DepartmentID != nil {
		rec.DepartmentID = blankToNil(p.DepartmentID)
	}
	if p.ManagerID != nil {
		rec.ManagerID = blankToNil(p.ManagerID)
	}
	if p.HireDate != nil {
		rec.HireDate = p.HireDate
	}
	if p.BaseSalary != nil {
		rec.BaseSalary = *p.BaseSalary
	}
}

func blankToNil(value *string) *string {
	if value == nil || strings.TrimSpace(*value) == "" {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	return &trimmed
}

func defaultString(value, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return strings.TrimSpace(value)
}
