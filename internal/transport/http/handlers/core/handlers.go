package corehandler

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"hrdesk/internal/domain/audit"
	"hrdesk/internal/domain/auth"
	"hrdesk/internal/domain/core"
	"hrdesk/internal/transport/http/api"
	"hrdesk/internal/transport/http/middleware"
	"hrdesk/internal/transport/http/shared"
)

type Handler struct {
	Service *core.Service
	Audit   audit.Recorder
}

func NewHandler(service *core.Service, recorder audit.Recorder) *Handler {
	return &Handler{Service: service, Audit: recorder}
}

func (h *Handler) RegisterAdmin(r chi.Router) {
	r.Route("/users", func(r chi.Router) {
		r.With(middleware.RequirePermission(auth.PermUsersRead)).Get("/", h.handleListUsers)
		r.With(middleware.RequirePermission(auth.PermUsersWrite)).Post("/", h.handleCreateUser)
		r.Route("/{userID}", func(r chi.Router) {
			r.With(middleware.RequirePermission(auth.PermUsersRead)).Get("/", h.handleGetUser)
			r.With(middleware.RequirePermission(auth.PermUsersWrite)).Put("/", h.handleUpdateUser)
			r.With(middleware.RequirePermission(auth.PermUsersWrite)).Delete("/", h.handleDeleteUser)
		})
	})
	r.Route("/departments", func(r chi.Router) {
		r.Get("/", h.handleListDepartments)
		r.With(middleware.RequirePermission(auth.PermDepartmentsWrite)).Post("/", h.handleCreateDepartment)
		r.Route("/{departmentID}", func(r chi.Router) {
			r.Get("/", h.handleGetDepartment)
			r.With(middleware.RequirePermission(auth.PermDepartmentsWrite)).Put("/", h.handleUpdateDepartment)
			r.With(middleware.RequirePermission(auth.PermDepartmentsWrite)).Delete("/", h.handleDeleteDepartment)
		})
	})
}

func (h *Handler) RegisterManager(r chi.Router) {
	r.With(middleware.RequirePermission(auth.PermUsersRead)).Get("/team", h.handleListUsers)
	r.With(middleware.RequirePermission(auth.PermUsersRead)).Get("/team/{userID}", h.handleGetUser)
}

func (h *Handler) RegisterEmployee(r chi.Router) {
	r.Get("/profile", h.handleProfile)
	r.Put("/profile", h.handleUpdateProfile)
}

func (h *Handler) RegisterShared(r chi.Router) {
	r.Get("/me", h.handleProfile)
	r.Get("/departments", h.handleDepartmentNames)
}

type createUserRequest struct {
	Email          string          `json:"email" validate:"required,email"`
	Password       string          `json:"password" validate:"required,min=8"`
	FirstName      string          `json:"firstName" validate:"required,max=100"`
	LastName       string          `json:"lastName" validate:"required,max=100"`
	Phone          string          `json:"phone" validate:"max=40"`
	Role           string          `json:"role" validate:"required,oneof=Admin Manager Employee"`
	DepartmentID   *string         `json:"departmentId" validate:"omitempty,uuid"`
	ManagerID      *string         `json:"managerId" validate:"omitempty,uuid"`
	Position       string          `json:"position" validate:"max=120"`
	EmploymentType string          `json:"employmentType" validate:"omitempty,oneof=full_time part_time contract intern"`
	HireDate       string          `json:"hireDate" validate:"omitempty,datetime=2006-01-02"`
	BaseSalary     decimal.Decimal `json:"baseSalary" validate:"gte=0"`
	Currency       string          `json:"currency" validate:"omitempty,len=3"`
	BankAccount    string          `json:"bankAccount" validate:"max=64"`
}

type updateUserRequest struct {
	Email          *string          `json:"email" validate:"omitempty,email"`
	FirstName      *string          `json:"firstName" validate:"omitempty,max=100"`
	LastName       *string          `json:"lastName" validate:"omitempty,max=100"`
	Phone          *string          `json:"phone" validate:"omitempty,max=40"`
	Role           *string          `json:"role" validate:"omitempty,oneof=Admin Manager Employee"`
	DepartmentID   *string          `json:"departmentId"`
	ManagerID      *string          `json:"managerId"`
	Position       *string          `json:"position" validate:"omitempty,max=120"`
	EmploymentType *string          `json:"employmentType" validate:"omitempty,oneof=full_time part_time contract intern"`
	HireDate       *string          `json:"hireDate" validate:"omitempty,datetime=2006-01-02"`
	BaseSalary     *decimal.Decimal `json:"baseSalary"`
	Currency       *string          `json:"currency" validate:"omitempty,len=3"`
	BankAccount    *string          `json:"bankAccount" validate:"omitempty,max=64"`
	Status         *string          `json:"status" validate:"omitempty,oneof=active inactive terminated"`
}

type profileRequest struct {
	FirstName string `json:"firstName" validate:"required,max=100"`
	LastName  string `json:"lastName" validate:"required,max=100"`
	Phone     string `json:"phone" validate:"max=40"`
}

type departmentRequest struct {
	Name        string  `json:"name" validate:"required,max=120"`
	Description string  `json:"description" validate:"max=500"`
	ManagerID   *string `json:"managerId" validate:"omitempty,uuid"`
}

func (h *Handler) handleListUsers(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.CurrentUser(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()
	filter := core.UserFilter{
		Query:        strings.TrimSpace(q.Get("q")),
		DepartmentID: q.Get("departmentId"),
		Role:         q.Get("role"),
		Status:       q.Get("status"),
	}
	page := shared.Page(r)
	users, total, err := h.Service.ListUsers(r.Context(), user, filter, page.Limit, page.Offset)
	if err != nil {
		shared.WriteError(w, r, err, "user_list_failed", "failed to list users")
		return
	}
	api.Paged(w, users, total, page.Limit, page.Offset, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleGetUser(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.CurrentUser(w, r)
	if !ok {
		return
	}
	found, err := h.Service.GetUser(r.Context(), user, chi.URLParam(r, "userID"))
	if err != nil {
		shared.WriteError(w, r, err, "user_fetch_failed", "failed to fetch user")
		return
	}
	api.Success(w, found, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.CurrentUser(w, r)
	if !ok {
		return
	}
	var payload createUserRequest
	if !shared.Decode(w, r, &payload) {
		return
	}
	hireDate, err := optionalDate(payload.HireDate)
	if err != nil {
		shared.FailValidation(w, middleware.GetRequestID(r.Context()), []shared.ValidationIssue{{Field: "hireDate", Reason: "must be a valid date in YYYY-MM-DD format"}})
		return
	}
	created, err := h.Service.CreateUser(r.Context(), user, core.NewUser{
		Email:          payload.Email,
		Password:       payload.Password,
		FirstName:      payload.FirstName,
		LastName:       payload.LastName,
		Phone:          payload.Phone,
		Role:           payload.Role,
		DepartmentID:   payload.DepartmentID,
		ManagerID:      payload.ManagerID,
		Position:       payload.Position,
		EmploymentType: payload.EmploymentType,
		HireDate:       hireDate,
		BaseSalary:     payload.BaseSalary,
		Currency:       payload.Currency,
		BankAccount:    payload.BankAccount,
	})
	if err != nil {
		shared.WriteError(w, r, err, "user_create_failed", "failed to create user")
		return
	}
	shared.Audit(r.Context(), h.Audit, user, "user.create", "user", created.ID, nil, created)
	api.Created(w, created, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleUpdateUser(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.CurrentUser(w, r)
	if !ok {
		return
	}
	var payload updateUserRequest
	if !shared.Decode(w, r, &payload) {
		return
	}
	patch := core.UserPatch{
		Email:          payload.Email,
		FirstName:      payload.FirstName,
		LastName:       payload.LastName,
		Phone:          payload.Phone,
		Role:           payload.Role,
		DepartmentID:   payload.DepartmentID,
		ManagerID:      payload.ManagerID,
		Position:       payload.Position,
		EmploymentType: payload.EmploymentType,
		BaseSalary:     payload.BaseSalary,
		Currency:       payload.Currency,
		BankAccount:    payload.BankAccount,
		Status:         payload.Status,
	}
	if payload.HireDate != nil {
		hireDate, err := optionalDate(*payload.HireDate)
		if err != nil {
			shared.FailValidation(w, middleware.GetRequestID(r.Context()), []shared.ValidationIssue{{Field: "hireDate", Reason: "must be a valid date in YYYY-MM-DD format"}})
			return
		}
		patch.HireDate = hireDate
	}
	userID := chi.URLParam(r, "userID")
	before, after, err := h.Service.UpdateUser(r.Context(), user, userID, patch)
	if err != nil {
		shared.WriteError(w, r, err, "user_update_failed", "failed to update user")
		return
	}
	shared.Audit(r.Context(), h.Audit, user, "user.update", "user", userID, before, after)
	api.Success(w, after, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleDeleteUser(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.CurrentUser(w, r)
	if !ok {
		return
	}
	userID := chi.URLParam(r, "userID")
	if err := h.Service.DeleteUser(r.Context(), user, userID); err != nil {
		shared.WriteError(w, r, err, "user_delete_failed", "failed to delete user")
		return
	}
	shared.Audit(r.Context(), h.Audit, user, "user.delete", "user", userID, nil, map[string]string{"status": core.UserStatusTerminated})
	api.Success(w, map[string]string{"status": "deleted"}, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleProfile(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.CurrentUser(w, r)
	if !ok {
		return
	}
	profile, err := h.Service.Profile(r.Context(), user)
	if err != nil {
		shared.WriteError(w, r, err, "profile_fetch_failed", "failed to fetch profile")
		return
	}
	api.Success(w, profile, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.CurrentUser(w, r)
	if !ok {
		return
	}
	var payload profileRequest
	if !shared.Decode(w, r, &payload) {
		return
	}
	profile, err := h.Service.UpdateProfile(r.Context(), user, core.ProfileUpdate{
		FirstName: payload.FirstName,
		LastName:  payload.LastName,
		Phone:     payload.Phone,
	})
	if err != nil {
		shared.WriteError(w, r, err, "profile_update_failed", "failed to update profile")
		return
	}
	api.Success(w, profile, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleListDepartments(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.CurrentUser(w, r)
	if !ok {
		return
	}
	departments, err := h.Service.ListDepartments(r.Context(), user.TenantID)
	if err != nil {
		shared.WriteError(w, r, err, "department_list_failed", "failed to list departments")
		return
	}
	api.Success(w, departments, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleDepartmentNames(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.CurrentUser(w, r)
	if !ok {
		return
	}
	names, err := h.Service.DepartmentNames(r.Context(), user.TenantID)
	if err != nil {
		shared.WriteError(w, r, err, "department_list_failed", "failed to list departments")
		return
	}
	api.Success(w, names, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleGetDepartment(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.CurrentUser(w, r)
	if !ok {
		return
	}
	department, err := h.Service.GetDepartment(r.Context(), user.TenantID, chi.URLParam(r, "departmentID"))
	if err != nil {
		shared.WriteError(w, r, err, "department_fetch_failed", "failed to fetch department")
		return
	}
	api.Success(w, department, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleCreateDepartment(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.CurrentUser(w, r)
	if !ok {
		return
	}
	var payload departmentRequest
	if !shared.Decode(w, r, &payload) {
		return
	}
	department, err := h.Service.CreateDepartment(r.Context(), user.TenantID, core.DepartmentInput{
		Name:        payload.Name,
		Description: payload.Description,
		ManagerID:   payload.ManagerID,
	})
	if err != nil {
		shared.WriteError(w, r, err, "department_create_failed", "failed to create department")
		return
	}
	shared.Audit(r.Context(), h.Audit, user, "department.create", "department", department.ID, nil, department)
	api.Created(w, department, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleUpdateDepartment(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.CurrentUser(w, r)
	if !ok {
		return
	}
	var payload departmentRequest
	if !shared.Decode(w, r, &payload) {
		return
	}
	departmentID := chi.URLParam(r, "departmentID")
	before, after, err := h.Service.UpdateDepartment(r.Context(), user.TenantID, departmentID, core.DepartmentInput{
		Name:        payload.Name,
		Description: payload.Description,
		ManagerID:   payload.ManagerID,
	})
	if err != nil {
		shared.WriteError(w, r, err, "department_update_failed", "failed to update department")
		return
	}
	shared.Audit(r.Context(), h.Audit, user, "department.update", "department", departmentID, before, after)
	api.Success(w, after, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleDeleteDepartment(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.CurrentUser(w, r)
	if !ok {
		return
	}
	departmentID := chi.URLParam(r, "departmentID")
	if err := h.Service.DeleteDepartment(r.Context(), user.TenantID, departmentID); err != nil {
		shared.WriteError(w, r, err, "department_delete_failed", "failed to delete department")
		return
	}
	shared.Audit(r.Context(), h.Audit, user, "department.delete", "department", departmentID, nil, nil)
	api.Success(w, map[string]string{"status": "deleted"}, middleware.GetRequestID(r.Context()))
}

func optionalDate(raw string) (*time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	parsed, err := time.Parse(shared.DateLayout, raw)
	if err != nil {
		return nil, err
	}
	return &parsed, nil
}
