package core

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	UserStatusActive     = "active"
	UserStatusInactive   = "inactive"
	UserStatusTerminated = "terminated"
)

var (
	UserStatuses    = []string{UserStatusActive, UserStatusInactive, UserStatusTerminated}
	EmploymentTypes = []string{"full_time", "part_time", "contract", "intern"}
)

type User struct {
	ID             string           `json:"id"`
	Email          string           `json:"email"`
	FirstName      string           `json:"firstName"`
	LastName       string           `json:"lastName"`
	Phone          string           `json:"phone"`
	Role           string           `json:"role"`
	DepartmentID   *string          `json:"departmentId,omitempty"`
	DepartmentName string           `json:"departmentName,omitempty"`
	ManagerID      *string          `json:"managerId,omitempty"`
	Position       string           `json:"position"`
	EmploymentType string           `json:"employmentType"`
	HireDate       *time.Time       `json:"hireDate,omitempty"`
	BaseSalary     *decimal.Decimal `json:"baseSalary,omitempty"`
	Currency       string           `json:"currency"`
	BankAccount    string           `json:"bankAccount,omitempty"`
	Status         string           `json:"status"`
	MFAEnabled     bool             `json:"mfaEnabled"`
	LastLogin      *time.Time       `json:"lastLogin,omitempty"`
	CreatedAt      time.Time        `json:"createdAt"`
	UpdatedAt      time.Time        `json:"updatedAt"`

	bankAccountEnc []byte
}

func (u User) FullName() string {
	return u.FirstName + " " + u.LastName
}

// UserRecord is what the store writes.
type UserRecord struct {
	Email          string
	PasswordHash   string
	FirstName      string
	LastName       string
	Phone          string
	Role           string
	DepartmentID   *string
	ManagerID      *string
	Position       string
	EmploymentType string
	HireDate       *time.Time
	BaseSalary     decimal.Decimal
	Currency       string
	BankAccountEnc []byte
	Status         string
}

type NewUser struct {
	Email          string
	Password       string
	FirstName      string
	LastName       string
	Phone          string
	Role           string
	DepartmentID   *string
	ManagerID      *string
	Position       string
	EmploymentType string
	HireDate       *time.Time
	BaseSalary     decimal.Decimal
	Currency       string
	BankAccount    string
}

// UserPatch carries optional changes. Nil leaves the field alone; an empty
// DepartmentID or ManagerID clears it.
type UserPatch struct {
	Email          *string
	FirstName      *string
	LastName       *string
	Phone          *string
	Role           *string
	DepartmentID   *string
	ManagerID      *string
	Position       *string
	EmploymentType *string
	HireDate       *time.Time
	BaseSalary     *decimal.Decimal
	Currency       *string
	BankAccount    *string
	Status         *string
}

type ProfileUpdate struct {
	FirstName string
	LastName  string
	Phone     string
}

type UserFilter struct {
	Query        string
	DepartmentID string
	Role         string
	Status       string
	TeamOf       string
}

type Department struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	Description   string    `json:"description"`
	ManagerID     *string   `json:"managerId,omitempty"`
	ManagerName   string    `json:"managerName,omitempty"`
	EmployeeCount int       `json:"employeeCount"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

type DepartmentInput struct {
	Name        string
	Description string
	ManagerID   *string
}

type DepartmentName struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}
