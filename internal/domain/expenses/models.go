package expenses

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	StatusPending  = "pending"
	StatusApproved = "approved"
	StatusRejected = "rejected"
	StatusPaid     = "paid"

	ActionApprove = "approve"
	ActionReject  = "reject"
	ActionPay     = "pay"
)

var Categories = []string{"travel", "meals", "lodging", "equipment", "software", "training", "office", "other"}

type Expense struct {
	ID             string          `json:"id"`
	UserID         string          `json:"userId"`
	UserName       string          `json:"userName,omitempty"`
	DepartmentID   *string         `json:"departmentId,omitempty"`
	DepartmentName string          `json:"departmentName,omitempty"`
	Category       string          `json:"category"`
	Description    string          `json:"description"`
	Amount         decimal.Decimal `json:"amount"`
	Currency       string          `json:"currency"`
	ExpenseDate    time.Time       `json:"expenseDate"`
	Status         string          `json:"status"`
	ReviewerID     *string         `json:"reviewerId,omitempty"`
	ReviewedAt     *time.Time      `json:"reviewedAt,omitempty"`
	ReviewNote     string          `json:"reviewNote"`
	PaidBy         *string         `json:"paidBy,omitempty"`
	PaidAt         *time.Time      `json:"paidAt,omitempty"`
	CreatedAt      time.Time       `json:"createdAt"`
	UpdatedAt      time.Time       `json:"updatedAt"`
}

type NewExpense struct {
	DepartmentID *string
	Category     string
	Description  string
	Amount       decimal.Decimal
	Currency     string
	ExpenseDate  time.Time
}

type Filter struct {
	UserID       string
	TeamOf       string
	DepartmentID string
	Status       string
	Category     string
	From         *time.Time
	To           *time.Time
}

// SummaryRow is one department/status bucket.
type SummaryRow struct {
	DepartmentID   *string         `json:"departmentId"`
	DepartmentName string          `json:"departmentName"`
	Status         string          `json:"status"`
	Count          int             `json:"count"`
	Total          decimal.Decimal `json:"total"`
}
