package payroll

import (
	"time"

	"github.com/shopspring/decimal"
)

type Record struct {
	ID                 string          `json:"id"`
	UserID             string          `json:"userId"`
	UserName           string          `json:"userName,omitempty"`
	UserEmail          string          `json:"userEmail,omitempty"`
	DepartmentName     string          `json:"departmentName,omitempty"`
	Period             string          `json:"period"`
	BaseSalary         decimal.Decimal `json:"baseSalary"`
	TotalBonuses       decimal.Decimal `json:"totalBonuses"`
	TotalAllowances    decimal.Decimal `json:"totalAllowances"`
	OvertimePay        decimal.Decimal `json:"overtimePay"`
	AbsenceDeductions  decimal.Decimal `json:"absenceDeductions"`
	LatenessDeductions decimal.Decimal `json:"latenessDeductions"`
	TaxDeductions      decimal.Decimal `json:"taxDeductions"`
	GrossSalary        decimal.Decimal `json:"grossSalary"`
	NetSalary          decimal.Decimal `json:"netSalary"`
	Shortfall          decimal.Decimal `json:"shortfall"`
	Currency           string          `json:"currency"`
	Status             string          `json:"status"`
	FinalizedAt        *time.Time      `json:"finalizedAt,omitempty"`
	PaidAt             *time.Time      `json:"paidAt,omitempty"`
	CreatedAt          time.Time       `json:"createdAt"`
	UpdatedAt          time.Time       `json:"updatedAt"`
	Adjustments        []Adjustment    `json:"adjustments,omitempty"`
}

func (r *Record) applyTotals(t Totals) {
	r.BaseSalary = t.Base
	r.TotalBonuses = t.Bonuses
	r.TotalAllowances = t.Allowances
	r.OvertimePay = t.Overtime
	r.AbsenceDeductions = t.AbsenceDeductions
	r.LatenessDeductions = t.LatenessDeductions
	r.TaxDeductions = t.TaxDeductions
	r.GrossSalary = t.Gross
	r.NetSalary = t.Net
	r.Shortfall = t.Shortfall
}

type Adjustment struct {
	ID             string          `json:"id"`
	SalaryRecordID string          `json:"salaryRecordId"`
	Kind           string          `json:"kind"`
	Amount         decimal.Decimal `json:"amount"`
	Description    string          `json:"description"`
	Source         string          `json:"source"`
	CreatedBy      *string         `json:"createdBy,omitempty"`
	CreatedAt      time.Time       `json:"createdAt"`
}

type NewAdjustment struct {
	Kind        string
	Amount      decimal.Decimal
	Description string
}

type NewRecord struct {
	UserID      string
	Period      string
	BaseSalary  *decimal.Decimal
	Adjustments []NewAdjustment
}

type Filter struct {
	UserID   string
	Period   string
	Status   string
	Statuses []string
}

// Payee is an active user eligible for a generated record.
type Payee struct {
	UserID     string
	BaseSalary decimal.Decimal
	Currency   string
}

type StatusTotal struct {
	Status     string          `json:"status"`
	Count      int             `json:"count"`
	Gross      decimal.Decimal `json:"gross"`
	Deductions decimal.Decimal `json:"deductions"`
	Net        decimal.Decimal `json:"net"`
}

type PeriodSummary struct {
	Period   string          `json:"period"`
	ByStatus []StatusTotal   `json:"byStatus"`
	Gross    decimal.Decimal `json:"gross"`
	Net      decimal.Decimal `json:"net"`
	Count    int             `json:"count"`
}

type GenerateResult struct {
	Period      string `json:"period"`
	WorkingDays int    `json:"workingDays"`
	Created     int    `json:"created"`
	Skipped     int    `json:"skipped"`
}
