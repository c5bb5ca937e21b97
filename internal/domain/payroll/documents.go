package payroll

import (
	"bytes"
	"context"
	"fmt"

	"github.com/jung-kurt/gofpdf"

	"hrdesk/internal/domain/auth"
	"hrdesk/internal/platform/export"
)

var kindLabels = map[string]string{
	KindBonus:             "Bonus",
	KindAllowance:         "Allowance",
	KindOvertime:          "Overtime",
	KindAbsenceDeduction:  "Absence deduction",
	KindLatenessDeduction: "Lateness deduction",
	KindTaxDeduction:      "Tax",
}

// Payslip renders the record as a PDF. Callers get the same visibility as Get.
func (s *Service) Payslip(ctx context.Context, caller auth.UserContext, id string) ([]byte, string, error) {
	rec, err := s.Get(ctx, caller, id)
	if err != nil {
		return nil, "", err
	}
	body, err := RenderPayslip(rec)
	if err != nil {
		return nil, "", err
	}
	return body, fmt.Sprintf("payslip-%s-%s.pdf", rec.Period, rec.ID), nil
}

func RenderPayslip(rec Record) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.AddPage()
	pdf.SetFont("Helvetica", "B", 16)
	pdf.Cell(40, 10, "Payslip")
	pdf.Ln(12)

	pdf.SetFont("Helvetica", "", 12)
	pdf.Cell(0, 8, fmt.Sprintf("Employee: %s", rec.UserName))
	pdf.Ln(7)
	pdf.Cell(0, 8, fmt.Sprintf("Email: %s", rec.UserEmail))
	pdf.Ln(7)
	if rec.DepartmentName != "" {
		pdf.Cell(0, 8, fmt.Sprintf("Department: %s", rec.DepartmentName))
		pdf.Ln(7)
	}
	pdf.Cell(0, 8, fmt.Sprintf("Period: %s    Status: %s", rec.Period, rec.Status))
	pdf.Ln(10)

	row := func(label string, value string) {
		pdf.CellFormat(110, 7, label, "B", 0, "L", false, 0, "")
		pdf.CellFormat(60, 7, value+" "+rec.Currency, "B", 1, "R", false, 0, "")
	}
	pdf.SetFont("Helvetica", "B", 12)
	pdf.Cell(0, 8, "Earnings")
	pdf.Ln(8)
	pdf.SetFont("Helvetica", "", 11)
	row("Base salary", rec.BaseSalary.StringFixed(2))
	row("Bonuses", rec.TotalBonuses.StringFixed(2))
	row("Allowances", rec.TotalAllowances.StringFixed(2))
	row("Overtime", rec.OvertimePay.StringFixed(2))
	row("Gross", rec.GrossSalary.StringFixed(2))
	pdf.Ln(4)

	pdf.SetFont("Helvetica", "B", 12)
	pdf.Cell(0, 8, "Deductions")
	pdf.Ln(8)
	pdf.SetFont("Helvetica", "", 11)
	row("Absence", rec.AbsenceDeductions.StringFixed(2))
	row("Lateness", rec.LatenessDeductions.StringFixed(2))
	row("Tax", rec.TaxDeductions.StringFixed(2))
	pdf.Ln(4)

	pdf.SetFont("Helvetica", "B", 12)
	row("Net pay", rec.NetSalary.StringFixed(2))
	if rec.Shortfall.IsPositive() {
		pdf.SetFont("Helvetica", "I", 10)
		pdf.Ln(2)
		pdf.Cell(0, 6, fmt.Sprintf("Deductions exceeded gross by %s %s; net pay is shown as zero.", rec.Shortfall.StringFixed(2), rec.Currency))
		pdf.Ln(6)
	}

	if len(rec.Adjustments) > 0 {
		pdf.Ln(4)
		pdf.SetFont("Helvetica", "B", 12)
		pdf.Cell(0, 8, "Adjustments")
		pdf.Ln(8)
		pdf.SetFont("Helvetica", "", 10)
		for _, a := range rec.Adjustments {
			label := kindLabels[a.Kind]
			if a.Description != "" {
				label += ": " + a.Description
			}
			row(label, a.Amount.StringFixed(2))
		}
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Register exports every record of a period as an .xlsx payroll register.
func (s *Service) Register(ctx context.Context, caller auth.UserContext, period string) ([]byte, error) {
	from, _, err := ParsePeriod(period)
	if err != nil {
		return nil, err
	}
	records, _, err := s.store.List(ctx, caller.TenantID, Filter{Period: from.Format(PeriodLayout)}, 0, 0)
	if err != nil {
		return nil, err
	}
	rows := make([][]any, 0, len(records))
	for _, r := range records {
		rows = append(rows, []any{
			r.UserName, r.UserEmail, r.DepartmentName, r.Period, r.Status,
			money(r.BaseSalary), money(r.TotalBonuses), money(r.TotalAllowances), money(r.OvertimePay),
			money(r.AbsenceDeductions), money(r.LatenessDeductions), money(r.TaxDeductions),
			money(r.GrossSalary), money(r.NetSalary), r.Currency,
		})
	}
	return export.Workbook(export.Sheet{
		Name: "Register " + from.Format(PeriodLayout),
		Headers: []string{
			"Employee", "Email", "Department", "Period", "Status",
			"Base", "Bonuses", "Allowances", "Overtime",
			"Absence ded.", "Lateness ded.", "Tax ded.",
			"Gross", "Net", "Currency",
		},
		Rows: rows,
	})
}
