package payroll

import "github.com/shopspring/decimal"

type Line struct {
	Kind   string
	Amount decimal.Decimal
}

type Totals struct {
	Base               decimal.Decimal
	Bonuses            decimal.Decimal
	Allowances         decimal.Decimal
	Overtime           decimal.Decimal
	AbsenceDeductions  decimal.Decimal
	LatenessDeductions decimal.Decimal
	TaxDeductions      decimal.Decimal
	Gross              decimal.Decimal
	Deductions         decimal.Decimal
	Net                decimal.Decimal
	// Shortfall is how far deductions exceed gross; Net is clamped at zero.
	Shortfall decimal.Decimal
}

var hundred = decimal.NewFromInt(100)

// ComputeSalary sums the lines onto base. Unknown kinds are ignored.
func ComputeSalary(base decimal.Decimal, lines []Line) Totals {
	t := Totals{Base: base}
	for _, line := range lines {
		switch line.Kind {
		case KindBonus:
			t.Bonuses = t.Bonuses.Add(line.Amount)
		case KindAllowance:
			t.Allowances = t.Allowances.Add(line.Amount)
		case KindOvertime:
			t.Overtime = t.Overtime.Add(line.Amount)
		case KindAbsenceDeduction:
			t.AbsenceDeductions = t.AbsenceDeductions.Add(line.Amount)
		case KindLatenessDeduction:
			t.LatenessDeductions = t.LatenessDeductions.Add(line.Amount)
		case KindTaxDeduction:
			t.TaxDeductions = t.TaxDeductions.Add(line.Amount)
		}
	}
	t.Gross = base.Add(t.Bonuses).Add(t.Allowances).Add(t.Overtime)
	t.Deductions = t.AbsenceDeductions.Add(t.LatenessDeductions).Add(t.TaxDeductions)
	t.Net = t.Gross.Sub(t.Deductions)
	if t.Net.IsNegative() {
		t.Shortfall = t.Net.Neg()
		t.Net = decimal.Zero
	}
	return t
}

// AbsenceDeduction charges a day's pay, base divided by working days, per absence.
func AbsenceDeduction(base decimal.Decimal, workingDays, absences int) decimal.Decimal {
	if workingDays <= 0 || absences <= 0 {
		return decimal.Zero
	}
	daily := base.Div(decimal.NewFromInt(int64(workingDays)))
	return daily.Mul(decimal.NewFromInt(int64(absences))).Round(2)
}

func LatenessDeduction(lateMinutes int, ratePerMinute decimal.Decimal) decimal.Decimal {
	if lateMinutes <= 0 || !ratePerMinute.IsPositive() {
		return decimal.Zero
	}
	return ratePerMinute.Mul(decimal.NewFromInt(int64(lateMinutes))).Round(2)
}

// TaxFor is the generated tax line: a percentage of base salary, not of gross.
func TaxFor(base, ratePercent decimal.Decimal) decimal.Decimal {
	if !base.IsPositive() || !ratePercent.IsPositive() {
		return decimal.Zero
	}
	return base.Mul(ratePercent).Div(hundred).Round(2)
}

func money(d decimal.Decimal) float64 {
	f, _ := d.Round(2).Float64()
	return f
}
