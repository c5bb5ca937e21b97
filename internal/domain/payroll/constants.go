package payroll

const (
	StatusDraft     = "draft"
	StatusFinalized = "finalized"
	StatusPaid      = "paid"

	KindBonus             = "bonus"
	KindAllowance         = "allowance"
	KindOvertime          = "overtime"
	KindAbsenceDeduction  = "absence_deduction"
	KindLatenessDeduction = "lateness_deduction"
	KindTaxDeduction      = "tax_deduction"

	SourceManual     = "manual"
	SourceAttendance = "attendance"
	SourceTax        = "tax"

	PeriodLayout = "2006-01"
)

var Kinds = []string{KindBonus, KindAllowance, KindOvertime, KindAbsenceDeduction, KindLatenessDeduction, KindTaxDeduction}
