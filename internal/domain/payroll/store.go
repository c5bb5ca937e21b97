package payroll

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"hrdesk/internal/platform/querier"
)

type StoreAPI interface {
	List(ctx context.Context, tenantID string, filter Filter, limit, offset int) ([]Record, int, error)
	Get(ctx context.Context, tenantID, id string) (Record, error)
	Create(ctx context.Context, tenantID string, rec Record, adjustments []Adjustment) (string, error)
	AddAdjustment(ctx context.Context, tenantID, recordID string, adj Adjustment) (string, error)
	RemoveAdjustment(ctx context.Context, tenantID, recordID, adjustmentID string) error
	Transition(ctx context.Context, tenantID, id, from, to string) error
	Summary(ctx context.Context, tenantID, period string) ([]StatusTotal, error)
	Payees(ctx context.Context, tenantID, period string) ([]Payee, error)
}

type Store struct {
	DB querier.Querier
}

func NewStore(db querier.Querier) *Store {
	return &Store{DB: db}
}

const recordSelect = `
    SELECT s.id, s.user_id, COALESCE(u.first_name || ' ' || u.last_name, ''), u.email, COALESCE(d.name, ''),
           s.period, s.base_salary, s.total_bonuses, s.total_allowances, s.overtime_pay,
           s.absence_deductions, s.lateness_deductions, s.tax_deductions, s.gross_salary, s.net_salary,
           s.currency, s.status, s.finalized_at, s.paid_at, s.created_at, s.updated_at
    FROM salary_records s
    JOIN users u ON u.id = s.user_id
    LEFT JOIN departments d ON d.id = u.department_id`

func scanRecord(row pgx.Row) (Record, error) {
	var r Record
	err := row.Scan(&r.ID, &r.UserID, &r.UserName, &r.UserEmail, &r.DepartmentName,
		&r.Period, &r.BaseSalary, &r.TotalBonuses, &r.TotalAllowances, &r.OvertimePay,
		&r.AbsenceDeductions, &r.LatenessDeductions, &r.TaxDeductions, &r.GrossSalary, &r.NetSalary,
		&r.Currency, &r.Status, &r.FinalizedAt, &r.PaidAt, &r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		return r, err
	}
	owed := r.AbsenceDeductions.Add(r.LatenessDeductions).Add(r.TaxDeductions).Sub(r.GrossSalary)
	if owed.IsPositive() {
		r.Shortfall = owed
	}
	return r, nil
}

func buildWhere(tenantID string, filter Filter) (string, []any) {
	where := "WHERE s.tenant_id = $1"
	args := []any{tenantID}
	add := func(clause string, value any) {
		args = append(args, value)
		where += fmt.Sprintf(" AND "+clause, len(args))
	}
	if filter.UserID != "" {
		add("s.user_id::text = $%d", filter.UserID)
	}
	if filter.Period != "" {
		add("s.period = $%d", filter.Period)
	}
	if filter.Status != "" {
		add("s.status = $%d", filter.Status)
	}
	if len(filter.Statuses) > 0 {
		add("s.status = ANY($%d)", filter.Statuses)
	}
	return where, args
}

func (s *Store) List(ctx context.Context, tenantID string, filter Filter, limit, offset int) ([]Record, int, error) {
	where, args := buildWhere(tenantID, filter)

	var total int
	if err := s.DB.QueryRow(ctx, "SELECT COUNT(1) FROM salary_records s "+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := recordSelect + " " + where + " ORDER BY s.period DESC, u.last_name, u.first_name"
	if limit > 0 {
		args = append(args, limit, offset)
		query += fmt.Sprintf(" LIMIT $%d OFFSET $%d", len(args)-1, len(args))
	}
	rows, err := s.DB.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	out := []Record{}
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, r)
	}
	return out, total, rows.Err()
}

func (s *Store) Get(ctx context.Context, tenantID, id string) (Record, error) {
	r, err := scanRecord(s.DB.QueryRow(ctx, recordSelect+`
    WHERE s.tenant_id = $1 AND s.id = $2
  `, tenantID, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Record{}, ErrNotFound
	}
	if err != nil {
		return Record{}, err
	}
	r.Adjustments, err = listAdjustments(ctx, s.DB, tenantID, id)
	return r, err
}

func listAdjustments(ctx context.Context, q querier.Querier, tenantID, recordID string) ([]Adjustment, error) {
	rows, err := q.Query(ctx, `
    SELECT id, salary_record_id, kind, amount, description, source, created_by::text, created_at
    FROM salary_adjustments
    WHERE tenant_id = $1 AND salary_record_id = $2
    ORDER BY created_at, id
  `, tenantID, recordID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Adjustment{}
	for rows.Next() {
		var a Adjustment
		if err := rows.Scan(&a.ID, &a.SalaryRecordID, &a.Kind, &a.Amount, &a.Description, &a.Source, &a.CreatedBy, &a.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// Create inserts the record and its adjustments together. A record that
// already exists for the user and period yields ErrDuplicate.
func (s *Store) Create(ctx context.Context, tenantID string, rec Record, adjustments []Adjustment) (string, error) {
	var id string
	err := querier.WithTx(ctx, s.DB, func(q querier.Querier) error {
		err := q.QueryRow(ctx, `
      INSERT INTO salary_records (tenant_id, user_id, period, base_salary, total_bonuses, total_allowances,
        overtime_pay, absence_deductions, lateness_deductions, tax_deductions, gross_salary, net_salary, currency)
      VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
      ON CONFLICT (user_id, period) DO NOTHING
      RETURNING id
    `, tenantID, rec.UserID, rec.Period, rec.BaseSalary, rec.TotalBonuses, rec.TotalAllowances,
			rec.OvertimePay, rec.AbsenceDeductions, rec.LatenessDeductions, rec.TaxDeductions,
			rec.GrossSalary, rec.NetSalary, rec.Currency).Scan(&id)
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrDuplicate
		}
		if err != nil {
			return err
		}
		for _, adj := range adjustments {
			if _, err := insertAdjustment(ctx, q, tenantID, id, adj); err != nil {
				return err
			}
		}
		return nil
	})
	return id, err
}

func insertAdjustment(ctx context.Context, q querier.Querier, tenantID, recordID string, adj Adjustment) (string, error) {
	var id string
	err := q.QueryRow(ctx, `
    INSERT INTO salary_adjustments (tenant_id, salary_record_id, kind, amount, description, source, created_by)
    VALUES ($1,$2,$3,$4,$5,$6,$7)
    RETURNING id
  `, tenantID, recordID, adj.Kind, adj.Amount, adj.Description, adj.Source, adj.CreatedBy).Scan(&id)
	return id, err
}

func (s *Store) AddAdjustment(ctx context.Context, tenantID, recordID string, adj Adjustment) (string, error) {
	var id string
	err := s.mutateDraft(ctx, tenantID, recordID, func(q querier.Querier) error {
		var err error
		id, err = insertAdjustment(ctx, q, tenantID, recordID, adj)
		return err
	})
	return id, err
}

func (s *Store) RemoveAdjustment(ctx context.Context, tenantID, recordID, adjustmentID string) error {
	return s.mutateDraft(ctx, tenantID, recordID, func(q querier.Querier) error {
		tag, err := q.Exec(ctx, `
      DELETE FROM salary_adjustments WHERE tenant_id = $1 AND salary_record_id = $2 AND id = $3
    `, tenantID, recordID, adjustmentID)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return ErrAdjustmentNotFound
		}
		return nil
	})
}

// mutateDraft locks a draft record, runs change, then recomputes the stored
// totals from the full adjustment list.
func (s *Store) mutateDraft(ctx context.Context, tenantID, recordID string, change func(q querier.Querier) error) error {
	return querier.WithTx(ctx, s.DB, func(q querier.Querier) error {
		var status string
		var base decimal.Decimal
		err := q.QueryRow(ctx, `
      SELECT status, base_salary FROM salary_records
      WHERE tenant_id = $1 AND id = $2
      FOR UPDATE
    `, tenantID, recordID).Scan(&status, &base)
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		if status != StatusDraft {
			return ErrNotDraft
		}
		if err := change(q); err != nil {
			return err
		}
		adjustments, err := listAdjustments(ctx, q, tenantID, recordID)
		if err != nil {
			return err
		}
		t := ComputeSalary(base, linesOf(adjustments))
		_, err = q.Exec(ctx, `
      UPDATE salary_records
      SET total_bonuses = $3, total_allowances = $4, overtime_pay = $5, absence_deductions = $6,
          lateness_deductions = $7, tax_deductions = $8, gross_salary = $9, net_salary = $10, updated_at = now()
      WHERE tenant_id = $1 AND id = $2
    `, tenantID, recordID, t.Bonuses, t.Allowances, t.Overtime, t.AbsenceDeductions,
			t.LatenessDeductions, t.TaxDeductions, t.Gross, t.Net)
		return err
	})
}

func (s *Store) Transition(ctx context.Context, tenantID, id, from, to string) error {
	stamp := "finalized_at"
	if to == StatusPaid {
		stamp = "paid_at"
	}
	tag, err := s.DB.Exec(ctx, `
    UPDATE salary_records SET status = $4, `+stamp+` = now(), updated_at = now()
    WHERE tenant_id = $1 AND id = $2 AND status = $3
  `, tenantID, id, from, to)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrTransition
	}
	return nil
}

func (s *Store) Summary(ctx context.Context, tenantID, period string) ([]StatusTotal, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT status, COUNT(1), COALESCE(SUM(gross_salary), 0),
           COALESCE(SUM(absence_deductions + lateness_deductions + tax_deductions), 0),
           COALESCE(SUM(net_salary), 0)
    FROM salary_records
    WHERE tenant_id = $1 AND period = $2
    GROUP BY status
    ORDER BY status
  `, tenantID, period)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []StatusTotal{}
	for rows.Next() {
		var st StatusTotal
		if err := rows.Scan(&st.Status, &st.Count, &st.Gross, &st.Deductions, &st.Net); err != nil {
			return nil, err
		}
		out = append(out, st)
	}
	return out, rows.Err()
}

// Payees lists active users with no record in period yet.
func (s *Store) Payees(ctx context.Context, tenantID, period string) ([]Payee, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT u.id, u.base_salary, u.currency
    FROM users u
    WHERE u.tenant_id = $1 AND u.status = 'active' AND u.deleted_at IS NULL
      AND NOT EXISTS (SELECT 1 FROM salary_records s WHERE s.user_id = u.id AND s.period = $2)
    ORDER BY u.last_name, u.first_name
  `, tenantID, period)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Payee{}
	for rows.Next() {
		var p Payee
		if err := rows.Scan(&p.UserID, &p.BaseSalary, &p.Currency); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func linesOf(adjustments []Adjustment) []Line {
	lines := make([]Line, len(adjustments))
	for i, a := range adjustments {
		lines[i] = Line{Kind: a.Kind, Amount: a.Amount}
	}
	return lines
}
