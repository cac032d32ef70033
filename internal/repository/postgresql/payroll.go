package postgresql

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/cmlabs-hris/payroll-engine-go/internal/domain/payroll"
	"github.com/cmlabs-hris/payroll-engine-go/internal/pkg/database"
	"github.com/jackc/pgx/v5"
)

type payrollRepository struct {
	db *database.DB
}

func NewPayrollRepository(db *database.DB) payroll.RecordRepository {
	return &payrollRepository{db: db}
}

const payrollRecordColumns = `
	r.id, r.employee_id, r.period_id, r.period_month, r.period_year, r.period_start, r.period_end,
	r.hours, r.base_pay, r.overtime_pay, r.paid_leave_pay, r.taxable_adjustments, r.non_taxable_adjustments,
	r.gross_pay, r.income_tax, r.social_security, r.health_contribution, r.personal_relief, r.statutory_total,
	r.other_deductions, r.advance_deductions, r.deduction_lines, r.total_deductions, r.net_pay,
	r.has_exceptions, r.exceptions, r.stub, r.tax_table_version, r.supersedes_id, r.calculated_at,
	e.full_name, e.employee_code
`

// Create implements payroll.RecordRepository.
func (r *payrollRepository) Create(ctx context.Context, record payroll.PayrollRecord) (payroll.PayrollRecord, error) {
	q := GetQuerier(ctx, r.db)

	hoursJSON, err := json.Marshal(record.Hours)
	if err != nil {
		return payroll.PayrollRecord{}, fmt.Errorf("failed to encode hours: %w", err)
	}
	linesJSON, err := json.Marshal(nonNil(record.OtherDeductionLines))
	if err != nil {
		return payroll.PayrollRecord{}, fmt.Errorf("failed to encode deduction lines: %w", err)
	}
	exceptionsJSON, err := json.Marshal(nonNil(record.Exceptions))
	if err != nil {
		return payroll.PayrollRecord{}, fmt.Errorf("failed to encode exceptions: %w", err)
	}
	stubJSON, err := json.Marshal(record.Stub)
	if err != nil {
		return payroll.PayrollRecord{}, fmt.Errorf("failed to encode pay stub: %w", err)
	}

	query := `
		INSERT INTO payroll_records (
			id, employee_id, period_id, period_month, period_year, period_start, period_end,
			hours, base_pay, overtime_pay, paid_leave_pay, taxable_adjustments, non_taxable_adjustments,
			gross_pay, income_tax, social_security, health_contribution, personal_relief, statutory_total,
			other_deductions, advance_deductions, deduction_lines, total_deductions, net_pay,
			has_exceptions, exceptions, stub, tax_table_version, supersedes_id, calculated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7,
			$8, $9, $10, $11, $12, $13,
			$14, $15, $16, $17, $18, $19,
			$20, $21, $22, $23, $24,
			$25, $26, $27, $28, $29, $30
		)
	`

	s := record.Statutory
	_, err = q.Exec(ctx, query,
		record.ID, record.EmployeeID, record.Period.ID, record.Period.Month, record.Period.Year,
		record.Period.StartDate, record.Period.EndDate,
		hoursJSON, record.BasePay, record.OvertimePay, record.PaidLeavePay, record.TaxableAdjustments,
		record.NonTaxableAdjustments,
		record.GrossPay, s.IncomeTax, s.SocialSecurity, s.HealthContribution, s.PersonalRelief, s.Total,
		record.OtherDeductions, record.AdvanceDeductions, linesJSON, record.TotalDeductions, record.NetPay,
		record.HasExceptions, exceptionsJSON, stubJSON, record.TaxTableVersion, record.SupersedesID,
		record.CalculatedAt,
	)
	if err != nil {
		if isUniqueViolation(err, "uk_payroll_record_supersedes") {
			return payroll.PayrollRecord{}, fmt.Errorf("payroll record %s was already superseded: %w", *record.SupersedesID, err)
		}
		return payroll.PayrollRecord{}, fmt.Errorf("failed to create payroll record: %w", err)
	}

	return record, nil
}

// GetByID implements payroll.RecordRepository.
func (r *payrollRepository) GetByID(ctx context.Context, id string) (payroll.PayrollRecord, error) {
	q := GetQuerier(ctx, r.db)

	query := `SELECT ` + payrollRecordColumns + `
		FROM payroll_records r
		JOIN employees e ON e.id = r.employee_id
		WHERE r.id = $1
	`

	record, err := scanPayrollRecord(q.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return payroll.PayrollRecord{}, payroll.ErrPayrollRecordNotFound
		}
		return payroll.PayrollRecord{}, fmt.Errorf("failed to get payroll record: %w", err)
	}

	return record, nil
}

// GetCurrent implements payroll.RecordRepository.
func (r *payrollRepository) GetCurrent(ctx context.Context, employeeID, periodID string) (payroll.PayrollRecord, error) {
	q := GetQuerier(ctx, r.db)

	query := `SELECT ` + payrollRecordColumns + `
		FROM payroll_records r
		JOIN employees e ON e.id = r.employee_id
		WHERE r.employee_id = $1 AND r.period_id = $2
			AND NOT EXISTS (SELECT 1 FROM payroll_records n WHERE n.supersedes_id = r.id)
		FOR UPDATE OF r
	`

	record, err := scanPayrollRecord(q.QueryRow(ctx, query, employeeID, periodID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return payroll.PayrollRecord{}, payroll.ErrPayrollRecordNotFound
		}
		return payroll.PayrollRecord{}, fmt.Errorf("failed to get current payroll record: %w", err)
	}

	return record, nil
}

// ListCurrentByPeriod implements payroll.RecordRepository.
func (r *payrollRepository) ListCurrentByPeriod(ctx context.Context, periodID string) ([]payroll.PayrollRecord, error) {
	q := GetQuerier(ctx, r.db)

	query := `SELECT ` + payrollRecordColumns + `
		FROM payroll_records r
		JOIN employees e ON e.id = r.employee_id
		WHERE r.period_id = $1
			AND NOT EXISTS (SELECT 1 FROM payroll_records n WHERE n.supersedes_id = r.id)
		ORDER BY e.employee_code
	`

	rows, err := q.Query(ctx, query, periodID)
	if err != nil {
		return nil, fmt.Errorf("failed to list payroll records: %w", err)
	}
	defer rows.Close()

	var records []payroll.PayrollRecord
	for rows.Next() {
		record, err := scanPayrollRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return records, nil
}

func scanPayrollRecord(row pgx.Row) (payroll.PayrollRecord, error) {
	var rec payroll.PayrollRecord
	var hoursJSON, linesJSON, exceptionsJSON, stubJSON []byte
	var name, code string
	s := &rec.Statutory
	err := row.Scan(
		&rec.ID, &rec.EmployeeID, &rec.Period.ID, &rec.Period.Month, &rec.Period.Year,
		&rec.Period.StartDate, &rec.Period.EndDate,
		&hoursJSON, &rec.BasePay, &rec.OvertimePay, &rec.PaidLeavePay, &rec.TaxableAdjustments,
		&rec.NonTaxableAdjustments,
		&rec.GrossPay, &s.IncomeTax, &s.SocialSecurity, &s.HealthContribution, &s.PersonalRelief, &s.Total,
		&rec.OtherDeductions, &rec.AdvanceDeductions, &linesJSON, &rec.TotalDeductions, &rec.NetPay,
		&rec.HasExceptions, &exceptionsJSON, &stubJSON, &rec.TaxTableVersion, &rec.SupersedesID,
		&rec.CalculatedAt, &name, &code,
	)
	if err != nil {
		return payroll.PayrollRecord{}, err
	}

	if err := json.Unmarshal(hoursJSON, &rec.Hours); err != nil {
		return payroll.PayrollRecord{}, fmt.Errorf("failed to decode hours: %w", err)
	}
	if err := json.Unmarshal(linesJSON, &rec.OtherDeductionLines); err != nil {
		return payroll.PayrollRecord{}, fmt.Errorf("failed to decode deduction lines: %w", err)
	}
	if err := json.Unmarshal(exceptionsJSON, &rec.Exceptions); err != nil {
		return payroll.PayrollRecord{}, fmt.Errorf("failed to decode exceptions: %w", err)
	}
	if err := json.Unmarshal(stubJSON, &rec.Stub); err != nil {
		return payroll.PayrollRecord{}, fmt.Errorf("failed to decode pay stub: %w", err)
	}
	rec.EmployeeName = &name
	rec.EmployeeCode = &code

	return rec, nil
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
