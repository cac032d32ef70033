package postgresql

import (
	"context"
	"errors"
	"fmt"

	"github.com/cmlabs-hris/payroll-engine-go/internal/domain/advance"
	"github.com/cmlabs-hris/payroll-engine-go/internal/domain/payroll"
	"github.com/cmlabs-hris/payroll-engine-go/internal/pkg/database"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// EmployeeRepository reads the employee data owned by HR records. The
// operations reviewer comes from the employee's branch.
type EmployeeRepository struct {
	db *database.DB
}

func NewEmployeeRepository(db *database.DB) *EmployeeRepository {
	return &EmployeeRepository{db: db}
}

// GetAdvanceProfile implements advance.EmployeeReader.
func (e *EmployeeRepository) GetAdvanceProfile(ctx context.Context, employeeID string) (advance.EmployeeProfile, error) {
	q := GetQuerier(ctx, e.db)

	query := `
		SELECT e.id, e.full_name, e.monthly_salary, COALESCE(b.ops_reviewer_id, '')
		FROM employees e
		LEFT JOIN branches b ON b.id = e.branch_id
		WHERE e.id = $1
	`

	var p advance.EmployeeProfile
	err := q.QueryRow(ctx, query, employeeID).Scan(&p.ID, &p.FullName, &p.MonthlySalary, &p.OpsReviewerID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return advance.EmployeeProfile{}, advance.ErrEmployeeNotFound
		}
		return advance.EmployeeProfile{}, fmt.Errorf("failed to get employee profile: %w", err)
	}

	return p, nil
}

// GetPayrollEmployee implements payroll.EmployeeReader.
func (e *EmployeeRepository) GetPayrollEmployee(ctx context.Context, employeeID string) (payroll.Employee, error) {
	q := GetQuerier(ctx, e.db)

	query := `
		SELECT id, employee_code, full_name, employment_type, monthly_salary, hourly_rate,
			overtime_rate, overtime_multiplier, tax_id, social_security_number, health_insurance_number,
			payment_method, bank_name, bank_account_number, mobile_money_number, personal_relief
		FROM employees
		WHERE id = $1
	`

	var emp payroll.Employee
	var overtimeRate, overtimeMultiplier, relief decimal.NullDecimal
	err := q.QueryRow(ctx, query, employeeID).Scan(
		&emp.ID, &emp.EmployeeCode, &emp.FullName, &emp.EmploymentType, &emp.MonthlySalary, &emp.HourlyRate,
		&overtimeRate, &overtimeMultiplier, &emp.TaxID, &emp.SocialSecurityNumber, &emp.HealthInsuranceNumber,
		&emp.PaymentMethod, &emp.BankName, &emp.BankAccountNumber, &emp.MobileMoneyNumber, &relief,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return payroll.Employee{}, payroll.ErrEmployeeNotFound
		}
		return payroll.Employee{}, fmt.Errorf("failed to get payroll employee: %w", err)
	}
	emp.OvertimeRate = nullable(overtimeRate)
	emp.OvertimeMultiplier = nullable(overtimeMultiplier)
	emp.PersonalRelief = nullable(relief)

	emp.StandingDeductions, err = e.standingDeductions(ctx, employeeID)
	if err != nil {
		return payroll.Employee{}, err
	}

	return emp, nil
}

func (e *EmployeeRepository) standingDeductions(ctx context.Context, employeeID string) ([]payroll.Deduction, error) {
	q := GetQuerier(ctx, e.db)

	query := `
		SELECT id, employee_id, type, description, amount, remaining_balance,
			monthly_installment, recurring, active
		FROM standing_deductions
		WHERE employee_id = $1
		ORDER BY id
	`

	rows, err := q.Query(ctx, query, employeeID)
	if err != nil {
		return nil, fmt.Errorf("failed to list standing deductions: %w", err)
	}
	defer rows.Close()

	var deductions []payroll.Deduction
	for rows.Next() {
		var (
			d         payroll.Deduction
			remaining decimal.NullDecimal
		)
		if err := rows.Scan(
			&d.ID, &d.EmployeeID, &d.Type, &d.Description, &d.Amount, &remaining,
			&d.MonthlyInstallment, &d.Recurring, &d.Active,
		); err != nil {
			return nil, err
		}
		d.RemainingBalance = nullable(remaining)
		deductions = append(deductions, d)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return deductions, nil
}

func nullable(n decimal.NullDecimal) *decimal.Decimal {
	if !n.Valid {
		return nil
	}
	v := n.Decimal
	return &v
}
