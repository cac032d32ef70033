package payroll

import (
	"errors"
	"fmt"
	"time"

	"github.com/cmlabs-hris/payroll-engine-go/internal/domain/tax"
	"github.com/shopspring/decimal"
)

// EmploymentType enum
type EmploymentType string

const (
	EmploymentSalaried EmploymentType = "salaried"
	EmploymentHourly   EmploymentType = "hourly"
)

// PaymentMethod enum
type PaymentMethod string

const (
	PaymentBank        PaymentMethod = "bank"
	PaymentMobileMoney PaymentMethod = "mobile_money"
	PaymentCash        PaymentMethod = "cash"
)

// DefaultOvertimeMultiplier applies when an hourly employee has no overtime rate configured.
var DefaultOvertimeMultiplier = decimal.RequireFromString("1.5")

// Employee is the payroll view of an employee. It is owned by the HR
// records system and read here.
type Employee struct {
	ID                    string
	EmployeeCode          string
	FullName              string
	EmploymentType        EmploymentType
	MonthlySalary         decimal.Decimal
	HourlyRate            decimal.Decimal
	OvertimeRate          *decimal.Decimal // absolute hourly overtime rate
	OvertimeMultiplier    *decimal.Decimal // of HourlyRate, used when OvertimeRate is unset
	TaxID                 string
	SocialSecurityNumber  string
	HealthInsuranceNumber string
	PaymentMethod         PaymentMethod
	BankName              string
	BankAccountNumber     string
	MobileMoneyNumber     string
	PersonalRelief        *decimal.Decimal // overrides the tax table relief when set
	StandingDeductions    []Deduction
}

func (e Employee) Validate() error {
	var errs []error
	if e.MonthlySalary.IsNegative() {
		errs = append(errs, errors.New("monthly salary must not be negative"))
	}
	if e.HourlyRate.IsNegative() {
		errs = append(errs, errors.New("hourly rate must not be negative"))
	}
	if e.OvertimeRate != nil && e.OvertimeRate.IsNegative() {
		errs = append(errs, errors.New("overtime rate must not be negative"))
	}
	if e.OvertimeMultiplier != nil && e.OvertimeMultiplier.IsNegative() {
		errs = append(errs, errors.New("overtime multiplier must not be negative"))
	}
	if e.EmploymentType != EmploymentSalaried && e.EmploymentType != EmploymentHourly {
		errs = append(errs, fmt.Errorf("unknown employment type %q", e.EmploymentType))
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidEmployee, errors.Join(errs...))
	}
	return nil
}

// HasPaymentDetails reports whether the employee can actually be paid.
func (e Employee) HasPaymentDetails() bool {
	switch e.PaymentMethod {
	case PaymentBank:
		return e.BankName != "" && e.BankAccountNumber != ""
	case PaymentMobileMoney:
		return e.MobileMoneyNumber != ""
	case PaymentCash:
		return true
	}
	return false
}

// TimeEntry is one day of hours for one employee, supplied by time tracking.
type TimeEntry struct {
	EmployeeID     string
	Date           time.Time
	RegularHours   decimal.Decimal
	OvertimeHours  decimal.Decimal
	PaidLeaveHours decimal.Decimal
}

// AdjustmentType enum
type AdjustmentType string

const (
	AdjustmentBonus           AdjustmentType = "bonus"
	AdjustmentAllowance       AdjustmentType = "allowance"
	AdjustmentOvertime        AdjustmentType = "overtime"
	AdjustmentCommission      AdjustmentType = "commission"
	AdjustmentReimbursement   AdjustmentType = "reimbursement"
	AdjustmentPerDiem         AdjustmentType = "per_diem"
	AdjustmentOtherNonTaxable AdjustmentType = "other_non_taxable"
)

// IsTaxable reports whether the adjustment counts toward gross pay.
func (t AdjustmentType) IsTaxable() bool {
	switch t {
	case AdjustmentBonus, AdjustmentAllowance, AdjustmentOvertime, AdjustmentCommission:
		return true
	}
	return false
}

func (t AdjustmentType) IsValid() bool {
	switch t {
	case AdjustmentBonus, AdjustmentAllowance, AdjustmentOvertime, AdjustmentCommission,
		AdjustmentReimbursement, AdjustmentPerDiem, AdjustmentOtherNonTaxable:
		return true
	}
	return false
}

// ManualAdjustment is a one-off amount attached to a payroll run.
type ManualAdjustment struct {
	ID          string
	EmployeeID  string
	Type        AdjustmentType
	Amount      decimal.Decimal
	Description string
}

// DeductionType enum
type DeductionType string

const (
	DeductionSalaryAdvance DeductionType = "salary_advance"
	DeductionLoan          DeductionType = "loan"
	DeductionSacco         DeductionType = "sacco"
	DeductionUnionDues     DeductionType = "union_dues"
	DeductionOther         DeductionType = "other"
)

// Deduction is a standing subtraction from net pay.
type Deduction struct {
	ID                 string
	EmployeeID         string
	Type               DeductionType
	Description        string
	Amount             decimal.Decimal
	RemainingBalance   *decimal.Decimal // nil when the deduction is not balance-tracked
	MonthlyInstallment decimal.Decimal
	Recurring          bool
	Active             bool
}

// AdvanceDeduction is one advance installment due in the period being computed.
type AdvanceDeduction struct {
	ScheduleID string
	RequestID  string
	Amount     decimal.Decimal
}

// Period identifies a payroll month.
type Period struct {
	ID        string // "2024-06"
	Month     int
	Year      int
	StartDate time.Time
	EndDate   time.Time
}

// NewPeriod builds the calendar-month period for year and month.
func NewPeriod(year, month int) Period {
	start := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	return Period{
		ID:        start.Format("2006-01"),
		Month:     month,
		Year:      year,
		StartDate: start,
		EndDate:   start.AddDate(0, 1, -1),
	}
}

// Contains reports whether t falls on a day inside the period.
func (p Period) Contains(t time.Time) bool {
	if p.StartDate.IsZero() || p.EndDate.IsZero() {
		return true
	}
	d := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	return !d.Before(p.StartDate) && !d.After(p.EndDate)
}

// ExceptionCode enum
type ExceptionCode string

const (
	ExceptionNoTimeEntries      ExceptionCode = "no_time_entries"
	ExceptionMissingTaxID       ExceptionCode = "missing_tax_id"
	ExceptionMissingBankDetails ExceptionCode = "missing_bank_details"
	ExceptionNonPositiveGross   ExceptionCode = "non_positive_gross"
	ExceptionExcessiveHours     ExceptionCode = "excessive_hours"
	ExceptionNegativeNet        ExceptionCode = "negative_net"
	ExceptionInvalidEmployee    ExceptionCode = "invalid_employee"
)

// PayrollException is a non-fatal data-quality problem found while computing a record.
type PayrollException struct {
	Code    ExceptionCode `json:"code"`
	Message string        `json:"message"`
}

// DeductionLine is one non-statutory deduction applied to a record.
type DeductionLine struct {
	Type        DeductionType   `json:"type"`
	Description string          `json:"description"`
	Amount      decimal.Decimal `json:"amount"`
	ReferenceID string          `json:"reference_id,omitempty"`
}

// Hours totals one period of time entries.
type Hours struct {
	Regular   decimal.Decimal `json:"regular"`
	Overtime  decimal.Decimal `json:"overtime"`
	PaidLeave decimal.Decimal `json:"paid_leave"`
	Total     decimal.Decimal `json:"total"`
}

// PayrollRecord is the computed result for one employee and one period.
// Records are immutable; a recalculation creates a new record that
// supersedes the previous one.
type PayrollRecord struct {
	ID         string
	EmployeeID string
	Period     Period

	Hours                 Hours
	BasePay               decimal.Decimal
	OvertimePay           decimal.Decimal
	PaidLeavePay          decimal.Decimal
	TaxableAdjustments    decimal.Decimal
	NonTaxableAdjustments decimal.Decimal
	GrossPay              decimal.Decimal

	Statutory           tax.StatutoryDeductions
	OtherDeductions     decimal.Decimal
	AdvanceDeductions   decimal.Decimal
	OtherDeductionLines []DeductionLine
	TotalDeductions     decimal.Decimal
	NetPay              decimal.Decimal

	HasExceptions bool
	Exceptions    []PayrollException

	Stub            PayStub
	TaxTableVersion string
	SupersedesID    *string
	CalculatedAt    time.Time

	// Joined fields
	EmployeeName *string
	EmployeeCode *string
}

// StubLine is one labelled amount on a pay stub.
type StubLine struct {
	Label  string          `json:"label"`
	Amount decimal.Decimal `json:"amount"`
}

// PayStub is the employee-facing breakdown of a record.
type PayStub struct {
	EmployeeID      string          `json:"employee_id"`
	EmployeeCode    string          `json:"employee_code"`
	EmployeeName    string          `json:"employee_name"`
	PeriodID        string          `json:"period_id"`
	PaymentMethod   string          `json:"payment_method"`
	Earnings        []StubLine      `json:"earnings"`
	Statutory       []StubLine      `json:"statutory_deductions"`
	Deductions      []StubLine      `json:"other_deductions"`
	NonTaxable      []StubLine      `json:"non_taxable"`
	GrossPay        decimal.Decimal `json:"gross_pay"`
	TotalDeductions decimal.Decimal `json:"total_deductions"`
	NetPay          decimal.Decimal `json:"net_pay"`
	TaxTableVersion string          `json:"tax_table_version"`
}

// EmployeeInput bundles everything needed to compute one employee's record.
// AdvanceDeductions is the snapshot taken before the batch starts.
type EmployeeInput struct {
	Employee          Employee
	TimeEntries       []TimeEntry
	Adjustments       []ManualAdjustment
	AdvanceDeductions []AdvanceDeduction
}

// PeriodSummary aggregates a finished batch.
type PeriodSummary struct {
	PeriodID               string          `json:"period_id"`
	EmployeeCount          int             `json:"employee_count"`
	ExceptionCount         int             `json:"exception_count"`
	TotalGross             decimal.Decimal `json:"total_gross"`
	TotalIncomeTax         decimal.Decimal `json:"total_income_tax"`
	TotalSocialSecurity    decimal.Decimal `json:"total_social_security"`
	TotalHealth            decimal.Decimal `json:"total_health_contribution"`
	TotalStatutory         decimal.Decimal `json:"total_statutory"`
	TotalOtherDeductions   decimal.Decimal `json:"total_other_deductions"`
	TotalAdvanceDeductions decimal.Decimal `json:"total_advance_deductions"`
	TotalNonTaxable        decimal.Decimal `json:"total_non_taxable"`
	TotalNet               decimal.Decimal `json:"total_net"`
}

// BatchResult holds the records of one batch in input order plus the summary.
type BatchResult struct {
	Records []PayrollRecord
	Summary PeriodSummary
}
