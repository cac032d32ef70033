package payroll

import (
	"fmt"
	"time"

	"github.com/cmlabs-hris/payroll-engine-go/internal/pkg/validator"
	"github.com/shopspring/decimal"
)

// ========== RUN DTOs ==========

type TimeEntryInput struct {
	Date           string          `json:"date"` // YYYY-MM-DD
	RegularHours   decimal.Decimal `json:"regular_hours"`
	OvertimeHours  decimal.Decimal `json:"overtime_hours"`
	PaidLeaveHours decimal.Decimal `json:"paid_leave_hours"`
}

type AdjustmentInput struct {
	Type        string          `json:"type"`
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description,omitempty"`
}

type EmployeeRunInput struct {
	EmployeeID  string            `json:"employee_id"`
	TimeEntries []TimeEntryInput  `json:"time_entries,omitempty"`
	Adjustments []AdjustmentInput `json:"adjustments,omitempty"`
}

type RunPayrollRequest struct {
	PeriodMonth int                `json:"period_month"`
	PeriodYear  int                `json:"period_year"`
	Employees   []EmployeeRunInput `json:"employees"`
}

func (r *RunPayrollRequest) Validate() error {
	var errs validator.ValidationErrors

	if !validator.IsValidMonth(r.PeriodMonth) {
		errs = append(errs, validator.ValidationError{Field: "period_month", Message: "must be between 1 and 12"})
	}
	if r.PeriodYear < 2020 {
		errs = append(errs, validator.ValidationError{Field: "period_year", Message: "must be 2020 or later"})
	}
	if len(r.Employees) == 0 {
		errs = append(errs, validator.ValidationError{Field: "employees", Message: "at least one employee is required"})
	}

	seen := make(map[string]bool, len(r.Employees))
	for i, e := range r.Employees {
		prefix := fmt.Sprintf("employees[%d]", i)
		if validator.IsEmpty(e.EmployeeID) {
			errs = append(errs, validator.ValidationError{Field: prefix + ".employee_id", Message: "employee_id is required"})
		} else if seen[e.EmployeeID] {
			errs = append(errs, validator.ValidationError{Field: prefix + ".employee_id", Message: "duplicate employee_id"})
		}
		seen[e.EmployeeID] = true

		for j, te := range e.TimeEntries {
			field := fmt.Sprintf("%s.time_entries[%d]", prefix, j)
			if _, ok := validator.IsValidDate(te.Date); !ok {
				errs = append(errs, validator.ValidationError{Field: field + ".date", Message: "must be in YYYY-MM-DD format"})
			}
			if te.RegularHours.IsNegative() || te.OvertimeHours.IsNegative() || te.PaidLeaveHours.IsNegative() {
				errs = append(errs, validator.ValidationError{Field: field, Message: "hours must not be negative"})
			}
		}

		for j, adj := range e.Adjustments {
			field := fmt.Sprintf("%s.adjustments[%d]", prefix, j)
			if !AdjustmentType(adj.Type).IsValid() {
				errs = append(errs, validator.ValidationError{Field: field + ".type", Message: "unknown adjustment type"})
			}
			if adj.Amount.IsNegative() {
				errs = append(errs, validator.ValidationError{Field: field + ".amount", Message: "must be non-negative"})
			} else if !validator.HasMaxScale(adj.Amount, 2) {
				errs = append(errs, validator.ValidationError{Field: field + ".amount", Message: "must have at most 2 decimal places"})
			}
		}
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// Period returns the calendar period the run covers.
func (r *RunPayrollRequest) Period() Period {
	return NewPeriod(r.PeriodYear, r.PeriodMonth)
}

// ToTimeEntries converts validated input for employeeID.
func (e EmployeeRunInput) ToTimeEntries() []TimeEntry {
	entries := make([]TimeEntry, 0, len(e.TimeEntries))
	for _, te := range e.TimeEntries {
		date, _ := time.Parse("2006-01-02", te.Date)
		entries = append(entries, TimeEntry{
			EmployeeID:     e.EmployeeID,
			Date:           date,
			RegularHours:   te.RegularHours,
			OvertimeHours:  te.OvertimeHours,
			PaidLeaveHours: te.PaidLeaveHours,
		})
	}
	return entries
}

// ToAdjustments converts validated input for employeeID.
func (e EmployeeRunInput) ToAdjustments() []ManualAdjustment {
	adjustments := make([]ManualAdjustment, 0, len(e.Adjustments))
	for _, a := range e.Adjustments {
		adjustments = append(adjustments, ManualAdjustment{
			EmployeeID:  e.EmployeeID,
			Type:        AdjustmentType(a.Type),
			Amount:      a.Amount,
			Description: a.Description,
		})
	}
	return adjustments
}

// ========== RECORD DTOs ==========

type StatutoryResponse struct {
	IncomeTax          decimal.Decimal `json:"income_tax"`
	SocialSecurity     decimal.Decimal `json:"social_security"`
	HealthContribution decimal.Decimal `json:"health_contribution"`
	PersonalRelief     decimal.Decimal `json:"personal_relief"`
	Total              decimal.Decimal `json:"total"`
}

type PayrollRecordResponse struct {
	ID                    string             `json:"id"`
	EmployeeID            string             `json:"employee_id"`
	EmployeeName          *string            `json:"employee_name,omitempty"`
	EmployeeCode          *string            `json:"employee_code,omitempty"`
	PeriodID              string             `json:"period_id"`
	PeriodMonth           int                `json:"period_month"`
	PeriodYear            int                `json:"period_year"`
	Hours                 Hours              `json:"hours"`
	BasePay               decimal.Decimal    `json:"base_pay"`
	OvertimePay           decimal.Decimal    `json:"overtime_pay"`
	PaidLeavePay          decimal.Decimal    `json:"paid_leave_pay"`
	TaxableAdjustments    decimal.Decimal    `json:"taxable_adjustments"`
	NonTaxableAdjustments decimal.Decimal    `json:"non_taxable_adjustments"`
	GrossPay              decimal.Decimal    `json:"gross_pay"`
	Statutory             StatutoryResponse  `json:"statutory"`
	OtherDeductions       decimal.Decimal    `json:"other_deductions"`
	AdvanceDeductions     decimal.Decimal    `json:"advance_deductions"`
	OtherDeductionLines   []DeductionLine    `json:"other_deduction_lines"`
	TotalDeductions       decimal.Decimal    `json:"total_deductions"`
	NetPay                decimal.Decimal    `json:"net_pay"`
	HasExceptions         bool               `json:"has_exceptions"`
	Exceptions            []PayrollException `json:"exceptions"`
	TaxTableVersion       string             `json:"tax_table_version"`
	SupersedesID          *string            `json:"supersedes_id,omitempty"`
	CalculatedAt          time.Time          `json:"calculated_at"`
}

func NewPayrollRecordResponse(r PayrollRecord) PayrollRecordResponse {
	lines := r.OtherDeductionLines
	if lines == nil {
		lines = []DeductionLine{}
	}
	exceptions := r.Exceptions
	if exceptions == nil {
		exceptions = []PayrollException{}
	}

	return PayrollRecordResponse{
		ID:                    r.ID,
		EmployeeID:            r.EmployeeID,
		EmployeeName:          r.EmployeeName,
		EmployeeCode:          r.EmployeeCode,
		PeriodID:              r.Period.ID,
		PeriodMonth:           r.Period.Month,
		PeriodYear:            r.Period.Year,
		Hours:                 r.Hours,
		BasePay:               r.BasePay,
		OvertimePay:           r.OvertimePay,
		PaidLeavePay:          r.PaidLeavePay,
		TaxableAdjustments:    r.TaxableAdjustments,
		NonTaxableAdjustments: r.NonTaxableAdjustments,
		GrossPay:              r.GrossPay,
		Statutory: StatutoryResponse{
			IncomeTax:          r.Statutory.IncomeTax,
			SocialSecurity:     r.Statutory.SocialSecurity,
			HealthContribution: r.Statutory.HealthContribution,
			PersonalRelief:     r.Statutory.PersonalRelief,
			Total:              r.Statutory.Total,
		},
		OtherDeductions:     r.OtherDeductions,
		AdvanceDeductions:   r.AdvanceDeductions,
		OtherDeductionLines: lines,
		TotalDeductions:     r.TotalDeductions,
		NetPay:              r.NetPay,
		HasExceptions:       r.HasExceptions,
		Exceptions:          exceptions,
		TaxTableVersion:     r.TaxTableVersion,
		SupersedesID:        r.SupersedesID,
		CalculatedAt:        r.CalculatedAt,
	}
}

type RunPayrollResponse struct {
	PeriodID string                  `json:"period_id"`
	Records  []PayrollRecordResponse `json:"records"`
	Summary  PeriodSummary           `json:"summary"`
}
