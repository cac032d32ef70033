package payroll

import (
	"fmt"
	"time"

	"github.com/cmlabs-hris/payroll-engine-go/internal/domain/payroll"
	"github.com/cmlabs-hris/payroll-engine-go/internal/domain/tax"
	taxsvc "github.com/cmlabs-hris/payroll-engine-go/internal/service/tax"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// MaxPeriodHours is the total above which a period's hours are flagged.
var MaxPeriodHours = decimal.NewFromInt(200)

// GrossPay is the earnings side of one employee's period.
type GrossPay struct {
	Hours                 payroll.Hours
	BasePay               decimal.Decimal
	OvertimePay           decimal.Decimal
	PaidLeavePay          decimal.Decimal
	TaxableAdjustments    decimal.Decimal
	NonTaxableAdjustments decimal.Decimal
	Gross                 decimal.Decimal
	EntryCount            int
}

// OtherDeductions is the non-statutory side of one employee's period.
type OtherDeductions struct {
	Standing decimal.Decimal
	Advances decimal.Decimal
	Total    decimal.Decimal
	Lines    []payroll.DeductionLine
}

// Computer turns employee and time data into payroll records. It shares no
// mutable state between calls and may be used from many goroutines.
type Computer struct {
	calc  *taxsvc.Calculator
	now   func() time.Time
	newID func() string
}

func NewComputer(calc *taxsvc.Calculator) *Computer {
	return &Computer{calc: calc, now: time.Now, newID: newUUID}
}

func newUUID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

// CalculateGrossPay sums pay for the period. Hourly employees are paid from
// their time entries; salaried employees get the monthly salary. Non-taxable
// adjustments are kept apart from gross.
func (c *Computer) CalculateGrossPay(emp payroll.Employee, entries []payroll.TimeEntry, adjustments []payroll.ManualAdjustment) GrossPay {
	var g GrossPay
	g.Hours = payroll.Hours{Regular: decimal.Zero, Overtime: decimal.Zero, PaidLeave: decimal.Zero, Total: decimal.Zero}

	for _, e := range entries {
		g.Hours.Regular = g.Hours.Regular.Add(e.RegularHours)
		g.Hours.Overtime = g.Hours.Overtime.Add(e.OvertimeHours)
		g.Hours.PaidLeave = g.Hours.PaidLeave.Add(e.PaidLeaveHours)
		g.EntryCount++
	}
	g.Hours.Total = g.Hours.Regular.Add(g.Hours.Overtime).Add(g.Hours.PaidLeave)

	switch emp.EmploymentType {
	case payroll.EmploymentHourly:
		rate := emp.HourlyRate
		g.BasePay = round(g.Hours.Regular.Mul(rate))
		g.OvertimePay = round(g.Hours.Overtime.Mul(overtimeRate(emp)))
		g.PaidLeavePay = round(g.Hours.PaidLeave.Mul(rate))
	default:
		g.BasePay = round(emp.MonthlySalary)
		g.OvertimePay = decimal.Zero
		g.PaidLeavePay = decimal.Zero
	}

	g.TaxableAdjustments = decimal.Zero
	g.NonTaxableAdjustments = decimal.Zero
	for _, a := range adjustments {
		if a.Type.IsTaxable() {
			g.TaxableAdjustments = g.TaxableAdjustments.Add(a.Amount)
		} else {
			g.NonTaxableAdjustments = g.NonTaxableAdjustments.Add(a.Amount)
		}
	}
	g.TaxableAdjustments = round(g.TaxableAdjustments)
	g.NonTaxableAdjustments = round(g.NonTaxableAdjustments)

	g.Gross = g.BasePay.Add(g.OvertimePay).Add(g.PaidLeavePay).Add(g.TaxableAdjustments)
	return g
}

func overtimeRate(emp payroll.Employee) decimal.Decimal {
	if emp.OvertimeRate != nil && emp.OvertimeRate.IsPositive() {
		return *emp.OvertimeRate
	}
	multiplier := payroll.DefaultOvertimeMultiplier
	if emp.OvertimeMultiplier != nil && emp.OvertimeMultiplier.IsPositive() {
		multiplier = *emp.OvertimeMultiplier
	}
	return emp.HourlyRate.Mul(multiplier)
}

// CalculateStatutoryDeductions applies the tax table using the employee's
// relief override, or the table default.
func (c *Computer) CalculateStatutoryDeductions(emp payroll.Employee, gross decimal.Decimal) tax.StatutoryDeductions {
	relief := c.calc.DefaultRelief()
	if emp.PersonalRelief != nil {
		relief = *emp.PersonalRelief
	}
	return c.calc.Statutory(gross, relief)
}

// CalculateOtherDeductions sums active standing deductions and the advance
// installments due this period. Standing deductions tagged salary_advance
// are skipped: advances are only collected through their schedules.
func CalculateOtherDeductions(emp payroll.Employee, advances []payroll.AdvanceDeduction) OtherDeductions {
	out := OtherDeductions{Standing: decimal.Zero, Advances: decimal.Zero}

	for _, d := range emp.StandingDeductions {
		if !d.Active || d.Type == payroll.DeductionSalaryAdvance {
			continue
		}
		amount := d.Amount
		if d.MonthlyInstallment.IsPositive() {
			amount = d.MonthlyInstallment
		}
		if d.RemainingBalance != nil {
			amount = decimal.Min(amount, *d.RemainingBalance)
		}
		if !amount.IsPositive() {
			continue
		}
		amount = round(amount)
		out.Standing = out.Standing.Add(amount)
		out.Lines = append(out.Lines, payroll.DeductionLine{
			Type:        d.Type,
			Description: deductionLabel(d),
			Amount:      amount,
			ReferenceID: d.ID,
		})
	}

	for _, a := range advances {
		if !a.Amount.IsPositive() {
			continue
		}
		amount := round(a.Amount)
		out.Advances = out.Advances.Add(amount)
		out.Lines = append(out.Lines, payroll.DeductionLine{
			Type:        payroll.DeductionSalaryAdvance,
			Description: "Salary advance repayment",
			Amount:      amount,
			ReferenceID: a.ScheduleID,
		})
	}

	out.Total = out.Standing.Add(out.Advances)
	return out
}

func deductionLabel(d payroll.Deduction) string {
	if d.Description != "" {
		return d.Description
	}
	switch d.Type {
	case payroll.DeductionLoan:
		return "Loan repayment"
	case payroll.DeductionSacco:
		return "SACCO contribution"
	case payroll.DeductionUnionDues:
		return "Union dues"
	}
	return "Other deduction"
}

// CalculatePayroll computes one employee's record for period. Data-quality
// problems are attached to the record as exceptions and never returned as
// errors.
func (c *Computer) CalculatePayroll(
	emp payroll.Employee,
	entries []payroll.TimeEntry,
	period payroll.Period,
	adjustments []payroll.ManualAdjustment,
	advances []payroll.AdvanceDeduction,
) payroll.PayrollRecord {
	record := payroll.PayrollRecord{
		ID:              c.newID(),
		EmployeeID:      emp.ID,
		Period:          period,
		TaxTableVersion: c.calc.Table().Version,
		CalculatedAt:    c.now(),
		EmployeeName:    nonEmpty(emp.FullName),
		EmployeeCode:    nonEmpty(emp.EmployeeCode),
	}

	if err := emp.Validate(); err != nil {
		record.Exceptions = append(record.Exceptions, payroll.PayrollException{
			Code:    payroll.ExceptionInvalidEmployee,
			Message: err.Error(),
		})
		emp = sanitize(emp)
	}

	inPeriod := make([]payroll.TimeEntry, 0, len(entries))
	for _, e := range entries {
		if (e.EmployeeID == "" || e.EmployeeID == emp.ID) && period.Contains(e.Date) {
			inPeriod = append(inPeriod, e)
		}
	}

	gross := c.CalculateGrossPay(emp, inPeriod, adjustments)
	statutory := c.CalculateStatutoryDeductions(emp, gross.Gross)
	other := CalculateOtherDeductions(emp, advances)

	record.Hours = gross.Hours
	record.BasePay = gross.BasePay
	record.OvertimePay = gross.OvertimePay
	record.PaidLeavePay = gross.PaidLeavePay
	record.TaxableAdjustments = gross.TaxableAdjustments
	record.NonTaxableAdjustments = gross.NonTaxableAdjustments
	record.GrossPay = gross.Gross
	record.Statutory = statutory
	record.OtherDeductions = other.Total
	record.AdvanceDeductions = other.Advances
	record.OtherDeductionLines = other.Lines
	record.TotalDeductions = statutory.Total.Add(other.Total)
	record.NetPay = gross.Gross.Sub(record.TotalDeductions).Add(gross.NonTaxableAdjustments)

	record.Exceptions = append(record.Exceptions, DetectExceptions(emp, gross, record.NetPay)...)
	record.HasExceptions = len(record.Exceptions) > 0
	record.Stub = BuildPayStub(emp, record, adjustments)

	return record
}

// DetectExceptions lists the data-quality problems of a computed period.
func DetectExceptions(emp payroll.Employee, gross GrossPay, net decimal.Decimal) []payroll.PayrollException {
	var out []payroll.PayrollException

	if emp.EmploymentType == payroll.EmploymentHourly && gross.EntryCount == 0 {
		out = append(out, payroll.PayrollException{
			Code:    payroll.ExceptionNoTimeEntries,
			Message: "no time entries recorded for hourly employee",
		})
	}
	if emp.TaxID == "" {
		out = append(out, payroll.PayrollException{
			Code:    payroll.ExceptionMissingTaxID,
			Message: "missing tax identifier",
		})
	}
	if !emp.HasPaymentDetails() {
		out = append(out, payroll.PayrollException{
			Code:    payroll.ExceptionMissingBankDetails,
			Message: "missing bank or payment details",
		})
	}
	if !gross.Gross.IsPositive() {
		out = append(out, payroll.PayrollException{
			Code:    payroll.ExceptionNonPositiveGross,
			Message: fmt.Sprintf("gross pay is %s", gross.Gross.StringFixed(2)),
		})
	}
	if gross.Hours.Total.GreaterThan(MaxPeriodHours) {
		out = append(out, payroll.PayrollException{
			Code:    payroll.ExceptionExcessiveHours,
			Message: fmt.Sprintf("total hours %s exceed %s for the period", gross.Hours.Total.StringFixed(2), MaxPeriodHours.String()),
		})
	}
	if net.IsNegative() {
		out = append(out, payroll.PayrollException{
			Code:    payroll.ExceptionNegativeNet,
			Message: fmt.Sprintf("net pay is negative (%s)", net.StringFixed(2)),
		})
	}

	return out
}

// sanitize clamps negative pay inputs so an invalid employee still yields a
// reviewable record.
func sanitize(emp payroll.Employee) payroll.Employee {
	if emp.MonthlySalary.IsNegative() {
		emp.MonthlySalary = decimal.Zero
	}
	if emp.HourlyRate.IsNegative() {
		emp.HourlyRate = decimal.Zero
	}
	if emp.OvertimeRate != nil && emp.OvertimeRate.IsNegative() {
		emp.OvertimeRate = nil
	}
	if emp.OvertimeMultiplier != nil && emp.OvertimeMultiplier.IsNegative() {
		emp.OvertimeMultiplier = nil
	}
	return emp
}

func nonEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func round(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}
