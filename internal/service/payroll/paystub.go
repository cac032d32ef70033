package payroll

import (
	"github.com/cmlabs-hris/payroll-engine-go/internal/domain/payroll"
	"github.com/shopspring/decimal"
)

// BuildPayStub lays out a computed record as labelled lines.
func BuildPayStub(emp payroll.Employee, record payroll.PayrollRecord, adjustments []payroll.ManualAdjustment) payroll.PayStub {
	stub := payroll.PayStub{
		EmployeeID:      emp.ID,
		EmployeeCode:    emp.EmployeeCode,
		EmployeeName:    emp.FullName,
		PeriodID:        record.Period.ID,
		PaymentMethod:   string(emp.PaymentMethod),
		Earnings:        []payroll.StubLine{},
		Statutory:       []payroll.StubLine{},
		Deductions:      []payroll.StubLine{},
		NonTaxable:      []payroll.StubLine{},
		GrossPay:        record.GrossPay,
		TotalDeductions: record.TotalDeductions,
		NetPay:          record.NetPay,
		TaxTableVersion: record.TaxTableVersion,
	}

	if emp.EmploymentType == payroll.EmploymentHourly {
		stub.Earnings = appendLine(stub.Earnings, "Regular pay ("+record.Hours.Regular.StringFixed(2)+" h)", record.BasePay)
		stub.Earnings = appendLine(stub.Earnings, "Overtime pay ("+record.Hours.Overtime.StringFixed(2)+" h)", record.OvertimePay)
		stub.Earnings = appendLine(stub.Earnings, "Paid leave ("+record.Hours.PaidLeave.StringFixed(2)+" h)", record.PaidLeavePay)
	} else {
		stub.Earnings = appendLine(stub.Earnings, "Basic salary", record.BasePay)
	}

	for _, a := range adjustments {
		label := adjustmentLabel(a)
		if a.Type.IsTaxable() {
			stub.Earnings = appendLine(stub.Earnings, label, round(a.Amount))
		} else {
			stub.NonTaxable = appendLine(stub.NonTaxable, label, round(a.Amount))
		}
	}

	stub.Statutory = appendLine(stub.Statutory, "Income tax (PAYE)", record.Statutory.IncomeTax)
	stub.Statutory = appendLine(stub.Statutory, "Social security", record.Statutory.SocialSecurity)
	stub.Statutory = appendLine(stub.Statutory, "Health contribution", record.Statutory.HealthContribution)

	for _, l := range record.OtherDeductionLines {
		stub.Deductions = appendLine(stub.Deductions, l.Description, l.Amount)
	}

	return stub
}

func appendLine(lines []payroll.StubLine, label string, amount decimal.Decimal) []payroll.StubLine {
	if amount.IsZero() {
		return lines
	}
	return append(lines, payroll.StubLine{Label: label, Amount: amount})
}

func adjustmentLabel(a payroll.ManualAdjustment) string {
	if a.Description != "" {
		return a.Description
	}
	switch a.Type {
	case payroll.AdjustmentBonus:
		return "Bonus"
	case payroll.AdjustmentAllowance:
		return "Allowance"
	case payroll.AdjustmentOvertime:
		return "Overtime adjustment"
	case payroll.AdjustmentCommission:
		return "Commission"
	case payroll.AdjustmentReimbursement:
		return "Reimbursement"
	case payroll.AdjustmentPerDiem:
		return "Per diem"
	}
	return "Non-taxable payment"
}
