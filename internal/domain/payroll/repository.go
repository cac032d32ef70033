package payroll

import "context"

// RecordRepository - interface for payroll_records table
type RecordRepository interface {
	Create(ctx context.Context, record PayrollRecord) (PayrollRecord, error)
	GetByID(ctx context.Context, id string) (PayrollRecord, error)
	// GetCurrent returns the record for the employee and period that no later
	// record supersedes.
	GetCurrent(ctx context.Context, employeeID, periodID string) (PayrollRecord, error)
	ListCurrentByPeriod(ctx context.Context, periodID string) ([]PayrollRecord, error)
}

// EmployeeReader loads employees with their standing deductions.
type EmployeeReader interface {
	GetPayrollEmployee(ctx context.Context, employeeID string) (Employee, error)
}
