package advance

import (
	"context"

	"github.com/shopspring/decimal"
)

// RequestRepository - interface for salary_advance_requests and salary_advance_steps tables
type RequestRepository interface {
	Create(ctx context.Context, request SalaryAdvanceRequest) (SalaryAdvanceRequest, error)
	GetByID(ctx context.Context, id string) (SalaryAdvanceRequest, error)
	GetByEmployeeID(ctx context.Context, employeeID string) ([]SalaryAdvanceRequest, error)
	// UpdateStatus persists a transition. It succeeds only when the stored row
	// still has fromStatus and the request's previous version, and appends the
	// request's last history step. Otherwise it returns ErrConcurrentModification.
	UpdateStatus(ctx context.Context, request SalaryAdvanceRequest, fromStatus Status) error
	// SumInFlight totals requested amounts of the employee's undecided or
	// undisbursed requests, excluding excludeID.
	SumInFlight(ctx context.Context, employeeID, excludeID string) (decimal.Decimal, error)
}

// ScheduleRepository - interface for repayment_schedules and repayment_deductions tables
type ScheduleRepository interface {
	Create(ctx context.Context, schedule RepaymentSchedule) (RepaymentSchedule, error)
	GetByID(ctx context.Context, id string) (RepaymentSchedule, error)
	GetByRequestID(ctx context.Context, requestID string) (RepaymentSchedule, error)
	GetActiveByEmployeeID(ctx context.Context, employeeID string) ([]RepaymentSchedule, error)
	// GetForPeriod returns the employee's schedules that are active and due in
	// periodID, or already took a deduction in periodID.
	GetForPeriod(ctx context.Context, employeeID, periodID string) ([]RepaymentSchedule, error)
	// ApplyDeduction records entry for the schedule and stores the new balance.
	// It returns ErrDeductionAlreadyApplied when the period was already recorded.
	ApplyDeduction(ctx context.Context, schedule RepaymentSchedule, entry DeductionEntry) error
}

// EmployeeReader supplies the employee data advances are computed from.
type EmployeeReader interface {
	GetAdvanceProfile(ctx context.Context, employeeID string) (EmployeeProfile, error)
}
