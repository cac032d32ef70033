package payroll

import "context"

type PayrollService interface {
	RunPayroll(ctx context.Context, req RunPayrollRequest) (RunPayrollResponse, error)
	GetPayrollRecord(ctx context.Context, id string) (PayrollRecordResponse, error)
	GetPayStub(ctx context.Context, id string) (PayStub, error)
}
