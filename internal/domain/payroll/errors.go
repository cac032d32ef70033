package payroll

import "errors"

var (
	ErrPayrollRecordNotFound = errors.New("payroll record not found")
	ErrInvalidPeriod         = errors.New("invalid payroll period")
	ErrEmployeeNotFound      = errors.New("employee not found")
	ErrInvalidEmployee       = errors.New("invalid employee payroll data")
	ErrDuplicateEmployee     = errors.New("employee appears more than once in the run")
	ErrEmptyRun              = errors.New("payroll run has no employees")
)
