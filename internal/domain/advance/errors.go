package advance

import (
	"errors"
	"fmt"
)

var (
	ErrAdvanceRequestNotFound     = errors.New("salary advance request not found")
	ErrRepaymentScheduleNotFound  = errors.New("repayment schedule not found")
	ErrEmployeeNotFound           = errors.New("employee not found")
	ErrInvalidAmount              = errors.New("advance amount must be greater than zero")
	ErrExceedsEligibility         = errors.New("advance amount exceeds available credit")
	ErrInvalidRepaymentMonths     = errors.New("invalid repayment months")
	ErrSelfApproval               = errors.New("requester cannot decide on their own advance")
	ErrConcurrentModification     = errors.New("advance request was modified by another actor")
	ErrScheduleAlreadyExists      = errors.New("repayment schedule already exists for this request")
	ErrScheduleCompleted          = errors.New("repayment schedule already completed")
	ErrDeductionAlreadyApplied    = errors.New("deduction already applied for this period")
	ErrScheduleNotDue             = errors.New("repayment schedule is not due in this period")
	ErrInvalidPeriod              = errors.New("invalid payroll period")
	ErrInvalidTransition          = errors.New("invalid transition")
	ErrNotYetEligible             = errors.New("request is not yet eligible for this transition")
	ErrAlreadyDecided             = errors.New("request has already been decided at this stage")
	ErrActorNotAuthorized         = errors.New("actor is not authorized for this transition")
	ErrStaleStatus                = errors.New("request status changed since it was read")
	ErrUnknownAction              = errors.New("unknown workflow action")
	ErrSubmissionNotAllowedByRole = errors.New("advance requests must be submitted from an employee account")
)

// TransitionError describes a rejected workflow transition. It matches
// ErrInvalidTransition and its Reason with errors.Is.
type TransitionError struct {
	From   Status
	Action Action
	Role   Role
	Reason error
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("cannot %s request in %s as %s: %v", e.Action, e.From, e.Role, e.Reason)
}

func (e *TransitionError) Unwrap() []error {
	return []error{ErrInvalidTransition, e.Reason}
}
