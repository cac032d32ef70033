package response

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/cmlabs-hris/payroll-engine-go/internal/domain/advance"
	"github.com/cmlabs-hris/payroll-engine-go/internal/domain/payroll"
	"github.com/cmlabs-hris/payroll-engine-go/internal/domain/tax"
	"github.com/cmlabs-hris/payroll-engine-go/internal/pkg/validator"
)

// HandleError maps domain errors to HTTP responses
func HandleError(w http.ResponseWriter, err error) {
	// Check if it's a validation error
	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) {
		ValidationError(w, validationErrs.ToMap())
		return
	}

	switch {
	// Workflow gate errors. Reasons are checked before the generic
	// invalid-transition case since a TransitionError matches both.
	case errors.Is(err, advance.ErrNotYetEligible):
		ConflictWithCode(w, "NOT_YET_ELIGIBLE", err.Error())
	case errors.Is(err, advance.ErrAlreadyDecided):
		ConflictWithCode(w, "ALREADY_DECIDED", err.Error())
	case errors.Is(err, advance.ErrStaleStatus),
		errors.Is(err, advance.ErrConcurrentModification):
		Conflict(w, err.Error())
	case errors.Is(err, advance.ErrSelfApproval),
		errors.Is(err, advance.ErrActorNotAuthorized),
		errors.Is(err, advance.ErrSubmissionNotAllowedByRole):
		Forbidden(w, err.Error())
	case errors.Is(err, advance.ErrUnknownAction):
		Unprocessable(w, "UNKNOWN_ACTION", err.Error())
	case errors.Is(err, advance.ErrInvalidTransition):
		ConflictWithCode(w, "INVALID_TRANSITION", err.Error())

	// Advance domain errors
	case errors.Is(err, advance.ErrAdvanceRequestNotFound):
		NotFound(w, "Salary advance request not found")
	case errors.Is(err, advance.ErrRepaymentScheduleNotFound):
		NotFound(w, "Repayment schedule not found")
	case errors.Is(err, advance.ErrEmployeeNotFound),
		errors.Is(err, payroll.ErrEmployeeNotFound):
		NotFound(w, err.Error())
	case errors.Is(err, advance.ErrExceedsEligibility):
		Unprocessable(w, "EXCEEDS_ELIGIBILITY", err.Error())
	case errors.Is(err, advance.ErrInvalidAmount),
		errors.Is(err, advance.ErrInvalidRepaymentMonths),
		errors.Is(err, advance.ErrInvalidPeriod):
		Unprocessable(w, "UNPROCESSABLE_ENTITY", err.Error())
	case errors.Is(err, advance.ErrScheduleAlreadyExists),
		errors.Is(err, advance.ErrScheduleCompleted),
		errors.Is(err, advance.ErrScheduleNotDue),
		errors.Is(err, advance.ErrDeductionAlreadyApplied):
		Conflict(w, err.Error())

	// Payroll domain errors
	case errors.Is(err, payroll.ErrPayrollRecordNotFound):
		NotFound(w, "Payroll record not found")
	case errors.Is(err, payroll.ErrInvalidPeriod),
		errors.Is(err, payroll.ErrEmptyRun),
		errors.Is(err, payroll.ErrDuplicateEmployee),
		errors.Is(err, payroll.ErrInvalidEmployee):
		Unprocessable(w, "UNPROCESSABLE_ENTITY", err.Error())

	// Tax domain errors
	case errors.Is(err, tax.ErrNegativeGrossAmount):
		Unprocessable(w, "UNPROCESSABLE_ENTITY", err.Error())
	case errors.Is(err, tax.ErrInvalidTaxTable),
		errors.Is(err, tax.ErrUnsupportedVersion):
		Unprocessable(w, "INVALID_TAX_TABLE", err.Error())
	case errors.Is(err, tax.ErrTaxTableNotLoaded):
		ServiceUnavailable(w, "Tax table not loaded")

	// Default
	default:
		slog.Error("Unhandled error", "error", err)
		InternalServerError(w, "An unexpected error occurred")
	}
}
