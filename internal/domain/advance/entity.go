package advance

import (
	"time"

	"github.com/shopspring/decimal"
)

// Status is the workflow state of a salary advance request.
type Status string

const (
	StatusPendingOpsInitial Status = "pending_ops_initial"
	StatusForwardedToHR     Status = "forwarded_to_hr"
	StatusHRApproved        Status = "hr_approved"
	StatusOpsFinalApproved  Status = "ops_final_approved"
	StatusDisbursed         Status = "disbursed"
	StatusRepaying          Status = "repaying"
	StatusCompleted         Status = "completed"
	StatusOpsFinalRejected  Status = "ops_final_rejected"
	StatusHRRejected        Status = "hr_rejected"
)

// Statuses lists every status in workflow order, rejections last.
var Statuses = []Status{
	StatusPendingOpsInitial,
	StatusForwardedToHR,
	StatusHRApproved,
	StatusOpsFinalApproved,
	StatusDisbursed,
	StatusRepaying,
	StatusCompleted,
	StatusOpsFinalRejected,
	StatusHRRejected,
}

func (s Status) IsValid() bool {
	for _, v := range Statuses {
		if s == v {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no transition may leave s.
func (s Status) IsTerminal() bool {
	switch s {
	case StatusCompleted, StatusOpsFinalRejected, StatusHRRejected:
		return true
	}
	return false
}

// IsRejected reports whether s is one of the rejection states.
func (s Status) IsRejected() bool {
	return s == StatusOpsFinalRejected || s == StatusHRRejected
}

// IsInFlight reports whether the request is still awaiting a decision or disbursement.
func (s Status) IsInFlight() bool {
	switch s {
	case StatusPendingOpsInitial, StatusForwardedToHR, StatusHRApproved, StatusOpsFinalApproved:
		return true
	}
	return false
}

// Role is the capacity an actor acts in.
type Role string

const (
	RoleEmployee   Role = "employee"
	RoleOperations Role = "operations"
	RoleHR         Role = "hr"
	RoleSystem     Role = "system"
)

func (r Role) IsValid() bool {
	switch r {
	case RoleEmployee, RoleOperations, RoleHR, RoleSystem:
		return true
	}
	return false
}

// Action is what a workflow step did.
type Action string

const (
	ActionSubmit         Action = "submit"
	ActionAutoForward    Action = "auto_forward"
	ActionApprove        Action = "approve"
	ActionReject         Action = "reject"
	ActionDisburse       Action = "disburse"
	ActionApplyDeduction Action = "apply_deduction"
	ActionComplete       Action = "complete"
)

// DisbursementMethod enum
type DisbursementMethod string

const (
	DisbursementBank        DisbursementMethod = "bank"
	DisbursementMobileMoney DisbursementMethod = "mobile_money"
	DisbursementCash        DisbursementMethod = "cash"
)

func (m DisbursementMethod) IsValid() bool {
	switch m {
	case DisbursementBank, DisbursementMobileMoney, DisbursementCash:
		return true
	}
	return false
}

// Actor identifies who performs a transition.
type Actor struct {
	ID   string
	Role Role
}

// SystemActor is used for transitions driven by payroll runs.
var SystemActor = Actor{ID: "system", Role: RoleSystem}

// WorkflowStep is an immutable audit entry. Steps are appended on every
// transition and never edited or removed.
type WorkflowStep struct {
	ID         string
	RequestID  string
	ActorID    string
	ActorRole  Role
	Action     Action
	FromStatus Status // empty for the submit step
	ToStatus   Status
	Comment    *string
	CreatedAt  time.Time
}

// SalaryAdvanceRequest entity. It changes only through workflow transitions.
type SalaryAdvanceRequest struct {
	ID                 string
	EmployeeID         string
	RequestedAmount    decimal.Decimal
	Reason             string
	DisbursementMethod DisbursementMethod
	RepaymentMonths    int
	Status             Status
	OpsReviewerID      string // operations reviewer assigned to the employee's branch
	History            []WorkflowStep
	Version            int

	SubmittedAt time.Time
	UpdatedAt   time.Time

	// Relationships (for responses)
	EmployeeName *string
}

// LastStep returns the most recent workflow step.
func (r SalaryAdvanceRequest) LastStep() (WorkflowStep, bool) {
	if len(r.History) == 0 {
		return WorkflowStep{}, false
	}
	return r.History[len(r.History)-1], true
}

// ScheduleStatus enum
type ScheduleStatus string

const (
	ScheduleStatusActive    ScheduleStatus = "active"
	ScheduleStatusCompleted ScheduleStatus = "completed"
)

// DeductionStatus enum
type DeductionStatus string

const (
	DeductionStatusApplied DeductionStatus = "applied"
)

// DeductionEntry records one installment taken by a payroll period.
type DeductionEntry struct {
	PeriodID  string
	Amount    decimal.Decimal
	Status    DeductionStatus
	AppliedAt time.Time
}

// RepaymentSchedule tracks repayment of a disbursed advance.
// TotalDeducted + RemainingBalance always equals OriginalAmount.
type RepaymentSchedule struct {
	ID               string
	RequestID        string
	EmployeeID       string
	OriginalAmount   decimal.Decimal
	MonthlyDeduction decimal.Decimal
	RepaymentMonths  int
	// FirstPeriodID is the first payroll period (YYYY-MM) that collects an
	// installment: the month after disbursement.
	FirstPeriodID    string
	RemainingBalance decimal.Decimal
	TotalDeducted    decimal.Decimal
	DeductionHistory []DeductionEntry
	Status           ScheduleStatus
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// EntryFor returns the history entry recorded for periodID, if any.
func (s RepaymentSchedule) EntryFor(periodID string) (DeductionEntry, bool) {
	for _, e := range s.DeductionHistory {
		if e.PeriodID == periodID {
			return e, true
		}
	}
	return DeductionEntry{}, false
}

// DueIn reports whether periodID is on or after the first collectable period.
// Period ids are YYYY-MM, so they order as strings.
func (s RepaymentSchedule) DueIn(periodID string) bool {
	return periodID >= s.FirstPeriodID
}

// IsActive reports whether the schedule still has a balance to collect.
func (s RepaymentSchedule) IsActive() bool {
	return s.Status == ScheduleStatusActive && s.RemainingBalance.IsPositive()
}

// Application is the outcome of applying a schedule to one payroll period.
type Application struct {
	ScheduleID          string
	RequestID           string
	PeriodID            string
	AmountApplied       decimal.Decimal
	NewRemainingBalance decimal.Decimal
	Completed           bool
	// AlreadyApplied is set when the period had been applied before and
	// nothing changed.
	AlreadyApplied bool
}

// Installment is what one active schedule takes from one payroll period.
type Installment struct {
	ScheduleID string
	RequestID  string
	EmployeeID string
	Amount     decimal.Decimal
}

// EmployeeProfile is the slice of employee data advances need.
type EmployeeProfile struct {
	ID            string
	FullName      string
	MonthlySalary decimal.Decimal
	OpsReviewerID string
}
