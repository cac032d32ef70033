package advance

import (
	"time"

	"github.com/cmlabs-hris/payroll-engine-go/internal/pkg/validator"
	"github.com/shopspring/decimal"
)

type SubmitAdvanceRequest struct {
	EmployeeID         string          `json:"-"`
	RequestedAmount    decimal.Decimal `json:"requested_amount"`
	Reason             string          `json:"reason"`
	DisbursementMethod string          `json:"disbursement_method"`
	RepaymentMonths    int             `json:"repayment_months,omitempty"`
}

func (r *SubmitAdvanceRequest) Validate() error {
	var errs validator.ValidationErrors

	if validator.IsEmpty(r.EmployeeID) {
		errs = append(errs, validator.ValidationError{
			Field:   "employee_id",
			Message: "employee_id is required",
		})
	}

	if !r.RequestedAmount.IsPositive() {
		errs = append(errs, validator.ValidationError{
			Field:   "requested_amount",
			Message: "requested_amount must be greater than zero",
		})
	} else if !validator.HasMaxScale(r.RequestedAmount, 2) {
		errs = append(errs, validator.ValidationError{
			Field:   "requested_amount",
			Message: "requested_amount must have at most 2 decimal places",
		})
	}

	if validator.IsEmpty(r.Reason) {
		errs = append(errs, validator.ValidationError{
			Field:   "reason",
			Message: "reason is required",
		})
	}
	if !validator.MaxLength(r.Reason, 500) {
		errs = append(errs, validator.ValidationError{
			Field:   "reason",
			Message: "reason must not exceed 500 characters",
		})
	}

	if !DisbursementMethod(r.DisbursementMethod).IsValid() {
		errs = append(errs, validator.ValidationError{
			Field:   "disbursement_method",
			Message: "disbursement_method must be one of: bank, mobile_money, cash",
		})
	}

	if r.RepaymentMonths < 0 {
		errs = append(errs, validator.ValidationError{
			Field:   "repayment_months",
			Message: "repayment_months must not be negative",
		})
	}

	if len(errs) > 0 {
		return errs
	}

	return nil
}

type DecisionRequest struct {
	RequestID       string  `json:"-"`
	Decision        string  `json:"decision"` // "approve" or "reject"
	Comment         *string `json:"comment,omitempty"`
	ExpectedStatus  string  `json:"expected_status,omitempty"`
	RepaymentMonths *int    `json:"repayment_months,omitempty"`
}

func (r *DecisionRequest) Validate() error {
	var errs validator.ValidationErrors

	if validator.IsEmpty(r.RequestID) {
		errs = append(errs, validator.ValidationError{
			Field:   "id",
			Message: "id is required",
		})
	}

	if r.Decision != string(ActionApprove) && r.Decision != string(ActionReject) {
		errs = append(errs, validator.ValidationError{
			Field:   "decision",
			Message: "decision must be approve or reject",
		})
	}

	if r.ExpectedStatus != "" && !Status(r.ExpectedStatus).IsValid() {
		errs = append(errs, validator.ValidationError{
			Field:   "expected_status",
			Message: "expected_status is not a known status",
		})
	}

	if r.Comment != nil && !validator.MaxLength(*r.Comment, 1000) {
		errs = append(errs, validator.ValidationError{
			Field:   "comment",
			Message: "comment must not exceed 1000 characters",
		})
	}

	if r.RepaymentMonths != nil && *r.RepaymentMonths <= 0 {
		errs = append(errs, validator.ValidationError{
			Field:   "repayment_months",
			Message: "repayment_months must be a positive integer",
		})
	}

	if len(errs) > 0 {
		return errs
	}

	return nil
}

type DisburseRequest struct {
	RequestID      string  `json:"-"`
	Comment        *string `json:"comment,omitempty"`
	ExpectedStatus string  `json:"expected_status,omitempty"`
}

func (r *DisburseRequest) Validate() error {
	var errs validator.ValidationErrors

	if validator.IsEmpty(r.RequestID) {
		errs = append(errs, validator.ValidationError{
			Field:   "id",
			Message: "id is required",
		})
	}

	if r.ExpectedStatus != "" && !Status(r.ExpectedStatus).IsValid() {
		errs = append(errs, validator.ValidationError{
			Field:   "expected_status",
			Message: "expected_status is not a known status",
		})
	}

	if r.Comment != nil && !validator.MaxLength(*r.Comment, 1000) {
		errs = append(errs, validator.ValidationError{
			Field:   "comment",
			Message: "comment must not exceed 1000 characters",
		})
	}

	if len(errs) > 0 {
		return errs
	}

	return nil
}

type WorkflowStepResponse struct {
	ActorID    string    `json:"actor_id"`
	ActorRole  string    `json:"actor_role"`
	Action     string    `json:"action"`
	FromStatus string    `json:"from_status,omitempty"`
	ToStatus   string    `json:"to_status"`
	Comment    *string   `json:"comment,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

type AdvanceResponse struct {
	ID                 string                 `json:"id"`
	EmployeeID         string                 `json:"employee_id"`
	EmployeeName       *string                `json:"employee_name,omitempty"`
	RequestedAmount    decimal.Decimal        `json:"requested_amount"`
	Reason             string                 `json:"reason"`
	DisbursementMethod string                 `json:"disbursement_method"`
	RepaymentMonths    int                    `json:"repayment_months"`
	Status             string                 `json:"status"`
	Terminal           bool                   `json:"terminal"`
	Version            int                    `json:"version"`
	History            []WorkflowStepResponse `json:"history"`
	SubmittedAt        time.Time              `json:"submitted_at"`
	UpdatedAt          time.Time              `json:"updated_at"`
}

func NewAdvanceResponse(r SalaryAdvanceRequest) AdvanceResponse {
	history := make([]WorkflowStepResponse, 0, len(r.History))
	for _, s := range r.History {
		history = append(history, WorkflowStepResponse{
			ActorID:    s.ActorID,
			ActorRole:  string(s.ActorRole),
			Action:     string(s.Action),
			FromStatus: string(s.FromStatus),
			ToStatus:   string(s.ToStatus),
			Comment:    s.Comment,
			CreatedAt:  s.CreatedAt,
		})
	}

	return AdvanceResponse{
		ID:                 r.ID,
		EmployeeID:         r.EmployeeID,
		EmployeeName:       r.EmployeeName,
		RequestedAmount:    r.RequestedAmount,
		Reason:             r.Reason,
		DisbursementMethod: string(r.DisbursementMethod),
		RepaymentMonths:    r.RepaymentMonths,
		Status:             string(r.Status),
		Terminal:           r.Status.IsTerminal(),
		Version:            r.Version,
		History:            history,
		SubmittedAt:        r.SubmittedAt,
		UpdatedAt:          r.UpdatedAt,
	}
}

type DeductionEntryResponse struct {
	PeriodID  string          `json:"period_id"`
	Amount    decimal.Decimal `json:"amount"`
	Status    string          `json:"status"`
	AppliedAt time.Time       `json:"applied_at"`
}

type ScheduleResponse struct {
	ID               string                   `json:"id"`
	RequestID        string                   `json:"request_id"`
	EmployeeID       string                   `json:"employee_id"`
	OriginalAmount   decimal.Decimal          `json:"original_amount"`
	MonthlyDeduction decimal.Decimal          `json:"monthly_deduction"`
	RepaymentMonths  int                      `json:"repayment_months"`
	FirstPeriodID    string                   `json:"first_period_id"`
	RemainingBalance decimal.Decimal          `json:"remaining_balance"`
	TotalDeducted    decimal.Decimal          `json:"total_deducted"`
	Status           string                   `json:"status"`
	DeductionHistory []DeductionEntryResponse `json:"deduction_history"`
}

func NewScheduleResponse(s RepaymentSchedule) ScheduleResponse {
	history := make([]DeductionEntryResponse, 0, len(s.DeductionHistory))
	for _, e := range s.DeductionHistory {
		history = append(history, DeductionEntryResponse{
			PeriodID:  e.PeriodID,
			Amount:    e.Amount,
			Status:    string(e.Status),
			AppliedAt: e.AppliedAt,
		})
	}

	return ScheduleResponse{
		ID:               s.ID,
		RequestID:        s.RequestID,
		EmployeeID:       s.EmployeeID,
		OriginalAmount:   s.OriginalAmount,
		MonthlyDeduction: s.MonthlyDeduction,
		RepaymentMonths:  s.RepaymentMonths,
		FirstPeriodID:    s.FirstPeriodID,
		RemainingBalance: s.RemainingBalance,
		TotalDeducted:    s.TotalDeducted,
		Status:           string(s.Status),
		DeductionHistory: history,
	}
}

type EligibilityResponse struct {
	EmployeeID         string          `json:"employee_id"`
	MonthlySalary      decimal.Decimal `json:"monthly_salary"`
	MaxAdvanceLimit    decimal.Decimal `json:"max_advance_limit"`
	OutstandingBalance decimal.Decimal `json:"outstanding_balance"`
	AvailableCredit    decimal.Decimal `json:"available_credit"`
}
