package advance

import (
	"fmt"
	"time"

	"github.com/cmlabs-hris/payroll-engine-go/internal/domain/advance"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type transitionKey struct {
	from   advance.Status
	action advance.Action
}

type transitionRule struct {
	role advance.Role
	to   advance.Status
}

// transitions is the only place workflow moves are defined.
var transitions = map[transitionKey]transitionRule{
	{advance.StatusPendingOpsInitial, advance.ActionApprove}: {advance.RoleOperations, advance.StatusForwardedToHR},
	{advance.StatusPendingOpsInitial, advance.ActionReject}:  {advance.RoleOperations, advance.StatusOpsFinalRejected},
	{advance.StatusForwardedToHR, advance.ActionApprove}:     {advance.RoleHR, advance.StatusHRApproved},
	{advance.StatusForwardedToHR, advance.ActionReject}:      {advance.RoleHR, advance.StatusHRRejected},
	{advance.StatusHRApproved, advance.ActionApprove}:        {advance.RoleOperations, advance.StatusOpsFinalApproved},
	{advance.StatusHRApproved, advance.ActionReject}:         {advance.RoleOperations, advance.StatusOpsFinalRejected},
	{advance.StatusOpsFinalApproved, advance.ActionDisburse}: {advance.RoleOperations, advance.StatusDisbursed},
	{advance.StatusDisbursed, advance.ActionApplyDeduction}:  {advance.RoleSystem, advance.StatusRepaying},
	{advance.StatusRepaying, advance.ActionComplete}:         {advance.RoleSystem, advance.StatusCompleted},
}

// stageOrder ranks the non-rejected statuses along the happy path.
var stageOrder = map[advance.Status]int{
	advance.StatusPendingOpsInitial: 0,
	advance.StatusForwardedToHR:     1,
	advance.StatusHRApproved:        2,
	advance.StatusOpsFinalApproved:  3,
	advance.StatusDisbursed:         4,
	advance.StatusRepaying:          5,
	advance.StatusCompleted:         6,
}

// decisionActions are the actions a requester may never take on their own request.
var decisionActions = map[advance.Action]bool{
	advance.ActionApprove:  true,
	advance.ActionReject:   true,
	advance.ActionDisburse: true,
}

// Credit is the employee's financial position read at decision time.
type Credit struct {
	MonthlySalary decimal.Decimal
	Outstanding   decimal.Decimal // excluding the request being decided
}

// Command asks the workflow to move a request.
type Command struct {
	Actor   advance.Actor
	Action  advance.Action
	Comment *string
	// ExpectedStatus, when set, must equal the request's status.
	ExpectedStatus advance.Status
	// Credit, when set, re-checks eligibility on approve.
	Credit *Credit
	// RepaymentMonths, when set on approve, reconfigures the repayment plan.
	RepaymentMonths *int
}

// SubmitInput carries everything needed to open a request.
type SubmitInput struct {
	EmployeeID         string
	OpsReviewerID      string
	RequestedAmount    decimal.Decimal
	Reason             string
	DisbursementMethod advance.DisbursementMethod
	RepaymentMonths    int
	Credit             Credit
}

// Workflow applies transitions to salary advance requests. It never
// mutates its inputs: every call returns a new request value.
type Workflow struct {
	newID func() string
}

func NewWorkflow() *Workflow {
	return &Workflow{newID: newUUID}
}

func newUUID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

// Submit opens a request. When the requester is also the branch operations
// reviewer the initial review is skipped and the request starts at HR.
func (w *Workflow) Submit(in SubmitInput, now time.Time) (advance.SalaryAdvanceRequest, error) {
	if !in.DisbursementMethod.IsValid() {
		return advance.SalaryAdvanceRequest{}, fmt.Errorf("invalid disbursement method %q", in.DisbursementMethod)
	}
	if in.RepaymentMonths < 0 {
		return advance.SalaryAdvanceRequest{}, advance.ErrInvalidRepaymentMonths
	}
	if err := CheckEligibility(in.RequestedAmount, in.Credit.MonthlySalary, in.Credit.Outstanding); err != nil {
		return advance.SalaryAdvanceRequest{}, err
	}

	months := in.RepaymentMonths
	if months == 0 {
		months = 1
	}

	req := advance.SalaryAdvanceRequest{
		ID:                 w.newID(),
		EmployeeID:         in.EmployeeID,
		RequestedAmount:    in.RequestedAmount,
		Reason:             in.Reason,
		DisbursementMethod: in.DisbursementMethod,
		RepaymentMonths:    months,
		Status:             advance.StatusPendingOpsInitial,
		OpsReviewerID:      in.OpsReviewerID,
		Version:            1,
		SubmittedAt:        now,
		UpdatedAt:          now,
	}
	req.History = []advance.WorkflowStep{
		w.step(req.ID, advance.Actor{ID: in.EmployeeID, Role: advance.RoleEmployee}, advance.ActionSubmit, "", advance.StatusPendingOpsInitial, nil, now),
	}

	if in.OpsReviewerID != "" && in.OpsReviewerID == in.EmployeeID {
		note := "requester is the branch operations reviewer"
		req.History = append(req.History,
			w.step(req.ID, advance.SystemActor, advance.ActionAutoForward, advance.StatusPendingOpsInitial, advance.StatusForwardedToHR, &note, now))
		req.Status = advance.StatusForwardedToHR
	}

	return req, nil
}

// Transition validates cmd against the transition table and returns the
// updated request. On error the returned request is the zero value and
// req is untouched.
func (w *Workflow) Transition(req advance.SalaryAdvanceRequest, cmd Command, now time.Time) (advance.SalaryAdvanceRequest, error) {
	if cmd.ExpectedStatus != "" && cmd.ExpectedStatus != req.Status {
		return advance.SalaryAdvanceRequest{}, transitionError(req, cmd.Actor, cmd.Action, advance.ErrStaleStatus)
	}
	to, err := Allowed(req, cmd.Actor, cmd.Action)
	if err != nil {
		return advance.SalaryAdvanceRequest{}, err
	}

	if cmd.Action == advance.ActionApprove {
		if cmd.Credit != nil {
			if err := CheckEligibility(req.RequestedAmount, cmd.Credit.MonthlySalary, cmd.Credit.Outstanding); err != nil {
				return advance.SalaryAdvanceRequest{}, err
			}
		}
		if cmd.RepaymentMonths != nil && *cmd.RepaymentMonths <= 0 {
			return advance.SalaryAdvanceRequest{}, advance.ErrInvalidRepaymentMonths
		}
	}

	next := req
	next.History = make([]advance.WorkflowStep, len(req.History), len(req.History)+1)
	copy(next.History, req.History)
	next.History = append(next.History, w.step(req.ID, cmd.Actor, cmd.Action, req.Status, to, cmd.Comment, now))
	next.Status = to
	next.Version = req.Version + 1
	next.UpdatedAt = now
	if cmd.Action == advance.ActionApprove && cmd.RepaymentMonths != nil {
		next.RepaymentMonths = *cmd.RepaymentMonths
	}

	return next, nil
}

// Allowed returns the status actor would move req to by taking action. The
// returned error tells "not your turn yet" apart from "already decided".
func Allowed(req advance.SalaryAdvanceRequest, actor advance.Actor, action advance.Action) (advance.Status, error) {
	if !isWorkflowAction(action) {
		return "", transitionError(req, actor, action, advance.ErrUnknownAction)
	}
	if decisionActions[action] && actor.ID != "" && actor.ID == req.EmployeeID {
		return "", transitionError(req, actor, action, advance.ErrSelfApproval)
	}

	rule, ok := transitions[transitionKey{req.Status, action}]
	if ok && rule.role == actor.Role {
		return rule.to, nil
	}

	return "", transitionError(req, actor, action, classify(req.Status, actor.Role, action))
}

// classify explains why role cannot take action while the request is in status.
func classify(status advance.Status, role advance.Role, action advance.Action) error {
	if status.IsTerminal() {
		return advance.ErrAlreadyDecided
	}

	current, ok := stageOrder[status]
	if !ok {
		return advance.ErrAlreadyDecided
	}

	acts := false
	for key, rule := range transitions {
		if key.action != action || rule.role != role {
			continue
		}
		acts = true
		if stageOrder[key.from] > current {
			return advance.ErrNotYetEligible
		}
	}
	if !acts {
		return advance.ErrActorNotAuthorized
	}
	return advance.ErrAlreadyDecided
}

func isWorkflowAction(action advance.Action) bool {
	for key := range transitions {
		if key.action == action {
			return true
		}
	}
	return false
}

func transitionError(req advance.SalaryAdvanceRequest, actor advance.Actor, action advance.Action, reason error) error {
	return &advance.TransitionError{From: req.Status, Action: action, Role: actor.Role, Reason: reason}
}

// SettleDeduction records the workflow effect of an applied installment:
// the first deduction moves a disbursed request to repaying, and a zero
// balance completes it. It returns the request after each transition, in
// order, so every state can be stored with its own step. An empty result
// means the request does not move.
func (w *Workflow) SettleDeduction(req advance.SalaryAdvanceRequest, app advance.Application, now time.Time) ([]advance.SalaryAdvanceRequest, error) {
	var states []advance.SalaryAdvanceRequest
	if req.Status == advance.StatusDisbursed {
		comment := fmt.Sprintf("period %s deducted %s", app.PeriodID, app.AmountApplied.StringFixed(2))
		next, err := w.Transition(req, Command{Actor: advance.SystemActor, Action: advance.ActionApplyDeduction, Comment: &comment}, now)
		if err != nil {
			return nil, err
		}
		states = append(states, next)
		req = next
	}
	if app.Completed && req.Status == advance.StatusRepaying {
		next, err := w.Transition(req, Command{Actor: advance.SystemActor, Action: advance.ActionComplete}, now)
		if err != nil {
			return nil, err
		}
		states = append(states, next)
	}
	return states, nil
}

func (w *Workflow) step(requestID string, actor advance.Actor, action advance.Action, from, to advance.Status, comment *string, now time.Time) advance.WorkflowStep {
	return advance.WorkflowStep{
		ID:         w.newID(),
		RequestID:  requestID,
		ActorID:    actor.ID,
		ActorRole:  actor.Role,
		Action:     action,
		FromStatus: from,
		ToStatus:   to,
		Comment:    comment,
		CreatedAt:  now,
	}
}
