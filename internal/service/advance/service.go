package advance

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cmlabs-hris/payroll-engine-go/internal/domain/advance"
	"github.com/cmlabs-hris/payroll-engine-go/internal/pkg/database"
	"github.com/cmlabs-hris/payroll-engine-go/internal/pkg/validator"
	"github.com/shopspring/decimal"
)

// Config holds the repayment plan limits. Now defaults to time.Now.
type Config struct {
	DefaultRepaymentMonths int
	MaxRepaymentMonths     int
	Now                    func() time.Time
}

type AdvanceServiceImpl struct {
	tx        database.Transactor
	requests  advance.RequestRepository
	schedules advance.ScheduleRepository
	employees advance.EmployeeReader
	workflow  *Workflow
	scheduler *Scheduler
	cfg       Config
	now       func() time.Time
}

func NewAdvanceService(
	tx database.Transactor,
	requests advance.RequestRepository,
	schedules advance.ScheduleRepository,
	employees advance.EmployeeReader,
	cfg Config,
) *AdvanceServiceImpl {
	if cfg.DefaultRepaymentMonths <= 0 {
		cfg.DefaultRepaymentMonths = 1
	}
	if cfg.MaxRepaymentMonths < cfg.DefaultRepaymentMonths {
		cfg.MaxRepaymentMonths = cfg.DefaultRepaymentMonths
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &AdvanceServiceImpl{
		tx:        tx,
		requests:  requests,
		schedules: schedules,
		employees: employees,
		workflow:  NewWorkflow(),
		scheduler: NewScheduler(),
		cfg:       cfg,
		now:       now,
	}
}

// Submit opens a salary advance request for the acting employee.
func (s *AdvanceServiceImpl) Submit(ctx context.Context, actor advance.Actor, req advance.SubmitAdvanceRequest) (advance.AdvanceResponse, error) {
	// Operations and HR staff are employees too; only the system actor
	// has no salary to borrow against.
	if actor.Role == advance.RoleSystem || !actor.Role.IsValid() {
		return advance.AdvanceResponse{}, fmt.Errorf("%w: %s", advance.ErrSubmissionNotAllowedByRole, actor.Role)
	}
	req.EmployeeID = actor.ID
	if err := req.Validate(); err != nil {
		return advance.AdvanceResponse{}, err
	}

	months := req.RepaymentMonths
	if months == 0 {
		months = s.cfg.DefaultRepaymentMonths
	}
	if months > s.cfg.MaxRepaymentMonths {
		return advance.AdvanceResponse{}, fmt.Errorf("%w: at most %d months", advance.ErrInvalidRepaymentMonths, s.cfg.MaxRepaymentMonths)
	}

	var created advance.SalaryAdvanceRequest
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		profile, err := s.employees.GetAdvanceProfile(ctx, req.EmployeeID)
		if err != nil {
			return err
		}
		outstanding, err := s.outstanding(ctx, req.EmployeeID, "")
		if err != nil {
			return err
		}

		request, err := s.workflow.Submit(SubmitInput{
			EmployeeID:         req.EmployeeID,
			OpsReviewerID:      profile.OpsReviewerID,
			RequestedAmount:    req.RequestedAmount.Round(2),
			Reason:             req.Reason,
			DisbursementMethod: advance.DisbursementMethod(req.DisbursementMethod),
			RepaymentMonths:    months,
			Credit:             Credit{MonthlySalary: profile.MonthlySalary, Outstanding: outstanding},
		}, s.now())
		if err != nil {
			return err
		}

		created, err = s.requests.Create(ctx, request)
		if err != nil {
			return fmt.Errorf("failed to create advance request: %w", err)
		}
		created.EmployeeName = &profile.FullName
		return nil
	})
	if err != nil {
		return advance.AdvanceResponse{}, err
	}

	slog.Info("Salary advance submitted", "request_id", created.ID, "employee_id", created.EmployeeID, "status", created.Status)
	return advance.NewAdvanceResponse(created), nil
}

// Decide records an approve or reject decision at the request's current gate.
func (s *AdvanceServiceImpl) Decide(ctx context.Context, actor advance.Actor, req advance.DecisionRequest) (advance.AdvanceResponse, error) {
	if err := req.Validate(); err != nil {
		return advance.AdvanceResponse{}, err
	}
	if req.RepaymentMonths != nil && *req.RepaymentMonths > s.cfg.MaxRepaymentMonths {
		return advance.AdvanceResponse{}, fmt.Errorf("%w: at most %d months", advance.ErrInvalidRepaymentMonths, s.cfg.MaxRepaymentMonths)
	}

	var updated advance.SalaryAdvanceRequest
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		current, err := s.requests.GetByID(ctx, req.RequestID)
		if err != nil {
			return err
		}

		cmd := Command{
			Actor:           actor,
			Action:          advance.Action(req.Decision),
			Comment:         req.Comment,
			ExpectedStatus:  advance.Status(req.ExpectedStatus),
			RepaymentMonths: req.RepaymentMonths,
		}
		if cmd.Action == advance.ActionApprove {
			credit, err := s.credit(ctx, current)
			if err != nil {
				return err
			}
			cmd.Credit = &credit
		}

		updated, err = s.workflow.Transition(current, cmd, s.now())
		if err != nil {
			return err
		}
		return s.requests.UpdateStatus(ctx, updated, current.Status)
	})
	if err != nil {
		return advance.AdvanceResponse{}, err
	}

	slog.Info("Salary advance decided", "request_id", updated.ID, "actor_id", actor.ID, "role", actor.Role, "decision", req.Decision, "status", updated.Status)
	return advance.NewAdvanceResponse(updated), nil
}

// Disburse pays out a fully approved request and opens its repayment schedule.
func (s *AdvanceServiceImpl) Disburse(ctx context.Context, actor advance.Actor, req advance.DisburseRequest) (advance.AdvanceResponse, error) {
	if err := req.Validate(); err != nil {
		return advance.AdvanceResponse{}, err
	}

	var updated advance.SalaryAdvanceRequest
	var schedule advance.RepaymentSchedule
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		current, err := s.requests.GetByID(ctx, req.RequestID)
		if err != nil {
			return err
		}

		now := s.now()
		updated, err = s.workflow.Transition(current, Command{
			Actor:          actor,
			Action:         advance.ActionDisburse,
			Comment:        req.Comment,
			ExpectedStatus: advance.Status(req.ExpectedStatus),
		}, now)
		if err != nil {
			return err
		}
		if err := s.requests.UpdateStatus(ctx, updated, current.Status); err != nil {
			return err
		}

		schedule, err = s.scheduler.OnDisburse(updated, now)
		if err != nil {
			return err
		}
		if _, err := s.schedules.Create(ctx, schedule); err != nil {
			return fmt.Errorf("failed to create repayment schedule: %w", err)
		}
		return nil
	})
	if err != nil {
		return advance.AdvanceResponse{}, err
	}

	slog.Info("Salary advance disbursed", "request_id", updated.ID, "schedule_id", schedule.ID,
		"monthly_deduction", schedule.MonthlyDeduction.StringFixed(2), "repayment_months", schedule.RepaymentMonths)
	return advance.NewAdvanceResponse(updated), nil
}

func (s *AdvanceServiceImpl) GetAdvance(ctx context.Context, actor advance.Actor, id string) (advance.AdvanceResponse, error) {
	request, err := s.requests.GetByID(ctx, id)
	if err != nil {
		return advance.AdvanceResponse{}, err
	}
	if err := canView(actor, request.EmployeeID); err != nil {
		return advance.AdvanceResponse{}, err
	}
	return advance.NewAdvanceResponse(request), nil
}

func (s *AdvanceServiceImpl) ListAdvances(ctx context.Context, actor advance.Actor, employeeID string) ([]advance.AdvanceResponse, error) {
	if employeeID == "" {
		employeeID = actor.ID
	}
	if err := canView(actor, employeeID); err != nil {
		return nil, err
	}

	requests, err := s.requests.GetByEmployeeID(ctx, employeeID)
	if err != nil {
		return nil, err
	}

	result := make([]advance.AdvanceResponse, 0, len(requests))
	for _, r := range requests {
		result = append(result, advance.NewAdvanceResponse(r))
	}
	return result, nil
}

func (s *AdvanceServiceImpl) GetSchedule(ctx context.Context, actor advance.Actor, requestID string) (advance.ScheduleResponse, error) {
	request, err := s.requests.GetByID(ctx, requestID)
	if err != nil {
		return advance.ScheduleResponse{}, err
	}
	if err := canView(actor, request.EmployeeID); err != nil {
		return advance.ScheduleResponse{}, err
	}

	schedule, err := s.schedules.GetByRequestID(ctx, requestID)
	if err != nil {
		return advance.ScheduleResponse{}, err
	}
	return advance.NewScheduleResponse(schedule), nil
}

func (s *AdvanceServiceImpl) GetEligibility(ctx context.Context, actor advance.Actor, employeeID string) (advance.EligibilityResponse, error) {
	if employeeID == "" {
		employeeID = actor.ID
	}
	if err := canView(actor, employeeID); err != nil {
		return advance.EligibilityResponse{}, err
	}

	profile, err := s.employees.GetAdvanceProfile(ctx, employeeID)
	if err != nil {
		return advance.EligibilityResponse{}, err
	}
	outstanding, err := s.outstanding(ctx, employeeID, "")
	if err != nil {
		return advance.EligibilityResponse{}, err
	}

	return advance.EligibilityResponse{
		EmployeeID:         employeeID,
		MonthlySalary:      profile.MonthlySalary,
		MaxAdvanceLimit:    MaxAdvanceLimit(profile.MonthlySalary),
		OutstandingBalance: outstanding,
		AvailableCredit:    AvailableCredit(profile.MonthlySalary, outstanding),
	}, nil
}

// Installments snapshots what each of the employee's active schedules takes
// from periodID. Payroll reads this once before computing the period.
func (s *AdvanceServiceImpl) Installments(ctx context.Context, employeeID, periodID string) ([]advance.Installment, error) {
	if !validator.IsValidPeriodID(periodID) {
		return nil, fmt.Errorf("%w: %q", advance.ErrInvalidPeriod, periodID)
	}
	schedules, err := s.schedules.GetForPeriod(ctx, employeeID, periodID)
	if err != nil {
		return nil, fmt.Errorf("failed to load repayment schedules: %w", err)
	}

	result := make([]advance.Installment, 0, len(schedules))
	for _, sc := range schedules {
		amount := Installment(sc, periodID)
		if !amount.IsPositive() {
			continue
		}
		result = append(result, advance.Installment{
			ScheduleID: sc.ID,
			RequestID:  sc.RequestID,
			EmployeeID: sc.EmployeeID,
			Amount:     amount,
		})
	}
	return result, nil
}

// SettleInstallments applies a payroll period's snapshot to the schedules and
// moves the requests along. It must run in the same transaction that stores
// the payroll records. Re-running a period is a no-op.
func (s *AdvanceServiceImpl) SettleInstallments(ctx context.Context, periodID string, installments []advance.Installment) ([]advance.Application, error) {
	if !validator.IsValidPeriodID(periodID) {
		return nil, fmt.Errorf("%w: %q", advance.ErrInvalidPeriod, periodID)
	}
	apps := make([]advance.Application, 0, len(installments))
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		for _, inst := range installments {
			app, err := s.settle(ctx, periodID, inst)
			if err != nil {
				return err
			}
			apps = append(apps, app)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return apps, nil
}

func (s *AdvanceServiceImpl) settle(ctx context.Context, periodID string, inst advance.Installment) (advance.Application, error) {
	schedule, err := s.schedules.GetByID(ctx, inst.ScheduleID)
	if err != nil {
		return advance.Application{}, err
	}

	now := s.now()
	next, app, err := s.scheduler.ApplyToPeriod(schedule, periodID, now)
	if err != nil {
		return advance.Application{}, err
	}
	if !app.AmountApplied.Equal(inst.Amount) {
		return advance.Application{}, fmt.Errorf("%w: schedule %s would deduct %s, payroll took %s",
			advance.ErrConcurrentModification, schedule.ID, app.AmountApplied, inst.Amount)
	}

	if !app.AlreadyApplied {
		entry, _ := next.EntryFor(periodID)
		if err := s.schedules.ApplyDeduction(ctx, next, entry); err != nil {
			if errors.Is(err, advance.ErrDeductionAlreadyApplied) {
				app.AlreadyApplied = true
				return app, nil
			}
			return advance.Application{}, err
		}
	}

	request, err := s.requests.GetByID(ctx, schedule.RequestID)
	if err != nil {
		return advance.Application{}, err
	}
	states, err := s.workflow.SettleDeduction(request, app, now)
	if err != nil {
		return advance.Application{}, err
	}
	from := request.Status
	for _, state := range states {
		if err := s.requests.UpdateStatus(ctx, state, from); err != nil {
			return advance.Application{}, err
		}
		from = state.Status
	}
	if len(states) > 0 {
		slog.Info("Salary advance repayment progressed", "request_id", request.ID, "period_id", periodID,
			"applied", app.AmountApplied.StringFixed(2), "remaining", app.NewRemainingBalance.StringFixed(2), "status", from)
	}
	return app, nil
}

// credit reads the employee's position for a decision on req.
func (s *AdvanceServiceImpl) credit(ctx context.Context, req advance.SalaryAdvanceRequest) (Credit, error) {
	profile, err := s.employees.GetAdvanceProfile(ctx, req.EmployeeID)
	if err != nil {
		return Credit{}, err
	}
	outstanding, err := s.outstanding(ctx, req.EmployeeID, req.ID)
	if err != nil {
		return Credit{}, err
	}
	return Credit{MonthlySalary: profile.MonthlySalary, Outstanding: outstanding}, nil
}

// outstanding is the unpaid balance of active schedules plus the amounts of
// in-flight requests other than excludeID.
func (s *AdvanceServiceImpl) outstanding(ctx context.Context, employeeID, excludeID string) (decimal.Decimal, error) {
	schedules, err := s.schedules.GetActiveByEmployeeID(ctx, employeeID)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to load repayment schedules: %w", err)
	}
	total := decimal.Zero
	for _, sc := range schedules {
		total = total.Add(sc.RemainingBalance)
	}

	inFlight, err := s.requests.SumInFlight(ctx, employeeID, excludeID)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to sum in-flight advances: %w", err)
	}
	return total.Add(inFlight), nil
}

func canView(actor advance.Actor, employeeID string) error {
	switch actor.Role {
	case advance.RoleOperations, advance.RoleHR, advance.RoleSystem:
		return nil
	}
	if actor.ID != employeeID {
		return advance.ErrActorNotAuthorized
	}
	return nil
}
